package devserver

import "strings"

const (
	// maxSummarySentences caps the extractive summary length.
	maxSummarySentences = 3

	// maxSummaryRunes is the hard cap on the summary text.
	maxSummaryRunes = 400
)

// summarize produces an extractive summary of a post: its leading sentences,
// clamped to a fixed budget. It stands in for the production AI service,
// which is external to this repository.
func summarize(title, content string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return title
	}

	var sentences []string
	remaining := text
	for len(sentences) < maxSummarySentences && remaining != "" {
		idx := strings.IndexAny(remaining, ".!?")
		if idx < 0 {
			sentences = append(sentences, strings.TrimSpace(remaining))
			break
		}
		sentences = append(sentences, strings.TrimSpace(remaining[:idx+1]))
		remaining = strings.TrimSpace(remaining[idx+1:])
	}

	summary := strings.Join(sentences, " ")

	runes := []rune(summary)
	if len(runes) > maxSummaryRunes {
		summary = string(runes[:maxSummaryRunes]) + "..."
	}
	return summary
}
