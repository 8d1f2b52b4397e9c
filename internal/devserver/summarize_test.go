package devserver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	cases := []struct {
		name    string
		title   string
		content string
		want    string
	}{
		{
			name:    "empty content falls back to title",
			title:   "Untitled thoughts",
			content: "   ",
			want:    "Untitled thoughts",
		},
		{
			name:    "short content is returned whole",
			title:   "t",
			content: "Just one sentence.",
			want:    "Just one sentence.",
		},
		{
			name:    "caps at three sentences",
			title:   "t",
			content: "One. Two! Three? Four.",
			want:    "One. Two! Three?",
		},
		{
			name:    "trailing fragment without terminator is kept",
			title:   "t",
			content: "First. And then it just ends",
			want:    "First. And then it just ends",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, summarize(tc.title, tc.content))
		})
	}
}

func TestSummarizeClampsLongSentences(t *testing.T) {
	long := strings.Repeat("word ", 200) + "end."
	got := summarize("t", long)
	assert.LessOrEqual(t, len([]rune(got)), maxSummaryRunes+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}
