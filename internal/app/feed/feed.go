/*
Package feed keeps a near-real-time mirror of the post collection.

The Synchronizer prefers a persistent push channel to the backend's update
endpoint. While that channel is open it is the sole source of truth and the
pull path is never consulted; the two sources are never merged. When the
channel cannot be established or drops, the Synchronizer falls back to a
one-shot full fetch, and the caller re-invokes Refresh on its own cadence.
*/
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"miniblog/internal/app/blog"
	"miniblog/internal/pkg/errs"
	"miniblog/internal/pkg/logx"
)

// Push message kinds carried in the {type, data} envelope.
const (
	TypePosts      = "posts"
	TypeNewPost    = "newPost"
	TypeUpdatePost = "updatePost"
	TypeDeletePost = "deletePost"
)

const (
	// writeWait bounds a single write on the push channel.
	writeWait = 10 * time.Second

	// pingWait is the maximum silence tolerated between server pings.
	pingWait = 60 * time.Second

	// maxMessageSize caps a single inbound push message.
	maxMessageSize = 1 << 20 // 1 MB
)

// Mode tags the active data source.
type Mode int

const (
	// Pull means the collection comes from one-shot full fetches.
	Pull Mode = iota

	// Push means the open channel is the sole source of truth.
	Push
)

// String returns the display name of the mode.
func (m Mode) String() string {
	if m == Push {
		return "push"
	}
	return "pull"
}

// Envelope is the wire format of a push message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Fetcher is the pull path: a one-shot fetch of the full post collection.
// blog.Client satisfies it.
type Fetcher interface {
	ListPosts(ctx context.Context) ([]blog.Post, *errs.CustomError)
}

// Notify receives non-fatal, user-visible errors (channel failures, failed
// refreshes). It must not block.
type Notify func(*errs.CustomError)

// Synchronizer mirrors the post collection for the listing view.
type Synchronizer struct {
	url     string
	fetcher Fetcher
	notify  Notify
	dialer  *websocket.Dialer

	mu         sync.RWMutex
	conn       *websocket.Conn
	mode       Mode
	posts      []blog.Post
	lastUpdate time.Time

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}

	logger zerolog.Logger
}

// New constructs a Synchronizer for the given push endpoint URL. notify may
// be nil when the caller has no use for failure notifications.
func New(url string, fetcher Fetcher, notify Notify) *Synchronizer {
	if notify == nil {
		notify = func(*errs.CustomError) {}
	}

	return &Synchronizer{
		url:     url,
		fetcher: fetcher,
		notify:  notify,
		dialer:  websocket.DefaultDialer,
		mode:    Pull,
		done:    make(chan struct{}),
		logger:  logx.Logger().With().Str("component", "feed").Logger(),
	}
}

// Run drives the synchronizer until ctx is canceled or Close is called.
// It attempts the push channel first; on dial failure or a later channel
// error it reports the failure, switches to Pull, and issues one fetch.
// Run returns once the push path is finished; in Pull mode the caller owns
// the refresh cadence.
func (s *Synchronizer) Run(ctx context.Context) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", s.url).Msg("Push channel dial failed")
		s.fallback(ctx, errs.Wrap(err, errs.ErrChannelUnavailable))
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mode = Push
	s.mu.Unlock()

	s.logger.Info().Str("url", s.url).Msg("Push channel established")

	// Unblock the read loop when the caller tears the synchronizer down.
	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pingWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pingWait))

		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	// Single-reader loop: each message is applied fully before the next one
	// is read, which preserves arrival order.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.apply(raw)
	}

	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return
	case <-s.done:
		return
	default:
	}

	s.logger.Warn().Msg("Push channel closed unexpectedly, falling back to pull")
	s.fallback(ctx, errs.NewError(errs.ErrChannelClosed))
}

// fallback switches to Pull, reports the channel error, and issues the
// one-shot full fetch.
func (s *Synchronizer) fallback(ctx context.Context, channelErr *errs.CustomError) {
	s.mu.Lock()
	s.mode = Pull
	s.mu.Unlock()

	s.notify(channelErr)

	if customErr := s.Refresh(ctx); customErr != nil {
		s.notify(customErr)
	}
}

// apply decodes one push envelope and mutates the mirrored collection.
// Unknown message kinds are logged and skipped.
func (s *Synchronizer) apply(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn().Err(err).Msg("Push channel carried invalid JSON")
		return
	}

	switch env.Type {
	case TypePosts:
		var posts []blog.Post
		if err := json.Unmarshal(env.Data, &posts); err != nil {
			s.logger.Warn().Err(err).Msg("Invalid posts payload")
			return
		}
		s.replaceAll(posts)

	case TypeNewPost:
		var post blog.Post
		if err := json.Unmarshal(env.Data, &post); err != nil {
			s.logger.Warn().Err(err).Msg("Invalid newPost payload")
			return
		}
		s.insert(post)

	case TypeUpdatePost:
		var post blog.Post
		if err := json.Unmarshal(env.Data, &post); err != nil {
			s.logger.Warn().Err(err).Msg("Invalid updatePost payload")
			return
		}
		s.update(post)

	case TypeDeletePost:
		var post blog.Post
		if err := json.Unmarshal(env.Data, &post); err != nil {
			s.logger.Warn().Err(err).Msg("Invalid deletePost payload")
			return
		}
		s.remove(post.ID)

	default:
		s.logger.Warn().Str("msg_type", env.Type).Msg("Unsupported push message type")
	}
}

func (s *Synchronizer) replaceAll(posts []blog.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = posts
	s.lastUpdate = time.Now()
}

// insert prepends the new post, newest first.
func (s *Synchronizer) insert(post blog.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append([]blog.Post{post}, s.posts...)
	s.lastUpdate = time.Now()
}

// update replaces the post with a matching id in place. A post not currently
// mirrored is appended instead, so an update is never silently lost to a
// race with the initial snapshot.
func (s *Synchronizer) update(post blog.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == post.ID {
			s.posts[i] = post
			s.lastUpdate = time.Now()
			return
		}
	}
	s.posts = append(s.posts, post)
	s.lastUpdate = time.Now()
}

func (s *Synchronizer) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.posts[:0]
	for _, p := range s.posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.posts = kept
	s.lastUpdate = time.Now()
}

// Refresh issues the one-shot full fetch. It is a no-op while the push
// channel is open, so the two sources are never mixed. The synchronizer does
// not schedule repeated polls; that cadence is deliberately the caller's.
func (s *Synchronizer) Refresh(ctx context.Context) *errs.CustomError {
	s.mu.RLock()
	mode := s.mode
	s.mu.RUnlock()

	if mode == Push {
		return nil
	}

	posts, customErr := s.fetcher.ListPosts(ctx)
	if customErr != nil {
		// The previous collection stays visible; a failed refresh never
		// blanks the view.
		return customErr
	}

	s.replaceAll(posts)
	return nil
}

// Mode reports the active data source.
func (s *Synchronizer) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Posts returns an ordered snapshot copy of the mirrored collection.
func (s *Synchronizer) Posts() []blog.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]blog.Post, len(s.posts))
	copy(snapshot, s.posts)
	return snapshot
}

// LastUpdate reports when the collection last changed.
func (s *Synchronizer) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// Send writes a {type, data} envelope on the push channel. It is the escape
// hatch for future bidirectional use; current consumers never call it.
func (s *Synchronizer) Send(msgType string, data any) *errs.CustomError {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return errs.NewError(errs.ErrChannelSendFailed)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return errs.Wrap(err, errs.ErrChannelSendFailed)
	}

	raw, err := json.Marshal(Envelope{Type: msgType, Data: payload})
	if err != nil {
		return errs.Wrap(err, errs.ErrChannelSendFailed)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return errs.Wrap(err, errs.ErrChannelSendFailed)
	}
	return nil
}

// Close releases the push channel. Safe to call more than once.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
