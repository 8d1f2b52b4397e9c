package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"miniblog/internal/app/blog"
	"miniblog/internal/pkg/errs"
)

// scriptedFetcher serves canned pull responses, counting calls.
type scriptedFetcher struct {
	posts []blog.Post
	err   *errs.CustomError
	calls atomic.Int64
}

func (f *scriptedFetcher) ListPosts(ctx context.Context) ([]blog.Post, *errs.CustomError) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func envelope(t *testing.T, msgType string, data any) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	raw, err := json.Marshal(Envelope{Type: msgType, Data: payload})
	require.NoError(t, err)
	return raw
}

// pushServer upgrades each connection, writes the scripted messages in order,
// then closes the channel cleanly.
func pushServer(t *testing.T, messages ...[]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	}))
	t.Cleanup(server.Close)
	return server
}

// runScript connects a synchronizer to a scripted push server, lets it apply
// every message, and returns the resulting collection. The fetcher fails, so
// the fallback fetch after the clean close cannot disturb the pushed state.
func runScript(t *testing.T, messages ...[]byte) []blog.Post {
	t.Helper()
	server := pushServer(t, messages...)

	notified := make(chan *errs.CustomError, 4)
	fetcher := &scriptedFetcher{err: errs.NewError(errs.ErrNetworkUnreachable)}
	sync := New(wsURL(server), fetcher, func(customErr *errs.CustomError) {
		notified <- customErr
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sync.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("synchronizer did not finish the scripted session")
	}
	sync.Close()

	// The clean close is reported as a channel failure before the fallback
	// fetch runs.
	select {
	case customErr := <-notified:
		require.Equal(t, errs.ErrChannelClosed, customErr.Code)
	default:
		t.Fatal("expected a channel-closed notification")
	}

	return sync.Posts()
}

func post(id, title string) blog.Post {
	return blog.Post{ID: id, Title: title}
}

func TestPushMessagesApplyInArrivalOrder(t *testing.T) {
	p1 := post("p1", "first")
	p1v2 := post("p1", "first, revised")

	posts := runScript(t,
		envelope(t, TypePosts, []blog.Post{}),
		envelope(t, TypeNewPost, p1),
		envelope(t, TypeUpdatePost, p1v2),
		envelope(t, TypeDeletePost, blog.Post{ID: "p1"}),
	)
	require.Empty(t, posts)

	// The same messages with the last two swapped end in a different
	// collection: the update resurrects the deleted post.
	posts = runScript(t,
		envelope(t, TypePosts, []blog.Post{}),
		envelope(t, TypeNewPost, p1),
		envelope(t, TypeDeletePost, blog.Post{ID: "p1"}),
		envelope(t, TypeUpdatePost, p1v2),
	)
	require.Len(t, posts, 1)
	require.Equal(t, "first, revised", posts[0].Title)
}

func TestNewPostPrepends(t *testing.T) {
	posts := runScript(t,
		envelope(t, TypePosts, []blog.Post{post("p1", "older")}),
		envelope(t, TypeNewPost, post("p2", "newer")),
	)
	require.Len(t, posts, 2)
	require.Equal(t, "p2", posts[0].ID)
	require.Equal(t, "p1", posts[1].ID)
}

func TestSnapshotReplacesWholeCollection(t *testing.T) {
	posts := runScript(t,
		envelope(t, TypePosts, []blog.Post{post("p1", "a"), post("p2", "b")}),
		envelope(t, TypePosts, []blog.Post{post("p3", "c")}),
	)
	require.Len(t, posts, 1)
	require.Equal(t, "p3", posts[0].ID)
}

func TestUnknownMessageTypeIsSkipped(t *testing.T) {
	posts := runScript(t,
		envelope(t, TypePosts, []blog.Post{post("p1", "a")}),
		envelope(t, "reactions", map[string]int{"p1": 3}),
		[]byte("{not json"),
		envelope(t, TypeNewPost, post("p2", "b")),
	)
	require.Len(t, posts, 2)
	require.Equal(t, "p2", posts[0].ID)
}

func TestDialFailureFallsBackToPull(t *testing.T) {
	// A plain HTTP endpoint refuses the upgrade, so the dial fails.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no websocket here", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	notified := make(chan *errs.CustomError, 4)
	fetcher := &scriptedFetcher{posts: []blog.Post{post("p1", "from pull")}}
	sync := New(wsURL(server), fetcher, func(customErr *errs.CustomError) {
		notified <- customErr
	})
	defer sync.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sync.Run(ctx)

	require.Equal(t, Pull, sync.Mode())
	require.Equal(t, int64(1), fetcher.calls.Load())

	posts := sync.Posts()
	require.Len(t, posts, 1)
	require.Equal(t, "from pull", posts[0].Title)

	customErr := <-notified
	require.Equal(t, errs.ErrChannelUnavailable, customErr.Code)
	require.True(t, errs.IsChannel(customErr))
}

func TestFailedRefreshKeepsPreviousCollection(t *testing.T) {
	fetcher := &scriptedFetcher{posts: []blog.Post{post("p1", "a")}}
	sync := New("ws://127.0.0.1:0/update", fetcher, nil)
	defer sync.Close()

	ctx := context.Background()
	require.Nil(t, sync.Refresh(ctx))
	require.Len(t, sync.Posts(), 1)

	fetcher.err = errs.NewError(errs.ErrNetworkUnreachable)
	customErr := sync.Refresh(ctx)
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrNetworkUnreachable, customErr.Code)

	// The stale view outlives the failed fetch.
	require.Len(t, sync.Posts(), 1)
	require.Equal(t, "a", sync.Posts()[0].Title)
}

func TestRefreshIsNoOpWhilePushChannelOpen(t *testing.T) {
	upgrader := websocket.Upgrader{}
	hold := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, envelope(t, TypePosts, []blog.Post{post("p1", "pushed")}))
		<-hold
	}))
	t.Cleanup(func() {
		close(hold)
		server.Close()
	})

	fetcher := &scriptedFetcher{posts: []blog.Post{post("p2", "pulled")}}
	sync := New(wsURL(server), fetcher, nil)
	defer sync.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sync.Run(ctx)

	require.Eventually(t, func() bool {
		return sync.Mode() == Push && len(sync.Posts()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Fetching while pushed data flows would mix the two sources.
	require.Nil(t, sync.Refresh(ctx))
	require.Equal(t, int64(0), fetcher.calls.Load())
	require.Equal(t, "pushed", sync.Posts()[0].Title)
}

func TestSendReachesServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan Envelope, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var env Envelope
		if err := conn.ReadJSON(&env); err == nil {
			received <- env
		}
	}))
	t.Cleanup(server.Close)

	sync := New(wsURL(server), &scriptedFetcher{}, nil)
	defer sync.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sync.Run(ctx)

	require.Eventually(t, func() bool {
		return sync.Mode() == Push
	}, 5*time.Second, 10*time.Millisecond)

	require.Nil(t, sync.Send("markRead", map[string]string{"postId": "p1"}))

	select {
	case env := <-received:
		require.Equal(t, "markRead", env.Type)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(env.Data, &payload))
		require.Equal(t, "p1", payload["postId"])
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the message")
	}
}

func TestSendWithoutChannelFails(t *testing.T) {
	sync := New("ws://127.0.0.1:0/update", &scriptedFetcher{}, nil)
	defer sync.Close()

	customErr := sync.Send("markRead", map[string]string{"postId": "p1"})
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrChannelSendFailed, customErr.Code)
}
