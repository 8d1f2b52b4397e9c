package devserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"miniblog/internal/app/blog"
	"miniblog/internal/app/feed"
)

// A broadcast issued while a subscriber's initial snapshot is being built must
// still reach that subscriber: the snapshot runs under the registration lock,
// so the broadcast serializes after it.
func TestRegistrationMissesNoConcurrentBroadcast(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	snapshotStarted := make(chan struct{})
	releaseSnapshot := make(chan struct{})

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn, func() (pushEnvelope, error) {
			close(snapshotStarted)
			<-releaseSnapshot
			return pushEnvelope{Type: feed.TypePosts, Data: []blog.Post{}}, nil
		})
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	<-snapshotStarted

	broadcastDone := make(chan struct{})
	go func() {
		hub.Broadcast(feed.TypeNewPost, blog.Post{ID: "p1", Title: "raced"})
		close(broadcastDone)
	}()

	// Give the broadcast time to reach the registration lock, then let the
	// snapshot finish.
	time.Sleep(50 * time.Millisecond)
	close(releaseSnapshot)

	select {
	case <-broadcastDone:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast never completed")
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first feed.Envelope
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, feed.TypePosts, first.Type)

	var second feed.Envelope
	require.NoError(t, conn.ReadJSON(&second))
	require.Equal(t, feed.TypeNewPost, second.Type)

	var post blog.Post
	require.NoError(t, json.Unmarshal(second.Data, &post))
	require.Equal(t, "p1", post.ID)
}
