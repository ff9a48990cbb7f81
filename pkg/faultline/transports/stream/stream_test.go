package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

// wsServer accepts one connection at a time and forwards decoded envelopes.
type wsServer struct {
	srv      *httptest.Server
	received chan envelope
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{received: make(chan envelope, 16)}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var env envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			s.received <- env
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) next(t *testing.T) envelope {
	t.Helper()
	select {
	case env := <-s.received:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a streamed envelope")
		return envelope{}
	}
}

func TestStream_SendsEnvelopes(t *testing.T) {
	server := newWSServer(t)
	tr := New(server.url())
	defer tr.Close()
	ctx := context.Background()

	require.NoError(t, tr.SendEvent(ctx, &faultline.Event{EventID: "one", Level: faultline.LevelError}))
	env := server.next(t)
	assert.Equal(t, "event", env.Kind)
	require.NotNil(t, env.Event)
	assert.Equal(t, "one", env.Event.EventID)

	require.NoError(t, tr.SendSession(ctx, &faultline.Session{ID: "s1", Status: faultline.SessionOK}))
	env = server.next(t)
	assert.Equal(t, "session", env.Kind)
	require.NotNil(t, env.Session)
	assert.Equal(t, "s1", env.Session.ID)
}

func TestStream_DialIsLazy(t *testing.T) {
	// Constructing against a dead endpoint must succeed; the failure surfaces
	// on first send.
	tr := New("ws://127.0.0.1:1/nothing", WithDialTimeout(200*time.Millisecond))
	defer tr.Close()

	err := tr.SendEvent(context.Background(), &faultline.Event{EventID: "one"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}

func TestStream_RejectsAfterClose(t *testing.T) {
	server := newWSServer(t)
	tr := New(server.url())

	require.NoError(t, tr.SendEvent(context.Background(), &faultline.Event{EventID: "one"}))
	server.next(t)
	require.NoError(t, tr.Close())

	assert.Error(t, tr.SendEvent(context.Background(), &faultline.Event{EventID: "late"}))
}
