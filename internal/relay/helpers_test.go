package relay_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wsrelay/internal/relay"
	"github.com/dmitrymomot/wsrelay/pkg/broadcast"
)

type frame struct {
	typ  int
	data []byte
}

// fakeUpstream is a WebSocket server that writes whatever frames the test pushes.
// Hangup drops the connection without a close frame.
type fakeUpstream struct {
	srv       *httptest.Server
	frames    chan frame
	hangup    chan struct{}
	closeOnce sync.Once
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()

	u := &fakeUpstream{
		frames: make(chan frame, 64),
		hangup: make(chan struct{}),
	}
	upgrader := websocket.Upgrader{}

	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			select {
			case <-u.hangup:
				return
			case f := <-u.frames:
				if f.typ == websocket.CloseMessage {
					_ = conn.WriteControl(websocket.CloseMessage, f.data, time.Now().Add(time.Second))
					return
				}
				if err := conn.WriteMessage(f.typ, f.data); err != nil {
					return
				}
			}
		}
	}))

	t.Cleanup(func() {
		u.Hangup()
		u.srv.Close()
	})
	return u
}

func (u *fakeUpstream) URL() string {
	return "ws" + strings.TrimPrefix(u.srv.URL, "http") + "/Messages"
}

func (u *fakeUpstream) SendText(msgs ...string) {
	for _, m := range msgs {
		u.frames <- frame{typ: websocket.TextMessage, data: []byte(m)}
	}
}

func (u *fakeUpstream) SendBinary(data []byte) {
	u.frames <- frame{typ: websocket.BinaryMessage, data: data}
}

func (u *fakeUpstream) SendClose(code int, reason string) {
	u.frames <- frame{typ: websocket.CloseMessage, data: websocket.FormatCloseMessage(code, reason)}
}

func (u *fakeUpstream) Hangup() {
	u.closeOnce.Do(func() { close(u.hangup) })
}

// newRelayServer serves the subscriber handler for hub.
func newRelayServer(t *testing.T, hub relay.Subscribable, opts ...relay.HandlerOption) string {
	t.Helper()

	opts = append([]relay.HandlerOption{relay.WithAllowAnyOrigin()}, opts...)
	return newRelayServerWith(t, relay.NewHandler(hub, opts...))
}

func newRelayServerWith(t *testing.T, h http.Handler) string {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/relay"
}

func dialSubscriber(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitSubscribers waits until the hub has n registered queues.
func waitSubscribers(t *testing.T, hub *broadcast.MemoryBroadcaster[string], n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.Len() == n
	}, 2*time.Second, 5*time.Millisecond)
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, typ)
	return string(data)
}

func readTexts(t *testing.T, conn *websocket.Conn, n int) []string {
	t.Helper()

	out := make([]string, 0, n)
	for range n {
		out = append(out, readText(t, conn))
	}
	return out
}

func receive(t *testing.T, sub broadcast.Subscriber[string]) string {
	t.Helper()

	select {
	case msg, ok := <-sub.Receive():
		require.True(t, ok, "queue closed")
		return msg.Data
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}
