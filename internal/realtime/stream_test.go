package realtime

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secure-bank/internal/session"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

func newTestServer(t *testing.T, s *Streamer, source Source) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Serve(w, r, source)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamer_PushesStatusUntilSessionEnds(t *testing.T) {
	s := NewStreamer(nil, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var calls atomic.Int32
	url := newTestServer(t, s, func() (session.Snapshot, error) {
		if calls.Add(1) > 2 {
			return session.Snapshot{}, errors.ErrSessionExpired
		}
		return session.Snapshot{UserID: 7, ClickCount: 3, IdleRemaining: "04:59"}, nil
	})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, FrameStatus, frame.Type)
	require.NotNil(t, frame.Session)
	assert.Equal(t, 7, frame.Session.UserID)
	assert.Equal(t, "04:59", frame.Session.IdleRemaining)

	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, FrameStatus, frame.Type)

	frame = Frame{}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, FrameExpired, frame.Type)
	assert.Contains(t, frame.Message, "session expired")

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestStreamer_RejectsAfterShutdown(t *testing.T) {
	s := NewStreamer(nil, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Shutdown()

	url := newTestServer(t, s, func() (session.Snapshot, error) { return session.Snapshot{}, nil })
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStreamer_CheckOrigin(t *testing.T) {
	s := NewStreamer([]string{"https://bank.example"}, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := httptest.NewRequest(http.MethodGet, "/v1/session/stream", nil)
	r.Header.Set("Origin", "https://bank.example")
	assert.True(t, s.upgrader.CheckOrigin(r))

	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, s.upgrader.CheckOrigin(r))
}
