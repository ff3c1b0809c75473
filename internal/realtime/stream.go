// Package realtime streams a session's status over a websocket once per
// interval, so clients can render the freeze and idle countdowns.
package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/session"
)

// DefaultInterval is the status push rate.
const DefaultInterval = time.Second

// MaxClients caps concurrent streams.
const MaxClients = 5000

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	readLimit  = 4 * 1024
	bufferSize = 1024
)

var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

type FrameType string

const (
	FrameStatus  FrameType = "status"
	FrameExpired FrameType = "expired"
)

// Frame is one message pushed to the client.
type Frame struct {
	Type      FrameType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Session   *session.Snapshot `json:"session,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// Source yields the current snapshot. An error ends the stream.
type Source func() (session.Snapshot, error)

// Streamer owns the live status connections.
type Streamer struct {
	upgrader websocket.Upgrader
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	clients  int
	max      int
	done     chan struct{}
	shutdown sync.Once
}

// NewStreamer accepts upgrades from the given origins; an empty list
// allows only same-host and non-browser clients.
func NewStreamer(allowedOrigins []string, interval time.Duration, logger *slog.Logger) *Streamer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &Streamer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed[origin] {
					return true
				}
				return origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
		interval: interval,
		logger:   logger,
		max:      MaxClients,
		done:     make(chan struct{}),
	}
}

// Serve upgrades the request and pushes a frame every interval until the
// client leaves, the source fails or the streamer shuts down.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, source Source) {
	select {
	case <-s.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	if !s.acquire() {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	defer s.release()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go readPump(conn, closed, s.logger)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		snap, err := source()
		if err != nil {
			_ = s.write(conn, &Frame{Type: FrameExpired, Timestamp: time.Now().UTC(), Message: err.Error()})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
				time.Now().Add(writeWait))
			return
		}
		if err := s.write(conn, &Frame{Type: FrameStatus, Timestamp: time.Now().UTC(), Session: &snap}); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}

		select {
		case <-ticker.C:
		case <-closed:
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

// Shutdown ends every open stream and rejects new ones.
func (s *Streamer) Shutdown() {
	s.shutdown.Do(func() { close(s.done) })
}

// Clients is the number of open streams.
func (s *Streamer) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients
}

func (s *Streamer) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients >= s.max {
		return false
	}
	s.clients++
	metrics.ActiveWebSocketClients.Set(float64(s.clients))
	return true
}

func (s *Streamer) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients--
	metrics.ActiveWebSocketClients.Set(float64(s.clients))
}

func (s *Streamer) write(conn *websocket.Conn, f *Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// readPump drains client messages so control frames are processed, and
// closes closed when the client goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}, logger *slog.Logger) {
	defer close(closed)

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				logger.Debug("websocket read ended", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
