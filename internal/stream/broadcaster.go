// Package stream pushes the computed pose to rendering clients over WebSocket.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/stagehand/internal/pose"
)

// PoseMessage is the wire format sent to rendering clients.
type PoseMessage struct {
	Type      string    `json:"type"`
	Pose      pose.Pose `json:"pose"`
	Timestamp string    `json:"timestamp"`
}

// Broadcaster fans the latest pose out to connected clients. Slow clients
// simply miss frames: pose updates are state, not events, so dropping
// intermediate values is harmless.
type Broadcaster struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	server  *http.Server
}

// NewBroadcaster creates a pose broadcaster.
func NewBroadcaster(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger.With().Str("component", "stream").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handler upgrades incoming connections and registers them for broadcast.
func (b *Broadcaster) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		b.mu.Lock()
		b.clients[conn] = struct{}{}
		count := len(b.clients)
		b.mu.Unlock()
		b.logger.Info().Int("clients", count).Msg("Render client connected")

		// Reader loop only detects disconnect; clients never send data.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					b.drop(conn)
					return
				}
			}
		}()
	})
}

// Listen serves the broadcast endpoint on its own HTTP server.
func (b *Broadcaster) Listen(addr, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, b.Handler())

	server := &http.Server{Addr: addr, Handler: mux}

	b.mu.Lock()
	b.server = server
	b.mu.Unlock()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			b.logger.Error().Err(err).Msg("Pose stream server failed")
		}
	}()
	b.logger.Info().Str("addr", addr).Str("path", path).Msg("Pose stream listening")
}

// PublishPose sends the pose to every connected client, dropping any whose
// write fails.
func (b *Broadcaster) PublishPose(p pose.Pose) {
	msg := PoseMessage{
		Type:      "pose",
		Pose:      p,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for c := range b.clients {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(time.Second))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			b.drop(c)
		}
	}
}

// ClientCount reports the number of connected render clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects all clients and stops the server if one is running.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	server := b.server
	b.server = nil
	for c := range b.clients {
		c.Close()
	}
	b.clients = make(map[*websocket.Conn]struct{})
	b.mu.Unlock()

	if server != nil {
		return server.Close()
	}
	return nil
}

func (b *Broadcaster) drop(conn *websocket.Conn) {
	conn.Close()
	b.mu.Lock()
	delete(b.clients, conn)
	b.mu.Unlock()
}
