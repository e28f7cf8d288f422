// Package ws broadcasts deployment lifecycle events over Socket.IO.
// Events are persisted so a reconnecting client can replay what it
// missed by sending its last seen event id.
package ws

import (
	"net/http"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Hub owns the Socket.IO server and the persisted event stream
type Hub struct {
	db     *gorm.DB
	server *socketio.Server
	logger *logrus.Entry
}

// NewHub creates the Socket.IO server and starts its serve loop
func NewHub(db *gorm.DB) *Hub {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool {
					// Allow all origins for now (can be restricted later)
					return true
				},
			},
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool {
					return true
				},
			},
		},
	})

	h := &Hub{
		db:     db,
		server: server,
		logger: logrus.WithField("component", "ws"),
	}

	server.OnConnect("/", func(s socketio.Conn) error {
		h.logger.Infof("Client connected: %s", s.ID())
		s.Emit("connected", map[string]interface{}{
			"ok": true,
		})
		return nil
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		h.logger.Infof("Client disconnected: %s, reason: %s", s.ID(), reason)
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		h.logger.Warnf("Error for client %s: %v", s.ID(), e)
	})

	server.OnEvent("/", "request:deployments", h.handleRequestDeployments)

	go func() {
		if err := server.Serve(); err != nil {
			h.logger.Errorf("Server error: %v", err)
		}
	}()

	h.logger.Info("Socket.IO server initialized")
	return h
}

// Server exposes the underlying Socket.IO server for HTTP mounting
func (h *Hub) Server() *socketio.Server {
	return h.server
}

// Close stops the Socket.IO serve loop
func (h *Hub) Close() error {
	return h.server.Close()
}

func (h *Hub) broadcast(event string, data interface{}) {
	if h.server == nil {
		return
	}
	h.server.BroadcastToNamespace("/", event, data)
}
