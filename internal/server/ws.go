package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// connSet tracks live websocket connections so they can be closed on
// shutdown; http.Server.Shutdown does not close hijacked connections.
type connSet struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func (s *connSet) add(c *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		s.conns = make(map[*websocket.Conn]struct{})
	}
	s.conns[c] = struct{}{}
}

// remove reports whether c was still tracked.
func (s *connSet) remove(c *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c]; !ok {
		return false
	}
	delete(s.conns, c)
	return true
}

func (s *connSet) snapshot() []*websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (s *connSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *connSet) closeAll() {
	for _, c := range s.snapshot() {
		if s.remove(c) {
			c.Close()
		}
	}
}

// ControlHandler serves the control channel: each text message is answered
// with one JSON reply on the same connection.
type ControlHandler struct {
	controller   *Controller
	writeTimeout time.Duration
	log          *zap.Logger
	conns        connSet
}

// NewControlHandler creates a ControlHandler.
func NewControlHandler(c *Controller, writeTimeout time.Duration, log *zap.Logger) *ControlHandler {
	return &ControlHandler{controller: c, writeTimeout: writeTimeout, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	h.conns.add(conn)
	defer func() {
		if h.conns.remove(conn) {
			conn.Close()
		}
	}()

	h.log.Info("control connection opened", zap.String("remote", r.RemoteAddr))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("control connection error", zap.Error(err))
			}
			break
		}

		resp := h.controller.Handle(msg)
		if h.writeTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		}
		if err := conn.WriteJSON(resp); err != nil {
			h.log.Warn("failed to write control reply", zap.Error(err))
			break
		}
	}
	h.log.Info("control connection closed", zap.String("remote", r.RemoteAddr))
}

// Connections returns the number of open control connections.
func (h *ControlHandler) Connections() int {
	return h.conns.len()
}

// CloseAll closes every open control connection.
func (h *ControlHandler) CloseAll() {
	h.conns.closeAll()
}
