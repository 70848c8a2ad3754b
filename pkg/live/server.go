//go:build !wasm
// +build !wasm

package live

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/recera/pinchzoom/pkg/zoom"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 300 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Server hosts server-driven zoom sessions over WebSocket.
// Every connection that names the same session ID drives and mirrors the
// same controller.
type Server struct {
	upgrader websocket.Upgrader
	prefix   string
	cfg      zoom.GestureConfig
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewServer creates a live server. prefix is the URL path in front of the
// session ID, e.g. "/live/".
func NewServer(prefix string, cfg zoom.GestureConfig) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			// Same-origin pages and the desktop viewer both connect here
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		prefix:   prefix,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// ServeHTTP upgrades the request and attaches the connection to its session
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, s.prefix), "/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Live Server] Failed to upgrade connection: %v", err)
		return
	}

	session, c := s.attach(sessionID, ws)
	go session.handleConnection(s, c)
}

// attach finds or creates the session and joins ws to it. Both happen under
// the server lock so removeIfIdle cannot drop the session in between.
func (s *Server) attach(id string, ws *websocket.Conn) (*Session, *connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		session = newSession(id, s.cfg)
		s.sessions[id] = session
		log.Printf("[Live Session %s] Created", id)
	}
	return session, session.join(ws)
}

// Session returns a session by ID
func (s *Server) Session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[id]
	return session, exists
}

// Len returns the number of active sessions
func (s *Server) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// removeIfIdle drops a session once its last connection is gone. It takes
// the server lock before the session lock, like attach.
func (s *Server) removeIfIdle(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.Connections() == 0 && s.sessions[session.ID] == session {
		delete(s.sessions, session.ID)
		log.Printf("[Live Session %s] Removed", session.ID)
	}
}

// Close disconnects every connection of every session
func (s *Server) Close() {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	for _, session := range sessions {
		session.closeAll()
	}
}

// Session owns one zoom controller shared by all of its connections.
// Frames are applied in arrival order under the session lock.
type Session struct {
	ID string

	mu      sync.Mutex
	ctrl    *zoom.Controller
	metrics zoom.Metrics
	seq     uint64
	conns   map[*connection]struct{}
}

type connection struct {
	ws        *websocket.Conn
	send      chan []byte
	closeChan chan struct{}
	closeOnce sync.Once
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		c.ws.Close()
	})
}

func newSession(id string, cfg zoom.GestureConfig) *Session {
	s := &Session{
		ID:    id,
		conns: make(map[*connection]struct{}),
	}
	// metrics is only read from inside controller calls, which run under mu
	s.ctrl = zoom.New(cfg, zoom.MetricsFunc(func() zoom.Metrics { return s.metrics }))
	s.ctrl.OnTransformChange(s.broadcast)
	return s
}

// Transform returns the session's current transform
func (s *Session) Transform() zoom.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.GetTransform()
}

// Connections returns the number of attached connections
func (s *Session) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Apply feeds one gesture into the session controller
func (s *Session) Apply(ev zoom.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Handle(ev)
}

// SetMetrics replaces the layout metrics. The first call marks the image loaded.
func (s *Session) SetMetrics(m zoom.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	if !s.ctrl.Loaded() {
		s.ctrl.OnImageLoad()
	}
}

func (s *Session) join(ws *websocket.Conn) *connection {
	c := &connection{
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
		closeChan: make(chan struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
	c.send <- EncodeControl(Control{Message: ControlHello, Seq: s.seq})
	// Late joiners start from the current view
	if s.ctrl.Loaded() {
		c.send <- EncodeTransform(s.seq, s.ctrl.GetTransform(), false)
	}
	return c
}

func (s *Session) leave(c *connection) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	c.close()
}

func (s *Session) closeAll() {
	s.mu.Lock()
	conns := make([]*connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// broadcast is the controller sink; it runs with mu held
func (s *Session) broadcast(x, y, scale float64, animated bool) {
	s.seq++
	frame := EncodeTransform(s.seq, zoom.Transform{X: x, Y: y, Scale: scale}, animated)
	for c := range s.conns {
		select {
		case c.send <- frame:
		default:
			log.Printf("[Live Session %s] Send buffer full, dropping transform %d", s.ID, s.seq)
		}
	}
}

// handleConnection runs the reader loop for one connection
func (s *Session) handleConnection(srv *Server, c *connection) {
	defer func() {
		s.leave(c)
		srv.removeIfIdle(s)
	}()

	go s.writer(c)

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Live Session %s] Unexpected close: %v", s.ID, err)
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			log.Printf("[Live Session %s] Ignoring text message: %d bytes", s.ID, len(data))
			continue
		}
		s.handleBinaryMessage(c, data)
	}
}

// writer drains the send buffer and keeps the connection alive with pings
func (s *Session) writer(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, message); err != nil {
				log.Printf("[Live Session %s] Failed to write message: %v", s.ID, err)
				c.close()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

func (s *Session) handleBinaryMessage(c *connection, data []byte) {
	if len(data) == 0 {
		return
	}

	switch MessageType(data[0]) {
	case FrameGesture:
		ev, err := DecodeGesture(data)
		if err != nil {
			log.Printf("[Live Session %s] Failed to decode gesture: %v", s.ID, err)
			return
		}
		s.Apply(ev)

	case FrameMetrics:
		m, err := DecodeMetrics(data)
		if err != nil {
			log.Printf("[Live Session %s] Failed to decode metrics: %v", s.ID, err)
			return
		}
		s.SetMetrics(m)

	case FrameControl:
		ctl, err := DecodeControl(data)
		if err != nil {
			log.Printf("[Live Session %s] Failed to decode control message: %v", s.ID, err)
			return
		}
		switch ctl.Message {
		case ControlHello:
			log.Printf("[Live Session %s] Client hello: lastSeq=%d", s.ID, ctl.Seq)
		case ControlPing:
			select {
			case c.send <- EncodeControl(Control{Message: ControlPong}):
			default:
			}
		}

	default:
		log.Printf("[Live Session %s] Unknown frame type 0x%02x", s.ID, data[0])
	}
}
