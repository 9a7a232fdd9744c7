package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/scanner"
	"github.com/MeKo-Tech/cardscan/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsOutboxSize   = 64
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// ControlMessage is a text message from the client.
// Type is one of "pause", "resume" or "reset".
type ControlMessage struct {
	Type string `json:"type"`
}

// EventMessage carries a session event. Type is "commit" when the event
// holds a commit and "state" otherwise.
type EventMessage struct {
	Type  string        `json:"type"`
	Event scanner.Event `json:"event"`
}

// ErrorMessage reports a message the server could not act on.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// liveSession is one /ws/scan connection: a scanning session fed with
// frames the client captures and pushes as binary messages.
type liveSession struct {
	src     *frame.LatestSource
	session *scanner.Session
	outbox  chan []byte
	cancel  context.CancelFunc
	server  *Server
}

// scanWebSocketHandler runs a live scanning session over a WebSocket.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil || s.resolver == nil {
		s.writeErrorResponse(w, "Scanner not initialized", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ls, err := s.openSession(cancel, r.RemoteAddr)
	if err != nil {
		s.log().Error("Failed to start scan session", "error", err)
		return
	}
	s.track(ls, true)
	defer s.track(ls, false)

	s.log().Info("Scan session started", "remote_addr", r.RemoteAddr)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ls.writeLoop(ctx, conn)
		// Unblocks readLoop when the session ends from this side.
		_ = conn.Close()
	}()
	go func() {
		defer wg.Done()
		_ = ls.session.Run(ctx)
	}()

	s.readLoop(ctx, conn, ls)
	cancel()
	wg.Wait()

	s.log().Info("Scan session closed", "remote_addr", r.RemoteAddr)
}

// openSession creates the session behind one connection. Every event is
// queued for the writer; a full queue drops the event.
func (s *Server) openSession(cancel context.CancelFunc, remote string) (*liveSession, error) {
	ls := &liveSession{
		src:    frame.NewLatestSource(),
		outbox: make(chan []byte, wsOutboxSize),
		cancel: cancel,
		server: s,
	}
	sess, err := scanner.New(s.session, scanner.Deps{
		Source:    ls.src,
		Detector:  s.detector,
		Extractor: s.extractor,
		Resolver:  s.resolver,
		Logger:    s.log().With("remote_addr", remote),
	})
	if err != nil {
		return nil, err
	}
	sess.Subscribe(func(ev scanner.Event) {
		kind := "state"
		if ev.Commit != nil {
			kind = "commit"
		}
		ls.send(EventMessage{Type: kind, Event: ev})
	})
	ls.session = sess
	return ls, nil
}

// track registers or forgets a live session for Close.
func (s *Server) track(ls *liveSession, open bool) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if s.live == nil {
		s.live = make(map[*liveSession]struct{})
	}
	if open {
		s.live[ls] = struct{}{}
	} else {
		delete(s.live, ls)
	}
}

// readLoop feeds binary frames into the session and applies control
// messages until the client goes away.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, ls *liveSession) {
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for ctx.Err() == nil {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log().Warn("WebSocket error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch messageType {
		case websocket.BinaryMessage:
			websocketMessagesTotal.WithLabelValues("received", "frame").Inc()
			s.handleFrame(ls, data)
		case websocket.TextMessage:
			websocketMessagesTotal.WithLabelValues("received", "control").Inc()
			s.handleControl(ls, data)
		}
	}
}

// handleFrame decodes an encoded image and makes it the session's latest frame.
func (s *Server) handleFrame(ls *liveSession, data []byte) {
	img, err := utils.DecodeImage(bytes.NewReader(data))
	if err != nil {
		ls.send(ErrorMessage{Type: "error", Error: "invalid frame: " + err.Error()})
		return
	}
	ls.src.Push(img)
}

// handleControl applies a pause, resume or reset request.
func (s *Server) handleControl(ls *liveSession, data []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		ls.send(ErrorMessage{Type: "error", Error: "invalid control message: " + err.Error()})
		return
	}
	switch msg.Type {
	case "pause":
		ls.session.Pause()
	case "resume":
		ls.session.Resume()
	case "reset":
		ls.session.Reset()
	default:
		ls.send(ErrorMessage{Type: "error", Error: "unsupported control type: " + msg.Type})
	}
}

// send queues v for the writer without blocking.
func (ls *liveSession) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		ls.server.log().Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	select {
	case ls.outbox <- data:
	default:
		ls.server.log().Debug("WebSocket outbox full, dropping message")
	}
}

// writeLoop is the connection's only data writer. It also keeps the
// connection alive with pings.
func (ls *liveSession) writeLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-ls.outbox:
			if err := writeText(conn, data); err != nil {
				ls.server.log().Debug("Failed to send WebSocket message", "error", err)
				ls.cancel()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				ls.cancel()
				return
			}
		}
	}
}

func writeText(conn WebSocketConnWriter, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	websocketMessagesTotal.WithLabelValues("sent", "event").Inc()
	return nil
}
