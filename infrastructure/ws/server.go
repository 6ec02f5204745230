// Package ws is the duplex channel between browsers and the relay.
// Each socket gets a read goroutine feeding client frames to the relay
// and a write goroutine draining the connection sink back to the browser.
// Separating read and write keeps a slow browser from blocking the relay.
package ws

import (
	"contact-relay/domain"
	"contact-relay/domain/event"
	"contact-relay/observability"
	"contact-relay/services"
	"contact-relay/sink"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type Options struct {
	BufferSize    int
	WriteTimeout  time.Duration
	PongWait      time.Duration
	CallTimeout   time.Duration
	AllowedOrigin string
}

type Server struct {
	log        *slog.Logger
	service    services.IRelayService
	monitoring *observability.Monitoring
	upgrader   websocket.Upgrader
	options    Options
}

func NewServer(log *slog.Logger, service services.IRelayService, monitoring *observability.Monitoring, options Options) *Server {
	s := &Server{log: log, service: service, monitoring: monitoring, options: options}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin accepts any origin unless one is configured.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.options.AllowedOrigin
	if allowed == "" || allowed == "*" {
		return true
	}
	return r.Header.Get("Origin") == allowed
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Websocket upgrade failed", "error", err)
		return
	}
	s.monitoring.SocketOpened()
	defer s.monitoring.SocketClosed()

	connectionSink := sink.NewConnectionSink(s.options.BufferSize)
	ctx, cancel := context.WithTimeout(context.Background(), s.options.CallTimeout)
	id, err := s.service.Connect(ctx, connectionSink)
	cancel()
	if err != nil {
		s.log.Error("Failed to register connection", "error", err)
		_ = conn.Close()
		return
	}

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		s.write(conn, connectionSink)
	}()

	s.read(conn, id)

	ctx, cancel = context.WithTimeout(context.Background(), s.options.CallTimeout)
	if err := s.service.Disconnect(ctx, id); err != nil {
		s.log.Error("Failed to disconnect", "connection_id", id, "error", err)
		// The relay runs the disconnect later, stop the write loop now
		connectionSink.Close()
	}
	cancel()
	<-writeDone
}

// read forwards client frames until the socket fails or closes.
func (s *Server) read(conn *websocket.Conn, id domain.ConnectionID) {
	_ = conn.SetReadDeadline(time.Now().Add(s.options.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.options.PongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.monitoring.IncrTransportFailures()
				s.log.Debug("Websocket closed unexpectedly", "connection_id", id, "error", err)
			}
			return
		}
		s.handle(id, raw)
	}
}

func (s *Server) handle(id domain.ConnectionID, raw []byte) {
	var frame event.InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.log.Debug("Ignoring malformed frame", "connection_id", id, "error", err)
		return
	}
	switch frame.Event {
	case event.NameMessage:
		var msg event.OutgoingMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			s.log.Debug("Ignoring malformed message", "connection_id", id, "error", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.options.CallTimeout)
		defer cancel()
		if err := s.service.Message(ctx, id, msg); err != nil {
			s.log.Error("Failed to relay message", "connection_id", id, "error", err)
		}
	default:
		s.log.Debug("Ignoring unknown frame", "connection_id", id, "event", frame.Event)
	}
}

// write drains the sink to the socket and pings the client.
// It owns closing the socket.
func (s *Server) write(conn *websocket.Conn, connectionSink *sink.ConnectionSink) {
	ticker := time.NewTicker(s.options.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case evt := <-connectionSink.Events():
			if err := s.writeFrame(conn, evt); err != nil {
				s.monitoring.IncrTransportFailures()
				s.log.Debug("Websocket write failed", "error", err)
				return
			}
		case <-connectionSink.Done():
			s.flush(conn, connectionSink)
			_ = conn.SetWriteDeadline(time.Now().Add(s.options.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.options.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush writes what was queued before the sink closed.
func (s *Server) flush(conn *websocket.Conn, connectionSink *sink.ConnectionSink) {
	for {
		select {
		case evt := <-connectionSink.Events():
			if err := s.writeFrame(conn, evt); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, evt event.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(s.options.WriteTimeout))
	return conn.WriteJSON(event.ToFrame(evt))
}
