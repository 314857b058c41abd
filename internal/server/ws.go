package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"

	"github.com/laurindocbenjamim/voxscribe/internal/protocol"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleProgressSocket streams pipeline progress for one session over a
// WebSocket. Events arrive via the NATS bus, so the upload request and the
// progress stream can hit different replicas.
func (s *Server) handleProgressSocket(c echo.Context) error {
	if s.bus == nil || !s.bus.Healthy() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "progress bus unavailable")
	}
	sessionID := c.Param("session")

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log := s.logger.With(slog.String("session_id", sessionID))

	events := make(chan []byte, 16)
	sub, err := s.bus.Conn().Subscribe(protocol.ProgressSubject(sessionID), func(msg *nats.Msg) {
		select {
		case events <- msg.Data:
		default:
			log.Warn("progress subscriber lagging, dropping event")
		}
	})
	if err != nil {
		log.Error("progress subscribe failed", slog.String("error", err.Error()))
		return nil
	}
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case data := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return nil
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
