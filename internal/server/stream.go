package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/donia1222/remix-crypto-sub000/internal/connection"
	"github.com/donia1222/remix-crypto-sub000/internal/model"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// Stream message types
const (
	msgSnapshot = "snapshot"
	msgUpdate   = "update"
)

type streamMessage struct {
	Type   string            `json:"type"`
	State  connection.State  `json:"state"`
	Quotes []model.QuoteView `json:"quotes"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Public, read-only data.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream sends the current quotes, then every flushed batch.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("stream upgrade failed", "err", err)
		return
	}

	s.streams.Add(1)
	defer s.streams.Done()
	defer conn.Close()

	// Subscribe before the snapshot so no flush falls between them.
	sub := s.deps.Quotes.Subscribe()
	defer s.deps.Quotes.Unsubscribe(sub)

	logger := s.logger.With("remote", c.Request.RemoteAddr)
	logger.Debug("stream opened")

	if err := s.writeStream(conn, msgSnapshot, s.deps.Quotes.Views()); err != nil {
		return
	}

	// Reader: handles pongs and notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Receive blocks, so it gets its own goroutine. It ends when the
	// subscription is closed by Unsubscribe or by the store stopping.
	batches := make(chan []model.PriceQuote)
	go func() {
		defer close(batches)
		for {
			batch, ok := sub.Receive()
			if !ok {
				return
			}
			select {
			case batches <- batch:
			case <-closed:
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-s.ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteWait))
			return
		case <-closed:
			logger.Debug("stream closed by client")
			return
		case batch, ok := <-batches:
			if !ok {
				return
			}
			if err := s.writeStream(conn, msgUpdate, s.deps.Quotes.Display(batch)); err != nil {
				logger.Debug("stream write failed", "err", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeStream(conn *websocket.Conn, typ string, quotes []model.QuoteView) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(streamMessage{
		Type:   typ,
		State:  s.deps.Feed.State(),
		Quotes: quotes,
	})
}
