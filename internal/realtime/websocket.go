package realtime

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coastwatch-systems/coastwatch/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	maxMessageSize = 4 * 1024
)

var errSendQueueFull = errors.New("send queue full")

// wsConn adapts a websocket connection to the Sender interface. Outbound
// envelopes go through a buffered channel drained by a single writer
// goroutine; Send never blocks and reports a full queue as a drop.
type wsConn struct {
	conn *websocket.Conn
	send chan Envelope
	done chan struct{}
}

func newWSConn(conn *websocket.Conn, buffer int) *wsConn {
	if buffer <= 0 {
		buffer = 64
	}
	return &wsConn{
		conn: conn,
		send: make(chan Envelope, buffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(env Envelope) error {
	select {
	case c.send <- env:
		return nil
	case <-c.done:
		return errors.New("connection closed")
	default:
		return errSendQueueFull
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Server upgrades HTTP requests to websocket connections and bridges them
// into the hub.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	buffer   int
	log      *logging.Logger
}

func NewServer(hub *Hub, sendBuffer int, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients authenticate in-band after the upgrade, so the
			// HTTP origin check is not the trust boundary here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		buffer: sendBuffer,
		log:    log,
	}
}

// ServeHTTP handles GET /ws.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.log.WarnContext(r.Context(), "websocket upgrade failed", logging.Error(err))
		return
	}

	ws := newWSConn(conn, s.buffer)
	sessionID := s.hub.Register(ws)
	go ws.writePump()

	defer func() {
		s.hub.Unregister(sessionID)
		close(ws.done)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read error",
					logging.SessionID(sessionID), logging.Error(err))
			}
			return
		}
		s.hub.HandleMessage(r.Context(), sessionID, raw)
	}
}
