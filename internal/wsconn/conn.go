// Package wsconn implements the per-connection message loop described in
// spec.md §4.1: upgrade, startup sequence, inbound dispatch table, and
// close handling. Grounded on the teacher's
// internal/handler/websocket_handler.go readPump/writePump pattern over
// gorilla/websocket.
package wsconn

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ryanwaits/openblocks-sub000/internal/presence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBufferSize = 256
)

// Conn adapts a gorilla/websocket connection to room.Connection, owning the
// read/write pumps and the presence user this socket speaks for.
type Conn struct {
	id   string
	ws   *websocket.Conn
	pres *presence.User

	send      chan []byte
	closeOnce sync.Once
}

func newConn(id string, ws *websocket.Conn, pres *presence.User) *Conn {
	return &Conn{
		id:   id,
		ws:   ws,
		pres: pres,
		send: make(chan []byte, sendBufferSize),
	}
}

// ID implements room.Connection.
func (c *Conn) ID() string { return c.id }

// Presence implements room.Connection.
func (c *Conn) Presence() *presence.User { return c.pres }

// Send implements room.Connection: marshals v and enqueues it on the write
// pump's channel, returning an error instead of blocking if the peer is
// not draining fast enough.
func (c *Conn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close implements room.Connection: closes the send channel exactly once,
// which causes writePump to send a close frame and return. Close can race
// between the connection's own teardown path and a sibling connection's
// broadcast goroutine calling it after a failed Send, so the guard must be
// atomic, not a checked-then-set bool.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump reads frames until the connection errors or closes, invoking
// onMessage for every well-formed `{"type": ...}` envelope. Malformed
// frames are silently dropped per spec.md §4.1.
func (c *Conn) readPump(onMessage func(raw json.RawMessage)) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("wsconn %s: read error: %v", c.id, err)
			}
			return
		}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil || probe.Type == "" {
			continue
		}
		onMessage(json.RawMessage(data))
	}
}

// writePump drains the send channel to the socket and pings on pingPeriod,
// returning when the channel is closed or a write fails.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.ws.Close()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var errSendBufferFull = sendBufferFullError{}

type sendBufferFullError struct{}

func (sendBufferFullError) Error() string { return "wsconn: send buffer full" }
