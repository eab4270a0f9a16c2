// Package wstransport carries entity-synchronisation frames over a
// WebSocket connection. Frames are opaque binary blobs produced by
// the core protocol's serialisers — this package never looks inside
// them.
package wstransport

import (
	"bufio"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Conn is one upgraded WebSocket connection. Outbound frames are
// queued on Send and flushed by a dedicated write pump; inbound
// frames arrive on Receive.
type Conn struct {
	conn   net.Conn
	logger zerolog.Logger

	send    chan []byte
	receive chan []byte
	closed  chan struct{}
	once    sync.Once
}

// Upgrade promotes an HTTP request to a WebSocket connection and
// starts its read/write pumps. The caller owns the returned Conn and
// must call Close when done with it.
func Upgrade(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, sendBuffer int) (*Conn, error) {
	netConn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		conn:    netConn,
		logger:  logger,
		send:    make(chan []byte, sendBuffer),
		receive: make(chan []byte, sendBuffer),
		closed:  make(chan struct{}),
	}

	go c.writePump()
	go c.readPump()

	return c, nil
}

// Send queues a frame for delivery. While the send buffer is full it
// blocks until the write pump drains a slot or the connection closes.
// It reports false if the connection closed before the frame was
// queued.
func (c *Conn) Send(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	case <-c.closed:
		return false
	}
}

// Receive returns the channel of frames read from the peer. It is
// closed when the connection closes.
func (c *Conn) Receive() <-chan []byte { return c.receive }

// Closed returns a channel that is closed once the connection has
// torn down, for callers selecting alongside Send/Receive.
func (c *Conn) Closed() <-chan struct{} { return c.closed }

// Close tears down the connection and stops both pumps. Safe to call
// more than once.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

func (c *Conn) readPump() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic_value", r).Msg("wstransport read pump panic recovered")
		}
	}()
	defer close(c.receive)
	defer c.Close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		msg, op, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if op != ws.OpBinary {
			continue
		}

		select {
		case c.receive <- msg:
		case <-c.closed:
			return
		}
	}
}

func (c *Conn) writePump() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic_value", r).Msg("wstransport write pump panic recovered")
		}
	}()
	defer c.Close()

	writer := bufio.NewWriter(c.conn)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsutil.WriteServerMessage(writer, ws.OpBinary, frame); err != nil {
				return
			}

			n := len(c.send)
			for i := 0; i < n; i++ {
				frame = <-c.send
				if err := wsutil.WriteServerMessage(writer, ws.OpBinary, frame); err != nil {
					return
				}
			}
			if err := writer.Flush(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				return
			}

		case <-c.closed:
			return
		}
	}
}
