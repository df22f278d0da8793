// Package wsnode fronts the node registry with a WebSocket listener
// (spec.md component H external protocol listeners), so a browser
// terminal emulator can drive a node the same way an SSH or telnet
// client does. Grounded on sandia-minimega-minimega's phenix
// web/broker/client.go, the only example in the pack driving
// gorilla/websocket's Upgrader/Conn pair; that package is a JSON
// pub/sub broker, not a byte stream, so byteConn below only borrows its
// ping/pong liveness shape and re-purposes the message stream as a raw
// io.Reader/io.Writer the way the node registry's Conn contract needs.
package wsnode

import (
	"bytes"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// byteConn adapts a *websocket.Conn's message framing to a plain byte
// stream: every inbound binary message is buffered and drained by
// Read, every Write call goes out as its own binary message. This is
// the same "browser terminal" shape termbrowser's terminal.go uses a
// WebSocket for, generalized to satisfy node.Conn directly instead of
// a bespoke terminal bridge.
type byteConn struct {
	conn   *websocket.Conn
	remote net.Addr
	buf    bytes.Buffer
	done   chan struct{}
}

// Wrap upgrades ws into a node.Conn-compatible stream and starts its
// ping ticker.
func Wrap(conn *websocket.Conn) *byteConn {
	c := &byteConn{conn: conn, remote: conn.RemoteAddr(), done: make(chan struct{})}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go c.pinger()
	return c
}

func (c *byteConn) pinger() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *byteConn) Read(p []byte) (int, error) {
	for c.buf.Len() == 0 {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		c.buf.Write(msg)
	}
	return c.buf.Read(p)
}

func (c *byteConn) Write(p []byte) (int, error) {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *byteConn) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
	return c.conn.Close()
}

func (c *byteConn) RemoteAddr() net.Addr {
	return c.remote
}
