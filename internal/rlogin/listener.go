package rlogin

import (
	"net"

	"github.com/stlalpha/vision3bbs/internal/node"
)

// Listener accepts RLogin connections, performs the handshake, and
// registers each as a node — the same accept-one-connection shape as
// sshserver.Listener/telnetserver.Listener, generalized to a listener
// whose handshake happens before registration rather than during it.
type Listener struct {
	Registry *node.Registry
	Driver   *node.Driver
}

// Serve accepts connections on ln until it is closed or Accept errors.
func (l *Listener) Serve(ln *net.TCPListener) error {
	for {
		conn, err := ln.AcceptTCP()
		if err != nil {
			return err
		}
		go l.handle(conn)
	}
}

func (l *Listener) handle(conn *net.TCPConn) {
	hs, err := Negotiate(conn)
	if err != nil {
		conn.Close()
		return
	}

	wrapped := &sessionConn{TCPConn: conn, handshake: hs}

	n, err := l.Registry.Request(wrapped, "rlogin", nil)
	if err != nil {
		wrapped.Write([]byte("\r\nConnection rejected: " + err.Error() + "\r\n"))
		wrapped.Close()
		return
	}
	l.Driver.HandleConnection(n)
}

// sessionConn is a node.Conn that also exposes the negotiated
// handshake fields, so the auth backend can pre-fill the server
// username RFC 1282 clients supply (net_rlogin.c's "server-user-name"
// field — an unauthenticated hint, not itself a credential; the BBS
// still runs its own login flow per spec.md §4.4.1).
type sessionConn struct {
	*net.TCPConn
	handshake Handshake
}

func (s *sessionConn) Handshake() Handshake {
	return s.handshake
}
