package wsnode

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/stlalpha/vision3bbs/internal/node"
)

// Listener upgrades HTTP connections to WebSocket and registers each
// one as a node, mirroring sshserver.Listener/telnetserver.Listener.
type Listener struct {
	Registry *node.Registry
	Driver   *node.Driver
	upgrader websocket.Upgrader

	// Session configures lookups against a companion PHP web front
	// end's session files (SessionString/SessionNumber). The zero value
	// disables it.
	Session SessionConfig
}

// NewListener builds a Listener. allowedOrigin, if non-empty, is the
// sole Origin header value accepted; an empty value allows any origin,
// matching the permissive CheckOrigin phenix's ServeWS uses for its
// own trusted-network deployment model.
func NewListener(registry *node.Registry, driver *node.Driver, allowedOrigin string) *Listener {
	l := &Listener{Registry: registry, Driver: driver}
	l.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
	return l
}

// ServeHTTP implements http.Handler; mount it at the terminal endpoint
// (e.g. "/ws") of whatever http.Server the caller runs.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	wrapped := Wrap(conn)

	n, err := l.Registry.Request(wrapped, "websocket", nil)
	if err != nil {
		wrapped.Write([]byte("\r\nConnection rejected: " + err.Error() + "\r\n"))
		wrapped.Close()
		return
	}
	l.Driver.HandleConnection(n)
}
