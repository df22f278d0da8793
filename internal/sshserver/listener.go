package sshserver

import (
	"github.com/gliderlabs/ssh"
	gossh "golang.org/x/crypto/ssh"

	"github.com/stlalpha/vision3bbs/internal/node"
)

// Listener wires a gliderlabs/ssh server to the node registry, so every
// accepted SSH session becomes one node (spec.md component H: "a
// protocol listener accepts a socket, asks B for a node slot, and
// spawns a handler that drives D"). Grounded on cmd/vision3's
// sshSessionHandler/startSSHServer pair, generalized from a BBS-
// specific connection tracker to the protocol-agnostic node registry.
type Listener struct {
	Registry *node.Registry
	Driver   *node.Driver
	Config   Config
}

// NewListener builds an SSH server whose session handler registers a
// node and runs the lifecycle driver, then starts the underlying
// server. cfg.SessionHandler is overwritten; every other field is
// passed through to sshserver.NewServer unchanged.
func NewListener(registry *node.Registry, driver *node.Driver, cfg Config) (*Server, error) {
	l := &Listener{Registry: registry, Driver: driver, Config: cfg}
	cfg.SessionHandler = l.handle
	if cfg.PasswordHandler == nil {
		// The BBS drives its own login flow post-connect (spec.md §4.4.1);
		// accept any SSH auth method up front, same as the teacher's
		// cmd/vision3/ssh_server.go.
		cfg.PasswordHandler = func(ctx ssh.Context, password string) bool { return true }
	}
	if cfg.KeyboardInteractiveHandler == nil {
		cfg.KeyboardInteractiveHandler = func(ctx ssh.Context, challenger gossh.KeyboardInteractiveChallenge) bool {
			return true
		}
	}
	return NewServer(cfg)
}

func (l *Listener) handle(sess ssh.Session) {
	wrapped := WrapSession(sess)

	n, err := l.Registry.Request(wrapped, "ssh", nil)
	if err != nil {
		_, _ = wrapped.Write([]byte("\r\nConnection rejected: " + err.Error() + "\r\n"))
		return
	}
	l.Driver.HandleConnection(n)
}
