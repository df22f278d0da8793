package bbs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/stlalpha/vision3bbs/internal/ircd"
	"github.com/stlalpha/vision3bbs/internal/node"
	"github.com/stlalpha/vision3bbs/internal/sandbox"
	"github.com/stlalpha/vision3bbs/internal/sftpd"
)

const rateLimitWindow = 5 * time.Minute

// Run is a node.MenuRunner. The core explicitly leaves menu semantics
// to the application layer (spec.md §1 Non-goals: "does not define
// higher-level application semantics of menus"); this is the minimal
// concrete dispatcher a real binary needs to reach the three
// applications spec.md §4's dataflow line names a node can be
// delegated to: "IRC handler F, SFTP handler G, or sandboxed program
// E." A fuller menu system would replace this, not the lifecycle driver
// it plugs into.
func (s *Server) Run(n *node.Node, term *node.Terminal, id node.Identity) {
	for {
		if err := term.WriteString(fmt.Sprintf("\r\n%s — [I]RC, [F]ile transfer, [S]hell, [Q]uit: ", id.Handle)); err != nil {
			return
		}
		line, err := term.ReadLine()
		if err != nil {
			return
		}
		switch strings.ToUpper(strings.TrimSpace(line)) {
		case "I":
			s.runIRC(n, term, id)
		case "F":
			s.runSFTP(n, term, id)
		case "S":
			s.runShell(n, term, id)
		case "Q", "":
			return
		default:
			_ = term.WriteString("Unrecognized choice.\r\n")
		}
	}
}

// runIRC hands the node's PTY slave to the IRC engine as a raw byte
// stream, disabling canonical/echo mode first since IRC frames its own
// CRLF-terminated protocol lines rather than relying on kernel line
// editing (spec.md §4.6).
func (s *Server) runIRC(n *node.Node, term *node.Terminal, id node.Identity) {
	term.SetRaw(true)
	defer term.SetRaw(false)

	sess := ircd.NewSession(s.Engine, s.Ping, saslAdapter{auth: s.Auth, node: n}, term.Conn(), n.ID, n.ClientIP, false)
	sess.Run()
}

// runSFTP hands the node's PTY slave to the SFTP request loop, against
// the same transfer root and capability oracle every FTP/SFTP session
// shares (spec.md §4.7).
func (s *Server) runSFTP(n *node.Node, term *node.Terminal, id node.Identity) {
	term.SetRaw(true)
	defer term.SetRaw(false)

	if err := sftpd.Serve(rwc{term.Conn(), n}, s.TransferRoot, s.TransferCaps, s.Log); err != nil {
		s.Log.Warn("sftp session for node %d ended: %v", n.ID, err)
	}
}

// runShell execs a login shell in the node's own sandbox, attached to
// the node's PTY (spec.md §4.5, component E) — the session's "sandboxed
// program" destination.
func (s *Server) runShell(n *node.Node, term *node.Terminal, id node.Identity) {
	cfg := s.Config()
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	req := sandbox.Request{
		Filename: shell,
		Argv:     []string{shell},
		Envp:     []string{"TERM=ansi", "USER=" + id.Handle},
		UseNode:  true,
		SlaveFD:  n.PTY.Slave,
		Isolated: false,
		Limits: sandbox.Limits{
			MaxMemoryMiB: cfg.Container.MaxMemoryMB,
			MaxCPUSec:    cfg.Container.MaxCPUSecs,
			MinNice:      cfg.Container.MinNice,
		},
	}
	if _, err := sandbox.Exec(req); err != nil {
		s.Log.Warn("shell exec for node %d failed: %v", n.ID, err)
	}
}

// rwc adapts an io.ReadWriter plus the node's own Close to the
// io.ReadWriteCloser sftpd.Serve requires.
type rwc struct {
	rw interface {
		Read([]byte) (int, error)
		Write([]byte) (int, error)
	}
	n *node.Node
}

func (c rwc) Read(p []byte) (int, error)  { return c.rw.Read(p) }
func (c rwc) Write(p []byte) (int, error) { return c.rw.Write(p) }
func (c rwc) Close() error                { return nil } // node lifecycle owns the PTY's real close

// saslAdapter satisfies ircd.SASLAuthenticator against sshauth.Backend's
// node.AuthBackend shape.
type saslAdapter struct {
	auth interface {
		Authenticate(n *node.Node, username, password string, guest bool) (node.Identity, error)
	}
	node *node.Node
}

func (a saslAdapter) AuthenticateSASL(authzid, authcid, password string) (userID int, ok bool) {
	if authzid != "" && authzid != authcid {
		return 0, false
	}
	id, err := a.auth.Authenticate(a.node, authcid, password, false)
	if err != nil {
		return 0, false
	}
	return id.ID, true
}
