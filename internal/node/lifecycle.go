// Lifecycle driver (spec.md §4.4, component D). Grounded on the
// teacher's internal/session/handler.go SessionHandler.HandleConnection
// phase structure (initializeTerminal → configureEnvironment →
// handleAuthentication → runMainSession), generalized from an
// SSH-specific session object to the protocol-agnostic Node.
package node

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// AuthBackend is the external collaborator spec.md §6 describes:
// "authenticate(node, user?, password?) → ok | fail. Null user/password
// means guest." AuthenticateSASL backs IRC SASL PLAIN (spec.md §4.6).
type AuthBackend interface {
	Authenticate(n *Node, username string, password string, guest bool) (Identity, error)
	AuthenticateSASL(n *Node, mechanism string, blob []byte) (Identity, error)
}

// Registrar handles the "new" reserved username (spec.md §4.4.1): it may
// succeed, be declined, or abort.
type Registrar interface {
	Register(n *Node, term *Terminal) (Identity, declined bool, err error)
}

// GuestPolicy controls whether guest login is permitted and whether
// guest info (name/email/location) is collected, per spec.md §6
// "guests" config section.
type GuestPolicy struct {
	Allow    bool
	AskInfo  bool
}

// MenuRunner drives the application layer (menus, IRC, SFTP, a
// sandboxed program) once authentication succeeds. It returns when the
// user quits. The core does not define menu semantics (spec.md §1
// Non-goals); this is purely the hand-off point.
type MenuRunner func(n *Node, term *Terminal, id Identity)

// Driver orchestrates the node lifecycle from handler entry to exit
// (spec.md §4.4).
type Driver struct {
	Registry   *Registry
	Auth       AuthBackend
	Registrar  Registrar
	Guests     GuestPolicy
	DefaultBPS uint
	IdleKickMs int64 // 0 disables idle eviction (config nodes.idlemins)
	Banner     string
	Splash     string
	Goodbye    string
	Run        MenuRunner
}

// Terminal is the thin read/write/prompt surface the lifecycle driver and
// application layer use, backed by the node's PTY slave (which is kept in
// canonical + echo mode so line editing is handled by the kernel tty
// layer exactly as original_source/bbs/node.c relies on).
type Terminal struct {
	node   *Node
	reader *bufio.Reader
}

func newTerminal(n *Node) *Terminal {
	return &Terminal{node: n, reader: bufio.NewReader(n.PTY.Slave)}
}

// WriteString writes raw bytes to the slave (and so, via the relay
// goroutine, to the client).
func (t *Terminal) WriteString(s string) error {
	_, err := t.node.PTY.Slave.Write([]byte(s))
	return err
}

// ReadLine reads one line of input, stripping the trailing newline.
func (t *Terminal) ReadLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

// SetEcho toggles local echo on the slave (used around password prompts).
func (t *Terminal) SetEcho(on bool) {
	t.node.mu.Lock()
	t.node.Echo = on
	t.node.mu.Unlock()
	applyLineDiscipline(t.node.PTY.Slave, true, on)
}

// SetRaw switches the slave out of (raw=true) or back into (raw=false)
// canonical line-edited mode. The menu runner calls this before handing
// the session to a non-terminal protocol (IRC, SFTP) that frames its own
// messages instead of relying on kernel line editing, and restores
// canonical mode if control ever returns to it.
func (t *Terminal) SetRaw(raw bool) {
	canonical := !raw
	t.node.mu.Lock()
	t.node.Echo = canonical
	t.node.mu.Unlock()
	applyLineDiscipline(t.node.PTY.Slave, canonical, canonical)
}

// Conn exposes the node's PTY slave as a plain io.ReadWriter, for
// application-layer protocol handlers (IRC, SFTP) that want to drive
// the session's byte stream directly instead of through ReadLine.
func (t *Terminal) Conn() io.ReadWriter {
	return t.node.PTY.Slave
}

// HandleConnection runs the full node lifecycle: PTY allocation, banner,
// authentication, the application menu runner, and goodbye — then
// unlinks (normal quit) or frees (already unlinked by a global shutdown)
// the node, exactly as spec.md §4.4 describes.
func (d *Driver) HandleConnection(n *Node) {
	n.MarkHandler()
	defer n.FinishHandler()

	// Read the geometry under the node lock. AllocatePTY opens the pair
	// unlocked and attaches it under the same lock, so a concurrent
	// shutdown sees either no PTY or a complete one.
	n.Lock()
	cols, rows := n.Cols, n.Rows
	if cols == 0 {
		cols = 80
	}
	if rows == 0 {
		rows = 24
	}
	n.Unlock()

	if err := n.AllocatePTY(cols, rows); err != nil {
		n.log.Error("node %d: pty allocation failed: %v", n.ID, err)
		d.Registry.Unlink(n)
		return
	}

	if d.DefaultBPS > 0 {
		n.SetSpeed(d.DefaultBPS)
	}
	n.IdleKickMs = d.IdleKickMs
	applyLineDiscipline(n.PTY.Slave, true, true)

	n.StartRelay()
	term := newTerminal(n)

	if d.Banner != "" {
		_ = term.WriteString(d.Banner)
	}

	id, ok := d.authenticate(n, term)
	if !ok {
		_ = term.WriteString(d.Goodbye)
		d.exit(n)
		return
	}

	n.Authenticate(id)
	n.Vars.Set("NODENUM", fmt.Sprintf("%d", n.ID))
	n.Vars.Set("USERID", fmt.Sprintf("%d", id.ID))
	n.Vars.Set("USERPRIV", fmt.Sprintf("%d", id.Priv))
	n.Vars.Set("USERNAME", id.Handle)

	if d.Splash != "" {
		_ = term.WriteString(d.Splash)
	}

	if d.Run != nil {
		d.Run(n, term, id)
	}

	_ = term.WriteString(d.Goodbye)
	d.exit(n)
}

// exit chooses Unlink (still linked — normal quit) or Free (already
// unlinked by a global shutdown) per spec.md §4.4.
func (d *Driver) exit(n *Node) {
	if n.Active() {
		d.Registry.Unlink(n)
	} else {
		free(n)
	}
}
