// Package node implements the node registry and PTY bridge (spec §4.2,
// §4.3): the session object every protocol listener drives, and the
// ordered, lockable collection that tracks them.
//
// Grounded on the teacher's internal/session package (BbsSession +
// SessionRegistry: a numeric id, an RWMutex-guarded collection sorted for
// iteration) generalized to the full attribute set spec.md §3 names, and
// on original_source/bbs/node.c for the exact allocation and shutdown
// semantics the teacher's version didn't need to reproduce.
package node

import (
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stlalpha/vision3bbs/internal/alert"
	"github.com/stlalpha/vision3bbs/internal/bbslog"
)

// Conn is the raw transport a listener adapter hands to node.Request. Read
// and write sides are split because some relays (spec.md §3: "possibly
// different when TLS is relayed") use distinct descriptors.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
	RemoteAddr() net.Addr
}

// ModulePin is the shared-ownership handle a node holds against its owning
// protocol module, preventing unload while the node is live (DESIGN NOTES
// "manual reference counts"). Listener adapters provide a concrete
// implementation; nil is valid for statically-linked protocols.
type ModulePin interface {
	Release()
}

// Identity is the minimal authenticated-user view the node cares about.
// The full user-account model (validation, access levels, message/file
// area bookkeeping) belongs to the application layer and lives outside
// this core; callers adapt their own user type to this view.
type Identity struct {
	ID     int
	Handle string
	Priv   int
}

// Vars is the ordered per-session key→string map spec.md §3 names
// (NODENUM/USERID/USERPRIV/USERNAME and friends). Ordering is preserved
// for deterministic debug dumps; lookups are still O(1).
type Vars struct {
	mu    sync.RWMutex
	order []string
	data  map[string]string
}

func newVars() *Vars {
	return &Vars{data: make(map[string]string)}
}

// Set assigns key=value, appending key to the order on first use.
func (v *Vars) Set(key, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.data[key]; !ok {
		v.order = append(v.order, key)
	}
	v.data[key] = value
}

// Get returns the value for key and whether it was set.
func (v *Vars) Get(key string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.data[key]
	return s, ok
}

// Each calls fn for every key in insertion order.
func (v *Vars) Each(fn func(key, value string)) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, k := range v.order {
		fn(k, v.data[k])
	}
}

// PTY is the master/slave pseudo-terminal pair a node owns once allocated
// by the lifecycle driver (spec.md §4.4), used to host sandboxed child
// process stdio (spec.md §4.5) uniformly across protocols.
type PTY struct {
	Master *os.File
	Slave  *os.File
}

// Node is one live client session (spec.md §3 "Node"). Fields are grouped
// to mirror the spec's attribute list; the two mutexes enforce the
// registry → node → pty acquisition order from spec.md §5.
type Node struct {
	ID       int
	Protocol string

	Conn Conn

	PTY  *PTY // nil until allocated
	Spy  *SpyPair

	mu   sync.Mutex // general node lock ("node" in the acquisition order)
	ptyMu sync.Mutex // pty-local mutation lock ("node.pty")

	user *Identity

	Cols, Rows int
	Echo       bool
	Buffered   bool
	ANSI       bool
	CP437      bool // client terminal expects CP437 rather than UTF-8 output (spec.md §2 component C)

	bps             uint
	charPauseMicros int64

	ChildPID int

	interrupt    atomic.Bool
	interruptAck atomic.Bool
	wake         *alert.Chan // per-node wake descriptor (DESIGN NOTES: replaces signal-based interrupt)

	MenuPath       string
	MenuStackDepth int

	Vars *Vars

	ClientIP   string
	RemotePort int

	Created time.Time

	lastActivity atomic.Int64 // unix nanos, touched on every successful read
	IdleKickMs   int64        // 0 disables idle eviction (config nodes.idlemins)

	SkipJoin bool
	active   atomic.Bool

	Module ModulePin

	translate *translateTable

	childCtrl ChildController
	onLogout  func(*Node)
	relayDone chan struct{} // closed by the PTY relay goroutine on exit

	handlerDone chan struct{} // closed when the handler goroutine returns
	isHandler   bool          // true if the caller IS the handler (defer free)

	log bbslog.Logger
}

// SetLogoutHook installs the callback shutdown invokes for an
// authenticated node (spec.md §4.2 "logs the user out if present"). The
// auth backend collaborator (spec.md §6) supplies this.
func (n *Node) SetLogoutHook(fn func(*Node)) {
	n.mu.Lock()
	n.onLogout = fn
	n.mu.Unlock()
}

// MarkHandler records that the calling goroutine is the node's own
// handler, so Unlink/shutdown skips joining it (spec.md §4.2: "unless the
// caller itself is the handler, in which case free is deferred to the
// handler").
func (n *Node) MarkHandler() { n.isHandler = true }

// HandlerDone returns the channel that closes when the handler goroutine
// finishes, for the registry to join on non-unique shutdowns.
func (n *Node) HandlerDone() <-chan struct{} { return n.handlerDone }

// FinishHandler closes the handler-done channel; call this exactly once,
// from the handler goroutine itself, on the way out.
func (n *Node) FinishHandler() { close(n.handlerDone) }

// SpyPair is the secondary read/write pair an observer (sysop "spy"
// command) attaches to, forwarding the node's PTY output.
type SpyPair struct {
	Reader io.Reader
	Writer io.Writer
}

func newNode(id int, protname string, conn Conn, mod ModulePin, log bbslog.Logger) *Node {
	n := &Node{
		ID:          id,
		Protocol:    protname,
		Conn:        conn,
		Echo:        true,
		Buffered:    true,
		ANSI:        true,
		Created:     time.Now(),
		Vars:        newVars(),
		Module:      mod,
		translate:   newTranslateTable(),
		wake:        alert.New(),
		handlerDone: make(chan struct{}),
		log:         log,
	}
	n.active.Store(true)
	n.lastActivity.Store(time.Now().UnixNano())
	if a, ok := conn.(interface{ RemoteAddr() net.Addr }); ok {
		if addr := a.RemoteAddr(); addr != nil {
			if tcp, ok := addr.(*net.TCPAddr); ok {
				n.ClientIP = tcp.IP.String()
				n.RemotePort = tcp.Port
			} else {
				n.ClientIP = addr.String()
			}
		}
	}
	return n
}

// Active reports whether the node is reachable from the registry by id
// (spec.md §3 invariant).
func (n *Node) Active() bool { return n.active.Load() }

// Touch resets the idle clock; the PTY relay calls this on every
// successful read, mirroring node.c's splash/authenticate loop resetting
// its idle timer on every successful read.
func (n *Node) Touch() {
	n.lastActivity.Store(time.Now().UnixNano())
}

// Idle reports how long it has been since the last successful read.
func (n *Node) Idle() time.Duration {
	return time.Since(time.Unix(0, n.lastActivity.Load()))
}

// User returns the authenticated identity, or nil if not yet authenticated.
func (n *Node) User() *Identity {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.user
}

// Authenticate atomically sets the node's user — the only path by which
// n.user becomes non-nil (spec.md §3 invariant: "user is set only through
// an atomic authenticate step").
func (n *Node) Authenticate(id Identity) {
	n.mu.Lock()
	n.user = &id
	n.mu.Unlock()
}

// Lock/Unlock expose the node's general mutex to callers that must
// compose it with the registry or pty locks in the documented order.
func (n *Node) Lock()   { n.mu.Lock() }
func (n *Node) Unlock() { n.mu.Unlock() }

// LockPTY/UnlockPTY expose the pty-local mutation lock (spec.md §4.2).
func (n *Node) LockPTY()   { n.ptyMu.Lock() }
func (n *Node) UnlockPTY() { n.ptyMu.Unlock() }

// Wake returns the node's alert channel so a poll loop can select on it
// alongside socket readiness (DESIGN NOTES wake-descriptor redesign).
func (n *Node) Wake() *alert.Chan { return n.wake }
