package node

import "time"

// shortSessionThreshold is the cutoff below which a non-authenticated
// disconnect is reported as a "short session" abuse-monitoring event
// (spec.md §3 Node "Lifecycle", glossary "Short session").
const shortSessionThreshold = 5 * time.Second

// ChildController is the escalating kill protocol a sandboxed child
// process exposes back to its owning node (spec.md §4.5 "Child kill
// protocol"). The sandbox package implements this; node only depends on
// the interface to avoid a import cycle.
type ChildController interface {
	PID() int
	Kill() error
}

// EventSink receives abuse-monitoring / lifecycle events the registry
// can't usefully log as plain text (spec.md §3 "Short session", §7).
type EventSink interface {
	ShortSession(nodeID int, protocol, clientIP string, dur time.Duration)
}

type noopEvents struct{}

func (noopEvents) ShortSession(int, string, string, time.Duration) {}

var events EventSink = noopEvents{}

// SetEventSink installs the process-wide event sink. Call once at server
// construction.
func SetEventSink(s EventSink) {
	if s == nil {
		s = noopEvents{}
	}
	events = s
}

// AttachChild records a running child process against the node so
// shutdown can kill it, and sets the node's child pid field to its PID
// (spec.md §3 Node.child_pid).
func (n *Node) AttachChild(ctrl ChildController) {
	n.mu.Lock()
	n.childCtrl = ctrl
	n.ChildPID = ctrl.PID()
	n.mu.Unlock()
}

// DetachChild clears the child controller once the process has exited.
func (n *Node) DetachChild() {
	n.mu.Lock()
	n.childCtrl = nil
	n.ChildPID = 0
	n.mu.Unlock()
}

// shutdown is idempotent (spec.md property #3): the second call on an
// already-inactive node is a no-op. unique selects whether the caller
// should join the handler goroutine itself (true) or defer to the
// registry having already removed the node (false).
func shutdown(n *Node, unique bool) {
	n.mu.Lock()
	if !n.active.Load() {
		n.mu.Unlock()
		return
	}
	n.active.Store(false)
	childCtrl := n.childCtrl
	authenticated := n.user != nil
	created := n.Created
	clientIP := n.ClientIP
	protocol := n.Protocol
	pty := n.PTY
	spy := n.Spy
	n.mu.Unlock()

	if childCtrl != nil {
		_ = childCtrl.Kill()
	}

	// "Logs the user out if present" — the node itself has no account
	// store; this is a hook the lifecycle driver installs so the auth
	// backend collaborator (spec.md §6) can record the logout.
	if authenticated && n.onLogout != nil {
		n.onLogout(n)
	}

	if pty != nil {
		restoreTerminal(n)
		_, _ = pty.Master.Write([]byte("\x1b[0m"))
	}

	// Wake the handler's own blocked reads, then close the PTY slave: the
	// relay goroutine's read of the master fails once the slave is gone,
	// so the relay exits and can be joined.
	n.wake.Ping()
	if pty != nil {
		_ = pty.Slave.Close()
	}

	if n.relayDone != nil {
		<-n.relayDone
	}

	if spy != nil {
		if c, ok := spy.Writer.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
	if pty != nil {
		_ = pty.Master.Close()
	}
	_ = n.Conn.Close()

	if !authenticated && time.Since(created) < shortSessionThreshold {
		events.ShortSession(n.ID, protocol, clientIP, time.Since(created))
	}

	if unique {
		if !n.SkipJoin && !n.isHandler {
			<-n.handlerDone
		}
	}
}

// free releases the module pin and discards the node's remaining state.
// Separated from shutdown so a thread can tear down its own session
// without joining itself (spec.md §4.2).
func free(n *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Module != nil {
		n.Module.Release()
		n.Module = nil
	}
	n.Vars = nil
	n.ClientIP = ""
}
