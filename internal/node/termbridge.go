package node

import (
	"io"
	"math"
	"os"
	"time"

	"github.com/creack/pty"

	"github.com/stlalpha/vision3bbs/internal/terminalio"
)

// translateTable is the input-translation facility from spec.md §4.3:
// up to K ordered (in, out) byte substitution pairs, first match wins.
// Grounded on the teacher's terminalio package's byte-oriented writer
// idiom, generalized to the read side.
type translateTable struct {
	in  []byte
	out []byte
}

func newTranslateTable() *translateTable {
	return &translateTable{}
}

// Register adds a substitution. Duplicate `in` bytes are rejected, per
// spec.md §4.3.
func (t *translateTable) Register(in, out byte) bool {
	for _, existing := range t.in {
		if existing == in {
			return false
		}
	}
	t.in = append(t.in, in)
	t.out = append(t.out, out)
	return true
}

// Unregister removes a substitution for `in`, if present.
func (t *translateTable) Unregister(in byte) bool {
	for i, existing := range t.in {
		if existing == in {
			t.in = append(t.in[:i], t.in[i+1:]...)
			t.out = append(t.out[:i], t.out[i+1:]...)
			return true
		}
	}
	return false
}

func (t *translateTable) translate(c byte) byte {
	for i, in := range t.in {
		if in == c {
			return t.out[i]
		}
	}
	return c
}

// InputReplace registers a translation pair on the node, serialized by the
// pty lock (spec.md §4.2 "pty lock exists to serialize PTY-affecting
// mutations ... input-replace table").
func (n *Node) InputReplace(in, out byte) bool {
	n.LockPTY()
	defer n.UnlockPTY()
	return n.translate.Register(in, out)
}

// InputUnreplace removes a previously registered translation pair.
func (n *Node) InputUnreplace(in byte) bool {
	n.LockPTY()
	defer n.UnlockPTY()
	return n.translate.Unregister(in)
}

// Translate applies the node's input-translation table to a single byte.
func (n *Node) Translate(c byte) byte {
	n.LockPTY()
	defer n.UnlockPTY()
	return n.translate.translate(c)
}

// AllocatePTY opens a master/slave pseudo-terminal pair sized cols×rows
// and attaches it to the node (spec.md §4.4: "allocate a PTY pair" on
// handler entry). Grounded on the teacher's door_handler.go use of
// github.com/creack/pty for door-process stdio.
func (n *Node) AllocatePTY(cols, rows int) error {
	master, slave, err := pty.Open()
	if err != nil {
		return err
	}
	_ = pty.Setsize(master, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})

	n.mu.Lock()
	n.PTY = &PTY{Master: master, Slave: slave}
	n.Cols, n.Rows = cols, rows
	n.mu.Unlock()
	return nil
}

// restoreTerminal puts the slave back into "line-buffered + echo on"
// canonical mode, per spec.md §4.2 shutdown: "restores the terminal
// (line-buffered + echo on) ... if a PTY is still attached".
func restoreTerminal(n *Node) {
	if n.PTY == nil {
		return
	}
	n.Echo = true
	n.Buffered = true
	applyLineDiscipline(n.PTY.Slave, true, true)
}

// UpdateWindowSize implements spec.md §4.3 "Window-size update": store the
// new geometry, propagate it to the PTY master, forward SIGWINCH to any
// attached child (the ioctl alone isn't reliably observed by all
// kernels/programs), and — if no child is running and a menu loop is
// blocked reading the master — inject a synthetic "menu refresh" byte so
// the blocked read wakes and redraws (spec.md §8 scenario S6).
func (n *Node) UpdateWindowSize(cols, rows int) error {
	n.mu.Lock()
	shrankForMenu := n.childCtrl == nil && n.MenuPath != "" && (cols < n.Cols || rows < n.Rows)
	n.Cols, n.Rows = cols, rows
	pair := n.PTY
	child := n.childCtrl
	n.mu.Unlock()

	if pair == nil {
		return nil
	}

	n.LockPTY()
	err := pty.Setsize(pair.Master, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	n.UnlockPTY()
	if err != nil {
		return err
	}

	if child != nil {
		_ = signalChildWinch(child.PID())
	} else if shrankForMenu {
		_, _ = pair.Master.Write([]byte{menuRefreshByte})
	}
	return nil
}

// menuRefreshByte is the single-byte control injected into the PTY master
// to wake a menu loop blocked in a read after a resize (spec.md §4.3).
const menuRefreshByte = 0x00

// SetSpeed computes characters-per-second as ceil(bps/8) and the
// per-character microsecond pause as 1e6/cps (spec.md §4.3 "Speed
// emulation"). bps=0 disables throttling.
func (n *Node) SetSpeed(bps uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bps = bps
	if bps == 0 {
		n.charPauseMicros = 0
		return
	}
	cps := math.Ceil(float64(bps) / 8.0)
	n.charPauseMicros = int64(1e6 / cps)
}

// CharPause returns the current per-character emulated pause.
func (n *Node) CharPause() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return time.Duration(n.charPauseMicros) * time.Microsecond
}

// StartRelay copies bytes between the node's raw connection and its PTY
// master, pacing writes to the client by CharPause when a speed limit is
// set, and exits as soon as either side closes or the node is shut down
// (shutdown closes the PTY slave first, which makes the relay's read of
// the master fail). Grounded on door_handler.go's dual io.Copy goroutine pattern.
func (n *Node) StartRelay() {
	if n.PTY == nil {
		return
	}
	done := make(chan struct{})
	n.relayDone = done

	inputDone := make(chan struct{})
	go func() {
		defer close(inputDone)
		_, _ = io.Copy(n.PTY.Master, &translatingReader{n: n, r: n.Conn})
	}()

	// Outbound bytes from the PTY master are UTF-8 (the node's internal
	// representation, spec.md §2 component C); a CP437 terminal gets
	// them transcoded through golang.org/x/text/encoding/charmap, ANSI
	// escape sequences passed through untouched.
	var out io.Writer = n.Conn
	if n.CP437 {
		out = terminalio.NewSelectiveCP437Writer(n.Conn)
	}

	go func() {
		defer close(done)
		buf := make([]byte, 1)
		for {
			nRead, err := n.PTY.Master.Read(buf)
			if nRead > 0 {
				if _, werr := out.Write(buf[:nRead]); werr != nil {
					return
				}
				if pause := n.CharPause(); pause > 0 {
					time.Sleep(pause)
				}
			}
			if err != nil {
				return
			}
		}
	}()
}

type translatingReader struct {
	n *Node
	r io.Reader
}

func (t *translatingReader) Read(p []byte) (int, error) {
	nRead, err := t.r.Read(p)
	if nRead > 0 {
		t.n.Touch()
	}
	for i := 0; i < nRead; i++ {
		p[i] = t.n.Translate(p[i])
	}
	return nRead, err
}

// applyLineDiscipline is the portable seam for setting canonical mode +
// echo on the PTY slave. The real termios manipulation is platform
// specific; Windows builds no-op, matching the teacher's own
// //go:build split between door_handler.go and door_handler_windows.go.
var applyLineDiscipline = func(slave *os.File, canonical, echo bool) {
	setLineDiscipline(slave, canonical, echo)
}
