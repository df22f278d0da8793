package sandbox

import (
	"time"

	"github.com/stlalpha/vision3bbs/internal/bbslog"
)

// killBackoff and killAttempts describe the escalating schedule spec.md
// §4.5 names: "INT, wait up to ~25 short backoffs; then TERM, wait; then
// KILL." Grounded on the same escalate-then-force shape
// original_source/bbs/system.c's waitpidexit/kill handling implies via
// its SIGCONT-on-stop loop, generalized to three signal stages.
const (
	killAttempts = 25
	killBackoff  = 20 * time.Millisecond
)

// Child is a live, killable sandboxed process, implementing
// internal/node's ChildController so a node can attach/detach it and the
// interrupt protocol (spec.md §4.3) can reach it without the node package
// importing the sandbox package.
type Child struct {
	pid int
	log bbslog.Logger
}

// NewChild wraps a running child's PID for escalating-kill control.
func NewChild(pid int, log bbslog.Logger) *Child {
	return &Child{pid: pid, log: log}
}

// PID implements node.ChildController.
func (c *Child) PID() int { return c.pid }
