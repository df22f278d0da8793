//go:build !windows

package node

import "golang.org/x/sys/unix"

// signalChildWinch forwards SIGWINCH to a child process (spec.md §4.3:
// "if a child process is present, additionally signal it with SIGWINCH").
//
// Open question (spec.md §9): children have been observed to receive
// SIGWINCH twice for one resize. This implementation does not try to
// suppress the duplicate — the window-size update path is idempotent
// (re-applying identical cols/rows is harmless), so a spurious extra
// signal costs nothing beyond a wasted wakeup in the child.
func signalChildWinch(pid int) error {
	if pid <= 0 {
		return nil
	}
	return unix.Kill(pid, unix.SIGWINCH)
}
