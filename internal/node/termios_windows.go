//go:build windows

package node

import "os"

// setLineDiscipline is a no-op on Windows: there is no termios layer to
// manipulate on a creack/pty-backed slave there. Matches the teacher's
// own door_handler_windows.go split for the same reason.
func setLineDiscipline(slave *os.File, canonical, echo bool) {}
