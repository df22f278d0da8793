//go:build !windows

package node

import (
	"os"

	"golang.org/x/sys/unix"
)

// setLineDiscipline sets or clears ICANON|ECHO on the slave's termios.
// Grounded on golang.org/x/sys/unix, the same low-level syscall package
// the teacher's go.mod already carries indirectly via golang.org/x/term.
func setLineDiscipline(slave *os.File, canonical, echo bool) {
	fd := int(slave.Fd())
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return
	}
	if canonical {
		t.Lflag |= unix.ICANON
	} else {
		t.Lflag &^= unix.ICANON
	}
	if echo {
		t.Lflag |= unix.ECHO
	} else {
		t.Lflag &^= unix.ECHO
	}
	_ = unix.IoctlSetTermios(fd, ioctlSetTermios, t)
}
