//go:build windows

package sandbox

import "syscall"

// directSysProcAttr is a no-op on Windows: there is no controlling-
// terminal/session concept to set up the way setsid+TIOCSCTTY do on
// Unix. Matches the teacher's own _windows.go split for door execution.
func directSysProcAttr(req Request) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}
