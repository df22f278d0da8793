//go:build !windows

package sandbox

import "syscall"

// directSysProcAttr requests a new session and controlling terminal when
// the child is attached to a node's PTY slave, matching
// original_source/bbs/system.c's set_controlling_term (setsid + TIOCSCTTY
// + tcsetpgrp), expressed through the stdlib's own Setsid/Setctty/Ctty
// fields instead of a manual ioctl dance.
func directSysProcAttr(req Request) *syscall.SysProcAttr {
	if !req.UseNode || req.SlaveFD == nil {
		return &syscall.SysProcAttr{}
	}
	return &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in the child, since Stdin is the slave
	}
}
