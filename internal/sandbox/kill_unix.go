//go:build !windows

package sandbox

import (
	"fmt"
	"syscall"
	"time"
)

// Kill implements node.ChildController: INT, wait; TERM, wait; KILL.
// Escalation stops as soon as the process is gone (ESRCH). Failure past
// KILL is reported as an error (spec.md: "failure past KILL is an
// error").
func (c *Child) Kill() error {
	stages := []syscall.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGKILL}
	for _, sig := range stages {
		if c.log != nil {
			c.log.Info("sandbox: sending %v to pid %d", sig, c.pid)
		}
		if err := syscall.Kill(c.pid, sig); err != nil {
			if err == syscall.ESRCH {
				return nil
			}
			continue
		}
		for i := 0; i < killAttempts; i++ {
			if !processAlive(c.pid) {
				return nil
			}
			time.Sleep(killBackoff)
		}
	}
	if processAlive(c.pid) {
		err := fmt.Errorf("sandbox: pid %d survived SIGKILL", c.pid)
		if c.log != nil {
			c.log.Error(err.Error())
		}
		return err
	}
	return nil
}

// processAlive reports whether pid still exists, using signal 0 per the
// standard kill(2) idiom.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, syscall.Signal(0))
	return err == nil
}
