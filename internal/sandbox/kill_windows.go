//go:build windows

package sandbox

import "os"

// Kill is a best-effort Process.Kill on Windows, which has no SIGINT/
// SIGTERM distinction to escalate through.
func (c *Child) Kill() error {
	proc, err := os.FindProcess(c.pid)
	if err != nil {
		return nil
	}
	return proc.Kill()
}
