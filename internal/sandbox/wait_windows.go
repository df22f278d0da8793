//go:build windows

package sandbox

import "os"

// waitProcess has no stop/continue concept on Windows; a child either
// runs or has exited.
func waitProcess(pid int) (Result, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return Result{}, err
	}
	state, err := proc.Wait()
	if err != nil {
		return Result{}, err
	}
	return Result{ExitStatus: state.ExitCode()}, nil
}
