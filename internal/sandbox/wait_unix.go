//go:build !windows

package sandbox

import "syscall"

// waitProcess reproduces original_source/bbs/system.c's waitpidexit: loop
// on wait4 with WUNTRACED, resuming a stopped child with SIGCONT, until
// the child exits or dies by signal (spec.md: "resumes on WIFSTOPPED via
// SIGCONT").
func waitProcess(pid int) (Result, error) {
	var status syscall.WaitStatus
	for {
		_, err := syscall.Wait4(pid, &status, syscall.WUNTRACED, nil)
		if err != nil {
			return Result{}, err
		}
		switch {
		case status.Exited():
			return Result{ExitStatus: status.ExitStatus()}, nil
		case status.Signaled():
			return Result{Signaled: true, Signal: status.Signal()}, nil
		case status.Stopped():
			_ = syscall.Kill(pid, syscall.SIGCONT)
		}
	}
}
