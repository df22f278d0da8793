// Package sandbox implements the process sandbox (spec.md §4.5, component
// E): launching a node's child process either directly or inside a
// throwaway Linux container, with the same FD hygiene, exit-status
// handling, and escalating kill protocol regardless of path.
//
// Grounded on original_source/bbs/system.c's __bbs_execvpe_fd (FD
// cleanup, exec, waitpidexit, isolation setup) and on
// sandia-minimega-minimega's src/minimega/container.go, which solves the
// same "Go can't continue arbitrary code after clone like fork(2) lets C
// do" problem with a self re-exec shim — cmd.Path is set back to the
// running binary, and the freshly cloned process's first job (in a new
// PID/mount/UTS/IPC/net/user namespace) is to finish setup before execing
// the real target. We reuse that shim shape instead of inventing one.
package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"syscall"
)

// Request describes one exec() call (spec.md §4.5: "exec(node?, use_node,
// in_fd, out_fd, filename, argv, envp, isolated) → exit_status").
type Request struct {
	Filename string
	Argv     []string
	Envp     []string

	// InFD/OutFD back the child's stdio when UseNode is false. When
	// UseNode is true, both are ignored in favor of the node's PTY slave.
	InFD, OutFD *os.File

	UseNode  bool
	SlaveFD  *os.File // node's PTY slave, required when UseNode is true
	Isolated bool

	Limits Limits

	// Container-only fields (spec.md §4.5 "Isolated path").
	TemplateDir string
	RunDir      string
	Hostname    string
	HomeDir     string // host path to bind-mount at /home/<Username>, empty if none
	Username    string
}

// Limits mirrors the C implementation's "container.conf" knobs (spec.md
// §6 sandbox config: "maxmemory (MiB), maxcpu (seconds), minnice").
type Limits struct {
	MaxMemoryMiB int
	MaxCPUSec    int
	MinNice      int
}

// Result reports the exit status and the killed-for-cleanup state per
// spec.md: "Exit-status handling honors WIFEXITED, WIFSIGNALED, and
// resumes on WIFSTOPPED via SIGCONT."
type Result struct {
	ExitStatus int
	Signaled   bool
	Signal     syscall.Signal
}

// reservedFDs is the set of file descriptors exec_pre/cleanup_fds must
// never close: those dup'd onto stdio, plus (isolated only) the
// coordination pipe's read end. Sorted ascending so the caller can close
// in contiguous ranges (spec.md: "Exempted descriptors are sorted so
// closing is done in at most four contiguous ranges").
func reservedFDs(fds ...int) []int {
	set := map[int]bool{}
	for _, fd := range fds {
		if fd >= 0 {
			set[fd] = true
		}
	}
	out := make([]int, 0, len(set))
	for fd := range set {
		out = append(out, fd)
	}
	sort.Ints(out)
	return out
}

// closeRanges computes the up-to-four contiguous [lo,hi] ranges to close
// given up to three exempted descriptors and an overall [min,max] fd
// span (spec.md FD hygiene). It does not perform the closes itself;
// closeFDRanges does. Exempted descriptors below min are ignored.
func closeRanges(min, max int, exempt []int) [][2]int {
	var ranges [][2]int
	lo := min
	for _, fd := range exempt {
		if fd < lo {
			continue
		}
		if fd-1 >= lo {
			ranges = append(ranges, [2]int{lo, fd - 1})
		}
		lo = fd + 1
	}
	if lo <= max {
		ranges = append(ranges, [2]int{lo, max})
	}
	return ranges
}

// ErrIsolationUnsupported is returned by the isolated path on platforms
// without Linux namespace support.
var ErrIsolationUnsupported = fmt.Errorf("sandbox: isolated exec is only supported on linux")

// MetricsSink receives an exec-count notification, keyed by whether the
// request was namespace-isolated (spec.md §4.10 enrichment: counter
// "bbs_sandbox_execs_total{isolated}"). Mirrors node.MetricsSink's
// "let the caller report without importing a metrics package" seam.
type MetricsSink interface {
	IncSandboxExecs(isolated bool)
}

type noopMetrics struct{}

func (noopMetrics) IncSandboxExecs(bool) {}

var metrics MetricsSink = noopMetrics{}

// SetMetricsSink installs the process-wide sandbox metrics sink. Call
// once during server construction, before any node starts execing
// programs.
func SetMetricsSink(sink MetricsSink) {
	if sink == nil {
		sink = noopMetrics{}
	}
	metrics = sink
}

// Exec runs req to completion and reports its exit status. Non-isolated
// requests fork/exec directly; isolated requests use the self re-exec
// shim (shim_linux.go).
func Exec(req Request) (Result, error) {
	metrics.IncSandboxExecs(req.Isolated)
	if req.Isolated {
		return execIsolated(req)
	}
	return execDirect(req)
}

func stdio(req Request) (stdin, stdout, stderr *os.File) {
	if req.UseNode && req.SlaveFD != nil {
		return req.SlaveFD, req.SlaveFD, req.SlaveFD
	}
	return req.InFD, req.OutFD, req.OutFD
}

// execDirect is the "Non-isolated path" of spec.md §4.5: fork, reset
// WINCH/TERM/INT/PIPE handlers in the child, redirect fds, optionally
// take the controlling terminal, execvpe.
func execDirect(req Request) (Result, error) {
	stdin, stdout, stderr := stdio(req)

	cmd := exec.Command(req.Filename, req.Argv...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if len(req.Envp) > 0 {
		cmd.Env = req.Envp
	}
	cmd.SysProcAttr = directSysProcAttr(req)

	if err := cmd.Start(); err != nil {
		return Result{}, err
	}
	return waitProcess(cmd.Process.Pid)
}
