//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// ShimArg is the magic argv[1] cmd/bbsd/main.go checks for on startup to
// decide whether it is being re-exec'd as a sandbox shim rather than
// started normally — the same trick sandia-minimega-minimega's
// containerShim uses ("golang can't easily support the typical
// clone+exec method... We'll use the forkAndExec method", i.e. have the
// freshly cloned process re-exec itself and finish setup from Go, since
// Go cannot continue arbitrary code in a forked child the way C can).
const ShimArg = "__sandbox-shim__"

// Environment variable prefix carrying container setup metadata across
// the re-exec, stripped back out of the environment before the shim's
// final execve into the user's program.
const metaPrefix = "__SANDBOX_"

const (
	metaTemplateDir = metaPrefix + "TEMPLATEDIR"
	metaRunDir      = metaPrefix + "RUNDIR"
	metaRunToken    = metaPrefix + "RUNTOKEN"
	metaHostname    = metaPrefix + "HOSTNAME"
	metaHomeDir     = metaPrefix + "HOMEDIR"
	metaUsername    = metaPrefix + "USERNAME"
	metaMaxMemMiB   = metaPrefix + "MAXMEMMIB"
	metaMaxCPUSec   = metaPrefix + "MAXCPUSEC"
	metaMinNice     = metaPrefix + "MINNICE"
)

// coordFD is the fixed ExtraFiles slot (fd 3, right after stdio) carrying
// the coordination pipe's read end, matching original_source/bbs/
// system.c's procpipe: "the parent can write UID/GID maps and the
// child's observable PID before the child proceeds."
const coordFD = 3

// Shim runs as the entry point of the re-exec'd, already-cloned process
// inside its new namespaces. It implements spec.md §4.5's "Isolated
// path" steps 1-6 before handing off via execve. It never returns on
// success.
func Shim(args []string) {
	limits := Limits{
		MaxMemoryMiB: atoiOr(os.Getenv(metaMaxMemMiB), 0),
		MaxCPUSec:    atoiOr(os.Getenv(metaMaxCPUSec), 0),
		MinNice:      atoiOr(os.Getenv(metaMinNice), 0),
	}
	if err := applyLimits(limits); err != nil {
		die(err)
	}

	coord := os.NewFile(coordFD, "coord")
	pidBuf := make([]byte, 16)
	n, err := coord.Read(pidBuf)
	if err != nil || n == 0 {
		die(fmt.Errorf("sandbox: reading coordination pid: %w", err))
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidBuf[:n])))
	if err != nil {
		die(err)
	}
	coord.Close()

	templateDir := os.Getenv(metaTemplateDir)
	runDir := os.Getenv(metaRunDir)
	runToken := os.Getenv(metaRunToken)
	hostname := os.Getenv(metaHostname)
	homeDir := os.Getenv(metaHomeDir)
	username := os.Getenv(metaUsername)

	root, err := cloneRootfs(templateDir, runDir, pid, runToken)
	if err != nil {
		die(err)
	}

	env := stripMeta(os.Environ())
	if homeDir != "" && username != "" {
		guestHome, err := bindHome(root, homeDir, username)
		if err != nil {
			die(err)
		}
		env = append(env, "HOME="+guestHome, "BBS_USER="+strings.ToLower(username))
	}

	if err := pivotInto(root, hostname); err != nil {
		die(err)
	}

	filename := args[0]
	argv := args

	if homeDir != "" && username != "" {
		_ = unix.Chdir("/home/" + username)
		copyMOTDIfShell(filename)
	}

	if rl, err := maxOpenFiles(); err == nil {
		closeFDRanges(4, rl, []int{0, 1, 2})
	}

	if err := syscall.Exec(lookPath(filename, env), argv, env); err != nil {
		die(fmt.Errorf("sandbox: exec %s: %w", filename, err))
	}
}

func die(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func stripMeta(environ []string) []string {
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		if strings.HasPrefix(kv, metaPrefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func maxOpenFiles() (int, error) {
	var rl syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rl); err != nil {
		return 0, err
	}
	return int(rl.Cur) - 1, nil
}

// lookPath resolves filename against PATH in env, falling back to
// filename itself (execve requires either an absolute/relative path or
// one already resolved — unlike execvpe in C, syscall.Exec does not
// search $PATH).
func lookPath(filename string, env []string) string {
	if strings.Contains(filename, "/") {
		return filename
	}
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			for _, dir := range strings.Split(kv[len("PATH="):], ":") {
				candidate := dir + "/" + filename
				if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
					return candidate
				}
			}
		}
	}
	return filename
}
