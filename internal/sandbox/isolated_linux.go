//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/google/uuid"
)

// execIsolated is the "Isolated path" of spec.md §4.5: clone into new
// IPC/mount/PID/UTS/net/user namespaces via a self re-exec (ShimArg),
// establish the coordination pipe, write the child's real PID once the
// parent can see it, then wait on the result and remove the temporary
// rootfs.
func execIsolated(req Request) (Result, error) {
	self, err := os.Executable()
	if err != nil {
		return Result{}, fmt.Errorf("sandbox: resolving self executable: %w", err)
	}

	coordRead, coordWrite, err := os.Pipe()
	if err != nil {
		return Result{}, err
	}
	defer coordRead.Close()

	stdin, stdout, stderr := stdio(req)

	// token disambiguates the run directory from a stale one left by a
	// prior child that happened to reuse the same host PID (pid reuse is
	// rare but not impossible under heavy sandbox churn) — belt-and-
	// suspenders alongside the PID-keyed directory itself.
	token := uuid.NewString()

	args := append([]string{ShimArg, req.Filename}, req.Argv...)
	cmd := exec.Command(self, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.ExtraFiles = []*os.File{coordRead} // becomes fd 3 in the child
	cmd.Env = append(append([]string{}, req.Envp...), isolationMetaEnv(req, token)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWIPC | syscall.CLONE_NEWNS | syscall.CLONE_NEWPID |
			syscall.CLONE_NEWUTS | syscall.CLONE_NEWNET | syscall.CLONE_NEWUSER,
		UidMappings: []syscall.SysProcIDMap{{ContainerID: 0, HostID: os.Getuid(), Size: 1}},
		GidMappings: []syscall.SysProcIDMap{{ContainerID: 0, HostID: os.Getgid(), Size: 1}},
		// Matches original_source/bbs/system.c's proc_setgroups_write(pid, "deny", ...),
		// required before the gid_map write succeeds under an unprivileged user namespace.
		GidMappingsEnableSetgroups: false,
	}
	if req.UseNode && req.SlaveFD != nil {
		cmd.SysProcAttr.Setsid = true
		cmd.SysProcAttr.Setctty = true
		cmd.SysProcAttr.Ctty = 0
	}

	if err := cmd.Start(); err != nil {
		coordWrite.Close()
		return Result{}, err
	}

	// The child is in a new PID namespace and sees itself as pid 1; it
	// needs the real (outer) pid to name its rootfs clone directory
	// (spec.md: "a coordination pipe so the parent can write... the
	// child's observable PID before the child proceeds").
	pid := cmd.Process.Pid
	_, werr := coordWrite.WriteString(strconv.Itoa(pid))
	coordWrite.Close()
	if werr != nil {
		_ = cmd.Process.Kill()
		return Result{}, werr
	}

	result, err := waitProcess(pid)

	root := fmt.Sprintf("%s/%d-%s", req.RunDir, pid, token)
	_ = os.RemoveAll(root)

	return result, err
}

func isolationMetaEnv(req Request, token string) []string {
	env := []string{
		metaTemplateDir + "=" + req.TemplateDir,
		metaRunDir + "=" + req.RunDir,
		metaRunToken + "=" + token,
		metaHostname + "=" + req.Hostname,
		metaMaxMemMiB + "=" + strconv.Itoa(req.Limits.MaxMemoryMiB),
		metaMaxCPUSec + "=" + strconv.Itoa(req.Limits.MaxCPUSec),
		metaMinNice + "=" + strconv.Itoa(req.Limits.MinNice),
	}
	if req.HomeDir != "" && req.Username != "" {
		env = append(env, metaHomeDir+"="+req.HomeDir, metaUsername+"="+req.Username)
	}
	return env
}
