//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// cloneRootfs clones the template rootfs into <rundir>/<pid>-<token>
// (spec.md §4.5 step 3): every top-level directory of the template is
// bind mounted into the clone, then remounted read-only — twice,
// because MS_RDONLY only takes effect on a remount of an already-
// mounted bind. /proc, /tmp, and /home are skipped; they are
// (re)created by the caller. Grounded on original_source/bbs/system.c's
// clone_container; the token suffix disambiguates against a stale
// directory left by an earlier child that reused the same host pid.
func cloneRootfs(templateDir, runDir string, pid int, token string) (string, error) {
	root := filepath.Join(runDir, fmt.Sprintf("%d-%s", pid, token))
	if err := os.RemoveAll(root); err != nil {
		return "", fmt.Errorf("sandbox: clearing stale rootfs %s: %w", root, err)
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return "", fmt.Errorf("sandbox: mkdir %s: %w", root, err)
	}

	entries, err := os.ReadDir(templateDir)
	if err != nil {
		return "", fmt.Errorf("sandbox: reading template %s: %w", templateDir, err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		src := filepath.Join(templateDir, name)
		dst := filepath.Join(root, name)
		if err := os.MkdirAll(dst, 0o700); err != nil {
			return "", fmt.Errorf("sandbox: mkdir %s: %w", dst, err)
		}
		switch name {
		case "proc", "tmp", "home":
			continue // recreated fresh below, never bound from the template
		}
		if err := unix.Mount(src, dst, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
			return "", fmt.Errorf("sandbox: bind mount %s: %w", dst, err)
		}
		if err := unix.Mount(src, dst, "", unix.MS_REMOUNT|unix.MS_BIND|unix.MS_REC|unix.MS_RDONLY, ""); err != nil {
			return "", fmt.Errorf("sandbox: readonly remount %s: %w", dst, err)
		}
	}
	return root, nil
}

// bindHome bind-mounts the user's transfer home directory at
// <root>/home/<username> (spec.md §4.5 step 4).
func bindHome(root, hostHomeDir, username string) (string, error) {
	guestHome := filepath.Join(root, "home", username)
	if err := os.MkdirAll(guestHome, 0o700); err != nil {
		return "", fmt.Errorf("sandbox: mkdir %s: %w", guestHome, err)
	}
	if err := unix.Mount(hostHomeDir, guestHome, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return "", fmt.Errorf("sandbox: bind mount home %s: %w", guestHome, err)
	}
	return "/home/" + username, nil
}

// pivotInto performs step 5 of spec.md §4.5: sets the hostname in the new
// UTS namespace, pivot_roots into root using a temporary ".old" directory
// inside it, mounts a fresh /proc, chdirs to /, and detaches the old
// root.
func pivotInto(root, hostname string) error {
	if hostname != "" {
		if err := unix.Sethostname([]byte(hostname)); err != nil {
			return fmt.Errorf("sandbox: sethostname: %w", err)
		}
	}

	if err := unix.Mount(root, root, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("sandbox: self-bind root: %w", err)
	}

	oldRoot := filepath.Join(root, ".old")
	if err := os.MkdirAll(oldRoot, 0o700); err != nil {
		return fmt.Errorf("sandbox: mkdir %s: %w", oldRoot, err)
	}
	if err := unix.PivotRoot(root, oldRoot); err != nil {
		return fmt.Errorf("sandbox: pivot_root: %w", err)
	}
	if err := unix.Mount("proc", "/proc", "proc", 0, ""); err != nil {
		return fmt.Errorf("sandbox: mount /proc: %w", err)
	}
	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("sandbox: chdir /: %w", err)
	}
	if err := unix.Unmount("/.old", unix.MNT_DETACH); err != nil {
		return fmt.Errorf("sandbox: detach old root: %w", err)
	}
	return nil
}

// copyMOTDIfShell implements step 6: if filename is listed in
// /etc/shells, copy /etc/motd to stdout before exec (the shell itself
// never prints it; that's normally login(1)'s job).
func copyMOTDIfShell(filename string) {
	shells, err := os.ReadFile("/etc/shells")
	if err != nil {
		return
	}
	isShell := false
	for _, line := range splitLines(string(shells)) {
		if line == filename {
			isShell = true
			break
		}
	}
	if !isShell {
		return
	}
	motd, err := os.ReadFile("/etc/motd")
	if err != nil {
		return
	}
	_, _ = os.Stdout.Write(motd)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
