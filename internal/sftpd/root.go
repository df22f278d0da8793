// Package sftpd implements the SFTP request loop (spec.md §4.7,
// component G) atop github.com/pkg/sftp's server-side request handlers.
// pkg/sftp's RequestServer already maintains the wire handle table the
// handle model names (kind, client-name, server-path, os-handle,
// offset); this package supplies path containment, the capability
// oracle, and errno→status mapping around that.
package sftpd

import (
	"path/filepath"
	"strings"
)

// Root resolves client-supplied paths against a fixed per-user transfer
// root, rejecting any attempt to escape it (spec.md §4.7 "Path
// sandboxing"). Grounded on original_source/bbs/system.c's rootfs
// containment discipline, applied here to a filesystem view instead of
// a mount namespace.
type Root struct {
	base string
}

// NewRoot returns a Root anchored at base, which must already exist.
func NewRoot(base string) *Root {
	return &Root{base: filepath.Clean(base)}
}

// Resolve maps a client path (absolute or relative, possibly containing
// "..") to an absolute server-side path that is guaranteed to be the
// base directory itself or a descendant of it.
func (r *Root) Resolve(clientPath string) string {
	clean := filepath.Clean("/" + clientPath)
	joined := filepath.Join(r.base, clean)
	if joined != r.base && !strings.HasPrefix(joined, r.base+string(filepath.Separator)) {
		return r.base
	}
	return joined
}

// ClientPath is the inverse of Resolve: given a server path known to be
// inside the root, returns the client-visible relative path.
func (r *Root) ClientPath(serverPath string) string {
	rel, err := filepath.Rel(r.base, serverPath)
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

// Base returns the absolute transfer root.
func (r *Root) Base() string { return r.base }
