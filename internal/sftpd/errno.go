package sftpd

import (
	"errors"
	"os"
	"syscall"

	"github.com/pkg/sftp"
)

// errAlreadyExists is returned by handlers for the EEXIST case; the
// underlying SFTP v3 wire format (draft-ietf-secsh-filexfer-02, the
// version spec.md §6 names) has no FILE_ALREADY_EXISTS status of its
// own, so pkg/sftp's packet encoder collapses any error it doesn't
// recognize to SSH_FX_FAILURE — which is exactly the wire-level
// behavior spec.md's "otherwise FAILURE" fallback describes. Keeping a
// distinct sentinel here still lets callers (and tests) tell EEXIST
// apart from a generic failure in the Go-level error value.
var errAlreadyExists = errors.New("sftpd: file already exists")

// statusFromError maps a local error to the SFTP status pkg/sftp's
// request server will encode onto the wire (spec.md §4.7 "Errors"):
// EPERM/EACCES→PERMISSION_DENIED, ENOENT→NO_SUCH_FILE, ENOTDIR/EEXIST→
// FAILURE, otherwise FAILURE.
func statusFromError(err error) error {
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	var errno syscall.Errno
	if errors.As(err, &pathErr) {
		if e, ok := pathErr.Err.(syscall.Errno); ok {
			errno = e
		}
	} else if e, ok := err.(syscall.Errno); ok {
		errno = e
	}

	switch {
	case errno == syscall.EEXIST:
		return errAlreadyExists
	case errno == syscall.EPERM || errno == syscall.EACCES:
		return sftp.ErrSSHFxPermissionDenied
	case errno == syscall.ENOENT:
		return sftp.ErrSSHFxNoSuchFile
	case errno == syscall.ENOTDIR:
		return sftp.ErrSSHFxFailure
	case os.IsNotExist(err):
		return sftp.ErrSSHFxNoSuchFile
	case os.IsPermission(err):
		return sftp.ErrSSHFxPermissionDenied
	default:
		return sftp.ErrSSHFxFailure
	}
}

// errUnsupported is returned for SYMLINK/READLINK/FSTAT, which spec.md
// §4.7 marks unsupported.
var errUnsupported = sftp.ErrSSHFxOpUnsupported

// errPermissionDenied is returned for SETSTAT/FSETSTAT, which spec.md
// §4.7 always denies.
var errPermissionDenied = sftp.ErrSSHFxPermissionDenied
