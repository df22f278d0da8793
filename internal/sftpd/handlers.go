package sftpd

import (
	"io"
	"os"

	"github.com/pkg/sftp"

	"github.com/stlalpha/vision3bbs/internal/bbslog"
)

// Session implements pkg/sftp's FileReader/FileWriter/FileCmder/
// FileLister contract for one authenticated node (spec.md §4.7), with
// every path passed through Root.Resolve before touching the
// filesystem and every attempt gated by Capabilities.
type Session struct {
	root *Root
	caps Capabilities
	log  bbslog.Logger
}

// NewSession builds the four pkg/sftp handler interfaces bound to one
// user's transfer root.
func NewSession(root *Root, caps Capabilities, log bbslog.Logger) *sftp.Handlers {
	s := &Session{root: root, caps: caps, log: log}
	return &sftp.Handlers{
		FileGet:  s,
		FilePut:  s,
		FileCmd:  s,
		FileList: s,
	}
}

// Fileread services OPEN-for-read + READ (spec.md §4.7 "OPEN", "READ
// (caps length at 32 KiB)" — the 32 KiB cap is enforced by pkg/sftp's
// own chunking against the ReaderAt we return, so no clamp is needed
// here).
func (s *Session) Fileread(r *sftp.Request) (io.ReaderAt, error) {
	path := s.root.Resolve(r.Filepath)
	if !s.caps.CanRead(path) {
		return nil, errPermissionDenied
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, statusFromError(err)
	}
	return f, nil
}

// Filewrite services OPEN-for-write + WRITE.
func (s *Session) Filewrite(r *sftp.Request) (io.WriterAt, error) {
	path := s.root.Resolve(r.Filepath)
	if !s.caps.CanWrite(path) {
		return nil, errPermissionDenied
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, statusFromError(err)
	}
	return f, nil
}

// Filecmd services REMOVE, MKDIR, RMDIR, RENAME, SETSTAT/FSETSTAT
// (denied), and SYMLINK (unsupported) — spec.md §4.7's full command
// list less the read-path operations Filelist/Fileread cover.
func (s *Session) Filecmd(r *sftp.Request) error {
	switch r.Method {
	case "Setstat", "Fsetstat":
		return errPermissionDenied
	case "Symlink":
		return errUnsupported
	case "Remove":
		path := s.root.Resolve(r.Filepath)
		if !s.caps.CanDelete(path) {
			return errPermissionDenied
		}
		return statusFromError(os.Remove(path))
	case "Mkdir":
		path := s.root.Resolve(r.Filepath)
		if !s.caps.CanMkdir(path) {
			return errPermissionDenied
		}
		return statusFromError(os.Mkdir(path, 0o755))
	case "Rmdir":
		path := s.root.Resolve(r.Filepath)
		if !s.caps.CanDelete(path) {
			return errPermissionDenied
		}
		return statusFromError(os.Remove(path))
	case "Rename":
		src := s.root.Resolve(r.Filepath)
		dst := s.root.Resolve(r.Target)
		if !s.caps.CanWrite(src) || !s.caps.CanWrite(dst) {
			return errPermissionDenied
		}
		// spec.md §4.7: RENAME refuses to overwrite.
		if _, err := os.Stat(dst); err == nil {
			return errAlreadyExists
		}
		return statusFromError(os.Rename(src, dst))
	default:
		return errUnsupported
	}
}

// Filelist services OPENDIR/READDIR (Method "List"), STAT/LSTAT
// (Method "Stat"/"Lstat"), and REALPATH (serviced upstream by
// pkg/sftp's own path normalization over the paths Root.Resolve
// produces). READLINK is unsupported per spec.md §4.7.
func (s *Session) Filelist(r *sftp.Request) (sftp.ListerAt, error) {
	path := s.root.Resolve(r.Filepath)

	switch r.Method {
	case "List":
		if !s.caps.CanRead(path) {
			return nil, errPermissionDenied
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, statusFromError(err)
		}
		infos := make([]os.FileInfo, 0, len(entries))
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				continue
			}
			infos = append(infos, info)
		}
		return listerAt(infos), nil
	case "Stat", "Lstat":
		if !s.caps.CanRead(path) {
			return nil, errPermissionDenied
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, statusFromError(err)
		}
		return listerAt([]os.FileInfo{info}), nil
	case "Readlink":
		return nil, errUnsupported
	default:
		return nil, errUnsupported
	}
}

type listerAt []os.FileInfo

func (l listerAt) ListAt(dst []os.FileInfo, offset int64) (int, error) {
	if offset >= int64(len(l)) {
		return 0, io.EOF
	}
	n := copy(dst, l[offset:])
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}
