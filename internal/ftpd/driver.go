// Package ftpd implements the FTP external-service adapter (spec.md
// §6 "FTP": "Classic RFC 959 subset... Response codes exactly: 220,
// 230, 231, 250, 331, 450, 226, 125/150, 227"), on top of
// github.com/goftp/server. Grounded on sandia-minimega-minimega's
// src/protonuke ftp.go/ftpdriver.go, which is the only example in the
// pack wiring goftp/server's DriverFactory/Driver/Perm contract; that
// reference implementation is a noop stub (protonuke is a traffic
// generator, not a file server), so every Driver method here is a real
// implementation against a sandboxed transfer root instead.
package ftpd

import (
	"io"
	"os"

	"github.com/goftp/server"

	"github.com/stlalpha/vision3bbs/internal/sftpd"
)

// Driver adapts server.Driver to a single user's transfer root, reusing
// the path-containment and capability-oracle types built for the SFTP
// loop (spec.md §4.7's "resolved server path is a descendant of the
// per-user transfer root" invariant applies identically here).
type Driver struct {
	root *sftpd.Root
	caps sftpd.Capabilities
}

// Factory constructs one Driver per accepted control connection, as
// server.DriverFactory requires.
type Factory struct {
	Root *sftpd.Root
	Caps sftpd.Capabilities
}

func (f *Factory) NewDriver() (server.Driver, error) {
	caps := f.Caps
	if caps == nil {
		caps = sftpd.AllowAll{}
	}
	return &Driver{root: f.Root, caps: caps}, nil
}

func (d *Driver) Init(conn *server.Conn) {}

func (d *Driver) ChangeDir(path string) error {
	p := d.root.Resolve(path)
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return os.ErrInvalid
	}
	return nil
}

func (d *Driver) Stat(path string) (server.FileInfo, error) {
	p := d.root.Resolve(path)
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	return &fileInfo{info}, nil
}

func (d *Driver) ListDir(path string, callback func(server.FileInfo) error) error {
	p := d.root.Resolve(path)
	if !d.caps.CanRead(p) {
		return os.ErrPermission
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return err
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if err := callback(&fileInfo{info}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) DeleteDir(path string) error {
	p := d.root.Resolve(path)
	if !d.caps.CanDelete(p) {
		return os.ErrPermission
	}
	return os.Remove(p)
}

func (d *Driver) DeleteFile(path string) error {
	p := d.root.Resolve(path)
	if !d.caps.CanDelete(p) {
		return os.ErrPermission
	}
	return os.Remove(p)
}

// Rename refuses to overwrite an existing destination, matching the
// SFTP loop's RENAME behavior (spec.md §4.7) even though RFC 959 itself
// is silent on the point.
func (d *Driver) Rename(fromPath, toPath string) error {
	src := d.root.Resolve(fromPath)
	dst := d.root.Resolve(toPath)
	if !d.caps.CanWrite(src) || !d.caps.CanWrite(dst) {
		return os.ErrPermission
	}
	if _, err := os.Stat(dst); err == nil {
		return os.ErrExist
	}
	return os.Rename(src, dst)
}

func (d *Driver) MakeDir(path string) error {
	p := d.root.Resolve(path)
	if !d.caps.CanMkdir(p) {
		return os.ErrPermission
	}
	return os.Mkdir(p, 0o755)
}

func (d *Driver) GetFile(path string, offset int64) (int64, io.ReadCloser, error) {
	p := d.root.Resolve(path)
	if !d.caps.CanRead(p) {
		return 0, nil, os.ErrPermission
	}
	f, err := os.Open(p)
	if err != nil {
		return 0, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return 0, nil, err
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		_ = f.Close()
		return 0, nil, err
	}
	return info.Size(), f, nil
}

// PutFile implements STOR (appendData=false, truncating) and APPE
// (appendData=true) per spec.md §6 "STOR (truncating), APPE".
func (d *Driver) PutFile(destPath string, data io.Reader, appendData bool) (int64, error) {
	p := d.root.Resolve(destPath)
	if !d.caps.CanWrite(p) {
		return 0, os.ErrPermission
	}
	flags := os.O_WRONLY | os.O_CREATE
	if appendData {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(p, flags, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(f, data)
}

type fileInfo struct {
	os.FileInfo
}

func (fi *fileInfo) Mode() os.FileMode { return fi.FileInfo.Mode() }
func (fi *fileInfo) Owner() string     { return "bbs" }
func (fi *fileInfo) Group() string     { return "bbs" }
