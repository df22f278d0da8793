package ftpd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/goftp/server"

	"github.com/stlalpha/vision3bbs/internal/sftpd"
)

type denyWrite struct{ sftpd.AllowAll }

func (denyWrite) CanWrite(string) bool { return false }

func newTestDriver(t *testing.T, caps sftpd.Capabilities) (*Driver, string) {
	t.Helper()
	dir := t.TempDir()
	if caps == nil {
		caps = sftpd.AllowAll{}
	}
	return &Driver{root: sftpd.NewRoot(dir), caps: caps}, dir
}

func TestPutFileTruncates(t *testing.T) {
	d, dir := newTestDriver(t, nil)

	if _, err := d.PutFile("report.txt", bytes.NewBufferString("first"), false); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if _, err := d.PutFile("report.txt", bytes.NewBufferString("hi"), false); err != nil {
		t.Fatalf("PutFile (truncate): %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hi" {
		t.Fatalf("content = %q, want %q (STOR should truncate)", data, "hi")
	}
}

func TestPutFileAppends(t *testing.T) {
	d, dir := newTestDriver(t, nil)

	if _, err := d.PutFile("log.txt", bytes.NewBufferString("one"), false); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if _, err := d.PutFile("log.txt", bytes.NewBufferString("two"), true); err != nil {
		t.Fatalf("PutFile (append): %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "onetwo" {
		t.Fatalf("content = %q, want %q (APPE should append)", data, "onetwo")
	}
}

func TestPutFileDeniedByCapability(t *testing.T) {
	d, _ := newTestDriver(t, denyWrite{})

	if _, err := d.PutFile("secret.txt", bytes.NewBufferString("x"), false); !os.IsPermission(err) {
		t.Fatalf("PutFile with denied capability: err = %v, want permission error", err)
	}
}

func TestGetFileHonorsOffset(t *testing.T) {
	d, dir := newTestDriver(t, nil)
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	size, rc, err := d.GetFile("data.bin", 5)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	defer rc.Close()
	if size != 10 {
		t.Fatalf("size = %d, want 10", size)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "56789" {
		t.Fatalf("content = %q, want %q", got, "56789")
	}
}

func TestRenameRefusesToOverwrite(t *testing.T) {
	d, dir := newTestDriver(t, nil)
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatalf("WriteFile a: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatalf("WriteFile b: %v", err)
	}

	if err := d.Rename("a.txt", "b.txt"); !os.IsExist(err) {
		t.Fatalf("Rename onto existing file: err = %v, want already-exists error", err)
	}
}

func TestMakeDirAndChangeDir(t *testing.T) {
	d, _ := newTestDriver(t, nil)

	if err := d.MakeDir("uploads"); err != nil {
		t.Fatalf("MakeDir: %v", err)
	}
	if err := d.ChangeDir("uploads"); err != nil {
		t.Fatalf("ChangeDir into new dir: %v", err)
	}
	if err := d.ChangeDir("uploads/missing"); err == nil {
		t.Fatal("ChangeDir into missing path: want error, got nil")
	}
}

func TestDeleteFile(t *testing.T) {
	d, dir := newTestDriver(t, nil)
	path := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := d.DeleteFile("gone.txt"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file still present after DeleteFile: err = %v", err)
	}
}

func TestListDir(t *testing.T) {
	d, dir := newTestDriver(t, nil)
	for _, name := range []string{"one.txt", "two.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile %s: %v", name, err)
		}
	}

	var names []string
	err := d.ListDir("/", func(info server.FileInfo) error {
		names = append(names, info.Name())
		return nil
	})
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("ListDir returned %d entries, want 2: %v", len(names), names)
	}
}
