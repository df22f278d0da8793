package sftpd

import (
	"io"

	"github.com/pkg/sftp"

	"github.com/stlalpha/vision3bbs/internal/bbslog"
)

// Serve runs the SFTP request loop over channel until the client closes
// it or an unrecoverable error occurs (spec.md §4.7: "Single-threaded
// request/response over an authenticated channel... serviced on the
// handler thread of its node" — the caller is expected to invoke Serve
// directly from the node's handler goroutine, not a separate one).
func Serve(channel io.ReadWriteCloser, root *Root, caps Capabilities, log bbslog.Logger) error {
	handlers := NewSession(root, caps, log)
	server := sftp.NewRequestServer(channel, *handlers)
	defer server.Close()

	err := server.Serve()
	if err == io.EOF {
		return nil
	}
	return err
}
