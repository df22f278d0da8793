//go:build !windows

package rlogin

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// sendWindowSizeRequest sends the single-byte TIOCPKT_WINDOW control
// code as TCP urgent data (MSG_OOB), the RFC 1282 server-to-client
// window-size request (net_rlogin.c's send_urgent).
func sendWindowSizeRequest(conn *net.TCPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sendErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		sendErr = unix.Send(int(fd), []byte{tiocpktWindow}, unix.MSG_OOB)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	if sendErr != nil && sendErr != syscall.EAGAIN {
		return fmt.Errorf("rlogin: sending urgent data: %w", sendErr)
	}
	return nil
}
