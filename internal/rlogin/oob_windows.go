//go:build windows

package rlogin

import "net"

// sendWindowSizeRequest is a no-op on windows; the BBS ports this
// listener has been tested on are Linux-only for the urgent-TCP-data
// path. Skipping the request changes nothing else in Negotiate, which
// discards the window-size reply on every platform.
func sendWindowSizeRequest(conn *net.TCPConn) error {
	return nil
}
