// Package rlogin implements the RFC 1282 RLogin handshake as an
// external protocol listener (spec.md §4.0 component H; spec.md §6
// lists RLogin among the listed protocols alongside SSH/telnet/FTP).
// Grounded on original_source/nets/net_rlogin.c's rlogin_handshake,
// ported line for line into the node registry's Conn/Request shape
// instead of the original's raw bbs_node/fd pair.
package rlogin

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"time"
)

// tiocpktWindow is the single-byte urgent control code RFC 1282 servers
// send to request the client's current window size (net_rlogin.c's
// TIOCPKT_WINDOW).
const tiocpktWindow = 0x80

// Handshake is the four-field connection string an RLogin client sends
// on connect: an empty string, the client username, the server
// username, and "term/speed" — each NUL-terminated (net_rlogin.c's
// "<null>client-user-name<null>server-user-name<null>terminal-type/speed<null>").
type Handshake struct {
	ClientUser string
	ServerUser string
	TermSpeed  string
}

// Negotiate performs the handshake on an already-accepted TCP
// connection and returns the parsed fields. It sends the single
// NUL-byte ACK that switches the connection into data-transfer mode,
// matching net_rlogin.c exactly.
//
// Window-size negotiation (the urgent-TCP-marker request and its
// 12-byte "FF FF s s rr cc xp yp" reply) is attempted per RFC 1282 but,
// per original_source/nets/net_rlogin.c's own comment ("the window
// change control stuff is currently broken"), the reply is read
// best-effort and discarded — a client that never answers, or answers
// with something other than the documented 12-byte form, does not fail
// the handshake. Negotiate takes no window size from the reply or from
// TermSpeed; TermSpeed is returned exactly as the client sent it.
func Negotiate(conn *net.TCPConn) (Handshake, error) {
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	reader := bufio.NewReader(conn)

	fields := make([]string, 0, 4)
	var cur bytes.Buffer
	for len(fields) < 4 {
		b, err := reader.ReadByte()
		if err != nil {
			return Handshake{}, fmt.Errorf("rlogin: reading connection string: %w", err)
		}
		if b == 0 {
			fields = append(fields, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(b)
	}
	conn.SetReadDeadline(time.Time{})

	if _, err := conn.Write([]byte{0}); err != nil {
		return Handshake{}, fmt.Errorf("rlogin: sending ack: %w", err)
	}

	hs := Handshake{ClientUser: fields[1], ServerUser: fields[2], TermSpeed: fields[3]}

	if err := sendWindowSizeRequest(conn); err == nil {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		reply := make([]byte, 12)
		_, _ = reader.Read(reply) // best-effort; see doc comment above
		conn.SetReadDeadline(time.Time{})
	}

	return hs, nil
}
