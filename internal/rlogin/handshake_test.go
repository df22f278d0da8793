package rlogin

import (
	"net"
	"testing"
	"time"
)

func dialRloginPair(t *testing.T) (server, client *net.TCPConn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	acceptCh := make(chan *net.TCPConn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			acceptCh <- nil
			return
		}
		acceptCh <- c.(*net.TCPConn)
	}()

	rawClient, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client = rawClient.(*net.TCPConn)

	server = <-acceptCh
	if server == nil {
		t.Fatal("Accept failed")
	}
	return server, client
}

func TestNegotiateParsesConnectionString(t *testing.T) {
	server, client := dialRloginPair(t)
	defer server.Close()
	defer client.Close()

	go func() {
		client.Write([]byte{0})
		client.Write([]byte("alice"))
		client.Write([]byte{0})
		client.Write([]byte("sysop"))
		client.Write([]byte{0})
		client.Write([]byte("ansi/38400"))
		client.Write([]byte{0})

		ack := make([]byte, 1)
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		client.Read(ack)
		client.Close()
	}()

	hs, err := Negotiate(server)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if hs.ClientUser != "alice" {
		t.Errorf("ClientUser = %q, want %q", hs.ClientUser, "alice")
	}
	if hs.ServerUser != "sysop" {
		t.Errorf("ServerUser = %q, want %q", hs.ServerUser, "sysop")
	}
	if hs.TermSpeed != "ansi/38400" {
		t.Errorf("TermSpeed = %q, want %q", hs.TermSpeed, "ansi/38400")
	}
}

func TestNegotiateFailsOnEarlyClose(t *testing.T) {
	server, client := dialRloginPair(t)
	defer server.Close()

	client.Write([]byte{0, 0})
	client.Close()

	if _, err := Negotiate(server); err == nil {
		t.Fatal("Negotiate with a truncated connection string: want error, got nil")
	}
}

func TestSessionConnExposesHandshake(t *testing.T) {
	server, client := dialRloginPair(t)
	defer server.Close()
	defer client.Close()

	hs := Handshake{ClientUser: "bob", ServerUser: "sysop", TermSpeed: "vt100/9600"}
	sc := &sessionConn{TCPConn: server, handshake: hs}

	if got := sc.Handshake(); got != hs {
		t.Fatalf("Handshake() = %+v, want %+v", got, hs)
	}
}
