package wsnode

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096}

func dialTestServer(t *testing.T, handler http.HandlerFunc) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("Dial: %v", err)
	}
	return conn, srv
}

func TestByteConnWriteThenRead(t *testing.T) {
	serverSide := make(chan *byteConn, 1)
	srvHandler := func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade: %v", err)
			return
		}
		serverSide <- Wrap(conn)
	}

	client, srv := dialTestServer(t, srvHandler)
	defer srv.Close()
	defer client.Close()

	bc := <-serverSide
	defer bc.Close()

	if err := client.WriteMessage(websocket.BinaryMessage, []byte("hello node")); err != nil {
		t.Fatalf("client WriteMessage: %v", err)
	}

	buf := make([]byte, 32)
	n, err := bc.Read(buf)
	if err != nil {
		t.Fatalf("byteConn.Read: %v", err)
	}
	if got := string(buf[:n]); got != "hello node" {
		t.Fatalf("Read() = %q, want %q", got, "hello node")
	}
}

func TestByteConnReadBuffersPartialConsumption(t *testing.T) {
	serverSide := make(chan *byteConn, 1)
	srvHandler := func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade: %v", err)
			return
		}
		serverSide <- Wrap(conn)
	}

	client, srv := dialTestServer(t, srvHandler)
	defer srv.Close()
	defer client.Close()

	bc := <-serverSide
	defer bc.Close()

	if err := client.WriteMessage(websocket.BinaryMessage, []byte("abcdef")); err != nil {
		t.Fatalf("client WriteMessage: %v", err)
	}

	first := make([]byte, 3)
	n, err := bc.Read(first)
	if err != nil || n != 3 || string(first) != "abc" {
		t.Fatalf("first Read = %q, %d, %v; want \"abc\", 3, nil", first[:n], n, err)
	}

	second := make([]byte, 3)
	n, err = bc.Read(second)
	if err != nil || n != 3 || string(second) != "def" {
		t.Fatalf("second Read = %q, %d, %v; want \"def\", 3, nil", second[:n], n, err)
	}
}

func TestByteConnWriteSendsBinaryMessage(t *testing.T) {
	srvHandler := func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade: %v", err)
			return
		}
		bc := Wrap(conn)
		defer bc.Close()
		if _, err := bc.Write([]byte("server says hi")); err != nil {
			t.Errorf("Write: %v", err)
		}
	}

	client, srv := dialTestServer(t, srvHandler)
	defer srv.Close()
	defer client.Close()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("client ReadMessage: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want BinaryMessage", msgType)
	}
	if string(data) != "server says hi" {
		t.Fatalf("message = %q, want %q", data, "server says hi")
	}
}

func TestListenerCheckOriginPermissiveByDefault(t *testing.T) {
	l := NewListener(nil, nil, "")
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	if !l.upgrader.CheckOrigin(req) {
		t.Fatal("CheckOrigin with no allowedOrigin configured should accept any origin")
	}
}

func TestListenerCheckOriginRestricted(t *testing.T) {
	l := NewListener(nil, nil, "https://allowed.example")

	ok := httptest.NewRequest(http.MethodGet, "/ws", nil)
	ok.Header.Set("Origin", "https://allowed.example")
	if !l.upgrader.CheckOrigin(ok) {
		t.Fatal("CheckOrigin should accept the configured origin")
	}

	bad := httptest.NewRequest(http.MethodGet, "/ws", nil)
	bad.Header.Set("Origin", "https://evil.example")
	if l.upgrader.CheckOrigin(bad) {
		t.Fatal("CheckOrigin should reject a mismatched origin")
	}
}
