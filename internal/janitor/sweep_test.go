package janitor

import (
	"net"
	"testing"
	"time"

	"github.com/stlalpha/vision3bbs/internal/bbslog"
	"github.com/stlalpha/vision3bbs/internal/node"
)

type fakeConn struct{}

func (fakeConn) Read([]byte) (int, error)    { return 0, nil }
func (fakeConn) Write(p []byte) (int, error) { return len(p), nil }
func (fakeConn) Close() error                { return nil }
func (fakeConn) RemoteAddr() net.Addr        { return &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1} }

func TestSweepEvictsIdleNode(t *testing.T) {
	reg := node.NewRegistry(8, bbslog.Discard(), nil)
	n, err := reg.Request(fakeConn{}, "test", nil)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	n.IdleKickMs = 1

	time.Sleep(5 * time.Millisecond)

	task := NewSweepTask(reg, bbslog.Discard())
	task.sweep()

	if reg.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after idle eviction", reg.Count())
	}
}

func TestSweepLeavesActiveNode(t *testing.T) {
	reg := node.NewRegistry(8, bbslog.Discard(), nil)
	n, err := reg.Request(fakeConn{}, "test", nil)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	n.IdleKickMs = int64(time.Hour / time.Millisecond)

	task := NewSweepTask(reg, bbslog.Discard())
	task.sweep()

	if reg.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 (node under idle threshold kept)", reg.Count())
	}
}

func TestSweepIgnoresDisabledThreshold(t *testing.T) {
	reg := node.NewRegistry(8, bbslog.Discard(), nil)
	if _, err := reg.Request(fakeConn{}, "test", nil); err != nil {
		t.Fatalf("Request: %v", err)
	}

	task := NewSweepTask(reg, bbslog.Discard())
	task.sweep()

	if reg.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 (IdleKickMs=0 disables eviction)", reg.Count())
	}
}
