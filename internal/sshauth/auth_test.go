package sshauth

import (
	"testing"
	"time"

	"github.com/stlalpha/vision3bbs/internal/node"
)

func TestAuthenticateGuest(t *testing.T) {
	b := NewBackend(RateLimit{MaxFailedAttempts: 3, Window: time.Minute})
	id, err := b.Authenticate(&node.Node{}, "", "", true)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.Handle != "guest" {
		t.Errorf("Handle = %q, want guest", id.Handle)
	}
}

func TestAuthenticateUnknownUserFails(t *testing.T) {
	b := NewBackend(RateLimit{MaxFailedAttempts: 3, Window: time.Minute})
	n := &node.Node{ClientIP: "203.0.113.1"}
	if _, err := b.Authenticate(n, "nobody", "wrong", false); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestAuthenticateCorrectPassword(t *testing.T) {
	b := NewBackend(RateLimit{MaxFailedAttempts: 3, Window: time.Minute})
	if _, err := b.AddAccount("alice", "hunter2x", 10); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	n := &node.Node{ClientIP: "203.0.113.2"}
	id, err := b.Authenticate(n, "alice", "hunter2x", false)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.Handle != "alice" || id.Priv != 10 {
		t.Errorf("id = %+v, want Handle=alice Priv=10", id)
	}
}

func TestAuthenticateRateLimited(t *testing.T) {
	b := NewBackend(RateLimit{MaxFailedAttempts: 2, Window: time.Minute})
	if _, err := b.AddAccount("bob", "correcthorse", 0); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	n := &node.Node{ClientIP: "203.0.113.3"}

	for i := 0; i < 2; i++ {
		if _, err := b.Authenticate(n, "bob", "wrong", false); err == nil {
			t.Fatal("expected failure for wrong password")
		}
	}
	if _, err := b.Authenticate(n, "bob", "correcthorse", false); err == nil {
		t.Fatal("expected rate-limit rejection even with correct password")
	}
}

func TestAuthenticateSASLPlain(t *testing.T) {
	b := NewBackend(RateLimit{MaxFailedAttempts: 3, Window: time.Minute})
	if _, err := b.AddAccount("carol", "swordfish1", 0); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	n := &node.Node{ClientIP: "203.0.113.4"}
	blob := []byte("carol\x00carol\x00swordfish1")

	id, err := b.AuthenticateSASL(n, "PLAIN", blob)
	if err != nil {
		t.Fatalf("AuthenticateSASL: %v", err)
	}
	if id.Handle != "carol" {
		t.Errorf("Handle = %q, want carol", id.Handle)
	}
}

func TestAuthenticateSASLRejectsOtherMechanism(t *testing.T) {
	b := NewBackend(RateLimit{MaxFailedAttempts: 3, Window: time.Minute})
	n := &node.Node{ClientIP: "203.0.113.5"}
	if _, err := b.AuthenticateSASL(n, "EXTERNAL", nil); err == nil {
		t.Fatal("expected error for unsupported mechanism")
	}
}
