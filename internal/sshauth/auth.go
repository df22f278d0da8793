// Package sshauth implements a concrete node.AuthBackend/node.Registrar,
// the auth contract spec.md §6 names ("authenticate(node, user?,
// password?) -> ok | fail. Null user/password means guest"). The full
// user-account model (validation, access levels, message/file area
// bookkeeping) is application-layer and out of scope here (spec.md §1
// Non-goals); this package supplies just enough of an account store —
// handle, bcrypt password hash, privilege level — to make the contract
// concrete and testable.
//
// Grounded on the teacher's internal/usereditor/model.go for bcrypt
// usage, and on the teacher's cmd/vision3/ssh_server.go (pre-gliderlabs-
// auth) SSHAuthenticator for the brute-force/connection-limit shape,
// relocated from a pre-PTY ssh.PasswordHandler (this architecture's SSH
// listener accepts all auth methods and authenticates post-PTY, per
// internal/sshserver/listener.go) to Authenticate itself, keyed by the
// node's observed client IP instead of an ssh.Context.
package sshauth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stlalpha/vision3bbs/internal/node"
)

// Account is one entry in the in-memory user store.
type Account struct {
	ID       int
	Handle   string
	PassHash []byte
	Priv     int
}

// RateLimit bounds repeated failed logins per source IP, the same
// brute-force protection the teacher's SSHAuthenticator enforced at the
// SSH password-handler layer.
type RateLimit struct {
	MaxFailedAttempts int
	Window            time.Duration
}

// Backend is the default node.AuthBackend/node.Registrar
// implementation: an in-memory account table plus the teacher's
// failed-attempt rate limiter.
type Backend struct {
	limit RateLimit

	mu       sync.Mutex
	accounts map[string]*Account // keyed by lowercased handle
	nextID   int
	failed   map[string][]time.Time // keyed by client IP
}

// NewBackend builds an empty Backend. Seed accounts with AddAccount.
func NewBackend(limit RateLimit) *Backend {
	return &Backend{
		limit:    limit,
		accounts: make(map[string]*Account),
		nextID:   1,
		failed:   make(map[string][]time.Time),
	}
}

// AddAccount creates an account with a bcrypt-hashed password.
func (b *Backend) AddAccount(handle, password string, priv int) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.ToLower(handle)
	if _, exists := b.accounts[key]; exists {
		return nil, errors.New("sshauth: handle already exists")
	}

	acct := &Account{ID: b.nextID, Handle: handle, PassHash: hash, Priv: priv}
	b.accounts[key] = acct
	b.nextID++
	return acct, nil
}

func (b *Backend) isRateLimited(ip string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	attempts := b.failed[ip]
	cutoff := time.Now().Add(-b.limit.Window)
	live := 0
	for _, t := range attempts {
		if t.After(cutoff) {
			live++
		}
	}
	return b.limit.MaxFailedAttempts > 0 && live >= b.limit.MaxFailedAttempts
}

func (b *Backend) recordFailure(ip string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := time.Now().Add(-b.limit.Window)
	live := make([]time.Time, 0, len(b.failed[ip])+1)
	for _, t := range b.failed[ip] {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}
	b.failed[ip] = append(live, time.Now())
}

// Authenticate implements node.AuthBackend. guest=true grants a guest
// identity without consulting the account table (spec.md §6: "Null
// user/password means guest").
func (b *Backend) Authenticate(n *node.Node, username, password string, guest bool) (node.Identity, error) {
	if guest {
		return node.Identity{ID: 0, Handle: "guest", Priv: 0}, nil
	}

	ip := n.ClientIP
	if b.isRateLimited(ip) {
		time.Sleep(2 * time.Second)
		return node.Identity{}, errors.New("sshauth: too many failed attempts")
	}

	b.mu.Lock()
	acct, ok := b.accounts[strings.ToLower(username)]
	b.mu.Unlock()
	if !ok {
		b.recordFailure(ip)
		return node.Identity{}, errors.New("sshauth: unknown user")
	}

	if err := bcrypt.CompareHashAndPassword(acct.PassHash, []byte(password)); err != nil {
		b.recordFailure(ip)
		return node.Identity{}, errors.New("sshauth: invalid password")
	}

	return node.Identity{ID: acct.ID, Handle: acct.Handle, Priv: acct.Priv}, nil
}

// AuthenticateSASL implements node.AuthBackend for IRC SASL PLAIN
// (spec.md §4.6), delegating to the same account table Authenticate
// uses. It checks neither that the identity matches an earlier NICK nor
// that authzid is empty or equal to authcid. The IRC path in this tree
// does not call it: internal/ircd/sasl.go checks the nick, and
// internal/bbs's saslAdapter checks authzid, then calls Authenticate.
func (b *Backend) AuthenticateSASL(n *node.Node, mechanism string, blob []byte) (node.Identity, error) {
	if !strings.EqualFold(mechanism, "PLAIN") {
		return node.Identity{}, errors.New("sshauth: unsupported SASL mechanism")
	}
	parts := strings.SplitN(string(blob), "\x00", 3)
	if len(parts) != 3 {
		return node.Identity{}, errors.New("sshauth: malformed SASL PLAIN blob")
	}
	return b.Authenticate(n, parts[1], parts[2], false)
}

// Register implements node.Registrar for the reserved "new" username
// (spec.md §4.4.1): a minimal two-prompt flow (handle, then password;
// privilege defaults to 0) against the same account table Authenticate
// reads.
func (b *Backend) Register(n *node.Node, term *node.Terminal) (node.Identity, bool, error) {
	if err := term.WriteString("New user registration.\r\n\r\nDesired username: "); err != nil {
		return node.Identity{}, false, err
	}
	username, err := term.ReadLine()
	if err != nil {
		return node.Identity{}, false, err
	}
	username = strings.TrimSpace(username)
	if username == "" || strings.EqualFold(username, "new") {
		_ = term.WriteString("Invalid username.\r\n")
		return node.Identity{}, true, nil
	}

	term.SetEcho(false)
	_ = term.WriteString("Choose a password: ")
	password, err := term.ReadLine()
	term.SetEcho(true)
	if err != nil {
		return node.Identity{}, false, err
	}
	_ = term.WriteString("\r\n")
	if len(strings.TrimSpace(password)) < 6 {
		_ = term.WriteString("Password too short.\r\n")
		return node.Identity{}, true, nil
	}

	acct, err := b.AddAccount(username, password, 0)
	if err != nil {
		_ = term.WriteString("That username is already taken.\r\n")
		return node.Identity{}, true, nil
	}

	return node.Identity{ID: acct.ID, Handle: acct.Handle, Priv: acct.Priv}, false, nil
}
