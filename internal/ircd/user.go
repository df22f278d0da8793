package ircd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// User is one connected IRC client (spec.md §3 "IRC User"). Grounded on
// the teacher's internal/chat/room.go subscriber shape, generalized from
// a single global room's channel-based fan-out to per-recipient mutex-
// serialized writes across many channels, as spec.md §4.6 "Fan-out"
// requires: "Writes to each recipient are serialized by that recipient's
// user mutex so writes do not interleave."
type User struct {
	mu sync.Mutex // serializes writes to conn (spec.md §4.6 Fan-out)

	NodeID   int
	Nick     string
	Ident    string
	Realname string
	rawIP    string // never exposed; Hostmask is derived from NodeID

	Modes UserMode

	JoinedTime       time.Time
	LastActive       time.Time
	LastPingSent     time.Time
	LastPongReceived time.Time

	AwayMessage string
	Away        bool

	channels map[string]bool // channel names (uppercased) this user has joined

	conn io.Writer

	Registered bool // true once authenticated against the BBS user database
	UserID     int
}

// NewUser constructs a user bound to conn for writes, cloaking the real
// IP behind a node-derived hostmask (spec.md §3: "raw IP never leaves
// the user object").
func NewUser(nodeID int, nick, ident, realname, rawIP string, conn io.Writer) *User {
	now := time.Now()
	return &User{
		NodeID:           nodeID,
		Nick:             nick,
		Ident:            ident,
		Realname:         realname,
		rawIP:            rawIP,
		JoinedTime:       now,
		LastActive:       now,
		LastPongReceived: now,
		channels:         make(map[string]bool),
		conn:             conn,
	}
}

// Hostmask returns the cloaked hostmask shown to other users
// (spec.md §4.6 SASL: "cloak the user's hostname as node/<id>"; applied
// unconditionally here so the raw IP is never exposed over the wire).
func (u *User) Hostmask() string {
	return fmt.Sprintf("node/%d", u.NodeID)
}

// Prefix returns the nick!ident@host prefix used on relayed lines.
func (u *User) Prefix() string {
	return fmt.Sprintf("%s!%s@%s", u.Nick, u.Ident, u.Hostmask())
}

// Write serializes one line to the user's connection under the user
// mutex (spec.md §4.6 Fan-out). line should not include the trailing
// CRLF; Write appends it.
func (u *User) Write(line string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, err := io.WriteString(u.conn, line+"\r\n")
	return err
}

// Writef formats and writes a line.
func (u *User) Writef(format string, args ...any) error {
	return u.Write(fmt.Sprintf(format, args...))
}

func (u *User) addChannel(name string)    { u.channels[strings.ToUpper(name)] = true }
func (u *User) removeChannel(name string) { delete(u.channels, strings.ToUpper(name)) }
func (u *User) channelCount() int         { return len(u.channels) }
func (u *User) inChannel(name string) bool {
	return u.channels[strings.ToUpper(name)]
}

// Channels returns the (uppercased) names of every channel this user has
// joined, for Quit's "broadcast across every channel" fan-out.
func (u *User) Channels() []string {
	out := make([]string, 0, len(u.channels))
	for name := range u.channels {
		out = append(out, name)
	}
	return out
}
