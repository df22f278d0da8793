package ircd

import (
	"io"
	"strings"
	"sync"
	"time"
)

// Member is (user, channel, user-in-channel mode bits) — spec.md §3.
type Member struct {
	User  *User
	Bits  MemberBits
	mu    sync.Mutex // per-member mutex (spec.md §4.6 "per-user and per-member mutexes")
}

// Channel is a named broadcast target (spec.md §3 "Channel (IRC)").
type Channel struct {
	mu sync.RWMutex // single readers/writer lock per channel's member list

	Name        string
	Topic       string
	TopicSetter string
	TopicTime   time.Time

	Modes ChannelMode
	Limit int

	logFile io.Writer // optional append-only channel log

	members map[string]*Member // keyed by uppercased nick
}

func newChannel(name string) *Channel {
	return &Channel{Name: name, members: make(map[string]*Member)}
}

// Count returns len(members) (spec.md invariant: "count == len(members)";
// this implementation never denormalizes it, so the invariant holds by
// construction).
func (c *Channel) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

func (c *Channel) member(nick string) (*Member, bool) {
	m, ok := c.members[strings.ToUpper(nick)]
	return m, ok
}

// Members returns a snapshot of the current membership, safe to range
// over after the lock is released.
func (c *Channel) Members() []*Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Member, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, m)
	}
	return out
}

// SetLog attaches (or detaches, with nil) an append-only channel log.
func (c *Channel) SetLog(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logFile = w
}

func (c *Channel) logLine(line string) {
	c.mu.RLock()
	w := c.logFile
	c.mu.RUnlock()
	if w != nil {
		_, _ = io.WriteString(w, line+"\n")
	}
}
