// Package ircd implements the in-process IRC channel/membership engine
// (spec.md §4.6, component F): users, channels, memberships, mode bits,
// privileged message fan-out, and SASL PLAIN auth. Grounded on the
// teacher's internal/chat/room.go (RWMutex-guarded map + per-recipient
// delivery) generalized from a single global room to named, moded
// channels with RFC 2812-shaped wire semantics, per
// original_source/nets/net_irc.c's exact numeric/ordering behavior.
package ircd

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stlalpha/vision3bbs/internal/bbslog"
)

const maxChannelsPerUser = 20
const serverName = "vision3.bbs"
const network = "VisionNet"

// Engine owns the global users/channels lists (spec.md §4.6 "State").
type Engine struct {
	usersMu sync.RWMutex
	users   map[string]*User // keyed by uppercased nick

	channelsMu sync.RWMutex
	channels   map[string]*Channel // keyed by uppercased name

	log bbslog.Logger

	pingStop chan struct{}
}

// New creates an empty engine.
func New(log bbslog.Logger) *Engine {
	return &Engine{
		users:    make(map[string]*User),
		channels: make(map[string]*Channel),
		log:      log,
	}
}

// Register adds a freshly authenticated user under a unique nick,
// identity-insensitively (spec.md §3: "keyed by identity-insensitive
// nickname uniqueness").
func (e *Engine) Register(u *User) error {
	e.usersMu.Lock()
	defer e.usersMu.Unlock()
	key := strings.ToUpper(u.Nick)
	if _, exists := e.users[key]; exists {
		return fmt.Errorf("ircd: nick %q in use", u.Nick)
	}
	e.users[key] = u
	return nil
}

// Unregister removes a user from the global table (after Quit has
// already cleared their channel memberships).
func (e *Engine) Unregister(u *User) {
	e.usersMu.Lock()
	defer e.usersMu.Unlock()
	delete(e.users, strings.ToUpper(u.Nick))
}

// Lookup finds a user by nick, case-insensitively.
func (e *Engine) Lookup(nick string) (*User, bool) {
	e.usersMu.RLock()
	defer e.usersMu.RUnlock()
	u, ok := e.users[strings.ToUpper(nick)]
	return u, ok
}

// UserCount returns the number of registered users, for the core's
// bbs_irc_users_active gauge (spec.md §4.10 enrichment).
func (e *Engine) UserCount() int {
	e.usersMu.RLock()
	defer e.usersMu.RUnlock()
	return len(e.users)
}

// ChannelCount returns the number of live channels, for the core's
// bbs_irc_channels_active gauge (spec.md §4.10 enrichment).
func (e *Engine) ChannelCount() int {
	e.channelsMu.RLock()
	defer e.channelsMu.RUnlock()
	return len(e.channels)
}

func (e *Engine) findChannel(name string) (*Channel, bool) {
	e.channelsMu.RLock()
	defer e.channelsMu.RUnlock()
	c, ok := e.channels[strings.ToUpper(name)]
	return c, ok
}

func isValidChannelName(name string) bool {
	if len(name) < 2 || len(name) > 50 {
		return false
	}
	return strings.ContainsRune(chanPrefix, rune(name[0])) && !strings.ContainsAny(name, " ,\x07")
}

// JoinOptions carries the connection-security/registration context Join
// needs to evaluate its reject conditions (spec.md §4.6 "Join").
type JoinOptions struct {
	Secure     bool // connection uses TLS
	Registered bool // user is authenticated against the BBS user database
	UserID     int  // BBS user id; 1 grants founder on channel creation
}

// Join implements spec.md §4.6 "Join" exactly: reject conditions, new-
// channel defaults, op/founder grant, and the fixed emission order
// (JOIN, topic, names list, mode-grant).
func (e *Engine) Join(u *User, name string, opt JoinOptions) error {
	if !isValidChannelName(name) {
		return u.Writef(":%s %d %s %s :No such channel", serverName, ERR_NOSUCHCHANNEL, u.Nick, name)
	}
	if u.channelCount() >= maxChannelsPerUser {
		return u.Writef(":%s %d %s %s :You have joined too many channels", serverName, ERR_TOOMANYCHANNELS, u.Nick, name)
	}

	e.channelsMu.Lock()
	key := strings.ToUpper(name)
	c, existed := e.channels[key]
	if !existed {
		c = newChannel(name)
		c.Modes = ModeNoExternal | ModeTopicProtected
		if opt.Registered {
			c.Modes |= ModeRegisteredOnly
		}
		e.channels[key] = c
	}
	e.channelsMu.Unlock()

	c.mu.Lock()
	if c.Modes.Has(ModeTLSOnly) && !opt.Secure {
		c.mu.Unlock()
		return u.Writef(":%s %d %s %s :Cannot join channel (+S)", serverName, ERR_SECUREONLYCHAN, u.Nick, name)
	}
	if c.Modes.Has(ModeRegisteredOnly) && !opt.Registered {
		c.mu.Unlock()
		return u.Writef(":%s %d %s %s :Cannot join channel (+r)", serverName, ERR_NOTREGISTERED, u.Nick, name)
	}
	if c.Limit > 0 && len(c.members) >= c.Limit {
		c.mu.Unlock()
		return u.Writef(":%s %d %s %s :Cannot join channel (+l)", serverName, ERR_CHANNELISFULL, u.Nick, name)
	}

	bits := MemberBits(0)
	if !existed {
		bits |= BitOp
		if opt.UserID == 1 {
			bits |= BitFounder
		}
	}
	m := &Member{User: u, Bits: bits}
	c.members[strings.ToUpper(u.Nick)] = m
	members := make([]*Member, 0, len(c.members))
	for _, mm := range c.members {
		members = append(members, mm)
	}
	topic, setter, topicTime := c.Topic, c.TopicSetter, c.TopicTime
	c.mu.Unlock()

	u.addChannel(name)

	joinLine := fmt.Sprintf(":%s JOIN %s", u.Prefix(), c.Name)
	for _, mm := range members {
		_ = mm.User.Write(joinLine)
	}
	c.logLine(joinLine)

	if topic == "" {
		_ = u.Writef(":%s %d %s %s :No topic is set", serverName, RPL_NOTOPIC, u.Nick, c.Name)
	} else {
		_ = u.Writef(":%s %d %s %s :%s", serverName, RPL_TOPIC, u.Nick, c.Name, topic)
		_ = u.Writef(":%s %d %s %s %s %d", serverName, RPL_TOPICWHOTIME, u.Nick, c.Name, setter, topicTime.Unix())
	}

	e.sendNames(u, c)

	if bits != 0 {
		_ = e.broadcastModeGrant(c, u, bits)
	}
	return nil
}

func (e *Engine) sendNames(u *User, c *Channel) {
	for _, mm := range c.Members() {
		_ = u.Writef(":%s %d %s = %s :%s%s", serverName, RPL_NAMREPLY, u.Nick, c.Name, mm.Bits.Prefix(), mm.User.Nick)
	}
	_ = u.Writef(":%s %d %s %s :End of /NAMES list", serverName, RPL_ENDOFNAMES, u.Nick, c.Name)
}

func (e *Engine) broadcastModeGrant(c *Channel, grantee *User, bits MemberBits) error {
	flags, args := modeLetters(bits)
	if flags == "" {
		return nil
	}
	line := fmt.Sprintf(":%s MODE %s +%s %s", serverName, c.Name, flags, strings.Join(args, " "))
	return e.broadcast(c, "", RankNone, line)
}

func modeLetters(bits MemberBits) (string, []string) {
	var flags strings.Builder
	var args []string
	order := []struct {
		bit    MemberBits
		letter byte
	}{{BitFounder, 'q'}, {BitAdmin, 'a'}, {BitOp, 'o'}, {BitHalfOp, 'h'}, {BitVoice, 'v'}}
	for _, o := range order {
		if bits&o.bit != 0 {
			flags.WriteByte(o.letter)
		}
	}
	return flags.String(), args
}

// broadcast implements spec.md §4.6 "Fan-out": (channel, exclude_sender?,
// min_privilege). Writes are serialized per-recipient by the recipient's
// own user mutex (see User.Write); the message is logged once to the
// channel log file, if attached.
func (e *Engine) broadcast(c *Channel, excludeNick string, minPrivilege MemberRank, line string) error {
	exclude := strings.ToUpper(excludeNick)
	var firstErr error
	for _, m := range c.Members() {
		if strings.ToUpper(m.User.Nick) == exclude {
			continue
		}
		if minPrivilege != RankNone && !m.Bits.AtLeast(minPrivilege) {
			continue
		}
		if err := m.User.Write(line); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.logLine(line)
	return firstErr
}

// Part removes u from channel name, broadcasting PART to the remaining
// membership and deleting the channel atomically if it becomes empty
// (spec.md §4.6 "Part / Quit / Kick").
func (e *Engine) Part(u *User, name, reason string) error {
	c, ok := e.findChannel(name)
	if !ok {
		return u.Writef(":%s %d %s %s :No such channel", serverName, ERR_NOSUCHCHANNEL, u.Nick, name)
	}
	line := fmt.Sprintf(":%s PART %s :%s", u.Prefix(), c.Name, reason)
	_ = e.broadcast(c, u.Nick, RankNone, line)
	_ = u.Write(line)

	c.mu.Lock()
	delete(c.members, strings.ToUpper(u.Nick))
	empty := len(c.members) == 0
	c.mu.Unlock()
	u.removeChannel(name)

	if empty {
		e.removeChannelIfEmpty(c)
	}
	return nil
}

func (e *Engine) removeChannelIfEmpty(c *Channel) {
	e.channelsMu.Lock()
	defer e.channelsMu.Unlock()
	c.mu.RLock()
	empty := len(c.members) == 0
	c.mu.RUnlock()
	if empty {
		delete(e.channels, strings.ToUpper(c.Name))
	}
}

// Quit broadcasts across every channel the user is in, then removes them
// from the global table (spec.md §4.6 "Quit broadcasts across every
// channel the user is in").
func (e *Engine) Quit(u *User, reason string) {
	line := fmt.Sprintf(":%s QUIT :%s", u.Prefix(), reason)
	for _, name := range u.Channels() {
		c, ok := e.findChannel(name)
		if !ok {
			continue
		}
		_ = e.broadcast(c, u.Nick, RankNone, line)
		c.mu.Lock()
		delete(c.members, strings.ToUpper(u.Nick))
		empty := len(c.members) == 0
		c.mu.Unlock()
		if empty {
			e.removeChannelIfEmpty(c)
		}
	}
	e.Unregister(u)
}

// Kick requires half-op or above on the kicker (spec.md §4.6).
func (e *Engine) Kick(kicker *User, channelName, targetNick, reason string) error {
	c, ok := e.findChannel(channelName)
	if !ok {
		return errReply(kicker, ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}
	c.mu.Lock()
	kmember, ok := c.member(kicker.Nick)
	if !ok {
		c.mu.Unlock()
		return errReply(kicker, ERR_NOTONCHANNEL, channelName, "You're not on that channel")
	}
	if !kmember.Bits.AtLeast(RankHalfOp) {
		c.mu.Unlock()
		return errReply(kicker, ERR_CHANOPRIVSNEEDED, channelName, "You're not a channel operator")
	}
	target, ok := c.member(targetNick)
	if !ok {
		c.mu.Unlock()
		return errReply(kicker, ERR_USERNOTINCHANNEL, targetNick, "They aren't on that channel")
	}
	delete(c.members, strings.ToUpper(targetNick))
	empty := len(c.members) == 0
	c.mu.Unlock()

	line := fmt.Sprintf(":%s KICK %s %s :%s", kicker.Prefix(), c.Name, target.User.Nick, reason)
	_ = e.broadcast(c, "", RankNone, line)
	_ = target.User.Write(line)
	target.User.removeChannel(c.Name)

	if empty {
		e.removeChannelIfEmpty(c)
	}
	return nil
}

func errReply(u *User, code int, target, msg string) error {
	return u.Writef(":%s %d %s %s :%s", serverName, code, u.Nick, target, msg)
}
