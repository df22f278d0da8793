package ircd

import (
	"fmt"
	"strconv"
	"strings"
)

var channelFlagBits = map[byte]ChannelMode{
	'S': ModeTLSOnly,
	'j': ModeThrottled,
	'l': ModeLimit,
	'm': ModeModerated,
	'n': ModeNoExternal,
	'p': ModePrivate,
	'r': ModeRegisteredOnly,
	's': ModeSecret,
	't': ModeTopicProtected,
	'z': ModeReducedModeration,
}

var memberFlagBits = map[byte]MemberBits{
	'q': BitFounder,
	'a': BitAdmin,
	'o': BitOp,
	'h': BitHalfOp,
	'v': BitVoice,
}

// SetMode applies a MODE command to a channel (spec.md §4.6 "Modes").
// Only the founder may set/clear 'a'; 'limit' takes a numeric parameter
// that falls back to zero (disabled) when unparseable. Successful
// changes emit a MODE broadcast.
func (e *Engine) SetMode(actor *User, channelName string, modeStr string, args []string) error {
	c, ok := e.findChannel(channelName)
	if !ok {
		return errReply(actor, ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}

	c.mu.Lock()
	actorMember, inChannel := c.member(actor.Nick)
	if !inChannel {
		c.mu.Unlock()
		return errReply(actor, ERR_NOTONCHANNEL, channelName, "You're not on that channel")
	}
	isFounder := actorMember.Bits&BitFounder != 0
	isOpOrBetter := actorMember.Bits.AtLeast(RankHalfOp)

	adding := true
	argIdx := 0
	var appliedFlags strings.Builder
	var appliedArgs []string
	changed := false

	for i := 0; i < len(modeStr); i++ {
		ch := modeStr[i]
		switch ch {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		}

		if ch == 'a' {
			if !isFounder {
				continue // silently ignored; only founder may touch +a/-a
			}
			e.applyMemberFlag(c, actor, BitAdmin, adding, &appliedFlags, adding)
			changed = true
			continue
		}

		if bit, ok := memberFlagBits[ch]; ok {
			if !isOpOrBetter {
				continue
			}
			if argIdx >= len(args) {
				continue
			}
			target := args[argIdx]
			argIdx++
			tm, ok := c.member(target)
			if !ok {
				continue
			}
			if adding {
				tm.Bits |= bit
			} else {
				tm.Bits &^= bit
			}
			appliedFlags.WriteByte(signByte(adding))
			appliedFlags.WriteByte(ch)
			appliedArgs = append(appliedArgs, target)
			changed = true
			continue
		}

		if ch == 'l' {
			if !isOpOrBetter {
				continue
			}
			if adding {
				if argIdx >= len(args) {
					continue
				}
				n, err := strconv.Atoi(args[argIdx])
				argIdx++
				if err != nil {
					n = 0 // unparseable limit disables the flag (spec.md §4.6)
				}
				c.Limit = n
				if n > 0 {
					c.Modes |= ModeLimit
				} else {
					c.Modes &^= ModeLimit
				}
			} else {
				c.Limit = 0
				c.Modes &^= ModeLimit
			}
			appliedFlags.WriteByte(signByte(adding))
			appliedFlags.WriteByte('l')
			changed = true
			continue
		}

		if flag, ok := channelFlagBits[ch]; ok {
			if !isOpOrBetter {
				continue
			}
			if adding {
				c.Modes |= flag
			} else {
				c.Modes &^= flag
			}
			appliedFlags.WriteByte(signByte(adding))
			appliedFlags.WriteByte(ch)
			changed = true
			continue
		}
	}
	c.mu.Unlock()

	if !changed {
		return nil
	}
	line := fmt.Sprintf(":%s MODE %s %s %s", actor.Prefix(), c.Name, appliedFlags.String(), strings.Join(appliedArgs, " "))
	return e.broadcast(c, "", RankNone, line)
}

func (e *Engine) applyMemberFlag(c *Channel, target *User, bit MemberBits, adding bool, out *strings.Builder, sign bool) {
	m, ok := c.member(target.Nick)
	if !ok {
		return
	}
	if adding {
		m.Bits |= bit
	} else {
		m.Bits &^= bit
	}
	out.WriteByte(signByte(sign))
}

func signByte(adding bool) byte {
	if adding {
		return '+'
	}
	return '-'
}

// SetTopic implements the topic-protected check: only half-op or better
// may change the topic when +t is set (spec.md §4.6 channel mode 't').
func (e *Engine) SetTopic(actor *User, channelName, topic string) error {
	c, ok := e.findChannel(channelName)
	if !ok {
		return errReply(actor, ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}

	c.mu.Lock()
	m, inChannel := c.member(actor.Nick)
	if c.Modes.Has(ModeTopicProtected) {
		if !inChannel || !m.Bits.AtLeast(RankHalfOp) {
			c.mu.Unlock()
			return errReply(actor, ERR_CHANOPRIVSNEEDED, channelName, "You're not a channel operator")
		}
	}
	c.Topic = topic
	c.TopicSetter = actor.Prefix()
	c.mu.Unlock()

	line := fmt.Sprintf(":%s TOPIC %s :%s", actor.Prefix(), c.Name, topic)
	return e.broadcast(c, "", RankNone, line)
}
