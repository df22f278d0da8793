package ircd

import (
	"strings"
	"time"
)

// Whois emits the classic 311/312/317/319/379/318 sequence for one
// target nick (spec.md §6 numerics 311/312/317/318/319/379).
func (e *Engine) Whois(requester *User, targetNick string) error {
	target, ok := e.Lookup(targetNick)
	if !ok {
		return errReply(requester, ERR_NOSUCHNICK, targetNick, "No such nick/channel")
	}

	_ = requester.Writef(":%s %d %s %s %s %s * :%s", serverName, RPL_WHOISUSER, requester.Nick,
		target.Nick, target.Ident, target.Hostmask(), target.Realname)
	_ = requester.Writef(":%s %d %s %s %s :%s", serverName, RPL_WHOISSERVER, requester.Nick,
		target.Nick, serverName, network)

	idle := time.Since(target.LastActive)
	_ = requester.Writef(":%s %d %s %s %d %d :seconds idle, signon time", serverName, RPL_WHOISIDLE,
		requester.Nick, target.Nick, int(idle.Seconds()), target.JoinedTime.Unix())

	channels := target.Channels()
	if len(channels) > 0 {
		_ = requester.Writef(":%s %d %s %s :%s", serverName, RPL_WHOISCHANNELS, requester.Nick,
			target.Nick, strings.Join(channels, " "))
	}

	_ = requester.Writef(":%s %d %s %s %s :is connected securely", serverName, RPL_WHOISHOST,
		requester.Nick, target.Nick, target.Hostmask())

	return requester.Writef(":%s %d %s %s :End of /WHOIS list", serverName, RPL_ENDOFWHOIS, requester.Nick, target.Nick)
}

// Who emits one 352 row per member of a channel (or, for an unprefixed
// target, per matching nick) followed by 315 (spec.md §6 numerics 352/315).
func (e *Engine) Who(requester *User, target string) error {
	if strings.ContainsRune(chanPrefix, rune(target[0])) {
		c, ok := e.findChannel(target)
		if !ok {
			return requester.Writef(":%s %d %s %s :End of /WHO list", serverName, RPL_ENDOFWHO, requester.Nick, target)
		}
		for _, m := range c.Members() {
			_ = requester.Writef(":%s %d %s %s %s %s %s %s H%s :0 %s", serverName, RPL_WHOREPLY, requester.Nick,
				c.Name, m.User.Ident, m.User.Hostmask(), serverName, m.User.Nick, m.Bits.Prefix(), m.User.Realname)
		}
		return requester.Writef(":%s %d %s %s :End of /WHO list", serverName, RPL_ENDOFWHO, requester.Nick, target)
	}

	if u, ok := e.Lookup(target); ok {
		_ = requester.Writef(":%s %d %s * %s %s %s %s H :0 %s", serverName, RPL_WHOREPLY, requester.Nick,
			u.Ident, u.Hostmask(), serverName, u.Nick, u.Realname)
	}
	return requester.Writef(":%s %d %s %s :End of /WHO list", serverName, RPL_ENDOFWHO, requester.Nick, target)
}

// List emits a 322 row per visible (non-secret, non-private) channel
// followed by 323 (spec.md §6 numerics 322/323).
func (e *Engine) List(requester *User) error {
	e.channelsMu.RLock()
	channels := make([]*Channel, 0, len(e.channels))
	for _, c := range e.channels {
		channels = append(channels, c)
	}
	e.channelsMu.RUnlock()

	for _, c := range channels {
		c.mu.RLock()
		secret := c.Modes.Has(ModeSecret) || c.Modes.Has(ModePrivate)
		count := len(c.members)
		topic := c.Topic
		name := c.Name
		c.mu.RUnlock()
		if secret {
			continue
		}
		_ = requester.Writef(":%s %d %s %s %d :%s", serverName, RPL_LIST, requester.Nick, name, count, topic)
	}
	return requester.Writef(":%s %d %s :End of /LIST", serverName, RPL_LISTEND, requester.Nick)
}

// Names emits the 353/366 sequence for one channel as the reply to a
// NAMES command; Join sends the same sequence through sendNames.
func (e *Engine) Names(requester *User, channelName string) error {
	c, ok := e.findChannel(channelName)
	if !ok {
		return requester.Writef(":%s %d %s %s :End of /NAMES list", serverName, RPL_ENDOFNAMES, requester.Nick, channelName)
	}
	e.sendNames(requester, c)
	return nil
}
