package ircd

import (
	"fmt"
	"strings"
)

// Privmsg implements spec.md §4.6 "Privmsg / Notice": target is a user
// or channel; disallowed when empty, over 510 bytes, to a no-external
// channel the sender isn't in, or to a moderated channel when the sender
// lacks voice (unless reduced-moderation routes to half-ops and above).
func (e *Engine) Privmsg(sender *User, target, text string) error {
	return e.message(sender, target, text, "PRIVMSG")
}

// Notice behaves like Privmsg but never triggers auto-reply loops in a
// real client; the engine itself treats them identically.
func (e *Engine) Notice(sender *User, target, text string) error {
	return e.message(sender, target, text, "NOTICE")
}

func (e *Engine) message(sender *User, target, text, verb string) error {
	if text == "" {
		return errReply(sender, ERR_NOTEXTTOSEND, target, "No text to send")
	}
	if len(text) > 510 {
		return errReply(sender, ERR_INPUTTOOLONG, target, "Input line was too long")
	}

	if strings.ContainsRune(chanPrefix, rune(target[0])) {
		return e.channelMessage(sender, target, text, verb)
	}
	return e.userMessage(sender, target, text, verb)
}

func (e *Engine) userMessage(sender *User, targetNick, text, verb string) error {
	target, ok := e.Lookup(targetNick)
	if !ok {
		return errReply(sender, ERR_NOSUCHNICK, targetNick, "No such nick/channel")
	}
	if target.Away && verb == "PRIVMSG" {
		_ = sender.Writef(":%s %d %s %s :%s", serverName, RPL_AWAY, sender.Nick, target.Nick, target.AwayMessage)
	}
	return target.Write(fmt.Sprintf(":%s %s %s :%s", sender.Prefix(), verb, target.Nick, text))
}

func (e *Engine) channelMessage(sender *User, channelName, text, verb string) error {
	c, ok := e.findChannel(channelName)
	if !ok {
		return errReply(sender, ERR_NOSUCHCHANNEL, channelName, "No such channel")
	}

	c.mu.RLock()
	senderMember, inChannel := c.member(sender.Nick)
	noExternal := c.Modes.Has(ModeNoExternal)
	moderated := c.Modes.Has(ModeModerated)
	reduced := c.Modes.Has(ModeReducedModeration)
	c.mu.RUnlock()

	if noExternal && !inChannel {
		return errReply(sender, ERR_CANNOTSENDTOCHAN, channelName, "Cannot send to channel")
	}
	if moderated {
		hasVoice := inChannel && senderMember.Bits.AtLeast(RankVoice)
		if !hasVoice {
			if reduced {
				line := fmt.Sprintf(":%s %s %s :%s", sender.Prefix(), verb, c.Name, text)
				return e.broadcast(c, sender.Nick, RankHalfOp, line)
			}
			return errReply(sender, ERR_NOVOICE, channelName, "Cannot send to channel")
		}
	}

	line := fmt.Sprintf(":%s %s %s :%s", sender.Prefix(), verb, c.Name, text)
	return e.broadcast(c, sender.Nick, RankNone, line)
}
