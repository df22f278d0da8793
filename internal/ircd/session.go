package ircd

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Session drives the wire-protocol command loop for one IRC connection:
// reading raw lines, splitting verb+args, and routing to the Engine
// (spec.md §4.6). Grounded on the teacher's internal/session handler
// read-loop shape, generalized from menu-key dispatch to IRC verb
// dispatch.
type Session struct {
	engine *Engine
	ping   *PingTask
	auth   SASLAuthenticator

	reader *bufio.Reader
	writer io.Writer

	user     *User
	rawIP    string
	nodeID   int
	secure   bool
	sasl     SASLSession
	nickSeen string
}

// NewSession wraps a raw connection (reader for client→server lines,
// writer for server→client lines) for one not-yet-registered node.
func NewSession(engine *Engine, ping *PingTask, auth SASLAuthenticator, rw io.ReadWriter, nodeID int, rawIP string, secure bool) *Session {
	return &Session{
		engine: engine,
		ping:   ping,
		auth:   auth,
		reader: bufio.NewReader(rw),
		writer: rw,
		nodeID: nodeID,
		rawIP:  rawIP,
		secure: secure,
	}
}

func (s *Session) writeLine(line string) {
	_, _ = io.WriteString(s.writer, line+"\r\n")
}

// Run reads and dispatches lines until the connection closes or the
// client issues QUIT.
func (s *Session) Run() {
	defer func() {
		if s.user != nil {
			s.engine.Quit(s.user, "Connection closed")
		}
	}()

	for {
		line, err := s.reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			s.dispatch(line)
		}
		if err != nil {
			return
		}
	}
}

// parsedLine splits "VERB arg1 arg2 :trailing with spaces" per RFC 1459.
type parsedLine struct {
	verb string
	args []string
}

func parseLine(line string) parsedLine {
	if strings.HasPrefix(line, ":") {
		if idx := strings.IndexByte(line, ' '); idx >= 0 {
			line = line[idx+1:]
		} else {
			return parsedLine{}
		}
	}

	var args []string
	if idx := strings.Index(line, " :"); idx >= 0 {
		args = strings.Fields(line[:idx])
		args = append(args, line[idx+2:])
	} else {
		args = strings.Fields(line)
	}
	if len(args) == 0 {
		return parsedLine{}
	}
	return parsedLine{verb: strings.ToUpper(args[0]), args: args[1:]}
}

func (s *Session) dispatch(raw string) {
	p := parseLine(raw)
	if p.verb == "" {
		return
	}

	switch p.verb {
	case "CAP":
		s.handleCap(p.args)
	case "AUTHENTICATE":
		s.handleAuthenticate(p.args)
	case "NICK":
		s.handleNick(p.args)
	case "USER":
		s.handleUser(p.args)
	case "PING":
		s.writeLine(":" + serverName + " PONG " + serverName + " :" + strings.Join(p.args, " "))
	case "PONG":
		if s.user != nil {
			s.ping.Pong(s.user)
		}
	case "JOIN":
		s.requireRegistered(func() {
			if len(p.args) > 0 {
				_ = s.engine.Join(s.user, p.args[0], JoinOptions{Secure: s.secure, Registered: s.user.Registered, UserID: s.user.UserID})
			}
		})
	case "PART":
		s.requireRegistered(func() {
			if len(p.args) > 0 {
				reason := ""
				if len(p.args) > 1 {
					reason = p.args[1]
				}
				_ = s.engine.Part(s.user, p.args[0], reason)
			}
		})
	case "PRIVMSG":
		s.requireRegistered(func() {
			if len(p.args) >= 2 {
				_ = s.engine.Privmsg(s.user, p.args[0], p.args[1])
			}
		})
	case "NOTICE":
		s.requireRegistered(func() {
			if len(p.args) >= 2 {
				_ = s.engine.Notice(s.user, p.args[0], p.args[1])
			}
		})
	case "TOPIC":
		s.requireRegistered(func() {
			if len(p.args) >= 2 {
				_ = s.engine.SetTopic(s.user, p.args[0], p.args[1])
			} else if len(p.args) == 1 {
				_ = s.engine.Names(s.user, p.args[0])
			}
		})
	case "MODE":
		s.requireRegistered(func() {
			if len(p.args) >= 2 {
				_ = s.engine.SetMode(s.user, p.args[0], p.args[1], p.args[2:])
			}
		})
	case "KICK":
		s.requireRegistered(func() {
			if len(p.args) >= 2 {
				reason := p.args[1]
				if len(p.args) > 2 {
					reason = p.args[2]
				}
				_ = s.engine.Kick(s.user, p.args[0], p.args[1], reason)
			}
		})
	case "WHOIS":
		s.requireRegistered(func() {
			if len(p.args) > 0 {
				_ = s.engine.Whois(s.user, p.args[len(p.args)-1])
			}
		})
	case "WHO":
		s.requireRegistered(func() {
			if len(p.args) > 0 {
				_ = s.engine.Who(s.user, p.args[0])
			}
		})
	case "LIST":
		s.requireRegistered(func() { _ = s.engine.List(s.user) })
	case "NAMES":
		s.requireRegistered(func() {
			if len(p.args) > 0 {
				_ = s.engine.Names(s.user, p.args[0])
			}
		})
	case "AWAY":
		s.requireRegistered(func() { s.handleAway(p.args) })
	case "QUIT":
		if s.user != nil {
			reason := "Client quit"
			if len(p.args) > 0 {
				reason = p.args[0]
			}
			s.engine.Quit(s.user, reason)
			s.user = nil
		}
	default:
		if s.user != nil {
			_ = errReply(s.user, ERR_UNKNOWNCOMMAND, p.verb, "Unknown command")
		}
	}
}

func (s *Session) requireRegistered(fn func()) {
	if s.user == nil {
		return
	}
	fn()
}

func (s *Session) handleAway(args []string) {
	if len(args) == 0 {
		s.user.Away = false
		s.user.AwayMessage = ""
		s.writeLine(":" + serverName + " " + strconv.Itoa(RPL_UNAWAY) + " " + s.user.Nick + " :You are no longer marked as being away")
		return
	}
	s.user.Away = true
	s.user.AwayMessage = args[0]
	s.writeLine(":" + serverName + " " + strconv.Itoa(RPL_NOWAWAY) + " " + s.user.Nick + " :You have been marked as being away")
}

func (s *Session) handleCap(args []string) {
	if len(args) == 0 {
		return
	}
	switch strings.ToUpper(args[0]) {
	case "LS":
		s.writeLine(":" + serverName + " CAP * LS :" + CapLS())
	case "REQ":
		if len(args) > 1 {
			s.writeLine(":" + serverName + " CAP * ACK :" + args[1])
		}
	case "END":
		// no-op: registration proceeds once NICK/USER have both landed
	}
}

func (s *Session) handleAuthenticate(args []string) {
	if len(args) == 0 {
		return
	}
	if s.sasl.Mechanism == "" {
		reply, err := s.sasl.BeginAuthenticate(args[0], s.nickSeen)
		if err != nil {
			s.writeLine(":" + serverName + " " + strconv.Itoa(ERR_SASLFAIL) + " * :" + err.Error())
			return
		}
		s.writeLine(reply)
		return
	}

	uid, _, err := s.sasl.FinishAuthenticate(args[0], s.auth)
	s.sasl = SASLSession{}
	if err != nil {
		if s.user != nil {
			SendSASLFailure(s.user, err.Error())
		}
		return
	}
	if s.user != nil {
		s.user.Registered = true
		s.user.UserID = uid
		SendSASLSuccess(s.user)
	}
}

func (s *Session) handleNick(args []string) {
	if len(args) == 0 {
		return
	}
	s.nickSeen = args[0]
	if s.user == nil {
		s.user = NewUser(s.nodeID, args[0], "", "", s.rawIP, s.writer)
		return
	}
	s.user.Nick = args[0]
}

func (s *Session) handleUser(args []string) {
	if s.user == nil || len(args) < 4 {
		return
	}
	s.user.Ident = args[0]
	s.user.Realname = args[3]
	if err := s.engine.Register(s.user); err != nil {
		s.writeLine(":" + serverName + " " + strconv.Itoa(ERR_NICKNAMEINUSE) + " * " + s.user.Nick + " :Nickname is already in use")
		s.user = nil
		return
	}
	SendWelcome(s.user)
}
