package node

import (
	"errors"
	"strings"
)

// ErrQuit is returned internally when the user types a quit/exit reserved
// username at the login prompt (spec.md §4.4.1).
var ErrQuit = errors.New("node: user quit at login")

const maxAuthAttempts = 3

// authenticate implements spec.md §4.4.1 exactly: at most three attempts,
// each prompting for a username, with three reserved names short-
// circuiting the normal username/password exchange. Grounded on
// original_source/bbs/node.c's authenticate() state machine and the
// teacher's internal/sshauth package for the rate-limited retry loop
// shape (lockout after repeated failure, spec.md §8 "Authorization
// denied" property).
func (d *Driver) authenticate(n *Node, term *Terminal) (Identity, bool) {
	for attempt := 0; attempt < maxAuthAttempts; attempt++ {
		_ = term.WriteString("\r\nUsername: ")
		username, err := term.ReadLine()
		if err != nil {
			return Identity{}, false
		}
		username = strings.TrimSpace(username)

		switch strings.ToLower(username) {
		case "quit", "exit":
			return Identity{}, false

		case "new":
			if d.Registrar == nil {
				continue
			}
			id, declined, err := d.Registrar.Register(n, term)
			if err != nil || declined {
				continue
			}
			return id, true

		case "guest":
			id, ok := d.authenticateGuest(n, term)
			if !ok {
				continue
			}
			return id, true

		case "":
			continue
		}

		id, ok := d.authenticatePassword(n, term, username)
		if ok {
			return id, true
		}
	}
	return Identity{}, false
}

// authenticatePassword prompts with echo disabled, delegates to the auth
// backend, and zeros the password buffer before returning (spec.md
// §4.4.1: "The password buffer is zeroed before the function returns").
func (d *Driver) authenticatePassword(n *Node, term *Terminal, username string) (Identity, bool) {
	_ = term.WriteString("Password: ")
	term.SetEcho(false)
	line, err := term.ReadLine()
	term.SetEcho(true)
	_ = term.WriteString("\r\n")
	if err != nil {
		return Identity{}, false
	}

	password := []byte(line)
	defer zero(password)

	if d.Auth == nil {
		return Identity{}, false
	}
	id, aerr := d.Auth.Authenticate(n, username, string(password), false)
	if aerr != nil {
		return Identity{}, false
	}
	return id, true
}

// authenticateGuest collects optional name/email/location when the guest
// policy asks for it, validating the shapes spec.md §4.4.1 calls out
// (email contains '@' and '.'; location contains ',') before delegating
// to the auth backend with a null username/password, matching the
// Auth backend contract in spec.md §6: "Null user/password means guest."
func (d *Driver) authenticateGuest(n *Node, term *Terminal) (Identity, bool) {
	if !d.Guests.Allow {
		_ = term.WriteString("\r\nGuest access is not permitted.\r\n")
		return Identity{}, false
	}

	if d.Guests.AskInfo {
		_ = term.WriteString("\r\nName: ")
		name, _ := term.ReadLine()

		var email, location string
		for {
			_ = term.WriteString("Email: ")
			email, _ = term.ReadLine()
			if strings.Contains(email, "@") && strings.Contains(email, ".") {
				break
			}
			_ = term.WriteString("That doesn't look like an email address.\r\n")
		}
		for {
			_ = term.WriteString("Location: ")
			location, _ = term.ReadLine()
			if strings.Contains(location, ",") {
				break
			}
			_ = term.WriteString("Please give a city, state (or country).\r\n")
		}

		n.Vars.Set("GUESTNAME", strings.TrimSpace(name))
		n.Vars.Set("GUESTEMAIL", strings.TrimSpace(email))
		n.Vars.Set("GUESTLOCATION", strings.TrimSpace(location))
	}

	if d.Auth == nil {
		return Identity{}, false
	}
	id, err := d.Auth.Authenticate(n, "", "", true)
	if err != nil {
		return Identity{}, false
	}
	return id, true
}

// zero overwrites a password buffer in place.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
