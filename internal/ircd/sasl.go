package ircd

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// SASLAuthenticator verifies a decoded PLAIN triple against the BBS user
// database (spec.md §4.6 "SASL"); implemented by the node auth backend.
type SASLAuthenticator interface {
	AuthenticateSASL(authzid, authcid, password string) (userID int, ok bool)
}

// SASLSession tracks capability negotiation and in-flight AUTHENTICATE
// state for one connection, prior to full IRC registration.
type SASLSession struct {
	CapRequested bool
	Mechanism    string
	pendingNick  string
}

// CapLS returns the advertised capability line for "CAP LS 302"
// (spec.md §4.6: "server advertises multi-prefix and SASL=PLAIN").
func CapLS() string {
	return "multi-prefix sasl=PLAIN"
}

// BeginAuthenticate validates the requested mechanism and returns the "+"
// continuation prompt, or an error if the mechanism isn't PLAIN.
func (s *SASLSession) BeginAuthenticate(mechanism, expectedNick string) (string, error) {
	if !strings.EqualFold(mechanism, "PLAIN") {
		return "", fmt.Errorf("ircd: unsupported SASL mechanism %q", mechanism)
	}
	s.Mechanism = "PLAIN"
	s.pendingNick = expectedNick
	return "+", nil
}

// FinishAuthenticate decodes the base64 PLAIN blob (authzid\0authcid\0passwd),
// verifies the embedded nick matches the NICK sent earlier, authenticates
// against auth, and zeroes the password on both sides of the decode
// buffer once used (spec.md §4.6).
func (s *SASLSession) FinishAuthenticate(blob string, auth SASLAuthenticator) (userID int, cloak string, err error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return 0, "", fmt.Errorf("ircd: malformed SASL PLAIN blob: %w", err)
	}
	defer zero(raw)

	parts := splitNUL(raw)
	if len(parts) != 3 {
		return 0, "", fmt.Errorf("ircd: malformed SASL PLAIN blob: expected 3 fields")
	}
	authzid, authcid, password := string(parts[0]), string(parts[1]), string(parts[2])
	defer zero(parts[2])

	if s.pendingNick != "" && !strings.EqualFold(authcid, s.pendingNick) {
		return 0, "", fmt.Errorf("ircd: SASL identity %q does not match nick %q", authcid, s.pendingNick)
	}

	uid, ok := auth.AuthenticateSASL(authzid, authcid, password)
	if !ok {
		return 0, "", fmt.Errorf("ircd: SASL authentication failed")
	}
	return uid, "", nil
}

// SendSASLSuccess emits numerics 900/903 using the user's cloaked
// hostmask (node/<id>), never the raw connection address.
func SendSASLSuccess(u *User) {
	_ = u.Writef(":%s %d %s %s :You are now logged in as %s", serverName, RPL_LOGGEDIN, u.Nick, u.Prefix(), u.Nick)
	_ = u.Writef(":%s %d %s :SASL authentication successful", serverName, RPL_SASLSUCCESS, u.Nick)
}

// SendSASLFailure emits numeric 904.
func SendSASLFailure(u *User, reason string) {
	_ = u.Writef(":%s %d %s :%s", serverName, ERR_SASLFAIL, u.Nick, reason)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func splitNUL(b []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, c := range b {
		if c == 0 {
			out = append(out, b[start:i])
			start = i + 1
		}
	}
	out = append(out, b[start:])
	return out
}
