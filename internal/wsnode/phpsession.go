package wsnode

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/stlalpha/vision3bbs/internal/phpsession"
)

// maxSessionFileBytes bounds how much of a sess_<id> file is read,
// mirroring net_ws.c's php_load_session, which reads at most 8192 bytes
// of the session file before giving up.
const maxSessionFileBytes = 8192

// SessionConfig names the companion PHP web front end's session cookie
// and storage directory (net_ws.c's phpsessname/phpsessdir/phpsessprefix
// config values). A zero-value SessionConfig disables lookups entirely.
type SessionConfig struct {
	Dir    string // directory holding sess_<id> files
	Cookie string // session cookie name
	Prefix string // optional top-level key naming a nested array to look inside
}

func (c SessionConfig) enabled() bool {
	return c.Dir != "" && c.Cookie != ""
}

// sessionVars parses the PHP session file named by r's session cookie,
// descending into the configured prefix array if one is set. It returns
// ok=false whenever the session can't be resolved for any reason (no
// cookie, missing file, oversized file, malformed contents) — matching
// net_ws.c's own "just report not found" behavior rather than surfacing
// a hard error to the caller.
func (c SessionConfig) sessionVars(r *http.Request) (vars []phpsession.Var, ok bool) {
	if !c.enabled() {
		return nil, false
	}
	cookie, err := r.Cookie(c.Cookie)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	path := filepath.Join(c.Dir, "sess_"+cookie.Value)
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSessionFileBytes+1))
	if err != nil || len(data) > maxSessionFileBytes {
		return nil, false
	}

	vars, err = phpsession.Unserialize(data)
	if err != nil {
		return nil, false
	}

	if c.Prefix == "" {
		return vars, true
	}
	prefixed, found := phpsession.Find(vars, c.Prefix)
	if !found || prefixed.Kind != phpsession.KindArray {
		return nil, false
	}
	return arrayVars(prefixed), true
}

// arrayVars re-wraps a parsed array's entries as top-level Vars so
// phpsession.Find can be reused for the nested-prefix lookup; array keys
// that aren't strings (PHP's sequential arrays serialize their keys as
// integers, i:N) are skipped since SessionString/SessionNumber only look
// up by name.
func arrayVars(array phpsession.Value) []phpsession.Var {
	vars := make([]phpsession.Var, 0, len(array.Array))
	for _, e := range array.Array {
		if e.Key.Kind != phpsession.KindString {
			continue
		}
		vars = append(vars, phpsession.Var{Name: e.Key.String, Value: e.Value})
	}
	return vars
}

// SessionString mirrors net_ws.c's websocket_session_data_string: look
// up key in the PHP session tied to r's cookie, returning ("", false) if
// it's absent or isn't a string.
func (l *Listener) SessionString(r *http.Request, key string) (string, bool) {
	vars, ok := l.Session.sessionVars(r)
	if !ok {
		return "", false
	}
	v, found := phpsession.Find(vars, key)
	if !found || v.Kind != phpsession.KindString {
		return "", false
	}
	return v.String, true
}

// SessionNumber mirrors net_ws.c's websocket_session_data_number, which
// additionally coerces bools and numeric strings to an int (PHP sessions
// don't distinguish between these as sharply as Go does).
func (l *Listener) SessionNumber(r *http.Request, key string) (int64, bool) {
	vars, ok := l.Session.sessionVars(r)
	if !ok {
		return 0, false
	}
	v, found := phpsession.Find(vars, key)
	if !found {
		return 0, false
	}
	switch v.Kind {
	case phpsession.KindNumber:
		return v.Number, true
	case phpsession.KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case phpsession.KindString:
		n, err := parseLeadingInt(v.String)
		return n, err == nil
	default:
		return 0, false
	}
}

// parseLeadingInt mimics atoi: parse as many leading digits (with an
// optional sign) as present, ignoring anything non-numeric after them.
func parseLeadingInt(s string) (int64, error) {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0, io.ErrUnexpectedEOF
	}
	var n int64
	neg := len(s) > 0 && s[0] == '-'
	for _, c := range s[start:i] {
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
