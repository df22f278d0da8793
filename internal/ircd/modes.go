// Mode bitsets for the IRC channel engine (spec.md §4.6, component F).
// Grounded on spec.md's GLOSSARY letter table; the lattice comparison
// (atleast) follows the A/B/C/D category split RFC 2812's ISUPPORT
// CHANMODES convention uses.
package ircd

// ChannelMode is a bitset over the standard A/B/C/D channel mode
// categories (spec.md GLOSSARY): S j l m n p r s t z.
type ChannelMode uint16

const (
	ModeTLSOnly ChannelMode = 1 << iota // S
	ModeThrottled                       // j (declared, unimplemented — spec.md §9 Open Question)
	ModeLimit                           // l
	ModeModerated                       // m
	ModeNoExternal                      // n
	ModePrivate                         // p
	ModeRegisteredOnly                  // r
	ModeSecret                          // s
	ModeTopicProtected                  // t
	ModeReducedModeration               // z
)

// Has reports whether m contains flag.
func (m ChannelMode) Has(flag ChannelMode) bool { return m&flag != 0 }

// MemberRank is the member privilege lattice: founder > admin; op >
// half-op > voice; founder/admin are orthogonal status markers.
type MemberRank uint8

const (
	RankNone MemberRank = iota
	RankVoice
	RankHalfOp
	RankOp
)

// MemberBits is the per-member mode bitset (q a o h v).
type MemberBits uint8

const (
	BitFounder MemberBits = 1 << iota // q
	BitAdmin                          // a
	BitOp                             // o
	BitHalfOp                         // h
	BitVoice                          // v
)

// Rank reduces the bitset to the op/half-op/voice lattice position,
// ignoring the orthogonal founder/admin status markers (spec.md §3:
// "founder/admin are orthogonal status markers that do not imply op").
func (b MemberBits) Rank() MemberRank {
	switch {
	case b&BitOp != 0:
		return RankOp
	case b&BitHalfOp != 0:
		return RankHalfOp
	case b&BitVoice != 0:
		return RankVoice
	default:
		return RankNone
	}
}

// AtLeast implements spec.md §3's atleast(M, level): true when M's rank
// meets or exceeds level, with the explicit exception that op satisfies
// a voice check for send-authorization purposes (op-or-better implies
// voice "only when the implementation chooses to fall through" — this
// implementation does, since every privmsg/notice check in §4.6 is
// phrased as a send-authorization check).
func (b MemberBits) AtLeast(level MemberRank) bool {
	return b.Rank() >= level
}

// Prefix returns the single highest-held display prefix character for a
// member-line (spec.md §6: "Member-line prefix shows only the highest
// held"), preferring founder/admin status markers over the op lattice.
func (b MemberBits) Prefix() string {
	switch {
	case b&BitFounder != 0:
		return "~"
	case b&BitAdmin != 0:
		return "&"
	case b&BitOp != 0:
		return "@"
	case b&BitHalfOp != 0:
		return "%"
	case b&BitVoice != 0:
		return "+"
	default:
		return ""
	}
}

// UserMode is the per-user global mode bitset: invisible, server-
// operator, secure-connection.
type UserMode uint8

const (
	UserModeInvisible UserMode = 1 << iota // i
	UserModeOperator                       // o
	UserModeSecure                         // Z
)
