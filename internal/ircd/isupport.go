package ircd

// ISUPPORTTokens are advertised verbatim (spec.md §6), in the numeric 005
// line, split across multiple lines if long.
var ISUPPORTTokens = []string{
	"SAFELIST",
	"CHANTYPES=#&",
	"CHANMODES=" + chanModesValue,
	"CHANLIMIT=#:20,&:20",
	"PREFIX=(qaohv)~&@%+",
	"MAXLIST=b:100",
	"NICKLEN=30",
	"MAXNICKLEN=31",
	"USERLEN=18",
	"ELIST=TU",
	"AWAYLEN=300",
	"CHANNELLEN=50",
	"HOSTLEN=64",
	"NETWORK=VisionNet",
	"STATUSMSG=&@%+",
	"TOPICLEN=390",
}

// chanModesValue is CHANMODES=<A,B,C,D>: A (list, e.g. ban — unused
// here), B (always takes a param — none in this mode set), C (param
// only when set, e.g. limit l), D (no param — the remaining flags).
const chanModesValue = ",,l,Sjmnprstz"

const chanPrefix = "#&"
