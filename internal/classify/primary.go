package classify

import "strings"

// Party is a voter's party classification derived from primary history
// (or, for general-election-only voters, from the preference model).
type Party string

const (
	Republican Party = "Republican"
	Democrat   Party = "Democrat"
	Swing      Party = "Swing"
	Unknown    Party = "Unknown"
)

// partyCodes maps raw primary ballot codes from the voter file to party names.
// Codes outside this table (and blanks) classify as Unknown.
var partyCodes = map[string]string{
	"RE":    "Republican",
	"DE":    "Democrat",
	"DE/RE": "Democrat/Republican",
	"RE/DE": "Republican/Democrat",
	"LI":    "Libertarian",
	"GR":    "Green",
	"UN":    "Unaffiliated",
}

// PartyName resolves a raw primary ballot code (e.g. "RE") to a full party
// name, or "Unknown" for blank/unrecognized codes.
func PartyName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "Unknown"
	}
	if name, ok := partyCodes[code]; ok {
		return name
	}
	return "Unknown"
}

// Classification is the result of classifying a voter's primary history.
type Classification struct {
	Party      Party
	RepVotes   int
	DemVotes   int
	TotalVotes int
}

// ClassifyPrimaryCodes classifies a voter from up to 4 primary ballot codes,
// ordered most recent first.
//
// A single cross-party vote anywhere in the window makes the voter Swing,
// regardless of how lopsided the counts are: 3 Republican ballots and 1
// Democrat ballot is Swing, not Republican. Only-one-party patterns classify
// as that party; no ballots at all is Unknown. The function is total and
// never fails.
func ClassifyPrimaryCodes(codes []string) Classification {
	var c Classification
	for _, code := range codes {
		switch PartyName(code) {
		case "Republican":
			c.RepVotes++
		case "Democrat":
			c.DemVotes++
		}
	}
	c.TotalVotes = c.RepVotes + c.DemVotes

	switch {
	case c.TotalVotes == 0:
		c.Party = Unknown
	case c.RepVotes > 0 && c.DemVotes > 0:
		c.Party = Swing
	case c.RepVotes > 0:
		c.Party = Republican
	case c.DemVotes > 0:
		c.Party = Democrat
	default:
		// Unreachable given the cases above; kept as a safe default.
		c.Party = Unknown
	}
	return c
}
