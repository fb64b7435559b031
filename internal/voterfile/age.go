package voterfile

import "time"

// Age bracket labels, from youngest to oldest.
const (
	BracketUnder18 = "Under 18"
	Bracket18to24  = "18-24"
	Bracket25to34  = "25-34"
	Bracket35to44  = "35-44"
	Bracket45to54  = "45-54"
	Bracket55to64  = "55-64"
	Bracket65to74  = "65-74"
	Bracket75Plus  = "75+"
	BracketUnknown = "Unknown"
)

// AgeFromDOB computes age in whole years from a YYYYMMDD date-of-birth
// string as of the reference date. Returns nil for malformed input.
func AgeFromDOB(dob string, reference time.Time) *int {
	if len(dob) != 8 {
		return nil
	}
	born, err := time.Parse("20060102", dob)
	if err != nil {
		return nil
	}

	age := reference.Year() - born.Year()
	// Birthday not yet reached this year.
	if reference.Month() < born.Month() ||
		(reference.Month() == born.Month() && reference.Day() < born.Day()) {
		age--
	}
	if age < 0 {
		return nil
	}
	return &age
}

// AgeBracket buckets an age into the bracket labels above.
func AgeBracket(age *int) string {
	if age == nil {
		return BracketUnknown
	}
	switch a := *age; {
	case a < 18:
		return BracketUnder18
	case a <= 24:
		return Bracket18to24
	case a <= 34:
		return Bracket25to34
	case a <= 44:
		return Bracket35to44
	case a <= 54:
		return Bracket45to54
	case a <= 64:
		return Bracket55to64
	case a <= 74:
		return Bracket65to74
	default:
		return Bracket75Plus
	}
}
