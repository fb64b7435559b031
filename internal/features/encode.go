package features

import (
	"sort"

	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// UnseenCategory is the encoding for categories absent at fit time and for
// missing values.
const UnseenCategory = -1

// LabelEncoder maps category strings to stable small integers. It fits once
// on the training population and serializes with the model artifact so
// inference reuses identical encodings.
type LabelEncoder struct {
	Classes map[string]int `json:"classes"`
}

// FitLabelEncoder assigns codes to the distinct non-empty values in order,
// sorted for run-to-run stability.
func FitLabelEncoder(values []string) *LabelEncoder {
	seen := map[string]bool{}
	for _, v := range values {
		if v != "" {
			seen[v] = true
		}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	enc := &LabelEncoder{Classes: make(map[string]int, len(classes))}
	for i, v := range classes {
		enc.Classes[v] = i
	}
	return enc
}

// Transform encodes one value, returning UnseenCategory for empty or
// never-seen values.
func (e *LabelEncoder) Transform(value string) int {
	if e == nil || value == "" {
		return UnseenCategory
	}
	if code, ok := e.Classes[value]; ok {
		return code
	}
	return UnseenCategory
}

// Encoders bundles the categorical encoders the model needs at inference.
type Encoders struct {
	County     *LabelEncoder `json:"county"`
	City       *LabelEncoder `json:"city"`
	AgeBracket *LabelEncoder `json:"age_bracket"`
}

// FitEncoders fits all categorical encoders over the full voter population,
// so inference-time voters in counties without known primary voters still
// encode consistently.
func FitEncoders(voters []*voterfile.Voter) Encoders {
	counties := make([]string, 0, len(voters))
	cities := make([]string, 0, len(voters))
	brackets := make([]string, 0, len(voters))
	for _, v := range voters {
		counties = append(counties, v.CountyName)
		cities = append(cities, v.City)
		brackets = append(brackets, v.AgeBracket)
	}
	return Encoders{
		County:     FitLabelEncoder(counties),
		City:       FitLabelEncoder(cities),
		AgeBracket: FitLabelEncoder(brackets),
	}
}
