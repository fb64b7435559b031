package voterfile

import (
	"testing"
	"time"
)

var nov2024 = time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

func TestAgeFromDOB(t *testing.T) {
	cases := []struct {
		name string
		dob  string
		want int
		nil_ bool
	}{
		{"birthday passed", "19800601", 44, false},
		{"birthday not yet", "19801225", 43, false},
		{"birthday today", "19801101", 44, false},
		{"malformed short", "1980", 0, true},
		{"malformed month", "19801301", 0, true},
		{"empty", "", 0, true},
		{"future dob", "20301101", 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AgeFromDOB(tc.dob, nov2024)
			if tc.nil_ {
				if got != nil {
					t.Errorf("AgeFromDOB(%q) = %d, want nil", tc.dob, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("AgeFromDOB(%q) = nil, want %d", tc.dob, tc.want)
			}
			if *got != tc.want {
				t.Errorf("AgeFromDOB(%q) = %d, want %d", tc.dob, *got, tc.want)
			}
		})
	}
}

func TestAgeBracket(t *testing.T) {
	cases := []struct {
		age  int
		want string
	}{
		{17, BracketUnder18},
		{18, Bracket18to24},
		{24, Bracket18to24},
		{25, Bracket25to34},
		{34, Bracket25to34},
		{44, Bracket35to44},
		{54, Bracket45to54},
		{64, Bracket55to64},
		{74, Bracket65to74},
		{75, Bracket75Plus},
		{99, Bracket75Plus},
	}
	for _, tc := range cases {
		a := tc.age
		if got := AgeBracket(&a); got != tc.want {
			t.Errorf("AgeBracket(%d) = %q, want %q", tc.age, got, tc.want)
		}
	}
	if got := AgeBracket(nil); got != BracketUnknown {
		t.Errorf("AgeBracket(nil) = %q, want %q", got, BracketUnknown)
	}
}
