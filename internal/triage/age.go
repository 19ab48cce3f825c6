package triage

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultAge is assumed when the age range is missing or unparseable.
const DefaultAge = 30

var (
	agePlain  = regexp.MustCompile(`^\d{1,3}$`)
	ageRange  = regexp.MustCompile(`^(\d{1,3})\s*-\s*(\d{1,3})$`)
	ageDecade = regexp.MustCompile(`^(\d{2})'?s$`)
	ageDigits = regexp.MustCompile(`\d{1,3}`)
)

// ParseAge converts an age range such as "42", "30-39" or "30s" into a
// single age. Ranges use the integer midpoint and decades add 5.
func ParseAge(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultAge
	}
	if agePlain.MatchString(s) {
		return atoi(s)
	}
	if m := ageRange.FindStringSubmatch(s); m != nil {
		return (atoi(m[1]) + atoi(m[2])) / 2
	}
	if m := ageDecade.FindStringSubmatch(strings.ToLower(s)); m != nil {
		return atoi(m[1]) + 5
	}
	if d := ageDigits.FindString(s); d != "" {
		return atoi(d)
	}
	return DefaultAge
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return DefaultAge
	}
	return n
}
