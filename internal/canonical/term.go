package canonical

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TermTable maps a SIS term code to the single-letter season used in LMS ids.
type TermTable map[string]string

// DefaultTerms is the institution calendar.
// SP maps to W: the LMS names the spring register its winter term.
var DefaultTerms = TermTable{
	"FA": "F",
	"SP": "W",
	"SU": "S",
}

// MapTerm returns the season letter followed by the two-digit year ("FA", "2018" -> "F18").
func (t TermTable) MapTerm(term, year string) (string, error) {
	term = strings.TrimSpace(term)
	year = strings.TrimSpace(year)

	season, ok := t[term]
	if !ok || !isYear(year) {
		return "", &UnmappedTermError{Term: term, Year: year}
	}
	return season + year[2:], nil
}

// CourseID builds the canonical identifier: NormalizeCode(code) + "-" + MapTerm(term, year).
// The LMS uses it as sis_course_id, so the format must not drift.
func (t TermTable) CourseID(code, term, year string) (string, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return "", err
	}
	token, err := t.MapTerm(term, year)
	if err != nil {
		return "", err
	}
	return normalized + "-" + token, nil
}

// MapTerm maps with DefaultTerms.
func MapTerm(term, year string) (string, error) {
	return DefaultTerms.MapTerm(term, year)
}

// BuildCourseID builds a canonical identifier with DefaultTerms.
func BuildCourseID(code, term, year string) (string, error) {
	return DefaultTerms.CourseID(code, term, year)
}

// LoadTermTable reads a YAML mapping of term code to season letter, e.g.
//
//	FA: F
//	SP: W
//
// The file replaces DefaultTerms entirely. Two codes sharing a season letter
// would make distinct courses share an id, so that is rejected.
func LoadTermTable(path string) (TermTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("canonical: read term table: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("canonical: parse term table %s: %w", path, err)
	}

	out := make(TermTable, len(raw))
	codeBySeason := map[string]string{}
	for code, season := range raw {
		code = strings.TrimSpace(code)
		season = strings.TrimSpace(season)
		if code == "" || season == "" {
			return nil, fmt.Errorf("canonical: term table %s: empty entry %q -> %q", path, code, season)
		}
		if prev, dup := codeBySeason[season]; dup {
			return nil, fmt.Errorf("canonical: term table %s: %q and %q both map to %q", path, prev, code, season)
		}
		codeBySeason[season] = code
		out[code] = season
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("canonical: term table %s is empty", path)
	}
	return out, nil
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
