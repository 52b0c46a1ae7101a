package canonical

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeCode turns a raw SIS section code into its dash-delimited form:
// "GWD  6610 20" -> "GWD-6610-20". Runs of whitespace (including no-break and
// full-width spaces) collapse to a single separator. Nothing else is rewritten,
// so codes with different alphanumeric content never collide.
func NormalizeCode(raw string) (string, error) {
	segments := strings.Fields(norm.NFKC.String(raw))
	if !hasAlnum(segments) {
		return "", &FormatError{Field: "course_code", Value: raw, Reason: "no alphanumeric segments"}
	}
	return strings.Join(segments, "-"), nil
}

func hasAlnum(segments []string) bool {
	for _, s := range segments {
		for _, r := range s {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return true
			}
		}
	}
	return false
}
