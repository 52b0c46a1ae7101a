package canonical

import "fmt"

// FormatError reports a source value that cannot be turned into part of a
// canonical identifier. The raw value is kept so the offending SIS row can be found.
type FormatError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("canonical: invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// UnmappedTermError reports a term/year pair missing from the term table.
// The table is exhaustive; a gap is a configuration bug.
type UnmappedTermError struct {
	Term string
	Year string
}

func (e *UnmappedTermError) Error() string {
	return fmt.Sprintf("canonical: no term mapping for term=%q year=%q", e.Term, e.Year)
}
