package canonical

import "strings"

// IdentifierSet holds the canonical ids already provisioned in the LMS.
// It is filled once by NewIdentifierSet and never written afterwards.
type IdentifierSet struct {
	ids map[string]struct{}
}

// NewIdentifierSet builds a set from LMS sis_course_id values. Blank ids
// (courses created by hand in the LMS) are skipped.
func NewIdentifierSet(ids []string) IdentifierSet {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		m[id] = struct{}{}
	}
	return IdentifierSet{ids: m}
}

func (s IdentifierSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s IdentifierSet) Len() int {
	return len(s.ids)
}
