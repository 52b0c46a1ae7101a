// Package filters decides which SIS records make it into a feed.
package filters

import (
	"slices"
	"time"

	"feed-sync/internal/canonical"
	"feed-sync/internal/domain"
)

// StartWindow is how long after its start date a course is still provisioned.
const StartWindow = 14 * 24 * time.Hour

// Predicate keeps a record when Keep returns true. Name is used for exclusion counts.
type Predicate[T any] struct {
	Name string
	Keep func(T) (bool, error)
}

// Apply runs the predicates in order. A record is dropped at its first failing
// predicate, so later predicates never see it. A predicate error aborts the pass.
func Apply[T any](records []T, preds ...Predicate[T]) ([]T, map[string]int, error) {
	excluded := make(map[string]int, len(preds))
	out := make([]T, 0, len(records))

next:
	for _, r := range records {
		for _, p := range preds {
			keep, err := p.Keep(r)
			if err != nil {
				return nil, excluded, err
			}
			if !keep {
				excluded[p.Name]++
				continue next
			}
		}
		out = append(out, r)
	}
	return out, excluded, nil
}

// StartedWithin keeps courses that started less than window before today
// (or have not started yet): today < start + window.
func StartedWithin(today time.Time, window time.Duration) Predicate[domain.SourceCourse] {
	return Predicate[domain.SourceCourse]{
		Name: "start_window",
		Keep: func(c domain.SourceCourse) (bool, error) {
			return today.Before(c.StartDate.Add(window)), nil
		},
	}
}

// OnlyParentCourses drops child and cross-listed sections; only the parent gets a course shell.
func OnlyParentCourses() Predicate[domain.SourceCourse] {
	return Predicate[domain.SourceCourse]{
		Name: "parent",
		Keep: func(c domain.SourceCourse) (bool, error) {
			return c.IsParent(), nil
		},
	}
}

// NotProvisioned drops courses whose canonical id already exists in the LMS.
func NotProvisioned(existing canonical.IdentifierSet, terms canonical.TermTable) Predicate[domain.SourceCourse] {
	return Predicate[domain.SourceCourse]{
		Name: "exists",
		Keep: func(c domain.SourceCourse) (bool, error) {
			id, err := terms.CourseID(c.CourseCode, c.Term, c.Year)
			if err != nil {
				return false, err
			}
			return !existing.Has(id), nil
		},
	}
}

// SortByStartDate sorts ascending by start date. Courses starting at the same
// instant keep their fetch order.
func SortByStartDate(courses []domain.SourceCourse) {
	slices.SortStableFunc(courses, func(a, b domain.SourceCourse) int {
		return a.StartDate.Compare(b.StartDate)
	})
}
