package domain

import (
	"fmt"
	"strings"
)

// FeedType selects which reconciliation variant runs. Values are the action
// labels operators pick from, and they also end up in the feed file name.
type FeedType string

const (
	FeedCourses     FeedType = "Generate Courses CSV"
	FeedEnrollments FeedType = "Generate Users CSV"
)

// FeedTypes lists every supported feed, in menu order.
func FeedTypes() []FeedType {
	return []FeedType{FeedCourses, FeedEnrollments}
}

// ParseFeedType accepts either an action label or a short name.
func ParseFeedType(s string) (FeedType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "courses", "course", strings.ToLower(string(FeedCourses)):
		return FeedCourses, nil
	case "enrollments", "enrollment", "users", strings.ToLower(string(FeedEnrollments)):
		return FeedEnrollments, nil
	}
	return "", fmt.Errorf("domain: unknown feed type %q", s)
}

// Slug is the label lowercased with spaces removed ("generatecoursescsv").
func (f FeedType) Slug() string {
	return strings.ToLower(strings.Join(strings.Fields(string(f)), ""))
}
