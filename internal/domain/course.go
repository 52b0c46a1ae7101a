package domain

import "time"

// SourceCourse is one course offering as the SIS (Jenzabar) reports it.
// CourseCode is the raw section code, whitespace and all ("GWD  6610 20").
type SourceCourse struct {
	CourseCode       string
	ParentCourseCode string // equals CourseCode for the primary offering of a cross-listing
	Term             string // two-letter SIS term code, e.g. "FA"
	Year             string // four digit year, e.g. "2018"
	Name             string

	StartDate time.Time
	OpenDate  time.Time // zero when unknown
	CloseDate time.Time // zero when unknown
}

// IsParent reports whether the offering is its own parent (not a child/cross-listed section).
func (c SourceCourse) IsParent() bool {
	return c.CourseCode == c.ParentCourseCode
}

// TargetCourse is the minimal representation we need from the LMS (Canvas).
// Only SISCourseID takes part in the diff; the rest is kept for logging.
type TargetCourse struct {
	ID            int64
	SISCourseID   string
	Name          string
	CourseCode    string
	WorkflowState string
	StartAt       time.Time
	EndAt         time.Time
}
