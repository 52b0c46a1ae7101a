package domain

// SourceEnrollment is one active enrollment line from the SIS.
type SourceEnrollment struct {
	SISID      string // numeric person id, as text
	Username   string // optional
	CourseCode string
	Term       string
	Year       string
}
