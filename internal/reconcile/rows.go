package reconcile

import (
	"strconv"
	"strings"
	"time"

	"feed-sync/internal/canonical"
	"feed-sync/internal/domain"
	"feed-sync/internal/export"
)

// DefaultBlueprintCourseID is the LMS course new shells are synced from.
const DefaultBlueprintCourseID = "TEMPLATE-ENHANCEDCOURSE"

var (
	CourseColumns     = []string{"course_id", "short_name", "long_name", "term_id", "status", "start_date", "end_date"}
	EnrollmentColumns = []string{"user_id", "course_id"}
)

func courseColumns(blueprintCourseID string) []string {
	cols := append([]string(nil), CourseColumns...)
	if blueprintCourseID != "" {
		cols = append(cols, "blueprint_course_id")
	}
	return cols
}

func courseRow(c domain.SourceCourse, terms canonical.TermTable, blueprintCourseID string) (export.Row, error) {
	id, err := terms.CourseID(c.CourseCode, c.Term, c.Year)
	if err != nil {
		return nil, err
	}

	row := export.Row{
		{Name: "course_id", Value: id},
		{Name: "short_name", Value: id},
		{Name: "long_name", Value: strings.TrimSpace(c.Name)},
		{Name: "term_id", Value: strings.TrimSpace(c.Year) + "-" + strings.TrimSpace(c.Term)},
		{Name: "status", Value: "active"},
		{Name: "start_date", Value: formatDate(c.OpenDate)},
		{Name: "end_date", Value: formatDate(c.CloseDate)},
	}
	if blueprintCourseID != "" {
		row = append(row, export.Field{Name: "blueprint_course_id", Value: blueprintCourseID})
	}
	return row, nil
}

func enrollmentRow(e domain.SourceEnrollment, terms canonical.TermTable) (export.Row, error) {
	userID, err := strconv.Atoi(strings.TrimSpace(e.SISID))
	if err != nil {
		return nil, &canonical.FormatError{Field: "user_id", Value: e.SISID, Reason: "not an integer"}
	}
	courseID, err := terms.CourseID(e.CourseCode, e.Term, e.Year)
	if err != nil {
		return nil, err
	}
	return export.Row{
		{Name: "user_id", Value: strconv.Itoa(userID)},
		{Name: "course_id", Value: courseID},
	}, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
