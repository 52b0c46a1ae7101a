package providers

import (
	"context"

	"feed-sync/internal/domain"
)

// SourceSystem is the SIS. Each call returns the complete active set or an error,
// never a partial page.
type SourceSystem interface {
	Name() string
	ActiveCourses(ctx context.Context) ([]domain.SourceCourse, error)
	ActiveEnrollments(ctx context.Context) ([]domain.SourceEnrollment, error)
}

// TargetSystem is the LMS that ingests the feeds.
type TargetSystem interface {
	Name() string
	Courses(ctx context.Context) ([]domain.TargetCourse, error)
}
