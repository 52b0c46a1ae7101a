package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feed-sync/internal/canonical"
	"feed-sync/internal/domain"
	"feed-sync/internal/export"
)

type fakeSIS struct {
	courses     func(ctx context.Context) ([]domain.SourceCourse, error)
	enrollments func(ctx context.Context) ([]domain.SourceEnrollment, error)
}

func (f *fakeSIS) Name() string { return "jex" }

func (f *fakeSIS) ActiveCourses(ctx context.Context) ([]domain.SourceCourse, error) {
	return f.courses(ctx)
}

func (f *fakeSIS) ActiveEnrollments(ctx context.Context) ([]domain.SourceEnrollment, error) {
	return f.enrollments(ctx)
}

type fakeLMS struct {
	courses func(ctx context.Context) ([]domain.TargetCourse, error)
}

func (f *fakeLMS) Name() string { return "canvas" }

func (f *fakeLMS) Courses(ctx context.Context) ([]domain.TargetCourse, error) {
	return f.courses(ctx)
}

var today = time.Date(2018, time.September, 10, 12, 0, 0, 0, time.UTC)

func parentCourse(code, name string, start time.Time) domain.SourceCourse {
	return domain.SourceCourse{
		CourseCode:       code,
		ParentCourseCode: code,
		Term:             "FA",
		Year:             "2018",
		Name:             name,
		StartDate:        start,
		OpenDate:         start,
		CloseDate:        start.AddDate(0, 3, 0),
	}
}

func newPipeline(courses []domain.SourceCourse, existing ...string) *Pipeline {
	return &Pipeline{
		Source: &fakeSIS{courses: func(context.Context) ([]domain.SourceCourse, error) { return courses, nil }},
		Target: &fakeLMS{courses: func(context.Context) ([]domain.TargetCourse, error) {
			out := make([]domain.TargetCourse, 0, len(existing))
			for i, id := range existing {
				out = append(out, domain.TargetCourse{ID: int64(i + 1), SISCourseID: id})
			}
			return out, nil
		}},
	}
}

func value(r export.Row, name string) string {
	for _, f := range r {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func TestEnrollmentRowsScenario(t *testing.T) {
	p := &Pipeline{
		Source: &fakeSIS{enrollments: func(context.Context) ([]domain.SourceEnrollment, error) {
			return []domain.SourceEnrollment{
				{SISID: "1", Username: "user1", CourseCode: "GWD  6610 20", Term: "FA", Year: "2018"},
				{SISID: "1", CourseCode: "AH 1000 01", Term: "FA", Year: "2018"},
				{SISID: "2", CourseCode: "AH  1000 20", Term: "SP", Year: "2019"},
			}, nil
		}},
		Target: &fakeLMS{courses: func(context.Context) ([]domain.TargetCourse, error) {
			t.Error("enrollment feed must not query the LMS")
			return nil, nil
		}},
	}

	rows, err := p.EnrollmentRows(context.Background())
	require.NoError(t, err)

	expected := []export.Row{
		{{Name: "user_id", Value: "1"}, {Name: "course_id", Value: "GWD-6610-20-F18"}},
		{{Name: "user_id", Value: "1"}, {Name: "course_id", Value: "AH-1000-01-F18"}},
		{{Name: "user_id", Value: "2"}, {Name: "course_id", Value: "AH-1000-20-W19"}},
	}
	assert.Equal(t, expected, rows)
}

func TestEnrollmentRowsRejectsNonNumericUser(t *testing.T) {
	p := &Pipeline{Source: &fakeSIS{enrollments: func(context.Context) ([]domain.SourceEnrollment, error) {
		return []domain.SourceEnrollment{{SISID: "abc", CourseCode: "AH 1000 01", Term: "FA", Year: "2018"}}, nil
	}}}

	_, err := p.EnrollmentRows(context.Background())
	var fe *canonical.FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "user_id", fe.Field)
	assert.Equal(t, "abc", fe.Value)
}

func TestCourseRowsScenario(t *testing.T) {
	p := newPipeline([]domain.SourceCourse{
		parentCourse("GWD 6610 20", "Graphic Web Design", today.AddDate(0, 0, 20)),
	})

	rows, err := p.CourseRows(context.Background(), CourseOptions{Today: today, BlueprintCourseID: DefaultBlueprintCourseID})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	start := today.AddDate(0, 0, 20)
	expected := export.Row{
		{Name: "course_id", Value: "GWD-6610-20-F18"},
		{Name: "short_name", Value: "GWD-6610-20-F18"},
		{Name: "long_name", Value: "Graphic Web Design"},
		{Name: "term_id", Value: "2018-FA"},
		{Name: "status", Value: "active"},
		{Name: "start_date", Value: start.Format(time.RFC3339)},
		{Name: "end_date", Value: start.AddDate(0, 3, 0).Format(time.RFC3339)},
		{Name: "blueprint_course_id", Value: "TEMPLATE-ENHANCEDCOURSE"},
	}
	assert.Equal(t, expected, rows[0])
}

func TestCourseRowsFilters(t *testing.T) {
	child := parentCourse("AH 1000 02", "Child", today.AddDate(0, 0, 5))
	child.ParentCourseCode = "AH 1000 01"

	p := newPipeline([]domain.SourceCourse{
		parentCourse("AH 1000 01", "Parent", today.AddDate(0, 0, 5)),
		child,
		parentCourse("BIO 101 01", "Already there", today.AddDate(0, 0, 5)),
		parentCourse("OLD 100 01", "Started a month ago", today.AddDate(0, 0, -30)),
		parentCourse("NEW 100 01", "Started last week", today.AddDate(0, 0, -7)),
	}, "BIO-101-01-F18", "", "SOMETHING-ELSE")

	res, err := p.Run(context.Background(), domain.FeedCourses, CourseOptions{Today: today})
	require.NoError(t, err)

	var ids []string
	for _, r := range res.Rows {
		ids = append(ids, value(r, "course_id"))
	}
	assert.Equal(t, []string{"NEW-100-01-F18", "AH-1000-01-F18"}, ids)
	assert.Equal(t, 5, res.Fetched)
	assert.Equal(t, 2, res.Existing)
	assert.Equal(t, map[string]int{"start_window": 1, "parent": 1, "exists": 1}, res.Excluded)
	assert.Equal(t, CourseColumns, res.Columns)
	assert.NotEmpty(t, res.RunID)
}

func TestCourseRowsNeverEmitExistingIDs(t *testing.T) {
	var courses []domain.SourceCourse
	var existing []string
	for i, code := range []string{"A 1", "B 2", "C 3", "D 4", "E 5", "F 6"} {
		courses = append(courses, parentCourse(code, code, today.AddDate(0, 0, i)))
		if i%2 == 0 {
			id, err := canonical.BuildCourseID(code, "FA", "2018")
			require.NoError(t, err)
			existing = append(existing, id)
		}
	}

	rows, err := newPipeline(courses, existing...).CourseRows(context.Background(), CourseOptions{Today: today})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	set := canonical.NewIdentifierSet(existing)
	for _, r := range rows {
		assert.False(t, set.Has(value(r, "course_id")))
	}
}

func TestCourseRowsStableOnEqualStartDates(t *testing.T) {
	same := today.AddDate(0, 0, 3)
	p := newPipeline([]domain.SourceCourse{
		parentCourse("Z 1", "z", same),
		parentCourse("A 1", "a", same),
		parentCourse("M 1", "m", today.AddDate(0, 0, 1)),
		parentCourse("B 1", "b", same),
	})

	rows, err := p.CourseRows(context.Background(), CourseOptions{Today: today})
	require.NoError(t, err)

	var ids []string
	for _, r := range rows {
		ids = append(ids, value(r, "course_id"))
	}
	assert.Equal(t, []string{"M-1-F18", "Z-1-F18", "A-1-F18", "B-1-F18"}, ids)
}

func TestCourseRowsRequiresReferenceDate(t *testing.T) {
	_, err := newPipeline(nil).CourseRows(context.Background(), CourseOptions{})
	assert.Error(t, err)
}

func TestCourseRowsUnmappedTermAborts(t *testing.T) {
	bad := parentCourse("AH 1000 01", "x", today)
	bad.Term = "WI"

	_, err := newPipeline([]domain.SourceCourse{bad}).Run(context.Background(), domain.FeedCourses, CourseOptions{Today: today})
	var ue *canonical.UnmappedTermError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, err.Error(), string(domain.FeedCourses))
}

func TestCourseRowsCustomTerms(t *testing.T) {
	c := parentCourse("AH 1000 01", "x", today)
	c.Term = "WI"

	p := newPipeline([]domain.SourceCourse{c})
	p.Terms = canonical.TermTable{"WI": "V"}

	rows, err := p.CourseRows(context.Background(), CourseOptions{Today: today})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AH-1000-01-V18", value(rows[0], "course_id"))
}

func TestRunUpstreamFailure(t *testing.T) {
	boom := errors.New("connection refused")

	testCases := []struct {
		name   string
		sis    func(context.Context) ([]domain.SourceCourse, error)
		lms    func(context.Context) ([]domain.TargetCourse, error)
		system string
	}{
		{
			name:   "sis fails",
			sis:    func(context.Context) ([]domain.SourceCourse, error) { return nil, boom },
			lms:    func(context.Context) ([]domain.TargetCourse, error) { return nil, nil },
			system: "jex",
		},
		{
			name:   "lms fails",
			sis:    func(context.Context) ([]domain.SourceCourse, error) { return []domain.SourceCourse{parentCourse("A 1", "a", today)}, nil },
			lms:    func(context.Context) ([]domain.TargetCourse, error) { return nil, boom },
			system: "canvas",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Pipeline{Source: &fakeSIS{courses: tc.sis}, Target: &fakeLMS{courses: tc.lms}}

			res, err := p.Run(context.Background(), domain.FeedCourses, CourseOptions{Today: today})
			assert.Nil(t, res)

			var ue *UpstreamFetchError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, tc.system, ue.System)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestRunFetchesConcurrently(t *testing.T) {
	sisStarted := make(chan struct{})
	lmsStarted := make(chan struct{})

	wait := func(ctx context.Context, ch <-chan struct{}) error {
		select {
		case <-ch:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("other fetch never started")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p := &Pipeline{
		Source: &fakeSIS{courses: func(ctx context.Context) ([]domain.SourceCourse, error) {
			close(sisStarted)
			if err := wait(ctx, lmsStarted); err != nil {
				return nil, err
			}
			return []domain.SourceCourse{parentCourse("A 1", "a", today)}, nil
		}},
		Target: &fakeLMS{courses: func(ctx context.Context) ([]domain.TargetCourse, error) {
			close(lmsStarted)
			if err := wait(ctx, sisStarted); err != nil {
				return nil, err
			}
			return nil, nil
		}},
	}

	res, err := p.Run(context.Background(), domain.FeedCourses, CourseOptions{Today: today})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
}

func TestRunCancelledFetchAbortsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pipeline{
		Source: &fakeSIS{courses: func(ctx context.Context) ([]domain.SourceCourse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
		Target: &fakeLMS{courses: func(context.Context) ([]domain.TargetCourse, error) {
			cancel()
			return nil, nil
		}},
	}

	_, err := p.Run(ctx, domain.FeedCourses, CourseOptions{Today: today})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmptyFeedIsHeaderOnly(t *testing.T) {
	p := newPipeline([]domain.SourceCourse{
		parentCourse("OLD 1", "old", today.AddDate(-1, 0, 0)),
	})

	res, err := p.Run(context.Background(), domain.FeedCourses, CourseOptions{Today: today, BlueprintCourseID: DefaultBlueprintCourseID})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Equal(t, "course_id,short_name,long_name,term_id,status,start_date,end_date,blueprint_course_id\n", res.CSV)
}

func TestRunEnrollmentCSV(t *testing.T) {
	p := &Pipeline{Source: &fakeSIS{enrollments: func(context.Context) ([]domain.SourceEnrollment, error) {
		return []domain.SourceEnrollment{{SISID: " 42 ", CourseCode: "AH 1000 01", Term: "FA", Year: "2018"}}, nil
	}}}

	res, err := p.Run(context.Background(), domain.FeedEnrollments, CourseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "user_id,course_id\n42,AH-1000-01-F18\n", res.CSV)
	assert.Equal(t, 1, res.Fetched)
}

func TestRunUnknownFeed(t *testing.T) {
	_, err := newPipeline(nil).Run(context.Background(), domain.FeedType("Generate Grades CSV"), CourseOptions{Today: today})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported"))
}
