// Package reconcile diffs SIS records against the LMS and shapes feed rows.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"feed-sync/internal/canonical"
	"feed-sync/internal/domain"
	"feed-sync/internal/export"
	"feed-sync/internal/filters"
	"feed-sync/internal/providers"
)

// CourseOptions tunes a course feed run.
type CourseOptions struct {
	// Today is the reference date for the start window. Required.
	Today time.Time
	// BlueprintCourseID adds a blueprint_course_id column when set.
	BlueprintCourseID string
}

// Result is the outcome of one run. Zero Rows is a successful, empty feed.
type Result struct {
	RunID    string
	Feed     domain.FeedType
	Columns  []string
	Rows     []export.Row
	Fetched  int
	Existing int
	Excluded map[string]int
	CSV      string
}

// Pipeline runs one feed at a time. It holds no state between runs, so one
// value can serve concurrent runs.
type Pipeline struct {
	Source providers.SourceSystem
	Target providers.TargetSystem
	Terms  canonical.TermTable
	Logger *zap.Logger
}

// Run builds and serializes the requested feed.
func (p *Pipeline) Run(ctx context.Context, feed domain.FeedType, opts CourseOptions) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Feed: feed}
	log := p.logger().With(zap.String("run_id", res.RunID), zap.String("feed", string(feed)))

	var err error
	switch feed {
	case domain.FeedCourses:
		err = p.courses(ctx, opts, log, res)
	case domain.FeedEnrollments:
		err = p.enrollments(ctx, log, res)
	default:
		err = errors.New("unsupported feed type")
	}
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return nil, fmt.Errorf("reconcile %q: %w", feed, err)
	}

	res.CSV, err = export.EncodeCSV(res.Columns, res.Rows)
	if err != nil {
		return nil, fmt.Errorf("reconcile %q: %w", feed, err)
	}

	log.Info("feed ready", zap.Int("rows", len(res.Rows)))
	return res, nil
}

// CourseRows returns the course feed rows without serializing them.
func (p *Pipeline) CourseRows(ctx context.Context, opts CourseOptions) ([]export.Row, error) {
	res := &Result{Feed: domain.FeedCourses}
	if err := p.courses(ctx, opts, p.logger(), res); err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// EnrollmentRows returns the enrollment feed rows without serializing them.
func (p *Pipeline) EnrollmentRows(ctx context.Context) ([]export.Row, error) {
	res := &Result{Feed: domain.FeedEnrollments}
	if err := p.enrollments(ctx, p.logger(), res); err != nil {
		return nil, err
	}
	return res.Rows, nil
}

func (p *Pipeline) courses(ctx context.Context, opts CourseOptions, log *zap.Logger, res *Result) error {
	if opts.Today.IsZero() {
		return errors.New("reference date is required")
	}
	terms := p.terms()
	res.Columns = courseColumns(opts.BlueprintCourseID)

	var (
		fromSIS []domain.SourceCourse
		fromLMS []domain.TargetCourse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cs, err := p.Source.ActiveCourses(gctx)
		if err != nil {
			return &UpstreamFetchError{System: p.Source.Name(), Err: err}
		}
		fromSIS = cs
		return nil
	})
	g.Go(func() error {
		cs, err := p.Target.Courses(gctx)
		if err != nil {
			return &UpstreamFetchError{System: p.Target.Name(), Err: err}
		}
		fromLMS = cs
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	sisIDs := make([]string, 0, len(fromLMS))
	for _, c := range fromLMS {
		sisIDs = append(sisIDs, c.SISCourseID)
	}
	existing := canonical.NewIdentifierSet(sisIDs)
	res.Fetched = len(fromSIS)
	res.Existing = existing.Len()
	log.Info("fetched", zap.Int("sis_courses", len(fromSIS)), zap.Int("lms_courses", len(fromLMS)), zap.Int("lms_sis_ids", existing.Len()))

	kept, excluded, err := filters.Apply(fromSIS,
		filters.StartedWithin(opts.Today, filters.StartWindow),
		filters.OnlyParentCourses(),
		filters.NotProvisioned(existing, terms),
	)
	if err != nil {
		return err
	}
	res.Excluded = excluded
	filters.SortByStartDate(kept)
	log.Info("filtered", zap.Int("kept", len(kept)), zap.Any("excluded", excluded), zap.Time("today", opts.Today))

	res.Rows = make([]export.Row, 0, len(kept))
	for _, c := range kept {
		row, err := courseRow(c, terms, opts.BlueprintCourseID)
		if err != nil {
			return err
		}
		res.Rows = append(res.Rows, row)
	}
	return nil
}

// enrollments emits every active SIS enrollment. There is no diff against the
// LMS here; its SIS import ignores enrollments it already has.
func (p *Pipeline) enrollments(ctx context.Context, log *zap.Logger, res *Result) error {
	terms := p.terms()
	res.Columns = EnrollmentColumns

	fromSIS, err := p.Source.ActiveEnrollments(ctx)
	if err != nil {
		return &UpstreamFetchError{System: p.Source.Name(), Err: err}
	}
	res.Fetched = len(fromSIS)
	log.Info("fetched", zap.Int("sis_enrollments", len(fromSIS)))

	res.Rows = make([]export.Row, 0, len(fromSIS))
	for _, e := range fromSIS {
		row, err := enrollmentRow(e, terms)
		if err != nil {
			return err
		}
		res.Rows = append(res.Rows, row)
	}
	return nil
}

func (p *Pipeline) terms() canonical.TermTable {
	if p.Terms == nil {
		return canonical.DefaultTerms
	}
	return p.Terms
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
