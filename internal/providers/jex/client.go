// Package jex reads active sections and enrollments from the Jenzabar EX database.
package jex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"feed-sync/internal/domain"
)

// Client queries SECTION_MASTER / STUDENT_CRS_HIST.
type Client struct {
	DB     *sqlx.DB
	Flavor sqlbuilder.Flavor

	// Divisions restricts sections to these INSTITUT_DIV_CDE values (e.g. online only). Empty means all.
	Divisions []string

	// Now decides which sections are still running. Defaults to time.Now.
	Now func() time.Time
}

// Open connects with database/sql driver name driver ("sqlserver", "postgres", "sqlite3").
func Open(ctx context.Context, driver, dsn string) (*Client, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("jex: connect %s: %w", driver, err)
	}
	return &Client{DB: db, Flavor: FlavorFor(driver)}, nil
}

// FlavorFor picks the SQL dialect for a driver name.
func FlavorFor(driver string) sqlbuilder.Flavor {
	switch strings.ToLower(driver) {
	case "postgres", "pgx":
		return sqlbuilder.PostgreSQL
	case "sqlite3", "sqlite":
		return sqlbuilder.SQLite
	case "mysql":
		return sqlbuilder.MySQL
	default:
		return sqlbuilder.SQLServer
	}
}

func (c *Client) Name() string { return "jex" }

func (c *Client) Close() error { return c.DB.Close() }

type sectionRow struct {
	CourseCode string         `db:"course_code"`
	ParentCode sql.NullString `db:"parent_code"`
	Term       string         `db:"term"`
	Year       string         `db:"year"`
	Title      sql.NullString `db:"title"`
	BeginDate  time.Time      `db:"begin_date"`
	EndDate    sql.NullTime   `db:"end_date"`
}

type enrollmentRow struct {
	SISID      string         `db:"sis_id"`
	Username   sql.NullString `db:"username"`
	CourseCode string         `db:"course_code"`
	Term       string         `db:"term"`
	Year       string         `db:"year"`
}

// ActiveCourses returns every section that has not ended yet, in a stable order.
func (c *Client) ActiveCourses(ctx context.Context) ([]domain.SourceCourse, error) {
	sb := c.Flavor.NewSelectBuilder()
	sb.Select(
		sb.As("sm.CRS_CDE", "course_code"),
		sb.As("sm.X_LISTED_PARNT_CRS", "parent_code"),
		sb.As("sm.TRM_CDE", "term"),
		sb.As("sm.YR_CDE", "year"),
		sb.As("sm.CRS_TITLE", "title"),
		sb.As("sm.FIRST_BEGIN_DTE", "begin_date"),
		sb.As("sm.LAST_END_DTE", "end_date"),
	)
	sb.From("SECTION_MASTER sm")
	sb.Where(
		sb.IsNotNull("sm.FIRST_BEGIN_DTE"),
		sb.GreaterEqualThan("sm.LAST_END_DTE", c.now()),
	)
	c.whereDivision(sb, "sm")
	sb.OrderBy("sm.YR_CDE", "sm.TRM_CDE", "sm.CRS_CDE")

	query, args := sb.Build()
	var rows []sectionRow
	if err := c.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("jex: active courses: %w", err)
	}

	out := make([]domain.SourceCourse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toSourceCourse(r))
	}
	return out, nil
}

// ActiveEnrollments returns current registrations in running sections.
func (c *Client) ActiveEnrollments(ctx context.Context) ([]domain.SourceEnrollment, error) {
	sb := c.Flavor.NewSelectBuilder()
	sb.Select(
		sb.As("sch.ID_NUM", "sis_id"),
		sb.As("nm.EMAIL_ADDRESS", "username"),
		sb.As("sch.CRS_CDE", "course_code"),
		sb.As("sch.TRM_CDE", "term"),
		sb.As("sch.YR_CDE", "year"),
	)
	sb.From("STUDENT_CRS_HIST sch")
	sb.Join("SECTION_MASTER sm",
		"sm.CRS_CDE = sch.CRS_CDE",
		"sm.YR_CDE = sch.YR_CDE",
		"sm.TRM_CDE = sch.TRM_CDE",
	)
	sb.JoinWithOption(sqlbuilder.LeftJoin, "NAME_MASTER nm", "nm.ID_NUM = sch.ID_NUM")
	sb.Where(
		sb.Equal("sch.TRANSACTION_STS", "C"),
		sb.GreaterEqualThan("sm.LAST_END_DTE", c.now()),
	)
	c.whereDivision(sb, "sm")
	sb.OrderBy("sch.ID_NUM", "sch.YR_CDE", "sch.TRM_CDE", "sch.CRS_CDE")

	query, args := sb.Build()
	var rows []enrollmentRow
	if err := c.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("jex: active enrollments: %w", err)
	}

	out := make([]domain.SourceEnrollment, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.SourceEnrollment{
			SISID:      strings.TrimSpace(r.SISID),
			Username:   strings.TrimSpace(r.Username.String),
			CourseCode: r.CourseCode,
			Term:       strings.TrimSpace(r.Term),
			Year:       strings.TrimSpace(r.Year),
		})
	}
	return out, nil
}

func (c *Client) whereDivision(sb *sqlbuilder.SelectBuilder, alias string) {
	if len(c.Divisions) == 0 {
		return
	}
	vals := make([]any, 0, len(c.Divisions))
	for _, d := range c.Divisions {
		vals = append(vals, d)
	}
	sb.Where(sb.In(alias+".INSTITUT_DIV_CDE", vals...))
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// toSourceCourse keeps CourseCode raw; whitespace is the canonical package's job.
// A section that is not cross-listed is its own parent.
func toSourceCourse(r sectionRow) domain.SourceCourse {
	parent := r.CourseCode
	if r.ParentCode.Valid && strings.TrimSpace(r.ParentCode.String) != "" {
		parent = r.ParentCode.String
	}
	c := domain.SourceCourse{
		CourseCode:       r.CourseCode,
		ParentCourseCode: parent,
		Term:             strings.TrimSpace(r.Term),
		Year:             strings.TrimSpace(r.Year),
		Name:             strings.TrimSpace(r.Title.String),
		StartDate:        r.BeginDate,
		OpenDate:         r.BeginDate,
	}
	if r.EndDate.Valid {
		c.CloseDate = r.EndDate.Time
	}
	return c
}
