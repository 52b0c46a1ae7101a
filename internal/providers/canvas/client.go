// Package canvas reads the current course list from the Canvas LMS REST API.
package canvas

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"feed-sync/internal/domain"
	"feed-sync/internal/httpx"
)

const defaultPerPage = 100

type Client struct {
	BaseURL   string
	Token     string
	AccountID string
	PerPage   int

	HTTP    *http.Client
	Limiter *rate.Limiter
	Retry   httpx.RetryConfig
}

// New builds a client for https://<school>.instructure.com. ratePerSec <= 0 disables client-side throttling.
func New(baseURL, token, accountID string, ratePerSec float64) *Client {
	if strings.TrimSpace(accountID) == "" {
		accountID = "self"
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}

	retry := httpx.DefaultRetryConfig()
	retry.RetryIf = isThrottled

	tr := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		AccountID: accountID,
		PerPage:   defaultPerPage,
		HTTP:      &http.Client{Timeout: 2 * time.Minute, Transport: tr},
		Limiter:   limiter,
		Retry:     retry,
	}
}

func (c *Client) Name() string { return "canvas" }

// courseJSON is the subset of the Canvas Course object we read.
type courseJSON struct {
	ID            int64      `json:"id"`
	SISCourseID   *string    `json:"sis_course_id"`
	Name          string     `json:"name"`
	CourseCode    string     `json:"course_code"`
	WorkflowState string     `json:"workflow_state"`
	StartAt       *time.Time `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
}

// Courses lists every course in the account, following Link rel="next" until exhausted.
// Any page failure fails the whole listing.
func (c *Client) Courses(ctx context.Context) ([]domain.TargetCourse, error) {
	if c.Token == "" {
		return nil, fmt.Errorf("canvas: missing api token")
	}

	next, err := c.firstPageURL()
	if err != nil {
		return nil, err
	}

	var out []domain.TargetCourse
	for page := 1; next != ""; page++ {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("canvas: list courses: %w", err)
		}

		var rows []courseJSON
		pageURL := next
		header, err := httpx.DoJSON(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
			if err != nil {
				return nil, err
			}
			r.Header.Set("Accept", "application/json")
			r.Header.Set("Accept-Encoding", httpx.AcceptEncoding)
			r.Header.Set("Authorization", "Bearer "+c.Token)
			return r, nil
		}, &rows, c.Retry)
		if err != nil {
			return nil, fmt.Errorf("canvas: list courses page %d: %w", page, err)
		}

		for _, r := range rows {
			out = append(out, toTargetCourse(r))
		}
		next = httpx.NextLink(header)
	}
	return out, nil
}

func (c *Client) firstPageURL() (string, error) {
	u, err := url.Parse(c.BaseURL + "/api/v1/accounts/" + url.PathEscape(c.AccountID) + "/courses")
	if err != nil {
		return "", fmt.Errorf("canvas: invalid base url: %w", err)
	}
	perPage := c.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	q := u.Query()
	q.Set("per_page", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func toTargetCourse(r courseJSON) domain.TargetCourse {
	c := domain.TargetCourse{
		ID:            r.ID,
		Name:          r.Name,
		CourseCode:    r.CourseCode,
		WorkflowState: r.WorkflowState,
	}
	if r.SISCourseID != nil {
		c.SISCourseID = *r.SISCourseID
	}
	if r.StartAt != nil {
		c.StartAt = *r.StartAt
	}
	if r.EndAt != nil {
		c.EndAt = *r.EndAt
	}
	return c
}

// isThrottled matches Canvas' throttling answer: 403 with "Rate Limit Exceeded".
func isThrottled(status int, header http.Header, body []byte) bool {
	if status != http.StatusForbidden {
		return false
	}
	return header.Get("X-Rate-Limit-Remaining") == "0" || bytes.Contains(body, []byte("Rate Limit Exceeded"))
}
