package export

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"feed-sync/internal/domain"
)

// FeedFileName names a feed the way the LMS admins expect to find it:
// ff-<short host>-<feed slug>-<yyyymmdd>.csv
// e.g. ff-school-generatecoursescsv-20180910.csv for https://school.instructure.com.
func FeedFileName(lmsBaseURL string, feed domain.FeedType, day time.Time) string {
	return fmt.Sprintf("ff-%s-%s-%s.csv", shortHost(lmsBaseURL), feed.Slug(), day.Format("20060102"))
}

func shortHost(base string) string {
	host := strings.TrimSpace(base)
	if u, err := url.Parse(host); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	host = strings.TrimSuffix(host, ".instructure.com")
	if host == "" {
		return "lms"
	}
	return host
}

// WriteFeedFile writes payload to dir/name, creating dir if needed, and returns the path.
func WriteFeedFile(dir, name string, payload []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create output dir: %w", err)
	}
	dest := filepath.Join(dir, name)
	if err := os.WriteFile(dest, payload, 0o644); err != nil {
		return "", fmt.Errorf("export: write feed file: %w", err)
	}
	return dest, nil
}
