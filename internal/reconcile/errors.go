package reconcile

import "fmt"

// UpstreamFetchError reports a failed fetch from the SIS or the LMS.
// A run that hits it produces no feed.
type UpstreamFetchError struct {
	System string
	Err    error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("reconcile: fetch from %s failed: %v", e.System, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }
