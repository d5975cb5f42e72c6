package timeline

import "fmt"

// FeedFetchError reports a network or HTTP failure reaching the upstream API
// for one list. The orchestrator records it per-list and continues the run.
type FeedFetchError struct {
	ListID     string
	StatusCode int
	Err        error
}

func (e *FeedFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch list %s: upstream status %d", e.ListID, e.StatusCode)
	}
	return fmt.Sprintf("fetch list %s: %v", e.ListID, e.Err)
}

func (e *FeedFetchError) Unwrap() error { return e.Err }

// QuotaExceededError reports that the daily upstream call budget is exhausted.
// The client surfaces it instead of attempting the call.
type QuotaExceededError struct {
	Key string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota exceeded for %q", e.Key)
}
