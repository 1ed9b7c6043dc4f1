package fetch

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded means the account's storage quota cannot absorb the
// estimated article footprint. Fatal for the article only.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// ErrSessionExpired means the upstream served its session-expiry interstitial
// instead of the article. The batch scheduler stops issuing new work when it
// sees this.
var ErrSessionExpired = errors.New("upstream session expired")

// HTTPStatusError is returned for non-2xx document responses. Status errors
// are never retried.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d", e.StatusCode)
}

// NetworkError is returned when every transport-level attempt failed.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure after %d attempts: %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
