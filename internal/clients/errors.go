package clients

import (
	"errors"
	"fmt"
)

var (
	// ErrNoToken is returned when an authenticated call has no stored credential.
	ErrNoToken = errors.New("no authentication token")
	// ErrMalformedResponse marks a response body without the expected envelope.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNetworkFailure wraps transport level failures.
	ErrNetworkFailure = errors.New("network failure")
)

// HTTPError is a non-2xx backend response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}
	return e.Message
}

// IsSuccess reports a 2xx status.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
