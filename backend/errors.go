package backend

import "errors"

var (
	// ErrUnauthorized means the analytics token is missing, expired or rejected.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrNotFound means an upstream lookup returned an empty result set.
	ErrNotFound = errors.New("backend: not found")
	// ErrTransport covers network failures and unexpected HTTP statuses.
	ErrTransport = errors.New("backend: upstream transport failure")
	// ErrDecode covers malformed response bodies, including non-numeric counts.
	ErrDecode = errors.New("backend: malformed upstream response")
)

// statusError records the HTTP status behind an ErrTransport.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

// statusOf extracts the HTTP status from an upstream error, if any.
func statusOf(err error) (int, bool) {
	var se *statusError
	if errors.As(err, &se) {
		return se.status, true
	}
	return 0, false
}
