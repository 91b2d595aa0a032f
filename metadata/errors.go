package metadata

import (
	"errors"
	"log/slog"
)

var (
	// ErrNotFound is returned when a slug is not part of the post index.
	ErrNotFound = errors.New("metadata: blog post not found")
	// ErrUnavailable is returned when any upstream needed for a refresh fails.
	// The underlying cause is joined to it for logging.
	ErrUnavailable = errors.New("metadata: service unavailable")
)

// unavailable logs cause and folds it into ErrUnavailable.
func unavailable(op string, cause error) error {
	slog.Warn("metadata refresh failed", "op", op, "error", cause)
	return errors.Join(ErrUnavailable, cause)
}
