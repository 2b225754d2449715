// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrForbidden is matched by RemoteError values for HTTP 403 responses.
	ErrForbidden = errors.New("remote entity is forbidden")
	// ErrNotFound is matched by RemoteError values for HTTP 404 responses.
	ErrNotFound = errors.New("remote entity not found")
)

// RemoteError is returned when the GitHub API rejects a request for a specific URL.
type RemoteError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("github request for %q failed with status %d: %v", e.URL, e.StatusCode, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match RemoteError against ErrForbidden and ErrNotFound.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsExpectedAbsence reports whether err means the remote entity is gone or
// no longer visible to the authenticated user.
func IsExpectedAbsence(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound)
}

// ErrNotificationNotFound is returned when a notification id is unknown for the user.
type ErrNotificationNotFound struct {
	ID int64
}

func (e *ErrNotificationNotFound) Error() string {
	return fmt.Sprintf("notification %d not found", e.ID)
}
