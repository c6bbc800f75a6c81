package remote

import (
	"errors"
	"fmt"
)

// ErrMissingWONumber rejects writes with an empty work order number before
// any network call is made.
var ErrMissingWONumber = errors.New("work order number is required")

// UnavailableError covers network failure, timeout, and non-2xx transport
// status. It is never fatal: the sync engine queues the write for retry.
type UnavailableError struct {
	Action string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("remote unavailable during %s: %v", e.Action, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is a transport-level failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// AppError is a success:false reply inside an HTTP 200. The cache is
// untouched; the message is shown as a non-blocking notification.
type AppError struct {
	Action  string
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("remote rejected %s: %s", e.Action, e.Message)
}

// IsAppError reports whether err is an application-level rejection.
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}
