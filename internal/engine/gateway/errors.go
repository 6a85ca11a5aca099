package gateway

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is matched by every *AuthError via errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// ErrUnsupportedFormat is returned for export formats other than csv/xlsx.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// AuthError means the session is no longer valid: the server answered 401
// or the configured token has already expired. It is not recoverable
// locally and must reach the session owner.
type AuthError struct {
	Op     string
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: session invalid (%s)", e.Op, e.Reason)
}

func (e *AuthError) Is(target error) bool {
	return target == ErrUnauthorized
}

// FetchError is a transient failure: transport error, unexpected status or
// an undecodable body. Callers may retry on their next trigger.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsAuth reports whether err carries an *AuthError.
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
