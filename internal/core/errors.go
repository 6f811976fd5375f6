package core

import (
	"errors"
	"fmt"
)

// ErrCredentialsRejected marks a 401/403 from an upstream provider so
// callers can tell a bad key apart from a flaky connection.
var ErrCredentialsRejected = errors.New("credentials rejected")

// HTTPStatusError is a non-2xx upstream response that is not a credential
// rejection. It keeps the numeric status for reporting.
type HTTPStatusError struct {
	Provider   string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: connection failed with HTTP status %d", e.Provider, e.StatusCode)
}
