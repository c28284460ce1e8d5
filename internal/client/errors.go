package client

import (
	"errors"
	"fmt"
)

var (
	// ErrRefreshExhausted means the refresh exchange failed after a 401, so
	// the stored session can no longer be renewed.
	ErrRefreshExhausted = errors.New("session refresh failed")
	// ErrUnknownOperation is returned for an operation missing from Endpoints.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrMissingField is returned when a required request field is empty.
	ErrMissingField = errors.New("missing required field")
)

// APIError is an error envelope returned by the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 answered by the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}
