package services

import (
	"errors"
	"fmt"
)

// RequestError marks a failure caused by the caller's input rather than by
// storage or the analysis provider. Handlers map it to a 4xx response;
// everything else surfaces as a 5xx with the upstream detail intact.
type RequestError struct {
	Detail string
}

func (e *RequestError) Error() string { return e.Detail }

// NewRequestError builds a RequestError from a format string.
func NewRequestError(format string, args ...any) *RequestError {
	return &RequestError{Detail: fmt.Sprintf(format, args...)}
}

// IsRequestError reports whether err, or anything it wraps, is a RequestError.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}
