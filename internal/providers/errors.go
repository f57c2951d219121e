package providers

import (
	"errors"
	"fmt"
	"net/http"
)

type rateLimitError struct {
	body string
}

func (e *rateLimitError) Error() string {
	if e.body == "" {
		return "rate limited"
	}
	return "rate limited: " + e.body
}

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

type serverError struct {
	statusCode int
	body       string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.statusCode, e.body)
}

// malformedError reports a 200 response the provider could not use.
type malformedError struct {
	reason string
	err    error
}

func (e *malformedError) Error() string {
	if e.err != nil {
		return "malformed response: " + e.reason + ": " + e.err.Error()
	}
	return "malformed response: " + e.reason
}

func (e *malformedError) Unwrap() error { return e.err }

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var target *authError
	return errors.As(err, &target)
}

// IsRateLimited checks if an error is a rate-limit response.
func IsRateLimited(err error) bool {
	var target *rateLimitError
	return errors.As(err, &target)
}

// IsServerError checks if an error is a 5xx response.
func IsServerError(err error) bool {
	var target *serverError
	return errors.As(err, &target)
}

// IsMalformed checks if an error is an unusable success response.
func IsMalformed(err error) bool {
	var target *malformedError
	return errors.As(err, &target)
}

// Class names the failure class of err for logs: "auth", "rate_limit",
// "server", "malformed" or "other".
func Class(err error) string {
	switch {
	case IsAuthError(err):
		return "auth"
	case IsRateLimited(err):
		return "rate_limit"
	case IsServerError(err):
		return "server"
	case IsMalformed(err):
		return "malformed"
	default:
		return "other"
	}
}

// statusError classifies a non-200 HTTP status.
func statusError(status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &rateLimitError{body: string(body)}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &authError{message: string(body)}
	case status >= 500:
		return &serverError{statusCode: status, body: string(body)}
	default:
		return fmt.Errorf("API error (status %d): %s", status, string(body))
	}
}
