package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jomei/notionapi"
)

// ErrMissingTranscript signals a page without a usable Transcript property.
// This is an expected state (page created before content was filled in), so
// callers treat it as a skip, not a failure.
var ErrMissingTranscript = errors.New("transcript property missing or empty")

// AuthError is a 401/403 from the Notion API. Credentials have to be fixed
// out-of-band, so this is never retried.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("notion auth error (status %d): %s", e.Status, e.Message)
}

// WriteError is a non-success response from the page create API after
// retries are exhausted.
type WriteError struct {
	Status  int
	Message string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("notion write error (status %d): %s", e.Status, e.Message)
}

// classify maps a jomei API error onto our taxonomy. Non-API errors
// (network, context) pass through unchanged.
func classify(err error) error {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
			return &AuthError{Status: apiErr.Status, Message: apiErr.Message}
		}
	}
	return err
}

// retryable reports whether an error is worth another attempt: rate limits,
// server errors, and transport failures. Auth and validation errors are not.
func retryable(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Transport-level failure.
	return true
}
