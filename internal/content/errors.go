package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimit indicates the provider answered 429.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrServiceBusy indicates a temporary overload (503/529).
type ErrServiceBusy struct {
	Err error
}

func (e *ErrServiceBusy) Error() string {
	return fmt.Sprintf("content service busy: %v", e.Err)
}

func (e *ErrServiceBusy) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates output that is present but does not conform
// to the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid content response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers every other provider failure. It is not retried.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("content provider unavailable: %v", e.Err)
	}
	return "content provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was truncated.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "content response truncated: max tokens exceeded"
}

var (
	ErrEmptyText          = errors.New("no text could be extracted")
	ErrUnsupportedKind    = errors.New("document kind is not supported by the content service")
	ErrNotEnoughQuestions = errors.New("content service returned fewer questions than requested")
)

// IsRetryable reports whether err is an explicit busy or rate limit signal.
// Everything else fails immediately.
func IsRetryable(err error) bool {
	var rl *ErrRateLimit
	if errors.As(err, &rl) {
		return true
	}
	var busy *ErrServiceBusy
	return errors.As(err, &busy)
}
