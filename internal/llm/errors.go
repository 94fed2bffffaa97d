package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrSchema marks a reply schema that does not compile. It is a bug in the
// bot's prompts, so retrying cannot help.
var ErrSchema = errors.New("reply schema is broken")

// ErrRateLimit is a 429 from the provider. RetryAfter is zero when the
// provider did not say how long to wait.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry in %s: %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse is a reply the bot cannot use: blank text, or JSON
// that does not fit the exercise, verdict or scene schema it asked for.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("unusable model reply: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers network failures and 5xx answers.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "model provider unavailable"
	}
	return fmt.Sprintf("model provider unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is a structured reply cut off at MaxTokens. The same
// request would be cut off again.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("model reply truncated after %d bytes", len(e.Content))
}

// IsCancellation reports whether err stems from the caller giving up
// rather than from the provider.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// retryClass says how RetryProvider treats a failed attempt.
type retryClass int

const (
	// retryBackoff waits and tries again while attempts remain.
	retryBackoff retryClass = iota
	// retryOnce allows a single extra attempt per call.
	retryOnce
	// retryNever returns the error immediately.
	retryNever
)

func classify(err error) retryClass {
	var maxTok *ErrMaxTokensExceeded
	var invalid *ErrInvalidResponse
	switch {
	case IsCancellation(err), errors.Is(err, ErrSchema), errors.As(err, &maxTok):
		return retryNever
	case errors.As(err, &invalid):
		return retryOnce
	default:
		return retryBackoff
	}
}
