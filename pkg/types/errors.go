package types

import (
	"errors"
	"fmt"
	"time"
)

// TransientError represents a temporary failure (network timeout, connection
// reset, upstream 5xx) that is expected to clear on retry.
type TransientError struct {
	Exchange string
	Op       string // operation that failed, e.g. "fetch_ticker"
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error on %s during %s: %v", e.Exchange, e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// UpstreamRateLimitError is returned when the remote exchange signals
// throttling (HTTP 429 or equivalent). RetryAfter carries the provider's
// suggested delay when one was given, zero otherwise.
type UpstreamRateLimitError struct {
	Exchange   string
	RetryAfter time.Duration
	Err        error
}

func (e *UpstreamRateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by %s (retry after %s): %v", e.Exchange, e.RetryAfter, e.Err)
	}

	return fmt.Sprintf("rate limited by %s: %v", e.Exchange, e.Err)
}

func (e *UpstreamRateLimitError) Unwrap() error { return e.Err }

// InvalidRequestError represents a caller mistake (unknown trading pair,
// malformed parameters). It is never retried.
type InvalidRequestError struct {
	Exchange string
	Field    string // offending field, e.g. "symbol"
	Value    string
	Reason   string
}

func (e *InvalidRequestError) Error() string {
	if e.Exchange != "" {
		return fmt.Sprintf("invalid %s %q on %s: %s", e.Field, e.Value, e.Exchange, e.Reason)
	}

	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// AuthError represents an authentication or permission failure. Never retried.
type AuthError struct {
	Exchange string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed on %s: %v", e.Exchange, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth retrying: transient failures and
// upstream rate limits are, invalid requests and auth failures are not.
// Unclassified errors are treated as not retryable so programmer mistakes
// surface immediately instead of burning retry attempts.
func IsRetryable(err error) bool {
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}

	var rateLimited *UpstreamRateLimitError

	return errors.As(err, &rateLimited)
}

// RetryAfterHint extracts the provider-suggested retry delay from err, if the
// error chain contains an UpstreamRateLimitError carrying one. Returns zero
// when no hint is available.
func RetryAfterHint(err error) time.Duration {
	var rateLimited *UpstreamRateLimitError
	if errors.As(err, &rateLimited) {
		return rateLimited.RetryAfter
	}

	return 0
}
