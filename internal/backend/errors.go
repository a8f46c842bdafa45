package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FailureKind classifies a backend failure. Every provider error is normalized
// into exactly one kind so the extraction orchestrator can fall back without
// knowing which provider produced it.
type FailureKind string

const (
	KindTimeout     FailureKind = "timeout"
	KindAuth        FailureKind = "auth_error"
	KindRateLimited FailureKind = "rate_limited"
	KindMalformed   FailureKind = "malformed_output"
)

// Error is a provider failure normalized into the common taxonomy.
type Error struct {
	Kind       FailureKind
	Provider   string
	RetryAfter time.Duration // populated for rate limits
	Cause      error
}

func (e *Error) Error() string {
	if e.Kind == KindRateLimited && e.RetryAfter > 0 {
		return fmt.Sprintf("%s: %s (retry after %s): %v", e.Provider, e.Kind, e.RetryAfter, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a normalized backend error.
func NewError(provider string, kind FailureKind, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Cause: cause}
}

// NewRateLimitError creates a rate-limit error. A zero retry-after defaults to 60s.
func NewRateLimitError(provider string, cause error, retryAfterSecs int) *Error {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &Error{
		Kind:       KindRateLimited,
		Provider:   provider,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Cause:      cause,
	}
}

// KindOf extracts the failure kind from err, defaulting to malformed output
// for anything that is not a normalized backend error.
func KindOf(err error) FailureKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindMalformed
}

// Classify normalizes a raw provider error by inspecting status codes and
// well-known message fragments. Providers with richer error types should map
// them directly and only use Classify as a fallback.
func Classify(provider string, err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewError(provider, KindTimeout, err)
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return NewRateLimitError(provider, err, 0)
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "authentication"):
		return NewError(provider, KindAuth, err)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return NewError(provider, KindTimeout, err)
	default:
		return NewError(provider, KindMalformed, err)
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}
