package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ledgerlens/internal/port"
)

// fallbackCircuit tracks rate-limit backoff for one wrapped backend.
type fallbackCircuit struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *fallbackCircuit) isOpen(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *fallbackCircuit) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// Fallback tries backends in order, skipping those inside a rate-limit
// backoff window. It implements port.ModelBackend so callers that need a
// single completion, like the review pipeline, get the same resilience as
// extraction without carrying their own retry logic.
type Fallback struct {
	backends []port.ModelBackend
	circuits []*fallbackCircuit
	logger   *zap.Logger
}

// NewFallback wraps an ordered backend list.
func NewFallback(backends []port.ModelBackend, logger *zap.Logger) *Fallback {
	circuits := make([]*fallbackCircuit, len(backends))
	for i := range circuits {
		circuits[i] = &fallbackCircuit{}
	}
	return &Fallback{backends: backends, circuits: circuits, logger: logger.Named("fallback")}
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	now := time.Now()
	var lastErr error

	for i, b := range f.backends {
		if f.circuits[i].isOpen(now) {
			f.logger.Debug("skipping backend, circuit open", zap.String("provider", b.Name()))
			continue
		}

		out, err := b.Complete(ctx, req)
		if err == nil {
			return out, nil
		}

		f.logger.Warn("backend failed", zap.String("provider", b.Name()), zap.Error(err))
		lastErr = err

		var berr *Error
		if errors.As(err, &berr) && berr.Kind == KindRateLimited {
			f.circuits[i].open(now.Add(berr.RetryAfter))
		}
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		return "", NewRateLimitError("fallback", fmt.Errorf("all backends rate limited"), 1)
	}
	return "", fmt.Errorf("all backends failed: %w", lastErr)
}
