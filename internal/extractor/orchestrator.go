// Package extractor runs documents through the configured model backends in
// priority order and returns the first output that satisfies the target
// contract.
package extractor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ledgerlens/internal/backend"
	"ledgerlens/internal/contract"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// classifyTextLimit caps how much document text is sent for classification.
// The document type is almost always decidable from the first page.
const classifyTextLimit = 4000

// circuitState tracks rate-limit backoff for a single backend.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// Result is the outcome of a successful extraction run.
type Result struct {
	Payload   *contract.Payload
	Contract  string
	ModelUsed string
	Attempts  []Attempt
	Elapsed   time.Duration
}

// Orchestrator drives the ordered backend list. Output that fails its
// contract is treated the same as a transport failure: the next backend gets
// a try. Rate-limited backends are skipped until their backoff window passes.
type Orchestrator struct {
	backends []port.ModelBackend
	circuits []*circuitState
	registry *contract.Registry
	logger   *zap.Logger
}

// New creates an orchestrator over an ordered backend list. The first backend
// is the preferred one; the rest are fallbacks.
func New(backends []port.ModelBackend, registry *contract.Registry, logger *zap.Logger) *Orchestrator {
	circuits := make([]*circuitState, len(backends))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &Orchestrator{
		backends: backends,
		circuits: circuits,
		registry: registry,
		logger:   logger.Named("extractor"),
	}
}

// Extract runs the document text through the backends until one produces
// output that decodes cleanly against the named contract. On total failure it
// returns an *ExhaustedError carrying the full attempt trail.
func (o *Orchestrator) Extract(ctx context.Context, contractName, documentText string) (*Result, error) {
	c, err := o.registry.Get(contractName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	prompt := BuildExtractionPrompt(c, documentText)
	attempts := make([]Attempt, 0, len(o.backends))

	for i, b := range o.backends {
		now := time.Now()
		if resetAt, open := o.circuits[i].isOpenWithReset(now); open {
			o.logger.Info("skipping backend, circuit open",
				zap.String("provider", b.Name()),
				zap.Time("reset_at", resetAt))
			attempts = append(attempts, Attempt{
				Provider: b.Name(),
				Kind:     backend.KindRateLimited,
				Err:      errors.New("circuit open"),
			})
			continue
		}

		raw, err := b.Complete(ctx, port.CompletionRequest{
			System: extractionSystemPrompt,
			Prompt: prompt,
		})
		elapsed := time.Since(now)

		if err != nil {
			kind := backend.KindOf(err)
			o.logger.Warn("backend failed",
				zap.String("provider", b.Name()),
				zap.String("kind", string(kind)),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
			attempts = append(attempts, Attempt{Provider: b.Name(), Kind: kind, Elapsed: elapsed, Err: err})

			var berr *backend.Error
			if errors.As(err, &berr) && berr.Kind == backend.KindRateLimited {
				o.circuits[i].open(now.Add(berr.RetryAfter))
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}

		payload, derr := contract.DecodePayload(c, []byte(stripFences(raw)))
		if derr != nil {
			o.logger.Warn("backend output rejected by contract",
				zap.String("provider", b.Name()),
				zap.String("contract", c.Name),
				zap.Error(derr))
			attempts = append(attempts, Attempt{Provider: b.Name(), Kind: backend.KindMalformed, Elapsed: elapsed, Err: derr})
			continue
		}

		attempts = append(attempts, Attempt{Provider: b.Name(), Elapsed: elapsed})
		o.logger.Info("extraction succeeded",
			zap.String("provider", b.Name()),
			zap.String("contract", c.Name),
			zap.Int("attempt", len(attempts)),
			zap.Duration("elapsed", time.Since(start)))
		return &Result{
			Payload:   payload,
			Contract:  c.Name,
			ModelUsed: b.Name(),
			Attempts:  attempts,
			Elapsed:   time.Since(start),
		}, nil
	}

	return nil, &ExhaustedError{Contract: c.Name, Attempts: attempts}
}

// Classify asks the backends which contract a document belongs to. Any
// failure, including an answer that names no known contract, falls back to the
// standard invoice contract rather than blocking the pipeline.
func (o *Orchestrator) Classify(ctx context.Context, documentText string) string {
	text := documentText
	if len(text) > classifyTextLimit {
		text = text[:classifyTextLimit]
	}
	prompt := BuildClassificationPrompt(o.registry.Names(), text)

	for i, b := range o.backends {
		if _, open := o.circuits[i].isOpenWithReset(time.Now()); open {
			continue
		}
		raw, err := b.Complete(ctx, port.CompletionRequest{
			System: "You classify documents. Answer with a single category name.",
			Prompt: prompt,
		})
		if err != nil {
			o.logger.Warn("classification backend failed",
				zap.String("provider", b.Name()), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		answer := strings.ToLower(strings.TrimSpace(stripFences(raw)))
		for _, name := range o.registry.Names() {
			if strings.Contains(answer, name) {
				return name
			}
		}
		o.logger.Warn("classification answer matched no contract",
			zap.String("provider", b.Name()),
			zap.String("answer", answer))
	}
	return domain.DocTypeStandardInvoice
}

// stripFences removes markdown code fences and any chatter around the first
// JSON object. Models regularly wrap output in ```json blocks despite being
// told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first >= 0 && last > first {
		return s[first : last+1]
	}
	return s
}
