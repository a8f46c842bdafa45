// Package ollama implements the model backend adapter for a local Ollama
// server. It is the free last-resort entry on the fallback list.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ledgerlens/internal/backend"
	"ledgerlens/internal/config"
	"ledgerlens/internal/port"
)

const (
	defaultEndpoint = "http://localhost:11434"
	defaultModel    = "llama3.3"
)

// Backend implements port.ModelBackend against the Ollama /api/generate endpoint.
type Backend struct {
	endpoint string
	model    string
	client   *http.Client
	logger   *zap.Logger
}

func init() {
	backend.RegisterProvider("ollama", func(cfg *config.BackendConfig, logger *zap.Logger) (port.ModelBackend, error) {
		return NewBackend(cfg, logger), nil
	})
}

// NewBackend creates an Ollama-based model backend from a provider config.
func NewBackend(cfg *config.BackendConfig, logger *zap.Logger) *Backend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Backend{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
		logger:   logger.Named("backend.ollama"),
	}
}

func (b *Backend) Name() string { return "ollama" }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (b *Backend) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  b.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", backend.Classify(b.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 300))
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			retryAfter := backend.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return "", backend.NewRateLimitError(b.Name(), baseErr, retryAfter)
		case http.StatusUnauthorized, http.StatusForbidden:
			return "", backend.NewError(b.Name(), backend.KindAuth, baseErr)
		default:
			return "", backend.NewError(b.Name(), backend.KindMalformed, baseErr)
		}
	}

	var gen generateResponse
	if err := json.Unmarshal(respBody, &gen); err != nil {
		return "", backend.NewError(b.Name(), backend.KindMalformed,
			fmt.Errorf("unmarshaling response: %w", err))
	}
	if gen.Response == "" {
		return "", backend.NewError(b.Name(), backend.KindMalformed, fmt.Errorf("empty response from API"))
	}

	b.logger.Debug("completion ok",
		zap.String("model", b.model),
		zap.Duration("elapsed", time.Since(start)))
	return gen.Response, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
