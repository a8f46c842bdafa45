// Package anthropic implements the model backend adapter for the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	anthropicsdk "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"ledgerlens/internal/backend"
	"ledgerlens/internal/config"
	"ledgerlens/internal/port"
)

const defaultModel = "claude-sonnet-4-20250514"

// Backend implements port.ModelBackend using the Anthropic SDK.
type Backend struct {
	client    *anthropicsdk.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

func init() {
	backend.RegisterProvider("anthropic", func(cfg *config.BackendConfig, logger *zap.Logger) (port.ModelBackend, error) {
		return NewBackend(cfg, logger), nil
	})
}

// NewBackend creates an Anthropic-based model backend from a provider config.
func NewBackend(cfg *config.BackendConfig, logger *zap.Logger) *Backend {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second

	opts := []anthropicsdk.ClientOption{
		anthropicsdk.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, anthropicsdk.WithBaseURL(cfg.Endpoint))
	}

	return &Backend{
		client:    anthropicsdk.NewClient(cfg.APIKey, opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
		timeout:   timeout,
		logger:    logger.Named("backend.anthropic"),
	}
}

func (b *Backend) Name() string { return "anthropic" }

func (b *Backend) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = b.maxTokens
	}

	start := time.Now()
	resp, err := b.client.CreateMessages(ctx, anthropicsdk.MessagesRequest{
		Model:     anthropicsdk.Model(b.model),
		System:    req.System,
		MaxTokens: maxTokens,
		Messages: []anthropicsdk.Message{
			anthropicsdk.NewUserTextMessage(req.Prompt),
		},
	})
	if err != nil {
		b.logger.Warn("completion failed",
			zap.String("model", b.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", b.normalize(err)
	}

	if len(resp.Content) == 0 {
		return "", backend.NewError(b.Name(), backend.KindMalformed, fmt.Errorf("empty response from API"))
	}
	if resp.StopReason == anthropicsdk.MessagesStopReasonMaxTokens {
		return "", backend.NewError(b.Name(), backend.KindMalformed,
			fmt.Errorf("output truncated (stop_reason: max_tokens)"))
	}

	b.logger.Debug("completion ok",
		zap.String("model", b.model),
		zap.Duration("elapsed", time.Since(start)))
	return resp.Content[0].GetText(), nil
}

func (b *Backend) normalize(err error) error {
	var apiErr *anthropicsdk.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsRateLimitErr() || apiErr.IsOverloadedErr():
			return backend.NewRateLimitError(b.Name(), err, 0)
		case apiErr.IsAuthenticationErr() || apiErr.IsPermissionErr():
			return backend.NewError(b.Name(), backend.KindAuth, err)
		}
	}
	var reqErr *anthropicsdk.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.StatusCode {
		case http.StatusTooManyRequests:
			return backend.NewRateLimitError(b.Name(), err, 0)
		case http.StatusUnauthorized, http.StatusForbidden:
			return backend.NewError(b.Name(), backend.KindAuth, err)
		}
	}
	return backend.Classify(b.Name(), err)
}
