// Package openai implements the model backend adapter for OpenAI-compatible
// chat completion endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"ledgerlens/internal/backend"
	"ledgerlens/internal/config"
	"ledgerlens/internal/port"
)

const defaultModel = "gpt-4o-mini"

// Backend implements port.ModelBackend using the go-openai client. Pointing
// Endpoint at any OpenAI-compatible server (vLLM, LM Studio, etc.) works too.
type Backend struct {
	client    *openaisdk.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

func init() {
	backend.RegisterProvider("openai", func(cfg *config.BackendConfig, logger *zap.Logger) (port.ModelBackend, error) {
		return NewBackend(cfg, logger), nil
	})
}

// NewBackend creates an OpenAI-based model backend from a provider config.
func NewBackend(cfg *config.BackendConfig, logger *zap.Logger) *Backend {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	clientConfig := openaisdk.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}

	return &Backend{
		client:    openaisdk.NewClientWithConfig(clientConfig),
		model:     model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("backend.openai"),
	}
}

func (b *Backend) Name() string { return "openai" }

func (b *Backend) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openaisdk.ChatCompletionMessage{
			Role:    openaisdk.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openaisdk.ChatCompletionMessage{
		Role:    openaisdk.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = b.maxTokens
	}

	start := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, openaisdk.ChatCompletionRequest{
		Model:     b.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		b.logger.Warn("completion failed",
			zap.String("model", b.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", b.normalize(err)
	}

	if len(resp.Choices) == 0 {
		return "", backend.NewError(b.Name(), backend.KindMalformed, fmt.Errorf("no choices in response"))
	}

	b.logger.Debug("completion ok",
		zap.String("model", b.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

func (b *Backend) normalize(err error) error {
	var apiErr *openaisdk.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return backend.NewRateLimitError(b.Name(), err, 0)
		case http.StatusUnauthorized, http.StatusForbidden:
			return backend.NewError(b.Name(), backend.KindAuth, err)
		}
	}
	return backend.Classify(b.Name(), err)
}
