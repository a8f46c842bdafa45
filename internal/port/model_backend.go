package port

import "context"

// CompletionRequest carries one prompt to a model backend. Backends treat the
// content as opaque; consumers are responsible for asking for JSON when they
// need structured output.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// ModelBackend is the uniform call interface to one model provider. Errors are
// normalized into the backend failure taxonomy (timeout, auth, rate limit,
// malformed output) so callers can fall back without knowing the provider.
type ModelBackend interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
