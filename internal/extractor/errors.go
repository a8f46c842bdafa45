package extractor

import (
	"fmt"
	"strings"
	"time"

	"ledgerlens/internal/backend"
)

// Attempt records the outcome of one backend try during an extraction run.
type Attempt struct {
	Provider string              `json:"provider"`
	Kind     backend.FailureKind `json:"kind,omitempty"`
	Elapsed  time.Duration       `json:"elapsed"`
	Err      error               `json:"-"`
}

// ExhaustedError is returned when every configured backend failed for one
// document. It carries the full attempt trail so callers can report exactly
// which provider failed how.
type ExhaustedError struct {
	Contract string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s(%s)", a.Provider, a.Kind))
	}
	return fmt.Sprintf("all backends exhausted for %s: %s", e.Contract, strings.Join(parts, ", "))
}

// Unwrap exposes the last attempt's underlying error for errors.Is/As chains.
func (e *ExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}
