package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ledgerlens/internal/port"
)

// Answer is the result of one natural-language question. When synthesis
// fails, Degraded is set and Rows still carries the raw result.
type Answer struct {
	Question string          `json:"question"`
	Query    string          `json:"query"`
	Rows     *port.QueryRows `json:"rows"`
	Answer   string          `json:"answer,omitempty"`
	Degraded bool            `json:"degraded,omitempty"`
}

// Service turns questions into guarded SQL and answers.
type Service struct {
	backend  port.ModelBackend
	executor port.ReadOnlyQueryExecutor
	logger   *zap.Logger
}

// NewService creates the analytics question service.
func NewService(backend port.ModelBackend, executor port.ReadOnlyQueryExecutor, logger *zap.Logger) *Service {
	return &Service{backend: backend, executor: executor, logger: logger.Named("analytics")}
}

// Ask generates SQL for the question, validates it, runs it, and synthesizes
// a prose answer. A query the guard refuses never reaches storage, and a
// failed generation is not retried.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	raw, err := s.backend.Complete(ctx, port.CompletionRequest{
		System: "You translate questions about invoice data into a single PostgreSQL SELECT statement. Respond with SQL only, no explanation, no code fences.",
		Prompt: buildQueryPrompt(question),
	})
	if err != nil {
		return nil, &GuardError{Kind: KindExecutionError, Reason: "query generation failed", Err: err}
	}

	query, err := ValidateQuery(stripSQLFences(raw))
	if err != nil {
		s.logger.Warn("rejected generated query",
			zap.String("question", question),
			zap.Error(err))
		return nil, err
	}

	rows, err := s.executor.RunReadOnly(ctx, query)
	if err != nil {
		return nil, &GuardError{Kind: KindExecutionError, Reason: "query execution failed", Err: err}
	}

	answer := &Answer{Question: question, Query: query, Rows: rows}

	prose, err := s.synthesize(ctx, question, rows)
	if err != nil {
		s.logger.Warn("answer synthesis failed, returning raw rows",
			zap.String("question", question),
			zap.Error(err))
		answer.Degraded = true
		return answer, nil
	}
	answer.Answer = prose
	return answer, nil
}

func (s *Service) synthesize(ctx context.Context, question string, rows *port.QueryRows) (string, error) {
	data, err := json.Marshal(rows.Rows)
	if err != nil {
		return "", fmt.Errorf("encoding rows: %w", err)
	}
	return s.backend.Complete(ctx, port.CompletionRequest{
		System: "You answer questions about invoice data. Answer concisely in plain text using only the rows provided.",
		Prompt: fmt.Sprintf("Question: %s\n\nQuery result rows (JSON):\n%s\n\nAnswer the question.", question, data),
	})
}

func buildQueryPrompt(question string) string {
	var b strings.Builder
	b.WriteString("Database schema:\n\n")
	b.WriteString(schemaDescription)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Exactly one SELECT statement.\n")
	b.WriteString("- Never modify data.\n")
	b.WriteString("- Limit results to 100 rows unless the question requires aggregation.\n")
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String()
}

// stripSQLFences removes markdown fences models wrap around generated SQL.
func stripSQLFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
