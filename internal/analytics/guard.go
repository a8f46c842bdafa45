// Package analytics exposes the natural-language question surface: model
// generated SQL, screened by the query guard, executed read-only, and
// synthesized back into an answer.
package analytics

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// GuardErrorKind separates queries the guard refused from queries that failed
// downstream.
type GuardErrorKind string

const (
	// KindUnsafeQuery means the generated SQL was rejected before touching
	// storage.
	KindUnsafeQuery GuardErrorKind = "unsafe_query"
	// KindExecutionError means the query passed the guard but storage failed.
	KindExecutionError GuardErrorKind = "execution_error"
)

// GuardError is the analytics surface's error type.
type GuardError struct {
	Kind   GuardErrorKind
	Reason string
	Err    error
}

func (e *GuardError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *GuardError) Unwrap() error { return e.Err }

// deniedKeywords are statement verbs that must never appear in generated SQL,
// checked as whole words outside string literals.
var deniedKeywords = map[string]bool{
	"DROP":     true,
	"DELETE":   true,
	"INSERT":   true,
	"UPDATE":   true,
	"ALTER":    true,
	"CREATE":   true,
	"TRUNCATE": true,
	"GRANT":    true,
	"REVOKE":   true,
	"COPY":     true,
	"ATTACH":   true,
	"PRAGMA":   true,
}

// ValidateQuery normalizes generated SQL and rejects anything that is not a
// single plain SELECT. The checks run in order: trailing semicolon stripped,
// multi-statement detection, SELECT-only, deny-list, injection screening of
// string literals. The first failure wins; there is no retry.
func ValidateQuery(query string) (string, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(query))
	if normalized == "" {
		return "", &GuardError{Kind: KindUnsafeQuery, Reason: "empty query"}
	}

	if hasSemicolonOutsideStrings(normalized) {
		return "", &GuardError{Kind: KindUnsafeQuery, Reason: "multiple SQL statements not allowed"}
	}

	if !strings.HasPrefix(strings.ToUpper(normalized), "SELECT") {
		return "", &GuardError{Kind: KindUnsafeQuery, Reason: "only SELECT statements are allowed"}
	}

	if kw := findDeniedKeyword(normalized); kw != "" {
		return "", &GuardError{Kind: KindUnsafeQuery, Reason: fmt.Sprintf("forbidden keyword %s", kw)}
	}

	for _, lit := range stringLiterals(normalized) {
		if isSQLi, fingerprint := libinjection.IsSQLi(lit); isSQLi {
			return "", &GuardError{
				Kind:   KindUnsafeQuery,
				Reason: fmt.Sprintf("string literal failed injection screening (fingerprint %s)", fingerprint),
			}
		}
	}

	return normalized, nil
}

func stripTrailingSemicolon(query string) string {
	query = strings.TrimRight(query, " \t\n\r")
	if strings.HasSuffix(query, ";") {
		query = strings.TrimRight(strings.TrimSuffix(query, ";"), " \t\n\r")
	}
	return query
}

// hasSemicolonOutsideStrings reports whether any semicolon sits outside a
// string literal. The trailing semicolon is already stripped, so any hit
// means a second statement.
func hasSemicolonOutsideStrings(query string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prev := rune(0)
	for _, ch := range query {
		switch state {
		case stateNormal:
			switch ch {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			if ch == '\'' && prev != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if ch == '"' && prev != '\\' {
				state = stateNormal
			}
		}
		prev = ch
	}
	return false
}

// findDeniedKeyword scans word tokens outside string literals and returns the
// first deny-listed one.
func findDeniedKeyword(query string) string {
	var token strings.Builder
	inString := false

	check := func() string {
		word := strings.ToUpper(token.String())
		token.Reset()
		if deniedKeywords[word] {
			return word
		}
		return ""
	}

	for _, ch := range query {
		if inString {
			if ch == '\'' {
				inString = false
			}
			continue
		}
		switch {
		case ch == '\'':
			inString = true
			if kw := check(); kw != "" {
				return kw
			}
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '_':
			token.WriteRune(ch)
		default:
			if kw := check(); kw != "" {
				return kw
			}
		}
	}
	return check()
}

// stringLiterals extracts the contents of single-quoted literals for
// injection screening.
func stringLiterals(query string) []string {
	var literals []string
	var current strings.Builder
	inString := false
	prev := rune(0)

	for _, ch := range query {
		if !inString {
			if ch == '\'' {
				inString = true
				current.Reset()
			}
			prev = ch
			continue
		}
		if ch == '\'' && prev != '\\' {
			inString = false
			if current.Len() > 0 {
				literals = append(literals, current.String())
			}
		} else {
			current.WriteRune(ch)
		}
		prev = ch
	}
	return literals
}
