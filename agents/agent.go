// Package agents wraps each pipeline role around one structured-output model
// call. Every agent converts invocation failures into the failure variant of
// Result rather than returning Go errors, so the orchestrator can inspect
// outcomes uniformly at phase boundaries.
package agents

import "fmt"

// Result is the uniform agent outcome. TokensUsed is populated on failures
// too, when the provider reported usage before the call went bad.
type Result[T any] struct {
	Success    bool
	Data       T
	TokensUsed int
	Error      string
}

func succeed[T any](data T, tokens int) Result[T] {
	return Result[T]{Success: true, Data: data, TokensUsed: tokens}
}

func failed[T any](tokens int, format string, args ...any) Result[T] {
	return Result[T]{TokensUsed: tokens, Error: fmt.Sprintf(format, args...)}
}

// excerpt bounds a draft body for inclusion in a prompt.
func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
