package llm

import (
	"context"
	"strings"
)

// Request is the provider-agnostic shape of one generation call. Schema is a
// JSON-schema hint forwarded to the model; it does not replace validation of
// the parsed result.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
	Schema      map[string]any
}

// Response carries the raw model text plus provider-reported usage.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// TotalTokens sums input and output usage into one accounting figure.
func (r *Response) TotalTokens() int {
	if r == nil {
		return 0
	}
	return r.InputTokens + r.OutputTokens
}

// Provider abstracts a structured-output model backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

// transientMarkers identify provider errors worth failing over for:
// rate limiting and exhausted credits. Matching is on error text because
// providers disagree on typed errors for these conditions.
var transientMarkers = []string{
	"429",
	"rate limit",
	"rate_limit",
	"too many requests",
	"quota",
	"credit",
	"402",
	"payment required",
	"insufficient balance",
	"billing",
}

// IsTransient reports whether err indicates rate limiting or exhausted
// credits on the provider side.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Schema builder helpers. Agents declare their expected output shape with
// these; the maps marshal directly into provider schema parameters.

// Object builds an object schema with the given required keys.
func Object(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// String builds a string property with guidance text.
func String(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

// Array builds an array property with the given item schema.
func Array(items map[string]any, desc string) map[string]any {
	return map[string]any{"type": "array", "items": items, "description": desc}
}

// Integer builds an integer property with guidance text.
func Integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

// Number builds a numeric property with guidance text.
func Number(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

// Boolean builds a boolean property with guidance text.
func Boolean(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}
