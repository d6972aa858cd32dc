package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"medscribe/config"
)

// ProgressFunc receives human-readable status updates around a model call.
// Callbacks are best effort: panics and slow sinks must never affect the
// call itself.
type ProgressFunc func(status string)

// Params describes one structured-output invocation.
type Params struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
	Schema      map[string]any
	Progress    ProgressFunc
}

// Invoker is the structured-output contract agents depend on. Invoke fills
// out with the parsed response and returns total tokens used. Tokens are
// reported even when parsing fails, so callers can account for usage of
// unusable responses.
type Invoker interface {
	Invoke(ctx context.Context, p Params, out any) (int, error)
}

// ParseError means the model response survived no repair attempt. It carries
// a truncated preview of the raw text for diagnosis.
type ParseError struct {
	Preview string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("response is not valid JSON after repair: %v (raw: %q)", e.Err, e.Preview)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Client invokes a Provider with a schema constraint and parses the response
// through the repair ladder.
type Client struct {
	provider Provider
}

// NewClient wraps a provider in the structured-output contract.
func NewClient(p Provider) *Client {
	return &Client{provider: p}
}

// ProviderName reports the underlying provider, for telemetry.
func (c *Client) ProviderName() string { return c.provider.Name() }

// Invoke runs one generation call and decodes the result into out.
func (c *Client) Invoke(ctx context.Context, p Params, out any) (int, error) {
	if strings.TrimSpace(p.Prompt) == "" {
		return 0, errors.New("llm: empty prompt")
	}

	notify(p.Progress, fmt.Sprintf("calling %s", c.provider.Name()))

	resp, err := c.provider.Generate(ctx, Request{
		Prompt:      p.Prompt,
		System:      p.System,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Schema:      p.Schema,
	})
	if err != nil {
		notify(p.Progress, fmt.Sprintf("%s failed: %v", c.provider.Name(), err))
		return resp.TotalTokens(), err
	}

	tokens := resp.TotalTokens()
	if err := Decode(resp.Text, out); err != nil {
		notify(p.Progress, fmt.Sprintf("%s returned unparseable output", c.provider.Name()))
		return tokens, err
	}

	notify(p.Progress, fmt.Sprintf("%s completed (%d tokens)", c.provider.Name(), tokens))
	return tokens, nil
}

// Decode parses raw model text into out, applying repairs in escalating
// order: direct parse, normalization, balanced-span rescan. Valid input
// decodes without modification.
func Decode(raw string, out any) error {
	candidate := ExtractJSON(raw)

	firstErr := json.Unmarshal([]byte(candidate), out)
	if firstErr == nil {
		return nil
	}

	repaired := Normalize(candidate)
	if err := json.Unmarshal([]byte(repaired), out); err == nil {
		return nil
	}

	if span := BalancedSpan(repaired); span != "" {
		if err := json.Unmarshal([]byte(span), out); err == nil {
			return nil
		}
	}

	return &ParseError{Preview: preview(raw), Err: firstErr}
}

// notify calls the progress callback, swallowing anything it does wrong.
func notify(f ProgressFunc, status string) {
	if f == nil {
		return
	}
	defer func() { _ = recover() }()
	f(status)
}

func preview(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= config.RawPreviewLength {
		return raw
	}
	return raw[:config.RawPreviewLength] + "..."
}
