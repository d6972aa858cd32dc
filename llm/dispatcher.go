package llm

import (
	"context"
	"errors"
	"log"
)

// Dispatcher routes structured-output calls to a primary provider, failing
// over to a secondary when the primary reports rate limiting or exhausted
// credits. Any other primary error propagates unchanged.
type Dispatcher struct {
	primary   *Client
	secondary *Client

	// secondaryOnly bypasses the primary entirely. Set at construction from
	// deployment config, never flipped at runtime.
	secondaryOnly bool
}

// NewDispatcher wires the two clients. secondaryOnly forces all traffic to
// the fallback provider.
func NewDispatcher(primary, secondary *Client, secondaryOnly bool) *Dispatcher {
	return &Dispatcher{
		primary:       primary,
		secondary:     secondary,
		secondaryOnly: secondaryOnly,
	}
}

// Route invokes the call and reports which provider actually served it.
func (d *Dispatcher) Route(ctx context.Context, p Params, out any) (int, string, error) {
	if d.secondaryOnly {
		tokens, err := d.secondary.Invoke(ctx, p, out)
		return tokens, d.secondary.ProviderName(), err
	}

	tokens, err := d.primary.Invoke(ctx, p, out)
	if err == nil {
		return tokens, d.primary.ProviderName(), nil
	}

	// Parse failures carry the model's own text and are never a reason to
	// retry elsewhere; only provider-side throttling/credit errors are.
	var parseErr *ParseError
	if errors.As(err, &parseErr) || !IsTransient(err) {
		return tokens, d.primary.ProviderName(), err
	}

	log.Printf("provider %s unavailable (%v), falling back to %s",
		d.primary.ProviderName(), err, d.secondary.ProviderName())

	fbTokens, fbErr := d.secondary.Invoke(ctx, p, out)
	return tokens + fbTokens, d.secondary.ProviderName(), fbErr
}

// Invoke implements Invoker over Route for callers that do not need the
// served-by telemetry.
func (d *Dispatcher) Invoke(ctx context.Context, p Params, out any) (int, error) {
	tokens, _, err := d.Route(ctx, p, out)
	return tokens, err
}
