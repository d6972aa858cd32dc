package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeProvider plays back a scripted response or error.
type fakeProvider struct {
	name  string
	text  string
	in    int
	out   int
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Response{Text: f.text, InputTokens: f.in, OutputTokens: f.out}, nil
}

func TestInvokeRejectsEmptyPrompt(t *testing.T) {
	c := NewClient(&fakeProvider{name: "fake"})
	var out map[string]any
	if _, err := c.Invoke(context.Background(), Params{Prompt: "   "}, &out); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestInvokeRepairsMessyOutput(t *testing.T) {
	fp := &fakeProvider{
		name: "fake",
		text: "```json\n{\"title\": \"A \"quoted\" title\",\n\"n\": 3,}\n```",
		in:   120,
		out:  80,
	}
	c := NewClient(fp)

	var out struct {
		Title string `json:"title"`
		N     int    `json:"n"`
	}
	tokens, err := c.Invoke(context.Background(), Params{Prompt: "go"}, &out)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if tokens != 200 {
		t.Fatalf("tokens = %d; want 200", tokens)
	}
	if out.Title != `A "quoted" title` || out.N != 3 {
		t.Fatalf("unexpected parse: %+v", out)
	}
}

func TestInvokeReportsTokensOnParseFailure(t *testing.T) {
	fp := &fakeProvider{name: "fake", text: "I cannot answer that.", in: 50, out: 10}
	c := NewClient(fp)

	var out map[string]any
	tokens, err := c.Invoke(context.Background(), Params{Prompt: "go"}, &out)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if !strings.Contains(perr.Preview, "I cannot answer") {
		t.Fatalf("preview should carry raw text, got %q", perr.Preview)
	}
	if tokens != 60 {
		t.Fatalf("tokens = %d; want 60 even on parse failure", tokens)
	}
}

func TestProgressCallbackPanicsAreSwallowed(t *testing.T) {
	fp := &fakeProvider{name: "fake", text: `{"ok": true}`, in: 5, out: 5}
	c := NewClient(fp)

	calls := 0
	var out map[string]any
	tokens, err := c.Invoke(context.Background(), Params{
		Prompt: "go",
		Progress: func(status string) {
			calls++
			panic("sink exploded")
		},
	}, &out)
	if err != nil {
		t.Fatalf("Invoke should survive callback panic: %v", err)
	}
	if tokens != 10 {
		t.Fatalf("tokens = %d; want 10", tokens)
	}
	if calls < 2 {
		t.Fatalf("progress callback should fire at start and completion, got %d calls", calls)
	}
}
