package llm

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeIsNoOpOnValidJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"flat object", `{"a": 1, "b": "two"}`},
		{"nested", `{"a": {"b": [1, 2, 3]}, "c": "x"}`},
		{"escaped quotes", `{"body": "she said \"hello\" loudly"}`},
		{"escaped newline", `{"body": "line one\nline two"}`},
		{"braces in strings", `{"body": "a { b } c", "n": 2}`},
		{"comma in string", `{"body": "stop, then go"}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Normalize(c.in)
			if got != c.in {
				t.Fatalf("Normalize(%q) = %q; want unchanged", c.in, got)
			}

			var direct, repaired map[string]any
			if err := json.Unmarshal([]byte(c.in), &direct); err != nil {
				t.Fatalf("direct parse failed: %v", err)
			}
			if err := json.Unmarshal([]byte(got), &repaired); err != nil {
				t.Fatalf("parse after Normalize failed: %v", err)
			}
			if !reflect.DeepEqual(direct, repaired) {
				t.Fatalf("repair changed value: %v vs %v", direct, repaired)
			}
		})
	}
}

func TestNormalizeRepairs(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want map[string]any
	}{
		{
			"literal newline in string",
			"{\"body\": \"line one\nline two\"}",
			map[string]any{"body": "line one\nline two"},
		},
		{
			"trailing comma in object",
			`{"a": 1,}`,
			map[string]any{"a": float64(1)},
		},
		{
			"trailing comma in array",
			`{"a": [1, 2,]}`,
			map[string]any{"a": []any{float64(1), float64(2)}},
		},
		{
			"prose quotes",
			`{"body": "She said "take it slow" today"}`,
			map[string]any{"body": `She said "take it slow" today`},
		},
		{
			"invalid backslash",
			`{"path": "C:\medical\data"}`,
			map[string]any{"path": `C:\medical\data`},
		},
		{
			"stray control char",
			"{\"a\": \"b\x01c\"}",
			map[string]any{"a": "bc"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			repaired := Normalize(c.in)
			var got map[string]any
			if err := json.Unmarshal([]byte(repaired), &got); err != nil {
				t.Fatalf("parse after Normalize(%q) failed: %v (repaired: %q)", c.in, err, repaired)
			}
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("got %v; want %v", got, c.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced no lang", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"chatter before and after", `Sure! Here you go: {"a": {"b": 2}} hope that helps`, `{"a": {"b": 2}}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ExtractJSON(c.in); got != c.want {
				t.Fatalf("ExtractJSON(%q) = %q; want %q", c.in, got, c.want)
			}
		})
	}
}

func TestDraftRoundTripWithProseQuotes(t *testing.T) {
	type draft struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	orig := draft{
		Title: `Managing "silent" hypertension`,
		Body:  "Patients often ask: \"is this serious?\"\nThe honest answer has two parts.",
	}

	// A well-formed serialization must survive the repair ladder untouched.
	raw, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got draft
	if err := Decode(string(raw), &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != orig {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, orig)
	}
}

func TestDecodeFailureReturnsParseError(t *testing.T) {
	var out map[string]any
	err := Decode("not json at all, no braces", &out)
	if err == nil {
		t.Fatalf("expected error for unparseable input")
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if perr.Preview == "" {
		t.Fatalf("ParseError should carry a raw preview")
	}
}

func TestBalancedSpan(t *testing.T) {
	in := `prefix {"a": {"deep": "}"}, "b": 1} suffix {"ignored": true}`
	want := `{"a": {"deep": "}"}, "b": 1}`
	if got := BalancedSpan(in); got != want {
		t.Fatalf("BalancedSpan = %q; want %q", got, want)
	}
}
