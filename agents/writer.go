package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"medscribe/config"
	"medscribe/llm"
	"medscribe/types"
)

// Persona is one writer voice. Personas differ only in system instruction;
// the output schema is fixed.
type Persona struct {
	Name  string
	Style string
}

// Personas is the fixed writer roster. The last one runs on the alternate
// provider (see NewWriterAgents).
var Personas = []Persona{
	{
		Name: "clinical-educator",
		Style: `You write like a physician educator: precise, measured, every
claim anchored to evidence. You prefer plain statements over hedging but
never overstate certainty.`,
	},
	{
		Name: "patient-advocate",
		Style: `You write like a patient advocate: warm, second-person, focused
on what the reader is feeling and what they can actually do next. Medical
accuracy is non-negotiable but jargon is.`,
	},
	{
		Name: "health-journalist",
		Style: `You write like a health journalist: narrative lede, concrete
numbers, quotes from guidelines, a skeptical eye for hype. Short paragraphs.`,
	},
	{
		Name: "practical-guide",
		Style: `You write like a how-to author: scannable structure, numbered
steps, checklists, FAQ blocks. Everything actionable.`,
	},
}

// WriterAgent drafts an article in one persona's voice.
type WriterAgent struct {
	invoker  llm.Invoker
	persona  Persona
	progress llm.ProgressFunc
}

// NewWriterAgents builds the full persona roster. Every persona calls the
// dispatcher except the last, which goes straight to the alternate provider
// to keep writers pluggable across backends.
func NewWriterAgents(dispatcher, alternate llm.Invoker, progress llm.ProgressFunc) []*WriterAgent {
	writers := make([]*WriterAgent, 0, len(Personas))
	for i, p := range Personas {
		inv := dispatcher
		if i == len(Personas)-1 && alternate != nil {
			inv = alternate
		}
		writers = append(writers, &WriterAgent{invoker: inv, persona: p, progress: progress})
	}
	return writers
}

// Persona reports which voice this writer uses.
func (w *WriterAgent) Persona() string { return w.persona.Name }

// Run drafts one candidate article from the shared brief.
func (w *WriterAgent) Run(ctx context.Context, topic string, brief types.SynthesizedBrief) Result[types.Draft] {
	briefJSON, _ := json.Marshal(brief)

	system := fmt.Sprintf(`You are a long-form medical content writer.
%s
Follow the brief exactly: its angle, outline, required elements and target
length. Cite the sources you draw on. The body is Markdown. Respond only
with JSON.`, w.persona.Style)

	var draft types.Draft
	tokens, err := w.invoker.Invoke(ctx, llm.Params{
		Prompt:      fmt.Sprintf("Topic: %q\n\nContent brief:\n%s\n\nWrite the full article.", topic, briefJSON),
		System:      system,
		MaxTokens:   config.DraftMaxTokens,
		Temperature: 0.7,
		Schema: llm.Object(
			[]string{"angle", "title", "metaDescription", "slug", "body"},
			map[string]any{
				"angle":           llm.String("the angle this draft takes"),
				"title":           llm.String("article title, under 60 characters"),
				"metaDescription": llm.String("meta description, under 160 characters"),
				"slug":            llm.String("url slug: lowercase words joined by hyphens"),
				"body":            llm.String("full article body in Markdown"),
				"citedSources":    llm.Array(llm.String("a source"), "sources cited in the body"),
			},
		),
		Progress: w.progress,
	}, &draft)
	if err != nil {
		return failed[types.Draft](tokens, "writer %s: %v", w.persona.Name, err)
	}
	if draft.Body == "" || draft.Title == "" {
		return failed[types.Draft](tokens, "writer %s: response missing title or body", w.persona.Name)
	}
	if draft.Angle == "" {
		draft.Angle = w.persona.Name
	}
	return succeed(draft, tokens)
}
