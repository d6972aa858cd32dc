package agents

import (
	"context"
	"fmt"
	"strings"

	"medscribe/config"
	"medscribe/llm"
	"medscribe/types"
)

// RevisionAgent rewrites a draft to address combined critic feedback. Each
// run yields a fresh Draft value; the input draft is never mutated.
type RevisionAgent struct {
	invoker  llm.Invoker
	progress llm.ProgressFunc
}

// NewRevisionAgent builds the reviser.
func NewRevisionAgent(invoker llm.Invoker, progress llm.ProgressFunc) *RevisionAgent {
	return &RevisionAgent{invoker: invoker, progress: progress}
}

const revisionSystem = `You are revising an article to address reviewer
feedback. Apply every required fix. Do not change anything the feedback does
not target: keep the slug exactly as-is, keep the title and structure unless
a fix demands otherwise. Respond only with JSON using the same draft shape.`

// Run applies the critics' required fixes and returns the revised draft.
// The slug always survives unchanged so pre-registered link targets stay
// valid.
func (r *RevisionAgent) Run(ctx context.Context, current types.Draft, medicalFixes, editorialFixes []string) Result[types.Draft] {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current draft:\nTitle: %s\nSlug: %s\nMeta description: %s\n\n%s\n",
		current.Title, current.Slug, current.MetaDescription, current.Body)

	sb.WriteString("\nMedical accuracy fixes required:\n")
	if len(medicalFixes) == 0 {
		sb.WriteString("- none\n")
	}
	for _, fix := range medicalFixes {
		fmt.Fprintf(&sb, "- %s\n", fix)
	}
	sb.WriteString("\nEditorial fixes required:\n")
	if len(editorialFixes) == 0 {
		sb.WriteString("- none\n")
	}
	for _, fix := range editorialFixes {
		fmt.Fprintf(&sb, "- %s\n", fix)
	}
	sb.WriteString("\nRewrite the article applying every fix.")

	var revised types.Draft
	tokens, err := r.invoker.Invoke(ctx, llm.Params{
		Prompt:      sb.String(),
		System:      revisionSystem,
		MaxTokens:   config.RevisionMaxTokens,
		Temperature: 0.5,
		Schema: llm.Object(
			[]string{"angle", "title", "metaDescription", "slug", "body"},
			map[string]any{
				"angle":           llm.String("unchanged angle"),
				"title":           llm.String("title, revised only if a fix targets it"),
				"metaDescription": llm.String("meta description, under 160 characters"),
				"slug":            llm.String("the slug, exactly as given"),
				"body":            llm.String("revised article body in Markdown"),
				"citedSources":    llm.Array(llm.String("a source"), "sources cited"),
			},
		),
		Progress: r.progress,
	}, &revised)
	if err != nil {
		return failed[types.Draft](tokens, "revision: %v", err)
	}
	if strings.TrimSpace(revised.Body) == "" {
		return failed[types.Draft](tokens, "revision: response missing body")
	}

	// Preserve untouched fields: the slug unconditionally, the rest when the
	// model dropped them.
	revised.Slug = current.Slug
	if revised.Title == "" {
		revised.Title = current.Title
	}
	if revised.MetaDescription == "" {
		revised.MetaDescription = current.MetaDescription
	}
	if revised.Angle == "" {
		revised.Angle = current.Angle
	}
	if len(revised.CitedSources) == 0 {
		revised.CitedSources = current.CitedSources
	}
	return succeed(revised, tokens)
}
