package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"medscribe/config"
	"medscribe/llm"
	"medscribe/types"
)

// FinalizerAgent runs the last optimization pass: title/meta constraints,
// internal links from the existing catalog, surface polish. It must not
// alter substantive medical claims.
type FinalizerAgent struct {
	invoker  llm.Invoker
	progress llm.ProgressFunc
}

// NewFinalizerAgent builds the finalizer.
func NewFinalizerAgent(invoker llm.Invoker, progress llm.ProgressFunc) *FinalizerAgent {
	return &FinalizerAgent{invoker: invoker, progress: progress}
}

const finalizerSystem = `You are performing the final optimization pass on an
approved medical article. Tighten the title to under 60 characters and the
meta description to under 160. Where the existing content catalog offers a
relevant target, suggest internal links with natural anchor text. Polish
surface issues only: never change medical claims, numbers, or warnings.
Respond only with JSON.`

// Run produces the publishable artifact fields. Iteration count, quality
// score and token totals are stamped by the orchestrator afterwards.
func (f *FinalizerAgent) Run(ctx context.Context, draft types.Draft, seo types.SEOResearch, catalog []types.CatalogEntry) Result[types.FinalArticle] {
	seoJSON, _ := json.Marshal(seo)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SEO research:\n%s\n\nApproved draft:\nTitle: %s\nSlug: %s\nMeta description: %s\n\n%s\n",
		seoJSON, draft.Title, draft.Slug, draft.MetaDescription, draft.Body)
	if len(catalog) > 0 {
		sb.WriteString("\nExisting content catalog (for internal links):\n")
		for _, entry := range catalog {
			fmt.Fprintf(&sb, "- %s (slug: %s)\n", entry.Title, entry.Slug)
		}
	}
	sb.WriteString("\nProduce the final optimized article.")

	var article types.FinalArticle
	tokens, err := f.invoker.Invoke(ctx, llm.Params{
		Prompt:      sb.String(),
		System:      finalizerSystem,
		MaxTokens:   config.FinalizeMaxTokens,
		Temperature: 0.3,
		Schema: llm.Object(
			[]string{"title", "metaDescription", "slug", "body"},
			map[string]any{
				"title":           llm.String("optimized title, under 60 characters"),
				"metaDescription": llm.String("optimized meta description, under 160 characters"),
				"slug":            llm.String("the slug, unchanged"),
				"body":            llm.String("final article body in Markdown"),
				"internalLinks": llm.Array(llm.Object(
					[]string{"anchorText", "targetSlug"},
					map[string]any{
						"anchorText": llm.String("anchor text as it appears in the body"),
						"targetSlug": llm.String("slug of the catalog entry to link"),
					},
				), "internal link suggestions drawn from the catalog"),
			},
		),
		Progress: f.progress,
	}, &article)
	if err != nil {
		return failed[types.FinalArticle](tokens, "finalizer: %v", err)
	}
	if strings.TrimSpace(article.Body) == "" {
		return failed[types.FinalArticle](tokens, "finalizer: response missing body")
	}

	article.Slug = draft.Slug
	if article.Title == "" {
		article.Title = draft.Title
	}
	if article.MetaDescription == "" {
		article.MetaDescription = draft.MetaDescription
	}
	return succeed(article, tokens)
}
