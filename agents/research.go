package agents

import (
	"context"
	"fmt"

	"medscribe/config"
	"medscribe/llm"
	"medscribe/types"
)

// ResearchAgents groups the three independent research roles. They share an
// invoker but no mutable state, so the orchestrator fans them out
// concurrently.
type ResearchAgents struct {
	invoker  llm.Invoker
	progress llm.ProgressFunc
}

// NewResearchAgents builds the research fan-out group.
func NewResearchAgents(invoker llm.Invoker, progress llm.ProgressFunc) *ResearchAgents {
	return &ResearchAgents{invoker: invoker, progress: progress}
}

const seoSystem = `You are an SEO research specialist for a medical content site.
Analyze the search landscape for the given keyword: intent, related queries,
the questions real searchers ask, and the content length that competes today.
Respond only with JSON.`

// SEO researches search intent and keyword landscape.
func (r *ResearchAgents) SEO(ctx context.Context, topic string) Result[types.SEOResearch] {
	var doc types.SEOResearch
	tokens, err := r.invoker.Invoke(ctx, llm.Params{
		Prompt:      fmt.Sprintf("Research the SEO landscape for the keyword: %q", topic),
		System:      seoSystem,
		MaxTokens:   config.ResearchMaxTokens,
		Temperature: 0.4,
		Schema: llm.Object(
			[]string{"searchIntent", "relatedKeywords", "commonQuestions", "recommendedLength"},
			map[string]any{
				"searchIntent":      llm.String("dominant intent: informational, transactional, or navigational, with a short rationale"),
				"relatedKeywords":   llm.Array(llm.String("a related keyword"), "semantically related keywords to cover"),
				"commonQuestions":   llm.Array(llm.String("a question"), "questions searchers ask about this topic"),
				"recommendedLength": llm.Integer("recommended article word count"),
				"titleIdeas":        llm.Array(llm.String("a title"), "candidate titles under 60 characters"),
			},
		),
		Progress: r.progress,
	}, &doc)
	if err != nil {
		return failed[types.SEOResearch](tokens, "seo research: %v", err)
	}
	if doc.SearchIntent == "" {
		return failed[types.SEOResearch](tokens, "seo research: response missing searchIntent")
	}
	return succeed(doc, tokens)
}

const medicalSystem = `You are a medical research assistant. Summarize the
current clinical understanding of the given topic for a consumer-health
article: established facts, common misconceptions, safety warnings, and the
authoritative sources an article must cite. Be conservative: if evidence is
mixed, say so. Respond only with JSON.`

// Medical researches the clinical facts behind the topic.
func (r *ResearchAgents) Medical(ctx context.Context, topic string) Result[types.MedicalResearch] {
	var doc types.MedicalResearch
	tokens, err := r.invoker.Invoke(ctx, llm.Params{
		Prompt:      fmt.Sprintf("Compile clinical research notes on: %q", topic),
		System:      medicalSystem,
		MaxTokens:   config.ResearchMaxTokens,
		Temperature: 0.2,
		Schema: llm.Object(
			[]string{"overview", "keyFacts", "warnings", "sourcesToCite"},
			map[string]any{
				"overview":       llm.String("two-paragraph clinical overview"),
				"keyFacts":       llm.Array(llm.String("an evidence-backed fact"), "facts the article must get right"),
				"misconceptions": llm.Array(llm.String("a misconception"), "widespread but wrong beliefs"),
				"warnings":       llm.Array(llm.String("a warning"), "safety warnings and contraindications"),
				"sourcesToCite":  llm.Array(llm.String("a source"), "authoritative sources (journals, agencies)"),
				"reviewRequired": llm.Boolean("true if claims need professional medical review before publication"),
			},
		),
		Progress: r.progress,
	}, &doc)
	if err != nil {
		return failed[types.MedicalResearch](tokens, "medical research: %v", err)
	}
	if doc.Overview == "" || len(doc.KeyFacts) == 0 {
		return failed[types.MedicalResearch](tokens, "medical research: response missing overview or key facts")
	}
	return succeed(doc, tokens)
}

const competitiveSystem = `You are a content strategist analyzing what already
ranks for a keyword. Identify the angles everyone takes, the gaps nobody
covers, and how a new article can stand out. Respond only with JSON.`

// Competitive researches the existing ranking content for the topic.
func (r *ResearchAgents) Competitive(ctx context.Context, topic string) Result[types.CompetitiveResearch] {
	var doc types.CompetitiveResearch
	tokens, err := r.invoker.Invoke(ctx, llm.Params{
		Prompt:      fmt.Sprintf("Analyze the competitive content landscape for: %q", topic),
		System:      competitiveSystem,
		MaxTokens:   config.ResearchMaxTokens,
		Temperature: 0.4,
		Schema: llm.Object(
			[]string{"commonAngles", "contentGaps", "differentiators"},
			map[string]any{
				"commonAngles":    llm.Array(llm.String("an angle"), "angles the top results already take"),
				"contentGaps":     llm.Array(llm.String("a gap"), "subtopics the top results skip"),
				"differentiators": llm.Array(llm.String("a differentiator"), "ways a new article can stand out"),
				"avgWordCount":    llm.Integer("estimated average word count of top results"),
			},
		),
		Progress: r.progress,
	}, &doc)
	if err != nil {
		return failed[types.CompetitiveResearch](tokens, "competitive research: %v", err)
	}
	if len(doc.CommonAngles) == 0 {
		return failed[types.CompetitiveResearch](tokens, "competitive research: response missing common angles")
	}
	return succeed(doc, tokens)
}
