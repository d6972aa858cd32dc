package agents

import (
	"context"
	"fmt"

	"medscribe/config"
	"medscribe/llm"
	"medscribe/types"
)

// CriticAgent judges a draft against one quality concern and decides whether
// it needs revision. The pipeline runs its two critics sequentially within an
// iteration; both must approve for the draft to be finished.
type CriticAgent struct {
	invoker  llm.Invoker
	name     string
	system   string
	progress llm.ProgressFunc
}

const medicalCriticSystem = `You are a medical reviewer checking a consumer
health article for accuracy. Flag unsupported claims, missing safety
warnings, outdated guidance and anything that could harm a reader who acts
on it. Approve only when the article is safe and accurate as written.
Respond only with JSON.`

// NewMedicalCritic reviews domain accuracy.
func NewMedicalCritic(invoker llm.Invoker, progress llm.ProgressFunc) *CriticAgent {
	return &CriticAgent{invoker: invoker, name: "medical-critic", system: medicalCriticSystem, progress: progress}
}

const editorialCriticSystem = `You are a senior editor reviewing an article
for structure, clarity, flow, tone consistency and SEO basics (title, meta
description, heading hierarchy). Approve only when it is ready to publish.
Respond only with JSON.`

// NewEditorialCritic reviews editorial quality.
func NewEditorialCritic(invoker llm.Invoker, progress llm.ProgressFunc) *CriticAgent {
	return &CriticAgent{invoker: invoker, name: "editorial-critic", system: editorialCriticSystem, progress: progress}
}

// Name reports which concern this critic covers.
func (c *CriticAgent) Name() string { return c.name }

// Run scores the draft and lists the fixes required before approval.
func (c *CriticAgent) Run(ctx context.Context, draft types.Draft) Result[types.Critique] {
	prompt := fmt.Sprintf(`Title: %s
Meta description: %s

%s

Review this article. List every fix required before you would approve it;
if none, approve.`, draft.Title, draft.MetaDescription, draft.Body)

	var critique types.Critique
	tokens, err := c.invoker.Invoke(ctx, llm.Params{
		Prompt:      prompt,
		System:      c.system,
		MaxTokens:   config.CritiqueMaxTokens,
		Temperature: 0.2,
		Schema: llm.Object(
			[]string{"approved", "score", "requiredFixes"},
			map[string]any{
				"approved":      llm.Boolean("true only if no fixes are required"),
				"score":         llm.Number("quality score 0-10"),
				"requiredFixes": llm.Array(llm.String("one specific, actionable fix"), "fixes required before approval; empty if approved"),
				"notes":         llm.String("optional overall notes"),
			},
		),
		Progress: c.progress,
	}, &critique)
	if err != nil {
		return failed[types.Critique](tokens, "%s: %v", c.name, err)
	}

	// Bound each fix so revision prompts stay actionable.
	for i, fix := range critique.RequiredFixes {
		if len(fix) > config.MaxFixLength {
			critique.RequiredFixes[i] = fix[:config.MaxFixLength]
		}
	}

	return succeed(critique, tokens)
}
