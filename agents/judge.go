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

// JudgeOutcome is the selected draft plus the decision that picked it. When
// the judge synthesized a merge, Selected is the merged draft.
type JudgeOutcome struct {
	Selected types.Draft
	Decision types.JudgeDecision
}

// JudgeAgent scores the drafts, picks a winner, and optionally merges
// elements from the losers into it.
type JudgeAgent struct {
	invoker  llm.Invoker
	progress llm.ProgressFunc
}

// NewJudgeAgent builds the judge.
func NewJudgeAgent(invoker llm.Invoker, progress llm.ProgressFunc) *JudgeAgent {
	return &JudgeAgent{invoker: invoker, progress: progress}
}

const judgeSystem = `You are an exacting content editor choosing between
candidate drafts of the same article. Score each draft 0-10 against the
brief, name strengths and weaknesses, and pick the winner by zero-based
index. If specific elements of losing drafts would clearly improve the
winner, flag a synthesis opportunity and list those elements. Respond only
with JSON.`

// Run evaluates all valid drafts and returns the chosen (possibly merged)
// draft. Bodiless drafts are dropped before scoring.
func (j *JudgeAgent) Run(ctx context.Context, drafts []types.Draft, brief types.SynthesizedBrief) Result[JudgeOutcome] {
	valid := make([]types.Draft, 0, len(drafts))
	for _, d := range drafts {
		if strings.TrimSpace(d.Body) != "" {
			valid = append(valid, d)
		}
	}
	if len(valid) == 0 {
		return failed[JudgeOutcome](0, "judge: no valid drafts to compare")
	}

	briefJSON, _ := json.Marshal(brief)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Content brief:\n%s\n\nCandidate drafts:\n", briefJSON)
	for i, d := range valid {
		fmt.Fprintf(&sb, "\n--- Draft %d (angle: %s, title: %s) ---\n%s\n",
			i, d.Angle, d.Title, excerpt(d.Body, config.JudgeExcerptLength))
	}

	var decision types.JudgeDecision
	tokens, err := j.invoker.Invoke(ctx, llm.Params{
		Prompt:      sb.String(),
		System:      judgeSystem,
		MaxTokens:   config.JudgeMaxTokens,
		Temperature: 0.2,
		Schema: llm.Object(
			[]string{"winner", "scores"},
			map[string]any{
				"winner": llm.Integer("zero-based index of the winning draft"),
				"scores": llm.Array(llm.Object(
					[]string{"index", "score"},
					map[string]any{
						"index":      llm.Integer("draft index"),
						"score":      llm.Number("score 0-10"),
						"strengths":  llm.Array(llm.String("a strength"), "what this draft does well"),
						"weaknesses": llm.Array(llm.String("a weakness"), "what holds this draft back"),
					},
				), "one entry per draft"),
				"synthesisOpportunity": llm.Boolean("true if merging elements would beat the winner alone"),
				"synthesisElements": llm.Array(llm.Object(
					[]string{"sourceDraftIndex", "elementDescription"},
					map[string]any{
						"sourceDraftIndex":   llm.Integer("index of the draft to borrow from"),
						"elementDescription": llm.String("the element worth borrowing"),
					},
				), "elements to merge into the winner"),
			},
		),
		Progress: j.progress,
	}, &decision)
	if err != nil {
		return failed[JudgeOutcome](tokens, "judge: %v", err)
	}

	// Models return out-of-range indices often enough that we clamp instead
	// of failing the phase.
	if decision.Winner < 0 {
		decision.Winner = 0
	}
	if decision.Winner >= len(valid) {
		decision.Winner = len(valid) - 1
	}
	selected := valid[decision.Winner]

	if decision.SynthesisOpportunity && len(decision.SynthesisElements) > 0 {
		merged, mergeTokens := j.synthesize(ctx, selected, valid, decision)
		tokens += mergeTokens
		if merged != nil {
			selected = *merged
		}
	}

	return succeed(JudgeOutcome{Selected: selected, Decision: decision}, tokens)
}

const mergeSystem = `You are rewriting the winning draft of an article to
incorporate specific named elements from other drafts. Keep the winner's
voice, structure, title and slug; weave the borrowed elements in naturally.
Respond only with JSON using the same draft shape.`

// synthesize issues the merge call. A merge failure is non-fatal: the
// original winner stands.
func (j *JudgeAgent) synthesize(ctx context.Context, winner types.Draft, valid []types.Draft, decision types.JudgeDecision) (*types.Draft, int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Winning draft:\nTitle: %s\nSlug: %s\n\n%s\n\nElements to incorporate:\n",
		winner.Title, winner.Slug, winner.Body)
	for _, el := range decision.SynthesisElements {
		if el.SourceDraftIndex < 0 || el.SourceDraftIndex >= len(valid) {
			continue
		}
		src := valid[el.SourceDraftIndex]
		fmt.Fprintf(&sb, "\n- %s\n  From draft %d (%s):\n%s\n",
			el.ElementDescription, el.SourceDraftIndex, src.Title,
			excerpt(src.Body, config.SynthesisExcerptLength))
	}

	var merged types.Draft
	tokens, err := j.invoker.Invoke(ctx, llm.Params{
		Prompt:      sb.String(),
		System:      mergeSystem,
		MaxTokens:   config.DraftMaxTokens,
		Temperature: 0.5,
		Schema: llm.Object(
			[]string{"angle", "title", "metaDescription", "slug", "body"},
			map[string]any{
				"angle":           llm.String("the winning draft's angle"),
				"title":           llm.String("the winning draft's title"),
				"metaDescription": llm.String("meta description, under 160 characters"),
				"slug":            llm.String("the winning draft's slug, unchanged"),
				"body":            llm.String("merged article body in Markdown"),
				"citedSources":    llm.Array(llm.String("a source"), "all sources cited"),
			},
		),
		Progress: j.progress,
	}, &merged)
	if err != nil || strings.TrimSpace(merged.Body) == "" {
		// Keep the original winner rather than failing the phase.
		return nil, tokens
	}
	merged.Slug = winner.Slug
	return &merged, tokens
}
