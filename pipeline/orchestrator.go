// Package pipeline drives a keyword through the six-phase generation state
// machine: research, synthesis, drafting, judging, the bounded
// critique/revision loop, and finalization.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"medscribe/agents"
	"medscribe/config"
	"medscribe/types"
)

// The orchestrator depends on agent roles through these interfaces so the
// state machine is testable with no model calls and no I/O.

// ResearchRunner is the three-role research fan-out group.
type ResearchRunner interface {
	SEO(ctx context.Context, topic string) agents.Result[types.SEOResearch]
	Medical(ctx context.Context, topic string) agents.Result[types.MedicalResearch]
	Competitive(ctx context.Context, topic string) agents.Result[types.CompetitiveResearch]
}

// Synthesizer merges research into the run's single brief.
type Synthesizer interface {
	Run(ctx context.Context, topic string, seo types.SEOResearch, med types.MedicalResearch, comp types.CompetitiveResearch) agents.Result[types.SynthesizedBrief]
}

// Writer drafts one candidate article.
type Writer interface {
	Persona() string
	Run(ctx context.Context, topic string, brief types.SynthesizedBrief) agents.Result[types.Draft]
}

// Judge picks (and possibly merges) the winning draft.
type Judge interface {
	Run(ctx context.Context, drafts []types.Draft, brief types.SynthesizedBrief) agents.Result[agents.JudgeOutcome]
}

// Critic reviews the current draft against one quality concern.
type Critic interface {
	Name() string
	Run(ctx context.Context, draft types.Draft) agents.Result[types.Critique]
}

// Reviser rewrites the current draft from combined critic feedback.
type Reviser interface {
	Run(ctx context.Context, current types.Draft, medicalFixes, editorialFixes []string) agents.Result[types.Draft]
}

// Finalizer produces the publishable artifact fields.
type Finalizer interface {
	Run(ctx context.Context, draft types.Draft, seo types.SEOResearch, catalog []types.CatalogEntry) agents.Result[types.FinalArticle]
}

// Deps wires one run's collaborators.
type Deps struct {
	Research        ResearchRunner
	Synthesizer     Synthesizer
	Writers         []Writer
	Judge           Judge
	MedicalCritic   Critic
	EditorialCritic Critic
	Reviser         Reviser
	Finalizer       Finalizer

	// Catalog of already-published content for internal links. Optional.
	Catalog []types.CatalogEntry

	// MaxRevisions bounds the critique loop; zero means the default.
	MaxRevisions int

	// LogSink receives every state log entry. Optional, best effort.
	LogSink func(types.LogEntry)
}

// Orchestrator executes one pipeline run. One instance per run; state is
// never shared between runs.
type Orchestrator struct {
	deps  Deps
	state *State
	runID string
}

// New creates an orchestrator for a single keyword run.
func New(keyword types.Keyword, deps Deps) *Orchestrator {
	if deps.MaxRevisions <= 0 {
		deps.MaxRevisions = config.DefaultMaxRevisions
	}
	runID := uuid.New().String()
	return &Orchestrator{
		deps:  deps,
		state: NewState(runID, keyword.Text, deps.LogSink),
		runID: runID,
	}
}

// Status returns a snapshot of the run state for the dashboard.
func (o *Orchestrator) Status() types.StatusResponse {
	return o.state.Status()
}

// Run drives the keyword through every phase and returns a structured
// result. It never lets a panic or error escape: all failures end in a
// failed-run result.
func (o *Orchestrator) Run(ctx context.Context, keyword types.Keyword) (result *types.RunResult) {
	defer func() {
		if r := recover(); r != nil {
			o.state.AddError(fmt.Sprintf("unexpected failure: %v", r))
			o.state.SetPhase(types.PhaseFailed)
			result = o.failedResult()
		}
	}()

	topic := keyword.Text
	o.state.Logf("info", "pipeline", "starting run for keyword %q", topic)

	// Phase 1: research fan-out. All three must succeed.
	o.state.SetPhase(types.PhaseResearching)
	seo, med, comp, err := o.research(ctx, topic)
	if err != nil {
		return o.fail(err.Error())
	}

	// Phase 2: synthesis, gated on full research success.
	o.state.SetPhase(types.PhaseSynthesizing)
	briefRes := o.deps.Synthesizer.Run(ctx, topic, seo, med, comp)
	o.state.AddTokens(briefRes.TokensUsed)
	if !briefRes.Success {
		return o.fail(briefRes.Error)
	}
	brief := briefRes.Data

	// Phase 3: drafting fan-out. At least MinViableDrafts must land.
	o.state.SetPhase(types.PhaseDrafting)
	drafts, err := o.draft(ctx, topic, brief)
	if err != nil {
		return o.fail(err.Error())
	}

	// Phase 4: judging. The winner becomes the current draft.
	o.state.SetPhase(types.PhaseJudging)
	judgeRes := o.deps.Judge.Run(ctx, drafts, brief)
	o.state.AddTokens(judgeRes.TokensUsed)
	if !judgeRes.Success {
		return o.fail(judgeRes.Error)
	}
	current := judgeRes.Data.Selected
	o.state.Logf("info", "judge", "selected draft %q (winner index %d)",
		current.Title, judgeRes.Data.Decision.Winner)

	// Phase 5: bounded critique/revision loop.
	current, iterations, lastScore, approved := o.critiqueLoop(ctx, current)

	// Phase 6: finalization.
	o.state.SetPhase(types.PhaseFinalizing)
	finalRes := o.deps.Finalizer.Run(ctx, current, seo, o.deps.Catalog)
	o.state.AddTokens(finalRes.TokensUsed)
	if !finalRes.Success {
		return o.fail(finalRes.Error)
	}

	article := finalRes.Data
	article.Iterations = iterations
	article.QualityScore = lastScore
	article.TokensUsed = o.state.Tokens()
	article.Degraded = !approved

	o.state.SetPhase(types.PhaseComplete)
	o.state.Logf("info", "pipeline", "run complete: %d iterations, %d tokens",
		iterations, article.TokensUsed)

	return &types.RunResult{
		RunID:      o.runID,
		Success:    true,
		Article:    &article,
		Phase:      types.PhaseComplete,
		Revisions:  o.state.Revisions(),
		TokensUsed: o.state.Tokens(),
	}
}

// research fans out the three research agents concurrently. Each goroutine
// writes only its own slot; results merge into state after all settle.
func (o *Orchestrator) research(ctx context.Context, topic string) (types.SEOResearch, types.MedicalResearch, types.CompetitiveResearch, error) {
	var (
		seoRes  agents.Result[types.SEOResearch]
		medRes  agents.Result[types.MedicalResearch]
		compRes agents.Result[types.CompetitiveResearch]
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); seoRes = o.deps.Research.SEO(ctx, topic) }()
	go func() { defer wg.Done(); medRes = o.deps.Research.Medical(ctx, topic) }()
	go func() { defer wg.Done(); compRes = o.deps.Research.Competitive(ctx, topic) }()
	wg.Wait()

	o.state.AddTokens(seoRes.TokensUsed)
	o.state.AddTokens(medRes.TokensUsed)
	o.state.AddTokens(compRes.TokensUsed)

	if !seoRes.Success {
		return types.SEOResearch{}, types.MedicalResearch{}, types.CompetitiveResearch{}, fmt.Errorf("research phase: %s", seoRes.Error)
	}
	if !medRes.Success {
		return types.SEOResearch{}, types.MedicalResearch{}, types.CompetitiveResearch{}, fmt.Errorf("research phase: %s", medRes.Error)
	}
	if !compRes.Success {
		return types.SEOResearch{}, types.MedicalResearch{}, types.CompetitiveResearch{}, fmt.Errorf("research phase: %s", compRes.Error)
	}

	o.state.Logf("info", "research", "all three research documents ready")
	return seoRes.Data, medRes.Data, compRes.Data, nil
}

// draft fans out every writer persona concurrently and keeps the drafts
// that succeeded. Token usage from failed attempts counts too.
func (o *Orchestrator) draft(ctx context.Context, topic string, brief types.SynthesizedBrief) ([]types.Draft, error) {
	results := make([]agents.Result[types.Draft], len(o.deps.Writers))

	var wg sync.WaitGroup
	for i, w := range o.deps.Writers {
		wg.Add(1)
		go func(slot int, writer Writer) {
			defer wg.Done()
			results[slot] = writer.Run(ctx, topic, brief)
		}(i, w)
	}
	wg.Wait()

	var drafts []types.Draft
	for i, res := range results {
		o.state.AddTokens(res.TokensUsed)
		if res.Success {
			drafts = append(drafts, res.Data)
		} else {
			o.state.Logf("warn", "writer", "persona %s failed: %s",
				o.deps.Writers[i].Persona(), res.Error)
		}
	}

	if len(drafts) < config.MinViableDrafts {
		return nil, fmt.Errorf("drafting phase: insufficient drafts to compare (%d of %d succeeded, need %d)",
			len(drafts), len(o.deps.Writers), config.MinViableDrafts)
	}

	o.state.Logf("info", "writers", "%d of %d drafts ready", len(drafts), len(o.deps.Writers))
	return drafts, nil
}

// critiqueLoop runs both critics sequentially per iteration and revises
// until both approve or the revision bound is hit. Exhausting the bound is
// a soft failure: the run proceeds with the last draft.
func (o *Orchestrator) critiqueLoop(ctx context.Context, current types.Draft) (types.Draft, int, float64, bool) {
	approved := false
	iterations := 0
	lastScore := 0.0

	for i := 1; i <= o.deps.MaxRevisions; i++ {
		iterations = i
		o.state.SetPhase(types.PhaseCritiquing)

		medCrit := o.runCritic(ctx, o.deps.MedicalCritic, current)
		edCrit := o.runCritic(ctx, o.deps.EditorialCritic, current)
		if edCrit.Success {
			lastScore = edCrit.Data.Score
		}

		if medCrit.Success && edCrit.Success && medCrit.Data.Approved && edCrit.Data.Approved {
			approved = true
			o.state.Logf("info", "critics", "both critics approved on iteration %d", i)
			break
		}

		// Fixes from both critics are concatenated, duplicates and all.
		medicalFixes := medCrit.Data.RequiredFixes
		editorialFixes := edCrit.Data.RequiredFixes
		o.state.Logf("info", "critics", "iteration %d: %d medical + %d editorial fixes required",
			i, len(medicalFixes), len(editorialFixes))

		o.state.SetPhase(types.PhaseRevising)
		revRes := o.deps.Reviser.Run(ctx, current, medicalFixes, editorialFixes)
		o.state.AddTokens(revRes.TokensUsed)
		if !revRes.Success {
			// Can't improve the draft any further; proceed with what we have.
			o.state.Logf("warn", "revision", "revision failed, keeping current draft: %s", revRes.Error)
			break
		}
		current = revRes.Data
		o.state.IncRevisions()
	}

	if !approved {
		o.state.Logf("warn", "pipeline",
			"critique loop ended after %d iteration(s) without full approval; proceeding with last draft",
			iterations)
	}
	return current, iterations, lastScore, approved
}

// runCritic invokes one critic and books its tokens. A critic failure is
// treated as non-approval with no fixes, not a run failure.
func (o *Orchestrator) runCritic(ctx context.Context, critic Critic, draft types.Draft) agents.Result[types.Critique] {
	res := critic.Run(ctx, draft)
	o.state.AddTokens(res.TokensUsed)
	if !res.Success {
		o.state.Logf("warn", "critics", "%s failed: %s", critic.Name(), res.Error)
	}
	return res
}

func (o *Orchestrator) fail(msg string) *types.RunResult {
	o.state.AddError(msg)
	o.state.SetPhase(types.PhaseFailed)
	return o.failedResult()
}

func (o *Orchestrator) failedResult() *types.RunResult {
	snapshot := o.state.Status()
	return &types.RunResult{
		RunID:      o.runID,
		Success:    false,
		Phase:      types.PhaseFailed,
		Revisions:  snapshot.Revisions,
		TokensUsed: snapshot.TokensUsed,
		Errors:     snapshot.Errors,
	}
}
