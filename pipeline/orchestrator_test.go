package pipeline

import (
	"context"
	"strings"
	"testing"

	"medscribe/agents"
	"medscribe/types"
)

// Stub collaborators. Each records call counts so tests can assert phase
// gating without any model traffic.

type stubResearch struct {
	seo  agents.Result[types.SEOResearch]
	med  agents.Result[types.MedicalResearch]
	comp agents.Result[types.CompetitiveResearch]
}

func (s *stubResearch) SEO(ctx context.Context, topic string) agents.Result[types.SEOResearch] {
	return s.seo
}
func (s *stubResearch) Medical(ctx context.Context, topic string) agents.Result[types.MedicalResearch] {
	return s.med
}
func (s *stubResearch) Competitive(ctx context.Context, topic string) agents.Result[types.CompetitiveResearch] {
	return s.comp
}

type stubSynthesizer struct {
	res   agents.Result[types.SynthesizedBrief]
	calls int
}

func (s *stubSynthesizer) Run(ctx context.Context, topic string, seo types.SEOResearch, med types.MedicalResearch, comp types.CompetitiveResearch) agents.Result[types.SynthesizedBrief] {
	s.calls++
	return s.res
}

type stubWriter struct {
	name string
	res  agents.Result[types.Draft]
}

func (w *stubWriter) Persona() string { return w.name }
func (w *stubWriter) Run(ctx context.Context, topic string, brief types.SynthesizedBrief) agents.Result[types.Draft] {
	return w.res
}

type stubJudge struct {
	res   agents.Result[agents.JudgeOutcome]
	calls int
}

func (j *stubJudge) Run(ctx context.Context, drafts []types.Draft, brief types.SynthesizedBrief) agents.Result[agents.JudgeOutcome] {
	j.calls++
	return j.res
}

type stubCritic struct {
	name    string
	replies []agents.Result[types.Critique]
	calls   int
}

func (c *stubCritic) Name() string { return c.name }
func (c *stubCritic) Run(ctx context.Context, draft types.Draft) agents.Result[types.Critique] {
	reply := c.replies[min(c.calls, len(c.replies)-1)]
	c.calls++
	return reply
}

type stubReviser struct {
	res   agents.Result[types.Draft]
	calls int
}

func (r *stubReviser) Run(ctx context.Context, current types.Draft, medicalFixes, editorialFixes []string) agents.Result[types.Draft] {
	r.calls++
	return r.res
}

type stubFinalizer struct {
	res   agents.Result[types.FinalArticle]
	calls int
}

func (f *stubFinalizer) Run(ctx context.Context, draft types.Draft, seo types.SEOResearch, catalog []types.CatalogEntry) agents.Result[types.FinalArticle] {
	f.calls++
	return f.res
}

func approve(score float64, tokens int) agents.Result[types.Critique] {
	return agents.Result[types.Critique]{
		Success:    true,
		Data:       types.Critique{Approved: true, Score: score},
		TokensUsed: tokens,
	}
}

func reject(score float64, tokens int, fixes ...string) agents.Result[types.Critique] {
	return agents.Result[types.Critique]{
		Success:    true,
		Data:       types.Critique{Approved: false, Score: score, RequiredFixes: fixes},
		TokensUsed: tokens,
	}
}

// happyDeps returns deps where every phase succeeds on the first pass.
func happyDeps() (Deps, *stubSynthesizer, *stubReviser, *stubFinalizer) {
	synth := &stubSynthesizer{res: agents.Result[types.SynthesizedBrief]{
		Success:    true,
		Data:       types.SynthesizedBrief{PrimaryAngle: "a"},
		TokensUsed: 200,
	}}
	reviser := &stubReviser{res: agents.Result[types.Draft]{
		Success:    true,
		Data:       types.Draft{Title: "Revised", Slug: "winner", Body: "revised body"},
		TokensUsed: 400,
	}}
	finalizer := &stubFinalizer{res: agents.Result[types.FinalArticle]{
		Success:    true,
		Data:       types.FinalArticle{Title: "Final", Slug: "winner", Body: "final body"},
		TokensUsed: 300,
	}}

	deps := Deps{
		Research: &stubResearch{
			seo:  agents.Result[types.SEOResearch]{Success: true, Data: types.SEOResearch{SearchIntent: "informational"}, TokensUsed: 100},
			med:  agents.Result[types.MedicalResearch]{Success: true, TokensUsed: 110},
			comp: agents.Result[types.CompetitiveResearch]{Success: true, TokensUsed: 120},
		},
		Synthesizer: synth,
		Writers: []Writer{
			&stubWriter{name: "w1", res: agents.Result[types.Draft]{Success: true, Data: types.Draft{Title: "D1", Slug: "d1", Body: "b"}, TokensUsed: 500}},
			&stubWriter{name: "w2", res: agents.Result[types.Draft]{Success: true, Data: types.Draft{Title: "D2", Slug: "winner", Body: "b"}, TokensUsed: 510}},
		},
		Judge: &stubJudge{res: agents.Result[agents.JudgeOutcome]{
			Success:    true,
			Data:       agents.JudgeOutcome{Selected: types.Draft{Title: "D2", Slug: "winner", Body: "b"}, Decision: types.JudgeDecision{Winner: 1}},
			TokensUsed: 150,
		}},
		MedicalCritic:   &stubCritic{name: "medical-critic", replies: []agents.Result[types.Critique]{approve(9, 50)}},
		EditorialCritic: &stubCritic{name: "editorial-critic", replies: []agents.Result[types.Critique]{approve(8.5, 60)}},
		Reviser:         reviser,
		Finalizer:       finalizer,
		MaxRevisions:    3,
	}
	return deps, synth, reviser, finalizer
}

func TestRunCompletesOnFirstPassApproval(t *testing.T) {
	deps, _, reviser, _ := happyDeps()
	kw := types.Keyword{Text: "semaglutide side effects"}
	o := New(kw, deps)

	res := o.Run(context.Background(), kw)
	if !res.Success {
		t.Fatalf("run failed: %v", res.Errors)
	}
	if res.Phase != types.PhaseComplete {
		t.Fatalf("phase = %s; want complete", res.Phase)
	}
	if reviser.calls != 0 {
		t.Fatalf("reviser called %d times; first-pass approval must skip revision", reviser.calls)
	}
	if res.Article.Iterations != 1 {
		t.Fatalf("iterations = %d; want 1", res.Article.Iterations)
	}
	if res.Article.Degraded {
		t.Fatalf("approved run must not be degraded")
	}
	if res.Article.QualityScore != 8.5 {
		t.Fatalf("quality score = %v; want editorial critic's 8.5", res.Article.QualityScore)
	}
	if res.Article.Slug != "winner" {
		t.Fatalf("slug = %q; want winner's slug preserved", res.Article.Slug)
	}
}

func TestResearchFailureStopsBeforeSynthesis(t *testing.T) {
	deps, synth, _, finalizer := happyDeps()
	deps.Research = &stubResearch{
		seo:  agents.Result[types.SEOResearch]{Success: true, TokensUsed: 100},
		med:  agents.Result[types.MedicalResearch]{Error: "status 500", TokensUsed: 20},
		comp: agents.Result[types.CompetitiveResearch]{Success: true, TokensUsed: 120},
	}
	kw := types.Keyword{Text: "topic"}
	o := New(kw, deps)

	res := o.Run(context.Background(), kw)
	if res.Success {
		t.Fatalf("expected failure when a research agent fails")
	}
	if res.Phase != types.PhaseFailed {
		t.Fatalf("phase = %s; want failed", res.Phase)
	}
	if synth.calls != 0 {
		t.Fatalf("synthesizer ran despite research failure")
	}
	if finalizer.calls != 0 {
		t.Fatalf("finalizer ran despite research failure")
	}
	// Partial usage from the failed call still counts.
	if res.TokensUsed != 240 {
		t.Fatalf("tokens = %d; want 240", res.TokensUsed)
	}
}

func TestDraftingToleratesMinorityWriterFailure(t *testing.T) {
	deps, _, _, _ := happyDeps()
	deps.Writers = []Writer{
		&stubWriter{name: "w1", res: agents.Result[types.Draft]{Error: "writer w1: status 500", TokensUsed: 30}},
		&stubWriter{name: "w2", res: agents.Result[types.Draft]{Success: true, Data: types.Draft{Title: "D2", Slug: "winner", Body: "b"}, TokensUsed: 510}},
		&stubWriter{name: "w3", res: agents.Result[types.Draft]{Success: true, Data: types.Draft{Title: "D3", Slug: "d3", Body: "b"}, TokensUsed: 520}},
		&stubWriter{name: "w4", res: agents.Result[types.Draft]{Error: "writer w4: timeout", TokensUsed: 0}},
	}
	kw := types.Keyword{Text: "topic"}
	o := New(kw, deps)

	res := o.Run(context.Background(), kw)
	if !res.Success {
		t.Fatalf("two surviving drafts should be enough: %v", res.Errors)
	}
}

func TestDraftingFailsBelowMinimum(t *testing.T) {
	deps, _, _, _ := happyDeps()
	judge := deps.Judge.(*stubJudge)
	deps.Writers = []Writer{
		&stubWriter{name: "w1", res: agents.Result[types.Draft]{Error: "status 500"}},
		&stubWriter{name: "w2", res: agents.Result[types.Draft]{Success: true, Data: types.Draft{Title: "D2", Slug: "d2", Body: "b"}, TokensUsed: 510}},
		&stubWriter{name: "w3", res: agents.Result[types.Draft]{Error: "timeout"}},
		&stubWriter{name: "w4", res: agents.Result[types.Draft]{Error: "timeout"}},
	}
	kw := types.Keyword{Text: "topic"}
	o := New(kw, deps)

	res := o.Run(context.Background(), kw)
	if res.Success {
		t.Fatalf("one draft of four must fail the run")
	}
	if judge.calls != 0 {
		t.Fatalf("judge ran despite insufficient drafts")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "insufficient drafts") {
			found = true
		}
	}
	if !found {
		t.Fatalf("errors %v missing insufficient-drafts reason", res.Errors)
	}
}

func TestCritiqueLoopStopsAtRevisionBound(t *testing.T) {
	deps, _, reviser, _ := happyDeps()
	deps.MaxRevisions = 3
	deps.MedicalCritic = &stubCritic{name: "medical-critic", replies: []agents.Result[types.Critique]{
		reject(4, 50, "add safety warning"),
	}}
	deps.EditorialCritic = &stubCritic{name: "editorial-critic", replies: []agents.Result[types.Critique]{
		reject(5, 60, "tighten intro"),
	}}
	kw := types.Keyword{Text: "topic"}
	o := New(kw, deps)

	res := o.Run(context.Background(), kw)
	if !res.Success {
		t.Fatalf("exhausting the loop is a soft failure, run must complete: %v", res.Errors)
	}
	if reviser.calls != 3 {
		t.Fatalf("reviser calls = %d; want exactly the bound of 3", reviser.calls)
	}
	if res.Revisions != 3 {
		t.Fatalf("revisions = %d; want 3", res.Revisions)
	}
	if res.Article.Iterations != 3 {
		t.Fatalf("iterations = %d; want 3", res.Article.Iterations)
	}
	if !res.Article.Degraded {
		t.Fatalf("unapproved article must be flagged degraded")
	}
}

func TestLateApprovalClearsDegraded(t *testing.T) {
	deps, _, reviser, _ := happyDeps()
	deps.MedicalCritic = &stubCritic{name: "medical-critic", replies: []agents.Result[types.Critique]{
		reject(5, 50, "add contraindications"),
		approve(8, 50),
	}}
	deps.EditorialCritic = &stubCritic{name: "editorial-critic", replies: []agents.Result[types.Critique]{
		reject(6, 60, "fix heading levels"),
		approve(9, 60),
	}}
	kw := types.Keyword{Text: "topic"}
	o := New(kw, deps)

	res := o.Run(context.Background(), kw)
	if !res.Success {
		t.Fatalf("run failed: %v", res.Errors)
	}
	if reviser.calls != 1 {
		t.Fatalf("reviser calls = %d; want 1", reviser.calls)
	}
	if res.Article.Iterations != 2 {
		t.Fatalf("iterations = %d; want 2", res.Article.Iterations)
	}
	if res.Article.Degraded {
		t.Fatalf("second-iteration approval must clear degraded")
	}
	if res.Article.QualityScore != 9 {
		t.Fatalf("quality score = %v; want the last editorial score 9", res.Article.QualityScore)
	}
}

func TestCriticFailureCountsAsNonApproval(t *testing.T) {
	deps, _, reviser, _ := happyDeps()
	deps.MaxRevisions = 2
	deps.MedicalCritic = &stubCritic{name: "medical-critic", replies: []agents.Result[types.Critique]{
		{Error: "medical-critic: status 500", TokensUsed: 10},
	}}
	kw := types.Keyword{Text: "topic"}
	o := New(kw, deps)

	res := o.Run(context.Background(), kw)
	if !res.Success {
		t.Fatalf("a failing critic must not fail the run: %v", res.Errors)
	}
	if reviser.calls != 2 {
		t.Fatalf("reviser calls = %d; critic failure should drive revision each iteration", reviser.calls)
	}
	if !res.Article.Degraded {
		t.Fatalf("run with a permanently failing critic must end degraded")
	}
}

func TestRevisionFailureKeepsCurrentDraft(t *testing.T) {
	deps, _, reviser, finalizer := happyDeps()
	deps.MedicalCritic = &stubCritic{name: "medical-critic", replies: []agents.Result[types.Critique]{
		reject(4, 50, "add safety warning"),
	}}
	reviser.res = agents.Result[types.Draft]{Error: "revision: status 500", TokensUsed: 25}
	kw := types.Keyword{Text: "topic"}
	o := New(kw, deps)

	res := o.Run(context.Background(), kw)
	if !res.Success {
		t.Fatalf("revision failure must soft-fail, not kill the run: %v", res.Errors)
	}
	if reviser.calls != 1 {
		t.Fatalf("reviser calls = %d; loop must break after the failed revision", reviser.calls)
	}
	if finalizer.calls != 1 {
		t.Fatalf("finalizer must still run on the pre-revision draft")
	}
	if res.Revisions != 0 {
		t.Fatalf("revisions = %d; a failed revision does not count", res.Revisions)
	}
}

func TestTokenAccountingSumsEveryCall(t *testing.T) {
	deps, _, _, _ := happyDeps()
	kw := types.Keyword{Text: "topic"}
	o := New(kw, deps)

	res := o.Run(context.Background(), kw)
	if !res.Success {
		t.Fatalf("run failed: %v", res.Errors)
	}
	// research 100+110+120, synthesis 200, writers 500+510, judge 150,
	// critics 50+60, finalizer 300.
	want := 100 + 110 + 120 + 200 + 500 + 510 + 150 + 50 + 60 + 300
	if res.TokensUsed != want {
		t.Fatalf("tokens = %d; want %d", res.TokensUsed, want)
	}
	if res.Article.TokensUsed != want {
		t.Fatalf("article tokens = %d; want %d", res.Article.TokensUsed, want)
	}
}

func TestStatusReflectsRunState(t *testing.T) {
	deps, _, _, _ := happyDeps()
	kw := types.Keyword{Text: "semaglutide side effects"}
	o := New(kw, deps)

	before := o.Status()
	if before.Phase != types.PhaseIdle {
		t.Fatalf("phase before run = %s; want idle", before.Phase)
	}

	o.Run(context.Background(), kw)

	after := o.Status()
	if after.Phase != types.PhaseComplete {
		t.Fatalf("phase after run = %s; want complete", after.Phase)
	}
	if after.Keyword != "semaglutide side effects" {
		t.Fatalf("keyword = %q", after.Keyword)
	}
	if len(after.Logs) == 0 {
		t.Fatalf("expected run logs in status snapshot")
	}
}

func TestPanicInCollaboratorFailsRunCleanly(t *testing.T) {
	deps, _, _, _ := happyDeps()
	deps.Judge = panicJudge{}
	kw := types.Keyword{Text: "topic"}
	o := New(kw, deps)

	res := o.Run(context.Background(), kw)
	if res == nil {
		t.Fatalf("panic escaped instead of producing a result")
	}
	if res.Success {
		t.Fatalf("panicking collaborator must fail the run")
	}
	if res.Phase != types.PhaseFailed {
		t.Fatalf("phase = %s; want failed", res.Phase)
	}
}

type panicJudge struct{}

func (panicJudge) Run(ctx context.Context, drafts []types.Draft, brief types.SynthesizedBrief) agents.Result[agents.JudgeOutcome] {
	panic("judge exploded")
}
