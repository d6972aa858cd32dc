package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"medscribe/config"
	"medscribe/llm"
	"medscribe/types"
)

// SynthesizerAgent merges the three research documents into one brief.
type SynthesizerAgent struct {
	invoker  llm.Invoker
	progress llm.ProgressFunc
}

// NewSynthesizerAgent builds the synthesizer.
func NewSynthesizerAgent(invoker llm.Invoker, progress llm.ProgressFunc) *SynthesizerAgent {
	return &SynthesizerAgent{invoker: invoker, progress: progress}
}

const synthesizerSystem = `You are a content strategy lead. Merge SEO research,
clinical research and competitive analysis into a single unified brief for a
team of writers. The brief decides the article's primary angle, audience,
the questions it must answer, required elements, target length and outline.
Respond only with JSON.`

// Run produces the unified brief. All three research inputs are required;
// the orchestrator gates this call on full research success.
func (s *SynthesizerAgent) Run(ctx context.Context, topic string, seo types.SEOResearch, med types.MedicalResearch, comp types.CompetitiveResearch) Result[types.SynthesizedBrief] {
	seoJSON, _ := json.Marshal(seo)
	medJSON, _ := json.Marshal(med)
	compJSON, _ := json.Marshal(comp)

	prompt := fmt.Sprintf(`Topic: %q

SEO research:
%s

Clinical research:
%s

Competitive analysis:
%s

Produce the unified content brief.`, topic, seoJSON, medJSON, compJSON)

	var brief types.SynthesizedBrief
	tokens, err := s.invoker.Invoke(ctx, llm.Params{
		Prompt:      prompt,
		System:      synthesizerSystem,
		MaxTokens:   config.SynthesisMaxTokens,
		Temperature: 0.4,
		Schema: llm.Object(
			[]string{"primaryAngle", "targetAudience", "keyQuestions", "wordCount", "outline"},
			map[string]any{
				"primaryAngle":     llm.String("the one angle this article takes"),
				"targetAudience":   llm.String("who the article is written for"),
				"keyQuestions":     llm.Array(llm.String("a question"), "questions the article must answer"),
				"requiredElements": llm.Array(llm.String("an element"), "elements every draft must include"),
				"wordCount":        llm.Integer("target word count"),
				"outline":          llm.Array(llm.String("a section heading"), "ordered section outline"),
			},
		),
		Progress: s.progress,
	}, &brief)
	if err != nil {
		return failed[types.SynthesizedBrief](tokens, "synthesis: %v", err)
	}
	if brief.PrimaryAngle == "" || len(brief.Outline) == 0 {
		return failed[types.SynthesizedBrief](tokens, "synthesis: response missing angle or outline")
	}
	return succeed(brief, tokens)
}
