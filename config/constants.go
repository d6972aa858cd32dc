package config

// Pipeline Constants
const (
	// DefaultMaxRevisions bounds the critique/revision loop per run
	DefaultMaxRevisions = 3

	// MinViableDrafts is the minimum number of successful writer drafts
	// required to enter the judging phase
	MinViableDrafts = 2

	// WriterPersonaCount is the number of writer personas fanned out per run
	WriterPersonaCount = 4

	// QualityThreshold separates publishable records from review records
	QualityThreshold = 7.0
)

// Prompt Size Constants
const (
	// JudgeExcerptLength bounds each draft body excerpt shown to the judge
	JudgeExcerptLength = 4000

	// SynthesisExcerptLength bounds source-draft excerpts in the merge call
	SynthesisExcerptLength = 2500

	// MaxFixLength truncates a single critic fix to keep feedback actionable
	MaxFixLength = 300

	// RawPreviewLength bounds the raw-text preview attached to parse errors
	RawPreviewLength = 500
)

// Token Budget Constants
const (
	// ResearchMaxTokens is the output budget for each research agent
	ResearchMaxTokens = 2048

	// SynthesisMaxTokens is the output budget for the synthesizer
	SynthesisMaxTokens = 2048

	// DraftMaxTokens is the output budget for each writer persona
	DraftMaxTokens = 8192

	// JudgeMaxTokens is the output budget for the scoring call
	JudgeMaxTokens = 2048

	// CritiqueMaxTokens is the output budget for each critic
	CritiqueMaxTokens = 1536

	// RevisionMaxTokens is the output budget for the revision agent
	RevisionMaxTokens = 8192

	// FinalizeMaxTokens is large because the finalizer may rewrite the
	// full body
	FinalizeMaxTokens = 10240
)
