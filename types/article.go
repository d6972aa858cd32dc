package types

// Keyword is one entry from the keyword queue. The queue owns its lifecycle
// status (queued -> generating -> published|review|error); the pipeline only
// reads it.
type Keyword struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Volume     int     `json:"volume,omitempty"`
	Difficulty int     `json:"difficulty,omitempty"`
	Intent     string  `json:"intent,omitempty"`
	Cluster    string  `json:"cluster,omitempty"`
	Priority   float64 `json:"priority,omitempty"`
}

// Keyword queue statuses.
const (
	KeywordQueued     = "queued"
	KeywordGenerating = "generating"
	KeywordPublished  = "published"
	KeywordReview     = "review"
	KeywordError      = "error"
)

// SEOResearch is the search-intent research document.
type SEOResearch struct {
	SearchIntent      string   `json:"searchIntent"`
	RelatedKeywords   []string `json:"relatedKeywords"`
	CommonQuestions   []string `json:"commonQuestions"`
	RecommendedLength int      `json:"recommendedLength"`
	TitleIdeas        []string `json:"titleIdeas"`
}

// MedicalResearch is the clinical/domain research document.
type MedicalResearch struct {
	Overview       string   `json:"overview"`
	KeyFacts       []string `json:"keyFacts"`
	Misconceptions []string `json:"misconceptions"`
	Warnings       []string `json:"warnings"`
	SourcesToCite  []string `json:"sourcesToCite"`
	ReviewRequired bool     `json:"reviewRequired"`
}

// CompetitiveResearch summarizes what already ranks for the keyword.
type CompetitiveResearch struct {
	CommonAngles    []string `json:"commonAngles"`
	ContentGaps     []string `json:"contentGaps"`
	Differentiators []string `json:"differentiators"`
	AvgWordCount    int      `json:"avgWordCount"`
}

// SynthesizedBrief is the unified content strategy. Exactly one brief feeds
// every writer in a run.
type SynthesizedBrief struct {
	PrimaryAngle     string   `json:"primaryAngle"`
	TargetAudience   string   `json:"targetAudience"`
	KeyQuestions     []string `json:"keyQuestions"`
	RequiredElements []string `json:"requiredElements"`
	WordCount        int      `json:"wordCount"`
	Outline          []string `json:"outline"`
}

// Draft is one candidate article. Drafts are immutable; a revision produces
// a new Draft value rather than mutating the old one.
type Draft struct {
	Angle           string   `json:"angle"`
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	Slug            string   `json:"slug"`
	Body            string   `json:"body"`
	CitedSources    []string `json:"citedSources"`
}

// SynthesisElement names one element the judge wants merged into the winner.
type SynthesisElement struct {
	SourceDraftIndex   int    `json:"sourceDraftIndex"`
	ElementDescription string `json:"elementDescription"`
}

// DraftScore holds the judge's per-draft assessment.
type DraftScore struct {
	Index      int      `json:"index"`
	Score      float64  `json:"score"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// JudgeDecision is the scoring result over all valid drafts.
type JudgeDecision struct {
	Winner               int                `json:"winner"`
	Scores               []DraftScore       `json:"scores"`
	SynthesisOpportunity bool               `json:"synthesisOpportunity"`
	SynthesisElements    []SynthesisElement `json:"synthesisElements"`
}

// Critique is one critic's verdict on the current draft.
type Critique struct {
	Approved      bool     `json:"approved"`
	Score         float64  `json:"score"`
	RequiredFixes []string `json:"requiredFixes"`
	Notes         string   `json:"notes,omitempty"`
}

// InternalLink is a suggested link to existing catalog content.
type InternalLink struct {
	AnchorText string `json:"anchorText"`
	TargetSlug string `json:"targetSlug"`
}

// CatalogEntry describes an already-published piece the finalizer may link to.
type CatalogEntry struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// FinalArticle is the terminal artifact of a successful run.
type FinalArticle struct {
	Title           string         `json:"title"`
	MetaDescription string         `json:"metaDescription"`
	Slug            string         `json:"slug"`
	Body            string         `json:"body"`
	InternalLinks   []InternalLink `json:"internalLinks"`
	QualityScore    float64        `json:"qualityScore"`
	Iterations      int            `json:"iterations"`
	TokensUsed      int            `json:"tokensUsed"`
	Degraded        bool           `json:"degraded"`
}
