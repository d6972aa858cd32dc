package types

import "time"

// Phase represents the pipeline state machine
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseResearching  Phase = "researching"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseDrafting     Phase = "drafting"
	PhaseJudging      Phase = "judging"
	PhaseCritiquing   Phase = "critiquing"
	PhaseRevising     Phase = "revising"
	PhaseFinalizing   Phase = "finalizing"
	PhaseComplete     Phase = "complete"
	PhaseFailed       Phase = "failed"
)

// LogEntry represents a single pipeline event with timestamp
type LogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Source    string            `json:"source"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// StatusResponse is the JSON response for GET /api/status
type StatusResponse struct {
	RunID      string     `json:"run_id,omitempty"`
	Keyword    string     `json:"keyword,omitempty"`
	Phase      Phase      `json:"phase"`
	Revisions  int        `json:"revisions"`
	TokensUsed int        `json:"tokens_used"`
	Errors     []string   `json:"errors,omitempty"`
	Logs       []LogEntry `json:"logs"`
}

// RunResult is what one pipeline run returns to its caller. On failure the
// article is nil and Errors carries the human-readable reasons.
type RunResult struct {
	RunID      string        `json:"run_id"`
	Success    bool          `json:"success"`
	Article    *FinalArticle `json:"article,omitempty"`
	Phase      Phase         `json:"phase"`
	Revisions  int           `json:"revisions"`
	TokensUsed int           `json:"tokens_used"`
	Errors     []string      `json:"errors,omitempty"`
}
