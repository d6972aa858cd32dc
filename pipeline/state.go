package pipeline

import (
	"fmt"
	"sync"
	"time"

	"medscribe/types"
)

// State holds one run's mutable aggregate with thread-safe access: current
// phase, revision counter, token total, errors and an append-only log ring.
// Exactly one Orchestrator owns a State; runs never share one.
type State struct {
	mu sync.RWMutex

	runID   string
	keyword string

	phase     types.Phase
	revisions int
	tokens    int
	errs      []string

	// Logs (ring buffer)
	logs    []types.LogEntry
	maxLogs int

	// sink receives every log entry for external telemetry. Best effort:
	// sink misbehavior never affects the run.
	sink func(types.LogEntry)
}

// NewState creates run state in the idle phase.
func NewState(runID, keyword string, sink func(types.LogEntry)) *State {
	return &State{
		runID:   runID,
		keyword: keyword,
		phase:   types.PhaseIdle,
		logs:    make([]types.LogEntry, 0),
		maxLogs: 100, // keep last 100 entries
		sink:    sink,
	}
}

// SetPhase sets the current phase (thread-safe).
func (s *State) SetPhase(p types.Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.Logf("info", "pipeline", "phase: %s", p)
}

// Phase gets the current phase (thread-safe).
func (s *State) Phase() types.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// AddTokens adds a call's reported usage to the running total. Accounting is
// additive and order-independent; failed calls that reported partial usage
// contribute too.
func (s *State) AddTokens(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens += n
}

// Tokens returns the accumulated token total.
func (s *State) Tokens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// IncRevisions bumps the revision counter and returns the new value.
func (s *State) IncRevisions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions++
	return s.revisions
}

// Revisions returns the revision counter.
func (s *State) Revisions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revisions
}

// AddError records a run error and logs it.
func (s *State) AddError(msg string) {
	s.mu.Lock()
	s.errs = append(s.errs, msg)
	s.mu.Unlock()
	s.Logf("error", "pipeline", "%s", msg)
}

// Logf appends a log entry and forwards it to the sink (thread-safe).
func (s *State) Logf(level, source, format string, args ...any) {
	entry := types.LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   fmt.Sprintf(format, args...),
		Metadata:  map[string]string{"run_id": s.runID},
	}

	s.mu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > s.maxLogs {
		s.logs = s.logs[len(s.logs)-s.maxLogs:]
	}
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		func() {
			defer func() { _ = recover() }()
			sink(entry)
		}()
	}
}

// Status returns a snapshot of the current state (thread-safe).
func (s *State) Status() types.StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.StatusResponse{
		RunID:      s.runID,
		Keyword:    s.keyword,
		Phase:      s.phase,
		Revisions:  s.revisions,
		TokensUsed: s.tokens,
		Errors:     append([]string{}, s.errs...),
		Logs:       append([]types.LogEntry{}, s.logs...), // copy slice
	}
}
