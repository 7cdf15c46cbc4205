package pipeline

import (
	"sync"
	"time"

	"dqpipe/pkg/contracts/domain"
)

// RunState tracks one pipeline run through the state machine
//
//	INIT -> SCHEMA_CHECK -> {ABORTED | CLEANING} -> ANALYSIS -> REPORT -> NOTIFY -> DONE
//
// with FAILED as the terminal state for mid-run fatal errors. The
// state survives past the run so a failed run still reports how far it
// got and whatever partial results exist.
type RunState struct {
	mu      sync.RWMutex
	summary domain.RunSummary
}

// NewRunState creates a run state in INIT.
func NewRunState(id, sourceFile string) *RunState {
	return &RunState{
		summary: domain.RunSummary{
			ID:         id,
			SourceFile: sourceFile,
			State:      domain.RunStateInit,
			StartedAt:  time.Now().UTC(),
		},
	}
}

// Transition moves the run to the given state. Terminal states also
// set the finish timestamp.
func (s *RunState) Transition(state domain.RunStateValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.State = state
	if state.Terminal() {
		now := time.Now().UTC()
		s.summary.FinishedAt = &now
	}
}

// State returns the current state machine position.
func (s *RunState) State() domain.RunStateValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary.State
}

// SetSchema records the schema verdict.
func (s *RunState) SetSchema(verdict domain.SchemaVerdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Schema = &verdict
}

// SetMetrics records the computed metrics and severity.
func (s *RunState) SetMetrics(metrics *domain.QualityMetrics, severity domain.Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Metrics = metrics
	s.summary.Severity = &severity
}

// SetArtifacts records the produced report paths.
func (s *RunState) SetArtifacts(reportPath, cleanedPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.ReportPath = reportPath
	s.summary.CleanedPath = cleanedPath
}

// SetNotification records the dispatch outcome.
func (s *RunState) SetNotification(outcome domain.NotificationOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Notification = &outcome
}

// SetError records the error that ended the run.
func (s *RunState) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.summary.Error = err.Error()
	}
}

// Snapshot returns a copy of the run summary safe to hand out.
func (s *RunState) Snapshot() domain.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Duration returns how long the run has been executing.
func (s *RunState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary.FinishedAt != nil {
		return s.summary.FinishedAt.Sub(s.summary.StartedAt)
	}
	return time.Since(s.summary.StartedAt)
}
