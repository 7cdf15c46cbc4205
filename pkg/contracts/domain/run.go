package domain

import (
	"time"
)

// RunStateValue is the orchestrator state machine position.
type RunStateValue string

const (
	RunStateInit        RunStateValue = "init"
	RunStateSchemaCheck RunStateValue = "schema_check"
	RunStateCleaning    RunStateValue = "cleaning"
	RunStateAnalysis    RunStateValue = "analysis"
	RunStateReport      RunStateValue = "report"
	RunStateNotify      RunStateValue = "notify"
	RunStateDone        RunStateValue = "done"
	// RunStateAborted is terminal: schema drift made processing unsafe.
	RunStateAborted RunStateValue = "aborted"
	// RunStateFailed is terminal: a chunk could not be parsed mid-run.
	RunStateFailed RunStateValue = "failed"
)

// Terminal reports whether the state ends a run.
func (s RunStateValue) Terminal() bool {
	return s == RunStateDone || s == RunStateAborted || s == RunStateFailed
}

// RunSummary is the externally visible result of one pipeline run.
// Partial results survive failure: a run that aborts still reports the
// state it reached, and a completed cleaning stage keeps its metrics
// even when a later stage fails.
type RunSummary struct {
	ID           string               `json:"id"`
	SourceFile   string               `json:"source_file"`
	State        RunStateValue        `json:"state"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
	Schema       *SchemaVerdict       `json:"schema,omitempty"`
	Metrics      *QualityMetrics      `json:"metrics,omitempty"`
	Severity     *Severity            `json:"severity,omitempty"`
	Notification *NotificationOutcome `json:"notification,omitempty"`
	ReportPath   string               `json:"report_path,omitempty"`
	CleanedPath  string               `json:"cleaned_path,omitempty"`
	Error        string               `json:"error,omitempty"`
}
