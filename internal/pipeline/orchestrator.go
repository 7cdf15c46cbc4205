// Package pipeline sequences one run end to end: schema check,
// chunked cleaning, quality analysis, report rendering and
// notification dispatch.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"dqpipe/internal/cleaning"
	"dqpipe/internal/config"
	"dqpipe/internal/errors"
	"dqpipe/internal/infrastructure"
	"dqpipe/internal/loader"
	"dqpipe/internal/notify"
	"dqpipe/internal/quality"
	"dqpipe/internal/report"
	"dqpipe/internal/schema"
	"dqpipe/pkg/contracts/domain"
)

// Orchestrator runs the validation, cleaning, scoring and dispatch
// pipeline. All per-run inputs come from the config value object it is
// built with, so independent orchestrators can run concurrently
// without cross-talk.
type Orchestrator struct {
	cfg        *config.Config
	engine     *cleaning.Engine
	dispatcher *notify.Dispatcher
	alerter    *notify.Alerter
	excel      *report.Writer
	csv        *report.CSVWriter
	metrics    *infrastructure.Metrics
	logger     *slog.Logger
	observer   func(domain.RunSummary)
}

// SetObserver registers a callback invoked with a summary snapshot on
// every state transition. Used by the service layer to expose live run
// status.
func (o *Orchestrator) SetObserver(fn func(domain.RunSummary)) {
	o.observer = fn
}

// emit publishes the current snapshot to the observer, if any.
func (o *Orchestrator) emit(state *RunState) {
	if o.observer != nil {
		o.observer(state.Snapshot())
	}
}

// New wires an orchestrator from configuration. metrics may be nil in
// one-shot CLI mode.
func New(cfg *config.Config, metrics *infrastructure.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	var primary, fallback notify.Transport
	email := notify.NewEmailTransport(cfg.Notify.SMTP)
	webhook := notify.NewWebhookTransport(cfg.Notify.Webhook)
	if cfg.Notify.Primary == "webhook" {
		primary = webhook
	} else {
		primary = email
	}
	switch cfg.Notify.Fallback {
	case "webhook":
		fallback = webhook
	case "email":
		fallback = email
	}

	dispatcher := notify.NewDispatcher(
		primary,
		fallback,
		notify.PolicyFromConfig(cfg.Notify),
		domain.ParseSeverity(cfg.Notify.MinSeverity),
		cfg.Notify.DryRun,
		logger,
	)

	return &Orchestrator{
		cfg:        cfg,
		engine:     cleaning.NewEngine(cfg.Rules, cfg.Schema, cfg.Pipeline.Workers, cfg.Pipeline.Dedupe, logger),
		dispatcher: dispatcher,
		alerter:    notify.NewAlerter(cfg.Notify, logger),
		excel:      report.NewWriter(cfg.Paths.ReportsDir, cfg.Notify.ClientName, logger),
		csv:        report.NewCSVWriter(cfg.Paths.CleanedDir, logger),
		metrics:    metrics,
		logger:     logger,
	}
}

// Run executes one pipeline run over the given source file. The
// returned summary always reflects how far the run progressed; err is
// non-nil only for runs that ended in ABORTED or FAILED.
func (o *Orchestrator) Run(ctx context.Context, sourcePath string) (domain.RunSummary, error) {
	return o.RunWithID(ctx, uuid.NewString(), sourcePath)
}

// RunWithID is Run with a caller-chosen run ID, for callers that must
// know the ID before the run finishes.
func (o *Orchestrator) RunWithID(ctx context.Context, runID, sourcePath string) (domain.RunSummary, error) {
	ctx = infrastructure.WithRunID(ctx, runID)
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Pipeline.RunTimeout)
	defer cancel()

	state := NewRunState(runID, sourcePath)
	logger := o.logger.With(slog.String("run_id", runID))

	logger.InfoContext(ctx, "run_started", slog.String("source_file", sourcePath))

	summary, err := o.execute(ctx, state, sourcePath, logger)

	o.observe(summary)
	if err != nil {
		logger.ErrorContext(ctx, "run_ended",
			slog.String("state", string(summary.State)),
			slog.String("error", err.Error()))
		o.alerter.AlertFailure(ctx, err.Error())
	} else {
		logger.InfoContext(ctx, "run_ended", slog.String("state", string(summary.State)))
	}
	return summary, err
}

// execute walks the state machine. Every early return leaves the
// state terminal and the summary carrying whatever was produced.
func (o *Orchestrator) execute(ctx context.Context, state *RunState, sourcePath string, logger *slog.Logger) (domain.RunSummary, error) {
	fail := func(err error) (domain.RunSummary, error) {
		state.SetError(err)
		state.Transition(domain.RunStateFailed)
		o.emit(state)
		return state.Snapshot(), err
	}

	source, err := loader.Open(sourcePath, o.cfg.Pipeline.ChunkSize, o.cfg.Aliases)
	if err != nil {
		return fail(err)
	}
	defer source.Close()

	// SCHEMA_CHECK: abort before touching any row when required
	// columns are missing, so a broken dataset is never scored.
	state.Transition(domain.RunStateSchemaCheck)
	o.emit(state)
	verdict := schema.Check(source.Header(), o.cfg.Schema)
	state.SetSchema(verdict)
	logger.InfoContext(ctx, "schema_verdict",
		slog.String("verdict", string(verdict.Verdict)),
		slog.Any("missing_required", verdict.MissingRequired),
		slog.Any("missing_optional", verdict.MissingOptional),
		slog.Any("unexpected", verdict.Unexpected))

	if verdict.Fatal() {
		err := errors.New(errors.CodeSchemaFatal, "required columns missing from input").
			WithContext("missing", verdict.MissingRequired)
		state.SetError(err)
		state.Transition(domain.RunStateAborted)
		o.emit(state)
		return state.Snapshot(), err
	}

	// CLEANING: chunked validation; record failures degrade to drops,
	// parse failures end the run here.
	state.Transition(domain.RunStateCleaning)
	o.emit(state)
	result, err := o.engine.Clean(ctx, source, verdict)
	if err != nil {
		return fail(err)
	}
	if err := result.Verify(); err != nil {
		return fail(errors.Wrap(errors.CodeChunkParseFatal, "cleaning produced inconsistent accounting", err))
	}

	// ANALYSIS
	state.Transition(domain.RunStateAnalysis)
	o.emit(state)
	metrics, err := quality.Analyze(result.RowsSeen, result.Drops)
	if err != nil {
		return fail(err)
	}
	severity := quality.Classify(metrics, o.cfg.Thresholds)
	state.SetMetrics(metrics, severity)
	logger.InfoContext(ctx, "analysis_complete",
		slog.Int("rows_seen", metrics.RowsSeen),
		slog.Int("rows_retained", metrics.RowsRetained),
		slog.Int("rows_dropped", metrics.RowsDropped),
		slog.Float64("drop_rate", metrics.DropRate),
		slog.String("severity", severity.String()))

	// REPORT
	state.Transition(domain.RunStateReport)
	o.emit(state)
	columns := retainedColumns(source.Header(), o.cfg.Schema)
	stats := quality.Summarize(result.Retained, o.cfg.Rules)
	cleanedPath, err := o.csv.WriteCleaned(result.Retained, columns)
	if err != nil {
		return fail(err)
	}
	reportPath, err := o.excel.WriteExcel(metrics, severity, stats, result.Drops, result.Retained, columns)
	if err != nil {
		return fail(err)
	}
	state.SetArtifacts(reportPath, cleanedPath)

	// NOTIFY: delivery failure is recorded on the outcome, never
	// escalated; a report exists regardless.
	state.Transition(domain.RunStateNotify)
	o.emit(state)
	body, err := notify.BuildBody(o.cfg.Notify.ClientName, sourcePath, reportPath, metrics, severity, quality.TopReasons(metrics), stats)
	if err != nil {
		return fail(errors.Wrap(errors.CodeReport, "failed to render notification body", err))
	}
	outcome := o.dispatcher.Dispatch(ctx, severity, domain.Message{
		Recipient:  o.cfg.Notify.Recipient,
		Subject:    notify.BuildSubject(severity),
		Body:       body,
		Attachment: reportPath,
	})
	state.SetNotification(outcome)
	logger.InfoContext(ctx, "notification_outcome",
		slog.Bool("attempted", outcome.Attempted),
		slog.Bool("delivered", outcome.Delivered),
		slog.Int("attempts", outcome.Attempts),
		slog.Bool("fallback_used", outcome.Fallback))

	state.Transition(domain.RunStateDone)
	o.emit(state)
	return state.Snapshot(), nil
}

// observe pushes the run result into the Prometheus instruments.
func (o *Orchestrator) observe(summary domain.RunSummary) {
	if o.metrics == nil {
		return
	}
	o.metrics.RunsTotal.WithLabelValues(string(summary.State)).Inc()
	if summary.Metrics != nil {
		o.metrics.RowsSeen.Add(float64(summary.Metrics.RowsSeen))
		o.metrics.LastDropRate.Set(summary.Metrics.DropRate)
		for reason, count := range summary.Metrics.ReasonCounts {
			o.metrics.RowsDropped.WithLabelValues(string(reason)).Add(float64(count))
		}
	}
	if summary.Notification != nil {
		o.metrics.NotifyAttempts.Add(float64(summary.Notification.Attempts))
		failed := summary.Notification.Attempts
		if summary.Notification.Delivered {
			failed--
		}
		if failed > 0 {
			o.metrics.NotifyFailures.Add(float64(failed))
		}
	}
	if summary.FinishedAt != nil {
		o.metrics.RunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	}
}

// retainedColumns returns the schema columns present in the header, in
// schema order, for rendering the cleaned output.
func retainedColumns(header []string, expected domain.ExpectedSchema) []string {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}
	var out []string
	for _, col := range expected.Columns() {
		if present[col] {
			out = append(out, col)
		}
	}
	return out
}
