// Package services holds the application layer between the HTTP
// transport and the pipeline. Services own run lifecycle and run
// bookkeeping; handlers stay thin.
package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"dqpipe/internal/config"
	"dqpipe/internal/errors"
	"dqpipe/internal/infrastructure"
	"dqpipe/internal/pipeline"
	"dqpipe/pkg/contracts/domain"
)

// RunService starts pipeline runs and tracks their summaries for the
// lifetime of the process. Runs execute asynchronously; callers poll
// GetRun for progress.
type RunService struct {
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger

	mu   sync.RWMutex
	runs map[string]domain.RunSummary
	wg   sync.WaitGroup
}

// NewRunService creates a run service backed by a freshly wired
// orchestrator.
func NewRunService(cfg *config.Config, metrics *infrastructure.Metrics, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RunService{
		orchestrator: pipeline.New(cfg, metrics, logger),
		logger:       logger.With(slog.String("service", "runs")),
		runs:         make(map[string]domain.RunSummary),
	}
	s.orchestrator.SetObserver(s.record)
	return s
}

// StartRun launches a pipeline run over the given source file and
// returns its ID immediately. The run proceeds in the background; its
// summary is available through GetRun while it executes and after it
// finishes.
func (s *RunService) StartRun(ctx context.Context, sourcePath string) (string, error) {
	if sourcePath == "" {
		return "", errors.New(errors.CodeConfig, "source file is required")
	}

	runID := uuid.NewString()
	s.record(domain.RunSummary{
		ID:         runID,
		SourceFile: sourcePath,
		State:      domain.RunStateInit,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The request context dies with the HTTP request; the run must
		// outlive it.
		summary, err := s.orchestrator.RunWithID(context.Background(), runID, sourcePath)
		s.record(summary)
		if err != nil {
			s.logger.Error("run_failed",
				slog.String("run_id", runID),
				slog.String("error", err.Error()))
		}
	}()

	s.logger.InfoContext(ctx, "run_accepted",
		slog.String("run_id", runID),
		slog.String("source_file", sourcePath))
	return runID, nil
}

// GetRun returns the summary for a run ID.
func (s *RunService) GetRun(ctx context.Context, runID string) (domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.runs[runID]
	if !ok {
		return domain.RunSummary{}, errors.New(errors.CodeLoad, "run not found").
			WithContext("run_id", runID)
	}
	return summary, nil
}

// ListRuns returns all known run summaries, newest first.
func (s *RunService) ListRuns(ctx context.Context) []domain.RunSummary {
	s.mu.RLock()
	out := make([]domain.RunSummary, 0, len(s.runs))
	for _, summary := range s.runs {
		out = append(out, summary)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Wait blocks until all in-flight runs finish. Used on shutdown.
func (s *RunService) Wait() {
	s.wg.Wait()
}

// record stores a summary snapshot. Registered as the orchestrator
// observer so state transitions become visible mid-run.
func (s *RunService) record(summary domain.RunSummary) {
	s.mu.Lock()
	s.runs[summary.ID] = summary
	s.mu.Unlock()
}
