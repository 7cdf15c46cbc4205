// Package http exposes the pipeline over a small JSON API: start a
// run, poll its status, list past runs.
package http

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"dqpipe/internal/errors"
	"dqpipe/internal/services"
)

// RunHandler handles run-related HTTP requests.
type RunHandler struct {
	service *services.RunService
	logger  *slog.Logger
}

// NewRunHandler creates a run handler.
func NewRunHandler(service *services.RunService, logger *slog.Logger) *RunHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "runs")),
	}
}

// StartRunRequest is the body of POST /api/runs.
type StartRunRequest struct {
	SourceFile string `json:"source_file"`
}

// Bind implements render.Binder.
func (r *StartRunRequest) Bind(req *http.Request) error {
	if r.SourceFile == "" {
		return stderrors.New("source_file is required")
	}
	return nil
}

// StartRunResponse is the body returned by POST /api/runs.
type StartRunResponse struct {
	RunID string `json:"run_id"`
	State string `json:"state"`
}

// StartRun handles POST /api/runs. The run executes asynchronously;
// the response carries the ID to poll.
func (h *RunHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	req := &StartRunRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, errors.NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", err.Error()))
		return
	}

	runID, err := h.service.StartRun(r.Context(), req.SourceFile)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to start run",
			slog.String("error", err.Error()))
		render.Render(w, r, errors.APIFromPipeline(err))
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, StartRunResponse{RunID: runID, State: "init"})
}

// GetRun handles GET /api/runs/{id}.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	summary, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		render.Render(w, r, errors.ErrRunNotFound)
		return
	}
	render.JSON(w, r, summary)
}

// ListRuns handles GET /api/runs.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.ListRuns(r.Context()))
}
