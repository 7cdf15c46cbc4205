package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqpipe/internal/config"
	"dqpipe/internal/services"
	"dqpipe/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()

	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(webhook.Close)

	cfg := config.Default()
	cfg.Logging = config.LoggingConfig{Level: "error", Output: "stdout"}
	cfg.Paths = config.PathsConfig{
		DataDir:    dir,
		ReportsDir: filepath.Join(dir, "reports"),
		CleanedDir: filepath.Join(dir, "processed"),
		LogsDir:    filepath.Join(dir, "logs"),
	}
	cfg.Pipeline = config.PipelineConfig{ChunkSize: 100, Workers: 1, RunTimeout: time.Minute}
	cfg.Schema = domain.ExpectedSchema{Required: []string{"client_id", "email"}}
	cfg.Rules = []domain.FieldRule{
		{Column: "email", Kind: domain.ValidatorEmail, Required: true},
	}
	cfg.Notify.MinSeverity = "LOW"
	cfg.Notify.Primary = "webhook"
	cfg.Notify.AttemptTimeout = 5 * time.Second
	cfg.Notify.Retry = config.RetryConfig{
		MaxAttempts:  1,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   2.0,
	}
	cfg.Notify.Webhook = config.WebhookConfig{URL: webhook.URL, RatePerSecond: 1000}
	require.NoError(t, cfg.Validate())

	runs := services.NewRunService(&cfg, nil, nil)
	return NewRouter(&cfg, runs, nil, testLogger())
}

func TestStartRunEndpoint(t *testing.T) {
	router := testRouter(t)

	dataFile := filepath.Join(t.TempDir(), "clients.csv")
	require.NoError(t, os.WriteFile(dataFile, []byte("client_id,email\n1,a@example.com\n"), 0644))

	body := strings.NewReader(`{"source_file":"` + dataFile + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/runs", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp StartRunResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.RunID)

	// The accepted run is immediately visible.
	req = httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary domain.RunSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, resp.RunID, summary.ID)
}

func TestStartRunEndpointRejectsEmptyBody(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunEndpointUnknownID(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/no-such-run", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRunsEndpointEmpty(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []domain.RunSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	assert.Empty(t, runs)
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get("X-Request-ID"))
}
