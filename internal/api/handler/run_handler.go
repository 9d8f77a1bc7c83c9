package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"telemetry-pipeline/internal/logger"
	"telemetry-pipeline/internal/model"
	"telemetry-pipeline/internal/store"
)

// RunExecutor starts cleaning runs
type RunExecutor interface {
	Register(spec model.RunSpec) (model.RunSpec, error)
	Run(ctx context.Context, spec model.RunSpec) (*model.RunResult, error)
}

// RunLedger reads recorded runs
type RunLedger interface {
	ListRuns() ([]store.RunRecord, error)
	GetRun(runID string) (*store.RunRecord, error)
}

// CreateRunRequest names the input file to clean
type CreateRunRequest struct {
	Container string `json:"container" example:"raw-telemetry"`
	Key       string `json:"key" example:"vesselA_2024run.csv"`
}

// CreateRunResponse is returned when a run is accepted
type CreateRunResponse struct {
	Message   string    `json:"message"`
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse carries a failure message
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the run endpoints
type Handler struct {
	runner  RunExecutor
	ledger  RunLedger
	timeout time.Duration
	log     *logger.Logger
	wg      sync.WaitGroup
}

// New creates a handler. timeout is the time budget reported to each run.
func New(runner RunExecutor, ledger RunLedger, timeout time.Duration, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{runner: runner, ledger: ledger, timeout: timeout, log: log}
}

// CreateRun registers a run and starts it in the background
// @Summary Start a cleaning run
// @Description Clean one telemetry CSV and write its partitioned Parquet output
// @Tags runs
// @Accept json
// @Produce json
// @Param run body CreateRunRequest true "Input location"
// @Success 202 {object} CreateRunResponse "Run accepted"
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /runs [post]
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	spec, err := h.runner.Register(model.RunSpec{
		ID:        uuid.New().String(),
		Container: req.Container,
		Key:       req.Key,
	})
	if err != nil {
		h.log.Error("failed to register run", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save run")
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx := context.Background()
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}
		// the runner records failures in the ledger
		_, _ = h.runner.Run(ctx, spec)
	}()

	writeJSON(w, http.StatusAccepted, CreateRunResponse{
		Message:   "Run accepted",
		RunID:     spec.ID,
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	})
}

// ListRuns retrieves all runs
// @Summary List runs
// @Description Get every recorded run with its current status, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} store.RunRecord "List of runs"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.ledger.ListRuns()
	if err != nil {
		h.log.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves a specific run
// @Summary Get run
// @Description Retrieve the status, result and errors of one run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} store.RunRecord "Run details"
// @Failure 400 {object} ErrorResponse "Invalid run ID"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Router /runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	// Extract run ID from URL path
	prefix := "/api/v1/runs/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, http.StatusBadRequest, "Invalid path")
		return
	}
	runID := strings.Trim(r.URL.Path[len(prefix):], "/")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	rec, err := h.ledger.GetRun(runID)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.log.Error("failed to fetch run", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch run")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Healthz reports liveness
// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Wait blocks until every background run has finished
func (h *Handler) Wait() {
	h.wg.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
