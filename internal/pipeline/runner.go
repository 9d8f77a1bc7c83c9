package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"telemetry-pipeline/internal/config"
	"telemetry-pipeline/internal/logger"
	"telemetry-pipeline/internal/metrics"
	"telemetry-pipeline/internal/model"
	"telemetry-pipeline/internal/storage"
	"telemetry-pipeline/internal/store"
)

// Runner fetches one input, runs the pipeline on it and records the outcome
type Runner struct {
	Open        storage.Opener
	Destination string
	Config      config.PipelineConfig
	Ledger      *store.Store // optional
	Logger      *logger.Logger
}

// NewRunner wires a runner from loaded configuration
func NewRunner(cfg *config.Config, open storage.Opener, ledger *store.Store, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{
		Open:        open,
		Destination: cfg.Storage.Destination,
		Config:      cfg.Pipeline,
		Ledger:      ledger,
		Logger:      log,
	}
}

// Register records spec as pending in the ledger and assigns an id if it has none
func (r *Runner) Register(spec model.RunSpec) (model.RunSpec, error) {
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	if r.Ledger == nil {
		return spec, nil
	}
	if _, err := r.Ledger.GetRun(spec.ID); err == nil {
		return spec, nil
	} else if !errors.Is(err, store.ErrRunNotFound) {
		return spec, err
	}
	if err := r.Ledger.SaveRun(spec); err != nil {
		return spec, fmt.Errorf("failed to register run: %w", err)
	}
	return spec, nil
}

// Run processes spec.Key from spec.Container end to end.
// A deadline on ctx is only logged; the run is never cut short by it.
func (r *Runner) Run(ctx context.Context, spec model.RunSpec) (result *model.RunResult, err error) {
	start := time.Now()
	spec, err = r.Register(spec)
	if err != nil {
		return nil, err
	}

	log := r.Logger.With("run_id", spec.ID, "key", spec.Key)
	log.Info("starting run", "container", spec.Container, "destination", r.Destination)
	if deadline, ok := ctx.Deadline(); ok {
		log.Info("time budget", "remaining", time.Until(deadline).String())
	}
	r.setStatus(spec.ID, model.StatusRunning)

	defer func() {
		status := model.StatusCompleted
		switch {
		case err != nil:
			status = model.StatusFailed
			log.Error("run failed", "error", err)
			if r.Ledger != nil {
				if e := r.Ledger.SaveRunError(spec.ID, err); e != nil {
					log.Warn("failed to record run error", "error", e)
				}
			}
		case result != nil && result.Empty:
			status = model.StatusEmpty
		}
		if result != nil && r.Ledger != nil {
			if e := r.Ledger.SaveRunResult(spec.ID, result); e != nil {
				log.Warn("failed to record run result", "error", e)
			}
		}
		r.setStatus(spec.ID, status)
		observe(status, result, time.Since(start))
		if deadline, ok := ctx.Deadline(); ok {
			log.Info("run finished", "status", status, "remaining", time.Until(deadline).String())
		} else {
			log.Info("run finished", "status", status, "duration", time.Since(start).String())
		}
	}()

	// storage calls must not be cut short by the caller's deadline
	work := context.WithoutCancel(ctx)

	src, err := r.Open(spec.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %q: %w", spec.Container, err)
	}
	dst, err := r.Open(r.Destination)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination %q: %w", r.Destination, err)
	}

	tracker := NewRunTracker(spec.ID, log)
	tracker.StartStage(StageIngest, 0)
	ds, err := LoadCSV(work, src, spec.Key)
	if err != nil {
		tracker.FailStage(StageIngest, err)
		return nil, err
	}
	tracker.EndStage(StageIngest, ds.Len())
	log.Info("input loaded", "rows", ds.Len(), "columns", len(ds.Columns()))

	p := New(r.Config, NewDatasetWriter(dst), log)
	result, err = p.Run(work, ds, spec.Key, tracker)
	if result != nil {
		result.RunID = spec.ID
	}
	return result, err
}

func (r *Runner) setStatus(runID, status string) {
	if r.Ledger == nil {
		return
	}
	if err := r.Ledger.UpdateRunStatus(runID, status); err != nil {
		r.Logger.Warn("failed to update run status", "run_id", runID, "error", err)
	}
}

func observe(status string, result *model.RunResult, elapsed time.Duration) {
	metrics.RunsTotal.WithLabelValues(status).Inc()
	metrics.RunDuration.Observe(elapsed.Seconds())
	if result == nil {
		return
	}
	metrics.RowsRemovedTotal.Add(float64(result.TotalRowsRemoved))
	for _, report := range result.Columns {
		metrics.ValuesNulledTotal.WithLabelValues(report.Rule).Add(float64(report.Nulled))
	}
	metrics.ArtifactsWrittenTotal.Add(float64(len(result.Artifacts)))
}
