package pipeline

import (
	"sync"
	"time"

	"telemetry-pipeline/internal/logger"
	"telemetry-pipeline/internal/model"
)

// Stage names recorded by the tracker
const (
	StageIngest    = "ingestion"
	StageClean     = "cleaning"
	StageResample  = "resampling"
	StagePartition = "partitioning"
	StageExport    = "export"
)

// RunTracker records timing and row counts for each stage of one run
type RunTracker struct {
	runID  string
	log    *logger.Logger
	mu     sync.Mutex
	stages []model.StageMetrics
	open   map[string]int
	now    func() time.Time
}

// NewRunTracker creates a tracker. log may be nil.
func NewRunTracker(runID string, log *logger.Logger) *RunTracker {
	if log == nil {
		log = logger.Discard()
	}
	return &RunTracker{
		runID: runID,
		log:   log,
		open:  make(map[string]int),
		now:   time.Now,
	}
}

// StartStage marks the start of a pipeline stage
func (rt *RunTracker) StartStage(stage string, rowsIn int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.open[stage] = len(rt.stages)
	rt.stages = append(rt.stages, model.StageMetrics{
		Stage:     stage,
		StartTime: rt.now(),
		RowsIn:    rowsIn,
		Status:    "running",
	})
	rt.log.Debug("stage started", "run_id", rt.runID, "stage", stage, "rows_in", rowsIn)
}

// EndStage marks the end of a pipeline stage
func (rt *RunTracker) EndStage(stage string, rowsOut int) {
	rt.finish(stage, rowsOut, "completed")
}

// FailStage marks a stage as failed
func (rt *RunTracker) FailStage(stage string, err error) {
	rt.finish(stage, 0, "failed")
	rt.log.Error("stage failed", "run_id", rt.runID, "stage", stage, "error", err)
}

func (rt *RunTracker) finish(stage string, rowsOut int, status string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	i, ok := rt.open[stage]
	if !ok {
		return
	}
	delete(rt.open, stage)

	s := &rt.stages[i]
	s.EndTime = rt.now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.RowsOut = rowsOut
	s.Status = status
	if status == "completed" {
		rt.log.Debug("stage completed", "run_id", rt.runID, "stage", stage, "rows_out", rowsOut, "duration", s.Duration)
	}
}

// Stages returns a copy of the recorded stages in start order
func (rt *RunTracker) Stages() []model.StageMetrics {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	out := make([]model.StageMetrics, len(rt.stages))
	copy(out, rt.stages)
	return out
}
