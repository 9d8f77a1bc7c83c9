// Package lambda adapts S3 object-created notifications to cleaning runs.
package lambda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"telemetry-pipeline/internal/logger"
	"telemetry-pipeline/internal/model"
)

// Executor runs one cleaning job
type Executor interface {
	Run(ctx context.Context, spec model.RunSpec) (*model.RunResult, error)
}

// RunSummary reports the outcome for one notified object
type RunSummary struct {
	RunID       string   `json:"run_id,omitempty"`
	Bucket      string   `json:"bucket"`
	Key         string   `json:"key"`
	Status      string   `json:"status"`
	RowsRemoved int      `json:"rows_removed"`
	Locations   []string `json:"locations,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Response is the invocation result
type Response struct {
	Runs []RunSummary `json:"runs"`
}

// Handler processes S3 events
type Handler struct {
	runner Executor
	log    *logger.Logger
}

// NewHandler creates a handler. log may be nil.
func NewHandler(runner Executor, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{runner: runner, log: log}
}

// Handle runs the pipeline once per record. Every record is attempted; the
// returned error joins the failures.
func (h *Handler) Handle(ctx context.Context, event events.S3Event) (Response, error) {
	log := h.log.With(
		"function", lambdacontext.FunctionName,
		"version", lambdacontext.FunctionVersion,
	)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.With("request_id", lc.AwsRequestID)
	}
	if deadline, ok := ctx.Deadline(); ok {
		log.Info("invocation started", "records", len(event.Records), "remaining", time.Until(deadline).String())
	} else {
		log.Info("invocation started", "records", len(event.Records))
	}

	resp := Response{Runs: make([]RunSummary, 0, len(event.Records))}
	var errs []error
	for _, rec := range event.Records {
		key := rec.S3.Object.URLDecodedKey
		if key == "" {
			key = rec.S3.Object.Key
		}
		summary := RunSummary{Bucket: rec.S3.Bucket.Name, Key: key}

		result, err := h.runner.Run(ctx, model.RunSpec{Container: summary.Bucket, Key: key})
		if result != nil {
			summary.RunID = result.RunID
			summary.RowsRemoved = result.TotalRowsRemoved
			summary.Locations = result.Locations()
		}
		switch {
		case err != nil:
			summary.Status = model.StatusFailed
			summary.Error = err.Error()
			errs = append(errs, fmt.Errorf("s3://%s/%s: %w", summary.Bucket, key, err))
		case result != nil && result.Empty:
			summary.Status = model.StatusEmpty
		default:
			summary.Status = model.StatusCompleted
		}
		log.Info("record processed", "bucket", summary.Bucket, "key", key, "status", summary.Status, "rows_removed", summary.RowsRemoved)
		resp.Runs = append(resp.Runs, summary)
	}

	if deadline, ok := ctx.Deadline(); ok {
		log.Info("invocation finished", "remaining", time.Until(deadline).String())
	}
	return resp, errors.Join(errs...)
}
