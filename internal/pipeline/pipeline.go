package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telemetry-pipeline/internal/config"
	"telemetry-pipeline/internal/logger"
	"telemetry-pipeline/internal/model"
	"telemetry-pipeline/pkg/utils"
)

// ErrMissingTimestampColumn is returned when no column matches the timestamp binding
var ErrMissingTimestampColumn = errors.New("no timestamp column found")

// Pipeline cleans, resamples and partitions one table
type Pipeline struct {
	Bindings     []RuleBinding
	Interval     time.Duration
	Separator    string
	OutputPrefix string
	Writer       *DatasetWriter
	Logger       *logger.Logger
}

// New builds a pipeline from configuration
func New(cfg config.PipelineConfig, writer *DatasetWriter, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		Bindings:     BindingsFromConfig(cfg),
		Interval:     cfg.ResampleInterval(),
		Separator:    cfg.EntitySeparator,
		OutputPrefix: cfg.OutputPrefix,
		Writer:       writer,
		Logger:       log,
	}
}

// ------------------- Cleaning -------------------

// Clean applies every binding once, in table order, and fills the counters of
// result. The first column matching the timestamp binding becomes the time
// column and any other column matching it is dropped. Every column matching a
// range binding is checked independently.
func (p *Pipeline) Clean(ds *model.Dataset, result *model.RunResult) (*model.Dataset, error) {
	if result.Columns == nil {
		result.Columns = make(map[string]model.ColumnReport)
	}

	timeColumn := ""
	for _, b := range p.Bindings {
		if b.Kind == RuleTimestamp && timeColumn == "" {
			timeColumn = firstMatch(ds.Names(), b)
		}
	}
	if timeColumn == "" {
		return nil, fmt.Errorf("%w: columns %s", ErrMissingTimestampColumn, strings.Join(ds.Names(), ", "))
	}
	result.TimeColumn = timeColumn

	// other timestamp-like columns are never measurements
	cleaned := ds
	for _, name := range ds.Names() {
		if name != timeColumn && p.isTimestampColumn(name) {
			result.DroppedColumns = append(result.DroppedColumns, name)
		}
	}
	if len(result.DroppedColumns) > 0 {
		cleaned = ds.Without(result.DroppedColumns...)
		p.Logger.Info("secondary timestamp columns dropped", "columns", result.DroppedColumns)
	}

	normalized := false
	for _, b := range p.Bindings {
		switch b.Kind {
		case RuleTimestamp:
			if b.Matches(timeColumn) && !normalized {
				out, outcome, err := NormalizeTimestamps(cleaned, timeColumn)
				if err != nil {
					return nil, err
				}
				cleaned = out
				normalized = true
				result.TimestampUnparseable += outcome.Unparseable
				result.TotalRowsRemoved += outcome.Removed
				p.Logger.Info("timestamps normalized",
					"column", timeColumn,
					"unparseable", outcome.Unparseable,
					"rows_removed", outcome.Removed,
					"rows", cleaned.Len(),
				)
			}

		case RuleRange:
			for _, name := range cleaned.Names() {
				if name == timeColumn || !b.Matches(name) {
					continue
				}
				out, outcome, err := ValidateRange(cleaned, name, b.Low, b.High)
				if err != nil {
					return nil, err
				}
				cleaned = out
				result.TotalRowsRemoved += outcome.Removed

				report := result.Columns[name]
				if report.Rule == "" {
					report.Rule = b.Name
				} else {
					report.Rule += "," + b.Name
				}
				report.Nulled += outcome.Nulled
				report.Unparseable += outcome.Unparseable
				result.Columns[name] = report

				p.Logger.Debug("range checked",
					"column", name,
					"rule", b.Name,
					"nulled", outcome.Nulled,
					"unparseable", outcome.Unparseable,
				)
			}
		}
	}

	result.RowsCleaned = cleaned.Len()
	p.Logger.Info("rows removed", "count", result.TotalRowsRemoved)
	return cleaned, nil
}

func (p *Pipeline) isTimestampColumn(name string) bool {
	for _, b := range p.Bindings {
		if b.Kind == RuleTimestamp && b.Matches(name) {
			return true
		}
	}
	return false
}

func firstMatch(names []string, b RuleBinding) string {
	for _, name := range names {
		if b.Matches(name) {
			return name
		}
	}
	return ""
}

// ------------------- Pipeline Runner -------------------

// Run cleans ds, resamples it, and writes one artifact per partition.
// identifier names the input; it determines the entity and the artifact name.
// tracker may be nil.
func (p *Pipeline) Run(ctx context.Context, ds *model.Dataset, identifier string, tracker *RunTracker) (*model.RunResult, error) {
	start := time.Now()
	if tracker == nil {
		tracker = NewRunTracker("", p.Logger)
	}

	result := &model.RunResult{
		Identifier: identifier,
		Entity:     Entity(identifier, p.Separator),
		RowsIn:     ds.Len(),
		Columns:    make(map[string]model.ColumnReport),
	}
	defer func() {
		result.Stages = tracker.Stages()
		result.Duration = time.Since(start)
	}()

	// --- CLEANING STAGE ---
	tracker.StartStage(StageClean, ds.Len())
	cleaned, err := p.Clean(ds, result)
	if err != nil {
		tracker.FailStage(StageClean, err)
		return result, err
	}
	tracker.EndStage(StageClean, cleaned.Len())

	if cleaned.Len() == 0 {
		result.Empty = true
		p.Logger.Warn("no rows left after cleaning", "identifier", identifier)
		return result, nil
	}

	// --- RESAMPLING STAGE ---
	tracker.StartStage(StageResample, cleaned.Len())
	resampled, err := Resample(cleaned, result.TimeColumn, p.Interval)
	if err != nil {
		tracker.FailStage(StageResample, err)
		return result, err
	}
	result.RowsResampled = resampled.Len()
	tracker.EndStage(StageResample, resampled.Len())

	// --- PARTITIONING STAGE ---
	tracker.StartStage(StagePartition, resampled.Len())
	groups, err := PlanPartitions(resampled, result.TimeColumn, identifier, p.Separator)
	if err != nil {
		tracker.FailStage(StagePartition, err)
		return result, err
	}
	tracker.EndStage(StagePartition, len(groups))

	// --- EXPORT STAGE ---
	if p.Writer == nil {
		return result, errors.New("pipeline has no dataset writer")
	}
	tracker.StartStage(StageExport, resampled.Len())
	artifactName := utils.ArtifactName(identifier, ".parquet")
	written := 0
	for _, g := range groups {
		artifact, err := p.Writer.Write(ctx, g.Data, g.Key, p.OutputPrefix, artifactName)
		if err != nil {
			tracker.FailStage(StageExport, err)
			return result, err
		}
		result.Artifacts = append(result.Artifacts, artifact)
		written += artifact.Rows
		p.Logger.Info("partition written", "path", artifact.Location, "rows", artifact.Rows)
	}
	tracker.EndStage(StageExport, written)

	return result, nil
}
