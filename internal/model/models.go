package model

import (
	"fmt"
	"time"
)

// Run statuses stored in the ledger
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusEmpty     = "empty" // every row was dropped during cleaning
	StatusFailed    = "failed"
)

// PartitionKey identifies one output artifact
type PartitionKey struct {
	Entity string `json:"entity"`
	Year   string `json:"year"`  // four digits
	Month  string `json:"month"` // zero padded
	Day    string `json:"day"`   // zero padded
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("%s/%s-%s-%s", k.Entity, k.Year, k.Month, k.Day)
}

// Artifact is one written partition file
type Artifact struct {
	Key       PartitionKey `json:"key"`
	Path      string       `json:"path"`     // object key relative to the destination
	Location  string       `json:"location"` // fully qualified, e.g. s3://bucket/path
	Rows      int          `json:"rows"`
	Bytes     int64        `json:"bytes"`
	WrittenAt time.Time    `json:"written_at"`
}

// RunSpec describes one input file to clean
type RunSpec struct {
	ID        string `json:"id"`
	Container string `json:"container"` // bucket or directory the input lives in
	Key       string `json:"key"`       // object key, also the identifier
}

// ColumnReport holds the per-column counters of a range rule
type ColumnReport struct {
	Rule        string `json:"rule"`
	Nulled      int    `json:"nulled"`      // in-place null-outs from the range check
	Unparseable int    `json:"unparseable"` // values that failed numeric coercion
}

// StageMetrics tracks one pipeline stage
type StageMetrics struct {
	Stage     string        `json:"stage"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	RowsIn    int           `json:"rows_in"`
	RowsOut   int           `json:"rows_out"`
	Status    string        `json:"status"` // "running", "completed", "failed"
}

// RunResult is everything a single cleaning run reports
type RunResult struct {
	RunID                string                  `json:"run_id,omitempty"`
	Identifier           string                  `json:"identifier"`
	Entity               string                  `json:"entity"`
	TimeColumn           string                  `json:"time_column"`
	DroppedColumns       []string                `json:"dropped_columns,omitempty"`
	RowsIn               int                     `json:"rows_in"`
	RowsCleaned          int                     `json:"rows_cleaned"`
	RowsResampled        int                     `json:"rows_resampled"`
	TotalRowsRemoved     int                     `json:"total_rows_removed"`
	TimestampUnparseable int                     `json:"timestamp_unparseable"`
	Columns              map[string]ColumnReport `json:"columns"`
	Artifacts            []Artifact              `json:"artifacts"`
	Empty                bool                    `json:"empty"`
	Stages               []StageMetrics          `json:"stages,omitempty"`
	Duration             time.Duration           `json:"duration"`
}

// Locations returns every artifact location in write order
func (r *RunResult) Locations() []string {
	out := make([]string, len(r.Artifacts))
	for i, a := range r.Artifacts {
		out[i] = a.Location
	}
	return out
}
