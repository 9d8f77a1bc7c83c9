package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"telemetry-pipeline/internal/model"
)

// Resampling errors
var (
	ErrEmptyDataset    = errors.New("cannot resample an empty dataset")
	ErrNotSorted       = errors.New("time column is not sorted ascending")
	ErrInvalidInterval = errors.New("resample interval must be a positive whole number of seconds")
	ErrTooManyBuckets  = errors.New("time span needs too many resample buckets")
)

const (
	// DefaultInterval is the output cadence when none is configured
	DefaultInterval = 10 * time.Second

	// MaxBuckets caps the grid length, about 15 months at the default interval.
	// A stray but valid timestamp years away from the rest would otherwise
	// allocate one bucket per interval across the whole gap.
	MaxBuckets = 4_000_000
)

// Resample aggregates ds onto a fixed time grid.
//
// Buckets are half-open [start, start+interval) and aligned to multiples of
// interval since the Unix epoch. The first bucket holds the earliest row and
// the last bucket holds the latest one; buckets in between with no rows are
// still emitted. Each numeric column becomes the mean of its non-missing
// values in the bucket, or missing when there are none. Columns without a
// mean (categorical and timestamp columns other than timeColumn) are dropped.
func Resample(ds *model.Dataset, timeColumn string, interval time.Duration) (*model.Dataset, error) {
	step := int64(interval / time.Second)
	if step <= 0 || interval%time.Second != 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	tcol, ok := ds.Column(timeColumn)
	if !ok {
		return nil, &model.ColumnError{Column: timeColumn, Err: model.ErrColumnNotFound}
	}
	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if !IsSorted(tcol) {
		return nil, &model.ColumnError{Column: timeColumn, Err: ErrNotSorted}
	}

	first := floorDiv(tcol.Time[0].Unix(), step)
	last := floorDiv(tcol.Time[ds.Len()-1].Unix(), step)
	if last-first >= MaxBuckets {
		return nil, fmt.Errorf("%w: %s to %s at %s is %d buckets, limit %d", ErrTooManyBuckets,
			tcol.Time[0].UTC().Format(time.RFC3339), tcol.Time[ds.Len()-1].UTC().Format(time.RFC3339),
			interval, last-first+1, MaxBuckets)
	}
	buckets := int(last-first) + 1

	// bounds[k] is the first row of bucket k; bounds[buckets] == ds.Len()
	bounds := make([]int, buckets+1)
	row := 0
	for k := 0; k < buckets; k++ {
		bounds[k] = row
		for row < ds.Len() && floorDiv(tcol.Time[row].Unix(), step)-first == int64(k) {
			row++
		}
	}
	bounds[buckets] = row

	grid := make([]time.Time, buckets)
	for k := range grid {
		grid[k] = time.Unix((first+int64(k))*step, 0).UTC()
	}

	var columns []*model.Column
	scratch := make([]float64, 0, 16)
	for _, col := range ds.Columns() {
		switch {
		case col.Name == timeColumn:
			columns = append(columns, model.NewTimestampColumn(timeColumn, grid))
		case col.Kind == model.KindNumeric:
			means := make([]float64, buckets)
			for k := 0; k < buckets; k++ {
				scratch = scratch[:0]
				for i := bounds[k]; i < bounds[k+1]; i++ {
					if !math.IsNaN(col.Num[i]) {
						scratch = append(scratch, col.Num[i])
					}
				}
				if len(scratch) == 0 {
					means[k] = math.NaN()
					continue
				}
				means[k] = stat.Mean(scratch, nil)
			}
			columns = append(columns, model.NewNumericColumn(col.Name, means))
		}
	}

	return model.NewDataset(columns...)
}

// floorDiv rounds toward negative infinity
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
