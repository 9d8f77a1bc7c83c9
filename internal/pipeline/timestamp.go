package pipeline

import (
	"math"
	"sort"
	"time"

	"telemetry-pipeline/internal/model"
	"telemetry-pipeline/pkg/utils"
)

// epochDigits is the decimal width of a plausible epoch-seconds value
const epochDigits = 10

// TimestampOutcome counts rows dropped while normalizing a time column
type TimestampOutcome struct {
	Unparseable int // missing, non-numeric or infinite values
	Removed     int // numbers that are not ten-digit epoch seconds
}

// NormalizeTimestamps turns column into UTC timestamps and sorts the table by it.
//
// Rows whose value cannot be read as a number are dropped and counted as
// Unparseable. Of the rest, only values whose integer part has exactly ten
// decimal digits are kept; the others are counted as Removed. The surviving
// rows are converted at whole-second precision and stably sorted ascending.
func NormalizeTimestamps(ds *model.Dataset, column string) (*model.Dataset, TimestampOutcome, error) {
	var outcome TimestampOutcome

	col, ok := ds.Column(column)
	if !ok {
		return nil, outcome, &model.ColumnError{Column: column, Err: model.ErrColumnNotFound}
	}

	values, _ := coerceNumeric(col)
	times := make([]time.Time, len(values))
	keep := make([]int, 0, len(values))

	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			outcome.Unparseable++
			continue
		}
		if !isEpochSeconds(v) {
			outcome.Removed++
			continue
		}
		times[i] = toUnix(v)
		keep = append(keep, i)
	}

	sort.SliceStable(keep, func(a, b int) bool {
		return times[keep[a]].Before(times[keep[b]])
	})

	sorted := make([]time.Time, len(keep))
	for j, i := range keep {
		sorted[j] = times[i]
	}

	out := ds.Take(keep)
	if err := out.Replace(model.NewTimestampColumn(column, sorted)); err != nil {
		return nil, outcome, err
	}
	return out, outcome, nil
}

func isEpochSeconds(v float64) bool {
	return v >= 0 && utils.DigitCount(v) == epochDigits
}

// IsSorted reports whether a timestamp column is complete and non-decreasing
func IsSorted(col *model.Column) bool {
	if col.Kind != model.KindTimestamp {
		return false
	}
	for i, t := range col.Time {
		if t.IsZero() {
			return false
		}
		if i > 0 && t.Before(col.Time[i-1]) {
			return false
		}
	}
	return true
}
