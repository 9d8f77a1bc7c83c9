package pipeline

import (
	"math"
	"strings"
	"time"

	"telemetry-pipeline/internal/config"
	"telemetry-pipeline/internal/model"
	"telemetry-pipeline/pkg/utils"
)

// RuleKind selects the cleaning routine a binding applies
type RuleKind int

const (
	RuleTimestamp RuleKind = iota
	RuleRange
)

func (k RuleKind) String() string {
	if k == RuleTimestamp {
		return "timestamp"
	}
	return "range"
}

// RuleBinding ties a column name pattern to a cleaning rule.
// Low and High are only used by range rules and are inclusive.
type RuleBinding struct {
	Name  string
	Token string
	Kind  RuleKind
	Low   float64
	High  float64
}

// Matches reports whether column is covered by this binding.
// Matching is a case-sensitive substring test on the column name.
func (b RuleBinding) Matches(column string) bool {
	return b.Token != "" && strings.Contains(column, b.Token)
}

// DefaultBindings returns the built-in binding table
func DefaultBindings() []RuleBinding {
	return BindingsFromConfig(config.Default().Pipeline)
}

// BindingsFromConfig builds the binding table in evaluation order:
// the timestamp rule first, then the range rules as configured.
func BindingsFromConfig(cfg config.PipelineConfig) []RuleBinding {
	bindings := []RuleBinding{{
		Name:  "timestamp",
		Token: cfg.TimestampToken,
		Kind:  RuleTimestamp,
	}}
	for _, r := range cfg.Rules {
		bindings = append(bindings, RuleBinding{
			Name:  r.Name,
			Token: r.Token,
			Kind:  RuleRange,
			Low:   r.Low,
			High:  r.High,
		})
	}
	return bindings
}

// RangeOutcome counts what a range check did to one column
type RangeOutcome struct {
	Nulled      int // finite or infinite values outside the bounds
	Unparseable int // non-empty cells that were not numbers
	Removed     int // always zero, range checks never drop rows
}

// ValidateRange coerces column to numbers and replaces every value outside
// [low, high] with a missing value. The row count is unchanged and the input
// dataset is not modified.
func ValidateRange(ds *model.Dataset, column string, low, high float64) (*model.Dataset, RangeOutcome, error) {
	var outcome RangeOutcome

	col, ok := ds.Column(column)
	if !ok {
		return nil, outcome, &model.ColumnError{Column: column, Err: model.ErrColumnNotFound}
	}

	values, unparseable := coerceNumeric(col)
	outcome.Unparseable = unparseable

	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v < low || v > high {
			values[i] = math.NaN()
			outcome.Nulled++
		}
	}

	out := ds.Clone()
	if err := out.Replace(model.NewNumericColumn(column, values)); err != nil {
		return nil, outcome, err
	}
	return out, outcome, nil
}

// coerceNumeric returns a fresh float slice for col, NaN for missing values,
// along with the number of cells that held text which is not a number.
func coerceNumeric(col *model.Column) ([]float64, int) {
	values := make([]float64, col.Len())

	switch {
	case col.Raw != nil:
		unparseable := 0
		for i, cell := range col.Raw {
			v, ok := utils.ParseFloat(cell)
			if !ok && !utils.IsMissingToken(cell) {
				unparseable++
			}
			values[i] = v
		}
		return values, unparseable
	case col.Kind == model.KindNumeric:
		copy(values, col.Num)
	case col.Kind == model.KindTimestamp:
		for i, t := range col.Time {
			if t.IsZero() {
				values[i] = math.NaN()
				continue
			}
			values[i] = float64(t.Unix())
		}
	}
	return values, 0
}

// toUnix converts whole epoch seconds to a UTC time
func toUnix(v float64) time.Time {
	return time.Unix(int64(math.Trunc(v)), 0).UTC()
}
