package pipeline

import (
	"fmt"
	"path"
	"strings"

	"telemetry-pipeline/internal/model"
)

// PartitionGroup is the slice of a dataset that lands in one artifact
type PartitionGroup struct {
	Key  model.PartitionKey
	Rows []int          // row indices into the planned dataset, ascending
	Data *model.Dataset // the selected rows, same columns as the input
}

// Entity derives the vessel name from an input identifier: the text of the
// base name before the first separator, or the base name without its
// extension when the separator does not occur.
func Entity(identifier, separator string) string {
	base := path.Base(strings.ReplaceAll(identifier, "\\", "/"))
	if separator != "" {
		if i := strings.Index(base, separator); i >= 0 {
			return base[:i]
		}
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// PlanPartitions groups the rows of ds by (entity, year, month, day) of their
// UTC timestamp. Groups come out in the order their first row appears, cover
// every row exactly once, and never overlap.
func PlanPartitions(ds *model.Dataset, timeColumn, identifier, separator string) ([]PartitionGroup, error) {
	tcol, ok := ds.Column(timeColumn)
	if !ok {
		return nil, &model.ColumnError{Column: timeColumn, Err: model.ErrColumnNotFound}
	}
	if tcol.Kind != model.KindTimestamp {
		return nil, &model.ColumnError{Column: timeColumn, Err: fmt.Errorf("expected timestamp column, got %s", tcol.Kind)}
	}

	entity := Entity(identifier, separator)

	var groups []PartitionGroup
	index := make(map[model.PartitionKey]int)
	for i, t := range tcol.Time {
		if t.IsZero() {
			return nil, &model.ColumnError{Column: timeColumn, Err: fmt.Errorf("row %d has no timestamp", i)}
		}
		t = t.UTC()
		key := model.PartitionKey{
			Entity: entity,
			Year:   fmt.Sprintf("%04d", t.Year()),
			Month:  fmt.Sprintf("%02d", int(t.Month())),
			Day:    fmt.Sprintf("%02d", t.Day()),
		}
		g, seen := index[key]
		if !seen {
			g = len(groups)
			index[key] = g
			groups = append(groups, PartitionGroup{Key: key})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}

	for g := range groups {
		groups[g].Data = ds.Take(groups[g].Rows)
	}
	return groups, nil
}
