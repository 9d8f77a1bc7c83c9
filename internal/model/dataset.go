package model

import (
	"math"
	"time"

	"telemetry-pipeline/pkg/utils"
)

// ColumnKind is the value type held by a column
type ColumnKind int

const (
	KindCategorical ColumnKind = iota
	KindNumeric
	KindTimestamp
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindTimestamp:
		return "timestamp"
	default:
		return "categorical"
	}
}

// Column is a named sequence of scalar values.
//
// Numeric columns keep their values in Num, with NaN meaning missing.
// Timestamp columns keep their values in Time, with the zero time meaning missing.
// Raw holds the original CSV text; it is kept for categorical columns and for
// numeric columns that have not been coerced yet.
type Column struct {
	Name string
	Kind ColumnKind
	Raw  []string
	Num  []float64
	Time []time.Time
}

// Len returns the number of values in the column
func (c *Column) Len() int {
	switch c.Kind {
	case KindNumeric:
		return len(c.Num)
	case KindTimestamp:
		return len(c.Time)
	default:
		return len(c.Raw)
	}
}

// IsMissing reports whether the value at row i is missing.
// Categorical cells use the same missing tokens as ingestion and export.
func (c *Column) IsMissing(i int) bool {
	switch c.Kind {
	case KindNumeric:
		return math.IsNaN(c.Num[i])
	case KindTimestamp:
		return c.Time[i].IsZero()
	default:
		return utils.IsMissingToken(c.Raw[i])
	}
}

// MissingCount returns how many values in the column are missing
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the column
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Raw != nil {
		out.Raw = append([]string(nil), c.Raw...)
	}
	if c.Num != nil {
		out.Num = append([]float64(nil), c.Num...)
	}
	if c.Time != nil {
		out.Time = append([]time.Time(nil), c.Time...)
	}
	return out
}

// take returns a new column holding the given rows in the given order
func (c *Column) take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Raw != nil {
		out.Raw = make([]string, len(rows))
		for j, i := range rows {
			out.Raw[j] = c.Raw[i]
		}
	}
	if c.Num != nil {
		out.Num = make([]float64, len(rows))
		for j, i := range rows {
			out.Num[j] = c.Num[i]
		}
	}
	if c.Time != nil {
		out.Time = make([]time.Time, len(rows))
		for j, i := range rows {
			out.Time[j] = c.Time[i]
		}
	}
	return out
}

// NewNumericColumn builds a numeric column from float values (NaN = missing)
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: KindNumeric, Num: values}
}

// NewTimestampColumn builds a timestamp column (zero time = missing)
func NewTimestampColumn(name string, values []time.Time) *Column {
	return &Column{Name: name, Kind: KindTimestamp, Time: values}
}

// NewCategoricalColumn builds a text column (empty string = missing)
func NewCategoricalColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: KindCategorical, Raw: values}
}

// Dataset is an ordered table of named, positionally aligned columns
type Dataset struct {
	columns []*Column
	index   map[string]int
}

// NewDataset builds a dataset from columns. All columns must share one length.
func NewDataset(columns ...*Column) (*Dataset, error) {
	ds := &Dataset{index: make(map[string]int, len(columns))}
	rows := -1
	for _, col := range columns {
		if _, dup := ds.index[col.Name]; dup {
			return nil, &ColumnError{Column: col.Name, Err: ErrDuplicateColumn}
		}
		if rows >= 0 && col.Len() != rows {
			return nil, &ColumnError{Column: col.Name, Err: ErrRaggedColumns}
		}
		rows = col.Len()
		ds.index[col.Name] = len(ds.columns)
		ds.columns = append(ds.columns, col)
	}
	return ds, nil
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if len(d.columns) == 0 {
		return 0
	}
	return d.columns[0].Len()
}

// Columns returns the columns in order. The slice must not be modified.
func (d *Dataset) Columns() []*Column {
	return d.columns
}

// Names returns the column names in order
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by exact name
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Replace swaps in a column with the same name and length
func (d *Dataset) Replace(col *Column) error {
	i, ok := d.index[col.Name]
	if !ok {
		return &ColumnError{Column: col.Name, Err: ErrColumnNotFound}
	}
	if col.Len() != d.Len() {
		return &ColumnError{Column: col.Name, Err: ErrRaggedColumns}
	}
	d.columns[i] = col
	return nil
}

// Clone returns a deep copy so stages never share intermediate state
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{index: make(map[string]int, len(d.columns))}
	for i, c := range d.columns {
		out.columns = append(out.columns, c.Clone())
		out.index[c.Name] = i
	}
	return out
}

// Take returns a new dataset holding the given rows in the given order
func (d *Dataset) Take(rows []int) *Dataset {
	out := &Dataset{index: make(map[string]int, len(d.columns))}
	for i, c := range d.columns {
		out.columns = append(out.columns, c.take(rows))
		out.index[c.Name] = i
	}
	return out
}

// Without returns a new dataset without the named columns
func (d *Dataset) Without(names ...string) *Dataset {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := &Dataset{index: make(map[string]int, len(d.columns))}
	for _, c := range d.columns {
		if drop[c.Name] {
			continue
		}
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, c.Clone())
	}
	return out
}
