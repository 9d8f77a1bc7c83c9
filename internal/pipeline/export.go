package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"telemetry-pipeline/internal/model"
	"telemetry-pipeline/internal/storage"
	"telemetry-pipeline/pkg/utils"
)

// rowGroupSize caps the rows per Parquet row group
const rowGroupSize = 64 * 1024

// timestampType is the Arrow type used for every time column
var timestampType = &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}

// DatasetWriter encodes partitions as Parquet and stores them
type DatasetWriter struct {
	store storage.ObjectStore
	mem   memory.Allocator
	now   func() time.Time
}

// NewDatasetWriter creates a writer that puts artifacts into store
func NewDatasetWriter(store storage.ObjectStore) *DatasetWriter {
	return &DatasetWriter{
		store: store,
		mem:   memory.NewGoAllocator(),
		now:   time.Now,
	}
}

// Write stores one partition at
// {base}/{entity}/year={year}/month={month}/day={day}/{artifactName}.
// An existing artifact at that path is replaced.
func (w *DatasetWriter) Write(ctx context.Context, data *model.Dataset, key model.PartitionKey, base, artifactName string) (model.Artifact, error) {
	p := utils.NewOutputManager(base).PartitionPath(key.Entity, key.Year, key.Month, key.Day, artifactName)

	payload, err := EncodeParquet(data, w.mem)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("failed to encode partition %s: %w", key, err)
	}
	if err := w.store.Put(ctx, p, payload, utils.ContentType(p)); err != nil {
		return model.Artifact{}, fmt.Errorf("failed to write partition %s: %w", key, err)
	}

	return model.Artifact{
		Key:       key,
		Path:      p,
		Location:  w.store.Location(p),
		Rows:      data.Len(),
		Bytes:     int64(len(payload)),
		WrittenAt: w.now().UTC(),
	}, nil
}

// EncodeParquet renders a dataset as a snappy-compressed Parquet file.
// Numeric columns become nullable float64, timestamps become UTC milliseconds
// and categorical columns become strings.
func EncodeParquet(ds *model.Dataset, mem memory.Allocator) ([]byte, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	fields := make([]arrow.Field, 0, len(ds.Columns()))
	arrays := make([]arrow.Array, 0, len(ds.Columns()))
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	for _, col := range ds.Columns() {
		field, arr := buildArray(col, mem)
		fields = append(fields, field)
		arrays = append(arrays, arr)
	}

	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, arrays, int64(ds.Len()))
	defer rec.Release()

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	if err := pqarrow.WriteTable(tbl, &buf, rowGroupSize, props, arrowProps); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildArray(col *model.Column, mem memory.Allocator) (arrow.Field, arrow.Array) {
	switch col.Kind {
	case model.KindNumeric:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.Reserve(len(col.Num))
		for _, v := range col.Num {
			if math.IsNaN(v) {
				b.AppendNull()
				continue
			}
			b.Append(v)
		}
		return arrow.Field{Name: col.Name, Type: arrow.PrimitiveTypes.Float64, Nullable: true}, b.NewArray()

	case model.KindTimestamp:
		b := array.NewTimestampBuilder(mem, timestampType)
		defer b.Release()
		b.Reserve(len(col.Time))
		for _, t := range col.Time {
			if t.IsZero() {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Timestamp(t.UnixMilli()))
		}
		return arrow.Field{Name: col.Name, Type: timestampType, Nullable: true}, b.NewArray()

	default:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.Reserve(len(col.Raw))
		for i, s := range col.Raw {
			if col.IsMissing(i) {
				b.AppendNull()
				continue
			}
			b.Append(s)
		}
		return arrow.Field{Name: col.Name, Type: arrow.BinaryTypes.String, Nullable: true}, b.NewArray()
	}
}
