package pipeline

import (
	"bytes"
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-pipeline/internal/model"
	"telemetry-pipeline/internal/storage"
)

// memStore is an in-memory storage.ObjectStore
type memStore struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func (m *memStore) Location(key string) string {
	return "mem://" + key
}

func readParquet(t *testing.T, data []byte) arrow.Table {
	t.Helper()
	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(data),
		parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return tbl
}

func TestEncodeParquet_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	ds := mustDataset(t,
		model.NewTimestampColumn("Timestamp", []time.Time{ts, ts.Add(10 * time.Second), ts.Add(20 * time.Second)}),
		model.NewNumericColumn("speed_over_ground", []float64{1.5, math.NaN(), 3}),
		model.NewCategoricalColumn("status", []string{"underway", "", "moored"}),
	)

	payload, err := EncodeParquet(ds, nil)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, []byte("PAR1")))

	tbl := readParquet(t, payload)
	assert.Equal(t, int64(3), tbl.NumRows())
	require.Equal(t, int64(3), tbl.NumCols())
	assert.Equal(t, "Timestamp", tbl.Schema().Field(0).Name)
	assert.Equal(t, arrow.TIMESTAMP, tbl.Schema().Field(0).Type.ID())

	times := tbl.Column(0).Data().Chunk(0).(*array.Timestamp)
	assert.Equal(t, arrow.Timestamp(ts.UnixMilli()), times.Value(0))

	speed := tbl.Column(1).Data().Chunk(0).(*array.Float64)
	assert.Equal(t, 1.5, speed.Value(0))
	assert.True(t, speed.IsNull(1))
	assert.Equal(t, 3.0, speed.Value(2))

	status := tbl.Column(2).Data().Chunk(0).(*array.String)
	assert.Equal(t, "underway", status.Value(0))
	assert.True(t, status.IsNull(1))
}

func TestDatasetWriter_Write(t *testing.T) {
	store := newMemStore()
	w := NewDatasetWriter(store)
	w.now = func() time.Time { return time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC) }

	ts := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	ds := mustDataset(t,
		model.NewTimestampColumn("Timestamp", []time.Time{ts}),
		model.NewNumericColumn("Latitude", []float64{51.2}),
	)
	key := model.PartitionKey{Entity: "vesselA", Year: "2024", Month: "03", Day: "05"}

	artifact, err := w.Write(context.Background(), ds, key, "cleaned", "vesselA_2024run.parquet")
	require.NoError(t, err)

	wantPath := "cleaned/vesselA/year=2024/month=03/day=05/vesselA_2024run.parquet"
	assert.Equal(t, wantPath, artifact.Path)
	assert.Equal(t, "mem://"+wantPath, artifact.Location)
	assert.Equal(t, 1, artifact.Rows)
	assert.Equal(t, key, artifact.Key)
	assert.Equal(t, int64(len(store.objects[wantPath])), artifact.Bytes)
	assert.Equal(t, "application/vnd.apache.parquet", store.types[wantPath])

	tbl := readParquet(t, store.objects[wantPath])
	assert.Equal(t, int64(1), tbl.NumRows())
}

func TestDatasetWriter_WriteFailure(t *testing.T) {
	store := newMemStore()
	store.putErr = assert.AnError
	w := NewDatasetWriter(store)

	ds := mustDataset(t, model.NewNumericColumn("v", []float64{1}))
	_, err := w.Write(context.Background(), ds, model.PartitionKey{Entity: "x", Year: "2024", Month: "01", Day: "01"}, "", "x.parquet")
	assert.ErrorIs(t, err, assert.AnError)
}
