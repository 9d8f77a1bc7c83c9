package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-pipeline/internal/config"
	"telemetry-pipeline/internal/model"
)

const telemetryCSV = `Timestamp,speed_over_ground,Latitude,status
1707752941,0.54,45,a
NaN,19.96,45,a
123456789,-10.65,45,a
1707752942,21.12,45,b
ERROR,150,45,b
1707752943,150,95,b
1707752944,10,45,b
`

func newTestPipeline(store *memStore) *Pipeline {
	return New(config.Default().Pipeline, NewDatasetWriter(store), nil)
}

func TestPipeline_Run(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(telemetryCSV))
	require.NoError(t, err)

	store := newMemStore()
	tracker := NewRunTracker("run-1", nil)
	result, err := newTestPipeline(store).Run(context.Background(), ds, "vesselA_2024run.csv", tracker)
	require.NoError(t, err)

	assert.Equal(t, "vesselA", result.Entity)
	assert.Equal(t, "Timestamp", result.TimeColumn)
	assert.Equal(t, 7, result.RowsIn)
	assert.Equal(t, 4, result.RowsCleaned)
	assert.Equal(t, 1, result.TotalRowsRemoved)
	assert.Equal(t, 2, result.TimestampUnparseable)
	assert.Equal(t, model.ColumnReport{Rule: "ground_speed", Nulled: 1}, result.Columns["speed_over_ground"])
	assert.Equal(t, model.ColumnReport{Rule: "latitude", Nulled: 1}, result.Columns["Latitude"])
	assert.False(t, result.Empty)
	assert.Equal(t, 1, result.RowsResampled)

	wantPath := "vesselA/year=2024/month=02/day=12/vesselA_2024run.parquet"
	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, wantPath, result.Artifacts[0].Path)
	assert.Equal(t, []string{"mem://" + wantPath}, result.Locations())

	tbl := readParquet(t, store.objects[wantPath])
	assert.Equal(t, int64(1), tbl.NumRows())
	require.Equal(t, int64(3), tbl.NumCols())
	assert.Equal(t, "speed_over_ground", tbl.Schema().Field(1).Name)
	speed := tbl.Column(1).Data().Chunk(0).(*array.Float64)
	assert.InDelta(t, (0.54+21.12+10)/3, speed.Value(0), 1e-9)
	lat := tbl.Column(2).Data().Chunk(0).(*array.Float64)
	assert.InDelta(t, 45.0, lat.Value(0), 1e-9)

	stages := make([]string, 0, len(result.Stages))
	for _, s := range result.Stages {
		stages = append(stages, s.Stage)
		assert.Equal(t, "completed", s.Status)
	}
	assert.Equal(t, []string{StageClean, StageResample, StagePartition, StageExport}, stages)
}

func TestPipeline_MissingTimestampColumn(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("time,speed_over_ground\n1707752941,3\n"))
	require.NoError(t, err)

	store := newMemStore()
	result, err := newTestPipeline(store).Run(context.Background(), ds, "vesselA_x.csv", nil)
	assert.ErrorIs(t, err, ErrMissingTimestampColumn)
	assert.Empty(t, result.Artifacts)
	assert.Empty(t, store.objects)
}

func TestPipeline_EmptyAfterCleaning(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("Timestamp,Longitude\nERROR,1\n12345,2\n"))
	require.NoError(t, err)

	store := newMemStore()
	result, err := newTestPipeline(store).Run(context.Background(), ds, "vesselB_x.csv", nil)
	require.NoError(t, err)

	assert.True(t, result.Empty)
	assert.Equal(t, 1, result.TotalRowsRemoved)
	assert.Equal(t, 1, result.TimestampUnparseable)
	assert.Empty(t, result.Artifacts)
	assert.Empty(t, store.objects)
}

func TestPipeline_FirstTimestampColumnIsPrimary(t *testing.T) {
	csv := "GPS_Timestamp,Engine_Timestamp,engine_fuel_rate\n1707752941,oops,20\n1707752942,oops,140\n"
	ds, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	result := &model.RunResult{}
	cleaned, err := newTestPipeline(newMemStore()).Clean(ds, result)
	require.NoError(t, err)

	assert.Equal(t, "GPS_Timestamp", result.TimeColumn)
	assert.Equal(t, 2, cleaned.Len())
	assert.Equal(t, 1, result.Columns["engine_fuel_rate"].Nulled)
	assert.Equal(t, []string{"Engine_Timestamp"}, result.DroppedColumns)
	assert.Equal(t, []string{"GPS_Timestamp", "engine_fuel_rate"}, cleaned.Names())
}

func TestPipeline_SecondaryTimestampNotResampled(t *testing.T) {
	csv := "Timestamp,Engine_Timestamp,Longitude\n1707752941,1707752900,10\n1707752945,1707752950,20\n"
	ds, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	engine, ok := ds.Column("Engine_Timestamp")
	require.True(t, ok)
	require.Equal(t, model.KindNumeric, engine.Kind)

	result := &model.RunResult{}
	p := newTestPipeline(newMemStore())
	cleaned, err := p.Clean(ds, result)
	require.NoError(t, err)

	resampled, err := Resample(cleaned, result.TimeColumn, p.Interval)
	require.NoError(t, err)

	_, ok = resampled.Column("Engine_Timestamp")
	assert.False(t, ok)
	assert.Equal(t, []string{"Timestamp", "Longitude"}, resampled.Names())

	lon, ok := resampled.Column("Longitude")
	require.True(t, ok)
	assert.Equal(t, []float64{15}, lon.Num)
}

func TestPipeline_WriteFailureIsReturned(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(telemetryCSV))
	require.NoError(t, err)

	store := newMemStore()
	store.putErr = assert.AnError
	result, err := newTestPipeline(store).Run(context.Background(), ds, "vesselA_2024run.csv", nil)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, result.Artifacts)
}

func TestPipeline_SplitsAcrossDays(t *testing.T) {
	// 2024-02-12 23:59:55 and 2024-02-13 00:00:05
	csv := "Timestamp,Longitude\n1707782395,10\n1707782405,20\n"
	ds, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	store := newMemStore()
	result, err := newTestPipeline(store).Run(context.Background(), ds, "vesselC_feb.csv", nil)
	require.NoError(t, err)

	require.Len(t, result.Artifacts, 2)
	assert.Equal(t, "vesselC/year=2024/month=02/day=12/vesselC_feb.parquet", result.Artifacts[0].Path)
	assert.Equal(t, "vesselC/year=2024/month=02/day=13/vesselC_feb.parquet", result.Artifacts[1].Path)
	assert.Len(t, store.objects, 2)
}
