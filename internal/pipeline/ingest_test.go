package pipeline

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-pipeline/internal/model"
	"telemetry-pipeline/internal/storage"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeff\"Timestamp\", Latitude ,status\n" +
		"1707752941,45.5,underway\n" +
		"1707752942,,moored\n" +
		"ERROR,N/A\n" +
		"1707752944,46,anchored,extra\n"

	ds, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Timestamp", "Latitude", "status"}, ds.Names())
	assert.Equal(t, 4, ds.Len())

	ts, _ := ds.Column("Timestamp")
	assert.Equal(t, model.KindCategorical, ts.Kind)
	assert.Equal(t, "ERROR", ts.Raw[2])

	lat, _ := ds.Column("Latitude")
	assert.Equal(t, model.KindNumeric, lat.Kind)
	assert.Equal(t, 45.5, lat.Num[0])
	assert.True(t, math.IsNaN(lat.Num[1]))
	assert.True(t, math.IsNaN(lat.Num[2]))
	assert.Equal(t, 2, lat.MissingCount())

	status, _ := ds.Column("status")
	assert.Equal(t, "", status.Raw[2])
	assert.Equal(t, "anchored", status.Raw[3])
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("Timestamp,Latitude\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, []string{"Timestamp", "Latitude"}, ds.Names())
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ReadCSV(strings.NewReader("a,a\n1,2\n"))
	assert.ErrorIs(t, err, model.ErrDuplicateColumn)
}

func TestLoadCSV(t *testing.T) {
	store := newMemStore()
	store.objects["vesselA_run.csv"] = []byte("Timestamp\n1707752941\n")

	ds, err := LoadCSV(context.Background(), store, "vesselA_run.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())

	_, err = LoadCSV(context.Background(), store, "missing.csv")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}
