package utils

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFloat(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{name: "integer", input: "1707752941", want: 1707752941, wantOK: true},
		{name: "decimal", input: "0.54", want: 0.54, wantOK: true},
		{name: "negative", input: "-10.65", want: -10.65, wantOK: true},
		{name: "padded", input: "  21.12 ", want: 21.12, wantOK: true},
		{name: "text", input: "ERROR", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "nan token", input: "NaN", wantOK: false},
		{name: "null token", input: "null", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseFloat(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.InDelta(t, tc.want, got, 1e-9)
			} else {
				assert.True(t, math.IsNaN(got))
			}
		})
	}
}

func TestDigitCount(t *testing.T) {
	assert.Equal(t, 10, DigitCount(1707752941))
	assert.Equal(t, 10, DigitCount(1707752941.9))
	assert.Equal(t, 9, DigitCount(123456789))
	assert.Equal(t, 1, DigitCount(0))
	assert.Equal(t, 11, DigitCount(-1000000000))
	assert.Equal(t, 11, DigitCount(10000000000))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 2*time.Minute, ParseDuration("2m", time.Second))
	assert.Equal(t, time.Second, ParseDuration("", time.Second))
	assert.Equal(t, time.Second, ParseDuration("soon", time.Second))
}

func TestOutputManager_PartitionPath(t *testing.T) {
	om := NewOutputManager("/cleaned/")
	got := om.PartitionPath("vesselA", "2024", "03", "05", "vesselA_2024run.parquet")
	assert.Equal(t, "cleaned/vesselA/year=2024/month=03/day=05/vesselA_2024run.parquet", got)

	bare := NewOutputManager("")
	assert.Equal(t, "v/year=2024/month=12/day=31", bare.PartitionDir("v", "2024", "12", "31"))
}

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "vesselA_2024run.parquet", ArtifactName("vesselA_2024run.csv", ".parquet"))
	assert.Equal(t, "vesselA_2024run.parquet", ArtifactName("incoming/vesselA_2024run.csv", "parquet"))
	assert.Equal(t, "raw.parquet", ArtifactName("raw", ".parquet"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", ContentType("a.CSV"))
	assert.Equal(t, "application/vnd.apache.parquet", ContentType("a.parquet"))
	assert.Equal(t, "application/octet-stream", ContentType("a.bin"))
}
