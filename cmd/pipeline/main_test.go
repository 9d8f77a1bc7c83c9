package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-pipeline/internal/config"
)

const sampleCSV = `Timestamp,speed_over_ground,Latitude
1707752941,0.54,45.0
1707752945,21.12,45.0
1707752952,150,45.1
`

func TestRootCmd_WritesPartitions(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "vesselA_2024run.csv")
	require.NoError(t, os.WriteFile(input, []byte(sampleCSV), 0644))
	out := filepath.Join(dir, "out")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--input", input, "--output", out, "--no-ledger"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.FileExists(t, filepath.Join(out, "vesselA", "year=2024", "month=02", "day=12", "vesselA_2024run.parquet"))
}

func TestRootCmd_RequiresInput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--no-ledger"})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestInitConfigCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"init-config", path})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, stdout.String(), path)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Pipeline, cfg.Pipeline)
}
