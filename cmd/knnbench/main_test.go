package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/hupe1980/knn/codec"
	"github.com/hupe1980/knn/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	cfg := DefaultConfig()
	cfg.LogLevel = "error"

	var out bytes.Buffer
	cmd := newRootCmd(&cfg)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func smallRun(extra ...string) []string {
	args := []string{"run",
		"--ref-nb", "300", "--query-nb", "40", "--dim", "5", "--k", "7",
		"--iterations", "2", "--cpu-iterations", "1", "--tile-size", "8",
	}
	return append(args, extra...)
}

func TestRun_JSONReport(t *testing.T) {
	out := execute(t, smallRun("--json")...)

	var report Report
	require.NoError(t, codec.GoJSON{}.Unmarshal([]byte(out), &report))

	assert.Equal(t, 300, report.RefNb)
	assert.Equal(t, 40, report.QueryNb)
	assert.Equal(t, 5, report.Dim)
	assert.Equal(t, 7, report.K)
	assert.Equal(t, 2, report.Iterations.Pipeline)
	assert.Equal(t, 7*40, report.Accuracy.Total)
	assert.Equal(t, 1.0, report.Accuracy.PrecisionAccuracy)
	assert.Equal(t, 1.0, report.Accuracy.TieTolerantAccuracy)
	assert.Equal(t, int64(2), report.Stats.PipelineCount)
	assert.Equal(t, int64(1), report.Stats.SequentialCount)
	assert.Positive(t, report.PeakMemoryUsed)
}

func TestRun_TextReport(t *testing.T) {
	out := execute(t, smallRun()...)

	assert.Contains(t, out, "Number of reference points      :    300")
	assert.Contains(t, out, "Precision accuracy    : 1.000000")
	assert.Contains(t, out, "distance")
}

func TestRun_MemoryLimitTooSmall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "error"

	cmd := newRootCmd(&cfg)
	cmd.SetArgs(smallRun("--memory-limit", "64"))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.Error(t, cmd.Execute())
}

func TestRun_InvalidFlags(t *testing.T) {
	cfg := DefaultConfig()

	cmd := newRootCmd(&cfg)
	cmd.SetArgs([]string{"run", "--k", "0"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.ErrorIs(t, cmd.Execute(), ErrInvalidK)
}

func TestGen_ThenRunFromFiles(t *testing.T) {
	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.knn")
	queryPath := filepath.Join(dir, "query.parquet")

	execute(t, "gen", "--width", "200", "--dim", "4", "--compression", "zstd", refPath)
	execute(t, "gen", "--width", "30", "--dim", "4", "--seed", "9", "--distribution", "clustered", queryPath)

	ref, err := dataset.Load(refPath)
	require.NoError(t, err)
	assert.Equal(t, 200, ref.Width)
	assert.Equal(t, 4, ref.Dim)

	out := execute(t, "run", "--ref", refPath, "--query", queryPath, "--k", "5",
		"--iterations", "1", "--json")

	var report Report
	require.NoError(t, codec.GoJSON{}.Unmarshal([]byte(out), &report))
	assert.Equal(t, 200, report.RefNb)
	assert.Equal(t, 30, report.QueryNb)
	assert.Equal(t, 4, report.Dim)
	assert.Equal(t, 1.0, report.Accuracy.TieTolerantAccuracy)
}

func TestGen_Grid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.knn")
	execute(t, "gen", "--width", "100", "--dim", "2", "--distribution", "grid", "--side", "5", path)

	ps, err := dataset.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, ps.Width)
}

func TestGen_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.knn")
	tests := [][]string{
		{"gen", "--distribution", "normal", path},
		{"gen", "--compression", "gzip", path},
		{"gen", "--width", "0", path},
		{"gen"},
	}
	for _, args := range tests {
		cfg := DefaultConfig()
		cmd := newRootCmd(&cfg)
		cmd.SetArgs(args)
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		assert.Error(t, cmd.Execute(), args)
	}
}
