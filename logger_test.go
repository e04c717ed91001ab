package knn

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/knn/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer) *Logger {
	return NewLogger(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLogger_LogSearch(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	l.LogSearch(context.Background(), EnginePipeline, 4, 10, nil)
	assert.Contains(t, buf.String(), `"msg":"search completed"`)
	assert.Contains(t, buf.String(), `"engine":"pipeline"`)
	assert.Contains(t, buf.String(), `"queries":10`)

	buf.Reset()
	l.LogSearch(context.Background(), EngineSequential, 4, 10, errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf).WithK(3).WithDimension(68).WithCount(2)

	l.LogStage(context.Background(), StageSelect, time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, `"k":3`)
	assert.Contains(t, out, `"dimension":68`)
	assert.Contains(t, out, `"count":2`)
	assert.Contains(t, out, `"stage":"select"`)
}

func TestSearch_LogsStagesAndCall(t *testing.T) {
	var buf bytes.Buffer
	rng := testutil.NewRNG(1)

	_, err := Search(context.Background(), rng.UniformPointSet(20, 3), rng.UniformPointSet(4, 3), 2,
		WithLogger(bufferLogger(&buf)))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	for i, stage := range []string{StageUpload, StageDistance, StageSelect, StageNormalize, StageDownload} {
		assert.Contains(t, lines[i], `"stage":"`+stage+`"`)
	}
	assert.Contains(t, lines[5], `"msg":"search completed"`)
}

func TestSearch_LogsValidationFailure(t *testing.T) {
	var buf bytes.Buffer
	rng := testutil.NewRNG(1)
	ps := rng.UniformPointSet(2, 3)

	_, err := Search(context.Background(), ps, ps, 3, WithLogger(bufferLogger(&buf)))
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"msg":"search failed"`)
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
