package mfind

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func newTestLogger(b *syncBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(b, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func Test_ApplyOptions_Sets_Defaults_When_Options_Are_Missing(t *testing.T) {
	t.Parallel()

	cfg := applyOptions(nil)

	assert.Equal(t, defaultWorkers, cfg.Workers)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.Tracer)
	assert.Nil(t, cfg.OnError)
	assert.Nil(t, cfg.Skip)
	assert.False(t, cfg.Hidden)
}

func Test_ApplyOptions_Keeps_Explicit_Zero_Workers_When_Set(t *testing.T) {
	t.Parallel()

	cfg := applyOptions([]Option{WithWorkers(8), nil, WithWorkers(0)})

	assert.Equal(t, 0, cfg.Workers)
	assert.True(t, cfg.workersSet)
}

func Test_Search_Records_Span_With_Totals_When_Tracer_Is_Set(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "needle"), []byte("x"), 0o600))

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	target, err := NewTarget("needle", TypeFile)
	require.NoError(t, err)

	_, err = Search(t.Context(), []string{root}, target, nil, WithWorkers(3), WithTracer(provider.Tracer("test")))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "mfind.Search", spans[0].Name())

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}

	assert.Equal(t, int64(3), attrs["mfind.workers"].AsInt64())
	assert.Equal(t, "f", attrs["mfind.type"].AsString())
	assert.Equal(t, int64(2), attrs["mfind.dirs_read"].AsInt64())
	assert.Equal(t, int64(1), attrs["mfind.matches"].AsInt64())
	assert.Equal(t, int64(3), attrs["mfind.terminations"].AsInt64())
}

func Test_Search_Logs_Worker_Lifecycle_And_Completion_When_Logger_Is_Set(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	var buf syncBuffer

	target, err := NewTarget("x", TypeAny)
	require.NoError(t, err)

	_, err = Search(t.Context(), []string{root}, target, nil, WithWorkers(2), WithLogger(newTestLogger(&buf)))
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("worker started")))
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("worker stopped")))
	assert.Contains(t, out, "search complete")
	assert.Contains(t, out, "dirs_read=1")
}

func Test_Search_Survives_Claim_Races_When_Workers_Are_Delayed_Before_Claim(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	dir := root
	for range 20 {
		dir = filepath.Join(dir, "n")
		require.NoError(t, os.Mkdir(dir, 0o750))
	}

	target, err := NewTarget("n", TypeDir)
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		waits int
	)

	matches, summary, err := Find(t.Context(), []string{root}, target,
		WithWorkers(16),
		WithBeforeClaim(func() {
			mu.Lock()
			waits++
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	assert.Len(t, matches, 20)
	assert.Equal(t, 21, summary.DirsRead)

	// 21 claims plus one final pass per worker.
	assert.Equal(t, 21+16, waits)
}
