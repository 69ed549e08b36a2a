package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BusterWarn/mfind"
)

func Test_RunMetrics_Records_Every_Worker_When_Summary_Is_Observed(t *testing.T) {
	t.Parallel()

	m := newRunMetrics()
	m.observe(mfind.Summary{
		Workers: []mfind.WorkerStats{
			{ID: 0, DirsRead: 7, Matches: 2, Errors: 1},
			{ID: 1, DirsRead: 3},
		},
		Duration: 1500 * time.Millisecond,
	})

	assert.Equal(t, 2, testutil.CollectAndCount(m.dirsRead))
	assert.InDelta(t, 7, testutil.ToFloat64(m.dirsRead.WithLabelValues("0")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.dirsRead.WithLabelValues("1")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.matches.WithLabelValues("0")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errors.WithLabelValues("0")), 0)
	assert.InDelta(t, 1.5, testutil.ToFloat64(m.duration), 1e-9)

	expected := `
# HELP mfind_worker_errors IO errors seen by each worker in the last run.
# TYPE mfind_worker_errors gauge
mfind_worker_errors{worker="0"} 1
mfind_worker_errors{worker="1"} 0
`
	require.NoError(t, testutil.GatherAndCompare(m.registry, strings.NewReader(expected), "mfind_worker_errors"))
}

func Test_RunMetrics_Fails_When_Directory_Does_Not_Exist(t *testing.T) {
	t.Parallel()

	m := newRunMetrics()

	err := m.write(filepath.Join(t.TempDir(), "missing", "mfind.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write metrics")
}
