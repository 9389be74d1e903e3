package resultstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/perfstore/pkg/config"
	"github.com/ethpandaops/perfstore/pkg/results"
	"github.com/ethpandaops/perfstore/pkg/resultstore"
)

func newTestStore(t *testing.T, path string) resultstore.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteDatabaseConfig{Path: path},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := resultstore.NewStore(log, cfg)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func setupTestStore(t *testing.T) resultstore.Store {
	t.Helper()

	return newTestStore(t, ":memory:")
}

func TestStore_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	reported := &results.PerformanceResults{
		DisplayName:      "buildPerf",
		VersionUnderTest: "2.0",
		TestTime:         time.Now().UTC(),
		Current: []results.MeasuredOperation{
			{ExecutionTimeMs: 5000, HeapUsageBytes: 1000000},
			{ExecutionTimeMs: 5200, HeapUsageBytes: 1050000},
		},
		BaselineVersions: map[string][]results.MeasuredOperation{
			"1.9": {{ExecutionTimeMs: 4800, HeapUsageBytes: 900000}},
		},
	}

	require.NoError(t, s.Report(ctx, reported))

	names, err := s.TestNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"buildPerf"}, names)

	history, err := s.TestResults(ctx, "buildPerf")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.9"}, history.Versions)
	require.Len(t, history.Executions, 1)

	exec := history.Executions[0]
	assert.Equal(t, "buildPerf", exec.DisplayName)
	assert.Equal(t, "2.0", exec.VersionUnderTest)
	assert.WithinDuration(t, reported.TestTime, exec.TestTime, time.Second)

	require.Len(t, exec.Current, 2)
	assert.InDelta(t, 5000, exec.Current[0].ExecutionTimeMs, 0.001)
	assert.InDelta(t, 1000000, exec.Current[0].HeapUsageBytes, 0.001)
	assert.InDelta(t, 5200, exec.Current[1].ExecutionTimeMs, 0.001)
	assert.InDelta(t, 1050000, exec.Current[1].HeapUsageBytes, 0.001)

	require.Contains(t, exec.BaselineVersions, "1.9")
	baseline := exec.BaselineVersions["1.9"]
	require.Len(t, baseline, 1)
	assert.InDelta(t, 4800, baseline[0].ExecutionTimeMs, 0.001)
	assert.InDelta(t, 900000, baseline[0].HeapUsageBytes, 0.001)
}

func TestStore_ExecutionsNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Report(ctx, &results.PerformanceResults{
			DisplayName:      "ordering",
			VersionUnderTest: "2.0",
			TestTime:         base.Add(time.Duration(i) * time.Hour),
			Current: []results.MeasuredOperation{
				{ExecutionTimeMs: float64(1000 + i), HeapUsageBytes: 1},
			},
		}))
	}

	history, err := s.TestResults(ctx, "ordering")
	require.NoError(t, err)
	require.Len(t, history.Executions, 3)

	for i := 1; i < len(history.Executions); i++ {
		assert.True(t,
			history.Executions[i-1].TestTime.After(history.Executions[i].TestTime),
			"executions must be ordered newest-first")
	}
}

func TestStore_VersionUnionAcrossExecutions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	op := []results.MeasuredOperation{{ExecutionTimeMs: 1, HeapUsageBytes: 1}}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	executions := []map[string][]results.MeasuredOperation{
		{"1.9": op, "1.8": op},
		{"1.9": op},
		{"2.0-rc1": op},
	}

	for i, baselines := range executions {
		require.NoError(t, s.Report(ctx, &results.PerformanceResults{
			DisplayName:      "unionTest",
			VersionUnderTest: "2.1",
			TestTime:         base.Add(time.Duration(i) * time.Minute),
			Current:          op,
			BaselineVersions: baselines,
		}))
	}

	history, err := s.TestResults(ctx, "unionTest")
	require.NoError(t, err)

	// Union of all labels, deduplicated, sorted ascending.
	assert.Equal(t, []string{"1.8", "1.9", "2.0-rc1"}, history.Versions)
}

func TestStore_TestNamesDistinctSorted(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	op := []results.MeasuredOperation{{ExecutionTimeMs: 1, HeapUsageBytes: 1}}

	for _, name := range []string{"zeta", "alpha", "zeta", "mid", "alpha"} {
		require.NoError(t, s.Report(ctx, &results.PerformanceResults{
			DisplayName:      name,
			VersionUnderTest: "1.0",
			TestTime:         time.Now().UTC(),
			Current:          op,
		}))
	}

	names, err := s.TestNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestStore_EmptyHistory(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	names, err := s.TestNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	history, err := s.TestResults(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "missing", history.TestName)
	assert.Empty(t, history.Versions)
	assert.Empty(t, history.Executions)
}

func TestStore_SchemaEnsureIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	s := newTestStore(t, path)
	ctx := context.Background()

	// Every call re-ensures the schema; repeated calls against the same
	// datastore must never fail with "table already exists".
	for i := 0; i < 5; i++ {
		_, err := s.TestNames(ctx)
		require.NoError(t, err)

		require.NoError(t, s.Report(ctx, &results.PerformanceResults{
			DisplayName:      "idempotent",
			VersionUnderTest: "1.0",
			TestTime:         time.Now().UTC(),
			Current: []results.MeasuredOperation{
				{ExecutionTimeMs: 1, HeapUsageBytes: 1},
			},
		}))
	}

	history, err := s.TestResults(ctx, "idempotent")
	require.NoError(t, err)
	assert.Len(t, history.Executions, 5)
}

func TestStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "results.db")
	s := newTestStore(t, path)

	require.NoError(t, s.Report(context.Background(), &results.PerformanceResults{
		DisplayName:      "mkdir",
		VersionUnderTest: "1.0",
		TestTime:         time.Now().UTC(),
		Current: []results.MeasuredOperation{
			{ExecutionTimeMs: 1, HeapUsageBytes: 1},
		},
	}))
}

func TestStore_ReopenSeesPersistedData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.db")
	ctx := context.Background()

	first := newTestStore(t, path)
	require.NoError(t, first.Report(ctx, &results.PerformanceResults{
		DisplayName:      "persisted",
		VersionUnderTest: "3.0",
		TestTime:         time.Now().UTC(),
		Current: []results.MeasuredOperation{
			{ExecutionTimeMs: 42, HeapUsageBytes: 4096},
		},
	}))
	require.NoError(t, first.Close())

	second := newTestStore(t, path)

	names, err := second.TestNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"persisted"}, names)
}

func TestStore_RecoversAfterSchemaFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	// Not a SQLite database, so the schema cannot be ensured.
	require.NoError(t,
		os.WriteFile(path, []byte("not a sqlite database"), 0o600))

	s := newTestStore(t, path)

	_, err := s.TestNames(ctx)
	require.Error(t, err)

	// The failed acquisition discarded the connection. Once the corrupt
	// file is gone, the next call must reacquire from scratch and
	// succeed; a retained handle would still point at the old file.
	require.NoError(t, os.Remove(path))

	names, err := s.TestNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.Report(ctx, &results.PerformanceResults{
		DisplayName:      "recovered",
		VersionUnderTest: "1.0",
		TestTime:         time.Now().UTC(),
		Current: []results.MeasuredOperation{
			{ExecutionTimeMs: 1, HeapUsageBytes: 1},
		},
	}))
}

func TestStore_CloseIdempotent(t *testing.T) {
	s := setupTestStore(t)

	// Close before any connection was opened.
	require.NoError(t, s.Close())

	_, err := s.TestNames(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestStore_UnsupportedDriver(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := resultstore.NewStore(log, &config.DatabaseConfig{Driver: "oracle"})

	_, err := s.TestNames(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
