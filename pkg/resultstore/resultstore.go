package resultstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ethpandaops/perfstore/pkg/config"
	"github.com/ethpandaops/perfstore/pkg/results"
)

// Store persists performance benchmark results and serves back their
// per-test history.
//
// A Store owns a single lazily opened database connection. Calls are
// synchronous and blocking; the Store performs no internal locking, so
// concurrent use of one instance requires external synchronization.
type Store interface {
	// Report stores one test execution together with all of its measured
	// operations (current and per-baseline).
	Report(ctx context.Context, res *results.PerformanceResults) error

	// TestNames returns the distinct test names present in the store,
	// sorted ascending.
	TestNames(ctx context.Context) ([]string, error)

	// TestResults returns the full execution history for a test name,
	// newest execution first.
	TestResults(ctx context.Context, testName string) (*results.TestExecutionHistory, error)

	// Close releases the database connection if one is open. Idempotent;
	// the connection reference is cleared even when the close fails.
	Close() error
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a results Store backed by the configured database
// driver. The connection is opened lazily on first use.
func NewStore(log logrus.FieldLogger, cfg *config.DatabaseConfig) Store {
	return &store{
		log: log.WithField("component", "resultstore"),
		cfg: cfg,
	}
}

// location describes the datastore for error messages.
func (s *store) location() string {
	if s.cfg.Driver == "postgres" {
		return fmt.Sprintf("postgres://%s:%d/%s",
			s.cfg.Postgres.Host, s.cfg.Postgres.Port, s.cfg.Postgres.Database)
	}

	return s.cfg.SQLite.Path
}

// conn returns a connection with the schema ensured, opening one if none is
// held. The schema is ensured on every acquisition; if that fails the held
// connection is discarded so the next call retries from scratch.
func (s *store) conn(ctx context.Context) (*gorm.DB, error) {
	if s.db == nil {
		var dialector gorm.Dialector

		switch s.cfg.Driver {
		case "sqlite":
			path := s.cfg.SQLite.Path
			if path != ":memory:" {
				if dir := filepath.Dir(path); dir != "" && dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return nil, fmt.Errorf("creating datastore directory for %q: %w",
							path, err)
					}
				}
			}

			dialector = sqlite.Open(path)
		case "postgres":
			dsn := fmt.Sprintf(
				"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				s.cfg.Postgres.Host,
				s.cfg.Postgres.Port,
				s.cfg.Postgres.User,
				s.cfg.Postgres.Password,
				s.cfg.Postgres.Database,
				s.cfg.Postgres.SSLMode,
			)
			dialector = postgres.Open(dsn)
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
		}

		db, err := gorm.Open(dialector, &gorm.Config{
			Logger: logger.Discard,
		})
		if err != nil {
			return nil, fmt.Errorf("opening results datastore %q: %w",
				s.location(), err)
		}

		s.db = db

		s.log.WithField("driver", s.cfg.Driver).
			WithField("location", s.location()).
			Debug("Results datastore connected")
	}

	if err := s.db.WithContext(ctx).AutoMigrate(
		&TestExecution{},
		&TestOperation{},
	); err != nil {
		// Discard the connection so the next call retries acquisition.
		if sqlDB, dbErr := s.db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}

		s.db = nil

		return nil, fmt.Errorf("ensuring schema in datastore %q: %w",
			s.location(), err)
	}

	return s.db.WithContext(ctx), nil
}

// Report stores one execution row plus one operation row per measured
// operation. Current operations carry a NULL version label; each baseline's
// operations carry that baseline's label. No explicit transaction is opened;
// the driver's default behavior applies.
func (s *store) Report(ctx context.Context, res *results.PerformanceResults) error {
	db, err := s.conn(ctx)
	if err != nil {
		return fmt.Errorf("storing results for %q: %w", res.DisplayName, err)
	}

	exec := &TestExecution{
		ExecutionTime: res.TestTime,
		TestName:      res.DisplayName,
		TargetVersion: res.VersionUnderTest,
	}

	if err := db.Create(exec).Error; err != nil {
		return fmt.Errorf("inserting execution into datastore %q: %w",
			s.location(), err)
	}

	ops := make([]TestOperation, 0, len(res.Current))
	for _, op := range res.Current {
		ops = append(ops, TestOperation{
			TestExecution:   exec.ID,
			ExecutionTimeMs: op.ExecutionTimeMs,
			HeapUsageBytes:  op.HeapUsageBytes,
		})
	}

	// Insert baselines in label order so repeated reports lay rows out
	// deterministically.
	labels := make([]string, 0, len(res.BaselineVersions))
	for label := range res.BaselineVersions {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	for _, label := range labels {
		version := label
		for _, op := range res.BaselineVersions[label] {
			ops = append(ops, TestOperation{
				TestExecution:   exec.ID,
				Version:         &version,
				ExecutionTimeMs: op.ExecutionTimeMs,
				HeapUsageBytes:  op.HeapUsageBytes,
			})
		}
	}

	if len(ops) > 0 {
		if err := db.Create(&ops).Error; err != nil {
			return fmt.Errorf("inserting operations into datastore %q: %w",
				s.location(), err)
		}
	}

	s.log.WithField("test", res.DisplayName).
		WithField("operations", len(ops)).
		Debug("Results stored")

	return nil
}

// TestNames returns the distinct test names present in the store, sorted
// ascending.
func (s *store) TestNames(ctx context.Context) ([]string, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading test names: %w", err)
	}

	// The raw Order fragment double-quotes the camelCase column so it
	// behaves identically on SQLite and Postgres; Pluck takes the bare
	// name and quotes it itself.
	var names []string
	if err := db.Model(&TestExecution{}).
		Distinct().
		Order(`"testName"`).
		Pluck("testName", &names).Error; err != nil {
		return nil, fmt.Errorf("loading test names from datastore %q: %w",
			s.location(), err)
	}

	return names, nil
}

// TestResults returns the full history for a test name: every execution
// newest-first, each with its operations bucketed into current vs baseline,
// plus the sorted union of all baseline version labels ever seen.
func (s *store) TestResults(ctx context.Context, testName string) (*results.TestExecutionHistory, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading results for %q: %w", testName, err)
	}

	var execs []TestExecution
	if err := db.Where(`"testName" = ?`, testName).
		Order(`"executionTime" DESC`).
		Find(&execs).Error; err != nil {
		return nil, fmt.Errorf("loading executions from datastore %q: %w",
			s.location(), err)
	}

	history := &results.TestExecutionHistory{
		TestName:   testName,
		Versions:   []string{},
		Executions: make([]results.PerformanceResults, 0, len(execs)),
	}

	versionSet := make(map[string]struct{})

	for _, exec := range execs {
		var ops []TestOperation
		if err := db.Where(`"testExecution" = ?`, exec.ID).
			Find(&ops).Error; err != nil {
			return nil, fmt.Errorf("loading operations from datastore %q: %w",
				s.location(), err)
		}

		res := results.PerformanceResults{
			DisplayName:      testName,
			VersionUnderTest: exec.TargetVersion,
			TestTime:         exec.ExecutionTime,
			BaselineVersions: make(map[string][]results.MeasuredOperation),
		}

		for _, op := range ops {
			measured := results.MeasuredOperation{
				ExecutionTimeMs: op.ExecutionTimeMs,
				HeapUsageBytes:  op.HeapUsageBytes,
			}

			if op.Version == nil {
				res.Current = append(res.Current, measured)

				continue
			}

			res.BaselineVersions[*op.Version] = append(
				res.BaselineVersions[*op.Version], measured,
			)
			versionSet[*op.Version] = struct{}{}
		}

		history.Executions = append(history.Executions, res)
	}

	for version := range versionSet {
		history.Versions = append(history.Versions, version)
	}

	sort.Strings(history.Versions)

	return history, nil
}

// Close releases the connection if one is open. The reference is cleared
// even when the underlying close fails.
func (s *store) Close() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	s.db = nil

	if err != nil {
		return fmt.Errorf("closing datastore %q: %w", s.location(), err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("closing datastore %q: %w", s.location(), err)
	}

	return nil
}
