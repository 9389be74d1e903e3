package resultstore

import "time"

// TestExecution is one stored test run.
type TestExecution struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ExecutionTime time.Time `gorm:"column:executionTime;not null;index"`
	TestName      string    `gorm:"column:testName;not null;index"`
	TargetVersion string    `gorm:"column:targetVersion;not null"`
}

// TableName keeps the historical schema name.
func (TestExecution) TableName() string { return "testExecution" }

// TestOperation is one measured operation belonging to a test execution.
// A nil Version marks an operation measured against the version under test;
// a non-nil Version names the baseline version it was measured against.
type TestOperation struct {
	TestExecution   int64   `gorm:"column:testExecution;not null;index"`
	Version         *string `gorm:"column:version"`
	ExecutionTimeMs float64 `gorm:"column:executionTimeMs;not null"`
	HeapUsageBytes  float64 `gorm:"column:heapUsageBytes;not null"`
}

// TableName keeps the historical schema name.
func (TestOperation) TableName() string { return "testOperation" }
