package results

import "time"

// MeasuredOperation is a single warm run of a benchmarked operation.
type MeasuredOperation struct {
	ExecutionTimeMs float64 `json:"execution_time_ms" yaml:"execution_time_ms"`
	HeapUsageBytes  float64 `json:"heap_usage_bytes" yaml:"heap_usage_bytes"`
}

// PerformanceResults aggregates the measured operations of one test
// execution: the operations measured against the version under test plus
// the operations measured against each baseline version.
type PerformanceResults struct {
	DisplayName      string    `json:"display_name" yaml:"display_name"`
	VersionUnderTest string    `json:"version_under_test" yaml:"version_under_test"`
	TestTime         time.Time `json:"test_time" yaml:"test_time,omitempty"`

	Current []MeasuredOperation `json:"current" yaml:"current"`

	// BaselineVersions maps a baseline version label to the operations
	// measured against that baseline.
	BaselineVersions map[string][]MeasuredOperation `json:"baseline_versions,omitempty" yaml:"baseline_versions,omitempty"`
}

// TestExecutionHistory is the full stored history for one test name.
type TestExecutionHistory struct {
	TestName string `json:"test_name"`

	// Versions is the deduplicated, ascending-sorted union of every
	// baseline version label seen across all executions of the test.
	Versions []string `json:"versions"`

	// Executions are ordered newest-first by execution time.
	Executions []PerformanceResults `json:"executions"`
}
