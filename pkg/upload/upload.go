package upload

import "context"

// Uploader publishes exported test histories to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// UploadHistory uploads one rendered history document under the
	// configured prefix, keyed by test name.
	UploadHistory(ctx context.Context, testName string, document []byte) error
}
