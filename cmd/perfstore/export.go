package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/perfstore/pkg/resultstore"
	"github.com/ethpandaops/perfstore/pkg/upload"
)

var exportCmd = &cobra.Command{
	Use:   "export <test-name>",
	Short: "Upload a test's history to S3",
	Long: `Render the execution history for a test as JSON and upload it to the
configured S3 bucket.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Upload == nil {
		return fmt.Errorf("upload section is required in config")
	}

	ctx := context.Background()

	store := resultstore.NewStore(log, &cfg.Database)
	defer func() { _ = store.Close() }()

	history, err := store.TestResults(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading test results: %w", err)
	}

	if len(history.Executions) == 0 {
		return fmt.Errorf("no results stored for test %q", args[0])
	}

	document, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering history: %w", err)
	}

	uploader, err := upload.NewS3Uploader(log, cfg.Upload)
	if err != nil {
		return fmt.Errorf("creating uploader: %w", err)
	}

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("upload preflight: %w", err)
	}

	if err := uploader.UploadHistory(ctx, args[0], document); err != nil {
		return fmt.Errorf("uploading history: %w", err)
	}

	return nil
}
