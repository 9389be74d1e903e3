package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/perfstore/pkg/results"
	"github.com/ethpandaops/perfstore/pkg/resultstore"
)

var reportFile string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Store a results document",
	Long: `Parse a YAML results document and store it as one test execution
with its current and baseline measured operations.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFile, "file", "",
		"results document to store (YAML)")
	_ = reportCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(reportFile)
	if err != nil {
		return fmt.Errorf("reading results file: %w", err)
	}

	var res results.PerformanceResults
	if err := yaml.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("parsing results file: %w", err)
	}

	if res.DisplayName == "" {
		return fmt.Errorf("results file is missing display_name")
	}

	if res.TestTime.IsZero() {
		res.TestTime = time.Now().UTC()
	}

	store := resultstore.NewStore(log, &cfg.Database)
	defer func() { _ = store.Close() }()

	if err := store.Report(context.Background(), &res); err != nil {
		return fmt.Errorf("storing results: %w", err)
	}

	log.WithField("test", res.DisplayName).Info("Results stored")

	return nil
}
