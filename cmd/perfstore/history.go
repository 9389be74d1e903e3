package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/perfstore/pkg/resultstore"
)

var historyCmd = &cobra.Command{
	Use:   "history <test-name>",
	Short: "Print the execution history for a test",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := resultstore.NewStore(log, &cfg.Database)
	defer func() { _ = store.Close() }()

	history, err := store.TestResults(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("loading test results: %w", err)
	}

	out, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering history: %w", err)
	}

	fmt.Println(string(out))

	return nil
}
