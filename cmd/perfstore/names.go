package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/perfstore/pkg/resultstore"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "List stored test names",
	RunE:  runNames,
}

func init() {
	rootCmd.AddCommand(namesCmd)
}

func runNames(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := resultstore.NewStore(log, &cfg.Database)
	defer func() { _ = store.Close() }()

	names, err := store.TestNames(context.Background())
	if err != nil {
		return fmt.Errorf("loading test names: %w", err)
	}

	for _, name := range names {
		fmt.Println(name)
	}

	return nil
}
