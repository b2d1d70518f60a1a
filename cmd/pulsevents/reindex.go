package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/pulsevents/internal/adapters/vectordb"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from the event table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireCredentials(); err != nil {
			return err
		}

		store, err := vectordb.NewSQLiteStore(cfg.Storage.IndexDir)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := newIngest(cfg, store).Reindex(cmd.Context(), newEventTable(cfg))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d documents indexed in %s\n", n, store.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
