package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/pulsevents/internal/adapters/opendata"
	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
	"github.com/0xcro3dile/pulsevents/internal/domain/usecases"
)

var extractYear string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Download the commune's events into the CSV table",
	Long:  `Fetch the open-data event feed for the configured commune and year, strip HTML and write the flat event table.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		year := cfg.Feed.Year
		if extractYear != "" {
			year = extractYear
		}

		source := opendata.NewClient(opendata.Options{
			BaseURL:           cfg.Feed.BaseURL,
			Dataset:           cfg.Feed.Dataset,
			PageSize:          cfg.Feed.PageSize,
			RequestsPerSecond: cfg.Feed.RequestsPerSecond,
			Timeout:           cfg.LLM.Timeout(),
		}, logger)
		table := newEventTable(cfg)

		n, err := usecases.NewExtractUseCase(source, table, logger).Extract(cmd.Context(), ports.FeedQuery{
			City: cfg.Gate.CommuneName,
			Year: year,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d events written to %s\n", n, table.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractYear, "year", "", "Feed year (defaults to FEED_YEAR)")
}
