package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/pulsevents/internal/config"
	"github.com/0xcro3dile/pulsevents/internal/logging"
)

var (
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pulsevents",
	Short: "Chat assistant for the public events of a French commune",
	Long: `Puls Events answers questions about a commune's public events.
It extracts the open-data event feed, indexes it with embeddings and serves
a chat that only retrieves events when the question calls for it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		l, err := logging.NewLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = l
		config.LogEnvStatus(cfg, logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
