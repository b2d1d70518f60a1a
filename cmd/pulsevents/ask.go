package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/pulsevents/internal/adapters/history"
	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/usecases"
)

var (
	askEphemeral   bool
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask <text...>",
	Short: "Ask one question and print the answer",
	Long: `Run a single chat turn: retrieval gate, optional event search, generation.
With --ephemeral the index is built in memory from the event table instead of read from disk.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireCredentials(); err != nil {
			return err
		}
		ctx := cmd.Context()

		p, err := loadPrompts(cfg.Gate.CommuneName)
		if err != nil {
			return err
		}
		store, closeIndex, err := openIndex(ctx, cfg, askEphemeral)
		if err != nil {
			return err
		}
		defer closeIndex()

		model := newLLM(cfg)
		gate, err := newGate(cfg, model, p)
		if err != nil {
			return err
		}
		conv := usecases.NewConversation(
			gate,
			newComposer(cfg, store, model, p),
			history.NewMemoryStore(cfg.History.TTL(), cfg.History.MaxMessages),
			p.welcome,
			logger,
		)

		resp, err := conv.Turn(ctx, entities.ChatRequest{
			SessionID: uuid.NewString(),
			Query:     strings.Join(args, " "),
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, resp.Answer)
		if askShowSources {
			c := resp.Classification
			fmt.Fprintf(out, "\n[%s] retrieve=%t confidence=%.2f %s\n", c.Tier, c.NeedsRetrieval, c.Confidence, c.Reason)
			for i, doc := range resp.Sources {
				fmt.Fprintf(out, "%d. (%.3f) %s\n", i+1, doc.Score, usecases.ParseEventDetails(doc.Text).Title)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askEphemeral, "ephemeral", false, "Index the event table in memory instead of opening the persistent index")
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "Print the verdict and the retrieved events")
}
