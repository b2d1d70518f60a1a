package main

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/pulsevents/internal/domain/ports"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify <text...>",
	Short: "Show the retrieval decision for an utterance",
	Long:  `Run the retrieval gate on one utterance. Only the model tier needs credentials; greetings and keywords are decided locally.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPrompts(cfg.Gate.CommuneName)
		if err != nil {
			return err
		}
		// Without credentials undecided utterances fall back to retrieval.
		var model ports.LLMService
		if err := cfg.RequireCredentials(); err != nil {
			logger.Warn("classifier_model_disabled", "err", err)
		} else {
			model = newLLM(cfg)
		}
		gate, err := newGate(cfg, model, p)
		if err != nil {
			return err
		}

		result := gate.Classify(cmd.Context(), strings.Join(args, " "))
		out := cmd.OutOrStdout()
		if classifyJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		fmt.Fprintf(out, "retrieve=%t confidence=%.2f tier=%s\n%s\n",
			result.NeedsRetrieval, result.Confidence, result.Tier, result.Reason)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Output in JSON format")
}
