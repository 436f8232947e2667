package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/creatorops/scout/config"
	"github.com/creatorops/scout/internal/qualify"
	"github.com/creatorops/scout/internal/store"
)

// scoreCMD runs the evidence/scoring subsystem for a single candidate,
// independent of the full pipeline: it validates an AI scoring response
// against its source texts and persists the resulting evaluation.
func scoreCMD() *cobra.Command {
	var cfgPath string
	var candidateID string
	var campaignID string
	var responsePath string
	var sourcesPath string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Validate and persist one AI scoring response",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stdout, "[SCORE] ", log.LstdFlags)

			respData, err := os.ReadFile(responsePath)
			if err != nil {
				return fmt.Errorf("reading scoring response: %w", err)
			}
			var resp qualify.ScoringResponse
			if err := json.Unmarshal(respData, &resp); err != nil {
				return fmt.Errorf("parsing scoring response: %w", err)
			}

			sources := map[string]string{}
			if sourcesPath != "" {
				srcData, err := os.ReadFile(sourcesPath)
				if err != nil {
					return fmt.Errorf("reading sources: %w", err)
				}
				if err := json.Unmarshal(srcData, &sources); err != nil {
					return fmt.Errorf("parsing sources: %w", err)
				}
			}

			eval := qualify.BuildEvaluation(candidateID, campaignID, resp, sources)
			if eval.NeedsManualReview {
				logger.Printf("candidate %s flagged for manual review: %s", candidateID, eval.ReviewReason)
			}

			if !dryRun {
				cfg, err := config.LoadConfig(cfgPath)
				if err != nil {
					return err
				}
				ctx := context.Background()
				st, err := store.New(ctx, cfg.Storage.Postgres)
				if err != nil {
					return fmt.Errorf("connecting to postgres: %w", err)
				}
				defer st.Close()
				if err := st.SaveEvaluation(ctx, eval); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(eval)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config directory (default is .)")
	cmd.Flags().StringVar(&candidateID, "candidate", "", "candidate id (required)")
	cmd.Flags().StringVar(&campaignID, "campaign", "", "campaign id (required)")
	cmd.Flags().StringVar(&responsePath, "response", "", "path to the AI scoring response JSON (required)")
	cmd.Flags().StringVar(&sourcesPath, "sources", "", "path to a JSON map of content id to raw source text")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the evaluation without persisting")
	_ = cmd.MarkFlagRequired("candidate")
	_ = cmd.MarkFlagRequired("campaign")
	_ = cmd.MarkFlagRequired("response")

	return cmd
}
