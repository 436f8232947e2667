package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/creatorops/scout/config"
	"github.com/creatorops/scout/internal/cache"
	"github.com/creatorops/scout/internal/qualify"
	"github.com/creatorops/scout/internal/store"
	"github.com/creatorops/scout/internal/telemetry"
	"github.com/creatorops/scout/provider"
	"github.com/creatorops/scout/tools/channelapi"
	"github.com/creatorops/scout/tools/transcript"
	"github.com/creatorops/scout/tools/videofeed"
)

func qualifyCMD() *cobra.Command {
	var cfgPath string
	var campaignID string
	var brief string
	var topics []string

	cmd := &cobra.Command{
		Use:   "qualify",
		Short: "Run the qualification pipeline for a campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if cfg.YouTube.APIKey == "" || cfg.Transcript.APIKey == "" {
				return fmt.Errorf("%w: set YOUTUBE_API_KEY and TRANSCRIPT_API_KEY", qualify.ErrMissingCredentials)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := log.New(os.Stdout, "[SCOUT] ", log.LstdFlags)

			st, err := store.New(ctx, cfg.Storage.Postgres)
			if err != nil {
				return fmt.Errorf("connecting to postgres: %w", err)
			}
			defer st.Close()

			resolutionCache, err := cache.New(ctx, cfg.Storage.Redis, nil)
			if err != nil {
				logger.Printf("warn: redis cache unavailable: %v", err)
			}
			defer resolutionCache.Close()
			var cacheIface qualify.ResolutionCache
			if resolutionCache != nil {
				cacheIface = resolutionCache
			}

			resolver := qualify.NewResolver(
				channelapi.NewClient(cfg.YouTube.APIKey, "", cfg.General.DefaultTimeout),
				cacheIface,
				nil,
			)
			acquirer := qualify.NewAcquirer(
				resolver,
				videofeed.NewClient(cfg.YouTube.FeedBaseURL, cfg.YouTube.FeedTimeout),
				transcript.NewClient(cfg.Transcript.APIKey, cfg.Transcript.BaseURL,
					cfg.Transcript.PollInterval, cfg.Transcript.MaxPollAttempts, cfg.General.DefaultTimeout),
				cfg.Transcript.Language,
				cfg.Transcript.RequestDelay,
				nil,
			)

			metrics := telemetry.New(prometheus.DefaultRegisterer)

			llm := provider.NewProvider(cfg.LLM)
			var narrower *qualify.Narrower
			if llm.Available() {
				narrower, err = qualify.NewNarrower(llm, qualify.NarrowerConfig{
					Stage1BatchSize: cfg.Pipeline.Stage1BatchSize,
					Stage2PoolSize:  cfg.Pipeline.Stage2PoolSize,
					ShortlistSize:   cfg.Pipeline.ShortlistSize,
					ExcerptChars:    cfg.Pipeline.ExcerptChars,
					ScreenModel:     cfg.LLM.ScreenModel,
					RankModel:       cfg.LLM.RankModel,
					Metrics:         metrics,
				}, nil)
				if err != nil {
					return err
				}
			} else {
				logger.Printf("no LLM credentials configured, heuristic selector will be used")
			}

			pipeline, err := qualify.NewPipeline(qualify.PipelineDeps{
				Candidates: st,
				Content:    st,
				Activity:   st,
				Acquirer:   acquirer,
				Narrower:   narrower,
				LLM:        llm,
				Metrics:    metrics,
				Logger:     logger,
			}, cfg.Pipeline.CandidateLimit, cfg.Pipeline.ShortlistSize)
			if err != nil {
				return err
			}

			campaign := qualify.Campaign{
				ID:     campaignID,
				Brief:  brief,
				Topics: topics,
			}
			narrowing, summary, err := pipeline.Run(ctx, campaign)
			if err != nil {
				return err
			}

			out := struct {
				Summary  *qualify.RunSummary       `json:"summary"`
				Selected []qualify.Stage2Selection `json:"selected"`
			}{summary, narrowing.Selected}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config directory (default is .)")
	cmd.Flags().StringVar(&campaignID, "campaign", "", "campaign id (required)")
	cmd.Flags().StringVar(&brief, "brief", "", "campaign brief for AI scoring")
	cmd.Flags().StringSliceVar(&topics, "topics", nil, "campaign topics")
	_ = cmd.MarkFlagRequired("campaign")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(campaignID) == "" {
			return fmt.Errorf("--campaign is required")
		}
		return nil
	}

	return cmd
}
