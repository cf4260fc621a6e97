package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"verdure/internal/completion"
	"verdure/internal/router"
	"verdure/internal/rules"
	"verdure/internal/scoring"
)

// openStore wires the SQLite-backed rule store from config.
func openStore() (*rules.Store, *rules.SQLitePersister, error) {
	persister, err := rules.NewSQLitePersister(cfg.Store.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return rules.NewStore(persister), persister, nil
}

func newEngine() *scoring.Engine {
	return scoring.NewEngine(scoring.Config{
		ScoreCapMax:       cfg.Scoring.ScoreCapMax,
		ScoreCapMin:       cfg.Scoring.ScoreCapMin,
		PriorityThreshold: cfg.Scoring.PriorityThreshold,
		CriticalThreshold: cfg.Scoring.CriticalThreshold,
	})
}

func newScoreCmd() *cobra.Command {
	var feedPath string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank notifications against the current rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, persister, err := openStore()
			if err != nil {
				return err
			}
			defer persister.Close()

			var feed router.Feed = demoFeed{}
			if feedPath != "" {
				feed = fileFeed{path: feedPath}
			}

			items, err := feed.ActiveNotifications(context.Background())
			if err != nil {
				return err
			}

			snapshot := store.Load()
			engine := newEngine()
			ranked := scoring.FilterAndSort(engine.ScoreAll(items, snapshot.Rules), cfg.Scoring.PriorityThreshold)

			logger.Debug("scored feed", zap.Int("total", len(items)), zap.Int("ranked", len(ranked)))

			for _, s := range ranked {
				marker := ""
				if s.Score >= cfg.Scoring.CriticalThreshold {
					marker = " [CRITICAL]"
				}
				fmt.Printf("%3d%s  %-14s %s\n", s.Score, marker, s.Notification.AppName, s.Notification.Title)
			}
			if len(ranked) == 0 {
				fmt.Println("No notifications above the priority threshold.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&feedPath, "feed", "", "path to a JSON-lines notification feed (default: demo fixtures)")
	return cmd
}

func newAskCmd() *cobra.Command {
	var feedPath string

	cmd := &cobra.Command{
		Use:   "ask <request>",
		Short: "Send a natural-language request through the intent router",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("no API key configured (set VERDURE_GEMINI_API_KEY or llm.api_key)")
			}

			store, persister, err := openStore()
			if err != nil {
				return err
			}
			defer persister.Close()

			var feed router.Feed = demoFeed{}
			if feedPath != "" {
				feed = fileFeed{path: feedPath}
			}

			client := completion.NewTimeoutClient(
				completion.NewGeminiClientWithConfig(completion.GeminiConfig{
					APIKey:  cfg.LLM.APIKey,
					BaseURL: cfg.LLM.BaseURL,
					Model:   cfg.LLM.Model,
					Timeout: cfg.LLMTimeout(),
				}),
				cfg.CompletionTimeout(),
			)

			r := router.New(store, newEngine(), client, feed, router.Config{
				QueryItemLimit:    cfg.Router.QueryItemLimit,
				PriorityThreshold: cfg.Scoring.PriorityThreshold,
			})

			fmt.Println(r.Handle(context.Background(), strings.Join(args, " ")))
			return nil
		},
	}

	cmd.Flags().StringVar(&feedPath, "feed", "", "path to a JSON-lines notification feed (default: demo fixtures)")
	return cmd
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect or reset the priority rules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current rules as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, persister, err := openStore()
			if err != nil {
				return err
			}
			defer persister.Close()

			snapshot := store.Load()
			out, err := json.MarshalIndent(snapshot, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset rules to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			persister, err := rules.NewSQLitePersister(cfg.Store.DatabasePath)
			if err != nil {
				return err
			}
			defer persister.Close()

			if err := persister.SaveBlob([]byte(`{"profile":"","rules":{}}`)); err != nil {
				return err
			}
			fmt.Println("Rules reset to defaults.")
			return nil
		},
	})

	return cmd
}
