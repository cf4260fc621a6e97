// Command verdure is the CLI surface over the notification ranking core:
// score a feed of notifications, ask the assistant a question, or inspect
// the priority rules.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"verdure/internal/config"
	"verdure/internal/logging"
)

var (
	cfgPath string
	debug   bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "verdure",
		Short: "Notification ranking and assistant core",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			if debug {
				cfg.Logging.DebugMode = true
			}

			zapCfg := zap.NewProductionConfig()
			if cfg.Logging.DebugMode {
				zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err = zapCfg.Build()
			if err != nil {
				return err
			}

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := logging.Initialize(cwd); err != nil {
				logger.Warn("file logging unavailable", zap.Error(err))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.CloseAll()
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", ".verdure/config.yaml", "path to config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newScoreCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newRulesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
