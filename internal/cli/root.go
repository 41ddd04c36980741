// Package cli implements the specimen-gauge command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"specimen-gauge/internal/config"
	"specimen-gauge/internal/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// cfg and logger are set up by the root command before any subcommand runs.
	cfg    *config.Config
	logger *zap.SugaredLogger

	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "specimen-gauge",
	Short:         "Measure microscope specimens and check their excision margin",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger.Debugw("cli: config loaded", "path", cfg.Path(), "rig", cfg.Rig, "strategy", cfg.Strategy, "policy", cfg.Policy)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Development logging at debug level")
}
