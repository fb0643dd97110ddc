package main

import (
	"context"
	"fmt"

	"github.com/riskibarqy/lines-ledger/internal/app"
	"github.com/riskibarqy/lines-ledger/internal/config"
	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
	"github.com/spf13/cobra"
)

// rootOptions are overrides applied on top of the environment config.
type rootOptions struct {
	Backend     string
	SkipPurge   bool
	IgnoreLocks bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "linesync",
		Short:         "Sync ESPN point spreads and totals into the weekly lines ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "ledger backend override (memory|postgres|sheets)")
	cmd.PersistentFlags().BoolVar(&opts.SkipPurge, "skip-purge", false, "keep rows from past weeks")
	cmd.PersistentFlags().BoolVar(&opts.IgnoreLocks, "ignore-locks", false, "rewrite rows even after kickoff")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newScheduleCommand(opts))
	cmd.AddCommand(newWeekCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))

	return cmd
}

// loadConfig reads the environment and applies the command line overrides.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("backend") {
		cfg.LedgerBackend = o.Backend
	}
	if cmd.Flags().Changed("skip-purge") {
		cfg.SkipPurge = o.SkipPurge
	}
	if cmd.Flags().Changed("ignore-locks") {
		cfg.IgnoreLocks = o.IgnoreLocks
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *rootOptions) runtime(ctx context.Context, cmd *cobra.Command) (*app.Runtime, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "load config: %v\n", err)
		return nil, err
	}

	logger := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Fields: []any{"service", cfg.ServiceName, "version", cfg.ServiceVersion, "env", cfg.AppEnv},
	})
	logging.SetDefault(logger)

	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build runtime", "error", err)
		return nil, err
	}
	return rt, nil
}
