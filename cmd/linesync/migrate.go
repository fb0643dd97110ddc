package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/riskibarqy/lines-ledger/internal/app"
	"github.com/riskibarqy/lines-ledger/internal/platform/logging"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the postgres ledger schema",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the embedded set (MIGRATIONS_DIR)")

	// withMigrator opens a migrator for one subcommand and closes it after.
	withMigrator := func(fn func(cmd *cobra.Command, m *migrate.Migrate, logger *logging.Logger, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.New(logging.Options{
				Level:  cfg.LogLevel,
				Fields: []any{"service", cfg.ServiceName, "component", "migrate"},
			})
			defer func() { _ = logger.Sync() }()

			source, err := resolveMigrationsDir(dir)
			if err != nil {
				return err
			}
			m, sourceName, err := app.NewMigrator(cfg, source)
			if err != nil {
				return err
			}
			defer func() {
				srcErr, dbErr := m.Close()
				if srcErr != nil {
					logger.Warn("close migration source", "error", srcErr)
				}
				if dbErr != nil {
					logger.Warn("close migration db", "error", dbErr)
				}
			}()

			return fn(cmd, m, logger.With("source", sourceName), args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(_ *cobra.Command, m *migrate.Migrate, logger *logging.Logger, _ []string) error {
			if err := ignoreNoChange(m.Up(), logger); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: withMigrator(func(_ *cobra.Command, m *migrate.Migrate, logger *logging.Logger, args []string) error {
			steps, err := parseSteps(args)
			if err != nil {
				return err
			}
			if err := ignoreNoChange(m.Steps(-steps), logger); err != nil {
				return err
			}
			logger.Info("migrations rolled back", "steps", steps)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m *migrate.Migrate, _ *logging.Logger, _ []string) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "version: none")
				fmt.Fprintln(cmd.OutOrStdout(), "dirty: false")
				return nil
			}
			if err != nil {
				return fmt.Errorf("read version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty: %t\n", version, dirty)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied without running it",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(_ *cobra.Command, m *migrate.Migrate, logger *logging.Logger, args []string) error {
			version, err := parseVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return fmt.Errorf("force version %d: %w", version, err)
			}
			logger.Info("forced schema version", "version", version)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "goto <version>",
		Aliases: []string{"to"},
		Short:   "Migrate up or down to a target version",
		Args:    cobra.ExactArgs(1),
		RunE: withMigrator(func(_ *cobra.Command, m *migrate.Migrate, logger *logging.Logger, args []string) error {
			target, err := strconv.ParseUint(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid target version %q: %w", args[0], err)
			}
			if err := ignoreNoChange(m.Migrate(uint(target)), logger); err != nil {
				return err
			}
			logger.Info("migrated", "version", target)
			return nil
		}),
	})

	return cmd
}

func ignoreNoChange(err error, logger *logging.Logger) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migration changes")
		return nil
	}
	return err
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", args[0], err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("down steps must be > 0")
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("version must be >= 0")
	}
	if value > int64(^uint(0)>>1) {
		return 0, fmt.Errorf("version is too large for this platform")
	}
	return int(value), nil
}

// resolveMigrationsDir prefers the flag, then MIGRATIONS_DIR and MIGRATIONS_PATH.
// An empty result selects the embedded migrations.
func resolveMigrationsDir(flag string) (string, error) {
	candidates := []struct{ name, value string }{
		{"--dir", flag},
		{"MIGRATIONS_DIR", os.Getenv("MIGRATIONS_DIR")},
		{"MIGRATIONS_PATH", os.Getenv("MIGRATIONS_PATH")},
	}
	for _, c := range candidates {
		value := strings.TrimSpace(c.value)
		if value == "" {
			continue
		}
		abs, err := filepath.Abs(value)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", c.name, err)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return "", fmt.Errorf("%s=%s is not a directory", c.name, value)
		}
		return filepath.ToSlash(abs), nil
	}
	return "", nil
}
