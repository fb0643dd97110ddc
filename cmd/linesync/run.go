package main

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var printReport bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one sync cycle for every enabled league",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			rt, err := opts.runtime(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = rt.Close()
				_ = rt.Logger.Sync()
			}()

			report, runErr := rt.Sync.Run(ctx)

			if err := rt.Metrics.WriteTextfile(rt.Config.MetricsTextfile); err != nil {
				rt.Logger.Warn("write metrics textfile", "path", rt.Config.MetricsTextfile, "error", err)
			}

			if printReport {
				raw, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			}

			if runErr != nil {
				return fmt.Errorf("%d of %d leagues failed: %w", report.Failed(), len(report.Leagues), runErr)
			}
			rt.Logger.Info("sync run finished", "leagues", len(report.Leagues))
			return nil
		},
	}

	cmd.Flags().BoolVar(&printReport, "report", true, "print the run report as JSON")
	return cmd
}
