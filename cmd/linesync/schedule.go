package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/lines-ledger/internal/observability"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newScheduleCommand(opts *rootOptions) *cobra.Command {
	var expr string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run sync cycles on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := opts.runtime(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = rt.Close()
				_ = rt.Logger.Sync()
			}()

			if expr == "" {
				expr = rt.Config.ScheduleCron
			}

			logger := rt.Logger.Component("scheduler")
			c := cron.New(
				cron.WithLocation(rt.Config.Location),
				cron.WithLogger(cronLogger{logger: logger}),
				cron.WithChain(
					cron.Recover(cronLogger{logger: logger}),
					cron.SkipIfStillRunning(cronLogger{logger: logger}),
				),
			)
			if _, err := c.AddFunc(expr, func() {
				report, err := rt.Sync.Run(ctx)
				if err != nil {
					logger.Error("scheduled sync failed", "failed", report.Failed(), "error", err)
				}
				if err := rt.Metrics.WriteTextfile(rt.Config.MetricsTextfile); err != nil {
					logger.Warn("write metrics textfile", "path", rt.Config.MetricsTextfile, "error", err)
				}
			}); err != nil {
				return fmt.Errorf("parse schedule %q: %w", expr, err)
			}

			srv := observability.StartServer(observability.ServerConfig{
				Addr:         rt.Config.MetricsAddr,
				PprofEnabled: rt.Config.PprofEnabled,
			}, rt.Metrics, logger)

			c.Start()
			logger.Info("scheduler started", "schedule", expr, "timezone", rt.Config.Timezone)

			<-ctx.Done()

			logger.Info("scheduler stopping")
			select {
			case <-c.Stop().Done():
			case <-time.After(shutdownTimeout):
				logger.Warn("scheduled run still in flight at shutdown")
			}
			return observability.StopServer(srv, logger, shutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&expr, "cron", "", "cron expression, defaults to SCHEDULE_CRON")
	return cmd
}
