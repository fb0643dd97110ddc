package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newWeekCommand(opts *rootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Print the week each enabled league resolves to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			rt, err := opts.runtime(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			now := time.Now().In(rt.Config.Location)
			if at != "" {
				now, err = time.ParseInLocation("2006-01-02T15:04", at, rt.Config.Location)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LEAGUE\tPHASE\tTAG\tSTART\tEND")
			for _, w := range rt.Sync.CurrentWeeks(now) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					w.League.Code,
					w.Phase,
					w.Tag,
					w.Week.Start.Format(time.DateOnly),
					w.Week.End.Format(time.DateOnly),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "resolve at this local time (2006-01-02T15:04) instead of now")
	return cmd
}
