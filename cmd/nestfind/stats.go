package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nestfind/nestfind/pkg/config"
	"github.com/nestfind/nestfind/pkg/usage"
)

func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openUsage(configPath string) (*usage.SQLiteLog, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if !cfg.Usage.Enabled && !cfg.Quota.Enabled {
		return nil, errors.New("usage logging is disabled (usage.enabled: false)")
	}
	return usage.New(cfg.DBPath)
}

func newStatsCmd(configPath *string) *cobra.Command {
	var (
		since  time.Duration
		recent int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show places provider usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openUsage(*configPath)
			if err != nil {
				return err
			}
			defer l.Close()

			ctx := context.Background()

			if recent > 0 {
				calls, err := l.Recent(ctx, recent)
				if err != nil {
					return err
				}
				if len(calls) == 0 {
					fmt.Println("No provider calls recorded.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "WHEN\tENDPOINT\tCATEGORY\tSTATUS\tLATENCY")
				for _, c := range calls {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dms\n",
						humanize.Time(c.CreatedAt), c.Endpoint, dash(c.Category), c.Status, c.LatencyMs)
				}
				return w.Flush()
			}

			rows, err := l.Summary(ctx, time.Now().Add(-since))
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ENDPOINT\tCALLS\tERRORS\tAVG LATENCY")
			var total int
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0fms\n",
					r.Endpoint, humanize.Comma(int64(r.Calls)), humanize.Comma(int64(r.Errors)), r.AvgLatency)
				total += r.Calls
			}
			fmt.Fprintf(w, "TOTAL\t%s\t\t\n", humanize.Comma(int64(total)))
			return w.Flush()
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "look back this far")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent calls instead of a summary")
	return cmd
}
