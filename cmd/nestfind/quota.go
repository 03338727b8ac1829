package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nestfind/nestfind/pkg/quota"
)

func newQuotaCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Inspect the daily places provider quota",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show today's usage against the quota",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if !cfg.Quota.Enabled {
				fmt.Println("Quota enforcement is not enabled.")
				return nil
			}

			l, err := openUsage(*configPath)
			if err != nil {
				return err
			}
			defer l.Close()

			st, err := quota.New(cfg.Quota.DailyCalls, l).Status(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Limit:     %s calls/day\nUsed:      %s\nRemaining: %s\n",
				humanize.Comma(st.Limit), humanize.Comma(st.Used), humanize.Comma(st.Remaining))
			return nil
		},
	}

	cmd.AddCommand(statusCmd)
	return cmd
}
