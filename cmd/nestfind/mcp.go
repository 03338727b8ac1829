package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nestfind/nestfind/pkg/mcp"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start nestfind as an MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := []mcp.Option{
				mcp.WithCache(a.cache),
				mcp.WithDefaults(mcp.Defaults{
					Radius:       a.cfg.Amenities.DefaultRadius,
					Limit:        a.cfg.Amenities.DefaultLimit,
					WithDistance: a.cfg.Amenities.WithDistance,
				}),
				mcp.WithLogger(a.log.Named("mcp")),
			}
			if a.quota != nil {
				opts = append(opts, mcp.WithQuota(a.quota))
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return mcp.New(a.amenities, a.store, version, opts...).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
