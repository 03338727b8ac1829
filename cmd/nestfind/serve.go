package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nestfind/nestfind/pkg/api"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the property search API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if listen != "" {
				a.cfg.Listen = listen
			}

			stopRetention, err := a.startRetention()
			if err != nil {
				return err
			}
			defer stopRetention()

			srv := api.New(a.cfg, a.amenities, a.store,
				api.WithMetrics(a.metrics),
				api.WithCacheStats(a.cache),
				api.WithLogger(a.log.Named("api")),
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.log.Info("starting nestfind", zap.String("config", *configPath), zap.String("version", version))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override the listen address")
	return cmd
}
