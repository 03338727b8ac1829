package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nestfind/nestfind/pkg/models"
)

func newCacheCmd(_ *string) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the amenity cache of a running server",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := fetchCacheStats(cmd.Context(), server)
			if err != nil {
				return err
			}
			total := stats.Hits + stats.Misses
			hitRate := float64(0)
			if total > 0 {
				hitRate = float64(stats.Hits) / float64(total) * 100
			}
			fmt.Printf("Entries:     %d\nHits:        %d\nMisses:      %d\nEvictions:   %d\nExpirations: %d\nHit rate:    %.1f%%\n",
				stats.Entries, stats.Hits, stats.Misses, stats.Evictions, stats.Expirations, hitRate)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&server, "server", "http://localhost:3000", "base URL of a running nestfind server")
	cmd.AddCommand(statsCmd)
	return cmd
}

func fetchCacheStats(ctx context.Context, server string) (models.CacheStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var stats models.CacheStats
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(server, "/")+"/api/cache/stats", nil)
	if err != nil {
		return stats, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return stats, fmt.Errorf("query server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("query server: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("decode cache stats: %w", err)
	}
	return stats, nil
}
