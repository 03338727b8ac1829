package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nestfind/nestfind/pkg/models"
	"github.com/nestfind/nestfind/pkg/selection"
)

func newBrowseCmd(configPath *string) *cobra.Command {
	var (
		categories string
		radius     int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactively select properties by id and show their amenities",
		Long: "Reads property ids from stdin, one per line. Each new id replaces the\n" +
			"previous selection; results for superseded selections are never shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cats := strings.Split(categories, ",")
			sel := selection.New(func(ctx context.Context, id string) (*models.NearbyResponse, error) {
				return a.amenities.Handle(ctx, a.request(id, cats, radius, limit))
			},
				selection.WithDebounce(a.cfg.Selection.Debounce),
				selection.WithLogger(a.log.Named("selection")),
			)
			defer sel.Close()

			done := make(chan struct{})
			go func() {
				defer close(done)
				printSelections(ctx, sel, os.Stdout)
			}()

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				id := strings.TrimSpace(scanner.Text())
				if id == "" {
					continue
				}
				sel.Select(ctx, id)
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			// Input ended: show the last selection, then stop.
			if _, err := sel.Wait(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			stop()
			<-done
			return nil
		},
	}

	cmd.Flags().StringVar(&categories, "categories", "school,hospital,park", "comma-separated place types")
	cmd.Flags().IntVar(&radius, "radius", 0, "search radius in meters (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "results per category (default from config)")
	return cmd
}

// printSelections prints each committed selection once until ctx ends.
func printSelections(ctx context.Context, sel *selection.Selection, out io.Writer) {
	var printed uint64
	show := func() {
		st := sel.State()
		if st.Loading || st.Generation <= printed {
			return
		}
		printed = st.Generation
		if st.Err != nil {
			fmt.Fprintf(out, "%s: %v\n", st.EntityID, st.Err)
			return
		}
		_ = printNearby(out, st.Response)
		fmt.Fprintln(out)
	}

	for {
		changed := sel.Changed()
		show()
		select {
		case <-changed:
		case <-ctx.Done():
			show()
			return
		}
	}
}
