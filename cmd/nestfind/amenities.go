package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nestfind/nestfind/pkg/models"
)

func newAmenitiesCmd(configPath *string) *cobra.Command {
	var (
		categories string
		radius     int
		limit      int
		withDist   bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "amenities <property-id>",
		Short: "Show amenities near a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			req := a.request(args[0], strings.Split(categories, ","), radius, limit)
			if cmd.Flags().Changed("distance") {
				req.WithDistance = withDist
			}

			resp, err := a.amenities.Handle(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			return printNearby(os.Stdout, resp)
		},
	}

	cmd.Flags().StringVar(&categories, "categories", "school,hospital,park", "comma-separated place types")
	cmd.Flags().IntVar(&radius, "radius", 0, "search radius in meters (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "results per category (default from config)")
	cmd.Flags().BoolVar(&withDist, "distance", false, "include travel distance and duration")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

func printNearby(out io.Writer, resp *models.NearbyResponse) error {
	fmt.Fprintf(out, "%s (%s), within %s m\n\n",
		resp.Property.Title, resp.Property.ID, humanize.Comma(int64(resp.SearchRadius)))

	categories := make([]string, 0, len(resp.Amenities))
	for c := range resp.Amenities {
		categories = append(categories, c)
	}
	slices.Sort(categories)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tNAME\tRATING\tREVIEWS\tDISTANCE\tDURATION\tADDRESS")
	for _, c := range categories {
		recs := resp.Amenities[c]
		if len(recs) == 0 {
			fmt.Fprintf(w, "%s\t(none)\t\t\t\t\t\n", c)
			continue
		}
		for _, r := range recs {
			rating, reviews := "-", "-"
			if r.Rating != nil {
				rating = fmt.Sprintf("%.1f", *r.Rating)
			}
			if r.ReviewCount != nil {
				reviews = humanize.Comma(int64(*r.ReviewCount))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				c, r.Name, rating, reviews, dash(r.Distance), dash(r.Duration), r.Address)
		}
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
