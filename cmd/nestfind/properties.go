package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nestfind/nestfind/pkg/models"
	"github.com/nestfind/nestfind/pkg/store"
)

func newPropertiesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "properties",
		Short: "Search and manage stored properties",
	}

	var (
		f      models.SearchFilters
		sortBy string
		asJSON bool
	)
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			f.SortBy = models.SortField(sortBy)
			res, err := s.Search(context.Background(), f)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if len(res.Results) == 0 {
				fmt.Println("No properties found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCITY\tTYPE\tBEDS\tPRICE\tLISTED")
			for _, p := range res.Results {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					p.ID, p.Title, p.Location.City, p.PropertyType, p.Bedrooms,
					humanize.Comma(p.Price), humanize.Time(p.ListedDate))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\nPage %d: %d of %d results\n", res.Page, len(res.Results), res.Total)
			return nil
		},
	}
	searchCmd.Flags().StringVar(&f.City, "city", "", "filter by city")
	searchCmd.Flags().Int64Var(&f.MinPrice, "min-price", 0, "minimum price")
	searchCmd.Flags().Int64Var(&f.MaxPrice, "max-price", 0, "maximum price")
	searchCmd.Flags().StringVar(&f.PropertyType, "type", "", "filter by property type")
	searchCmd.Flags().IntVar(&f.MinBedrooms, "min-bedrooms", 0, "minimum bedrooms")
	searchCmd.Flags().StringVar(&sortBy, "sort", string(models.SortByListedDate), "sort by price or listedDate")
	searchCmd.Flags().IntVar(&f.Page, "page", store.DefaultPage, "page number")
	searchCmd.Flags().IntVar(&f.Limit, "limit", store.DefaultLimit, "page size")
	searchCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace all properties with the sample listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			props, err := store.Seed(context.Background(), s, store.SampleProperties(time.Now().UTC()))
			if err != nil {
				return err
			}
			for _, p := range props {
				fmt.Printf("%s  %s\n", p.ID, p.Title)
			}
			fmt.Printf("Seeded %d properties.\n", len(props))
			return nil
		},
	}

	cmd.AddCommand(searchCmd, seedCmd)
	return cmd
}

func openStore(configPath string) (*store.SQLiteStore, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return store.New(cfg.DBPath)
}
