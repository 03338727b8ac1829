package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "nestfind",
		Short:         "nestfind — property search with nearby amenities",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "nestfind.yaml", "path to config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newAmenitiesCmd(&configPath),
		newBrowseCmd(&configPath),
		newPropertiesCmd(&configPath),
		newCacheCmd(&configPath),
		newStatsCmd(&configPath),
		newQuotaCmd(&configPath),
		newMCPCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
