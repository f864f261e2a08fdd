package cmd

import (
	"fmt"

	"github.com/JPM1118/refugewatch/internal/report"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List every bookable refuge with its id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalogue(cmd.Context(), newClient(log))
		if err != nil {
			return err
		}
		report.RefugeList(stdout, cat.All())
		return nil
	},
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the regions and how many refuges each holds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		regions, err := newClient(log).Regions(cmd.Context())
		if err != nil {
			return fmt.Errorf("load regions: %w", err)
		}
		report.Regions(stdout, regions)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd, regionsCmd)
}
