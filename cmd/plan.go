package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/JPM1118/refugewatch/internal/plan"
	"github.com/JPM1118/refugewatch/internal/refuges"
	"github.com/JPM1118/refugewatch/internal/report"
	"github.com/spf13/cobra"
)

var (
	planDayOpts    checkFlags
	planShowOpts   checkFlags
	planCheckOpts  checkFlags
	planExportOpts checkFlags
	planExportOut  string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage the nights and refuges you want to check",
}

var planDayCmd = &cobra.Command{
	Use:   "day <date> [refuge...]",
	Short: "Set the refuges to check for one night",
	Long: `Set the refuges to check for one night, by name or id. If the night is
already planned its refuges are replaced. Zero refuges clears the night.

  refugewatch plan day 2024-09-11 32367 "de la Nova"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := refuges.ParseDate(args[0])
		if err != nil {
			return err
		}
		cat, err := loadCatalogue(cmd.Context(), newClient(log))
		if err != nil {
			return err
		}
		list, err := cat.ResolveAll(args[1:])
		if err != nil {
			return err
		}
		p, err := plan.Open(planDayOpts.resolvedPlanPath(), cat)
		if err != nil {
			return err
		}
		if err := p.SetDay(date, list); err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Fprintf(stdout, "Cleared %s\n", date.Long())
			return nil
		}
		report.NewPrinter(stdout, 0).Days([]plan.Day{{Date: date, Refuges: p.Day(date)}})
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Open(planShowOpts.resolvedPlanPath(), nil)
		if err != nil {
			return err
		}
		if p.Len() == 0 {
			fmt.Fprintln(stdout, "No nights planned. Add one with `refugewatch plan day`.")
			return nil
		}
		report.NewPrinter(stdout, 0).Days(p.Days())
		return nil
	},
}

var planCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every night of the plan until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := newClient(log)
		cat, err := loadCatalogue(ctx, client)
		if err != nil {
			return err
		}
		p, err := plan.Open(planCheckOpts.resolvedPlanPath(), cat)
		if err != nil {
			return err
		}
		targets, err := p.Targets()
		if err != nil {
			if errors.Is(err, plan.ErrEmpty) {
				return fmt.Errorf("%w; use `refugewatch plan day` to add one", err)
			}
			return err
		}
		return runCheckLoop(ctx, client, targets, cat.LongestName(), true, planCheckOpts)
	},
}

var planExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the plan as an iCalendar file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Open(planExportOpts.resolvedPlanPath(), nil)
		if err != nil {
			return err
		}
		if planExportOut == "" || planExportOut == "-" {
			return p.ExportICS(stdout)
		}
		f, err := os.Create(planExportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", planExportOut, err)
		}
		if err := p.ExportICS(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

func init() {
	for c, f := range map[*cobra.Command]*checkFlags{
		planDayCmd:    &planDayOpts,
		planShowCmd:   &planShowOpts,
		planExportCmd: &planExportOpts,
	} {
		c.Flags().StringVarP(&f.planPath, "path", "p", "", "plan file (default ~/.montblanc/default_plan.json)")
	}
	planCheckCmd.Flags().StringVarP(&planCheckOpts.planPath, "path", "p", "", "plan file (default ~/.montblanc/default_plan.json)")
	addCheckFlags(planCheckCmd, &planCheckOpts)
	planExportCmd.Flags().StringVarP(&planExportOut, "out", "o", "", "output file (default stdout)")

	planCmd.AddCommand(planDayCmd, planShowCmd, planCheckCmd, planExportCmd)
	rootCmd.AddCommand(planCmd)
}
