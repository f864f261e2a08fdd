package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/JPM1118/refugewatch/internal/history"
	"github.com/JPM1118/refugewatch/internal/refuges"
	"github.com/JPM1118/refugewatch/internal/report"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <refuge> <date>",
	Short: "Show recorded availability of a refuge for one night",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := refuges.ParseDate(args[1])
		if err != nil {
			return err
		}
		return runHistory(cmd.Context(), newClient(log), args[0], date, historyLimit)
	},
}

func runHistory(ctx context.Context, src refuges.Source, arg string, date refuges.Date, limit int) error {
	r, err := lookupRefuge(ctx, src, arg)
	if err != nil {
		return err
	}

	if !cfg.History.Enabled {
		return errors.New("history is disabled; set history.enabled in the config file")
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	obs, err := store.Recent(ctx, r.ID, date, limit)
	if err != nil {
		return err
	}

	// Ids are resolved offline, so the recorded name is the better label.
	name := r.Name
	if len(obs) > 0 && obs[0].Refuge.Name != "" {
		name = obs[0].Refuge.Name
	}
	fmt.Fprintf(stdout, "%s, %s:\n", name, date.Long())
	report.History(stdout, obs)
	return nil
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of observations to show")
	rootCmd.AddCommand(historyCmd)
}
