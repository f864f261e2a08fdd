package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/JPM1118/refugewatch/internal/logx"
	"github.com/JPM1118/refugewatch/internal/notify"
	"github.com/JPM1118/refugewatch/internal/poller"
	"github.com/JPM1118/refugewatch/internal/refuges"
	"github.com/JPM1118/refugewatch/internal/report"
	"github.com/spf13/cobra"
)

var checkOpts checkFlags

var checkCmd = &cobra.Command{
	Use:   "check <date> <refuge>...",
	Short: "Check one night in one or more refuges",
	Long: `Check one night in one or more refuges, by name or id, and keep checking
until interrupted. Makes noise when more than --min-places places are free.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := refuges.ParseDate(args[0])
		if err != nil {
			return err
		}
		client := newClient(log)
		cat, err := loadCatalogue(cmd.Context(), client)
		if err != nil {
			return err
		}
		list, err := cat.ResolveAll(args[1:])
		if err != nil {
			return err
		}
		return runCheckLoop(cmd.Context(), client, targetsFor(date, list), cat.LongestName(), false, checkOpts)
	},
}

var regionOpts checkFlags

var regionCmd = &cobra.Command{
	Use:   "region <name> <date>",
	Short: "Check every refuge of a region for one night",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := refuges.ParseDate(args[1])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		client := newClient(log)
		cat, err := loadCatalogue(ctx, client)
		if err != nil {
			return err
		}
		regions, err := client.Regions(ctx)
		if err != nil {
			return fmt.Errorf("load regions: %w", err)
		}
		list := cat.InRegions(regions, args[0])
		if len(list) == 0 {
			return fmt.Errorf("no region matches %q", args[0])
		}
		return runCheckLoop(ctx, client, targetsFor(date, list), cat.LongestName(), false, regionOpts)
	},
}

func init() {
	addCheckFlags(checkCmd, &checkOpts)
	addCheckFlags(regionCmd, &regionOpts)
	rootCmd.AddCommand(checkCmd, regionCmd)
}

func targetsFor(date refuges.Date, list []refuges.Refuge) []poller.Target {
	targets := make([]poller.Target, 0, len(list))
	for _, r := range list {
		targets = append(targets, poller.Target{Refuge: r, Date: date})
	}
	return targets
}

// runCheckLoop prints a cycle, alerts on what it found, then waits for the
// next scheduled run. It returns nil when interrupted.
func runCheckLoop(ctx context.Context, src refuges.Source, targets []poller.Target, nameWidth int, byDay bool, f checkFlags) error {
	store := openHistory(log)
	defer store.Close()

	p, err := newPoller(src, f.resolvedMinPlaces(), store, log)
	if err != nil {
		return err
	}
	p.SetTargets(targets)

	printer := report.NewPrinter(stdout, nameWidth)
	bell := newBell(f.silent)
	notifier := buildNotifier(log)

	for {
		u := p.Once(ctx)
		if ctx.Err() != nil {
			return nil
		}
		printer.Clear()
		printer.Cycle(u, byDay)

		if notifier != nil {
			for _, s := range notify.NewlyAlerting(u) {
				if err := notifier.Notify(ctx, notify.AlertFrom(s)); err != nil {
					log.Warn("alert delivery failed", logx.String("refuge", s.Target.Refuge.Name), logx.Err(err))
				}
			}
		}
		if len(u.Found) > 0 && !bell.Silent() {
			bell.Noise(ctx)
		}

		if f.once {
			return nil
		}
		if err := printer.Wait(ctx, p.NextRun(time.Now())); err != nil {
			if isCancelled(err) {
				return nil
			}
			return err
		}
	}
}
