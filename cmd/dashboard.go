package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/JPM1118/refugewatch/internal/config"
	"github.com/JPM1118/refugewatch/internal/logx"
	"github.com/JPM1118/refugewatch/internal/notify"
	"github.com/JPM1118/refugewatch/internal/plan"
	"github.com/JPM1118/refugewatch/internal/poller"
	"github.com/JPM1118/refugewatch/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch the interactive dashboard for the plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd.Context(), dashboardFlags)
	},
}

func init() {
	addPlanFlags(dashboardCmd, &dashboardFlags)
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(ctx context.Context, f checkFlags) error {
	// Console logs would tear the alt screen, so the dashboard logs to a file.
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = config.StatePath("refugewatch.log")
	}
	flog, closer, err := logx.NewFile(cfg.Log.Level, logPath)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closer.Close()

	client := newClient(flog)
	cat, err := loadCatalogue(ctx, client)
	if err != nil {
		return err
	}

	path := f.resolvedPlanPath()
	loadTargets := func() ([]poller.Target, error) {
		p, err := plan.Open(path, cat)
		if err != nil {
			return nil, err
		}
		targets, err := p.Targets()
		if errors.Is(err, plan.ErrEmpty) {
			return nil, nil
		}
		return targets, err
	}
	targets, err := loadTargets()
	if err != nil {
		return err
	}

	store := openHistory(flog)
	defer store.Close()

	p, err := newPoller(client, f.resolvedMinPlaces(), store, flog)
	if err != nil {
		return err
	}
	p.SetTargets(targets)

	opts := []tui.Option{
		tui.WithBell(newBell(false)),
		tui.WithNotifyBar(notify.NewBar(20)),
		tui.WithPlanReload(loadTargets),
	}
	if n := buildNotifier(flog); n != nil {
		opts = append(opts, tui.WithNotifier(n))
	}
	model := tui.NewDashboard(p, opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.Start(ctx)

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	watchPath := path
	if watchPath == "" {
		watchPath = plan.DefaultPath()
	}
	go func() {
		err := plan.Watch(ctx, watchPath, func() { program.Send(tui.PlanChangedMsg{}) })
		if err != nil && !isCancelled(err) {
			flog.Warn("plan watch stopped", logx.Err(err))
		}
	}()

	_, err = program.Run()
	cancel()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
