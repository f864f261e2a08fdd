package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/JPM1118/refugewatch/internal/history"
	"github.com/JPM1118/refugewatch/internal/logx"
	"github.com/JPM1118/refugewatch/internal/notify"
	"github.com/JPM1118/refugewatch/internal/poller"
	"github.com/JPM1118/refugewatch/internal/refuges"
	"github.com/spf13/cobra"
)

// stdout receives command output.
var stdout io.Writer = os.Stdout

// checkFlags are shared by every command that polls.
type checkFlags struct {
	planPath  string
	minPlaces int
	silent    bool
	once      bool
}

var dashboardFlags checkFlags

func addPlanFlags(c *cobra.Command, f *checkFlags) {
	c.Flags().StringVarP(&f.planPath, "path", "p", "", "plan file (default ~/.montblanc/default_plan.json)")
	c.Flags().IntVarP(&f.minPlaces, "min-places", "m", -1, "alert when more than this many places are free (default from config)")
}

func addCheckFlags(c *cobra.Command, f *checkFlags) {
	c.Flags().IntVarP(&f.minPlaces, "min-places", "m", -1, "alert when more than this many places are free (default from config)")
	c.Flags().BoolVarP(&f.silent, "silent", "s", false, "do not make noise when places are found")
	c.Flags().BoolVar(&f.once, "once", false, "check once and exit instead of polling")
}

func (f checkFlags) resolvedMinPlaces() int {
	if f.minPlaces < 0 {
		return cfg.Polling.MinPlaces
	}
	return f.minPlaces
}

func (f checkFlags) resolvedPlanPath() string {
	if f.planPath != "" {
		return f.planPath
	}
	return cfg.Plan.Path
}

func newClient(l logx.Logger) *refuges.Client {
	return refuges.NewClient(refuges.ClientConfig{
		Endpoints:         refuges.DefaultEndpoints(),
		Timeout:           cfg.Polling.RequestTimeout.Duration,
		RequestsPerSecond: cfg.Polling.RequestsPerSecond,
		CatalogueTTL:      cfg.Polling.CatalogueTTL.Duration,
		Logger:            l.With(logx.String("component", "refuges")),
	})
}

func loadCatalogue(ctx context.Context, src refuges.Source) (*refuges.Catalogue, error) {
	cat, err := refuges.LoadCatalogue(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load refuge list: %w", err)
	}
	return cat, nil
}

// openHistory returns nil when history is disabled or cannot be opened.
// A broken history never stops a check.
func openHistory(l logx.Logger) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		l.Warn("history unavailable", logx.Err(err))
		return nil
	}
	return store
}

func newPoller(src refuges.Source, minPlaces int, store *history.Store, l logx.Logger) (*poller.Poller, error) {
	cache := poller.NewCache(src, cfg.Polling.RefreshTimeout.Duration,
		poller.WithFetchTimeout(cfg.Polling.RequestTimeout.Duration),
		poller.WithLogger(l.With(logx.String("component", "cache"))))

	opts := []poller.Option{poller.WithPollerLogger(l.With(logx.String("component", "poller")))}
	if store != nil {
		opts = append(opts, poller.WithRecorder(store))
	}
	return poller.New(cache, poller.Config{
		RefreshTimeout: cfg.Polling.RefreshTimeout.Duration,
		Schedule:       cfg.Polling.Schedule,
		RequestTimeout: cfg.Polling.RequestTimeout.Duration,
		MinPlaces:      minPlaces,
	}, opts...)
}

// buildNotifier returns the configured chat notifiers, or nil.
func buildNotifier(l logx.Logger) notify.Notifier {
	var multi notify.Multi
	n := cfg.Notifications
	if n.Telegram.Enabled() {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:    n.Telegram.Token,
			ChatID:   n.Telegram.ChatID,
			ThreadID: n.Telegram.ThreadID,
		})
		if err != nil {
			l.Warn("telegram alerts disabled", logx.Err(err))
		} else {
			multi = append(multi, tg)
		}
	}
	if n.WebhookURL != "" {
		multi = append(multi, notify.NewWebhook(n.WebhookURL))
	}
	if len(multi) == 0 {
		return nil
	}
	return multi
}

func newBell(silent bool) *notify.Bell {
	b := notify.NewBell(cfg.Notifications.BellDebounce.Duration)
	b.SetSilent(silent || cfg.Notifications.Silent || !cfg.Notifications.TerminalBell)
	return b
}

// lookupRefuge resolves an id without the network, and a name through the
// catalogue.
func lookupRefuge(ctx context.Context, src refuges.Source, arg string) (refuges.Refuge, error) {
	if id, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
		return refuges.NewCatalogue(refuges.SpecialRefuges()).ByID(id), nil
	}
	cat, err := loadCatalogue(ctx, src)
	if err != nil {
		return refuges.Refuge{}, err
	}
	return cat.ByName(arg)
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
