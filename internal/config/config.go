package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for refugewatch.
type Config struct {
	Polling       PollingConfig      `yaml:"polling" toml:"polling"`
	Plan          PlanConfig         `yaml:"plan" toml:"plan"`
	Notifications NotificationConfig `yaml:"notifications" toml:"notifications"`
	History       HistoryConfig      `yaml:"history" toml:"history"`
	Log           LogConfig          `yaml:"log" toml:"log"`
}

// PollingConfig controls how often the booking system is asked.
type PollingConfig struct {
	RefreshTimeout    Duration `yaml:"refresh_timeout" toml:"refresh_timeout"`
	Schedule          string   `yaml:"schedule" toml:"schedule"`
	RequestTimeout    Duration `yaml:"request_timeout" toml:"request_timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second" toml:"requests_per_second"`
	CatalogueTTL      Duration `yaml:"catalogue_ttl" toml:"catalogue_ttl"`
	MinPlaces         int      `yaml:"min_places" toml:"min_places"`
}

// PlanConfig locates the plan file. An empty path means the default plan.
type PlanConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// NotificationConfig controls how the user is told about free places.
type NotificationConfig struct {
	TerminalBell bool           `yaml:"terminal_bell" toml:"terminal_bell"`
	BellDebounce Duration       `yaml:"bell_debounce" toml:"bell_debounce"`
	Silent       bool           `yaml:"silent" toml:"silent"`
	Telegram     TelegramConfig `yaml:"telegram" toml:"telegram"`
	WebhookURL   string         `yaml:"webhook_url" toml:"webhook_url"`
}

// TelegramConfig enables chat alerts when Token and ChatID are set.
type TelegramConfig struct {
	Token    string `yaml:"token" toml:"token"`
	ChatID   int64  `yaml:"chat_id" toml:"chat_id"`
	ThreadID int    `yaml:"thread_id" toml:"thread_id"`
}

// Enabled reports whether enough is configured to send messages.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// HistoryConfig controls the sqlite availability history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

// Duration wraps time.Duration for YAML and TOML unmarshalling from strings
// like "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// UnmarshalText is used by the TOML decoder.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Polling: PollingConfig{
			RefreshTimeout:    Duration{5 * time.Minute},
			RequestTimeout:    Duration{20 * time.Second},
			RequestsPerSecond: 2,
			CatalogueTTL:      Duration{24 * time.Hour},
			MinPlaces:         3,
		},
		Notifications: NotificationConfig{
			TerminalBell: true,
			BellDebounce: Duration{30 * time.Second},
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    StatePath("history.db"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file and merges with defaults.
// Missing file is not an error; defaults are used silently.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads config from a specific path. Files ending in .toml are
// decoded as TOML, anything else as YAML.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err = toml.Decode(string(data), &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Defaults(), fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Defaults(), fmt.Errorf("config validation: %w", err)
	}

	cfg.Plan.Path = expandHome(cfg.Plan.Path)
	cfg.History.Path = expandHome(cfg.History.Path)
	cfg.Log.File = expandHome(cfg.Log.File)
	return cfg, nil
}

func (c Config) validate() error {
	rt := c.Polling.RefreshTimeout.Duration
	if rt < 30*time.Second || rt > time.Hour {
		return fmt.Errorf("refresh_timeout must be between 30s and 1h, got %s", rt)
	}

	req := c.Polling.RequestTimeout.Duration
	if req < 2*time.Second || req > rt {
		return fmt.Errorf("request_timeout must be between 2s and refresh_timeout (%s), got %s", rt, req)
	}

	if c.Polling.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive, got %g", c.Polling.RequestsPerSecond)
	}
	if c.Polling.CatalogueTTL.Duration <= 0 {
		return fmt.Errorf("catalogue_ttl must be positive, got %s", c.Polling.CatalogueTTL)
	}
	if c.Polling.MinPlaces < 0 {
		return fmt.Errorf("min_places must not be negative, got %d", c.Polling.MinPlaces)
	}

	if c.Polling.Schedule != "" {
		if _, err := cron.ParseStandard(c.Polling.Schedule); err != nil {
			return fmt.Errorf("schedule %q: %w", c.Polling.Schedule, err)
		}
	}

	if c.Plan.Path != "" && !strings.HasSuffix(c.Plan.Path, ".json") {
		return fmt.Errorf("plan path must end with .json, got %q", c.Plan.Path)
	}

	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
			return fmt.Errorf("log level %q: %w", c.Log.Level, err)
		}
	}

	return nil
}

// Path returns the default config file location.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "refugewatch", "config.yml")
}

// StatePath returns name inside the refugewatch state directory
// ($XDG_STATE_HOME/refugewatch).
func StatePath(name string) string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "refugewatch", name)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
