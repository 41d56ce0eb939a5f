package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Gateway backend selectors.
const (
	GatewayGoogle = "google"
	GatewayICS    = "ics"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for provenance and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Color is an optional hex color attached to events from this source.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// GoogleConfig holds settings for the Google Calendar gateway backend.
// Credential lifecycle is out of scope: the access token is read from the
// named environment variable at startup.
type GoogleConfig struct {
	// TokenEnv names the environment variable carrying the bearer token.
	TokenEnv string `yaml:"token_env" json:"token_env"`
	// Endpoint overrides the API base URL; empty means the public API.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA timezone used as the canonical display zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Gateway selects the calendar backend: "google" or "ics".
	Gateway string `yaml:"gateway" json:"gateway"`

	// Google configures the Google Calendar backend.
	Google GoogleConfig `yaml:"google" json:"google"`

	// ICS is the list of subscribed ICS sources (used when Gateway == "ics").
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// RefreshCron is a cron-style schedule for timeline refreshes
	// (e.g. "*/15 * * * *"). If empty it is derived from RefreshSeconds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// RefreshSeconds is the legacy interval form of the refresh schedule.
	RefreshSeconds int `yaml:"refresh_seconds" json:"refresh_seconds"`

	// MaxEventsDisplay caps how many events the timeline retains per refresh.
	MaxEventsDisplay int `yaml:"max_events_display" json:"max_events_display"`

	// StatusTickSeconds is the interval for recomputing event statuses.
	StatusTickSeconds int `yaml:"status_tick_seconds" json:"status_tick_seconds"`

	// RuleCheckSeconds is the interval for scanning the timeline for
	// notification thresholds.
	RuleCheckSeconds int `yaml:"rule_check_seconds" json:"rule_check_seconds"`

	// DrainTickSeconds is the interval for promoting queued alerts once
	// the active one is gone.
	DrainTickSeconds int `yaml:"drain_tick_seconds" json:"drain_tick_seconds"`

	// WarningMinutes is the lead time for warning alerts.
	WarningMinutes int `yaml:"warning_minutes" json:"warning_minutes"`

	// DismissTimeoutSeconds auto-dismisses an alert after this long.
	DismissTimeoutSeconds int `yaml:"dismiss_timeout_seconds" json:"dismiss_timeout_seconds"`

	// DedupCeiling is the session dedup cache size above which the cache
	// is cleared wholesale.
	DedupCeiling int `yaml:"dedup_ceiling" json:"dedup_ceiling"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone: "America/New_York",
		Gateway:  GatewayGoogle,
		Google: GoogleConfig{
			TokenEnv: "CALWATCH_GOOGLE_TOKEN",
		},
		ICS:                   []ICSConfig{},
		RefreshCron:           "",
		RefreshSeconds:        900,
		MaxEventsDisplay:      5,
		StatusTickSeconds:     60,
		RuleCheckSeconds:      30,
		DrainTickSeconds:      1,
		WarningMinutes:        10,
		DismissTimeoutSeconds: 30,
		DedupCeiling:          100,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}
	switch c.Gateway {
	case GatewayGoogle, GatewayICS:
		// ok
	default:
		c.Gateway = GatewayGoogle
	}
	if c.Google.TokenEnv == "" {
		c.Google.TokenEnv = "CALWATCH_GOOGLE_TOKEN"
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.RefreshSeconds <= 0 {
		c.RefreshSeconds = 900
	}
	// Derive RefreshCron from the interval form when missing.
	if c.RefreshCron == "" {
		c.RefreshCron = fmt.Sprintf("@every %s", time.Duration(c.RefreshSeconds)*time.Second)
	}
	if c.MaxEventsDisplay <= 0 {
		c.MaxEventsDisplay = 5
	}
	if c.StatusTickSeconds <= 0 {
		c.StatusTickSeconds = 60
	}
	if c.RuleCheckSeconds <= 0 {
		c.RuleCheckSeconds = 30
	}
	if c.DrainTickSeconds <= 0 {
		c.DrainTickSeconds = 1
	}
	if c.WarningMinutes <= 0 {
		c.WarningMinutes = 10
	}
	if c.DismissTimeoutSeconds <= 0 {
		c.DismissTimeoutSeconds = 30
	}
	if c.DedupCeiling <= 0 {
		c.DedupCeiling = 100
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create the parent directory if needed,
//     write a default config with 0600 perms, and return the default.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so the
				// caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with the
// final file at 0600 and the parent directory at 0700.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calwatch-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
