// Package config loads the bot configuration: a TOML file for the
// ledger and discord settings, plus environment variables for the
// secrets and the file location.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Environment surface. The token never lives in the config file
type Env struct {
	Token      string `env:"STRIKEBOT_TOKEN,required"`
	ConfigFile string `env:"STRIKEBOT_CONFIG" envDefault:"config.toml"`
}

type Config struct {
	Ledger       LedgerConfig       `toml:"ledger"`
	Categories   []CategoryConfig   `toml:"category"`
	Discord      DiscordConfig      `toml:"discord"`
	Storage      StorageConfig      `toml:"storage"`
	Housekeeping HousekeepingConfig `toml:"housekeeping"`
	Throttle     ThrottleConfig     `toml:"throttle"`
}

type LedgerConfig struct {
	// Rolling expiry window for a strike, in days
	ExpiryDays int `toml:"expiry_days"`
	// Active count at which the officer review ping fires
	ReviewThreshold int `toml:"review_threshold"`
}

// One valid strike category: the tag stored in the ledger and the
// label shown to members
type CategoryConfig struct {
	Tag   string `toml:"tag"`
	Label string `toml:"label"`
}

type DiscordConfig struct {
	ApplicationId   string `toml:"application_id"`
	GuildId         string `toml:"guild_id"`
	OfficerRoleId   string `toml:"officer_role_id"`
	ReviewChannelId string `toml:"review_channel_id"`
	LogChannelId    string `toml:"log_channel_id"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type HousekeepingConfig struct {
	Interval Duration `toml:"interval"`
}

type ThrottleConfig struct {
	Commands int      `toml:"commands"`
	Per      Duration `toml:"per"`
}

// Duration wraps time.Duration so TOML values can be written as
// strings like "30s" or "1h"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ParseEnv reads the environment surface. A missing token is fatal to
// startup, reported here and handled by main
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parsing environment: %w", err)
	}
	return e, nil
}

// Load reads and validates the TOML configuration file
func Load(filename string) (Config, error) {

	raw, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", filename, err)
	}
	return cfg, nil
}

// Default returns the reference configuration: 30 day expiry, review
// at 5 strikes, the three recurring activity categories
func Default() Config {
	return Config{
		Ledger: LedgerConfig{
			ExpiryDays:      30,
			ReviewThreshold: 5,
		},
		Categories: []CategoryConfig{
			{Tag: "tb", Label: "Territory Battle"},
			{Tag: "tw", Label: "Territory War"},
			{Tag: "raid", Label: "Raid"},
		},
		Storage: StorageConfig{
			Path: "strikes.json",
		},
		Housekeeping: HousekeepingConfig{
			Interval: Duration{time.Hour},
		},
		Throttle: ThrottleConfig{
			Commands: 5,
			Per:      Duration{10 * time.Second},
		},
	}
}

func (cfg *Config) Validate() error {
	if cfg.Ledger.ExpiryDays <= 0 {
		return fmt.Errorf("expiry_days must be positive, got %d", cfg.Ledger.ExpiryDays)
	}
	if cfg.Ledger.ReviewThreshold <= 0 {
		return fmt.Errorf("review_threshold must be positive, got %d", cfg.Ledger.ReviewThreshold)
	}
	if len(cfg.Categories) == 0 {
		return fmt.Errorf("at least one strike category is required")
	}
	seen := map[string]struct{}{}
	for _, category := range cfg.Categories {
		if category.Tag == "" {
			return fmt.Errorf("a category is missing its tag")
		}
		if _, ok := seen[category.Tag]; ok {
			return fmt.Errorf("duplicate category tag %q", category.Tag)
		}
		seen[category.Tag] = struct{}{}
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	// An empty guild id would make the bot register its commands
	// globally and accept interactions from anywhere
	if cfg.Discord.GuildId == "" {
		return fmt.Errorf("discord guild_id is required")
	}
	if cfg.Discord.OfficerRoleId == "" {
		return fmt.Errorf("discord officer_role_id is required")
	}
	if cfg.Discord.ReviewChannelId == "" {
		return fmt.Errorf("discord review_channel_id is required")
	}
	if cfg.Discord.LogChannelId == "" {
		return fmt.Errorf("discord log_channel_id is required")
	}
	return nil
}

// ExpiryWindow is the configured expiry in days as a duration
func (cfg *Config) ExpiryWindow() time.Duration {
	return time.Duration(cfg.Ledger.ExpiryDays) * 24 * time.Hour
}
