package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))
	return filename
}

func TestLoadFullConfig(t *testing.T) {

	filename := writeConfig(t, `
[ledger]
expiry_days = 14
review_threshold = 3

[[category]]
tag = "tb"
label = "Territory Battle"

[[category]]
tag = "raid"
label = "Raid"

[discord]
guild_id = "1"
officer_role_id = "2"
review_channel_id = "3"
log_channel_id = "4"

[storage]
path = "/var/lib/strikebot/strikes.json"

[housekeeping]
interval = "30m"

[throttle]
commands = 3
per = "5s"
`)

	cfg, err := Load(filename)
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Ledger.ExpiryDays)
	assert.Equal(t, 3, cfg.Ledger.ReviewThreshold)
	assert.Equal(t, 14*24*time.Hour, cfg.ExpiryWindow())
	require.Len(t, cfg.Categories, 2)
	assert.Equal(t, CategoryConfig{Tag: "raid", Label: "Raid"}, cfg.Categories[1])
	assert.Equal(t, "2", cfg.Discord.OfficerRoleId)
	assert.Equal(t, "/var/lib/strikebot/strikes.json", cfg.Storage.Path)
	assert.Equal(t, 30*time.Minute, cfg.Housekeeping.Interval.Duration)
	assert.Equal(t, 3, cfg.Throttle.Commands)
	assert.Equal(t, 5*time.Second, cfg.Throttle.Per.Duration)
}

// Values omitted from the file keep the reference defaults
func TestLoadPartialConfigKeepsDefaults(t *testing.T) {

	filename := writeConfig(t, `
[discord]
guild_id = "1"
officer_role_id = "2"
review_channel_id = "3"
log_channel_id = "4"
`)

	cfg, err := Load(filename)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Ledger.ExpiryDays)
	assert.Equal(t, 5, cfg.Ledger.ReviewThreshold)
	assert.Len(t, cfg.Categories, 3)
	assert.Equal(t, "strikes.json", cfg.Storage.Path)
	assert.Equal(t, time.Hour, cfg.Housekeeping.Interval.Duration)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

// A configuration that passes validation: the defaults plus the
// discord ids, which have no sensible default
func validConfig() Config {
	cfg := Default()
	cfg.Discord = DiscordConfig{
		GuildId:         "1",
		OfficerRoleId:   "2",
		ReviewChannelId: "3",
		LogChannelId:    "4",
	}
	return cfg
}

func TestValidate(t *testing.T) {

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero expiry", func(cfg *Config) { cfg.Ledger.ExpiryDays = 0 }},
		{"negative threshold", func(cfg *Config) { cfg.Ledger.ReviewThreshold = -1 }},
		{"no categories", func(cfg *Config) { cfg.Categories = nil }},
		{"empty tag", func(cfg *Config) { cfg.Categories[0].Tag = "" }},
		{"duplicate tag", func(cfg *Config) { cfg.Categories[1].Tag = cfg.Categories[0].Tag }},
		{"no storage path", func(cfg *Config) { cfg.Storage.Path = "" }},
		{"no guild id", func(cfg *Config) { cfg.Discord.GuildId = "" }},
		{"no officer role id", func(cfg *Config) { cfg.Discord.OfficerRoleId = "" }},
		{"no review channel id", func(cfg *Config) { cfg.Discord.ReviewChannelId = "" }},
		{"no log channel id", func(cfg *Config) { cfg.Discord.LogChannelId = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDurationText(t *testing.T) {

	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
