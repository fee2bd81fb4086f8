package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingOptionalFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"), false)
	require.NoError(t, err)
	assert.Equal(t, PolicyFail, cfg.MissingTimeline)
	assert.Equal(t, PolicyDrop, cfg.InvalidJourneys)
	assert.Equal(t, "gpt-4o-mini", cfg.Chat.Model)
	assert.Equal(t, 60*time.Second, cfg.Chat.Timeout.Duration)
}

func TestLoadMissingRequiredFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"), true)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/data/history"
home = "A2215"
work = "St Helier Hospital"
timezone = "Europe/London"
invalid_visits = "drop"

[[countries]]
pattern = "^Schweiz$"
name = "Switzerland"

[chat]
model = "gpt-4o"
timeout = "2m"
max_rows = 10

[server]
addr = "127.0.0.1:9000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/history", cfg.DataDir)
	assert.Equal(t, "A2215", cfg.Home)
	assert.Equal(t, "St Helier Hospital", cfg.Work)
	assert.Equal(t, PolicyDrop, cfg.InvalidVisits)
	assert.Equal(t, PolicyFail, cfg.MissingTimeline)
	require.Len(t, cfg.Countries, 1)
	assert.Equal(t, "Switzerland", cfg.Countries[0].Name)
	assert.Equal(t, "gpt-4o", cfg.Chat.Model)
	assert.Equal(t, 2*time.Minute, cfg.Chat.Timeout.Duration)
	assert.Equal(t, 10, cfg.Chat.MaxRows)
	assert.Equal(t, 4, cfg.Chat.MaxSteps)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TIMELINE_HOME", "Flat 3")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TIMELINE_DATA_DIR", "/tmp/history")

	cfg, err := Load("", false)
	require.NoError(t, err)
	assert.Equal(t, "Flat 3", cfg.Home)
	assert.Equal(t, "sk-test", cfg.Chat.APIKey)
	assert.Equal(t, "/tmp/history", cfg.DataDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"skip missing timeline", func(c *Config) { c.MissingTimeline = PolicySkip }, false},
		{"drop is not a missing timeline policy", func(c *Config) { c.MissingTimeline = PolicyDrop }, true},
		{"unknown visit policy", func(c *Config) { c.InvalidVisits = "ignore" }, true},
		{"place timezone", func(c *Config) { c.Timezone = TimezonePlace }, false},
		{"iana timezone", func(c *Config) { c.Timezone = "Asia/Tokyo" }, false},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"bad country pattern", func(c *Config) {
			c.Countries = []CountryRule{{Pattern: "(", Name: "X"}}
		}, true},
		{"country without name", func(c *Config) {
			c.Countries = []CountryRule{{Pattern: "^X$"}}
		}, true},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y"), ExpandPath("~/x/y"))
	assert.True(t, filepath.IsAbs(ExpandPath("relative")))
}
