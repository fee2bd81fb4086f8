// Package config loads the TOML configuration file and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigFile = "~/.go-timeline-chat/config.toml"
	DefaultDataDir    = "~/Takeout/Location History/Semantic Location History"
	DefaultLogFile    = "~/.go-timeline-chat/logs/app.log"

	PolicyFail = "fail"
	PolicySkip = "skip"
	PolicyDrop = "drop"

	// TimezonePlace resolves each record's zone from its coordinates.
	TimezonePlace = "place"
)

// Config is the merged configuration of file, environment and flags.
type Config struct {
	DataDir string `toml:"data_dir"`
	Home    string `toml:"home"`
	Work    string `toml:"work"`

	// Timezone: "" keeps recorded offsets, "Local", an IANA name, or "place".
	Timezone string `toml:"timezone"`

	MissingTimeline string `toml:"missing_timeline"` // fail | skip
	InvalidVisits   string `toml:"invalid_visits"`   // fail | drop
	InvalidJourneys string `toml:"invalid_journeys"` // fail | drop

	Concurrency int `toml:"concurrency"`

	Countries []CountryRule `toml:"countries"`

	Log    LogConfig    `toml:"log"`
	Chat   ChatConfig   `toml:"chat"`
	Server ServerConfig `toml:"server"`
}

// CountryRule maps a regular expression over the raw country text to a canonical name.
type CountryRule struct {
	Pattern string `toml:"pattern"`
	Name    string `toml:"name"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type ChatConfig struct {
	APIKey   string   `toml:"api_key"`
	Model    string   `toml:"model"`
	BaseURL  string   `toml:"base_url"`
	MaxSteps int      `toml:"max_steps"`
	MaxRows  int      `toml:"max_rows"`
	Timeout  Duration `toml:"timeout"`
}

type ServerConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Duration decodes TOML strings such as "60s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:         DefaultDataDir,
		MissingTimeline: PolicyFail,
		InvalidVisits:   PolicyFail,
		InvalidJourneys: PolicyDrop,
		Concurrency:     runtime.NumCPU(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			File:   DefaultLogFile,
		},
		Chat: ChatConfig{
			Model:    "gpt-4o-mini",
			MaxSteps: 4,
			MaxRows:  50,
			Timeout:  Duration{60 * time.Second},
		},
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
	}
}

// Load reads the file at path over the defaults, then applies environment overrides.
// A missing file is only an error when required is true.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		path = ExpandPath(path)
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || required {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("TIMELINE_DATA_DIR", c.DataDir)
	c.Home = getEnv("TIMELINE_HOME", c.Home)
	c.Work = getEnv("TIMELINE_WORK", c.Work)
	c.Chat.APIKey = getEnv("OPENAI_API_KEY", c.Chat.APIKey)
	c.Chat.Model = getEnv("OPENAI_MODEL", c.Chat.Model)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Validate rejects unknown policy values, bad time zones and invalid country patterns.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data directory is required")
	}
	if err := oneOf("missing_timeline", c.MissingTimeline, PolicyFail, PolicySkip); err != nil {
		return err
	}
	if err := oneOf("invalid_visits", c.InvalidVisits, PolicyFail, PolicyDrop); err != nil {
		return err
	}
	if err := oneOf("invalid_journeys", c.InvalidJourneys, PolicyFail, PolicyDrop); err != nil {
		return err
	}
	if err := oneOf("log.format", c.Log.Format, "console", "json"); err != nil {
		return err
	}

	switch c.Timezone {
	case "", "Local", TimezonePlace:
	default:
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}

	for i, rule := range c.Countries {
		if rule.Name == "" {
			return fmt.Errorf("countries[%d]: name is required", i)
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("countries[%d]: invalid pattern: %w", i, err)
		}
	}

	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.Chat.MaxSteps <= 0 {
		c.Chat.MaxSteps = 4
	}
	if c.Chat.MaxRows <= 0 {
		c.Chat.MaxRows = 50
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (expected one of: %s)", key, value, strings.Join(allowed, ", "))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ExpandPath resolves a leading ~/ and makes the path absolute
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
