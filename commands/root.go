package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/penwyp/go-timeline-chat/internal/analyzer"
	"github.com/penwyp/go-timeline-chat/internal/config"
	"github.com/penwyp/go-timeline-chat/internal/util"
	"github.com/spf13/cobra"
)

var (
	// Logging related
	debug     bool
	logFormat string

	// Configuration
	configFile string

	// Input and normalization
	dataDir         string
	home            string
	work            string
	timezone        string
	missingTimeline string
	invalidVisits   string
	invalidJourneys string

	// Output related
	outputFormat string
	table        string

	// Filtering
	years []int
	since string
	limit int

	rootCmd = &cobra.Command{
		Use:   "go-timeline-chat [flags]",
		Short: "Google location history explorer",
		Long: `go-timeline-chat reads a Google Takeout Semantic Location History export and turns it
into two tables: place visits and journeys between them.

The tables can be printed, mapped, queried with SQL or explored by asking questions in plain language.

Examples:
  go-timeline-chat --dir ~/Takeout/Location\ History/Semantic\ Location\ History
  go-timeline-chat --dir takeout.zip --table visits --year 2019
  go-timeline-chat --home A2215 --work "St Helier Hospital" --output csv > visits.csv
  go-timeline-chat --output summary --since 1y
  go-timeline-chat map --year 2019 --year 2020 --format png --out map.png
  go-timeline-chat query "SELECT country, COUNT(*) FROM visits GROUP BY country"
  go-timeline-chat ask "Which country did I spend the most time in?"`,
		RunE:          runAnalyze,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	// Configuration and input
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultConfigFile,
		"Configuration file (TOML)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", config.DefaultDataDir,
		"Semantic Location History directory, single month file, or Takeout archive")

	// Normalization
	rootCmd.PersistentFlags().StringVar(&home, "home", "",
		"Location name to mark as home")
	rootCmd.PersistentFlags().StringVar(&work, "work", "",
		"Location name to mark as work")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		`Timezone for dates and times ("" keeps recorded offsets, Local, an IANA name, or place)`)
	rootCmd.PersistentFlags().StringVar(&missingTimeline, "missing-timeline", config.PolicyFail,
		"Files without timelineObjects (fail, skip)")
	rootCmd.PersistentFlags().StringVar(&invalidVisits, "invalid-visits", config.PolicyFail,
		"Place visits with missing fields (fail, drop)")
	rootCmd.PersistentFlags().StringVar(&invalidJourneys, "invalid-journeys", config.PolicyDrop,
		"Journeys with missing fields (fail, drop)")

	// Output configuration
	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", "table",
		"Output format (table, csv, json, summary)")
	rootCmd.Flags().StringVar(&outputFormat, "format", "",
		"Alias for --output")
	rootCmd.Flags().StringVarP(&table, "table", "t", analyzer.TableAll,
		"Table to print (visits, journeys, all)")

	// Filtering
	rootCmd.PersistentFlags().IntSliceVarP(&years, "year", "y", nil,
		"Only include records starting in this year (repeatable)")
	rootCmd.Flags().StringVarP(&since, "since", "s", "",
		"Only include records from the last duration (e.g., 12h, 7d, 2w, 1m, 1y)")
	rootCmd.Flags().IntVar(&limit, "limit", 0,
		"Limit rows per table (0 = unlimited)")

	// System and debugging
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format (console, json)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Handle format alias
	if format := cmd.Flags().Lookup("format"); format != nil && format.Changed {
		outputFormat = format.Value.String()
	}

	ac := analyzer.FromConfig(cfg)
	ac.Table = table
	ac.OutputFormat = outputFormat
	ac.Years = years
	ac.Since = since
	ac.Limit = limit

	a, err := analyzer.New(ac)
	if err != nil {
		return err
	}
	return a.Run(cmd.Context(), cmd.OutOrStdout())
}

// loadConfig reads the configuration file and environment, applies flags that were set
// explicitly, validates the result and initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	override("dir", &cfg.DataDir, dataDir)
	override("home", &cfg.Home, home)
	override("work", &cfg.Work, work)
	override("timezone", &cfg.Timezone, timezone)
	override("missing-timeline", &cfg.MissingTimeline, missingTimeline)
	override("invalid-visits", &cfg.InvalidVisits, invalidVisits)
	override("invalid-journeys", &cfg.InvalidJourneys, invalidJourneys)
	override("log-format", &cfg.Log.Format, logFormat)
	if debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.DataDir = config.ExpandPath(cfg.DataDir)

	if err := initLogging(cfg); err != nil {
		return nil, err
	}
	util.LogDebug(fmt.Sprintf("Configuration loaded: dir=%s timezone=%q", cfg.DataDir, cfg.Timezone))
	return cfg, nil
}

func initLogging(cfg *config.Config) error {
	logFile := ""
	if cfg.Log.File != "" {
		logFile = config.ExpandPath(cfg.Log.File)
		if err := ensureDir(filepath.Dir(logFile)); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return util.InitLogger(util.LoggerConfig{
		Level:   cfg.Log.Level,
		Format:  util.LogFormat(cfg.Log.Format),
		File:    logFile,
		Console: debug,
	})
}

// Execute runs the command line until completion or an interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = util.L().Sync() }()
	return rootCmd.ExecuteContext(ctx)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
