package commands

import (
	"errors"
	"fmt"

	"github.com/penwyp/go-timeline-chat/internal/analyzer"
	"github.com/penwyp/go-timeline-chat/internal/chat"
	"github.com/penwyp/go-timeline-chat/internal/data/watcher"
	"github.com/penwyp/go-timeline-chat/internal/server"
	"github.com/penwyp/go-timeline-chat/internal/util"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr     string
	serveWatch    bool
	serveDebounce = watcher.DefaultDebounce

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the tables, map points and chat over HTTP",
		Long: `Start an HTTP server with a JSON API over the normalized tables.

Endpoints:
  GET  /health
  GET  /api/v1/visits?year=2019&limit=100
  GET  /api/v1/journeys?year=2019
  GET  /api/v1/years
  GET  /api/v1/map?year=2019&year=2020
  GET  /api/v1/summary
  POST /api/v1/chat    {"conversation_id": "...", "question": "..."}

The chat endpoint needs an OpenAI API key. With --watch the data is reloaded when the export changes.`,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"Listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false,
		"Reload the data when the export changes")
	serveCmd.Flags().DurationVar(&serveDebounce, "debounce", watcher.DefaultDebounce,
		"Quiet period before reloading (with --watch)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}

	ctx := cmd.Context()
	a, ds, err := loadDataset(ctx, cfg)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, ds)
	if err != nil {
		return err
	}
	defer st.Close()

	var asker server.Asker
	completer, err := newCompleter(cfg.Chat)
	switch {
	case err == nil:
		asker = chat.NewAgent(completer, st, agentOptions(cfg))
	case errors.Is(err, chat.ErrNoAPIKey):
		util.LogWarn("No OpenAI API key configured, chat is disabled")
	default:
		return err
	}

	srv := server.New(cfg.Server, ds, asker)
	fmt.Fprintf(cmd.ErrOrStderr(), "Serving %d visits and %d journeys on %s\n",
		len(ds.Visits), len(ds.Journeys), cfg.Server.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if serveWatch {
		g.Go(func() error {
			return watchDataset(ctx, cfg.DataDir, serveDebounce, a, func(ds *analyzer.Dataset) {
				if err := st.Load(ctx, ds.Tables()...); err != nil {
					util.LogErrorf("Failed to reload store: %v", err)
					return
				}
				srv.SetDataset(ds)
			})
		})
	}
	return g.Wait()
}
