package commands

import (
	"context"
	"fmt"

	"github.com/penwyp/go-timeline-chat/internal/analyzer"
	"github.com/penwyp/go-timeline-chat/internal/chat"
	"github.com/penwyp/go-timeline-chat/internal/config"
	"github.com/penwyp/go-timeline-chat/internal/store"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

// newCompleter builds the LLM client. Tests replace it with a scripted one.
var newCompleter = func(cfg config.ChatConfig) (chat.Completer, error) {
	c, err := chat.NewOpenAICompleter(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// loadDataset runs loading and normalization once with the merged configuration.
func loadDataset(ctx context.Context, cfg *config.Config) (*analyzer.Analyzer, *analyzer.Dataset, error) {
	ac := analyzer.FromConfig(cfg)
	ac.Years = years
	a, err := analyzer.New(ac)
	if err != nil {
		return nil, nil, err
	}
	ds, err := a.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return a, ds, nil
}

// openStore loads the dataset tables into a fresh in-memory SQL store.
func openStore(ctx context.Context, ds *analyzer.Dataset) (*store.Store, error) {
	st, err := store.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := st.Load(ctx, ds.Tables()...); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	util.LogDebug(fmt.Sprintf("Store loaded: %d visits, %d journeys", len(ds.Visits), len(ds.Journeys)))
	return st, nil
}

func agentOptions(cfg *config.Config) chat.Options {
	return chat.Options{
		MaxSteps: cfg.Chat.MaxSteps,
		MaxRows:  cfg.Chat.MaxRows,
		Home:     cfg.Home,
		Work:     cfg.Work,
	}
}
