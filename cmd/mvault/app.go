package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"MarketVault/internal/acquire"
	"MarketVault/internal/cache"
	"MarketVault/internal/config"
	"MarketVault/internal/journal"
	"MarketVault/internal/model"
	"MarketVault/internal/provider"
)

// as a CLI application the process is short lived, so a global config flag
// shared by all subcommands is fine.
var configPath = flag.String("config", defaultConfigPath(), "Path to the YAML configuration file")

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

// app bundles everything a subcommand needs.
type app struct {
	Cfg  *config.Config
	Orch *acquire.Orchestrator

	journal journal.Recorder
}

// newApp loads configuration and wires the orchestrator.
func newApp() (*app, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	fetchers := map[model.Source]provider.Fetcher{
		model.SourcePolygon: provider.NewPolygonFetcher(provider.PolygonOptions{
			BaseURL:       cfg.Polygon.BaseURL,
			APIKey:        cfg.Polygon.APIKey,
			ProxyURL:      cfg.Proxy,
			Prefixes:      cfg.Polygon.TickerPrefixes,
			Cooldown:      cfg.Cooldown(),
			PageLimit:     cfg.Polygon.PageLimit,
			RatePerMinute: cfg.Polygon.RatePerMinute,
		}),
		model.SourceYahoo:   provider.NewYahooFetcher(cfg.Proxy),
		model.SourceBinance: provider.NewBinanceFetcher(cfg.Binance.BaseURL, cfg.Proxy),
	}

	var rec journal.Recorder
	if cfg.Journal.SQLitePath != "" {
		sr, err := journal.NewSQLiteRecorder(cfg.Journal.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite journal failed, using noop: %v", err)
			rec = journal.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = journal.NewNoopRecorder()
	}

	orch := acquire.New(
		cache.NewStore(cfg.CacheDir),
		fetchers,
		provider.NewCSVSource(cfg.CSVDir),
		rec,
	)
	return &app{Cfg: cfg, Orch: orch, journal: rec}, nil
}

func (a *app) Close() {
	if err := a.journal.Close(); err != nil {
		log.Printf("[WARN] close journal: %v", err)
	}
}

// parseWhen accepts plain dates and RFC3339 timestamps.
func parseWhen(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable time %q (want YYYY-MM-DD or RFC3339)", s)
}
