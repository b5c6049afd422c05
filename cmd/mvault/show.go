package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"MarketVault/internal/cache"
	"MarketVault/internal/interval"
	"MarketVault/internal/model"
)

// showCmd inspects the local cache entry for one key.
type showCmd struct {
	source   string
	symbol   string
	interval string
}

func (*showCmd) Name() string { return "show" }
func (*showCmd) Synopsis() string {
	return "Show cached coverage for a (source, symbol, interval) key."
}
func (*showCmd) Usage() string {
	return `show -source <src> -symbol <canonical> [-interval D1]:
  Print the cache file path, row count and coverage for one key. The symbol
  must be the canonical identifier as stored (use the resolve command).
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "polygon", "Data source")
	f.StringVar(&c.symbol, "symbol", "", "Canonical instrument symbol")
	f.StringVar(&c.interval, "interval", "D1", "Timeframe token")
}

func (c *showCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" {
		fmt.Fprintln(os.Stderr, "Error: -symbol is required")
		return subcommands.ExitUsageError
	}
	source, err := model.ParseSource(c.source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	spec, err := interval.Parse(c.interval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	key := cache.Key{Source: source, Symbol: c.symbol, Interval: spec.Token}
	entry, err := app.Orch.Store.Lookup(key)
	if errors.Is(err, cache.ErrCorrupt) {
		fmt.Fprintf(os.Stderr, "Cache file is corrupt and will be refetched on next use: %v\n", err)
		return subcommands.ExitFailure
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if entry == nil {
		fmt.Printf("No cache entry for %s/%s %s\n", source, c.symbol, spec.Token)
		return subcommands.ExitSuccess
	}

	fmt.Printf("Path:     %s\n", entry.Path)
	fmt.Printf("Rows:     %d\n", len(entry.Rows))
	if start, end, ok := entry.Coverage(); ok {
		fmt.Printf("Coverage: %s .. %s\n", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return subcommands.ExitSuccess
}
