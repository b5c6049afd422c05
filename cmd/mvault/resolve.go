package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"MarketVault/internal/model"
	"MarketVault/internal/resolver"
)

// resolveCmd probes the canonical provider-side identifier for a symbol
// without fetching any bars.
type resolveCmd struct {
	source string
	symbol string
}

func (*resolveCmd) Name() string     { return "resolve" }
func (*resolveCmd) Synopsis() string { return "Resolve a symbol to its canonical provider identifier." }
func (*resolveCmd) Usage() string {
	return `resolve -source <src> -symbol <sym>:
  Probe the provider's instrument-details endpoint with each configured
  namespace prefix and print the first identifier it recognizes.
`
}

func (c *resolveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "polygon", "Data source (polygon, yahoo, binance)")
	f.StringVar(&c.symbol, "symbol", "", "Instrument symbol as typed by the user")
}

func (c *resolveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" {
		fmt.Fprintln(os.Stderr, "Error: -symbol is required")
		return subcommands.ExitUsageError
	}
	source, err := model.ParseSource(c.source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if source.Local() {
		fmt.Fprintf(os.Stderr, "Error: source %q has no remote identity to resolve\n", source)
		return subcommands.ExitUsageError
	}

	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	fetcher, ok := app.Orch.Fetchers[source]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no fetcher configured for source %q\n", source)
		return subcommands.ExitFailure
	}

	canonical, err := fetcher.Resolve(ctx, c.symbol)
	if errors.Is(err, resolver.ErrExhausted) {
		fmt.Fprintf(os.Stderr, "No match: %v\n", err)
		return subcommands.ExitFailure
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(canonical)
	return subcommands.ExitSuccess
}
