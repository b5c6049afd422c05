package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/subcommands"

	"MarketVault/internal/acquire"
	"MarketVault/internal/interval"
	"MarketVault/internal/model"
)

// fetchCmd acquires bars for one instrument and range, writing CSV to
// stdout or a file.
type fetchCmd struct {
	source   string
	symbol   string
	interval string
	start    string
	end      string
	out      string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "Fetch OHLCV bars through the local cache." }
func (*fetchCmd) Usage() string {
	return `fetch -source <src> -symbol <sym> [-interval D1] [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-out file.csv]:
  Resolve the symbol, reuse cached bars, fetch only what is missing, and
  print the requested slice as CSV.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "polygon", "Data source (csv, demo, polygon, yahoo, binance)")
	f.StringVar(&c.symbol, "symbol", "", "Instrument symbol as typed by the user")
	f.StringVar(&c.interval, "interval", "D1", "Timeframe token (M1, H1, D1, W1, MN1 or a raw unit name)")
	f.StringVar(&c.start, "start", "", "Range start (default: 90 days ago)")
	f.StringVar(&c.end, "end", "", "Range end (default: now)")
	f.StringVar(&c.out, "out", "", "Write CSV to this file instead of stdout")
}

func (c *fetchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req, err := c.buildRequest()
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

	res, err := app.Orch.Acquire(ctx, *req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if res.Warning != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", res.Warning)
	}
	fmt.Fprintf(os.Stderr, "%s %s %s: %d rows (cache used: %v)\n",
		res.Source, res.Canonical, res.Interval, len(res.Bars), res.CacheUsed)

	if err := c.writeCSV(res); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *fetchCmd) buildRequest() (*acquire.Request, error) {
	if c.symbol == "" {
		return nil, fmt.Errorf("-symbol is required")
	}
	source, err := model.ParseSource(c.source)
	if err != nil {
		return nil, err
	}
	spec, err := interval.Parse(c.interval)
	if err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	if c.end != "" {
		if end, err = parseWhen(c.end); err != nil {
			return nil, err
		}
	}
	start := end.AddDate(0, 0, -90)
	if c.start != "" {
		if start, err = parseWhen(c.start); err != nil {
			return nil, err
		}
	}
	return &acquire.Request{
		Source:   source,
		Symbol:   c.symbol,
		Interval: spec,
		Start:    start,
		End:      end,
	}, nil
}

func (c *fetchCmd) writeCSV(res *acquire.Result) error {
	out := os.Stdout
	if c.out != "" {
		f, err := os.Create(c.out)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	w := csv.NewWriter(out)
	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, bar := range res.Bars {
		rec := []string{
			bar.Time.Format(time.RFC3339),
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
			strconv.FormatFloat(bar.Volume, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
