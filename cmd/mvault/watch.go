package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/subcommands"

	"MarketVault/internal/scheduler"
)

// watchCmd runs the cron scheduler that keeps the watchlist cache fresh.
type watchCmd struct {
	runOnStart bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "Refresh the configured watchlist on a cron schedule." }
func (*watchCmd) Usage() string {
	return `watch [-run-on-start]:
  Periodically re-acquire every watch.items entry from the config, extending
  each cache entry's trailing edge to now. Runs until interrupted.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.runOnStart, "run-on-start", false, "Refresh once immediately before waiting for the schedule")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if len(app.Cfg.Watch.Items) == 0 {
		fmt.Fprintln(os.Stderr, "Error: watch.items is empty, nothing to refresh")
		return subcommands.ExitFailure
	}

	lookback := time.Duration(app.Cfg.Watch.LookbackDays) * 24 * time.Hour
	sched := scheduler.NewScheduler(ctx, app.Orch, app.Cfg.Watch.Items, lookback)
	if err := sched.Register(app.Cfg.Watch.Cron); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	sched.Start()
	defer sched.Stop()

	if c.runOnStart {
		sched.RefreshAll()
	}

	log.Printf("[INFO] watching %d entries on schedule %q, press Ctrl+C to stop", len(app.Cfg.Watch.Items), app.Cfg.Watch.Cron)
	<-ctx.Done()
	log.Println("[INFO] shutdown signal received, stopping")
	return subcommands.ExitSuccess
}
