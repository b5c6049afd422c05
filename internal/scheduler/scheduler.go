// Package scheduler keeps watchlist cache entries fresh by re-acquiring
// them on a cron schedule. Each refresh extends an entry's trailing edge to
// the current time, so interactive requests hit the cache.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"MarketVault/internal/acquire"
	"MarketVault/internal/config"
	"MarketVault/internal/interval"
	"MarketVault/internal/model"
)

// Scheduler runs periodic watchlist refreshes.
type Scheduler struct {
	Cron     *cron.Cron
	Orch     *acquire.Orchestrator
	Items    []config.WatchItem
	Lookback time.Duration
	Ctx      context.Context
}

// NewScheduler creates a scheduler over the given watchlist.
func NewScheduler(ctx context.Context, orch *acquire.Orchestrator, items []config.WatchItem, lookback time.Duration) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Orch:     orch,
		Items:    items,
		Lookback: lookback,
		Ctx:      ctx,
	}
}

// Register installs the refresh task on the given cron expression.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.RefreshAll); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RefreshAll re-acquires every watchlist entry up to now. Failures are
// logged per item; one bad entry does not stop the rest.
func (s *Scheduler) RefreshAll() {
	log.Printf("[INFO] refreshing %d watchlist entries", len(s.Items))
	now := time.Now().UTC()
	for _, item := range s.Items {
		if err := s.refresh(item, now); err != nil {
			log.Printf("[ERROR] refresh %s/%s %s: %v", item.Source, item.Symbol, item.Interval, err)
		}
	}
}

func (s *Scheduler) refresh(item config.WatchItem, now time.Time) error {
	source, err := model.ParseSource(item.Source)
	if err != nil {
		return err
	}
	spec, err := interval.Parse(item.Interval)
	if err != nil {
		return err
	}
	res, err := s.Orch.Acquire(s.Ctx, acquire.Request{
		Source:   source,
		Symbol:   item.Symbol,
		Interval: spec,
		Start:    now.Add(-s.Lookback),
		End:      now,
	})
	if err != nil {
		return err
	}
	if res.Warning != "" {
		log.Printf("[WARN] refresh %s/%s: %s", item.Source, item.Symbol, res.Warning)
	}
	log.Printf("[INFO] refreshed %s/%s %s: %d rows (cache used: %v)", item.Source, res.Canonical, item.Interval, len(res.Bars), res.CacheUsed)
	return nil
}
