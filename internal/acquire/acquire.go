// Package acquire composes resolution, caching and remote fetching into the
// fetch-with-cache algorithm every data request goes through.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"MarketVault/internal/cache"
	"MarketVault/internal/interval"
	"MarketVault/internal/journal"
	"MarketVault/internal/model"
	"MarketVault/internal/provider"
	"MarketVault/internal/resolver"
)

// Request asks for bars of one instrument over a closed time range.
type Request struct {
	Source   model.Source
	Symbol   string
	Interval interval.Spec
	Start    time.Time
	End      time.Time
}

// Result is the orchestrator's output contract. A nil error with empty Bars
// means "no data"; Warning carries non-fatal degradations (partial coverage,
// possible truncation).
type Result struct {
	Bars      []model.Bar
	Canonical string
	Interval  string
	Source    model.Source
	CacheUsed bool
	Warning   string
}

// Orchestrator wires the cache store, the per-source fetchers and the
// journal together.
type Orchestrator struct {
	Store    *cache.Store
	Fetchers map[model.Source]provider.Fetcher
	CSV      *provider.CSVSource
	Journal  journal.Recorder
}

func New(store *cache.Store, fetchers map[model.Source]provider.Fetcher, csv *provider.CSVSource, jr journal.Recorder) *Orchestrator {
	if jr == nil {
		jr = journal.NewNoopRecorder()
	}
	return &Orchestrator{Store: store, Fetchers: fetchers, CSV: csv, Journal: jr}
}

// Acquire runs the fetch-with-cache algorithm: resolve the symbol, reuse
// cached bars, fetch only the trailing gap, merge and persist, and return
// the requested slice. Fatal provider errors abort; everything else
// degrades to a result with a warning.
func (o *Orchestrator) Acquire(ctx context.Context, req Request) (*Result, error) {
	if req.Start.After(req.End) {
		return nil, fmt.Errorf("invalid range: start %v after end %v", req.Start, req.End)
	}
	req.Start, req.End = req.Start.UTC(), req.End.UTC()

	if req.Source.Local() {
		return o.acquireLocal(req)
	}

	runID := uuid.NewString()
	res, err := o.acquireRemote(ctx, runID, req)
	if res != nil {
		o.record(&journal.Acquisition{
			ID:        runID,
			Source:    string(req.Source),
			RawSymbol: req.Symbol,
			Canonical: res.Canonical,
			Interval:  req.Interval.Token,
			Start:     req.Start,
			End:       req.End,
			Rows:      len(res.Bars),
			CacheUsed: res.CacheUsed,
			Warning:   res.Warning,
		})
	}
	return res, err
}

// acquireLocal serves csv and demo sources; no resolution, no caching.
func (o *Orchestrator) acquireLocal(req Request) (*Result, error) {
	res := &Result{
		Canonical: req.Symbol,
		Interval:  req.Interval.Token,
		Source:    req.Source,
	}
	switch req.Source {
	case model.SourceCSV:
		if o.CSV == nil {
			return nil, fmt.Errorf("csv source not configured")
		}
		rows, err := o.CSV.Load(req.Symbol)
		if err != nil {
			return nil, err
		}
		res.Bars = cache.Slice(rows, req.Start, req.End)
	case model.SourceDemo:
		res.Bars = provider.GenerateDemoBars(req.Symbol, req.Interval, req.Start, req.End)
	default:
		return nil, fmt.Errorf("source %q is not local", req.Source)
	}
	if len(res.Bars) == 0 {
		res.Warning = "no data in requested range"
	}
	return res, nil
}

func (o *Orchestrator) acquireRemote(ctx context.Context, runID string, req Request) (*Result, error) {
	fetcher, ok := o.Fetchers[req.Source]
	if !ok {
		return nil, fmt.Errorf("no fetcher configured for source %q", req.Source)
	}
	res := &Result{Interval: req.Interval.Token, Source: req.Source}

	// Resolution. Exhausted candidates are "no data", not a failure.
	started := time.Now()
	canonical, err := fetcher.Resolve(ctx, req.Symbol)
	o.recordCall(runID, req.Source, "resolve", req.Symbol, statusOf(err), 0, time.Since(started))
	if errors.Is(err, resolver.ErrExhausted) {
		res.Warning = fmt.Sprintf("no data: %v", err)
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s/%s: %w", req.Source, req.Symbol, err)
	}
	res.Canonical = canonical

	key := cache.Key{Source: req.Source, Symbol: canonical, Interval: req.Interval.Token}
	entry, err := o.Store.Lookup(key)
	if errors.Is(err, cache.ErrCorrupt) {
		// A corrupt cache must never crash the tool; refetch from scratch.
		log.Printf("[WARN] %v, treating as cache miss", err)
		entry = nil
	} else if err != nil {
		return nil, err
	}

	gaps := cache.Gaps(entry, req.Interval, req.Start, req.End)

	// Fully served from cache: zero remote calls.
	if len(gaps) == 0 && entry != nil {
		res.Bars = cache.Slice(entry.Rows, req.Start, req.End)
		res.CacheUsed = true
		res.Warning = leadingGapWarning(entry, req.Start)
		return res, nil
	}

	gap := gaps[0]
	started = time.Now()
	page, err := fetcher.Fetch(ctx, canonical, req.Interval, gap.Start, gap.End)
	o.recordCall(runID, req.Source, "aggregates", canonical, fetchStatusOf(err, len(page.Bars)), len(page.Bars), time.Since(started))

	if entry == nil {
		// Cold miss: the gap was the whole request.
		if err != nil {
			return nil, fmt.Errorf("fetch %s/%s: %w", req.Source, canonical, err)
		}
		if len(page.Bars) == 0 {
			res.Warning = "no data: provider returned an empty result"
			return res, nil
		}
		if err := o.Store.Persist(key, page.Bars); err != nil {
			return nil, err
		}
		res.Bars = cache.Slice(page.Bars, req.Start, req.End)
		res.Warning = truncationWarning(page)
		return res, nil
	}

	// Trailing gap-fill on top of an existing entry. A failed fill degrades
	// to the cached coverage instead of discarding rows already fetched.
	if err != nil {
		log.Printf("[WARN] gap-fill fetch failed for %s/%s: %v", req.Source, canonical, err)
		res.Bars = cache.Slice(entry.Rows, req.Start, req.End)
		res.CacheUsed = true
		res.Warning = joinWarnings(
			fmt.Sprintf("partial data, remote gap-fill failed: %v", err),
			leadingGapWarning(entry, req.Start),
		)
		return res, nil
	}

	merged := cache.Merge(entry.Rows, page.Bars)
	if err := o.Store.Persist(key, merged); err != nil {
		return nil, err
	}
	res.Bars = cache.Slice(merged, req.Start, req.End)
	res.CacheUsed = true
	res.Warning = joinWarnings(truncationWarning(page), leadingGapWarning(entry, req.Start))
	return res, nil
}

// leadingGapWarning flags requests that start before cached coverage;
// leading gap-fill is not implemented, so those rows are simply missing.
func leadingGapWarning(entry *cache.Entry, start time.Time) string {
	cs, _, ok := entry.Coverage()
	if ok && start.Before(cs) {
		return fmt.Sprintf("requested range starts %s before cached coverage; leading gap-fill is not supported", cs.Sub(start))
	}
	return ""
}

func truncationWarning(page provider.Page) string {
	if page.Truncated {
		return "result hit the provider page limit and may be truncated; pagination is not implemented"
	}
	return ""
}

func joinWarnings(warnings ...string) string {
	var parts []string
	for _, w := range warnings {
		if w != "" {
			parts = append(parts, w)
		}
	}
	return strings.Join(parts, "; ")
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// fetchStatusOf distinguishes a successful fetch that returned no rows from
// one that returned data.
func fetchStatusOf(err error, rows int) string {
	if err != nil {
		return "error"
	}
	if rows == 0 {
		return "empty"
	}
	return "ok"
}

func (o *Orchestrator) record(a *journal.Acquisition) {
	if err := o.Journal.RecordAcquisition(a); err != nil {
		log.Printf("[WARN] journal acquisition: %v", err)
	}
}

func (o *Orchestrator) recordCall(runID string, source model.Source, endpoint, symbol, status string, rows int, d time.Duration) {
	err := o.Journal.RecordRemoteCall(&journal.RemoteCall{
		AcquisitionID: runID,
		Source:        string(source),
		Endpoint:      endpoint,
		Symbol:        symbol,
		Status:        status,
		Rows:          rows,
		Duration:      d,
	})
	if err != nil {
		log.Printf("[WARN] journal remote call: %v", err)
	}
}
