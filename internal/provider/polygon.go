package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"MarketVault/internal/interval"
	"MarketVault/internal/model"
	"MarketVault/internal/resolver"
)

// PolygonFetcher implements Fetcher against a polygon-style REST API with
// namespace-qualified tickers (C: currency, X: crypto, I: index).
type PolygonFetcher struct {
	BaseURL   string
	APIKey    string
	Client    *http.Client
	Limiter   *rate.Limiter
	PageLimit int

	prefixes []string
	res      *resolver.Resolver
}

// PolygonOptions carries the injected configuration for the fetcher.
type PolygonOptions struct {
	BaseURL       string
	APIKey        string
	ProxyURL      string
	Prefixes      []string // candidate namespace prefixes, most likely first
	Cooldown      time.Duration
	PageLimit     int
	RatePerMinute int
}

// NewPolygonFetcher creates a fetcher with a token-bucket limiter sized to
// the provider's per-minute quota.
func NewPolygonFetcher(opts PolygonOptions) *PolygonFetcher {
	f := &PolygonFetcher{
		BaseURL:   strings.TrimRight(opts.BaseURL, "/"),
		APIKey:    opts.APIKey,
		Client:    newHTTPClient(opts.ProxyURL),
		PageLimit: opts.PageLimit,
	}
	if f.PageLimit <= 0 {
		f.PageLimit = 50000
	}
	perMinute := opts.RatePerMinute
	if perMinute <= 0 {
		perMinute = 5
	}
	f.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)

	f.prefixes = opts.Prefixes
	f.res = resolver.New(f.lookupDetails, opts.Cooldown)
	return f
}

func (f *PolygonFetcher) Name() string { return "polygon" }

// Resolve probes the raw symbol and each configured namespace prefix
// against the instrument-details endpoint.
func (f *PolygonFetcher) Resolve(ctx context.Context, rawSymbol string) (string, error) {
	return f.res.Resolve(ctx, strings.ToUpper(rawSymbol), f.prefixes)
}

// tickerDetails is the details-endpoint response envelope.
type tickerDetails struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Results *struct {
		Ticker string `json:"ticker"`
		Name   string `json:"name"`
	} `json:"results"`
}

// lookupDetails classifies one details probe into the tagged result the
// resolver state machine consumes.
func (f *PolygonFetcher) lookupDetails(ctx context.Context, candidate string) (resolver.LookupResult, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return resolver.LookupFatal, err
	}
	u := fmt.Sprintf("%s/v3/reference/tickers/%s?apiKey=%s", f.BaseURL, url.PathEscape(candidate), url.QueryEscape(f.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return resolver.LookupFatal, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return resolver.LookupFatal, fmt.Errorf("ticker details: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resolver.LookupFatal, fmt.Errorf("ticker details read: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return resolver.LookupNotFound, nil
	}
	var details tickerDetails
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(body, &details); err != nil {
			return resolver.LookupFatal, fmt.Errorf("ticker details decode: %w", err)
		}
		if details.Results != nil {
			return resolver.LookupOK, nil
		}
		// 200 with an empty payload still means the ticker is unknown.
		return resolver.LookupNotFound, nil
	}
	// Fallback heuristic: some deployments return not-found as a non-404
	// status with a NOT_FOUND marker in the body.
	if json.Unmarshal(body, &details) == nil && strings.Contains(strings.ToUpper(details.Status+" "+details.Message), "NOT_FOUND") {
		return resolver.LookupNotFound, nil
	}
	return resolver.LookupFatal, fmt.Errorf("ticker details: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// aggsResponse is the aggregate-bars response envelope; t is epoch-ms.
type aggsResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		T int64   `json:"t"`
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
}

// Fetch performs one aggregate-bars request for [start, end]. A page whose
// row count equals the page limit is flagged truncated rather than returned
// as silently incomplete.
func (f *PolygonFetcher) Fetch(ctx context.Context, canonical string, spec interval.Spec, start, end time.Time) (Page, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return Page{}, err
	}
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%d/%d?adjusted=true&sort=asc&limit=%d&apiKey=%s",
		f.BaseURL, url.PathEscape(canonical), spec.Multiplier, spec.Unit,
		start.UnixMilli(), end.UnixMilli(), f.PageLimit, url.QueryEscape(f.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, &FatalError{Err: err}
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return Page{}, &FatalError{Err: fmt.Errorf("aggregates: %w", err)}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, &FatalError{Err: fmt.Errorf("aggregates read: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return Page{}, &FatalError{Err: fmt.Errorf("aggregates: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	var aggs aggsResponse
	if err := json.Unmarshal(body, &aggs); err != nil {
		return Page{}, &FatalError{Err: fmt.Errorf("aggregates decode: %w", err)}
	}
	if s := strings.ToUpper(aggs.Status); s != "OK" && s != "DELAYED" && s != "" {
		return Page{}, &FatalError{Err: fmt.Errorf("aggregates: api status %s: %s", aggs.Status, aggs.Message)}
	}

	bars := make([]model.Bar, 0, len(aggs.Results))
	for _, r := range aggs.Results {
		bars = append(bars, model.Bar{
			Time:   time.UnixMilli(r.T).UTC(),
			Open:   r.O,
			High:   r.H,
			Low:    r.L,
			Close:  r.C,
			Volume: r.V,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return Page{Bars: bars, Truncated: len(bars) >= f.PageLimit}, nil
}
