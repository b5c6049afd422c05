package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"MarketVault/internal/interval"
	"MarketVault/internal/model"
)

// BinanceFetcher implements Fetcher using the Binance klines API. Symbols
// resolve locally: strip pair separators and uppercase ("btc/usdt" →
// "BTCUSDT").
type BinanceFetcher struct {
	BaseURL   string
	Client    *http.Client
	PageLimit int
}

func NewBinanceFetcher(baseURL, proxyURL string) *BinanceFetcher {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceFetcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    newHTTPClient(proxyURL),
		PageLimit: 1000, // klines endpoint hard limit
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

func (f *BinanceFetcher) Resolve(_ context.Context, rawSymbol string) (string, error) {
	s := strings.NewReplacer("/", "", "-", "", "_", "").Replace(rawSymbol)
	return strings.ToUpper(s), nil
}

// binanceInterval maps an interval spec to a klines interval token.
func binanceInterval(spec interval.Spec) (string, error) {
	suffix := map[interval.Unit]string{
		interval.Minute: "m",
		interval.Hour:   "h",
		interval.Day:    "d",
		interval.Week:   "w",
		interval.Month:  "M",
	}[spec.Unit]
	if suffix == "" {
		return "", fmt.Errorf("binance: unsupported interval unit %q", spec.Unit)
	}
	return fmt.Sprintf("%d%s", spec.Multiplier, suffix), nil
}

// Fetch retrieves one page of klines for [start, end]. Klines rows are
// positional arrays: open time ms, open, high, low, close, volume, ...
func (f *BinanceFetcher) Fetch(ctx context.Context, canonical string, spec interval.Spec, start, end time.Time) (Page, error) {
	iv, err := binanceInterval(spec)
	if err != nil {
		return Page{}, &FatalError{Err: err}
	}
	u := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=%d",
		f.BaseURL, url.QueryEscape(canonical), iv, start.UnixMilli(), end.UnixMilli(), f.PageLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, &FatalError{Err: err}
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return Page{}, &FatalError{Err: fmt.Errorf("binance fetch: %w", err)}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, &FatalError{Err: fmt.Errorf("binance read body: %w", err)}
	}
	if resp.StatusCode == http.StatusNotFound {
		return Page{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Page{}, &FatalError{Err: fmt.Errorf("binance: status %d, body: %s", resp.StatusCode, string(body))}
	}

	var klines [][]json.RawMessage
	if err := json.Unmarshal(body, &klines); err != nil {
		return Page{}, &FatalError{Err: fmt.Errorf("binance decode: %w", err)}
	}

	bars := make([]model.Bar, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			return Page{}, &FatalError{Err: fmt.Errorf("binance: kline row has %d fields", len(k))}
		}
		var openMs int64
		if err := json.Unmarshal(k[0], &openMs); err != nil {
			return Page{}, &FatalError{Err: fmt.Errorf("binance: kline open time: %w", err)}
		}
		vals := make([]float64, 5)
		for i := 1; i <= 5; i++ {
			var s string
			if err := json.Unmarshal(k[i], &s); err != nil {
				return Page{}, &FatalError{Err: fmt.Errorf("binance: kline field %d: %w", i, err)}
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Page{}, &FatalError{Err: fmt.Errorf("binance: kline field %d %q: %w", i, s, err)}
			}
			vals[i-1] = v
		}
		bars = append(bars, model.Bar{
			Time:   time.UnixMilli(openMs).UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return Page{Bars: bars, Truncated: len(bars) >= f.PageLimit}, nil
}
