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

	"MarketVault/internal/interval"
	"MarketVault/internal/model"
)

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
// Resolution is a static alias table; unknown symbols pass through as
// typed, since the chart endpoint itself rejects unknown tickers.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps common shorthand to Yahoo tickers
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: "https://query1.finance.yahoo.com",
		Client:  newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
			"NDX":    "^NDX",
			"DJI":    "^DJI",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) Resolve(_ context.Context, rawSymbol string) (string, error) {
	if mapped, ok := f.SymbolMap[strings.ToUpper(rawSymbol)]; ok {
		return mapped, nil
	}
	return rawSymbol, nil
}

// yahooInterval maps an interval spec to a chart-API interval token.
func yahooInterval(spec interval.Spec) (string, error) {
	switch spec.Unit {
	case interval.Minute:
		return fmt.Sprintf("%dm", spec.Multiplier), nil
	case interval.Hour:
		return fmt.Sprintf("%dh", spec.Multiplier), nil
	case interval.Day:
		return fmt.Sprintf("%dd", spec.Multiplier), nil
	case interval.Week:
		return fmt.Sprintf("%dwk", spec.Multiplier), nil
	case interval.Month:
		return fmt.Sprintf("%dmo", spec.Multiplier), nil
	}
	return "", fmt.Errorf("yahoo: unsupported interval unit %q", spec.Unit)
}

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// Fetch retrieves chart bars for [start, end] via period1/period2 bounds.
func (f *YahooFetcher) Fetch(ctx context.Context, canonical string, spec interval.Spec, start, end time.Time) (Page, error) {
	iv, err := yahooInterval(spec)
	if err != nil {
		return Page{}, &FatalError{Err: err}
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&period1=%d&period2=%d",
		strings.TrimRight(f.BaseURL, "/"), url.PathEscape(canonical), iv, start.Unix(), end.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, &FatalError{Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return Page{}, &FatalError{Err: fmt.Errorf("yahoo fetch: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, &FatalError{Err: fmt.Errorf("yahoo read body: %w", err)}
	}
	if resp.StatusCode == http.StatusNotFound {
		return Page{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Page{}, &FatalError{Err: fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))}
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return Page{}, &FatalError{Err: fmt.Errorf("yahoo decode: %w", err)}
	}
	if chart.Chart.Error != nil {
		return Page{}, &FatalError{Err: fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return Page{}, nil
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return Page{}, &FatalError{Err: fmt.Errorf("yahoo: malformed chart response: %d timestamps but no quote arrays", len(result.Timestamp))}
	}
	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	for name, arr := range map[string][]interface{}{
		"open": quote.Open, "high": quote.High, "low": quote.Low, "close": quote.Close, "volume": quote.Volume,
	} {
		if len(arr) < n {
			return Page{}, &FatalError{Err: fmt.Errorf("yahoo: malformed chart response: %s array has %d values for %d timestamps", name, len(arr), n)}
		}
	}
	bars := make([]model.Bar, 0, n)

	for i, ts := range result.Timestamp {
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: toFloat(quote.Volume[i]),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return Page{Bars: bars}, nil
}
