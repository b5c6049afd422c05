package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MarketVault/internal/interval"
)

// fetchYahooChart serves payload from a local chart endpoint and runs one
// fetch against it.
func fetchYahooChart(t *testing.T, payload string, spec interval.Spec, start, end time.Time) (Page, error) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	t.Cleanup(srv.Close)

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	return f.Fetch(context.Background(), "^GSPC", spec, start, end)
}

func TestYahooResolve_AliasMap(t *testing.T) {
	f := NewYahooFetcher("")
	cases := map[string]string{
		"SPX500": "^GSPC",
		"spx":    "^GSPC",
		"AAPL":   "AAPL", // unknown symbols pass through as typed
	}
	for raw, want := range cases {
		got, err := f.Resolve(context.Background(), raw)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", raw, err)
		}
		if got != want {
			t.Errorf("Resolve(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestYahooFetch_MalformedQuoteArraysAreFatal(t *testing.T) {
	spec, _ := interval.Parse("D1")
	start := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	// Timestamps present but quote arrays missing or too short: the fetch
	// must fail as malformed, not index past the arrays.
	payloads := []string{
		`{"chart":{"result":[{"timestamp":[1673308800],"indicators":{"quote":[]}}]}}`,
		`{"chart":{"result":[{"timestamp":[1673308800,1673395200],"indicators":{"quote":[{"open":[1.0],"high":[1.1],"low":[0.9],"close":[1.05],"volume":[100]}]}}]}}`,
	}
	for i, payload := range payloads {
		page, err := fetchYahooChart(t, payload, spec, start, end)
		if !IsFatal(err) {
			t.Errorf("payload %d: error = %v, want FatalError", i, err)
		}
		if len(page.Bars) != 0 {
			t.Errorf("payload %d: got %d bars from malformed response", i, len(page.Bars))
		}
	}
}

func TestYahooFetch_DecodesChart(t *testing.T) {
	spec, _ := interval.Parse("D1")
	start := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	payload := `{"chart":{"result":[{"timestamp":[1673308800],"indicators":{"quote":[{"open":[3900.5],"high":[3950.0],"low":[3880.2],"close":[3940.1],"volume":[1000000]}]}}]}}`

	page, err := fetchYahooChart(t, payload, spec, start, start.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Bars) != 1 {
		t.Fatalf("bars = %d, want 1", len(page.Bars))
	}
	bar := page.Bars[0]
	if !bar.Time.Equal(time.Unix(1673308800, 0).UTC()) || bar.Close != 3940.1 {
		t.Errorf("decoded bar = %+v", bar)
	}
}
