package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketVault/internal/interval"
	"MarketVault/internal/resolver"
)

func newTestPolygon(t *testing.T, handler http.Handler) *PolygonFetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPolygonFetcher(PolygonOptions{
		BaseURL:       srv.URL,
		APIKey:        "test-key",
		Prefixes:      []string{"C:", "X:", "I:"},
		Cooldown:      0, // no rate-limit pauses in tests
		PageLimit:     50000,
		RatePerMinute: 100000,
	})
}

func TestPolygonResolve_ProbesPrefixesInOrder(t *testing.T) {
	var probed []string
	f := newTestPolygon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ticker := strings.TrimPrefix(r.URL.Path, "/v3/reference/tickers/")
		probed = append(probed, ticker)
		if ticker == "X:EURUSD" {
			fmt.Fprint(w, `{"status":"OK","results":{"ticker":"X:EURUSD","name":"Euro/USD"}}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":"NOT_FOUND","message":"Ticker not found."}`)
	}))

	got, err := f.Resolve(context.Background(), "eurusd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "X:EURUSD" {
		t.Errorf("canonical = %q, want X:EURUSD", got)
	}
	want := []string{"EURUSD", "C:EURUSD", "X:EURUSD"}
	if len(probed) != len(want) {
		t.Fatalf("probed %v, want %v", probed, want)
	}
	for i := range want {
		if probed[i] != want[i] {
			t.Errorf("probe %d = %q, want %q", i, probed[i], want[i])
		}
	}
}

func TestPolygonResolve_Exhausted(t *testing.T) {
	f := newTestPolygon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":"NOT_FOUND"}`)
	}))

	_, err := f.Resolve(context.Background(), "NOSUCH")
	if !errors.Is(err, resolver.ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted", err)
	}
}

func TestPolygonResolve_AuthFailureIsFatal(t *testing.T) {
	calls := 0
	f := newTestPolygon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"ERROR","message":"Unknown API Key"}`)
	}))

	_, err := f.Resolve(context.Background(), "EURUSD")
	if err == nil || errors.Is(err, resolver.ErrExhausted) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("details calls = %d, want 1 (no probing after auth failure)", calls)
	}
}

func TestPolygonResolve_EmptyOKPayloadIsNotFound(t *testing.T) {
	f := newTestPolygon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK"}`)
	}))

	_, err := f.Resolve(context.Background(), "GHOST")
	if !errors.Is(err, resolver.ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted for empty payloads", err)
	}
}

func TestPolygonFetch_DecodesAggregates(t *testing.T) {
	base := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	f := newTestPolygon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v2/aggs/ticker/C:EURUSD/range/1/day/") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"status":"OK","resultsCount":2,"results":[
			{"t":%d,"o":1.07,"h":1.08,"l":1.06,"c":1.075,"v":1000},
			{"t":%d,"o":1.075,"h":1.09,"l":1.07,"c":1.085,"v":1200}
		]}`, base.UnixMilli(), base.Add(24*time.Hour).UnixMilli())
	}))

	spec, _ := interval.Parse("D1")
	page, err := f.Fetch(context.Background(), "C:EURUSD", spec, base, base.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(page.Bars))
	}
	if !page.Bars[0].Time.Equal(base) || page.Bars[0].Close != 1.075 {
		t.Errorf("first bar = %+v", page.Bars[0])
	}
	if page.Truncated {
		t.Error("page should not be flagged truncated")
	}
}

func TestPolygonFetch_EmptyResultIsNotAnError(t *testing.T) {
	f := newTestPolygon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","resultsCount":0,"results":[]}`)
	}))

	spec, _ := interval.Parse("D1")
	page, err := f.Fetch(context.Background(), "C:EURUSD", spec, time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Bars) != 0 {
		t.Errorf("bars = %d, want 0", len(page.Bars))
	}
}

func TestPolygonFetch_BadStatusIsFatal(t *testing.T) {
	f := newTestPolygon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"status":"NOT_AUTHORIZED","message":"plan does not cover this data"}`)
	}))

	spec, _ := interval.Parse("D1")
	_, err := f.Fetch(context.Background(), "C:EURUSD", spec, time.Now().Add(-time.Hour), time.Now())
	if !IsFatal(err) {
		t.Fatalf("error = %v, want FatalError", err)
	}
}

func TestPolygonFetch_PageLimitFlagsTruncation(t *testing.T) {
	f := newTestPolygon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder
		sb.WriteString(`{"status":"OK","results":[`)
		for i := 0; i < 3; i++ {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, `{"t":%d,"o":1,"h":1,"l":1,"c":1,"v":1}`, time.Date(2023, 1, 10+i, 0, 0, 0, 0, time.UTC).UnixMilli())
		}
		sb.WriteString(`]}`)
		fmt.Fprint(w, sb.String())
	}))
	f.PageLimit = 3 // shrink the limit so three rows look like a full page

	spec, _ := interval.Parse("D1")
	page, err := f.Fetch(context.Background(), "C:EURUSD", spec, time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if !page.Truncated {
		t.Error("expected truncation flag when row count equals the page limit")
	}
}
