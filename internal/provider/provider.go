// Package provider implements remote bar sources behind a common Fetcher
// interface.
package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"MarketVault/internal/interval"
	"MarketVault/internal/model"
)

// Page is the result of one bounded-range bar request. Truncated is set
// when the row count hit the provider's single-page limit, meaning the
// range may extend past the last returned bar.
type Page struct {
	Bars      []model.Bar
	Truncated bool
}

// FatalError wraps provider failures that make further requests pointless
// within this acquisition (bad credentials, quota exhausted, 5xx, malformed
// request). Anything not wrapped in FatalError is recoverable.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal provider error: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err aborts the whole acquisition.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Fetcher is a remote bar source. Resolve maps a user-typed symbol to the
// provider's canonical identifier; Fetch retrieves bars for one bounded
// range. An empty page with a nil error means the provider has no data for
// the range.
type Fetcher interface {
	Name() string
	Resolve(ctx context.Context, rawSymbol string) (string, error)
	Fetch(ctx context.Context, canonical string, spec interval.Spec, start, end time.Time) (Page, error)
}

// newHTTPClient builds the shared provider HTTP client with optional proxy
// support and a per-request timeout.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
