// Package resolver finds the canonical provider-side identifier for a
// user-typed symbol by probing namespace-qualified candidates in order,
// pausing a rate-limit cooldown between probes.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// LookupResult classifies one instrument-details probe. The provider client
// returns an explicit tag instead of leaving the resolver to inspect error
// strings.
type LookupResult int

const (
	LookupOK       LookupResult = iota // candidate exists, resolution done
	LookupNotFound                     // candidate unknown, try the next one
	LookupFatal                        // auth/quota/5xx, abort all probing
)

// LookupFunc asks the provider whether candidate is a known instrument.
// The error carries detail for LookupFatal and is ignored otherwise.
type LookupFunc func(ctx context.Context, candidate string) (LookupResult, error)

// ErrExhausted means every candidate came back not-found. Callers treat it
// as "no data", not as a failure.
var ErrExhausted = errors.New("ticker resolution exhausted")

// Resolver probes candidates against a quota-limited lookup endpoint.
type Resolver struct {
	Lookup   LookupFunc
	Cooldown time.Duration

	// sleep is replaceable in tests; the default waits for the cooldown
	// or the context, whichever ends first.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(lookup LookupFunc, cooldown time.Duration) *Resolver {
	return &Resolver{Lookup: lookup, Cooldown: cooldown, sleep: sleepCtx}
}

// Resolve probes rawSymbol as typed, then each prefix applied to it, in
// order. The first candidate the provider knows wins. Not-found probes are
// followed by a cooldown sleep; a fatal lookup error aborts immediately
// without sleeping or trying further candidates.
func (r *Resolver) Resolve(ctx context.Context, rawSymbol string, prefixes []string) (string, error) {
	candidates := make([]string, 0, len(prefixes)+1)
	candidates = append(candidates, rawSymbol)
	for _, p := range prefixes {
		candidates = append(candidates, p+rawSymbol)
	}

	for _, candidate := range candidates {
		result, err := r.Lookup(ctx, candidate)
		switch result {
		case LookupOK:
			return candidate, nil
		case LookupNotFound:
			log.Printf("[INFO] resolver: %q not found, cooling down %s", candidate, r.Cooldown)
			if err := r.sleep(ctx, r.Cooldown); err != nil {
				return "", err
			}
		case LookupFatal:
			if err == nil {
				err = errors.New("lookup failed")
			}
			return "", fmt.Errorf("resolve %q: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("%w: %q (%d candidates)", ErrExhausted, rawSymbol, len(candidates))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
