package model

import "fmt"

// Source identifies where bar data comes from.
type Source string

const (
	SourceCSV     Source = "csv"     // local CSV files, no remote identity
	SourceDemo    Source = "demo"    // deterministic synthetic bars
	SourcePolygon Source = "polygon" // polygon-style REST API
	SourceYahoo   Source = "yahoo"   // Yahoo Finance chart API
	SourceBinance Source = "binance" // Binance klines API
)

// ParseSource validates a user-supplied source name.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceCSV, SourceDemo, SourcePolygon, SourceYahoo, SourceBinance:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown data source %q", s)
}

// Local reports whether the source has no remote identity; local sources
// skip resolution and caching entirely.
func (s Source) Local() bool {
	return s == SourceCSV || s == SourceDemo
}
