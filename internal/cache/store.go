// Package cache maintains per-(source, symbol, interval) bar files so that
// repeated or overlapping requests avoid redundant remote calls.
package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"MarketVault/internal/interval"
	"MarketVault/internal/model"
)

// ErrCorrupt marks a cache file that could not be parsed. Callers treat it
// as a cache miss and refetch.
var ErrCorrupt = errors.New("corrupt cache file")

// Key identifies one cache entry.
type Key struct {
	Source   model.Source
	Symbol   string // canonical, provider-qualified symbol
	Interval string // normalized interval token
}

// Entry is the decoded content of one cache file. Rows are ascending by
// timestamp with no duplicates.
type Entry struct {
	Path string
	Rows []model.Bar
}

// Coverage returns the contiguous timestamp span of the entry.
func (e *Entry) Coverage() (start, end time.Time, ok bool) {
	if e == nil || len(e.Rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return e.Rows[0].Time, e.Rows[len(e.Rows)-1].Time, true
}

// Covers reports whether the entry fully contains [start, end].
func (e *Entry) Covers(start, end time.Time) bool {
	cs, ce, ok := e.Coverage()
	return ok && !cs.After(start) && !ce.Before(end)
}

// Range is a closed timestamp interval.
type Range struct {
	Start time.Time
	End   time.Time
}

// Store reads and writes bar files under Dir, one subdirectory per source.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store { return &Store{Dir: dir} }

// sanitizeSymbol keeps cache file names portable: provider namespace
// qualifiers like "C:EURUSD" become "C-EURUSD".
func sanitizeSymbol(symbol string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '-'
	}, symbol)
}

// Path returns the cache file location for a key.
func (s *Store) Path(key Key) string {
	name := fmt.Sprintf("%s_%s_%s.csv", key.Source, sanitizeSymbol(key.Symbol), key.Interval)
	return filepath.Join(s.Dir, string(key.Source), name)
}

var header = []string{"timestamp", "open", "high", "low", "close", "volume"}

// Lookup reads the cache entry for key. A missing file returns (nil, nil);
// an unparsable file returns ErrCorrupt so the caller can refetch.
func (s *Store) Lookup(key Key) (*Entry, error) {
	path := s.Path(key)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if len(records) == 0 || len(records[0]) != len(header) {
		return nil, fmt.Errorf("%w: %s: bad header", ErrCorrupt, path)
	}
	rows := make([]model.Bar, 0, len(records)-1)
	for _, rec := range records[1:] {
		bar, err := decodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		}
		rows = append(rows, bar)
	}
	return &Entry{Path: path, Rows: rows}, nil
}

func decodeRow(rec []string) (model.Bar, error) {
	if len(rec) != len(header) {
		return model.Bar{}, fmt.Errorf("expected %d fields, got %d", len(header), len(rec))
	}
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return model.Bar{}, fmt.Errorf("timestamp %q: %v", rec[0], err)
	}
	vals := make([]float64, 5)
	for i, field := range rec[1:] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("%s %q: %v", header[i+1], field, err)
		}
		vals[i] = v
	}
	return model.Bar{
		Time:   ts.UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// Persist overwrites the cache file for key with rows. The write goes to a
// temporary file first and is renamed into place, so an interrupted write
// never leaves a partial file visible to readers.
func (s *Store) Persist(key Key, rows []model.Bar) error {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache header: %w", err)
	}
	for _, bar := range rows {
		rec := []string{
			bar.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
			strconv.FormatFloat(bar.Volume, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("write cache row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Gaps computes the sub-ranges of [start, end] not covered by the entry.
// Only the trailing gap is computed: if the cache ends before the requested
// end, the gap runs from one interval step past the cache end to the
// requested end. Leading gaps and interior holes are not filled.
func Gaps(entry *Entry, spec interval.Spec, start, end time.Time) []Range {
	_, ce, ok := entry.Coverage()
	if !ok {
		return []Range{{Start: start, End: end}}
	}
	if !ce.Before(end) {
		return nil
	}
	gapStart := spec.Next(ce)
	if gapStart.After(end) {
		return nil
	}
	return []Range{{Start: gapStart, End: end}}
}

// Merge combines previously cached rows with freshly fetched ones: sorted
// ascending by timestamp, duplicate timestamps resolved in favor of the
// fetched row.
func Merge(existing, fetched []model.Bar) []model.Bar {
	byTime := make(map[int64]model.Bar, len(existing)+len(fetched))
	for _, bar := range existing {
		byTime[bar.Time.UnixNano()] = bar
	}
	for _, bar := range fetched {
		byTime[bar.Time.UnixNano()] = bar
	}
	merged := make([]model.Bar, 0, len(byTime))
	for _, bar := range byTime {
		merged = append(merged, bar)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })
	return merged
}

// Slice returns the rows whose timestamps fall within [start, end] inclusive.
func Slice(rows []model.Bar, start, end time.Time) []model.Bar {
	lo := sort.Search(len(rows), func(i int) bool { return !rows[i].Time.Before(start) })
	hi := sort.Search(len(rows), func(i int) bool { return rows[i].Time.After(end) })
	out := make([]model.Bar, hi-lo)
	copy(out, rows[lo:hi])
	return out
}
