package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"MarketVault/internal/interval"
	"MarketVault/internal/model"
)

func day(d int) time.Time {
	return time.Date(2023, 1, d, 0, 0, 0, 0, time.UTC)
}

func bars(days ...int) []model.Bar {
	out := make([]model.Bar, len(days))
	for i, d := range days {
		out[i] = model.Bar{Time: day(d), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: float64(d)}
	}
	return out
}

func testKey() Key {
	return Key{Source: model.SourcePolygon, Symbol: "C:EURUSD", Interval: "D1"}
}

func TestLookup_Absent(t *testing.T) {
	s := NewStore(t.TempDir())
	entry, err := s.Lookup(testKey())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry for absent key, got %+v", entry)
	}
}

func TestPersistLookup_RoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	key := testKey()
	rows := bars(10, 11, 12)
	if err := s.Persist(key, rows); err != nil {
		t.Fatalf("persist: %v", err)
	}
	entry, err := s.Lookup(key)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if entry == nil || len(entry.Rows) != len(rows) {
		t.Fatalf("expected %d rows, got %+v", len(rows), entry)
	}
	for i, row := range entry.Rows {
		if !row.Time.Equal(rows[i].Time) || row.Volume != rows[i].Volume {
			t.Errorf("row %d = %+v, want %+v", i, row, rows[i])
		}
	}
	// File name must carry the sanitized symbol, not the raw one.
	if base := filepath.Base(entry.Path); strings.Contains(base, ":") {
		t.Errorf("unsanitized cache file name: %s", base)
	}
}

func TestPersist_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.Persist(testKey(), bars(10)); err != nil {
		t.Fatalf("persist: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "polygon"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 file after persist, got %d", len(entries))
	}
}

func TestLookup_Corrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	key := testKey()
	if err := os.MkdirAll(filepath.Dir(s.Path(key)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(key), []byte("timestamp,open,high,low,close,volume\nnot-a-date,1,2,3,4,5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Lookup(key); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("error = %v, want ErrCorrupt", err)
	}
}

func TestMerge_SortedDedupedFetchedWins(t *testing.T) {
	existing := bars(10, 11, 12)
	fetched := bars(12, 13)
	fetched[0].Close = 99 // overlapping boundary row, refetched value

	merged := Merge(existing, fetched)
	if len(merged) != 4 {
		t.Fatalf("expected 4 merged rows, got %d", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if !merged[i-1].Time.Before(merged[i].Time) {
			t.Fatalf("merged rows not strictly ascending at %d", i)
		}
	}
	if merged[2].Close != 99 {
		t.Errorf("duplicate timestamp kept stale value: close = %v, want 99", merged[2].Close)
	}
}

func TestMerge_OrderIndependentRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	key := testKey()
	a := bars(12, 10, 14)
	b := bars(11, 12, 13)
	if err := s.Persist(key, Merge(a, b)); err != nil {
		t.Fatalf("persist: %v", err)
	}
	entry, err := s.Lookup(key)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(entry.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(entry.Rows))
	}
	for i := 1; i < len(entry.Rows); i++ {
		if !entry.Rows[i-1].Time.Before(entry.Rows[i].Time) {
			t.Fatalf("persisted rows not strictly ascending at %d", i)
		}
	}
}

func TestSlice_Inclusive(t *testing.T) {
	rows := bars(10, 11, 12, 13, 14)
	got := Slice(rows, day(11), day(13))
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if !got[0].Time.Equal(day(11)) || !got[2].Time.Equal(day(13)) {
		t.Errorf("slice bounds wrong: [%v, %v]", got[0].Time, got[2].Time)
	}
}

func TestGaps_TrailingOnly(t *testing.T) {
	spec, err := interval.Parse("D1")
	if err != nil {
		t.Fatal(err)
	}
	entry := &Entry{Rows: bars(10, 11, 12)}

	gaps := Gaps(entry, spec, day(10), day(15))
	if len(gaps) != 1 {
		t.Fatalf("expected 1 trailing gap, got %d", len(gaps))
	}
	if !gaps[0].Start.Equal(day(13)) || !gaps[0].End.Equal(day(15)) {
		t.Errorf("gap = [%v, %v], want [Jan 13, Jan 15]", gaps[0].Start, gaps[0].End)
	}

	// Full coverage: no gap.
	if gaps := Gaps(entry, spec, day(10), day(12)); len(gaps) != 0 {
		t.Errorf("expected no gap for covered range, got %v", gaps)
	}

	// Leading gap is not computed.
	if gaps := Gaps(entry, spec, day(5), day(12)); len(gaps) != 0 {
		t.Errorf("leading gap should not be computed, got %v", gaps)
	}

	// No cache at all: whole range is the gap.
	gaps = Gaps(nil, spec, day(10), day(15))
	if len(gaps) != 1 || !gaps[0].Start.Equal(day(10)) || !gaps[0].End.Equal(day(15)) {
		t.Errorf("absent entry gap = %v, want full range", gaps)
	}
}
