package provider

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"MarketVault/internal/interval"
)

func TestCSVSource_Load(t *testing.T) {
	dir := t.TempDir()
	content := "timestamp,open,high,low,close,volume\n" +
		"2023-01-11,1.1,1.2,1.0,1.15,2000\n" +
		"2023-01-10,1.0,1.1,0.9,1.05,1000\n"
	if err := os.WriteFile(filepath.Join(dir, "mydata.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	bars, err := NewCSVSource(dir).Load("mydata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	// Rows come back sorted even when the file is not.
	want := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	if !bars[0].Time.Equal(want) {
		t.Errorf("first bar time = %v, want %v", bars[0].Time, want)
	}
	if bars[0].Close != 1.05 {
		t.Errorf("first bar close = %v, want 1.05", bars[0].Close)
	}
}

func TestCSVSource_MissingFile(t *testing.T) {
	if _, err := NewCSVSource(t.TempDir()).Load("nope"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestGenerateDemoBars_Deterministic(t *testing.T) {
	spec, _ := interval.Parse("D1")
	start := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC)

	a := GenerateDemoBars("TESTSYM", spec, start, end)
	b := GenerateDemoBars("TESTSYM", spec, start, end)
	if len(a) != 11 {
		t.Fatalf("bars = %d, want 11", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs between identical calls", i)
		}
	}

	c := GenerateDemoBars("OTHERSYM", spec, start, end)
	if a[0].Open == c[0].Open && a[0].Close == c[0].Close {
		t.Error("different symbols should produce different walks")
	}
}
