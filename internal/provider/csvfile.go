package provider

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"MarketVault/internal/model"
)

// CSVSource loads bars from local files, one file per symbol. Local data
// has no remote identity, so there is no resolution and no caching on top.
type CSVSource struct {
	Dir string
}

func NewCSVSource(dir string) *CSVSource { return &CSVSource{Dir: dir} }

// Load reads {dir}/{symbol}.csv. The expected layout is a header row
// followed by timestamp,open,high,low,close,volume records; timestamps may
// be RFC3339 or plain dates.
func (s *CSVSource) Load(symbol string) ([]model.Bar, error) {
	path := filepath.Join(s.Dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv source: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv source %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv source %s: no data rows", path)
	}
	bars := make([]model.Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 6 {
			return nil, fmt.Errorf("csv source %s row %d: expected 6 fields, got %d", path, i+2, len(rec))
		}
		ts, err := parseCSVTime(rec[0])
		if err != nil {
			return nil, fmt.Errorf("csv source %s row %d: %w", path, i+2, err)
		}
		vals := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("csv source %s row %d field %d: %w", path, i+2, j, err)
			}
			vals[j-1] = v
		}
		bars = append(bars, model.Bar{
			Time:   ts,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseCSVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}
