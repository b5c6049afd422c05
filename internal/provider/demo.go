package provider

import (
	"hash/fnv"
	"math/rand"
	"time"

	"MarketVault/internal/interval"
	"MarketVault/internal/model"
)

// GenerateDemoBars produces a deterministic synthetic random walk for
// development and offline runs. The same (symbol, interval, range) always
// yields the same bars.
func GenerateDemoBars(symbol string, spec interval.Spec, start, end time.Time) []model.Bar {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(spec.Token))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	price := 50 + float64(h.Sum64()%200)
	var bars []model.Bar
	for t := start.UTC(); !t.After(end); t = spec.Next(t) {
		drift := (rng.Float64() - 0.5) * 0.02 * price
		open := price
		close := price + drift
		high := open
		if close > high {
			high = close
		}
		high *= 1 + rng.Float64()*0.005
		low := open
		if close < low {
			low = close
		}
		low *= 1 - rng.Float64()*0.005
		bars = append(bars, model.Bar{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: float64(100000 + rng.Intn(900000)),
		})
		price = close
	}
	return bars
}
