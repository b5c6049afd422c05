// Package interval translates human timeframe tokens (M1, H1, D1, W1, MN1)
// into provider-native interval specs.
package interval

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Unit is a provider-native time unit.
type Unit string

const (
	Minute Unit = "minute"
	Hour   Unit = "hour"
	Day    Unit = "day"
	Week   Unit = "week"
	Month  Unit = "month"
)

// Spec is a parsed timeframe: a normalized token plus the provider-native
// unit and multiplier it stands for. Multiplier is always > 0.
type Spec struct {
	Token      string
	Unit       Unit
	Multiplier int
}

// ErrUnrecognizedInterval is returned for tokens that are neither a known
// alias nor a raw unit name.
var ErrUnrecognizedInterval = errors.New("unrecognized interval")

// aliases maps uppercase human tokens to their provider-native meaning.
var aliases = map[string]Spec{
	"M1":  {Token: "M1", Unit: Minute, Multiplier: 1},
	"H1":  {Token: "H1", Unit: Hour, Multiplier: 1},
	"D1":  {Token: "D1", Unit: Day, Multiplier: 1},
	"W1":  {Token: "W1", Unit: Week, Multiplier: 1},
	"MN1": {Token: "MN1", Unit: Month, Multiplier: 1},
}

// Parse maps a case-insensitive timeframe token to its Spec. Unknown tokens
// fall back to raw unit names ("hour", "day", ...) with multiplier 1.
func Parse(token string) (Spec, error) {
	if spec, ok := aliases[strings.ToUpper(token)]; ok {
		return spec, nil
	}
	switch u := Unit(strings.ToLower(token)); u {
	case Minute, Hour, Day, Week, Month:
		return Spec{Token: string(u), Unit: u, Multiplier: 1}, nil
	}
	return Spec{}, fmt.Errorf("%w: %q", ErrUnrecognizedInterval, token)
}

// Next returns the timestamp exactly one interval step after t. Months are
// calendar-aware; all other units are fixed durations.
func (s Spec) Next(t time.Time) time.Time {
	switch s.Unit {
	case Month:
		return t.AddDate(0, s.Multiplier, 0)
	default:
		return t.Add(s.Step())
	}
}

// Step returns the fixed duration of one interval for non-month units.
// For months it returns an approximation (31 days) usable only for
// lookback sizing, never for boundary arithmetic.
func (s Spec) Step() time.Duration {
	m := time.Duration(s.Multiplier)
	switch s.Unit {
	case Minute:
		return m * time.Minute
	case Hour:
		return m * time.Hour
	case Day:
		return m * 24 * time.Hour
	case Week:
		return m * 7 * 24 * time.Hour
	case Month:
		return m * 31 * 24 * time.Hour
	}
	return 0
}
