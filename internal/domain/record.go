package domain

import (
	"fmt"
	"time"
)

// HoursPerBlock is the number of hourly values a 3-hour block splits into.
const HoursPerBlock = 3

// CalendarKey identifies the recurring calendar position of a 3-hour block:
// month, day of month, and block-start hour, ignoring the year.
type CalendarKey struct {
	Month int
	Day   int
	Hour  int
}

// KeyForTime derives the calendar key of the block starting at t.
func KeyForTime(t time.Time) CalendarKey {
	return CalendarKey{Month: int(t.Month()), Day: t.Day(), Hour: t.Hour()}
}

// Monthly drops the day component, producing the monthly fallback key.
func (k CalendarKey) Monthly() MonthKey {
	return MonthKey{Month: k.Month, Hour: k.Hour}
}

func (k CalendarKey) String() string {
	return fmt.Sprintf("%02d-%02d-%02d", k.Month, k.Day, k.Hour)
}

// MonthKey is the degraded lookup key pooling all days of a month that
// share a block-start hour.
type MonthKey struct {
	Month int
	Hour  int
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%02d-XX-%02d", k.Month, k.Hour)
}

// HourValue is one point of an hourly precipitation series.
type HourValue struct {
	Time   time.Time
	Amount float64
}

// BlockValue is one 3-hour aggregate; Time is the block start and the
// constituent hours are Time, Time+1h, Time+2h.
type BlockValue struct {
	Time   time.Time
	Amount float64
}

// WeightObservation is one hour's fraction of its block total in one
// historical year's instance of a calendar key.
type WeightObservation struct {
	Key         CalendarKey
	Year        int
	HourInBlock int     // 0, 1, or 2
	Weight      float64 // fraction of the block total, in [0,1]
	// Label is the historical hour this weight was observed at, formatted
	// "YYYY-MM-DD HH:00". Carried into output rows as provenance.
	Label string
}

// ObservationLabel formats the provenance label for one hour of a
// historical block starting in the given year at the key's position.
func ObservationLabel(year int, key CalendarKey, hourInBlock int) string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:00", year, key.Month, key.Day, key.Hour+hourInBlock)
}

// WeightTriple holds the three fractional weights of a block, indexed by
// hour-in-block. A valid triple sums to 1.0 within tolerance.
type WeightTriple [HoursPerBlock]float64

// UniformTriple is the terminal fallback: the block total split evenly.
func UniformTriple() WeightTriple {
	return WeightTriple{1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0}
}

// Sum returns the total of the three weights.
func (w WeightTriple) Sum() float64 {
	return w[0] + w[1] + w[2]
}

// Normalized scales the triple to sum 1.0. A zero (or negative) sum is
// degenerate and yields the uniform triple with ok=false so callers can
// log the substitution.
func (w WeightTriple) Normalized() (WeightTriple, bool) {
	sum := w.Sum()
	if sum <= 0 {
		return UniformTriple(), false
	}
	return WeightTriple{w[0] / sum, w[1] / sum, w[2] / sum}, true
}

// FutureBlock is a projected 3-hour precipitation total awaiting
// disaggregation.
type FutureBlock struct {
	CellID     int64
	BlockStart time.Time
	Total      float64
}

// DisaggregatedHour is one of the three hourly rows produced from a
// FutureBlock, with full provenance of the weight that shaped it.
type DisaggregatedHour struct {
	CellID        int64
	BlockStart    time.Time
	HourlyTime    time.Time
	BlockTotal    float64
	HourInBlock   int
	WeightUsed    float64
	Match         MatchLevel
	ReferenceDate string // label of the historical block the weights came from; empty for uniform fallbacks
	HourlyAmount  float64
}
