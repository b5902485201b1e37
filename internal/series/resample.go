// Package series resamples raw gauge records into the fixed-width sums
// the weight builder consumes.
package series

import (
	"sort"
	"time"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

// SumByWindow aggregates a precipitation series into fixed windows by
// summing, anchored at midnight UTC (a 3h window covers 00:00-03:00,
// 03:00-06:00, ...). Each output point is stamped with its window start.
// Empty windows produce no output point. Results are sorted by time.
func SumByWindow(points []domain.HourValue, window time.Duration) []domain.HourValue {
	if window <= 0 {
		window = time.Hour
	}

	sums := make(map[int64]float64)
	for _, p := range points {
		start := p.Time.UTC().Truncate(window)
		sums[start.Unix()] += p.Amount
	}

	out := make([]domain.HourValue, 0, len(sums))
	for unix, amount := range sums {
		out = append(out, domain.HourValue{Time: time.Unix(unix, 0).UTC(), Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// Hourly sums a sub-hourly series into 1-hour buckets.
func Hourly(points []domain.HourValue) []domain.HourValue {
	return SumByWindow(points, time.Hour)
}

// ThreeHourly sums a series into 3-hour buckets aligned to 00/03/.../21.
func ThreeHourly(points []domain.HourValue) []domain.BlockValue {
	summed := SumByWindow(points, 3*time.Hour)
	blocks := make([]domain.BlockValue, len(summed))
	for i, p := range summed {
		blocks[i] = domain.BlockValue{Time: p.Time, Amount: p.Amount}
	}
	return blocks
}

// PositiveOnly filters a series down to strictly positive amounts. Zero
// rows carry no shape information and only inflate the pairing pass.
func PositiveOnly(points []domain.HourValue) []domain.HourValue {
	out := make([]domain.HourValue, 0, len(points))
	for _, p := range points {
		if p.Amount > 0 {
			out = append(out, p)
		}
	}
	return out
}
