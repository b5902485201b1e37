// Package climatology derives and indexes the historical sub-period weight
// distributions that drive stochastic disaggregation. All of it runs once
// at startup; the resulting structures are immutable afterward and safe
// for unsynchronized concurrent reads.
package climatology

import (
	"sort"
	"time"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

// ExtractObservations pairs each historical 3-hour block with its three
// constituent hourly values and emits one weight observation per hour.
//
// Both series are expected positive-only. Hours missing from the hourly
// series count as 0. A block whose three hourly values sum to 0 carries no
// sub-period shape information and contributes nothing. Weights are
// fractions of the hourly sum (not of the 3-hourly total, which may
// disagree slightly when the series come from separate aggregations), so
// each emitted triple sums to 1.0 by construction.
func ExtractObservations(hourly []domain.HourValue, blocks []domain.BlockValue) []domain.WeightObservation {
	byHour := make(map[int64]float64, len(hourly))
	for _, h := range hourly {
		byHour[h.Time.UTC().Unix()] = h.Amount
	}

	obs := make([]domain.WeightObservation, 0, len(blocks)*domain.HoursPerBlock)
	for _, block := range blocks {
		if block.Amount <= 0 {
			continue
		}

		var values [domain.HoursPerBlock]float64
		var sum float64
		for i := 0; i < domain.HoursPerBlock; i++ {
			hourTime := block.Time.Add(time.Duration(i) * time.Hour)
			values[i] = byHour[hourTime.UTC().Unix()]
			sum += values[i]
		}
		if sum <= 0 {
			continue
		}

		key := domain.KeyForTime(block.Time)
		year := block.Time.UTC().Year()
		for i := 0; i < domain.HoursPerBlock; i++ {
			obs = append(obs, domain.WeightObservation{
				Key:         key,
				Year:        year,
				HourInBlock: i,
				Weight:      values[i] / sum,
				Label:       domain.ObservationLabel(year, key, i),
			})
		}
	}
	return obs
}

// SortObservations orders observations canonically: by calendar key, year,
// then hour-in-block. Table output and index candidate order both rely on
// this so that downstream sampling is independent of input ordering.
func SortObservations(obs []domain.WeightObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		a, b := obs[i], obs[j]
		if a.Key != b.Key {
			if a.Key.Month != b.Key.Month {
				return a.Key.Month < b.Key.Month
			}
			if a.Key.Day != b.Key.Day {
				return a.Key.Day < b.Key.Day
			}
			return a.Key.Hour < b.Key.Hour
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.HourInBlock < b.HourInBlock
	})
}
