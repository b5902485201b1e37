package climatology

import (
	"math"
	"sort"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

// SlotStats summarizes the cross-year weight distribution of one
// (calendar key, hour-in-block) slot.
type SlotStats struct {
	Mean  float64
	Std   float64
	Count int
}

// KeySummary is the aggregated view of one calendar key: per-slot stats
// plus the normalized mean triple when all three slots are populated.
//
// An incomplete key (fewer than three populated slots) keeps its raw
// stats for diagnostics but gets no representative triple; lookups
// resolve it through the sampler's fallback chain instead of a silently
// zero-filled vector.
type KeySummary struct {
	Key      domain.CalendarKey
	Slots    [domain.HoursPerBlock]SlotStats
	Weights  domain.WeightTriple
	Complete bool
}

// Aggregate groups weight observations by (calendar key, hour-in-block)
// across years, computes mean/std/count per slot, and renormalizes each
// complete key's mean vector to sum 1.0 (a degenerate zero sum becomes
// the uniform triple). Summaries are returned sorted by calendar key.
func Aggregate(obs []domain.WeightObservation) []KeySummary {
	type slotAccum struct {
		sum   float64
		sumSq float64
		count int
	}
	accum := make(map[domain.CalendarKey]*[domain.HoursPerBlock]slotAccum)
	for _, o := range obs {
		slots, ok := accum[o.Key]
		if !ok {
			slots = &[domain.HoursPerBlock]slotAccum{}
			accum[o.Key] = slots
		}
		slots[o.HourInBlock].sum += o.Weight
		slots[o.HourInBlock].sumSq += o.Weight * o.Weight
		slots[o.HourInBlock].count++
	}

	summaries := make([]KeySummary, 0, len(accum))
	for key, slots := range accum {
		s := KeySummary{Key: key, Complete: true}
		var means domain.WeightTriple
		for i := 0; i < domain.HoursPerBlock; i++ {
			a := slots[i]
			if a.count == 0 {
				s.Complete = false
				continue
			}
			mean := a.sum / float64(a.count)
			variance := a.sumSq/float64(a.count) - mean*mean
			if variance < 0 {
				variance = 0
			}
			s.Slots[i] = SlotStats{Mean: mean, Std: math.Sqrt(variance), Count: a.count}
			means[i] = mean
		}
		if s.Complete {
			s.Weights, _ = means.Normalized()
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i].Key, summaries[j].Key
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Hour < b.Hour
	})
	return summaries
}
