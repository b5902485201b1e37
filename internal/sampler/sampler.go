// Package sampler resolves one weight triple per future block by seeded
// random choice over the historical candidate pools, degrading through a
// fixed chain of match levels when candidates are missing or incomplete.
package sampler

import (
	"log/slog"
	"math/rand"

	"github.com/couchcryptid/precip-disagg-service/internal/climatology"
	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

// maxAttempts bounds the redraws when a sampled year turns out not to
// cover all three block hours.
const maxAttempts = 10

// Selection is the outcome of resolving one future block: the weight
// triple to apply, how specifically it was matched, and the historical
// block it came from (empty for uniform fallbacks).
type Selection struct {
	Weights   domain.WeightTriple
	Match     domain.MatchLevel
	Reference string
}

// Sampler draws weight triples from the climatology index. It holds only
// read-only state plus the run seed, so a single instance is safe for
// concurrent use by parallel pipeline workers.
type Sampler struct {
	index  *climatology.Index
	seed   int64
	logger *slog.Logger
}

// New creates a Sampler over a built index. The seed drives every
// per-record generator; two samplers with equal seeds over equal indices
// make identical choices.
func New(index *climatology.Index, seed int64, logger *slog.Logger) *Sampler {
	return &Sampler{index: index, seed: seed, logger: logger}
}

// Select resolves the weight triple for one future block.
//
// The fallback chain: exact calendar key, then the monthly pool, then the
// uniform split. Within a pool it draws years uniformly at random until
// one covers all three block hours; after maxAttempts it falls back to
// the per-slot mean over the whole pool (match level suffixed _AVG), and
// if even that is incomplete, to the uniform split with level ERROR.
//
// The generator is seeded from (run seed, cell id, block start) so the
// draw sequence for a record never depends on which records preceded it.
func (s *Sampler) Select(block domain.FutureBlock) Selection {
	key := domain.KeyForTime(block.BlockStart)

	level := domain.MatchExact
	pool := s.index.Exact(key)
	if pool.Empty() {
		level = domain.MatchMonthly
		pool = s.index.Monthly(key.Monthly())
	}
	if pool.Empty() {
		s.logger.Warn("no climatology candidates, splitting evenly",
			"cell_id", block.CellID, "key", key.String())
		return Selection{Weights: domain.UniformTriple(), Match: domain.MatchUniform}
	}

	rng := rand.New(rand.NewSource(domain.RecordSeed(s.seed, block.CellID, block.BlockStart)))
	years := pool.Years()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		year := years[rng.Intn(len(years))]
		if triple, ref, ok := completeTriple(pool.ByYear(year)); ok {
			return Selection{Weights: triple, Match: level, Reference: ref}
		}
	}

	if means, ref, ok := slotMeans(pool.All()); ok {
		triple, normOK := means.Normalized()
		if !normOK {
			s.logger.Warn("degenerate weight sum in averaged fallback, splitting evenly",
				"cell_id", block.CellID, "key", key.String(), "match_level", level.String())
		}
		return Selection{Weights: triple, Match: level.Averaged(), Reference: ref}
	}

	s.logger.Warn("candidate pool never covers the full block, splitting evenly",
		"cell_id", block.CellID, "key", key.String(), "match_level", level.String())
	return Selection{Weights: domain.UniformTriple(), Match: domain.MatchError}
}

// completeTriple accepts a year's observations only when they are exactly
// one observation per hour-in-block. The reference is the label of the
// block's first hour.
func completeTriple(obs []domain.WeightObservation) (domain.WeightTriple, string, bool) {
	if len(obs) != domain.HoursPerBlock {
		return domain.WeightTriple{}, "", false
	}
	var triple domain.WeightTriple
	var seen [domain.HoursPerBlock]bool
	var ref string
	for _, o := range obs {
		if o.HourInBlock < 0 || o.HourInBlock >= domain.HoursPerBlock || seen[o.HourInBlock] {
			return domain.WeightTriple{}, "", false
		}
		seen[o.HourInBlock] = true
		triple[o.HourInBlock] = o.Weight
		if o.HourInBlock == 0 {
			ref = o.Label
		}
	}
	return triple, ref, true
}

// slotMeans averages the pool per hour-in-block. It fails when any slot
// has no observations at all; the reference is the pool's first label.
func slotMeans(obs []domain.WeightObservation) (domain.WeightTriple, string, bool) {
	var sums [domain.HoursPerBlock]float64
	var counts [domain.HoursPerBlock]int
	for _, o := range obs {
		if o.HourInBlock < 0 || o.HourInBlock >= domain.HoursPerBlock {
			continue
		}
		sums[o.HourInBlock] += o.Weight
		counts[o.HourInBlock]++
	}
	var means domain.WeightTriple
	for i := 0; i < domain.HoursPerBlock; i++ {
		if counts[i] == 0 {
			return domain.WeightTriple{}, "", false
		}
		means[i] = sums[i] / float64(counts[i])
	}
	return means, obs[0].Label, true
}
