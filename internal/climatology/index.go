package climatology

import (
	"sort"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

// Candidates is the pool of year-tagged weight observations available at
// one lookup level. Years are distinct and ascending so a seeded draw
// over them is a pure function of the seed and the pool contents.
type Candidates struct {
	years  []int
	byYear map[int][]domain.WeightObservation
	all    []domain.WeightObservation
}

// Years returns the distinct years present, ascending. The slice is
// shared; callers must not mutate it.
func (c *Candidates) Years() []int { return c.years }

// ByYear returns the observations of one year within this pool.
func (c *Candidates) ByYear(year int) []domain.WeightObservation { return c.byYear[year] }

// All returns every observation in the pool in canonical order.
func (c *Candidates) All() []domain.WeightObservation { return c.all }

// Empty reports whether the pool has no observations.
func (c *Candidates) Empty() bool { return c == nil || len(c.all) == 0 }

// Index holds the two immutable lookup structures the sampler consults:
// an exact index keyed by full calendar key and a monthly fallback index
// pooling all days of a (month, block-start hour). Built once from the
// per-year weight observations, read-only afterward.
type Index struct {
	exact   map[domain.CalendarKey]*Candidates
	monthly map[domain.MonthKey]*Candidates
}

// BuildIndex constructs both indices from per-year weight observations.
// The input is sorted canonically first so candidate order (and therefore
// every downstream sampling decision) does not depend on how the
// observations were produced or loaded.
func BuildIndex(obs []domain.WeightObservation) *Index {
	sorted := make([]domain.WeightObservation, len(obs))
	copy(sorted, obs)
	SortObservations(sorted)

	ix := &Index{
		exact:   make(map[domain.CalendarKey]*Candidates),
		monthly: make(map[domain.MonthKey]*Candidates),
	}
	for _, o := range sorted {
		addCandidate(ix.exactFor(o.Key), o)
		addCandidate(ix.monthlyFor(o.Key.Monthly()), o)
	}
	for _, c := range ix.exact {
		sort.Ints(c.years)
	}
	for _, c := range ix.monthly {
		sort.Ints(c.years)
	}
	return ix
}

func (ix *Index) exactFor(key domain.CalendarKey) *Candidates {
	c, ok := ix.exact[key]
	if !ok {
		c = &Candidates{byYear: make(map[int][]domain.WeightObservation)}
		ix.exact[key] = c
	}
	return c
}

func (ix *Index) monthlyFor(key domain.MonthKey) *Candidates {
	c, ok := ix.monthly[key]
	if !ok {
		c = &Candidates{byYear: make(map[int][]domain.WeightObservation)}
		ix.monthly[key] = c
	}
	return c
}

func addCandidate(c *Candidates, o domain.WeightObservation) {
	if _, seen := c.byYear[o.Year]; !seen {
		c.years = append(c.years, o.Year)
	}
	c.byYear[o.Year] = append(c.byYear[o.Year], o)
	c.all = append(c.all, o)
}

// Exact returns the candidate pool for a full calendar key, or nil.
func (ix *Index) Exact(key domain.CalendarKey) *Candidates {
	return ix.exact[key]
}

// Monthly returns the pooled candidates for a (month, hour) key, or nil.
func (ix *Index) Monthly(key domain.MonthKey) *Candidates {
	return ix.monthly[key]
}

// ExactKeys reports how many distinct exact calendar keys are indexed.
func (ix *Index) ExactKeys() int { return len(ix.exact) }

// MonthlyKeys reports how many distinct monthly keys are indexed.
func (ix *Index) MonthlyKeys() int { return len(ix.monthly) }
