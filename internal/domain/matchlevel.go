package domain

import "fmt"

// MatchLevel records how specifically a weight triple was resolved for a
// future block. It is a closed enumeration so the sampler's fallback
// chain stays exhaustive and testable.
type MatchLevel int

const (
	// MatchExact: a single historical year at the exact (month, day,
	// hour) key supplied a complete triple.
	MatchExact MatchLevel = iota
	// MatchMonthly: the exact key was empty; a year from the (month,
	// hour) pool supplied the triple.
	MatchMonthly
	// MatchExactAvg: no sampled year at the exact key was complete; the
	// per-slot mean over all exact candidates was used.
	MatchExactAvg
	// MatchMonthlyAvg: averaged fallback over the monthly pool.
	MatchMonthlyAvg
	// MatchUniform: no candidates at any level; even 1/3 split.
	MatchUniform
	// MatchError: candidates existed but not even the averaged triple
	// covered all three slots; even 1/3 split.
	MatchError
)

var matchLevelNames = map[MatchLevel]string{
	MatchExact:      "EXACT",
	MatchMonthly:    "MONTHLY",
	MatchExactAvg:   "EXACT_AVG",
	MatchMonthlyAvg: "MONTHLY_AVG",
	MatchUniform:    "UNIFORM",
	MatchError:      "ERROR",
}

func (m MatchLevel) String() string {
	if s, ok := matchLevelNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MatchLevel(%d)", int(m))
}

// Averaged maps a base match level to its averaged-fallback variant.
// Only MatchExact and MatchMonthly have one.
func (m MatchLevel) Averaged() MatchLevel {
	switch m {
	case MatchExact:
		return MatchExactAvg
	case MatchMonthly:
		return MatchMonthlyAvg
	default:
		return m
	}
}

// ParseMatchLevel inverts String. Used when reading result rows back.
func ParseMatchLevel(s string) (MatchLevel, error) {
	for level, name := range matchLevelNames {
		if name == s {
			return level, nil
		}
	}
	return MatchError, fmt.Errorf("unknown match level %q", s)
}

// MatchLevels lists all levels in histogram/report order.
func MatchLevels() []MatchLevel {
	return []MatchLevel{MatchExact, MatchMonthly, MatchExactAvg, MatchMonthlyAvg, MatchUniform, MatchError}
}
