// Package pet computes potential evapotranspiration with the
// Priestley-Taylor method from near-surface air temperature and downward
// shortwave radiation.
package pet

import (
	"math"
	"time"
)

const (
	// alpha is the Priestley-Taylor coefficient.
	alpha = 1.26
	// gamma is the psychrometric constant [hPa/degC].
	gamma = 0.65
	// wm2ToMJPerDay converts W/m2 to MJ/m2/day (86400 s / 1e6 J).
	wm2ToMJPerDay = 0.0864
)

// SaturationVaporPressure returns the Magnus-formula saturation vapor
// pressure [hPa] at the given temperature [degC].
func SaturationVaporPressure(tempC float64) float64 {
	return 6.108 * math.Exp((17.27*tempC)/(tempC+237.3))
}

// SlopeSaturationCurve returns the slope of the saturation vapor pressure
// curve [hPa/degC] at the given temperature.
func SlopeSaturationCurve(tempC float64) float64 {
	eStar := SaturationVaporPressure(tempC)
	return (4098 * eStar) / math.Pow(tempC+237.3, 2)
}

// Daily returns Priestley-Taylor PET [mm/day] from a daily mean
// temperature [degC] and daily mean shortwave radiation [W/m2]. Negative
// results (nighttime-dominated radiation balances) are clamped to 0.
func Daily(tempC, radiationWm2 float64) float64 {
	delta := SlopeSaturationCurve(tempC)
	rn := radiationWm2 * wm2ToMJPerDay
	v := alpha * (delta / (delta + gamma)) * rn
	if v < 0 {
		return 0
	}
	return v
}

// DayValue is one day's PET for a cell.
type DayValue struct {
	Date time.Time
	PET  float64
}

// DayInput is the daily climate forcing for one cell.
type DayInput struct {
	Date          time.Time
	MeanTempC     float64
	MeanRadiation float64
}

// DailySeries computes PET for a run of daily means.
func DailySeries(days []DayInput) []DayValue {
	out := make([]DayValue, len(days))
	for i, d := range days {
		out[i] = DayValue{Date: d.Date, PET: Daily(d.MeanTempC, d.MeanRadiation)}
	}
	return out
}
