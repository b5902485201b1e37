package pet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaturationVaporPressure(t *testing.T) {
	// Magnus formula reference points.
	assert.InDelta(t, 6.108, SaturationVaporPressure(0), 1e-3)
	assert.InDelta(t, 23.383, SaturationVaporPressure(20), 1e-2)
}

func TestSlopeSaturationCurve(t *testing.T) {
	assert.InDelta(t, 1.447, SlopeSaturationCurve(20), 1e-2)

	// The slope grows with temperature.
	assert.Greater(t, SlopeSaturationCurve(30), SlopeSaturationCurve(10))
}

func TestDaily(t *testing.T) {
	// 20 degC, 200 W/m2: delta/(delta+gamma) ~ 0.690, rn = 17.28 MJ/m2/day.
	assert.InDelta(t, 15.02, Daily(20, 200), 0.05)

	// PET scales linearly with radiation at fixed temperature.
	assert.InDelta(t, 2*Daily(20, 100), Daily(20, 200), 1e-9)

	// No negative evapotranspiration.
	assert.Zero(t, Daily(20, -50))
	assert.Zero(t, Daily(-5, 0))
}

func TestDailySeries(t *testing.T) {
	d1 := time.Date(2030, time.July, 15, 0, 0, 0, 0, time.UTC)
	days := []DayInput{
		{Date: d1, MeanTempC: 20, MeanRadiation: 200},
		{Date: d1.AddDate(0, 0, 1), MeanTempC: 25, MeanRadiation: 250},
	}

	out := DailySeries(days)
	require.Len(t, out, 2)
	assert.True(t, out[0].Date.Equal(d1))
	assert.InDelta(t, Daily(20, 200), out[0].PET, 1e-12)
	assert.Greater(t, out[1].PET, out[0].PET)
}
