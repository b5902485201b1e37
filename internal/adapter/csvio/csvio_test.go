package csvio

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadGauge(t *testing.T) {
	path := writeFile(t, "gauge.csv",
		"time;pr\n"+
			"1998.07.15 06:00;0.2\n"+
			"1998.07.15 06:10;0\n"+
			"1998.07.15 06:20;1.4\n")

	points, err := ReadGauge(path)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.True(t, points[0].Time.Equal(time.Date(1998, time.July, 15, 6, 0, 0, 0, time.UTC)))
	assert.InDelta(t, 0.2, points[0].Amount, 1e-9)
	assert.InDelta(t, 0.0, points[1].Amount, 1e-9)
	assert.True(t, points[2].Time.Equal(time.Date(1998, time.July, 15, 6, 20, 0, 0, time.UTC)))
}

func TestReadGauge_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"wrong header", "datetime;precip\n1998.07.15 06:00;0.2\n"},
		{"bad timestamp", "time;pr\n15.07.1998 06:00;0.2\n"},
		{"bad amount", "time;pr\n1998.07.15 06:00;n/a\n"},
		{"comma separated", "time,pr\n1998.07.15 06:00,0.2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGauge(writeFile(t, "gauge.csv", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestWriteAndReadSeries(t *testing.T) {
	base := time.Date(1998, time.July, 15, 6, 0, 0, 0, time.UTC)
	points := []domain.HourValue{
		{Time: base, Amount: 0.2},
		{Time: base.Add(time.Hour), Amount: 1.456789},
	}

	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, WriteSeries(path, points))

	got, err := ReadSeries(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Time.Equal(base))
	assert.InDelta(t, 0.2, got[0].Amount, 1e-9)
	assert.InDelta(t, 1.456789, got[1].Amount, 1e-9)
}

func TestHourlyWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hourly.csv")
	hw, err := NewHourlyWriter(path)
	require.NoError(t, err)

	blockStart := time.Date(2030, time.July, 15, 6, 0, 0, 0, time.UTC)
	rows := []domain.DisaggregatedHour{{
		CellID:        7,
		BlockStart:    blockStart,
		HourlyTime:    blockStart.Add(time.Hour),
		BlockTotal:    9.0,
		HourInBlock:   1,
		WeightUsed:    0.3,
		Match:         domain.MatchExact,
		ReferenceDate: "1998-07-15 06:00",
		HourlyAmount:  2.7,
	}}
	require.NoError(t, hw.LoadBatch(context.Background(), rows))
	require.NoError(t, hw.Close())
	require.NoError(t, hw.Close(), "second close is a no-op")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{
		"cell_id", "time_3hourly", "time_hourly", "pr_3hourly_original",
		"hour_in_3h_block", "weight_used", "match_level", "reference_datetime",
		"pr_hourly_disaggregated",
	}, records[0])
	assert.Equal(t, []string{
		"7",
		"2030-07-15 06:00:00",
		"2030-07-15 07:00:00",
		"9.000000",
		"1",
		"0.300000",
		"EXACT",
		"1998-07-15 06:00",
		"2.700000",
	}, records[1])
}
