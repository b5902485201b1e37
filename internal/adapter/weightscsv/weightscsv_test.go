package weightscsv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

func TestWriteAndReadTable(t *testing.T) {
	key := domain.CalendarKey{Month: 7, Day: 15, Hour: 6}
	obs := []domain.WeightObservation{
		{Key: key, Year: 2001, HourInBlock: 0, Weight: 0.2, Label: domain.ObservationLabel(2001, key, 0)},
		{Key: key, Year: 1998, HourInBlock: 1, Weight: 0.3, Label: domain.ObservationLabel(1998, key, 1)},
		{Key: key, Year: 1998, HourInBlock: 0, Weight: 0.5, Label: domain.ObservationLabel(1998, key, 0)},
	}

	path := filepath.Join(t.TempDir(), "weights.csv")
	require.NoError(t, WriteTable(path, obs))

	got, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Rows come back in canonical order regardless of input order.
	assert.Equal(t, 1998, got[0].Year)
	assert.Equal(t, 0, got[0].HourInBlock)
	assert.InDelta(t, 0.5, got[0].Weight, 1e-9)
	assert.Equal(t, "1998-07-15 06:00", got[0].Label)
	assert.Equal(t, 1998, got[1].Year)
	assert.Equal(t, 1, got[1].HourInBlock)
	assert.Equal(t, 2001, got[2].Year)
	assert.Equal(t, key, got[2].Key)
}

func TestWriteTable_WeightPrecision(t *testing.T) {
	key := domain.CalendarKey{Month: 7, Day: 15, Hour: 6}
	obs := []domain.WeightObservation{
		{Key: key, Year: 1998, HourInBlock: 0, Weight: 1.0 / 3.0, Label: domain.ObservationLabel(1998, key, 0)},
	}

	path := filepath.Join(t.TempDir(), "weights.csv")
	require.NoError(t, WriteTable(path, obs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), ",0.3333")
}

func TestRead_SchemaMismatch(t *testing.T) {
	table := "label,year,month,day,hour,slot,weight\n" +
		"1998-07-15 06:00,1998,7,15,6,0,0.5\n"

	_, err := Read(strings.NewReader(table))
	assert.ErrorIs(t, err, ErrSchema)
}

func TestRead_RejectsBadRows(t *testing.T) {
	head := "year_month_day_hour,year,month,day,hour,hour_in_3h_block,weight\n"

	tests := []struct {
		name string
		row  string
	}{
		{"slot out of range", "1998-07-15 06:00,1998,7,15,6,3,0.5"},
		{"negative weight", "1998-07-15 06:00,1998,7,15,6,0,-0.1"},
		{"non-numeric year", "1998-07-15 06:00,none,7,15,6,0,0.5"},
		{"missing column", "1998-07-15 06:00,1998,7,15,6,0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(head + tt.row + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestRead_EmptyTable(t *testing.T) {
	head := "year_month_day_hour,year,month,day,hour,hour_in_3h_block,weight\n"
	obs, err := Read(strings.NewReader(head))
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestReadTable_MissingFile(t *testing.T) {
	_, err := ReadTable(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
