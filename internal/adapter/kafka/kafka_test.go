package kafka

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2030, time.July, 15, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWriter([]string{"localhost:9092"}, "disaggregated-precip-hourly", "run-1", logger)

	blockStart := time.Date(2030, time.July, 15, 6, 0, 0, 0, time.UTC)
	row := domain.DisaggregatedHour{
		CellID:        7,
		BlockStart:    blockStart,
		HourlyTime:    blockStart.Add(time.Hour),
		BlockTotal:    9.0,
		HourInBlock:   1,
		WeightUsed:    0.3,
		Match:         domain.MatchExact,
		ReferenceDate: "1998-07-15 06:00",
		HourlyAmount:  2.7,
	}

	msg, err := w.serializeToMessage(row)
	require.NoError(t, err)

	assert.Equal(t, []byte("7|2030-07-15 07:00:00"), msg.Key)
	assert.JSONEq(t, `{
		"cell_id": 7,
		"time_3hourly": "2030-07-15 06:00:00",
		"time_hourly": "2030-07-15 07:00:00",
		"pr_3hourly_original": 9,
		"hour_in_3h_block": 1,
		"weight_used": 0.3,
		"match_level": "EXACT",
		"reference_datetime": "1998-07-15 06:00",
		"pr_hourly_disaggregated": 2.7
	}`, string(msg.Value))

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "match_level", msg.Headers[1].Key)
	assert.Equal(t, []byte("EXACT"), msg.Headers[1].Value)
	assert.Equal(t, "produced_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessage_OmitsEmptyReference(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWriter([]string{"localhost:9092"}, "disaggregated-precip-hourly", "run-1", logger)

	msg, err := w.serializeToMessage(domain.DisaggregatedHour{
		CellID: 1,
		Match:  domain.MatchUniform,
	})
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Value), "reference_datetime")
}
