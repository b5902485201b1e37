// Package kafka publishes disaggregated hourly records to a sink topic so
// downstream consumers (hydrological model feeds, archival) can pick them
// up without touching the run's files.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

// Writer produces disaggregated hourly messages to a Kafka topic.
// It implements pipeline.HourSink.
type Writer struct {
	writer *kafkago.Writer
	runID  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the sink topic. runID tags every
// message so consumers can separate overlapping runs.
func NewWriter(brokers []string, topic, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, runID: runID, logger: logger}
}

// hourlyMessage is the wire form of one disaggregated hour.
type hourlyMessage struct {
	CellID        int64   `json:"cell_id"`
	Time3Hourly   string  `json:"time_3hourly"`
	TimeHourly    string  `json:"time_hourly"`
	Pr3Hourly     float64 `json:"pr_3hourly_original"`
	HourInBlock   int     `json:"hour_in_3h_block"`
	WeightUsed    float64 `json:"weight_used"`
	MatchLevel    string  `json:"match_level"`
	ReferenceDate string  `json:"reference_datetime,omitempty"`
	PrHourly      float64 `json:"pr_hourly_disaggregated"`
}

// LoadBatch serializes and publishes a batch of hourly rows in a single
// WriteMessages call for efficiency.
func (w *Writer) LoadBatch(ctx context.Context, rows []domain.DisaggregatedHour) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := w.serializeToMessage(rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one hourly row into a Kafka message keyed
// by (cell id, hourly time) so repeated runs compact per hour.
func (w *Writer) serializeToMessage(row domain.DisaggregatedHour) (kafkago.Message, error) {
	payload := hourlyMessage{
		CellID:        row.CellID,
		Time3Hourly:   domain.FormatTime(row.BlockStart),
		TimeHourly:    domain.FormatTime(row.HourlyTime),
		Pr3Hourly:     row.BlockTotal,
		HourInBlock:   row.HourInBlock,
		WeightUsed:    row.WeightUsed,
		MatchLevel:    row.Match.String(),
		ReferenceDate: row.ReferenceDate,
		PrHourly:      row.HourlyAmount,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize hourly record: %w", err)
	}
	key := fmt.Sprintf("%d|%s", row.CellID, domain.FormatTime(row.HourlyTime))
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(w.runID)},
			{Key: "match_level", Value: []byte(row.Match.String())},
			{Key: "produced_at", Value: []byte(domain.Clock().Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
