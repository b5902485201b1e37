// Package csvio holds the CSV codecs around the pipeline: the raw gauge
// input format, the aggregated 1h/3h series files, and the disaggregated
// hourly result file.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

// gaugeLayout is the timestamp form of raw gauge exports.
const gaugeLayout = "2006.01.02 15:04"

// ReadGauge parses a raw gauge CSV: semicolon-separated "time;pr" rows
// with "YYYY.MM.DD HH:MM" timestamps and dot decimal separators.
func ReadGauge(path string) ([]domain.HourValue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gauge csv: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = ';'
	cr.FieldsPerRecord = 2

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	if head[0] != "time" || head[1] != "pr" {
		return nil, fmt.Errorf("%s: expected time;pr header, got %v", path, head)
	}

	var points []domain.HourValue
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		t, err := time.ParseInLocation(gaugeLayout, record[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		amount, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: pr %q: %w", path, line, record[1], err)
		}
		points = append(points, domain.HourValue{Time: t, Amount: amount})
	}
	return points, nil
}

// WriteSeries writes an aggregated "time,pr" series file.
func WriteSeries(path string, points []domain.HourValue) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create series csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "pr"}); err != nil {
		return fmt.Errorf("write series header: %w", err)
	}
	for _, p := range points {
		record := []string{domain.FormatTime(p.Time), strconv.FormatFloat(p.Amount, 'f', 6, 64)}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write series row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush series csv: %w", err)
	}
	return nil
}

// ReadSeries parses an aggregated "time,pr" series file (the output of
// WriteSeries, and the weight builder's input).
func ReadSeries(path string) ([]domain.HourValue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series csv: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = 2

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	if head[0] != "time" || head[1] != "pr" {
		return nil, fmt.Errorf("%s: expected time,pr header, got %v", path, head)
	}

	var points []domain.HourValue
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		t, err := domain.ParseTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		amount, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: pr %q: %w", path, line, record[1], err)
		}
		points = append(points, domain.HourValue{Time: t, Amount: amount})
	}
	return points, nil
}

var hourlyHeader = []string{
	"cell_id", "time_3hourly", "time_hourly", "pr_3hourly_original",
	"hour_in_3h_block", "weight_used", "match_level", "reference_datetime",
	"pr_hourly_disaggregated",
}

// HourlyWriter streams disaggregated hourly rows to a CSV file. It
// implements pipeline.HourSink.
type HourlyWriter struct {
	f      *os.File
	w      *csv.Writer
	closed bool
}

// NewHourlyWriter creates the output file and writes the header.
func NewHourlyWriter(path string) (*HourlyWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create hourly csv: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(hourlyHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write hourly header: %w", err)
	}
	return &HourlyWriter{f: f, w: w}, nil
}

// LoadBatch appends a batch of hourly rows.
func (hw *HourlyWriter) LoadBatch(_ context.Context, rows []domain.DisaggregatedHour) error {
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.CellID, 10),
			domain.FormatTime(r.BlockStart),
			domain.FormatTime(r.HourlyTime),
			strconv.FormatFloat(r.BlockTotal, 'f', 6, 64),
			strconv.Itoa(r.HourInBlock),
			strconv.FormatFloat(r.WeightUsed, 'f', 6, 64),
			r.Match.String(),
			r.ReferenceDate,
			strconv.FormatFloat(r.HourlyAmount, 'f', 6, 64),
		}
		if err := hw.w.Write(record); err != nil {
			return fmt.Errorf("write hourly row: %w", err)
		}
	}
	hw.w.Flush()
	if err := hw.w.Error(); err != nil {
		return fmt.Errorf("flush hourly csv: %w", err)
	}
	return nil
}

// Close flushes and closes the output file. Safe to call twice.
func (hw *HourlyWriter) Close() error {
	if hw.closed {
		return nil
	}
	hw.closed = true
	hw.w.Flush()
	if err := hw.w.Error(); err != nil {
		hw.f.Close()
		return err
	}
	return hw.f.Close()
}
