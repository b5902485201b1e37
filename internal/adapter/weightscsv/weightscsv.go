// Package weightscsv reads and writes the climatology weight table, the
// tabular contract between the weight builder and the disaggregation
// engine: one row per (calendar key, year, hour-in-block).
package weightscsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/couchcryptid/precip-disagg-service/internal/climatology"
	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

// ErrSchema marks a weight table whose header does not match the expected
// columns. It is fatal: a run must not proceed on a half-understood table.
var ErrSchema = errors.New("weight table schema mismatch")

var header = []string{"year_month_day_hour", "year", "month", "day", "hour", "hour_in_3h_block", "weight"}

// WriteTable writes per-year weight observations to path in canonical
// order, weights at 4 decimals.
func WriteTable(path string, obs []domain.WeightObservation) error {
	sorted := make([]domain.WeightObservation, len(obs))
	copy(sorted, obs)
	climatology.SortObservations(sorted)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create weight table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write weight table header: %w", err)
	}
	for _, o := range sorted {
		record := []string{
			o.Label,
			strconv.Itoa(o.Year),
			strconv.Itoa(o.Key.Month),
			strconv.Itoa(o.Key.Day),
			strconv.Itoa(o.Key.Hour),
			strconv.Itoa(o.HourInBlock),
			strconv.FormatFloat(o.Weight, 'f', 4, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write weight row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush weight table: %w", err)
	}
	return nil
}

// ReadTable loads a weight table from path, validating the schema.
func ReadTable(path string) ([]domain.WeightObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weight table: %w", err)
	}
	defer f.Close()

	obs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("weight table %s: %w", path, err)
	}
	return obs, nil
}

// Read parses a weight table from r.
func Read(r io.Reader) ([]domain.WeightObservation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range header {
		if head[i] != col {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrSchema, i, head[i], col)
		}
	}

	var obs []domain.WeightObservation
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		o, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func parseRow(record []string) (domain.WeightObservation, error) {
	year, err := strconv.Atoi(record[1])
	if err != nil {
		return domain.WeightObservation{}, fmt.Errorf("year %q: %w", record[1], err)
	}
	month, err := strconv.Atoi(record[2])
	if err != nil {
		return domain.WeightObservation{}, fmt.Errorf("month %q: %w", record[2], err)
	}
	day, err := strconv.Atoi(record[3])
	if err != nil {
		return domain.WeightObservation{}, fmt.Errorf("day %q: %w", record[3], err)
	}
	hour, err := strconv.Atoi(record[4])
	if err != nil {
		return domain.WeightObservation{}, fmt.Errorf("hour %q: %w", record[4], err)
	}
	hourInBlock, err := strconv.Atoi(record[5])
	if err != nil {
		return domain.WeightObservation{}, fmt.Errorf("hour_in_3h_block %q: %w", record[5], err)
	}
	if hourInBlock < 0 || hourInBlock >= domain.HoursPerBlock {
		return domain.WeightObservation{}, fmt.Errorf("hour_in_3h_block %d out of range", hourInBlock)
	}
	weight, err := strconv.ParseFloat(record[6], 64)
	if err != nil {
		return domain.WeightObservation{}, fmt.Errorf("weight %q: %w", record[6], err)
	}
	if weight < 0 {
		return domain.WeightObservation{}, fmt.Errorf("negative weight %v", weight)
	}

	return domain.WeightObservation{
		Key:         domain.CalendarKey{Month: month, Day: day, Hour: hour},
		Year:        year,
		HourInBlock: hourInBlock,
		Weight:      weight,
		Label:       record[0],
	}, nil
}

// WriteSummary writes the aggregated per-key diagnostics (mean, std,
// count per slot, normalized triple for complete keys).
func WriteSummary(path string, summaries []climatology.KeySummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create weight summary: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	head := []string{"month", "day", "hour", "hour_in_3h_block", "weight_mean", "weight_std", "count", "weight_normalized", "complete"}
	if err := w.Write(head); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for _, s := range summaries {
		for i := 0; i < domain.HoursPerBlock; i++ {
			normalized := ""
			if s.Complete {
				normalized = strconv.FormatFloat(s.Weights[i], 'f', 4, 64)
			}
			record := []string{
				strconv.Itoa(s.Key.Month),
				strconv.Itoa(s.Key.Day),
				strconv.Itoa(s.Key.Hour),
				strconv.Itoa(i),
				strconv.FormatFloat(s.Slots[i].Mean, 'f', 4, 64),
				strconv.FormatFloat(s.Slots[i].Std, 'f', 4, 64),
				strconv.Itoa(s.Slots[i].Count),
				normalized,
				strconv.FormatBool(s.Complete),
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("write summary row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush weight summary: %w", err)
	}
	return nil
}
