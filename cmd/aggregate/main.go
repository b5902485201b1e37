// Command aggregate sums a raw sub-hourly gauge CSV into the 1-hour and
// 3-hour series the weight builder consumes.
//
// Usage:
//
//	aggregate -input-csv data/gauge_record.csv \
//	  -output-hourly results/pr_1hourly_aggregated.csv \
//	  -output-threehourly results/pr_3hourly_aggregated.csv
//
// The input is semicolon-separated "time;pr" with "YYYY.MM.DD HH:MM"
// timestamps, the export format of the gauge archive.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/precip-disagg-service/internal/adapter/csvio"
	"github.com/couchcryptid/precip-disagg-service/internal/config"
	"github.com/couchcryptid/precip-disagg-service/internal/domain"
	"github.com/couchcryptid/precip-disagg-service/internal/observability"
	"github.com/couchcryptid/precip-disagg-service/internal/series"
)

func main() {
	inputCSV := flag.String("input-csv", "data/gauge_record.csv", "raw gauge CSV (semicolon-separated time;pr)")
	outputHourly := flag.String("output-hourly", "results/pr_1hourly_aggregated.csv", "1-hour aggregated output CSV")
	outputThreeHourly := flag.String("output-threehourly", "results/pr_3hourly_aggregated.csv", "3-hour aggregated output CSV")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(logger, *inputCSV, *outputHourly, *outputThreeHourly); err != nil {
		logger.Error("aggregation failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, inputCSV, outputHourly, outputThreeHourly string) error {
	points, err := csvio.ReadGauge(inputCSV)
	if err != nil {
		return err
	}
	logger.Info("gauge record loaded", "points", len(points))

	hourly := series.Hourly(points)
	threeHourly := series.SumByWindow(points, 3*time.Hour)

	for path, data := range map[string][]domain.HourValue{
		outputHourly:      hourly,
		outputThreeHourly: threeHourly,
	} {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := csvio.WriteSeries(path, data); err != nil {
			return err
		}
	}

	logger.Info("aggregates written",
		"hourly_path", outputHourly, "hourly_rows", len(hourly),
		"threehourly_path", outputThreeHourly, "threehourly_rows", len(threeHourly),
	)
	fmt.Printf("Aggregated %d gauge points into %d hourly and %d 3-hourly sums\n",
		len(points), len(hourly), len(threeHourly))
	return nil
}
