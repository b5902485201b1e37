// Command weights builds the climatology weight table from historical
// 1-hour and 3-hour aggregated precipitation series.
//
// Usage:
//
//	weights -hourly-file results/pr_1hourly_aggregated.csv \
//	  -threehourly-file results/pr_3hourly_aggregated.csv \
//	  -output weights/climatology_weights_hourly.csv \
//	  [-summary weights/climatology_weights_summary.csv]
//
// For every historical 3-hour block with rain, the three hourly fractions
// of the block total become one year-tagged weight triple filed under the
// block's calendar position. The per-key summary (cross-year mean, std,
// count) is diagnostic output; the disaggregation engine samples the
// per-year rows of the main table.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/precip-disagg-service/internal/adapter/csvio"
	"github.com/couchcryptid/precip-disagg-service/internal/adapter/weightscsv"
	"github.com/couchcryptid/precip-disagg-service/internal/climatology"
	"github.com/couchcryptid/precip-disagg-service/internal/config"
	"github.com/couchcryptid/precip-disagg-service/internal/domain"
	"github.com/couchcryptid/precip-disagg-service/internal/observability"
	"github.com/couchcryptid/precip-disagg-service/internal/series"
)

func main() {
	hourlyFile := flag.String("hourly-file", "results/pr_1hourly_aggregated.csv", "1-hour aggregated series CSV")
	threeHourlyFile := flag.String("threehourly-file", "results/pr_3hourly_aggregated.csv", "3-hour aggregated series CSV")
	output := flag.String("output", "weights/climatology_weights_hourly.csv", "output weight table CSV")
	summary := flag.String("summary", "", "optional per-key diagnostic summary CSV")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(logger, *hourlyFile, *threeHourlyFile, *output, *summary); err != nil {
		logger.Error("weight build failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, hourlyFile, threeHourlyFile, output, summaryPath string) error {
	hourlyRaw, err := csvio.ReadSeries(hourlyFile)
	if err != nil {
		return err
	}
	threeHourlyRaw, err := csvio.ReadSeries(threeHourlyFile)
	if err != nil {
		return err
	}

	hourly := series.PositiveOnly(hourlyRaw)
	blocks := make([]domain.BlockValue, 0, len(threeHourlyRaw))
	for _, p := range series.PositiveOnly(threeHourlyRaw) {
		blocks = append(blocks, domain.BlockValue{Time: p.Time, Amount: p.Amount})
	}
	logger.Info("historical series loaded",
		"hourly_points", len(hourly),
		"threehourly_blocks", len(blocks),
	)

	obs := climatology.ExtractObservations(hourly, blocks)
	if len(obs) == 0 {
		return fmt.Errorf("no weight observations extracted; check that the series overlap")
	}

	years := make(map[int]struct{})
	keys := make(map[domain.CalendarKey]struct{})
	for _, o := range obs {
		years[o.Year] = struct{}{}
		keys[o.Key] = struct{}{}
	}
	logger.Info("weights extracted",
		"observations", len(obs),
		"calendar_keys", len(keys),
		"years", len(years),
	)

	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := weightscsv.WriteTable(output, obs); err != nil {
		return err
	}
	logger.Info("weight table written", "path", output)

	if summaryPath != "" {
		summaries := climatology.Aggregate(obs)
		incomplete := 0
		for _, s := range summaries {
			if !s.Complete {
				incomplete++
			}
		}
		if err := weightscsv.WriteSummary(summaryPath, summaries); err != nil {
			return err
		}
		logger.Info("weight summary written",
			"path", summaryPath,
			"keys", len(summaries),
			"incomplete_keys", incomplete,
		)
	}

	fmt.Printf("Weight table: %s (%d observations, %d calendar keys, %d years)\n",
		output, len(obs), len(keys), len(years))
	return nil
}
