// Command disagg converts 3-hour precipitation projections into hourly
// series by stochastic disaggregation against a climatology weight table.
//
// Usage:
//
//	disagg -weights weights/climatology_weights_hourly.csv \
//	  -db data/basin.db -out-csv results/pr_stochastic_disaggregated.csv \
//	  [-out-db results/basin_hourly.db] [-cell-id 42] [-limit-rows 1000] \
//	  [-random-seed 42]
//
// The run fails (exit 1) on an unreadable weight table or future source;
// sampler degradations are never fatal and show up in the final
// match-level distribution instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/couchcryptid/precip-disagg-service/internal/adapter/csvio"
	"github.com/couchcryptid/precip-disagg-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/precip-disagg-service/internal/adapter/kafka"
	"github.com/couchcryptid/precip-disagg-service/internal/adapter/sqlitestore"
	"github.com/couchcryptid/precip-disagg-service/internal/adapter/weightscsv"
	"github.com/couchcryptid/precip-disagg-service/internal/climatology"
	"github.com/couchcryptid/precip-disagg-service/internal/config"
	"github.com/couchcryptid/precip-disagg-service/internal/domain"
	"github.com/couchcryptid/precip-disagg-service/internal/observability"
	"github.com/couchcryptid/precip-disagg-service/internal/pipeline"
	"github.com/couchcryptid/precip-disagg-service/internal/sampler"
)

func main() {
	weightsPath := flag.String("weights", "weights/climatology_weights_hourly.csv", "climatology weight table CSV")
	dbPath := flag.String("db", "data/basin.db", "SQLite database with the future pr table")
	cellID := flag.Int64("cell-id", -1, "process only this cell (negative = all cells)")
	limitRows := flag.Int("limit-rows", 0, "process at most this many future rows (0 = all, for testing)")
	randomSeed := flag.Int64("random-seed", 42, "seed for reproducible weight selection")
	outCSV := flag.String("out-csv", "results/pr_stochastic_disaggregated.csv", "hourly output CSV path")
	outDB := flag.String("out-db", "", "optional SQLite output database (pr_hourly table)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	opts := runOptions{
		weightsPath: *weightsPath,
		dbPath:      *dbPath,
		randomSeed:  *randomSeed,
		outCSV:      *outCSV,
		outDB:       *outDB,
		limitRows:   *limitRows,
	}
	if *cellID >= 0 {
		opts.cellID = cellID
	}

	if err := run(cfg, logger, opts); err != nil {
		logger.Error("disaggregation failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	weightsPath string
	dbPath      string
	cellID      *int64
	limitRows   int
	randomSeed  int64
	outCSV      string
	outDB       string
}

func run(cfg *config.Config, logger *slog.Logger, opts runOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	metrics := observability.NewMetrics()

	// Climatology: weight table -> indices -> sampler.
	obs, err := weightscsv.ReadTable(opts.weightsPath)
	if err != nil {
		return err
	}
	index := climatology.BuildIndex(obs)
	logger.Info("climatology loaded",
		"observations", len(obs),
		"exact_keys", index.ExactKeys(),
		"monthly_keys", index.MonthlyKeys(),
	)
	selector := sampler.New(index, opts.randomSeed, logger)

	// Future precipitation source.
	store, err := sqlitestore.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	blocks, err := store.FutureBlocks(ctx, sqlitestore.BlockQuery{CellID: opts.cellID, LimitRows: opts.limitRows})
	if err != nil {
		return err
	}
	defer blocks.Close()

	// Sinks: CSV always, SQLite and Kafka when configured.
	if err := os.MkdirAll(filepath.Dir(opts.outCSV), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	csvSink, err := csvio.NewHourlyWriter(opts.outCSV)
	if err != nil {
		return err
	}
	defer csvSink.Close()

	sinks := pipeline.MultiSink{csvSink}
	if opts.outDB != "" {
		outStore, err := sqlitestore.OpenOrCreate(opts.outDB)
		if err != nil {
			return err
		}
		defer outStore.Close()
		dbSink, err := outStore.ResultsSink(ctx)
		if err != nil {
			return err
		}
		sinks = append(sinks, dbSink)
	}
	if cfg.KafkaEnabled {
		kafkaSink := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, runID, logger)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(blocks, selector, sinks, logger, metrics, cfg.BatchSize, cfg.Workers)

	// Optional metrics/progress endpoint for long runs.
	if cfg.MetricsAddr != "" {
		srv := httpadapter.NewServer(cfg.MetricsAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if err := csvSink.Close(); err != nil {
		return fmt.Errorf("finalize output csv: %w", err)
	}

	printSummary(summary)
	return nil
}

// printSummary writes the run diagnostics to stdout: the match-level
// distribution and the worst mass-conservation deviation.
func printSummary(s pipeline.Summary) {
	fmt.Printf("Disaggregated %d blocks into %d hourly rows\n", s.Blocks, s.HourlyRows)
	fmt.Println("Match-level distribution:")
	for _, level := range domain.MatchLevels() {
		count := s.ByLevel[level]
		pct := 0.0
		if s.Blocks > 0 {
			pct = 100 * float64(count) / float64(s.Blocks)
		}
		fmt.Printf("  %-12s %10d (%.1f%%)\n", level.String(), count, pct)
	}
	fmt.Printf("Max conservation deviation: %.8f", s.MaxDeviation)
	if s.Violations > 0 {
		fmt.Printf(" (%d blocks above %.0e)", s.Violations, pipeline.ConservationTolerance)
	}
	fmt.Println()
}
