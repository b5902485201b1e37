// Command pet computes daily Priestley-Taylor potential
// evapotranspiration for one cell from the temperature (tas) and
// shortwave radiation (rsds) tables of the climate store.
//
// Usage:
//
//	pet -db data/basin.db -cell-id 42 [-output results/pet_cell_42.csv]
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/precip-disagg-service/internal/adapter/sqlitestore"
	"github.com/couchcryptid/precip-disagg-service/internal/config"
	"github.com/couchcryptid/precip-disagg-service/internal/observability"
	"github.com/couchcryptid/precip-disagg-service/internal/pet"
)

func main() {
	dbPath := flag.String("db", "data/basin.db", "SQLite database with tas and rsds tables")
	cellID := flag.Int64("cell-id", -1, "cell to compute PET for (required)")
	output := flag.String("output", "", "output CSV path (default results/pet_cell_<id>.csv)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if *cellID < 0 {
		logger.Error("missing required -cell-id flag")
		flag.Usage()
		os.Exit(1)
	}
	out := *output
	if out == "" {
		out = fmt.Sprintf("results/pet_cell_%d.csv", *cellID)
	}

	if err := run(logger, *dbPath, *cellID, out); err != nil {
		logger.Error("pet calculation failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, dbPath string, cellID int64, output string) error {
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	days, err := store.DailyClimate(context.Background(), cellID)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		return fmt.Errorf("no climate data for cell %d", cellID)
	}

	values := pet.DailySeries(days)

	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writePET(output, values); err != nil {
		return err
	}

	logger.Info("pet series written", "path", output, "days", len(values), "cell_id", cellID)
	fmt.Printf("PET for cell %d: %d days written to %s\n", cellID, len(values), output)
	return nil
}

func writePET(path string, values []pet.DayValue) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pet csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "pet_mm_day"}); err != nil {
		return fmt.Errorf("write pet header: %w", err)
	}
	for _, v := range values {
		record := []string{v.Date.Format("2006-01-02"), strconv.FormatFloat(v.PET, 'f', 4, 64)}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write pet row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush pet csv: %w", err)
	}
	return nil
}
