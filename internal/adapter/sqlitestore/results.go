package sqlitestore

import (
	"context"
	"fmt"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
)

// ResultsSink writes disaggregated hourly rows to a pr_hourly table,
// one transaction per batch. It implements pipeline.HourSink.
type ResultsSink struct {
	store *Store
}

// ResultsSink prepares the output table, replacing rows from any earlier
// run so a rerun is idempotent.
func (s *Store) ResultsSink(ctx context.Context) (*ResultsSink, error) {
	const schema = `
	CREATE TABLE IF NOT EXISTS pr_hourly (
		cell_id INTEGER NOT NULL,
		time_3hourly TEXT NOT NULL,
		time_hourly TEXT NOT NULL,
		pr_3hourly_original REAL NOT NULL,
		hour_in_3h_block INTEGER NOT NULL,
		weight_used REAL NOT NULL,
		match_level TEXT NOT NULL,
		reference_datetime TEXT,
		pr_hourly_disaggregated REAL NOT NULL,
		PRIMARY KEY (cell_id, time_hourly)
	)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create pr_hourly table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pr_hourly`); err != nil {
		return nil, fmt.Errorf("clear pr_hourly table: %w", err)
	}
	return &ResultsSink{store: s}, nil
}

// LoadBatch inserts a batch of hourly rows in a single transaction.
func (r *ResultsSink) LoadBatch(ctx context.Context, rows []domain.DisaggregatedHour) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin results tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pr_hourly (
		cell_id, time_3hourly, time_hourly, pr_3hourly_original,
		hour_in_3h_block, weight_used, match_level, reference_datetime,
		pr_hourly_disaggregated
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare results insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.CellID,
			domain.FormatTime(row.BlockStart),
			domain.FormatTime(row.HourlyTime),
			row.BlockTotal,
			row.HourInBlock,
			row.WeightUsed,
			row.Match.String(),
			row.ReferenceDate,
			row.HourlyAmount,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert hourly row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results tx: %w", err)
	}
	return nil
}
