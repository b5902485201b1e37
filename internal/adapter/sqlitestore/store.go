// Package sqlitestore adapts the SQLite climate store produced by the
// ingestion tooling: the future precipitation source (pr table), the
// climate forcing for PET (tas, rsds tables), and an optional results
// table for disaggregated hours.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
	"github.com/couchcryptid/precip-disagg-service/internal/pet"
)

// Store wraps one SQLite database file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens an existing database file. A missing file is a fatal input
// error, reported before any query runs.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sqlite store %s: %w", path, err)
	}
	return open(path)
}

// OpenOrCreate opens a database file, creating it when absent. Used for
// result output.
func OpenOrCreate(path string) (*Store, error) {
	return open(path)
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// BlockQuery narrows the future precipitation selection.
type BlockQuery struct {
	CellID    *int64 // only this cell when set
	LimitRows int    // cap on rows when > 0, for test runs
}

// BlockIterator streams positive future blocks in deterministic
// (cell_id, time) order. It implements pipeline.BlockSource.
type BlockIterator struct {
	rows *sql.Rows
	done bool
}

// FutureBlocks queries the pr table for rows with pr > 0 and returns a
// batch iterator over them. A missing or misshapen pr table surfaces as
// an error here, before any output is produced.
func (s *Store) FutureBlocks(ctx context.Context, q BlockQuery) (*BlockIterator, error) {
	query := `SELECT cell_id, time, pr FROM pr WHERE pr > 0`
	args := []any{}
	if q.CellID != nil {
		query += ` AND cell_id = ?`
		args = append(args, *q.CellID)
	}
	query += ` ORDER BY cell_id, time`
	if q.LimitRows > 0 {
		query += ` LIMIT ?`
		args = append(args, q.LimitRows)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query future precipitation from %s: %w", s.path, err)
	}
	return &BlockIterator{rows: rows}, nil
}

// ExtractBatch reads up to batchSize future blocks. An empty batch means
// the source is exhausted.
func (it *BlockIterator) ExtractBatch(_ context.Context, batchSize int) ([]domain.FutureBlock, error) {
	if it.done {
		return nil, nil
	}

	batch := make([]domain.FutureBlock, 0, batchSize)
	for len(batch) < batchSize && it.rows.Next() {
		var (
			cellID  int64
			rawTime string
			amount  float64
		)
		if err := it.rows.Scan(&cellID, &rawTime, &amount); err != nil {
			return nil, fmt.Errorf("scan future block: %w", err)
		}
		blockStart, err := domain.ParseTime(rawTime)
		if err != nil {
			return nil, fmt.Errorf("future block time: %w", err)
		}
		batch = append(batch, domain.FutureBlock{CellID: cellID, BlockStart: blockStart, Total: amount})
	}
	if len(batch) < batchSize {
		it.done = true
		if err := it.rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate future blocks: %w", err)
		}
	}
	return batch, nil
}

// Close releases the underlying result set.
func (it *BlockIterator) Close() error {
	return it.rows.Close()
}

// DailyClimate returns per-day mean temperature and radiation for one
// cell, joining the tas and rsds tables on time, ordered by date.
func (s *Store) DailyClimate(ctx context.Context, cellID int64) ([]pet.DayInput, error) {
	const query = `
	SELECT substr(t.time, 1, 10) AS date, AVG(t.tas), AVG(r.rsds)
	FROM tas t
	JOIN rsds r ON t.time = r.time AND t.cell_id = r.cell_id
	WHERE t.cell_id = ?
	GROUP BY substr(t.time, 1, 10)
	ORDER BY date`

	rows, err := s.db.QueryContext(ctx, query, cellID)
	if err != nil {
		return nil, fmt.Errorf("query daily climate from %s: %w", s.path, err)
	}
	defer rows.Close()

	var days []pet.DayInput
	for rows.Next() {
		var (
			date      string
			temp, rad float64
		)
		if err := rows.Scan(&date, &temp, &rad); err != nil {
			return nil, fmt.Errorf("scan daily climate: %w", err)
		}
		day, err := domain.ParseTime(date + " 00:00:00")
		if err != nil {
			return nil, fmt.Errorf("daily climate date: %w", err)
		}
		days = append(days, pet.DayInput{Date: day, MeanTempC: temp, MeanRadiation: rad})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily climate: %w", err)
	}
	return days, nil
}
