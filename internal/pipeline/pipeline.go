// Package pipeline drives the disaggregation pass: it batches future
// blocks from the source, resolves each block through the sampler, fans
// the three hourly rows out to the sinks, and tracks the mass-conservation
// invariant and match-level histogram along the way.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/precip-disagg-service/internal/domain"
	"github.com/couchcryptid/precip-disagg-service/internal/observability"
	"github.com/couchcryptid/precip-disagg-service/internal/sampler"
)

// ConservationTolerance is the accepted |sum(hourly) - block total| per
// block. Deviations beyond it are tallied as diagnostics, not failures:
// the sampler's triples sum to 1.0, so anything here is floating-point
// accumulation.
const ConservationTolerance = 1e-6

// BlockSource yields future blocks in deterministic order, up to
// batchSize at a time. An empty batch means the source is exhausted.
type BlockSource interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.FutureBlock, error)
}

// Selector resolves the weight triple for one future block. It must be
// safe for concurrent use.
type Selector interface {
	Select(block domain.FutureBlock) sampler.Selection
}

// HourSink persists disaggregated hourly rows.
type HourSink interface {
	LoadBatch(ctx context.Context, rows []domain.DisaggregatedHour) error
}

// MultiSink fans LoadBatch out to several sinks, stopping at the first error.
type MultiSink []HourSink

func (m MultiSink) LoadBatch(ctx context.Context, rows []domain.DisaggregatedHour) error {
	for _, sink := range m {
		if err := sink.LoadBatch(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}

// Summary is the diagnostic report of one completed run.
type Summary struct {
	Blocks       int64
	HourlyRows   int64
	ByLevel      map[domain.MatchLevel]int64
	MaxDeviation float64
	Violations   int64 // blocks whose deviation exceeded ConservationTolerance
}

// Pipeline orchestrates the extract-sample-load loop for one run.
type Pipeline struct {
	source    BlockSource
	selector  Selector
	sink      HourSink
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
	workers   int

	processed atomic.Int64
	running   atomic.Bool
}

// New creates a Pipeline. workers bounds the per-batch fan-out; values
// below 1 mean sequential processing.
func New(source BlockSource, selector Selector, sink HourSink, logger *slog.Logger, metrics *observability.Metrics, batchSize, workers int) *Pipeline {
	if batchSize < 1 {
		batchSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		source:    source,
		selector:  selector,
		sink:      sink,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
		workers:   workers,
	}
}

// Progress reports how many blocks have been processed and whether the
// pass is still running. Served by the progress endpoint during long runs.
func (p *Pipeline) Progress() (processed int64, running bool) {
	return p.processed.Load(), p.running.Load()
}

// Run executes the full disaggregation pass and returns its summary.
// A source or sink error aborts the run; partial output is not valid.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	p.logger.Info("disaggregation started", "batch_size", p.batchSize, "workers", p.workers)
	p.metrics.PipelineRunning.Set(1)
	p.running.Store(true)
	defer func() {
		p.metrics.PipelineRunning.Set(0)
		p.running.Store(false)
	}()

	summary := Summary{ByLevel: make(map[domain.MatchLevel]int64)}
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		batch, err := p.source.ExtractBatch(ctx, p.batchSize)
		if err != nil {
			return summary, fmt.Errorf("extract batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		start := time.Now()
		rows := p.disaggregateBatch(batch)
		p.tally(batch, rows, &summary)

		if err := p.sink.LoadBatch(ctx, rows); err != nil {
			return summary, fmt.Errorf("load batch: %w", err)
		}

		p.processed.Add(int64(len(batch)))
		p.metrics.BlocksProcessed.Add(float64(len(batch)))
		p.metrics.HourlyRowsLoaded.Add(float64(len(rows)))
		p.metrics.BatchSize.Observe(float64(len(batch)))
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.logger.Debug("batch complete", "blocks", len(batch), "total_blocks", p.processed.Load())
	}

	p.logger.Info("disaggregation finished",
		"blocks", summary.Blocks,
		"hourly_rows", summary.HourlyRows,
		"max_deviation", summary.MaxDeviation,
	)
	return summary, nil
}

// disaggregateBatch resolves every block of a batch into its three hourly
// rows. Workers write into index-determined slots, so the result order
// (and each block's seeded draw) is identical no matter how many workers
// run or how the batch was sliced.
func (p *Pipeline) disaggregateBatch(batch []domain.FutureBlock) []domain.DisaggregatedHour {
	rows := make([]domain.DisaggregatedHour, len(batch)*domain.HoursPerBlock)

	process := func(i int) {
		block := batch[i]
		sel := p.selector.Select(block)
		for offset := 0; offset < domain.HoursPerBlock; offset++ {
			rows[i*domain.HoursPerBlock+offset] = domain.DisaggregatedHour{
				CellID:        block.CellID,
				BlockStart:    block.BlockStart,
				HourlyTime:    block.BlockStart.Add(time.Duration(offset) * time.Hour),
				BlockTotal:    block.Total,
				HourInBlock:   offset,
				WeightUsed:    sel.Weights[offset],
				Match:         sel.Match,
				ReferenceDate: sel.Reference,
				HourlyAmount:  block.Total * sel.Weights[offset],
			}
		}
	}

	workers := p.workers
	if workers > len(batch) {
		workers = len(batch)
	}
	if workers <= 1 {
		for i := range batch {
			process(i)
		}
		return rows
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				process(i)
			}
		}()
	}
	for i := range batch {
		indices <- i
	}
	close(indices)
	wg.Wait()
	return rows
}

// tally folds a processed batch into the run summary: match-level
// histogram and per-block mass conservation.
func (p *Pipeline) tally(batch []domain.FutureBlock, rows []domain.DisaggregatedHour, summary *Summary) {
	for i, block := range batch {
		level := rows[i*domain.HoursPerBlock].Match
		summary.ByLevel[level]++
		p.metrics.MatchOutcomes.WithLabelValues(level.String()).Inc()

		var sum float64
		for offset := 0; offset < domain.HoursPerBlock; offset++ {
			sum += rows[i*domain.HoursPerBlock+offset].HourlyAmount
		}
		deviation := math.Abs(sum - block.Total)
		if deviation > summary.MaxDeviation {
			summary.MaxDeviation = deviation
			p.metrics.MaxConservationDeviation.Set(deviation)
		}
		if deviation > ConservationTolerance {
			summary.Violations++
			p.logger.Warn("mass conservation deviation above tolerance",
				"cell_id", block.CellID,
				"block_start", domain.FormatTime(block.BlockStart),
				"deviation", deviation,
			)
		}
	}
	summary.Blocks += int64(len(batch))
	summary.HourlyRows += int64(len(rows))
}
