package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-disagg-service/internal/climatology"
	"github.com/couchcryptid/precip-disagg-service/internal/domain"
	"github.com/couchcryptid/precip-disagg-service/internal/observability"
	"github.com/couchcryptid/precip-disagg-service/internal/sampler"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sliceSource serves a fixed block slice in batches.
type sliceSource struct {
	blocks []domain.FutureBlock
	pos    int
}

func (s *sliceSource) ExtractBatch(_ context.Context, batchSize int) ([]domain.FutureBlock, error) {
	if s.pos >= len(s.blocks) {
		return nil, nil
	}
	end := s.pos + batchSize
	if end > len(s.blocks) {
		end = len(s.blocks)
	}
	batch := s.blocks[s.pos:end]
	s.pos = end
	return batch, nil
}

type failingSource struct{ err error }

func (s *failingSource) ExtractBatch(context.Context, int) ([]domain.FutureBlock, error) {
	return nil, s.err
}

// fixedSelector returns the same selection for every block.
type fixedSelector struct{ sel sampler.Selection }

func (f *fixedSelector) Select(domain.FutureBlock) sampler.Selection { return f.sel }

// captureSink collects every loaded row in arrival order.
type captureSink struct {
	rows    []domain.DisaggregatedHour
	batches int
}

func (c *captureSink) LoadBatch(_ context.Context, rows []domain.DisaggregatedHour) error {
	c.rows = append(c.rows, rows...)
	c.batches++
	return nil
}

type failingSink struct{ err error }

func (s *failingSink) LoadBatch(context.Context, []domain.DisaggregatedHour) error {
	return s.err
}

func futureBlocks(n int) []domain.FutureBlock {
	start := time.Date(2030, time.July, 15, 0, 0, 0, 0, time.UTC)
	blocks := make([]domain.FutureBlock, n)
	for i := range blocks {
		blocks[i] = domain.FutureBlock{
			CellID:     int64(i%3 + 1),
			BlockStart: start.Add(time.Duration(3*i) * time.Hour),
			Total:      float64(i + 1),
		}
	}
	return blocks
}

func TestRun(t *testing.T) {
	blocks := futureBlocks(5)
	source := &sliceSource{blocks: blocks}
	selector := &fixedSelector{sel: sampler.Selection{
		Weights:   domain.WeightTriple{0.5, 0.3, 0.2},
		Match:     domain.MatchExact,
		Reference: "1998-07-15 06:00",
	}}
	sink := &captureSink{}

	p := New(source, selector, sink, discardLogger(), observability.NewMetricsForTesting(), 2, 2)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(5), summary.Blocks)
	assert.Equal(t, int64(15), summary.HourlyRows)
	assert.Equal(t, int64(5), summary.ByLevel[domain.MatchExact])
	assert.Equal(t, int64(0), summary.Violations)
	assert.LessOrEqual(t, summary.MaxDeviation, ConservationTolerance)
	assert.Equal(t, 3, sink.batches)

	require.Len(t, sink.rows, 15)
	for i, block := range blocks {
		var sum float64
		for offset := 0; offset < domain.HoursPerBlock; offset++ {
			row := sink.rows[i*domain.HoursPerBlock+offset]
			assert.Equal(t, block.CellID, row.CellID)
			assert.True(t, row.BlockStart.Equal(block.BlockStart))
			assert.True(t, row.HourlyTime.Equal(block.BlockStart.Add(time.Duration(offset)*time.Hour)))
			assert.Equal(t, offset, row.HourInBlock)
			assert.Equal(t, domain.MatchExact, row.Match)
			assert.Equal(t, "1998-07-15 06:00", row.ReferenceDate)
			sum += row.HourlyAmount
		}
		assert.InDelta(t, block.Total, sum, ConservationTolerance)
	}

	processed, running := p.Progress()
	assert.Equal(t, int64(5), processed)
	assert.False(t, running)
}

func TestRun_OutputIndependentOfBatchingAndWorkers(t *testing.T) {
	key := domain.CalendarKey{Month: 7, Day: 15, Hour: 6}
	var obs []domain.WeightObservation
	for year := 1990; year < 2005; year++ {
		w := domain.WeightTriple{0.2, 0.3, 0.5}
		for i := 0; i < domain.HoursPerBlock; i++ {
			obs = append(obs, domain.WeightObservation{
				Key: key, Year: year, HourInBlock: i,
				Weight: w[i] + float64(year%5)/100*float64(i-1),
				Label:  domain.ObservationLabel(year, key, i),
			})
		}
	}
	ix := climatology.BuildIndex(obs)

	start := time.Date(2030, time.July, 15, 6, 0, 0, 0, time.UTC)
	var blocks []domain.FutureBlock
	for cell := int64(1); cell <= 4; cell++ {
		for day := 0; day < 5; day++ {
			blocks = append(blocks, domain.FutureBlock{
				CellID:     cell,
				BlockStart: start.AddDate(0, 0, day),
				Total:      3.0,
			})
		}
	}

	run := func(batchSize, workers int) []domain.DisaggregatedHour {
		sink := &captureSink{}
		p := New(
			&sliceSource{blocks: blocks},
			sampler.New(ix, 42, discardLogger()),
			sink,
			discardLogger(),
			observability.NewMetricsForTesting(),
			batchSize, workers,
		)
		_, err := p.Run(context.Background())
		require.NoError(t, err)
		return sink.rows
	}

	reference := run(1, 1)
	assert.Equal(t, reference, run(7, 1))
	assert.Equal(t, reference, run(20, 4))
	assert.Equal(t, reference, run(3, 8))
}

func TestRun_CountsConservationViolations(t *testing.T) {
	// A selector whose weights do not sum to 1 leaves mass behind.
	selector := &fixedSelector{sel: sampler.Selection{
		Weights: domain.WeightTriple{0.5, 0.3, 0.1},
		Match:   domain.MatchExact,
	}}
	sink := &captureSink{}

	p := New(&sliceSource{blocks: futureBlocks(3)}, selector, sink, discardLogger(), observability.NewMetricsForTesting(), 10, 1)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.Violations)
	// Largest block total is 3.0; 10% of it goes missing.
	assert.InDelta(t, 0.3, summary.MaxDeviation, 1e-9)
}

func TestRun_SourceErrorAborts(t *testing.T) {
	boom := errors.New("db gone")
	p := New(&failingSource{err: boom}, &fixedSelector{}, &captureSink{}, discardLogger(), observability.NewMetricsForTesting(), 10, 1)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRun_SinkErrorAborts(t *testing.T) {
	boom := errors.New("disk full")
	p := New(&sliceSource{blocks: futureBlocks(2)}, &fixedSelector{sel: sampler.Selection{Weights: domain.UniformTriple(), Match: domain.MatchUniform}}, &failingSink{err: boom}, discardLogger(), observability.NewMetricsForTesting(), 10, 1)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(&sliceSource{blocks: futureBlocks(2)}, &fixedSelector{}, &captureSink{}, discardLogger(), observability.NewMetricsForTesting(), 10, 1)
	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMultiSink(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	rows := []domain.DisaggregatedHour{{CellID: 1}, {CellID: 2}}

	require.NoError(t, MultiSink{a, b}.LoadBatch(context.Background(), rows))
	assert.Equal(t, rows, a.rows)
	assert.Equal(t, rows, b.rows)

	boom := errors.New("sink down")
	c := &captureSink{}
	err := MultiSink{&failingSink{err: boom}, c}.LoadBatch(context.Background(), rows)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, c.rows, "later sinks are skipped after a failure")
}
