package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
	"github.com/couchcryptid/asv-water-quality-service/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Extractor reads the raw content of one source.
type Extractor interface {
	Extract(ctx context.Context, src domain.Source) (domain.RawBatch, error)
}

// Cleaner applies the outlier cleaning pass to a raw batch.
type Cleaner interface {
	Clean(batch domain.RawBatch) (domain.CleanedBatch, error)
}

// Store receives cleaned observations.
type Store interface {
	InsertMany(ctx context.Context, records []domain.Observation) ([]domain.Observation, error)
	CreateIndex(field string) error
	Len() int
}

// Sink receives a copy of every cleaned batch after it is stored. Sink
// failures are retried and logged but never fail a load.
type Sink interface {
	Name() string
	Publish(ctx context.Context, batch domain.CleanedBatch) error
}

// Options tunes a Pipeline.
type Options struct {
	// ContinueOnError skips sources that fail extraction or cleaning instead
	// of failing the whole load.
	ContinueOnError bool
	Workers         int
	SinkMaxAttempts int
}

// Pipeline runs the startup load: extract and clean every source, store the
// cleaned rows in source order, index them by time, then fan them out to sinks.
type Pipeline struct {
	extractor Extractor
	cleaner   Cleaner
	store     Store
	sinks     []Sink
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	opts      Options

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, c Cleaner, s Store, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.SinkMaxAttempts <= 0 {
		opts.SinkMaxAttempts = 1
	}
	return &Pipeline{
		extractor: e,
		cleaner:   c,
		store:     s,
		sinks:     sinks,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,

		// Exponential backoff: start at 200ms, double each retry, cap at 5s.
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// CheckReadiness returns nil once a load has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("startup load has not completed")
	}
	return nil
}

// Ready reports whether a load has completed.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

type prepared struct {
	batch domain.CleanedBatch
	err   error
}

// Load extracts and cleans sources concurrently, then inserts the cleaned
// batches in the order sources were given. It returns one report per source.
func (p *Pipeline) Load(ctx context.Context, sources []domain.Source) ([]domain.CleaningReport, error) {
	start := time.Now()
	p.logger.Info("load started", "sources", len(sources), "workers", p.opts.Workers)

	results, err := p.prepareAll(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	reports := make([]domain.CleaningReport, len(sources))
	stored := make([]domain.CleanedBatch, 0, len(sources))
	for i, res := range results {
		if res.err != nil {
			reports[i] = domain.CleaningReport{Source: sources[i].Name, Error: res.err.Error()}
			p.logger.Warn("source skipped", "source", sources[i].Name, "error", res.err)
			continue
		}

		batch := res.batch
		rows, err := p.store.InsertMany(ctx, batch.Rows)
		if err != nil {
			return nil, fmt.Errorf("load: insert %s: %w", batch.Source.Name, err)
		}
		batch.Rows = rows
		p.metrics.RowsLoaded.Add(float64(len(rows)))

		reports[i] = batch.Report
		stored = append(stored, batch)
		p.logger.Info("data cleaning report",
			"source", batch.Report.Source,
			"original_rows", batch.Report.OriginalRows,
			"rows_removed", batch.Report.RowsRemoved,
			"rows_remaining", batch.Report.RowsRemaining,
		)
	}

	if err := p.store.CreateIndex(domain.FieldTime); err != nil {
		return nil, fmt.Errorf("load: index %s: %w", domain.FieldTime, err)
	}

	p.publishAll(ctx, stored)

	p.metrics.TableRows.Set(float64(p.store.Len()))
	p.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Info("load complete", "rows", p.store.Len(), "duration", time.Since(start))
	return reports, nil
}

// prepareAll runs extract and clean for every source with at most
// opts.Workers in flight. Results keep source order.
func (p *Pipeline) prepareAll(ctx context.Context, sources []domain.Source) ([]prepared, error) {
	results := make([]prepared, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i, src := range sources {
		g.Go(func() error {
			batch, err := p.prepare(gctx, src)
			if err != nil {
				p.metrics.SourcesFailed.Inc()
				if p.opts.ContinueOnError && ctx.Err() == nil {
					results[i].err = err
					return nil
				}
				return err
			}
			results[i].batch = batch
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) prepare(ctx context.Context, src domain.Source) (domain.CleanedBatch, error) {
	raw, err := p.extractor.Extract(ctx, src)
	if err != nil {
		return domain.CleanedBatch{}, err
	}
	p.metrics.RowsRead.Add(float64(len(raw.Rows)))

	batch, err := p.cleaner.Clean(raw)
	if err != nil {
		return domain.CleanedBatch{}, err
	}
	p.metrics.RowsRemoved.Add(float64(batch.Report.RowsRemoved))
	return batch, nil
}

// publishAll delivers every batch to every sink. Sinks run concurrently with
// each other; batches reach a given sink in load order.
func (p *Pipeline) publishAll(ctx context.Context, batches []domain.CleanedBatch) {
	if len(p.sinks) == 0 || len(batches) == 0 {
		return
	}
	var g errgroup.Group
	for _, sink := range p.sinks {
		g.Go(func() error {
			for _, batch := range batches {
				if err := p.publish(ctx, sink, batch); err != nil {
					p.logger.Error("sink publish failed",
						"sink", sink.Name(),
						"source", batch.Source.Name,
						"attempts", p.opts.SinkMaxAttempts,
						"error", err,
					)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// publish retries a sink with exponential backoff until it succeeds, the
// attempt budget is spent, or ctx is done.
func (p *Pipeline) publish(ctx context.Context, sink Sink, batch domain.CleanedBatch) error {
	backoff := p.initialBackoff
	for attempt := 1; ; attempt++ {
		err := sink.Publish(ctx, batch)
		if err == nil {
			return nil
		}
		p.metrics.SinkPublishErrors.WithLabelValues(sink.Name()).Inc()
		if attempt >= p.opts.SinkMaxAttempts || ctx.Err() != nil {
			return err
		}
		p.logger.Warn("sink publish failed, retrying",
			"sink", sink.Name(),
			"source", batch.Source.Name,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !sleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, p.maxBackoff)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
