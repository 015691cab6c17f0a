package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/asv-water-quality-service/internal/adapter/memstore"
	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
	"github.com/couchcryptid/asv-water-quality-service/internal/observability"
	"github.com/couchcryptid/asv-water-quality-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// mockExtractor serves batches keyed by source name. A delay lets later
// sources finish before earlier ones.
type mockExtractor struct {
	batches map[string]domain.RawBatch
	errs    map[string]error
	delays  map[string]time.Duration
	calls   atomic.Int64
	active  atomic.Int64
	peak    atomic.Int64
}

func (m *mockExtractor) Extract(ctx context.Context, src domain.Source) (domain.RawBatch, error) {
	m.calls.Add(1)
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if d := m.delays[src.Name]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return domain.RawBatch{}, ctx.Err()
		}
	}
	if err := m.errs[src.Name]; err != nil {
		return domain.RawBatch{}, err
	}
	batch, ok := m.batches[src.Name]
	if !ok {
		return domain.RawBatch{}, fmt.Errorf("unknown source %s", src.Name)
	}
	batch.Source = src
	return batch, nil
}

type mockSink struct {
	name      string
	failFirst int
	mu        sync.Mutex
	attempts  int
	published []domain.CleanedBatch
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Publish(_ context.Context, batch domain.CleanedBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.attempts <= m.failFirst {
		return errors.New("sink unavailable")
	}
	m.published = append(m.published, batch)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	return pb.GetCounter().GetValue()
}

var header = []string{
	"Time hh:mm:ss", "Date m/d/y", "C Inside Temp (c)", "DFS Depth (m)", "DTB Height (m)",
	"Total Water Column (m)", "Temperature (c)", "Salinity (ppt)", "ODO mg/L",
}

// surveyBatch builds n clean rows whose temperature encodes the row number,
// so the load order is visible in the stored table.
func surveyBatch(prefix string, n int) domain.RawBatch {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{
			fmt.Sprintf("%s:%02d", prefix, i),
			"12/16/21",
			fmt.Sprintf("%.1f", 30+0.1*float64(i%3)),
			fmt.Sprintf("%.2f", 1+0.01*float64(i%4)),
			fmt.Sprintf("%.2f", 2+0.02*float64(i%3)),
			fmt.Sprintf("%.2f", 3+0.03*float64(i%4)),
			fmt.Sprintf("%d", 20+i),
			fmt.Sprintf("%.1f", 35+0.2*float64(i%3)),
			fmt.Sprintf("%.2f", 6+0.05*float64(i%4)),
		}
	}
	return domain.RawBatch{Header: header, Rows: rows}
}

func newPipeline(ext pipeline.Extractor, store pipeline.Store, sinks []pipeline.Sink, metrics *observability.Metrics, opts pipeline.Options) *pipeline.Pipeline {
	p := pipeline.New(ext, domain.NewCleaner(3), store, sinks, discardLogger(), metrics, opts)
	pipeline.SetBackoff(p, time.Millisecond, 4*time.Millisecond)
	return p
}

func times(t *domain.Table) []string {
	out := make([]string, 0, t.Len())
	for _, r := range t.Records() {
		out = append(out, r.Time())
	}
	return out
}

// --- tests ---

func TestPipeline_Load_HappyPath(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2021, 12, 16, 18, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	ext := &mockExtractor{batches: map[string]domain.RawBatch{
		"dec16": surveyBatch("10:00", 3),
		"oct21": surveyBatch("11:00", 2),
	}}
	store := memstore.New()
	metrics := newTestMetrics()
	p := newPipeline(ext, store, nil, metrics, pipeline.Options{Workers: 2})

	require.Error(t, p.CheckReadiness(context.Background()))

	reports, err := p.Load(context.Background(), []domain.Source{{Name: "dec16"}, {Name: "oct21"}})
	require.NoError(t, err)

	want := []domain.CleaningReport{
		{Source: "dec16", OriginalRows: 3, RowsRemaining: 3, CleanedAt: time.Date(2021, 12, 16, 18, 0, 0, 0, time.UTC)},
		{Source: "oct21", OriginalRows: 2, RowsRemaining: 2, CleanedAt: time.Date(2021, 12, 16, 18, 0, 0, 0, time.UTC)},
	}
	if diff := cmp.Diff(want, reports); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 5, store.Len())
	assert.True(t, store.Snapshot().Indexed(domain.FieldTime))
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.True(t, p.Ready())
	assert.InDelta(t, 5.0, counterValue(t, metrics.RowsRead), 0)
	assert.InDelta(t, 5.0, counterValue(t, metrics.RowsLoaded), 0)
}

func TestPipeline_Load_SourceOrderWins(t *testing.T) {
	// The first source finishes last; the table still follows source order.
	ext := &mockExtractor{
		batches: map[string]domain.RawBatch{
			"slow": surveyBatch("09:00", 2),
			"fast": surveyBatch("08:00", 2),
		},
		delays: map[string]time.Duration{"slow": 30 * time.Millisecond},
	}
	store := memstore.New()
	p := newPipeline(ext, store, nil, newTestMetrics(), pipeline.Options{Workers: 2})

	_, err := p.Load(context.Background(), []domain.Source{{Name: "slow"}, {Name: "fast"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00:00", "09:00:01", "08:00:00", "08:00:01"}, times(store.Snapshot()))
}

func TestPipeline_Load_WorkerLimit(t *testing.T) {
	batches := make(map[string]domain.RawBatch)
	delays := make(map[string]time.Duration)
	sources := make([]domain.Source, 6)
	for i := range sources {
		name := fmt.Sprintf("src-%d", i)
		batches[name] = surveyBatch(fmt.Sprintf("1%d:00", i), 2)
		delays[name] = 10 * time.Millisecond
		sources[i] = domain.Source{Name: name}
	}
	ext := &mockExtractor{batches: batches, delays: delays}

	_, err := newPipeline(ext, memstore.New(), nil, newTestMetrics(), pipeline.Options{Workers: 2}).
		Load(context.Background(), sources)
	require.NoError(t, err)

	assert.Equal(t, int64(6), ext.calls.Load())
	assert.LessOrEqual(t, ext.peak.Load(), int64(2))
}

func TestPipeline_Load_AbortPolicy(t *testing.T) {
	ext := &mockExtractor{
		batches: map[string]domain.RawBatch{"good": surveyBatch("10:00", 3)},
		errs:    map[string]error{"bad": errors.New("disk on fire")},
	}
	store := memstore.New()
	metrics := newTestMetrics()
	p := newPipeline(ext, store, nil, metrics, pipeline.Options{Workers: 1})

	_, err := p.Load(context.Background(), []domain.Source{{Name: "good"}, {Name: "bad"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")

	assert.Zero(t, store.Len(), "nothing is inserted when the load aborts")
	assert.False(t, p.Ready())
	assert.InDelta(t, 1.0, counterValue(t, metrics.SourcesFailed), 0)
}

func TestPipeline_Load_AbortOnSchemaMismatch(t *testing.T) {
	bad := surveyBatch("10:00", 3)
	bad.Header = bad.Header[:3]
	ext := &mockExtractor{batches: map[string]domain.RawBatch{"bad": bad}}

	_, err := newPipeline(ext, memstore.New(), nil, newTestMetrics(), pipeline.Options{}).
		Load(context.Background(), []domain.Source{{Name: "bad"}})
	require.ErrorIs(t, err, domain.ErrSchemaMismatch)
}

func TestPipeline_Load_ContinuePolicy(t *testing.T) {
	ext := &mockExtractor{
		batches: map[string]domain.RawBatch{
			"first": surveyBatch("10:00", 2),
			"third": surveyBatch("12:00", 2),
		},
		errs: map[string]error{"second": errors.New("truncated file")},
	}
	store := memstore.New()
	p := newPipeline(ext, store, nil, newTestMetrics(), pipeline.Options{Workers: 3, ContinueOnError: true})

	reports, err := p.Load(context.Background(), []domain.Source{{Name: "first"}, {Name: "second"}, {Name: "third"}})
	require.NoError(t, err)

	require.Len(t, reports, 3)
	assert.Empty(t, reports[0].Error)
	assert.Equal(t, "second", reports[1].Source)
	assert.Contains(t, reports[1].Error, "truncated file")
	assert.Equal(t, 2, reports[2].RowsRemaining)
	assert.Equal(t, []string{"10:00:00", "10:00:01", "12:00:00", "12:00:01"}, times(store.Snapshot()))
	assert.True(t, p.Ready())
}

func TestPipeline_Load_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ext := &mockExtractor{
		batches: map[string]domain.RawBatch{"a": surveyBatch("10:00", 1)},
		delays:  map[string]time.Duration{"a": time.Second},
	}

	_, err := newPipeline(ext, memstore.New(), nil, newTestMetrics(), pipeline.Options{ContinueOnError: true}).
		Load(ctx, []domain.Source{{Name: "a"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Load_PublishesToSinks(t *testing.T) {
	ext := &mockExtractor{batches: map[string]domain.RawBatch{
		"a": surveyBatch("10:00", 2),
		"b": surveyBatch("11:00", 2),
	}}
	csvSink := &mockSink{name: "csv"}
	kafkaSink := &mockSink{name: "kafka"}
	p := newPipeline(ext, memstore.New(), []pipeline.Sink{csvSink, kafkaSink}, newTestMetrics(), pipeline.Options{SinkMaxAttempts: 3})

	_, err := p.Load(context.Background(), []domain.Source{{Name: "a"}, {Name: "b"}})
	require.NoError(t, err)

	for _, sink := range []*mockSink{csvSink, kafkaSink} {
		require.Len(t, sink.published, 2, sink.name)
		assert.Equal(t, "a", sink.published[0].Source.Name)
		assert.Equal(t, "b", sink.published[1].Source.Name)
		for _, obs := range sink.published[0].Rows {
			assert.NotEmpty(t, obs.ID, "sinks see stored identifiers")
		}
	}
}

func TestPipeline_Load_SinkRetries(t *testing.T) {
	ext := &mockExtractor{batches: map[string]domain.RawBatch{"a": surveyBatch("10:00", 2)}}
	sink := &mockSink{name: "kafka", failFirst: 2}
	metrics := newTestMetrics()
	p := newPipeline(ext, memstore.New(), []pipeline.Sink{sink}, metrics, pipeline.Options{SinkMaxAttempts: 3})

	_, err := p.Load(context.Background(), []domain.Source{{Name: "a"}})
	require.NoError(t, err)

	assert.Equal(t, 3, sink.attempts)
	assert.Len(t, sink.published, 1)
	assert.InDelta(t, 2.0, counterValue(t, metrics.SinkPublishErrors.WithLabelValues("kafka")), 0)
}

func TestPipeline_Load_SinkFailureDoesNotFailLoad(t *testing.T) {
	ext := &mockExtractor{batches: map[string]domain.RawBatch{"a": surveyBatch("10:00", 2)}}
	sink := &mockSink{name: "csv", failFirst: 100}
	store := memstore.New()
	p := newPipeline(ext, store, []pipeline.Sink{sink}, newTestMetrics(), pipeline.Options{SinkMaxAttempts: 2})

	_, err := p.Load(context.Background(), []domain.Source{{Name: "a"}})
	require.NoError(t, err)

	assert.Equal(t, 2, sink.attempts)
	assert.Empty(t, sink.published)
	assert.Equal(t, 2, store.Len())
	assert.True(t, p.Ready())
}

func TestPipeline_Load_NoSources(t *testing.T) {
	store := memstore.New()
	p := newPipeline(&mockExtractor{}, store, nil, newTestMetrics(), pipeline.Options{})

	reports, err := p.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Zero(t, store.Len())
	assert.True(t, p.Ready())
}
