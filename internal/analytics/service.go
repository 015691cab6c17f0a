// Package analytics serves the read-side operations over the observation
// collection: range queries, summary statistics and outlier detection.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
	"github.com/couchcryptid/asv-water-quality-service/internal/observability"
)

// Operation labels for request metrics.
const (
	OpQuery    = "query"
	OpStats    = "stats"
	OpOutliers = "outliers"
)

// SnapshotSource yields the current immutable observation table.
type SnapshotSource interface {
	Snapshot() *domain.Table
}

// Service answers analytics requests against the latest snapshot. Summary
// and outlier results are memoized per table version; a snapshot never
// changes, so a memoized result stays valid for as long as it is cached.
type Service struct {
	source   SnapshotSource
	logger   *slog.Logger
	metrics  *observability.Metrics
	stats    *lruCache[map[string]domain.FieldSummary]
	outliers *lruCache[domain.OutlierResult]
}

// NewService creates a Service holding up to cacheSize memoized results per
// operation.
func NewService(source SnapshotSource, logger *slog.Logger, metrics *observability.Metrics, cacheSize int) *Service {
	return &Service{
		source:   source,
		logger:   logger,
		metrics:  metrics,
		stats:    newLRUCache[map[string]domain.FieldSummary](cacheSize),
		outliers: newLRUCache[domain.OutlierResult](cacheSize),
	}
}

// QueryRange returns a page of observations matching q.
func (s *Service) QueryRange(ctx context.Context, q domain.RangeQuery) (res domain.QueryResult, err error) {
	defer s.observe(OpQuery, time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return domain.QueryResult{}, err
	}
	return domain.EvaluateRange(s.source.Snapshot(), q)
}

// SummaryStats returns per-field descriptive statistics of the range fields.
func (s *Service) SummaryStats(ctx context.Context) (res map[string]domain.FieldSummary, err error) {
	defer s.observe(OpStats, time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := s.source.Snapshot()
	key := "v" + strconv.FormatUint(table.Version(), 10)
	if cached, ok := s.stats.get(key); ok {
		s.metrics.CacheLookups.WithLabelValues(OpStats, "hit").Inc()
		return maps.Clone(cached), nil
	}
	s.metrics.CacheLookups.WithLabelValues(OpStats, "miss").Inc()

	summary, err := domain.Summarize(table)
	if err != nil {
		return nil, err
	}
	s.stats.put(key, summary)
	return maps.Clone(summary), nil
}

// DetectOutliers flags the observations whose field value is an outlier
// under m.
func (s *Service) DetectOutliers(ctx context.Context, field string, m domain.Method) (res domain.OutlierResult, err error) {
	defer s.observe(OpOutliers, time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return domain.OutlierResult{}, err
	}

	table := s.source.Snapshot()
	if m == nil {
		return domain.DetectOutliers(table, field, nil)
	}
	key := fmt.Sprintf("v%d|%s|%s|%g", table.Version(), field, m.Name(), m.Sensitivity())
	if cached, ok := s.outliers.get(key); ok {
		s.metrics.CacheLookups.WithLabelValues(OpOutliers, "hit").Inc()
		cached.Items = slices.Clone(cached.Items)
		return cached, nil
	}
	s.metrics.CacheLookups.WithLabelValues(OpOutliers, "miss").Inc()

	result, err := domain.DetectOutliers(table, field, m)
	if err != nil {
		return domain.OutlierResult{}, err
	}
	s.outliers.put(key, result)
	result.Items = slices.Clone(result.Items)
	return result, nil
}

func (s *Service) observe(op string, start time.Time, err *error) {
	outcome := "success"
	switch {
	case *err == nil:
	case domain.IsClientError(*err):
		outcome = "client_error"
	default:
		outcome = "error"
		s.logger.Error("analytics operation failed", "operation", op, "error", *err)
	}
	s.metrics.Requests.WithLabelValues(op, outcome).Inc()
	s.metrics.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
