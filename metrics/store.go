package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/warp/payroll-browse/facet"
)

// Store decorates a facet.Store with query metrics.
type Store struct {
	next facet.Store
	m    *Metrics
}

var _ facet.Store = (*Store)(nil)

// WrapStore returns next instrumented with m.
func (m *Metrics) WrapStore(next facet.Store) *Store {
	return &Store{next: next, m: m}
}

func (s *Store) Count(ctx context.Context, p facet.Predicate) (int, error) {
	start := time.Now()
	n, err := s.next.Count(ctx, p)
	s.observe(ctx, "count", start, err)
	return n, err
}

func (s *Store) CountBy(ctx context.Context, p facet.Predicate, dim facet.Dimension) ([]facet.ValueCount, error) {
	start := time.Now()
	out, err := s.next.CountBy(ctx, p, dim)
	s.observe(ctx, "count_by", start, err)
	return out, err
}

func (s *Store) Fetch(ctx context.Context, p facet.Predicate, srt facet.Sort, offset, limit int) ([]facet.Record, error) {
	start := time.Now()
	out, err := s.next.Fetch(ctx, p, srt, offset, limit)
	s.observe(ctx, "fetch", start, err)
	return out, err
}

func (s *Store) observe(ctx context.Context, op string, start time.Time, err error) {
	result := queryResult(ctx, err)
	s.m.queriesTotal.WithLabelValues(op, result).Inc()
	s.m.queryDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func queryResult(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, facet.ErrStoreTimeout), errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
