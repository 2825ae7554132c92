/*
engine.go - Facet cardinality, pagination and period summary

PURPOSE:
  The request-facing operations of the package:
    FilterOptions  (getFilterOptions)  per-dimension counts excluding itself
    Page           (getPage)           sorted, bounded slice + true total
    Browse                             both of the above in one fan-out
    PeriodSummary  (getPeriodSummary)  month roll-up of stored periods

VALIDATION FIRST:
  Selection, sort and paging are validated before any query runs. A bad
  request never costs a store round-trip.

CONCURRENCY:
  One CountBy per dimension plus Count and Fetch for the page. All read the
  same predicate and none write, so they fan out under an errgroup bounded
  by Config.Concurrency. The first failure cancels the others; partial
  facets are never returned.

TIMEOUTS:
  Every store call gets its own context.WithTimeout(Config.QueryTimeout).
  A deadline, ours or the caller's, surfaces as ErrStoreTimeout; caller
  cancellation surfaces as context.Canceled. No retries happen here.
*/
package facet

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config bounds the work a single request may do.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	QueryTimeout    time.Duration
	Concurrency     int
}

// DefaultConfig returns conservative limits.
func DefaultConfig() Config {
	return Config{
		DefaultPageSize: 25,
		MaxPageSize:     100,
		QueryTimeout:    5 * time.Second,
		Concurrency:     4,
	}
}

// Engine executes browse requests against a Store. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	store   Store
	catalog *Catalog
	cfg     Config
	log     *logrus.Entry
}

// NewEngine creates an engine. Zero config fields fall back to DefaultConfig.
func NewEngine(store Store, catalog *Catalog, cfg Config, logger *logrus.Logger) *Engine {
	def := DefaultConfig()
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = def.MaxPageSize
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = def.DefaultPageSize
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = cfg.MaxPageSize
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		store:   store,
		catalog: catalog,
		cfg:     cfg,
		log:     logger.WithField("component", "facet"),
	}
}

// Catalog returns the catalog requests are validated against.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Config returns the effective limits.
func (e *Engine) Config() Config { return e.cfg }

// =============================================================================
// FILTER OPTIONS
// =============================================================================

// FilterOptions returns, for every catalog dimension, the options that would
// remain if that value were added to the current selection.
func (e *Engine) FilterOptions(ctx context.Context, sel Selection, searchText string) (map[string][]Option, error) {
	p, err := e.catalog.Build(sel, searchText)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	collect := e.goOptions(gctx, g, p)
	if err := g.Wait(); err != nil {
		return nil, e.cancelled(ctx, err)
	}
	return collect(), nil
}

// goOptions schedules one counting pass per dimension on g and returns a
// function that assembles the results once g has finished.
func (e *Engine) goOptions(ctx context.Context, g *errgroup.Group, p Predicate) func() map[string][]Option {
	dims := e.catalog.Dimensions()
	results := make([][]Option, len(dims))

	for i, d := range dims {
		g.Go(func() error {
			opts, err := e.options(ctx, p.Without(d.Name), d)
			if err != nil {
				return err
			}
			results[i] = opts
			return nil
		})
	}

	return func() map[string][]Option {
		out := make(map[string][]Option, len(dims))
		for i, d := range dims {
			out[d.Name] = results[i]
		}
		return out
	}
}

func (e *Engine) options(ctx context.Context, p Predicate, d Dimension) ([]Option, error) {
	var counts []ValueCount
	err := e.query(ctx, "count_by", d.Name, func(qctx context.Context) error {
		var err error
		counts, err = e.store.CountBy(qctx, p, d)
		return err
	})
	if err != nil {
		return nil, err
	}

	if d.Kind == KindPeriod {
		return e.periodOptions(d, counts), nil
	}

	opts := make([]Option, 0, len(counts))
	for _, vc := range counts {
		if vc.Count > 0 {
			opts = append(opts, Option{Value: vc.Value, Count: vc.Count})
		}
	}
	sort.Slice(opts, func(i, j int) bool {
		if opts[i].Count != opts[j].Count {
			return opts[i].Count > opts[j].Count
		}
		return opts[i].Value < opts[j].Value
	})
	return opts, nil
}

// periodOptions rolls raw period values up to month buckets, most recent first.
func (e *Engine) periodOptions(d Dimension, counts []ValueCount) []Option {
	byMonth := make(map[string]int)
	for _, b := range e.buckets(d, counts) {
		byMonth[b.Bucket.MonthKey()] += b.Count
	}
	opts := make([]Option, 0, len(byMonth))
	for k, n := range byMonth {
		opts = append(opts, Option{Value: k, Count: n})
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Value > opts[j].Value })
	return opts
}

// buckets normalizes raw period counts, logging and dropping unrecognized values.
func (e *Engine) buckets(d Dimension, counts []ValueCount) []BucketCount {
	out := make([]BucketCount, 0, len(counts))
	for _, vc := range counts {
		if vc.Count <= 0 {
			continue
		}
		b, err := Normalize(vc.Value)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"dimension": d.Name,
				"value":     vc.Value,
				"records":   vc.Count,
			}).Warn("excluding unrecognized period from bucketed view")
			continue
		}
		out = append(out, BucketCount{Bucket: b, Count: vc.Count})
	}
	return out
}

// =============================================================================
// PAGINATION
// =============================================================================

type pagePlan struct {
	predicate Predicate
	sortKey   string
	sort      Sort
	dir       SortDir
	page      int
	pageSize  int

	// offset is meaningful only when beyond is false. beyond marks a page
	// whose first row would not fit in an int, so it is past any store.
	offset int
	beyond bool
}

func (e *Engine) plan(req PageRequest) (pagePlan, error) {
	if req.Page < 1 {
		return pagePlan{}, &InvalidPageError{Value: req.Page, Err: ErrInvalidPage}
	}
	if req.PageSize <= 0 {
		return pagePlan{}, &InvalidPageError{Value: req.PageSize, Err: ErrInvalidPageSize}
	}
	key, col, err := e.catalog.SortColumn(req.SortBy)
	if err != nil {
		return pagePlan{}, err
	}
	dir, err := ParseSortDir(req.SortDir)
	if err != nil {
		return pagePlan{}, err
	}
	p, err := e.catalog.Build(req.Selection, req.SearchText)
	if err != nil {
		return pagePlan{}, err
	}

	size := req.PageSize
	if size > e.cfg.MaxPageSize {
		size = e.cfg.MaxPageSize
	}
	pl := pagePlan{
		predicate: p,
		sortKey:   key,
		sort:      Sort{Column: col, Desc: dir == SortDesc},
		dir:       dir,
		page:      req.Page,
		pageSize:  size,
	}
	if req.Page-1 > math.MaxInt/size {
		pl.beyond = true
	} else {
		pl.offset = (req.Page - 1) * size
	}
	return pl, nil
}

// Page returns one sorted page of matching records.
func (e *Engine) Page(ctx context.Context, req PageRequest) (*ResultPage, error) {
	pl, err := e.plan(req)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	collect := e.goPage(gctx, g, pl)
	if err := g.Wait(); err != nil {
		return nil, e.cancelled(ctx, err)
	}
	return collect(), nil
}

// Browse returns a page and the filter options for the same request,
// running every query concurrently.
func (e *Engine) Browse(ctx context.Context, req PageRequest) (*BrowseResult, error) {
	pl, err := e.plan(req)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	page := e.goPage(gctx, g, pl)
	options := e.goOptions(gctx, g, pl.predicate)
	if err := g.Wait(); err != nil {
		return nil, e.cancelled(ctx, err)
	}
	return &BrowseResult{Page: page(), Options: options()}, nil
}

func (e *Engine) goPage(ctx context.Context, g *errgroup.Group, pl pagePlan) func() *ResultPage {
	var (
		total   int
		records []Record
	)
	g.Go(func() error {
		return e.query(ctx, "count", "", func(qctx context.Context) error {
			var err error
			total, err = e.store.Count(qctx, pl.predicate)
			return err
		})
	})
	if !pl.beyond {
		g.Go(func() error {
			return e.query(ctx, "fetch", "", func(qctx context.Context) error {
				var err error
				records, err = e.store.Fetch(qctx, pl.predicate, pl.sort, pl.offset, pl.pageSize)
				return err
			})
		})
	}

	return func() *ResultPage {
		if records == nil {
			records = []Record{}
		}
		return &ResultPage{
			Records:    records,
			Page:       pl.page,
			PageSize:   pl.pageSize,
			Total:      total,
			TotalPages: (total + pl.pageSize - 1) / pl.pageSize,
			SortBy:     pl.sortKey,
			SortDir:    pl.dir,
		}
	}
}

// =============================================================================
// PERIOD SUMMARY
// =============================================================================

// PeriodSummary reports the distribution of stored periods by month.
func (e *Engine) PeriodSummary(ctx context.Context) ([]MonthSummary, error) {
	d, ok := e.catalog.PeriodDimension()
	if !ok {
		return nil, ErrNoPeriodDimension
	}

	var counts []ValueCount
	err := e.query(ctx, "count_by", d.Name, func(qctx context.Context) error {
		var err error
		counts, err = e.store.CountBy(qctx, Predicate{}, d)
		return err
	})
	if err != nil {
		return nil, e.cancelled(ctx, err)
	}
	return SummarizeByMonth(e.buckets(d, counts)), nil
}

// =============================================================================
// QUERY EXECUTION
// =============================================================================

// query runs one store call under its own deadline and classifies failures.
func (e *Engine) query(ctx context.Context, op, dim string, fn func(context.Context) error) error {
	qctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	err := fn(qctx)
	if err == nil {
		e.log.WithFields(logrus.Fields{
			"op":        op,
			"dimension": dim,
			"elapsed":   time.Since(start),
		}).Debug("query done")
		return nil
	}

	// The caller (or a sibling failure) cancelled us; not a store fault.
	// An expired caller deadline is still reported as a timeout.
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	serr := &StoreError{Op: op, Dimension: dim, Kind: ErrStoreUnavailable, Err: err}
	if errors.Is(err, ErrStoreTimeout) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(qctx.Err(), context.DeadlineExceeded) {
		serr.Kind = ErrStoreTimeout
	}
	e.log.WithFields(logrus.Fields{
		"op":        op,
		"dimension": dim,
		"elapsed":   time.Since(start),
	}).WithError(err).Error("store query failed")
	return serr
}

// cancelled prefers the caller's own cancellation over errors caused by it.
func (e *Engine) cancelled(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return err
}
