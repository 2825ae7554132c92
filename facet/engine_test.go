package facet_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-browse/facet"
	"github.com/warp/payroll-browse/facet/store"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

// =============================================================================
// PAGINATION & SORT
// =============================================================================

func TestPage_BranchScenario(t *testing.T) {
	// GIVEN: 12 CDMX records and 8 elsewhere
	// WHEN: Page 1 of 5, CDMX only, sorted by name ascending
	// THEN: total is 12, 5 records, alphabetical with id breaking the name tie
	ctx := context.Background()
	engine := newTestEngine(t)

	page, err := engine.Page(ctx, facet.PageRequest{
		Selection: facet.Selection{"branch": {"CDMX"}},
		SortBy:    "name",
		SortDir:   "asc",
		Page:      1,
		PageSize:  5,
	})

	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Records, 5)
	assert.Equal(t, []string{"BBBB04", "ZZZZ03", "AAAA01", "AAAA02", "CCCC05"}, ids(page.Records))
	assert.Equal(t, "name", page.SortBy)
	assert.Equal(t, facet.SortAsc, page.SortDir)

	names := make([]string, len(page.Records))
	for i, r := range page.Records {
		names[i] = r.Name
	}
	assert.True(t, sort.StringsAreSorted(names))
}

func TestPage_PastLastPage(t *testing.T) {
	engine := newTestEngine(t)

	page, err := engine.Page(context.Background(), facet.PageRequest{
		Selection: facet.Selection{"branch": {"CDMX"}},
		Page:      999,
		PageSize:  10,
	})

	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.NotNil(t, page.Records)
	assert.Empty(t, page.Records)
}

func TestPage_HugePageNumberIsPastTheEnd(t *testing.T) {
	// GIVEN: A page number whose offset does not fit in an int
	// WHEN: Requesting it, alone and through Browse
	// THEN: Empty records with the true total; the fetch is never issued
	ctx := context.Background()
	spy := &spyStore{Store: store.NewMemory(payrollRecords()...)}
	engine := facet.NewEngine(spy, testCatalog(t), facet.DefaultConfig(), quietLogger())

	for _, n := range []int{100000000000000001, math.MaxInt} {
		spy.calls.Store(0)
		page, err := engine.Page(ctx, facet.PageRequest{
			Selection: facet.Selection{"branch": {"CDMX"}},
			Page:      n,
			PageSize:  100,
		})

		require.NoError(t, err)
		assert.Equal(t, n, page.Page)
		assert.Equal(t, 12, page.Total)
		assert.Equal(t, 1, page.TotalPages)
		assert.NotNil(t, page.Records)
		assert.Empty(t, page.Records)
		assert.Equal(t, int64(1), spy.calls.Load(), "only the count runs")
	}

	result, err := engine.Browse(ctx, facet.PageRequest{Page: math.MaxInt, PageSize: 100})
	require.NoError(t, err)
	assert.Empty(t, result.Page.Records)
	assert.Equal(t, len(payrollRecords()), result.Page.Total)
}

func TestMemoryFetch_NegativeOffsetIsEmpty(t *testing.T) {
	m := store.NewMemory(payrollRecords()...)

	var out []facet.Record
	var err error
	require.NotPanics(t, func() {
		out, err = m.Fetch(context.Background(), facet.Predicate{}, facet.Sort{Column: facet.ColumnID}, -8446744073709551516, 100)
	})

	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestPage_DescendingTieBreakStaysAscendingByID(t *testing.T) {
	// AAAA02 and ZZZZ03 share a salary of 18000.50.
	engine := newTestEngine(t)

	page, err := engine.Page(context.Background(), facet.PageRequest{
		Selection: facet.Selection{"department": {"Ventas"}, "branch": {"CDMX"}},
		SortBy:    "salary",
		SortDir:   "DESC",
		Page:      1,
		PageSize:  10,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"EEEE07", "GGGG09", "AAAA02", "ZZZZ03", "IIII11"}, ids(page.Records))
}

func TestPage_DecimalSortIsNumeric(t *testing.T) {
	engine := newTestEngine(t,
		rec("A", "a", "CDMX", "Ventas", "Activo", "2024-10", "9000"),
		rec("B", "b", "CDMX", "Ventas", "Activo", "2024-10", "10000"),
		rec("C", "c", "CDMX", "Ventas", "Activo", "2024-10", "950.5"),
	)

	page, err := engine.Page(context.Background(), facet.PageRequest{SortBy: "salary", Page: 1, PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, ids(page.Records))
}

func TestPage_Completeness(t *testing.T) {
	// GIVEN: Any sort key/direction and page size
	// THEN: Concatenating every page yields each matching record exactly once, in order
	ctx := context.Background()
	engine := newTestEngine(t)

	for _, sortBy := range engine.Catalog().SortKeys() {
		for _, dir := range []string{"asc", "desc"} {
			for _, size := range []int{1, 3, 7, 20} {
				full, err := engine.Page(ctx, facet.PageRequest{SortBy: sortBy, SortDir: dir, Page: 1, PageSize: 100})
				require.NoError(t, err)
				require.Len(t, full.Records, 20)

				var all []facet.Record
				pages := (full.Total + size - 1) / size
				for p := 1; p <= pages; p++ {
					page, err := engine.Page(ctx, facet.PageRequest{SortBy: sortBy, SortDir: dir, Page: p, PageSize: size})
					require.NoError(t, err)
					assert.Equal(t, 20, page.Total)
					all = append(all, page.Records...)
				}

				assert.Equal(t, ids(full.Records), ids(all), "sort=%s dir=%s size=%d", sortBy, dir, size)
				seen := make(map[string]bool)
				for _, id := range ids(all) {
					assert.False(t, seen[id], "duplicate %s", id)
					seen[id] = true
				}
			}
		}
	}
}

func TestPage_Deterministic(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)
	req := facet.PageRequest{
		Selection: facet.Selection{"status": {"Activo"}},
		SortBy:    "branch",
		Page:      2,
		PageSize:  4,
	}

	first, err := engine.Page(ctx, req)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := engine.Page(ctx, req)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again, decimalEqual); diff != "" {
			t.Fatalf("page changed between identical calls (-first +again):\n%s", diff)
		}
	}
}

func TestPage_ClampsPageSize(t *testing.T) {
	cfg := facet.DefaultConfig()
	cfg.MaxPageSize = 5
	engine := facet.NewEngine(store.NewMemory(payrollRecords()...), testCatalog(t), cfg, quietLogger())

	page, err := engine.Page(context.Background(), facet.PageRequest{Page: 1, PageSize: 1000})

	require.NoError(t, err)
	assert.Equal(t, 5, page.PageSize)
	assert.Len(t, page.Records, 5)
	assert.Equal(t, 20, page.Total)
	assert.Equal(t, 4, page.TotalPages)
}

func TestPage_ValidationRejectsBeforeQuerying(t *testing.T) {
	spy := &spyStore{Store: store.NewMemory(payrollRecords()...)}
	engine := facet.NewEngine(spy, testCatalog(t), facet.DefaultConfig(), quietLogger())

	tests := []struct {
		name string
		req  facet.PageRequest
		want error
	}{
		{"page zero", facet.PageRequest{Page: 0, PageSize: 5}, facet.ErrInvalidPage},
		{"negative page size", facet.PageRequest{Page: 1, PageSize: -1}, facet.ErrInvalidPageSize},
		{"zero page size", facet.PageRequest{Page: 1, PageSize: 0}, facet.ErrInvalidPageSize},
		{"unknown sort", facet.PageRequest{Page: 1, PageSize: 5, SortBy: "name; DROP TABLE payroll_records"}, facet.ErrInvalidSortColumn},
		{"bad direction", facet.PageRequest{Page: 1, PageSize: 5, SortDir: "sideways"}, facet.ErrInvalidSortDirection},
		{"unknown facet", facet.PageRequest{Page: 1, PageSize: 5, Selection: facet.Selection{"salary": {"1"}}}, facet.ErrInvalidFacet},
		{"bad period value", facet.PageRequest{Page: 1, PageSize: 5, Selection: facet.Selection{"period": {"10/2024"}}}, facet.ErrInvalidFacetValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Page(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, facet.IsClientError(err))
		})
	}

	_, err := engine.FilterOptions(context.Background(), facet.Selection{"nope": {"x"}}, "")
	assert.True(t, errors.Is(err, facet.ErrInvalidFacet))

	assert.Zero(t, spy.calls.Load(), "no query may run for an invalid request")
}

func TestPage_Monotonicity(t *testing.T) {
	// Adding a value constraint never increases the total.
	ctx := context.Background()
	engine := newTestEngine(t)

	steps := []facet.Selection{
		{},
		{"branch": {"CDMX", "GDL"}},
		{"branch": {"CDMX", "GDL"}, "status": {"Activo"}},
		{"branch": {"CDMX", "GDL"}, "status": {"Activo"}, "period": {"2024-10"}},
		{"branch": {"CDMX", "GDL"}, "status": {"Activo"}, "period": {"2024-10"}, "department": {"Ventas"}},
	}

	prev := 1 << 30
	for _, sel := range steps {
		page, err := engine.Page(ctx, facet.PageRequest{Selection: sel, Page: 1, PageSize: 1})
		require.NoError(t, err)
		assert.LessOrEqual(t, page.Total, prev, "selection %v", sel)
		prev = page.Total
	}
	assert.Equal(t, 3, prev) // AAAA02, ZZZZ03, KKKK13
}

func TestPage_MultipleValuesWithinDimensionAreORed(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	gdl, err := engine.Page(ctx, facet.PageRequest{Selection: facet.Selection{"branch": {"GDL"}}, Page: 1, PageSize: 1})
	require.NoError(t, err)
	mty, err := engine.Page(ctx, facet.PageRequest{Selection: facet.Selection{"branch": {"MTY"}}, Page: 1, PageSize: 1})
	require.NoError(t, err)
	both, err := engine.Page(ctx, facet.PageRequest{Selection: facet.Selection{"branch": {"GDL", "MTY"}}, Page: 1, PageSize: 1})
	require.NoError(t, err)

	assert.Equal(t, gdl.Total+mty.Total, both.Total)
	assert.Equal(t, 8, both.Total)
}

func TestPage_Search(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	tests := []struct {
		search string
		want   []string
	}{
		{"lópez", []string{"BBBB04", "ZZZZ03"}},
		{"  NÚÑEZ ", []string{"JJJJ12"}},
		{"aaaa", []string{"AAAA01", "AAAA02"}},
		{"operaciones", []string{"CCCC05", "DDDD06", "HHHH10", "MMMM15", "QQQQ19"}},
		{"nobody", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			page, err := engine.Page(ctx, facet.PageRequest{SearchText: tt.search, SortBy: "id", Page: 1, PageSize: 50})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Records))
			assert.Equal(t, len(tt.want), page.Total)
		})
	}
}

func TestPage_PeriodSelection(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	tests := []struct {
		values []string
		want   int
	}{
		{[]string{"2024-10"}, 9},
		{[]string{"2024-10-05"}, 6},
		{[]string{"2024-09"}, 5}, // month-only records plus 2024-09-30
		{[]string{"2024-10-12", "2024-11"}, 9},
		{[]string{"2024-12"}, 0},
	}
	for _, tt := range tests {
		page, err := engine.Page(ctx, facet.PageRequest{Selection: facet.Selection{"period": tt.values}, Page: 1, PageSize: 50})
		require.NoError(t, err)
		assert.Equal(t, tt.want, page.Total, "period %v", tt.values)
	}
}

// =============================================================================
// FILTER OPTIONS
// =============================================================================

func TestFilterOptions_EmptySelectionSumsToStoreCount(t *testing.T) {
	engine := newTestEngine(t)

	options, err := engine.FilterOptions(context.Background(), facet.Selection{}, "")

	require.NoError(t, err)
	require.Len(t, options, 4)
	for dim, opts := range options {
		assert.Equal(t, 20, sum(opts), "dimension %s", dim)
	}
}

func TestFilterOptions_ExcludeOwnDimension(t *testing.T) {
	// GIVEN: CDMX and Ventas selected
	// THEN: branch counts are Ventas-only across all branches,
	//       department counts are CDMX-only across all departments
	engine := newTestEngine(t)

	options, err := engine.FilterOptions(context.Background(), facet.Selection{
		"branch":     {"CDMX"},
		"department": {"Ventas"},
	}, "")

	require.NoError(t, err)
	assert.Equal(t, []facet.Option{{Value: "CDMX", Count: 5}, {Value: "GDL", Count: 3}, {Value: "MTY", Count: 1}}, options["branch"])
	assert.Equal(t, []facet.Option{{Value: "Ventas", Count: 5}, {Value: "Finanzas", Count: 4}, {Value: "Operaciones", Count: 3}}, options["department"])
	assert.Equal(t, []facet.Option{{Value: "Activo", Count: 4}, {Value: "Baja", Count: 1}}, options["status"])
}

func TestFilterOptions_PartitionProperty(t *testing.T) {
	// For every selection S and discrete dimension D:
	// sum(options[D]) == total of S with D cleared.
	ctx := context.Background()
	engine := newTestEngine(t)

	selections := []facet.Selection{
		{},
		{"branch": {"CDMX"}},
		{"branch": {"CDMX", "MTY"}, "status": {"Activo"}},
		{"department": {"Ventas"}, "period": {"2024-10", "2024-09"}},
		{"status": {"Baja"}, "period": {"2024-11"}},
	}
	searches := []string{"", "a", "ez"}

	for _, sel := range selections {
		for _, q := range searches {
			options, err := engine.FilterOptions(ctx, sel, q)
			require.NoError(t, err)

			for _, d := range engine.Catalog().Dimensions() {
				cleared := facet.Selection{}
				for k, v := range sel {
					if k != d.Name {
						cleared[k] = v
					}
				}
				page, err := engine.Page(ctx, facet.PageRequest{Selection: cleared, SearchText: q, Page: 1, PageSize: 1})
				require.NoError(t, err)
				assert.Equal(t, page.Total, sum(options[d.Name]), "sel=%v q=%q dim=%s", sel, q, d.Name)
			}
		}
	}
}

func TestFilterOptions_Ordering(t *testing.T) {
	engine := newTestEngine(t)

	options, err := engine.FilterOptions(context.Background(), nil, "")
	require.NoError(t, err)

	// Discrete: count descending.
	assert.Equal(t, []facet.Option{{Value: "CDMX", Count: 12}, {Value: "GDL", Count: 5}, {Value: "MTY", Count: 3}}, options["branch"])
	// Period: month key descending regardless of volume.
	assert.Equal(t, []facet.Option{{Value: "2024-11", Count: 6}, {Value: "2024-10", Count: 9}, {Value: "2024-09", Count: 5}}, options["period"])
}

func TestFilterOptions_CountTiesOrderedByValue(t *testing.T) {
	engine := newTestEngine(t,
		rec("1", "a", "Zacatecas", "Ventas", "Activo", "2024-10", "1"),
		rec("2", "b", "Aguascalientes", "Ventas", "Activo", "2024-10", "1"),
		rec("3", "c", "León", "Ventas", "Activo", "2024-10", "1"),
	)

	options, err := engine.FilterOptions(context.Background(), nil, "")

	require.NoError(t, err)
	assert.Equal(t, []facet.Option{{Value: "Aguascalientes", Count: 1}, {Value: "León", Count: 1}, {Value: "Zacatecas", Count: 1}}, options["branch"])
}

func TestFilterOptions_NoMatchesYieldsEmptyNotError(t *testing.T) {
	engine := newTestEngine(t)

	options, err := engine.FilterOptions(context.Background(), facet.Selection{"branch": {"Tijuana"}}, "")

	require.NoError(t, err)
	assert.NotNil(t, options["department"])
	assert.Empty(t, options["department"])
	assert.Empty(t, options["period"])
	// Excluding branch's own condition still shows every branch.
	assert.Len(t, options["branch"], 3)
}

func TestFilterOptions_UnrecognizedPeriodsExcludedFromBuckets(t *testing.T) {
	records := append(payrollRecords(),
		rec("ZZZZ98", "Periodo Roto", "CDMX", "Ventas", "Activo", "Oct-2024", "1000"),
		rec("ZZZZ99", "Sin Periodo", "CDMX", "Ventas", "Activo", "", "1000"),
	)
	engine := newTestEngine(t, records...)
	ctx := context.Background()

	options, err := engine.FilterOptions(ctx, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 20, sum(options["period"]))
	assert.Equal(t, 22, sum(options["branch"]))

	// Still visible in non-period results.
	page, err := engine.Page(ctx, facet.PageRequest{SearchText: "periodo", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"ZZZZ98", "ZZZZ99"}, ids(page.Records))
}

func TestFilterOptions_RespectsConcurrencyLimit(t *testing.T) {
	spy := &spyStore{Store: store.NewMemory(payrollRecords()...)}
	cfg := facet.DefaultConfig()
	cfg.Concurrency = 2
	engine := facet.NewEngine(spy, testCatalog(t), cfg, quietLogger())

	_, err := engine.FilterOptions(context.Background(), nil, "")

	require.NoError(t, err)
	assert.Equal(t, int64(4), spy.calls.Load(), "one counting pass per dimension")
	assert.LessOrEqual(t, spy.peak.Load(), int64(2))
}

func TestFilterOptions_RunsDimensionsConcurrently(t *testing.T) {
	// Every call blocks on the barrier until all four have started.
	barrier := make(chan struct{})
	spy := &spyStore{Store: store.NewMemory(payrollRecords()...), barrier: barrier}
	cfg := facet.DefaultConfig()
	cfg.Concurrency = 4
	engine := facet.NewEngine(spy, testCatalog(t), cfg, quietLogger())

	go func() {
		for spy.active.Load() < 4 {
			time.Sleep(time.Millisecond)
		}
		close(barrier)
	}()

	_, err := engine.FilterOptions(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), spy.peak.Load())
}

// =============================================================================
// BROWSE
// =============================================================================

func TestBrowse_MatchesSeparateCalls(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)
	req := facet.PageRequest{
		Selection:  facet.Selection{"branch": {"CDMX"}, "period": {"2024-10"}},
		SearchText: "a",
		SortBy:     "salary",
		SortDir:    "desc",
		Page:       1,
		PageSize:   3,
	}

	got, err := engine.Browse(ctx, req)
	require.NoError(t, err)

	page, err := engine.Page(ctx, req)
	require.NoError(t, err)
	options, err := engine.FilterOptions(ctx, req.Selection, req.SearchText)
	require.NoError(t, err)

	if diff := cmp.Diff(page, got.Page, decimalEqual); diff != "" {
		t.Errorf("browse page differs (-page +browse):\n%s", diff)
	}
	assert.Equal(t, options, got.Options)
}

// =============================================================================
// PERIOD SUMMARY
// =============================================================================

func TestPeriodSummary(t *testing.T) {
	engine := newTestEngine(t, append(payrollRecords(),
		rec("ZZZZ98", "Periodo Roto", "CDMX", "Ventas", "Activo", "2024/10/01", "1000"))...)

	summary, err := engine.PeriodSummary(context.Background())

	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, facet.MonthSummary{Month: "2024-11", UniqueDayKeys: []string{}, TotalCount: 6}, summary[0])
	assert.Equal(t, facet.MonthSummary{Month: "2024-10", UniqueDayKeys: []string{"2024-10-12", "2024-10-05"}, TotalCount: 9}, summary[1])
	assert.Equal(t, facet.MonthSummary{Month: "2024-09", UniqueDayKeys: []string{"2024-09-30"}, TotalCount: 5}, summary[2])
}

func TestPeriodSummary_NoPeriodDimension(t *testing.T) {
	c, err := facet.NewCatalog(facet.CatalogConfig{
		Dimensions:  []facet.Dimension{{Name: "branch", Column: facet.ColumnBranch, Kind: facet.KindDiscrete}},
		SortKeys:    map[string]facet.Column{"id": facet.ColumnID},
		DefaultSort: "id",
	})
	require.NoError(t, err)
	engine := facet.NewEngine(store.NewMemory(), c, facet.DefaultConfig(), quietLogger())

	_, err = engine.PeriodSummary(context.Background())

	assert.ErrorIs(t, err, facet.ErrNoPeriodDimension)
}

// =============================================================================
// STORE FAILURES, TIMEOUTS, CANCELLATION
// =============================================================================

func TestEngine_StoreTimeout(t *testing.T) {
	cfg := facet.DefaultConfig()
	cfg.QueryTimeout = 20 * time.Millisecond
	engine := facet.NewEngine(&blockingStore{}, testCatalog(t), cfg, quietLogger())

	_, err := engine.FilterOptions(context.Background(), nil, "")
	require.Error(t, err)
	assert.True(t, facet.IsTimeout(err), "got %v", err)
	assert.True(t, facet.IsRetryable(err))
	var serr *facet.StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "count_by", serr.Op)

	_, err = engine.Page(context.Background(), facet.PageRequest{Page: 1, PageSize: 5})
	assert.ErrorIs(t, err, facet.ErrStoreTimeout)

	_, err = engine.PeriodSummary(context.Background())
	assert.ErrorIs(t, err, facet.ErrStoreTimeout)
}

func TestEngine_CallerDeadlineIsTimeout(t *testing.T) {
	// GIVEN: A per-query timeout far longer than the caller's own deadline
	// WHEN: The caller's deadline expires while queries are in flight
	// THEN: Every operation reports a store timeout, not a bare context error
	cfg := facet.DefaultConfig()
	cfg.QueryTimeout = time.Minute
	engine := facet.NewEngine(&blockingStore{}, testCatalog(t), cfg, quietLogger())

	calls := map[string]func(context.Context) error{
		"filter options": func(ctx context.Context) error {
			_, err := engine.FilterOptions(ctx, nil, "")
			return err
		},
		"page": func(ctx context.Context) error {
			_, err := engine.Page(ctx, facet.PageRequest{Page: 1, PageSize: 5})
			return err
		},
		"browse": func(ctx context.Context) error {
			_, err := engine.Browse(ctx, facet.PageRequest{Page: 1, PageSize: 5})
			return err
		},
		"period summary": func(ctx context.Context) error {
			_, err := engine.PeriodSummary(ctx)
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			start := time.Now()
			err := call(ctx)

			require.Error(t, err)
			assert.ErrorIs(t, err, facet.ErrStoreTimeout)
			assert.True(t, facet.IsTimeout(err), "got %v", err)
			assert.True(t, facet.IsRetryable(err))
			assert.False(t, errors.Is(err, context.Canceled))
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestEngine_StoreUnavailable(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	engine := facet.NewEngine(failingStore{err: cause}, testCatalog(t), facet.DefaultConfig(), quietLogger())

	_, err := engine.Page(context.Background(), facet.PageRequest{Page: 1, PageSize: 5})

	require.Error(t, err)
	assert.ErrorIs(t, err, facet.ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.False(t, facet.IsClientError(err))
	assert.True(t, facet.IsRetryable(err))
}

func TestEngine_CancellationPropagates(t *testing.T) {
	blocking := &blockingStore{}
	cfg := facet.DefaultConfig()
	cfg.QueryTimeout = time.Minute
	engine := facet.NewEngine(blocking, testCatalog(t), cfg, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := engine.Browse(ctx, facet.PageRequest{Page: 1, PageSize: 5})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, facet.IsTimeout(err))
	assert.Less(t, time.Since(start), 5*time.Second, "in-flight queries must be abandoned")
}
