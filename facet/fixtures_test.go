package facet_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-browse/facet"
	"github.com/warp/payroll-browse/facet/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testCatalog(t testing.TB) *facet.Catalog {
	t.Helper()
	c, err := facet.NewCatalog(facet.CatalogConfig{
		Dimensions: []facet.Dimension{
			{Name: "branch", Column: facet.ColumnBranch, Kind: facet.KindDiscrete},
			{Name: "department", Column: facet.ColumnDepartment, Kind: facet.KindDiscrete, Searchable: true},
			{Name: "status", Column: facet.ColumnStatus, Kind: facet.KindDiscrete},
			{Name: "period", Column: facet.ColumnPeriod, Kind: facet.KindPeriod},
		},
		SortKeys: map[string]facet.Column{
			"name":   facet.ColumnName,
			"id":     facet.ColumnID,
			"salary": facet.ColumnBaseSalary,
			"branch": facet.ColumnBranch,
			"period": facet.ColumnPeriod,
		},
		DefaultSort:   "name",
		SearchColumns: []facet.Column{facet.ColumnName, facet.ColumnID},
	})
	require.NoError(t, err)
	return c
}

func rec(id, name, branch, dept, status, period, salary string) facet.Record {
	base := decimal.RequireFromString(salary)
	deductions := base.Mul(decimal.RequireFromString("0.1")).Round(2)
	return facet.Record{
		ID:         id,
		Name:       name,
		Position:   "Analista",
		Department: dept,
		Branch:     branch,
		Status:     status,
		Period:     period,
		BaseSalary: base,
		Deductions: deductions,
		NetPay:     base.Sub(deductions),
	}
}

// payrollRecords is 12 CDMX records and 8 elsewhere. Two CDMX employees share
// the name "Ana López" and two share a salary, to exercise id tie-breaks.
func payrollRecords() []facet.Record {
	return []facet.Record{
		rec("AAAA01", "Beatriz Ortega", "CDMX", "Finanzas", "Activo", "2024-10-05", "25000.00"),
		rec("AAAA02", "Carlos Ruiz", "CDMX", "Ventas", "Activo", "2024-10-05", "18000.50"),
		rec("ZZZZ03", "Ana López", "CDMX", "Ventas", "Activo", "2024-10-05", "18000.50"),
		rec("BBBB04", "Ana López", "CDMX", "Finanzas", "Baja", "2024-10-05", "32000"),
		rec("CCCC05", "Diego Flores", "CDMX", "Operaciones", "Activo", "2024-10-12", "15000"),
		rec("DDDD06", "Elena Mora", "CDMX", "Operaciones", "Activo", "2024-10-12", "15000"),
		rec("EEEE07", "Fernando Gil", "CDMX", "Ventas", "Baja", "2024-10-12", "21000"),
		rec("FFFF08", "Gabriela Soto", "CDMX", "Finanzas", "Activo", "2024-11", "40000"),
		rec("GGGG09", "Héctor Vega", "CDMX", "Ventas", "Activo", "2024-11", "19500"),
		rec("HHHH10", "Irene Cruz", "CDMX", "Operaciones", "Activo", "2024-11", "16000"),
		rec("IIII11", "Jorge Ramos", "CDMX", "Ventas", "Activo", "2024-09-30", "17000"),
		rec("JJJJ12", "Karla Núñez", "CDMX", "Finanzas", "Activo", "2024-09-30", "28000"),

		rec("KKKK13", "Laura Díaz", "GDL", "Ventas", "Activo", "2024-10-05", "17500"),
		rec("LLLL14", "Mario Castro", "GDL", "Finanzas", "Activo", "2024-10-05", "26000"),
		rec("MMMM15", "Nora Silva", "GDL", "Operaciones", "Baja", "2024-11", "14500"),
		rec("NNNN16", "Óscar Reyes", "GDL", "Ventas", "Activo", "2024-11", "18200"),
		rec("OOOO17", "Pablo Herrera", "GDL", "Ventas", "Activo", "2024-11", "18200"),
		rec("PPPP18", "Quetzal Ibarra", "MTY", "Finanzas", "Activo", "2024-09", "30000"),
		rec("QQQQ19", "Rosa Medina", "MTY", "Operaciones", "Activo", "2024-09", "15500"),
		rec("RRRR20", "Sergio Luna", "MTY", "Ventas", "Baja", "2024-09", "20000"),
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestEngine(t testing.TB, records ...facet.Record) *facet.Engine {
	t.Helper()
	if records == nil {
		records = payrollRecords()
	}
	return facet.NewEngine(store.NewMemory(records...), testCatalog(t), facet.DefaultConfig(), quietLogger())
}

func ids(records []facet.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func sum(opts []facet.Option) int {
	n := 0
	for _, o := range opts {
		n += o.Count
	}
	return n
}

// =============================================================================
// STORE DOUBLES
// =============================================================================

// spyStore counts calls and tracks peak concurrency.
type spyStore struct {
	facet.Store
	calls   atomic.Int64
	active  atomic.Int64
	peak    atomic.Int64
	barrier chan struct{} // when set, every call waits on it
}

func (s *spyStore) enter() func() {
	s.calls.Add(1)
	n := s.active.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.barrier != nil {
		<-s.barrier
	}
	return func() { s.active.Add(-1) }
}

func (s *spyStore) Count(ctx context.Context, p facet.Predicate) (int, error) {
	defer s.enter()()
	return s.Store.Count(ctx, p)
}

func (s *spyStore) CountBy(ctx context.Context, p facet.Predicate, d facet.Dimension) ([]facet.ValueCount, error) {
	defer s.enter()()
	return s.Store.CountBy(ctx, p, d)
}

func (s *spyStore) Fetch(ctx context.Context, p facet.Predicate, srt facet.Sort, offset, limit int) ([]facet.Record, error) {
	defer s.enter()()
	return s.Store.Fetch(ctx, p, srt, offset, limit)
}

// blockingStore never answers until its context ends.
type blockingStore struct {
	mu      sync.Mutex
	started int
}

func (b *blockingStore) wait(ctx context.Context) error {
	b.mu.Lock()
	b.started++
	b.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingStore) Count(ctx context.Context, _ facet.Predicate) (int, error) {
	return 0, b.wait(ctx)
}

func (b *blockingStore) CountBy(ctx context.Context, _ facet.Predicate, _ facet.Dimension) ([]facet.ValueCount, error) {
	return nil, b.wait(ctx)
}

func (b *blockingStore) Fetch(ctx context.Context, _ facet.Predicate, _ facet.Sort, _, _ int) ([]facet.Record, error) {
	return nil, b.wait(ctx)
}

// failingStore fails every call with err.
type failingStore struct{ err error }

func (f failingStore) Count(context.Context, facet.Predicate) (int, error) { return 0, f.err }

func (f failingStore) CountBy(context.Context, facet.Predicate, facet.Dimension) ([]facet.ValueCount, error) {
	return nil, f.err
}

func (f failingStore) Fetch(context.Context, facet.Predicate, facet.Sort, int, int) ([]facet.Record, error) {
	return nil, f.err
}
