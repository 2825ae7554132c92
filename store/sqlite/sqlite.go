/*
Package sqlite provides a SQLite-backed implementation of facet.Store.

PURPOSE:
  Evaluates facet predicates as SQL so that counting and paging happen in
  the database. The in-memory store (facet/store) is the reference; both
  must return identical results for identical data.

KEY TABLE:
  payroll_records: one row per employee per pay period. Decimal amounts are
                   stored as TEXT so no precision is lost on the way in.

QUERY SAFETY:
  Column names never come from the caller. Every column placed in SQL text
  has passed facet.Column.Valid() and is quoted; every value is a bound
  parameter.

PERIODS:
  A month selection matches the month itself and every day in it:
    period = '2024-10' OR period GLOB '2024-10-[0-9][0-9]'
  A day selection matches that day only. This is the same rule as
  facet.PeriodBucket.Contains.

SEARCH:
  Text search uses the fold() SQL function registered on every connection
  (see init), which is facet.Fold. SQLite's own lower() is ASCII-only and
  would disagree with the in-memory store on names like "López".

SORTING:
  Decimal columns are stored as text and ordered with the "decimal"
  collation (compareDecimalText), which compares exact decimal values the
  same way the in-memory store does. Text columns use SQLite's BINARY
  collation (byte order). id ASC is always appended.

ERRORS:
  A query that fails because its context deadline passed is reported as
  facet.ErrStoreTimeout. Anything else is wrapped and returned; the engine
  classifies it as unavailable.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := facet.NewEngine(store, payroll.DefaultCatalog(), cfg, logger)
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-browse/facet"
)

const driverName = "sqlite3_payroll"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("fold", facet.Fold, true); err != nil {
				return err
			}
			return conn.RegisterCollation(decimalCollation, compareDecimalText)
		},
	})
}

// Store implements facet.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ facet.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open(driverName, dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// NewWithDB wraps an existing handle. The caller owns the schema; call
// Migrate if it may be missing.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS payroll_records (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		period TEXT NOT NULL DEFAULT '',
		base_salary TEXT NOT NULL DEFAULT '0',
		deductions TEXT NOT NULL DEFAULT '0',
		net_pay TEXT NOT NULL DEFAULT '0'
	);

	-- One index per faceted column; CountBy groups on each of them.
	CREATE INDEX IF NOT EXISTS idx_payroll_branch ON payroll_records(branch);
	CREATE INDEX IF NOT EXISTS idx_payroll_department ON payroll_records(department);
	CREATE INDEX IF NOT EXISTS idx_payroll_status ON payroll_records(status);
	CREATE INDEX IF NOT EXISTS idx_payroll_period ON payroll_records(period);
	CREATE INDEX IF NOT EXISTS idx_payroll_name ON payroll_records(name, id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// =============================================================================
// LOADING
// =============================================================================

// InsertRecords upserts records in one transaction. Ingestion is outside
// this service; this exists for seeding and tests.
func (s *Store) InsertRecords(ctx context.Context, records ...facet.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO payroll_records
		(id, name, position, department, branch, status, period, base_salary, deductions, net_pay)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.ID,
			r.Name,
			r.Position,
			r.Department,
			r.Branch,
			r.Status,
			r.Period,
			r.BaseSalary.String(),
			r.Deductions.String(),
			r.NetPay.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// FACET STORE (facet.Store interface)
// =============================================================================

// Count returns the number of records matching p.
func (s *Store) Count(ctx context.Context, p facet.Predicate) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := whereClause(p)
	query := "SELECT COUNT(*) FROM payroll_records" + where

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify(ctx, "count records", err)
	}
	return n, nil
}

// CountBy groups matching records by the dimension's column.
func (s *Store) CountBy(ctx context.Context, p facet.Predicate, dim facet.Dimension) ([]facet.ValueCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, err := quote(dim.Column)
	if err != nil {
		return nil, err
	}
	where, args := whereClause(p)
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM payroll_records%s GROUP BY %s ORDER BY %s", col, where, col, col)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(ctx, "count by "+dim.Name, err)
	}
	defer rows.Close()

	out := []facet.ValueCount{}
	for rows.Next() {
		var vc facet.ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", dim.Name, err)
		}
		out = append(out, vc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, "count by "+dim.Name, err)
	}
	return out, nil
}

// Fetch returns one window of matching records in sort order, then id ASC.
func (s *Store) Fetch(ctx context.Context, p facet.Predicate, srt facet.Sort, offset, limit int) ([]facet.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orderBy, err := orderClause(srt)
	if err != nil {
		return nil, err
	}
	// SQLite reads a negative OFFSET as zero.
	if offset < 0 || limit <= 0 {
		return []facet.Record{}, nil
	}
	where, args := whereClause(p)
	query := `
		SELECT id, name, position, department, branch, status, period,
		       base_salary, deductions, net_pay
		FROM payroll_records` + where + orderBy + `
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(ctx, "fetch records", err)
	}
	defer rows.Close()

	out := []facet.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, "fetch records", err)
	}
	return out, nil
}

// =============================================================================
// SQL BUILDING
// =============================================================================

// quote returns the column as a quoted identifier after checking it against
// the known column set.
func quote(c facet.Column) (string, error) {
	if !c.Valid() {
		return "", fmt.Errorf("unknown column %q", c)
	}
	return `"` + string(c) + `"`, nil
}

// whereClause renders p as " WHERE ..." (or "" for the empty predicate).
// Catalog validation guarantees every condition column is known.
func whereClause(p facet.Predicate) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	for _, c := range p.Conditions() {
		col, err := quote(c.Dimension.Column)
		if err != nil {
			// Unreachable for catalog-built predicates; match nothing.
			clauses = append(clauses, "0")
			continue
		}

		if c.Dimension.Kind == facet.KindPeriod {
			ors := make([]string, 0, len(c.Buckets))
			for _, b := range c.Buckets {
				if b.Kind == facet.BucketMonth {
					ors = append(ors, fmt.Sprintf("%s = ? OR %s GLOB ?", col, col))
					args = append(args, b.Key, b.Key+"-[0-9][0-9]")
					continue
				}
				ors = append(ors, col+" = ?")
				args = append(args, b.Key)
			}
			clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
			continue
		}

		marks := strings.TrimSuffix(strings.Repeat("?, ", len(c.Values)), ", ")
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", col, marks))
		for _, v := range c.Values {
			args = append(args, v)
		}
	}

	if search, ok := p.Search(); ok {
		pattern := "%" + escapeLike(search.Folded) + "%"
		ors := make([]string, 0, len(search.Columns))
		for _, c := range search.Columns {
			col, err := quote(c)
			if err != nil {
				continue
			}
			ors = append(ors, fmt.Sprintf(`fold(%s) LIKE ? ESCAPE '\'`, col))
			args = append(args, pattern)
		}
		if len(ors) > 0 {
			clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func orderClause(srt facet.Sort) (string, error) {
	col, err := quote(srt.Column)
	if err != nil {
		return "", err
	}
	expr := col
	if srt.Column.Type() == facet.TypeDecimal {
		expr = col + " COLLATE " + decimalCollation
	}
	dir := "ASC"
	if srt.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", expr, dir), nil
}

const decimalCollation = "decimal"

// compareDecimalText orders two stored decimal strings by exact value.
// Text that does not parse falls back to byte order.
func compareDecimalText(a, b string) int {
	x, errX := decimal.NewFromString(a)
	y, errY := decimal.NewFromString(b)
	if errX != nil || errY != nil {
		return strings.Compare(a, b)
	}
	return x.Cmp(y)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// =============================================================================
// HELPERS
// =============================================================================

func scanRecord(rows *sql.Rows) (facet.Record, error) {
	var (
		r                        facet.Record
		base, deductions, netPay string
	)
	err := rows.Scan(
		&r.ID,
		&r.Name,
		&r.Position,
		&r.Department,
		&r.Branch,
		&r.Status,
		&r.Period,
		&base,
		&deductions,
		&netPay,
	)
	if err != nil {
		return facet.Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{base, &r.BaseSalary},
		{deductions, &r.Deductions},
		{netPay, &r.NetPay},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return facet.Record{}, fmt.Errorf("record %s: invalid amount %q: %w", r.ID, f.raw, err)
		}
		*f.dst = d
	}
	return r, nil
}

// classify marks deadline failures as timeouts so the engine can tell them
// apart from a broken database.
func classify(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to %s: %w: %w", op, facet.ErrStoreTimeout, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
