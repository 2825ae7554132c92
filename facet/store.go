/*
store.go - Read interface between the engine and the record store

PURPOSE:
  The engine never builds query text. It hands a validated Predicate (whose
  columns all come from the Column allow-list) to a Store, which translates
  it into its own query language.

READ-ONLY CONTRACT:
  Stores expose counting, grouped counting and sorted/paginated fetch.
  There are no write methods; records are owned by the ingestion path.

ORDERING CONTRACT:
  Fetch orders by the Sort column, then by id ascending, so equal primary
  values still produce a total order.

ERRORS:
  Implementations should honour ctx and may return ErrStoreTimeout or
  ErrStoreUnavailable directly; the engine classifies anything else.

IMPLEMENTATIONS:
  - store/memory.go: In-memory snapshot for tests and development
  - ../store/sqlite/sqlite.go: SQLite via database/sql
*/
package facet

import "context"

// Store is the read capability the engine consumes.
type Store interface {
	// Count returns the number of records matching p.
	Count(ctx context.Context, p Predicate) (int, error)

	// CountBy groups records matching p by the raw value of dim's column.
	CountBy(ctx context.Context, p Predicate, dim Dimension) ([]ValueCount, error)

	// Fetch returns at most limit matching records after skipping offset,
	// ordered by s then id ascending.
	Fetch(ctx context.Context, p Predicate, s Sort, offset, limit int) ([]Record, error)
}
