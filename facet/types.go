/*
Package facet is the filter composition and cardinality engine for payroll records.

PURPOSE:
  Turns a browser's facet selections and free-text query into a composable
  predicate, counts facet values under "every other active facet", and
  returns deterministic sorted pages. Storage is abstracted behind Store so
  the same semantics run against SQLite or an in-memory snapshot.

KEY CONCEPTS:
  Column:    A record attribute on the fixed allow-list. Nothing else reaches a query.
  Dimension: A filterable column (discrete values or period buckets).
  Catalog:   The configured set of dimensions, sort keys and search columns.
  Selection: Dimension name -> accepted values (OR within, AND across).
  Predicate: One condition per active dimension + optional search.

DATA FLOW:
  Selection --Catalog.Build--> Predicate
  Predicate.Without(D) --Store.CountBy--> []Option   (one pass per dimension)
  Predicate --Store.Count/Fetch--> ResultPage

SEE ALSO:
  - predicate.go: Predicate construction and in-memory evaluation
  - engine.go: FilterOptions / Page / PeriodSummary
  - store.go: Store interface
  - store/sqlite/sqlite.go: SQL implementation
*/
package facet

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECORD - One payroll entry (read-only to this package)
// =============================================================================

// Record is a single payroll entry as stored by the ingestion path.
type Record struct {
	ID         string          // natural key (national ID)
	Name       string
	Position   string
	Department string
	Branch     string
	Status     string
	Period     string // raw stored period, "YYYY-MM-DD" or "YYYY-MM"
	BaseSalary decimal.Decimal
	Deductions decimal.Decimal
	NetPay     decimal.Decimal
}

// =============================================================================
// COLUMNS - The allow-list of queryable record attributes
// =============================================================================

// Column names a record attribute. Only the constants below are valid.
type Column string

const (
	ColumnID         Column = "id"
	ColumnName       Column = "name"
	ColumnPosition   Column = "position"
	ColumnDepartment Column = "department"
	ColumnBranch     Column = "branch"
	ColumnStatus     Column = "status"
	ColumnPeriod     Column = "period"
	ColumnBaseSalary Column = "base_salary"
	ColumnDeductions Column = "deductions"
	ColumnNetPay     Column = "net_pay"
)

// ColumnType tells stores how to compare a column.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeDecimal ColumnType = "decimal"
)

var columnTypes = map[Column]ColumnType{
	ColumnID:         TypeText,
	ColumnName:       TypeText,
	ColumnPosition:   TypeText,
	ColumnDepartment: TypeText,
	ColumnBranch:     TypeText,
	ColumnStatus:     TypeText,
	ColumnPeriod:     TypeText,
	ColumnBaseSalary: TypeDecimal,
	ColumnDeductions: TypeDecimal,
	ColumnNetPay:     TypeDecimal,
}

// Columns returns every allow-listed column.
func Columns() []Column {
	return []Column{
		ColumnID, ColumnName, ColumnPosition, ColumnDepartment, ColumnBranch,
		ColumnStatus, ColumnPeriod, ColumnBaseSalary, ColumnDeductions, ColumnNetPay,
	}
}

// Valid reports whether c is on the allow-list.
func (c Column) Valid() bool {
	_, ok := columnTypes[c]
	return ok
}

// Type returns the column's comparison type.
func (c Column) Type() ColumnType {
	return columnTypes[c]
}

// Text returns the string form of a record's column value.
// Decimal columns are rendered with their exact decimal representation.
func (r Record) Text(c Column) string {
	switch c {
	case ColumnID:
		return r.ID
	case ColumnName:
		return r.Name
	case ColumnPosition:
		return r.Position
	case ColumnDepartment:
		return r.Department
	case ColumnBranch:
		return r.Branch
	case ColumnStatus:
		return r.Status
	case ColumnPeriod:
		return r.Period
	case ColumnBaseSalary:
		return r.BaseSalary.String()
	case ColumnDeductions:
		return r.Deductions.String()
	case ColumnNetPay:
		return r.NetPay.String()
	}
	return ""
}

// Decimal returns the value of a decimal column, zero for text columns.
func (r Record) Decimal(c Column) decimal.Decimal {
	switch c {
	case ColumnBaseSalary:
		return r.BaseSalary
	case ColumnDeductions:
		return r.Deductions
	case ColumnNetPay:
		return r.NetPay
	}
	return decimal.Zero
}

// =============================================================================
// DIMENSIONS
// =============================================================================

// Kind is the value domain of a dimension.
type Kind string

const (
	KindDiscrete Kind = "discrete" // exact string values
	KindPeriod   Kind = "period"   // day/month buckets, options keyed by month
)

// Dimension is a named column eligible for filtering.
type Dimension struct {
	Name       string
	Column     Column
	Kind       Kind
	Searchable bool // participates in free-text search
}

// =============================================================================
// SELECTION / OPTIONS / PAGES
// =============================================================================

// Selection maps dimension names to accepted values.
// An absent dimension and an empty value set both mean "no constraint".
type Selection map[string][]string

// Option is a candidate value for a dimension with the number of records
// that match it while every other dimension keeps its current selection.
type Option struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCount is a raw grouped count returned by a Store.
type ValueCount struct {
	Value string
	Count int
}

// SortDir is the direction of the primary sort key.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ParseSortDir accepts "asc"/"desc" in any case; empty means ascending.
func ParseSortDir(s string) (SortDir, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	}
	return "", &InvalidSortError{Value: s, Err: ErrInvalidSortDirection}
}

// Sort is a resolved primary sort column. Stores always append id ASC.
type Sort struct {
	Column Column
	Desc   bool
}

// PageRequest holds everything getPage needs.
type PageRequest struct {
	Selection  Selection
	SearchText string
	SortBy     string
	SortDir    string
	Page       int
	PageSize   int
}

// ResultPage is one bounded slice of the matching records.
type ResultPage struct {
	Records    []Record
	Page       int
	PageSize   int
	Total      int // full predicate-matched count, independent of Page
	TotalPages int
	SortBy     string
	SortDir    SortDir
}

// BrowseResult combines a page with the filter options computed for the
// same selection and search text.
type BrowseResult struct {
	Page    *ResultPage
	Options map[string][]Option
}
