/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts JSON catalog definitions into a validated *facet.Catalog. Which
  columns are filterable, searchable and sortable is deployment
  configuration, so it can change without a rebuild.

JSON SCHEMA:
  {
    "dimensions": [
      {"name": "branch",     "column": "branch"},
      {"name": "department", "column": "department", "searchable": true},
      {"name": "period",     "column": "period", "kind": "period"}
    ],
    "sort_keys": {
      "name":   "name",
      "salary": "base_salary"
    },
    "default_sort": "name",
    "search_columns": ["name", "id"]
  }

DEFAULTS:
  - kind defaults to "discrete"
  - default_sort defaults to the only sort key when exactly one is given

VALIDATION:
  Structural checks (names, columns, kinds, sort keys) are done by
  facet.NewCatalog; every failure wraps facet.ErrInvalidCatalog.

USAGE:
  f := factory.NewCatalogFactory()

  // From JSON string
  catalog, err := f.ParseCatalog(jsonString)

  // From the payroll preset (recommended)
  catalog, err := f.ParseCatalog(payroll.DefaultCatalogJSON())

  // From a file (CATALOG_PATH)
  catalog, err := f.LoadFile("./catalog.json")

SEE ALSO:
  - facet/catalog.go: Catalog type and validation
  - payroll/catalog.go: Default payroll catalog
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/warp/payroll-browse/facet"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a catalog.
type CatalogJSON struct {
	Dimensions    []DimensionJSON   `json:"dimensions"`
	SortKeys      map[string]string `json:"sort_keys"` // public key -> column
	DefaultSort   string            `json:"default_sort,omitempty"`
	SearchColumns []string          `json:"search_columns,omitempty"`
}

// DimensionJSON represents one filterable dimension.
type DimensionJSON struct {
	Name       string `json:"name"`
	Column     string `json:"column"`
	Kind       string `json:"kind,omitempty"` // discrete, period
	Searchable bool   `json:"searchable,omitempty"`
}

// =============================================================================
// CATALOG FACTORY
// =============================================================================

// CatalogFactory converts JSON catalogs to facet catalogs.
type CatalogFactory struct{}

// NewCatalogFactory creates a new catalog factory.
func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// ParseCatalog parses a JSON string into a Catalog. Unknown fields are
// rejected so that typos do not silently drop a dimension.
func (f *CatalogFactory) ParseCatalog(jsonStr string) (*facet.Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(jsonStr)))
	dec.DisallowUnknownFields()

	var cj CatalogJSON
	if err := dec.Decode(&cj); err != nil {
		return nil, fmt.Errorf("%w: failed to parse catalog JSON: %v", facet.ErrInvalidCatalog, err)
	}

	return f.FromJSON(cj)
}

// LoadFile reads and parses a catalog definition from disk.
func (f *CatalogFactory) LoadFile(path string) (*facet.Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return f.ParseCatalog(string(b))
}

// FromJSON converts CatalogJSON to a validated Catalog.
func (f *CatalogFactory) FromJSON(cj CatalogJSON) (*facet.Catalog, error) {
	cfg := facet.CatalogConfig{
		SortKeys:    make(map[string]facet.Column, len(cj.SortKeys)),
		DefaultSort: cj.DefaultSort,
	}

	for _, dj := range cj.Dimensions {
		cfg.Dimensions = append(cfg.Dimensions, facet.Dimension{
			Name:       dj.Name,
			Column:     facet.Column(dj.Column),
			Kind:       parseKind(dj.Kind),
			Searchable: dj.Searchable,
		})
	}

	for key, col := range cj.SortKeys {
		cfg.SortKeys[key] = facet.Column(col)
		if cfg.DefaultSort == "" && len(cj.SortKeys) == 1 {
			cfg.DefaultSort = key
		}
	}

	for _, col := range cj.SearchColumns {
		cfg.SearchColumns = append(cfg.SearchColumns, facet.Column(col))
	}

	return facet.NewCatalog(cfg)
}

// ToJSON converts a Catalog back to its JSON form. Search columns include
// those contributed by searchable dimensions.
func (f *CatalogFactory) ToJSON(c *facet.Catalog) CatalogJSON {
	cj := CatalogJSON{
		SortKeys:    make(map[string]string),
		DefaultSort: c.DefaultSort(),
	}

	for _, d := range c.Dimensions() {
		cj.Dimensions = append(cj.Dimensions, DimensionJSON{
			Name:       d.Name,
			Column:     string(d.Column),
			Kind:       string(d.Kind),
			Searchable: d.Searchable,
		})
	}

	for _, key := range c.SortKeys() {
		_, col, err := c.SortColumn(key)
		if err != nil {
			continue
		}
		cj.SortKeys[key] = string(col)
	}

	for _, col := range c.SearchColumns() {
		cj.SearchColumns = append(cj.SearchColumns, string(col))
	}

	return cj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseKind(s string) facet.Kind {
	switch s {
	case "", "discrete":
		return facet.KindDiscrete
	default:
		// "period" and unknown kinds pass through; NewCatalog rejects the latter.
		return facet.Kind(s)
	}
}
