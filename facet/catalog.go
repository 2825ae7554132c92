package facet

import (
	"fmt"
	"regexp"
	"sort"
)

// =============================================================================
// CATALOG - The configured, validated set of dimensions and sort keys
// =============================================================================

// CatalogConfig is the raw input to NewCatalog.
type CatalogConfig struct {
	Dimensions    []Dimension
	SortKeys      map[string]Column // public sort key -> column
	DefaultSort   string
	SearchColumns []Column
}

// Catalog is the allow-list every request is validated against.
// It is immutable after construction and safe for concurrent use.
type Catalog struct {
	dimensions  []Dimension
	byName      map[string]int
	sortKeys    map[string]Column
	defaultSort string
	search      []Column
}

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// NewCatalog validates cfg and builds a Catalog.
func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	c := &Catalog{
		byName:   make(map[string]int, len(cfg.Dimensions)),
		sortKeys: make(map[string]Column, len(cfg.SortKeys)),
	}

	periods := 0
	for _, d := range cfg.Dimensions {
		if !namePattern.MatchString(d.Name) {
			return nil, fmt.Errorf("%w: dimension name %q", ErrInvalidCatalog, d.Name)
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate dimension %q", ErrInvalidCatalog, d.Name)
		}
		if !d.Column.Valid() {
			return nil, fmt.Errorf("%w: dimension %q uses unknown column %q", ErrInvalidCatalog, d.Name, d.Column)
		}
		if d.Column.Type() != TypeText {
			return nil, fmt.Errorf("%w: dimension %q must use a text column", ErrInvalidCatalog, d.Name)
		}
		switch d.Kind {
		case KindDiscrete:
		case KindPeriod:
			periods++
		default:
			return nil, fmt.Errorf("%w: dimension %q has unknown kind %q", ErrInvalidCatalog, d.Name, d.Kind)
		}
		c.byName[d.Name] = len(c.dimensions)
		c.dimensions = append(c.dimensions, d)
	}
	if periods > 1 {
		return nil, fmt.Errorf("%w: at most one period dimension allowed", ErrInvalidCatalog)
	}

	if len(cfg.SortKeys) == 0 {
		return nil, fmt.Errorf("%w: no sort keys", ErrInvalidCatalog)
	}
	for key, col := range cfg.SortKeys {
		if !namePattern.MatchString(key) {
			return nil, fmt.Errorf("%w: sort key %q", ErrInvalidCatalog, key)
		}
		if !col.Valid() {
			return nil, fmt.Errorf("%w: sort key %q uses unknown column %q", ErrInvalidCatalog, key, col)
		}
		c.sortKeys[key] = col
	}
	if _, ok := c.sortKeys[cfg.DefaultSort]; !ok {
		return nil, fmt.Errorf("%w: default sort %q is not a sort key", ErrInvalidCatalog, cfg.DefaultSort)
	}
	c.defaultSort = cfg.DefaultSort

	seen := make(map[Column]bool)
	addSearch := func(col Column) error {
		if !col.Valid() || col.Type() != TypeText {
			return fmt.Errorf("%w: search column %q", ErrInvalidCatalog, col)
		}
		if !seen[col] {
			seen[col] = true
			c.search = append(c.search, col)
		}
		return nil
	}
	for _, col := range cfg.SearchColumns {
		if err := addSearch(col); err != nil {
			return nil, err
		}
	}
	for _, d := range c.dimensions {
		if d.Searchable {
			if err := addSearch(d.Column); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// Dimensions returns the dimensions in catalog order.
func (c *Catalog) Dimensions() []Dimension {
	out := make([]Dimension, len(c.dimensions))
	copy(out, c.dimensions)
	return out
}

// Dimension looks up a dimension by name.
func (c *Catalog) Dimension(name string) (Dimension, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Dimension{}, false
	}
	return c.dimensions[i], true
}

// PeriodDimension returns the catalog's period dimension, if any.
func (c *Catalog) PeriodDimension() (Dimension, bool) {
	for _, d := range c.dimensions {
		if d.Kind == KindPeriod {
			return d, true
		}
	}
	return Dimension{}, false
}

// SortColumn resolves a public sort key. Empty resolves to the default key.
func (c *Catalog) SortColumn(key string) (string, Column, error) {
	if key == "" {
		key = c.defaultSort
	}
	col, ok := c.sortKeys[key]
	if !ok {
		return "", "", &InvalidSortError{Value: key, Err: ErrInvalidSortColumn}
	}
	return key, col, nil
}

// SortKeys returns the allow-listed sort keys in alphabetical order.
func (c *Catalog) SortKeys() []string {
	keys := make([]string, 0, len(c.sortKeys))
	for k := range c.sortKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultSort is the key used when a request names none.
func (c *Catalog) DefaultSort() string { return c.defaultSort }

// SearchColumns are matched by free-text search.
func (c *Catalog) SearchColumns() []Column {
	out := make([]Column, len(c.search))
	copy(out, c.search)
	return out
}
