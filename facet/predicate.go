package facet

import (
	"sort"
	"strings"
)

// =============================================================================
// PREDICATE - Ordered mapping of per-dimension fragments plus search
// =============================================================================
//
// A Predicate is built once per request. The cardinality pass for dimension D
// evaluates Without(D): the same fragments minus D's own, so composition logic
// lives in exactly one place.

// Condition accepts a record when its dimension value is one of Values.
type Condition struct {
	Dimension Dimension
	Values    []string       // de-duplicated, sorted
	Buckets   []PeriodBucket // period dimensions only, parallel to Values
}

// Search is a case-insensitive substring match over several columns.
type Search struct {
	Text    string // trimmed caller input
	Folded  string // Fold(Text)
	Columns []Column
}

// Predicate is the composed set of conditions for one request.
// The zero value matches every record.
type Predicate struct {
	conditions []Condition
	search     *Search
}

// Fold is the case folding shared by every store so that in-memory and SQL
// search agree on non-ASCII names.
func Fold(s string) string {
	return strings.ToLower(s)
}

// Build turns a selection and optional search text into a Predicate.
// Unknown dimensions fail with ErrInvalidFacet; malformed period values with
// ErrInvalidFacetValue. No partial predicate is ever returned.
func (c *Catalog) Build(sel Selection, searchText string) (Predicate, error) {
	for name := range sel {
		if _, ok := c.byName[name]; !ok {
			return Predicate{}, &InvalidFacetError{Dimension: name, Err: ErrInvalidFacet}
		}
	}

	var p Predicate
	for _, d := range c.dimensions {
		values := uniqueValues(sel[d.Name])
		if len(values) == 0 {
			continue
		}
		cond := Condition{Dimension: d, Values: values}
		if d.Kind == KindPeriod {
			cond.Buckets = make([]PeriodBucket, len(values))
			for i, v := range values {
				b, err := Normalize(v)
				if err != nil {
					return Predicate{}, &InvalidFacetError{Dimension: d.Name, Value: v, Err: ErrInvalidFacetValue}
				}
				cond.Buckets[i] = b
			}
		}
		p.conditions = append(p.conditions, cond)
	}

	if text := strings.TrimSpace(searchText); text != "" && len(c.search) > 0 {
		p.search = &Search{Text: text, Folded: Fold(text), Columns: c.SearchColumns()}
	}
	return p, nil
}

func uniqueValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Conditions returns the active conditions in catalog order.
func (p Predicate) Conditions() []Condition {
	out := make([]Condition, len(p.conditions))
	copy(out, p.conditions)
	return out
}

// Condition returns the active condition for a dimension, if any.
func (p Predicate) Condition(dim string) (Condition, bool) {
	for _, c := range p.conditions {
		if c.Dimension.Name == dim {
			return c, true
		}
	}
	return Condition{}, false
}

// Search returns the search condition, if any.
func (p Predicate) Search() (Search, bool) {
	if p.search == nil {
		return Search{}, false
	}
	return *p.search, true
}

// Without returns the predicate with exactly one dimension's condition removed.
func (p Predicate) Without(dim string) Predicate {
	out := Predicate{search: p.search}
	for _, c := range p.conditions {
		if c.Dimension.Name != dim {
			out.conditions = append(out.conditions, c)
		}
	}
	return out
}

// IsEmpty reports whether the predicate matches everything.
func (p Predicate) IsEmpty() bool {
	return len(p.conditions) == 0 && p.search == nil
}

// Match evaluates the predicate against a record in memory.
func (p Predicate) Match(r Record) bool {
	for _, c := range p.conditions {
		if !c.Match(r) {
			return false
		}
	}
	if p.search != nil && !p.search.Match(r) {
		return false
	}
	return true
}

// Match reports whether the record's value is accepted (OR over Values).
func (c Condition) Match(r Record) bool {
	raw := r.Text(c.Dimension.Column)
	if c.Dimension.Kind == KindPeriod {
		stored, err := Normalize(raw)
		if err != nil {
			return false
		}
		for _, b := range c.Buckets {
			if b.Contains(stored) {
				return true
			}
		}
		return false
	}
	i := sort.SearchStrings(c.Values, raw)
	return i < len(c.Values) && c.Values[i] == raw
}

// Match reports whether any search column contains the folded text.
func (s Search) Match(r Record) bool {
	for _, col := range s.Columns {
		if strings.Contains(Fold(r.Text(col)), s.Folded) {
			return true
		}
	}
	return false
}
