// Package store provides facet.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-browse/facet"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory evaluates predicates against an in-memory snapshot of records.
// Records are kept ordered by id so scans are deterministic.
type Memory struct {
	mu      sync.RWMutex
	records []facet.Record
	ids     map[string]bool
}

func NewMemory(records ...facet.Record) *Memory {
	m := &Memory{ids: make(map[string]bool)}
	m.Load(records...)
	return m
}

// Load adds records, replacing any with the same id. It stands in for the
// ingestion path in tests.
func (m *Memory) Load(records ...facet.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if m.ids[r.ID] {
			i := m.index(r.ID)
			m.records[i] = r
			continue
		}

		// Binary search for insertion point keeps records sorted by id.
		i := sort.Search(len(m.records), func(i int) bool {
			return m.records[i].ID > r.ID
		})
		m.records = append(m.records, facet.Record{})
		copy(m.records[i+1:], m.records[i:])
		m.records[i] = r
		m.ids[r.ID] = true
	}
}

func (m *Memory) index(id string) int {
	return sort.Search(len(m.records), func(i int) bool {
		return m.records[i].ID >= id
	})
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) Count(ctx context.Context, p facet.Predicate) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range m.records {
		if p.Match(r) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CountBy(ctx context.Context, p facet.Predicate, dim facet.Dimension) ([]facet.ValueCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, r := range m.records {
		if p.Match(r) {
			counts[r.Text(dim.Column)]++
		}
	}

	out := make([]facet.ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, facet.ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

func (m *Memory) Fetch(ctx context.Context, p facet.Predicate, s facet.Sort, offset, limit int) ([]facet.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var matched []facet.Record
	for _, r := range m.records {
		if p.Match(r) {
			matched = append(matched, r)
		}
	}

	// records are already in id order, so a stable sort on the primary
	// column leaves ties ordered by id ascending.
	sort.SliceStable(matched, func(i, j int) bool {
		c := compare(matched[i], matched[j], s.Column)
		if s.Desc {
			return c > 0
		}
		return c < 0
	})

	if offset < 0 || limit <= 0 || offset >= len(matched) {
		return []facet.Record{}, nil
	}
	end := offset + limit
	if end > len(matched) || end < offset {
		end = len(matched)
	}
	out := make([]facet.Record, end-offset)
	copy(out, matched[offset:end])
	return out, nil
}

func compare(a, b facet.Record, col facet.Column) int {
	if col.Type() == facet.TypeDecimal {
		return a.Decimal(col).Cmp(b.Decimal(col))
	}
	x, y := a.Text(col), b.Text(col)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
