package domain

import (
	"fmt"
	"slices"
	"sort"
)

// Table is an immutable, ordered snapshot of cleaned observations. Every
// method that changes the table returns a new one, so readers holding a
// *Table never observe a partial update.
type Table struct {
	records []Observation
	columns []string
	present map[string]struct{}
	indexes map[string][]int // field -> record positions sorted by that field
	version uint64
}

// NewTable builds a table from records in the given order.
func NewTable(records []Observation) *Table {
	t := &Table{
		records: slices.Clone(records),
		present: make(map[string]struct{}),
		indexes: make(map[string][]int),
	}
	t.addColumns(records)
	return t
}

func (t *Table) addColumns(records []Observation) {
	for _, r := range records {
		names := make([]string, 0, len(r.Fields))
		for name := range r.Fields {
			if _, ok := t.present[name]; !ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			t.present[name] = struct{}{}
			t.columns = append(t.columns, name)
		}
	}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At returns the record at position i. The returned value shares its Fields
// map with the table and must not be modified.
func (t *Table) At(i int) Observation {
	return t.records[i]
}

// Records returns a copy of the record slice in table order.
func (t *Table) Records() []Observation {
	if t == nil {
		return nil
	}
	return slices.Clone(t.records)
}

// Columns returns the canonical field names present in the table, in the
// order they were first seen.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.columns)
}

// HasColumn reports whether any record carries the named field.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.present[name]
	return ok
}

// Version increases by one with every derived table. It identifies a
// snapshot for memoization.
func (t *Table) Version() uint64 {
	if t == nil {
		return 0
	}
	return t.version
}

// Append returns a new table holding t's records followed by records.
// Existing indexes are rebuilt on the new table.
func (t *Table) Append(records []Observation) *Table {
	if t == nil {
		t = NewTable(nil)
	}
	next := &Table{
		records: make([]Observation, 0, t.Len()+len(records)),
		present: make(map[string]struct{}, len(t.present)),
		indexes: make(map[string][]int, len(t.indexes)),
		columns: t.Columns(),
		version: t.Version() + 1,
	}
	next.records = append(next.records, t.records...)
	next.records = append(next.records, records...)
	for name := range t.present {
		next.present[name] = struct{}{}
	}
	next.addColumns(records)
	for field := range t.indexes {
		next.indexes[field] = next.buildIndex(field)
	}
	return next
}

// WithIndex returns a new table with a secondary index on field. Indexes
// only speed up range lookups; results are identical without them.
func (t *Table) WithIndex(field string) (*Table, error) {
	if t == nil {
		t = NewTable(nil)
	}
	if !t.HasColumn(field) && t.Len() > 0 {
		return nil, fmt.Errorf("%w: cannot index unknown field %q", ErrInvalidField, field)
	}
	next := &Table{
		records: t.records,
		columns: t.columns,
		present: t.present,
		indexes: make(map[string][]int, len(t.indexes)+1),
		version: t.Version() + 1,
	}
	for f, idx := range t.indexes {
		next.indexes[f] = idx
	}
	next.indexes[field] = next.buildIndex(field)
	return next, nil
}

// Indexed reports whether the table has an index on field.
func (t *Table) Indexed(field string) bool {
	if t == nil {
		return false
	}
	_, ok := t.indexes[field]
	return ok
}

func (t *Table) buildIndex(field string) []int {
	idx := make([]int, len(t.records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return compareValues(t.records[idx[a]].Get(field), t.records[idx[b]].Get(field)) < 0
	})
	return idx
}

// lookupTextRange returns, in table order, the positions whose text value of
// field lies within r. It reports false when the field has no index.
func (t *Table) lookupTextRange(field string, r TextRange) ([]int, bool) {
	if t == nil {
		return nil, false
	}
	idx, ok := t.indexes[field]
	if !ok {
		return nil, false
	}

	lo := 0
	if r.Min != nil {
		minV := TextValue(*r.Min)
		lo = sort.Search(len(idx), func(i int) bool {
			return compareValues(t.records[idx[i]].Get(field), minV) >= 0
		})
	} else {
		// Skip Missing and numeric values; they never satisfy a text bound.
		lo = sort.Search(len(idx), func(i int) bool {
			return t.records[idx[i]].Get(field).kind == kindText
		})
	}

	hi := len(idx)
	if r.Max != nil {
		maxV := TextValue(*r.Max)
		hi = sort.Search(len(idx), func(i int) bool {
			return compareValues(t.records[idx[i]].Get(field), maxV) > 0
		})
	}
	if hi < lo {
		hi = lo
	}

	positions := slices.Clone(idx[lo:hi])
	slices.Sort(positions)
	return positions, true
}
