package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Pagination limits for range queries.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// TextRange is an inclusive lexicographic range. Nil ends are open.
type TextRange struct {
	Min, Max *string
}

// FloatRange is an inclusive numeric range. Nil ends are open.
type FloatRange struct {
	Min, Max *float64
}

func (r TextRange) bounded() bool  { return r.Min != nil || r.Max != nil }
func (r FloatRange) bounded() bool { return r.Min != nil || r.Max != nil }

func (r TextRange) contains(v Value) bool {
	if v.kind != kindText {
		return false
	}
	if r.Min != nil && v.text < *r.Min {
		return false
	}
	if r.Max != nil && v.text > *r.Max {
		return false
	}
	return true
}

func (r FloatRange) contains(v Value) bool {
	f, ok := v.Float()
	if !ok {
		return false
	}
	if r.Min != nil && f < *r.Min {
		return false
	}
	if r.Max != nil && f > *r.Max {
		return false
	}
	return true
}

// RangeQuery selects observations by time and numeric bounds. Bounds is
// keyed by canonical field name and only accepts range fields. A zero Limit
// means DefaultLimit.
type RangeQuery struct {
	Time   TextRange
	Bounds map[string]FloatRange
	Skip   int
	Limit  int
}

// QueryResult is a page of matching observations in table order.
type QueryResult struct {
	Count int           `json:"count"`
	Items []Observation `json:"items"`
}

// ParseBound parses a numeric bound supplied for field. Non-numeric and
// non-finite input is an ErrInvalidBound.
func ParseBound(field, raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", ErrInvalidBound, field, raw)
	}
	return f, nil
}

// normalize validates the query and applies pagination defaults.
func (q RangeQuery) normalize() (RangeQuery, error) {
	if q.Skip < 0 {
		return q, fmt.Errorf("%w: skip must be >= 0, got %d", ErrInvalidBound, q.Skip)
	}
	switch {
	case q.Limit < 0:
		return q, fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidBound, q.Limit)
	case q.Limit == 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	for name, r := range q.Bounds {
		f, ok := FieldByName(name)
		if !ok || !f.Range {
			return q, fmt.Errorf("%w: %q does not accept range bounds", ErrInvalidField, name)
		}
		if (r.Min != nil && !isFinite(*r.Min)) || (r.Max != nil && !isFinite(*r.Max)) {
			return q, fmt.Errorf("%w: %s bounds must be finite", ErrInvalidBound, name)
		}
	}
	return q, nil
}

// EvaluateRange returns the observations of t satisfying every bound in q,
// in table order, after skipping q.Skip matches and taking up to q.Limit.
// Records missing a bounded field never match. The table is not modified.
func EvaluateRange(t *Table, q RangeQuery) (QueryResult, error) {
	q, err := q.normalize()
	if err != nil {
		return QueryResult{}, err
	}

	items := make([]Observation, 0, min(q.Limit, t.Len()))
	skipped := 0
	visit := func(obs Observation) bool {
		if !q.matches(obs) {
			return true
		}
		if skipped < q.Skip {
			skipped++
			return true
		}
		items = append(items, obs)
		return len(items) < q.Limit
	}

	if positions, ok := q.candidates(t); ok {
		for _, i := range positions {
			if !visit(t.At(i)) {
				break
			}
		}
	} else {
		for i := 0; i < t.Len(); i++ {
			if !visit(t.At(i)) {
				break
			}
		}
	}

	return QueryResult{Count: len(items), Items: items}, nil
}

// candidates narrows the scan with the time index when the query bounds time.
func (q RangeQuery) candidates(t *Table) ([]int, bool) {
	if !q.Time.bounded() {
		return nil, false
	}
	return t.lookupTextRange(FieldTime, q.Time)
}

func (q RangeQuery) matches(obs Observation) bool {
	if q.Time.bounded() && !q.Time.contains(obs.Get(FieldTime)) {
		return false
	}
	for name, r := range q.Bounds {
		if r.bounded() && !r.contains(obs.Get(name)) {
			return false
		}
	}
	return true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
