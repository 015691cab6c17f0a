package domain

import (
	"fmt"
	"math"
	"strings"
)

// Outlier method names accepted by ParseMethod.
const (
	MethodZScore = "z-score"
	MethodIQR    = "iqr"
)

// DefaultOutlierK is the sensitivity used when none is given.
const DefaultOutlierK = 3.0

// Method is an outlier scoring strategy. Each variant builds a predicate
// from the field's non-missing values; adding a method means adding a type.
type Method interface {
	Name() string
	Sensitivity() float64
	classifier(values []float64) func(v float64) bool
}

// ZScore flags values whose |z| exceeds K. A field whose standard deviation
// is zero or undefined yields no outliers.
type ZScore struct{ K float64 }

// IQR flags values outside [Q1 - K*IQR, Q3 + K*IQR].
type IQR struct{ K float64 }

func (ZScore) Name() string           { return MethodZScore }
func (m ZScore) Sensitivity() float64 { return m.K }

// When the standard deviation is zero or undefined no value deviates, so
// nothing is flagged.
func (m ZScore) classifier(values []float64) func(float64) bool {
	mean, std := meanStdDev(values)
	return func(v float64) bool {
		z, ok := zScore(v, mean, std)
		return ok && math.Abs(z) > m.K
	}
}

func (IQR) Name() string           { return MethodIQR }
func (m IQR) Sensitivity() float64 { return m.K }

func (m IQR) classifier(values []float64) func(float64) bool {
	q1, _, q3 := quartiles(values)
	spread := q3 - q1
	lower, upper := q1-m.K*spread, q3+m.K*spread
	return func(v float64) bool {
		return v < lower || v > upper
	}
}

// ParseMethod resolves a method name and sensitivity. An empty name selects
// z-score. k must be positive and finite.
func ParseMethod(name string, k float64) (Method, error) {
	if k <= 0 || !isFinite(k) {
		return nil, fmt.Errorf("%w: k must be a positive number, got %v", ErrInvalidBound, k)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MethodZScore:
		return ZScore{K: k}, nil
	case MethodIQR:
		return IQR{K: k}, nil
	default:
		return nil, fmt.Errorf("%w: %q, use %s or %s", ErrInvalidMethod, name, MethodZScore, MethodIQR)
	}
}

// OutlierResult lists the observations flagged for one field. Excluded is
// the number of records skipped because the field was missing or not numeric.
type OutlierResult struct {
	Field    string        `json:"field"`
	Method   string        `json:"method"`
	K        float64       `json:"k"`
	Count    int           `json:"count"`
	Excluded int           `json:"excluded"`
	Items    []Observation `json:"items"`
}

// DetectOutliers returns the observations of t whose value of field is an
// outlier under m, in table order.
func DetectOutliers(t *Table, field string, m Method) (OutlierResult, error) {
	if t.Len() == 0 {
		return OutlierResult{}, fmt.Errorf("%w: no observations in collection", ErrEmptyData)
	}
	if !t.HasColumn(field) {
		return OutlierResult{}, fmt.Errorf("%w: field %q not found in columns %v", ErrInvalidField, field, t.Columns())
	}
	if m == nil {
		return OutlierResult{}, fmt.Errorf("%w: no method given", ErrInvalidMethod)
	}

	col := column(t.records, field)
	result := OutlierResult{
		Field:    field,
		Method:   m.Name(),
		K:        m.Sensitivity(),
		Excluded: col.missing,
		Items:    []Observation{},
	}
	if len(col.values) == 0 {
		return result, nil
	}

	isOutlier := m.classifier(col.values)
	for _, r := range t.records {
		v, ok := r.Get(field).Float()
		if ok && isOutlier(v) {
			result.Items = append(result.Items, r)
		}
	}
	result.Count = len(result.Items)
	return result, nil
}
