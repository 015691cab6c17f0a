package domain

import "fmt"

// FieldSummary holds the descriptive statistics of one numeric field.
// Missing counts the values skipped because they were absent.
type FieldSummary struct {
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	P25     float64 `json:"25%"`
	P50     float64 `json:"50%"`
	P75     float64 `json:"75%"`
}

// Summarize computes count, mean, min, max and quartiles for every range
// field over the whole table. It returns ErrEmptyData instead of undefined
// statistics when the table is empty or a field has no values at all.
func Summarize(t *Table) (map[string]FieldSummary, error) {
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: no observations to summarize", ErrEmptyData)
	}

	out := make(map[string]FieldSummary)
	for _, f := range RangeFields() {
		s, err := summarizeField(t, f.Name)
		if err != nil {
			return nil, err
		}
		out[f.Name] = s
	}
	return out, nil
}

func summarizeField(t *Table, name string) (FieldSummary, error) {
	col := column(t.records, name)
	if len(col.values) == 0 {
		return FieldSummary{}, fmt.Errorf("%w: %s has no values", ErrEmptyData, name)
	}

	mean, _ := meanStdDev(col.values)
	lo, hi := minMax(col.values)
	q1, q2, q3 := quartiles(col.values)
	return FieldSummary{
		Count:   len(col.values),
		Missing: col.missing,
		Mean:    mean,
		Min:     lo,
		Max:     hi,
		P25:     q1,
		P50:     q2,
		P75:     q3,
	}, nil
}
