package domain

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// sample is the non-missing numeric values of one field, with the count of
// values that were skipped.
type sample struct {
	values  []float64
	missing int
}

// column gathers the numeric values of field across records.
func column(records []Observation, field string) sample {
	s := sample{values: make([]float64, 0, len(records))}
	for _, r := range records {
		if f, ok := r.Get(field).Float(); ok {
			s.values = append(s.values, f)
			continue
		}
		s.missing++
	}
	return s
}

// meanStdDev returns the mean and sample standard deviation of x.
func meanStdDev(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return math.NaN(), math.NaN()
	}
	return stat.MeanStdDev(x, nil)
}

// zScore returns (v-mean)/std. ok is false when std is zero or not finite,
// in which case the score is undefined.
func zScore(v, mean, std float64) (z float64, ok bool) {
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return 0, false
	}
	z = (v - mean) / std
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, false
	}
	return z, true
}

// quantile returns the p-quantile of sorted using linear interpolation
// between the closest ranks: h = (n-1)p.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// quartiles returns Q1, Q2 and Q3 of x. x is not modified.
func quartiles(x []float64) (q1, q2, q3 float64) {
	sorted := slices.Clone(x)
	slices.Sort(sorted)
	return quantile(sorted, 0.25), quantile(sorted, 0.5), quantile(sorted, 0.75)
}

func minMax(x []float64) (lo, hi float64) {
	return floats.Min(x), floats.Max(x)
}
