package domain

import (
	"fmt"
	"math"
)

// DefaultZScoreThreshold is the |z| above which the cleaning pass removes a row.
const DefaultZScoreThreshold = 3.0

// Cleaner removes statistical outliers from raw batches and renames their
// columns to canonical form.
type Cleaner struct {
	Threshold float64
}

// NewCleaner returns a Cleaner with the given |z| threshold. A threshold that
// is not positive and finite falls back to DefaultZScoreThreshold.
func NewCleaner(threshold float64) *Cleaner {
	if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		threshold = DefaultZScoreThreshold
	}
	return &Cleaner{Threshold: threshold}
}

// fieldStats is the mean and standard deviation of one cleaning field over
// the whole raw batch.
type fieldStats struct {
	name      string
	mean, std float64
}

// Clean applies the z-score pass to one batch. For every cleaning field the
// mean and sample standard deviation are taken over the non-missing values of
// the original rows; a row is kept only if every cleaning field is present,
// has a defined z-score, and |z| <= Threshold. A constant column therefore
// removes every row, since its z-scores are undefined.
func (c *Cleaner) Clean(batch RawBatch) (CleanedBatch, error) {
	plan, err := planColumns(batch.Header)
	if err != nil {
		return CleanedBatch{}, fmt.Errorf("clean %s: %w", batch.Source.Name, err)
	}

	rows := make([]Observation, len(batch.Rows))
	for i, raw := range batch.Rows {
		rows[i] = plan.observation(raw)
	}

	cleaning := CleaningFields()
	stats := make([]fieldStats, len(cleaning))
	for i, f := range cleaning {
		mean, std := meanStdDev(column(rows, f.Name).values)
		stats[i] = fieldStats{name: f.Name, mean: mean, std: std}
	}

	kept := make([]Observation, 0, len(rows))
	for _, row := range rows {
		if c.keep(row, stats) {
			kept = append(kept, row)
		}
	}

	return CleanedBatch{
		Source:  batch.Source,
		Columns: plan.columns(),
		Rows:    kept,
		Report: CleaningReport{
			Source:        batch.Source.Name,
			OriginalRows:  len(rows),
			RowsRemoved:   len(rows) - len(kept),
			RowsRemaining: len(kept),
			CleanedAt:     clock.Now().UTC(),
		},
	}, nil
}

func (c *Cleaner) keep(row Observation, stats []fieldStats) bool {
	for _, s := range stats {
		v, ok := row.Get(s.name).Float()
		if !ok {
			return false
		}
		z, ok := zScore(v, s.mean, s.std)
		if !ok || math.Abs(z) > c.Threshold {
			return false
		}
	}
	return true
}

// observation builds a canonical observation from a raw row. Short rows are
// padded with Missing; cells beyond the header are dropped.
func (p columnPlan) observation(raw []string) Observation {
	fields := make(map[string]Value, len(p.index))
	for i, name := range p.names {
		if name == "" {
			continue
		}
		cell := ""
		if i < len(raw) {
			cell = raw[i]
		}
		fields[name] = p.parseCell(name, cell)
	}
	return Observation{Fields: fields}
}
