package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeFieldTable(values ...float64) *Table {
	records := make([]Observation, len(values))
	for i, v := range values {
		records[i] = Observation{Fields: map[string]Value{
			FieldTemperature: Number(v),
			FieldSalinity:    Number(v * 10),
			FieldODO:         Number(v + 1),
		}}
	}
	return NewTable(records)
}

func TestSummarize_OneToFive(t *testing.T) {
	stats, err := Summarize(rangeFieldTable(1, 2, 3, 4, 5))
	require.NoError(t, err)
	require.Len(t, stats, 3)

	temp := stats[FieldTemperature]
	assert.Equal(t, 5, temp.Count)
	assert.Zero(t, temp.Missing)
	assert.InDelta(t, 3.0, temp.Mean, 1e-12)
	assert.Equal(t, 1.0, temp.Min)
	assert.Equal(t, 5.0, temp.Max)
	assert.InDelta(t, 2.0, temp.P25, 1e-12)
	assert.InDelta(t, 3.0, temp.P50, 1e-12)
	assert.InDelta(t, 4.0, temp.P75, 1e-12)

	sal := stats[FieldSalinity]
	assert.InDelta(t, 30.0, sal.Mean, 1e-12)
	assert.Equal(t, 50.0, sal.Max)
}

func TestSummarize_InterpolatedQuartiles(t *testing.T) {
	stats, err := Summarize(rangeFieldTable(4, 1, 3, 2))
	require.NoError(t, err)

	temp := stats[FieldTemperature]
	assert.InDelta(t, 1.75, temp.P25, 1e-12)
	assert.InDelta(t, 2.5, temp.P50, 1e-12)
	assert.InDelta(t, 3.25, temp.P75, 1e-12)
}

func TestSummarize_SkipsMissing(t *testing.T) {
	table := rangeFieldTable(1, 2, 3)
	records := table.Records()
	records = append(records, Observation{Fields: map[string]Value{
		FieldTemperature: Missing,
		FieldSalinity:    Number(40),
		FieldODO:         TextValue("fault"),
	}})

	stats, err := Summarize(NewTable(records))
	require.NoError(t, err)
	assert.Equal(t, 3, stats[FieldTemperature].Count)
	assert.Equal(t, 1, stats[FieldTemperature].Missing)
	assert.InDelta(t, 2.0, stats[FieldTemperature].Mean, 1e-12)
	assert.Equal(t, 4, stats[FieldSalinity].Count)
	assert.Equal(t, 1, stats[FieldODO].Missing)
}

func TestSummarize_EmptyTable(t *testing.T) {
	stats, err := Summarize(NewTable(nil))
	require.ErrorIs(t, err, ErrEmptyData)
	assert.Nil(t, stats)
}

func TestSummarize_FieldWithoutValues(t *testing.T) {
	table := NewTable([]Observation{{Fields: map[string]Value{FieldTemperature: Number(1)}}})
	_, err := Summarize(table)
	require.ErrorIs(t, err, ErrEmptyData)
	assert.Contains(t, err.Error(), FieldSalinity)
}

func TestSummarize_OutputIsFinite(t *testing.T) {
	stats, err := Summarize(rangeFieldTable(7))
	require.NoError(t, err)

	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "NaN")

	for name, s := range stats {
		for _, v := range []float64{s.Mean, s.Min, s.Max, s.P25, s.P50, s.P75} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), name)
		}
	}
}
