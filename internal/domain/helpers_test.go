package domain

import (
	"fmt"
	"strconv"
	"testing"
)

var rawHeader = []string{
	"Date m/d/y", "Time hh:mm:ss", "Latitude", "Longitude",
	"C Inside Temp (c)", "DFS Depth (m)", "DTB Height (m)", "Total Water Column (m)",
	"Temperature (c)", "Salinity (ppt)", "ODO mg/L", "pH",
}

// rawRow builds a plausible survey row; each cleaning field varies a little
// so no column is constant.
func rawRow(i int) []string {
	f := func(base, step float64, mod int) string {
		return strconv.FormatFloat(base+step*float64(i%mod), 'f', 3, 64)
	}
	return []string{
		"12/16/21",
		fmt.Sprintf("10:%02d:%02d", i/60, i%60),
		f(25.91, 0.001, 7),
		f(-80.13, 0.001, 7),
		f(30, 0.1, 5),
		f(1, 0.01, 5),
		f(2, 0.02, 4),
		f(3, 0.03, 3),
		f(20, 0.1, 5),
		f(35, 0.2, 4),
		f(6, 0.05, 6),
		"8.1",
	}
}

// rawBatch builds n rows and lets mutate tweak individual cells by header.
func rawBatch(t *testing.T, n int, mutate func(i int, set func(header, value string))) RawBatch {
	t.Helper()
	col := make(map[string]int, len(rawHeader))
	for i, h := range rawHeader {
		col[h] = i
	}

	rows := make([][]string, n)
	for i := range rows {
		row := rawRow(i)
		if mutate != nil {
			mutate(i, func(header, value string) {
				c, ok := col[header]
				if !ok {
					t.Fatalf("unknown header %q", header)
				}
				row[c] = value
			})
		}
		rows[i] = row
	}
	return RawBatch{
		Source: Source{Name: "test-run", Path: "test-run.csv"},
		Header: rawHeader,
		Rows:   rows,
	}
}

// numericTable builds a table whose records carry field = values[i], plus a
// sequential time so order is observable.
func numericTable(field string, values ...float64) *Table {
	records := make([]Observation, len(values))
	for i, v := range values {
		records[i] = Observation{
			ID: fmt.Sprintf("obs-%d", i),
			Fields: map[string]Value{
				FieldTime: TextValue(fmt.Sprintf("10:00:%02d", i)),
				field:     Number(v),
			},
		}
	}
	return NewTable(records)
}

func ids(items []Observation) []string {
	out := make([]string, len(items))
	for i, o := range items {
		out[i] = o.ID
	}
	return out
}

func ptr[T any](v T) *T { return &v }
