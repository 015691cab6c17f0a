package domain

import (
	"fmt"
	"strings"
)

// Kind is the storage type of a field.
type Kind int

const (
	// Numeric fields parse to numbers; anything else becomes Missing.
	Numeric Kind = iota
	// Text fields are kept as strings.
	Text
)

// Field describes one known column: where it comes from, what it is called
// afterwards and which components use it.
type Field struct {
	Key      string // short field-set name, e.g. "temperature"
	Source   string // raw CSV header
	Name     string // canonical name
	Kind     Kind
	Required bool   // a source without this column is rejected
	Clean    bool   // participates in the outlier cleaning pass
	Range    bool   // filterable by numeric bounds and summarized
	Param    string // query-parameter stem for range fields (min_<p>, max_<p>)
}

// Canonical names referenced directly by the query and statistics code.
const (
	FieldTime        = "time"
	FieldDate        = "date"
	FieldTemperature = "temperature_c"
	FieldSalinity    = "salinity_ppt"
	FieldODO         = "odo_mg_l"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
)

// Schema is the single list of known fields shared by the cleaner, the range
// evaluator and the statistics calculator.
var Schema = []Field{
	{Key: "time", Source: "Time hh:mm:ss", Name: FieldTime, Kind: Text, Required: true},
	{Key: "date", Source: "Date m/d/y", Name: FieldDate, Kind: Text, Required: true},
	{Key: "latitude", Source: "Latitude", Name: FieldLatitude, Kind: Numeric},
	{Key: "longitude", Source: "Longitude", Name: FieldLongitude, Kind: Numeric},
	{Key: "inside_temp", Source: "C Inside Temp (c)", Name: "inside_temp_c", Kind: Numeric, Required: true, Clean: true},
	{Key: "dfs_depth", Source: "DFS Depth (m)", Name: "dfs_depth_m", Kind: Numeric, Required: true, Clean: true},
	{Key: "dtb_height", Source: "DTB Height (m)", Name: "dtb_height_m", Kind: Numeric, Required: true, Clean: true},
	{Key: "water_column", Source: "Total Water Column (m)", Name: "water_column_m", Kind: Numeric, Required: true, Clean: true},
	{Key: "temperature", Source: "Temperature (c)", Name: FieldTemperature, Kind: Numeric, Required: true, Clean: true, Range: true, Param: "temp"},
	{Key: "salinity", Source: "Salinity (ppt)", Name: FieldSalinity, Kind: Numeric, Required: true, Clean: true, Range: true, Param: "sal"},
	{Key: "odo", Source: "ODO mg/L", Name: FieldODO, Kind: Numeric, Required: true, Clean: true, Range: true, Param: "odo"},
}

// CleaningFields returns the fields checked by the cleaning pass.
func CleaningFields() []Field { return selectFields(func(f Field) bool { return f.Clean }) }

// RangeFields returns the numeric fields that accept range bounds. They are
// also the fields reported by [Summarize].
func RangeFields() []Field { return selectFields(func(f Field) bool { return f.Range }) }

// RequiredFields returns the fields every raw source must contain.
func RequiredFields() []Field { return selectFields(func(f Field) bool { return f.Required }) }

func selectFields(keep func(Field) bool) []Field {
	var out []Field
	for _, f := range Schema {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// FieldByName looks up a known field by its canonical name.
func FieldByName(name string) (Field, bool) {
	for _, f := range Schema {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldBySource looks up a known field by its raw CSV header.
func FieldBySource(header string) (Field, bool) {
	header = strings.TrimSpace(header)
	for _, f := range Schema {
		if f.Source == header {
			return f, true
		}
	}
	return Field{}, false
}

// CanonicalName returns the canonical name for a raw header: the schema name
// for known fields, otherwise a lower-case snake_case form of the header.
func CanonicalName(header string) string {
	if f, ok := FieldBySource(header); ok {
		return f.Name
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(header)) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// columnPlan maps raw header positions to canonical columns.
type columnPlan struct {
	names  []string         // canonical name per raw position; "" = dropped
	fields map[string]Field // known fields by canonical name
	index  map[string]int   // raw position by canonical name
}

// planColumns resolves a raw header row against the schema. It fails with
// ErrSchemaMismatch when required fields are absent, two headers collapse
// onto the same canonical name, or an unknown header collapses onto a schema
// field's name. Required fields match by their exact raw header only.
func planColumns(header []string) (columnPlan, error) {
	plan := columnPlan{
		names:  make([]string, len(header)),
		fields: make(map[string]Field),
		index:  make(map[string]int, len(header)),
	}

	for i, h := range header {
		name := CanonicalName(h)
		if name == "" {
			continue
		}
		if prev, dup := plan.index[name]; dup {
			return columnPlan{}, fmt.Errorf("%w: columns %q and %q both map to %q",
				ErrSchemaMismatch, header[prev], h, name)
		}
		f, known := FieldBySource(h)
		if !known {
			if sf, taken := FieldByName(name); taken {
				return columnPlan{}, fmt.Errorf("%w: column %q maps to %q, which is reserved for %q",
					ErrSchemaMismatch, h, name, sf.Source)
			}
		}
		plan.names[i] = name
		plan.index[name] = i
		if known {
			plan.fields[name] = f
		}
	}

	var missing []string
	for _, f := range RequiredFields() {
		if _, ok := plan.fields[f.Name]; !ok {
			missing = append(missing, f.Source)
		}
	}
	if len(missing) > 0 {
		return columnPlan{}, fmt.Errorf("%w: missing columns %s",
			ErrSchemaMismatch, strings.Join(quoteAll(missing), ", "))
	}

	return plan, nil
}

// columns returns the canonical column names in source order.
func (p columnPlan) columns() []string {
	out := make([]string, 0, len(p.index))
	for _, n := range p.names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// parseCell converts one raw cell according to the column's schema kind.
func (p columnPlan) parseCell(name, raw string) Value {
	f, known := p.fields[name]
	switch {
	case known && f.Kind == Numeric:
		return ParseNumber(raw)
	case known && f.Kind == Text:
		return ParseText(raw)
	default:
		return ParseCell(raw)
	}
}

func quoteAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
