package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindMissing valueKind = iota
	kindNumber
	kindText
)

// Value is a single cell of an observation: a number, a string, or Missing.
// The zero Value is Missing.
type Value struct {
	kind valueKind
	num  float64
	text string
}

// Missing is the marker for an absent or unparseable cell.
var Missing = Value{}

// Number returns a numeric Value. Non-finite inputs become Missing.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing
	}
	return Value{kind: kindNumber, num: f}
}

// TextValue returns a string Value.
func TextValue(s string) Value {
	return Value{kind: kindText, text: s}
}

// ParseNumber parses a numeric cell. Empty or unparseable input is Missing.
func ParseNumber(raw string) Value {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Missing
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Missing
	}
	return Number(f)
}

// ParseText parses a text cell. Empty input is Missing.
func ParseText(raw string) Value {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Missing
	}
	return TextValue(raw)
}

// ParseCell parses a cell of a column the schema does not know: a finite
// number if it parses as one, text otherwise.
func ParseCell(raw string) Value {
	if v := ParseNumber(raw); !v.IsMissing() {
		return v
	}
	return ParseText(raw)
}

// IsMissing reports whether the value is absent.
func (v Value) IsMissing() bool { return v.kind == kindMissing }

// Float returns the numeric value. ok is false for Missing and text values.
func (v Value) Float() (f float64, ok bool) {
	if v.kind != kindNumber {
		return 0, false
	}
	return v.num, true
}

// String returns the textual form used for CSV output and string comparison.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.text
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as JSON numbers, text as strings and Missing
// as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return json.Marshal(v.num)
	case kindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case float64:
		*v = Number(t)
	case string:
		*v = TextValue(t)
	default:
		*v = Missing
	}
	return nil
}

// compareValues orders Missing before numbers and numbers before text.
func compareValues(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case kindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
	case kindText:
		return strings.Compare(a.text, b.text)
	}
	return 0
}

// IDField is the JSON key holding an observation's identifier.
const IDField = "_id"

// Observation is one cleaned row, keyed by canonical field name. ID is empty
// until the record is inserted into a collection.
type Observation struct {
	ID     string
	Fields map[string]Value
}

// Get returns the named field, or Missing if the row does not have it.
func (o Observation) Get(name string) Value {
	return o.Fields[name]
}

// Time returns the observation's time-of-day string.
func (o Observation) Time() string {
	return o.Fields[FieldTime].String()
}

// MarshalJSON encodes the observation as a flat object with the identifier
// under "_id" as a plain string.
func (o Observation) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(o.Fields)+1)
	for k, v := range o.Fields {
		flat[k] = v
	}
	flat[IDField] = o.ID
	return json.Marshal(flat)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var flat map[string]Value
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	id := flat[IDField]
	delete(flat, IDField)
	o.ID = id.String()
	o.Fields = flat
	return nil
}
