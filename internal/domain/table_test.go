package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AppendIsCopyOnWrite(t *testing.T) {
	base := numericTable(FieldTemperature, 1, 2)
	next := base.Append([]Observation{{ID: "new", Fields: map[string]Value{
		FieldTemperature: Number(3),
		"ph":             Number(8.1),
	}}})

	assert.Equal(t, 2, base.Len())
	assert.Equal(t, 3, next.Len())
	assert.False(t, base.HasColumn("ph"))
	assert.True(t, next.HasColumn("ph"))
	assert.Equal(t, base.Version()+1, next.Version())
	assert.Equal(t, []string{"obs-0", "obs-1", "new"}, ids(next.Records()))
}

func TestTable_Columns(t *testing.T) {
	table := NewTable([]Observation{
		{Fields: map[string]Value{"b": Missing, "a": Missing}},
		{Fields: map[string]Value{"c": Missing, "a": Missing}},
	})
	assert.Equal(t, []string{"a", "b", "c"}, table.Columns())
	assert.True(t, table.HasColumn("c"))
	assert.False(t, table.HasColumn("d"))
}

func TestTable_WithIndex(t *testing.T) {
	base := numericTable(FieldTemperature, 3, 1, 2)

	indexed, err := base.WithIndex(FieldTime)
	require.NoError(t, err)
	assert.True(t, indexed.Indexed(FieldTime))
	assert.False(t, base.Indexed(FieldTime))

	// Appending keeps the index current.
	grown := indexed.Append([]Observation{{ID: "late", Fields: map[string]Value{FieldTime: TextValue("23:59:59")}}})
	require.True(t, grown.Indexed(FieldTime))
	positions, ok := grown.lookupTextRange(FieldTime, TextRange{Min: ptr("23:00:00")})
	require.True(t, ok)
	assert.Equal(t, []int{3}, positions)

	_, err = base.WithIndex("nope")
	require.ErrorIs(t, err, ErrInvalidField)
}

func TestTable_NilIsEmpty(t *testing.T) {
	var table *Table
	assert.Zero(t, table.Len())
	assert.Nil(t, table.Records())
	assert.False(t, table.HasColumn(FieldTime))

	next := table.Append([]Observation{{ID: "a"}})
	assert.Equal(t, 1, next.Len())
}

func TestObservation_JSON(t *testing.T) {
	obs := Observation{
		ID: "65a1f0",
		Fields: map[string]Value{
			FieldTime:        TextValue("10:01:02"),
			FieldTemperature: Number(21.5),
			FieldSalinity:    Missing,
		},
	}

	data, err := json.Marshal(obs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"65a1f0","time":"10:01:02","temperature_c":21.5,"salinity_ppt":null}`, string(data))

	var back Observation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, obs, back)
}

func TestParseCell(t *testing.T) {
	assert.Equal(t, Number(8.25), ParseCell(" 8.25 "))
	assert.Equal(t, TextValue("OK"), ParseCell("OK"))
	assert.True(t, ParseCell("  ").IsMissing())
	assert.True(t, ParseNumber("NaN").IsMissing())
	assert.True(t, ParseNumber("abc").IsMissing())
	assert.Equal(t, "21.5", Number(21.5).String())
}
