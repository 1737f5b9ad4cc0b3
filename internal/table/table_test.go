package table

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Append(t *testing.T) {
	tbl := New("customers", "id", "name")

	require.NoError(t, tbl.Append([]any{int64(1), "a"}))
	assert.Error(t, tbl.Append([]any{int64(2)}))
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, 1, tbl.Column("name"))
	assert.Equal(t, -1, tbl.Column("missing"))
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "string", in: "x", want: "x"},
		{name: "bool", in: true, want: "true"},
		{name: "int", in: 4, want: "4"},
		{name: "int64", in: int64(-3), want: "-3"},
		{name: "float", in: 2.5, want: "2.5"},
		{name: "decimal", in: decimal.RequireFromString("1.25"), want: "1.25"},
		{name: "time", in: time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC), want: "2010-12-01 08:26:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCell(tt.in))
		})
	}
}

func TestStringRowsAndSorted(t *testing.T) {
	b := New("b", "v")
	require.NoError(t, b.Append([]any{nil}))
	a := New("a")

	assert.Equal(t, [][]string{{""}}, b.StringRows())

	sorted := Sorted(map[string]*Table{"b": b, "a": a})
	require.Len(t, sorted, 2)
	assert.Equal(t, "a", sorted[0].Name)
	assert.Equal(t, "b", sorted[1].Name)
}
