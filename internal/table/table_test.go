package table

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := "email,name\na@x.com,Alice\nb@x.com,Bob\n"
	tbl, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "name"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "Alice", tbl.Rows[0][1])
}

func TestReadCSV_RaggedRows(t *testing.T) {
	in := "a,b,c\n1,2\n1,2,3,4\n"
	tbl, err := ReadCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Len(t, tbl.Rows[0], 2)
	assert.Len(t, tbl.Rows[1], 4)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadCSV(ctx, strings.NewReader("a\n1\n"))
	assert.Error(t, err)
}

func TestColumnIndex_CaseInsensitive(t *testing.T) {
	tbl := &Table{Headers: []string{" Email ", "Name"}}
	assert.Equal(t, 0, tbl.ColumnIndex("email"))
	assert.Equal(t, 1, tbl.ColumnIndex("NAME"))
	assert.Equal(t, -1, tbl.ColumnIndex("phone"))
}

func TestColumnIndices_ReportsMissing(t *testing.T) {
	tbl := &Table{Headers: []string{"email", "name"}}
	indices, missing := tbl.ColumnIndices([]string{"email", "phone", "name"})
	assert.Equal(t, []int{0, 1}, indices)
	assert.Equal(t, []string{"phone"}, missing)
}

func TestCellAndSetCell(t *testing.T) {
	tbl := &Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}}

	assert.Equal(t, "1", tbl.Cell(0, 0))
	assert.Equal(t, "", tbl.Cell(0, 1)) // ragged
	assert.Equal(t, "", tbl.Cell(5, 0)) // out of range

	require.NoError(t, tbl.SetCell(0, 1, "x"))
	assert.Equal(t, "x", tbl.Cell(0, 1))

	assert.Error(t, tbl.SetCell(9, 0, "x"))
	assert.Error(t, tbl.SetCell(0, -1, "x"))
}

func TestClone_Independent(t *testing.T) {
	tbl := &Table{Headers: []string{"a"}, Rows: [][]string{{"1"}, {"2"}}}
	c := tbl.Clone()

	require.NoError(t, c.SetCell(0, 0, "changed"))
	assert.Equal(t, "1", tbl.Cell(0, 0))
	assert.Equal(t, "changed", c.Cell(0, 0))
}

func TestSelectRows(t *testing.T) {
	tbl := &Table{Headers: []string{"a"}, Rows: [][]string{{"1"}, {"2"}, {"3"}}}
	out := tbl.SelectRows([]int{2, 0})
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "3", out.Rows[0][0])
	assert.Equal(t, "1", out.Rows[1][0])

	// Out-of-range indices are skipped.
	out = tbl.SelectRows([]int{0, 99})
	assert.Len(t, out.Rows, 1)
}

func TestMarshalCSV_RoundTrip(t *testing.T) {
	tbl := &Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1", "with,comma"}}}
	data, err := MarshalCSV(tbl)
	require.NoError(t, err)

	back, err := ReadCSV(context.Background(), strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, tbl.Headers, back.Headers)
	assert.Equal(t, tbl.Rows, back.Rows)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(context.Background(), "data.parquet")
	assert.Error(t, err)
}
