package tabular

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestDecodeText_Windows1251Fallback(t *testing.T) {
	want := "code;name\nD1;Бухгалтерия\n"
	raw, err := charmap.Windows1251.NewEncoder().String(want)
	require.NoError(t, err)

	got, err := DecodeText([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, want, got)

	got, err = DecodeText([]byte("\ufeff" + want))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestWorkbook_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	err := WriteWorkbook(&buf, "Сотрудники", []string{"tab_number", "full_name", "manager_id"}, [][]string{
		{"1001", "Иванов Иван", ""},
		{"1002", "Петров Пётр", "1001"},
	})
	require.NoError(t, err)

	raw := buf.Bytes()
	require.Equal(t, FormatWorkbook, DetectFormat(raw))

	table, err := ParseWorkbook(bytes.NewReader(raw), "")
	require.NoError(t, err)
	require.Equal(t, []string{"tab_number", "full_name", "manager_id"}, table.Header)
	recs := table.Records
	require.Len(t, recs, 2)
	require.Equal(t, "Иванов Иван", recs[0].Get("full_name"))
	require.Equal(t, "", recs[0].Get("manager_id"))
	require.Equal(t, 2, recs[1].Row)
	require.Equal(t, "1001", recs[1].Get("manager_id"))

	loaded, err := Load(raw, 0, "Сотрудники")
	require.NoError(t, err)
	require.Equal(t, table, loaded)
}

func TestWorkbook_BlankRowsKeepPositions(t *testing.T) {
	table, err := fromRows([][]string{
		{},
		{"code", "name"},
		{"D1", "Sales"},
		{},
		{" ", ""},
		{"D2", "HR"},
	})
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	require.Equal(t, 1, table.Records[0].Row)
	require.Equal(t, 4, table.Records[1].Row)
}

func TestWorkbook_HeaderOnly(t *testing.T) {
	table, err := fromRows([][]string{{"code", " name "}})
	require.NoError(t, err)
	require.Equal(t, []string{"code", "name"}, table.Header)
	require.Empty(t, table.Records)
}

func TestLoad_Text(t *testing.T) {
	raw := []byte("code;name\nD1;Sales\n")
	require.Equal(t, FormatText, DetectFormat(raw))

	table, err := Load(raw, 0, "")
	require.NoError(t, err)
	require.Equal(t, []string{"code", "name"}, table.Header)
	require.Len(t, table.Records, 1)
	require.Equal(t, "Sales", table.Records[0].Get("name"))
}
