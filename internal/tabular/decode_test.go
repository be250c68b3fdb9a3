package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecode_Extension(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr error
	}{
		{"csv", "spots.csv", nil},
		{"upper case csv", "SPOTS.CSV", nil},
		{"legacy xls", "spots.xls", ErrUnsupportedFormat},
		{"json", "spots.json", ErrUnsupportedFormat},
		{"no extension", "spots", ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.file, []byte("a,b\n1,2\n"))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeCSV(t *testing.T) {
	data := []byte("Latitud,Longitud,Linea\n7.33,-76.72,1\n7.34,,2\n\n7.35\n")

	tbl, err := DecodeCSV(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Latitud", "Longitud", "Linea"}, tbl.Header)
	assert.Equal(t, 1, tbl.Sheets)
	require.Equal(t, 3, tbl.Len(), "blank line skipped")

	assert.Equal(t, TextCell("7.33"), tbl.Cell(0, 0))
	assert.True(t, tbl.Cell(1, 1).IsAbsent(), "empty field is absent")
	assert.True(t, tbl.Cell(2, 1).IsAbsent(), "short row padded")
	assert.True(t, tbl.Cell(2, 2).IsAbsent())
	assert.True(t, tbl.Cell(9, 9).IsAbsent(), "out of range")
}

func TestDecodeCSV_WideRow(t *testing.T) {
	_, err := DecodeCSV([]byte("a,b\n1,2,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid csv")
	assert.Contains(t, err.Error(), "line 2")
}

func TestDecodeCSV_Empty(t *testing.T) {
	for _, in := range []string{"", "   \n\n", "\xEF\xBB\xBF"} {
		_, err := DecodeCSV([]byte(in))
		assert.ErrorIs(t, err, ErrEmptyFile, "input %q", in)
	}
}

func TestDecodeCSV_BOMAndCharset(t *testing.T) {
	t.Run("bom stripped", func(t *testing.T) {
		tbl, err := DecodeCSV([]byte("\xEF\xBB\xBFlatitud,lote\n1,A\n"))
		require.NoError(t, err)
		assert.Equal(t, "latitud", tbl.Header[0])
	})

	t.Run("windows-1252", func(t *testing.T) {
		// "Línea" with í encoded as 0xED
		tbl, err := DecodeCSV([]byte("L\xEDnea;Posici\xF3n\n1;2\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Línea", "Posición"}, tbl.Header)
	})
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"a,b,c", ','},
		{"a;b;c", ';'},
		{"a\tb\tc", '\t'},
		{"single", ','},
		{`"x;y",b`, ','},
		{"a;b,c", ','},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sniffDelimiter([]byte(tt.line)), "line %q", tt.line)
	}
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Latitud", "Longitud", "Lote"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{7.33, -76.72, "A1"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{7.34, nil, "A2", "extra"}))
	_, err := f.NewSheet("Resumen")
	require.NoError(t, err)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := Decode("finca.xlsx", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.Sheets)
	assert.Equal(t, []string{"Latitud", "Longitud", "Lote", "Unnamed: 3"}, tbl.Header)
	require.Equal(t, 2, tbl.Len(), "empty row 3 skipped")
	assert.Equal(t, "7.33", tbl.Cell(0, 0).String())
	assert.True(t, tbl.Cell(1, 1).IsAbsent())
	assert.Equal(t, "extra", tbl.Cell(1, 3).String())
}

func TestDecodeXLSX_FormattedNumbers(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Latitud", "Longitud"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{7.336512, -76.712345}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{7.338799, -76.714999}))

	// "0.00"
	style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "A2", "B3", style))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := Decode("finca.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	assert.Equal(t, "7.336512", tbl.Cell(0, 0).String())
	assert.Equal(t, "-76.712345", tbl.Cell(0, 1).String())
	assert.Equal(t, "7.338799", tbl.Cell(1, 0).String())
	assert.Equal(t, "-76.714999", tbl.Cell(1, 1).String())
}

func TestDecodeXLSX_Garbage(t *testing.T) {
	_, err := DecodeXLSX([]byte("not a zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid spreadsheet")
}

func TestCell_String(t *testing.T) {
	assert.Equal(t, "", Cell{}.String())
	assert.Equal(t, "1", NumberCell(1).String())
	assert.Equal(t, "7.3", NumberCell(7.3).String())
	assert.Equal(t, " A ", TextCell(" A ").String())
}
