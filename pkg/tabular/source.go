package tabular

import (
	"bytes"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/charmap"
)

type Format string

const (
	FormatText     Format = "text"
	FormatWorkbook Format = "xlsx"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DetectFormat sniffs raw file content. Any zip container is treated as a workbook.
func DetectFormat(b []byte) Format {
	for m := mimetype.Detect(b); m != nil; m = m.Parent() {
		if m.Is(xlsxMIME) || m.Is("application/zip") {
			return FormatWorkbook
		}
	}
	return FormatText
}

// DecodeText returns b as UTF-8. Content that is not valid UTF-8 is decoded as Windows-1251,
// the usual encoding of spreadsheets exported by Russian-locale Excel.
func DecodeText(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, []byte(utf8BOM))
	if utf8.Valid(b) {
		return string(b), nil
	}
	out, err := charmap.Windows1251.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Load parses raw file content of either format. delimiter and sheet apply to text and
// workbook input respectively.
func Load(b []byte, delimiter rune, sheet string) (Table, error) {
	if DetectFormat(b) == FormatWorkbook {
		return ParseWorkbook(bytes.NewReader(b), sheet)
	}
	text, err := DecodeText(b)
	if err != nil {
		return Table{}, err
	}
	return ParseTable(text, delimiter)
}
