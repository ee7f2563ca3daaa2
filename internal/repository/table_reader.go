package repository

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Encoding names accepted for CSV input.
const (
	EncodingAuto  = "auto"
	EncodingUTF8  = "utf-8"
	EncodingCP949 = "cp949"
)

var (
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
	zipMagic = []byte("PK\x03\x04")
)

// isWorkbook sniffs an OOXML (zip) container.
func isWorkbook(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// readCSV decodes CSV bytes into records. With EncodingAuto, input that is
// not valid UTF-8 is treated as CP949 (EUC-KR superset used by Korean exports).
func readCSV(data []byte, encoding string) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	var r io.Reader = bytes.NewReader(data)
	switch encoding {
	case EncodingCP949:
		r = transform.NewReader(r, korean.EUCKR.NewDecoder())
	case EncodingUTF8:
	default:
		if !utf8.Valid(data) {
			r = transform.NewReader(r, korean.EUCKR.NewDecoder())
		}
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

// readWorkbook returns the rows of sheet, or of the first sheet when sheet is empty.
func readWorkbook(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// readTable dispatches on content: workbooks by magic bytes, everything else as CSV.
func readTable(data []byte, sheet, encoding string) ([][]string, error) {
	if isWorkbook(data) {
		return readWorkbook(bytes.NewReader(data), sheet)
	}
	return readCSV(data, encoding)
}
