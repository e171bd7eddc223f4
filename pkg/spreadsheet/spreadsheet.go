package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadable is returned when the payload cannot be decoded as a workbook.
var ErrUnreadable = errors.New("unreadable spreadsheet")

// Cell is a decoded spreadsheet value. Numeric cells carry both the parsed
// number and its canonical text form.
type Cell struct {
	Text    string
	Number  float64
	Numeric bool
}

// TextCell builds a string cell.
func TextCell(text string) Cell {
	return Cell{Text: text}
}

// NumberCell builds a numeric cell.
func NumberCell(n float64) Cell {
	return Cell{Text: strconv.FormatFloat(n, 'f', -1, 64), Number: n, Numeric: true}
}

// String coerces the cell to text.
func (c Cell) String() string {
	return c.Text
}

// IsEmpty reports whether the cell holds only whitespace.
func (c Cell) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == ""
}

// Sheet is the first worksheet of a decoded file.
type Sheet struct {
	Name string
	Rows [][]Cell
}

// Width returns the widest row length.
func (s *Sheet) Width() int {
	width := 0
	for _, row := range s.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Read drains r and decodes it.
func Read(r io.Reader, filename string) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	return Decode(data, filename)
}

// Decode parses the first sheet of an xlsx workbook, or a CSV file when the
// filename carries a .csv extension.
func Decode(data []byte, filename string) (*Sheet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnreadable)
	}
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return decodeCSV(data)
	}
	return decodeWorkbook(data)
}

func decodeWorkbook(data []byte) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadable)
	}
	name := sheets[0]

	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	rows := make([][]Cell, len(raw))
	for r, values := range raw {
		cells := make([]Cell, len(values))
		for c, value := range values {
			cells[c] = workbookCell(f, name, c, r, value)
		}
		rows[r] = cells
	}
	return &Sheet{Name: name, Rows: rows}, nil
}

func workbookCell(f *excelize.File, sheet string, col, row int, value string) Cell {
	if value == "" {
		return Cell{}
	}
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return TextCell(value)
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return TextCell(value)
	}
	if typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset {
		if n, ok := parseNumber(value); ok {
			return NumberCell(n)
		}
	}
	return TextCell(value)
}

func decodeCSV(data []byte) (*Sheet, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	rows := make([][]Cell, len(records))
	for r, record := range records {
		cells := make([]Cell, len(record))
		for c, value := range record {
			cells[c] = TextCell(value)
			if n, ok := parseNumber(value); ok {
				cells[c].Number = n
				cells[c].Numeric = true
			}
		}
		rows[r] = cells
	}
	return &Sheet{Name: "csv", Rows: rows}, nil
}

// parseNumber accepts finite decimals only. "nan" and "inf" stay text.
func parseNumber(value string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
