package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WriteOptions controls workbook rendering.
type WriteOptions struct {
	SheetName   string
	RightToLeft bool
}

// Write renders a header row followed by records into an xlsx workbook.
func Write(headers []string, records [][]interface{}, opts WriteOptions) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	name := opts.SheetName
	if name == "" {
		name = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if opts.RightToLeft {
		rtl := true
		if err := f.SetSheetView(name, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
			return nil, fmt.Errorf("set sheet view: %w", err)
		}
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	for i, record := range records {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := record
		if err := f.SetSheetRow(name, axis, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
