package ingest

import (
	"time"

	"github.com/nesiel/class-bank/pkg/spreadsheet"
)

var fixedNow = func() time.Time { return time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC) }

// sheetOf builds a sheet from plain values: strings become text cells and
// numbers numeric cells.
func sheetOf(rows ...[]interface{}) *spreadsheet.Sheet {
	out := make([][]spreadsheet.Cell, len(rows))
	for r, row := range rows {
		cells := make([]spreadsheet.Cell, len(row))
		for c, value := range row {
			switch v := value.(type) {
			case string:
				cells[c] = spreadsheet.TextCell(v)
			case int:
				cells[c] = spreadsheet.NumberCell(float64(v))
			case float64:
				cells[c] = spreadsheet.NumberCell(v)
			case nil:
				cells[c] = spreadsheet.Cell{}
			}
		}
		out[r] = cells
	}
	return &spreadsheet.Sheet{Name: "Sheet1", Rows: out}
}

func row(values ...interface{}) []interface{} {
	return values
}

func testPipeline() *Pipeline {
	opts := DefaultOptions()
	opts.Now = fixedNow
	return NewPipeline(opts)
}
