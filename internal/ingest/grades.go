package ingest

import (
	"strings"

	"github.com/nesiel/class-bank/internal/models"
	"github.com/nesiel/class-bank/pkg/spreadsheet"
)

// GradeBatch maps students to the grades found for them in one file.
type GradeBatch struct {
	Stats   Stats
	entries map[string][]models.GradeEntry
	order   []string
}

// Len returns the number of students.
func (g *GradeBatch) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}

// Names lists students in first-seen order.
func (g *GradeBatch) Names() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.order...)
}

// Get returns a copy of the grades for name.
func (g *GradeBatch) Get(name string) ([]models.GradeEntry, bool) {
	if g == nil {
		return nil, false
	}
	grades, ok := g.entries[name]
	if !ok {
		return nil, false
	}
	return append([]models.GradeEntry{}, grades...), true
}

// ParseGrades reads a grades sheet: one name column and any number of
// subject columns. Non-numeric cells are ignored. A repeated name keeps the
// grades of its last row.
func (p *Pipeline) ParseGrades(sheet *spreadsheet.Sheet) *GradeBatch {
	batch := &GradeBatch{entries: make(map[string][]models.GradeEntry)}
	if sheet == nil || len(sheet.Rows) == 0 {
		return batch
	}

	headerRow, detected := p.resolver.DetectHeaderRow(sheet.Rows)
	batch.Stats.HeaderRow = headerRow
	batch.Stats.HeaderDetected = detected

	headers := headerTexts(sheet.Rows[headerRow], sheet.Width())
	nameCol := gradeNameColumn(headers)
	if nameCol < 0 {
		return batch
	}
	cols := p.resolver.Resolve(headers)

	for _, row := range sheet.Rows[headerRow+1:] {
		if blankRow(row) {
			continue
		}
		batch.Stats.RowsRead++
		if nameCol >= len(row) {
			batch.Stats.RowsSkipped++
			continue
		}
		name := collapseSpaces(row[nameCol].String())
		if !p.validName(name) {
			batch.Stats.RowsSkipped++
			continue
		}

		grades := []models.GradeEntry{}
		for i, header := range cols.Headers {
			if i == nameCol || i >= len(row) || header == "" || isMetadata(cols, i) {
				continue
			}
			score, ok := cellNumber(row[i])
			if !ok {
				continue
			}
			grades = append(grades, models.GradeEntry{Subject: header, Score: score})
		}

		if _, seen := batch.entries[name]; !seen {
			batch.order = append(batch.order, name)
		}
		batch.entries[name] = grades
		batch.Stats.LogEntries += len(grades)
	}
	return batch
}

// gradeNameColumn returns the first header naming the student.
func gradeNameColumn(headers []string) int {
	for i, raw := range headers {
		header := strings.TrimSpace(raw)
		if strings.Contains(header, "שם") || strings.Contains(header, "תלמיד") || strings.EqualFold(header, "Name") {
			return i
		}
	}
	return -1
}

func isMetadata(cols Columns, index int) bool {
	for _, field := range cols.FieldsOf(index) {
		if field == FieldMetadata || field == FieldClass {
			return true
		}
	}
	return false
}

func cellNumber(cell spreadsheet.Cell) (float64, bool) {
	if cell.Numeric {
		return cell.Number, finite(cell.Number)
	}
	return leadingNumber(cell.String())
}
