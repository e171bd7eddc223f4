package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nesiel/class-bank/internal/models"
	"github.com/nesiel/class-bank/pkg/spreadsheet"
)

// DuplicateRows decides what a repeated student name inside one file does.
// Accumulate is the default so a weekly report listing a student once per
// subject keeps every row's points.
type DuplicateRows string

const (
	// DuplicateAccumulate appends the logs of every row to the same entry.
	DuplicateAccumulate DuplicateRows = "accumulate"
	// DuplicateReplace keeps only the last row for a name.
	DuplicateReplace DuplicateRows = "replace"
)

// Options tunes row normalisation.
type Options struct {
	DefaultTeacher string
	DefaultSubject string
	DateLayout     string
	MinNameLength  int
	HeaderScanRows int
	TotalMarkers   []string
	Duplicates     DuplicateRows
	Aliases        []AliasSet
	Now            func() time.Time
}

// DefaultOptions mirrors the conventions of Hebrew class rosters.
func DefaultOptions() Options {
	return Options{
		DefaultTeacher: "צוות",
		DefaultSubject: "כללי",
		DateLayout:     "2.1.2006",
		MinNameLength:  2,
		HeaderScanRows: 30,
		TotalMarkers:   []string{`סה"כ`, "סה'כ", "סה״כ"},
		Duplicates:     DuplicateAccumulate,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DefaultTeacher == "" {
		o.DefaultTeacher = def.DefaultTeacher
	}
	if o.DefaultSubject == "" {
		o.DefaultSubject = def.DefaultSubject
	}
	if o.DateLayout == "" {
		o.DateLayout = def.DateLayout
	}
	if o.MinNameLength <= 0 {
		o.MinNameLength = def.MinNameLength
	}
	if o.TotalMarkers == nil {
		o.TotalMarkers = def.TotalMarkers
	}
	if o.Duplicates == "" {
		o.Duplicates = def.Duplicates
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// StudentUpdate is the parsed contribution of a file for one student.
type StudentUpdate struct {
	Name    string
	Class   string
	Total   float64
	Logs    []models.LogEntry
	Contact models.ContactInfo
	// TotalFromSummary is set when Total was copied from a summary column
	// instead of being the sum of Logs.
	TotalFromSummary bool
}

// Stats summarises one parse.
type Stats struct {
	HeaderRow      int  `json:"header_row"`
	HeaderDetected bool `json:"header_detected"`
	RowsRead       int  `json:"rows_read"`
	RowsSkipped    int  `json:"rows_skipped"`
	LogEntries     int  `json:"log_entries"`
	SummaryTotals  int  `json:"summary_totals"`
}

// Batch is the keyed set of updates produced from one file, in first-seen order.
type Batch struct {
	Stats   Stats
	entries map[string]*StudentUpdate
	order   []string
}

func newBatch() *Batch {
	return &Batch{entries: make(map[string]*StudentUpdate)}
}

// Len returns the number of distinct students.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.order)
}

// Names lists the students in first-seen order.
func (b *Batch) Names() []string {
	if b == nil {
		return nil
	}
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Get returns a copy of the update for name.
func (b *Batch) Get(name string) (StudentUpdate, bool) {
	if b == nil {
		return StudentUpdate{}, false
	}
	entry, ok := b.entries[name]
	if !ok {
		return StudentUpdate{}, false
	}
	out := *entry
	out.Logs = append([]models.LogEntry(nil), entry.Logs...)
	return out, true
}

// Updates returns copies of every update in first-seen order.
func (b *Batch) Updates() []StudentUpdate {
	if b == nil {
		return nil
	}
	out := make([]StudentUpdate, 0, len(b.order))
	for _, name := range b.order {
		update, _ := b.Get(name)
		out = append(out, update)
	}
	return out
}

func (b *Batch) entry(name string, replace bool) *StudentUpdate {
	if existing, ok := b.entries[name]; ok {
		if replace {
			*existing = StudentUpdate{Name: name, Logs: []models.LogEntry{}}
		}
		return existing
	}
	entry := &StudentUpdate{Name: name, Logs: []models.LogEntry{}}
	b.entries[name] = entry
	b.order = append(b.order, name)
	return entry
}

// Pipeline turns decoded sheets into student batches. It holds no state
// between calls and is safe for concurrent use.
type Pipeline struct {
	opts     Options
	resolver *Resolver
}

// NewPipeline builds a pipeline; zero option fields take DefaultOptions values.
func NewPipeline(opts Options) *Pipeline {
	opts = opts.withDefaults()
	return &Pipeline{opts: opts, resolver: NewResolver(opts.Aliases, opts.HeaderScanRows)}
}

// ParseStudents reads a behaviour or roster sheet.
func (p *Pipeline) ParseStudents(sheet *spreadsheet.Sheet, vocab Vocabulary) *Batch {
	batch := newBatch()
	if sheet == nil || len(sheet.Rows) == 0 {
		return batch
	}

	headerRow, detected := p.resolver.DetectHeaderRow(sheet.Rows)
	batch.Stats.HeaderRow = headerRow
	batch.Stats.HeaderDetected = detected

	cols := p.resolver.Resolve(headerTexts(sheet.Rows[headerRow], sheet.Width()))
	date := p.opts.Now().Format(p.opts.DateLayout)

	for _, row := range sheet.Rows[headerRow+1:] {
		if blankRow(row) {
			continue
		}
		batch.Stats.RowsRead++
		if !p.normalizeRow(batch, cols, row, vocab, date) {
			batch.Stats.RowsSkipped++
		}
	}
	return batch
}

func (p *Pipeline) normalizeRow(batch *Batch, cols Columns, row []spreadsheet.Cell, vocab Vocabulary, date string) bool {
	name := p.rowName(cols, row)
	if !p.validName(name) {
		return false
	}
	entry := batch.entry(name, p.opts.Duplicates == DuplicateReplace)
	if class := collapseSpaces(firstValue(cols, FieldClass, row)); class != "" {
		entry.Class = class
	}
	entry.Contact = entry.Contact.Overlay(rowContact(cols, row))

	teacher := firstValue(cols, FieldTeacher, row)
	if teacher == "" {
		teacher = p.opts.DefaultTeacher
	}

	found := false
	for i, header := range cols.Headers {
		if i >= len(row) || cols.Reserved(i) || row[i].IsEmpty() {
			continue
		}
		subject, colTeacher := p.subjectAndTeacher(header, teacher)
		scanner := NewCellScanner(row[i], header, vocab)
		for scanner.Scan() {
			token := scanner.Token()
			perUnit, _ := vocab.Score(token.Action)
			score := perUnit * token.Count
			entry.Logs = append(entry.Logs, models.LogEntry{
				Subject: subject,
				Teacher: colTeacher,
				Action:  token.Action,
				Count:   token.Count,
				Score:   score,
				Date:    date,
			})
			entry.Total += score
			batch.Stats.LogEntries++
			found = true
		}
	}

	if !found || entry.Total == 0 {
		if raw := firstValue(cols, FieldTotal, row); raw != "" {
			if total, ok := leadingNumber(raw); ok {
				entry.Total = total
				entry.TotalFromSummary = true
				batch.Stats.SummaryTotals++
			}
		}
	}
	return true
}

func (p *Pipeline) rowName(cols Columns, row []spreadsheet.Cell) string {
	first := firstValue(cols, FieldFirstName, row)
	last := firstValue(cols, FieldLastName, row)
	if first != "" && last != "" {
		return collapseSpaces(first + " " + last)
	}
	return collapseSpaces(firstValue(cols, FieldName, row))
}

func (p *Pipeline) validName(name string) bool {
	if name == "" || name == "undefined" {
		return false
	}
	if utf8.RuneCountInString(name) < p.opts.MinNameLength {
		return false
	}
	for _, field := range []Field{FieldName, FieldFirstName, FieldLastName} {
		if p.resolver.IsAlias(field, name) {
			return false
		}
	}
	for _, marker := range p.opts.TotalMarkers {
		if marker != "" && strings.Contains(name, marker) {
			return false
		}
	}
	return true
}

// subjectAndTeacher splits "subject - teacher" headers.
func (p *Pipeline) subjectAndTeacher(header, teacher string) (string, string) {
	if header == "" {
		return p.opts.DefaultSubject, teacher
	}
	if !strings.Contains(header, "-") {
		return header, teacher
	}
	parts := strings.Split(header, "-")
	subject := strings.TrimSpace(parts[0])
	if subject == "" {
		subject = p.opts.DefaultSubject
	}
	if named := strings.TrimSpace(parts[1]); named != "" {
		teacher = named
	}
	return subject, teacher
}

func rowContact(cols Columns, row []spreadsheet.Cell) models.ContactInfo {
	return models.ContactInfo{
		StudentCell:  cleanPhone(firstValue(cols, FieldStudentCell, row)),
		StudentEmail: firstValue(cols, FieldStudentEmail, row),
		HomePhone:    cleanPhone(firstValue(cols, FieldHomePhone, row)),
		MotherName:   firstValue(cols, FieldMotherName, row),
		MotherPhone:  cleanPhone(firstValue(cols, FieldMotherPhone, row)),
		MotherEmail:  firstValue(cols, FieldMotherEmail, row),
		FatherName:   firstValue(cols, FieldFatherName, row),
		FatherPhone:  cleanPhone(firstValue(cols, FieldFatherPhone, row)),
		FatherEmail:  firstValue(cols, FieldFatherEmail, row),
	}
}

// firstValue returns the first non-empty trimmed cell among the columns of field.
func firstValue(cols Columns, field Field, row []spreadsheet.Cell) string {
	for _, idx := range cols.Indexes(field) {
		if idx >= len(row) {
			continue
		}
		if value := strings.TrimSpace(row[idx].String()); value != "" {
			return value
		}
	}
	return ""
}

func cleanPhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func headerTexts(row []spreadsheet.Cell, width int) []string {
	headers := make([]string, width)
	for i := 0; i < width && i < len(row); i++ {
		headers[i] = row[i].String()
	}
	return headers
}

func blankRow(row []spreadsheet.Cell) bool {
	for _, cell := range row {
		if !cell.IsEmpty() {
			return false
		}
	}
	return true
}

// leadingNumber parses the numeric prefix of s: optional sign, digits and an
// optional fraction. Trailing text is ignored.
func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		frac := end + 1
		for frac < len(s) && isDigit(s[frac]) {
			frac++
		}
		if frac > end+1 {
			digits += frac - end - 1
			end = frac
		}
	}
	if digits == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}
