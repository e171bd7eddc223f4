package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/nesiel/class-bank/pkg/spreadsheet"
)

// Field is a canonical column meaning.
type Field string

const (
	FieldName         Field = "name"
	FieldFirstName    Field = "firstName"
	FieldLastName     Field = "lastName"
	FieldStudentCell  Field = "studentCell"
	FieldStudentEmail Field = "studentEmail"
	FieldHomePhone    Field = "homePhone"
	FieldMotherName   Field = "motherName"
	FieldMotherPhone  Field = "motherPhone"
	FieldMotherEmail  Field = "motherEmail"
	FieldFatherName   Field = "fatherName"
	FieldFatherPhone  Field = "fatherPhone"
	FieldFatherEmail  Field = "fatherEmail"
	FieldTeacher      Field = "teacher"
	FieldTotal        Field = "totalScore"
	FieldClass        Field = "class"
	FieldMetadata     Field = "metadata"
)

// AliasSet lists the header spellings that identify a field, most canonical first.
type AliasSet struct {
	Field   Field
	Aliases []string
	// Exact restricts matching to the whole trimmed header.
	Exact bool
}

// DefaultAliases is the built-in header vocabulary for Hebrew class rosters.
var DefaultAliases = []AliasSet{
	{Field: FieldName, Aliases: []string{"שם התלמיד", "שם פרטי", "שם משפחה", "שם מלא", "תלמיד", "שם", "Name", "Student Name", "First Name", "Last Name"}},
	{Field: FieldLastName, Aliases: []string{"שם משפחה", "משפחה", "Last Name"}},
	{Field: FieldFirstName, Aliases: []string{"שם פרטי", "פרטי", "First Name"}},
	{Field: FieldStudentCell, Aliases: []string{"סלולרי של התלמיד", "נייד תלמיד", "טלפון תלמיד", "פלאפון תלמיד", "נייד של התלמיד", "Student Phone"}},
	{Field: FieldStudentEmail, Aliases: []string{"מייל תלמיד", `דוא"ל תלמיד`, "אימייל תלמיד", "Student Email"}},
	{Field: FieldHomePhone, Aliases: []string{"טלפון בבית", "טלפון בית", "בבית", "Home Phone", "טלפון נייח"}},
	{Field: FieldMotherName, Aliases: []string{"שם האמא", "שם האם", "אמא", "שם הורה 1", "הורה 1", "Mother Name", "שם אם"}},
	{Field: FieldMotherPhone, Aliases: []string{"טלפון נייד של אמא", "נייד של אמא", "טלפון אמא", "נייד אמא", "נייד הורה 1", "טלפון הורה 1", "נייד 1", "Mother Phone", "סלולרי אם"}},
	{Field: FieldMotherEmail, Aliases: []string{`דוא"ל של אמא`, `דוא"ל אמא`, "מייל אמא", "אימייל אמא", "Email Mother"}},
	{Field: FieldFatherName, Aliases: []string{"שם האבא", "שם האב", "אבא", "שם הורה 2", "הורה 2", "Father Name", "שם אב"}},
	{Field: FieldFatherPhone, Aliases: []string{"טלפון נייד של אבא", "נייד של אבא", "טלפון אבא", "נייד אבא", "נייד הורה 2", "טלפון הורה 2", "נייד 2", "Father Phone", "סלולרי אב"}},
	{Field: FieldFatherEmail, Aliases: []string{`דוא"ל של אבא`, `דוא"ל אבא`, "מייל אבא", "אימייל אבא", "Email Father"}},
	{Field: FieldTeacher, Aliases: []string{"מורה", "שם המורה", `דווח ע"י`, "מדווח", "Teacher"}, Exact: true},
	{Field: FieldTotal, Aliases: []string{`סה"כ`, "סה״כ", "ניקוד סופי", "ציון כולל", `סה"כ נקודות`, "Total Score", "Total", "סיכום", "מאזן", "ניקוד", "ציון", "ממוצע", "לתעודה", "מחצית", "מצטיין"}},
	{Field: FieldClass, Aliases: []string{"כיתה"}, Exact: true},
	{Field: FieldMetadata, Aliases: []string{"מס", "מס'", "שכבה", "ת.ז", "ת.ז."}, Exact: true},
}

var contactFields = []Field{
	FieldStudentCell, FieldStudentEmail, FieldHomePhone,
	FieldMotherName, FieldMotherPhone, FieldMotherEmail,
	FieldFatherName, FieldFatherPhone, FieldFatherEmail,
}

var reservedFields = map[Field]bool{
	FieldName: true, FieldFirstName: true, FieldLastName: true,
	FieldStudentCell: true, FieldStudentEmail: true, FieldHomePhone: true,
	FieldMotherName: true, FieldMotherPhone: true, FieldMotherEmail: true,
	FieldFatherName: true, FieldFatherPhone: true, FieldFatherEmail: true,
	FieldTeacher: true, FieldClass: true, FieldMetadata: true,
}

// Resolver locates the header row of a roster and maps header text to fields.
type Resolver struct {
	aliases  []AliasSet
	scanRows int
}

// NewResolver builds a resolver. A nil alias list selects DefaultAliases and a
// non-positive scanRows scans the whole sheet for the header row.
func NewResolver(aliases []AliasSet, scanRows int) *Resolver {
	if aliases == nil {
		aliases = DefaultAliases
	}
	return &Resolver{aliases: aliases, scanRows: scanRows}
}

// DetectHeaderRow picks the header row among the rows whose joined text
// carries roster header markers. The row with the most cells naming a known
// field wins, then the row with the most filled cells, so a one-cell report
// title above the table loses to the table's own header. Remaining ties keep
// the earlier row. The second result is false when no row qualified and row 0
// is assumed.
func (r *Resolver) DetectHeaderRow(rows [][]spreadsheet.Cell) (int, bool) {
	limit := len(rows)
	if r.scanRows > 0 && r.scanRows < limit {
		limit = r.scanRows
	}
	best, bestResolved, bestFilled := -1, 0, 0
	for i := 0; i < limit; i++ {
		if !isHeaderText(joinRow(rows[i])) {
			continue
		}
		resolved, filled := r.headerScore(rows[i])
		if best < 0 || resolved > bestResolved || (resolved == bestResolved && filled > bestFilled) {
			best, bestResolved, bestFilled = i, resolved, filled
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func (r *Resolver) headerScore(row []spreadsheet.Cell) (resolved, filled int) {
	for _, cell := range row {
		header := strings.TrimSpace(cell.String())
		if header == "" {
			continue
		}
		filled++
		if len(r.resolveHeader(header)) > 0 {
			resolved++
		}
	}
	return resolved, filled
}

// IsAlias reports whether text is, once trimmed, one of the spellings of field.
func (r *Resolver) IsAlias(field Field, text string) bool {
	text = strings.TrimSpace(text)
	for _, set := range r.aliases {
		if set.Field != field {
			continue
		}
		for _, alias := range set.Aliases {
			if strings.EqualFold(alias, text) {
				return true
			}
		}
	}
	return false
}

func isHeaderText(text string) bool {
	if strings.Contains(text, "שם התלמיד") {
		return true
	}
	if !strings.Contains(text, "שם") {
		return false
	}
	return strings.Contains(text, "משפחה") || strings.Contains(text, "כיתה")
}

func joinRow(row []spreadsheet.Cell) string {
	parts := make([]string, len(row))
	for i, cell := range row {
		parts[i] = cell.String()
	}
	return strings.Join(parts, " ")
}

// Columns is the resolved layout of a table.
type Columns struct {
	Headers []string
	fields  map[Field][]int
	byIndex [][]Field
}

// Indexes lists the columns resolved to field, in sheet order.
func (c Columns) Indexes(field Field) []int {
	return c.fields[field]
}

// Has reports whether any column resolved to field.
func (c Columns) Has(field Field) bool {
	return len(c.fields[field]) > 0
}

// FieldsOf returns the fields a column resolved to.
func (c Columns) FieldsOf(index int) []Field {
	if index < 0 || index >= len(c.byIndex) {
		return nil
	}
	return c.byIndex[index]
}

// Reserved reports whether a column carries identity, contact, teacher or
// metadata data and must not be scanned for actions.
func (c Columns) Reserved(index int) bool {
	for _, field := range c.FieldsOf(index) {
		if reservedFields[field] {
			return true
		}
	}
	return false
}

// Resolve maps every header to the field(s) it names.
//
// A header matches an alias when it contains it. When a header matches
// several fields it stays with the field(s) whose matching alias is longest,
// so "שם האמא" is a mother's name and not the student name. If no alias is
// contained in the header, an alias that contains the header is accepted only
// when it points at a single field.
func (r *Resolver) Resolve(headers []string) Columns {
	cols := Columns{
		Headers: make([]string, len(headers)),
		fields:  make(map[Field][]int),
		byIndex: make([][]Field, len(headers)),
	}
	for i, raw := range headers {
		header := strings.TrimSpace(raw)
		cols.Headers[i] = header
		if header == "" {
			continue
		}
		matched := r.resolveHeader(header)
		cols.byIndex[i] = matched
		for _, field := range matched {
			cols.fields[field] = append(cols.fields[field], i)
		}
	}
	return cols
}

func (r *Resolver) resolveHeader(header string) []Field {
	for _, set := range r.aliases {
		if !set.Exact {
			continue
		}
		for _, alias := range set.Aliases {
			if header == alias {
				return []Field{set.Field}
			}
		}
	}

	best := 0
	var fields []Field
	for _, set := range r.aliases {
		if set.Exact {
			continue
		}
		length := longestContained(header, set.Aliases)
		switch {
		case length == 0 || length < best:
		case length > best:
			best = length
			fields = []Field{set.Field}
		default:
			fields = append(fields, set.Field)
		}
	}
	if len(fields) > 0 {
		return fields
	}

	if utf8.RuneCountInString(header) < 2 {
		return nil
	}
	var reverse []Field
	for _, set := range r.aliases {
		if set.Exact {
			continue
		}
		for _, alias := range set.Aliases {
			if strings.Contains(alias, header) {
				reverse = append(reverse, set.Field)
				break
			}
		}
	}
	if len(reverse) == 1 {
		return reverse
	}
	return nil
}

func longestContained(header string, aliases []string) int {
	best := 0
	for _, alias := range aliases {
		if alias == "" || !strings.Contains(header, alias) {
			continue
		}
		if n := utf8.RuneCountInString(alias); n > best {
			best = n
		}
	}
	return best
}
