package ingest

import (
	"strconv"
	"strings"

	"github.com/nesiel/class-bank/pkg/spreadsheet"
)

// Token is one recognised action occurrence inside a cell.
type Token struct {
	Action string
	Count  float64
	// FromHeader is set when the action was taken from the column header
	// because the cell held a bare number.
	FromHeader bool
}

// Scanner walks free text of the form label-number, label-number, ... and
// yields the pairs whose label resolves to a vocabulary action. It runs in a
// single linear pass and cannot be rewound.
type Scanner struct {
	text  string
	pos   int
	vocab Vocabulary

	headerAction string
	headerCount  float64
	useHeader    bool

	matched bool
	token   Token
	done    bool
}

// NewScanner scans plain text.
func NewScanner(text string, vocab Vocabulary) *Scanner {
	return &Scanner{text: text, vocab: vocab}
}

// NewCellScanner scans a cell. When nothing in the cell text matches and the
// cell is a bare non-zero number, the header is resolved against the
// vocabulary and the number becomes the count.
func NewCellScanner(cell spreadsheet.Cell, header string, vocab Vocabulary) *Scanner {
	s := NewScanner(cell.String(), vocab)
	if cell.Numeric && cell.Number != 0 && finite(cell.Number) {
		if action, ok := vocab.Match(normalizeLabel(header)); ok {
			s.headerAction = action
			s.headerCount = cell.Number
			s.useHeader = true
		}
	}
	return s
}

// Scan advances to the next token. It returns false once the input is exhausted.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	for {
		label, count, ok := s.next()
		if !ok {
			break
		}
		if action, found := s.vocab.Match(label); found {
			s.matched = true
			s.token = Token{Action: action, Count: count}
			return true
		}
	}
	s.done = true
	if !s.matched && s.useHeader {
		s.matched = true
		s.token = Token{Action: s.headerAction, Count: s.headerCount, FromHeader: true}
		return true
	}
	return false
}

// Token returns the most recent token produced by Scan.
func (s *Scanner) Token() Token {
	return s.token
}

// next extracts the following label/number pair. Digits that are not
// preceded by a label are skipped.
func (s *Scanner) next() (string, float64, bool) {
	text := s.text
	for s.pos < len(text) {
		start := s.pos
		for s.pos < len(text) && !isDigit(text[s.pos]) {
			s.pos++
		}
		if s.pos == start {
			for s.pos < len(text) && isDigit(text[s.pos]) {
				s.pos++
			}
			continue
		}
		if s.pos == len(text) {
			return "", 0, false
		}
		label := text[start:s.pos]

		numStart := s.pos
		for s.pos < len(text) && isDigit(text[s.pos]) {
			s.pos++
		}
		if s.pos+1 < len(text) && text[s.pos] == '.' && isDigit(text[s.pos+1]) {
			s.pos++
			for s.pos < len(text) && isDigit(text[s.pos]) {
				s.pos++
			}
		}
		count, err := strconv.ParseFloat(text[numStart:s.pos], 64)
		if err != nil {
			continue
		}
		return normalizeLabel(label), count, true
	}
	return "", 0, false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// normalizeLabel trims trailing separators and collapses whitespace runs.
func normalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	label = strings.TrimRight(label, ":-()")
	return strings.Join(strings.Fields(label), " ")
}

// Tokens drains a scanner.
func Tokens(s *Scanner) []Token {
	var out []Token
	for s.Scan() {
		out = append(out, s.Token())
	}
	return out
}
