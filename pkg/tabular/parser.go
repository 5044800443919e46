package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const utf8BOM = "\ufeff"

// Candidates are tried in this order; on equal column counts the earlier one wins.
var candidateDelimiters = []rune{',', ';', '\t'}

// Parse turns delimiter-separated text into records keyed by the header row.
// A zero delimiter means the delimiter is detected from the header line.
func Parse(content string, delimiter rune) ([]Record, error) {
	t, err := ParseTable(content, delimiter)
	if err != nil {
		return nil, err
	}
	return t.Records, nil
}

// ParseTable is Parse that also returns the header row.
func ParseTable(content string, delimiter rune) (Table, error) {
	content = strings.TrimPrefix(content, utf8BOM)
	if strings.TrimSpace(content) == "" {
		return Table{}, ErrEmptyInput
	}
	if delimiter == 0 {
		d, err := DetectDelimiter(content)
		if err != nil {
			return Table{}, err
		}
		delimiter = d
	}
	if err := checkDelimiter(delimiter); err != nil {
		return Table{}, err
	}

	normalized, err := normalizeLineEndings(content, byte(delimiter))
	if err != nil {
		return Table{}, err
	}

	r := newReader(normalized, delimiter)
	header, err := readHeader(r)
	if err != nil {
		return Table{}, err
	}

	// encoding/csv drops empty lines, so positions come from line numbers:
	// next is the line a record starts on when nothing was skipped.
	lines := newLineCounter(normalized)
	next := lines.after(r.InputOffset())

	t := Table{Header: header}
	row := 0
	for {
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		if start, _ := r.FieldPos(0); start > next {
			row += start - next
		}
		row++
		next = lines.after(r.InputOffset())

		if blankRow(cells) {
			continue
		}
		rec, err := newRecord(header, cells, row)
		if err != nil {
			return Table{}, err
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func newRecord(header, cells []string, row int) (Record, error) {
	if len(cells) > len(header) {
		return Record{}, &InvalidRowError{Row: row, Cells: len(cells), Columns: len(header)}
	}
	values := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(cells) {
			values[name] = cells[i]
		} else {
			values[name] = ""
		}
	}
	return Record{Row: row, Values: values}, nil
}

// lineCounter maps byte offsets of s to 1-based line numbers, scanning forward only.
type lineCounter struct {
	s      string
	offset int
	line   int
}

func newLineCounter(s string) *lineCounter {
	return &lineCounter{s: s, line: 1}
}

// after returns the line that starts at offset, which must not decrease between calls.
func (c *lineCounter) after(offset int64) int {
	end := int(offset)
	if end > len(c.s) {
		end = len(c.s)
	}
	if end > c.offset {
		c.line += strings.Count(c.s[c.offset:end], "\n")
		c.offset = end
	}
	return c.line
}

func ParseReader(src io.Reader, delimiter rune) ([]Record, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return Parse(string(b), delimiter)
}

// DetectDelimiter picks the candidate that splits the header line into the most columns.
func DetectDelimiter(content string) (rune, error) {
	content = strings.TrimPrefix(content, utf8BOM)
	line := firstLine(content)
	if strings.TrimSpace(line) == "" {
		return 0, ErrEmptyInput
	}
	best, bestCount := candidateDelimiters[0], -1
	for _, d := range candidateDelimiters {
		n := countUnquoted(line, byte(d))
		if n > bestCount {
			best, bestCount = d, n
		}
	}
	return best, nil
}

// ValidateHeaders reports whether every required column is present in the header row.
func ValidateHeaders(content string, required []string) bool {
	content = strings.TrimPrefix(content, utf8BOM)
	d, err := DetectDelimiter(content)
	if err != nil {
		return false
	}
	normalized, err := normalizeLineEndings(content, byte(d))
	if err != nil {
		return false
	}
	header, err := readHeader(newReader(normalized, d))
	if err != nil {
		return false
	}
	return MissingColumns(header, required) == nil
}

// MissingColumns returns the required columns absent from header, in the order given.
func MissingColumns(header []string, required []string) []string {
	set := make(map[string]struct{}, len(header))
	for _, h := range header {
		set[h] = struct{}{}
	}
	var missing []string
	for _, req := range required {
		if _, ok := set[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}

func newReader(content string, delimiter rune) *csv.Reader {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = false
	r.ReuseRecord = false
	return r
}

func readHeader(r *csv.Reader) ([]string, error) {
	h, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingHeader
		}
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	blank := true
	for i := range h {
		h[i] = strings.TrimSpace(h[i])
		if !utf8.ValidString(h[i]) {
			return nil, fmt.Errorf("%w: invalid header encoding", ErrFormat)
		}
		if h[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil, ErrMissingHeader
	}
	return h, nil
}

func checkDelimiter(d rune) error {
	if d >= utf8.RuneSelf || d == '"' || d == '\r' || d == '\n' {
		return fmt.Errorf("%w: unsupported delimiter %q", ErrFormat, d)
	}
	return nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// normalizeLineEndings rewrites bare CR terminators outside quoted fields to LF
// and rejects quoted fields that are never closed. Quote handling mirrors
// encoding/csv with LazyQuotes: a quote only opens a field at its start, and a
// quote inside a quoted field closes it only before a delimiter or line end.
func normalizeLineEndings(s string, delim byte) (string, error) {
	var b strings.Builder
	b.Grow(len(s))

	line := 1
	quoteLine := 0
	inQuotes := false
	fieldStart := true

	for i := 0; i < len(s); i++ {
		c := s[i]
		atEnd := i+1 == len(s)
		var next byte
		if !atEnd {
			next = s[i+1]
		}

		if inQuotes {
			switch {
			case c == '"' && next == '"':
				b.WriteString(`""`)
				i++
				continue
			case c == '"' && (atEnd || next == delim || next == '\n' || next == '\r'):
				inQuotes = false
			case c == '\n':
				line++
			case c == '\r' && next != '\n':
				line++
			}
			b.WriteByte(c)
			continue
		}

		switch {
		case c == '"' && fieldStart:
			inQuotes = true
			quoteLine = line
			fieldStart = false
			b.WriteByte(c)
		case c == delim:
			fieldStart = true
			b.WriteByte(c)
		case c == '\r':
			if next == '\n' {
				i++
			}
			b.WriteByte('\n')
			line++
			fieldStart = true
		case c == '\n':
			b.WriteByte(c)
			line++
			fieldStart = true
		default:
			fieldStart = false
			b.WriteByte(c)
		}
	}

	if inQuotes {
		return "", &MalformedQuoteError{Line: quoteLine}
	}
	return b.String(), nil
}

// firstLine returns the first non-blank logical line, keeping quoted line breaks.
func firstLine(s string) string {
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case (c == '\n' || c == '\r') && !inQuotes:
			if strings.TrimSpace(s[start:i]) != "" {
				return s[start:i]
			}
			start = i + 1
		}
	}
	return s[start:]
}

func countUnquoted(line string, d byte) int {
	n := 0
	inQuotes := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case d:
			if !inQuotes {
				n++
			}
		}
	}
	return n
}
