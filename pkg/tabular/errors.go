package tabular

import (
	"errors"
	"fmt"
)

// ErrFormat is matched by every error Parse returns.
var ErrFormat = errors.New("tabular: format error")

var (
	ErrEmptyInput    = fmt.Errorf("%w: empty input", ErrFormat)
	ErrMissingHeader = fmt.Errorf("%w: missing header", ErrFormat)
)

type InvalidRowError struct {
	Row     int
	Cells   int
	Columns int
}

func (e *InvalidRowError) Error() string {
	return fmt.Sprintf("row %d: %d cells but header has %d columns", e.Row, e.Cells, e.Columns)
}

func (e *InvalidRowError) Is(target error) bool {
	return target == ErrFormat
}

// MalformedQuoteError reports a quoted field that is never closed.
type MalformedQuoteError struct {
	Line int
}

func (e *MalformedQuoteError) Error() string {
	return fmt.Sprintf("line %d: unterminated quoted field", e.Line)
}

func (e *MalformedQuoteError) Is(target error) bool {
	return target == ErrFormat
}
