package tabular

// Table is a parsed file: the trimmed header row and the data rows under it.
// Header is kept even when there are no data rows.
type Table struct {
	Header  []string
	Records []Record
}

// Record is a single data row keyed by header name.
type Record struct {
	// Row is the 1-based position of the data row below the header. Blank rows are
	// not returned but still take up a position.
	Row    int
	Values map[string]string
}

func (r Record) Get(column string) string {
	return r.Values[column]
}

func (r Record) Has(column string) bool {
	_, ok := r.Values[column]
	return ok
}
