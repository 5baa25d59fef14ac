package dataset

// Dataset is an ordered table of string-valued rows positioned against a
// header. The header defines column order for every row; rows shorter than
// the header are padded with empty values on access.
type Dataset struct {
	Header []string
	Rows   [][]string
}

// New creates an empty dataset with the given header.
func New(header []string) *Dataset {
	return &Dataset{
		Header: append([]string(nil), header...),
	}
}

// Append adds a row, padding or truncating it to the header width.
func (d *Dataset) Append(row []string) {
	fitted := make([]string, len(d.Header))
	copy(fitted, row)
	d.Rows = append(d.Rows, fitted)
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// ColumnIndex returns the position of a column in the header, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, col := range d.Header {
		if col == name {
			return i
		}
	}
	return -1
}

// Value returns the value of a row at the given column index, or empty
// string when the row is shorter than the header.
func (d *Dataset) Value(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// Clone returns a deep copy. The input is never shared with the result.
func (d *Dataset) Clone() *Dataset {
	out := New(d.Header)
	out.Rows = make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// UnionHeader builds the merged header: every column of master in its
// original order, followed by columns that exist only in fresh, in their
// fresh order. Columns are never dropped.
func UnionHeader(master, fresh []string) []string {
	union := append([]string(nil), master...)
	seen := make(map[string]bool, len(master))
	for _, col := range master {
		seen[col] = true
	}
	for _, col := range fresh {
		if !seen[col] {
			union = append(union, col)
			seen[col] = true
		}
	}
	return union
}

// Reindex returns a new dataset whose rows are repositioned against the
// given header. Values are mapped by column name; columns absent from the
// source become empty. The receiver is not modified.
func (d *Dataset) Reindex(header []string) *Dataset {
	mapping := make([]int, len(header))
	for i, col := range header {
		mapping[i] = d.ColumnIndex(col)
	}

	out := New(header)
	out.Rows = make([][]string, len(d.Rows))
	for r, row := range d.Rows {
		fitted := make([]string, len(header))
		for i, src := range mapping {
			if src >= 0 && src < len(row) {
				fitted[i] = row[src]
			}
		}
		out.Rows[r] = fitted
	}
	return out
}
