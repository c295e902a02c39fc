package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Lllllllleong/noticeflow/internal/notice"
)

// subListDelimiter separates the items of a sub-list column.
const subListDelimiter = ";"

// Row is one raw source row as read from the table.
type Row struct {
	// Number is the 1-based line the row starts on.
	Number int
	Cells  []string
	// Err is set when the reader could not parse the row.
	Err    error
}

// Transformer turns raw rows into notice records for one descriptor. Columns
// are located through index, which maps a column name to its cell position.
type Transformer struct {
	descriptor notice.Descriptor
	index      map[string]int
}

// NewTransformer returns a transformer that reads columns at their canonical
// positions.
func NewTransformer(d notice.Descriptor) *Transformer {
	index := make(map[string]int, d.ColumnCount())
	for i, col := range d.Columns() {
		index[col] = i
	}
	return &Transformer{descriptor: d, index: index}
}

// newHeaderTransformer locates columns by the names in header. Names match
// the column names ignoring case, and spaces or punctuation stand in for
// underscores, so "Property Code" locates PROPERTY_CODE. It returns false when
// header names none of the descriptor's columns.
func newHeaderTransformer(d notice.Descriptor, header []string) (*Transformer, bool) {
	index := make(map[string]int, d.ColumnCount())
	for _, col := range d.Columns() {
		want := headerKey(col)
		for i, name := range header {
			if headerKey(name) == want {
				index[col] = i
				break
			}
		}
	}
	if len(index) == 0 {
		return nil, false
	}
	return &Transformer{descriptor: d, index: index}, true
}

// headerKey lowercases name and folds every run of characters other than
// letters and digits into a single underscore.
func headerKey(name string) string {
	var b strings.Builder
	gap := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if gap && b.Len() > 0 {
				b.WriteByte('_')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}

// missingColumns lists descriptor columns the transformer cannot locate.
func (t *Transformer) missingColumns() []string {
	var missing []string
	for _, col := range t.descriptor.Columns() {
		if _, ok := t.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// Transform converts row into a record holding every descriptor column.
// Cells that are absent read as "". Sub-list columns always become a
// (possibly empty) slice. Any failure, including a panic, is returned as a
// *notice.ParseFailure.
func (t *Transformer) Transform(row Row) (rec notice.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &notice.ParseFailure{Row: row.Number, Message: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()

	if row.Err != nil {
		return nil, &notice.ParseFailure{Row: row.Number, Message: row.Err.Error()}
	}

	rec = make(notice.Record, t.descriptor.ColumnCount())
	for _, col := range t.descriptor.Columns() {
		value := t.cell(row, col)
		if sub, ok := t.descriptor.SubListFor(col); ok {
			rec[col] = splitSubList(value, sub.Kind)
			continue
		}
		rec[col] = value
	}
	return rec, nil
}

func (t *Transformer) cell(row Row, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row.Cells) {
		return ""
	}
	return strings.TrimSpace(row.Cells[i])
}

// splitSubList splits raw on ';', trims each piece and drops empty ones.
func splitSubList(raw string, kind notice.SubListKind) any {
	var pieces []string
	for _, piece := range strings.Split(raw, subListDelimiter) {
		if piece = strings.TrimSpace(piece); piece != "" {
			pieces = append(pieces, piece)
		}
	}

	switch kind {
	case notice.WorkItems:
		items := make([]notice.WorkItem, 0, len(pieces))
		for _, p := range pieces {
			items = append(items, notice.WorkItem{WorkItem: p})
		}
		return items
	default:
		if pieces == nil {
			pieces = []string{}
		}
		return pieces
	}
}
