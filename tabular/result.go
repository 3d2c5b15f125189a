// Package tabular holds the intermediate representation passed between the
// parse, transform and serialize steps of a stage, and returned by
// provenance queries: an ordered list of field names plus ordered rows.
//
// The container enforces nothing beyond order. Rows shorter or longer than
// the field list are kept as given; Row projects only the aligned prefix.
package tabular

import (
	"fmt"
	"strings"
)

const divider = "============================================"

// Result is an ordered-field, ordered-row table.
type Result struct {
	fields []string
	rows   [][]any
}

// New returns a Result with the given fields and rows. The slices are
// retained, not copied.
func New(fields []string, rows [][]any) *Result {
	if rows == nil {
		rows = [][]any{}
	}
	return &Result{fields: fields, rows: rows}
}

// Fields returns the field names in order.
func (r *Result) Fields() []string {
	return r.fields
}

// Rows returns the raw rows in order.
func (r *Result) Rows() [][]any {
	return r.rows
}

// Len returns the number of rows. A nil Result has zero rows.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rows)
}

// Append adds one row of values (no field names).
func (r *Result) Append(row []any) {
	r.rows = append(r.rows, row)
}

// Row projects row i as a field name to value mapping. It panics if i is
// out of range, like slice indexing.
func (r *Result) Row(i int) map[string]any {
	row := r.rows[i]
	m := make(map[string]any, len(r.fields))
	for j, f := range r.fields {
		if j >= len(row) {
			break
		}
		m[f] = row[j]
	}
	return m
}

// String renders a human-readable dump, one block per row, fields in order.
func (r *Result) String() string {
	var b strings.Builder
	b.WriteString(divider)
	b.WriteByte('\n')
	for _, row := range r.rows {
		for j, f := range r.fields {
			if j >= len(row) {
				break
			}
			fmt.Fprintf(&b, "%s: %v\n", f, row[j])
		}
		b.WriteString(divider)
		b.WriteByte('\n')
	}
	return b.String()
}
