// Package ui holds the console's presentational primitives: tabular list
// rendering, option filtering for the searchable selects, and status badges.
// No business rules live here.
package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Column defines one table column: a header and a cell renderer over the
// row index.
type Column struct {
	Header string
	Cell   func(row int) string
}

// Table renders rows through column-defined cell renderers, with an
// empty-state message when there is nothing to show.
type Table struct {
	Columns []Column
	Empty   string
}

// Render writes the table. Rows is the record count; cells pull from the
// caller's backing slice by index.
func (t Table) Render(w io.Writer, rows int) error {
	if rows == 0 {
		empty := t.Empty
		if empty == "" {
			empty = "No records."
		}
		_, err := fmt.Fprintln(w, empty)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for row := 0; row < rows; row++ {
		cells := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cells[i] = c.Cell(row)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
