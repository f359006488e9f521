package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/sambeau/filtr/pkg/filtr/object"
)

// NullText is how view shows a null cell.
const NullText = "NULL"

// View writes t as a pipe table with a header, a dash separator and one
// line per row. Widths are measured in terminal cells.
func View(w io.Writer, t *object.Table) error {
	if t.Len() == 0 {
		_, err := fmt.Fprintln(w, "No data in dataset.")
		return err
	}

	columns := t.Columns()
	cells := make([][]string, t.Len())
	widths := make([]int, len(columns))
	for j, c := range columns {
		widths[j] = runewidth.StringWidth(c)
	}
	for i := range cells {
		cells[i] = make([]string, len(columns))
		for j, c := range columns {
			text := viewText(t.Cell(i, c))
			cells[i][j] = text
			widths[j] = max(widths[j], runewidth.StringWidth(text))
		}
	}

	var sb strings.Builder
	writeLine(&sb, columns, widths)
	sb.WriteByte('|')
	for _, width := range widths {
		sb.WriteString(strings.Repeat("-", width+2))
		sb.WriteByte('|')
	}
	sb.WriteByte('\n')
	for _, row := range cells {
		writeLine(&sb, row, widths)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeLine(sb *strings.Builder, values []string, widths []int) {
	sb.WriteByte('|')
	for j, v := range values {
		sb.WriteByte(' ')
		sb.WriteString(runewidth.FillRight(v, widths[j]))
		sb.WriteString(" |")
	}
	sb.WriteByte('\n')
}

func viewText(v object.Object) string {
	if v.Type() == object.NULL_OBJ {
		return NullText
	}
	return v.Inspect()
}

// Review writes a summary of t: its size, then for each column the most
// common kind of its non-null values and its null count.
func Review(w io.Writer, alias string, t *object.Table) error {
	var sb strings.Builder
	columns := t.Columns()
	fmt.Fprintf(&sb, "Dataset %s: %d rows, %d columns\n", alias, t.Len(), len(columns))
	for _, c := range columns {
		kind, nulls := summarize(t, c)
		fmt.Fprintf(&sb, "  %s  %s  nulls=%d\n", c, kind, nulls)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// summarize returns the dominant kind of column c and its null count. Ties
// go to the kind seen first; an all-null column is "empty".
func summarize(t *object.Table, c string) (string, int) {
	counts := map[string]int{}
	var order []string
	nulls := 0
	for i := 0; i < t.Len(); i++ {
		v := t.Cell(i, c)
		if v.Type() == object.NULL_OBJ {
			nulls++
			continue
		}
		kind := object.TypeName(v)
		if counts[kind] == 0 {
			order = append(order, kind)
		}
		counts[kind]++
	}
	best := "empty"
	for _, kind := range order {
		if best == "empty" || counts[kind] > counts[best] {
			best = kind
		}
	}
	return best, nulls
}
