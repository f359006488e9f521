package codec

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sambeau/filtr/pkg/filtr/object"
)

// ReadCSV reads a header line followed by data lines. Each physical line
// is one record, so a stray quote never swallows the lines after it. Blank
// lines and lines whose field count differs from the header are skipped
// with a warning.
func ReadCSV(r io.Reader, opts Options) (*object.Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxCSVLine)

	var columns []string
	var rows []map[string]object.Object
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			opts.logger().Warn("skipping line: blank", slog.Int("line", lineNo))
			continue
		}
		record := splitCSVLine(line)

		if columns == nil {
			columns = make([]string, len(record))
			for i, h := range record {
				columns[i] = strings.TrimSpace(h)
			}
			continue
		}
		if len(record) != len(columns) {
			opts.logger().Warn("skipping line: field count mismatch",
				slog.Int("line", lineNo),
				slog.Int("fields", len(record)),
				slog.Int("want", len(columns)))
			continue
		}
		row := make(map[string]object.Object, len(columns))
		for i, c := range columns {
			row[c] = InferValue(record[i], opts.InferDates)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if columns == nil {
		return nil, errors.New("empty file")
	}

	t, err := newTable(columns, rows)
	if err != nil {
		return nil, fmt.Errorf("bad header: %w", err)
	}
	return t, nil
}

const maxCSVLine = 16 << 20

// splitCSVLine splits one line on commas outside quoted fields. A field
// that opens with a quote runs to its closing quote, with "" standing for
// a literal quote; an unclosed quote ends at the end of the line. Quotes
// inside unquoted fields are kept as written.
func splitCSVLine(line string) []string {
	var fields []string
	var field strings.Builder
	atStart, quoted := true, false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quoted && c == '"' && i+1 < len(line) && line[i+1] == '"':
			field.WriteByte('"')
			i++
		case quoted && c == '"':
			quoted = false
		case quoted:
			field.WriteByte(c)
		case c == ',':
			fields = append(fields, field.String())
			field.Reset()
			atStart = true
			continue
		case c == '"' && atStart:
			quoted = true
		default:
			field.WriteByte(c)
		}
		atStart = false
	}
	return append(fields, field.String())
}

// WriteCSV writes the header and one line per row. Null cells are empty.
func WriteCSV(w io.Writer, t *object.Table, _ Options) error {
	writer := csv.NewWriter(w)
	columns := t.Columns()
	if err := writer.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for i := 0; i < t.Len(); i++ {
		for j, c := range columns {
			record[j] = cellText(t.Cell(i, c))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func cellText(v object.Object) string {
	if v.Type() == object.NULL_OBJ {
		return ""
	}
	return v.Inspect()
}
