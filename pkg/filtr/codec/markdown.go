package codec

import (
	"errors"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sambeau/filtr/pkg/filtr/object"
)

var errNoMarkdownTable = errors.New("no table found")

// ReadMarkdown reads the first GFM pipe table in a Markdown document. The
// header row names the columns and cells are inferred like CSV fields.
func ReadMarkdown(r io.Reader, opts Options) (*object.Table, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(source))

	var table *extast.Table
	gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if t, ok := n.(*extast.Table); ok && entering {
			table = t
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	if table == nil {
		return nil, errNoMarkdownTable
	}

	var columns []string
	var rows []map[string]object.Object
	for section := table.FirstChild(); section != nil; section = section.NextSibling() {
		switch section.(type) {
		case *extast.TableHeader:
			for cell := section.FirstChild(); cell != nil; cell = cell.NextSibling() {
				columns = append(columns, strings.TrimSpace(cellSource(cell, source)))
			}
		case *extast.TableRow:
			row := make(map[string]object.Object, len(columns))
			i := 0
			for cell := section.FirstChild(); cell != nil && i < len(columns); cell = cell.NextSibling() {
				row[columns[i]] = InferValue(cellSource(cell, source), opts.InferDates)
				i++
			}
			for ; i < len(columns); i++ {
				row[columns[i]] = object.NULL
			}
			rows = append(rows, row)
		}
	}
	return newTable(columns, rows)
}

// cellSource returns the plain text of a table cell.
func cellSource(node gmast.Node, source []byte) string {
	var buf strings.Builder
	var walk func(gmast.Node)
	walk = func(n gmast.Node) {
		switch n := n.(type) {
		case *gmast.Text:
			buf.Write(n.Segment.Value(source))
		case *gmast.String:
			buf.Write(n.Value)
		default:
			for child := n.FirstChild(); child != nil; child = child.NextSibling() {
				walk(child)
			}
		}
	}
	walk(node)
	return buf.String()
}

// WriteMarkdown writes t as a GFM pipe table. Null cells are left empty.
func WriteMarkdown(w io.Writer, t *object.Table, _ Options) error {
	columns := t.Columns()

	var sb strings.Builder
	writeMarkdownRow(&sb, columns)
	sep := make([]string, len(columns))
	for i := range sep {
		sep[i] = "---"
	}
	writeMarkdownRow(&sb, sep)

	values := make([]string, len(columns))
	for i := range t.Len() {
		for j, c := range columns {
			values[j] = cellText(t.Cell(i, c))
		}
		writeMarkdownRow(&sb, values)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func writeMarkdownRow(sb *strings.Builder, values []string) {
	sb.WriteString("|")
	for _, v := range values {
		sb.WriteString(" ")
		sb.WriteString(markdownEscaper.Replace(v))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}
