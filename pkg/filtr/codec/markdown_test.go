package codec

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sambeau/filtr/pkg/filtr/object"
)

const inventoryMD = `# Inventory

Counted on Monday.

| item  | qty | price | checked    |
|:------|----:|-------|------------|
| tea   | 2   | 3.5   | 2024-01-15 |
| *cake* |    | 4     | NULL       |

| ignored |
|---------|
| 1       |
`

func TestReadMarkdown(t *testing.T) {
	tbl, err := ReadMarkdown(strings.NewReader(inventoryMD), quiet())
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(tbl.Columns(), ","); got != "filtrID,item,qty,price,checked" {
		t.Fatalf("columns = %s", got)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d", tbl.Len())
	}

	tests := []struct {
		row  int
		col  string
		kind object.ObjectType
		text string
	}{
		{0, "item", object.STRING_OBJ, "tea"},
		{0, "qty", object.INTEGER_OBJ, "2"},
		{0, "price", object.NUMBER_OBJ, "3.5"},
		{0, "checked", object.DATE_OBJ, "2024-01-15"},
		{1, "item", object.STRING_OBJ, "cake"},
		{1, "qty", object.NULL_OBJ, "nil"},
		{1, "checked", object.NULL_OBJ, "nil"},
	}
	for _, tt := range tests {
		v := tbl.Cell(tt.row, tt.col)
		if v.Type() != tt.kind || v.Inspect() != tt.text {
			t.Errorf("%s[%d] = %s %q, want %s %q", tt.col, tt.row, v.Type(), v.Inspect(), tt.kind, tt.text)
		}
	}
}

func TestReadMarkdown_NoTable(t *testing.T) {
	_, err := ReadMarkdown(strings.NewReader("# Just prose\n"), quiet())
	if !errors.Is(err, errNoMarkdownTable) {
		t.Errorf("err = %v", err)
	}
}

func TestExportMarkdown(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("name,note\nAda,a|b\nBob,\n"), quiet())
	if err != nil {
		t.Fatal(err)
	}
	path, err := Export(tbl, t.TempDir(), "notes", "md", quiet())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".md" {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	want := "| filtrID | name | note |\n" +
		"| --- | --- | --- |\n" +
		"| 1 | Ada | a\\|b |\n" +
		"| 2 | Bob |  |\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}
