package object

import (
	"fmt"
	"slices"
	"strings"

	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
)

// IDColumn is prepended to every imported dataset and holds the 1-based
// load order of each row.
const IDColumn = "filtrID"

// Table is a dataset: an ordered list of unique column names and an ordered
// list of rows, each mapping every column name to a value.
type Table struct {
	columns []string
	rows    []map[string]Object
}

func (t *Table) Type() ObjectType { return TABLE_OBJ }
func (t *Table) Inspect() string {
	return fmt.Sprintf("Dataset([%s], %d rows)", strings.Join(t.columns, ", "), len(t.rows))
}

// NewTable creates an empty table. Column names must be unique and
// non-empty.
func NewTable(columns []string) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return nil, perrors.New("COL-0003", nil)
		}
		if seen[c] {
			return nil, perrors.New("COL-0002", map[string]any{"Name": c})
		}
		seen[c] = true
	}
	return &Table{columns: slices.Clone(columns)}, nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether name is a column.
func (t *Table) HasColumn(name string) bool { return slices.Contains(t.columns, name) }

// AppendRow adds a row given values in column order. Values are stored as
// given; nil becomes null.
func (t *Table) AppendRow(values []Object) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d values, dataset has %d columns", len(values), len(t.columns))
	}
	row := make(map[string]Object, len(t.columns))
	for i, c := range t.columns {
		v := values[i]
		if v == nil {
			v = NULL
		}
		row[c] = v
	}
	t.rows = append(t.rows, row)
	return nil
}

// Row returns a live reference to row i.
func (t *Table) Row(i int) *Row {
	return &Row{table: t, index: i}
}

// Cell returns the value at row i, column name. Missing cells read as null.
func (t *Table) Cell(i int, name string) Object {
	if v, ok := t.rows[i][name]; ok {
		return v
	}
	return NULL
}

// ColumnValues returns the column vector for name.
func (t *Table) ColumnValues(name string) (*Column, error) {
	if !t.HasColumn(name) {
		return nil, perrors.NewMissingColumn("UNDEF-0002", name, t.columns)
	}
	values := make([]Object, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[name]
	}
	return &Column{Name: name, Values: values}, nil
}

func (t *Table) missing(name string) error {
	return perrors.NewMissingColumn("COL-0001", name, t.columns)
}

func (t *Table) exists(name string) error {
	return perrors.New("COL-0002", map[string]any{"Name": name})
}

// Rename replaces column old with newName in place, keeping its position and
// moving the value in every row.
func (t *Table) Rename(old, newName string) error {
	idx := slices.Index(t.columns, old)
	if idx < 0 {
		return t.missing(old)
	}
	if newName == "" {
		return perrors.New("COL-0003", nil)
	}
	if old == newName {
		return nil
	}
	if t.HasColumn(newName) {
		return t.exists(newName)
	}
	t.columns[idx] = newName
	for _, row := range t.rows {
		row[newName] = row[old]
		delete(row, old)
	}
	return nil
}

// Drop removes the named columns. Nothing changes unless every name exists;
// the error names the first absent column.
func (t *Table) Drop(names []string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return t.missing(n)
		}
	}
	t.columns = slices.DeleteFunc(t.columns, func(c string) bool {
		return slices.Contains(names, c)
	})
	for _, row := range t.rows {
		for _, n := range names {
			delete(row, n)
		}
	}
	return nil
}

func (t *Table) checkNew(name string) error {
	if name == "" {
		return perrors.New("COL-0003", nil)
	}
	if t.HasColumn(name) {
		return t.exists(name)
	}
	return nil
}

// AddColumn appends name and stores v, after numeric cleanup, in every row.
func (t *Table) AddColumn(name string, v Object) error {
	if err := t.checkNew(name); err != nil {
		return err
	}
	v = Cleanup(v)
	t.columns = append(t.columns, name)
	for _, row := range t.rows {
		row[name] = v
	}
	return nil
}

// AddColumnValues appends name with one value per row, each cleaned up.
func (t *Table) AddColumnValues(name string, values []Object) error {
	if err := t.checkNew(name); err != nil {
		return err
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("column has %d values, dataset has %d rows", len(values), len(t.rows))
	}
	t.columns = append(t.columns, name)
	for i, row := range t.rows {
		row[name] = Cleanup(values[i])
	}
	return nil
}

// AddComparison appends name holding, per row, whether base op rhs holds.
// Rows where base is null get null.
func (t *Table) AddComparison(name, base string, op Operator, rhs Object) error {
	if err := t.checkNew(name); err != nil {
		return err
	}
	if !t.HasColumn(base) {
		return t.missing(base)
	}
	t.columns = append(t.columns, name)
	for _, row := range t.rows {
		cell := row[base]
		if cell.Type() == NULL_OBJ {
			row[name] = NULL
			continue
		}
		row[name] = NativeBool(op.Test(cell, rhs))
	}
	return nil
}

// FillMode selects which cells fill treats as missing.
type FillMode int

const (
	FillMissing FillMode = iota // cell is null
	FillBlanks                  // cell is a string that is empty after trimming
)

func (m FillMode) matches(v Object) bool {
	switch m {
	case FillBlanks:
		s, ok := v.(*String)
		return ok && strings.TrimSpace(s.Value) == ""
	default:
		return v.Type() == NULL_OBJ
	}
}

// Condition restricts fill to rows where Column Op Value holds.
type Condition struct {
	Column string
	Op     Operator
	Value  Object
}

// Fill writes v, after numeric cleanup, into every cell of col that the
// mode treats as missing. With a condition, only rows whose condition
// column is non-null and satisfies it are written. It returns the number of
// cells written.
func (t *Table) Fill(col string, mode FillMode, v Object, cond *Condition) (int, error) {
	if !t.HasColumn(col) {
		return 0, t.missing(col)
	}
	if cond != nil && !t.HasColumn(cond.Column) {
		return 0, t.missing(cond.Column)
	}
	v = Cleanup(v)
	n := 0
	for _, row := range t.rows {
		if !mode.matches(row[col]) {
			continue
		}
		if cond != nil {
			c := row[cond.Column]
			if c.Type() == NULL_OBJ || !cond.Op.Test(c, cond.Value) {
				continue
			}
		}
		row[col] = v
		n++
	}
	return n, nil
}

// Filter returns a new table with the same columns and copies of the rows
// where col op v holds. Rows whose col is null are excluded.
func (t *Table) Filter(col string, op Operator, v Object) (*Table, error) {
	if !t.HasColumn(col) {
		return nil, t.missing(col)
	}
	out := &Table{columns: slices.Clone(t.columns)}
	for _, row := range t.rows {
		cell := row[col]
		if cell.Type() == NULL_OBJ || !op.Test(cell, v) {
			continue
		}
		out.rows = append(out.rows, cloneRow(row))
	}
	return out, nil
}

func cloneRow(row map[string]Object) map[string]Object {
	c := make(map[string]Object, len(row))
	for k, v := range row {
		c[k] = v
	}
	return c
}

// Row is a live reference to one row of a table. Writes through it change
// the table.
type Row struct {
	table *Table
	index int
}

func (r *Row) Type() ObjectType { return ROW_OBJ }
func (r *Row) Inspect() string {
	parts := make([]string, len(r.table.columns))
	for i, c := range r.table.columns {
		parts[i] = c + ": " + r.table.rows[r.index][c].Inspect()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Get returns the cell for name.
func (r *Row) Get(name string) (Object, error) {
	v, ok := r.table.rows[r.index][name]
	if !ok {
		return nil, perrors.NewMissingColumn("UNDEF-0003", name, r.table.columns)
	}
	return v, nil
}

// Set writes v, after numeric cleanup, into the cell for name. The column
// must already exist.
func (r *Row) Set(name string, v Object) (Object, error) {
	row := r.table.rows[r.index]
	if _, ok := row[name]; !ok {
		return nil, perrors.NewMissingColumn("UNDEF-0003", name, r.table.columns)
	}
	v = Cleanup(v)
	row[name] = v
	return v, nil
}
