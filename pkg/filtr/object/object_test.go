package object

import (
	"math"
	"slices"
	"testing"
	"time"
)

func str(s string) *String   { return &String{Value: s} }
func num(f float64) *Number  { return &Number{Value: f} }
func integer(i int64) Object { return &Integer{Value: i} }

// people builds the dataset used throughout: filtrID, name, age.
func people(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable([]string{IDColumn, "name", "age"})
	if err != nil {
		t.Fatal(err)
	}
	rows := [][]Object{
		{integer(1), str("Ada"), integer(36)},
		{integer(2), str("Linus"), integer(54)},
		{integer(3), str("Grace"), NULL},
	}
	for _, r := range rows {
		if err := tbl.AppendRow(r); err != nil {
			t.Fatal(err)
		}
	}
	return tbl
}

// checkInvariants asserts unique columns and that every row has exactly
// the column set.
func checkInvariants(t *testing.T, tbl *Table) {
	t.Helper()
	cols := tbl.Columns()
	seen := map[string]bool{}
	for _, c := range cols {
		if c == "" || seen[c] {
			t.Fatalf("bad column list %v", cols)
		}
		seen[c] = true
	}
	for i, row := range tbl.rows {
		if len(row) != len(cols) {
			t.Fatalf("row %d has %d keys, want %d", i, len(row), len(cols))
		}
		for _, c := range cols {
			if _, ok := row[c]; !ok {
				t.Fatalf("row %d missing %q", i, c)
			}
		}
	}
}

func TestNewTable_Validation(t *testing.T) {
	if _, err := NewTable([]string{"a", "a"}); err == nil || err.Error() != "Column a already exists." {
		t.Errorf("duplicate: err = %v", err)
	}
	if _, err := NewTable([]string{"a", ""}); err == nil {
		t.Errorf("empty name accepted")
	}
}

func TestInspect(t *testing.T) {
	tbl := people(t)
	if got, want := tbl.Inspect(), "Dataset([filtrID, name, age], 3 rows)"; got != want {
		t.Errorf("Table.Inspect() = %q, want %q", got, want)
	}
	if got, want := tbl.Row(0).Inspect(), "{filtrID: 1, name: Ada, age: 36}"; got != want {
		t.Errorf("Row.Inspect() = %q, want %q", got, want)
	}
	col, _ := tbl.ColumnValues("age")
	if got, want := col.Inspect(), "[36, 54, nil]"; got != want {
		t.Errorf("Column.Inspect() = %q, want %q", got, want)
	}

	tests := []struct {
		obj  Object
		want string
	}{
		{NULL, "nil"},
		{TRUE, "true"},
		{num(9), "9"},
		{num(2.5), "2.5"},
		{num(math.Inf(1)), "Infinity"},
		{num(math.Inf(-1)), "-Infinity"},
		{num(math.NaN()), "NaN"},
		{integer(-4), "-4"},
		{str("hi"), "hi"},
	}
	for _, tt := range tests {
		if got := tt.obj.Inspect(); got != tt.want {
			t.Errorf("Inspect() = %q, want %q", got, tt.want)
		}
	}
}

func TestRename(t *testing.T) {
	tbl := people(t)
	before, _ := tbl.ColumnValues("age")

	if err := tbl.Rename("age", "years"); err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, tbl)
	if got := tbl.Columns(); !slices.Equal(got, []string{IDColumn, "name", "years"}) {
		t.Errorf("columns = %v", got)
	}
	after, _ := tbl.ColumnValues("years")
	if !Equal(before, after) {
		t.Errorf("values moved incorrectly: %s vs %s", before.Inspect(), after.Inspect())
	}

	if err := tbl.Rename("age", "x"); err == nil || err.Error() != "Column age does not exist." {
		t.Errorf("missing column: err = %v", err)
	}
	if err := tbl.Rename("years", "name"); err == nil || err.Error() != "Column name already exists." {
		t.Errorf("existing column: err = %v", err)
	}
}

func TestDrop(t *testing.T) {
	tbl := people(t)
	if err := tbl.Drop([]string{"name", "bogus"}); err == nil {
		t.Fatal("expected error")
	} else if got := err.Error(); got != "Column bogus does not exist." {
		t.Errorf("err = %q", got)
	}
	// failed drop leaves the table untouched
	if len(tbl.Columns()) != 3 {
		t.Errorf("columns changed on failure: %v", tbl.Columns())
	}

	if err := tbl.Drop([]string{"name"}); err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, tbl)
	if got := tbl.Columns(); !slices.Equal(got, []string{IDColumn, "age"}) {
		t.Errorf("columns = %v", got)
	}
	if tbl.Len() != 3 || !Equal(tbl.Cell(1, "age"), integer(54)) {
		t.Errorf("rows changed")
	}
}

func TestAddColumn(t *testing.T) {
	tbl := people(t)
	if err := tbl.AddColumn("score", num(3)); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddColumn("ratio", num(0.5)); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddColumn("gone", str("NULL")); err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, tbl)

	cols := tbl.Columns()
	if cols[len(cols)-1] != "gone" {
		t.Errorf("new column is not last: %v", cols)
	}
	for i := range tbl.Len() {
		if tbl.Cell(i, "score").Type() != INTEGER_OBJ {
			t.Errorf("whole number not cleaned up: %T", tbl.Cell(i, "score"))
		}
		if tbl.Cell(i, "ratio").Type() != NUMBER_OBJ {
			t.Errorf("fraction cleaned up: %T", tbl.Cell(i, "ratio"))
		}
		if tbl.Cell(i, "gone") != NULL {
			t.Errorf("NULL string not stored as null")
		}
	}

	if err := tbl.AddColumn("age", num(1)); err == nil {
		t.Errorf("duplicate column accepted")
	}
}

func TestAddColumnValues(t *testing.T) {
	tbl := people(t)
	if err := tbl.AddColumnValues("n", []Object{num(1), num(2.5), str("x")}); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Cell(0, "n"); got.Type() != INTEGER_OBJ {
		t.Errorf("cell 0 = %T", got)
	}
	if err := tbl.AddColumnValues("m", []Object{num(1)}); err == nil {
		t.Errorf("length mismatch accepted")
	}
	checkInvariants(t, tbl)
}

func TestAddComparison(t *testing.T) {
	tbl := people(t)
	if err := tbl.AddComparison("adult", "age", OpGreater, num(40)); err != nil {
		t.Fatal(err)
	}
	want := []Object{FALSE, TRUE, NULL}
	for i, w := range want {
		if got := tbl.Cell(i, "adult"); got != w {
			t.Errorf("row %d adult = %s, want %s", i, got.Inspect(), w.Inspect())
		}
	}
	if err := tbl.AddComparison("x", "nope", OpLess, num(1)); err == nil {
		t.Errorf("missing base accepted")
	}
	checkInvariants(t, tbl)
}

func TestFill(t *testing.T) {
	tbl := people(t)
	n, err := tbl.Fill("age", FillMissing, num(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("filled %d cells, want 1", n)
	}
	if got := tbl.Cell(2, "age"); got.Type() != INTEGER_OBJ || got.Inspect() != "0" {
		t.Errorf("filled cell = %T %s", got, got.Inspect())
	}
	if got := tbl.Cell(0, "age"); !Equal(got, integer(36)) {
		t.Errorf("present cell overwritten: %s", got.Inspect())
	}
}

func TestFill_BlanksAndCondition(t *testing.T) {
	tbl, _ := NewTable([]string{"name", "city"})
	_ = tbl.AppendRow([]Object{str("  "), str("Paris")})
	_ = tbl.AppendRow([]Object{str(""), str("Rome")})
	_ = tbl.AppendRow([]Object{NULL, str("Paris")})
	_ = tbl.AppendRow([]Object{str("Bo"), str("Paris")})

	cond := &Condition{Column: "city", Op: OpEqual, Value: str("Paris")}
	n, err := tbl.Fill("name", FillBlanks, str("n/a"), cond)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("filled %d, want 1", n)
	}
	got := []string{tbl.Cell(0, "name").Inspect(), tbl.Cell(1, "name").Inspect(), tbl.Cell(2, "name").Inspect(), tbl.Cell(3, "name").Inspect()}
	want := []string{"n/a", "", "nil", "Bo"}
	if !slices.Equal(got, want) {
		t.Errorf("cells = %q, want %q", got, want)
	}

	if _, err := tbl.Fill("name", FillBlanks, str("x"), &Condition{Column: "zip", Op: OpEqual, Value: NULL}); err == nil {
		t.Errorf("missing condition column accepted")
	}
}

func TestFilter(t *testing.T) {
	tbl := people(t)
	old, err := tbl.Filter("age", OpGreater, num(40))
	if err != nil {
		t.Fatal(err)
	}
	if old.Len() != 1 || old.Cell(0, "name").Inspect() != "Linus" || !Equal(old.Cell(0, IDColumn), integer(2)) {
		t.Errorf("filtered = %s", old.Row(0).Inspect())
	}
	if tbl.Len() != 3 {
		t.Errorf("original changed")
	}

	// idempotent on the predicate
	again, _ := old.Filter("age", OpGreater, num(40))
	if again.Len() != old.Len() {
		t.Errorf("filter not idempotent")
	}

	// independent copies
	old.Row(0).Set("name", str("L"))
	if tbl.Cell(1, "name").Inspect() != "Linus" {
		t.Errorf("filtered rows share storage with the original")
	}

	// nulls never match, even with !=
	ne, _ := tbl.Filter("age", OpNotEqual, num(36))
	if ne.Len() != 1 {
		t.Errorf("!= kept %d rows, want 1", ne.Len())
	}

	// numeric strings are coerced
	byText, _ := tbl.Filter("age", OpEqual, str("54"))
	if byText.Len() != 1 {
		t.Errorf("coerced equality kept %d rows", byText.Len())
	}

	if _, err := tbl.Filter("nope", OpEqual, num(1)); err == nil {
		t.Errorf("missing column accepted")
	}
}

func TestRowGetSet(t *testing.T) {
	tbl := people(t)
	row := tbl.Row(1)
	v, err := row.Get("name")
	if err != nil || v.Inspect() != "Linus" {
		t.Errorf("Get = %v, %v", v, err)
	}
	if _, err := row.Set("age", num(55)); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Cell(1, "age"); got.Type() != INTEGER_OBJ || got.Inspect() != "55" {
		t.Errorf("write did not reach table: %s", got.Inspect())
	}
	if _, err := row.Set("zzzz", num(1)); err == nil || err.Error() != "Row does not have column: zzzz" {
		t.Errorf("Set missing column err = %v", err)
	}
	if _, err := row.Get("nmae"); err == nil {
		t.Errorf("Get missing column accepted")
	}
	checkInvariants(t, tbl)
}

func TestColumnValuesMissing(t *testing.T) {
	tbl := people(t)
	_, err := tbl.ColumnValues("agee")
	if err == nil || err.Error() != "Dataset does not have column: agee\n  Did you mean `age`?" {
		t.Errorf("err = %v", err)
	}
}

func TestCleanup(t *testing.T) {
	tests := []struct {
		in       Object
		wantType ObjectType
		want     string
	}{
		{num(3), INTEGER_OBJ, "3"},
		{num(-2), INTEGER_OBJ, "-2"},
		{num(2.5), NUMBER_OBJ, "2.5"},
		{num(math.Inf(1)), NUMBER_OBJ, "Infinity"},
		{str("NULL"), NULL_OBJ, "nil"},
		{str("null"), STRING_OBJ, "null"},
		{TRUE, BOOLEAN_OBJ, "true"},
	}
	for _, tt := range tests {
		got := Cleanup(tt.in)
		if got.Type() != tt.wantType || got.Inspect() != tt.want {
			t.Errorf("Cleanup(%s) = %s %s, want %s %s", tt.in.Inspect(), got.Type(), got.Inspect(), tt.wantType, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	d1 := &Date{Value: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Text: "2024-01-02"}
	d2 := &Date{Value: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Text: "2024-03-01"}
	tests := []struct {
		a, b Object
		want int
	}{
		{integer(2), num(10), -1},
		{str("10"), num(9), 1},   // numeric string coerced
		{str("10"), str("9"), 1}, // both coerced
		{str("apple"), str("banana"), -1},
		{FALSE, TRUE, -1},
		{d1, d2, -1},
		{d2, str("2024-03-01"), 0}, // mixed kinds compare string forms
		{str("abc"), num(1), 1},    // "abc" > "1"
		{NULL, NULL, 0},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a.Inspect(), tt.b.Inspect(), got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b Object
		want bool
	}{
		{NULL, NULL, true},
		{NULL, FALSE, false},
		{integer(3), num(3), true},
		{str("3"), num(3), false},
		{str("a"), str("a"), true},
		{TRUE, TRUE, true},
		{num(math.NaN()), num(math.NaN()), false},
	}
	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%s, %s) = %v, want %v", tt.a.Inspect(), tt.b.Inspect(), got, tt.want)
		}
	}
}

func TestParseOperator(t *testing.T) {
	for _, s := range []string{"==", "=", "!=", "<", "<=", ">", ">="} {
		if _, err := ParseOperator(s); err != nil {
			t.Errorf("ParseOperator(%q): %v", s, err)
		}
	}
	if op, _ := ParseOperator("="); op != OpEqual {
		t.Errorf("= should mean ==")
	}
	if _, err := ParseOperator("~"); err == nil || err.Error() != "Unsupported operator in comparison: ~" {
		t.Errorf("err = %v", err)
	}
}

func TestIsTruthy(t *testing.T) {
	if IsTruthy(NULL) || IsTruthy(FALSE) {
		t.Errorf("null and false must be falsey")
	}
	for _, o := range []Object{TRUE, num(0), str(""), integer(0)} {
		if !IsTruthy(o) {
			t.Errorf("%s should be truthy", o.Inspect())
		}
	}
}

func TestEnvironment(t *testing.T) {
	global := NewEnvironment()
	global.Define("a", num(1))

	block := NewEnclosedEnvironment(global)
	block.Define("b", num(2))

	if v, ok := block.Get("a"); !ok || v.Inspect() != "1" {
		t.Errorf("outer lookup failed")
	}
	if _, ok := global.Get("b"); ok {
		t.Errorf("block binding visible outside")
	}
	if !block.Assign("a", num(5)) {
		t.Fatalf("assign to outer failed")
	}
	if v, _ := global.Get("a"); v.Inspect() != "5" {
		t.Errorf("assign did not reach defining scope")
	}
	if block.Assign("zzz", num(1)) {
		t.Errorf("assign to unbound name succeeded")
	}
	if _, ok := block.Get("zzz"); ok {
		t.Errorf("failed assign created a binding")
	}
	if got := block.Names(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v", got)
	}
	if block.Outer() != global {
		t.Errorf("Outer() mismatch")
	}
}
