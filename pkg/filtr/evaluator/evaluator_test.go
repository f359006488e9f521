package evaluator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sambeau/filtr/log"
	"github.com/sambeau/filtr/pkg/filtr/codec"
	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
	"github.com/sambeau/filtr/pkg/filtr/object"
	"github.com/sambeau/filtr/pkg/filtr/parser"
)

const peopleCSV = "name,age\nAda,36\nLinus,54\n"

// writeData creates name in a temp dir and returns its path.
func writeData(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type result struct {
	out      string
	reporter *perrors.Reporter
	err      error
	eval     *Evaluator
}

func run(t *testing.T, src string) result {
	t.Helper()
	prog, errs := parser.Parse(src)
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	var out strings.Builder
	reporter := perrors.NewReporter(nil)
	opts := codec.DefaultOptions()
	opts.Logger = log.Make(nil)
	e := New(reporter, WithOutput(&out), WithCodec(opts), WithLogger(log.Make(nil)))
	_, err := e.Interpret(prog)
	return result{out: out.String(), reporter: reporter, err: err, eval: e}
}

func runOK(t *testing.T, src string) string {
	t.Helper()
	r := run(t, src)
	if r.err != nil {
		t.Fatalf("runtime error: %v", r.err)
	}
	return r.out
}

func TestScenario_ArithmeticPrint(t *testing.T) {
	if got := runOK(t, "print (1 + 2) * 3;"); got != "9\n" {
		t.Errorf("got %q", got)
	}
}

func TestScenario_ImportRenameView(t *testing.T) {
	path := writeData(t, "people.csv", peopleCSV)
	got := runOK(t, `use "`+path+`" as p;
rename p.age to "years";
view p;`)
	want := "" +
		"| filtrID | name  | years |\n" +
		"|---------|-------|-------|\n" +
		"| 1       | Ada   | 36    |\n" +
		"| 2       | Linus | 54    |\n"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestScenario_Filter(t *testing.T) {
	path := writeData(t, "people.csv", peopleCSV)
	got := runOK(t, `use "`+path+`" as p;
filter p where age > 40 as old;
view old;
print p;`)
	want := "" +
		"| filtrID | name  | age |\n" +
		"|---------|-------|-----|\n" +
		"| 2       | Linus | 54  |\n" +
		"Dataset([filtrID, name, age], 2 rows)\n"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestScenario_AddDerivedColumn(t *testing.T) {
	path := writeData(t, "people.csv", peopleCSV)
	got := runOK(t, `use "`+path+`" as p;
add column p.adult = p.age > 30;
add column p.source = "csv";
add column p.copy = p.name;
print p.adult;
print p.source;
print p.copy;`)
	want := "[true, true]\n[csv, csv]\n[Ada, Linus]\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScenario_FillMissing(t *testing.T) {
	path := writeData(t, "people.csv", "name,age\nAda,\nLinus,54\n")
	r := run(t, `use "`+path+`" as p;
fill missing in p.age with 0;
print p.age;`)
	if r.err != nil {
		t.Fatal(r.err)
	}
	if r.out != "[0, 54]\n" {
		t.Errorf("got %q", r.out)
	}
	p, _ := r.eval.Globals().Get("p")
	if v := p.(*object.Table).Cell(0, "age"); v.Type() != object.INTEGER_OBJ {
		t.Errorf("filled cell is %s, want INTEGER", v.Type())
	}
}

func TestFillWhere(t *testing.T) {
	path := writeData(t, "people.csv", "name,age,city\nAda,,London\nLinus,,Helsinki\nBob,,\n")
	got := runOK(t, `use "`+path+`" as p;
fill missing in p.age with 99 where p.city == "London";
print p.age;`)
	if got != "[99, nil, nil]\n" {
		t.Errorf("got %q", got)
	}
}

func TestScenario_FunctionReturn(t *testing.T) {
	if got := runOK(t, "function sq(x) { return x * x; }\nprint sq(7);"); got != "49\n" {
		t.Errorf("got %q", got)
	}
}

func TestPrintStringification(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"print null;", "nil"},
		{"print 7 / 2;", "3.5"},
		{"print 2.0;", "2"},
		{"print 1 / 0;", "Infinity"},
		{"print -1 / 0;", "-Infinity"},
		{"print 0 / 0;", "NaN"},
		{`print "a" + "b";`, "ab"},
		{"print !true;", "false"},
		{"print not null;", "true"},
		{`print null or "x";`, "x"},
		{`print false and 1;`, "false"},
		{"print 1 == 1 == true;", "true"},
		{"print 1 != 2;", "true"},
		{`print "1" == 1;`, "false"},
		{"print null == null;", "true"},
		{"print 3 >= 3;", "true"},
		{"print 1 = 1;", "true"},
		{`set a = 2; if (a = 1) print "y"; else print "n"; print a;`, "n\n2"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := runOK(t, tt.src); got != tt.want+"\n" {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScoping(t *testing.T) {
	got := runOK(t, `set a = 1;
{ set a = 2; set b = 3; print a; }
print a;
a = 5;
print a;`)
	if got != "2\n1\n5\n" {
		t.Errorf("got %q", got)
	}

	r := run(t, "{ set b = 3; }\nprint b;")
	assertError(t, r, "Undefined variable 'b'.", 2, 7)

	r = run(t, "x = 1;")
	assertError(t, r, "Undefined variable 'x'.", 1, 1)
}

func TestClosures(t *testing.T) {
	got := runOK(t, `function counter() {
  set n = 0;
  function inc() { n = n + 1; return n; }
  return inc;
}
set c = counter();
c();
print c();`)
	if got != "2\n" {
		t.Errorf("got %q", got)
	}
}

func TestControlFlow(t *testing.T) {
	got := runOK(t, `set i = 0;
while i < 3 { print i; i = i + 1; }
if i == 3 print "done"; else print "no";
range k from 1 to 3 { print k; }
range k from 3 to 1 { print "never"; }
range k from 1.9 to 2.9 { print k; }`)
	want := "0\n1\n2\ndone\n1\n2\n3\n1\n2\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReturnFromLoopInsideFunction(t *testing.T) {
	got := runOK(t, `function first() {
  range i from 1 to 10 { if i > 2 return i; }
  return 0;
}
print first();`)
	if got != "3\n" {
		t.Errorf("got %q", got)
	}
}

func TestForEach(t *testing.T) {
	path := writeData(t, "people.csv", peopleCSV)
	got := runOK(t, `use "`+path+`" as p;
for each column in p { print column; }
for each row r in p { r.age = r.age + 1; }
for each row in p { print row; }`)
	want := "filtrID\nname\nage\n{filtrID: 1, name: Ada, age: 37}\n{filtrID: 2, name: Linus, age: 55}\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReview(t *testing.T) {
	path := writeData(t, "people.csv", "name,age\nAda,36\nLinus,\n")
	got := runOK(t, `use "`+path+`" as p; review p;`)
	want := "Dataset p: 2 rows, 3 columns\n  filtrID  number  nulls=0\n  name  string  nulls=0\n  age  number  nulls=1\n"
	if got != want {
		t.Errorf("got %q", got)
	}
}

func TestExport(t *testing.T) {
	path := writeData(t, "people.csv", peopleCSV)
	dir := t.TempDir()
	runOK(t, `use "`+path+`" as p;
drop columns filtrID from p;
save p to "`+dir+`" as csv;
export p to "`+dir+`" as json;`)

	data, err := os.ReadFile(filepath.Join(dir, "filtrp.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != peopleCSV {
		t.Errorf("csv = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "filtrp.json")); err != nil {
		t.Errorf("json export missing: %v", err)
	}
}

func TestExport_DatabaseAndMarkdown(t *testing.T) {
	path := writeData(t, "people.csv", peopleCSV)
	dir := t.TempDir()
	r := runOK(t, `use "`+path+`" as p;
export p to "`+dir+`" as sqlite;
export p to "`+dir+`" as md;
use "`+filepath.Join(dir, "filtrp.db")+`#p" as fromdb;
use "`+filepath.Join(dir, "filtrp.md")+`" as frommd;
print fromdb.age;
print frommd.name;`)
	if r != "[36, 54]\n[Ada, Linus]\n" {
		t.Errorf("got %q", r)
	}
}

func assertError(t *testing.T, r result, msg string, line, col int) {
	t.Helper()
	if r.err == nil {
		t.Fatalf("expected error %q", msg)
	}
	var fe *perrors.FiltrError
	if !errors.As(r.err, &fe) {
		t.Fatalf("error %T is not a FiltrError", r.err)
	}
	if fe.Message != msg {
		t.Errorf("message = %q, want %q", fe.Message, msg)
	}
	if line > 0 && (fe.Line != line || fe.Column != col) {
		t.Errorf("position = %d:%d, want %d:%d", fe.Line, fe.Column, line, col)
	}
	if !r.reporter.HadRuntimeError() || r.reporter.ExitCode() != perrors.ExitRuntime {
		t.Error("reporter should record the runtime error")
	}
}

func TestRuntimeErrors(t *testing.T) {
	path := writeData(t, "people.csv", peopleCSV)
	use := `use "` + path + `" as p; `

	tests := []struct {
		name string
		src  string
		msg  string
		line int
		col  int
	}{
		{"operands", `print 1 - "a";`, "Operands must be numbers.", 1, 9},
		{"plus", `print 1 + "a";`, "Operands must be two numbers or two strings.", 1, 9},
		{"negate", `print -"a";`, "Operand must be a number.", 1, 7},
		{"relational", `print "a" < "b";`, "Operands must be numbers.", 1, 11},
		{"not callable", `set x = 1; x();`, "Can only call functions.", 1, 14},
		{"arity", "function f(a) { print a; }\nf(1, 2);", "Expected 1 arguments but got 2.", 2, 7},
		{"top-level return", "return 1;", "Can't return from top-level code.", 1, 1},
		{"not a dataset", `set x = 1; view x;`, "'x' is not a dataset.", 1, 17},
		{"properties", `set x = 1; print x.y;`, "Only datasets have properties.", 1, 20},
		{"set property", `set x = 1; x.y = 2;`, "Only rows have settable properties.", 1, 14},
		{"missing column", use + "print p.zzzz;", "Dataset does not have column: zzzz", 0, 0},
		{"rename missing", use + `rename p.zzzz to "b";`, "Column zzzz does not exist.", 0, 0},
		{"rename exists", use + `rename p.age to "name";`, "Column name already exists.", 0, 0},
		{"drop missing", use + "drop columns name, zzzz from p;", "Column zzzz does not exist.", 0, 0},
		{"add exists", use + "add column p.age = 1;", "Column age already exists.", 0, 0},
		{"range bounds", `range i from "a" to 3 { }`, "Range bounds must be numbers.", 1, 1},
		{"range too large", `range i from 9223372036854775807 to 9223372036854775807 { print i; }`, "Range bounds must be numbers.", 1, 1},
		{"range too small", `range i from -9007199254740994 to 0 { }`, "Range bounds must be numbers.", 1, 1},
		{"import missing", `use "/no/such/file.csv" as p;`, "", 1, 5},
		{"import format", `use "data.txt" as p;`, "Unsupported import format: .txt", 1, 5},
		{"export format", use + `export p to "d" as xml;`, "Unsupported export format: xml", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, tt.src)
			if tt.msg == "" {
				if r.err == nil || !strings.HasPrefix(r.err.Error(), "line 1, column 5: Failed to import dataset.") {
					t.Errorf("err = %v", r.err)
				}
				return
			}
			assertError(t, r, tt.msg, tt.line, tt.col)
		})
	}
}

func TestArityMismatchSkipsBody(t *testing.T) {
	r := run(t, "function f(a) { print \"ran\"; }\nf();")
	if r.err == nil || r.out != "" {
		t.Errorf("out = %q, err = %v", r.out, r.err)
	}
}

func TestRuntimeErrorStopsProgram(t *testing.T) {
	r := run(t, "print 1;\nprint x;\nprint 2;")
	if r.out != "1\n" {
		t.Errorf("out = %q", r.out)
	}
	if r.reporter.ExitCode() != perrors.ExitRuntime {
		t.Errorf("exit = %d", r.reporter.ExitCode())
	}
}

func TestUndefinedVariableHint(t *testing.T) {
	r := run(t, "set count = 1;\nprint cout;")
	var fe *perrors.FiltrError
	if !errors.As(r.err, &fe) {
		t.Fatal("expected FiltrError")
	}
	if len(fe.Hints) != 1 || fe.Hints[0] != "Did you mean `count`?" {
		t.Errorf("hints = %v", fe.Hints)
	}
}

func TestInterpretResult(t *testing.T) {
	prog, _ := parser.Parse("set x = 2; x * 21;")
	e := New(nil, WithOutput(nil), WithLogger(log.Make(nil)))
	v, err := e.Interpret(prog)
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || v.Inspect() != "42" {
		t.Errorf("result = %v", v)
	}

	prog, _ = parser.Parse("print x;")
	if v, _ := e.Interpret(prog); v != nil {
		t.Errorf("print should not produce a result, got %v", v)
	}
}
