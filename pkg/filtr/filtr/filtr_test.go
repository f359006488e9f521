package filtr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sambeau/filtr/log"
	"github.com/sambeau/filtr/pkg/filtr/codec"
	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
	"github.com/sambeau/filtr/pkg/filtr/object"
)

func quietCodec() codec.Options {
	opts := codec.DefaultOptions()
	opts.Logger = log.Make(nil)
	return opts
}

func eval(t *testing.T, src string, opts ...Option) (*Result, string) {
	t.Helper()
	out := NewBufferedOutput()
	opts = append([]Option{WithOutput(out), WithCodec(quietCodec()), WithLogger(log.Make(nil))}, opts...)
	res, _ := Eval(src, opts...)
	return res, out.String()
}

func TestEval_Scenarios(t *testing.T) {
	dir := t.TempDir()
	people := filepath.Join(dir, "people.csv")
	os.WriteFile(people, []byte("name,age\nAda,36\nLinus,54\n"), 0o644)
	missing := filepath.Join(dir, "missing.csv")
	os.WriteFile(missing, []byte("name,age\nAda,\nLinus,54\n"), 0o644)

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"arithmetic", "print (1 + 2) * 3;", "9\n"},
		{"rename view", `use "` + people + `" as p; rename p.age to "years"; view p;`,
			"| filtrID | name  | years |\n|---------|-------|-------|\n| 1       | Ada   | 36    |\n| 2       | Linus | 54    |\n"},
		{"filter", `use "` + people + `" as p; filter p where age > 40 as old; print old.name; print p.name;`,
			"[Linus]\n[Ada, Linus]\n"},
		{"add column", `use "` + people + `" as p; add column p.adult = p.age > 30; print p.adult;`,
			"[true, true]\n"},
		{"fill", `use "` + missing + `" as p; fill missing in p.age with 0; print p.age;`,
			"[0, 54]\n"},
		{"function", "function sq(x) { return x * x; }\nprint sq(7);", "49\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, out := eval(t, tt.src)
			if res.ExitCode != perrors.ExitOK {
				t.Fatalf("exit = %d, errors = %v", res.ExitCode, res.Errors)
			}
			if out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestEval_ParseErrorsBlockEvaluation(t *testing.T) {
	var errs strings.Builder
	res, out := eval(t, "print 1;\nprint ;\nset = 2;", WithErrors(&errs), WithFilename("bad.filtr"))
	if out != "" {
		t.Errorf("nothing should run, got %q", out)
	}
	if res.ExitCode != perrors.ExitParse {
		t.Errorf("exit = %d", res.ExitCode)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %v", res.Errors)
	}
	if res.Errors[0].File != "bad.filtr" || res.Errors[0].Line != 2 {
		t.Errorf("first error = %+v", res.Errors[0])
	}
	if !strings.Contains(errs.String(), "bad.filtr") {
		t.Errorf("formatted errors = %q", errs.String())
	}
}

func TestEval_RuntimeError(t *testing.T) {
	res, out := eval(t, "print 1;\nprint -\"a\";\nprint 2;")
	if out != "1\n" {
		t.Errorf("out = %q", out)
	}
	if res.ExitCode != perrors.ExitRuntime {
		t.Errorf("exit = %d", res.ExitCode)
	}
	if len(res.Errors) != 1 || res.Errors[0].Message != "Operand must be a number." {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestEval_ReturnsValueAndError(t *testing.T) {
	res, err := Eval("1 + 2;", WithOutput(nil), WithLogger(log.Make(nil)))
	if err != nil {
		t.Fatal(err)
	}
	if res.Value.Inspect() != "3" {
		t.Errorf("value = %s", res.Value.Inspect())
	}

	_, err = Eval("print x;", WithOutput(nil), WithLogger(log.Make(nil)))
	if err == nil || !strings.Contains(err.Error(), "Undefined variable 'x'.") {
		t.Errorf("err = %v", err)
	}
}

func TestEval_SharedEnvironment(t *testing.T) {
	env := object.NewEnvironment()
	eval(t, "set total = 40;", WithEnvironment(env))
	_, out := eval(t, "print total + 2;", WithEnvironment(env))
	if out != "42\n" {
		t.Errorf("got %q", out)
	}
}

func TestEvalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.filtr")
	os.WriteFile(path, []byte("print nope;"), 0o644)

	res, err := EvalFile(path, WithOutput(nil), WithLogger(log.Make(nil)))
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Errors[0].File != path {
		t.Errorf("file = %q", res.Errors[0].File)
	}

	if _, err := EvalFile(filepath.Join(t.TempDir(), "none.filtr")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestCheckAndFormat(t *testing.T) {
	if errs := Check("print 1;"); len(errs) != 0 {
		t.Errorf("errs = %v", errs)
	}
	if errs := Check("print 1"); len(errs) != 1 {
		t.Errorf("errs = %v", errs)
	}

	got, errs := Format("set x=1;while x<3{x=x+1;}")
	if len(errs) != 0 {
		t.Fatal(errs)
	}
	want := "set x = 1;\nwhile x < 3 {\n\tx = x + 1;\n}\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if _, errs := Format("print"); len(errs) == 0 {
		t.Error("expected parse errors")
	}
}

func TestBufferedOutput(t *testing.T) {
	b := NewBufferedOutput()
	if b.Lines() != nil {
		t.Error("empty buffer should have no lines")
	}
	b.Write([]byte("a\nb\n"))
	if got := b.Lines(); len(got) != 2 || got[1] != "b" {
		t.Errorf("lines = %v", got)
	}
	b.Reset()
	if b.String() != "" {
		t.Error("reset should clear")
	}
}
