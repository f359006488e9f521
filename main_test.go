package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sambeau/filtr/log"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runWith(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr, func(string) string { return "" })
	return result{code, stdout.String(), stderr.String()}
}

func runFiltr(t *testing.T, args ...string) result {
	t.Helper()
	return runWith(t, "", args...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunVersion(t *testing.T) {
	r := runFiltr(t, "--version")
	if r.code != 0 {
		t.Errorf("exit = %d", r.code)
	}
	if !strings.Contains(r.stdout, "filtr version "+Version) {
		t.Errorf("expected version output, got %q", r.stdout)
	}
}

func TestRunHelp(t *testing.T) {
	r := runFiltr(t, "--help")
	if r.code != 0 {
		t.Errorf("exit = %d", r.code)
	}
	for _, want := range []string{"Usage: filtr", "--config", "--watch", "check", "fmt"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("help missing %q:\n%s", want, r.stdout)
		}
	}
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name       string
		src        string
		wantCode   int
		wantOut    string
		wantStderr string
	}{
		{"ok", "print (1 + 2) * 3;", 0, "9\n", ""},
		{"parse error", "print 1;\nprint ;", 65, "", "Parser error"},
		{"runtime error", "print 1;\nprint -\"a\";\nprint 2;", 70, "1\n", "Operand must be a number."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".filtr", tt.src)
			r := runFiltr(t, path)
			if r.code != tt.wantCode {
				t.Errorf("exit = %d, want %d (stderr %q)", r.code, tt.wantCode, r.stderr)
			}
			if r.stdout != tt.wantOut {
				t.Errorf("stdout = %q, want %q", r.stdout, tt.wantOut)
			}
			if !strings.Contains(r.stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want %q", r.stderr, tt.wantStderr)
			}
		})
	}
}

func TestRunStdin(t *testing.T) {
	r := runWith(t, `print "hi";`, "-")
	if r.code != 0 || r.stdout != "hi\n" {
		t.Errorf("got %+v", r)
	}
}

func TestRunFailures(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "ok.filtr", "print 1;")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing script", []string{filepath.Join(dir, "none.filtr")}, exitNoInput},
		{"bad log level", []string{"--log-level", "loud", script}, exitUsage},
		{"unknown flag", []string{"--bogus"}, exitUsage},
		{"missing config", []string{"--config", filepath.Join(dir, "none.yaml"), script}, exitConfig},
		{"watch stdin", []string{"--watch", "-"}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runFiltr(t, tt.args...)
			if r.code != tt.want {
				t.Errorf("exit = %d, want %d (stderr %q)", r.code, tt.want, r.stderr)
			}
			if r.stderr == "" {
				t.Error("expected a message on stderr")
			}
		})
	}
}

func TestRunWithConfig(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "people.csv", "name,age\nAda,36\n")
	out := filepath.Join(dir, "out", "nested")
	cfg := writeFile(t, dir, "filtr.yaml", `
logging:
  level: info
export:
  json_strings: true
  create_dirs: true
`)
	script := writeFile(t, dir, "export.filtr", `use "`+data+`" as p;
export p to "`+out+`" as json;`)

	r := runFiltr(t, "--config", cfg, "--no-color", script)
	if r.code != 0 {
		t.Fatalf("exit = %d, stderr %q", r.code, r.stderr)
	}
	got, err := os.ReadFile(filepath.Join(out, "filtrp.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), `"age": "36"`) {
		t.Errorf("expected string values, got %s", got)
	}
	if !strings.Contains(r.stderr, "INFO dataset exported") && !strings.Contains(r.stderr, "INFO exporting dataset") {
		t.Errorf("expected info logs, got %q", r.stderr)
	}

	r = runFiltr(t, "--config", cfg, "--log-level", "error", script)
	if r.stderr != "" {
		t.Errorf("--log-level should override the config, got %q", r.stderr)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.filtr", "print 1;")
	bad := writeFile(t, dir, "bad.filtr", "print 1")

	if r := runFiltr(t, "check", good); r.code != 0 {
		t.Errorf("good: exit = %d, stderr %q", r.code, r.stderr)
	}

	r := runFiltr(t, "check", good, bad)
	if r.code != 65 {
		t.Errorf("bad: exit = %d", r.code)
	}
	if !strings.Contains(r.stderr, "bad.filtr") {
		t.Errorf("error should name the file: %q", r.stderr)
	}
	if r.stdout != "" {
		t.Errorf("check should not run scripts, got %q", r.stdout)
	}
}

func TestFmt(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "messy.filtr", "set x=1;while x<3{x=x+1;}")
	want := "set x = 1;\nwhile x < 3 {\n\tx = x + 1;\n}\n"

	r := runFiltr(t, "fmt", path)
	if r.code != 0 || r.stdout != want {
		t.Errorf("got %+v", r)
	}

	r = runFiltr(t, "fmt", "-w", path)
	if r.code != 0 || r.stdout != "" {
		t.Errorf("-w: got %+v", r)
	}
	got, _ := os.ReadFile(path)
	if string(got) != want {
		t.Errorf("rewritten = %q", got)
	}

	bad := writeFile(t, dir, "bad.filtr", "print")
	if r := runFiltr(t, "fmt", "-w", bad); r.code != 65 {
		t.Errorf("bad: exit = %d", r.code)
	}
	if got, _ := os.ReadFile(bad); string(got) != "print" {
		t.Errorf("unparsable file must not be rewritten, got %q", got)
	}
}

func TestWatchScript(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "watched.filtr", "print 1;")
	writeFile(t, dir, "other.filtr", "print 2;")

	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchScript(ctx, script, log.Make(nil), func() { runs <- struct{}{} })
	}()

	wait := func(what string) {
		t.Helper()
		select {
		case <-runs:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", what)
		}
	}
	wait("initial run")

	writeFile(t, dir, "other.filtr", "print 3;")
	if err := os.WriteFile(script, []byte("print 4;"), 0o644); err != nil {
		t.Fatal(err)
	}
	wait("re-run after save")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchScript: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestStartProfileNoop(t *testing.T) {
	stop := startProfile("", t.TempDir(), log.Make(nil))
	stop()
	stop = startProfile("bogus", t.TempDir(), log.Make(nil))
	stop()
}
