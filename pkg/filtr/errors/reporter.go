package errors

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Exit codes chosen by the driver after a run.
const (
	ExitOK      = 0
	ExitParse   = 65
	ExitRuntime = 70
)

var (
	parseHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	runtimeHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	hintStyle          = lipgloss.NewStyle().Faint(true)
)

// Reporter receives lexer, parser and runtime errors for one session and
// remembers whether each kind has occurred. It is not safe for concurrent use.
type Reporter struct {
	out    io.Writer
	file   string
	color  bool
	errs   []*FiltrError
	parse  bool
	runErr bool
}

// NewReporter returns a Reporter that writes formatted errors to w.
// A nil writer discards output but still records errors.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{out: w}
}

// SetFile attributes subsequent errors to the named source file.
func (r *Reporter) SetFile(name string) { r.file = name }

// SetColor toggles styled error headers.
func (r *Reporter) SetColor(on bool) { r.color = on }

// Error reports a lexer or parser error at the given position.
func (r *Reporter) Error(line, column int, message string) {
	r.Report(&FiltrError{Class: ClassParse, Message: message, Line: line, Column: column})
}

// Report records a structured error and prints it.
func (r *Reporter) Report(err *FiltrError) {
	if err == nil {
		return
	}
	if err.File == "" && r.file != "" {
		err = err.WithFile(r.file)
	}
	if err.IsParseError() {
		r.parse = true
	} else {
		r.runErr = true
	}
	r.errs = append(r.errs, err)
	r.print(err)
}

// RuntimeError reports an error raised during evaluation. Plain Go errors are
// wrapped as state errors so that nothing is lost.
func (r *Reporter) RuntimeError(err error) {
	if err == nil {
		return
	}
	var fe *FiltrError
	if !errors.As(err, &fe) {
		fe = NewSimple(ClassState, err.Error())
	}
	if fe.IsParseError() {
		c := *fe
		c.Class = ClassState
		fe = &c
	}
	r.Report(fe)
}

func (r *Reporter) print(err *FiltrError) {
	if !r.color {
		fmt.Fprintln(r.out, err.PrettyString())
		return
	}
	style := runtimeHeaderStyle
	if err.IsParseError() {
		style = parseHeaderStyle
	}
	fmt.Fprintln(r.out, style.Render(err.Header()))
	fmt.Fprintf(r.out, "  %s\n", err.Message)
	for _, hint := range err.Hints {
		fmt.Fprintf(r.out, "  %s\n", hintStyle.Render(hint))
	}
}

// HadError reports whether a lexer or parser error has been seen since the
// last Reset.
func (r *Reporter) HadError() bool { return r.parse }

// HadRuntimeError reports whether a runtime error has been seen since the
// last Reset.
func (r *Reporter) HadRuntimeError() bool { return r.runErr }

// Errors returns every error recorded since the last Reset.
func (r *Reporter) Errors() []*FiltrError { return r.errs }

// Reset clears the sticky flags. The REPL calls it between inputs.
func (r *Reporter) Reset() {
	r.parse = false
	r.runErr = false
	r.errs = nil
}

// ExitCode maps the sticky flags to a process exit status. Parse errors take
// precedence over runtime errors.
func (r *Reporter) ExitCode() int {
	switch {
	case r.parse:
		return ExitParse
	case r.runErr:
		return ExitRuntime
	}
	return ExitOK
}
