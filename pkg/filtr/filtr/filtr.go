// Package filtr provides a public API for embedding the filtr interpreter.
//
//	out := filtr.NewBufferedOutput()
//	res, err := filtr.Eval(`print (1 + 2) * 3;`, filtr.WithOutput(out))
//	// out.String() == "9\n", res.ExitCode == 0
package filtr

import (
	"io"
	"os"

	"github.com/sambeau/filtr/log"
	"github.com/sambeau/filtr/pkg/filtr/ast"
	"github.com/sambeau/filtr/pkg/filtr/codec"
	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
	"github.com/sambeau/filtr/pkg/filtr/evaluator"
	"github.com/sambeau/filtr/pkg/filtr/format"
	"github.com/sambeau/filtr/pkg/filtr/object"
	"github.com/sambeau/filtr/pkg/filtr/parser"
)

// Result is the outcome of running a program.
type Result struct {
	// Value of the last top-level expression statement, or nil.
	Value object.Object
	// Errors reported during the run, parse errors first.
	Errors []*perrors.FiltrError
	// ExitCode is 0, 65 after a parse error or 70 after a runtime error.
	ExitCode int
}

type config struct {
	out     io.Writer
	errOut  io.Writer
	file    string
	color   bool
	codec   codec.Options
	logger  log.Logger
	globals *object.Environment
}

// Option configures Eval.
type Option func(*config)

// WithOutput sets where print, view and review write. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) { c.out = w }
}

// WithErrors sets where formatted errors are written. Defaults to
// discarding them; they are always returned in the Result.
func WithErrors(w io.Writer) Option {
	return func(c *config) { c.errOut = w }
}

// WithFilename attributes errors to a source file.
func WithFilename(name string) Option {
	return func(c *config) { c.file = name }
}

// WithColor styles error headers.
func WithColor(on bool) Option {
	return func(c *config) { c.color = on }
}

// WithCodec sets the import and export options.
func WithCodec(opts codec.Options) Option {
	return func(c *config) { c.codec = opts }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithEnvironment runs in env, so bindings survive between calls.
func WithEnvironment(env *object.Environment) Option {
	return func(c *config) { c.globals = env }
}

func makeConfig(opts []Option) *config {
	c := &config{
		out:    os.Stdout,
		codec:  codec.DefaultOptions(),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Eval parses and runs source. Parse errors prevent evaluation. The
// returned error is the first error reported, if any.
func Eval(source string, opts ...Option) (*Result, error) {
	c := makeConfig(opts)
	reporter := perrors.NewReporter(c.errOut)
	reporter.SetFile(c.file)
	reporter.SetColor(c.color)

	res := &Result{}
	prog, errs := parser.Parse(source)
	for _, err := range errs {
		reporter.Report(err)
	}

	if !reporter.HadError() {
		evalOpts := []evaluator.Option{
			evaluator.WithOutput(c.out),
			evaluator.WithCodec(c.codec),
			evaluator.WithLogger(c.logger),
		}
		if c.globals != nil {
			evalOpts = append(evalOpts, evaluator.WithGlobals(c.globals))
		}
		res.Value, _ = evaluator.New(reporter, evalOpts...).Interpret(prog)
	}

	res.Errors = reporter.Errors()
	res.ExitCode = reporter.ExitCode()
	if len(res.Errors) > 0 {
		return res, res.Errors[0]
	}
	return res, nil
}

// EvalFile reads and runs the program at path. Errors are attributed to
// path unless WithFilename says otherwise.
func EvalFile(path string, opts ...Option) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Eval(string(src), append([]Option{WithFilename(path)}, opts...)...)
}

// Parse returns the program for source and any lexer or parser errors.
func Parse(source string) (*ast.Program, []*perrors.FiltrError) {
	return parser.Parse(source)
}

// Check parses source without running it.
func Check(source string) []*perrors.FiltrError {
	_, errs := parser.Parse(source)
	return errs
}

// Format returns source in canonical form. Source with parse errors is
// not formatted.
func Format(source string) (string, []*perrors.FiltrError) {
	prog, errs := parser.Parse(source)
	if len(errs) > 0 {
		return "", errs
	}
	return format.FormatProgram(prog), nil
}
