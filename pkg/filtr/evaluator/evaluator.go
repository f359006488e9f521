// Package evaluator walks a parsed filtr program, executing statements
// against a tree of environments.
//
// Statements return a Flow, which tells enclosing calls whether a return
// is unwinding, and an error. The first runtime error ends the program and
// is handed to the Reporter by Interpret.
package evaluator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sambeau/filtr/log"
	"github.com/sambeau/filtr/pkg/filtr/ast"
	"github.com/sambeau/filtr/pkg/filtr/codec"
	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
	"github.com/sambeau/filtr/pkg/filtr/lexer"
	"github.com/sambeau/filtr/pkg/filtr/object"
)

// Flow is the control-flow outcome of a statement.
type Flow struct {
	Returning bool
	Value     object.Object
}

var normal = Flow{}

// Evaluator executes programs. Globals persist across calls to Interpret,
// so a REPL can feed it one line at a time.
type Evaluator struct {
	out      io.Writer
	reporter *perrors.Reporter
	globals  *object.Environment
	codec    codec.Options
	logger   log.Logger

	depth int           // active function calls
	last  object.Object // value of the last top-level expression statement
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithOutput sets where print, view and review write.
func WithOutput(w io.Writer) Option {
	return func(e *Evaluator) {
		if w == nil {
			w = io.Discard
		}
		e.out = w
	}
}

// WithCodec sets the import and export options.
func WithCodec(opts codec.Options) Option {
	return func(e *Evaluator) { e.codec = opts }
}

// WithLogger sets the diagnostic logger. It is also handed to the codecs
// unless they already have one.
func WithLogger(l log.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// WithGlobals runs programs in env instead of a fresh global scope.
func WithGlobals(env *object.Environment) Option {
	return func(e *Evaluator) { e.globals = env }
}

// New creates an Evaluator reporting runtime errors to reporter.
func New(reporter *perrors.Reporter, opts ...Option) *Evaluator {
	if reporter == nil {
		reporter = perrors.NewReporter(nil)
	}
	e := &Evaluator{
		out:      os.Stdout,
		reporter: reporter,
		globals:  object.NewEnvironment(),
		codec:    codec.DefaultOptions(),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.codec.Logger.Logger == nil {
		e.codec.Logger = e.logger
	}
	return e
}

// Globals returns the global scope.
func (e *Evaluator) Globals() *object.Environment { return e.globals }

// Interpret executes prog in the global scope. It stops at the first
// runtime error, reports it and returns it. The result is the value of the
// last top-level expression statement, or nil if there was none.
func (e *Evaluator) Interpret(prog *ast.Program) (object.Object, error) {
	e.last = nil
	e.depth = 0
	for _, stmt := range prog.Statements {
		if _, err := e.execute(stmt, e.globals); err != nil {
			e.logger.Debug("program stopped", slog.String("error", err.Error()))
			e.reporter.RuntimeError(err)
			return nil, err
		}
	}
	return e.last, nil
}

func (e *Evaluator) execute(stmt ast.Statement, env *object.Environment) (Flow, error) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		v, err := e.eval(s.Expression, env)
		if err != nil {
			return normal, err
		}
		if e.depth == 0 && env == e.globals {
			e.last = v
		}
		return normal, nil

	case *ast.PrintStatement:
		v, err := e.eval(s.Expression, env)
		if err != nil {
			return normal, err
		}
		if _, err := fmt.Fprintln(e.out, v.Inspect()); err != nil {
			return normal, at(s.Token, err)
		}
		return normal, nil

	case *ast.SetStatement:
		v, err := e.eval(s.Value, env)
		if err != nil {
			return normal, err
		}
		env.Define(s.Name.Lexeme, v)
		return normal, nil

	case *ast.BlockStatement:
		return e.executeBlock(s.Statements, object.NewEnclosedEnvironment(env))

	case *ast.IfStatement:
		cond, err := e.eval(s.Condition, env)
		if err != nil {
			return normal, err
		}
		if object.IsTruthy(cond) {
			return e.execute(s.Then, env)
		}
		if s.Else != nil {
			return e.execute(s.Else, env)
		}
		return normal, nil

	case *ast.WhileStatement:
		for {
			cond, err := e.eval(s.Condition, env)
			if err != nil {
				return normal, err
			}
			if !object.IsTruthy(cond) {
				return normal, nil
			}
			flow, err := e.execute(s.Body, env)
			if err != nil || flow.Returning {
				return flow, err
			}
		}

	case *ast.FunctionStatement:
		env.Define(s.Name.Lexeme, &object.Function{Declaration: s, Closure: env})
		return normal, nil

	case *ast.ReturnStatement:
		if e.depth == 0 {
			return normal, perrors.NewWithPosition("STATE-0001", s.Token.Line, s.Token.Column, nil)
		}
		var v object.Object = object.NULL
		if s.Value != nil {
			var err error
			if v, err = e.eval(s.Value, env); err != nil {
				return normal, err
			}
		}
		return Flow{Returning: true, Value: v}, nil

	case *ast.ImportStatement:
		return normal, e.importDataset(s, env)
	case *ast.ExportStatement:
		return normal, e.exportDataset(s, env)
	case *ast.ViewStatement:
		return normal, e.view(s, env)
	case *ast.ReviewStatement:
		return normal, e.review(s, env)
	case *ast.RenameStatement:
		return normal, e.rename(s, env)
	case *ast.DropStatement:
		return normal, e.drop(s, env)
	case *ast.AddColumnStatement:
		return normal, e.addColumn(s, env)
	case *ast.FillStatement:
		return normal, e.fill(s, env)
	case *ast.FilterStatement:
		return normal, e.filter(s, env)
	case *ast.ForStatement:
		return e.forEach(s, env)
	case *ast.RangeStatement:
		return e.rangeLoop(s, env)
	}
	return normal, fmt.Errorf("unknown statement %T", stmt)
}

// executeBlock runs stmts in env, stopping early when a return unwinds.
func (e *Evaluator) executeBlock(stmts []ast.Statement, env *object.Environment) (Flow, error) {
	for _, stmt := range stmts {
		flow, err := e.execute(stmt, env)
		if err != nil || flow.Returning {
			return flow, err
		}
	}
	return normal, nil
}

// at attributes err to tok. Errors that already carry a position keep it;
// plain Go errors become state errors.
func at(tok lexer.Token, err error) error {
	var fe *perrors.FiltrError
	if !errors.As(err, &fe) {
		fe = perrors.NewSimple(perrors.ClassState, err.Error())
	}
	if fe.Line > 0 {
		return fe
	}
	return fe.WithPosition(tok.Line, tok.Column)
}

func fail(tok lexer.Token, code string, data map[string]any) error {
	return perrors.NewWithPosition(code, tok.Line, tok.Column, data)
}
