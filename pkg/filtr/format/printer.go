// Package format renders datasets for the console and filtr programs as
// canonical source.
package format

import (
	"strings"

	"github.com/sambeau/filtr/pkg/filtr/ast"
)

// IndentString is one level of block indentation.
const IndentString = "\t"

// Printer accumulates formatted source.
type Printer struct {
	output strings.Builder
	indent int
}

// NewPrinter creates a new Printer instance
func NewPrinter() *Printer {
	return &Printer{}
}

// String returns the formatted output
func (p *Printer) String() string {
	return p.output.String()
}

// Reset clears the printer state for reuse
func (p *Printer) Reset() {
	p.output.Reset()
	p.indent = 0
}

func (p *Printer) write(s string) { p.output.WriteString(s) }

func (p *Printer) newline() { p.output.WriteByte('\n') }

func (p *Printer) writeIndent() {
	p.write(strings.Repeat(IndentString, p.indent))
}

// FormatProgram renders prog with one statement per line, blocks broken
// over lines, and a blank line around top-level function declarations.
func FormatProgram(prog *ast.Program) string {
	if prog == nil || len(prog.Statements) == 0 {
		return ""
	}
	p := NewPrinter()
	var prev ast.Statement
	for _, stmt := range prog.Statements {
		if prev != nil && (isFunction(stmt) || isFunction(prev)) {
			p.newline()
		}
		p.formatStatement(stmt)
		p.newline()
		prev = stmt
	}
	return p.String()
}

// FormatStatement renders a single statement.
func FormatStatement(stmt ast.Statement) string {
	p := NewPrinter()
	p.formatStatement(stmt)
	return p.String()
}

func isFunction(stmt ast.Statement) bool {
	_, ok := stmt.(*ast.FunctionStatement)
	return ok
}

func (p *Printer) formatStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.BlockStatement:
		p.formatBlock(s)
	case *ast.IfStatement:
		p.write("if " + s.Condition.String() + " ")
		p.formatStatement(s.Then)
		if s.Else != nil {
			p.write(" else ")
			p.formatStatement(s.Else)
		}
	case *ast.WhileStatement:
		p.write("while " + s.Condition.String() + " ")
		p.formatStatement(s.Body)
	case *ast.FunctionStatement:
		params := make([]string, len(s.Params))
		for i, t := range s.Params {
			params[i] = t.Lexeme
		}
		p.write("function " + s.Name.Lexeme + "(" + strings.Join(params, ", ") + ") ")
		p.formatBlock(s.Body)
	case *ast.ForStatement:
		p.write("for each " + s.Kind.Lexeme)
		if s.Name.Lexeme != s.Kind.Lexeme {
			p.write(" " + s.Name.Lexeme)
		}
		p.write(" in " + s.Dataset.Lexeme + " ")
		p.formatBlock(s.Body)
	case *ast.RangeStatement:
		p.write("range " + s.Name.Lexeme + " from " + s.From.String() + " to " + s.To.String() + " ")
		p.formatBlock(s.Body)
	default:
		p.write(stmt.String())
	}
}

func (p *Printer) formatBlock(bs *ast.BlockStatement) {
	if bs == nil || len(bs.Statements) == 0 {
		p.write("{}")
		return
	}
	p.write("{")
	p.newline()
	p.indent++
	for _, stmt := range bs.Statements {
		p.writeIndent()
		p.formatStatement(stmt)
		p.newline()
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}
