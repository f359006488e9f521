package ast

import (
	"strconv"
	"strings"

	"github.com/sambeau/filtr/pkg/filtr/lexer"
)

// Node represents any node in the AST
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement represents statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Program represents the root node of every AST
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out strings.Builder
	for i, s := range p.Statements {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(s.String())
	}
	return out.String()
}

// ============================================================================
// Expressions
// ============================================================================

// Literal is a null, boolean, number or string constant.
type Literal struct {
	Token lexer.Token
	Value any // nil, bool, float64 or string
}

func (l *Literal) expressionNode()      {}
func (l *Literal) TokenLiteral() string { return l.Token.Lexeme }
func (l *Literal) String() string       { return FormatLiteral(l.Value) }

// FormatLiteral renders a literal value as source text.
func FormatLiteral(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return `"` + v + `"`
	}
	return ""
}

// Variable is a reference to a bound name. The loop keywords row and column
// also parse to variables.
type Variable struct {
	Name lexer.Token
}

func (v *Variable) expressionNode()      {}
func (v *Variable) TokenLiteral() string { return v.Name.Lexeme }
func (v *Variable) String() string       { return v.Name.Lexeme }

// Unary is a prefix operator applied to one operand: !x, not x, -x.
type Unary struct {
	Operator lexer.Token
	Right    Expression
}

func (u *Unary) expressionNode()      {}
func (u *Unary) TokenLiteral() string { return u.Operator.Lexeme }
func (u *Unary) String() string {
	if u.Operator.Type == lexer.NOT {
		return "not " + u.Right.String()
	}
	return u.Operator.Lexeme + u.Right.String()
}

// Binary is an arithmetic, equality or comparison operation.
type Binary struct {
	Left     Expression
	Operator lexer.Token
	Right    Expression
}

func (b *Binary) expressionNode()      {}
func (b *Binary) TokenLiteral() string { return b.Operator.Lexeme }
func (b *Binary) String() string {
	return b.Left.String() + " " + b.Operator.Lexeme + " " + b.Right.String()
}

// Logical is a short-circuiting and/or.
type Logical struct {
	Left     Expression
	Operator lexer.Token
	Right    Expression
}

func (l *Logical) expressionNode()      {}
func (l *Logical) TokenLiteral() string { return l.Operator.Lexeme }
func (l *Logical) String() string {
	return l.Left.String() + " " + l.Operator.Lexeme + " " + l.Right.String()
}

// Grouping is a parenthesized expression.
type Grouping struct {
	Token      lexer.Token
	Expression Expression
}

func (g *Grouping) expressionNode()      {}
func (g *Grouping) TokenLiteral() string { return g.Token.Lexeme }
func (g *Grouping) String() string       { return "(" + g.Expression.String() + ")" }

// Get is a property access, usually table.column or row.column.
type Get struct {
	Object Expression
	Name   lexer.Token
}

func (g *Get) expressionNode()      {}
func (g *Get) TokenLiteral() string { return g.Name.Lexeme }
func (g *Get) String() string       { return g.Object.String() + "." + g.Name.Lexeme }

// Set is a property assignment, obj.name = value.
type Set struct {
	Object Expression
	Name   lexer.Token
	Value  Expression
}

func (s *Set) expressionNode()      {}
func (s *Set) TokenLiteral() string { return s.Name.Lexeme }
func (s *Set) String() string {
	return s.Object.String() + "." + s.Name.Lexeme + " = " + s.Value.String()
}

// Assign rebinds an existing name, name = value.
type Assign struct {
	Name  lexer.Token
	Value Expression
}

func (a *Assign) expressionNode()      {}
func (a *Assign) TokenLiteral() string { return a.Name.Lexeme }
func (a *Assign) String() string       { return a.Name.Lexeme + " = " + a.Value.String() }

// Call invokes a callee with arguments. Paren is the closing parenthesis
// and attributes runtime errors.
type Call struct {
	Callee    Expression
	Paren     lexer.Token
	Arguments []Expression
}

func (c *Call) expressionNode()      {}
func (c *Call) TokenLiteral() string { return c.Paren.Lexeme }
func (c *Call) String() string {
	args := make([]string, len(c.Arguments))
	for i, a := range c.Arguments {
		args[i] = a.String()
	}
	return c.Callee.String() + "(" + strings.Join(args, ", ") + ")"
}

// ============================================================================
// Debug printer
// ============================================================================

// Sexp renders an expression fully parenthesized in prefix form, making
// precedence and associativity visible: (* (group (+ 1 2)) 3).
func Sexp(e Expression) string {
	switch e := e.(type) {
	case *Literal:
		if e.Value == nil {
			return "nil"
		}
		if s, ok := e.Value.(string); ok {
			return s
		}
		return FormatLiteral(e.Value)
	case *Variable:
		return e.Name.Lexeme
	case *Unary:
		return parenthesize(e.Operator.Lexeme, e.Right)
	case *Binary:
		return parenthesize(e.Operator.Lexeme, e.Left, e.Right)
	case *Logical:
		return parenthesize(e.Operator.Lexeme, e.Left, e.Right)
	case *Grouping:
		return parenthesize("group", e.Expression)
	case *Get:
		return "(get " + Sexp(e.Object) + " " + e.Name.Lexeme + ")"
	case *Set:
		return "(set " + Sexp(e.Object) + " " + e.Name.Lexeme + " " + Sexp(e.Value) + ")"
	case *Assign:
		return "(= " + e.Name.Lexeme + " " + Sexp(e.Value) + ")"
	case *Call:
		return parenthesize("call "+Sexp(e.Callee), e.Arguments...)
	}
	return "?"
}

func parenthesize(name string, exprs ...Expression) string {
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(name)
	for _, e := range exprs {
		sb.WriteString(" ")
		sb.WriteString(Sexp(e))
	}
	sb.WriteString(")")
	return sb.String()
}
