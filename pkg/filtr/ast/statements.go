package ast

import (
	"strings"

	"github.com/sambeau/filtr/pkg/filtr/lexer"
)

// ExpressionStatement evaluates an expression and discards the result.
type ExpressionStatement struct {
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Expression.TokenLiteral() }
func (es *ExpressionStatement) String() string       { return es.Expression.String() + ";" }

// PrintStatement writes a stringified value and a newline.
type PrintStatement struct {
	Token      lexer.Token
	Expression Expression
}

func (ps *PrintStatement) statementNode()       {}
func (ps *PrintStatement) TokenLiteral() string { return ps.Token.Lexeme }
func (ps *PrintStatement) String() string       { return "print " + ps.Expression.String() + ";" }

// BlockStatement runs its statements in a child scope.
type BlockStatement struct {
	Token      lexer.Token // the { token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BlockStatement) String() string {
	if len(bs.Statements) == 0 {
		return "{}"
	}
	parts := make([]string, len(bs.Statements))
	for i, s := range bs.Statements {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// IfStatement is if cond then [else otherwise].
type IfStatement struct {
	Token     lexer.Token
	Condition Expression
	Then      Statement
	Else      Statement // may be nil
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Lexeme }
func (is *IfStatement) String() string {
	s := "if " + is.Condition.String() + " " + is.Then.String()
	if is.Else != nil {
		s += " else " + is.Else.String()
	}
	return s
}

// WhileStatement repeats Body while Condition is truthy.
type WhileStatement struct {
	Token     lexer.Token
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Lexeme }
func (ws *WhileStatement) String() string {
	return "while " + ws.Condition.String() + " " + ws.Body.String()
}

// FunctionStatement declares a named user function.
type FunctionStatement struct {
	Token  lexer.Token
	Name   lexer.Token
	Params []lexer.Token
	Body   *BlockStatement
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *FunctionStatement) String() string {
	return "function " + fs.Name.Lexeme + "(" + joinLexemes(fs.Params) + ") " + fs.Body.String()
}

// ReturnStatement leaves the enclosing function. Value may be nil.
type ReturnStatement struct {
	Token lexer.Token
	Value Expression
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Lexeme }
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "return;"
	}
	return "return " + rs.Value.String() + ";"
}

// SetStatement defines a name in the current scope: set name = value;
type SetStatement struct {
	Token lexer.Token
	Name  lexer.Token
	Value Expression
}

func (ss *SetStatement) statementNode()       {}
func (ss *SetStatement) TokenLiteral() string { return ss.Token.Lexeme }
func (ss *SetStatement) String() string {
	return "set " + ss.Name.Lexeme + " = " + ss.Value.String() + ";"
}

// ImportStatement loads a dataset: use "path" as alias;
type ImportStatement struct {
	Token lexer.Token // use or import
	Path  lexer.Token
	Alias lexer.Token
}

func (is *ImportStatement) statementNode()       {}
func (is *ImportStatement) TokenLiteral() string { return is.Token.Lexeme }
func (is *ImportStatement) String() string {
	return is.Token.Lexeme + " " + is.Path.Lexeme + " as " + is.Alias.Lexeme + ";"
}

// ExportStatement writes a dataset: export t to "dir" as csv;
type ExportStatement struct {
	Token   lexer.Token // export or save
	Dataset lexer.Token
	Dir     lexer.Token
	Format  lexer.Token // csv, json, md or sqlite
}

func (es *ExportStatement) statementNode()       {}
func (es *ExportStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExportStatement) String() string {
	return es.Token.Lexeme + " " + es.Dataset.Lexeme + " to " + es.Dir.Lexeme + " as " + es.Format.Lexeme + ";"
}

// ViewStatement pretty-prints a dataset.
type ViewStatement struct {
	Token   lexer.Token
	Dataset lexer.Token
}

func (vs *ViewStatement) statementNode()       {}
func (vs *ViewStatement) TokenLiteral() string { return vs.Token.Lexeme }
func (vs *ViewStatement) String() string       { return "view " + vs.Dataset.Lexeme + ";" }

// ReviewStatement prints a per-column summary of a dataset.
type ReviewStatement struct {
	Token   lexer.Token
	Dataset lexer.Token
}

func (rs *ReviewStatement) statementNode()       {}
func (rs *ReviewStatement) TokenLiteral() string { return rs.Token.Lexeme }
func (rs *ReviewStatement) String() string       { return "review " + rs.Dataset.Lexeme + ";" }

// RenameStatement renames a column in place: rename t.col to "new";
type RenameStatement struct {
	Token   lexer.Token
	Dataset lexer.Token
	Column  lexer.Token
	NewName lexer.Token // STRING
}

func (rs *RenameStatement) statementNode()       {}
func (rs *RenameStatement) TokenLiteral() string { return rs.Token.Lexeme }
func (rs *RenameStatement) String() string {
	return "rename " + rs.Dataset.Lexeme + "." + rs.Column.Lexeme + " to " + rs.NewName.Lexeme + ";"
}

// DropStatement removes columns: drop columns a, b from t;
type DropStatement struct {
	Token   lexer.Token
	Columns []lexer.Token
	Dataset lexer.Token
}

func (ds *DropStatement) statementNode()       {}
func (ds *DropStatement) TokenLiteral() string { return ds.Token.Lexeme }
func (ds *DropStatement) String() string {
	return "drop columns " + joinLexemes(ds.Columns) + " from " + ds.Dataset.Lexeme + ";"
}

// AddColumnStatement appends a column: add column t.name = expr;
type AddColumnStatement struct {
	Token   lexer.Token
	Dataset lexer.Token
	Column  lexer.Token
	Value   Expression
}

func (as *AddColumnStatement) statementNode()       {}
func (as *AddColumnStatement) TokenLiteral() string { return as.Token.Lexeme }
func (as *AddColumnStatement) String() string {
	return "add column " + as.Dataset.Lexeme + "." + as.Column.Lexeme + " = " + as.Value.String() + ";"
}

// Condition is the column test of filter and fill. Dataset is empty in the
// filter form, where the column is named bare.
type Condition struct {
	Dataset  lexer.Token
	Column   lexer.Token
	Operator lexer.Token // ==, =, !=, <, <=, >, >=
	Value    Expression
}

func (c *Condition) String() string {
	col := c.Column.Lexeme
	if c.Dataset.Lexeme != "" {
		col = c.Dataset.Lexeme + "." + col
	}
	return col + " " + c.Operator.Lexeme + " " + c.Value.String()
}

// FillStatement writes a value into blank or missing cells:
// fill missing in t.col with expr [where t.cond op expr];
type FillStatement struct {
	Token   lexer.Token
	Mode    lexer.Token // blanks or missing
	Dataset lexer.Token
	Column  lexer.Token
	Value   Expression
	Where   *Condition // may be nil
}

func (fs *FillStatement) statementNode()       {}
func (fs *FillStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *FillStatement) String() string {
	s := "fill " + fs.Mode.Lexeme + " in " + fs.Dataset.Lexeme + "." + fs.Column.Lexeme + " with " + fs.Value.String()
	if fs.Where != nil {
		s += " where " + fs.Where.String()
	}
	return s + ";"
}

// FilterStatement binds a new dataset holding matching rows:
// filter t where col op expr as alias;
type FilterStatement struct {
	Token   lexer.Token
	Dataset lexer.Token
	Where   *Condition
	Alias   lexer.Token
}

func (fs *FilterStatement) statementNode()       {}
func (fs *FilterStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *FilterStatement) String() string {
	return "filter " + fs.Dataset.Lexeme + " where " + fs.Where.String() + " as " + fs.Alias.Lexeme + ";"
}

// ForStatement iterates the rows or column names of a dataset.
type ForStatement struct {
	Token   lexer.Token
	Kind    lexer.Token // row or column
	Name    lexer.Token // loop variable; same as Kind when not given
	Dataset lexer.Token
	Body    *BlockStatement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *ForStatement) String() string {
	s := "for each " + fs.Kind.Lexeme
	if fs.Name.Lexeme != fs.Kind.Lexeme {
		s += " " + fs.Name.Lexeme
	}
	return s + " in " + fs.Dataset.Lexeme + " " + fs.Body.String()
}

// RangeStatement iterates an inclusive integer range:
// range i from a to b { ... }
type RangeStatement struct {
	Token lexer.Token
	Name  lexer.Token
	From  Expression
	To    Expression
	Body  *BlockStatement
}

func (rs *RangeStatement) statementNode()       {}
func (rs *RangeStatement) TokenLiteral() string { return rs.Token.Lexeme }
func (rs *RangeStatement) String() string {
	return "range " + rs.Name.Lexeme + " from " + rs.From.String() + " to " + rs.To.String() + " " + rs.Body.String()
}

func joinLexemes(tokens []lexer.Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Lexeme
	}
	return strings.Join(parts, ", ")
}
