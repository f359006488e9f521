package parser

import (
	"fmt"

	"github.com/sambeau/filtr/pkg/filtr/ast"
	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
	"github.com/sambeau/filtr/pkg/filtr/lexer"
)

// maxArgs caps parameter and argument lists.
const maxArgs = 255

// bailout unwinds the parser to the nearest declaration boundary.
type bailout struct{}

// statementStarts are the tokens synchronize stops in front of.
var statementStarts = map[lexer.TokenType]bool{
	lexer.FOR:      true,
	lexer.IF:       true,
	lexer.WHILE:    true,
	lexer.PRINT:    true,
	lexer.RETURN:   true,
	lexer.SET:      true,
	lexer.FUNCTION: true,
	lexer.USE:      true,
	lexer.IMPORT:   true,
	lexer.EXPORT:   true,
	lexer.SAVE:     true,
	lexer.VIEW:     true,
	lexer.REVIEW:   true,
	lexer.RENAME:   true,
	lexer.DROP:     true,
	lexer.ADD:      true,
	lexer.FILL:     true,
	lexer.FILTER:   true,
	lexer.RANGE:    true,
}

// comparisonOps are accepted in the where clause of filter and fill.
var comparisonOps = []lexer.TokenType{
	lexer.EQUAL_EQUAL, lexer.EQUAL, lexer.BANG_EQUAL,
	lexer.LESS, lexer.LESS_EQUAL, lexer.GREATER, lexer.GREATER_EQUAL,
}

// Parser is a recursive-descent parser over a fully scanned token slice.
type Parser struct {
	tokens  []lexer.Token
	current int

	// statementLevel is set while parsing the operands an assignment may
	// follow; '=' compares everywhere else.
	statementLevel bool

	structuredErrors []*perrors.FiltrError
}

// New creates a parser reading every token from l.
func New(l *lexer.Lexer) *Parser {
	var tokens []lexer.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == lexer.EOF {
			break
		}
	}
	return NewFromTokens(tokens)
}

// NewFromTokens creates a parser over tokens, which must end with EOF.
func NewFromTokens(tokens []lexer.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.EOF {
		tokens = append(tokens, lexer.Token{Type: lexer.EOF})
	}
	return &Parser{tokens: tokens}
}

// Parse scans and parses input. Lexer errors come first in the returned
// slice, followed by parser errors in source order.
func Parse(input string) (*ast.Program, []*perrors.FiltrError) {
	var errs []*perrors.FiltrError
	l := lexer.New(input, func(line, column int, code string) {
		errs = append(errs, perrors.NewWithPosition(code, line, column, nil))
	})
	p := New(l)
	program := p.ParseProgram()
	return program, append(errs, p.StructuredErrors()...)
}

// Errors returns parser errors as formatted strings.
func (p *Parser) Errors() []string {
	result := make([]string, len(p.structuredErrors))
	for i, err := range p.structuredErrors {
		result[i] = fmt.Sprintf("line %d, column %d: %s", err.Line, err.Column, err.Message)
	}
	return result
}

// StructuredErrors returns parser errors as structured FiltrError objects.
func (p *Parser) StructuredErrors() []*perrors.FiltrError {
	return p.structuredErrors
}

// ParseProgram parses declarations until EOF. Declarations that fail to
// parse are dropped from the result.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}
	for !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}
	return program
}

// ============================================================================
// Token helpers
// ============================================================================

func (p *Parser) peek() lexer.Token     { return p.tokens[p.current] }
func (p *Parser) previous() lexer.Token { return p.tokens[p.current-1] }
func (p *Parser) isAtEnd() bool         { return p.peek().Type == lexer.EOF }

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(tt lexer.TokenType) bool {
	return p.peek().Type == tt
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, tt := range types {
		if p.check(tt) {
			p.advance()
			return true
		}
	}
	return false
}

// consume advances past a token of type tt or fails with "Expect <expected>."
func (p *Parser) consume(tt lexer.TokenType, expected string) lexer.Token {
	if p.check(tt) {
		return p.advance()
	}
	panic(p.fail(p.peek(), "PARSE-0001", map[string]any{"Expected": expected}))
}

// consumeName accepts an identifier or a keyword used as a name, so columns
// may be called things like rows or from.
func (p *Parser) consumeName(expected string) lexer.Token {
	tok := p.peek()
	if tok.Type == lexer.IDENT || isKeyword(tok.Type) {
		return p.advance()
	}
	panic(p.fail(tok, "PARSE-0001", map[string]any{"Expected": expected}))
}

func isKeyword(tt lexer.TokenType) bool {
	return tt >= lexer.AND
}

// report records an error without unwinding.
func (p *Parser) report(tok lexer.Token, code string, data map[string]any) {
	p.structuredErrors = append(p.structuredErrors,
		perrors.NewWithPosition(code, tok.Line, tok.Column, data))
}

// fail records an error and returns the sentinel for the caller to panic with.
func (p *Parser) fail(tok lexer.Token, code string, data map[string]any) bailout {
	p.report(tok, code, data)
	return bailout{}
}

// synchronize discards tokens until just past a semicolon or just before a
// statement keyword.
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Type == lexer.SEMICOLON {
			return
		}
		if statementStarts[p.peek().Type] {
			return
		}
		p.advance()
	}
}

// ============================================================================
// Declarations
// ============================================================================

func (p *Parser) declaration() (stmt ast.Statement) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()

	switch {
	case p.match(lexer.FUNCTION):
		return p.functionDeclaration()
	case p.match(lexer.USE, lexer.IMPORT):
		return p.importDeclaration()
	}
	return p.statement()
}

func (p *Parser) functionDeclaration() *ast.FunctionStatement {
	fn := &ast.FunctionStatement{Token: p.previous()}
	fn.Name = p.consume(lexer.IDENT, "function name")
	p.consume(lexer.LPAREN, "'(' after function name")
	if !p.check(lexer.RPAREN) {
		for {
			if len(fn.Params) >= maxArgs {
				p.report(p.peek(), "PARSE-0004", map[string]any{"What": "parameters"})
			}
			fn.Params = append(fn.Params, p.consume(lexer.IDENT, "parameter name"))
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	p.consume(lexer.RPAREN, "')' after parameters")
	p.consume(lexer.LBRACE, "'{' before function body")
	fn.Body = p.block()
	return fn
}

func (p *Parser) importDeclaration() *ast.ImportStatement {
	stmt := &ast.ImportStatement{Token: p.previous()}
	stmt.Path = p.consume(lexer.STRING, "dataset path after '"+stmt.Token.Lexeme+"'")
	p.consume(lexer.AS, "'as' after dataset path")
	stmt.Alias = p.consume(lexer.IDENT, "dataset name after 'as'")
	p.consume(lexer.SEMICOLON, "';' after import")
	return stmt
}

// ============================================================================
// Statements
// ============================================================================

func (p *Parser) statement() ast.Statement {
	switch {
	case p.match(lexer.FOR):
		return p.forStatement()
	case p.match(lexer.SET):
		return p.setStatement()
	case p.match(lexer.DROP):
		return p.dropStatement()
	case p.match(lexer.ADD):
		return p.addStatement()
	case p.match(lexer.EXPORT, lexer.SAVE):
		return p.exportStatement()
	case p.match(lexer.VIEW):
		return &ast.ViewStatement{Token: p.previous(), Dataset: p.datasetName(";")}
	case p.match(lexer.REVIEW):
		return &ast.ReviewStatement{Token: p.previous(), Dataset: p.datasetName(";")}
	case p.match(lexer.RENAME):
		return p.renameStatement()
	case p.match(lexer.FILL):
		return p.fillStatement()
	case p.match(lexer.FILTER):
		return p.filterStatement()
	case p.match(lexer.RANGE):
		return p.rangeStatement()
	case p.match(lexer.WHILE):
		return p.whileStatement()
	case p.match(lexer.IF):
		return p.ifStatement()
	case p.match(lexer.PRINT):
		return p.printStatement()
	case p.match(lexer.RETURN):
		return p.returnStatement()
	case p.match(lexer.LBRACE):
		return p.block()
	}
	return p.expressionStatement()
}

// datasetName parses `IDENT ;` for the single-operand statements.
func (p *Parser) datasetName(terminator string) lexer.Token {
	keyword := p.previous().Lexeme
	name := p.consume(lexer.IDENT, "dataset name after '"+keyword+"'")
	p.consume(lexer.SEMICOLON, "'"+terminator+"' after dataset name")
	return name
}

func (p *Parser) forStatement() *ast.ForStatement {
	stmt := &ast.ForStatement{Token: p.previous()}
	p.consume(lexer.EACH, "'each' after 'for'")
	if !p.match(lexer.ROW, lexer.COLUMN) {
		panic(p.fail(p.peek(), "PARSE-0001", map[string]any{"Expected": "'row' or 'column' after 'each'"}))
	}
	stmt.Kind = p.previous()
	stmt.Name = stmt.Kind
	if p.check(lexer.IDENT) {
		stmt.Name = p.advance()
	}
	p.consume(lexer.IN, "'in' after loop variable")
	stmt.Dataset = p.consume(lexer.IDENT, "dataset name after 'in'")
	p.consume(lexer.LBRACE, "'{' before loop body")
	stmt.Body = p.block()
	return stmt
}

func (p *Parser) setStatement() *ast.SetStatement {
	stmt := &ast.SetStatement{Token: p.previous()}
	stmt.Name = p.consume(lexer.IDENT, "variable name after 'set'")
	p.consume(lexer.EQUAL, "'=' after variable name")
	stmt.Value = p.expression()
	p.consume(lexer.SEMICOLON, "';' after value")
	return stmt
}

func (p *Parser) dropStatement() *ast.DropStatement {
	stmt := &ast.DropStatement{Token: p.previous()}
	p.consume(lexer.COLUMNS, "'columns' after 'drop'")
	for {
		stmt.Columns = append(stmt.Columns, p.consumeName("column name"))
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.consume(lexer.FROM, "'from' after column names")
	stmt.Dataset = p.consume(lexer.IDENT, "dataset name after 'from'")
	p.consume(lexer.SEMICOLON, "';' after drop")
	return stmt
}

// qualifiedColumn parses `dataset . column`.
func (p *Parser) qualifiedColumn() (lexer.Token, lexer.Token) {
	dataset := p.consume(lexer.IDENT, "dataset name")
	p.consume(lexer.DOT, "'.' after dataset name")
	column := p.consumeName("column name after '.'")
	return dataset, column
}

func (p *Parser) addStatement() *ast.AddColumnStatement {
	stmt := &ast.AddColumnStatement{Token: p.previous()}
	p.consume(lexer.COLUMN, "'column' after 'add'")
	stmt.Dataset, stmt.Column = p.qualifiedColumn()
	p.consume(lexer.EQUAL, "'=' after column name")
	stmt.Value = p.expression()
	p.consume(lexer.SEMICOLON, "';' after value")
	return stmt
}

func (p *Parser) exportStatement() *ast.ExportStatement {
	stmt := &ast.ExportStatement{Token: p.previous()}
	stmt.Dataset = p.consume(lexer.IDENT, "dataset name after '"+stmt.Token.Lexeme+"'")
	p.consume(lexer.TO, "'to' after dataset name")
	stmt.Dir = p.consume(lexer.STRING, "directory path after 'to'")
	p.consume(lexer.AS, "'as' after directory path")
	// Formats other than csv and json are plain names checked at runtime.
	if !p.match(lexer.CSV, lexer.JSON, lexer.IDENT) {
		panic(p.fail(p.peek(), "PARSE-0001", map[string]any{"Expected": "export format after 'as'"}))
	}
	stmt.Format = p.previous()
	p.consume(lexer.SEMICOLON, "';' after export")
	return stmt
}

func (p *Parser) renameStatement() *ast.RenameStatement {
	stmt := &ast.RenameStatement{Token: p.previous()}
	stmt.Dataset, stmt.Column = p.qualifiedColumn()
	p.consume(lexer.TO, "'to' after column name")
	stmt.NewName = p.consume(lexer.STRING, "new column name after 'to'")
	p.consume(lexer.SEMICOLON, "';' after rename")
	return stmt
}

// condition parses the `CMP expression` tail of a where clause.
func (p *Parser) condition(cond *ast.Condition) *ast.Condition {
	if !p.match(comparisonOps...) {
		panic(p.fail(p.peek(), "PARSE-0005", nil))
	}
	cond.Operator = p.previous()
	cond.Value = p.expression()
	return cond
}

func (p *Parser) fillStatement() *ast.FillStatement {
	stmt := &ast.FillStatement{Token: p.previous()}
	if !p.match(lexer.BLANKS, lexer.MISSING) {
		panic(p.fail(p.peek(), "PARSE-0001", map[string]any{"Expected": "'blanks' or 'missing' after 'fill'"}))
	}
	stmt.Mode = p.previous()
	p.consume(lexer.IN, "'in' after '"+stmt.Mode.Lexeme+"'")
	stmt.Dataset, stmt.Column = p.qualifiedColumn()
	p.consume(lexer.WITH, "'with' after column name")
	stmt.Value = p.expression()
	if p.match(lexer.WHERE) {
		cond := &ast.Condition{}
		cond.Dataset, cond.Column = p.qualifiedColumn()
		stmt.Where = p.condition(cond)
	}
	p.consume(lexer.SEMICOLON, "';' after fill")
	return stmt
}

func (p *Parser) filterStatement() *ast.FilterStatement {
	stmt := &ast.FilterStatement{Token: p.previous()}
	stmt.Dataset = p.consume(lexer.IDENT, "dataset name after 'filter'")
	p.consume(lexer.WHERE, "'where' after dataset name")
	cond := &ast.Condition{Column: p.consumeName("column name after 'where'")}
	stmt.Where = p.condition(cond)
	p.consume(lexer.AS, "'as' after filter condition")
	stmt.Alias = p.consume(lexer.IDENT, "dataset name after 'as'")
	p.consume(lexer.SEMICOLON, "';' after filter")
	return stmt
}

func (p *Parser) rangeStatement() *ast.RangeStatement {
	stmt := &ast.RangeStatement{Token: p.previous()}
	stmt.Name = p.consume(lexer.IDENT, "variable name after 'range'")
	p.consume(lexer.FROM, "'from' after range variable")
	stmt.From = p.expression()
	p.consume(lexer.TO, "'to' after range start")
	stmt.To = p.expression()
	p.consume(lexer.LBRACE, "'{' before range body")
	stmt.Body = p.block()
	return stmt
}

func (p *Parser) whileStatement() *ast.WhileStatement {
	stmt := &ast.WhileStatement{Token: p.previous()}
	stmt.Condition = p.expression()
	stmt.Body = p.statement()
	return stmt
}

func (p *Parser) ifStatement() *ast.IfStatement {
	stmt := &ast.IfStatement{Token: p.previous()}
	stmt.Condition = p.expression()
	stmt.Then = p.statement()
	if p.match(lexer.ELSE) {
		stmt.Else = p.statement()
	}
	return stmt
}

func (p *Parser) printStatement() *ast.PrintStatement {
	stmt := &ast.PrintStatement{Token: p.previous()}
	stmt.Expression = p.expression()
	p.consume(lexer.SEMICOLON, "';' after value")
	return stmt
}

func (p *Parser) returnStatement() *ast.ReturnStatement {
	stmt := &ast.ReturnStatement{Token: p.previous()}
	if !p.check(lexer.SEMICOLON) {
		stmt.Value = p.expression()
	}
	p.consume(lexer.SEMICOLON, "';' after return value")
	return stmt
}

// block parses declarations up to the closing brace; the opening brace has
// already been consumed.
func (p *Parser) block() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.previous()}
	for !p.check(lexer.RBRACE) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}
	p.consume(lexer.RBRACE, "'}' after block")
	return block
}

func (p *Parser) expressionStatement() *ast.ExpressionStatement {
	expr := p.assignment()
	p.consume(lexer.SEMICOLON, "';' after expression")
	return &ast.ExpressionStatement{Expression: expr}
}
