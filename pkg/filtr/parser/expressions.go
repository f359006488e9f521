package parser

import (
	"github.com/sambeau/filtr/pkg/filtr/ast"
	"github.com/sambeau/filtr/pkg/filtr/lexer"
)

// expression parses a nested expression, where a single '=' compares.
func (p *Parser) expression() ast.Expression {
	saved := p.statementLevel
	p.statementLevel = false
	defer func() { p.statementLevel = saved }()
	return p.or()
}

// assignment parses the expression of an expression statement, the only
// place '=' assigns. It is right-associative. A bad target is reported but
// parsing carries on with the left-hand side.
func (p *Parser) assignment() ast.Expression {
	expr := p.assignable()

	if p.match(lexer.EQUAL) {
		equals := p.previous()
		value := p.assignment()

		switch target := expr.(type) {
		case *ast.Variable:
			return &ast.Assign{Name: target.Name, Value: value}
		case *ast.Get:
			return &ast.Set{Object: target.Object, Name: target.Name, Value: value}
		}
		p.report(equals, "PARSE-0003", nil)
	}

	return expr
}

// assignable parses the left-hand side of a possible assignment, leaving a
// top-level '=' for assignment to consume.
func (p *Parser) assignable() ast.Expression {
	saved := p.statementLevel
	p.statementLevel = true
	defer func() { p.statementLevel = saved }()
	return p.or()
}

func (p *Parser) or() ast.Expression {
	expr := p.and()
	for p.match(lexer.OR) {
		op := p.previous()
		expr = &ast.Logical{Left: expr, Operator: op, Right: p.and()}
	}
	return expr
}

func (p *Parser) and() ast.Expression {
	expr := p.equality()
	for p.match(lexer.AND) {
		op := p.previous()
		expr = &ast.Logical{Left: expr, Operator: op, Right: p.equality()}
	}
	return expr
}

// binaryLevel parses a left-associative run of operators drawn from ops.
func (p *Parser) binaryLevel(next func() ast.Expression, ops ...lexer.TokenType) ast.Expression {
	expr := next()
	for p.match(ops...) {
		op := p.previous()
		expr = &ast.Binary{Left: expr, Operator: op, Right: next()}
	}
	return expr
}

func (p *Parser) equality() ast.Expression {
	if p.statementLevel {
		return p.binaryLevel(p.comparison, lexer.BANG_EQUAL, lexer.EQUAL_EQUAL)
	}
	return p.binaryLevel(p.comparison, lexer.BANG_EQUAL, lexer.EQUAL_EQUAL, lexer.EQUAL)
}

func (p *Parser) comparison() ast.Expression {
	return p.binaryLevel(p.term, lexer.GREATER, lexer.GREATER_EQUAL, lexer.LESS, lexer.LESS_EQUAL)
}

func (p *Parser) term() ast.Expression {
	return p.binaryLevel(p.factor, lexer.MINUS, lexer.PLUS)
}

func (p *Parser) factor() ast.Expression {
	return p.binaryLevel(p.unary, lexer.SLASH, lexer.STAR)
}

func (p *Parser) unary() ast.Expression {
	if p.match(lexer.BANG, lexer.NOT, lexer.MINUS) {
		op := p.previous()
		return &ast.Unary{Operator: op, Right: p.unary()}
	}
	return p.call()
}

func (p *Parser) call() ast.Expression {
	expr := p.primary()
	for {
		switch {
		case p.match(lexer.LPAREN):
			expr = p.finishCall(expr)
		case p.match(lexer.DOT):
			name := p.consumeName("property name after '.'")
			expr = &ast.Get{Object: expr, Name: name}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expression) ast.Expression {
	var args []ast.Expression
	if !p.check(lexer.RPAREN) {
		for {
			if len(args) >= maxArgs {
				p.report(p.peek(), "PARSE-0004", map[string]any{"What": "arguments"})
			}
			args = append(args, p.expression())
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	paren := p.consume(lexer.RPAREN, "')' after arguments")
	return &ast.Call{Callee: callee, Paren: paren, Arguments: args}
}

func (p *Parser) primary() ast.Expression {
	tok := p.peek()
	switch tok.Type {
	case lexer.FALSE:
		p.advance()
		return &ast.Literal{Token: tok, Value: false}
	case lexer.TRUE:
		p.advance()
		return &ast.Literal{Token: tok, Value: true}
	case lexer.NULL:
		p.advance()
		return &ast.Literal{Token: tok, Value: nil}
	case lexer.NUMBER, lexer.STRING:
		p.advance()
		return &ast.Literal{Token: tok, Value: tok.Literal}
	case lexer.IDENT, lexer.ROW, lexer.COLUMN:
		p.advance()
		return &ast.Variable{Name: tok}
	case lexer.LPAREN:
		p.advance()
		expr := p.expression()
		p.consume(lexer.RPAREN, "')' after expression")
		return &ast.Grouping{Token: tok, Expression: expr}
	}
	panic(p.fail(tok, "PARSE-0002", nil))
}
