package evaluator

import (
	"fmt"

	"github.com/sambeau/filtr/pkg/filtr/ast"
	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
	"github.com/sambeau/filtr/pkg/filtr/lexer"
	"github.com/sambeau/filtr/pkg/filtr/object"
)

func (e *Evaluator) eval(expr ast.Expression, env *object.Environment) (object.Object, error) {
	switch x := expr.(type) {
	case *ast.Literal:
		return object.FromLiteral(x.Value), nil

	case *ast.Grouping:
		return e.eval(x.Expression, env)

	case *ast.Variable:
		return lookup(x.Name, env)

	case *ast.Assign:
		v, err := e.eval(x.Value, env)
		if err != nil {
			return nil, err
		}
		if !env.Assign(x.Name.Lexeme, v) {
			return nil, undefined(x.Name, env)
		}
		return v, nil

	case *ast.Unary:
		right, err := e.eval(x.Right, env)
		if err != nil {
			return nil, err
		}
		return unary(x.Operator, right)

	case *ast.Binary:
		left, err := e.eval(x.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(x.Right, env)
		if err != nil {
			return nil, err
		}
		return binary(x.Operator, left, right)

	case *ast.Logical:
		left, err := e.eval(x.Left, env)
		if err != nil {
			return nil, err
		}
		if x.Operator.Type == lexer.OR {
			if object.IsTruthy(left) {
				return left, nil
			}
		} else if !object.IsTruthy(left) {
			return left, nil
		}
		return e.eval(x.Right, env)

	case *ast.Call:
		return e.call(x, env)

	case *ast.Get:
		obj, err := e.eval(x.Object, env)
		if err != nil {
			return nil, err
		}
		return get(obj, x.Name)

	case *ast.Set:
		obj, err := e.eval(x.Object, env)
		if err != nil {
			return nil, err
		}
		row, ok := obj.(*object.Row)
		if !ok {
			return nil, fail(x.Name, "TYPE-0007", nil)
		}
		v, err := e.eval(x.Value, env)
		if err != nil {
			return nil, err
		}
		stored, err := row.Set(x.Name.Lexeme, v)
		if err != nil {
			return nil, at(x.Name, err)
		}
		return stored, nil
	}
	return nil, fmt.Errorf("unknown expression %T", expr)
}

func lookup(name lexer.Token, env *object.Environment) (object.Object, error) {
	if v, ok := env.Get(name.Lexeme); ok {
		return v, nil
	}
	return nil, undefined(name, env)
}

func undefined(name lexer.Token, env *object.Environment) error {
	return perrors.NewUndefinedVariable(name.Lexeme, env.Names()).WithPosition(name.Line, name.Column)
}

func unary(op lexer.Token, right object.Object) (object.Object, error) {
	switch op.Type {
	case lexer.MINUS:
		f, ok := object.ToFloat(right)
		if !ok {
			return nil, fail(op, "TYPE-0001", nil)
		}
		return &object.Number{Value: -f}, nil
	case lexer.BANG, lexer.NOT:
		return object.NativeBool(!object.IsTruthy(right)), nil
	}
	return nil, fail(op, "OP-0001", map[string]any{"Op": op.Lexeme})
}

func binary(op lexer.Token, left, right object.Object) (object.Object, error) {
	switch op.Type {
	case lexer.EQUAL_EQUAL, lexer.EQUAL:
		return object.NativeBool(object.Equal(left, right)), nil
	case lexer.BANG_EQUAL:
		return object.NativeBool(!object.Equal(left, right)), nil
	case lexer.PLUS:
		if l, ok := left.(*object.String); ok {
			if r, ok := right.(*object.String); ok {
				return &object.String{Value: l.Value + r.Value}, nil
			}
		}
		x, y, ok := numbers(left, right)
		if !ok {
			return nil, fail(op, "TYPE-0003", nil)
		}
		return &object.Number{Value: x + y}, nil
	}

	x, y, ok := numbers(left, right)
	if !ok {
		return nil, fail(op, "TYPE-0002", nil)
	}
	switch op.Type {
	case lexer.MINUS:
		return &object.Number{Value: x - y}, nil
	case lexer.STAR:
		return &object.Number{Value: x * y}, nil
	case lexer.SLASH:
		return &object.Number{Value: x / y}, nil
	case lexer.GREATER:
		return object.NativeBool(x > y), nil
	case lexer.GREATER_EQUAL:
		return object.NativeBool(x >= y), nil
	case lexer.LESS:
		return object.NativeBool(x < y), nil
	case lexer.LESS_EQUAL:
		return object.NativeBool(x <= y), nil
	}
	return nil, fail(op, "OP-0001", map[string]any{"Op": op.Lexeme})
}

func numbers(left, right object.Object) (float64, float64, bool) {
	x, ok := object.ToFloat(left)
	if !ok {
		return 0, 0, false
	}
	y, ok := object.ToFloat(right)
	return x, y, ok
}

func get(obj object.Object, name lexer.Token) (object.Object, error) {
	switch o := obj.(type) {
	case *object.Table:
		col, err := o.ColumnValues(name.Lexeme)
		if err != nil {
			return nil, at(name, err)
		}
		return col, nil
	case *object.Row:
		v, err := o.Get(name.Lexeme)
		if err != nil {
			return nil, at(name, err)
		}
		return v, nil
	}
	return nil, fail(name, "TYPE-0006", nil)
}

func (e *Evaluator) call(c *ast.Call, env *object.Environment) (object.Object, error) {
	callee, err := e.eval(c.Callee, env)
	if err != nil {
		return nil, err
	}
	args := make([]object.Object, len(c.Arguments))
	for i, a := range c.Arguments {
		if args[i], err = e.eval(a, env); err != nil {
			return nil, err
		}
	}

	fn, ok := callee.(*object.Function)
	if !ok {
		return nil, fail(c.Paren, "TYPE-0004", nil)
	}
	if len(args) != fn.Arity() {
		return nil, fail(c.Paren, "ARITY-0001", map[string]any{"Want": fn.Arity(), "Got": len(args)})
	}

	scope := object.NewEnclosedEnvironment(fn.Closure)
	for i, p := range fn.Declaration.Params {
		scope.Define(p.Lexeme, args[i])
	}

	e.depth++
	flow, err := e.executeBlock(fn.Declaration.Body.Statements, scope)
	e.depth--
	if err != nil {
		return nil, err
	}
	if flow.Returning {
		return flow.Value, nil
	}
	return object.NULL, nil
}
