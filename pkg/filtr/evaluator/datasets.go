package evaluator

import (
	"log/slog"
	"math"

	"github.com/sambeau/filtr/pkg/filtr/ast"
	"github.com/sambeau/filtr/pkg/filtr/codec"
	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
	"github.com/sambeau/filtr/pkg/filtr/format"
	"github.com/sambeau/filtr/pkg/filtr/lexer"
	"github.com/sambeau/filtr/pkg/filtr/object"
)

// table fetches the dataset bound to name.
func table(name lexer.Token, env *object.Environment) (*object.Table, error) {
	v, err := lookup(name, env)
	if err != nil {
		return nil, err
	}
	t, ok := v.(*object.Table)
	if !ok {
		return nil, fail(name, "TYPE-0005", map[string]any{"Name": name.Lexeme})
	}
	return t, nil
}

func operator(tok lexer.Token) (object.Operator, error) {
	op, err := object.ParseOperator(tok.Lexeme)
	if err != nil {
		return "", at(tok, err)
	}
	return op, nil
}

func (e *Evaluator) importDataset(s *ast.ImportStatement, env *object.Environment) error {
	path, _ := s.Path.Literal.(string)
	t, err := codec.Import(path, e.codec)
	if err != nil {
		if fe, ok := err.(*perrors.FiltrError); ok {
			return at(s.Path, fe)
		}
		return fail(s.Path, "IO-0001", map[string]any{"Cause": err.Error()})
	}
	env.Define(s.Alias.Lexeme, t)
	return nil
}

func (e *Evaluator) exportDataset(s *ast.ExportStatement, env *object.Environment) error {
	t, err := table(s.Dataset, env)
	if err != nil {
		return err
	}
	dir, _ := s.Dir.Literal.(string)
	if _, err := codec.Export(t, dir, s.Dataset.Lexeme, s.Format.Lexeme, e.codec); err != nil {
		if fe, ok := err.(*perrors.FiltrError); ok {
			return at(s.Format, fe)
		}
		return fail(s.Dir, "IO-0002", map[string]any{"Path": dir, "Cause": err.Error()})
	}
	return nil
}

func (e *Evaluator) view(s *ast.ViewStatement, env *object.Environment) error {
	t, err := table(s.Dataset, env)
	if err != nil {
		return err
	}
	if err := format.View(e.out, t); err != nil {
		return at(s.Token, err)
	}
	return nil
}

func (e *Evaluator) review(s *ast.ReviewStatement, env *object.Environment) error {
	t, err := table(s.Dataset, env)
	if err != nil {
		return err
	}
	if err := format.Review(e.out, s.Dataset.Lexeme, t); err != nil {
		return at(s.Token, err)
	}
	return nil
}

func (e *Evaluator) rename(s *ast.RenameStatement, env *object.Environment) error {
	t, err := table(s.Dataset, env)
	if err != nil {
		return err
	}
	newName, _ := s.NewName.Literal.(string)
	if err := t.Rename(s.Column.Lexeme, newName); err != nil {
		if !t.HasColumn(s.Column.Lexeme) {
			return at(s.Column, err)
		}
		return at(s.NewName, err)
	}
	return nil
}

func (e *Evaluator) drop(s *ast.DropStatement, env *object.Environment) error {
	t, err := table(s.Dataset, env)
	if err != nil {
		return err
	}
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Lexeme
	}
	if err := t.Drop(names); err != nil {
		for _, c := range s.Columns {
			if !t.HasColumn(c.Lexeme) {
				return at(c, err)
			}
		}
		return at(s.Dataset, err)
	}
	return nil
}

// addColumn appends a column. A comparison whose left side is a column of
// the same dataset is evaluated per row; a column value with one entry per
// row is copied element-wise; anything else is broadcast.
func (e *Evaluator) addColumn(s *ast.AddColumnStatement, env *object.Environment) error {
	t, err := table(s.Dataset, env)
	if err != nil {
		return err
	}

	if base, op, rhs, ok := comparison(s.Value, s.Dataset.Lexeme); ok {
		cmp, err := operator(op)
		if err != nil {
			return err
		}
		v, err := e.eval(rhs, env)
		if err != nil {
			return err
		}
		if err := t.AddComparison(s.Column.Lexeme, base.Lexeme, cmp, v); err != nil {
			if !t.HasColumn(base.Lexeme) {
				return at(base, err)
			}
			return at(s.Column, err)
		}
		return nil
	}

	v, err := e.eval(s.Value, env)
	if err != nil {
		return err
	}
	if col, ok := v.(*object.Column); ok && len(col.Values) == t.Len() {
		err = t.AddColumnValues(s.Column.Lexeme, col.Values)
	} else {
		err = t.AddColumn(s.Column.Lexeme, v)
	}
	if err != nil {
		return at(s.Column, err)
	}
	return nil
}

// comparison matches `dataset.base OP rhs`.
func comparison(expr ast.Expression, dataset string) (lexer.Token, lexer.Token, ast.Expression, bool) {
	b, ok := expr.(*ast.Binary)
	if !ok {
		return lexer.Token{}, lexer.Token{}, nil, false
	}
	switch b.Operator.Type {
	case lexer.EQUAL_EQUAL, lexer.EQUAL, lexer.BANG_EQUAL, lexer.LESS, lexer.LESS_EQUAL, lexer.GREATER, lexer.GREATER_EQUAL:
	default:
		return lexer.Token{}, lexer.Token{}, nil, false
	}
	g, ok := b.Left.(*ast.Get)
	if !ok {
		return lexer.Token{}, lexer.Token{}, nil, false
	}
	v, ok := g.Object.(*ast.Variable)
	if !ok || v.Name.Lexeme != dataset {
		return lexer.Token{}, lexer.Token{}, nil, false
	}
	return g.Name, b.Operator, b.Right, true
}

func (e *Evaluator) fill(s *ast.FillStatement, env *object.Environment) error {
	t, err := table(s.Dataset, env)
	if err != nil {
		return err
	}
	v, err := e.eval(s.Value, env)
	if err != nil {
		return err
	}

	mode := object.FillMissing
	if s.Mode.Type == lexer.BLANKS {
		mode = object.FillBlanks
	}

	var cond *object.Condition
	if s.Where != nil {
		if s.Where.Dataset.Lexeme != s.Dataset.Lexeme {
			return fail(s.Where.Dataset, "COL-0001", map[string]any{"Name": s.Where.Dataset.Lexeme + "." + s.Where.Column.Lexeme})
		}
		op, err := operator(s.Where.Operator)
		if err != nil {
			return err
		}
		rhs, err := e.eval(s.Where.Value, env)
		if err != nil {
			return err
		}
		cond = &object.Condition{Column: s.Where.Column.Lexeme, Op: op, Value: rhs}
	}

	n, err := t.Fill(s.Column.Lexeme, mode, v, cond)
	if err != nil {
		if cond != nil && t.HasColumn(s.Column.Lexeme) {
			return at(s.Where.Column, err)
		}
		return at(s.Column, err)
	}
	e.logger.Debug("cells filled",
		slog.String("dataset", s.Dataset.Lexeme),
		slog.String("column", s.Column.Lexeme),
		slog.Int("count", n))
	return nil
}

func (e *Evaluator) filter(s *ast.FilterStatement, env *object.Environment) error {
	t, err := table(s.Dataset, env)
	if err != nil {
		return err
	}
	op, err := operator(s.Where.Operator)
	if err != nil {
		return err
	}
	v, err := e.eval(s.Where.Value, env)
	if err != nil {
		return err
	}
	out, err := t.Filter(s.Where.Column.Lexeme, op, v)
	if err != nil {
		return at(s.Where.Column, err)
	}
	env.Define(s.Alias.Lexeme, out)
	return nil
}

func (e *Evaluator) forEach(s *ast.ForStatement, env *object.Environment) (Flow, error) {
	t, err := table(s.Dataset, env)
	if err != nil {
		return normal, err
	}

	var items []object.Object
	if s.Kind.Type == lexer.COLUMN {
		for _, c := range t.Columns() {
			items = append(items, &object.String{Value: c})
		}
	} else {
		for i := 0; i < t.Len(); i++ {
			items = append(items, t.Row(i))
		}
	}

	for _, item := range items {
		scope := object.NewEnclosedEnvironment(env)
		scope.Define(s.Name.Lexeme, item)
		flow, err := e.executeBlock(s.Body.Statements, scope)
		if err != nil || flow.Returning {
			return flow, err
		}
	}
	return normal, nil
}

func (e *Evaluator) rangeLoop(s *ast.RangeStatement, env *object.Environment) (Flow, error) {
	from, err := e.bound(s.From, s.Token, env)
	if err != nil {
		return normal, err
	}
	to, err := e.bound(s.To, s.Token, env)
	if err != nil {
		return normal, err
	}
	for i := from; i <= to; i++ {
		scope := object.NewEnclosedEnvironment(env)
		scope.Define(s.Name.Lexeme, &object.Number{Value: float64(i)})
		flow, err := e.executeBlock(s.Body.Statements, scope)
		if err != nil || flow.Returning {
			return flow, err
		}
	}
	return normal, nil
}

// maxRangeBound is the largest magnitude a float64 counter holds exactly.
const maxRangeBound = 1 << 53

func (e *Evaluator) bound(expr ast.Expression, tok lexer.Token, env *object.Environment) (int64, error) {
	v, err := e.eval(expr, env)
	if err != nil {
		return 0, err
	}
	f, ok := object.ToFloat(v)
	if !ok || math.IsNaN(f) || math.Abs(f) > maxRangeBound {
		return 0, fail(tok, "TYPE-0008", nil)
	}
	return int64(math.Trunc(f)), nil
}
