// Package object defines the runtime values of filtr: scalars, datasets,
// column vectors, live rows and user functions, plus the environments that
// bind them to names.
package object

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sambeau/filtr/pkg/filtr/ast"
)

// ObjectType tags every runtime value.
type ObjectType string

const (
	NULL_OBJ     ObjectType = "NULL"
	BOOLEAN_OBJ  ObjectType = "BOOLEAN"
	INTEGER_OBJ  ObjectType = "INTEGER"
	NUMBER_OBJ   ObjectType = "NUMBER"
	STRING_OBJ   ObjectType = "STRING"
	DATE_OBJ     ObjectType = "DATE"
	TABLE_OBJ    ObjectType = "TABLE"
	COLUMN_OBJ   ObjectType = "COLUMN"
	ROW_OBJ      ObjectType = "ROW"
	FUNCTION_OBJ ObjectType = "FUNCTION"
)

// Object is implemented by every runtime value. Inspect returns the form
// written by print.
type Object interface {
	Type() ObjectType
	Inspect() string
}

// Null is the absent value.
type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "nil" }

// Boolean wraps a bool.
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

// Integer is a whole number stored in a cell after numeric cleanup or type
// inference. It behaves as a number everywhere.
type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

// Number is a double-precision number.
type Number struct {
	Value float64
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Inspect() string  { return FormatNumber(n.Value) }

// String wraps text.
type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

// Date is an ISO-8601 date or timestamp inferred from a dataset cell. Text
// keeps the original spelling so exports reproduce the input.
type Date struct {
	Value time.Time
	Text  string
}

func (d *Date) Type() ObjectType { return DATE_OBJ }
func (d *Date) Inspect() string  { return d.Text }

// Column is the ordered values of one dataset column, produced by table.name.
type Column struct {
	Name   string
	Values []Object
}

func (c *Column) Type() ObjectType { return COLUMN_OBJ }
func (c *Column) Inspect() string {
	parts := make([]string, len(c.Values))
	for i, v := range c.Values {
		parts[i] = v.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Function is a user-defined function with the scope it was declared in.
type Function struct {
	Declaration *ast.FunctionStatement
	Closure     *Environment
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string  { return "<fn " + f.Declaration.Name.Lexeme + ">" }

// Arity is the number of declared parameters.
func (f *Function) Arity() int { return len(f.Declaration.Params) }

// Singletons for values without identity.
var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// NativeBool converts a Go bool to the shared Boolean instance.
func NativeBool(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

// FormatNumber renders a float the way print shows it: whole values without
// a fraction, non-finite values as Infinity, -Infinity and NaN.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TypeName returns the user-facing kind of a value.
func TypeName(o Object) string {
	switch o.Type() {
	case NULL_OBJ:
		return "null"
	case BOOLEAN_OBJ:
		return "boolean"
	case INTEGER_OBJ, NUMBER_OBJ:
		return "number"
	case STRING_OBJ:
		return "string"
	case DATE_OBJ:
		return "date"
	case TABLE_OBJ:
		return "dataset"
	case COLUMN_OBJ:
		return "column"
	case ROW_OBJ:
		return "row"
	case FUNCTION_OBJ:
		return "function"
	}
	return strings.ToLower(string(o.Type()))
}

// FromLiteral converts a parsed literal to a runtime value.
func FromLiteral(v any) Object {
	switch v := v.(type) {
	case bool:
		return NativeBool(v)
	case float64:
		return &Number{Value: v}
	case string:
		return &String{Value: v}
	}
	return NULL
}
