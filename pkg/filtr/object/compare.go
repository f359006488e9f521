package object

import (
	"math"
	"strconv"
	"strings"

	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
)

// IsTruthy reports whether o counts as true: everything but null and false.
func IsTruthy(o Object) bool {
	switch o := o.(type) {
	case *Null:
		return false
	case *Boolean:
		return o.Value
	}
	return true
}

// ToFloat returns the numeric value of an Integer or Number.
func ToFloat(o Object) (float64, bool) {
	switch o := o.(type) {
	case *Integer:
		return float64(o.Value), true
	case *Number:
		return o.Value, true
	}
	return 0, false
}

// Cleanup normalizes a value before it is stored in a cell: whole numbers
// become integers and the string "NULL" becomes null.
func Cleanup(o Object) Object {
	switch v := o.(type) {
	case nil:
		return NULL
	case *Number:
		if v.Value == math.Trunc(v.Value) && !math.IsInf(v.Value, 0) &&
			v.Value >= math.MinInt64 && v.Value < math.MaxInt64 {
			return &Integer{Value: int64(v.Value)}
		}
	case *String:
		if v.Value == "NULL" {
			return NULL
		}
	}
	return o
}

// Coerce promotes a string that reads as a number to a number. Anything
// else is returned unchanged.
func Coerce(o Object) Object {
	s, ok := o.(*String)
	if !ok {
		return o
	}
	text := strings.TrimSpace(s.Value)
	if !strings.ContainsAny(text, "0123456789") {
		return o
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return o
	}
	return &Number{Value: f}
}

// Compare orders two values after coercion. Numbers compare numerically,
// values of the same kind by their natural order, and anything else by
// the text of their string forms.
func Compare(a, b Object) int {
	a, b = Coerce(a), Coerce(b)

	if x, ok := ToFloat(a); ok {
		if y, ok := ToFloat(b); ok {
			return compareFloats(x, y)
		}
	}

	switch x := a.(type) {
	case *String:
		if y, ok := b.(*String); ok {
			return strings.Compare(x.Value, y.Value)
		}
	case *Boolean:
		if y, ok := b.(*Boolean); ok {
			return compareBools(x.Value, y.Value)
		}
	case *Date:
		if y, ok := b.(*Date); ok {
			return x.Value.Compare(y.Value)
		}
	case *Null:
		if _, ok := b.(*Null); ok {
			return 0
		}
	}

	return strings.Compare(a.Inspect(), b.Inspect())
}

func compareFloats(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func compareBools(x, y bool) int {
	switch {
	case x == y:
		return 0
	case !x:
		return -1
	}
	return 1
}

// Operator is a comparison operator usable in filter and fill conditions.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
)

// ParseOperator accepts the spellings of comparison operators. A single "="
// means equality.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "==", "=":
		return OpEqual, nil
	case "!=":
		return OpNotEqual, nil
	case "<":
		return OpLess, nil
	case "<=":
		return OpLessEqual, nil
	case ">":
		return OpGreater, nil
	case ">=":
		return OpGreaterEqual, nil
	}
	return "", perrors.New("OP-0001", map[string]any{"Op": s})
}

// Test applies op to Compare(a, b).
func (op Operator) Test(a, b Object) bool {
	c := Compare(a, b)
	switch op {
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	case OpLess:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreater:
		return c > 0
	case OpGreaterEqual:
		return c >= 0
	}
	return false
}

// Equal is the structural equality behind == and !=. Values of different
// kinds are never equal; integers and numbers are the same kind.
func Equal(a, b Object) bool {
	if x, ok := ToFloat(a); ok {
		y, ok := ToFloat(b)
		return ok && x == y
	}

	switch x := a.(type) {
	case *Null:
		_, ok := b.(*Null)
		return ok
	case *Boolean:
		y, ok := b.(*Boolean)
		return ok && x.Value == y.Value
	case *String:
		y, ok := b.(*String)
		return ok && x.Value == y.Value
	case *Date:
		y, ok := b.(*Date)
		return ok && x.Value.Equal(y.Value)
	case *Column:
		y, ok := b.(*Column)
		if !ok || len(x.Values) != len(y.Values) {
			return false
		}
		for i := range x.Values {
			if !Equal(x.Values[i], y.Values[i]) {
				return false
			}
		}
		return true
	case *Row:
		y, ok := b.(*Row)
		return ok && x.table == y.table && x.index == y.index
	}
	return a == b
}
