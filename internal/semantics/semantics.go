package semantics

import (
	"fmt"
	"math"
	"strings"

	"itmoscript/internal/object"
)

// Truthy maps a value to the boolean used by conditions and logical
// operators: a non-zero Number, a non-empty String or List, and any
// Function are true; Nil is false.
func Truthy(obj object.Object) bool {
	switch v := obj.(type) {
	case *object.Number:
		return v.Value != 0
	case *object.String:
		return v.Value != ""
	case *object.List:
		return len(v.Elements) != 0
	case *object.Function:
		return true
	case *object.Nil:
		return false
	default:
		return true
	}
}

// BinaryOp applies an arithmetic, comparison or equality operator. Logical
// 'and'/'or' live in Logical. The '^' case is reachable only through the
// compound assignment '^='.
func BinaryOp(op string, left, right object.Object) (object.Object, error) {
	switch op {
	case "+":
		return add(left, right)
	case "-":
		return subtract(left, right)
	case "*":
		return multiply(left, right)
	case "/", "%", "^":
		return numericOp(op, left, right)
	case "==", "!=":
		return equality(op, left, right)
	case "<", ">", "<=", ">=":
		return comparison(op, left, right)
	default:
		return nil, fmt.Errorf("Unknown operator '%s' for types %s and %s", op, left.Type(), right.Type())
	}
}

// Logical evaluates 'and'/'or' over the truthiness of both operands. Both
// sides are always evaluated by the caller before this point; there is no
// short-circuit.
func Logical(op string, left, right object.Object) object.Object {
	l, r := Truthy(left), Truthy(right)
	if op == "and" {
		return boolNumber(l && r)
	}
	return boolNumber(l || r)
}

func add(left, right object.Object) (object.Object, error) {
	if isNil(left) || isNil(right) {
		return nil, nilOperandError("+")
	}
	if ln, ok := left.(*object.Number); ok {
		if rn, ok := right.(*object.Number); ok {
			return &object.Number{Value: ln.Value + rn.Value}, nil
		}
	}
	if ls, ok := left.(*object.String); ok {
		if rs, ok := right.(*object.String); ok {
			return &object.String{Value: ls.Value + rs.Value}, nil
		}
	}
	if ll, ok := left.(*object.List); ok {
		if rl, ok := right.(*object.List); ok {
			els := make([]object.Object, 0, len(ll.Elements)+len(rl.Elements))
			els = append(els, ll.Elements...)
			els = append(els, rl.Elements...)
			return &object.List{Elements: els}, nil
		}
	}
	return nil, typePairError("+", left, right)
}

func subtract(left, right object.Object) (object.Object, error) {
	if isNil(left) || isNil(right) {
		return nil, nilOperandError("-")
	}
	if ln, ok := left.(*object.Number); ok {
		if rn, ok := right.(*object.Number); ok {
			return &object.Number{Value: ln.Value - rn.Value}, nil
		}
	}
	if ls, ok := left.(*object.String); ok {
		if rs, ok := right.(*object.String); ok {
			// String subtraction strips the suffix if present, else the
			// left string is returned unchanged.
			return &object.String{Value: strings.TrimSuffix(ls.Value, rs.Value)}, nil
		}
	}
	return nil, typePairError("-", left, right)
}

func multiply(left, right object.Object) (object.Object, error) {
	if ln, ok := left.(*object.Number); ok {
		if rn, ok := right.(*object.Number); ok {
			return &object.Number{Value: ln.Value * rn.Value}, nil
		}
	}

	if s, n, ok := stringNumberPair(left, right); ok {
		if n < 0 {
			return nil, fmt.Errorf("Cannot multiply string by negative number")
		}
		return &object.String{Value: strings.Repeat(s, int(n))}, nil
	}

	if l, n, ok := listNumberPair(left, right); ok {
		if n < 0 {
			return nil, fmt.Errorf("Cannot multiply list by negative number")
		}
		count := int(n)
		els := make([]object.Object, 0, len(l.Elements)*count)
		for i := 0; i < count; i++ {
			els = append(els, l.Elements...)
		}
		return &object.List{Elements: els}, nil
	}

	return nil, typePairError("*", left, right)
}

func numericOp(op string, left, right object.Object) (object.Object, error) {
	if isNil(left) || isNil(right) {
		return nil, nilOperandError(op)
	}
	ln, lok := left.(*object.Number)
	rn, rok := right.(*object.Number)
	if !lok || !rok {
		return nil, typePairError(op, left, right)
	}

	switch op {
	case "/":
		if rn.Value == 0 {
			return nil, fmt.Errorf("Division by zero")
		}
		return &object.Number{Value: ln.Value / rn.Value}, nil
	case "%":
		if rn.Value == 0 {
			return nil, fmt.Errorf("Modulo by zero")
		}
		return &object.Number{Value: math.Mod(ln.Value, rn.Value)}, nil
	default: // "^"
		return &object.Number{Value: math.Pow(ln.Value, rn.Value)}, nil
	}
}

func equality(op string, left, right object.Object) (object.Object, error) {
	if isNil(left) && isNil(right) {
		return boolNumber(op == "=="), nil
	}
	if isNil(left) || isNil(right) {
		return boolNumber(op == "!="), nil
	}
	if ln, ok := left.(*object.Number); ok {
		if rn, ok := right.(*object.Number); ok {
			if op == "==" {
				return boolNumber(ln.Value == rn.Value), nil
			}
			return boolNumber(ln.Value != rn.Value), nil
		}
	}
	if ls, ok := left.(*object.String); ok {
		if rs, ok := right.(*object.String); ok {
			if op == "==" {
				return boolNumber(ls.Value == rs.Value), nil
			}
			return boolNumber(ls.Value != rs.Value), nil
		}
	}
	return nil, fmt.Errorf("Operator '%s' cannot compare types %s and %s", op, left.Type(), right.Type())
}

func comparison(op string, left, right object.Object) (object.Object, error) {
	if isNil(left) || isNil(right) {
		return nil, nilOperandError(op)
	}
	if ln, ok := left.(*object.Number); ok {
		if rn, ok := right.(*object.Number); ok {
			return boolNumber(compareFloats(op, ln.Value, rn.Value)), nil
		}
	}
	if ls, ok := left.(*object.String); ok {
		if rs, ok := right.(*object.String); ok {
			return boolNumber(compareStrings(op, ls.Value, rs.Value)), nil
		}
	}
	return nil, typePairError(op, left, right)
}

func compareFloats(op string, l, r float64) bool {
	switch op {
	case "<":
		return l < r
	case ">":
		return l > r
	case "<=":
		return l <= r
	default:
		return l >= r
	}
}

func compareStrings(op string, l, r string) bool {
	switch op {
	case "<":
		return l < r
	case ">":
		return l > r
	case "<=":
		return l <= r
	default:
		return l >= r
	}
}

func stringNumberPair(left, right object.Object) (string, float64, bool) {
	if ls, ok := left.(*object.String); ok {
		if rn, ok := right.(*object.Number); ok {
			return ls.Value, rn.Value, true
		}
	}
	if rs, ok := right.(*object.String); ok {
		if ln, ok := left.(*object.Number); ok {
			return rs.Value, ln.Value, true
		}
	}
	return "", 0, false
}

func listNumberPair(left, right object.Object) (*object.List, float64, bool) {
	if ll, ok := left.(*object.List); ok {
		if rn, ok := right.(*object.Number); ok {
			return ll, rn.Value, true
		}
	}
	if rl, ok := right.(*object.List); ok {
		if ln, ok := left.(*object.Number); ok {
			return rl, ln.Value, true
		}
	}
	return nil, 0, false
}

func boolNumber(b bool) *object.Number {
	if b {
		return &object.Number{Value: 1}
	}
	return &object.Number{Value: 0}
}

func isNil(obj object.Object) bool {
	_, ok := obj.(*object.Nil)
	return ok
}

func nilOperandError(op string) error {
	return fmt.Errorf("Operator '%s' cannot be applied if an operand is Nil", op)
}

func typePairError(op string, left, right object.Object) error {
	return fmt.Errorf("Operator '%s' cannot be applied to types %s and %s", op, left.Type(), right.Type())
}
