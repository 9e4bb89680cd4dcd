package evaluator

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"itmoscript/internal/ast"
	"itmoscript/internal/object"
)

// A builtin receives the unevaluated call node: the list-mutating builtins
// need the bare identifier naming their target, and argument evaluation
// order stays under the builtin's control.
type builtinFn func(in *Interp, call *ast.CallExpression) object.Object

var builtins map[string]builtinFn

func init() {
	builtins = map[string]builtinFn{
		"print":      builtinPrint,
		"println":    builtinPrintln,
		"read":       builtinRead,
		"stacktrace": builtinStacktrace,
		"len":        builtinLen,
		"push":       builtinPush,
		"pop":        builtinPop,
		"insert":     builtinInsert,
		"remove":     builtinRemove,
		"sort":       builtinSort,
		"range":      builtinRange,
		"abs":        mathBuiltin("abs", math.Abs),
		"ceil":       mathBuiltin("ceil", math.Ceil),
		"floor":      mathBuiltin("floor", math.Floor),
		"round":      mathBuiltin("round", math.Round),
		"sqrt":       builtinSqrt,
		"rnd":        builtinRnd,
		"parse_num":  builtinParseNum,
		"to_string":  builtinToString,
		"lower":      builtinLower,
		"upper":      builtinUpper,
		"split":      builtinSplit,
		"join":       builtinJoin,
		"replace":    builtinReplace,
	}
}

func (in *Interp) evalArgs(call *ast.CallExpression) ([]object.Object, object.Object) {
	args := make([]object.Object, 0, len(call.Arguments))
	for _, e := range call.Arguments {
		v := in.eval(e, 0)
		if isError(v) {
			return nil, v
		}
		args = append(args, v)
	}
	return args, nil
}

/* -------------------- output -------------------- */

func builtinPrint(in *Interp, call *ast.CallExpression) object.Object {
	args, errObj := in.evalArgs(call)
	if errObj != nil {
		return errObj
	}
	for _, a := range args {
		fmt.Fprint(in.out, object.Print(a))
	}
	return NIL
}

func builtinPrintln(in *Interp, call *ast.CallExpression) object.Object {
	if res := builtinPrint(in, call); isError(res) {
		return res
	}
	fmt.Fprint(in.out, "\n")
	return NIL
}

/* -------------------- system -------------------- */

func builtinRead(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 0 {
		return in.errorAt(call.Token, "read() expects 0 arguments")
	}
	return &object.String{Value: ""}
}

func builtinStacktrace(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 0 {
		return in.errorAt(call.Token, "stacktrace() expects 0 arguments")
	}
	return &object.List{}
}

/* -------------------- sequences -------------------- */

func builtinLen(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 1 {
		return in.errorAt(call.Token, "len() expects exactly 1 argument")
	}
	arg := in.eval(call.Arguments[0], 0)
	if isError(arg) {
		return arg
	}
	switch v := arg.(type) {
	case *object.String:
		return &object.Number{Value: float64(len(v.Value))}
	case *object.List:
		return &object.Number{Value: float64(len(v.Elements))}
	default:
		return in.errorAt(call.Token, "len() argument must be a string or list")
	}
}

// listTarget resolves the bare-identifier list argument the mutating
// builtins require: the argument must be an identifier bound to a list.
func (in *Interp) listTarget(call *ast.CallExpression, argIdx int, name string) (*object.List, object.Object) {
	ident, ok := call.Arguments[argIdx].(*ast.Identifier)
	if !ok {
		return nil, in.errorAt(call.Token, fmt.Sprintf("%s() only supports lists stored in variables", name))
	}
	bound, ok := in.env.Get(ident.Value)
	if !ok {
		return nil, in.errorAt(ident.Token, fmt.Sprintf("Variable '%s' is not a list or not found for %s()", ident.Value, name))
	}
	list, ok := bound.(*object.List)
	if !ok {
		return nil, in.errorAt(ident.Token, fmt.Sprintf("Variable '%s' is not a list or not found for %s()", ident.Value, name))
	}
	return list, nil
}

func builtinPush(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 2 {
		return in.errorAt(call.Token, "push() expects 2 arguments: list and value")
	}
	item := in.eval(call.Arguments[1], 0)
	if isError(item) {
		return item
	}
	list, errObj := in.listTarget(call, 0, "push")
	if errObj != nil {
		return errObj
	}
	list.Elements = append(list.Elements, item)
	return NIL
}

func builtinPop(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 1 {
		return in.errorAt(call.Token, "pop() expects 1 argument: list")
	}
	list, errObj := in.listTarget(call, 0, "pop")
	if errObj != nil {
		return errObj
	}
	if len(list.Elements) == 0 {
		return in.errorAt(call.Token, "Cannot pop from an empty list")
	}
	last := list.Elements[len(list.Elements)-1]
	list.Elements = list.Elements[:len(list.Elements)-1]
	return last
}

func builtinInsert(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 3 {
		return in.errorAt(call.Token, "insert() expects 3 arguments: list, index, value")
	}
	idx := in.eval(call.Arguments[1], 0)
	if isError(idx) {
		return idx
	}
	item := in.eval(call.Arguments[2], 0)
	if isError(item) {
		return item
	}
	list, errObj := in.listTarget(call, 0, "insert")
	if errObj != nil {
		return errObj
	}

	pos, errObj := in.integerArg(call, idx, "insert")
	if errObj != nil {
		return errObj
	}
	if pos < 0 || pos > len(list.Elements) {
		return in.errorAt(call.Token, fmt.Sprintf("Index out of bounds for insert(): %d, size: %d", pos, len(list.Elements)))
	}

	list.Elements = append(list.Elements, nil)
	copy(list.Elements[pos+1:], list.Elements[pos:])
	list.Elements[pos] = item
	return NIL
}

func builtinRemove(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 2 {
		return in.errorAt(call.Token, "remove() expects 2 arguments: list, index")
	}
	idx := in.eval(call.Arguments[1], 0)
	if isError(idx) {
		return idx
	}
	list, errObj := in.listTarget(call, 0, "remove")
	if errObj != nil {
		return errObj
	}

	pos, errObj := in.integerArg(call, idx, "remove")
	if errObj != nil {
		return errObj
	}
	if pos < 0 || pos >= len(list.Elements) {
		return in.errorAt(call.Token, fmt.Sprintf("Index out of bounds for remove(): %d, size: %d", pos, len(list.Elements)))
	}

	removed := list.Elements[pos]
	list.Elements = append(list.Elements[:pos], list.Elements[pos+1:]...)
	return removed
}

func (in *Interp) integerArg(call *ast.CallExpression, arg object.Object, name string) (int, object.Object) {
	num, ok := arg.(*object.Number)
	if !ok {
		return 0, in.errorAt(call.Token, fmt.Sprintf("Second argument (index) to %s() must be a number. Got %s", name, arg.Type()))
	}
	if num.Value != math.Trunc(num.Value) {
		return 0, in.errorAt(call.Token, fmt.Sprintf("List index for %s() must be an integer. Got %s", name, object.FormatNumber(num.Value)))
	}
	return int(num.Value), nil
}

func builtinSort(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 1 {
		return in.errorAt(call.Token, "sort() expects 1 argument: list")
	}
	list, errObj := in.listTarget(call, 0, "sort")
	if errObj != nil {
		return errObj
	}
	if len(list.Elements) == 0 {
		return NIL
	}

	switch list.Elements[0].(type) {
	case *object.Number:
		nums := make([]float64, len(list.Elements))
		for i, el := range list.Elements {
			n, ok := el.(*object.Number)
			if !ok {
				return in.errorAt(call.Token, "Cannot sort list with mixed types (expected numbers)")
			}
			nums[i] = n.Value
		}
		sort.Float64s(nums)
		for i, v := range nums {
			list.Elements[i] = &object.Number{Value: v}
		}
		return NIL

	case *object.String:
		strs := make([]string, len(list.Elements))
		for i, el := range list.Elements {
			s, ok := el.(*object.String)
			if !ok {
				return in.errorAt(call.Token, "Cannot sort list with mixed types (expected strings)")
			}
			strs[i] = s.Value
		}
		sort.Strings(strs)
		for i, v := range strs {
			list.Elements[i] = &object.String{Value: v}
		}
		return NIL

	default:
		return in.errorAt(call.Token, "sort() can only sort lists of numbers or lists of strings. First element type: "+string(list.Elements[0].Type()))
	}
}

func builtinRange(in *Interp, call *ast.CallExpression) object.Object {
	args, errObj := in.evalArgs(call)
	if errObj != nil {
		return errObj
	}

	start, stop, step := 0.0, 0.0, 1.0
	switch len(args) {
	case 1:
		n, ok := args[0].(*object.Number)
		if !ok {
			return in.errorAt(call.Token, "range() single argument (stop) must be a number")
		}
		stop = n.Value
	case 2:
		a, ok1 := args[0].(*object.Number)
		b, ok2 := args[1].(*object.Number)
		if !ok1 || !ok2 {
			return in.errorAt(call.Token, "range() arguments (start, stop) must be numbers")
		}
		start, stop = a.Value, b.Value
	case 3:
		a, ok1 := args[0].(*object.Number)
		b, ok2 := args[1].(*object.Number)
		c, ok3 := args[2].(*object.Number)
		if !ok1 || !ok2 || !ok3 {
			return in.errorAt(call.Token, "range() arguments (start, stop, step) must be numbers")
		}
		start, stop, step = a.Value, b.Value, c.Value
	default:
		return in.errorAt(call.Token, "range() expects 1, 2, or 3 arguments")
	}

	if step == 0 {
		return in.errorAt(call.Token, "range() step argument cannot be zero")
	}

	els := []object.Object{}
	if step > 0 {
		for i := start; i < stop; i += step {
			els = append(els, &object.Number{Value: i})
		}
	} else {
		for i := start; i > stop; i += step {
			els = append(els, &object.Number{Value: i})
		}
	}
	return &object.List{Elements: els}
}

/* -------------------- numbers -------------------- */

func mathBuiltin(name string, fn func(float64) float64) builtinFn {
	return func(in *Interp, call *ast.CallExpression) object.Object {
		v, errObj := in.numberArg(call, name)
		if errObj != nil {
			return errObj
		}
		return &object.Number{Value: fn(v)}
	}
}

func builtinSqrt(in *Interp, call *ast.CallExpression) object.Object {
	v, errObj := in.numberArg(call, "sqrt")
	if errObj != nil {
		return errObj
	}
	if v < 0 {
		return in.errorAt(call.Token, "sqrt() argument cannot be negative")
	}
	return &object.Number{Value: math.Sqrt(v)}
}

func (in *Interp) numberArg(call *ast.CallExpression, name string) (float64, object.Object) {
	if len(call.Arguments) != 1 {
		return 0, in.errorAt(call.Token, name+"() expects 1 argument")
	}
	arg := in.eval(call.Arguments[0], 0)
	if isError(arg) {
		return 0, arg
	}
	num, ok := arg.(*object.Number)
	if !ok {
		return 0, in.errorAt(call.Token, name+"() argument must be a number")
	}
	return num.Value, nil
}

func builtinRnd(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 0 {
		return in.errorAt(call.Token, "rnd() expects 0 arguments")
	}
	return &object.Number{Value: in.rng.Float64()}
}

/* -------------------- conversions -------------------- */

func builtinParseNum(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 1 {
		return in.errorAt(call.Token, "parse_num() expects 1 argument")
	}
	arg := in.eval(call.Arguments[0], 0)
	if isError(arg) {
		return arg
	}
	s, ok := arg.(*object.String)
	if !ok {
		return in.errorAt(call.Token, "parse_num() argument must be a string. Got "+string(arg.Type()))
	}
	v, err := strconv.ParseFloat(s.Value, 64)
	if err != nil {
		return NIL
	}
	return &object.Number{Value: v}
}

func builtinToString(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 1 {
		return in.errorAt(call.Token, "to_string() expects 1 argument")
	}
	arg := in.eval(call.Arguments[0], 0)
	if isError(arg) {
		return arg
	}
	switch v := arg.(type) {
	case *object.Number:
		return &object.String{Value: object.FormatNumber(v.Value)}
	case *object.String:
		return v
	case *object.Nil:
		return &object.String{Value: "nil"}
	default:
		return &object.String{Value: arg.Inspect()}
	}
}

/* -------------------- strings -------------------- */

func (in *Interp) stringArg(call *ast.CallExpression, name string) (string, object.Object) {
	if len(call.Arguments) != 1 {
		return "", in.errorAt(call.Token, name+"() expects 1 argument")
	}
	arg := in.eval(call.Arguments[0], 0)
	if isError(arg) {
		return "", arg
	}
	s, ok := arg.(*object.String)
	if !ok {
		return "", in.errorAt(call.Token, name+"() argument must be a string")
	}
	return s.Value, nil
}

func builtinLower(in *Interp, call *ast.CallExpression) object.Object {
	s, errObj := in.stringArg(call, "lower")
	if errObj != nil {
		return errObj
	}
	return &object.String{Value: asciiFold(s, 'A', 'Z', 'a'-'A')}
}

func builtinUpper(in *Interp, call *ast.CallExpression) object.Object {
	s, errObj := in.stringArg(call, "upper")
	if errObj != nil {
		return errObj
	}
	return &object.String{Value: asciiFold(s, 'a', 'z', 'A'-'a')}
}

// asciiFold shifts bytes in [lo, hi] by delta; everything else passes
// through untouched, non-ASCII bytes included.
func asciiFold(s string, lo, hi byte, delta int) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= lo && b[i] <= hi {
			b[i] = byte(int(b[i]) + delta)
		}
	}
	return string(b)
}

func builtinSplit(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 2 {
		return in.errorAt(call.Token, "split() expects 2 arguments: string and delimiter")
	}
	strArg := in.eval(call.Arguments[0], 0)
	if isError(strArg) {
		return strArg
	}
	delimArg := in.eval(call.Arguments[1], 0)
	if isError(delimArg) {
		return delimArg
	}
	s, ok := strArg.(*object.String)
	if !ok {
		return in.errorAt(call.Token, "split() first argument must be a string")
	}
	delim, ok := delimArg.(*object.String)
	if !ok {
		return in.errorAt(call.Token, "split() second argument (delimiter) must be a string")
	}

	var parts []string
	if delim.Value == "" {
		for i := 0; i < len(s.Value); i++ {
			parts = append(parts, s.Value[i:i+1])
		}
	} else {
		parts = strings.Split(s.Value, delim.Value)
	}

	els := make([]object.Object, len(parts))
	for i, p := range parts {
		els[i] = &object.String{Value: p}
	}
	return &object.List{Elements: els}
}

func builtinJoin(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 2 {
		return in.errorAt(call.Token, "join() expects 2 arguments: list_of_strings and separator")
	}
	listArg := in.eval(call.Arguments[0], 0)
	if isError(listArg) {
		return listArg
	}
	sepArg := in.eval(call.Arguments[1], 0)
	if isError(sepArg) {
		return sepArg
	}
	list, ok := listArg.(*object.List)
	if !ok {
		return in.errorAt(call.Token, "join() first argument must be a list of strings")
	}
	sep, ok := sepArg.(*object.String)
	if !ok {
		return in.errorAt(call.Token, "join() second argument (separator) must be a string")
	}

	parts := make([]string, len(list.Elements))
	for i, el := range list.Elements {
		s, ok := el.(*object.String)
		if !ok {
			return in.errorAt(call.Token, "join() expects a list of strings; found non-string element: "+string(el.Type()))
		}
		parts[i] = s.Value
	}
	return &object.String{Value: strings.Join(parts, sep.Value)}
}

func builtinReplace(in *Interp, call *ast.CallExpression) object.Object {
	if len(call.Arguments) != 3 {
		return in.errorAt(call.Token, "replace() expects 3 arguments: string, old_substring, new_substring")
	}
	args, errObj := in.evalArgs(call)
	if errObj != nil {
		return errObj
	}
	s, ok1 := args[0].(*object.String)
	oldSub, ok2 := args[1].(*object.String)
	newSub, ok3 := args[2].(*object.String)
	if !ok1 || !ok2 || !ok3 {
		return in.errorAt(call.Token, "replace() all arguments must be strings")
	}
	if oldSub.Value == "" {
		return in.errorAt(call.Token, "replace() 'old_substring' cannot be empty")
	}
	return &object.String{Value: strings.ReplaceAll(s.Value, oldSub.Value, newSub.Value)}
}
