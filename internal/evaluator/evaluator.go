package evaluator

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"itmoscript/internal/ast"
	"itmoscript/internal/object"
	"itmoscript/internal/semantics"
	"itmoscript/internal/token"
)

var NIL = &object.Nil{}

// Interp walks the AST against the single globals map, writing program
// output to the sink it was constructed with.
type Interp struct {
	env *object.Environment
	out io.Writer
	rng *rand.Rand
}

func New(out io.Writer) *Interp {
	return &Interp{
		env: object.NewEnvironment(),
		out: out,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (in *Interp) Env() *object.Environment { return in.env }

// Run executes a program. A top-level return stops execution; its value is
// the program result. The first runtime error aborts the run.
func (in *Interp) Run(program *ast.Program) object.Object {
	var result object.Object = NIL
	for _, stmt := range program.Statements {
		result = in.eval(stmt, 0)
		if isError(result) {
			return result
		}
		if rv, ok := result.(*object.ReturnValue); ok {
			return rv.Value
		}
	}
	return result
}

func (in *Interp) eval(node ast.Node, loopDepth int) object.Object {
	switch n := node.(type) {

	case *ast.Program:
		return in.Run(n)

	case *ast.BlockStatement:
		return in.evalBlock(n, loopDepth)

	case *ast.ExpressionStatement:
		return in.eval(n.Expression, loopDepth)

	case *ast.ReturnStatement:
		if n.Value == nil {
			return &object.ReturnValue{Value: NIL}
		}
		val := in.eval(n.Value, loopDepth)
		if isError(val) {
			return val
		}
		return &object.ReturnValue{Value: val}

	case *ast.BreakStatement:
		if loopDepth == 0 {
			return in.errorAt(n.Token, "'break' used outside of a loop")
		}
		return &object.Break{}

	case *ast.ContinueStatement:
		if loopDepth == 0 {
			return in.errorAt(n.Token, "'continue' used outside of a loop")
		}
		return &object.Continue{}

	case *ast.IfStatement:
		return in.evalIf(n, loopDepth)

	case *ast.WhileStatement:
		return in.evalWhile(n, loopDepth)

	case *ast.ForStatement:
		return in.evalFor(n, loopDepth)

	// Expressions
	case *ast.NumberLiteral:
		return &object.Number{Value: n.Value}

	case *ast.StringLiteral:
		return &object.String{Value: n.Value}

	case *ast.NilLiteral:
		return NIL

	case *ast.ListLiteral:
		els := make([]object.Object, 0, len(n.Elements))
		for _, el := range n.Elements {
			v := in.eval(el, loopDepth)
			if isError(v) {
				return v
			}
			els = append(els, v)
		}
		return &object.List{Elements: els}

	case *ast.FunctionLiteral:
		// The body is shared with the parsed AST; it is immutable after
		// parse, so no copy is needed.
		return &object.Function{Parameters: n.Parameters, Body: n.Body}

	case *ast.Identifier:
		return in.evalIdentifier(n)

	case *ast.AssignExpression:
		return in.evalAssign(n, loopDepth)

	case *ast.PrefixExpression:
		right := in.eval(n.Right, loopDepth)
		if isError(right) {
			return right
		}
		return in.evalPrefix(n.Token, n.Operator, right)

	case *ast.InfixExpression:
		// Both operands are always evaluated, 'and'/'or' included.
		left := in.eval(n.Left, loopDepth)
		if isError(left) {
			return left
		}
		right := in.eval(n.Right, loopDepth)
		if isError(right) {
			return right
		}
		if n.Operator == "and" || n.Operator == "or" {
			return semantics.Logical(n.Operator, left, right)
		}
		res, err := semantics.BinaryOp(n.Operator, left, right)
		if err != nil {
			return in.errorAt(n.Token, err.Error())
		}
		return res

	case *ast.IndexExpression:
		return in.evalIndex(n, loopDepth)

	case *ast.SliceExpression:
		return in.evalSlice(n, loopDepth)

	case *ast.CallExpression:
		return in.evalCall(n, loopDepth)
	}

	return NIL
}

func (in *Interp) evalBlock(b *ast.BlockStatement, loopDepth int) object.Object {
	var result object.Object = NIL
	for _, stmt := range b.Statements {
		result = in.eval(stmt, loopDepth)
		if result != nil {
			switch result.Type() {
			case object.RETURN_VALUE_OBJ, object.BREAK_OBJ, object.CONTINUE_OBJ, object.ERROR_OBJ:
				return result
			}
		}
	}
	return result
}

func (in *Interp) evalIf(s *ast.IfStatement, loopDepth int) object.Object {
	cond := in.eval(s.Condition, loopDepth)
	if isError(cond) {
		return cond
	}
	if semantics.Truthy(cond) {
		return in.eval(s.Consequence, loopDepth)
	}
	for _, ei := range s.ElseIfs {
		cond := in.eval(ei.Condition, loopDepth)
		if isError(cond) {
			return cond
		}
		if semantics.Truthy(cond) {
			return in.eval(ei.Body, loopDepth)
		}
	}
	if s.Alternative != nil {
		return in.eval(s.Alternative, loopDepth)
	}
	return NIL
}

func (in *Interp) evalWhile(s *ast.WhileStatement, loopDepth int) object.Object {
	for {
		cond := in.eval(s.Condition, loopDepth)
		if isError(cond) {
			return cond
		}
		if !semantics.Truthy(cond) {
			break
		}

		result := in.eval(s.Body, loopDepth+1)
		if isError(result) {
			return result
		}
		switch result.(type) {
		case *object.ReturnValue:
			return result
		case *object.Break:
			return NIL
		case *object.Continue:
			continue
		}
	}
	return NIL
}

func (in *Interp) evalFor(s *ast.ForStatement, loopDepth int) object.Object {
	iterable := in.eval(s.Iterable, loopDepth)
	if isError(iterable) {
		return iterable
	}

	runBody := func(item object.Object) (done bool, out object.Object) {
		in.env.Set(s.Variable, item)
		result := in.eval(s.Body, loopDepth+1)
		if isError(result) {
			return true, result
		}
		switch result.(type) {
		case *object.ReturnValue:
			return true, result
		case *object.Break:
			return true, NIL
		}
		return false, nil
	}

	switch it := iterable.(type) {
	case *object.List:
		for _, el := range it.Elements {
			if done, out := runBody(el); done {
				return out
			}
		}
	case *object.String:
		for i := 0; i < len(it.Value); i++ {
			if done, out := runBody(&object.String{Value: it.Value[i : i+1]}); done {
				return out
			}
		}
	default:
		return in.errorAt(s.Token, "For loop can only iterate over lists or strings. Got: "+string(iterable.Type()))
	}
	return NIL
}

func (in *Interp) evalIdentifier(n *ast.Identifier) object.Object {
	// Builtin names are reserved even when shadowed in globals.
	if _, ok := builtins[n.Value]; ok {
		return in.errorAt(n.Token, fmt.Sprintf("Built-in function '%s' must be called with parentheses ()", n.Value))
	}
	if val, ok := in.env.Get(n.Value); ok {
		return val
	}
	return in.errorAt(n.Token, "Undefined variable: "+n.Value)
}

func (in *Interp) evalAssign(n *ast.AssignExpression, loopDepth int) object.Object {
	val := in.eval(n.Value, loopDepth)
	if isError(val) {
		return val
	}

	if n.Op == "=" {
		in.env.Set(n.Name, val)
		return val
	}

	cur, ok := in.env.Get(n.Name)
	if !ok {
		return in.errorAt(n.Token, "Undefined variable for compound assignment: "+n.Name)
	}
	res, err := semantics.BinaryOp(n.Op[:len(n.Op)-1], cur, val)
	if err != nil {
		return in.errorAt(n.Token, err.Error())
	}
	in.env.Set(n.Name, res)
	return res
}

func (in *Interp) evalPrefix(tok token.Token, op string, right object.Object) object.Object {
	switch op {
	case "not":
		if semantics.Truthy(right) {
			return &object.Number{Value: 0}
		}
		return &object.Number{Value: 1}
	case "-":
		num, ok := right.(*object.Number)
		if !ok {
			return in.errorAt(tok, "Operand for unary '-' must be a number. Got "+string(right.Type()))
		}
		return &object.Number{Value: -num.Value}
	default:
		return in.errorAt(tok, "Unknown unary operator: "+op)
	}
}

func (in *Interp) evalCall(call *ast.CallExpression, loopDepth int) object.Object {
	// Builtins dispatch on the callee name before anything is evaluated;
	// they cannot be shadowed by globals.
	if id, ok := call.Callee.(*ast.Identifier); ok {
		if fn, ok := builtins[id.Value]; ok {
			return fn(in, call)
		}
	}

	callee := in.eval(call.Callee, loopDepth)
	if isError(callee) {
		return callee
	}
	fn, ok := callee.(*object.Function)
	if !ok {
		name := "expression"
		if id, ok := call.Callee.(*ast.Identifier); ok {
			name = id.Value
		}
		return in.errorAt(call.Token, fmt.Sprintf(
			"Attempted to call a non-function value (type: %s) derived from: %s", callee.Type(), name))
	}

	if len(call.Arguments) != len(fn.Parameters) {
		return in.errorAt(call.Token, fmt.Sprintf(
			"Wrong number of arguments for function. Expected %d, Got %d",
			len(fn.Parameters), len(call.Arguments)))
	}

	// Snapshot/restore protocol: the whole globals map is captured before
	// argument evaluation and restored on every exit path. List payloads
	// stay shared, so in-place mutations through arguments survive.
	snapshot := in.env.Snapshot()
	defer in.env.Restore(snapshot)

	args := make([]object.Object, len(call.Arguments))
	for i, argExpr := range call.Arguments {
		v := in.eval(argExpr, 0)
		if isError(v) {
			return v
		}
		args[i] = v
	}
	for i, name := range fn.Parameters {
		in.env.Set(name, args[i])
	}

	result := in.eval(fn.Body, 0)
	if isError(result) {
		return result
	}
	if rv, ok := result.(*object.ReturnValue); ok {
		return rv.Value
	}
	return NIL
}

func (in *Interp) evalIndex(n *ast.IndexExpression, loopDepth int) object.Object {
	target := in.eval(n.Left, loopDepth)
	if isError(target) {
		return target
	}
	idx := in.eval(n.Index, loopDepth)
	if isError(idx) {
		return idx
	}

	num, ok := idx.(*object.Number)
	if !ok {
		return in.errorAt(n.Token, "Index must be a number. Got "+string(idx.Type()))
	}
	if num.Value != math.Trunc(num.Value) {
		return in.errorAt(n.Token, "Index must be an integer. Got "+object.FormatNumber(num.Value))
	}
	i := int(num.Value)

	switch t := target.(type) {
	case *object.String:
		l := len(t.Value)
		if i < 0 {
			i += l
		}
		if i < 0 || i >= l {
			return in.errorAt(n.Token, fmt.Sprintf("String index out of bounds: %d, size: %d", i, l))
		}
		return &object.String{Value: t.Value[i : i+1]}

	case *object.List:
		l := len(t.Elements)
		if i < 0 {
			i += l
		}
		if i < 0 || i >= l {
			return in.errorAt(n.Token, fmt.Sprintf("List index out of bounds: %d, size: %d", i, l))
		}
		return t.Elements[i]

	default:
		return in.errorAt(n.Token, "Cannot index non-list/non-string type: "+string(target.Type()))
	}
}

func (in *Interp) evalSlice(n *ast.SliceExpression, loopDepth int) object.Object {
	target := in.eval(n.Left, loopDepth)
	if isError(target) {
		return target
	}

	var startPtr, endPtr *int64
	step := int64(1)

	if n.Start != nil {
		v := in.eval(n.Start, loopDepth)
		if isError(v) {
			return v
		}
		num, ok := v.(*object.Number)
		if !ok {
			return in.errorAt(n.Token, "Slice start index must be a number")
		}
		s := int64(num.Value)
		startPtr = &s
	}
	if n.End != nil {
		v := in.eval(n.End, loopDepth)
		if isError(v) {
			return v
		}
		num, ok := v.(*object.Number)
		if !ok {
			return in.errorAt(n.Token, "Slice end index must be a number")
		}
		e := int64(num.Value)
		endPtr = &e
	}
	if n.Step != nil {
		v := in.eval(n.Step, loopDepth)
		if isError(v) {
			return v
		}
		num, ok := v.(*object.Number)
		if !ok {
			return in.errorAt(n.Token, "Slice step must be a number")
		}
		if num.Value == 0 {
			return in.errorAt(n.Token, "Slice step cannot be zero")
		}
		step = int64(num.Value)
	}

	switch t := target.(type) {
	case *object.String:
		lo, hi := sliceBounds(startPtr, endPtr, step, int64(len(t.Value)))
		var buf []byte
		if step > 0 {
			for i := lo; i < hi; i += step {
				buf = append(buf, t.Value[i])
			}
		} else {
			for i := lo; i > hi; i += step {
				buf = append(buf, t.Value[i])
			}
		}
		return &object.String{Value: string(buf)}

	case *object.List:
		lo, hi := sliceBounds(startPtr, endPtr, step, int64(len(t.Elements)))
		out := []object.Object{}
		if step > 0 {
			for i := lo; i < hi; i += step {
				out = append(out, t.Elements[i])
			}
		} else {
			for i := lo; i > hi; i += step {
				out = append(out, t.Elements[i])
			}
		}
		return &object.List{Elements: out}

	default:
		return in.errorAt(n.Token, "Slice operation can only be applied to strings or lists")
	}
}

// sliceBounds resolves optional start/end against the sequence length the
// Python way: negative indices add length, missing bounds default per step
// direction, and the result is clamped so the walk stays in range.
func sliceBounds(start, end *int64, step, length int64) (int64, int64) {
	if step > 0 {
		lo, hi := int64(0), length
		if start != nil {
			lo = normIndex(*start, length)
		}
		if end != nil {
			hi = normIndex(*end, length)
		}
		lo = clamp(lo, 0, length)
		hi = clamp(hi, 0, length)
		if lo > hi {
			lo = hi
		}
		return lo, hi
	}

	lo, hi := length-1, int64(-1)
	if start != nil {
		lo = normIndex(*start, length)
	}
	if end != nil {
		hi = normIndex(*end, length)
	}
	lo = clamp(lo, -1, length-1)
	hi = clamp(hi, -1, length-1)
	if lo < hi {
		lo = hi
	}
	return lo, hi
}

func normIndex(idx, length int64) int64 {
	if idx < 0 {
		return length + idx
	}
	return idx
}

func clamp(x, lo, hi int64) int64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func (in *Interp) errorAt(tok token.Token, msg string) object.Object {
	return &object.Error{Message: msg, Line: tok.Line, Col: tok.Col}
}

func isError(obj object.Object) bool {
	return obj != nil && obj.Type() == object.ERROR_OBJ
}
