package parser

import (
	"strings"
	"testing"

	"itmoscript/internal/ast"
	"itmoscript/internal/lexer"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()

	tokens, err := lexer.New(input).Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	p := New(tokens)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return program
}

func parseError(t *testing.T, input string) string {
	t.Helper()

	tokens, err := lexer.New(input).Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	p := New(tokens)
	p.ParseProgram()
	errs := p.Errors()
	if len(errs) == 0 {
		t.Fatalf("expected a parse error for %q", input)
	}
	return errs[0]
}

func firstExpr(t *testing.T, program *ast.Program) ast.Expression {
	t.Helper()

	if len(program.Statements) == 0 {
		t.Fatal("program has no statements")
	}
	es, ok := program.Statements[0].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("expected expression statement, got %T", program.Statements[0])
	}
	return es.Expression
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"1 + 2 - 3", "((1 + 2) - 3)"},
		{"2 * 3 % 4", "((2 * 3) % 4)"},
		{"-a * b", "((-a) * b)"},
		{"not a == b", "((not a) == b)"},
		{"a < b == c < d", "((a < b) == (c < d))"},
		{"a or b and c", "(a or (b and c))"},
		{"a and b == c", "(a and (b == c))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a + b[0]", "(a + (b[0]))"},
		{"f(1)[2]", "(f(1)[2])"},
		{"l[1][2]", "((l[1])[2])"},
		{"a[1:2:3]", "(a[1:2:3])"},
		{"not not a", "(not (not a))"},
	}

	for i, tt := range tests {
		program := parse(t, tt.input)
		got := firstExpr(t, program).String()
		if got != tt.want {
			t.Fatalf("tests[%d] - expected %q, got %q", i, tt.want, got)
		}
	}
}

func TestAssignment(t *testing.T) {
	tests := []struct {
		input string
		name  string
		op    string
		value string
	}{
		{"x = 5", "x", "=", "5"},
		{"x += 1", "x", "+=", "1"},
		{"x -= 2", "x", "-=", "2"},
		{"x *= 3", "x", "*=", "3"},
		{"x /= 4", "x", "/=", "4"},
		{"x %= 5", "x", "%=", "5"},
		{"x ^= 2", "x", "^=", "2"},
	}

	for i, tt := range tests {
		program := parse(t, tt.input)
		assign, ok := firstExpr(t, program).(*ast.AssignExpression)
		if !ok {
			t.Fatalf("tests[%d] - expected assignment, got %T", i, firstExpr(t, program))
		}
		if assign.Name != tt.name || assign.Op != tt.op || assign.Value.String() != tt.value {
			t.Fatalf("tests[%d] - got %s %s %s", i, assign.Name, assign.Op, assign.Value.String())
		}
	}
}

func TestAssignmentIsRightAssociative(t *testing.T) {
	program := parse(t, "a = b = 5")
	assign := firstExpr(t, program).(*ast.AssignExpression)
	if assign.Name != "a" {
		t.Fatalf("outer target: %s", assign.Name)
	}
	inner, ok := assign.Value.(*ast.AssignExpression)
	if !ok {
		t.Fatalf("expected nested assignment, got %T", assign.Value)
	}
	if inner.Name != "b" || inner.Value.String() != "5" {
		t.Fatalf("inner: %s = %s", inner.Name, inner.Value.String())
	}
}

func TestInvalidAssignmentTarget(t *testing.T) {
	msg := parseError(t, "a[0] = 5")
	if !strings.Contains(msg, "Invalid target for assignment") {
		t.Fatalf("wrong message: %q", msg)
	}
}

// '^' is only reachable through '^='. As a standalone binary operator it is
// rejected by the grammar.
func TestCaretIsNotABinaryOperator(t *testing.T) {
	msg := parseError(t, "2 ^ 3")
	if !strings.Contains(msg, "Unexpected token") {
		t.Fatalf("wrong message: %q", msg)
	}
}

func TestBooleansAndNil(t *testing.T) {
	program := parse(t, "true")
	num, ok := firstExpr(t, program).(*ast.NumberLiteral)
	if !ok || num.Value != 1 {
		t.Fatalf("true should parse to NumberLiteral 1, got %#v", firstExpr(t, program))
	}

	program = parse(t, "false")
	num = firstExpr(t, program).(*ast.NumberLiteral)
	if num.Value != 0 {
		t.Fatalf("false should parse to NumberLiteral 0, got %v", num.Value)
	}

	program = parse(t, "nil")
	if _, ok := firstExpr(t, program).(*ast.NilLiteral); !ok {
		t.Fatalf("nil should parse to NilLiteral, got %T", firstExpr(t, program))
	}
}

func TestListLiterals(t *testing.T) {
	program := parse(t, `[1, "two", [3]]`)
	list, ok := firstExpr(t, program).(*ast.ListLiteral)
	if !ok {
		t.Fatalf("expected list literal, got %T", firstExpr(t, program))
	}
	if len(list.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(list.Elements))
	}

	program = parse(t, "[]")
	list = firstExpr(t, program).(*ast.ListLiteral)
	if len(list.Elements) != 0 {
		t.Fatalf("expected empty list, got %d elements", len(list.Elements))
	}
}

func TestListTrailingCommaRejected(t *testing.T) {
	msg := parseError(t, "[1, 2,]")
	if !strings.Contains(msg, "Invalid list element or trailing comma") {
		t.Fatalf("wrong message: %q", msg)
	}
}

func TestEmptyIndexRejected(t *testing.T) {
	msg := parseError(t, "a[]")
	if !strings.Contains(msg, "Invalid empty index operation") {
		t.Fatalf("wrong message: %q", msg)
	}
}

func TestSliceForms(t *testing.T) {
	tests := []struct {
		input               string
		start, end, hasStep bool
	}{
		{"a[:]", false, false, false},
		{"a[1:]", true, false, false},
		{"a[:2]", false, true, false},
		{"a[1:2]", true, true, false},
		{"a[1:2:3]", true, true, true},
		{"a[::2]", false, false, true},
		{"a[:2:3]", false, true, true},
		{"a[1::2]", true, false, true},
	}

	for i, tt := range tests {
		program := parse(t, tt.input)
		slice, ok := firstExpr(t, program).(*ast.SliceExpression)
		if !ok {
			t.Fatalf("tests[%d] - expected slice, got %T", i, firstExpr(t, program))
		}
		if (slice.Start != nil) != tt.start || (slice.End != nil) != tt.end || (slice.Step != nil) != tt.hasStep {
			t.Fatalf("tests[%d] - bound presence mismatch for %q: %v %v %v",
				i, tt.input, slice.Start != nil, slice.End != nil, slice.Step != nil)
		}
	}
}

func TestFunctionDefinition(t *testing.T) {
	program := parse(t, `f = function(a, b)
  return a + b
end function`)

	assign := firstExpr(t, program).(*ast.AssignExpression)
	fn, ok := assign.Value.(*ast.FunctionLiteral)
	if !ok {
		t.Fatalf("expected function literal, got %T", assign.Value)
	}
	if len(fn.Parameters) != 2 || fn.Parameters[0] != "a" || fn.Parameters[1] != "b" {
		t.Fatalf("parameters: %v", fn.Parameters)
	}
	if len(fn.Body.Statements) != 1 {
		t.Fatalf("body statements: %d", len(fn.Body.Statements))
	}
	if _, ok := fn.Body.Statements[0].(*ast.ReturnStatement); !ok {
		t.Fatalf("expected return statement, got %T", fn.Body.Statements[0])
	}
}

func TestFunctionEndMarkerRequired(t *testing.T) {
	msg := parseError(t, `f = function(a)
  return a
end while`)
	if !strings.Contains(msg, "Expected 'function' after 'end'") {
		t.Fatalf("wrong message: %q", msg)
	}
}

func TestIfElseIfElseChain(t *testing.T) {
	program := parse(t, `if a then
  x = 1
else if b then
  x = 2
else if c then
  x = 3
else
  x = 4
end if`)

	stmt, ok := program.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected if statement, got %T", program.Statements[0])
	}
	if stmt.Condition.String() != "a" {
		t.Fatalf("condition: %s", stmt.Condition.String())
	}
	if len(stmt.ElseIfs) != 2 {
		t.Fatalf("expected 2 else-if branches, got %d", len(stmt.ElseIfs))
	}
	if stmt.ElseIfs[0].Condition.String() != "b" || stmt.ElseIfs[1].Condition.String() != "c" {
		t.Fatalf("else-if conditions: %s, %s", stmt.ElseIfs[0].Condition.String(), stmt.ElseIfs[1].Condition.String())
	}
	if stmt.Alternative == nil || len(stmt.Alternative.Statements) != 1 {
		t.Fatal("missing else block")
	}
}

func TestWhileAndForStatements(t *testing.T) {
	program := parse(t, `while i < 5
  i += 1
end while
for x in [1, 2]
  print(x)
end for`)

	if len(program.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(program.Statements))
	}
	w, ok := program.Statements[0].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected while, got %T", program.Statements[0])
	}
	if w.Condition.String() != "(i < 5)" {
		t.Fatalf("while condition: %s", w.Condition.String())
	}
	f, ok := program.Statements[1].(*ast.ForStatement)
	if !ok {
		t.Fatalf("expected for, got %T", program.Statements[1])
	}
	if f.Variable != "x" || f.Iterable.String() != "[1, 2]" {
		t.Fatalf("for header: %s in %s", f.Variable, f.Iterable.String())
	}
}

func TestMissingThen(t *testing.T) {
	msg := parseError(t, "if a\n x = 1\nend if")
	if !strings.Contains(msg, "Expected 'then' after if condition") {
		t.Fatalf("wrong message: %q", msg)
	}
}

func TestMissingEnd(t *testing.T) {
	msg := parseError(t, "while true\n x = 1")
	if !strings.Contains(msg, "Expected 'end' after while body") {
		t.Fatalf("wrong message: %q", msg)
	}
}

func TestSemicolonsAndNewlinesTolerated(t *testing.T) {
	program := parse(t, "x = 1; y = 2;;\n\n; z = 3")
	if len(program.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(program.Statements))
	}
}

func TestReturnWithoutValue(t *testing.T) {
	program := parse(t, `f = function()
  return
end function`)
	assign := firstExpr(t, program).(*ast.AssignExpression)
	fn := assign.Value.(*ast.FunctionLiteral)
	ret := fn.Body.Statements[0].(*ast.ReturnStatement)
	if ret.Value != nil {
		t.Fatalf("expected bare return, got value %s", ret.Value.String())
	}
}

func TestCallArguments(t *testing.T) {
	program := parse(t, "f(1, a + 2, g())")
	call, ok := firstExpr(t, program).(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected call, got %T", firstExpr(t, program))
	}
	if len(call.Arguments) != 3 {
		t.Fatalf("expected 3 arguments, got %d", len(call.Arguments))
	}
	if call.Arguments[1].String() != "(a + 2)" {
		t.Fatalf("argument 1: %s", call.Arguments[1].String())
	}
}

func TestParseErrorCarriesPosition(t *testing.T) {
	tokens, err := lexer.New("x = ]").Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	p := New(tokens)
	p.ParseProgram()
	diags := p.Diagnostics()
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic")
	}
	if diags[0].Range.Line != 1 || diags[0].Range.Col != 5 {
		t.Fatalf("position %d:%d, expected 1:5", diags[0].Range.Line, diags[0].Range.Col)
	}
}

func TestFirstErrorAborts(t *testing.T) {
	tokens, err := lexer.New("] )").Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	p := New(tokens)
	p.ParseProgram()
	if len(p.Errors()) != 1 {
		t.Fatalf("expected exactly 1 error, got %d: %v", len(p.Errors()), p.Errors())
	}
}
