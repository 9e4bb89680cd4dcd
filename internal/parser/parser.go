package parser

import (
	"fmt"
	"strconv"

	"itmoscript/internal/ast"
	"itmoscript/internal/diag"
	"itmoscript/internal/token"
)

// Parser consumes the token stream and produces the root block. It is plain
// recursive descent; the first error aborts the parse.
type Parser struct {
	tokens []token.Token
	pos    int

	errors []string
	diags  []diag.Diagnostic
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true,
	"/=": true, "%=": true, "^=": true,
}

func New(tokens []token.Token) *Parser {
	if len(tokens) == 0 {
		tokens = []token.Token{{Kind: token.EOF}}
	}
	return &Parser{tokens: tokens}
}

func (p *Parser) Errors() []string               { return p.errors }
func (p *Parser) Diagnostics() []diag.Diagnostic { return p.diags }

func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	for !p.failed() && !p.atEnd() {
		if p.isSeparator(p.cur()) {
			p.advance()
			continue
		}
		stmt := p.parseStatement()
		if p.failed() {
			break
		}
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}

	return program
}

/* -------------------- statements -------------------- */

func (p *Parser) parseStatement() ast.Statement {
	if p.cur().Kind == token.KEYWORD {
		switch p.cur().Literal {
		case "if":
			return p.parseIfStatement()
		case "while":
			return p.parseWhileStatement()
		case "for":
			return p.parseForStatement()
		case "return":
			return p.parseReturnStatement()
		case "break":
			stmt := &ast.BreakStatement{Token: p.cur()}
			p.advance()
			return stmt
		case "continue":
			stmt := &ast.ContinueStatement{Token: p.cur()}
			p.advance()
			return stmt
		}
	}

	tok := p.cur()
	expr := p.parseExpression()
	if p.failed() {
		return nil
	}
	return &ast.ExpressionStatement{Token: tok, Expression: expr}
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.cur()}
	p.advance()

	if p.isSeparator(p.cur()) || p.atEnd() || p.cur().IsKeyword("end") {
		return stmt
	}
	stmt.Value = p.parseExpression()
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.cur()}
	p.advance()

	stmt.Condition = p.parseExpression()
	if !p.expectKeyword("then", "Expected 'then' after if condition") {
		return nil
	}
	stmt.Consequence = p.parseBlock()

	for !p.failed() && p.cur().IsKeyword("else") {
		p.advance()
		if p.cur().IsKeyword("if") {
			p.advance()
			cond := p.parseExpression()
			if !p.expectKeyword("then", "Expected 'then' after else if condition") {
				return nil
			}
			body := p.parseBlock()
			stmt.ElseIfs = append(stmt.ElseIfs, ast.ElseIf{Condition: cond, Body: body})
			continue
		}
		stmt.Alternative = p.parseBlock()
		break
	}

	if !p.expectKeyword("end", "Expected 'end' after if/else if/else blocks") {
		return nil
	}
	if !p.expectKeyword("if", "Expected 'if' after 'end' for if statement") {
		return nil
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.cur()}
	p.advance()

	stmt.Condition = p.parseExpression()
	stmt.Body = p.parseBlock()

	if !p.expectKeyword("end", "Expected 'end' after while body") {
		return nil
	}
	if !p.expectKeyword("while", "Expected 'while' after 'end' for while statement") {
		return nil
	}
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.cur()}
	p.advance()

	if !p.cur().Is(token.IDENT) {
		p.errorAt(p.cur(), "Expected identifier after 'for'")
		return nil
	}
	stmt.Variable = p.cur().Literal
	p.advance()

	if !p.expectKeyword("in", "Expected 'in' after for variable") {
		return nil
	}
	stmt.Iterable = p.parseExpression()
	stmt.Body = p.parseBlock()

	if !p.expectKeyword("end", "Expected 'end' after for body") {
		return nil
	}
	if !p.expectKeyword("for", "Expected 'for' after 'end' for for statement") {
		return nil
	}
	return stmt
}

// parseBlock collects statements up to the 'end'/'else' that terminates the
// enclosing construct. Separators between statements are skipped greedily.
func (p *Parser) parseBlock() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.cur()}

	for !p.failed() && !p.atEnd() {
		if p.isSeparator(p.cur()) {
			p.advance()
			continue
		}
		if p.cur().IsKeyword("end") || p.cur().IsKeyword("else") {
			break
		}
		stmt := p.parseStatement()
		if p.failed() {
			return block
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}

	return block
}

/* -------------------- expressions -------------------- */

// Precedence, lowest to highest: assignment, or, and, equality, comparison,
// additive, multiplicative, unary, postfix chain on a primary. '^' has no
// level of its own; it is reachable only through '^='.
func (p *Parser) parseExpression() ast.Expression {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expression {
	expr := p.parseOr()
	if p.failed() {
		return nil
	}

	if p.cur().Kind == token.OPERATOR && assignOps[p.cur().Literal] {
		ident, ok := expr.(*ast.Identifier)
		if !ok {
			p.errorAt(p.cur(), "Invalid target for assignment. Expected an identifier.")
			return nil
		}
		op := p.cur().Literal
		p.advance()
		value := p.parseAssignment()
		if p.failed() {
			return nil
		}
		return &ast.AssignExpression{Token: ident.Token, Name: ident.Value, Op: op, Value: value}
	}

	return expr
}

func (p *Parser) parseOr() ast.Expression {
	expr := p.parseAnd()
	for !p.failed() && p.cur().IsKeyword("or") {
		tok := p.cur()
		p.advance()
		right := p.parseAnd()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: "or", Right: right}
	}
	return expr
}

func (p *Parser) parseAnd() ast.Expression {
	expr := p.parseEquality()
	for !p.failed() && p.cur().IsKeyword("and") {
		tok := p.cur()
		p.advance()
		right := p.parseEquality()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: "and", Right: right}
	}
	return expr
}

func (p *Parser) parseEquality() ast.Expression {
	expr := p.parseComparison()
	for !p.failed() && (p.cur().IsOperator("==") || p.cur().IsOperator("!=")) {
		tok := p.cur()
		p.advance()
		right := p.parseComparison()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: tok.Literal, Right: right}
	}
	return expr
}

func (p *Parser) parseComparison() ast.Expression {
	expr := p.parseTerm()
	for !p.failed() && (p.cur().IsOperator("<") || p.cur().IsOperator("<=") ||
		p.cur().IsOperator(">") || p.cur().IsOperator(">=")) {
		tok := p.cur()
		p.advance()
		right := p.parseTerm()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: tok.Literal, Right: right}
	}
	return expr
}

func (p *Parser) parseTerm() ast.Expression {
	expr := p.parseFactor()
	for !p.failed() && (p.cur().IsOperator("+") || p.cur().IsOperator("-")) {
		tok := p.cur()
		p.advance()
		right := p.parseFactor()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: tok.Literal, Right: right}
	}
	return expr
}

func (p *Parser) parseFactor() ast.Expression {
	expr := p.parseUnary()
	for !p.failed() && (p.cur().IsOperator("*") || p.cur().IsOperator("/") || p.cur().IsOperator("%")) {
		tok := p.cur()
		p.advance()
		right := p.parseUnary()
		expr = &ast.InfixExpression{Token: tok, Left: expr, Operator: tok.Literal, Right: right}
	}
	return expr
}

func (p *Parser) parseUnary() ast.Expression {
	if p.cur().IsKeyword("not") {
		tok := p.cur()
		p.advance()
		operand := p.parseUnary()
		if p.failed() {
			return nil
		}
		return &ast.PrefixExpression{Token: tok, Operator: "not", Right: operand}
	}
	if p.cur().IsOperator("-") {
		tok := p.cur()
		p.advance()
		operand := p.parseUnary()
		if p.failed() {
			return nil
		}
		return &ast.PrefixExpression{Token: tok, Operator: "-", Right: operand}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expression {
	expr := p.parseAtom()
	if p.failed() {
		return nil
	}

	// Postfix chain: calls, indexing and slicing bind tightest and stack in
	// source order.
	for !p.failed() {
		switch {
		case p.cur().Is(token.LPAREN):
			expr = p.parseCall(expr)
		case p.cur().Is(token.LBRACKET):
			expr = p.parseIndexOrSlice(expr)
		default:
			return expr
		}
	}
	return expr
}

func (p *Parser) parseAtom() ast.Expression {
	tok := p.cur()

	switch tok.Kind {
	case token.IDENT:
		p.advance()
		return &ast.Identifier{Token: tok, Value: tok.Literal}

	case token.NUMBER:
		p.advance()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorAt(tok, fmt.Sprintf("could not parse number %q", tok.Literal))
			return nil
		}
		return &ast.NumberLiteral{Token: tok, Value: v}

	case token.STRING:
		p.advance()
		return &ast.StringLiteral{Token: tok, Value: tok.Literal}

	case token.LPAREN:
		p.advance()
		expr := p.parseExpression()
		if p.failed() {
			return nil
		}
		if !p.expectKind(token.RPAREN, "Expected ')' after expression in parentheses") {
			return nil
		}
		return expr

	case token.LBRACKET:
		return p.parseListLiteral()

	case token.KEYWORD:
		switch tok.Literal {
		case "true":
			p.advance()
			return &ast.NumberLiteral{Token: tok, Value: 1}
		case "false":
			p.advance()
			return &ast.NumberLiteral{Token: tok, Value: 0}
		case "nil":
			p.advance()
			return &ast.NilLiteral{Token: tok}
		case "function":
			return p.parseFunctionLiteral()
		default:
			p.errorAt(tok, "Unexpected keyword in primary expression: "+tok.Literal)
			return nil
		}

	case token.EOF:
		p.errorAt(tok, "Unexpected end of input while expecting a primary expression")
		return nil

	default:
		p.errorAt(tok, fmt.Sprintf("Unexpected token in primary expression: %q", tok.Literal))
		return nil
	}
}

func (p *Parser) parseListLiteral() ast.Expression {
	lit := &ast.ListLiteral{Token: p.cur()}
	p.advance()

	if !p.cur().Is(token.RBRACKET) {
		for {
			if p.cur().Is(token.RBRACKET) || p.atEnd() {
				p.errorAt(p.cur(), "Invalid list element or trailing comma")
				return nil
			}
			el := p.parseExpression()
			if p.failed() {
				return nil
			}
			lit.Elements = append(lit.Elements, el)
			if !p.cur().Is(token.COMMA) {
				break
			}
			p.advance()
		}
	}

	if !p.expectKind(token.RBRACKET, "Expected ']' after list elements") {
		return nil
	}
	return lit
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	lit := &ast.FunctionLiteral{Token: p.cur()}
	p.advance()

	if !p.expectKind(token.LPAREN, "Expected '(' after 'function'") {
		return nil
	}
	if !p.cur().Is(token.RPAREN) {
		for {
			if !p.cur().Is(token.IDENT) {
				p.errorAt(p.cur(), "Expected parameter name, got: "+p.cur().Literal)
				return nil
			}
			lit.Parameters = append(lit.Parameters, p.cur().Literal)
			p.advance()
			if !p.cur().Is(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	if !p.expectKind(token.RPAREN, "Expected ')' after function parameters") {
		return nil
	}

	lit.Body = p.parseBlock()

	if !p.expectKeyword("end", "Expected 'end' after function body") {
		return nil
	}
	if !p.expectKeyword("function", "Expected 'function' after 'end' for function definition") {
		return nil
	}
	return lit
}

func (p *Parser) parseCall(callee ast.Expression) ast.Expression {
	call := &ast.CallExpression{Token: p.cur(), Callee: callee}
	p.advance()

	if !p.cur().Is(token.RPAREN) {
		for {
			arg := p.parseExpression()
			if p.failed() {
				return nil
			}
			call.Arguments = append(call.Arguments, arg)
			if !p.cur().Is(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	if !p.expectKind(token.RPAREN, "Expected ')' after function arguments") {
		return nil
	}
	return call
}

func (p *Parser) parseIndexOrSlice(left ast.Expression) ast.Expression {
	tok := p.cur()
	p.advance()

	var start, end, step ast.Expression
	isSlice := false

	if p.cur().Is(token.COLON) {
		isSlice = true
	} else if !p.cur().Is(token.RBRACKET) {
		start = p.parseExpression()
		if p.failed() {
			return nil
		}
	}

	if p.cur().Is(token.COLON) {
		isSlice = true
		p.advance()

		if !p.cur().Is(token.RBRACKET) && !p.cur().Is(token.COLON) {
			end = p.parseExpression()
			if p.failed() {
				return nil
			}
		}

		if p.cur().Is(token.COLON) {
			p.advance()
			if !p.cur().Is(token.RBRACKET) {
				step = p.parseExpression()
				if p.failed() {
					return nil
				}
			}
		}
	}

	if !p.expectKind(token.RBRACKET, "Expected ']' after index or slice expression") {
		return nil
	}

	if isSlice {
		return &ast.SliceExpression{Token: tok, Left: left, Start: start, End: end, Step: step}
	}
	if start == nil {
		// `expr[]` is not an index operation; the empty list literal is
		// matched as a primary instead.
		p.errorAt(tok, "Invalid empty index operation on an expression")
		return nil
	}
	return &ast.IndexExpression{Token: tok, Left: left, Index: start}
}

/* -------------------- helpers -------------------- */

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *Parser) atEnd() bool  { return p.cur().Kind == token.EOF }
func (p *Parser) failed() bool { return len(p.errors) > 0 }

func (p *Parser) isSeparator(tok token.Token) bool {
	return tok.Kind == token.NEWLINE || tok.Kind == token.SEMICOLON
}

// skipSeparators advances past statement separators so the multi-token block
// closers ('end if', 'end while', ...) can be matched across line breaks.
func (p *Parser) skipSeparators() {
	for p.isSeparator(p.cur()) {
		p.advance()
	}
}

func (p *Parser) expectKeyword(word, msg string) bool {
	p.skipSeparators()
	if p.cur().IsKeyword(word) {
		p.advance()
		return true
	}
	p.errorAt(p.cur(), msg+". Got: "+describe(p.cur()))
	return false
}

func (p *Parser) expectKind(kind token.Kind, msg string) bool {
	if p.cur().Is(kind) {
		p.advance()
		return true
	}
	p.errorAt(p.cur(), msg)
	return false
}

func (p *Parser) errorAt(tok token.Token, msg string) {
	if p.failed() {
		return
	}
	length := 1
	if tok.Literal != "" {
		length = len(tok.Literal)
	}
	p.diags = append(p.diags, diag.Diagnostic{
		Code:     "IP0001",
		Message:  msg,
		Severity: diag.SeverityError,
		Range: diag.Range{
			Line:   tok.Line,
			Col:    tok.Col,
			Length: length,
		},
	})
	p.errors = append(p.errors, fmt.Sprintf("%s (line %d, column %d)", msg, tok.Line, tok.Col))
}

func describe(tok token.Token) string {
	if tok.Kind == token.EOF {
		return "EOF"
	}
	if tok.Kind == token.NEWLINE {
		return "end of line"
	}
	return "'" + tok.Literal + "'"
}
