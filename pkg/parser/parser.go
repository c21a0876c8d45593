package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noodlelang/noodle/pkg/ast"
)

// ParseError is a single syntax error with its source position.
type ParseError struct {
	Pos ast.Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// ErrorList collects every syntax error found in one parse.
type ErrorList []*ParseError

func (l ErrorList) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Parser builds an AST from Noodle source text. It keeps parsing after an
// error so one pass reports as many problems as possible.
type Parser struct {
	lexer  *Lexer
	cur    Token
	peek   Token
	errors ErrorList
}

// NewParser creates a parser over the given source text.
func NewParser(source string) *Parser {
	p := &Parser{lexer: NewLexer(source)}
	p.next()
	p.next()
	return p
}

// Parse parses the whole input and returns the program. Source text with
// syntax errors yields a nil program and the full error list.
func Parse(source string) (*ast.Program, error) {
	p := NewParser(source)
	prog := p.parseProgram()
	if len(p.errors) > 0 {
		return nil, p.errors
	}
	return prog, nil
}

// ParseProgram parses the whole input, recovering at statement boundaries.
// Check Errors afterwards; a program parsed with errors may be incomplete.
func (p *Parser) ParseProgram() *ast.Program {
	return p.parseProgram()
}

// Errors returns the syntax errors found so far.
func (p *Parser) Errors() ErrorList {
	return p.errors
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) errorf(pos ast.Position, format string, args ...any) {
	p.errors = append(p.errors, &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// expect consumes the current token if it has the given type, otherwise
// records an error and leaves the token in place.
func (p *Parser) expect(ty TokenType) bool {
	if p.cur.Type == ty {
		p.next()
		return true
	}
	p.errorf(p.cur.Pos, "expected %s, got %s", ty, p.cur)
	return false
}

// synchronize skips tokens until a statement boundary, so one syntax error
// does not cascade into spurious ones.
func (p *Parser) synchronize() {
	for p.cur.Type != TokenEOF {
		if p.cur.Type == TokenSemicolon {
			p.next()
			return
		}
		switch p.cur.Type {
		case TokenLet, TokenDef, TokenIf, TokenFor, TokenWhile,
			TokenReturn, TokenImport, TokenClass, TokenRBrace:
			return
		}
		p.next()
	}
}

func (p *Parser) parseProgram() *ast.Program {
	var statements []ast.Node
	for p.cur.Type != TokenEOF {
		before := len(p.errors)
		stmt := p.parseStatement()
		if stmt != nil {
			statements = append(statements, stmt)
		}
		if len(p.errors) > before {
			p.synchronize()
		}
	}
	return ast.NewProgram(statements...)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() ast.Node {
	switch p.cur.Type {
	case TokenLet:
		return p.parseLet()
	case TokenDef:
		return p.parseFunctionDef()
	case TokenIf:
		return p.parseIf()
	case TokenFor:
		return p.parseFor()
	case TokenWhile:
		return p.parseWhile()
	case TokenReturn:
		return p.parseReturn()
	case TokenImport:
		return p.parseImport()
	case TokenClass:
		return p.parseClassDef()
	case TokenError:
		p.errorf(p.cur.Pos, "%s", p.cur.Literal)
		p.next()
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

// parseLet handles `let name [: type] [= expr];`. A declaration without an
// initializer binds none.
func (p *Parser) parseLet() ast.Node {
	pos := p.cur.Pos
	p.next() // let
	if p.cur.Type != TokenIdentifier {
		p.errorf(p.cur.Pos, "expected variable name after let, got %s", p.cur)
		return nil
	}
	name := p.cur.Literal
	namePos := p.cur.Pos
	p.next()
	if p.cur.Type == TokenColon {
		p.next()
		p.parseTypeName()
	}
	var value ast.Node
	if p.cur.Type == TokenAssign {
		p.next()
		value = p.parseExpression()
	} else {
		value = ast.NewLiteral(nil, pos)
	}
	p.expect(TokenSemicolon)
	if value == nil {
		return nil
	}
	return ast.NewAssignment(ast.NewVariable(name, namePos), value, "=", pos)
}

// parseTypeName consumes a type annotation. Annotations are accepted and
// recorded as text; nothing downstream enforces them yet.
func (p *Parser) parseTypeName() string {
	if p.cur.Type != TokenIdentifier {
		p.errorf(p.cur.Pos, "expected type name, got %s", p.cur)
		return ""
	}
	name := p.cur.Literal
	p.next()
	return name
}

func (p *Parser) parseFunctionDef() ast.Node {
	pos := p.cur.Pos
	p.next() // def
	if p.cur.Type != TokenIdentifier {
		p.errorf(p.cur.Pos, "expected function name after def, got %s", p.cur)
		return nil
	}
	name := p.cur.Literal
	p.next()
	if !p.expect(TokenLParen) {
		return nil
	}
	var params []*ast.Parameter
	for p.cur.Type != TokenRParen && p.cur.Type != TokenEOF {
		if p.cur.Type != TokenIdentifier {
			p.errorf(p.cur.Pos, "expected parameter name, got %s", p.cur)
			return nil
		}
		params = append(params, ast.NewParameter(p.cur.Literal, nil, false, p.cur.Pos))
		p.next()
		if p.cur.Type == TokenColon {
			p.next()
			p.parseTypeName()
		}
		if p.cur.Type == TokenComma {
			p.next()
		} else if p.cur.Type != TokenRParen {
			p.errorf(p.cur.Pos, "expected , or ) in parameter list, got %s", p.cur)
			return nil
		}
	}
	if !p.expect(TokenRParen) {
		return nil
	}
	returnType := ""
	if p.cur.Type == TokenArrow {
		p.next()
		returnType = p.parseTypeName()
	}
	body := p.parseBlock()
	return ast.NewFunctionDef(name, params, returnType, body, pos)
}

// parseIf handles if/else chains. An `else if` continues the same If node as
// an elif clause rather than nesting a fresh statement.
func (p *Parser) parseIf() ast.Node {
	pos := p.cur.Pos
	p.next() // if
	cond := p.parseExpression()
	then := p.parseBlock()
	var elifs []*ast.Elif
	var els []ast.Node
	for p.cur.Type == TokenElse {
		p.next()
		if p.cur.Type == TokenIf {
			elifPos := p.cur.Pos
			p.next()
			elifCond := p.parseExpression()
			elifBody := p.parseBlock()
			if elifCond != nil {
				elifs = append(elifs, ast.NewElif(elifCond, elifBody, elifPos))
			}
			continue
		}
		els = p.parseBlock()
		break
	}
	if cond == nil {
		return nil
	}
	return ast.NewIf(cond, then, elifs, els, pos)
}

func (p *Parser) parseFor() ast.Node {
	pos := p.cur.Pos
	p.next() // for
	if p.cur.Type != TokenIdentifier {
		p.errorf(p.cur.Pos, "expected loop variable after for, got %s", p.cur)
		return nil
	}
	name := p.cur.Literal
	p.next()
	if !p.expect(TokenIn) {
		return nil
	}
	iterable := p.parseExpression()
	body := p.parseBlock()
	if iterable == nil {
		return nil
	}
	return ast.NewFor(name, iterable, body, pos)
}

func (p *Parser) parseWhile() ast.Node {
	pos := p.cur.Pos
	p.next() // while
	cond := p.parseExpression()
	body := p.parseBlock()
	if cond == nil {
		return nil
	}
	return ast.NewWhile(cond, body, pos)
}

func (p *Parser) parseReturn() ast.Node {
	pos := p.cur.Pos
	p.next() // return
	var value ast.Node
	if p.cur.Type != TokenSemicolon {
		value = p.parseExpression()
	}
	p.expect(TokenSemicolon)
	return ast.NewReturn(value, pos)
}

func (p *Parser) parseImport() ast.Node {
	pos := p.cur.Pos
	p.next() // import
	if p.cur.Type != TokenString {
		p.errorf(p.cur.Pos, "expected module name string after import, got %s", p.cur)
		return nil
	}
	module := p.cur.Literal
	p.next()
	alias := ""
	if p.cur.Type == TokenAs {
		p.next()
		if p.cur.Type != TokenIdentifier {
			p.errorf(p.cur.Pos, "expected alias name after as, got %s", p.cur)
			return nil
		}
		alias = p.cur.Literal
		p.next()
	}
	p.expect(TokenSemicolon)
	return ast.NewImport(module, alias, pos)
}

func (p *Parser) parseClassDef() ast.Node {
	pos := p.cur.Pos
	p.next() // class
	if p.cur.Type != TokenIdentifier {
		p.errorf(p.cur.Pos, "expected class name, got %s", p.cur)
		return nil
	}
	name := p.cur.Literal
	p.next()
	extends := ""
	if p.cur.Type == TokenExtends {
		p.next()
		if p.cur.Type != TokenIdentifier {
			p.errorf(p.cur.Pos, "expected parent class name after extends, got %s", p.cur)
			return nil
		}
		extends = p.cur.Literal
		p.next()
	}
	members := p.parseBlock()
	return ast.NewClassDef(name, extends, members, pos)
}

func (p *Parser) parseExpressionStatement() ast.Node {
	pos := p.cur.Pos
	expr := p.parseExpression()
	if expr == nil {
		if p.cur.Type != TokenEOF {
			p.next()
		}
		return nil
	}
	p.expect(TokenSemicolon)
	if _, ok := expr.(*ast.Assignment); ok {
		return expr
	}
	return ast.NewExpressionStmt(expr, pos)
}

// parseBlock parses a `{ ... }` statement list.
func (p *Parser) parseBlock() []ast.Node {
	if !p.expect(TokenLBrace) {
		return nil
	}
	var statements []ast.Node
	for p.cur.Type != TokenRBrace && p.cur.Type != TokenEOF {
		before := len(p.errors)
		stmt := p.parseStatement()
		if stmt != nil {
			statements = append(statements, stmt)
		}
		if len(p.errors) > before {
			p.synchronize()
		}
	}
	p.expect(TokenRBrace)
	return statements
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() ast.Node {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Node {
	left := p.parseLogicalOr()
	if p.cur.Type != TokenAssign {
		return left
	}
	pos := p.cur.Pos
	p.next()
	value := p.parseAssignment()
	if left == nil || value == nil {
		return nil
	}
	switch left.(type) {
	case *ast.Variable, *ast.Index:
	default:
		p.errorf(pos, "invalid assignment target")
		return nil
	}
	return ast.NewAssignment(left, value, "=", pos)
}

func (p *Parser) parseLogicalOr() ast.Node {
	left := p.parseLogicalAnd()
	for p.cur.Type == TokenOr {
		pos := p.cur.Pos
		p.next()
		right := p.parseLogicalAnd()
		if left == nil || right == nil {
			return nil
		}
		left = ast.NewBinaryOp("||", left, right, pos)
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Node {
	left := p.parseEquality()
	for p.cur.Type == TokenAnd {
		pos := p.cur.Pos
		p.next()
		right := p.parseEquality()
		if left == nil || right == nil {
			return nil
		}
		left = ast.NewBinaryOp("&&", left, right, pos)
	}
	return left
}

func (p *Parser) parseEquality() ast.Node {
	left := p.parseComparison()
	for p.cur.Type == TokenEq || p.cur.Type == TokenNe {
		op := p.cur.Literal
		pos := p.cur.Pos
		p.next()
		right := p.parseComparison()
		if left == nil || right == nil {
			return nil
		}
		left = ast.NewBinaryOp(op, left, right, pos)
	}
	return left
}

func (p *Parser) parseComparison() ast.Node {
	left := p.parseTerm()
	for p.cur.Type == TokenLt || p.cur.Type == TokenLe ||
		p.cur.Type == TokenGt || p.cur.Type == TokenGe {
		op := p.cur.Literal
		pos := p.cur.Pos
		p.next()
		right := p.parseTerm()
		if left == nil || right == nil {
			return nil
		}
		left = ast.NewBinaryOp(op, left, right, pos)
	}
	return left
}

func (p *Parser) parseTerm() ast.Node {
	left := p.parseFactor()
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus {
		op := p.cur.Literal
		pos := p.cur.Pos
		p.next()
		right := p.parseFactor()
		if left == nil || right == nil {
			return nil
		}
		left = ast.NewBinaryOp(op, left, right, pos)
	}
	return left
}

func (p *Parser) parseFactor() ast.Node {
	left := p.parseUnary()
	for p.cur.Type == TokenStar || p.cur.Type == TokenSlash || p.cur.Type == TokenPercent {
		op := p.cur.Literal
		pos := p.cur.Pos
		p.next()
		right := p.parseUnary()
		if left == nil || right == nil {
			return nil
		}
		left = ast.NewBinaryOp(op, left, right, pos)
	}
	return left
}

func (p *Parser) parseUnary() ast.Node {
	if p.cur.Type == TokenNot || p.cur.Type == TokenMinus {
		op := p.cur.Literal
		pos := p.cur.Pos
		p.next()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return ast.NewUnaryOp(op, operand, pos)
	}
	return p.parsePower()
}

// parsePower handles **, which binds tighter than unary on its right side
// and associates to the right.
func (p *Parser) parsePower() ast.Node {
	left := p.parsePostfix()
	if p.cur.Type != TokenPower {
		return left
	}
	pos := p.cur.Pos
	p.next()
	right := p.parseUnary()
	if left == nil || right == nil {
		return nil
	}
	return ast.NewBinaryOp("**", left, right, pos)
}

// parsePostfix handles call and index suffixes, which may chain.
func (p *Parser) parsePostfix() ast.Node {
	expr := p.parsePrimary()
	for expr != nil {
		switch p.cur.Type {
		case TokenLParen:
			expr = p.parseCall(expr)
		case TokenLBracket:
			expr = p.parseIndex(expr)
		default:
			return expr
		}
	}
	return expr
}

func (p *Parser) parseCall(callee ast.Node) ast.Node {
	pos := p.cur.Pos
	p.next() // (
	var args []ast.Node
	for p.cur.Type != TokenRParen && p.cur.Type != TokenEOF {
		arg := p.parseExpression()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if p.cur.Type == TokenComma {
			p.next()
		} else if p.cur.Type != TokenRParen {
			p.errorf(p.cur.Pos, "expected , or ) in argument list, got %s", p.cur)
			return nil
		}
	}
	if !p.expect(TokenRParen) {
		return nil
	}
	return ast.NewCall(callee, args, false, pos)
}

// parseIndex handles `target[expr]` and `target[start:stop[:step]]` with any
// slice component omitted.
func (p *Parser) parseIndex(target ast.Node) ast.Node {
	pos := p.cur.Pos
	p.next() // [
	var start ast.Node
	if p.cur.Type != TokenColon {
		start = p.parseExpression()
		if start == nil {
			return nil
		}
	}
	if p.cur.Type != TokenColon {
		if !p.expect(TokenRBracket) {
			return nil
		}
		return ast.NewIndex(target, []ast.Node{start}, pos)
	}
	p.next() // :
	var stop, step ast.Node
	if p.cur.Type != TokenColon && p.cur.Type != TokenRBracket {
		stop = p.parseExpression()
		if stop == nil {
			return nil
		}
	}
	if p.cur.Type == TokenColon {
		p.next()
		if p.cur.Type != TokenRBracket {
			step = p.parseExpression()
			if step == nil {
				return nil
			}
		}
	}
	if !p.expect(TokenRBracket) {
		return nil
	}
	return ast.NewIndex(target, []ast.Node{ast.NewSlice(start, stop, step, pos)}, pos)
}

func (p *Parser) parsePrimary() ast.Node {
	pos := p.cur.Pos
	switch p.cur.Type {
	case TokenNumber:
		lit := p.cur.Literal
		p.next()
		return p.numberLiteral(lit, pos)
	case TokenString:
		lit := p.cur.Literal
		p.next()
		return ast.NewLiteral(lit, pos)
	case TokenTrue:
		p.next()
		return ast.NewLiteral(true, pos)
	case TokenFalse:
		p.next()
		return ast.NewLiteral(false, pos)
	case TokenNone:
		p.next()
		return ast.NewLiteral(nil, pos)
	case TokenIdentifier:
		name := p.cur.Literal
		p.next()
		return ast.NewVariable(name, pos)
	case TokenLParen:
		p.next()
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		if !p.expect(TokenRParen) {
			return nil
		}
		return expr
	case TokenLBracket:
		return p.parseListLiteral()
	case TokenError:
		p.errorf(pos, "%s", p.cur.Literal)
		p.next()
		return nil
	default:
		p.errorf(pos, "unexpected %s in expression", p.cur)
		return nil
	}
}

// parseListLiteral handles `[a, b, c]`. A literal whose elements are all
// list literals of equal length parses as a matrix.
func (p *Parser) parseListLiteral() ast.Node {
	pos := p.cur.Pos
	p.next() // [
	var elements []ast.Node
	for p.cur.Type != TokenRBracket && p.cur.Type != TokenEOF {
		elem := p.parseExpression()
		if elem == nil {
			return nil
		}
		elements = append(elements, elem)
		if p.cur.Type == TokenComma {
			p.next()
		} else if p.cur.Type != TokenRBracket {
			p.errorf(p.cur.Pos, "expected , or ] in list literal, got %s", p.cur)
			return nil
		}
	}
	if !p.expect(TokenRBracket) {
		return nil
	}
	if rows, ok := matrixRows(elements); ok {
		return ast.NewMatrix(rows, pos)
	}
	return ast.NewList(elements, pos)
}

// matrixRows reports whether the elements form a rectangular nested literal.
func matrixRows(elements []ast.Node) ([][]ast.Node, bool) {
	if len(elements) == 0 {
		return nil, false
	}
	rows := make([][]ast.Node, len(elements))
	width := -1
	for i, elem := range elements {
		row, ok := elem.(*ast.List)
		if !ok {
			return nil, false
		}
		if width == -1 {
			width = len(row.Elements)
		} else if len(row.Elements) != width {
			return nil, false
		}
		if width == 0 {
			return nil, false
		}
		rows[i] = row.Elements
	}
	return rows, true
}

func (p *Parser) numberLiteral(lit string, pos ast.Position) ast.Node {
	if strings.ContainsAny(lit, ".eE") {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.errorf(pos, "invalid number literal %q", lit)
			return nil
		}
		return ast.NewLiteral(f, pos)
	}
	i, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		p.errorf(pos, "invalid number literal %q", lit)
		return nil
	}
	return ast.NewLiteral(i, pos)
}
