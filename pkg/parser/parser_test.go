package parser

import (
	"testing"

	"github.com/noodlelang/noodle/pkg/ast"
)

func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	prog, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", source, err)
	}
	return prog
}

func TestLexerTokenSequence(t *testing.T) {
	input := `let x = 42; # answer
if x >= 10 && !done { x = x + 1; }`
	want := []TokenType{
		TokenLet, TokenIdentifier, TokenAssign, TokenNumber, TokenSemicolon,
		TokenIf, TokenIdentifier, TokenGe, TokenNumber, TokenAnd, TokenNot,
		TokenIdentifier, TokenLBrace, TokenIdentifier, TokenAssign,
		TokenIdentifier, TokenPlus, TokenNumber, TokenSemicolon, TokenRBrace,
		TokenEOF,
	}
	l := NewLexer(input)
	for i, ty := range want {
		tok := l.NextToken()
		if tok.Type != ty {
			t.Fatalf("token %d = %s, want %s", i, tok.Type, ty)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	l := NewLexer("let\n  x")
	tok := l.NextToken()
	if tok.Pos.Line != 1 || tok.Pos.Column != 1 {
		t.Errorf("let position = %d:%d, want 1:1", tok.Pos.Line, tok.Pos.Column)
	}
	tok = l.NextToken()
	if tok.Pos.Line != 2 || tok.Pos.Column != 3 {
		t.Errorf("x position = %d:%d, want 2:3", tok.Pos.Line, tok.Pos.Column)
	}
}

func TestLexerStringEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"quote \" end"`, `quote " end`},
	}
	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != TokenString {
			t.Errorf("lexing %s: type = %s, want STRING", tt.input, tok.Type)
			continue
		}
		if tok.Literal != tt.want {
			t.Errorf("lexing %s: literal = %q, want %q", tt.input, tok.Literal, tt.want)
		}
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	tok := NewLexer(`"open`).NextToken()
	if tok.Type != TokenError {
		t.Errorf("token type = %s, want ERROR", tok.Type)
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct{ input, literal string }{
		{"42", "42"},
		{"3.14", "3.14"},
		{"1.5e10", "1.5e10"},
		{"2E-3", "2E-3"},
		{"7.", "7"}, // trailing dot is not part of the number
	}
	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != TokenNumber || tok.Literal != tt.literal {
			t.Errorf("lexing %q: got %s, want NUMBER(%q)", tt.input, tok, tt.literal)
		}
	}
}

func TestParseLetStatement(t *testing.T) {
	prog := mustParse(t, "let x = 5;")
	if len(prog.Statements) != 1 {
		t.Fatalf("statement count = %d, want 1", len(prog.Statements))
	}
	assign, ok := prog.Statements[0].(*ast.Assignment)
	if !ok {
		t.Fatalf("statement type = %T, want *ast.Assignment", prog.Statements[0])
	}
	v, ok := assign.Target.(*ast.Variable)
	if !ok || v.Name != "x" {
		t.Fatalf("target = %#v, want variable x", assign.Target)
	}
	lit, ok := assign.Value.(*ast.Literal)
	if !ok || lit.Value != int64(5) {
		t.Errorf("value = %#v, want literal 5", assign.Value)
	}
}

func TestParseLetWithoutInitializer(t *testing.T) {
	prog := mustParse(t, "let x;")
	assign := prog.Statements[0].(*ast.Assignment)
	lit, ok := assign.Value.(*ast.Literal)
	if !ok || lit.Value != nil {
		t.Errorf("value = %#v, want none literal", assign.Value)
	}
}

func TestParseLetWithTypeAnnotation(t *testing.T) {
	prog := mustParse(t, "let x: int = 5;")
	if _, ok := prog.Statements[0].(*ast.Assignment); !ok {
		t.Errorf("statement type = %T, want *ast.Assignment", prog.Statements[0])
	}
}

func TestParsePrecedence(t *testing.T) {
	prog := mustParse(t, "let r = 1 + 2 * 3;")
	assign := prog.Statements[0].(*ast.Assignment)
	add, ok := assign.Value.(*ast.BinaryOp)
	if !ok || add.Op != "+" {
		t.Fatalf("root op = %#v, want +", assign.Value)
	}
	mul, ok := add.Right.(*ast.BinaryOp)
	if !ok || mul.Op != "*" {
		t.Fatalf("right operand = %#v, want * node", add.Right)
	}
}

func TestParseParenthesesOverridePrecedence(t *testing.T) {
	prog := mustParse(t, "let r = (1 + 2) * 3;")
	assign := prog.Statements[0].(*ast.Assignment)
	mul := assign.Value.(*ast.BinaryOp)
	if mul.Op != "*" {
		t.Fatalf("root op = %q, want *", mul.Op)
	}
	add, ok := mul.Left.(*ast.BinaryOp)
	if !ok || add.Op != "+" {
		t.Errorf("left operand = %#v, want + node", mul.Left)
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	prog := mustParse(t, "let r = 2 ** 3 ** 2;")
	assign := prog.Statements[0].(*ast.Assignment)
	outer := assign.Value.(*ast.BinaryOp)
	if outer.Op != "**" {
		t.Fatalf("root op = %q, want **", outer.Op)
	}
	inner, ok := outer.Right.(*ast.BinaryOp)
	if !ok || inner.Op != "**" {
		t.Errorf("right operand = %#v, want ** node", outer.Right)
	}
}

func TestParseLogicalOperators(t *testing.T) {
	prog := mustParse(t, "let r = a && b || !c;")
	assign := prog.Statements[0].(*ast.Assignment)
	or := assign.Value.(*ast.BinaryOp)
	if or.Op != "||" {
		t.Fatalf("root op = %q, want ||", or.Op)
	}
	and := or.Left.(*ast.BinaryOp)
	if and.Op != "&&" {
		t.Errorf("left op = %q, want &&", and.Op)
	}
	not, ok := or.Right.(*ast.UnaryOp)
	if !ok || not.Op != "!" {
		t.Errorf("right operand = %#v, want ! node", or.Right)
	}
}

func TestParseFunctionDef(t *testing.T) {
	prog := mustParse(t, `def add(a: int, b: int) -> int {
	return a + b;
}`)
	fn, ok := prog.Statements[0].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("statement type = %T, want *ast.FunctionDef", prog.Statements[0])
	}
	if fn.Name != "add" {
		t.Errorf("name = %q, want add", fn.Name)
	}
	if len(fn.Params) != 2 || fn.Params[0].Name != "a" || fn.Params[1].Name != "b" {
		t.Errorf("params = %v, want [a b]", fn.Params)
	}
	if fn.ReturnType != "int" {
		t.Errorf("return type = %q, want int", fn.ReturnType)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("body length = %d, want 1", len(fn.Body))
	}
	if _, ok := fn.Body[0].(*ast.Return); !ok {
		t.Errorf("body statement type = %T, want *ast.Return", fn.Body[0])
	}
}

func TestParseIfElseChain(t *testing.T) {
	prog := mustParse(t, `if a { x = 1; } else if b { x = 2; } else if c { x = 3; } else { x = 4; }`)
	stmt, ok := prog.Statements[0].(*ast.If)
	if !ok {
		t.Fatalf("statement type = %T, want *ast.If", prog.Statements[0])
	}
	if len(stmt.Elifs) != 2 {
		t.Errorf("elif count = %d, want 2", len(stmt.Elifs))
	}
	if len(stmt.Else) != 1 {
		t.Errorf("else length = %d, want 1", len(stmt.Else))
	}
}

func TestParseIfWithoutElse(t *testing.T) {
	prog := mustParse(t, "if a { x = 1; }")
	stmt := prog.Statements[0].(*ast.If)
	if stmt.Else != nil {
		t.Errorf("else = %v, want nil", stmt.Else)
	}
}

func TestParseForLoop(t *testing.T) {
	prog := mustParse(t, "for item in items { total = total + item; }")
	loop, ok := prog.Statements[0].(*ast.For)
	if !ok {
		t.Fatalf("statement type = %T, want *ast.For", prog.Statements[0])
	}
	if loop.Var != "item" {
		t.Errorf("loop variable = %q, want item", loop.Var)
	}
	if v, ok := loop.Iterable.(*ast.Variable); !ok || v.Name != "items" {
		t.Errorf("iterable = %#v, want variable items", loop.Iterable)
	}
}

func TestParseWhileLoop(t *testing.T) {
	prog := mustParse(t, "while i < 10 { i = i + 1; }")
	loop, ok := prog.Statements[0].(*ast.While)
	if !ok {
		t.Fatalf("statement type = %T, want *ast.While", prog.Statements[0])
	}
	if len(loop.Body) != 1 {
		t.Errorf("body length = %d, want 1", len(loop.Body))
	}
}

func TestParseImport(t *testing.T) {
	prog := mustParse(t, `import "math" as m;`)
	imp, ok := prog.Statements[0].(*ast.Import)
	if !ok {
		t.Fatalf("statement type = %T, want *ast.Import", prog.Statements[0])
	}
	if imp.Module != "math" || imp.Alias != "m" {
		t.Errorf("import = %q as %q, want math as m", imp.Module, imp.Alias)
	}
}

func TestParseClassDef(t *testing.T) {
	prog := mustParse(t, `class Dog extends Animal { def bark() { return "woof"; } }`)
	cls, ok := prog.Statements[0].(*ast.ClassDef)
	if !ok {
		t.Fatalf("statement type = %T, want *ast.ClassDef", prog.Statements[0])
	}
	if cls.Name != "Dog" || cls.Extends != "Animal" {
		t.Errorf("class = %q extends %q, want Dog extends Animal", cls.Name, cls.Extends)
	}
	if len(cls.Members) != 1 {
		t.Fatalf("member count = %d, want 1", len(cls.Members))
	}
}

func TestParseCallChain(t *testing.T) {
	prog := mustParse(t, "print(add(1, 2), 3);")
	stmt := prog.Statements[0].(*ast.ExpressionStmt)
	call, ok := stmt.Expr.(*ast.Call)
	if !ok {
		t.Fatalf("expr type = %T, want *ast.Call", stmt.Expr)
	}
	if v, ok := call.Callee.(*ast.Variable); !ok || v.Name != "print" {
		t.Fatalf("callee = %#v, want variable print", call.Callee)
	}
	if len(call.Args) != 2 {
		t.Fatalf("arg count = %d, want 2", len(call.Args))
	}
	inner, ok := call.Args[0].(*ast.Call)
	if !ok || len(inner.Args) != 2 {
		t.Errorf("first arg = %#v, want call with 2 args", call.Args[0])
	}
}

func TestParseIndexAndSlice(t *testing.T) {
	prog := mustParse(t, "let a = xs[1]; let b = xs[1:3]; let c = xs[::2];")

	idx := prog.Statements[0].(*ast.Assignment).Value.(*ast.Index)
	if len(idx.Indices) != 1 {
		t.Fatalf("index count = %d, want 1", len(idx.Indices))
	}
	if _, ok := idx.Indices[0].(*ast.Literal); !ok {
		t.Errorf("index = %#v, want literal", idx.Indices[0])
	}

	sliced := prog.Statements[1].(*ast.Assignment).Value.(*ast.Index)
	sl, ok := sliced.Indices[0].(*ast.Slice)
	if !ok {
		t.Fatalf("index = %#v, want *ast.Slice", sliced.Indices[0])
	}
	if sl.Start == nil || sl.Stop == nil || sl.Step != nil {
		t.Errorf("slice = start %v stop %v step %v, want start and stop set", sl.Start, sl.Stop, sl.Step)
	}

	stepped := prog.Statements[2].(*ast.Assignment).Value.(*ast.Index)
	sl2 := stepped.Indices[0].(*ast.Slice)
	if sl2.Start != nil || sl2.Stop != nil || sl2.Step == nil {
		t.Errorf("slice = start %v stop %v step %v, want only step set", sl2.Start, sl2.Stop, sl2.Step)
	}
}

func TestParseAssignmentToIndex(t *testing.T) {
	prog := mustParse(t, "xs[0] = 5;")
	assign, ok := prog.Statements[0].(*ast.Assignment)
	if !ok {
		t.Fatalf("statement type = %T, want *ast.Assignment", prog.Statements[0])
	}
	if _, ok := assign.Target.(*ast.Index); !ok {
		t.Errorf("target type = %T, want *ast.Index", assign.Target)
	}
}

func TestParseListLiteral(t *testing.T) {
	prog := mustParse(t, "let xs = [1, 2, 3];")
	list, ok := prog.Statements[0].(*ast.Assignment).Value.(*ast.List)
	if !ok {
		t.Fatalf("value type = %T, want *ast.List", prog.Statements[0].(*ast.Assignment).Value)
	}
	if len(list.Elements) != 3 {
		t.Errorf("element count = %d, want 3", len(list.Elements))
	}
}

func TestParseMatrixLiteral(t *testing.T) {
	prog := mustParse(t, "let m = [[1, 2], [3, 4]];")
	matrix, ok := prog.Statements[0].(*ast.Assignment).Value.(*ast.Matrix)
	if !ok {
		t.Fatalf("value type = %T, want *ast.Matrix", prog.Statements[0].(*ast.Assignment).Value)
	}
	if len(matrix.Rows) != 2 || len(matrix.Rows[0]) != 2 {
		t.Errorf("matrix shape = %dx%d, want 2x2", len(matrix.Rows), len(matrix.Rows[0]))
	}
}

func TestParseRaggedNestedListStaysList(t *testing.T) {
	prog := mustParse(t, "let m = [[1, 2], [3]];")
	if _, ok := prog.Statements[0].(*ast.Assignment).Value.(*ast.List); !ok {
		t.Errorf("value type = %T, want *ast.List for ragged rows",
			prog.Statements[0].(*ast.Assignment).Value)
	}
}

func TestParseInvalidAssignmentTarget(t *testing.T) {
	_, err := Parse("1 + 2 = 3;")
	if err == nil {
		t.Fatal("Parse accepted assignment to expression")
	}
}

func TestParseErrorRecovery(t *testing.T) {
	p := NewParser("let = 5; let y = 2; def (x) {}")
	p.ParseProgram()
	if len(p.Errors()) < 2 {
		t.Errorf("error count = %d, want at least 2", len(p.Errors()))
	}
}

func TestParseErrorHasPosition(t *testing.T) {
	_, err := Parse("let x = ;")
	if err == nil {
		t.Fatal("Parse accepted empty initializer")
	}
	list, ok := err.(ErrorList)
	if !ok {
		t.Fatalf("error type = %T, want ErrorList", err)
	}
	if list[0].Pos.Line != 1 {
		t.Errorf("error line = %d, want 1", list[0].Pos.Line)
	}
}

func TestParseNumberLiterals(t *testing.T) {
	prog := mustParse(t, "let a = 42; let b = 3.5; let c = 1e3;")
	want := []any{int64(42), 3.5, 1000.0}
	for i, w := range want {
		lit := prog.Statements[i].(*ast.Assignment).Value.(*ast.Literal)
		if lit.Value != w {
			t.Errorf("literal %d = %v (%T), want %v (%T)", i, lit.Value, lit.Value, w, w)
		}
	}
}

func TestParseCommentsIgnored(t *testing.T) {
	prog := mustParse(t, "# leading comment\nlet x = 1; # trailing\n# another\n")
	if len(prog.Statements) != 1 {
		t.Errorf("statement count = %d, want 1", len(prog.Statements))
	}
}

func TestParseEmptyInput(t *testing.T) {
	prog := mustParse(t, "")
	if len(prog.Statements) != 0 {
		t.Errorf("statement count = %d, want 0", len(prog.Statements))
	}
}
