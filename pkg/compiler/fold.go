package compiler

import (
	"math"

	"github.com/noodlelang/noodle/pkg/ast"
)

// folder rewrites constant subexpressions into literals. It rebuilds every
// node it touches through the ast constructors so attachment order and
// parent links stay consistent in the folded tree.
type folder struct {
	folded int
}

func newFolder() *folder {
	return &folder{}
}

func (f *folder) fold(node ast.Node) ast.Node {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *ast.Program:
		return ast.NewProgram(f.foldAll(n.Statements)...)
	case *ast.ExpressionStmt:
		return ast.NewExpressionStmt(f.fold(n.Expr), n.Pos())
	case *ast.Assignment:
		return ast.NewAssignment(f.fold(n.Target), f.fold(n.Value), n.Op, n.Pos())
	case *ast.FunctionDef:
		return ast.NewFunctionDef(n.Name, n.Params, n.ReturnType, f.foldAll(n.Body), n.Pos())
	case *ast.If:
		elifs := make([]*ast.Elif, len(n.Elifs))
		for i, elif := range n.Elifs {
			elifs[i] = ast.NewElif(f.fold(elif.Cond), f.foldAll(elif.Body), elif.Pos())
		}
		if len(elifs) == 0 {
			elifs = nil
		}
		return ast.NewIf(f.fold(n.Cond), f.foldAll(n.Then), elifs, f.foldAll(n.Else), n.Pos())
	case *ast.While:
		return ast.NewWhile(f.fold(n.Cond), f.foldAll(n.Body), n.Pos())
	case *ast.For:
		return ast.NewFor(n.Var, f.fold(n.Iterable), f.foldAll(n.Body), n.Pos())
	case *ast.Return:
		return ast.NewReturn(f.fold(n.Value), n.Pos())
	case *ast.BinaryOp:
		return f.foldBinary(n)
	case *ast.UnaryOp:
		return f.foldUnary(n)
	case *ast.Call:
		return ast.NewCall(f.fold(n.Callee), f.foldAll(n.Args), n.Async, n.Pos())
	case *ast.List:
		return ast.NewList(f.foldAll(n.Elements), n.Pos())
	case *ast.Matrix:
		rows := make([][]ast.Node, len(n.Rows))
		for i, row := range n.Rows {
			rows[i] = f.foldAll(row)
		}
		return ast.NewMatrix(rows, n.Pos())
	case *ast.Index:
		return ast.NewIndex(f.fold(n.Target), f.foldAll(n.Indices), n.Pos())
	case *ast.Slice:
		return ast.NewSlice(f.fold(n.Start), f.fold(n.Stop), f.fold(n.Step), n.Pos())
	default:
		// Literals, variables, imports, classes and parameters fold to
		// themselves.
		return node
	}
}

func (f *folder) foldAll(nodes []ast.Node) []ast.Node {
	if nodes == nil {
		return nil
	}
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		out[i] = f.fold(n)
	}
	return out
}

func (f *folder) foldBinary(n *ast.BinaryOp) ast.Node {
	left := f.fold(n.Left)
	right := f.fold(n.Right)

	lv, lok := literalValue(left)
	rv, rok := literalValue(right)
	if lok && rok {
		if value, ok := foldBinaryValue(n.Op, lv, rv); ok {
			f.folded++
			return ast.NewLiteral(value, n.Pos())
		}
	}
	return ast.NewBinaryOp(n.Op, left, right, n.Pos())
}

func (f *folder) foldUnary(n *ast.UnaryOp) ast.Node {
	operand := f.fold(n.Operand)
	if v, ok := literalValue(operand); ok {
		if value, ok := foldUnaryValue(n.Op, v); ok {
			f.folded++
			return ast.NewLiteral(value, n.Pos())
		}
	}
	return ast.NewUnaryOp(n.Op, operand, n.Pos())
}

func literalValue(node ast.Node) (any, bool) {
	lit, ok := node.(*ast.Literal)
	if !ok {
		return nil, false
	}
	switch lit.Value.(type) {
	case int64, float64, bool:
		return lit.Value, true
	}
	return nil, false
}

// foldBinaryValue evaluates op over two literal values, following the
// runtime's arithmetic: integer results for integer operands except
// division, which always yields a float. Division by zero never folds;
// it stays in the tree and fails at run time.
func foldBinaryValue(op string, left, right any) (any, bool) {
	lb, lIsBool := left.(bool)
	rb, rIsBool := right.(bool)
	if lIsBool || rIsBool {
		if !lIsBool || !rIsBool {
			return nil, false
		}
		switch op {
		case "&&":
			return lb && rb, true
		case "||":
			return lb || rb, true
		case "==":
			return lb == rb, true
		case "!=":
			return lb != rb, true
		}
		return nil, false
	}

	li, lIsInt := left.(int64)
	ri, rIsInt := right.(int64)
	if lIsInt && rIsInt {
		switch op {
		case "+":
			return li + ri, true
		case "-":
			return li - ri, true
		case "*":
			return li * ri, true
		case "/":
			if ri == 0 {
				return nil, false
			}
			return float64(li) / float64(ri), true
		case "%":
			if ri == 0 {
				return nil, false
			}
			return li % ri, true
		}
	}

	lf, lok := numericValue(left)
	rf, rok := numericValue(right)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case "+":
		return lf + rf, true
	case "-":
		return lf - rf, true
	case "*":
		return lf * rf, true
	case "/":
		if rf == 0 {
			return nil, false
		}
		return lf / rf, true
	case "**":
		return math.Pow(lf, rf), true
	case "==":
		return lf == rf, true
	case "!=":
		return lf != rf, true
	case "<":
		return lf < rf, true
	case "<=":
		return lf <= rf, true
	case ">":
		return lf > rf, true
	case ">=":
		return lf >= rf, true
	}
	return nil, false
}

func foldUnaryValue(op string, operand any) (any, bool) {
	switch op {
	case "-":
		switch v := operand.(type) {
		case int64:
			return -v, true
		case float64:
			return -v, true
		}
	case "!":
		if b, ok := operand.(bool); ok {
			return !b, true
		}
	}
	return nil, false
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
