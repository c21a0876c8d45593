package compiler

import (
	"fmt"

	"github.com/noodlelang/noodle/pkg/ast"
)

// analyzer checks name binding before code generation: every variable must
// be assigned before use, and function names must not collide. Functions
// get a copy of the enclosing scope, so bodies see earlier top-level names
// but their own bindings stay local.
type analyzer struct {
	scope    map[string]bool
	errors   []Diagnostic
	warnings []Diagnostic
}

// builtinNames are callable without declaration.
var builtinNames = map[string]bool{
	"print": true,
	"len":   true,
}

func newAnalyzer() *analyzer {
	return &analyzer{scope: map[string]bool{}}
}

func (a *analyzer) errorf(pos ast.Position, format string, args ...any) {
	a.errors = append(a.errors, Diagnostic{
		Phase:   PhaseSemantic,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

func (a *analyzer) warnf(pos ast.Position, format string, args ...any) {
	a.warnings = append(a.warnings, Diagnostic{
		Phase:   PhaseSemantic,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

func (a *analyzer) analyze(program *ast.Program) {
	for _, stmt := range program.Statements {
		a.statement(stmt)
	}
}

func (a *analyzer) statement(node ast.Node) {
	switch n := node.(type) {
	case *ast.Assignment:
		a.assignment(n)
	case *ast.ExpressionStmt:
		a.expression(n.Expr)
	case *ast.FunctionDef:
		a.functionDef(n)
	case *ast.If:
		a.expression(n.Cond)
		a.block(n.Then)
		for _, elif := range n.Elifs {
			a.expression(elif.Cond)
			a.block(elif.Body)
		}
		a.block(n.Else)
	case *ast.While:
		a.expression(n.Cond)
		a.block(n.Body)
	case *ast.For:
		a.expression(n.Iterable)
		a.scope[n.Var] = true
		a.block(n.Body)
	case *ast.Return:
		if n.Value != nil {
			a.expression(n.Value)
		}
	case *ast.Import:
		name := n.Alias
		if name == "" {
			name = n.Module
		}
		a.scope[name] = true
	case *ast.ClassDef:
		if a.scope[n.Name] {
			a.errorf(n.Pos(), "class %q already declared", n.Name)
		}
		a.scope[n.Name] = true
		a.block(n.Members)
	}
}

func (a *analyzer) block(statements []ast.Node) {
	for _, stmt := range statements {
		a.statement(stmt)
	}
}

func (a *analyzer) assignment(n *ast.Assignment) {
	a.expression(n.Value)
	switch target := n.Target.(type) {
	case *ast.Variable:
		if builtinNames[target.Name] && !a.scope[target.Name] {
			a.warnf(target.Pos(), "assignment to %q shadows a builtin", target.Name)
		}
		a.scope[target.Name] = true
	case *ast.Index:
		a.expression(target)
	default:
		a.errorf(n.Pos(), "invalid assignment target")
	}
}

func (a *analyzer) functionDef(n *ast.FunctionDef) {
	if a.scope[n.Name] {
		a.errorf(n.Pos(), "function %q already declared", n.Name)
	}
	a.scope[n.Name] = true

	outer := a.scope
	inner := make(map[string]bool, len(outer)+len(n.Params))
	for name := range outer {
		inner[name] = true
	}
	a.scope = inner
	for _, param := range n.Params {
		if inner[param.Name] && paramRedeclared(n.Params, param) {
			a.errorf(param.Pos(), "parameter %q already declared", param.Name)
		}
		inner[param.Name] = true
	}
	a.block(n.Body)
	a.scope = outer
}

// paramRedeclared reports whether an earlier parameter shares this name.
// Shadowing an outer variable is fine and only warrants nothing at all.
func paramRedeclared(params []*ast.Parameter, param *ast.Parameter) bool {
	for _, other := range params {
		if other == param {
			return false
		}
		if other.Name == param.Name {
			return true
		}
	}
	return false
}

func (a *analyzer) expression(node ast.Node) {
	switch n := node.(type) {
	case *ast.Literal:
	case *ast.Variable:
		if !a.scope[n.Name] && !builtinNames[n.Name] {
			a.errorf(n.Pos(), "undefined variable %q", n.Name)
		}
	case *ast.BinaryOp:
		a.expression(n.Left)
		a.expression(n.Right)
	case *ast.UnaryOp:
		a.expression(n.Operand)
	case *ast.Call:
		if callee, ok := n.Callee.(*ast.Variable); ok {
			if !a.scope[callee.Name] && !builtinNames[callee.Name] {
				a.errorf(callee.Pos(), "undefined function %q", callee.Name)
			}
		} else {
			a.expression(n.Callee)
		}
		for _, arg := range n.Args {
			a.expression(arg)
		}
	case *ast.Assignment:
		a.assignment(n)
	case *ast.List:
		for _, elem := range n.Elements {
			a.expression(elem)
		}
	case *ast.Matrix:
		for _, row := range n.Rows {
			for _, elem := range row {
				a.expression(elem)
			}
		}
	case *ast.Index:
		a.expression(n.Target)
		for _, idx := range n.Indices {
			a.expression(idx)
		}
	case *ast.Slice:
		if n.Start != nil {
			a.expression(n.Start)
		}
		if n.Stop != nil {
			a.expression(n.Stop)
		}
		if n.Step != nil {
			a.expression(n.Step)
		}
	}
}
