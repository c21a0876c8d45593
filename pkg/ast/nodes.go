package ast

// Concrete node kinds. Constructors take the node's semantic fields and
// return a fully linked node: every sub-expression is attached as a child in
// construction order, so a parser never needs to call Attach itself.

// Program is the root node: an ordered list of top-level statements.
type Program struct {
	base
	Statements []Node
}

// NewProgram creates a program node from top-level statements.
func NewProgram(statements ...Node) *Program {
	n := &Program{base: base{typ: NodeProgram}, Statements: statements}
	attachAll(n, statements...)
	return n
}

func (n *Program) Accept(v Visitor) { v.Visit(n) }

// ExpressionStmt wraps an expression used in statement position.
type ExpressionStmt struct {
	base
	Expr Node
}

// NewExpressionStmt creates an expression statement.
func NewExpressionStmt(expr Node, pos Position) *ExpressionStmt {
	n := &ExpressionStmt{base: base{typ: NodeExpressionStmt, pos: pos}, Expr: expr}
	attachAll(n, expr)
	return n
}

func (n *ExpressionStmt) Accept(v Visitor) { v.Visit(n) }

// Literal is a tagged constant: float64, int64, string, bool, or nil.
type Literal struct {
	base
	Value any
}

// NewLiteral creates a literal node.
func NewLiteral(value any, pos Position) *Literal {
	return &Literal{base: base{typ: NodeLiteral, pos: pos}, Value: value}
}

func (n *Literal) Accept(v Visitor) { v.Visit(n) }

// BinaryOp applies an infix operator to two sub-expressions.
type BinaryOp struct {
	base
	Op    string
	Left  Node
	Right Node
}

// NewBinaryOp creates a binary operator node.
func NewBinaryOp(op string, left, right Node, pos Position) *BinaryOp {
	n := &BinaryOp{base: base{typ: NodeBinaryOp, pos: pos}, Op: op, Left: left, Right: right}
	attachAll(n, left, right)
	return n
}

func (n *BinaryOp) Accept(v Visitor) { v.Visit(n) }

// UnaryOp applies a prefix operator to one sub-expression.
type UnaryOp struct {
	base
	Op      string
	Operand Node
}

// NewUnaryOp creates a unary operator node.
func NewUnaryOp(op string, operand Node, pos Position) *UnaryOp {
	n := &UnaryOp{base: base{typ: NodeUnaryOp, pos: pos}, Op: op, Operand: operand}
	attachAll(n, operand)
	return n
}

func (n *UnaryOp) Accept(v Visitor) { v.Visit(n) }

// Call invokes a callee expression with ordered arguments.
type Call struct {
	base
	Callee Node
	Args   []Node
	Async  bool
}

// NewCall creates a call node.
func NewCall(callee Node, args []Node, async bool, pos Position) *Call {
	n := &Call{base: base{typ: NodeCall, pos: pos}, Callee: callee, Args: args, Async: async}
	attachAll(n, callee)
	attachAll(n, args...)
	return n
}

func (n *Call) Accept(v Visitor) { v.Visit(n) }

// Variable references a name, with an optional scope qualifier.
type Variable struct {
	base
	Name  string
	Scope string
}

// NewVariable creates a variable reference node.
func NewVariable(name string, pos Position) *Variable {
	return &Variable{base: base{typ: NodeVariable, pos: pos}, Name: name}
}

func (n *Variable) Accept(v Visitor) { v.Visit(n) }

// Assignment stores a value into a target (Variable or Index). Op carries
// the compound-operator tag ("+=" etc.), empty for plain assignment.
type Assignment struct {
	base
	Target Node
	Value  Node
	Op     string
}

// NewAssignment creates an assignment node.
func NewAssignment(target, value Node, op string, pos Position) *Assignment {
	n := &Assignment{base: base{typ: NodeAssignment, pos: pos}, Target: target, Value: value, Op: op}
	attachAll(n, target, value)
	return n
}

func (n *Assignment) Accept(v Visitor) { v.Visit(n) }

// Parameter declares one function parameter.
type Parameter struct {
	base
	Name     string
	Default  Node
	Variadic bool
}

// NewParameter creates a parameter node.
func NewParameter(name string, deflt Node, variadic bool, pos Position) *Parameter {
	n := &Parameter{base: base{typ: NodeParameter, pos: pos}, Name: name, Default: deflt, Variadic: variadic}
	attachAll(n, deflt)
	return n
}

func (n *Parameter) Accept(v Visitor) { v.Visit(n) }

// FunctionDef declares a named function.
type FunctionDef struct {
	base
	Name       string
	Params     []*Parameter
	ReturnType string
	Body       []Node
	Decorators []string
}

// NewFunctionDef creates a function definition node.
func NewFunctionDef(name string, params []*Parameter, returnType string, body []Node, pos Position) *FunctionDef {
	n := &FunctionDef{
		base:       base{typ: NodeFunctionDef, pos: pos},
		Name:       name,
		Params:     params,
		ReturnType: returnType,
		Body:       body,
	}
	for _, p := range params {
		Attach(n, p)
	}
	attachAll(n, body...)
	return n
}

func (n *FunctionDef) Accept(v Visitor) { v.Visit(n) }

// Elif pairs one condition with its body inside an If chain.
type Elif struct {
	base
	Cond Node
	Body []Node
}

// NewElif creates an elif clause.
func NewElif(cond Node, body []Node, pos Position) *Elif {
	n := &Elif{base: base{typ: NodeElif, pos: pos}, Cond: cond, Body: body}
	attachAll(n, cond)
	attachAll(n, body...)
	return n
}

func (n *Elif) Accept(v Visitor) { v.Visit(n) }

// If is a conditional with optional elif clauses and else body.
type If struct {
	base
	Cond  Node
	Then  []Node
	Elifs []*Elif
	Else  []Node
}

// NewIf creates an if node.
func NewIf(cond Node, then []Node, elifs []*Elif, els []Node, pos Position) *If {
	n := &If{base: base{typ: NodeIf, pos: pos}, Cond: cond, Then: then, Elifs: elifs, Else: els}
	attachAll(n, cond)
	attachAll(n, then...)
	for _, e := range elifs {
		Attach(n, e)
	}
	attachAll(n, els...)
	return n
}

func (n *If) Accept(v Visitor) { v.Visit(n) }

// While is a pre-tested loop.
type While struct {
	base
	Cond Node
	Body []Node
}

// NewWhile creates a while node.
func NewWhile(cond Node, body []Node, pos Position) *While {
	n := &While{base: base{typ: NodeWhile, pos: pos}, Cond: cond, Body: body}
	attachAll(n, cond)
	attachAll(n, body...)
	return n
}

func (n *While) Accept(v Visitor) { v.Visit(n) }

// For iterates a loop variable over an iterable expression.
type For struct {
	base
	Var      string
	Iterable Node
	Body     []Node
}

// NewFor creates a for node.
func NewFor(variable string, iterable Node, body []Node, pos Position) *For {
	n := &For{base: base{typ: NodeFor, pos: pos}, Var: variable, Iterable: iterable, Body: body}
	attachAll(n, iterable)
	attachAll(n, body...)
	return n
}

func (n *For) Accept(v Visitor) { v.Visit(n) }

// Return exits the enclosing function with an optional value.
type Return struct {
	base
	Value Node
}

// NewReturn creates a return node.
func NewReturn(value Node, pos Position) *Return {
	n := &Return{base: base{typ: NodeReturn, pos: pos}, Value: value}
	attachAll(n, value)
	return n
}

func (n *Return) Accept(v Visitor) { v.Visit(n) }

// List is a flat element sequence literal.
type List struct {
	base
	Elements []Node
}

// NewList creates a list literal node.
func NewList(elements []Node, pos Position) *List {
	n := &List{base: base{typ: NodeList, pos: pos}, Elements: elements}
	attachAll(n, elements...)
	return n
}

func (n *List) Accept(v Visitor) { v.Visit(n) }

// Matrix is a 2-D element literal. Rows may be ragged in the tree; the code
// generator takes the column count from the first row.
type Matrix struct {
	base
	Rows [][]Node
}

// NewMatrix creates a matrix literal node. Elements attach in row-major order.
func NewMatrix(rows [][]Node, pos Position) *Matrix {
	n := &Matrix{base: base{typ: NodeMatrix, pos: pos}, Rows: rows}
	for _, row := range rows {
		attachAll(n, row...)
	}
	return n
}

func (n *Matrix) Accept(v Visitor) { v.Visit(n) }

// Tensor is a shaped element literal.
type Tensor struct {
	base
	Shape    []int
	Elements []Node
}

// NewTensor creates a tensor literal node.
func NewTensor(shape []int, elements []Node, pos Position) *Tensor {
	n := &Tensor{base: base{typ: NodeTensor, pos: pos}, Shape: shape, Elements: elements}
	attachAll(n, elements...)
	return n
}

func (n *Tensor) Accept(v Visitor) { v.Visit(n) }

// Index subscripts a target with one or more index or slice expressions.
type Index struct {
	base
	Target  Node
	Indices []Node
}

// NewIndex creates an index node.
func NewIndex(target Node, indices []Node, pos Position) *Index {
	n := &Index{base: base{typ: NodeIndex, pos: pos}, Target: target, Indices: indices}
	attachAll(n, target)
	attachAll(n, indices...)
	return n
}

func (n *Index) Accept(v Visitor) { v.Visit(n) }

// Slice holds optional start/stop/step expressions of a slice subscript.
type Slice struct {
	base
	Start Node
	Stop  Node
	Step  Node
}

// NewSlice creates a slice node. Any bound may be nil.
func NewSlice(start, stop, step Node, pos Position) *Slice {
	n := &Slice{base: base{typ: NodeSlice, pos: pos}, Start: start, Stop: stop, Step: step}
	attachAll(n, start, stop, step)
	return n
}

func (n *Slice) Accept(v Visitor) { v.Visit(n) }

// Import names a module dependency.
type Import struct {
	base
	Module string
	Alias  string
}

// NewImport creates an import node.
func NewImport(module, alias string, pos Position) *Import {
	return &Import{base: base{typ: NodeImport, pos: pos}, Module: module, Alias: alias}
}

func (n *Import) Accept(v Visitor) { v.Visit(n) }

// ClassDef declares a class with ordered member statements.
type ClassDef struct {
	base
	Name    string
	Extends string
	Members []Node
}

// NewClassDef creates a class definition node.
func NewClassDef(name, extends string, members []Node, pos Position) *ClassDef {
	n := &ClassDef{base: base{typ: NodeClassDef, pos: pos}, Name: name, Extends: extends, Members: members}
	attachAll(n, members...)
	return n
}

func (n *ClassDef) Accept(v Visitor) { v.Visit(n) }
