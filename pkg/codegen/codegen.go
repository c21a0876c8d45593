package codegen

import (
	"fmt"

	"github.com/noodlelang/noodle/pkg/ast"
	"github.com/noodlelang/noodle/pkg/bytecode"
)

// binaryOps maps binary operator tokens to their opcodes.
var binaryOps = map[string]bytecode.Opcode{
	"+":   bytecode.OpAdd,
	"-":   bytecode.OpSub,
	"*":   bytecode.OpMul,
	"/":   bytecode.OpDiv,
	"%":   bytecode.OpMod,
	"**":  bytecode.OpPow,
	"==":  bytecode.OpEq,
	"!=":  bytecode.OpNe,
	"<":   bytecode.OpLt,
	"<=":  bytecode.OpLe,
	">":   bytecode.OpGt,
	">=":  bytecode.OpGe,
	"&&":  bytecode.OpAnd,
	"and": bytecode.OpAnd,
	"||":  bytecode.OpOr,
	"or":  bytecode.OpOr,
}

// unaryOps maps unary operator tokens to their opcodes.
var unaryOps = map[string]bytecode.Opcode{
	"-":   bytecode.OpNeg,
	"!":   bytecode.OpNot,
	"not": bytecode.OpNot,
}

// patch records a jump instruction whose label operand still needs resolving
// to an instruction offset.
type patch struct {
	offset int
	label  int
}

// funcState is the per-function emission context.
type funcState struct {
	fn           *bytecode.FunctionCode
	slots        map[string]int
	depth        int
	maxDepth     int
	labelOffsets map[int]int
	patches      []patch
	hiddenCount  int
}

// Generator lowers an AST into a bytecode.Program. One Generator may be
// reused across independent trees; Generate resets all state at entry.
type Generator struct {
	program     bytecode.Program
	current     *funcState
	labelCount  int
	strings     map[string]int64
	stringOrder []string
	imports     map[string]bool
}

// NewGenerator creates a code generator.
func NewGenerator() *Generator {
	g := &Generator{}
	g.reset()
	return g
}

func (g *Generator) reset() {
	g.program = make(bytecode.Program)
	g.current = nil
	g.labelCount = 0
	g.strings = make(map[string]int64)
	g.stringOrder = nil
	g.imports = make(map[string]bool)
}

// Strings returns the interned string literals in first-seen order; the
// slice index is the id that PUSH carries for that literal.
func (g *Generator) Strings() []string {
	return g.stringOrder
}

// Generate lowers the tree rooted at root into a program. Top-level
// statements land in a synthetic "main" function; every FunctionDef becomes
// its own entry in the result.
func (g *Generator) Generate(root ast.Node) (bytecode.Program, error) {
	g.reset()

	var statements []ast.Node
	if prog, ok := root.(*ast.Program); ok {
		statements = prog.Statements
	} else {
		statements = []ast.Node{root}
	}

	g.current = g.newFuncState(bytecode.EntryName, nil)
	g.collectLocals(statements)
	for _, stmt := range statements {
		if err := g.genStatement(stmt); err != nil {
			return nil, err
		}
	}
	g.emit(bytecode.OpRet)
	if err := g.endFunction(); err != nil {
		return nil, err
	}

	return g.program, nil
}

// ---------------------------------------------------------------------------
// Function context
// ---------------------------------------------------------------------------

func (g *Generator) newFuncState(name string, params []*ast.Parameter) *funcState {
	fs := &funcState{
		fn:           bytecode.NewFunctionCode(name),
		slots:        make(map[string]int),
		labelOffsets: make(map[int]int),
	}
	// Parameters occupy negative slots in reverse declaration order: the
	// last parameter is slot -1.
	n := len(params)
	for i, p := range params {
		fs.fn.Params = append(fs.fn.Params, p.Name)
		fs.slots[p.Name] = -(n - i)
	}
	return fs
}

// collectLocals assigns positive slots, in first-seen order, to every name
// declared in the body: assignment targets and for-loop variables. Nested
// function bodies are skipped; their locals belong to their own frame.
func (g *Generator) collectLocals(body []ast.Node) {
	for _, stmt := range body {
		ast.Walk(stmt, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FunctionDef:
				return false
			case *ast.Assignment:
				if v, ok := n.Target.(*ast.Variable); ok {
					g.declareLocal(v.Name)
				}
			case *ast.For:
				g.declareLocal(n.Var)
			}
			return true
		})
	}
}

// declareLocal assigns the next positive slot to name, unless it is already
// a parameter or a known local.
func (g *Generator) declareLocal(name string) int {
	fs := g.current
	if slot, ok := fs.slots[name]; ok {
		return slot
	}
	fs.fn.Locals = append(fs.fn.Locals, name)
	slot := len(fs.fn.Locals)
	fs.slots[name] = slot
	return slot
}

// endFunction resolves every pending jump to a real instruction offset,
// seals the stack fields, and registers the function in the program.
func (g *Generator) endFunction() error {
	fs := g.current
	for _, p := range fs.patches {
		target, ok := fs.labelOffsets[p.label]
		if !ok {
			return g.errf(ErrUnresolvedLabel, ast.NoPos, "label %d has no marked offset", p.label)
		}
		old := fs.fn.Instructions[p.offset]
		fs.fn.Instructions[p.offset] = bytecode.Instruction{
			Op:       old.Op,
			Operands: []any{int64(target)},
			Pos:      old.Pos,
		}
	}
	fs.fn.StackSize = fs.maxDepth
	fs.fn.MaxStackDepth = fs.maxDepth
	g.program[fs.fn.Name] = fs.fn
	return nil
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

// emit appends an instruction and maintains the running stack depth: +1 for
// PUSH, -1 for POP, -argc for CALL, reset to 0 for RET.
func (g *Generator) emit(op bytecode.Opcode, operands ...any) int {
	return g.emitAt(op, ast.NoPos, operands...)
}

func (g *Generator) emitAt(op bytecode.Opcode, pos ast.Position, operands ...any) int {
	fs := g.current
	offset := fs.fn.Append(bytecode.NewInstructionAt(op, pos, operands...))

	switch op {
	case bytecode.OpPush:
		fs.depth++
	case bytecode.OpPop:
		fs.depth--
	case bytecode.OpCall:
		if len(operands) > 1 {
			if argc, ok := operands[1].(int64); ok {
				fs.depth -= int(argc)
			}
		}
	case bytecode.OpRet:
		fs.depth = 0
	}
	if fs.depth > fs.maxDepth {
		fs.maxDepth = fs.depth
	}
	return offset
}

// newLabel allocates the next label id. Label ids never appear in finished
// bytecode; endFunction patches every jump operand to an instruction offset.
func (g *Generator) newLabel() int {
	g.labelCount++
	return g.labelCount
}

// emitJump emits a jump carrying a placeholder operand and queues it for
// back-patching.
func (g *Generator) emitJump(op bytecode.Opcode, label int, pos ast.Position) {
	offset := g.emitAt(op, pos, int64(-1))
	g.current.patches = append(g.current.patches, patch{offset: offset, label: label})
}

// markLabel binds a label to the offset of the next emitted instruction.
func (g *Generator) markLabel(label int) {
	g.current.labelOffsets[label] = len(g.current.fn.Instructions)
}

func (g *Generator) intern(s string) int64 {
	if id, ok := g.strings[s]; ok {
		return id
	}
	id := int64(len(g.stringOrder))
	g.strings[s] = id
	g.stringOrder = append(g.stringOrder, s)
	return id
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func isStatement(n ast.Node) bool {
	switch n.Type() {
	case ast.NodeProgram, ast.NodeExpressionStmt, ast.NodeAssignment,
		ast.NodeFunctionDef, ast.NodeIf, ast.NodeElif, ast.NodeWhile,
		ast.NodeFor, ast.NodeReturn, ast.NodeImport, ast.NodeClassDef:
		return true
	}
	return false
}

func (g *Generator) genStatement(n ast.Node) error {
	switch n := n.(type) {
	case *ast.ExpressionStmt:
		if err := g.genExpression(n.Expr); err != nil {
			return err
		}
		g.emitAt(bytecode.OpPop, n.Pos())
		return nil
	case *ast.Assignment:
		return g.genAssignment(n)
	case *ast.FunctionDef:
		return g.genFunctionDef(n)
	case *ast.If:
		return g.genIf(n)
	case *ast.While:
		return g.genWhile(n)
	case *ast.For:
		return g.genFor(n)
	case *ast.Return:
		return g.genReturn(n)
	case *ast.Import:
		g.imports[n.Module] = true // tracked for dedup; not lowered
		return nil
	default:
		return g.genFallback(n)
	}
}

// genFallback handles statement kinds with no dedicated lowering (classes,
// bare parameters): statement children are emitted in order, expression
// children are emitted and their unconsumed result discarded.
func (g *Generator) genFallback(n ast.Node) error {
	for _, child := range n.Children() {
		if isStatement(child) {
			if err := g.genStatement(child); err != nil {
				return err
			}
			continue
		}
		if err := g.genExpression(child); err != nil {
			return err
		}
		g.emit(bytecode.OpPop)
	}
	return nil
}

// compound reports whether an assignment operator carries a binary operator,
// like "+=". Both "" and "=" mean plain assignment.
func compound(op string) bool {
	return op != "" && op != "="
}

func (g *Generator) genAssignment(n *ast.Assignment) error {
	switch target := n.Target.(type) {
	case *ast.Variable:
		slot, ok := g.current.slots[target.Name]
		if !ok {
			slot = g.declareLocal(target.Name)
		}
		if compound(n.Op) {
			// Compound assignment: load the current value, apply the
			// operator, store back.
			base := n.Op[:len(n.Op)-1]
			op, ok := binaryOps[base]
			if !ok {
				return g.errf(ErrUnsupportedOperator, n.Pos(), "compound operator %q", n.Op)
			}
			g.emitAt(bytecode.OpLoad, target.Pos(), int64(slot))
			if err := g.genExpression(n.Value); err != nil {
				return err
			}
			g.emitAt(op, n.Pos())
			g.emitAt(bytecode.OpStore, n.Pos(), int64(slot))
			return nil
		}
		if err := g.genExpression(n.Value); err != nil {
			return err
		}
		g.emitAt(bytecode.OpStore, n.Pos(), int64(slot))
		return nil

	case *ast.Index:
		if compound(n.Op) {
			return g.errf(ErrUnsupportedTarget, n.Pos(), "compound assignment to indexed target")
		}
		if err := g.genExpression(n.Value); err != nil {
			return err
		}
		if err := g.genExpression(target.Target); err != nil {
			return err
		}
		for _, idx := range target.Indices {
			if err := g.genExpression(idx); err != nil {
				return err
			}
		}
		g.emitAt(bytecode.OpArraySet, n.Pos())
		return nil

	default:
		return g.errf(ErrUnsupportedTarget, n.Pos(), "%s", n.Target.Type())
	}
}

func (g *Generator) genFunctionDef(n *ast.FunctionDef) error {
	saved := g.current
	g.current = g.newFuncState(n.Name, n.Params)
	g.current.fn.ReturnType = n.ReturnType

	g.collectLocals(n.Body)
	for _, stmt := range n.Body {
		if err := g.genStatement(stmt); err != nil {
			g.current = saved
			return err
		}
	}
	if !guaranteesReturn(n.Body) {
		g.emit(bytecode.OpRet)
	}
	err := g.endFunction()
	g.current = saved
	return err
}

// guaranteesReturn reports whether the statement list structurally ends in a
// RET on every path: a Return statement, or an If whose then-branch and
// (present) else-branch both guarantee one. Elif clauses are not consulted,
// so a fully returning if/elif/else chain still gets a trailing RET
// appended.
func guaranteesReturn(stmts []ast.Node) bool {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.Return:
			return true
		case *ast.If:
			if len(s.Else) > 0 && guaranteesReturn(s.Then) && guaranteesReturn(s.Else) {
				return true
			}
		}
	}
	return false
}

func (g *Generator) genIf(n *ast.If) error {
	endLabel := g.newLabel()
	elseLabel := g.newLabel()

	if err := g.genExpression(n.Cond); err != nil {
		return err
	}
	g.emitJump(bytecode.OpJz, elseLabel, n.Pos())
	for _, stmt := range n.Then {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}
	g.emitJump(bytecode.OpJmp, endLabel, n.Pos())
	g.markLabel(elseLabel)

	for _, clause := range n.Elifs {
		next := g.newLabel()
		if err := g.genExpression(clause.Cond); err != nil {
			return err
		}
		g.emitJump(bytecode.OpJz, next, clause.Pos())
		for _, stmt := range clause.Body {
			if err := g.genStatement(stmt); err != nil {
				return err
			}
		}
		g.emitJump(bytecode.OpJmp, endLabel, clause.Pos())
		g.markLabel(next)
	}

	for _, stmt := range n.Else {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}
	g.markLabel(endLabel)
	return nil
}

func (g *Generator) genWhile(n *ast.While) error {
	startLabel := g.newLabel()
	endLabel := g.newLabel()

	g.markLabel(startLabel)
	if err := g.genExpression(n.Cond); err != nil {
		return err
	}
	g.emitJump(bytecode.OpJz, endLabel, n.Pos())
	for _, stmt := range n.Body {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}
	g.emitJump(bytecode.OpJmp, startLabel, n.Pos())
	g.markLabel(endLabel)
	return nil
}

// genFor lowers iteration over an array: the iterable and a cursor index go
// into hidden local slots, and each pass loads the current element into the
// loop variable before the body runs.
func (g *Generator) genFor(n *ast.For) error {
	fs := g.current
	iterSlot := g.declareLocal(fmt.Sprintf("$iter%d", fs.hiddenCount))
	idxSlot := g.declareLocal(fmt.Sprintf("$idx%d", fs.hiddenCount))
	fs.hiddenCount++
	varSlot := g.declareLocal(n.Var)

	if err := g.genExpression(n.Iterable); err != nil {
		return err
	}
	g.emitAt(bytecode.OpStore, n.Pos(), int64(iterSlot))
	g.emitAt(bytecode.OpPush, n.Pos(), int64(0))
	g.emitAt(bytecode.OpStore, n.Pos(), int64(idxSlot))

	startLabel := g.newLabel()
	endLabel := g.newLabel()

	g.markLabel(startLabel)
	g.emit(bytecode.OpLoad, int64(idxSlot))
	g.emit(bytecode.OpLoad, int64(iterSlot))
	g.emit(bytecode.OpArrayLen)
	g.emit(bytecode.OpLt)
	g.emitJump(bytecode.OpJz, endLabel, n.Pos())

	g.emit(bytecode.OpLoad, int64(iterSlot))
	g.emit(bytecode.OpLoad, int64(idxSlot))
	g.emit(bytecode.OpArrayGet)
	g.emit(bytecode.OpStore, int64(varSlot))

	for _, stmt := range n.Body {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}

	g.emit(bytecode.OpLoad, int64(idxSlot))
	g.emit(bytecode.OpPush, int64(1))
	g.emit(bytecode.OpAdd)
	g.emit(bytecode.OpStore, int64(idxSlot))
	g.emitJump(bytecode.OpJmp, startLabel, n.Pos())
	g.markLabel(endLabel)
	return nil
}

func (g *Generator) genReturn(n *ast.Return) error {
	if n.Value != nil {
		if err := g.genExpression(n.Value); err != nil {
			return err
		}
	}
	g.emitAt(bytecode.OpRet, n.Pos())
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (g *Generator) genExpression(n ast.Node) error {
	switch n := n.(type) {
	case *ast.Literal:
		return g.genLiteral(n)
	case *ast.BinaryOp:
		return g.genBinaryOp(n)
	case *ast.UnaryOp:
		return g.genUnaryOp(n)
	case *ast.Call:
		return g.genCall(n)
	case *ast.Variable:
		slot, ok := g.current.slots[n.Name]
		if !ok {
			return g.errf(ErrUndefinedVariable, n.Pos(), "%q", n.Name)
		}
		g.emitAt(bytecode.OpLoad, n.Pos(), int64(slot))
		return nil
	case *ast.List:
		return g.genList(n)
	case *ast.Matrix:
		return g.genMatrix(n)
	case *ast.Index:
		return g.genIndex(n)
	case *ast.Slice:
		return g.genSlice(n)
	case *ast.Tensor:
		return g.errf(ErrUnsupportedLiteral, n.Pos(), "tensor literals have no lowering yet")
	default:
		return g.errf(ErrUnsupportedStatement, n.Pos(), "cannot lower %s in expression position", n.Type())
	}
}

func (g *Generator) genLiteral(n *ast.Literal) error {
	switch v := n.Value.(type) {
	case int64:
		g.emitAt(bytecode.OpPush, n.Pos(), v)
	case int:
		g.emitAt(bytecode.OpPush, n.Pos(), int64(v))
	case float64:
		g.emitAt(bytecode.OpPush, n.Pos(), v)
	case bool:
		g.emitAt(bytecode.OpPush, n.Pos(), v)
	case string:
		g.emitAt(bytecode.OpPush, n.Pos(), g.intern(v))
	case nil:
		// Null literal: PUSH with no operand pushes the null value.
		g.emitAt(bytecode.OpPush, n.Pos())
	default:
		return g.errf(ErrUnsupportedLiteral, n.Pos(), "%T", n.Value)
	}
	return nil
}

func (g *Generator) genBinaryOp(n *ast.BinaryOp) error {
	op, ok := binaryOps[n.Op]
	if !ok {
		return g.errf(ErrUnsupportedOperator, n.Pos(), "binary %q", n.Op)
	}
	if err := g.genExpression(n.Left); err != nil {
		return err
	}
	if err := g.genExpression(n.Right); err != nil {
		return err
	}
	g.emitAt(op, n.Pos())
	return nil
}

func (g *Generator) genUnaryOp(n *ast.UnaryOp) error {
	op, ok := unaryOps[n.Op]
	if !ok {
		return g.errf(ErrUnsupportedOperator, n.Pos(), "unary %q", n.Op)
	}
	if err := g.genExpression(n.Operand); err != nil {
		return err
	}
	g.emitAt(op, n.Pos())
	return nil
}

// genCall pushes arguments in reverse order, so the first value the callee
// pops is its first argument. A direct variable callee becomes CALL <name>;
// a computed callee is evaluated onto the stack and called as CALL 0.
func (g *Generator) genCall(n *ast.Call) error {
	for i := len(n.Args) - 1; i >= 0; i-- {
		if err := g.genExpression(n.Args[i]); err != nil {
			return err
		}
	}
	argc := int64(len(n.Args))

	if callee, ok := n.Callee.(*ast.Variable); ok {
		g.emitAt(bytecode.OpCall, n.Pos(), callee.Name, argc)
		return nil
	}
	if err := g.genExpression(n.Callee); err != nil {
		return err
	}
	g.emitAt(bytecode.OpCall, n.Pos(), int64(0), argc)
	return nil
}

func (g *Generator) genList(n *ast.List) error {
	g.emitAt(bytecode.OpArrayNew, n.Pos())
	for _, elem := range n.Elements {
		if err := g.genExpression(elem); err != nil {
			return err
		}
		g.emit(bytecode.OpArrayPush)
	}
	return nil
}

func (g *Generator) genMatrix(n *ast.Matrix) error {
	rows := int64(len(n.Rows))
	cols := int64(0)
	if rows > 0 {
		cols = int64(len(n.Rows[0]))
	}
	g.emitAt(bytecode.OpMatrixNew, n.Pos(), rows, cols)
	for r, row := range n.Rows {
		for c, elem := range row {
			if err := g.genExpression(elem); err != nil {
				return err
			}
			g.emit(bytecode.OpMatrixSet, int64(r), int64(c))
		}
	}
	return nil
}

func (g *Generator) genIndex(n *ast.Index) error {
	if err := g.genExpression(n.Target); err != nil {
		return err
	}
	for _, idx := range n.Indices {
		if err := g.genExpression(idx); err != nil {
			return err
		}
	}
	g.emitAt(bytecode.OpArrayGet, n.Pos())
	return nil
}

// genSlice pushes start, stop, and step. A missing stop defaults to PUSH 0,
// not "length of target"; callers relying on open-ended slices must pass an
// explicit stop.
func (g *Generator) genSlice(n *ast.Slice) error {
	if n.Start != nil {
		if err := g.genExpression(n.Start); err != nil {
			return err
		}
	} else {
		g.emitAt(bytecode.OpPush, n.Pos(), int64(0))
	}
	if n.Stop != nil {
		if err := g.genExpression(n.Stop); err != nil {
			return err
		}
	} else {
		g.emitAt(bytecode.OpPush, n.Pos(), int64(0))
	}
	if n.Step != nil {
		if err := g.genExpression(n.Step); err != nil {
			return err
		}
	} else {
		g.emitAt(bytecode.OpPush, n.Pos(), int64(1))
	}
	return nil
}
