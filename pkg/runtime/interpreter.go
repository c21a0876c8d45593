package runtime

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/noodlelang/noodle/pkg/bytecode"
)

// DefaultMaxExecutionTime bounds one Execute call.
const DefaultMaxExecutionTime = 5 * time.Second

// StackManager is an optional external collaborator for scoped variable
// binding. When attached, LOAD prefers its bindings over the interpreter's
// own tables and STORE mirrors every binding into it.
type StackManager interface {
	Bind(name string, v Value)
	Resolve(name string) (Value, bool)
	Clear()
}

// frame is one entry of the explicit call stack.
type frame struct {
	fn     *bytecode.FunctionCode
	retPC  int
	locals map[int]Value
	base   int // operand stack length at call time
}

// Interpreter executes one instruction sequence to completion per Execute
// call. Instances are single-owner: reuse across executions goes through
// Reset, never through concurrent sharing.
type Interpreter struct {
	MaxExecutionTime time.Duration

	out     io.Writer
	manager StackManager

	program bytecode.Program
	fn      *bytecode.FunctionCode
	pc      int
	stack   []Value
	locals  map[int]Value
	globals map[string]Value
	frames  []frame

	startTime            time.Time
	instructionsExecuted int
	maxStackDepth        int
}

// New creates an interpreter with default limits, printing to stdout.
func New() *Interpreter {
	return &Interpreter{
		MaxExecutionTime: DefaultMaxExecutionTime,
		out:              os.Stdout,
		globals:          make(map[string]Value),
		locals:           make(map[int]Value),
	}
}

// SetOutput redirects PRINT output.
func (i *Interpreter) SetOutput(w io.Writer) {
	i.out = w
}

// SetStackCapacity preallocates the operand stack. Execution still grows
// past the capacity when a program needs to.
func (i *Interpreter) SetStackCapacity(n int) {
	if n > 0 && cap(i.stack) < n {
		grown := make([]Value, len(i.stack), n)
		copy(grown, i.stack)
		i.stack = grown
	}
}

// AttachStackManager attaches an external variable-binding collaborator.
func (i *Interpreter) AttachStackManager(m StackManager) {
	i.manager = m
}

// Load replaces the loaded sequence with a bare instruction list and resets
// the program counter. The instructions run as an anonymous entry function
// with no parameters.
func (i *Interpreter) Load(instructions []bytecode.Instruction) {
	fn := bytecode.NewFunctionCode(bytecode.EntryName)
	fn.Instructions = instructions
	i.program = bytecode.Program{bytecode.EntryName: fn}
	i.fn = fn
	i.pc = 0
	i.frames = nil
	i.locals = make(map[int]Value)
}

// LoadProgram loads a full program and positions execution at its entry
// function.
func (i *Interpreter) LoadProgram(p bytecode.Program) error {
	entry := p.Entry()
	if entry == nil {
		return i.errf(ErrNoBytecode, "program has no %q function", bytecode.EntryName)
	}
	i.program = p
	i.fn = entry
	i.pc = 0
	i.frames = nil
	i.locals = make(map[int]Value)
	return nil
}

// BindSlot seeds a value into the current frame, as if a CALL had bound it.
// Used to execute a function's instructions directly with arguments in
// place.
func (i *Interpreter) BindSlot(slot int, v Value) {
	i.locals[slot] = v
}

// Reset clears every piece of execution state: stack, globals, locals,
// frames, loaded instructions, counters, and the attached stack manager's
// bindings.
func (i *Interpreter) Reset() {
	i.program = nil
	i.fn = nil
	i.pc = 0
	i.stack = nil
	i.locals = make(map[int]Value)
	i.globals = make(map[string]Value)
	i.frames = nil
	i.startTime = time.Time{}
	i.instructionsExecuted = 0
	i.maxStackDepth = 0
	if i.manager != nil {
		i.manager.Clear()
	}
}

// StackDepth returns the current operand-stack depth.
func (i *Interpreter) StackDepth() int {
	return len(i.stack)
}

// MaxStackDepth returns the deepest the operand stack has been since the
// last Reset.
func (i *Interpreter) MaxStackDepth() int {
	return i.maxStackDepth
}

// InstructionsExecuted returns the instruction count since the last Reset.
func (i *Interpreter) InstructionsExecuted() int {
	return i.instructionsExecuted
}

// Globals returns a snapshot copy of the global-variable table.
func (i *Interpreter) Globals() map[string]Value {
	snapshot := make(map[string]Value, len(i.globals))
	for k, v := range i.globals {
		snapshot[k] = v
	}
	return snapshot
}

// Execute runs the loaded sequence to completion.
func (i *Interpreter) Execute() (Value, error) {
	return i.ExecuteContext(context.Background())
}

// ExecuteContext runs the loaded sequence, checking ctx alongside the
// wall-clock timeout once per instruction. On error, the program counter and
// stack are left at the failure point for inspection.
func (i *Interpreter) ExecuteContext(ctx context.Context) (Value, error) {
	if i.fn == nil || len(i.fn.Instructions) == 0 {
		return nil, i.errf(ErrNoBytecode, "no bytecode loaded")
	}
	i.startTime = time.Now()

	for i.pc < len(i.fn.Instructions) {
		if err := ctx.Err(); err != nil {
			return nil, i.errf(ErrCanceled, "%v", err)
		}
		if time.Since(i.startTime) > i.MaxExecutionTime {
			return nil, i.errf(ErrTimeout, "exceeded %v", i.MaxExecutionTime)
		}

		in := i.fn.Instructions[i.pc]
		i.instructionsExecuted++

		halt, err := i.step(in)
		if err != nil {
			return nil, err
		}
		if halt {
			break
		}
		i.pc++
	}

	if len(i.stack) > 0 {
		return i.stack[len(i.stack)-1], nil
	}
	return nil, nil
}

// step dispatches one instruction. The returned flag stops the loop (HALT,
// or a RET from the outermost frame).
func (i *Interpreter) step(in bytecode.Instruction) (bool, error) {
	switch in.Op {
	case bytecode.OpNop:
		return false, nil

	case bytecode.OpPush:
		if len(in.Operands) > 0 {
			i.push(in.Operands[0])
		} else {
			i.push(nil) // PUSH with no operand pushes null
		}
		return false, nil

	case bytecode.OpPop:
		// POP on an empty stack is a no-op, not an underflow.
		if len(i.stack) > 0 {
			i.stack = i.stack[:len(i.stack)-1]
		}
		return false, nil

	case bytecode.OpDup:
		v, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		i.push(v)
		i.push(v)
		return false, nil

	case bytecode.OpSwap:
		b, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		a, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		i.push(b)
		i.push(a)
		return false, nil

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
		bytecode.OpMod, bytecode.OpPow:
		return false, i.arith(in.Op)

	case bytecode.OpNeg:
		v, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		switch v := v.(type) {
		case int64:
			i.push(-v)
		case float64:
			i.push(-v)
		default:
			return false, i.errf(ErrTypeMismatch, "NEG on %s", TypeName(v))
		}
		return false, nil

	case bytecode.OpAbs:
		v, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		switch v := v.(type) {
		case int64:
			if v < 0 {
				v = -v
			}
			i.push(v)
		case float64:
			i.push(math.Abs(v))
		default:
			return false, i.errf(ErrTypeMismatch, "ABS on %s", TypeName(v))
		}
		return false, nil

	case bytecode.OpEq, bytecode.OpNe, bytecode.OpLt, bytecode.OpLe,
		bytecode.OpGt, bytecode.OpGe:
		return false, i.compare(in.Op)

	case bytecode.OpAnd, bytecode.OpOr, bytecode.OpXor:
		b, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		a, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		switch in.Op {
		case bytecode.OpAnd:
			i.push(Truthy(a) && Truthy(b))
		case bytecode.OpOr:
			i.push(Truthy(a) || Truthy(b))
		case bytecode.OpXor:
			i.push(Truthy(a) != Truthy(b))
		}
		return false, nil

	case bytecode.OpNot:
		v, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		i.push(!Truthy(v))
		return false, nil

	case bytecode.OpJmp:
		return false, i.jump(in)

	case bytecode.OpJz:
		cond, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		if !Truthy(cond) {
			return false, i.jump(in)
		}
		return false, nil

	case bytecode.OpJnz:
		cond, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		if Truthy(cond) {
			return false, i.jump(in)
		}
		return false, nil

	case bytecode.OpCall:
		return false, i.call(in)

	case bytecode.OpRet:
		return i.ret()

	case bytecode.OpLoad:
		return false, i.load(in)

	case bytecode.OpStore:
		return false, i.store(in)

	case bytecode.OpArrayNew:
		i.push(NewArray())
		return false, nil

	case bytecode.OpArrayLen:
		arr, err := i.popArray(in.Op)
		if err != nil {
			return false, err
		}
		i.push(int64(len(arr.Elems)))
		return false, nil

	case bytecode.OpArrayGet:
		idx, err := i.popIndex(in.Op)
		if err != nil {
			return false, err
		}
		arr, err := i.popArray(in.Op)
		if err != nil {
			return false, err
		}
		if idx < 0 || int(idx) >= len(arr.Elems) {
			return false, i.errf(ErrTypeMismatch, "array index %d out of range [0,%d)", idx, len(arr.Elems))
		}
		i.push(arr.Elems[idx])
		return false, nil

	case bytecode.OpArraySet:
		idx, err := i.popIndex(in.Op)
		if err != nil {
			return false, err
		}
		arr, err := i.popArray(in.Op)
		if err != nil {
			return false, err
		}
		v, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		if idx < 0 || int(idx) >= len(arr.Elems) {
			return false, i.errf(ErrTypeMismatch, "array index %d out of range [0,%d)", idx, len(arr.Elems))
		}
		arr.Elems[idx] = v
		return false, nil

	case bytecode.OpArrayPush:
		v, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		arr, err := i.popArray(in.Op)
		if err != nil {
			return false, err
		}
		arr.Elems = append(arr.Elems, v)
		i.push(arr)
		return false, nil

	case bytecode.OpArrayPop:
		arr, err := i.popArray(in.Op)
		if err != nil {
			return false, err
		}
		if len(arr.Elems) == 0 {
			return false, i.errf(ErrTypeMismatch, "ARRAY_POP on empty array")
		}
		v := arr.Elems[len(arr.Elems)-1]
		arr.Elems = arr.Elems[:len(arr.Elems)-1]
		i.push(v)
		return false, nil

	case bytecode.OpPrint:
		v, err := i.pop(in.Op)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(i.out, Format(v))
		return false, nil

	case bytecode.OpHalt:
		return true, nil

	default:
		if in.Op.IsValid() {
			return false, i.errf(ErrUnimplementedOpcode, "%s has no handler", in.Op)
		}
		return false, i.errf(ErrUnknownOpcode, "0x%02X", byte(in.Op))
	}
}

// ---------------------------------------------------------------------------
// Stack and variables
// ---------------------------------------------------------------------------

func (i *Interpreter) push(v Value) {
	i.stack = append(i.stack, v)
	if len(i.stack) > i.maxStackDepth {
		i.maxStackDepth = len(i.stack)
	}
}

func (i *Interpreter) pop(op bytecode.Opcode) (Value, error) {
	if len(i.stack) == 0 {
		return nil, i.errf(ErrStackUnderflow, "%s on empty stack", op)
	}
	v := i.stack[len(i.stack)-1]
	i.stack = i.stack[:len(i.stack)-1]
	return v, nil
}

func (i *Interpreter) popArray(op bytecode.Opcode) (*Array, error) {
	v, err := i.pop(op)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(*Array)
	if !ok {
		return nil, i.errf(ErrTypeMismatch, "%s on %s, want array", op, TypeName(v))
	}
	return arr, nil
}

func (i *Interpreter) popIndex(op bytecode.Opcode) (int64, error) {
	v, err := i.pop(op)
	if err != nil {
		return 0, err
	}
	idx, ok := v.(int64)
	if !ok {
		return 0, i.errf(ErrTypeMismatch, "%s index is %s, want int", op, TypeName(v))
	}
	return idx, nil
}

// slotKey names a slot for the global table and the stack manager,
// preferring the function's declared name for the slot.
func (i *Interpreter) slotKey(slot int) string {
	if name := i.fn.SlotName(slot); name != "" {
		return name
	}
	return strconv.Itoa(slot)
}

func (i *Interpreter) load(in bytecode.Instruction) error {
	slot, ok := in.Int(0)
	if !ok {
		return i.errf(ErrTypeMismatch, "LOAD needs an integer slot operand")
	}
	key := i.slotKey(int(slot))

	// An attached stack manager's binding wins over the interpreter's own.
	if i.manager != nil {
		if v, ok := i.manager.Resolve(key); ok {
			i.push(v)
			return nil
		}
	}
	if v, ok := i.locals[int(slot)]; ok {
		i.push(v)
		return nil
	}
	if v, ok := i.globals[key]; ok {
		i.push(v)
		return nil
	}
	return i.errf(ErrUnboundVariable, "%s (slot %d)", key, slot)
}

func (i *Interpreter) store(in bytecode.Instruction) error {
	slot, ok := in.Int(0)
	if !ok {
		return i.errf(ErrTypeMismatch, "STORE needs an integer slot operand")
	}
	v, err := i.pop(in.Op)
	if err != nil {
		return err
	}
	i.locals[int(slot)] = v
	key := i.slotKey(int(slot))
	i.globals[key] = v
	if i.manager != nil {
		i.manager.Bind(key, v)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

// jump moves the program counter to the target offset. The stored value is
// target-1 because the dispatch loop increments after every instruction.
func (i *Interpreter) jump(in bytecode.Instruction) error {
	target, ok := in.Int(0)
	if !ok {
		return i.errf(ErrTypeMismatch, "%s needs an integer offset operand", in.Op)
	}
	if target < 0 || target > int64(len(i.fn.Instructions)) {
		return i.errf(ErrTypeMismatch, "%s target %d out of range", in.Op, target)
	}
	i.pc = int(target) - 1
	return nil
}

func (i *Interpreter) call(in bytecode.Instruction) error {
	argc64, ok := in.Int(1)
	if !ok {
		return i.errf(ErrTypeMismatch, "CALL needs an argument count")
	}
	argc := int(argc64)

	name, named := in.Str(0)
	if !named {
		// Sentinel CALL 0: the callee expression's value is on the stack
		// under the arguments. There are no first-class function values
		// yet, so computed calls cannot resolve.
		return i.errf(ErrUnknownFunction, "computed call target is not callable")
	}

	// Arguments were pushed in reverse, so the first pop is the first
	// declared argument.
	args := make([]Value, 0, argc)
	for n := 0; n < argc; n++ {
		v, err := i.pop(in.Op)
		if err != nil {
			return err
		}
		args = append(args, v)
	}

	if builtin, ok := builtins[name]; ok {
		result, err := builtin(i, args)
		if err != nil {
			return err
		}
		i.push(result)
		return nil
	}

	callee, ok := i.program[name]
	if !ok {
		return i.errf(ErrUnknownFunction, "%q", name)
	}
	if argc != len(callee.Params) {
		return i.errf(ErrUnknownFunction, "%q expects %d arguments, got %d", name, len(callee.Params), argc)
	}

	i.frames = append(i.frames, frame{
		fn:     i.fn,
		retPC:  i.pc,
		locals: i.locals,
		base:   len(i.stack),
	})

	i.fn = callee
	i.locals = make(map[int]Value, argc)
	for n, arg := range args {
		i.locals[callee.ParamSlot(n)] = arg
	}
	i.pc = -1 // the loop increments to 0
	return nil
}

// ret unwinds one frame. A RET in the outermost frame ends execution with
// the current top of stack as the result.
func (i *Interpreter) ret() (bool, error) {
	if len(i.frames) == 0 {
		return true, nil
	}

	var result Value
	if len(i.stack) > 0 {
		result = i.stack[len(i.stack)-1]
	}

	f := i.frames[len(i.frames)-1]
	i.frames = i.frames[:len(i.frames)-1]
	if f.base <= len(i.stack) {
		i.stack = i.stack[:f.base]
	}
	i.push(result)

	i.fn = f.fn
	i.locals = f.locals
	i.pc = f.retPC
	return false, nil
}

// ---------------------------------------------------------------------------
// Arithmetic and comparison
// ---------------------------------------------------------------------------

func (i *Interpreter) arith(op bytecode.Opcode) error {
	b, err := i.pop(op)
	if err != nil {
		return err
	}
	a, err := i.pop(op)
	if err != nil {
		return err
	}

	// String concatenation rides on ADD.
	if op == bytecode.OpAdd {
		if as, ok := a.(string); ok {
			if bs, ok := b.(string); ok {
				i.push(as + bs)
				return nil
			}
		}
	}

	if x, y, ok := bothInt(a, b); ok {
		switch op {
		case bytecode.OpAdd:
			i.push(x + y)
			return nil
		case bytecode.OpSub:
			i.push(x - y)
			return nil
		case bytecode.OpMul:
			i.push(x * y)
			return nil
		case bytecode.OpDiv:
			if y == 0 {
				return i.errf(ErrDivisionByZero, "%d / 0", x)
			}
			// Division always produces a float, like the surface
			// language's / operator.
			i.push(float64(x) / float64(y))
			return nil
		case bytecode.OpMod:
			if y == 0 {
				return i.errf(ErrDivisionByZero, "%d %% 0", x)
			}
			i.push(x % y)
			return nil
		case bytecode.OpPow:
			i.push(math.Pow(float64(x), float64(y)))
			return nil
		}
	}

	x, okA := asFloat(a)
	y, okB := asFloat(b)
	if !okA || !okB {
		return i.errf(ErrTypeMismatch, "%s on %s and %s", op, TypeName(a), TypeName(b))
	}
	switch op {
	case bytecode.OpAdd:
		i.push(x + y)
	case bytecode.OpSub:
		i.push(x - y)
	case bytecode.OpMul:
		i.push(x * y)
	case bytecode.OpDiv:
		if y == 0 {
			return i.errf(ErrDivisionByZero, "%g / 0", x)
		}
		i.push(x / y)
	case bytecode.OpMod:
		if y == 0 {
			return i.errf(ErrDivisionByZero, "%g %% 0", x)
		}
		i.push(math.Mod(x, y))
	case bytecode.OpPow:
		i.push(math.Pow(x, y))
	}
	return nil
}

func (i *Interpreter) compare(op bytecode.Opcode) error {
	b, err := i.pop(op)
	if err != nil {
		return err
	}
	a, err := i.pop(op)
	if err != nil {
		return err
	}

	if op == bytecode.OpEq || op == bytecode.OpNe {
		eq := valueEqual(a, b)
		i.push((op == bytecode.OpEq) == eq)
		return nil
	}

	var cmp int
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return i.errf(ErrTypeMismatch, "%s on string and %s", op, TypeName(b))
		}
		cmp = strings.Compare(as, bs)
	} else {
		x, okA := asFloat(a)
		y, okB := asFloat(b)
		if !okA || !okB {
			return i.errf(ErrTypeMismatch, "%s on %s and %s", op, TypeName(a), TypeName(b))
		}
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	}

	switch op {
	case bytecode.OpLt:
		i.push(cmp < 0)
	case bytecode.OpLe:
		i.push(cmp <= 0)
	case bytecode.OpGt:
		i.push(cmp > 0)
	case bytecode.OpGe:
		i.push(cmp >= 0)
	}
	return nil
}

// valueEqual compares with numeric widening: 1 == 1.0.
func valueEqual(a, b Value) bool {
	if x, okA := asFloat(a); okA {
		if y, okB := asFloat(b); okB {
			return x == y
		}
		return false
	}
	return a == b
}

// ---------------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------------

// builtins are functions resolvable by CALL without a program entry.
var builtins = map[string]func(*Interpreter, []Value) (Value, error){
	"print": func(i *Interpreter, args []Value) (Value, error) {
		parts := make([]string, len(args))
		for n, arg := range args {
			parts[n] = Format(arg)
		}
		fmt.Fprintln(i.out, strings.Join(parts, " "))
		return nil, nil
	},
	"len": func(i *Interpreter, args []Value) (Value, error) {
		if len(args) != 1 {
			return nil, i.errf(ErrUnknownFunction, "len expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case string:
			return int64(len(v)), nil
		case *Array:
			return int64(len(v.Elems)), nil
		}
		return nil, i.errf(ErrTypeMismatch, "len on %s", TypeName(args[0]))
	},
}
