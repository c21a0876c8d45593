package bytecode

import "fmt"

// Opcode represents a single bytecode operation.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Special (0x00, 0xF0-0xFF at the end)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation

	// ========================================================================
	// Stack manipulation (0x01-0x0F)
	// ========================================================================

	OpPush Opcode = 0x01 // Push operand[0]: OpPush <value>
	OpPop  Opcode = 0x02 // Pop top of stack
	OpDup  Opcode = 0x03 // Duplicate top of stack
	OpSwap Opcode = 0x04 // Swap top two stack elements

	// ========================================================================
	// Arithmetic (0x10-0x1F)
	// ========================================================================

	OpAdd Opcode = 0x10 // Pop two, push sum
	OpSub Opcode = 0x11 // Pop two, push difference (a - b where b is TOS)
	OpMul Opcode = 0x12 // Pop two, push product
	OpDiv Opcode = 0x13 // Pop two, push quotient; division by zero is fatal
	OpMod Opcode = 0x14 // Pop two, push remainder
	OpPow Opcode = 0x15 // Pop two, push a ** b
	OpNeg Opcode = 0x16 // Negate top of stack
	OpAbs Opcode = 0x17 // Absolute value of top of stack

	// ========================================================================
	// Comparison (0x20-0x2F)
	// ========================================================================

	OpEq Opcode = 0x20 // Pop two, push true if equal
	OpNe Opcode = 0x21 // Pop two, push true if not equal
	OpLt Opcode = 0x22 // Pop two, push true if a < b
	OpLe Opcode = 0x23 // Pop two, push true if a <= b
	OpGt Opcode = 0x24 // Pop two, push true if a > b
	OpGe Opcode = 0x25 // Pop two, push true if a >= b

	// ========================================================================
	// Logical (0x30-0x3F)
	// ========================================================================

	OpAnd Opcode = 0x30 // Pop two, push logical AND
	OpOr  Opcode = 0x31 // Pop two, push logical OR
	OpNot Opcode = 0x32 // Logical NOT of top of stack
	OpXor Opcode = 0x33 // Pop two, push logical XOR

	// ========================================================================
	// Control flow (0x40-0x4F)
	// ========================================================================

	OpJmp  Opcode = 0x40 // Unconditional jump: OpJmp <offset>
	OpJz   Opcode = 0x41 // Pop; jump if falsy: OpJz <offset>
	OpJnz  Opcode = 0x42 // Pop; jump if truthy: OpJnz <offset>
	OpCall Opcode = 0x43 // Call function: OpCall <name|0> <argc>
	OpRet  Opcode = 0x44 // Return from function (top of stack is the result)

	// ========================================================================
	// Variables (0x50-0x5F)
	// ========================================================================

	OpLoad      Opcode = 0x50 // Push variable at slot: OpLoad <slot>
	OpStore     Opcode = 0x51 // Pop and store to slot: OpStore <slot>
	OpVarDecl   Opcode = 0x52 // Declare mutable variable: OpVarDecl <slot>
	OpConstDecl Opcode = 0x53 // Declare immutable binding: OpConstDecl <slot>

	// ========================================================================
	// Arrays (0x60-0x6F)
	// ========================================================================

	OpArrayNew  Opcode = 0x60 // Create empty array, push it
	OpArrayLen  Opcode = 0x61 // Pop array, push its length
	OpArrayGet  Opcode = 0x62 // Pop index, pop array, push element
	OpArraySet  Opcode = 0x63 // Pop value, index, array; store element
	OpArrayPush Opcode = 0x64 // Pop value, append to array below it
	OpArrayPop  Opcode = 0x65 // Pop array, push its last element

	// ========================================================================
	// Matrices (0x70-0x7F)
	// ========================================================================

	OpMatrixNew       Opcode = 0x70 // Create matrix: OpMatrixNew <rows> <cols>
	OpMatrixRows      Opcode = 0x71 // Pop matrix, push row count
	OpMatrixCols      Opcode = 0x72 // Pop matrix, push column count
	OpMatrixGet       Opcode = 0x73 // Pop matrix, push element: OpMatrixGet <row> <col>
	OpMatrixSet       Opcode = 0x74 // Pop value, matrix; store element: OpMatrixSet <row> <col>
	OpMatrixAdd       Opcode = 0x75 // Pop two matrices, push elementwise sum
	OpMatrixSub       Opcode = 0x76 // Pop two matrices, push elementwise difference
	OpMatrixMul       Opcode = 0x77 // Pop two matrices, push product
	OpMatrixTranspose Opcode = 0x78 // Pop matrix, push transpose
	OpMatrixDet       Opcode = 0x79 // Pop matrix, push determinant
	OpMatrixInv       Opcode = 0x7A // Pop matrix, push inverse

	// ========================================================================
	// Tensors (0x80-0x8F)
	// ========================================================================

	OpTensorNew     Opcode = 0x80 // Create tensor: OpTensorNew <rank> <dim...>
	OpTensorShape   Opcode = 0x81 // Pop tensor, push shape array
	OpTensorGet     Opcode = 0x82 // Pop indices, tensor; push element
	OpTensorSet     Opcode = 0x83 // Pop value, indices, tensor; store element
	OpTensorReshape Opcode = 0x84 // Pop tensor, push reshaped view

	// ========================================================================
	// IO (0x90-0x9F)
	// ========================================================================

	OpPrint Opcode = 0x90 // Pop and display
	OpRead  Opcode = 0x91 // Read a value, push it

	// ========================================================================
	// Special (0xF0-0xFF)
	// ========================================================================

	OpHalt  Opcode = 0xF0 // Stop execution
	OpDebug Opcode = 0xF1 // Emit a debug marker
)

// OpcodeInfo provides metadata about each opcode for disassembly, validation,
// and stack-effect accounting.
type OpcodeInfo struct {
	Name      string // Human-readable name
	StackPop  int    // How many values popped from stack (-1 = variable)
	StackPush int    // How many values pushed to stack
	Operands  int    // Number of encoded operands following the opcode (-1 = variable)
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpNop:  {"NOP", 0, 0, 0},
	OpPush: {"PUSH", 0, 1, 1},
	OpPop:  {"POP", 1, 0, 0},
	OpDup:  {"DUP", 1, 2, 0},
	OpSwap: {"SWAP", 2, 2, 0},

	// Arithmetic
	OpAdd: {"ADD", 2, 1, 0},
	OpSub: {"SUB", 2, 1, 0},
	OpMul: {"MUL", 2, 1, 0},
	OpDiv: {"DIV", 2, 1, 0},
	OpMod: {"MOD", 2, 1, 0},
	OpPow: {"POW", 2, 1, 0},
	OpNeg: {"NEG", 1, 1, 0},
	OpAbs: {"ABS", 1, 1, 0},

	// Comparison
	OpEq: {"EQ", 2, 1, 0},
	OpNe: {"NE", 2, 1, 0},
	OpLt: {"LT", 2, 1, 0},
	OpLe: {"LE", 2, 1, 0},
	OpGt: {"GT", 2, 1, 0},
	OpGe: {"GE", 2, 1, 0},

	// Logical
	OpAnd: {"AND", 2, 1, 0},
	OpOr:  {"OR", 2, 1, 0},
	OpNot: {"NOT", 1, 1, 0},
	OpXor: {"XOR", 2, 1, 0},

	// Control flow
	OpJmp:  {"JMP", 0, 0, 1},
	OpJz:   {"JZ", 1, 0, 1},
	OpJnz:  {"JNZ", 1, 0, 1},
	OpCall: {"CALL", -1, 1, 2}, // Pops argc arguments
	OpRet:  {"RET", -1, 0, 0},

	// Variables
	OpLoad:      {"LOAD", 0, 1, 1},
	OpStore:     {"STORE", 1, 0, 1},
	OpVarDecl:   {"VAR_DECL", 0, 0, 1},
	OpConstDecl: {"CONST_DECL", 0, 0, 1},

	// Arrays
	OpArrayNew:  {"ARRAY_NEW", 0, 1, 0},
	OpArrayLen:  {"ARRAY_LEN", 1, 1, 0},
	OpArrayGet:  {"ARRAY_GET", 2, 1, 0},
	OpArraySet:  {"ARRAY_SET", 3, 0, 0},
	OpArrayPush: {"ARRAY_PUSH", 2, 1, 0},
	OpArrayPop:  {"ARRAY_POP", 1, 1, 0},

	// Matrices
	OpMatrixNew:       {"MATRIX_NEW", 0, 1, 2},
	OpMatrixRows:      {"MATRIX_ROWS", 1, 1, 0},
	OpMatrixCols:      {"MATRIX_COLS", 1, 1, 0},
	OpMatrixGet:       {"MATRIX_GET", 1, 1, 2},
	OpMatrixSet:       {"MATRIX_SET", 2, 1, 2},
	OpMatrixAdd:       {"MATRIX_ADD", 2, 1, 0},
	OpMatrixSub:       {"MATRIX_SUB", 2, 1, 0},
	OpMatrixMul:       {"MATRIX_MUL", 2, 1, 0},
	OpMatrixTranspose: {"MATRIX_TRANSPOSE", 1, 1, 0},
	OpMatrixDet:       {"MATRIX_DET", 1, 1, 0},
	OpMatrixInv:       {"MATRIX_INV", 1, 1, 0},

	// Tensors
	OpTensorNew:     {"TENSOR_NEW", 0, 1, -1},
	OpTensorShape:   {"TENSOR_SHAPE", 1, 1, 0},
	OpTensorGet:     {"TENSOR_GET", -1, 1, 0},
	OpTensorSet:     {"TENSOR_SET", -1, 0, 0},
	OpTensorReshape: {"TENSOR_RESHAPE", 1, 1, 0},

	// IO
	OpPrint: {"PRINT", 1, 0, 0},
	OpRead:  {"READ", 0, 1, 0},

	// Special
	OpHalt:  {"HALT", 0, 0, 0},
	OpDebug: {"DEBUG", 0, 0, -1},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with an UNKNOWN name if the opcode is not defined.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsValid reports whether the opcode is part of the defined vocabulary.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsJump returns true if this opcode transfers control via an offset operand.
func (op Opcode) IsJump() bool {
	return op == OpJmp || op == OpJz || op == OpJnz
}

// IsTerminator returns true if this opcode ends a function's execution.
func (op Opcode) IsTerminator() bool {
	return op == OpRet || op == OpHalt
}

// opcodesByName resolves disassembly names back to opcodes.
var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// OpcodeByName looks up an opcode by its canonical name.
func OpcodeByName(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
