package bytecode

import (
	"fmt"
	"strings"

	"github.com/noodlelang/noodle/pkg/ast"
)

// Instruction is one opcode with its ordered operands. Operands are one of
// int64, float64, string, or bool; anything else is rejected at encode time.
// Instructions are immutable once emitted; the code generator's back-patching
// pass replaces whole instructions rather than mutating operands in place.
type Instruction struct {
	Op       Opcode
	Operands []any
	Pos      ast.Position
}

// NewInstruction creates an instruction with the given operands.
func NewInstruction(op Opcode, operands ...any) Instruction {
	return Instruction{Op: op, Operands: operands}
}

// NewInstructionAt creates an instruction carrying a source position.
func NewInstructionAt(op Opcode, pos ast.Position, operands ...any) Instruction {
	return Instruction{Op: op, Operands: operands, Pos: pos}
}

// Int returns operand i as an int64. The second result is false when the
// operand is missing or not an integer.
func (in Instruction) Int(i int) (int64, bool) {
	if i >= len(in.Operands) {
		return 0, false
	}
	v, ok := in.Operands[i].(int64)
	return v, ok
}

// Str returns operand i as a string.
func (in Instruction) Str(i int) (string, bool) {
	if i >= len(in.Operands) {
		return "", false
	}
	v, ok := in.Operands[i].(string)
	return v, ok
}

// String formats the instruction the way the disassembler prints it.
func (in Instruction) String() string {
	if len(in.Operands) == 0 {
		return in.Op.String()
	}
	parts := make([]string, len(in.Operands))
	for i, operand := range in.Operands {
		parts[i] = formatOperand(operand)
	}
	return in.Op.String() + " " + strings.Join(parts, " ")
}

func formatOperand(v any) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ValidOperand reports whether v has one of the four encodable operand types.
func ValidOperand(v any) bool {
	switch v.(type) {
	case int64, float64, string, bool:
		return true
	}
	return false
}
