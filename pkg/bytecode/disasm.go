package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of one function.
func Disassemble(f *FunctionCode) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; === %s ===\n", f.Name))
	if len(f.Params) > 0 {
		sb.WriteString(fmt.Sprintf("; Parameters (%d): %s\n", len(f.Params), strings.Join(f.Params, ", ")))
	}
	if len(f.Locals) > 0 {
		sb.WriteString(fmt.Sprintf("; Locals (%d): %s\n", len(f.Locals), strings.Join(f.Locals, ", ")))
	}
	if f.ReturnType != "" {
		sb.WriteString(fmt.Sprintf("; Returns: %s\n", f.ReturnType))
	}
	sb.WriteString(fmt.Sprintf("; Stack: size=%d max_depth=%d\n", f.StackSize, f.MaxStackDepth))
	sb.WriteString("\n")

	for offset, in := range f.Instructions {
		line := formatInstruction(f, in)
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
	}

	return sb.String()
}

// DisassembleProgram returns a listing of every function in the program,
// entry function first, the rest in name order.
func DisassembleProgram(p Program) string {
	names := make([]string, 0, len(p))
	for name := range p {
		if name != EntryName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if p.Entry() != nil {
		names = append([]string{EntryName}, names...)
	}

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(Disassemble(p[name]))
	}
	return sb.String()
}

// formatInstruction renders one instruction, annotating slot operands with
// the variable name they resolve to and jump operands with the target offset.
func formatInstruction(f *FunctionCode, in Instruction) string {
	switch in.Op {
	case OpLoad, OpStore, OpVarDecl, OpConstDecl:
		if slot, ok := in.Int(0); ok {
			if name := f.SlotName(int(slot)); name != "" {
				return fmt.Sprintf("%s %d ; %s", in.Op, slot, name)
			}
		}
	case OpJmp, OpJz, OpJnz:
		if target, ok := in.Int(0); ok {
			return fmt.Sprintf("%s %d (-> %04X)", in.Op, target, target)
		}
	}
	return in.String()
}

// InstructionCount returns the number of instructions across all functions.
func InstructionCount(p Program) int {
	total := 0
	for _, f := range p {
		total += len(f.Instructions)
	}
	return total
}
