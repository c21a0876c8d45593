package bytecode

// FunctionCode is one compiled function: its instruction sequence plus the
// frame metadata the runtime and the serializer need.
//
// Invariant: MaxStackDepth >= the operand-stack depth after every instruction
// in a replay of Instructions.
type FunctionCode struct {
	Name         string
	Instructions []Instruction
	Params       []string // declaration order; slot(i) = -(len(Params)-i)
	Locals       []string // first-seen order; slot(i) = i+1
	ReturnType   string   // empty when the function declares none

	StackSize     int // allocated operand-stack size
	MaxStackDepth int // high-water mark observed during generation
}

// NewFunctionCode creates an empty function record.
func NewFunctionCode(name string) *FunctionCode {
	return &FunctionCode{Name: name}
}

// ParamSlot returns the stack slot for parameter index i (declaration order).
// Parameters occupy negative slots in reverse declaration order: the last
// declared parameter is slot -1.
func (f *FunctionCode) ParamSlot(i int) int {
	return -(len(f.Params) - i)
}

// LocalSlot returns the stack slot for local index i (first-seen order).
// Locals occupy positive slots starting at +1.
func (f *FunctionCode) LocalSlot(i int) int {
	return i + 1
}

// SlotName resolves a slot offset back to the variable name it holds, for
// disassembly. Returns "" for slot 0 and for out-of-range offsets.
func (f *FunctionCode) SlotName(slot int) string {
	switch {
	case slot > 0 && slot <= len(f.Locals):
		return f.Locals[slot-1]
	case slot < 0 && -slot <= len(f.Params):
		return f.Params[len(f.Params)+slot]
	}
	return ""
}

// Append adds an instruction and returns its offset.
func (f *FunctionCode) Append(in Instruction) int {
	f.Instructions = append(f.Instructions, in)
	return len(f.Instructions) - 1
}

// Program is a generated unit: every function keyed by name. The entry
// function is always "main".
type Program map[string]*FunctionCode

// EntryName is the synthetic function holding top-level statements.
const EntryName = "main"

// Entry returns the program's entry function, or nil if absent.
func (p Program) Entry() *FunctionCode {
	return p[EntryName]
}
