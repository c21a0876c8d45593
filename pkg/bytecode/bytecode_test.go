package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("opcode 0x%02X has no metadata", byte(op))
		}
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpPush, "PUSH"},
		{OpArraySet, "ARRAY_SET"},
		{OpMatrixTranspose, "MATRIX_TRANSPOSE"},
		{OpHalt, "HALT"},
		{Opcode(0xCC), "UNKNOWN(0xCC)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode.String() = %v, want %v", got, tt.want)
		}
	}
}

func TestOpcodeByNameRoundTrip(t *testing.T) {
	for _, op := range AllOpcodes() {
		back, ok := OpcodeByName(op.String())
		if !ok || back != op {
			t.Errorf("OpcodeByName(%q) = %v, %v, want %v", op.String(), back, ok, op)
		}
	}
	if _, ok := OpcodeByName("BOGUS"); ok {
		t.Errorf("OpcodeByName(BOGUS) found a match, want none")
	}
}

func TestOpcodePredicates(t *testing.T) {
	for _, op := range []Opcode{OpJmp, OpJz, OpJnz} {
		if !op.IsJump() {
			t.Errorf("%v.IsJump() = false, want true", op)
		}
	}
	if OpCall.IsJump() {
		t.Errorf("CALL.IsJump() = true, want false")
	}
	if !OpRet.IsTerminator() || !OpHalt.IsTerminator() {
		t.Errorf("RET/HALT should be terminators")
	}
	if !OpPush.IsValid() {
		t.Errorf("PUSH.IsValid() = false, want true")
	}
	if Opcode(0xCC).IsValid() {
		t.Errorf("0xCC.IsValid() = true, want false")
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{NewInstruction(OpHalt), "HALT"},
		{NewInstruction(OpPush, int64(42)), "PUSH 42"},
		{NewInstruction(OpPush, 2.5), "PUSH 2.5"},
		{NewInstruction(OpCall, "add", int64(2)), `CALL "add" 2`},
		{NewInstruction(OpPush, true), "PUSH true"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Instruction.String() = %v, want %v", got, tt.want)
		}
	}
}

func TestSlotLayout(t *testing.T) {
	f := NewFunctionCode("add")
	f.Params = []string{"a", "b"}
	f.Locals = []string{"sum", "tmp"}

	// Parameters get negative slots in reverse declaration order.
	if got := f.ParamSlot(0); got != -2 {
		t.Errorf("ParamSlot(0) = %v, want -2", got)
	}
	if got := f.ParamSlot(1); got != -1 {
		t.Errorf("ParamSlot(1) = %v, want -1", got)
	}
	// Locals get positive slots in first-seen order.
	if got := f.LocalSlot(0); got != 1 {
		t.Errorf("LocalSlot(0) = %v, want 1", got)
	}
	if got := f.LocalSlot(1); got != 2 {
		t.Errorf("LocalSlot(1) = %v, want 2", got)
	}

	tests := []struct {
		slot int
		want string
	}{
		{-2, "a"},
		{-1, "b"},
		{1, "sum"},
		{2, "tmp"},
		{0, ""},
		{3, ""},
		{-3, ""},
	}
	for _, tt := range tests {
		if got := f.SlotName(tt.slot); got != tt.want {
			t.Errorf("SlotName(%d) = %q, want %q", tt.slot, got, tt.want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := NewFunctionCode("main")
	f.Params = []string{"a", "b"}
	f.Locals = []string{"result"}
	f.ReturnType = "any"
	f.StackSize = 2
	f.MaxStackDepth = 2
	f.Append(NewInstruction(OpPush, int64(42)))
	f.Append(NewInstruction(OpPush, int64(58)))
	f.Append(NewInstruction(OpAdd))
	f.Append(NewInstruction(OpRet))

	data, err := EncodeFunction(f)
	if err != nil {
		t.Fatalf("EncodeFunction() error = %v", err)
	}

	got, n, err := DecodeFunction(data)
	if err != nil {
		t.Fatalf("DecodeFunction() error = %v", err)
	}
	if n != len(data) {
		t.Errorf("DecodeFunction consumed %v bytes, want %v", n, len(data))
	}
	if got.Name != "main" {
		t.Errorf("Name = %v, want main", got.Name)
	}
	if len(got.Params) != 2 || got.Params[0] != "a" || got.Params[1] != "b" {
		t.Errorf("Params = %v, want [a b]", got.Params)
	}
	if len(got.Locals) != 1 || got.Locals[0] != "result" {
		t.Errorf("Locals = %v, want [result]", got.Locals)
	}
	if got.ReturnType == "" {
		t.Errorf("ReturnType lost in round trip")
	}
	if got.StackSize != 2 || got.MaxStackDepth != 2 {
		t.Errorf("stack fields = %v/%v, want 2/2", got.StackSize, got.MaxStackDepth)
	}
	if len(got.Instructions) != 4 {
		t.Fatalf("len(Instructions) = %v, want 4", len(got.Instructions))
	}

	wantOps := []Opcode{OpPush, OpPush, OpAdd, OpRet}
	for i, in := range got.Instructions {
		if in.Op != wantOps[i] {
			t.Errorf("Instructions[%d].Op = %v, want %v", i, in.Op, wantOps[i])
		}
	}
	if v, ok := got.Instructions[0].Int(0); !ok || v != 42 {
		t.Errorf("Instructions[0] operand = %v, want 42", v)
	}
	if v, ok := got.Instructions[1].Int(0); !ok || v != 58 {
		t.Errorf("Instructions[1] operand = %v, want 58", v)
	}
}

func TestEncodeOperandTypes(t *testing.T) {
	f := NewFunctionCode("ops")
	f.Append(NewInstruction(OpPush, int64(-7)))
	f.Append(NewInstruction(OpPush, 3.25))
	f.Append(NewInstruction(OpPush, true))
	f.Append(NewInstruction(OpCall, "print", int64(1)))

	data, err := EncodeFunction(f)
	if err != nil {
		t.Fatalf("EncodeFunction() error = %v", err)
	}
	got, _, err := DecodeFunction(data)
	if err != nil {
		t.Fatalf("DecodeFunction() error = %v", err)
	}

	if v, ok := got.Instructions[0].Int(0); !ok || v != -7 {
		t.Errorf("negative int operand = %v, want -7", v)
	}
	if v, ok := got.Instructions[1].Operands[0].(float64); !ok || v != 3.25 {
		t.Errorf("float operand = %v, want 3.25", v)
	}
	if v, ok := got.Instructions[2].Operands[0].(bool); !ok || !v {
		t.Errorf("bool operand = %v, want true", v)
	}
	if name, ok := got.Instructions[3].Str(0); !ok || name != "print" {
		t.Errorf("string operand = %q, want print", name)
	}
	if argc, ok := got.Instructions[3].Int(1); !ok || argc != 1 {
		t.Errorf("CALL argc = %v, want 1", argc)
	}
}

func TestEncodeRejectsBadOperand(t *testing.T) {
	f := NewFunctionCode("bad")
	f.Append(Instruction{Op: OpPush, Operands: []any{[]int{1, 2}}})
	if _, err := EncodeFunction(f); err == nil {
		t.Errorf("EncodeFunction() error = nil, want unsupported operand type")
	}
}

func TestDecodeTruncated(t *testing.T) {
	f := NewFunctionCode("f")
	f.Append(NewInstruction(OpPush, int64(1)))
	data, err := EncodeFunction(f)
	if err != nil {
		t.Fatalf("EncodeFunction() error = %v", err)
	}
	for _, cut := range []int{1, len(data) / 2, len(data) - 1} {
		if _, _, err := DecodeFunction(data[:cut]); err == nil {
			t.Errorf("DecodeFunction(truncated at %d) error = nil, want truncation error", cut)
		}
	}
}

func TestImageRoundTrip(t *testing.T) {
	add := NewFunctionCode("add")
	add.Params = []string{"a", "b"}
	add.MaxStackDepth = 2
	add.Append(NewInstruction(OpLoad, int64(-2)))
	add.Append(NewInstruction(OpLoad, int64(-1)))
	add.Append(NewInstruction(OpAdd))
	add.Append(NewInstruction(OpRet))

	main := NewFunctionCode("main")
	main.MaxStackDepth = 2
	main.Append(NewInstruction(OpPush, int64(3)))
	main.Append(NewInstruction(OpPush, int64(4)))
	main.Append(NewInstruction(OpCall, "add", int64(2)))
	main.Append(NewInstruction(OpRet))

	p := Program{"add": add, "main": main}

	data, err := MarshalImage(p, "test-compilation")
	if err != nil {
		t.Fatalf("MarshalImage() error = %v", err)
	}
	got, err := UnmarshalImage(data)
	if err != nil {
		t.Fatalf("UnmarshalImage() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("len(program) = %v, want 2", len(got))
	}
	if got.Entry() == nil {
		t.Fatalf("Entry() = nil, want main")
	}
	if len(got["add"].Instructions) != 4 {
		t.Errorf("add has %v instructions, want 4", len(got["add"].Instructions))
	}
	if got["add"].Params[0] != "a" {
		t.Errorf("add.Params = %v, want [a b]", got["add"].Params)
	}
}

func TestUnmarshalImageRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalImage([]byte{0xFF, 0x00, 0x01}); err == nil {
		t.Errorf("UnmarshalImage(garbage) error = nil, want error")
	}
}

func TestDisassemble(t *testing.T) {
	f := NewFunctionCode("loop")
	f.Locals = []string{"i"}
	f.MaxStackDepth = 1
	f.Append(NewInstruction(OpPush, int64(0)))
	f.Append(NewInstruction(OpStore, int64(1)))
	f.Append(NewInstruction(OpJmp, int64(0)))
	f.Append(NewInstruction(OpRet))

	out := Disassemble(f)

	for _, want := range []string{
		"; === loop ===",
		"; Locals (1): i",
		"STORE 1 ; i",
		"JMP 0 (-> 0000)",
		"0003  RET",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Disassemble() missing %q in:\n%s", want, out)
		}
	}
}

func TestDisassembleProgramEntryFirst(t *testing.T) {
	p := Program{
		"zebra": NewFunctionCode("zebra"),
		"main":  NewFunctionCode("main"),
		"apple": NewFunctionCode("apple"),
	}
	out := DisassembleProgram(p)

	mainIdx := strings.Index(out, "=== main ===")
	appleIdx := strings.Index(out, "=== apple ===")
	zebraIdx := strings.Index(out, "=== zebra ===")
	if mainIdx < 0 || appleIdx < 0 || zebraIdx < 0 {
		t.Fatalf("missing function headers in:\n%s", out)
	}
	if !(mainIdx < appleIdx && appleIdx < zebraIdx) {
		t.Errorf("function order: main=%d apple=%d zebra=%d, want main first then name order", mainIdx, appleIdx, zebraIdx)
	}
}
