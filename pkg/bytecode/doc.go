// Package bytecode defines the Noodle instruction set and its serialized
// forms.
//
// An Instruction is a single-byte Opcode plus typed operands; a FunctionCode
// is one compiled function's instruction sequence together with its frame
// metadata (parameter and local names, stack size, observed maximum stack
// depth). A Program maps function names to their FunctionCode records, with
// "main" as the entry point.
//
// Two serializations are provided: the flat binary function record
// (EncodeFunction/DecodeFunction, little-endian, length-prefixed strings)
// and the CBOR image envelope (MarshalImage/UnmarshalImage) that wraps the
// binary records for distribution and caching.
//
// The opcode vocabulary is wider than what the code generator emits today;
// reserved opcodes (tensors, READ, DEBUG) stay in the table so the encoding
// is stable, and the runtime fails loudly when asked to execute one.
package bytecode
