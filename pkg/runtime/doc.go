// Package runtime executes Noodle bytecode on a stack machine.
//
// An Interpreter runs one loaded instruction sequence to completion per
// Execute call: a fetch-decode-execute loop over an operand stack, a
// global-variable table, and an explicit call-frame stack, with a wall-clock
// timeout checked once per instruction. Failures abort the whole call and
// leave the program counter and stack at the failure point for inspection;
// Reset restores a clean instance.
package runtime
