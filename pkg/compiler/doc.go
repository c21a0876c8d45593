// Package compiler drives the Noodle compile pipeline: lexical analysis,
// parsing, semantic analysis, constant folding, and code generation.
//
// Each Compile call runs the phases in order and stops at the first phase
// that produces errors. The Result carries the compiled program, every
// diagnostic with its phase and position, and run statistics under a fresh
// compilation id.
package compiler
