package codegen

import (
	"fmt"

	"github.com/noodlelang/noodle/pkg/ast"
)

// ErrorKind classifies generation failures. Every kind is fatal for the
// function being generated; no partial bytecode is emitted past a failure.
type ErrorKind int

const (
	ErrUnsupportedOperator ErrorKind = iota
	ErrUnsupportedTarget
	ErrUnsupportedLiteral
	ErrUndefinedVariable
	ErrUnsupportedStatement
	ErrUnresolvedLabel
)

var errorKindNames = map[ErrorKind]string{
	ErrUnsupportedOperator:  "unsupported operator",
	ErrUnsupportedTarget:    "unsupported assignment target",
	ErrUnsupportedLiteral:   "unsupported literal",
	ErrUndefinedVariable:    "undefined variable",
	ErrUnsupportedStatement: "unsupported statement",
	ErrUnresolvedLabel:      "unresolved label",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a code-generation failure: static, pre-execution, unrecoverable
// for the function being generated.
type Error struct {
	Kind     ErrorKind
	Function string
	Detail   string
	Pos      ast.Position
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("codegen: %s: %s", e.Kind, e.Detail)
	if e.Function != "" {
		msg += fmt.Sprintf(" (in %s)", e.Function)
	}
	if e.Pos.IsValid() {
		msg += fmt.Sprintf(" at %s", e.Pos)
	}
	return msg
}

func (g *Generator) errf(kind ErrorKind, pos ast.Position, format string, args ...any) *Error {
	name := ""
	if g.current != nil {
		name = g.current.fn.Name
	}
	return &Error{Kind: kind, Function: name, Detail: fmt.Sprintf(format, args...), Pos: pos}
}
