package runtime

import "fmt"

// ErrorKind classifies runtime failures. Every kind aborts the whole
// Execute call; nothing is retried internally.
type ErrorKind int

const (
	ErrNoBytecode ErrorKind = iota
	ErrTimeout
	ErrCanceled
	ErrUnknownOpcode
	ErrUnimplementedOpcode
	ErrStackUnderflow
	ErrUnboundVariable
	ErrDivisionByZero
	ErrTypeMismatch
	ErrUnknownFunction
)

var errorKindNames = map[ErrorKind]string{
	ErrNoBytecode:          "no bytecode loaded",
	ErrTimeout:             "execution timeout",
	ErrCanceled:            "execution canceled",
	ErrUnknownOpcode:       "unknown opcode",
	ErrUnimplementedOpcode: "unimplemented opcode",
	ErrStackUnderflow:      "stack underflow",
	ErrUnboundVariable:     "unbound variable",
	ErrDivisionByZero:      "division by zero",
	ErrTypeMismatch:        "type mismatch",
	ErrUnknownFunction:     "unknown function",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a runtime failure. The program counter and function at the point
// of failure are carried for diagnostics; the interpreter leaves its stack
// and counter intact so callers can inspect them before Reset.
type Error struct {
	Kind     ErrorKind
	Function string
	PC       int
	Detail   string
}

func (e *Error) Error() string {
	msg := "runtime: " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Function != "" {
		msg += fmt.Sprintf(" (in %s at pc=%d)", e.Function, e.PC)
	}
	return msg
}

func (i *Interpreter) errf(kind ErrorKind, format string, args ...any) *Error {
	name := ""
	if i.fn != nil {
		name = i.fn.Name
	}
	return &Error{Kind: kind, Function: name, PC: i.pc, Detail: fmt.Sprintf(format, args...)}
}
