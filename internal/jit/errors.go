package jit

import "fmt"

// ErrorKind discriminates the classes of compilation failure.
type ErrorKind int

const (
	// KindUnsupported marks a construct the compiler refuses to emit code
	// for: variable or non string/int argument literals, directives on
	// compiled selections, arguments on fields without a resolver.
	KindUnsupported ErrorKind = iota
	// KindPrecondition marks a violated boundary condition: multi-operation
	// documents, non-query operations, missing root type.
	KindPrecondition
	// KindUnknownField marks a selection that names no field on the type it
	// selects from.
	KindUnknownField
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported construct"
	case KindPrecondition:
		return "precondition violated"
	case KindUnknownField:
		return "unknown field"
	default:
		return "unknown error kind"
	}
}

// CompileError is returned when an operation cannot be compiled. Compilation
// fails fast: no plan is produced for an operation the compiler cannot fully
// express, so a compiled plan never silently diverges from the reference
// engine at run time.
type CompileError struct {
	Kind    ErrorKind
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("jit: %s: %s", e.Kind, e.Message)
}

func unsupportedf(format string, args ...any) *CompileError {
	return &CompileError{Kind: KindUnsupported, Message: fmt.Sprintf(format, args...)}
}

func preconditionf(format string, args ...any) *CompileError {
	return &CompileError{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

func unknownFieldf(format string, args ...any) *CompileError {
	return &CompileError{Kind: KindUnknownField, Message: fmt.Sprintf(format, args...)}
}
