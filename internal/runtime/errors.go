package runtime

import (
	"errors"
	"fmt"

	"veldt/internal/lang"
)

// Sentinel categories for runtime evaluation errors. Callers classify with
// errors.Is; the concrete message carries the offending detail.
var (
	ErrNullDeref     = errors.New("null dereference")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrArityMismatch = errors.New("arity mismatch")
	ErrUnbound       = errors.New("unbound identifier")
	ErrUnknownField  = errors.New("unknown field")
	ErrUnknownMethod = errors.New("unknown method")
	ErrUnknownClass  = errors.New("unknown class")
	ErrDivideByZero  = errors.New("division by zero")
)

// EvalError is a runtime evaluation error attached to the statement whose
// step produced it. The heap and stack are left exactly as they were at the
// failure point; nothing is rolled back.
type EvalError struct {
	Stmt    lang.Stmt
	FrameID int
	Err     error
}

func (e *EvalError) Error() string {
	if e.Stmt == nil {
		return fmt.Sprintf("frame %d: %v", e.FrameID, e.Err)
	}
	return fmt.Sprintf("frame %d at %q: %v", e.FrameID, e.Stmt.String(), e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
