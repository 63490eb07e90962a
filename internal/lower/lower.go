// Package lower converts query and reasoner results back into heap-resident
// program values: each result becomes one cell of a freshly built linked
// list, resolved either to an existing heap object by identity or to a
// freshly typed literal.
package lower

import (
	"errors"
	"fmt"

	"veldt/internal/runtime"
)

// CellClass is the class name used for allocated list cells.
const CellClass = "Cell"

// Cell field names.
const (
	FieldContent = "content"
	FieldNext    = "next"
)

// ErrUnknownLiteralShape is the fatal classification error for a result
// that is neither a known heap identity nor a recognizable literal.
var ErrUnknownLiteralShape = errors.New("unknown literal shape")

// List builds the lowered list from result terms, in result order, by
// prepending: traversal of the returned head visits results in reverse.
// terms are lexical values with namespaces already stripped to local
// identifiers by the caller (see Lower). The only side effect is cell
// allocation; cells allocated before a failing element remain as
// unreachable garbage, which is acceptable.
func List(heap *runtime.Heap, terms []string) (runtime.Value, error) {
	head := runtime.Null()
	for i, term := range terms {
		content, err := resolve(heap, term)
		if err != nil {
			return runtime.Null(), fmt.Errorf("result %d (%q): %w", i, term, err)
		}
		ref := heap.Allocate(CellClass)
		fields, _ := heap.Fields(ref)
		fields.Set(FieldContent, content)
		fields.Set(FieldNext, head)
		head = runtime.RefVal(ref)
	}
	return head, nil
}

// Lower strips each result term to its local identifier with strip (the
// bridge's namespace table) and builds the list.
func Lower(heap *runtime.Heap, terms []string, strip func(string) string) (runtime.Value, error) {
	locals := make([]string, len(terms))
	for i, term := range terms {
		locals[i] = strip(term)
	}
	return List(heap, locals)
}

// resolve maps one local identifier to a value: an existing heap object by
// printed identity (structural sharing, never re-cloned), else a literal
// classified by lexical shape.
func resolve(heap *runtime.Heap, term string) (runtime.Value, error) {
	if ref, ok := heap.FindByIdentity(term); ok {
		return runtime.RefVal(ref), nil
	}
	return classifyLiteral(term)
}

// classifyLiteral types a literal by shape: leading quote means string,
// all digits means integer, digit-dot-digit means float. Anything else is
// fatal.
func classifyLiteral(term string) (runtime.Value, error) {
	if term == "" {
		return runtime.Null(), ErrUnknownLiteralShape
	}
	if term[0] == '"' {
		if len(term) >= 2 && term[len(term)-1] == '"' {
			return runtime.StrVal(term[1 : len(term)-1]), nil
		}
		return runtime.Null(), ErrUnknownLiteralShape
	}
	if isAllDigits(term) {
		var n int64
		if _, err := fmt.Sscanf(term, "%d", &n); err != nil {
			return runtime.Null(), ErrUnknownLiteralShape
		}
		return runtime.IntVal(n), nil
	}
	if isDecimal(term) {
		var f float64
		if _, err := fmt.Sscanf(term, "%g", &f); err != nil {
			return runtime.Null(), ErrUnknownLiteralShape
		}
		return runtime.FloatVal(f), nil
	}
	return runtime.Null(), ErrUnknownLiteralShape
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// isDecimal matches digit-dot-digit tokens: one dot, digits on both sides.
func isDecimal(s string) bool {
	dot := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			if dot >= 0 {
				return false
			}
			dot = i
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return dot > 0 && dot < len(s)-1
}
