package runtime

import "veldt/internal/lang"

// Frame is one activation record: the remaining statement list (the
// continuation), the local variable scope, the owning object, and the
// return plumbing back to the caller.
type Frame struct {
	ID     int
	Owner  ObjectRef // zero for the entry frame
	Stmts  []lang.Stmt
	Locals *Scope

	// Caller and RetVar route a return value into the invoking frame's
	// locals. RetVar is empty for void call sites and the entry frame.
	Caller *Frame
	RetVar string
}

// Scope is an insertion-ordered local variable map.
type Scope struct {
	names []string
	vals  map[string]Value
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{vals: make(map[string]Value)}
}

// Declare introduces a variable; redeclaration overwrites in place.
func (s *Scope) Declare(name string, v Value) {
	if _, ok := s.vals[name]; !ok {
		s.names = append(s.names, name)
	}
	s.vals[name] = v
}

// Set overwrites an existing variable.
func (s *Scope) Set(name string, v Value) bool {
	if _, ok := s.vals[name]; !ok {
		return false
	}
	s.vals[name] = v
	return true
}

// Get reads a variable.
func (s *Scope) Get(name string) (Value, bool) {
	v, ok := s.vals[name]
	return v, ok
}

// Names returns the variable names in declaration order.
func (s *Scope) Names() []string { return s.names }

// Stack is the LIFO frame stack; the top frame is the executing one.
type Stack struct {
	frames []*Frame
	nextID int
}

// NewStack returns an empty stack.
func NewStack() *Stack { return &Stack{} }

// NewFrame mints a frame with a fresh identity.
func (s *Stack) NewFrame(owner ObjectRef, stmts []lang.Stmt) *Frame {
	s.nextID++
	return &Frame{
		ID:     s.nextID,
		Owner:  owner,
		Stmts:  stmts,
		Locals: NewScope(),
	}
}

// Push puts a frame on top.
func (s *Stack) Push(f *Frame) { s.frames = append(s.frames, f) }

// Pop removes and returns the top frame.
func (s *Stack) Pop() (*Frame, bool) {
	if len(s.frames) == 0 {
		return nil, false
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f, true
}

// Top returns the executing frame without removing it.
func (s *Stack) Top() (*Frame, bool) {
	if len(s.frames) == 0 {
		return nil, false
	}
	return s.frames[len(s.frames)-1], true
}

// Len returns the stack depth.
func (s *Stack) Len() int { return len(s.frames) }

// Frames returns the stack bottom-up for introspection.
func (s *Stack) Frames() []*Frame { return s.frames }
