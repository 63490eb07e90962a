package runtime

import "testing"

func TestScopeDeclareAndSet(t *testing.T) {
	s := NewScope()
	s.Declare("x", IntVal(1))

	if !s.Set("x", IntVal(2)) {
		t.Fatal("Set on a declared name failed")
	}
	if v, _ := s.Get("x"); v.Int != 2 {
		t.Errorf("Get(x) = %v, want 2", v)
	}
	if s.Set("y", IntVal(3)) {
		t.Error("Set on an undeclared name succeeded")
	}
	if _, ok := s.Get("y"); ok {
		t.Error("Get returned a binding that was never declared")
	}
}

func TestStackLIFOAndFrameIDs(t *testing.T) {
	st := NewStack()
	f1 := st.NewFrame("A_0", nil)
	f2 := st.NewFrame("A_0", nil)
	if f1.ID == f2.ID {
		t.Fatalf("two frames share ID %d", f1.ID)
	}

	st.Push(f1)
	st.Push(f2)
	if top, _ := st.Top(); top != f2 {
		t.Fatal("Top is not the last pushed frame")
	}
	if got, _ := st.Pop(); got != f2 {
		t.Fatal("Pop returned the wrong frame")
	}
	if got, _ := st.Pop(); got != f1 {
		t.Fatal("Pop returned the wrong frame")
	}
	if _, ok := st.Pop(); ok {
		t.Fatal("Pop succeeded on an empty stack")
	}
}

func TestSimMemoryBind(t *testing.T) {
	m := NewSimMemory()
	m.Bind("world", "World_0")
	m.Bind("world", "World_1") // rebinding replaces

	ref, ok := m.Lookup("world")
	if !ok || ref != "World_1" {
		t.Fatalf("Lookup(world) = %s, %t", ref, ok)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d after rebinding, want 1", m.Len())
	}
}
