package runtime

import (
	"strings"
	"testing"
)

func TestHeapAllocateMintsUniqueRefs(t *testing.T) {
	h := NewHeap()
	a := h.Allocate("Sensor")
	b := h.Allocate("Sensor")
	c := h.Allocate("Room")

	if a == b {
		t.Fatalf("two allocations returned the same ref %s", a)
	}
	if !strings.HasPrefix(string(a), "Sensor_") {
		t.Errorf("ref %s does not carry its class name", a)
	}
	if got := h.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if class, ok := h.ClassOf(c); !ok || class != "Room" {
		t.Errorf("ClassOf(%s) = %q, %t", c, class, ok)
	}
}

func TestHeapRefsPreserveCreationOrder(t *testing.T) {
	h := NewHeap()
	want := []ObjectRef{
		h.Allocate("A"),
		h.Allocate("B"),
		h.Allocate("A"),
	}
	got := h.Refs()
	if len(got) != len(want) {
		t.Fatalf("Refs() returned %d refs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Refs()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestFieldMapInsertionOrder(t *testing.T) {
	fm := NewFieldMap()
	fm.Set("z", IntVal(1))
	fm.Set("a", IntVal(2))
	fm.Set("z", IntVal(3)) // overwrite must not reorder

	names := fm.Names()
	if len(names) != 2 || names[0] != "z" || names[1] != "a" {
		t.Fatalf("Names() = %v, want [z a]", names)
	}
	if v, _ := fm.Get("z"); v.Int != 3 {
		t.Errorf("Get(z) = %v after overwrite, want 3", v)
	}
}

func TestHeapFindByIdentity(t *testing.T) {
	h := NewHeap()
	ref := h.Allocate("Cell")

	got, ok := h.FindByIdentity(string(ref))
	if !ok || got != ref {
		t.Fatalf("FindByIdentity(%s) = %s, %t", ref, got, ok)
	}
	if _, ok := h.FindByIdentity("Cell_999"); ok {
		t.Error("FindByIdentity resolved a ref that was never allocated")
	}
}

func TestHeapCheckIntegrity(t *testing.T) {
	h := NewHeap()
	a := h.Allocate("Node")
	b := h.Allocate("Node")
	fa, _ := h.Fields(a)
	fa.Set("next", RefVal(b))
	fa.Set("prev", Null())

	if err := h.CheckIntegrity(); err != nil {
		t.Fatalf("CheckIntegrity() = %v on a well-formed heap", err)
	}

	fa.Set("next", RefVal("Node_999"))
	if err := h.CheckIntegrity(); err == nil {
		t.Fatal("CheckIntegrity() passed a heap with a dangling reference")
	}
}
