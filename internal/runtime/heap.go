package runtime

import "fmt"

// ObjectRef is the opaque identity token of a heap object. Refs are minted
// once per allocation and never reused within a run; the printed form
// (class name plus allocation sequence) is what appears in lifted triples
// and what query lowering matches against.
type ObjectRef string

// FieldMap is an insertion-ordered field-name-to-value mapping. Order is
// the static layout order of the object's class, which keeps heap triple
// generation deterministic.
type FieldMap struct {
	names []string
	vals  map[string]Value
}

// NewFieldMap returns an empty field map.
func NewFieldMap() *FieldMap {
	return &FieldMap{vals: make(map[string]Value)}
}

// Set stores a field value, appending the name on first write.
func (fm *FieldMap) Set(name string, v Value) {
	if _, ok := fm.vals[name]; !ok {
		fm.names = append(fm.names, name)
	}
	fm.vals[name] = v
}

// Get reads a field value.
func (fm *FieldMap) Get(name string) (Value, bool) {
	v, ok := fm.vals[name]
	return v, ok
}

// Names returns the field names in insertion order.
func (fm *FieldMap) Names() []string { return fm.names }

// Len returns the number of fields.
func (fm *FieldMap) Len() int { return len(fm.names) }

// Heap is the global object store: ObjectRef to FieldMap, with a creation-
// ordered ref list so iteration order equals allocation order.
type Heap struct {
	objects map[ObjectRef]*FieldMap
	classes map[ObjectRef]string
	order   []ObjectRef
	nextSeq int
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{
		objects: make(map[ObjectRef]*FieldMap),
		classes: make(map[ObjectRef]string),
	}
}

// Allocate mints a fresh ObjectRef for an instance of class and installs an
// empty field map for it.
func (h *Heap) Allocate(class string) ObjectRef {
	ref := ObjectRef(fmt.Sprintf("%s_%d", class, h.nextSeq))
	h.nextSeq++
	h.objects[ref] = NewFieldMap()
	h.classes[ref] = class
	h.order = append(h.order, ref)
	return ref
}

// Fields returns the field map of a live object.
func (h *Heap) Fields(ref ObjectRef) (*FieldMap, bool) {
	fm, ok := h.objects[ref]
	return fm, ok
}

// ClassOf returns the declared class of a live object.
func (h *Heap) ClassOf(ref ObjectRef) (string, bool) {
	c, ok := h.classes[ref]
	return c, ok
}

// Contains reports whether ref is a live heap key.
func (h *Heap) Contains(ref ObjectRef) bool {
	_, ok := h.objects[ref]
	return ok
}

// Refs returns all live refs in creation order. The returned slice is
// shared; callers must not mutate it.
func (h *Heap) Refs() []ObjectRef { return h.order }

// Len returns the number of live objects.
func (h *Heap) Len() int { return len(h.order) }

// FindByIdentity resolves a printed identity back to its ref.
func (h *Heap) FindByIdentity(printed string) (ObjectRef, bool) {
	ref := ObjectRef(printed)
	_, ok := h.objects[ref]
	return ref, ok
}

// CheckIntegrity verifies the dangling-reference invariant: every ref value
// stored in any field map is either null or a live heap key.
func (h *Heap) CheckIntegrity() error {
	for _, ref := range h.order {
		fm := h.objects[ref]
		for _, name := range fm.Names() {
			v, _ := fm.Get(name)
			if v.Kind == KindRef && !h.Contains(v.Ref) {
				return fmt.Errorf("object %s field %s holds dangling reference %s", ref, name, v.Ref)
			}
		}
	}
	return nil
}
