package runtime

// SimMemory is the side map for simulation objects: program objects
// registered under stable names so that an embedded simulator or the CLI
// can find them between steps. Registration order is preserved.
type SimMemory struct {
	names []string
	refs  map[string]ObjectRef
}

// NewSimMemory returns an empty simulation memory.
func NewSimMemory() *SimMemory {
	return &SimMemory{refs: make(map[string]ObjectRef)}
}

// Bind registers ref under name; rebinding a name replaces the ref but
// keeps its original position.
func (m *SimMemory) Bind(name string, ref ObjectRef) {
	if _, ok := m.refs[name]; !ok {
		m.names = append(m.names, name)
	}
	m.refs[name] = ref
}

// Lookup resolves a registered name.
func (m *SimMemory) Lookup(name string) (ObjectRef, bool) {
	ref, ok := m.refs[name]
	return ref, ok
}

// Names returns the registered names in binding order.
func (m *SimMemory) Names() []string { return m.names }

// Len returns the number of bindings.
func (m *SimMemory) Len() int { return len(m.names) }
