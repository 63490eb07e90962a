// Package program builds the static structural tables of a loaded Veldt
// program: class hierarchy, field and method tables, and the semantic model
// templates. The tables are built once and are read-only afterwards; the
// interpreter and the semantic bridge only consult them.
package program

import (
	"fmt"
	"sort"

	"veldt/internal/lang"
)

// Table is the immutable static view of a program. ClassNames preserves
// declaration order so that triple generation from the table is
// deterministic.
type Table struct {
	ProgramName string
	ClassNames  []string

	classes  map[string]*lang.ClassDecl
	fields   map[string][]*lang.FieldDecl  // declared fields only, in order
	methods  map[string]map[string]*lang.MethodDecl
	children map[string][]string // class -> direct subclasses, sorted
	models   map[string]string   // "Class" or "Class.field" -> template
}

// Build constructs the static table from a decoded program. Structural
// defects (duplicate declarations, unknown superclasses, inheritance
// cycles) are fatal to load.
func Build(prog *lang.Program) (*Table, error) {
	if prog == nil || len(prog.Classes) == 0 {
		return nil, fmt.Errorf("empty program")
	}

	t := &Table{
		ProgramName: prog.Name,
		classes:     make(map[string]*lang.ClassDecl, len(prog.Classes)),
		fields:      make(map[string][]*lang.FieldDecl, len(prog.Classes)),
		methods:     make(map[string]map[string]*lang.MethodDecl, len(prog.Classes)),
		children:    make(map[string][]string),
		models:      make(map[string]string),
	}

	for _, cls := range prog.Classes {
		if cls.Name == "" {
			return nil, fmt.Errorf("class with empty name")
		}
		if _, dup := t.classes[cls.Name]; dup {
			return nil, fmt.Errorf("duplicate class %s", cls.Name)
		}
		t.classes[cls.Name] = cls
		t.ClassNames = append(t.ClassNames, cls.Name)

		seenFields := make(map[string]bool, len(cls.Fields))
		for _, f := range cls.Fields {
			if seenFields[f.Name] {
				return nil, fmt.Errorf("class %s: duplicate field %s", cls.Name, f.Name)
			}
			seenFields[f.Name] = true
			t.fields[cls.Name] = append(t.fields[cls.Name], f)
			if f.Models != "" {
				t.models[cls.Name+"."+f.Name] = f.Models
			}
		}

		ms := make(map[string]*lang.MethodDecl, len(cls.Methods))
		for _, m := range cls.Methods {
			if _, dup := ms[m.Name]; dup {
				return nil, fmt.Errorf("class %s: duplicate method %s", cls.Name, m.Name)
			}
			ms[m.Name] = m
		}
		t.methods[cls.Name] = ms

		if cls.Models != "" {
			t.models[cls.Name] = cls.Models
		}
	}

	for _, cls := range prog.Classes {
		if cls.Super == "" {
			continue
		}
		if _, ok := t.classes[cls.Super]; !ok {
			return nil, fmt.Errorf("class %s: unknown superclass %s", cls.Name, cls.Super)
		}
		t.children[cls.Super] = append(t.children[cls.Super], cls.Name)
	}
	for super := range t.children {
		sort.Strings(t.children[super])
	}

	for _, name := range t.ClassNames {
		if err := t.checkNoCycle(name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) checkNoCycle(name string) error {
	seen := map[string]bool{}
	for cur := name; cur != ""; cur = t.classes[cur].Super {
		if seen[cur] {
			return fmt.Errorf("inheritance cycle through class %s", cur)
		}
		seen[cur] = true
	}
	return nil
}

// HasClass reports whether the program declares the named class.
func (t *Table) HasClass(name string) bool {
	_, ok := t.classes[name]
	return ok
}

// Class returns the declaration of the named class.
func (t *Table) Class(name string) (*lang.ClassDecl, bool) {
	c, ok := t.classes[name]
	return c, ok
}

// Super returns the direct superclass name, or "" for a root class.
func (t *Table) Super(name string) string {
	if c, ok := t.classes[name]; ok {
		return c.Super
	}
	return ""
}

// Subclasses returns the direct subclasses of a class, sorted by name.
func (t *Table) Subclasses(name string) []string {
	return t.children[name]
}

// FieldsOf returns the full ordered field list of a class: inherited fields
// first (root-most class first), then the class's own declarations. This is
// the layout order of a fresh instance's field map.
func (t *Table) FieldsOf(name string) []*lang.FieldDecl {
	chain := t.superChain(name)
	var out []*lang.FieldDecl
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, t.fields[chain[i]]...)
	}
	return out
}

// OwnFields returns only the fields declared directly on the class.
func (t *Table) OwnFields(name string) []*lang.FieldDecl {
	return t.fields[name]
}

// OwnMethods returns the methods declared directly on the class, in
// declaration order.
func (t *Table) OwnMethods(name string) []*lang.MethodDecl {
	c, ok := t.classes[name]
	if !ok {
		return nil
	}
	return c.Methods
}

// LookupMethod resolves a method by walking the hierarchy from the concrete
// class to the root, mirroring the hierarchy map. The defining class is
// returned alongside the body.
func (t *Table) LookupMethod(class, name string) (*lang.MethodDecl, string, bool) {
	for _, cur := range t.superChain(class) {
		if m, ok := t.methods[cur][name]; ok {
			return m, cur, true
		}
	}
	return nil, "", false
}

// FieldDecl resolves a field declaration through the hierarchy.
func (t *Table) FieldDecl(class, field string) (*lang.FieldDecl, bool) {
	for _, f := range t.FieldsOf(class) {
		if f.Name == field {
			return f, true
		}
	}
	return nil, false
}

// ModelsOf returns the semantic model template of a class, or "".
func (t *Table) ModelsOf(class string) string {
	return t.models[class]
}

// FieldModelsOf returns the semantic model template of a field, or "".
func (t *Table) FieldModelsOf(class, field string) string {
	for _, cur := range t.superChain(class) {
		if m, ok := t.models[cur+"."+field]; ok {
			return m
		}
	}
	return ""
}

// IsSubclassOf reports whether class equals ancestor or inherits from it.
func (t *Table) IsSubclassOf(class, ancestor string) bool {
	for _, cur := range t.superChain(class) {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// superChain returns class followed by its ancestors up to the root.
func (t *Table) superChain(name string) []string {
	var chain []string
	for cur := name; cur != ""; {
		c, ok := t.classes[cur]
		if !ok {
			break
		}
		chain = append(chain, cur)
		cur = c.Super
	}
	return chain
}
