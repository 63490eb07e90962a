package bridge

import (
	"veldt/internal/runtime"
)

// heapTriples lifts every live object in creation order: one rdf:type
// triple for the program class, one per modeled domain concept, then one
// triple per non-null field in layout order. Under a closed restriction the
// subject check prunes whole objects before any field work.
func (b *Bridge) heapTriples(r restriction) []Triple {
	var out []Triple
	emit := func(t Triple) {
		if r.admits(t) {
			out = append(out, t)
		}
	}
	for _, ref := range b.heap.Refs() {
		subject := b.runNS + string(ref)
		if r.subjects != nil && !r.subjects[subject] {
			continue
		}
		class, _ := b.heap.ClassOf(ref)
		emit(Triple{subject, RDFType, b.classIRI(class)})
		if tmpl := b.table.ModelsOf(class); tmpl != "" {
			if iri, err := b.prefixes.Expand(tmpl); err == nil {
				emit(Triple{subject, RDFType, iri})
			}
		}
		fields, _ := b.heap.Fields(ref)
		for _, name := range fields.Names() {
			v, _ := fields.Get(name)
			if v.IsNull() {
				continue
			}
			object := b.objectTerm(v)
			emit(Triple{subject, CoreNamespace + name, object})
			if tmpl := b.table.FieldModelsOf(class, name); tmpl != "" {
				if iri, err := b.prefixes.Expand(tmpl); err == nil {
					emit(Triple{subject, iri, object})
				}
			}
		}
	}
	return out
}

// simTriples lifts the simulation-memory registry: one simName triple per
// bound object, in binding order.
func (b *Bridge) simTriples(r restriction) []Triple {
	if b.sim == nil {
		return nil
	}
	var out []Triple
	for _, name := range b.sim.Names() {
		ref, _ := b.sim.Lookup(name)
		t := Triple{b.runNS + string(ref), CoreSimName, quote(name)}
		if r.admits(t) {
			out = append(out, t)
		}
	}
	return out
}

// objectTerm renders a field value as a triple object: refs become
// run-namespaced IRIs, literals their lexical form.
func (b *Bridge) objectTerm(v runtime.Value) string {
	if v.Kind == runtime.KindRef {
		return b.runNS + string(v.Ref)
	}
	return v.Lexical()
}

func (b *Bridge) classIRI(class string) string {
	return b.programNS + class
}

func (b *Bridge) fieldIRI(class, field string) string {
	return b.programNS + class + "/" + field
}

func (b *Bridge) methodIRI(class, method string) string {
	return b.programNS + class + "/" + method
}

// tableTriples lifts the static table in declaration order: class typing
// and hierarchy, then field and method declarations.
func (b *Bridge) tableTriples(r restriction) []Triple {
	var out []Triple
	emit := func(t Triple) {
		if r.admits(t) {
			out = append(out, t)
		}
	}
	for _, name := range b.table.ClassNames {
		classIRI := b.classIRI(name)
		emit(Triple{classIRI, RDFType, CoreClass})
		if super := b.table.Super(name); super != "" {
			emit(Triple{classIRI, RDFSSubClassOf, b.classIRI(super)})
		}
		if tmpl := b.table.ModelsOf(name); tmpl != "" {
			if iri, err := b.prefixes.Expand(tmpl); err == nil {
				emit(Triple{classIRI, RDFSSubClassOf, iri})
			}
		}
		for _, f := range b.table.OwnFields(name) {
			fieldIRI := b.fieldIRI(name, f.Name)
			emit(Triple{classIRI, CoreHasField, fieldIRI})
			emit(Triple{fieldIRI, RDFType, CoreField})
			emit(Triple{fieldIRI, CoreFieldName, quote(f.Name)})
			emit(Triple{fieldIRI, CoreFieldType, quote(string(f.Type))})
			if f.Models != "" {
				if iri, err := b.prefixes.Expand(f.Models); err == nil {
					emit(Triple{fieldIRI, CoreModels, iri})
				}
			}
		}
		for _, m := range b.table.OwnMethods(name) {
			methodIRI := b.methodIRI(name, m.Name)
			emit(Triple{classIRI, CoreHasMethod, methodIRI})
			emit(Triple{methodIRI, RDFType, CoreMethod})
			emit(Triple{methodIRI, CoreMethodName, quote(m.Name)})
		}
	}
	return out
}

// coreVocabulary is the fixed, always-available schema describing the
// language's structural predicates.
func coreVocabulary() []Triple {
	return []Triple{
		{CoreClass, RDFType, RDFSClass},
		{CoreField, RDFType, RDFSClass},
		{CoreMethod, RDFType, RDFSClass},
		{CoreHasField, RDFType, RDFProperty},
		{CoreHasField, RDFSDomain, CoreClass},
		{CoreHasField, RDFSRange, CoreField},
		{CoreHasMethod, RDFType, RDFProperty},
		{CoreHasMethod, RDFSDomain, CoreClass},
		{CoreHasMethod, RDFSRange, CoreMethod},
		{CoreFieldName, RDFType, RDFProperty},
		{CoreFieldType, RDFType, RDFProperty},
		{CoreMethodName, RDFType, RDFProperty},
		{CoreModels, RDFType, RDFProperty},
		{CoreSimName, RDFType, RDFProperty},
	}
}

func quote(s string) string { return `"` + s + `"` }
