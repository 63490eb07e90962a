// Package bridge lifts runtime and static program state into a knowledge
// graph of subject-predicate-object triples, answers structured queries
// over it, and hands classification and consistency questions to a
// description-logic reasoner. The graph is never cached across steps: every
// consultation rebuilds (or virtually answers) it from the live heap, the
// static table, the fixed core vocabulary, and the caller-supplied domain
// ontology, under the TripleSettings in force for that call.
package bridge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CoreNamespace is the fixed language vocabulary: the structural predicates
// Veldt itself uses when lifting heap and static-table state.
const CoreNamespace = "http://veldt-lang.org/core#"

// ProgramNamespaceBase prefixes the per-program namespace for declared
// entities (classes, fields, methods).
const ProgramNamespaceBase = "http://veldt-lang.org/program/"

// RunNamespaceBase prefixes the time-stamped per-execution namespace for
// runtime individuals.
const RunNamespaceBase = "http://veldt-lang.org/run/"

// Standard vocabulary IRIs.
const (
	RDFType         = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFProperty     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#Property"
	RDFSClass       = "http://www.w3.org/2000/01/rdf-schema#Class"
	RDFSSubClassOf  = "http://www.w3.org/2000/01/rdf-schema#subClassOf"
	RDFSDomain      = "http://www.w3.org/2000/01/rdf-schema#domain"
	RDFSRange       = "http://www.w3.org/2000/01/rdf-schema#range"
	RDFSLabel       = "http://www.w3.org/2000/01/rdf-schema#label"
	OWLDisjointWith = "http://www.w3.org/2002/07/owl#disjointWith"
)

// Core vocabulary IRIs describing Veldt's own structure.
const (
	CoreClass      = CoreNamespace + "Class"
	CoreField      = CoreNamespace + "Field"
	CoreMethod     = CoreNamespace + "Method"
	CoreHasField   = CoreNamespace + "hasField"
	CoreHasMethod  = CoreNamespace + "hasMethod"
	CoreFieldName  = CoreNamespace + "fieldName"
	CoreFieldType  = CoreNamespace + "fieldType"
	CoreMethodName = CoreNamespace + "methodName"
	CoreModels     = CoreNamespace + "models"
	CoreSimName    = CoreNamespace + "simName"
)

// NewProgramNamespace derives the program namespace from the program name.
func NewProgramNamespace(programName string) string {
	if programName == "" {
		programName = "anonymous"
	}
	return ProgramNamespaceBase + programName + "#"
}

// NewRunNamespace mints the per-execution namespace: time-stamped, with a
// uuid fragment so two runs in the same second stay distinct.
func NewRunNamespace(now time.Time) string {
	stamp := now.UTC().Format("20060102T150405")
	tag := uuid.NewString()[:8]
	return fmt.Sprintf("%s%s-%s#", RunNamespaceBase, stamp, tag)
}

// Prefixes resolves short prefixes to namespace IRIs. The four standard
// prefixes (veldt, prog, run, domain) are always present; callers may
// register more.
type Prefixes struct {
	order []string
	byPfx map[string]string
}

// NewPrefixes builds the standard prefix table for one run.
func NewPrefixes(programNS, runNS, domainNS string) *Prefixes {
	p := &Prefixes{byPfx: make(map[string]string)}
	p.Register("veldt", CoreNamespace)
	p.Register("prog", programNS)
	p.Register("run", runNS)
	if domainNS != "" {
		p.Register("domain", domainNS)
	}
	p.Register("rdf", "http://www.w3.org/1999/02/22-rdf-syntax-ns#")
	p.Register("rdfs", "http://www.w3.org/2000/01/rdf-schema#")
	p.Register("owl", "http://www.w3.org/2002/07/owl#")
	return p
}

// Register binds a prefix; re-registration overwrites.
func (p *Prefixes) Register(prefix, ns string) {
	if _, ok := p.byPfx[prefix]; !ok {
		p.order = append(p.order, prefix)
	}
	p.byPfx[prefix] = ns
}

// Lookup returns the namespace bound to a prefix.
func (p *Prefixes) Lookup(prefix string) (string, bool) {
	ns, ok := p.byPfx[prefix]
	return ns, ok
}

// Names returns registered prefixes in registration order.
func (p *Prefixes) Names() []string { return p.order }

// Expand resolves a term to its full form: <iri> is unwrapped, a CURIE is
// expanded through the table, literals and full IRIs pass through.
func (p *Prefixes) Expand(term string) (string, error) {
	if term == "" {
		return "", fmt.Errorf("empty term")
	}
	if strings.HasPrefix(term, "<") && strings.HasSuffix(term, ">") {
		return term[1 : len(term)-1], nil
	}
	if isLiteralTerm(term) || strings.Contains(term, "://") {
		return term, nil
	}
	idx := strings.Index(term, ":")
	if idx <= 0 {
		return "", fmt.Errorf("term %q is neither an IRI, a CURIE, nor a literal", term)
	}
	ns, ok := p.byPfx[term[:idx]]
	if !ok {
		return "", fmt.Errorf("unknown prefix %q in term %q", term[:idx], term)
	}
	return ns + term[idx+1:], nil
}

// LocalName strips the longest matching registered namespace from an IRI,
// returning the local identifier. Non-IRI terms come back unchanged.
func (p *Prefixes) LocalName(term string) string {
	best := ""
	for _, pfx := range p.order {
		ns := p.byPfx[pfx]
		if strings.HasPrefix(term, ns) && len(ns) > len(best) {
			best = ns
		}
	}
	if best == "" {
		return term
	}
	return term[len(best):]
}

// Compact renders an IRI as a CURIE when a registered namespace matches,
// preferring the longest namespace. Used by the dump writer.
func (p *Prefixes) Compact(iri string) string {
	bestPfx, bestNS := "", ""
	for _, pfx := range p.order {
		ns := p.byPfx[pfx]
		if strings.HasPrefix(iri, ns) && len(ns) > len(bestNS) {
			bestPfx, bestNS = pfx, ns
		}
	}
	if bestNS == "" {
		return iri
	}
	return bestPfx + ":" + iri[len(bestNS):]
}

// Snapshot returns prefix bindings sorted by prefix, for dump headers.
func (p *Prefixes) Snapshot() [][2]string {
	out := make([][2]string, 0, len(p.order))
	for _, pfx := range p.order {
		out = append(out, [2]string{pfx, p.byPfx[pfx]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// isLiteralTerm reports whether a lexical term is a literal rather than an
// IRI: quoted strings, numbers, and booleans.
func isLiteralTerm(term string) bool {
	if term == "" {
		return false
	}
	if term[0] == '"' {
		return true
	}
	if term == "true" || term == "false" {
		return true
	}
	c := term[0]
	return c >= '0' && c <= '9' || c == '-' && len(term) > 1 && term[1] >= '0' && term[1] <= '9'
}
