package bridge

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"veldt/internal/program"
	"veldt/internal/runtime"
)

// Bridge materializes and queries the semantic view of a run. It holds
// read-only references to the heap and static table; it never mutates
// either. One Bridge lives for one run and carries that run's namespaces.
type Bridge struct {
	heap     *runtime.Heap
	table    *program.Table
	prefixes *Prefixes
	ontology []Triple
	sim      *runtime.SimMemory
	reasoner Reasoner
	log      *zap.Logger

	programNS string
	runNS     string
}

// Options configures a Bridge at construction.
type Options struct {
	// DomainNamespace is the caller-supplied domain prefix, bound as
	// "domain:".
	DomainNamespace string
	// ExtraPrefixes are additional prefix registrations.
	ExtraPrefixes map[string]string
	// Ontology is the parsed external ontology document, passed through
	// unmodified when the externalOntology source is enabled.
	Ontology []Triple
	// Reasoner overrides the built-in Datalog reasoner, e.g. with a remote
	// description-logic service client.
	Reasoner Reasoner
	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// New builds the bridge for one run.
func New(heap *runtime.Heap, table *program.Table, opts Options) (*Bridge, error) {
	if heap == nil {
		return nil, fmt.Errorf("bridge requires a heap")
	}
	if table == nil || len(table.ClassNames) == 0 {
		return nil, fmt.Errorf("bridge requires a non-empty static table")
	}
	programNS := NewProgramNamespace(table.ProgramName)
	runNS := NewRunNamespace(time.Now())
	prefixes := NewPrefixes(programNS, runNS, opts.DomainNamespace)
	for pfx, ns := range opts.ExtraPrefixes {
		prefixes.Register(pfx, ns)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		heap:      heap,
		table:     table,
		prefixes:  prefixes,
		ontology:  opts.Ontology,
		reasoner:  opts.Reasoner,
		log:       logger,
		programNS: programNS,
		runNS:     runNS,
	}, nil
}

// AttachSim installs the simulation memory so registered simulation names
// are lifted alongside the heap source.
func (b *Bridge) AttachSim(sim *runtime.SimMemory) { b.sim = sim }

// Prefixes exposes the prefix table for query parsing and lowering.
func (b *Bridge) Prefixes() *Prefixes { return b.prefixes }

// RunNamespace returns the per-execution namespace.
func (b *Bridge) RunNamespace() string { return b.runNS }

// ProgramNamespace returns the declared-entity namespace.
func (b *Bridge) ProgramNamespace() string { return b.programNS }

// Graph is a fully materialized triple set in deterministic order: heap in
// creation order, static table in declaration order, then the fixed core
// vocabulary, then the ontology in document order.
type Graph struct {
	Triples []Triple
}

// BuildGraph materializes the graph for the enabled sources. The result is
// a pure function of (heap, static table, ontology, settings) at the
// instant of the call; nothing is retained afterwards.
func (b *Bridge) BuildGraph(s Settings) (*Graph, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Graph{Triples: b.collect(s, unrestricted())}, nil
}

// collect gathers triples per enabled source in fixed order. r is the
// pushed-down filter for sources whose guard or virtualization flag is on;
// sources without pushdown always receive the open filter.
func (b *Bridge) collect(s Settings, r restriction) []Triple {
	var out []Triple
	if s.Sources.Heap {
		hr := unrestricted()
		if s.Guards.Heap || s.Virtualization.Heap {
			hr = r
		}
		out = append(out, b.heapTriples(hr)...)
		out = append(out, b.simTriples(hr)...)
	}
	if s.Sources.StaticTable {
		tr := unrestricted()
		if s.Guards.StaticTable || s.Virtualization.StaticTable {
			tr = r
		}
		out = append(out, b.tableTriples(tr)...)
	}
	if s.Sources.CoreVocabulary {
		out = append(out, coreVocabulary()...)
	}
	if s.Sources.ExternalOntology {
		out = append(out, b.ontology...)
	}
	return out
}

// Dump serializes the currently materializable graph to a caller-supplied
// sink in triple form, prefix header first. Pure read.
func (b *Bridge) Dump(w io.Writer, s Settings) error {
	g, err := b.BuildGraph(s)
	if err != nil {
		return err
	}
	for _, binding := range b.prefixes.Snapshot() {
		if _, err := fmt.Fprintf(w, "@prefix %s: <%s> .\n", binding[0], binding[1]); err != nil {
			return err
		}
	}
	for _, t := range g.Triples {
		obj := t.Object
		if !t.IsLiteral() {
			obj = "<" + obj + ">"
		}
		if _, err := fmt.Fprintf(w, "<%s> <%s> %s .\n", t.Subject, t.Predicate, obj); err != nil {
			return err
		}
	}
	return nil
}
