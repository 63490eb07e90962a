package bridge

import (
	"fmt"
	"strconv"

	"github.com/google/mangle/ast"
)

// Reasoner is the narrow contract of the external description-logic
// reasoning service: the built graph is handed over, results come back as
// an opaque set. Calls are synchronous and may block for unbounded time;
// callers needing bounded latency must impose it externally.
type Reasoner interface {
	// Members returns the individuals classified under the class IRI,
	// including entailed membership.
	Members(classIRI string, graph []Triple) ([]string, error)
	// IsConsistent reports whether the graph is consistent. A reported
	// inconsistency is a normal false result.
	IsConsistent(graph []Triple) (bool, error)
}

// datalogReasoner is the built-in reasoning service: RDFS entailment
// (subclass transitivity and type propagation) expressed as Mangle rules,
// with disjointness clash detection in full-classification mode.
type datalogReasoner struct {
	full bool
}

func reasonerProgram() string {
	return tripleSchema + fmt.Sprintf(`Decl subclass(X, Y) descr [mode("-", "-")].
Decl member(X, C) descr [mode("-", "-")].
Decl clash(X, C, D) descr [mode("-", "-", "-")].

subclass(X, Y) :- triple(X, %[1]s, Y).
subclass(X, Z) :- subclass(X, Y), subclass(Y, Z).
member(X, C) :- triple(X, %[2]s, C).
member(X, D) :- member(X, C), subclass(C, D).
clash(X, C, D) :- member(X, C), member(X, D), triple(C, %[3]s, D).
`,
		strconv.Quote(RDFSSubClassOf),
		strconv.Quote(RDFType),
		strconv.Quote(OWLDisjointWith))
}

func (r *datalogReasoner) load(graph []Triple) (*datalogStore, error) {
	store, err := newDatalogStore(reasonerProgram())
	if err != nil {
		return nil, err
	}
	if err := store.addTriples(graph); err != nil {
		return nil, err
	}
	if err := store.eval(); err != nil {
		return nil, err
	}
	return store, nil
}

// Members classifies under subclass closure: every X with an rdf:type path
// to the class is included. The member/2 query runs with both positions
// free (the all-free mode returns every derived fact regardless of bound
// arguments), so the class is selected here and individuals deduped.
// Results are sorted.
func (r *datalogReasoner) Members(classIRI string, graph []Triple) ([]string, error) {
	store, err := r.load(graph)
	if err != nil {
		return nil, err
	}
	rows, err := store.queryAll("member", []ast.BaseTerm{
		ast.Variable{Symbol: "X"},
		ast.Variable{Symbol: "C"},
	})
	if err != nil {
		return nil, err
	}
	var members []string
	seen := make(map[string]bool)
	for _, row := range rows {
		if row[1] != classIRI || seen[row[0]] {
			continue
		}
		seen[row[0]] = true
		members = append(members, row[0])
	}
	return members, nil
}

// IsConsistent checks for disjointness clashes in full mode. Plain RDFS
// has no notion of inconsistency, so rdfs mode always reports true.
func (r *datalogReasoner) IsConsistent(graph []Triple) (bool, error) {
	if !r.full {
		return true, nil
	}
	store, err := r.load(graph)
	if err != nil {
		return false, err
	}
	rows, err := store.queryAll("clash", []ast.BaseTerm{
		ast.Variable{Symbol: "X"},
		ast.Variable{Symbol: "C"},
		ast.Variable{Symbol: "D"},
	})
	if err != nil {
		return false, err
	}
	return len(rows) == 0, nil
}
