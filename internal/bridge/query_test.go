package bridge

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsStructuredQuery(t *testing.T) {
	if !IsStructuredQuery("SELECT ?x WHERE { ?x rdf:type prog:Dog }") {
		t.Error("SELECT query not recognized")
	}
	if !IsStructuredQuery("  select ?x where { ?x rdf:type prog:Dog }") {
		t.Error("lowercase select not recognized")
	}
	if IsStructuredQuery("prog:Dog") {
		t.Error("bare class expression classified as structured query")
	}
}

func TestParseQuery(t *testing.T) {
	p := NewPrefixes("http://p#", "http://r#", "http://d#")

	sq, err := ParseQuery(`SELECT ?x ?n WHERE { ?x rdf:type prog:Dog . ?x veldt:name ?n }`, p)
	if err != nil {
		t.Fatal(err)
	}
	if len(sq.Vars) != 2 || sq.Vars[0] != "x" || sq.Vars[1] != "n" {
		t.Errorf("Vars = %v", sq.Vars)
	}
	if len(sq.Patterns) != 2 {
		t.Fatalf("got %d patterns", len(sq.Patterns))
	}
	if got := sq.Patterns[0].Predicate.Value; got != RDFType {
		t.Errorf("rdf:type expanded to %q", got)
	}
	if got := sq.Patterns[0].Object.Value; got != "http://p#Dog" {
		t.Errorf("prog:Dog expanded to %q", got)
	}
	if !sq.Patterns[1].Object.IsVar || sq.Patterns[1].Object.Value != "n" {
		t.Errorf("object of second pattern = %+v", sq.Patterns[1].Object)
	}
}

func TestParseQueryDotSeparators(t *testing.T) {
	p := NewPrefixes("http://p#", "http://r#", "http://d#")

	// A pattern separator glued to the previous term still separates.
	sq, err := ParseQuery(`SELECT ?n WHERE { ?x rdf:type prog:Dog. ?x veldt:name ?n. }`, p)
	if err != nil {
		t.Fatal(err)
	}
	if len(sq.Patterns) != 2 {
		t.Fatalf("got %d patterns", len(sq.Patterns))
	}
	if got := sq.Patterns[0].Object.Value; got != "http://p#Dog" {
		t.Errorf("first object = %q", got)
	}
	if !sq.Patterns[1].Object.IsVar || sq.Patterns[1].Object.Value != "n" {
		t.Errorf("second object = %+v", sq.Patterns[1].Object)
	}

	// Decimal literals and dotted IRIs keep their dots.
	sq, err = ParseQuery(`SELECT ?x WHERE { ?x <http://example.org/v1.0/age> 3.25 }`, p)
	if err != nil {
		t.Fatal(err)
	}
	if got := sq.Patterns[0].Predicate.Value; got != "http://example.org/v1.0/age" {
		t.Errorf("predicate = %q", got)
	}
	if got := sq.Patterns[0].Object.Value; got != "3.25" {
		t.Errorf("object = %q", got)
	}
}

func TestParseQueryRejectsMalformedInput(t *testing.T) {
	p := NewPrefixes("http://p#", "http://r#", "")
	cases := []struct {
		name  string
		query string
	}{
		{"no SELECT", "?x WHERE { ?x rdf:type prog:Dog }"},
		{"no variables", "SELECT WHERE { ?x rdf:type prog:Dog }"},
		{"no WHERE", "SELECT ?x { ?x rdf:type prog:Dog }"},
		{"missing brace", "SELECT ?x WHERE ?x rdf:type prog:Dog }"},
		{"unterminated", "SELECT ?x WHERE { ?x rdf:type prog:Dog"},
		{"partial pattern", "SELECT ?x WHERE { ?x rdf:type }"},
		{"unprojectable", "SELECT ?y WHERE { ?x rdf:type prog:Dog }"},
		{"unknown prefix", "SELECT ?x WHERE { ?x rdf:type nope:Dog }"},
		{"unterminated string", `SELECT ?x WHERE { ?x veldt:name "rex }`},
		{"trailing input", "SELECT ?x WHERE { ?x rdf:type prog:Dog } extra"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseQuery(tc.query, p); err == nil {
				t.Fatalf("ParseQuery accepted %q", tc.query)
			}
		})
	}
}

func TestRestrictionFromPatterns(t *testing.T) {
	p := NewPrefixes("http://p#", "http://r#", "")
	sq, err := ParseQuery(`SELECT ?x WHERE { ?x rdf:type prog:Dog . ?x veldt:name ?n }`, p)
	if err != nil {
		t.Fatal(err)
	}
	r := restrictionFrom(sq.Patterns)
	if r.subjects != nil {
		t.Error("variable subjects must leave the subject position unconstrained")
	}
	if r.predicates == nil {
		t.Fatal("constant predicates must constrain the predicate position")
	}
	if !r.admits(Triple{"s", RDFType, "o"}) {
		t.Error("restriction rejects a triple the query can touch")
	}
	if r.admits(Triple{"s", "http://other#p", "o"}) {
		t.Error("restriction admits a predicate the query never names")
	}
}

func TestQueryEndToEnd(t *testing.T) {
	br, heap := newTestBridge(t, Options{})
	s := DefaultSettings()

	rs, err := br.Query(`SELECT ?x WHERE { ?x rdf:type prog:Dog }`, s)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{br.RunNamespace() + string(heap.Refs()[0])}
	if diff := cmp.Diff(want, rs.First()); diff != "" {
		t.Errorf("dog members (-want +got):\n%s", diff)
	}

	// Join across two patterns: name of every animal instance.
	rs, err = br.Query(`SELECT ?n WHERE { ?x veldt:name ?n }`, s)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{`"rex"`, `"tom"`}, rs.First()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}

func TestQueryConstantPattern(t *testing.T) {
	br, heap := newTestBridge(t, Options{})

	q := `SELECT ?x WHERE { ?x veldt:name "rex" . ?x rdf:type prog:Dog }`
	rs, err := br.Query(q, DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{br.RunNamespace() + string(heap.Refs()[0])}
	if diff := cmp.Diff(want, rs.First()); diff != "" {
		t.Errorf("rex lookup (-want +got):\n%s", diff)
	}
}

// Guards and virtualization are performance strategies; turning them on
// must never change a result set.
func TestPushdownPreservesResults(t *testing.T) {
	br, _ := newTestBridge(t, Options{})
	queries := []string{
		`SELECT ?x WHERE { ?x rdf:type prog:Dog }`,
		`SELECT ?n WHERE { ?x veldt:name ?n }`,
		`SELECT ?x ?c WHERE { ?x rdf:type ?c }`,
	}

	plain := DefaultSettings()
	guarded := plain
	guarded.Guards = PushdownFlags{Heap: true, StaticTable: true}
	virtual := plain
	virtual.Virtualization = PushdownFlags{Heap: true, StaticTable: true}

	for _, q := range queries {
		base, err := br.Query(q, plain)
		if err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		for name, s := range map[string]Settings{"guards": guarded, "virtualization": virtual} {
			got, err := br.Query(q, s)
			if err != nil {
				t.Fatalf("%s with %s: %v", q, name, err)
			}
			if diff := cmp.Diff(base.Rows, got.Rows); diff != "" {
				t.Errorf("%s: %s changed the result set (-plain +pushdown):\n%s", q, name, diff)
			}
		}
	}
}

func TestQueryResultsAreDeterministic(t *testing.T) {
	br, _ := newTestBridge(t, Options{})
	q := `SELECT ?x ?c WHERE { ?x rdf:type ?c }`
	first, err := br.Query(q, DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := br.Query(q, DefaultSettings())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(first.Rows, again.Rows); diff != "" {
			t.Fatalf("consultation %d differs:\n%s", i, diff)
		}
	}
}

func TestClassMembersOffModeIsDirectScan(t *testing.T) {
	br, heap := newTestBridge(t, Options{})
	s := DefaultSettings()

	members, err := br.ClassMembers("prog:Dog", s)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{br.RunNamespace() + string(heap.Refs()[0])}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Errorf("direct members (-want +got):\n%s", diff)
	}

	// No entailment with the reasoner off: instances typed prog:Dog are
	// not members of the superclass.
	members, err = br.ClassMembers("prog:Animal", s)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 0 {
		t.Errorf("off-mode membership entailed %v", members)
	}
}

func TestClassMembersRDFSClosure(t *testing.T) {
	br, heap := newTestBridge(t, Options{})
	s := DefaultSettings()
	s.ReasonerMode = ReasonerRDFS

	members, err := br.ClassMembers("prog:Animal", s)
	if err != nil {
		t.Fatal(err)
	}
	// Sorted by the reasoner: the cat ref precedes the dog ref. Nothing
	// else may leak in: no class IRIs, no duplicates, no members of other
	// classes.
	want := []string{
		br.RunNamespace() + string(heap.Refs()[1]),
		br.RunNamespace() + string(heap.Refs()[0]),
	}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Errorf("entailed members (-want +got):\n%s", diff)
	}

	// A subclass keeps only its own instances under closure.
	members, err = br.ClassMembers("prog:Dog", s)
	if err != nil {
		t.Fatal(err)
	}
	want = []string{br.RunNamespace() + string(heap.Refs()[0])}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Errorf("dog members (-want +got):\n%s", diff)
	}
}

// failingReasoner stands in for an unreachable reasoning service.
type failingReasoner struct{}

func (failingReasoner) Members(string, []Triple) ([]string, error) {
	return nil, errors.New("service unreachable")
}

func (failingReasoner) IsConsistent([]Triple) (bool, error) {
	return false, errors.New("service unreachable")
}

func TestReasonerOffNeverContactsService(t *testing.T) {
	br, _ := newTestBridge(t, Options{Reasoner: failingReasoner{}})
	s := DefaultSettings()

	consistent, err := br.CheckConsistency(s)
	if err != nil {
		t.Fatalf("CheckConsistency with the reasoner off contacted the service: %v", err)
	}
	if !consistent {
		t.Error("off mode must report vacuous consistency")
	}
	if _, err := br.ClassMembers("prog:Dog", s); err != nil {
		t.Errorf("off-mode membership contacted the service: %v", err)
	}
}

func TestReasonerFailureSurfacesAtCallSite(t *testing.T) {
	br, _ := newTestBridge(t, Options{Reasoner: failingReasoner{}})
	s := DefaultSettings()
	s.ReasonerMode = ReasonerRDFS

	if _, err := br.ClassMembers("prog:Dog", s); err == nil ||
		!strings.Contains(err.Error(), "reasoner failed") {
		t.Errorf("ClassMembers error = %v", err)
	}
	if _, err := br.CheckConsistency(s); err == nil ||
		!strings.Contains(err.Error(), "reasoner failed") {
		t.Errorf("CheckConsistency error = %v", err)
	}
}

func TestConsistencyModes(t *testing.T) {
	ontology := `
@prefix ex: <http://example.org/zoo#> .
ex:Felix rdf:type ex:Cat .
ex:Felix rdf:type ex:Robot .
ex:Cat owl:disjointWith ex:Robot .
`
	br, _ := newTestBridge(t, Options{})
	triples, err := LoadOntology(strings.NewReader(ontology), br.Prefixes())
	if err != nil {
		t.Fatal(err)
	}
	br.ontology = triples

	s := Settings{
		Sources:      SourceFlags{ExternalOntology: true},
		ReasonerMode: ReasonerRDFS,
	}
	// Plain RDFS has no notion of inconsistency.
	consistent, err := br.CheckConsistency(s)
	if err != nil {
		t.Fatal(err)
	}
	if !consistent {
		t.Error("rdfs mode reported an inconsistency")
	}

	s.ReasonerMode = ReasonerFull
	consistent, err = br.CheckConsistency(s)
	if err != nil {
		t.Fatal(err)
	}
	if consistent {
		t.Error("full mode missed the disjointness clash")
	}
}
