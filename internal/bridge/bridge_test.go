package bridge

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"veldt/internal/lang"
	"veldt/internal/program"
	"veldt/internal/runtime"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestBridge builds a bridge over a small zoo program with two live
// objects: a Dog named rex and a Cat.
func newTestBridge(t *testing.T, opts Options) (*Bridge, *runtime.Heap) {
	t.Helper()
	prog := &lang.Program{
		Name: "zoo",
		Classes: []*lang.ClassDecl{
			{
				Name:   "Animal",
				Models: "domain:Animal",
				Fields: []*lang.FieldDecl{{Name: "name", Type: lang.TypeString}},
			},
			{Name: "Dog", Super: "Animal", Models: "domain:Dog"},
			{Name: "Cat", Super: "Animal"},
		},
	}
	table, err := program.Build(prog)
	if err != nil {
		t.Fatal(err)
	}
	heap := runtime.NewHeap()
	dog := heap.Allocate("Dog")
	df, _ := heap.Fields(dog)
	df.Set("name", runtime.StrVal("rex"))
	cat := heap.Allocate("Cat")
	cf, _ := heap.Fields(cat)
	cf.Set("name", runtime.StrVal("tom"))

	if opts.DomainNamespace == "" {
		opts.DomainNamespace = "http://example.org/zoo#"
	}
	br, err := New(heap, table, opts)
	if err != nil {
		t.Fatal(err)
	}
	return br, heap
}

func TestNewRequiresState(t *testing.T) {
	table, err := program.Build(&lang.Program{
		Name:    "p",
		Classes: []*lang.ClassDecl{{Name: "A"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(nil, table, Options{}); err == nil {
		t.Error("New accepted a nil heap")
	}
	if _, err := New(runtime.NewHeap(), nil, Options{}); err == nil {
		t.Error("New accepted a nil static table")
	}
}

func TestBuildGraphSourceToggles(t *testing.T) {
	br, _ := newTestBridge(t, Options{})

	count := func(s Settings) int {
		g, err := br.BuildGraph(s)
		if err != nil {
			t.Fatal(err)
		}
		return len(g.Triples)
	}

	all := count(DefaultSettings())
	noHeap := count(Settings{
		Sources:      SourceFlags{StaticTable: true, CoreVocabulary: true},
		ReasonerMode: ReasonerOff,
	})
	coreOnly := count(Settings{
		Sources:      SourceFlags{CoreVocabulary: true},
		ReasonerMode: ReasonerOff,
	})

	if noHeap >= all {
		t.Errorf("disabling the heap source kept the count at %d (was %d)", noHeap, all)
	}
	if coreOnly != len(coreVocabulary()) {
		t.Errorf("core-only graph has %d triples, want %d", coreOnly, len(coreVocabulary()))
	}
	if n := count(Settings{ReasonerMode: ReasonerOff}); n != 0 {
		t.Errorf("all sources disabled still produced %d triples", n)
	}
}

func TestBuildGraphIsPure(t *testing.T) {
	br, heap := newTestBridge(t, Options{})
	s := DefaultSettings()

	before := heap.Len()
	g1, err := br.BuildGraph(s)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := br.BuildGraph(s)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(g1.Triples, g2.Triples); diff != "" {
		t.Errorf("two consultations of an unchanged graph differ (-first +second):\n%s", diff)
	}
	if heap.Len() != before {
		t.Errorf("BuildGraph mutated the heap: %d -> %d objects", before, heap.Len())
	}
}

func TestHeapTriplesCarryModelTemplates(t *testing.T) {
	br, heap := newTestBridge(t, Options{})
	g, err := br.BuildGraph(DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}

	dog := br.RunNamespace() + string(heap.Refs()[0])
	var gotProgType, gotDomainType, gotName bool
	for _, tr := range g.Triples {
		if tr.Subject != dog {
			continue
		}
		switch {
		case tr.Predicate == RDFType && tr.Object == br.ProgramNamespace()+"Dog":
			gotProgType = true
		case tr.Predicate == RDFType && tr.Object == "http://example.org/zoo#Dog":
			gotDomainType = true
		case tr.Predicate == CoreNamespace+"name" && tr.Object == `"rex"`:
			gotName = true
		}
	}
	if !gotProgType {
		t.Error("dog instance has no program-class rdf:type triple")
	}
	if !gotDomainType {
		t.Error("dog instance has no domain model rdf:type triple")
	}
	if !gotName {
		t.Error("dog instance has no lifted name field triple")
	}
}

func TestSimMemoryLifting(t *testing.T) {
	br, heap := newTestBridge(t, Options{})
	sim := runtime.NewSimMemory()
	sim.Bind("pack-leader", heap.Refs()[0])
	br.AttachSim(sim)

	g, err := br.BuildGraph(DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	want := Triple{
		Subject:   br.RunNamespace() + string(heap.Refs()[0]),
		Predicate: CoreSimName,
		Object:    `"pack-leader"`,
	}
	found := false
	for _, tr := range g.Triples {
		if tr == want {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("simulation binding not lifted; want %+v", want)
	}
}

func TestStaticTableTriples(t *testing.T) {
	br, _ := newTestBridge(t, Options{})
	g, err := br.BuildGraph(Settings{
		Sources:      SourceFlags{StaticTable: true},
		ReasonerMode: ReasonerOff,
	})
	if err != nil {
		t.Fatal(err)
	}

	dogIRI := br.ProgramNamespace() + "Dog"
	animalIRI := br.ProgramNamespace() + "Animal"
	var gotClass, gotSuper, gotModels, gotField bool
	for _, tr := range g.Triples {
		switch {
		case tr.Subject == dogIRI && tr.Predicate == RDFType && tr.Object == CoreClass:
			gotClass = true
		case tr.Subject == dogIRI && tr.Predicate == RDFSSubClassOf && tr.Object == animalIRI:
			gotSuper = true
		case tr.Subject == animalIRI && tr.Predicate == RDFSSubClassOf &&
			tr.Object == "http://example.org/zoo#Animal":
			gotModels = true
		case tr.Subject == animalIRI && tr.Predicate == CoreHasField:
			gotField = true
		}
	}
	if !gotClass || !gotSuper || !gotModels || !gotField {
		t.Errorf("static table lifting incomplete: class=%t super=%t models=%t field=%t",
			gotClass, gotSuper, gotModels, gotField)
	}
}

func TestDumpFormat(t *testing.T) {
	br, _ := newTestBridge(t, Options{})
	var buf bytes.Buffer
	if err := br.Dump(&buf, DefaultSettings()); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if !strings.HasPrefix(lines[0], "@prefix ") {
		t.Fatalf("dump does not start with a prefix header: %q", lines[0])
	}
	sawTriple := false
	for _, line := range lines {
		if strings.HasPrefix(line, "@prefix ") {
			continue
		}
		sawTriple = true
		if !strings.HasSuffix(line, " .") {
			t.Fatalf("triple line not terminated: %q", line)
		}
		if !strings.HasPrefix(line, "<") {
			t.Fatalf("subject not IRI-wrapped: %q", line)
		}
	}
	if !sawTriple {
		t.Fatal("dump contains no triples")
	}
	// Literal objects stay unwrapped.
	if !strings.Contains(buf.String(), `"rex" .`) {
		t.Error(`dump wrapped the literal "rex" in angle brackets`)
	}
}
