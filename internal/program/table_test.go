package program

import (
	"testing"

	"veldt/internal/lang"
)

func testProgram() *lang.Program {
	return &lang.Program{
		Name: "zoo",
		Classes: []*lang.ClassDecl{
			{
				Name:   "Animal",
				Models: "domain:Animal",
				Fields: []*lang.FieldDecl{
					{Name: "name", Type: lang.TypeString},
					{Name: "age", Type: lang.TypeInt},
				},
				Methods: []*lang.MethodDecl{
					{Name: "speak"},
				},
			},
			{
				Name:  "Dog",
				Super: "Animal",
				Fields: []*lang.FieldDecl{
					{Name: "breed", Type: lang.TypeString, Models: "domain:hasBreed"},
				},
				Methods: []*lang.MethodDecl{
					{Name: "speak"},
					{Name: "fetch"},
				},
			},
			{
				Name:  "Cat",
				Super: "Animal",
			},
		},
	}
}

func TestBuildRejectsStructuralDefects(t *testing.T) {
	cases := []struct {
		name string
		prog *lang.Program
	}{
		{"empty", &lang.Program{Name: "p"}},
		{"duplicate class", &lang.Program{Name: "p", Classes: []*lang.ClassDecl{
			{Name: "A"}, {Name: "A"},
		}}},
		{"duplicate field", &lang.Program{Name: "p", Classes: []*lang.ClassDecl{
			{Name: "A", Fields: []*lang.FieldDecl{
				{Name: "x", Type: lang.TypeInt},
				{Name: "x", Type: lang.TypeInt},
			}},
		}}},
		{"unknown superclass", &lang.Program{Name: "p", Classes: []*lang.ClassDecl{
			{Name: "A", Super: "Ghost"},
		}}},
		{"inheritance cycle", &lang.Program{Name: "p", Classes: []*lang.ClassDecl{
			{Name: "A", Super: "B"},
			{Name: "B", Super: "A"},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Build(tc.prog); err == nil {
				t.Fatalf("Build accepted a program with %s", tc.name)
			}
		})
	}
}

func TestFieldsOfLayoutOrder(t *testing.T) {
	table, err := Build(testProgram())
	if err != nil {
		t.Fatal(err)
	}

	fields := table.FieldsOf("Dog")
	got := make([]string, len(fields))
	for i, f := range fields {
		got[i] = f.Name
	}
	want := []string{"name", "age", "breed"}
	if len(got) != len(want) {
		t.Fatalf("FieldsOf(Dog) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FieldsOf(Dog) = %v, want inherited fields first: %v", got, want)
		}
	}
}

func TestLookupMethodWalksHierarchy(t *testing.T) {
	table, err := Build(testProgram())
	if err != nil {
		t.Fatal(err)
	}

	// Override resolves on the concrete class.
	if _, def, ok := table.LookupMethod("Dog", "speak"); !ok || def != "Dog" {
		t.Errorf("LookupMethod(Dog, speak) defined on %q, want Dog", def)
	}
	// Inherited method resolves on the ancestor.
	if _, def, ok := table.LookupMethod("Cat", "speak"); !ok || def != "Animal" {
		t.Errorf("LookupMethod(Cat, speak) defined on %q, want Animal", def)
	}
	if _, _, ok := table.LookupMethod("Cat", "fetch"); ok {
		t.Error("LookupMethod(Cat, fetch) resolved a sibling's method")
	}
}

func TestSubclassesAndAncestry(t *testing.T) {
	table, err := Build(testProgram())
	if err != nil {
		t.Fatal(err)
	}

	subs := table.Subclasses("Animal")
	if len(subs) != 2 || subs[0] != "Cat" || subs[1] != "Dog" {
		t.Errorf("Subclasses(Animal) = %v, want [Cat Dog]", subs)
	}
	if !table.IsSubclassOf("Dog", "Animal") {
		t.Error("IsSubclassOf(Dog, Animal) = false")
	}
	if !table.IsSubclassOf("Dog", "Dog") {
		t.Error("IsSubclassOf(Dog, Dog) = false")
	}
	if table.IsSubclassOf("Animal", "Dog") {
		t.Error("IsSubclassOf(Animal, Dog) = true")
	}
}

func TestModelTemplates(t *testing.T) {
	table, err := Build(testProgram())
	if err != nil {
		t.Fatal(err)
	}

	if got := table.ModelsOf("Animal"); got != "domain:Animal" {
		t.Errorf("ModelsOf(Animal) = %q", got)
	}
	if got := table.ModelsOf("Dog"); got != "" {
		t.Errorf("ModelsOf(Dog) = %q, want no template of its own", got)
	}
	// Field templates resolve through the hierarchy.
	if got := table.FieldModelsOf("Dog", "breed"); got != "domain:hasBreed" {
		t.Errorf("FieldModelsOf(Dog, breed) = %q", got)
	}
	if got := table.FieldModelsOf("Cat", "name"); got != "" {
		t.Errorf("FieldModelsOf(Cat, name) = %q", got)
	}
}
