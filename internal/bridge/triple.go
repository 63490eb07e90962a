package bridge

import "fmt"

// Triple is one fact. Subject and Predicate are full IRIs; Object is either
// a full IRI or a literal in lexical form (strings quoted, numbers and
// booleans bare).
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

// IsLiteral reports whether the object position holds a literal.
func (t Triple) IsLiteral() bool { return isLiteralTerm(t.Object) }

// restriction is a pushed-down filter derived from a query's patterns: the
// sets of constant subjects and predicates the query can possibly touch. A
// nil set means that position is unconstrained. Restricting generation to
// these sets cannot change query results, because the evaluator never joins
// over triples outside them.
type restriction struct {
	subjects   map[string]bool
	predicates map[string]bool
}

// unrestricted matches everything.
func unrestricted() restriction { return restriction{} }

// admits reports whether a triple survives the filter.
func (r restriction) admits(t Triple) bool {
	if r.subjects != nil && !r.subjects[t.Subject] {
		return false
	}
	if r.predicates != nil && !r.predicates[t.Predicate] {
		return false
	}
	return true
}

// isOpen reports whether the filter admits everything.
func (r restriction) isOpen() bool {
	return r.subjects == nil && r.predicates == nil
}

// restrictionFrom derives the filter from query patterns. Any pattern with
// a variable in a position leaves that position unconstrained.
func restrictionFrom(patterns []Pattern) restriction {
	subjects := make(map[string]bool)
	predicates := make(map[string]bool)
	subjectsOpen, predicatesOpen := false, false
	for _, p := range patterns {
		if p.Subject.IsVar {
			subjectsOpen = true
		} else {
			subjects[p.Subject.Value] = true
		}
		if p.Predicate.IsVar {
			predicatesOpen = true
		} else {
			predicates[p.Predicate.Value] = true
		}
	}
	r := restriction{}
	if !subjectsOpen {
		r.subjects = subjects
	}
	if !predicatesOpen {
		r.predicates = predicates
	}
	return r
}
