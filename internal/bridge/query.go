package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/mangle/ast"
	"go.uber.org/zap"
)

// QTerm is one position of a triple pattern: a variable or a constant in
// expanded lexical form.
type QTerm struct {
	IsVar bool
	Value string
}

// Pattern is one basic graph pattern of a structured query.
type Pattern struct {
	Subject   QTerm
	Predicate QTerm
	Object    QTerm
}

// StructuredQuery is a parsed SELECT query: the projected variables and the
// pattern conjunction they are bound by.
type StructuredQuery struct {
	Vars     []string
	Patterns []Pattern
}

// ResultSet is an ordered set of variable bindings. Values are lexical
// terms: IRIs bare, string literals quoted, numbers bare.
type ResultSet struct {
	Vars []string
	Rows [][]string
}

// Column returns the values of one projected variable across all rows.
func (rs *ResultSet) Column(v string) []string {
	idx := -1
	for i, name := range rs.Vars {
		if name == v {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]string, len(rs.Rows))
	for i, row := range rs.Rows {
		out[i] = row[idx]
	}
	return out
}

// First returns the first projected column, which is what the member
// statement lowers.
func (rs *ResultSet) First() []string {
	if len(rs.Vars) == 0 {
		return nil
	}
	return rs.Column(rs.Vars[0])
}

// IsStructuredQuery distinguishes a SELECT query from a bare class
// expression in the member statement's argument.
func IsStructuredQuery(q string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(q)), "SELECT")
}

// ParseQuery parses the SPARQL-style subset the bridge answers:
//
//	SELECT ?x ?y WHERE { ?x rdf:type prog:Cell . ?x veldt:temp ?y }
//
// Constant terms are CURIEs, <iri> forms, quoted strings, or numbers, and
// are expanded through the prefix table.
func ParseQuery(q string, prefixes *Prefixes) (*StructuredQuery, error) {
	tokens, err := lexQuery(q)
	if err != nil {
		return nil, err
	}
	pos := 0
	next := func() (string, bool) {
		if pos >= len(tokens) {
			return "", false
		}
		t := tokens[pos]
		pos++
		return t, true
	}

	tok, ok := next()
	if !ok || !strings.EqualFold(tok, "SELECT") {
		return nil, fmt.Errorf("structured query must start with SELECT")
	}

	var sq StructuredQuery
	for {
		tok, ok = next()
		if !ok {
			return nil, fmt.Errorf("unexpected end of query: missing WHERE")
		}
		if strings.EqualFold(tok, "WHERE") {
			break
		}
		if !strings.HasPrefix(tok, "?") || len(tok) == 1 {
			return nil, fmt.Errorf("expected variable or WHERE, got %q", tok)
		}
		sq.Vars = append(sq.Vars, tok[1:])
	}
	if len(sq.Vars) == 0 {
		return nil, fmt.Errorf("SELECT projects no variables")
	}

	tok, ok = next()
	if !ok || tok != "{" {
		return nil, fmt.Errorf("expected { after WHERE")
	}

	var terms []QTerm
	for {
		tok, ok = next()
		if !ok {
			return nil, fmt.Errorf("unexpected end of query: missing }")
		}
		if tok == "}" {
			break
		}
		if tok == "." {
			continue
		}
		qt, err := parseTerm(tok, prefixes)
		if err != nil {
			return nil, err
		}
		terms = append(terms, qt)
	}
	if pos != len(tokens) {
		return nil, fmt.Errorf("trailing input after }")
	}
	if len(terms) == 0 || len(terms)%3 != 0 {
		return nil, fmt.Errorf("pattern list must be non-empty triples, got %d terms", len(terms))
	}
	for i := 0; i < len(terms); i += 3 {
		sq.Patterns = append(sq.Patterns, Pattern{terms[i], terms[i+1], terms[i+2]})
	}

	bound := make(map[string]bool)
	for _, p := range sq.Patterns {
		for _, t := range []QTerm{p.Subject, p.Predicate, p.Object} {
			if t.IsVar {
				bound[t.Value] = true
			}
		}
	}
	for _, v := range sq.Vars {
		if !bound[v] {
			return nil, fmt.Errorf("projected variable ?%s does not occur in any pattern", v)
		}
	}
	return &sq, nil
}

func parseTerm(tok string, prefixes *Prefixes) (QTerm, error) {
	if strings.HasPrefix(tok, "?") {
		if len(tok) == 1 {
			return QTerm{}, fmt.Errorf("empty variable name")
		}
		return QTerm{IsVar: true, Value: tok[1:]}, nil
	}
	expanded, err := prefixes.Expand(tok)
	if err != nil {
		return QTerm{}, err
	}
	return QTerm{Value: expanded}, nil
}

// lexQuery splits a query into tokens, keeping quoted strings intact and
// treating braces and pattern dots as standalone tokens.
func lexQuery(q string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	inString := false
	for i := 0; i < len(q); i++ {
		c := q[i]
		if inString {
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(q) {
				i++
				cur.WriteByte(q[i])
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			cur.WriteByte(c)
			inString = true
		case c == '{' || c == '}':
			flush()
			tokens = append(tokens, string(c))
		case c == '.' && (cur.Len() == 0 || dotTerminates(q, i)):
			flush()
			tokens = append(tokens, ".")
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if inString {
		return nil, fmt.Errorf("unterminated string literal in query")
	}
	flush()
	return tokens, nil
}

// dotTerminates reports whether the dot at position i ends the current
// token, as in `?x rdf:type prog:Dog. ?x ...`, rather than continuing it,
// as in a decimal number or a dotted IRI.
func dotTerminates(q string, i int) bool {
	if i+1 >= len(q) {
		return true
	}
	switch q[i+1] {
	case ' ', '\t', '\n', '\r', '}':
		return true
	}
	return false
}

// Query executes a structured query over the graph visible under the given
// settings and returns an ordered result set. The query is compiled to a
// Datalog rule over triple/3 and evaluated by the Mangle store; when guard
// or virtualization flags are set, the derived pattern restriction is
// pushed into triple generation, which never changes the result set.
func (b *Bridge) Query(q string, s Settings) (*ResultSet, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sq, err := ParseQuery(q, b.prefixes)
	if err != nil {
		return nil, fmt.Errorf("bad structured query: %w", err)
	}

	triples := b.collect(s, restrictionFrom(sq.Patterns))
	b.log.Debug("executing structured query",
		zap.Int("patterns", len(sq.Patterns)),
		zap.Int("triples", len(triples)))

	store, err := newDatalogStore(tripleSchema + compileQuery(sq))
	if err != nil {
		return nil, err
	}
	if err := store.addTriples(triples); err != nil {
		return nil, err
	}
	if err := store.eval(); err != nil {
		return nil, err
	}

	args := make([]ast.BaseTerm, len(sq.Vars))
	for i, v := range sq.Vars {
		args[i] = ast.Variable{Symbol: mangleVar(v)}
	}
	rows, err := store.queryAll(queryRuleName, args)
	if err != nil {
		return nil, err
	}
	return &ResultSet{Vars: sq.Vars, Rows: rows}, nil
}

const queryRuleName = "q"

// compileQuery renders the query as one Datalog rule plus its declaration.
func compileQuery(sq *StructuredQuery) string {
	var sb strings.Builder

	modes := make([]string, len(sq.Vars))
	head := make([]string, len(sq.Vars))
	for i, v := range sq.Vars {
		modes[i] = `"-"`
		head[i] = mangleVar(v)
	}
	fmt.Fprintf(&sb, "Decl %s(%s) descr [mode(%s)].\n",
		queryRuleName, strings.Join(head, ", "), strings.Join(modes, ", "))

	body := make([]string, len(sq.Patterns))
	for i, p := range sq.Patterns {
		body[i] = fmt.Sprintf("triple(%s, %s, %s)",
			mangleTerm(p.Subject), mangleTerm(p.Predicate), mangleTerm(p.Object))
	}
	fmt.Fprintf(&sb, "%s(%s) :- %s.\n",
		queryRuleName, strings.Join(head, ", "), strings.Join(body, ", "))
	return sb.String()
}

// mangleVar maps a query variable to a Mangle variable symbol, which must
// start with an uppercase letter.
func mangleVar(name string) string {
	var sb strings.Builder
	sb.WriteByte('V')
	for _, r := range name {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func mangleTerm(t QTerm) string {
	if t.IsVar {
		return mangleVar(t.Value)
	}
	return strconv.Quote(t.Value)
}

// ClassMembers returns the members of a class expression under the given
// settings. With the reasoner off it is a direct rdf:type scan of the
// graph; otherwise the graph is handed to the reasoning service, which
// applies subclass closure (and, in full mode, classification).
func (b *Bridge) ClassMembers(classExpr string, s Settings) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	classIRI, err := b.prefixes.Expand(strings.TrimSpace(classExpr))
	if err != nil {
		return nil, fmt.Errorf("bad class expression: %w", err)
	}

	if s.ReasonerMode == ReasonerOff {
		pattern := Pattern{
			Subject:   QTerm{IsVar: true, Value: "x"},
			Predicate: QTerm{Value: RDFType},
			Object:    QTerm{Value: classIRI},
		}
		triples := b.collect(s, restrictionFrom([]Pattern{pattern}))
		var members []string
		seen := make(map[string]bool)
		for _, t := range triples {
			if t.Predicate == RDFType && t.Object == classIRI && !seen[t.Subject] {
				seen[t.Subject] = true
				members = append(members, t.Subject)
			}
		}
		return members, nil
	}

	triples := b.collect(s, unrestricted())
	members, err := b.reasonerFor(s.ReasonerMode).Members(classIRI, triples)
	if err != nil {
		return nil, fmt.Errorf("reasoner failed: %w", err)
	}
	return members, nil
}

// CheckConsistency reports whether the visible graph is consistent. With
// the reasoner off it short-circuits to true without contacting any
// service; a reasoner-reported inconsistency is a normal false result, not
// an error.
func (b *Bridge) CheckConsistency(s Settings) (bool, error) {
	if err := s.Validate(); err != nil {
		return false, err
	}
	if s.ReasonerMode == ReasonerOff {
		return true, nil
	}
	triples := b.collect(s, unrestricted())
	consistent, err := b.reasonerFor(s.ReasonerMode).IsConsistent(triples)
	if err != nil {
		return false, fmt.Errorf("reasoner failed: %w", err)
	}
	return consistent, nil
}

// reasonerFor returns the injected reasoning service when configured, or
// the built-in Datalog reasoner for the given mode.
func (b *Bridge) reasonerFor(mode ReasonerMode) Reasoner {
	if b.reasoner != nil {
		return b.reasoner
	}
	return &datalogReasoner{full: mode == ReasonerFull}
}
