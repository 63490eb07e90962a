package bridge

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"github.com/google/mangle/unionfind"
)

// tripleSchema declares the single base predicate every graph consultation
// populates.
const tripleSchema = `Decl triple(S, P, O) descr [mode("-", "-", "-")].
`

// datalogStore wraps one Google Mangle evaluation: a triple/3 fact store
// plus whatever rules the program text adds. A store lives for exactly one
// bridge consultation; the graph-purity invariant holds because nothing
// survives the call.
type datalogStore struct {
	store       factstore.FactStoreWithRemove
	programInfo *analysis.ProgramInfo
	qctx        *mengine.QueryContext
	predIndex   map[string]ast.PredicateSym
}

// newDatalogStore parses and analyzes the program text (declarations plus
// rules) and prepares an empty fact store.
func newDatalogStore(programText string) (*datalogStore, error) {
	unit, err := parse.Unit(bytes.NewReader([]byte(programText)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse datalog program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze datalog program: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()

	predIndex := make(map[string]ast.PredicateSym, len(programInfo.Decls))
	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		predIndex[sym.Symbol] = sym
		predToDecl[sym] = decl
	}
	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}

	return &datalogStore{
		store:       store,
		programInfo: programInfo,
		qctx: &mengine.QueryContext{
			PredToRules: predToRules,
			PredToDecl:  predToDecl,
			Store:       store,
		},
		predIndex: predIndex,
	}, nil
}

// addTriples loads graph triples as triple/3 facts, preserving nothing
// beyond the store itself.
func (d *datalogStore) addTriples(triples []Triple) error {
	sym, ok := d.predIndex["triple"]
	if !ok {
		return fmt.Errorf("program does not declare triple/3")
	}
	for _, t := range triples {
		d.store.Add(ast.Atom{
			Predicate: sym,
			Args: []ast.BaseTerm{
				ast.String(t.Subject),
				ast.String(t.Predicate),
				ast.String(t.Object),
			},
		})
	}
	return nil
}

// eval runs the loaded rules to fixpoint over the fact store.
func (d *datalogStore) eval() error {
	_, err := mengine.EvalProgramWithStats(d.programInfo, d.store)
	if err != nil {
		return fmt.Errorf("datalog evaluation failed: %w", err)
	}
	return nil
}

// queryAll evaluates the named predicate with the given argument terms
// (variables or string constants) and returns one row per derived fact,
// each row holding the lexical value of every argument position. Rows come
// back sorted so repeated consultations of an unchanged graph yield the
// same ordered result set.
func (d *datalogStore) queryAll(pred string, args []ast.BaseTerm) ([][]string, error) {
	sym, ok := d.predIndex[pred]
	if !ok {
		return nil, fmt.Errorf("predicate %s is not declared", pred)
	}
	if len(args) != sym.Arity {
		return nil, fmt.Errorf("predicate %s expects %d args, got %d", pred, sym.Arity, len(args))
	}
	decl, ok := d.qctx.PredToDecl[sym]
	if !ok || len(decl.Modes()) == 0 {
		return nil, fmt.Errorf("predicate %s has no modes declared", pred)
	}
	mode := decl.Modes()[0]

	var rows [][]string
	err := d.qctx.EvalQuery(ast.Atom{Predicate: sym, Args: args}, mode, unionfind.New(), func(fact ast.Atom) error {
		row := make([]string, len(fact.Args))
		for i, arg := range fact.Args {
			row[i] = baseTermString(arg)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", pred, err)
	}

	sort.Slice(rows, func(i, j int) bool {
		for k := range rows[i] {
			if rows[i][k] != rows[j][k] {
				return rows[i][k] < rows[j][k]
			}
		}
		return false
	})
	return dedupeRows(rows), nil
}

func dedupeRows(rows [][]string) [][]string {
	out := rows[:0]
	var prev []string
	for _, row := range rows {
		if prev != nil && equalRow(prev, row) {
			continue
		}
		out = append(out, row)
		prev = row
	}
	return out
}

func equalRow(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func baseTermString(term ast.BaseTerm) string {
	c, ok := term.(ast.Constant)
	if !ok {
		return term.String()
	}
	switch c.Type {
	case ast.StringType, ast.NameType, ast.BytesType:
		return c.Symbol
	case ast.NumberType:
		return strconv.FormatInt(c.NumValue, 10)
	case ast.Float64Type:
		return strconv.FormatFloat(math.Float64frombits(uint64(c.NumValue)), 'g', -1, 64)
	default:
		return c.String()
	}
}
