package lang

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeProgram reads a kind-tagged AST document produced by the front-end.
func DecodeProgram(r io.Reader) (*Program, error) {
	var prog Program
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&prog); err != nil {
		return nil, fmt.Errorf("malformed program document: %w", err)
	}
	if len(prog.Classes) == 0 {
		return nil, fmt.Errorf("program %q declares no classes", prog.Name)
	}
	return &prog, nil
}

// LoadProgram decodes a program document from a file.
func LoadProgram(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open program: %w", err)
	}
	defer f.Close()
	return DecodeProgram(f)
}

type rawMethod struct {
	Name    string            `json:"name"`
	Params  []Param           `json:"params"`
	Returns TypeName          `json:"returns"`
	Body    []json.RawMessage `json:"body"`
}

// UnmarshalJSON decodes a method declaration including its tagged body.
func (m *MethodDecl) UnmarshalJSON(data []byte) error {
	var raw rawMethod
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	body, err := decodeStmts(raw.Body)
	if err != nil {
		return fmt.Errorf("method %s: %w", raw.Name, err)
	}
	m.Name = raw.Name
	m.Params = raw.Params
	m.Returns = raw.Returns
	m.Body = body
	return nil
}

type kindProbe struct {
	Kind string `json:"kind"`
}

func decodeStmts(raws []json.RawMessage) ([]Stmt, error) {
	stmts := make([]Stmt, 0, len(raws))
	for i, raw := range raws {
		s, err := decodeStmt(raw)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func decodeStmt(raw json.RawMessage) (Stmt, error) {
	var probe kindProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	switch probe.Kind {
	case "var":
		var n struct {
			Name string          `json:"name"`
			Init json.RawMessage `json:"init"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		init, err := decodeExpr(n.Init)
		if err != nil {
			return nil, err
		}
		return &VarDecl{Name: n.Name, Init: init}, nil
	case "assign":
		var n struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &Assign{Name: n.Name, Value: value}, nil
	case "fieldAssign":
		var n struct {
			Recv  json.RawMessage `json:"recv"`
			Field string          `json:"field"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		recv, err := decodeExpr(n.Recv)
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &FieldAssign{Recv: recv, Field: n.Field, Value: value}, nil
	case "if":
		var n struct {
			Cond json.RawMessage   `json:"cond"`
			Then []json.RawMessage `json:"then"`
			Else []json.RawMessage `json:"else"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		thenBody, err := decodeStmts(n.Then)
		if err != nil {
			return nil, err
		}
		elseBody, err := decodeStmts(n.Else)
		if err != nil {
			return nil, err
		}
		return &If{Cond: cond, Then: thenBody, Else: elseBody}, nil
	case "while":
		var n struct {
			Cond json.RawMessage   `json:"cond"`
			Body []json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(n.Body)
		if err != nil {
			return nil, err
		}
		return &While{Cond: cond, Body: body}, nil
	case "print":
		var n struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &Print{Value: value}, nil
	case "new":
		var n struct {
			Target string            `json:"target"`
			Class  string            `json:"class"`
			Args   []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		args, err := decodeExprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &New{Target: n.Target, Class: n.Class, Args: args}, nil
	case "call":
		var n struct {
			Target string            `json:"target"`
			Recv   json.RawMessage   `json:"recv"`
			Method string            `json:"method"`
			Args   []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		recv, err := decodeExpr(n.Recv)
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &Call{Target: n.Target, Recv: recv, Method: n.Method, Args: args}, nil
	case "return":
		var n struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		if len(n.Value) == 0 {
			return &Return{}, nil
		}
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &Return{Value: value}, nil
	case "member":
		var n struct {
			Target string `json:"target"`
			Query  string `json:"query"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &Member{Target: n.Target, Query: n.Query}, nil
	case "simBind":
		var n struct {
			Name   string          `json:"name"`
			Object json.RawMessage `json:"object"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		obj, err := decodeExpr(n.Object)
		if err != nil {
			return nil, err
		}
		return &SimBind{Name: n.Name, Object: obj}, nil
	case "":
		return nil, fmt.Errorf("statement missing kind tag")
	default:
		return nil, fmt.Errorf("unknown statement kind %q", probe.Kind)
	}
}

func decodeExprs(raws []json.RawMessage) ([]Expr, error) {
	exprs := make([]Expr, 0, len(raws))
	for i, raw := range raws {
		e, err := decodeExpr(raw)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func decodeExpr(raw json.RawMessage) (Expr, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing expression")
	}
	var probe kindProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	switch probe.Kind {
	case "int":
		var n struct {
			Value int64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &IntLit{Value: n.Value}, nil
	case "float":
		var n struct {
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &FloatLit{Value: n.Value}, nil
	case "bool":
		var n struct {
			Value bool `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &BoolLit{Value: n.Value}, nil
	case "string":
		var n struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &StrLit{Value: n.Value}, nil
	case "null":
		return &NullLit{}, nil
	case "varRef":
		var n struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &VarRef{Name: n.Name}, nil
	case "fieldSel":
		var n struct {
			Recv  json.RawMessage `json:"recv"`
			Field string          `json:"field"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		recv, err := decodeExpr(n.Recv)
		if err != nil {
			return nil, err
		}
		return &FieldSel{Recv: recv, Field: n.Field}, nil
	case "binary":
		var n struct {
			Op string          `json:"op"`
			L  json.RawMessage `json:"l"`
			R  json.RawMessage `json:"r"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		l, err := decodeExpr(n.L)
		if err != nil {
			return nil, err
		}
		r, err := decodeExpr(n.R)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: n.Op, L: l, R: r}, nil
	case "unary":
		var n struct {
			Op string          `json:"op"`
			X  json.RawMessage `json:"x"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		x, err := decodeExpr(n.X)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: n.Op, X: x}, nil
	case "":
		return nil, fmt.Errorf("expression missing kind tag")
	default:
		return nil, fmt.Errorf("unknown expression kind %q", probe.Kind)
	}
}
