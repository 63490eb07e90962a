// Package lang defines the abstract syntax tree of the Veldt language.
// The source-text front-end is a separate tool; programs reach the runtime
// as already-parsed, kind-tagged AST documents (see decode.go).
package lang

import (
	"fmt"
	"strings"
)

// TypeName names a declared type: one of the primitive types ("int",
// "float", "bool", "string") or a class name.
type TypeName string

// Primitive type names.
const (
	TypeInt    TypeName = "int"
	TypeFloat  TypeName = "float"
	TypeBool   TypeName = "bool"
	TypeString TypeName = "string"
)

// IsPrimitive reports whether t is one of the built-in value types.
func (t TypeName) IsPrimitive() bool {
	switch t {
	case TypeInt, TypeFloat, TypeBool, TypeString:
		return true
	}
	return false
}

// Program is a complete Veldt compilation unit.
type Program struct {
	Name    string       `json:"name"`
	Classes []*ClassDecl `json:"classes"`
}

// ClassDecl declares a class: single inheritance, ordered fields, methods,
// and an optional semantic model template naming the domain concept the
// class lifts to.
type ClassDecl struct {
	Name    string        `json:"name"`
	Super   string        `json:"super,omitempty"`
	Models  string        `json:"models,omitempty"`
	Fields  []*FieldDecl  `json:"fields,omitempty"`
	Methods []*MethodDecl `json:"methods,omitempty"`
}

// FieldDecl declares one instance field. Models, when present, names the
// domain predicate the field lifts to in addition to its language predicate.
type FieldDecl struct {
	Name   string   `json:"name"`
	Type   TypeName `json:"type"`
	Models string   `json:"models,omitempty"`
}

// MethodDecl declares a method body. A method named "init" is the class
// constructor and runs right after allocation.
type MethodDecl struct {
	Name    string   `json:"name"`
	Params  []Param  `json:"params,omitempty"`
	Returns TypeName `json:"returns,omitempty"`
	Body    []Stmt   `json:"-"`
}

// Param is one formal method parameter.
type Param struct {
	Name string   `json:"name"`
	Type TypeName `json:"type"`
}

// InitMethodName is the reserved constructor method name.
const InitMethodName = "init"

// Stmt is the closed set of statement variants. Statements are rewritten,
// not recursively interpreted: the interpreter consumes one statement of a
// frame's list per step and pushes back a residual.
type Stmt interface {
	stmtNode()
	String() string
}

// VarDecl introduces a local variable in the current frame.
type VarDecl struct {
	Name string
	Init Expr
}

// Assign overwrites an existing local variable.
type Assign struct {
	Name  string
	Value Expr
}

// FieldAssign stores into a field of the object Recv evaluates to.
type FieldAssign struct {
	Recv  Expr
	Field string
	Value Expr
}

// If rewrites into the taken branch followed by the residual statements.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// While rewrites into body + itself when the condition holds.
type While struct {
	Cond Expr
	Body []Stmt
}

// Print writes the value to the interpreter's output sink.
type Print struct {
	Value Expr
}

// New allocates an object of Class, binds it to Target in the current
// frame, and spawns a constructor frame when the class declares init.
type New struct {
	Target string
	Class  string
	Args   []Expr
}

// Call invokes a method on the object Recv evaluates to. Target, when
// non-empty, names the caller local that receives the return value.
type Call struct {
	Target string
	Recv   Expr
	Method string
	Args   []Expr
}

// Return ends the current method frame; Value may be nil for void returns.
type Return struct {
	Value Expr
}

// Member is the structural query statement: it runs a class expression or
// structured query against the semantic bridge, lowers the result set into
// a heap-resident list, and rewrites into an assignment of the list head.
type Member struct {
	Target string
	Query  string
}

// SimBind registers the object Object evaluates to in the simulation
// memory under Name.
type SimBind struct {
	Name   string
	Object Expr
}

func (*VarDecl) stmtNode()     {}
func (*Assign) stmtNode()      {}
func (*FieldAssign) stmtNode() {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*Print) stmtNode()       {}
func (*New) stmtNode()         {}
func (*Call) stmtNode()        {}
func (*Return) stmtNode()      {}
func (*Member) stmtNode()      {}
func (*SimBind) stmtNode()     {}

func (s *VarDecl) String() string { return fmt.Sprintf("var %s := %s", s.Name, s.Init) }
func (s *Assign) String() string  { return fmt.Sprintf("%s := %s", s.Name, s.Value) }
func (s *FieldAssign) String() string {
	return fmt.Sprintf("%s.%s := %s", s.Recv, s.Field, s.Value)
}
func (s *If) String() string    { return fmt.Sprintf("if %s then ... else ...", s.Cond) }
func (s *While) String() string { return fmt.Sprintf("while %s do ...", s.Cond) }
func (s *Print) String() string { return fmt.Sprintf("print %s", s.Value) }
func (s *New) String() string {
	return fmt.Sprintf("%s := new %s(%s)", s.Target, s.Class, exprList(s.Args))
}
func (s *Call) String() string {
	if s.Target == "" {
		return fmt.Sprintf("%s.%s(%s)", s.Recv, s.Method, exprList(s.Args))
	}
	return fmt.Sprintf("%s := %s.%s(%s)", s.Target, s.Recv, s.Method, exprList(s.Args))
}
func (s *Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", s.Value)
}
func (s *Member) String() string  { return fmt.Sprintf("%s := member(%q)", s.Target, s.Query) }
func (s *SimBind) String() string { return fmt.Sprintf("simulate %s as %q", s.Object, s.Name) }

// Expr is the closed set of expression variants. Expression evaluation is
// atomic with respect to stepping: a whole expression is reduced inside one
// interpreter step.
type Expr interface {
	exprNode()
	String() string
}

// IntLit is an integer literal.
type IntLit struct{ Value int64 }

// FloatLit is a floating-point literal.
type FloatLit struct{ Value float64 }

// BoolLit is a boolean literal.
type BoolLit struct{ Value bool }

// StrLit is a string literal.
type StrLit struct{ Value string }

// NullLit is the null reference literal.
type NullLit struct{}

// VarRef reads a local variable; "this" names the owning object.
type VarRef struct{ Name string }

// SelfName is the receiver variable available inside method bodies.
const SelfName = "this"

// FieldSel reads a field of the object Recv evaluates to.
type FieldSel struct {
	Recv  Expr
	Field string
}

// Binary applies Op to the two operands.
type Binary struct {
	Op string // + - * / % == != < <= > >= && ||
	L  Expr
	R  Expr
}

// Unary applies Op ("-" or "!") to X.
type Unary struct {
	Op string
	X  Expr
}

func (*IntLit) exprNode()   {}
func (*FloatLit) exprNode() {}
func (*BoolLit) exprNode()  {}
func (*StrLit) exprNode()   {}
func (*NullLit) exprNode()  {}
func (*VarRef) exprNode()   {}
func (*FieldSel) exprNode() {}
func (*Binary) exprNode()   {}
func (*Unary) exprNode()    {}

func (e *IntLit) String() string   { return fmt.Sprintf("%d", e.Value) }
func (e *FloatLit) String() string { return fmt.Sprintf("%g", e.Value) }
func (e *BoolLit) String() string  { return fmt.Sprintf("%t", e.Value) }
func (e *StrLit) String() string   { return fmt.Sprintf("%q", e.Value) }
func (e *NullLit) String() string  { return "null" }
func (e *VarRef) String() string   { return e.Name }
func (e *FieldSel) String() string { return fmt.Sprintf("%s.%s", e.Recv, e.Field) }
func (e *Binary) String() string   { return fmt.Sprintf("(%s %s %s)", e.L, e.Op, e.R) }
func (e *Unary) String() string    { return fmt.Sprintf("%s%s", e.Op, e.X) }

func exprList(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
