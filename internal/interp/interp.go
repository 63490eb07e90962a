// Package interp is the small-step, statement-rewriting interpreter. Each
// step pops the top frame, evaluates its active statement, and either
// performs a side effect, rewrites the statement into a residual, or
// spawns a callee frame beneath a continuation. Composite statements are
// never interpreted by recursive descent; they rewrite themselves, which
// is what makes exact single-stepping and mid-execution introspection
// possible.
package interp

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"veldt/internal/bridge"
	"veldt/internal/lang"
	"veldt/internal/lower"
	"veldt/internal/program"
	"veldt/internal/runtime"
)

// Interpreter drives one run. Settings may be changed between steps; the
// bridge reads them on its next call.
type Interpreter struct {
	Table    *program.Table
	Heap     *runtime.Heap
	Stack    *runtime.Stack
	Sim      *runtime.SimMemory
	Bridge   *bridge.Bridge
	Settings bridge.Settings

	Out io.Writer
	log *zap.Logger

	stepCount int
}

// Options configures construction.
type Options struct {
	Out      io.Writer
	Logger   *zap.Logger
	Settings *bridge.Settings
}

// New wires an interpreter over an already-built static table, heap, and
// bridge. It refuses an empty or missing static table: structural errors
// are fatal before any step runs.
func New(table *program.Table, heap *runtime.Heap, br *bridge.Bridge, opts Options) (*Interpreter, error) {
	if table == nil || len(table.ClassNames) == 0 {
		return nil, fmt.Errorf("refusing to start: empty static table")
	}
	if heap == nil {
		return nil, fmt.Errorf("refusing to start: no heap")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := bridge.DefaultSettings()
	if opts.Settings != nil {
		settings = *opts.Settings
	}
	return &Interpreter{
		Table:    table,
		Heap:     heap,
		Stack:    runtime.NewStack(),
		Sim:      runtime.NewSimMemory(),
		Bridge:   br,
		Settings: settings,
		Out:      out,
		log:      logger,
	}, nil
}

// Start allocates the entry object and pushes the entry method's body as
// the first frame. The entry method must take no parameters.
func (in *Interpreter) Start(class, method string) error {
	if !in.Table.HasClass(class) {
		return fmt.Errorf("%w: entry class %s", runtime.ErrUnknownClass, class)
	}
	m, _, ok := in.Table.LookupMethod(class, method)
	if !ok {
		return fmt.Errorf("%w: entry method %s.%s", runtime.ErrUnknownMethod, class, method)
	}
	if len(m.Params) != 0 {
		return fmt.Errorf("%w: entry method %s.%s takes parameters", runtime.ErrArityMismatch, class, method)
	}
	ref := in.allocate(class)
	f := in.Stack.NewFrame(ref, m.Body)
	f.Locals.Declare(lang.SelfName, runtime.RefVal(ref))
	in.Stack.Push(f)
	return nil
}

// Steps returns the number of completed steps.
func (in *Interpreter) Steps() int { return in.stepCount }

// outcomeKind tags the next-action value a statement evaluation returns to
// the driver loop.
type outcomeKind int

const (
	outDone    outcomeKind = iota // effect performed, continue with the rest
	outRewrite                    // replace the statement with a residual
	outSpawn                      // push a callee frame above the continuation
	outReturn                     // discard the remainder of this frame
)

type outcome struct {
	kind     outcomeKind
	residual []lang.Stmt
	child    *runtime.Frame
}

// Step executes exactly one step. It returns continues=false only when the
// stack is empty. An evaluation error aborts the current command: the
// failing statement stays active and the heap and stack are left exactly
// as they were at the point of failure, so the next Step call is still
// well-defined.
func (in *Interpreter) Step() (bool, error) {
	f, ok := in.Stack.Pop()
	if !ok {
		return false, nil
	}
	if len(f.Stmts) == 0 {
		// Frame falls off with no successor.
		in.stepCount++
		return true, nil
	}
	stmt := f.Stmts[0]
	out, err := in.exec(f, stmt)
	if err != nil {
		in.Stack.Push(f)
		evalErr := &runtime.EvalError{Stmt: stmt, FrameID: f.ID, Err: err}
		in.log.Debug("step failed", zap.Int("frame", f.ID), zap.Error(evalErr))
		return true, evalErr
	}
	in.stepCount++
	in.log.Debug("step", zap.Int("frame", f.ID), zap.String("stmt", stmt.String()))

	switch out.kind {
	case outDone:
		f.Stmts = f.Stmts[1:]
		in.Stack.Push(f)
	case outRewrite:
		rewritten := make([]lang.Stmt, 0, len(out.residual)+len(f.Stmts)-1)
		rewritten = append(rewritten, out.residual...)
		rewritten = append(rewritten, f.Stmts[1:]...)
		f.Stmts = rewritten
		in.Stack.Push(f)
	case outSpawn:
		f.Stmts = f.Stmts[1:]
		in.Stack.Push(f)
		in.Stack.Push(out.child)
	case outReturn:
		// The frame is not pushed back; its remainder is discarded.
	}
	return true, nil
}

// Run steps until the stack drains, returning the number of steps
// executed. The first error stops the run with state left as-is.
func (in *Interpreter) Run() (int, error) {
	executed := 0
	for {
		continues, err := in.Step()
		if err != nil {
			return executed, err
		}
		if !continues {
			return executed, nil
		}
		executed++
	}
}

// RunSteps executes at most n steps; done reports whether the program
// reached the terminal state.
func (in *Interpreter) RunSteps(n int) (executed int, done bool, err error) {
	for executed < n {
		continues, err := in.Step()
		if err != nil {
			return executed, false, err
		}
		if !continues {
			return executed, true, nil
		}
		executed++
	}
	return executed, in.Stack.Len() == 0, nil
}

// exec evaluates one statement against the heap and the frame's locals and
// returns the tagged next-action.
func (in *Interpreter) exec(f *runtime.Frame, stmt lang.Stmt) (outcome, error) {
	switch s := stmt.(type) {
	case *lang.VarDecl:
		v, err := in.eval(f, s.Init)
		if err != nil {
			return outcome{}, err
		}
		f.Locals.Declare(s.Name, v)
		return outcome{kind: outDone}, nil

	case *lang.Assign:
		v, err := in.eval(f, s.Value)
		if err != nil {
			return outcome{}, err
		}
		// Free variables do not resolve against enclosing scopes; an
		// assignment to an undeclared name is an error.
		if !f.Locals.Set(s.Name, v) {
			return outcome{}, fmt.Errorf("%w: %s", runtime.ErrUnbound, s.Name)
		}
		return outcome{kind: outDone}, nil

	case *lang.FieldAssign:
		ref, class, err := in.evalReceiver(f, s.Recv)
		if err != nil {
			return outcome{}, err
		}
		decl, ok := in.Table.FieldDecl(class, s.Field)
		if !ok {
			return outcome{}, fmt.Errorf("%w: %s.%s", runtime.ErrUnknownField, class, s.Field)
		}
		v, err := in.eval(f, s.Value)
		if err != nil {
			return outcome{}, err
		}
		if err := in.checkAssignable(decl.Type, v); err != nil {
			return outcome{}, fmt.Errorf("field %s.%s: %w", class, s.Field, err)
		}
		fields, _ := in.Heap.Fields(ref)
		fields.Set(s.Field, v)
		return outcome{kind: outDone}, nil

	case *lang.If:
		cond, err := in.evalBool(f, s.Cond)
		if err != nil {
			return outcome{}, err
		}
		if cond {
			return outcome{kind: outRewrite, residual: s.Then}, nil
		}
		return outcome{kind: outRewrite, residual: s.Else}, nil

	case *lang.While:
		cond, err := in.evalBool(f, s.Cond)
		if err != nil {
			return outcome{}, err
		}
		if !cond {
			return outcome{kind: outRewrite}, nil
		}
		residual := make([]lang.Stmt, 0, len(s.Body)+1)
		residual = append(residual, s.Body...)
		residual = append(residual, s)
		return outcome{kind: outRewrite, residual: residual}, nil

	case *lang.Print:
		v, err := in.eval(f, s.Value)
		if err != nil {
			return outcome{}, err
		}
		fmt.Fprintln(in.Out, v.String())
		return outcome{kind: outDone}, nil

	case *lang.New:
		if !in.Table.HasClass(s.Class) {
			return outcome{}, fmt.Errorf("%w: %s", runtime.ErrUnknownClass, s.Class)
		}
		args, err := in.evalArgs(f, s.Args)
		if err != nil {
			return outcome{}, err
		}
		init, _, hasInit := in.Table.LookupMethod(s.Class, lang.InitMethodName)
		if !hasInit && len(args) > 0 {
			return outcome{}, fmt.Errorf("%w: class %s has no constructor but got %d args",
				runtime.ErrArityMismatch, s.Class, len(args))
		}
		if hasInit && len(init.Params) != len(args) {
			return outcome{}, fmt.Errorf("%w: %s.%s expects %d args, got %d",
				runtime.ErrArityMismatch, s.Class, lang.InitMethodName, len(init.Params), len(args))
		}
		ref := in.allocate(s.Class)
		f.Locals.Declare(s.Target, runtime.RefVal(ref))
		if !hasInit {
			return outcome{kind: outDone}, nil
		}
		child := in.Stack.NewFrame(ref, init.Body)
		child.Locals.Declare(lang.SelfName, runtime.RefVal(ref))
		for i, p := range init.Params {
			child.Locals.Declare(p.Name, args[i])
		}
		return outcome{kind: outSpawn, child: child}, nil

	case *lang.Call:
		ref, class, err := in.evalReceiver(f, s.Recv)
		if err != nil {
			return outcome{}, err
		}
		m, _, ok := in.Table.LookupMethod(class, s.Method)
		if !ok {
			return outcome{}, fmt.Errorf("%w: %s.%s", runtime.ErrUnknownMethod, class, s.Method)
		}
		if len(m.Params) != len(s.Args) {
			return outcome{}, fmt.Errorf("%w: %s.%s expects %d args, got %d",
				runtime.ErrArityMismatch, class, s.Method, len(m.Params), len(s.Args))
		}
		args, err := in.evalArgs(f, s.Args)
		if err != nil {
			return outcome{}, err
		}
		child := in.Stack.NewFrame(ref, m.Body)
		child.Locals.Declare(lang.SelfName, runtime.RefVal(ref))
		for i, p := range m.Params {
			child.Locals.Declare(p.Name, args[i])
		}
		child.Caller = f
		child.RetVar = s.Target
		return outcome{kind: outSpawn, child: child}, nil

	case *lang.Return:
		v := runtime.Null()
		if s.Value != nil {
			var err error
			v, err = in.eval(f, s.Value)
			if err != nil {
				return outcome{}, err
			}
		}
		if f.RetVar != "" && f.Caller != nil {
			f.Caller.Locals.Declare(f.RetVar, v)
		}
		return outcome{kind: outReturn}, nil

	case *lang.Member:
		head, err := in.evalMember(s)
		if err != nil {
			return outcome{}, err
		}
		// The statement rewrites into a plain assignment of the lowered
		// list; binding the target is that assignment.
		f.Locals.Declare(s.Target, head)
		return outcome{kind: outDone}, nil

	case *lang.SimBind:
		v, err := in.eval(f, s.Object)
		if err != nil {
			return outcome{}, err
		}
		if v.Kind != runtime.KindRef {
			return outcome{}, fmt.Errorf("%w: simulate requires an object, got %s",
				runtime.ErrTypeMismatch, v.Kind)
		}
		in.Sim.Bind(s.Name, v.Ref)
		return outcome{kind: outDone}, nil

	default:
		return outcome{}, fmt.Errorf("unhandled statement %T", stmt)
	}
}

// evalMember runs the structural query statement: a class expression or a
// structured query against the bridge, lowered into a heap list. Bridge
// and reasoner failures surface as runtime evaluation errors here, at the
// call site that invoked them.
func (in *Interpreter) evalMember(s *lang.Member) (runtime.Value, error) {
	if in.Bridge == nil {
		return runtime.Null(), fmt.Errorf("no semantic bridge configured")
	}
	var terms []string
	if bridge.IsStructuredQuery(s.Query) {
		rs, err := in.Bridge.Query(s.Query, in.Settings)
		if err != nil {
			return runtime.Null(), err
		}
		terms = rs.First()
	} else {
		var err error
		terms, err = in.Bridge.ClassMembers(s.Query, in.Settings)
		if err != nil {
			return runtime.Null(), err
		}
	}
	return lower.Lower(in.Heap, terms, in.Bridge.Prefixes().LocalName)
}

// allocate creates an instance with every field of the class layout set to
// its zero value: null for class-typed fields, zero/false/empty otherwise.
func (in *Interpreter) allocate(class string) runtime.ObjectRef {
	ref := in.Heap.Allocate(class)
	fields, _ := in.Heap.Fields(ref)
	for _, decl := range in.Table.FieldsOf(class) {
		fields.Set(decl.Name, zeroValue(decl.Type))
	}
	return ref
}

func zeroValue(t lang.TypeName) runtime.Value {
	switch t {
	case lang.TypeInt:
		return runtime.IntVal(0)
	case lang.TypeFloat:
		return runtime.FloatVal(0)
	case lang.TypeBool:
		return runtime.BoolVal(false)
	case lang.TypeString:
		return runtime.StrVal("")
	default:
		return runtime.Null()
	}
}

// checkAssignable enforces the dynamic typing gate on field stores.
func (in *Interpreter) checkAssignable(decl lang.TypeName, v runtime.Value) error {
	if decl.IsPrimitive() {
		want := map[lang.TypeName]runtime.Kind{
			lang.TypeInt:    runtime.KindInt,
			lang.TypeFloat:  runtime.KindFloat,
			lang.TypeBool:   runtime.KindBool,
			lang.TypeString: runtime.KindString,
		}[decl]
		if v.Kind != want {
			return fmt.Errorf("%w: cannot store %s into %s field", runtime.ErrTypeMismatch, v.Kind, decl)
		}
		return nil
	}
	switch v.Kind {
	case runtime.KindNull:
		return nil
	case runtime.KindRef:
		class, _ := in.Heap.ClassOf(v.Ref)
		if in.Table.HasClass(string(decl)) && !in.Table.IsSubclassOf(class, string(decl)) {
			return fmt.Errorf("%w: %s is not a %s", runtime.ErrTypeMismatch, class, decl)
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot store %s into %s field", runtime.ErrTypeMismatch, v.Kind, decl)
	}
}
