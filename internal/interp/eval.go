package interp

import (
	"fmt"

	"veldt/internal/lang"
	"veldt/internal/runtime"
)

// eval reduces an expression to a value. Expressions are atomic with
// respect to stepping: a whole expression is reduced inside one step.
func (in *Interpreter) eval(f *runtime.Frame, e lang.Expr) (runtime.Value, error) {
	switch x := e.(type) {
	case *lang.IntLit:
		return runtime.IntVal(x.Value), nil
	case *lang.FloatLit:
		return runtime.FloatVal(x.Value), nil
	case *lang.BoolLit:
		return runtime.BoolVal(x.Value), nil
	case *lang.StrLit:
		return runtime.StrVal(x.Value), nil
	case *lang.NullLit:
		return runtime.Null(), nil

	case *lang.VarRef:
		v, ok := f.Locals.Get(x.Name)
		if !ok {
			return runtime.Null(), fmt.Errorf("%w: %s", runtime.ErrUnbound, x.Name)
		}
		return v, nil

	case *lang.FieldSel:
		ref, class, err := in.evalReceiver(f, x.Recv)
		if err != nil {
			return runtime.Null(), err
		}
		fields, _ := in.Heap.Fields(ref)
		v, ok := fields.Get(x.Field)
		if !ok {
			return runtime.Null(), fmt.Errorf("%w: %s.%s", runtime.ErrUnknownField, class, x.Field)
		}
		return v, nil

	case *lang.Binary:
		return in.evalBinary(f, x)

	case *lang.Unary:
		v, err := in.eval(f, x.X)
		if err != nil {
			return runtime.Null(), err
		}
		switch x.Op {
		case "-":
			switch v.Kind {
			case runtime.KindInt:
				return runtime.IntVal(-v.Int), nil
			case runtime.KindFloat:
				return runtime.FloatVal(-v.Float), nil
			}
			return runtime.Null(), fmt.Errorf("%w: unary - on %s", runtime.ErrTypeMismatch, v.Kind)
		case "!":
			if v.Kind != runtime.KindBool {
				return runtime.Null(), fmt.Errorf("%w: unary ! on %s", runtime.ErrTypeMismatch, v.Kind)
			}
			return runtime.BoolVal(!v.Bool), nil
		}
		return runtime.Null(), fmt.Errorf("unknown unary operator %q", x.Op)

	default:
		return runtime.Null(), fmt.Errorf("unhandled expression %T", e)
	}
}

// evalReceiver evaluates an expression that must denote a live object and
// returns its ref and class.
func (in *Interpreter) evalReceiver(f *runtime.Frame, e lang.Expr) (runtime.ObjectRef, string, error) {
	v, err := in.eval(f, e)
	if err != nil {
		return "", "", err
	}
	if v.IsNull() {
		return "", "", fmt.Errorf("%w: %s", runtime.ErrNullDeref, e.String())
	}
	if v.Kind != runtime.KindRef {
		return "", "", fmt.Errorf("%w: %s is not an object", runtime.ErrTypeMismatch, e.String())
	}
	class, ok := in.Heap.ClassOf(v.Ref)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", runtime.ErrNullDeref, v.Ref)
	}
	return v.Ref, class, nil
}

func (in *Interpreter) evalBool(f *runtime.Frame, e lang.Expr) (bool, error) {
	v, err := in.eval(f, e)
	if err != nil {
		return false, err
	}
	if v.Kind != runtime.KindBool {
		return false, fmt.Errorf("%w: condition %s is %s, not bool", runtime.ErrTypeMismatch, e.String(), v.Kind)
	}
	return v.Bool, nil
}

func (in *Interpreter) evalArgs(f *runtime.Frame, exprs []lang.Expr) ([]runtime.Value, error) {
	args := make([]runtime.Value, len(exprs))
	for i, e := range exprs {
		v, err := in.eval(f, e)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (in *Interpreter) evalBinary(f *runtime.Frame, x *lang.Binary) (runtime.Value, error) {
	l, err := in.eval(f, x.L)
	if err != nil {
		return runtime.Null(), err
	}

	// Short-circuit boolean operators evaluate the right side lazily.
	if x.Op == "&&" || x.Op == "||" {
		if l.Kind != runtime.KindBool {
			return runtime.Null(), fmt.Errorf("%w: %s on %s", runtime.ErrTypeMismatch, x.Op, l.Kind)
		}
		if x.Op == "&&" && !l.Bool {
			return runtime.BoolVal(false), nil
		}
		if x.Op == "||" && l.Bool {
			return runtime.BoolVal(true), nil
		}
		r, err := in.eval(f, x.R)
		if err != nil {
			return runtime.Null(), err
		}
		if r.Kind != runtime.KindBool {
			return runtime.Null(), fmt.Errorf("%w: %s on %s", runtime.ErrTypeMismatch, x.Op, r.Kind)
		}
		return runtime.BoolVal(r.Bool), nil
	}

	r, err := in.eval(f, x.R)
	if err != nil {
		return runtime.Null(), err
	}

	switch x.Op {
	case "==":
		return runtime.BoolVal(l.Equal(r)), nil
	case "!=":
		return runtime.BoolVal(!l.Equal(r)), nil
	}

	if l.Kind == runtime.KindString && r.Kind == runtime.KindString {
		switch x.Op {
		case "+":
			return runtime.StrVal(l.Str + r.Str), nil
		case "<":
			return runtime.BoolVal(l.Str < r.Str), nil
		case "<=":
			return runtime.BoolVal(l.Str <= r.Str), nil
		case ">":
			return runtime.BoolVal(l.Str > r.Str), nil
		case ">=":
			return runtime.BoolVal(l.Str >= r.Str), nil
		}
		return runtime.Null(), fmt.Errorf("%w: %s on strings", runtime.ErrTypeMismatch, x.Op)
	}

	if l.Kind == runtime.KindInt && r.Kind == runtime.KindInt {
		switch x.Op {
		case "+":
			return runtime.IntVal(l.Int + r.Int), nil
		case "-":
			return runtime.IntVal(l.Int - r.Int), nil
		case "*":
			return runtime.IntVal(l.Int * r.Int), nil
		case "/":
			if r.Int == 0 {
				return runtime.Null(), runtime.ErrDivideByZero
			}
			return runtime.IntVal(l.Int / r.Int), nil
		case "%":
			if r.Int == 0 {
				return runtime.Null(), runtime.ErrDivideByZero
			}
			return runtime.IntVal(l.Int % r.Int), nil
		case "<":
			return runtime.BoolVal(l.Int < r.Int), nil
		case "<=":
			return runtime.BoolVal(l.Int <= r.Int), nil
		case ">":
			return runtime.BoolVal(l.Int > r.Int), nil
		case ">=":
			return runtime.BoolVal(l.Int >= r.Int), nil
		}
		return runtime.Null(), fmt.Errorf("unknown operator %q", x.Op)
	}

	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if lok && rok {
		switch x.Op {
		case "+":
			return runtime.FloatVal(lf + rf), nil
		case "-":
			return runtime.FloatVal(lf - rf), nil
		case "*":
			return runtime.FloatVal(lf * rf), nil
		case "/":
			if rf == 0 {
				return runtime.Null(), runtime.ErrDivideByZero
			}
			return runtime.FloatVal(lf / rf), nil
		case "<":
			return runtime.BoolVal(lf < rf), nil
		case "<=":
			return runtime.BoolVal(lf <= rf), nil
		case ">":
			return runtime.BoolVal(lf > rf), nil
		case ">=":
			return runtime.BoolVal(lf >= rf), nil
		}
		return runtime.Null(), fmt.Errorf("unknown operator %q", x.Op)
	}

	return runtime.Null(), fmt.Errorf("%w: %s between %s and %s",
		runtime.ErrTypeMismatch, x.Op, l.Kind, r.Kind)
}

// asFloat widens ints for mixed numeric arithmetic.
func asFloat(v runtime.Value) (float64, bool) {
	switch v.Kind {
	case runtime.KindInt:
		return float64(v.Int), true
	case runtime.KindFloat:
		return v.Float, true
	}
	return 0, false
}
