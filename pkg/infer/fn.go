package infer

import "strings"

// ComputeFunc computes a call's return value from the receiver, the
// argument values and the argument syntax nodes (which may be nil).
type ComputeFunc func(self Value, args []Value, argNodes []any) Value

// Body is the syntax of a function body, as seen by the engine. It is
// supplied by the syntax walker that drives inference.
type Body interface {
	// SmallerThan reports whether the body has fewer than n expressions.
	SmallerThan(n int) bool
	// Infer walks the body again, gathering and inferring into scope.
	Infer(scope *Scope)
}

// Fn is a function type. It is an object (it can carry properties) with a
// receiver, positional arguments and a return value.
type Fn struct {
	Obj

	Self     Value
	Args     []Value
	ArgNames []string
	Retval   Value

	Generator bool
	YieldVal  Value
	genResult *Obj

	// Arguments collects every argument passed, when the body uses the
	// arguments object.
	Arguments *AVal

	ComputeRet       ComputeFunc
	ComputeRetSource string
	InstantiateScore float64

	Scope *Scope
	Body  Body
}

// NewFn creates a function type. args and argNames must have the same
// length.
func (cx *Context) NewFn(name string, self Value, args []Value, argNames []string, retval Value) *Fn {
	fn := &Fn{
		Self:     orNoType(self),
		Args:     args,
		ArgNames: argNames,
		Retval:   orNoType(retval),
		YieldVal: NoType,
	}
	fn.init(cx, fn, cx.functionProto(), name)
	return fn
}

func orNoType(v Value) Value {
	if v == nil {
		return NoType
	}
	return v
}

func (fn *Fn) FunctionType() *Fn { return fn }

// ReturnSlot is the AVal return statements flow into; it is created on
// first use if the return value is not already an AVal.
func (fn *Fn) ReturnSlot() *AVal {
	if av, ok := fn.Retval.(*AVal); ok {
		return av
	}
	av := fn.cx.NewAVal()
	fn.Retval.Propagate(av, 0)
	fn.Retval = av
	return av
}

func (fn *Fn) GetProp(name string) Value {
	if name != "prototype" {
		return fn.Obj.GetProp(name)
	}
	known := fn.HasProp(name, false)
	if known == nil {
		known = fn.DefProp(name, nil)
		protoName := ""
		if fn.Name != "" {
			protoName = fn.Name + ".prototype"
		}
		proto := fn.cx.NewObj(fn.cx.ObjectProto, protoName)
		proto.origin = fn.origin
		known.AddType(proto, WeightMadeupProto)
	}
	return known
}

func (fn *Fn) DefProp(name string, originNode any) *AVal {
	if name != "prototype" {
		return fn.Obj.DefProp(name, originNode)
	}
	if found := fn.HasProp(name, false); found != nil {
		return found
	}
	found := fn.Obj.DefProp(name, originNode)
	found.Origin = fn.origin
	found.Propagate(&fnPrototype{fn: fn}, 0)
	return found
}

func (fn *Fn) describe(maxDepth int, _ Value) string {
	var b strings.Builder
	if fn.Generator {
		b.WriteString("fn*(")
	} else {
		b.WriteString("fn(")
	}
	for i, arg := range fn.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		if i < len(fn.ArgNames) {
			if name := fn.ArgNames[i]; name != "" && name != "?" {
				b.WriteString(name + ": ")
			}
		}
		if maxDepth > -3 {
			b.WriteString(describeValue(arg, maxDepth-1, fn))
		} else {
			b.WriteString("?")
		}
	}
	b.WriteString(")")
	if !fn.Retval.IsEmpty() {
		b.WriteString(" -> ")
		if maxDepth > -3 {
			b.WriteString(describeValue(fn.Retval, maxDepth-1, fn))
		} else {
			b.WriteString("?")
		}
	}
	return b.String()
}

func (fn *Fn) typeName(n *Namer) string {
	var b strings.Builder
	if fn.Generator {
		b.WriteString("fn*(")
	} else {
		b.WriteString("fn(")
	}
	for i, arg := range fn.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		if i < len(fn.ArgNames) {
			if name := fn.ArgNames[i]; name != "" && name != "?" {
				b.WriteString(name + ": ")
			}
		}
		b.WriteString(n.Name(arg))
	}
	b.WriteString(")")
	if fn.ComputeRetSource != "" {
		b.WriteString(" -> " + fn.ComputeRetSource)
	} else if !fn.Retval.IsEmpty() {
		b.WriteString(" -> " + n.Name(fn.Retval))
	}
	return b.String()
}

func (fn *Fn) String() string {
	return Describe(fn, 0)
}
