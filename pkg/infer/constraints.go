package infer

import "reflect"

// Callee receives function types and wires a call to them: arguments into
// parameters, the receiver into the function's this, and the result
// into Retval.
type Callee struct {
	nullSink
	cx *Context

	Self     Value
	Args     []Value
	ArgNodes []any
	Retval   Sink

	disabled *disabledFrame
}

// NewCallee creates a call constraint. Computed returns of functions
// currently being computed are suppressed for the calls it makes.
func (cx *Context) NewCallee(self Value, args []Value, argNodes []any, retval Sink) *Callee {
	return &Callee{
		cx:       cx,
		Self:     orNoType(self),
		Args:     args,
		ArgNodes: argNodes,
		Retval:   orNoSink(retval),
		disabled: cx.disabled,
	}
}

func orNoSink(s Sink) Sink {
	if s == nil {
		return NoType
	}
	return s
}

func (c *Callee) AddType(t Type, weight int) {
	fn, ok := t.(*Fn)
	if !ok {
		return
	}
	cx := c.cx

	for i, arg := range c.Args {
		if i < len(fn.Args) {
			arg.Propagate(sinkOf(fn.Args[i]), weight)
		}
		if fn.Arguments != nil {
			arg.Propagate(fn.Arguments, weight)
		}
	}

	selfWeight := weight
	if c.Self == Value(cx.TopScope) {
		selfWeight = WeightGlobalThis
	}
	c.Self.Propagate(sinkOf(fn.Self), selfWeight)

	compute := fn.ComputeRet
	if compute != nil {
		for d := c.disabled; d != nil; d = d.prev {
			if d.fn == fn || sameNode(fn.OriginNode, d.fn.OriginNode) {
				compute = nil
				break
			}
		}
	}

	result := fn.Retval
	if compute != nil {
		old := cx.disabled
		cx.disabled = c.disabled
		result = orNoType(compute(c.Self, c.Args, c.ArgNodes))
		cx.disabled = old
	}

	cx.maybeIterator(fn, result).Propagate(c.Retval, weight)
}

func (c *Callee) TypeHint() Type {
	names := make([]string, len(c.Args))
	for i := range names {
		names[i] = "?"
	}
	return c.cx.NewFn("", c.Self, c.Args, names, NoType)
}

func (c *Callee) PropagatesTo() (*AVal, string) {
	if av, ok := c.Retval.(*AVal); ok {
		return av, ".!ret"
	}
	return nil, ""
}

// sinkOf views a value as a propagation target.
func sinkOf(v Value) Sink {
	if v == nil {
		return NoType
	}
	return v
}

// sameNode compares two syntax nodes by identity, treating nil and
// incomparable values as different.
func sameNode(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// MethodCall receives receivers, looks up PropName on them, and calls
// whatever functions the property holds.
type MethodCall struct {
	nullSink
	cx *Context

	PropName string
	Args     []Value
	ArgNodes []any
	Retval   Sink

	disabled *disabledFrame
}

func (cx *Context) NewMethodCall(propName string, args []Value, argNodes []any, retval Sink) *MethodCall {
	return &MethodCall{
		cx:       cx,
		PropName: propName,
		Args:     args,
		ArgNodes: argNodes,
		Retval:   orNoSink(retval),
		disabled: cx.disabled,
	}
}

func (m *MethodCall) AddType(obj Type, weight int) {
	callee := &Callee{
		cx:       m.cx,
		Self:     obj,
		Args:     m.Args,
		ArgNodes: m.ArgNodes,
		Retval:   m.Retval,
		disabled: m.disabled,
	}
	obj.GetProp(m.PropName).Propagate(callee, weight)
}

func (m *MethodCall) PropHint() string { return m.PropName }

// Ctor receives constructor functions and produces instances of their
// prototype into Target.
type Ctor struct {
	nullSink
	cx *Context

	Target  Sink
	NoReuse bool
}

func (cx *Context) NewCtor(target Sink, noReuse bool) *Ctor {
	return &Ctor{cx: cx, Target: target, NoReuse: noReuse}
}

func (c *Ctor) AddType(t Type, weight int) {
	fn, ok := t.(*Fn)
	if !ok {
		return
	}
	if !c.cx.Policy.ReuseInstances {
		c.NoReuse = true
	}
	fn.GetProp("prototype").Propagate(&Proto{cx: c.cx, Ctor: fn, Fresh: c.NoReuse, Target: c.Target}, weight)
}

// Proto receives prototype objects and produces an instance of each into
// Target, shared per constructor unless Fresh is set.
type Proto struct {
	nullSink
	cx *Context

	Ctor   *Fn
	Fresh  bool
	Target Sink

	count int
}

func (p *Proto) AddType(t Type, _ int) {
	o, ok := t.(Object)
	if !ok {
		return
	}
	if p.count++; p.count > p.cx.Policy.MaxProtoInstances {
		return
	}
	cx := p.cx
	switch {
	case o.Base() == cx.ArrayProto:
		p.Target.AddType(cx.NewArr(nil), 0)
	case p.Fresh:
		p.Target.AddType(cx.FreshInstance(o.Base()), 0)
	default:
		p.Target.AddType(cx.Instance(o.Base(), p.Ctor), 0)
	}
}

// Added models the "+" operator on one operand; Other is the other
// operand.
type Added struct {
	nullSink
	cx *Context

	Other  Value
	Target Sink
}

func (cx *Context) NewAdded(other Value, target Sink) *Added {
	return &Added{cx: cx, Other: other, Target: target}
}

func (a *Added) AddType(t Type, weight int) {
	switch {
	case t == Type(a.cx.Str):
		a.Target.AddType(a.cx.Str, weight)
	case t == Type(a.cx.Num) && a.Other.HasType(a.cx.Num):
		a.Target.AddType(a.cx.Num, weight)
	}
}

func (a *Added) TypeHint() Type {
	return a.Other.GetType(false)
}

// Created models creating an object from a prototype and an optional
// property descriptor map.
type Created struct {
	nullSink
	cx *Context

	Target Sink
	Spec   Value

	count int
}

func (cx *Context) NewCreated(target Sink, spec Value) *Created {
	return &Created{cx: cx, Target: target, Spec: spec}
}

func (c *Created) AddType(t Type, _ int) {
	o, ok := t.(Object)
	if !ok {
		return
	}
	if c.count >= c.cx.Policy.MaxCreated {
		return
	}
	c.count++

	derived := c.cx.NewObj(o.Base(), "")
	var spec Object
	switch s := c.Spec.(type) {
	case *AVal:
		spec = s.ObjType()
	case Object:
		spec = s
	}
	if spec != nil {
		base := spec.Base()
		for _, name := range base.propNames {
			p := derived.DefProp(name, nil)
			types := base.props[name].types
			if len(types) == 0 {
				continue
			}
			desc, ok := types[0].(Object)
			if !ok {
				continue
			}
			if value, ok := desc.Base().props["value"]; ok {
				if vt := value.GetType(false); vt != nil {
					p.AddType(vt, 0)
				}
			}
		}
	}
	c.Target.AddType(derived, 0)
}

// Bound models partially applying a function to a receiver and leading
// arguments.
type Bound struct {
	nullSink
	cx *Context

	Self   Value
	Args   []Value
	Target Sink
}

func (cx *Context) NewBound(self Value, args []Value, target Sink) *Bound {
	return &Bound{cx: cx, Self: orNoType(self), Args: args, Target: target}
}

func (b *Bound) AddType(t Type, _ int) {
	fn, ok := t.(*Fn)
	if !ok {
		return
	}
	n := min(len(b.Args), len(fn.Args))
	var names []string
	if n <= len(fn.ArgNames) {
		names = append(names, fn.ArgNames[n:]...)
	}
	bound := b.cx.NewFn(fn.Name, NoType, append([]Value(nil), fn.Args[n:]...), names, fn.Retval)
	bound.Generator = fn.Generator
	b.Target.AddType(bound, 0)

	b.Self.Propagate(sinkOf(fn.Self), 0)
	for i := 0; i < n; i++ {
		b.Args[i].Propagate(sinkOf(fn.Args[i]), 0)
	}
}

// Muffle caps the weight of everything forwarded to Inner.
type Muffle struct {
	Inner  Sink
	Weight int
}

func (m *Muffle) AddType(t Type, weight int) {
	if weight <= 0 {
		weight = WeightDefault
	}
	m.Inner.AddType(t, min(weight, m.Weight))
}

func (m *Muffle) TypeHint() Type                { return m.Inner.TypeHint() }
func (m *Muffle) PropHint() string              { return m.Inner.PropHint() }
func (m *Muffle) PropagatesTo() (*AVal, string) { return m.Inner.PropagatesTo() }

// PropRead forwards property Prop of every received type into Target.
type PropRead struct {
	nullSink

	Prop   string
	Target Sink
}

func (r *PropRead) AddType(t Type, weight int) {
	t.GetProp(r.Prop).Propagate(r.Target, weight)
}

func (r *PropRead) PropHint() string { return r.Prop }

func (r *PropRead) PropagatesTo() (*AVal, string) {
	av, ok := r.Target.(*AVal)
	if !ok {
		return nil, ""
	}
	if r.Prop == IndexProp || plainPropRe.MatchString(r.Prop) {
		return av, "." + r.Prop
	}
	return nil, ""
}

// PropDef defines property Prop on every received object and forwards
// Value into it.
type PropDef struct {
	nullSink

	Prop       string
	Value      Value
	OriginNode any
}

func (d *PropDef) AddType(t Type, weight int) {
	o, ok := t.(Object)
	if !ok {
		return
	}
	prop := o.DefProp(d.Prop, d.OriginNode)
	d.Value.Propagate(prop, weight)
}

func (d *PropDef) PropHint() string { return d.Prop }

type propEach struct {
	nullSink
	handler PropHandler
}

func (e *propEach) AddType(t Type, _ int) {
	if o, ok := t.(Object); ok {
		o.Base().ForAllProps(e.handler)
	}
}

// PropSpec reads a property descriptor: its value, or the result of its
// getter.
type PropSpec struct {
	nullSink
	cx *Context

	Target Sink
}

func (s *PropSpec) AddType(t Type, _ int) {
	o, ok := t.(Object)
	if !ok {
		return
	}
	switch {
	case o.Base().HasProp("value", true) != nil:
		o.GetProp("value").Propagate(s.Target, 0)
	case o.Base().HasProp("get", true) != nil:
		o.GetProp("get").Propagate(s.cx.NewCallee(NoType, nil, nil, s.Target), 0)
	}
}

// IfObj forwards only object types.
type IfObj struct {
	nullSink
	Target Sink
}

func (f *IfObj) AddType(t Type, weight int) {
	if _, ok := t.(Object); ok {
		f.Target.AddType(t, weight)
	}
}

func (f *IfObj) PropagatesTo() (*AVal, string) {
	if av, ok := f.Target.(*AVal); ok {
		return av, ""
	}
	return nil, ""
}

// HasProto adopts the first received object as the prototype of Obj, if
// Obj still has the default prototype.
type HasProto struct {
	nullSink
	Obj *Obj
}

func (h *HasProto) AddType(t Type, _ int) {
	o, ok := t.(Object)
	if !ok || h.Obj.Proto != h.Obj.cx.ObjectProto {
		return
	}
	h.Obj.ReplaceProto(o.Base())
}

// fnPrototype marks objects stored in a function's prototype property as
// that function's instance prototype.
type fnPrototype struct {
	nullSink
	fn *Fn
}

func (p *fnPrototype) AddType(t Type, _ int) {
	o, ok := t.(Object)
	if !ok || o.Base().HasCtor != nil {
		return
	}
	obj := o.Base()
	obj.HasCtor = p.fn
	adder := &speculativeThis{obj: obj, ctor: p.fn}
	adder.AddType(p.fn, 0)
	obj.ForAllProps(PropHandlerFunc(func(_ string, val *AVal, local bool) {
		if local {
			val.Propagate(adder, 0)
		}
	}))
}

// speculativeThis gives methods of a prototype an instance of it as this.
type speculativeThis struct {
	nullSink
	obj  *Obj
	ctor *Fn
}

func (s *speculativeThis) AddType(t Type, _ int) {
	fn, ok := t.(*Fn)
	if !ok || fn.Self == nil {
		return
	}
	fn.Self.AddType(fn.cx.Instance(s.obj, s.ctor), WeightSpeculativeProtoThis)
}

// Join merges two values into one, avoiding a new node when either side
// is empty or both are the same.
func (cx *Context) Join(a, b Value) Value {
	switch {
	case a == b || b == NoType:
		return a
	case a == NoType:
		return b
	}
	joined := cx.NewAVal()
	a.Propagate(joined, 0)
	b.Propagate(joined, 0)
	return joined
}

// ForOf connects the values produced by iterating iterable to target.
func (cx *Context) ForOf(iterable Value, target Sink) {
	next := cx.NewMethodCall("next", nil, nil, &PropRead{Prop: "value", Target: target})
	iterable.Propagate(cx.NewMethodCall(":Symbol.iterator", nil, nil, next), 0)
}

// ForIn connects the indexed members of source to target.
func (cx *Context) ForIn(source Value, target Sink) {
	source.GetProp(IndexProp).Propagate(target, 0)
}
