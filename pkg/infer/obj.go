package infer

import (
	"regexp"
	"sort"
	"strings"
)

// Object is implemented by every object-kinded type: plain objects,
// functions, arrays and scopes.
type Object interface {
	Type
	Base() *Obj
	DefProp(name string, originNode any) *AVal
	normalizeIntegerProp(name string) string
}

type instanceEntry struct {
	ctor     *Fn
	instance *Obj
}

// Obj is an object type with a prototype link and named properties.
//
// Property reads that miss are answered with a pending "maybe" property.
// While any maybe property or handler is outstanding the object watches
// its prototype chain, so a later definition anywhere up the chain flows
// into the pending value.
type Obj struct {
	cx   *Context
	impl Object

	Proto *Obj
	Name  string

	origin    string
	props     map[string]*AVal
	propNames []string

	maybeProps    map[string]*AVal
	onNewProp     []PropHandler
	watchingProto bool
	onAddProp     []func(string, *AVal)

	// HasCtor is the constructor this object serves as the prototype of.
	HasCtor   *Fn
	instances []instanceEntry

	OriginNode any
	Doc        string
	URL        string
	Span       string
	MetaData   any

	// Path and NameOverride are assigned during condensation.
	Path                 string
	NameOverride         string
	CondenseForceInclude bool

	isScope bool
	isShell bool
}

var protoNameRe = regexp.MustCompile(`^(.*)\.prototype$`)

// NewObj creates an object with the given prototype, which may be nil.
// An unnamed object whose prototype is named "X.prototype" is named "X".
func (cx *Context) NewObj(proto *Obj, name string) *Obj {
	o := &Obj{}
	o.init(cx, o, proto, name)
	return o
}

func (o *Obj) init(cx *Context, impl Object, proto *Obj, name string) {
	o.cx = cx
	o.impl = impl
	o.Proto = proto
	o.props = map[string]*AVal{}
	if proto != nil && name == "" && proto.Name != "" {
		if _, isFn := impl.(*Fn); !isFn {
			if m := protoNameRe.FindStringSubmatch(proto.Name); m != nil {
				name = m[1]
			}
		}
	}
	o.Name = name
	o.origin = cx.curOrigin
}

// Reinit resets the prototype and name of an object created as a
// placeholder before its definition was known.
func (o *Obj) Reinit(proto *Obj, name string) {
	if proto != o.Proto {
		o.ReplaceProto(proto)
	}
	if name != "" {
		o.Name = name
	}
}

func (o *Obj) Base() *Obj { return o }

// AsType returns the outermost type this object is part of, e.g. the *Fn
// embedding it.
func (o *Obj) AsType() Object { return o.impl }

func (o *Obj) normalizeIntegerProp(string) string { return IndexProp }

func (o *Obj) Origin() string        { return o.origin }
func (o *Obj) SetOrigin(orig string) { o.origin = orig }
func (o *Obj) isType()               {}

func (o *Obj) AddType(Type, int)             {}
func (o *Obj) TypeHint() Type                { return o.impl }
func (o *Obj) PropHint() string              { return "" }
func (o *Obj) PropagatesTo() (*AVal, string) { return nil, "" }

func (o *Obj) Propagate(target Sink, weight int) { target.AddType(o.impl, weight) }
func (o *Obj) HasType(t Type) bool               { return t == Type(o.impl) }
func (o *Obj) IsEmpty() bool                     { return false }
func (o *Obj) GetType(bool) Type                 { return o.impl }
func (o *Obj) FunctionType() *Fn                 { return nil }
func (o *Obj) ObjType() Object                   { return o.impl }
func (o *Obj) SymbolType() *Sym                  { return nil }

// PropNames lists the own property names in definition order.
func (o *Obj) PropNames() []string {
	return o.propNames
}

// Props returns the own properties.
func (o *Obj) Props() map[string]*AVal {
	return o.props
}

// HasProp finds a defined property, searching the prototype chain unless
// searchProto is false. Pending maybe properties are not considered.
func (o *Obj) HasProp(name string, searchProto bool) *AVal {
	if isInteger(name) {
		name = o.impl.normalizeIntegerProp(name)
	}
	if found, ok := o.props[name]; ok {
		return found
	}
	if searchProto {
		for p := o.Proto; p != nil; p = p.Proto {
			if found, ok := p.props[name]; ok {
				return found
			}
		}
	}
	return nil
}

// DefProp defines an own property, promoting a pending maybe property of
// the same name if there is one.
func (o *Obj) DefProp(name string, originNode any) *AVal {
	if found := o.HasProp(name, false); found != nil {
		if originNode != nil && found.OriginNode == nil {
			found.OriginNode = originNode
		}
		return found
	}
	if ignoredProp(name) {
		return o.cx.NewAVal()
	}
	if isInteger(name) {
		name = o.impl.normalizeIntegerProp(name)
	}

	av, ok := o.maybeProps[name]
	if ok {
		delete(o.maybeProps, name)
		o.maybeUnregProtoPropHandler()
	} else {
		av = o.cx.NewAVal()
		av.PropertyOf = o
		av.PropertyName = name
	}

	o.props[name] = av
	o.propNames = append(o.propNames, name)
	av.OriginNode = originNode
	av.Origin = o.cx.curOrigin
	o.broadcastProp(name, av, true)
	return av
}

func (o *Obj) GetProp(name string) Value {
	if ignoredProp(name) {
		return NoType
	}
	if isInteger(name) {
		name = o.impl.normalizeIntegerProp(name)
	}
	if found := o.HasProp(name, true); found != nil {
		return found
	}
	if found, ok := o.maybeProps[name]; ok {
		return found
	}
	av := o.cx.NewAVal()
	av.PropertyOf = o
	av.PropertyName = name
	o.ensureMaybeProps()[name] = av
	return av
}

// OnAddProp registers f to observe every property newly defined on o.
func (o *Obj) OnAddProp(f func(name string, val *AVal)) {
	o.onAddProp = append(o.onAddProp, f)
}

func (o *Obj) broadcastProp(name string, val *AVal, local bool) {
	if local {
		for _, f := range o.onAddProp {
			f(name, val)
		}
		if !o.isScope {
			o.cx.registerProp(name, o)
		}
	}
	handlers := append([]PropHandler(nil), o.onNewProp...)
	for _, h := range handlers {
		h.OnProtoProp(name, val, local)
	}
}

// OnProtoProp is called as properties appear on the prototype chain.
func (o *Obj) OnProtoProp(name string, val *AVal, _ bool) {
	if maybe, ok := o.maybeProps[name]; ok {
		delete(o.maybeProps, name)
		o.maybeUnregProtoPropHandler()
		o.Proto.impl.GetProp(name).Propagate(maybe, 0)
	}
	o.broadcastProp(name, val, false)
}

// ReplaceProto changes the prototype, re-attaching any pending watchers to
// the new chain.
func (o *Obj) ReplaceProto(proto *Obj) {
	if o.watchingProto && o.Proto != nil {
		o.watchingProto = false
		o.Proto.unregPropHandler(o)
	}
	o.Proto = proto
	if o.maybeProps != nil || len(o.onNewProp) > 0 {
		o.watchProto()
	}
}

func (o *Obj) watchProto() {
	if o.watchingProto || o.Proto == nil {
		return
	}
	o.watchingProto = true
	o.Proto.ForAllProps(o)
}

func (o *Obj) ensureMaybeProps() map[string]*AVal {
	if o.maybeProps == nil {
		o.watchProto()
		if o.maybeProps == nil {
			o.maybeProps = map[string]*AVal{}
		}
	}
	return o.maybeProps
}

// RemoveProp turns an own property back into a pending maybe property and
// clears its types.
func (o *Obj) RemoveProp(name string) {
	av, ok := o.props[name]
	if !ok {
		return
	}
	delete(o.props, name)
	for i, n := range o.propNames {
		if n == name {
			o.propNames = append(o.propNames[:i:i], o.propNames[i+1:]...)
			break
		}
	}
	o.ensureMaybeProps()[name] = av
	av.Clear()
}

// ForAllProps replays every property on the prototype chain to h and
// keeps h subscribed to future ones.
func (o *Obj) ForAllProps(h PropHandler) {
	o.watchProto()
	o.onNewProp = append(o.onNewProp, h)
	for p := o; p != nil; p = p.Proto {
		for _, name := range append([]string(nil), p.propNames...) {
			h.OnProtoProp(name, p.props[name], p == o)
		}
	}
}

func (o *Obj) maybeUnregProtoPropHandler() {
	if o.maybeProps != nil && len(o.maybeProps) == 0 {
		o.maybeProps = nil
	}
	if o.maybeProps != nil || len(o.onNewProp) > 0 || !o.watchingProto || o.Proto == nil {
		return
	}
	o.watchingProto = false
	o.Proto.unregPropHandler(o)
}

func (o *Obj) unregPropHandler(target *Obj) {
	for i, h := range o.onNewProp {
		if p, ok := h.(*Obj); ok && p == target {
			o.onNewProp = append(o.onNewProp[:i:i], o.onNewProp[i+1:]...)
			break
		}
	}
	o.maybeUnregProtoPropHandler()
}

func (o *Obj) GatherProperties(f GatherFunc, depth int) {
	for _, name := range o.propNames {
		if name != IndexProp && !strings.HasPrefix(name, ":") {
			f(name, o, depth)
		}
	}
	if o.Proto != nil {
		o.Proto.GatherProperties(f, depth+1)
	}
}

func (o *Obj) describe(maxDepth int, _ Value) string {
	if maxDepth <= 0 && o.Name != "" {
		return o.Name
	}
	var props []string
	etc := false
	for _, name := range o.propNames {
		if name == IndexProp {
			continue
		}
		if len(props) > o.cx.Policy.MaxDisplayProps {
			etc = true
			break
		}
		if maxDepth > 0 {
			props = append(props, name+": "+describeValue(o.props[name], maxDepth-1, o.impl))
		} else {
			props = append(props, name)
		}
	}
	sort.Strings(props)
	if etc {
		props = append(props, "...")
	}
	return "{" + strings.Join(props, ", ") + "}"
}

func (o *Obj) typeName(*Namer) string {
	switch {
	case o.NameOverride != "":
		return o.NameOverride
	case o.Path != "":
		return o.Path
	default:
		return "?"
	}
}

func (o *Obj) String() string {
	return Describe(o.impl, 0)
}

// Instance returns the shared instance of o created by ctor, creating it
// on first use. A nil ctor means o.HasCtor.
func (cx *Context) Instance(o *Obj, ctor *Fn) *Obj {
	if ctor == nil {
		ctor = o.HasCtor
	}
	for _, cur := range o.instances {
		if cur.ctor == ctor {
			return cur.instance
		}
	}
	name := ""
	if ctor != nil {
		name = ctor.Name
	}
	instance := cx.NewObj(o, name)
	instance.origin = o.origin
	o.instances = append(o.instances, instanceEntry{ctor: ctor, instance: instance})
	return instance
}

// FreshInstance creates a new, unshared instance of o.
func (cx *Context) FreshInstance(o *Obj) *Obj {
	return cx.NewObj(o, "")
}
