package infer

import "strings"

// AVal is an abstract value: the set of types an expression or storage
// location may hold. Types only ever accumulate, except that a type
// arriving with a higher weight evicts all lower-weighted ones.
type AVal struct {
	cx *Context

	types     []Type
	forward   []Sink
	maxWeight int

	props map[string]*AVal

	// PropertyOf and PropertyName are set when the AVal is the storage
	// of a property.
	PropertyOf   *Obj
	PropertyName string

	OriginNode any
	Origin     string
	Doc        string
	URL        string
	Span       string

	onAddType []func(Type)
}

// NewAVal creates an empty abstract value.
func (cx *Context) NewAVal() *AVal {
	return &AVal{cx: cx}
}

type mergeAction int

const (
	mergeDrop mergeAction = iota
	mergeAppend
	mergeReplace
	// mergeRaise raises the weight but keeps the only, identical, type.
	mergeRaise
)

func (av *AVal) decideMerge(t Type, weight int) mergeAction {
	switch {
	case weight > av.maxWeight:
		if len(av.types) == 1 && av.types[0] == t {
			return mergeRaise
		}
		return mergeReplace
	case weight < av.maxWeight:
		return mergeDrop
	case av.HasType(t):
		return mergeDrop
	default:
		return mergeAppend
	}
}

// AddType records t with the given weight. A weight of zero or less means
// WeightDefault.
func (av *AVal) AddType(t Type, weight int) {
	if t == nil {
		return
	}
	if weight <= 0 {
		weight = WeightDefault
	}
	switch av.decideMerge(t, weight) {
	case mergeDrop:
		return
	case mergeRaise:
		av.maxWeight = weight
		return
	case mergeReplace:
		av.maxWeight = weight
		av.types = av.types[:0]
	}

	for _, f := range av.onAddType {
		f(t)
	}
	av.types = append(av.types, t)

	if len(av.forward) > 0 {
		av.cx.propagateAll(t, av.forward, weight)
	}
}

// Propagate adds a forward edge: every type av holds now or later is
// delivered to target. Non-default weights cap the weight of delivered
// types.
func (av *AVal) Propagate(target Sink, weight int) {
	if target == nil || target == Sink(NoType) {
		return
	}
	if _, isType := target.(Type); isType && len(av.forward) > av.cx.Policy.MaxTypeFanout {
		return
	}
	if weight > 0 && weight != WeightDefault {
		target = &Muffle{Inner: target, Weight: weight}
	}
	av.forward = append(av.forward, target)
	if len(av.types) > 0 {
		av.cx.propagateEach(av.types, target, weight)
	}
}

// OnAddType registers f to observe every type newly recorded on av.
func (av *AVal) OnAddType(f func(Type)) {
	av.onAddType = append(av.onAddType, f)
}

// Types returns the recorded types in insertion order.
func (av *AVal) Types() []Type {
	return av.types
}

// Forward returns the outgoing edges in insertion order.
func (av *AVal) Forward() []Sink {
	return av.forward
}

// MaxWeight is the weight of the currently recorded types.
func (av *AVal) MaxWeight() int {
	return av.maxWeight
}

// Clear drops all recorded types, keeping edges.
func (av *AVal) Clear() {
	av.types = av.types[:0]
}

func (av *AVal) GetProp(name string) Value {
	if ignoredProp(name) {
		return NoType
	}
	if found, ok := av.props[name]; ok {
		return found
	}
	if av.props == nil {
		av.props = map[string]*AVal{}
	}
	found := av.cx.NewAVal()
	av.props[name] = found
	av.Propagate(&PropRead{Prop: name, Target: found}, 0)
	return found
}

func (av *AVal) ForAllProps(h PropHandler) {
	av.Propagate(&propEach{handler: h}, 0)
}

func (av *AVal) HasType(t Type) bool {
	for _, have := range av.types {
		if have == t {
			return true
		}
	}
	return false
}

func (av *AVal) IsEmpty() bool {
	return len(av.types) == 0
}

func (av *AVal) FunctionType() *Fn {
	for i := len(av.types) - 1; i >= 0; i-- {
		if fn, ok := av.types[i].(*Fn); ok {
			return fn
		}
	}
	return nil
}

func (av *AVal) ObjType() Object {
	var seen Object
	for i := len(av.types) - 1; i >= 0; i-- {
		o, ok := av.types[i].(Object)
		if !ok {
			continue
		}
		if o.Base().Name != "" {
			return o
		}
		if seen == nil {
			seen = o
		}
	}
	return seen
}

func (av *AVal) SymbolType() *Sym {
	for i := len(av.types) - 1; i >= 0; i-- {
		if s, ok := av.types[i].(*Sym); ok {
			return s
		}
	}
	return nil
}

func (av *AVal) GetType(guess bool) Type {
	switch {
	case len(av.types) == 0 && guess:
		return av.makeupType()
	case len(av.types) == 0:
		return nil
	case len(av.types) == 1:
		return av.types[0]
	default:
		return canonicalType(av.types)
	}
}

func (av *AVal) makeupPropType(o *Obj) Type {
	name := av.PropertyName
	if o.Proto != nil {
		if protoProp := o.Proto.HasProp(name, true); protoProp != nil {
			if fromProto := protoProp.GetType(true); fromProto != nil {
				return fromProto
			}
		}
	}
	if name != IndexProp {
		if computed := o.HasProp(IndexProp, true); computed != nil {
			return computed.GetType(true)
		}
	} else if o.props[IndexProp] != av {
		for _, prop := range o.propNames {
			if val := o.props[prop]; !val.IsEmpty() {
				return val.GetType(true)
			}
		}
	}
	return nil
}

// makeupType guesses a type for an empty AVal: first from the property it
// stores, then from what its consumers expect, and finally from the set
// of property names read from it.
func (av *AVal) makeupType() Type {
	if av.PropertyOf != nil {
		if computed := av.makeupPropType(av.PropertyOf); computed != nil {
			return computed
		}
	}
	if len(av.forward) == 0 {
		return nil
	}

	for i := len(av.forward) - 1; i >= 0; i-- {
		if hint := av.forward[i].TypeHint(); hint != nil && !hint.IsEmpty() {
			av.cx.guessing = true
			return hint
		}
	}

	var props []string
	foundProp := ""
	for _, fw := range av.forward {
		prop := fw.PropHint()
		if prop == "" || prop == "length" || prop == IndexProp || prop == ErrorProp || prop == av.cx.CompletingProperty {
			continue
		}
		props = append(props, prop)
		foundProp = prop
	}
	if foundProp == "" {
		return nil
	}

	var matches []Type
search:
	for _, o := range av.cx.ObjectsWithProp(foundProp) {
		for _, prop := range props {
			if o.HasProp(prop, true) == nil {
				continue search
			}
		}
		if o.HasCtor != nil {
			matches = append(matches, av.cx.Instance(o, o.HasCtor))
		} else {
			matches = append(matches, o.impl)
		}
	}
	if canon := canonicalType(matches); canon != nil {
		av.cx.guessing = true
		return canon
	}
	return nil
}

func (av *AVal) TypeHint() Type {
	if len(av.types) == 0 {
		return nil
	}
	return av.GetType(true)
}

func (av *AVal) PropHint() string { return "" }

func (av *AVal) PropagatesTo() (*AVal, string) {
	return av, ""
}

func (av *AVal) GatherProperties(f GatherFunc, depth int) {
	for _, t := range av.types {
		t.GatherProperties(f, depth)
	}
}

// GuessProperties reports the property names read from av, then those of
// its made-up type.
func (av *AVal) GuessProperties(f GatherFunc) {
	for _, fw := range av.forward {
		if prop := fw.PropHint(); prop != "" {
			f(prop, nil, 0)
		}
	}
	if guessed := av.makeupType(); guessed != nil {
		guessed.GatherProperties(f, 0)
	}
}

func (av *AVal) describe(maxDepth int, parent Value) string {
	switch len(av.types) {
	case 0:
		guessed := av.makeupType()
		if guessed == nil {
			return "?"
		}
		return describeValue(guessed, maxDepth, parent)
	case 1:
		return describeValue(av.types[0], maxDepth, parent)
	}
	simplified := simplifyTypes(av.types)
	if len(simplified) > av.cx.Policy.MaxUnionDisplay {
		return "?"
	}
	parts := make([]string, len(simplified))
	for i, t := range simplified {
		parts[i] = describeValue(t, maxDepth, parent)
	}
	return strings.Join(parts, "|")
}

func (av *AVal) typeName(n *Namer) string {
	switch len(av.types) {
	case 0:
		return "?"
	case 1:
		return n.Name(av.types[0])
	}
	simplified := simplifyTypes(av.types)
	if len(simplified) > av.cx.Policy.MaxUnionDisplay {
		return "?"
	}
	parts := make([]string, len(simplified))
	for i, t := range simplified {
		parts[i] = n.Name(t)
	}
	return strings.Join(parts, "|")
}

func (av *AVal) String() string {
	return Describe(av, 0)
}
