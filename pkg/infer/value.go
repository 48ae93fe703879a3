package infer

import "regexp"

// Sink receives type facts. Every node of the constraint graph is a Sink:
// abstract values, types themselves, and the single-purpose constraint
// nodes that encode language operations.
type Sink interface {
	AddType(t Type, weight int)
	// TypeHint is a best guess of what the sink expects to receive, or nil.
	TypeHint() Type
	// PropHint names the property the sink reads or writes, or "".
	PropHint() string
	// PropagatesTo reports the AVal this sink forwards into unchanged,
	// with the path step it adds (e.g. ".x" or ".!ret").
	PropagatesTo() (*AVal, string)
}

// Value is anything facts can be read from: an AVal, a Type, or NoType.
type Value interface {
	Sink
	Propagate(target Sink, weight int)
	GetProp(name string) Value
	ForAllProps(h PropHandler)
	HasType(t Type) bool
	IsEmpty() bool
	// GetType picks a single representative type. With guess set, an
	// empty value may make one up from context.
	GetType(guess bool) Type
	FunctionType() *Fn
	ObjType() Object
	SymbolType() *Sym
	GatherProperties(f GatherFunc, depth int)

	describe(maxDepth int, parent Value) string
	typeName(n *Namer) string
}

// Type is an immutable-shape member of the lattice.
type Type interface {
	Value
	// Origin is the source unit the type was created in.
	Origin() string
	// Reached is called by condensation when the type is first found at
	// path. It returns false if the type turned out not to be worth
	// emitting.
	Reached(path string, r Reacher, concrete bool) bool
	isType()
}

// PropHandler observes properties as they become known on an object or
// anywhere on its prototype chain.
type PropHandler interface {
	OnProtoProp(name string, val *AVal, local bool)
}

// PropHandlerFunc adapts a function to PropHandler.
type PropHandlerFunc func(name string, val *AVal, local bool)

func (f PropHandlerFunc) OnProtoProp(name string, val *AVal, local bool) {
	f(name, val, local)
}

// GatherFunc receives property names during completion. obj is the
// object declaring the property (nil when guessed) and depth its distance
// along the prototype chain.
type GatherFunc func(name string, obj *Obj, depth int)

// nullSink provides the inert defaults for constraint nodes.
type nullSink struct{}

func (nullSink) AddType(Type, int)             {}
func (nullSink) TypeHint() Type                { return nil }
func (nullSink) PropHint() string              { return "" }
func (nullSink) PropagatesTo() (*AVal, string) { return nil, "" }

type noType struct {
	nullSink
}

// NoType is the bottom value: it absorbs everything and knows nothing.
var NoType Value = noType{}

func (noType) Propagate(Sink, int)              {}
func (noType) GetProp(string) Value             { return NoType }
func (noType) ForAllProps(PropHandler)          {}
func (noType) HasType(Type) bool                { return false }
func (noType) IsEmpty() bool                    { return true }
func (noType) GetType(bool) Type                { return nil }
func (noType) FunctionType() *Fn                { return nil }
func (noType) ObjType() Object                  { return nil }
func (noType) SymbolType() *Sym                 { return nil }
func (noType) GatherProperties(GatherFunc, int) {}
func (noType) describe(int, Value) string       { return "?" }
func (noType) typeName(*Namer) string           { return "?" }
func (noType) String() string                   { return "?" }

const (
	// IndexProp is the property holding indexed (numeric or computed)
	// members.
	IndexProp = "<i>"
	// ErrorProp marks a property name the parser could not recover.
	ErrorProp = "✖"
)

func ignoredProp(name string) bool {
	return name == "__proto__" || name == ErrorProp
}

func isInteger(name string) bool {
	if name == "" || name[0] < '0' || name[0] > '9' {
		return false
	}
	for i := 1; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}

var plainPropRe = regexp.MustCompile(`^[\w_]*$`)

// describeValue renders v for display, guarding against depth overflow
// and trivial self-reference.
func describeValue(v Value, maxDepth int, parent Value) string {
	if v == nil || (parent != nil && v == parent) || maxDepth < -3 {
		return "?"
	}
	return v.describe(maxDepth, parent)
}

// Describe renders v with nested types expanded up to maxDepth levels.
func Describe(v Value, maxDepth int) string {
	return describeValue(v, maxDepth, nil)
}
