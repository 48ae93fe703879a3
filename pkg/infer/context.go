package infer

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// Context is one analysis session: the built-in prototypes and primitive
// singletons, the reverse property index, the symbol table, and the state
// of the worklist engine. Every node created by a Context belongs to it;
// a Context must only be used from one goroutine at a time.
type Context struct {
	Policy Policy
	Logger *slog.Logger

	ObjectProto   *Obj
	ArrayProto    *Obj
	FunctionProto *Fn
	RegExpProto   *Obj
	StringProto   *Obj
	NumberProto   *Obj
	BooleanProto  *Obj
	SymbolProto   *Obj

	Str  *Prim
	Num  *Prim
	Bool *Prim

	TopScope *Scope

	// CompletingProperty is the property name currently being completed;
	// it is never used as evidence when making up types.
	CompletingProperty string

	props       map[string][]*Obj
	origins     []string
	curOrigin   string
	paths       map[string]Value
	definitions map[string]map[string]Value
	localDefs   map[string]Value
	pathScope   *Scope
	symbols     map[string]*Sym
	customFns   map[string]ComputeFunc

	work     *worklist
	disabled *disabledFrame
	deadline time.Time

	superCtor Value
	superObj  Value

	guessing bool
}

// NewContext creates a session with freshly built root prototypes.
func NewContext(policy Policy) *Context {
	cx := &Context{
		Policy: policy,
		Logger: slog.Default(),
	}
	cx.init()
	return cx
}

func (cx *Context) init() {
	cx.props = map[string][]*Obj{}
	cx.origins = nil
	cx.paths = map[string]Value{}
	cx.definitions = map[string]map[string]Value{}
	cx.localDefs = nil
	cx.pathScope = nil
	cx.symbols = map[string]*Sym{}
	cx.customFns = map[string]ComputeFunc{}
	cx.work = nil
	cx.disabled = nil
	cx.superCtor, cx.superObj = nil, nil
	cx.guessing = false

	cx.curOrigin = "ecma5"
	cx.ObjectProto = cx.NewObj(nil, "Object.prototype")
	cx.FunctionProto = nil
	cx.TopScope = cx.NewScope(nil, nil, false)
	cx.ArrayProto = cx.NewObj(cx.ObjectProto, "Array.prototype")
	cx.FunctionProto = cx.NewFn("Function.prototype", NoType, nil, nil, NoType)
	cx.FunctionProto.Proto = cx.ObjectProto
	cx.RegExpProto = cx.NewObj(cx.ObjectProto, "RegExp.prototype")
	cx.StringProto = cx.NewObj(cx.ObjectProto, "String.prototype")
	cx.NumberProto = cx.NewObj(cx.ObjectProto, "Number.prototype")
	cx.BooleanProto = cx.NewObj(cx.ObjectProto, "Boolean.prototype")
	cx.SymbolProto = cx.NewObj(cx.ObjectProto, "Symbol.prototype")
	cx.Str = cx.newPrim(cx.StringProto, "string")
	cx.Bool = cx.newPrim(cx.BooleanProto, "bool")
	cx.Num = cx.newPrim(cx.NumberProto, "number")
	cx.curOrigin = ""

	registerBuiltinFunctions(cx)
}

// Reset tears the session down and rebuilds the root prototypes. Nodes
// created before the reset must not be used afterwards.
func (cx *Context) Reset() {
	cx.init()
}

// StartAnalysis clears per-run engine state (the worklist, the
// disabled-computation stack, super tracking and the guessing flag)
// while keeping everything defined so far.
func (cx *Context) StartAnalysis() {
	cx.work = nil
	cx.disabled = nil
	cx.superCtor, cx.superObj = nil, nil
	cx.guessing = false
}

// StdProto returns a built-in prototype by constructor name.
func (cx *Context) StdProto(name string) *Obj {
	switch name {
	case "Object":
		return cx.ObjectProto
	case "Array":
		return cx.ArrayProto
	case "Function":
		return &cx.FunctionProto.Obj
	case "RegExp":
		return cx.RegExpProto
	case "String":
		return cx.StringProto
	case "Number":
		return cx.NumberProto
	case "Boolean":
		return cx.BooleanProto
	case "Symbol":
		return cx.SymbolProto
	}
	return nil
}

func (cx *Context) functionProto() *Obj {
	if cx.FunctionProto == nil {
		return nil
	}
	return &cx.FunctionProto.Obj
}

// AddOrigin registers a source unit. Origins are ordered by first
// registration.
func (cx *Context) AddOrigin(origin string) {
	for _, o := range cx.origins {
		if o == origin {
			return
		}
	}
	cx.origins = append(cx.origins, origin)
}

// Origins lists registered source units in registration order.
func (cx *Context) Origins() []string {
	return cx.origins
}

// OriginIndex returns the registration position of origin, or -1.
func (cx *Context) OriginIndex(origin string) int {
	for i, o := range cx.origins {
		if o == origin {
			return i
		}
	}
	return -1
}

// SetOrigin sets the source unit new nodes are attributed to and returns
// the previous one.
func (cx *Context) SetOrigin(origin string) string {
	old := cx.curOrigin
	cx.curOrigin = origin
	return old
}

// CurrentOrigin is the source unit new nodes are attributed to.
func (cx *Context) CurrentOrigin() string {
	return cx.curOrigin
}

// Guessing reports whether a made-up type has been produced since the
// flag was last cleared.
func (cx *Context) Guessing() bool {
	return cx.guessing
}

// ClearGuessing resets the guessing flag.
func (cx *Context) ClearGuessing() {
	cx.guessing = false
}

// ObjectsWithProp lists the objects that have declared name, in
// declaration order.
func (cx *Context) ObjectsWithProp(name string) []*Obj {
	return cx.props[name]
}

func (cx *Context) registerProp(name string, o *Obj) {
	cx.props[name] = append(cx.props[name], o)
}

// Definitions returns the named definitions recorded for an origin.
func (cx *Context) Definitions(origin string) map[string]Value {
	return cx.definitions[origin]
}

// BeginDefinitions starts collecting named definitions for origin; names
// defined until EndDefinitions resolve in type specifications.
func (cx *Context) BeginDefinitions(origin string) {
	cx.AddOrigin(origin)
	cx.curOrigin = origin
	defs := map[string]Value{}
	cx.definitions[origin] = defs
	cx.localDefs = defs
}

// Define records a named definition for the current origin.
func (cx *Context) Define(name string, v Value) {
	if cx.localDefs == nil {
		cx.localDefs = map[string]Value{}
	}
	cx.localDefs[name] = v
}

// LocalDefinition looks up a named definition of the current origin.
func (cx *Context) LocalDefinition(name string) (Value, bool) {
	v, ok := cx.localDefs[name]
	return v, ok
}

// EndDefinitions stops collecting named definitions.
func (cx *Context) EndDefinitions() {
	cx.curOrigin = ""
	cx.localDefs = nil
}

// WithSuper runs f with ctor and obj as the target of super calls and
// super property reads.
func (cx *Context) WithSuper(ctor, obj Value, f func()) {
	oldCtor, oldObj := cx.superCtor, cx.superObj
	cx.superCtor, cx.superObj = ctor, obj
	defer func() {
		cx.superCtor, cx.superObj = oldCtor, oldObj
	}()
	f()
}

// Super returns the current super constructor and super object.
func (cx *Context) Super() (Value, Value) {
	return cx.superCtor, cx.superObj
}

// Run executes one analysis step. If ctx carries a deadline that is
// earlier than any deadline already in force, propagation is checked
// against it; exceeding it abandons the step and returns ErrTimedOut.
// The graph built up to that point stays valid.
func (cx *Context) Run(ctx context.Context, f func()) (err error) {
	if dl, ok := ctx.Deadline(); ok && (cx.deadline.IsZero() || dl.Before(cx.deadline)) {
		old := cx.deadline
		cx.deadline = dl
		defer func() { cx.deadline = old }()
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(timedOut); !ok {
			panic(r)
		}
		cx.work = nil
		cx.disabled = nil
		cx.Logger.Debug("analysis timed out", "deadline", cx.deadline)
		err = errors.WithStack(ErrTimedOut)
	}()

	f()
	return nil
}
