package infer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SpecError reports a malformed type specification or effect.
type SpecError struct {
	Spec string
	Pos  int
	Msg  string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("%s: %q (at %d)", e.Msg, e.Spec, e.Pos)
}

type specPanic struct {
	err *SpecError
}

func recoverSpec(err *error) {
	r := recover()
	if r == nil {
		return
	}
	sp, ok := r.(specPanic)
	if !ok {
		panic(r)
	}
	*err = errors.WithStack(sp.err)
}

// expr is a parsed type that is either known now or computed per call
// from the receiver and arguments.
type expr struct {
	v Value
	f ComputeFunc
}

func constExpr(v Value) expr {
	return expr{v: orNoType(v)}
}

func (e expr) computed() bool { return e.f != nil }

func (e expr) eval(self Value, args []Value, nodes []any) Value {
	if e.f != nil {
		return orNoType(e.f(self, args, nodes))
	}
	return e.v
}

func (e expr) compute() ComputeFunc {
	if e.f != nil {
		return e.f
	}
	v := e.v
	return func(Value, []Value, []any) Value { return v }
}

type typeParser struct {
	cx       *Context
	spec     string
	pos      int
	base     Object
	forceNew bool
}

func (p *typeParser) fail(msg string) {
	panic(specPanic{&SpecError{Spec: p.spec, Pos: p.pos, Msg: msg}})
}

func (p *typeParser) eat(s string) bool {
	if strings.HasPrefix(p.spec[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *typeParser) word(allowed string) string {
	start := p.pos
	for p.pos < len(p.spec) {
		c := p.spec[p.pos]
		if !isWordByte(c) && strings.IndexByte(allowed, c) < 0 {
			break
		}
		p.pos++
	}
	return p.spec[start:p.pos]
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func (p *typeParser) digits() string {
	start := p.pos
	for p.pos < len(p.spec) && p.spec[p.pos] >= '0' && p.spec[p.pos] <= '9' {
		p.pos++
	}
	return p.spec[start:p.pos]
}

var argNameRe = regexp.MustCompile(`^[$\w?]+$`)

func (p *typeParser) parseFnType(comp bool, name string, top, generator bool) expr {
	var args []expr
	var names []string
	computed := false

	if !p.eat(")") {
		for {
			argName := ""
			if colon := strings.Index(p.spec[p.pos:], ": "); colon != -1 {
				if candidate := p.spec[p.pos : p.pos+colon]; argNameRe.MatchString(candidate) {
					argName = candidate
					p.pos += colon + 2
				}
			}
			names = append(names, argName)

			arg := p.parseType(comp, "", false)
			if arg.computed() {
				computed = true
			}
			args = append(args, arg)

			if !p.eat(", ") {
				if !p.eat(")") {
					p.fail("expected ')'")
				}
				break
			}
		}
	}

	ret := constExpr(NoType)
	var computeRet ComputeFunc
	computeRetSource := ""
	if p.eat(" -> ") {
		start := p.pos
		ret = p.parseType(true, "", false)
		if ret.computed() && !computed {
			computeRet = ret.f
			computeRetSource = p.spec[start:p.pos]
			ret = constExpr(NoType)
		}
	}

	cx := p.cx
	if computed {
		return expr{f: func(self Value, cArgs []Value, nodes []any) Value {
			realArgs := make([]Value, len(args))
			for i, arg := range args {
				realArgs[i] = arg.eval(self, cArgs, nodes)
			}
			fn := cx.NewFn(name, NoType, realArgs, append([]string(nil), names...), ret.eval(self, cArgs, nodes))
			fn.Generator = generator
			return fn
		}}
	}

	argVals := make([]Value, len(args))
	for i, arg := range args {
		argVals[i] = arg.v
	}

	var fn *Fn
	if base, ok := p.base.(*Fn); top && ok {
		fn = base
		fn.Name = name
		fn.Self = NoType
		fn.Args = argVals
		fn.ArgNames = names
		fn.Retval = ret.v
	} else {
		fn = cx.NewFn(name, NoType, argVals, names, ret.v)
	}
	fn.Generator = generator
	if computeRet != nil {
		fn.ComputeRet = computeRet
		fn.ComputeRetSource = computeRetSource
	}
	return constExpr(fn)
}

func (p *typeParser) parseType(comp bool, name string, top bool) expr {
	main := p.parseTypeMaybeProp(comp, name, top)
	if !p.eat("|") {
		return main
	}

	types := []expr{main}
	computed := main.computed()
	for {
		next := p.parseTypeMaybeProp(comp, name, top)
		types = append(types, next)
		if next.computed() {
			computed = true
		}
		if !p.eat("|") {
			break
		}
	}

	cx := p.cx
	if computed {
		return expr{f: func(self Value, args []Value, nodes []any) Value {
			vals := make([]Value, len(types))
			for i, t := range types {
				vals[i] = t.eval(self, args, nodes)
			}
			return cx.pinnedUnion(vals)
		}}
	}
	vals := make([]Value, len(types))
	for i, t := range types {
		vals[i] = t.v
	}
	return constExpr(cx.pinnedUnion(vals))
}

// pinnedUnion joins vals into an AVal whose type set only its members can
// change. Members deliver at WeightFixed, so their facts still arrive when
// they are queued behind the pin.
func (cx *Context) pinnedUnion(vals []Value) *AVal {
	union := cx.NewAVal()
	union.maxWeight = WeightFixed
	for _, v := range vals {
		v.Propagate(&pin{Inner: union}, 0)
	}
	return union
}

// pin forwards everything to Inner at WeightFixed.
type pin struct {
	Inner *AVal
}

func (p *pin) AddType(t Type, weight int) { p.Inner.AddType(t, WeightFixed) }

func (p *pin) TypeHint() Type                { return p.Inner.TypeHint() }
func (p *pin) PropHint() string              { return p.Inner.PropHint() }
func (p *pin) PropagatesTo() (*AVal, string) { return p.Inner.PropagatesTo() }

func (p *typeParser) parseTypeMaybeProp(comp bool, name string, top bool) expr {
	result := p.parseTypeInner(comp, name, top)
	for comp && p.eat(".") {
		result = p.extendWithProp(result)
	}
	return result
}

func (p *typeParser) extendWithProp(base expr) expr {
	prop := p.word("<>$!:")
	if prop == "" {
		p.fail("expected property name")
	}
	cx := p.cx
	if base.computed() {
		return expr{f: func(self Value, args []Value, nodes []any) Value {
			return cx.extractProp(base.f(self, args, nodes), prop)
		}}
	}
	return constExpr(cx.extractProp(base.v, prop))
}

func (p *typeParser) parseTypeInner(comp bool, name string, top bool) expr {
	cx := p.cx
	switch {
	case p.eat("fn("):
		return p.parseFnType(comp, name, top, false)
	case p.eat("fn*("):
		return p.parseFnType(comp, name, top, true)
	case p.eat("["):
		return p.parseArray(comp, top)
	case p.eat("+"):
		return p.parseInstance(comp, top)
	case p.eat(":"):
		return constExpr(cx.Symbol(p.word("$."), nil))
	case comp && p.eat("!"):
		return p.parseReference()
	case p.eat("?"):
		return constExpr(NoType)
	}
	word := p.word("$<>.!:`")
	if word == "" {
		p.fail("unrecognized type spec")
	}
	return constExpr(p.fromWord(word))
}

func (p *typeParser) parseArray(comp, top bool) expr {
	cx := p.cx
	inner := p.parseType(comp, "", false)
	computed := inner.computed()
	var types []expr
	for p.eat(", ") {
		if types == nil {
			types = []expr{inner}
		}
		next := p.parseType(comp, "", false)
		types = append(types, next)
		computed = computed || next.computed()
	}
	if !p.eat("]") {
		p.fail("expected ']'")
	}

	if computed {
		if types != nil {
			return expr{f: func(self Value, args []Value, nodes []any) Value {
				vals := make([]Value, len(types))
				for i, t := range types {
					vals[i] = t.eval(self, args, nodes)
				}
				return cx.NewTuple(vals)
			}}
		}
		return expr{f: func(self Value, args []Value, nodes []any) Value {
			return cx.NewArr(inner.eval(self, args, nodes))
		}}
	}

	if base, ok := p.base.(*Arr); top && ok {
		if types != nil {
			base.fillTuple(exprValues(types))
		} else {
			inner.v.Propagate(base.GetProp(IndexProp), 0)
		}
		return constExpr(base)
	}
	if types != nil {
		return constExpr(cx.NewTuple(exprValues(types)))
	}
	return constExpr(cx.NewArr(inner.v))
}

func exprValues(es []expr) []Value {
	vals := make([]Value, len(es))
	for i, e := range es {
		vals[i] = e.v
	}
	return vals
}

func (p *typeParser) parseInstance(comp, top bool) expr {
	cx := p.cx
	path := p.word("$<>.:!")

	var base Object
	if def, ok := cx.localDefs[path+".prototype"].(Object); ok {
		base = def
	} else {
		found := cx.ParsePath(path)
		obj, ok := found.(Object)
		if !ok {
			return constExpr(found)
		}
		base = obj
		if proto := descendProps(base, []string{"prototype"}); proto != NoType {
			if protoObj := proto.ObjType(); protoObj != nil {
				base = protoObj
			}
		}
	}

	if comp && p.eat("[") {
		return p.parsePoly(base)
	}

	if top && p.base != nil {
		shell := p.base.Base()
		shell.ReplaceProto(base.Base())
		name := base.Base().Name
		if ctor := base.Base().HasCtor; ctor != nil && ctor.Name != "" {
			name = ctor.Name
		}
		if name != "" {
			shell.Name = name
		}
		return constExpr(p.base)
	}
	if top && p.forceNew {
		return constExpr(cx.NewObj(base.Base(), ""))
	}
	return constExpr(cx.Instance(base.Base(), nil))
}

var polyPropRe = regexp.MustCompile(`^\s*([\w$:]+)\s*=\s*`)

func (p *typeParser) parsePoly(base Object) expr {
	cx := p.cx
	propName := IndexProp
	if m := polyPropRe.FindStringSubmatch(p.spec[p.pos:]); m != nil {
		propName = m[1]
		p.pos += len(m[0])
	}
	value := p.parseType(true, "", false)
	if !p.eat("]") {
		p.fail("expected ']'")
	}

	if value.computed() {
		return expr{f: func(self Value, args []Value, nodes []any) Value {
			instance := cx.NewObj(base.Base(), "")
			value.eval(self, args, nodes).Propagate(instance.DefProp(propName, nil), 0)
			return instance
		}}
	}
	instance := cx.NewObj(base.Base(), "")
	value.v.Propagate(instance.DefProp(propName, nil), 0)
	return constExpr(instance)
}

func (p *typeParser) parseReference() expr {
	cx := p.cx
	if arg := p.digits(); arg != "" {
		n, _ := strconv.Atoi(arg)
		return expr{f: func(_ Value, args []Value, _ []any) Value {
			if n < len(args) {
				return args[n]
			}
			return NoType
		}}
	}
	if p.eat("this") {
		return expr{f: func(self Value, _ []Value, _ []any) Value { return self }}
	}
	if p.eat("custom:") {
		name := p.word("$")
		if f, ok := cx.customFns[name]; ok {
			return expr{f: f}
		}
		return expr{f: func(Value, []Value, []any) Value { return NoType }}
	}
	return constExpr(p.fromWord("!" + p.word("$<>.!:")))
}

func (p *typeParser) fromWord(spec string) Value {
	cx := p.cx
	switch spec {
	case "number":
		return cx.Num
	case "string":
		return cx.Str
	case "bool":
		return cx.Bool
	case "<top>":
		return cx.TopScope
	}
	if v, ok := cx.localDefs[spec]; ok {
		return v
	}
	return cx.ParsePath(spec)
}

func (cx *Context) extractProp(v Value, prop string) Value {
	if prop != "!ret" {
		return v.GetProp(prop)
	}
	if fn, ok := v.(*Fn); ok {
		return fn.Retval
	}
	rv := cx.NewAVal()
	v.Propagate(cx.NewCallee(NoType, nil, nil, rv), 0)
	return rv
}

// ParsePath resolves a dotted path against the current definitions and
// the top scope. Steps starting with "!" select a prototype ("!proto"),
// a return type ("!ret") or a parameter ("!0", "!1", ...). Unresolved
// paths yield NoType and are retried on the next lookup.
func (cx *Context) ParsePath(path string) Value {
	if cached, ok := cx.paths[path]; ok {
		return cached
	}
	// Resolving a path may parse types that mention the same path.
	cx.paths[path] = NoType

	var base Value = cx.TopScope
	if cx.pathScope != nil {
		base = cx.pathScope
	}
	rest := path
	if cx.localDefs != nil {
		names := make([]string, 0, len(cx.localDefs))
		for name := range cx.localDefs {
			names = append(names, name)
		}
		// Longest prefix wins.
		sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
		for _, name := range names {
			if path == name {
				cx.paths[path] = cx.localDefs[name]
				return cx.localDefs[name]
			}
			if strings.HasPrefix(path, name+".") {
				base = cx.localDefs[name]
				rest = path[len(name)+1:]
				break
			}
		}
	}

	result := descendProps(base, strings.Split(rest, "."))
	if result == NoType {
		delete(cx.paths, path)
	} else {
		cx.paths[path] = result
	}
	return result
}

// WithPathScope resolves paths against scope instead of the top scope
// while f runs.
func (cx *Context) WithPathScope(scope *Scope, f func()) {
	old := cx.pathScope
	cx.pathScope = scope
	defer func() { cx.pathScope = old }()
	f()
}

func descendProps(base Value, parts []string) Value {
	for _, prop := range parts {
		if base == NoType {
			break
		}
		if strings.HasPrefix(prop, "!") {
			base = descendSpecial(base, prop)
			continue
		}
		obj, ok := base.(Object)
		if !ok {
			return NoType
		}
		_, isFn := obj.(*Fn)
		if !(prop == "prototype" && isFn) && obj.Base().HasProp(prop, true) == nil {
			return NoType
		}
		av, ok := obj.GetProp(prop).(*AVal)
		if !ok || av.IsEmpty() {
			return NoType
		}
		base = av.types[0]
	}
	return base
}

func descendSpecial(base Value, prop string) Value {
	if prop == "!proto" {
		if obj, ok := base.(Object); ok && obj.Base().Proto != nil {
			return obj.Base().Proto.impl
		}
		return NoType
	}
	fn := base.FunctionType()
	if fn == nil {
		return NoType
	}
	var v Value
	if prop == "!ret" {
		v = fn.Retval
	} else {
		n, err := strconv.Atoi(prop[1:])
		if err != nil || n < 0 || n >= len(fn.Args) {
			return NoType
		}
		v = fn.Args[n]
	}
	if t := v.GetType(false); t != nil {
		return t
	}
	return NoType
}

// ParseType parses a type specification, resolving names against the
// current definitions.
func (cx *Context) ParseType(spec string) (Value, error) {
	return cx.ParseTypeSpec(spec, "", nil, false)
}

// ParseTypeSpec parses a type specification. name names a parsed
// function type; base, if set, is a placeholder created before the
// definition was known and is filled in rather than replaced; forceNew
// creates a fresh instance for "+Path" instead of the shared one.
func (cx *Context) ParseTypeSpec(spec, name string, base Object, forceNew bool) (v Value, err error) {
	defer recoverSpec(&err)

	p := &typeParser{cx: cx, spec: spec, base: base, forceNew: forceNew}
	parsed := p.parseType(false, name, true)
	if p.pos < len(spec) {
		p.fail("unexpected trailing input")
	}
	if parsed.computed() {
		p.fail("computed type outside a function")
	}

	if fn, ok := parsed.v.(*Fn); ok && strings.HasPrefix(spec, "fn(") {
		for i, arg := range fn.Args {
			argFn, ok := arg.(*Fn)
			if !ok || len(argFn.Args) == 0 {
				continue
			}
			cx.addEffect(fn, func(_ Value, fArgs []Value, _ []any) Value {
				if i < len(fArgs) {
					fArgs[i].Propagate(cx.NewCallee(cx.TopScope, argFn.Args, nil, NoType), 0)
				}
				return nil
			}, false)
		}
	}
	return parsed.v, nil
}

func (cx *Context) parseComputed(spec string) (e expr, err error) {
	defer recoverSpec(&err)
	p := &typeParser{cx: cx, spec: spec}
	e = p.parseType(true, "", false)
	if p.pos < len(spec) {
		p.fail("unexpected trailing input")
	}
	return e, nil
}

// addEffect chains handler in front of fn's computed return. The
// handler's result replaces the return value only if replaceRet is set.
func (cx *Context) addEffect(fn *Fn, handler ComputeFunc, replaceRet bool) {
	oldCompute := fn.ComputeRet
	rv := fn.Retval
	fn.ComputeRet = func(self Value, args []Value, nodes []any) Value {
		handled := handler(self, args, nodes)
		old := rv
		if oldCompute != nil {
			old = oldCompute(self, args, nodes)
		}
		if replaceRet {
			return orNoType(handled)
		}
		return old
	}
}

var customEffectRe = regexp.MustCompile(`^custom (\S+)\s*(.*)`)

// ParseEffect attaches a named side effect to fn's calls:
//
//	propagate A B              values of A flow into B
//	call [and return ]F [this=S] ARGS...
//	copy A B                   own properties of A are defined on B
//	custom NAME                a registered custom function
func (cx *Context) ParseEffect(effect string, fn *Fn) (err error) {
	defer recoverSpec(&err)

	switch {
	case strings.HasPrefix(effect, "propagate "):
		p := &typeParser{cx: cx, spec: effect, pos: len("propagate ")}
		origin := p.parseType(true, "", false)
		if !p.eat(" ") {
			p.fail("expected propagation target")
		}
		target := p.parseType(true, "", false)
		cx.addEffect(fn, func(self Value, args []Value, nodes []any) Value {
			origin.eval(self, args, nodes).Propagate(target.eval(self, args, nodes), 0)
			return nil
		}, false)

	case strings.HasPrefix(effect, "call "):
		andRet := strings.HasPrefix(effect[len("call "):], "and return ")
		start := len("call ")
		if andRet {
			start = len("call and return ")
		}
		p := &typeParser{cx: cx, spec: effect, pos: start}
		getCallee := p.parseType(true, "", false)
		var getSelf *expr
		if p.eat(" this=") {
			s := p.parseType(true, "", false)
			getSelf = &s
		}
		var getArgs []expr
		for p.eat(" ") {
			getArgs = append(getArgs, p.parseType(true, "", false))
		}
		cx.addEffect(fn, func(self Value, args []Value, nodes []any) Value {
			callee := getCallee.eval(self, args, nodes)
			var slf Value = NoType
			if getSelf != nil {
				slf = getSelf.eval(self, args, nodes)
			}
			as := make([]Value, len(getArgs))
			for i, a := range getArgs {
				as[i] = a.eval(self, args, nodes)
			}
			var result Value = NoType
			if andRet {
				result = cx.NewAVal()
			}
			callee.Propagate(cx.NewCallee(slf, as, nil, result), 0)
			return result
		}, andRet)

	case strings.HasPrefix(effect, "custom "):
		m := customEffectRe.FindStringSubmatch(effect)
		if m == nil {
			panic(specPanic{&SpecError{Spec: effect, Msg: "malformed custom effect"}})
		}
		if f, ok := cx.customFns[m[1]]; ok {
			cx.addEffect(fn, f, false)
		} else {
			cx.Logger.Debug("unknown custom effect", "name", m[1])
		}

	case strings.HasPrefix(effect, "copy "):
		p := &typeParser{cx: cx, spec: effect, pos: len("copy ")}
		getFrom := p.parseType(true, "", false)
		p.eat(" ")
		getTo := p.parseType(true, "", false)
		cx.addEffect(fn, func(self Value, args []Value, nodes []any) Value {
			from := getFrom.eval(self, args, nodes)
			to := getTo.eval(self, args, nodes)
			from.ForAllProps(PropHandlerFunc(func(prop string, val *AVal, local bool) {
				if local && prop != IndexProp {
					to.Propagate(&PropDef{Prop: prop, Value: val}, 0)
				}
			}))
			return nil
		}, false)

	default:
		return errors.WithStack(&SpecError{Spec: effect, Msg: "unknown effect type"})
	}
	return nil
}

// RegisterFunction makes f available to "custom NAME" effects and
// "!custom:NAME" references.
func (cx *Context) RegisterFunction(name string, f ComputeFunc) {
	cx.customFns[name] = f
}
