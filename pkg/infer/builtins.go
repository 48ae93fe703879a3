package infer

import "strings"

// Literal is implemented by syntax nodes passed as argument nodes that
// denote literal values; custom functions use it to read constant
// arguments. A nil LiteralValue means the null literal.
type Literal interface {
	LiteralValue() any
}

func literalString(node any) (string, bool) {
	lit, ok := node.(Literal)
	if !ok {
		return "", false
	}
	s, ok := lit.LiteralValue().(string)
	return s, ok
}

func isNullLiteral(node any) bool {
	lit, ok := node.(Literal)
	return ok && lit.LiteralValue() == nil
}

func nodeAt(nodes []any, i int) any {
	if i < len(nodes) {
		return nodes[i]
	}
	return nil
}

func registerBuiltinFunctions(cx *Context) {
	cx.RegisterFunction("Object_create", cx.objectCreate)
	cx.RegisterFunction("Object_defineProperty", cx.objectDefineProperty)
	cx.RegisterFunction("Object_defineProperties", cx.objectDefineProperties)
	cx.RegisterFunction("Function_bind", cx.functionBind)
	cx.RegisterFunction("Array_ctor", cx.arrayCtor)
	cx.RegisterFunction("Promise_ctor", cx.promiseCtor)
	cx.RegisterFunction("Promise_then", cx.promiseThen)
	cx.RegisterFunction("getOwnPropertySymbols", cx.getOwnPropertySymbols)
	cx.RegisterFunction("getSymbol", cx.getSymbol)
}

func (cx *Context) objectCreate(_ Value, args []Value, argNodes []any) Value {
	if len(argNodes) > 0 && isNullLiteral(argNodes[0]) {
		return cx.NewObj(nil, "")
	}
	result := cx.NewAVal()
	if len(args) > 0 {
		var spec Value = NoType
		if len(args) > 1 {
			spec = args[1]
		}
		args[0].Propagate(cx.NewCreated(result, spec), 0)
	}
	return result
}

func (cx *Context) objectDefineProperty(_ Value, args []Value, argNodes []any) Value {
	if len(args) < 3 || len(argNodes) < 3 {
		return NoType
	}
	name, ok := literalString(argNodes[1])
	if !ok {
		return NoType
	}
	connect := cx.NewAVal()
	args[0].Propagate(&PropDef{Prop: name, Value: connect, OriginNode: argNodes[1]}, 0)
	args[2].Propagate(&PropSpec{cx: cx, Target: connect}, 0)
	return NoType
}

func (cx *Context) objectDefineProperties(_ Value, args []Value, argNodes []any) Value {
	if len(args) < 2 {
		return NoType
	}
	obj := args[0]
	node := nodeAt(argNodes, 1)
	args[1].ForAllProps(PropHandlerFunc(func(prop string, val *AVal, local bool) {
		if !local {
			return
		}
		connect := cx.NewAVal()
		obj.Propagate(&PropDef{Prop: prop, Value: connect, OriginNode: node}, 0)
		val.Propagate(&PropSpec{cx: cx, Target: connect}, 0)
	}))
	return NoType
}

func (cx *Context) functionBind(self Value, args []Value, _ []any) Value {
	if len(args) == 0 {
		return NoType
	}
	result := cx.NewAVal()
	self.Propagate(cx.NewBound(args[0], args[1:], result), 0)
	return result
}

func (cx *Context) arrayCtor(_ Value, args []Value, _ []any) Value {
	arr := cx.NewArr(nil)
	// new Array(n) only sets the length.
	if len(args) != 1 || !args[0].HasType(cx.Num) {
		content := arr.GetProp(IndexProp)
		for _, arg := range args {
			arg.Propagate(content, 0)
		}
	}
	return arr
}

func (cx *Context) promiseProto() *Obj {
	if proto, ok := cx.lookupDefinition("Promise.prototype").(Object); ok {
		return proto.Base()
	}
	return nil
}

func (cx *Context) promiseCtor(_ Value, args []Value, argNodes []any) Value {
	proto := cx.promiseProto()
	if proto == nil || len(args) < 1 {
		return NoType
	}
	self := cx.NewObj(proto, "")
	valProp := self.DefProp(":t", nodeAt(argNodes, 0))
	valArg := cx.NewAVal()
	valArg.Propagate(valProp, 0)

	exec := cx.NewFn("execute", NoType, []Value{valArg}, []string{"value"}, NoType)
	reject := cx.lookupDefinition("Promise_reject")
	if reject == nil {
		reject = NoType
	}
	args[0].Propagate(cx.NewCallee(NoType, []Value{exec, reject}, nil, NoType), 0)
	return self
}

// promiseResolvesTo unwraps promises flowing into Output.
type promiseResolvesTo struct {
	nullSink
	output Sink
}

func (p *promiseResolvesTo) AddType(t Type, _ int) {
	if o, ok := t.(*Obj); ok && o.Name == "Promise" {
		if inner := o.HasProp(":t", true); inner != nil {
			inner.Propagate(p.output, 0)
			return
		}
	}
	t.Propagate(p.output, 0)
}

func (cx *Context) promiseThen(self Value, args []Value, argNodes []any) Value {
	var fn *Fn
	if len(args) > 0 {
		fn = args[0].FunctionType()
	}
	proto := cx.promiseProto()
	if fn == nil || proto == nil {
		return self
	}

	result := cx.NewObj(proto, "")
	value := result.DefProp(":t", nodeAt(argNodes, 0))
	if fn.Retval.IsEmpty() {
		if o, ok := self.GetType(true).(Object); ok {
			if inner := o.Base().HasProp(":t", true); inner != nil {
				inner.Propagate(value, WeightPromiseKeepValue)
			}
		}
	}
	fn.Retval.Propagate(&promiseResolvesTo{output: value}, 0)
	return result
}

func (cx *Context) getOwnPropertySymbols(_ Value, args []Value, _ []any) Value {
	if len(args) == 0 {
		return NoType
	}
	result := cx.NewAVal()
	args[0].ForAllProps(PropHandlerFunc(func(prop string, _ *AVal, local bool) {
		if local && strings.HasPrefix(prop, ":") {
			result.AddType(cx.Symbol(prop[1:], nil), 0)
		}
	}))
	return result
}

func (cx *Context) getSymbol(_ Value, _ []Value, argNodes []any) Value {
	if len(argNodes) == 0 {
		return NoType
	}
	name, ok := literalString(argNodes[0])
	if !ok {
		return NoType
	}
	return cx.Symbol(name, argNodes[0])
}
