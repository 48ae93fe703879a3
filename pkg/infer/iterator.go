package infer

// GeneratorProtoName is the definition name the generator prototype is
// looked up under when building iterator results.
const GeneratorProtoName = "generator_prototype"

// generatorResult builds an iterator object whose next method accepts
// input and yields {done: bool, value: output}.
func (cx *Context) generatorResult(input, output Value) *Obj {
	ret := cx.NewObj(cx.ObjectProto, "")
	ret.DefProp("done", nil).AddType(cx.Bool, 0)
	output.Propagate(ret.DefProp("value", nil), 0)

	var args []Value
	var names []string
	if input != nil && input != NoType {
		args, names = []Value{input}, []string{"?"}
	}
	method := cx.NewFn("", NoType, args, names, ret)

	proto := cx.ObjectProto
	if gp, ok := cx.lookupDefinition(GeneratorProtoName).(Object); ok {
		proto = gp.Base()
	}
	result := cx.NewObj(proto, "")
	result.DefProp("next", nil).AddType(method, 0)
	return result
}

// maybeIterator wraps a generator function's result in an iterator.
// Functions without a computed return share one iterator object.
func (cx *Context) maybeIterator(fn *Fn, output Value) Value {
	if !fn.Generator {
		return output
	}
	if fn.ComputeRet == nil {
		if fn.genResult == nil {
			fn.genResult = cx.generatorResult(fn.YieldVal, output)
		}
		return fn.genResult
	}
	return cx.generatorResult(fn.YieldVal, output)
}

// lookupDefinition finds a named definition in any loaded origin, most
// recent first.
func (cx *Context) lookupDefinition(name string) Value {
	for i := len(cx.origins) - 1; i >= 0; i-- {
		if v, ok := cx.definitions[cx.origins[i]][name]; ok {
			return v
		}
	}
	return nil
}
