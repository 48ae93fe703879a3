package infer

import "strconv"

// MaybeInstantiate adds score to the instantiation score of the function
// owning scope.
func (cx *Context) MaybeInstantiate(scope *Scope, score float64) {
	if scope == nil {
		return
	}
	if fn := FunctionScope(scope).FnType; fn != nil {
		fn.InstantiateScore += score
	}
}

// MaybeTagAsInstantiated switches fn to per-call re-inference if its
// instantiation score is high enough for the size of its body. The
// enclosing function gets half the score, since instantiating fn is
// only useful if its callers are instantiated too.
func (cx *Context) MaybeTagAsInstantiated(fn *Fn) bool {
	score := fn.InstantiateScore
	if cx.disabled != nil || score <= 0 || len(fn.Args) == 0 || fn.Body == nil || fn.Scope == nil ||
		!fn.Body.SmallerThan(int(score*cx.Policy.InstantiateSizeFactor)) {
		fn.InstantiateScore = 0
		return false
	}
	if fn.Scope.Prev != nil {
		cx.MaybeInstantiate(fn.Scope.Prev, score/2)
	}
	cx.setFunctionInstantiated(fn)
	cx.Logger.Debug("instantiating function", "name", fn.Name, "score", score)
	return true
}

func (cx *Context) setFunctionInstantiated(fn *Fn) {
	// Fresh parameters, so that call sites no longer leak into each
	// other through the shared ones.
	for i := range fn.Args {
		fn.Args[i] = cx.NewAVal()
	}
	fn.Self = cx.NewAVal()

	fn.ComputeRet = func(self Value, args []Value, _ []any) Value {
		return cx.withDisabled(fn, func() Value {
			oldOrigin := cx.SetOrigin(fn.origin)
			defer cx.SetOrigin(oldOrigin)

			scope := fn.Scope
			scopeCopy := cx.NewScope(scope.Prev, scope.OriginNode, false)
			for _, name := range scope.propNames {
				local := scopeCopy.DefProp(name, scope.props[name].OriginNode)
				for i, arg := range args {
					if i < len(fn.ArgNames) && fn.ArgNames[i] == name {
						arg.Propagate(local, 0)
					}
				}
			}

			argNames := make([]string, len(args))
			for i := range argNames {
				if i < len(fn.ArgNames) {
					argNames[i] = fn.ArgNames[i]
				} else {
					argNames[i] = "?"
				}
			}

			fnCopy := cx.NewFn(fn.Name, self, args, argNames, NoType)
			fnCopy.Generator = fn.Generator
			fnCopy.OriginNode = fn.OriginNode
			fnCopy.Scope = scopeCopy
			fnCopy.Body = fn.Body
			scopeCopy.FnType = fnCopy

			if fn.Arguments != nil {
				argset := cx.NewAVal()
				fnCopy.Arguments = argset
				scopeCopy.DefProp("arguments", nil).AddType(cx.NewArr(argset), 0)
				for _, arg := range args {
					arg.Propagate(argset, 0)
				}
			}

			fn.Body.Infer(scopeCopy)
			return fnCopy.Retval
		})
	}
}

// MaybeTagAsGeneric gives fn a computed return if its return value can be
// traced back to its receiver or one of its parameters, possibly as the
// element type of a returned array.
func (cx *Context) MaybeTagAsGeneric(fn *Fn) bool {
	target := fn.Retval
	if target == NoType {
		return false
	}

	asArray := false
	if !target.IsEmpty() {
		if arr, ok := target.GetType(true).(*Arr); ok {
			target = arr.GetProp(IndexProp)
			asArray = true
		}
	}

	var explore func(v Value, path string, depth int) string
	explore = func(v Value, path string, depth int) string {
		av, ok := v.(*AVal)
		if !ok || depth > cx.Policy.GenericSearchDepth {
			return ""
		}
		for _, fw := range av.forward {
			dest, ext := fw.PropagatesTo()
			if dest == nil {
				continue
			}
			newPath := path + ext
			if Value(dest) == target {
				return newPath
			}
			if found := explore(dest, newPath, depth+1); found != "" {
				return found
			}
		}
		return ""
	}

	found := explore(fn.Self, "!this", 0)
	for i := 0; found == "" && i < len(fn.Args); i++ {
		found = explore(fn.Args[i], "!"+strconv.Itoa(i), 0)
	}
	if found == "" {
		return false
	}
	if asArray {
		found = "[" + found + "]"
	}

	parsed, err := cx.parseComputed(found)
	if err != nil {
		cx.Logger.Debug("generic return path did not parse", "path", found, "err", err)
		return false
	}
	fn.ComputeRet = parsed.compute()
	fn.ComputeRetSource = found
	cx.Logger.Debug("tagged function as generic", "name", fn.Name, "path", found)
	return true
}

// TagFunction applies the instantiation and generic heuristics to a
// function whose body has just been inferred.
func (cx *Context) TagFunction(fn *Fn) {
	if !cx.MaybeTagAsInstantiated(fn) {
		cx.MaybeTagAsGeneric(fn)
	}
}
