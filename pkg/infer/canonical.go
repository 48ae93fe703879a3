package infer

// canonicalType picks one representative of types, or nil if they mix
// kinds (arrays, functions, other objects, primitives) or differ in
// primitive. Ties go to the later candidate.
func canonicalType(types []Type) Type {
	var arrays, fns, objs int
	var prim *Prim
	for _, t := range types {
		switch t := t.(type) {
		case *Arr:
			arrays++
		case *Fn:
			fns++
		case Object:
			objs++
		case *Sym:
			if prim != nil && prim.Name != t.Name {
				return nil
			}
			prim = &t.Prim
		case *Prim:
			if prim != nil && prim.Name != t.Name {
				return nil
			}
			prim = t
		}
	}

	kinds := 0
	for _, n := range []int{arrays, fns, objs} {
		if n > 0 {
			kinds++
		}
	}
	if prim != nil {
		kinds++
	}
	if kinds > 1 {
		return nil
	}
	if prim != nil {
		return prim.impl
	}

	maxScore := 0
	var best Type
	for _, t := range types {
		score := 0
		switch {
		case arrays > 0:
			score = 1
			if !t.GetProp(IndexProp).IsEmpty() {
				score = 2
			}
		case fns > 0:
			score = 1
			fn := t.(*Fn)
			for _, a := range fn.Args {
				if !a.IsEmpty() {
					score++
				}
			}
			if !fn.Retval.IsEmpty() {
				score++
			}
		case objs > 0:
			score = 2
			if t.(Object).Base().Name != "" {
				score = 100
			}
		}
		if score >= maxScore {
			maxScore = score
			best = t
		}
	}
	return best
}

// kindOf classifies a type for similarity: two types can only be similar
// if they are of exactly the same kind.
func kindOf(t Type) string {
	switch t.(type) {
	case *Arr:
		return "arr"
	case *Fn:
		return "fn"
	case *Scope:
		return "scope"
	case *Obj:
		return "obj"
	case *Sym:
		return "sym"
	case *Prim:
		return "prim"
	}
	return ""
}

// similarType returns the type to keep if a and b are similar enough to
// be displayed as one, or nil.
func (cx *Context) similarType(a, b Type, depth int) Type {
	if a == nil || depth >= cx.Policy.SimilarityDepth {
		return b
	}
	if a == b || b == nil {
		return a
	}
	if kindOf(a) != kindOf(b) {
		return nil
	}

	switch a := a.(type) {
	case *Arr:
		innerA := a.GetProp(IndexProp).GetType(false)
		if innerA == nil {
			return b
		}
		innerB := b.GetProp(IndexProp).GetType(false)
		if innerB == nil || cx.similarType(innerA, innerB, depth+1) != nil {
			return b
		}
		return nil
	case *Fn:
		bf := b.(*Fn)
		if len(a.Args) != len(bf.Args) {
			return nil
		}
		for i, arg := range a.Args {
			if !cx.similarValue(arg, bf.Args[i], depth+1) {
				return nil
			}
		}
		if !cx.similarValue(a.Retval, bf.Retval, depth+1) || !cx.similarValue(a.Self, bf.Self, depth+1) {
			return nil
		}
		return a
	case *Obj:
		bo := b.(*Obj)
		propsA, propsB, same := len(a.props), len(bo.props), 0
		for name, val := range a.props {
			if other, ok := bo.props[name]; ok && cx.similarValue(val, other, depth+1) {
				same++
			}
		}
		if propsA > 0 && propsB > 0 && float64(same) < float64(max(propsA, propsB))/2 {
			return nil
		}
		if propsA > propsB {
			return a
		}
		return b
	}
	return nil
}

func (cx *Context) similarValue(a, b Value, depth int) bool {
	ta, tb := a.GetType(false), b.GetType(false)
	if ta == nil || tb == nil {
		return true
	}
	return cx.similarType(ta, tb, depth) != nil
}

// simplifyTypes merges similar types, keeping the first-seen order.
func simplifyTypes(types []Type) []Type {
	if len(types) == 0 {
		return nil
	}
	cx := contextOf(types[0])
	var found []Type
outer:
	for _, t := range types {
		for j, f := range found {
			if similar := cx.similarType(t, f, 0); similar != nil {
				found[j] = similar
				continue outer
			}
		}
		found = append(found, t)
	}
	return found
}

func contextOf(t Type) *Context {
	switch t := t.(type) {
	case Object:
		return t.Base().cx
	case *Sym:
		return t.cx
	case *Prim:
		return t.cx
	}
	return nil
}
