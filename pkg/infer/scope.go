package infer

// Scope is a variable environment. Its variables are properties and its
// prototype is the enclosing scope. Scopes never enter the reverse
// property index.
type Scope struct {
	Obj

	Prev    *Scope
	IsBlock bool
	// FnType is the function this scope belongs to, if any.
	FnType *Fn
}

// NewScope creates a scope nested in prev; a nil prev nests it directly
// in Object.prototype.
func (cx *Context) NewScope(prev *Scope, originNode any, isBlock bool) *Scope {
	s := &Scope{Prev: prev, IsBlock: isBlock}
	proto := cx.ObjectProto
	if prev != nil {
		proto = &prev.Obj
	}
	s.init(cx, s, proto, "")
	s.OriginNode = originNode
	s.isScope = true
	return s
}

// DefVar finds name in s or an enclosing scope, defining it in the
// outermost scope if it is not found.
func (s *Scope) DefVar(name string, originNode any) *AVal {
	for cur := s; ; cur = cur.Prev {
		if found, ok := cur.props[name]; ok {
			return found
		}
		if cur.Prev == nil {
			return cur.DefProp(name, originNode)
		}
	}
}

// Lookup finds name in s or an enclosing scope.
func (s *Scope) Lookup(name string) *AVal {
	for cur := s; cur != nil; cur = cur.Prev {
		if found, ok := cur.props[name]; ok {
			return found
		}
	}
	return nil
}

// FunctionScope skips block scopes up to the nearest function or top
// scope.
func FunctionScope(s *Scope) *Scope {
	for s.IsBlock && s.Prev != nil {
		s = s.Prev
	}
	return s
}
