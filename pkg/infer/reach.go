package infer

import "strconv"

// Reacher walks the type graph during condensation. Reached hooks call
// back into it for every value hanging off a type.
type Reacher interface {
	// Reach visits v found at path + "." + id. With byName set, v is
	// resolved with guessing and stored by name.
	Reach(v Value, path, id string, byName bool)
	// PatchUp defers a simple instance until all paths are known.
	PatchUp(o *Obj)
}

// IsSimpleInstance reports whether o is an instance of a constructor
// that adds nothing on top of what its prototype says.
func (o *Obj) IsSimpleInstance() bool {
	if _, isFn := o.impl.(*Fn); isFn {
		return false
	}
	return o.Proto != nil && o.Proto != o.cx.ObjectProto && o.Proto.HasCtor != nil && o.HasCtor == nil
}

func (o *Obj) Reached(path string, r Reacher, concrete bool) bool {
	if o.IsSimpleInstance() && !o.CondenseForceInclude {
		r.PatchUp(o)
		return true
	}
	if o.Proto != nil && !concrete {
		r.Reach(o.Proto.impl, path, "!proto", false)
	}

	for _, name := range o.propNames {
		r.Reach(o.props[name], path, name, false)
	}

	if _, isFn := o.impl.(*Fn); len(o.propNames) == 0 && !o.CondenseForceInclude && !isFn {
		o.NameOverride = "?"
		return false
	}
	return true
}

func (fn *Fn) Reached(path string, r Reacher, concrete bool) bool {
	fn.Obj.Reached(path, r, concrete)
	if !concrete {
		for i, arg := range fn.Args {
			r.Reach(arg, path, "!"+strconv.Itoa(i), true)
		}
		r.Reach(fn.Retval, path, "!ret", true)
	}
	return true
}

func (arr *Arr) Reached(path string, r Reacher, concrete bool) bool {
	if concrete {
		return true
	}
	if arr.Tuple > 0 {
		for i := 0; i < arr.Tuple; i++ {
			r.Reach(arr.GetProp(strconv.Itoa(i)), path, strconv.Itoa(i), true)
		}
	} else {
		r.Reach(arr.GetProp(IndexProp), path, IndexProp, true)
	}
	return true
}

func (p *Prim) Reached(string, Reacher, bool) bool { return true }

// Namer renders condensation type names. It keeps the stack of types
// being named so a type that contains itself is referred to by path.
type Namer struct {
	stack []Type
}

// Name renders v. Types already on the stack render as their path, or
// "?" if they have none.
func (n *Namer) Name(v Value) string {
	if v == nil {
		return "?"
	}
	t, isType := v.(Type)
	if !isType {
		return v.typeName(n)
	}
	for _, seen := range n.stack {
		if seen == t {
			if o, ok := t.(Object); ok && o.Base().Path != "" {
				return o.Base().Path
			}
			return "?"
		}
	}
	n.stack = append(n.stack, t)
	defer func() { n.stack = n.stack[:len(n.stack)-1] }()
	return t.typeName(n)
}

// TypeName renders v the way condensed documents refer to it.
func TypeName(v Value) string {
	return (&Namer{}).Name(v)
}

// ShellKind selects the type of a placeholder created before its
// definition is parsed.
type ShellKind int

const (
	ShellObj ShellKind = iota
	ShellFn
	ShellArr
)

// NewShell creates a named placeholder type whose contents are filled in
// later by ParseTypeSpec or Reinit.
func (cx *Context) NewShell(kind ShellKind, name string) Object {
	var shell Object
	switch kind {
	case ShellFn:
		shell = cx.NewFn(name, NoType, nil, nil, NoType)
	case ShellArr:
		shell = cx.NewArr(nil)
	default:
		shell = cx.NewObj(nil, "")
	}
	shell.Base().Name = name
	shell.Base().isShell = true
	return shell
}

// IsShell reports whether o is a placeholder that has not been filled in.
func (o *Obj) IsShell() bool { return o.isShell }

// ClearShell marks o as filled in.
func (o *Obj) ClearShell() { o.isShell = false }
