package infer

import "regexp"

// Prim is a primitive type: string, number or bool. Property reads go to
// its wrapper prototype.
type Prim struct {
	cx   *Context
	impl Type

	Name   string
	Proto  *Obj
	origin string
}

func (cx *Context) newPrim(proto *Obj, name string) *Prim {
	p := &Prim{cx: cx, Name: name, Proto: proto, origin: cx.curOrigin}
	p.impl = p
	return p
}

func (p *Prim) Origin() string { return p.origin }
func (p *Prim) isType()        {}

func (p *Prim) AddType(Type, int)             {}
func (p *Prim) TypeHint() Type                { return p.impl }
func (p *Prim) PropHint() string              { return "" }
func (p *Prim) PropagatesTo() (*AVal, string) { return nil, "" }

func (p *Prim) Propagate(target Sink, weight int) { target.AddType(p.impl, weight) }
func (p *Prim) HasType(t Type) bool               { return t == p.impl }
func (p *Prim) IsEmpty() bool                     { return false }
func (p *Prim) GetType(bool) Type                 { return p.impl }
func (p *Prim) FunctionType() *Fn                 { return nil }
func (p *Prim) ObjType() Object                   { return nil }
func (p *Prim) SymbolType() *Sym                  { return nil }
func (p *Prim) ForAllProps(PropHandler)           {}

func (p *Prim) GetProp(name string) Value {
	if p.Proto == nil {
		return NoType
	}
	if found := p.Proto.HasProp(name, true); found != nil {
		return found
	}
	return NoType
}

func (p *Prim) GatherProperties(f GatherFunc, depth int) {
	if p.Proto != nil {
		p.Proto.GatherProperties(f, depth)
	}
}

func (p *Prim) describe(int, Value) string { return p.Name }
func (p *Prim) typeName(*Namer) string     { return p.Name }
func (p *Prim) String() string             { return p.Name }

// Sym is an interned symbol. Symbol-keyed properties are stored under
// ":" followed by the symbol name.
type Sym struct {
	Prim

	SymName    string
	OriginNode any
}

func (s *Sym) SymbolType() *Sym { return s }

// AsPropName is the property name values keyed by s are stored under.
func (s *Sym) AsPropName() string {
	return ":" + s.SymName
}

func (s *Sym) typeName(*Namer) string { return s.AsPropName() }

var symbolNameRe = regexp.MustCompile(`[^\w$.]`)

// Symbol returns the interned symbol for name, creating it on first use.
// Characters other than word characters, "$" and "." become "_".
func (cx *Context) Symbol(name string, originNode any) *Sym {
	clean := symbolNameRe.ReplaceAllString(name, "_")
	if known, ok := cx.symbols[clean]; ok {
		if originNode != nil && known.OriginNode == nil {
			known.OriginNode = originNode
		}
		return known
	}
	s := &Sym{SymName: clean, OriginNode: originNode}
	s.cx = cx
	s.impl = s
	s.Name = "Symbol"
	s.Proto = cx.SymbolProto
	s.origin = cx.curOrigin
	cx.symbols[clean] = s
	return s
}
