package condense

import (
	"slices"
	"strings"

	"github.com/vito/tern/pkg/def"
	"github.com/vito/tern/pkg/infer"
)

type typeInfo struct {
	typ    infer.Type
	span   string
	doc    string
	data   any
	byName bool
}

// ordered is a map that iterates in insertion order.
type ordered[V any] struct {
	keys []string
	vals map[string]V
}

func newOrdered[V any]() *ordered[V] {
	return &ordered[V]{vals: map[string]V{}}
}

func (o *ordered[V]) get(key string) (V, bool) {
	v, ok := o.vals[key]
	return v, ok
}

func (o *ordered[V]) set(key string, v V) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

func (o *ordered[V]) delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	if i := slices.Index(o.keys, key); i >= 0 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
}

func (o *ordered[V]) each(f func(string, V)) {
	for _, key := range o.keys {
		f(key, o.vals[key])
	}
}

type state struct {
	cx        *infer.Context
	origins   []string
	maxOrigin int
	opts      Options

	output  *def.Object
	defines *def.Object

	types    *ordered[*typeInfo]
	altPaths *ordered[infer.Type]
	patchUp  []*infer.Obj
}

var _ infer.Reacher = (*state)(nil)

func newState(cx *infer.Context, origins []string, name string, opts Options) *state {
	s := &state{
		cx:        cx,
		origins:   origins,
		maxOrigin: -1,
		opts:      opts,
		output:    def.NewObject(),
		types:     newOrdered[*typeInfo](),
		altPaths:  newOrdered[infer.Type](),
	}
	for _, origin := range origins {
		s.maxOrigin = max(s.maxOrigin, cx.OriginIndex(origin))
	}
	s.output.Set("!name", name)
	s.defines = s.output.Ensure("!define")
	return s
}

func (s *state) isTarget(origin string) bool {
	return slices.Contains(s.origins, origin)
}

func (s *state) span(v infer.Value) string {
	origin := originOf(v)
	if s.opts.OmitSpans || !s.isTarget(origin) {
		return ""
	}
	span, node := spanOf(v)
	if span != "" {
		return span
	}
	if s.opts.Span == nil || node == nil {
		return ""
	}
	return s.opts.Span(node, origin)
}

// Reach implements infer.Reacher.
func (s *state) Reach(v infer.Value, path, id string, byName bool) {
	if byName {
		t := v.GetType(true)
		if t == nil {
			return
		}
		v = t
	}
	s.reach(v, path, id, byName)
}

// PatchUp implements infer.Reacher.
func (s *state) PatchUp(o *infer.Obj) {
	if !slices.Contains(s.patchUp, o) {
		s.patchUp = append(s.patchUp, o)
	}
}

func (s *state) reach(v infer.Value, path, id string, byName bool) {
	actual := v.GetType(false)
	if actual == nil {
		return
	}

	origin := originOf(v)
	if origin == "" {
		origin = actual.Origin()
	}
	relevant := false
	if origin != "" {
		// Newer than anything being condensed.
		if s.cx.OriginIndex(origin) > s.maxOrigin {
			return
		}
		relevant = s.isTarget(origin)
	}

	newPath := joinPath(path, id)
	oldPath := pathOf(actual)
	if oldPath != "" && pathLen(oldPath) <= pathLen(newPath) {
		if relevant {
			s.altPaths.set(newPath, actual)
		}
		return
	}

	if o, ok := actual.(infer.Object); ok {
		o.Base().Path = newPath
	}
	if !actual.Reached(newPath, s, !relevant) || !relevant {
		return
	}

	data, known := s.types.get(oldPath)
	if known {
		s.types.delete(oldPath)
		s.altPaths.set(oldPath, actual)
		data.byName = data.byName && byName
	} else {
		data = &typeInfo{typ: actual, byName: byName}
	}

	indirect := infer.Value(actual) != v && s.isTarget(actual.Origin())
	if span := s.span(v); span != "" {
		data.span = span
	} else if span := s.span(actual); indirect && span != "" {
		data.span = span
	}
	if doc := docOf(v); doc != "" {
		data.doc = doc
	} else if doc := docOf(actual); indirect && doc != "" {
		data.doc = doc
	}
	data.data = metaDataOf(actual)
	s.types.set(newPath, data)
}

// patchUpSimpleInstance names an instance after its constructor and
// reaches its own properties under the constructor's path.
func (s *state) patchUpSimpleInstance(o *infer.Obj) {
	path := o.Proto.HasCtor.Path
	if path != "" {
		o.NameOverride = "+" + path
	} else {
		path = o.Path
	}
	for _, name := range o.PropNames() {
		s.reach(o.Props()[name], path, name, false)
	}
}

// child descends into key, creating it if missing. Descending into a
// value that is not an object yields nil.
func child(base *def.Object, key string) *def.Object {
	if base == nil {
		return nil
	}
	if v, ok := base.Get(key); ok {
		obj, _ := v.(*def.Object)
		return obj
	}
	obj := def.NewObject()
	base.Set(key, obj)
	return obj
}

// createPath finds or creates the output object for a path. Paths through
// a signature, and types only reached by name, live under "!define".
func (s *state) createPath(parts []string) *def.Object {
	base := s.output
	path := ""
	for _, part := range parts {
		path = joinPath(path, part)
		me, _ := s.types.get(path)
		if strings.HasPrefix(part, "!") || (me != nil && me.byName) {
			base = child(s.defines, path)
		} else {
			base = child(base, part)
		}
	}
	return base
}

func (s *state) store(out *def.Object, info *typeInfo) {
	if out == nil {
		return
	}
	name := infer.TypeName(info.typ)
	if name != pathOf(info.typ) && name != "?" {
		out.Set("!type", name)
	} else if o, ok := info.typ.(infer.Object); ok {
		if proto := o.Base().Proto; proto != nil && proto != s.cx.ObjectProto {
			if protoName := infer.TypeName(proto.AsType()); protoName != "?" {
				out.Set("!proto", protoName)
			}
		}
	}
	if info.span != "" {
		out.Set("!span", info.span)
	}
	if info.doc != "" {
		out.Set("!doc", info.doc)
	}
	if info.data != nil {
		out.Set("!data", info.data)
	}
}

// storeAlt records a longer path to an already emitted type as a
// reference to it.
func (s *state) storeAlt(path string, t infer.Type) {
	parts := strings.Split(path, ".")
	last := parts[len(parts)-1]
	parts = parts[:len(parts)-1]
	if strings.HasPrefix(last, "!") {
		return
	}

	known, _ := s.types.get(strings.Join(parts, "."))
	base := s.createPath(parts)
	if known != nil {
		if _, plain := known.typ.(*infer.Obj); !plain {
			return
		}
	}
	if base == nil || base.Has(last) {
		return
	}
	ref := pathOf(t)
	if o, ok := t.(infer.Object); ok && o.Base().NameOverride != "" {
		ref = o.Base().NameOverride
	}
	base.Set(last, ref)
}
