// Package condense turns the types an analysis inferred for some origins
// back into an environment document, so that a library analyzed once can
// later be loaded cheaply with def.Load.
package condense

import (
	"strings"

	"github.com/vito/tern/pkg/def"
	"github.com/vito/tern/pkg/infer"
)

// Options tunes the emitted document.
type Options struct {
	// Sort orders the keys of every emitted object alphabetically.
	Sort bool
	// OmitSpans leaves out "!span" entries.
	OmitSpans bool
	// Span renders the source span of a node that has no explicit span.
	// It is only consulted for nodes of the condensed origins.
	Span func(originNode any, origin string) string
}

// Condense walks the type graph from the top scope and emits every type
// that belongs to one of origins under the shortest path it can be
// reached by. name defaults to the first origin.
//
// Condensation records paths on the objects it visits, so a context
// should be condensed at most once.
func Condense(cx *infer.Context, origins []string, name string, opts Options) *def.Object {
	if name == "" && len(origins) > 0 {
		name = origins[0]
	}
	s := newState(cx, origins, name, opts)

	cx.TopScope.Path = "<top>"
	cx.TopScope.Reached("", s, false)

	for i := 0; i < len(s.patchUp); i++ {
		s.patchUpSimpleInstance(s.patchUp[i])
	}

	s.types.each(func(path string, info *typeInfo) {
		s.store(s.createPath(strings.Split(path, ".")), info)
	})
	s.altPaths.each(func(path string, t infer.Type) {
		s.storeAlt(path, t)
	})

	if s.defines.Len() == 0 {
		s.output.Delete("!define")
	}

	cx.Logger.Debug("condensed",
		"origins", origins,
		"types", len(s.types.keys),
		"aliases", len(s.altPaths.keys))

	return simplify(s.output, opts.Sort).(*def.Object)
}

// pathLen weighs a path by its steps; steps through a function signature
// or prototype ("!0", "!ret", "!proto") count as ten.
func pathLen(path string) int {
	n := 1
	for i := 0; i < len(path); i++ {
		if path[i] != '.' {
			continue
		}
		if i+1 < len(path) && path[i+1] == '!' {
			n += 10
		} else {
			n++
		}
	}
	return n
}

func joinPath(path, id string) string {
	if path == "" {
		return id
	}
	return path + "." + id
}

func pathOf(t infer.Type) string {
	if o, ok := t.(infer.Object); ok {
		return o.Base().Path
	}
	return ""
}

func originOf(v infer.Value) string {
	switch v := v.(type) {
	case *infer.AVal:
		return v.Origin
	case infer.Type:
		return v.Origin()
	}
	return ""
}

func docOf(v infer.Value) string {
	switch v := v.(type) {
	case *infer.AVal:
		return v.Doc
	case infer.Object:
		return v.Base().Doc
	}
	return ""
}

func spanOf(v infer.Value) (string, any) {
	switch v := v.(type) {
	case *infer.AVal:
		return v.Span, v.OriginNode
	case infer.Object:
		return v.Base().Span, v.Base().OriginNode
	}
	return "", nil
}

func metaDataOf(t infer.Type) any {
	if o, ok := t.(infer.Object); ok {
		return o.Base().MetaData
	}
	return nil
}

// simplify collapses objects that carry nothing but a "!type" into the
// type string itself.
func simplify(data any, sortKeys bool) any {
	obj, ok := data.(*def.Object)
	if !ok {
		return data
	}
	sawType, sawOther := false, false
	for _, key := range obj.Keys() {
		if key == "!type" {
			sawType = true
		} else {
			sawOther = true
		}
		if key != "!data" {
			v, _ := obj.Get(key)
			obj.Set(key, simplify(v, sortKeys))
		}
	}
	if sawType && !sawOther {
		v, _ := obj.Get("!type")
		return v
	}
	if sortKeys {
		obj.Sort()
	}
	return obj
}
