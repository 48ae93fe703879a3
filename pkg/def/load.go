package def

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/vito/tern/pkg/infer"
)

// Load defines the contents of an environment document in cx. Top-level
// properties are defined on scope, or on the top scope if scope is nil.
//
// Loading happens in two passes. The first creates an empty placeholder
// for every object, function and array the document describes, so that
// types may refer to each other regardless of order. The second parses
// the type specifications into those placeholders.
func Load(cx *infer.Context, doc *Object, scope *infer.Scope) error {
	origin := doc.String("!name")
	if origin == "" {
		origin = fmt.Sprintf("env#%d", len(cx.Origins()))
	}

	l := &loader{cx: cx}
	if scope == nil {
		scope = cx.TopScope
	}

	cx.BeginDefinitions(origin)
	defer cx.EndDefinitions()

	load := func() {
		l.passOne(scope, doc, "")

		if defs := doc.Object("!define"); defs != nil {
			for _, name := range defs.Keys() {
				switch spec := defs.values[name].(type) {
				case string:
					cx.Define(name, cx.ParsePath(spec))
				case *Object:
					cx.Define(name, l.passOne(nil, spec, name))
				default:
					l.fail(name, errors.Errorf("unexpected %T in !define", spec))
				}
			}
			for _, name := range defs.Keys() {
				spec, ok := defs.values[name].(*Object)
				if !ok {
					continue
				}
				def, _ := cx.LocalDefinition(name)
				if obj, ok := def.(infer.Object); ok {
					l.passTwo(obj, spec, name)
				}
			}
		}

		l.passTwo(scope, doc, "")
	}

	if scope != cx.TopScope {
		cx.WithPathScope(scope, load)
	} else {
		load()
	}

	if l.err != nil {
		return errors.Wrapf(l.err, "load %s", origin)
	}
	cx.Logger.Debug("loaded environment", "origin", origin, "keys", doc.Len())
	return nil
}

type loader struct {
	cx  *infer.Context
	err error
}

// fail records the first error. Loading continues so that one bad entry
// does not leave the rest of the document undefined.
func (l *loader) fail(path string, err error) {
	if l.err == nil {
		l.err = errors.Wrapf(err, "at %s", path)
	}
}

func (l *loader) parse(spec, path string, base infer.Object, forceNew bool) infer.Value {
	v, err := l.cx.ParseTypeSpec(spec, path, base, forceNew)
	if err != nil {
		l.fail(path, err)
		return infer.NoType
	}
	return v
}

var shellTypeRe = regexp.MustCompile(`^(fn\(|\[|\+)`)

// isSimpleAnnotation reports whether spec only annotates a type that can
// be parsed in place, without a placeholder.
func isSimpleAnnotation(spec *Object) bool {
	tp := spec.String("!type")
	if tp == "" || shellTypeRe.MatchString(tp) {
		return false
	}
	for _, key := range spec.Keys() {
		switch key {
		case "!type", "!doc", "!url", "!span", "!data":
		default:
			return false
		}
	}
	return true
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func (l *loader) passOne(base infer.Object, spec *Object, path string) infer.Object {
	if base == nil {
		switch tp := spec.String("!type"); {
		case tp != "":
			switch {
			case strings.HasPrefix(tp, "fn("):
				base = l.cx.NewShell(infer.ShellFn, path)
			case tp[0] == '[':
				base = l.cx.NewShell(infer.ShellArr, path)
			case tp[0] == '+':
				base = l.cx.NewShell(infer.ShellObj, path)
			default:
				l.fail(path, errors.Errorf("invalid !type spec %q", tp))
				base = l.cx.NewShell(infer.ShellObj, path)
			}
		case spec.Has("!stdProto"):
			name := spec.String("!stdProto")
			proto := l.cx.StdProto(name)
			if proto == nil {
				l.fail(path, errors.Errorf("unknown !stdProto %q", name))
				base = l.cx.NewShell(infer.ShellObj, path)
			} else {
				base = proto.AsType()
			}
		default:
			base = l.cx.NewShell(infer.ShellObj, path)
		}
		base.Base().Name = path
	}

	for _, name := range spec.Keys() {
		if strings.HasPrefix(name, "!") {
			continue
		}
		inner, ok := spec.values[name].(*Object)
		if !ok || isSimpleAnnotation(inner) {
			continue
		}
		prop := base.DefProp(name, nil)
		l.passOne(prop.ObjType(), inner, joinPath(path, name)).Propagate(prop, 0)
	}
	return base
}

func (l *loader) passTwo(base infer.Object, spec *Object, path string) infer.Object {
	obj := base.Base()
	if obj.IsShell() {
		obj.ClearShell()
		if tp := spec.String("!type"); tp != "" {
			l.parse(tp, path, base, false)
		} else {
			proto := l.cx.ObjectProto
			if protoSpec := spec.String("!proto"); protoSpec != "" {
				if o := l.parse(protoSpec, path, nil, false).ObjType(); o != nil {
					proto = o.Base()
				}
			}
			obj.Reinit(proto, path)
		}
	}

	if fn, ok := base.(*infer.Fn); ok {
		for _, effect := range spec.Strings("!effects") {
			if err := l.cx.ParseEffect(effect, fn); err != nil {
				l.fail(path, err)
			}
		}
	}

	copyInfo(spec, obj)

	for _, name := range spec.Keys() {
		if strings.HasPrefix(name, "!") {
			continue
		}
		known := base.DefProp(name, nil)
		innerPath := joinPath(path, name)

		switch inner := spec.values[name].(type) {
		case string:
			if known.IsEmpty() {
				l.parse(inner, innerPath, nil, false).Propagate(known, 0)
			}
		case *Object:
			if !isSimpleAnnotation(inner) {
				if o := known.ObjType(); o != nil {
					l.passTwo(o, inner, innerPath)
				}
			} else if known.IsEmpty() {
				l.parse(inner.String("!type"), innerPath, nil, true).Propagate(known, 0)
			} else {
				continue
			}
			if doc := inner.String("!doc"); doc != "" {
				known.Doc = doc
			}
			if url := inner.String("!url"); url != "" {
				known.URL = url
			}
			if span := inner.String("!span"); span != "" {
				known.Span = span
			}
		}
	}
	return base
}

func copyInfo(spec *Object, obj *infer.Obj) {
	if doc := spec.String("!doc"); doc != "" {
		obj.Doc = doc
	}
	if url := spec.String("!url"); url != "" {
		obj.URL = url
	}
	if span := spec.String("!span"); span != "" {
		obj.Span = span
	}
	if data, ok := spec.Get("!data"); ok && data != nil {
		obj.MetaData = data
	}
}
