// Package query answers questions about an analysis: what type lives at a
// path, what its documentation says, and which properties can follow it.
package query

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vito/tern/pkg/def"
	"github.com/vito/tern/pkg/infer"
)

// ErrNotFound is returned when a path does not lead to a value.
var ErrNotFound = errors.New("not found")

// DefaultDepth is how deeply TypeOf expands nested types when no depth is
// given.
const DefaultDepth = 1

// Engine serializes access to a Context. A Context is single threaded, so
// every query takes the engine's lock for its whole duration.
type Engine struct {
	// Timeout bounds each query. Zero means no limit beyond the caller's
	// context.
	Timeout time.Duration

	mu sync.Mutex
	cx *infer.Context
}

// New wraps cx.
func New(cx *infer.Context) *Engine {
	return &Engine{cx: cx}
}

// Context returns the wrapped analysis. Callers must not use it while
// queries are running.
func (e *Engine) Context() *infer.Context {
	return e.cx
}

func (e *Engine) run(ctx context.Context, f func() error) error {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	var ferr error
	if err := e.cx.Run(ctx, func() { ferr = f() }); err != nil {
		return err
	}
	return ferr
}

// Lookup resolves a dotted path. The first step names a global variable
// or a named definition; later steps name properties, or are one of
// "!proto", "!ret", "!this", "!N" (the Nth argument) and "<i>" (the
// element slot). The empty path resolves to the top scope.
func (e *Engine) Lookup(ctx context.Context, path string) (infer.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var v infer.Value
	err := e.run(ctx, func() error {
		var err error
		v, err = e.lookup(path)
		return err
	})
	return v, err
}

func (e *Engine) lookup(path string) (infer.Value, error) {
	if path == "" {
		return e.cx.TopScope, nil
	}
	steps := strings.Split(path, ".")
	v := e.global(steps[0])
	for i, step := range steps[1:] {
		if v == nil {
			return nil, errors.Wrapf(ErrNotFound, "%s", strings.Join(steps[:i+1], "."))
		}
		v = e.step(v, step)
	}
	if v == nil {
		return nil, errors.Wrapf(ErrNotFound, "%s", path)
	}
	return v, nil
}

func (e *Engine) global(name string) infer.Value {
	if av := e.cx.TopScope.HasProp(name, false); av != nil {
		return av
	}
	origins := e.cx.Origins()
	for i := len(origins) - 1; i >= 0; i-- {
		if v, ok := e.cx.Definitions(origins[i])[name]; ok {
			return v
		}
	}
	return nil
}

// step follows one path component without creating properties along the
// way, apart from a function's lazily made prototype.
func (e *Engine) step(v infer.Value, name string) infer.Value {
	switch {
	case name == "!proto":
		obj := v.ObjType()
		if obj == nil || obj.Base().Proto == nil {
			return nil
		}
		return obj.Base().Proto.AsType()
	case name == "!ret":
		if fn := v.FunctionType(); fn != nil {
			return fn.Retval
		}
		return nil
	case name == "!this":
		if fn := v.FunctionType(); fn != nil {
			return fn.Self
		}
		return nil
	case strings.HasPrefix(name, "!"):
		n, err := strconv.Atoi(name[1:])
		fn := v.FunctionType()
		if err != nil || fn == nil || n < 0 || n >= len(fn.Args) {
			return nil
		}
		return fn.Args[n]
	}

	if fn := v.FunctionType(); fn != nil && name == "prototype" {
		return fn.GetProp(name)
	}
	if obj := v.ObjType(); obj != nil {
		if av := obj.Base().HasProp(name, true); av != nil {
			return av
		}
		return nil
	}
	if prim, ok := v.GetType(false).(*infer.Prim); ok && prim.Proto != nil {
		if av := prim.Proto.HasProp(name, true); av != nil {
			return av
		}
	}
	return nil
}

// TypeOf describes the type at path, expanding nested types up to depth
// levels. A depth of zero or less means DefaultDepth.
func (e *Engine) TypeOf(ctx context.Context, path string, depth int) (string, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var desc string
	err := e.run(ctx, func() error {
		v, err := e.lookup(path)
		if err != nil {
			return err
		}
		desc = infer.Describe(v, depth)
		return nil
	})
	return desc, err
}

// Hover is what is known about the value at a path.
type Hover struct {
	Path   string `json:"path"`
	Type   string `json:"type"`
	Doc    string `json:"doc,omitempty"`
	URL    string `json:"url,omitempty"`
	Origin string `json:"origin,omitempty"`
	Span   string `json:"span,omitempty"`
}

// Hover describes the value at path along with its documentation. Facts
// recorded on the property win over those recorded on its type.
func (e *Engine) Hover(ctx context.Context, path string) (*Hover, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var h *Hover
	err := e.run(ctx, func() error {
		v, err := e.lookup(path)
		if err != nil {
			return err
		}
		h = &Hover{Path: path, Type: infer.Describe(v, DefaultDepth)}
		if av, ok := v.(*infer.AVal); ok {
			h.Doc, h.URL, h.Origin, h.Span = av.Doc, av.URL, av.Origin, av.Span
		}
		t := v.GetType(false)
		if t == nil {
			return nil
		}
		if h.Origin == "" {
			h.Origin = t.Origin()
		}
		if obj, ok := t.(infer.Object); ok {
			base := obj.Base()
			h.Doc = cmp.Or(h.Doc, base.Doc)
			h.URL = cmp.Or(h.URL, base.URL)
			h.Span = cmp.Or(h.Span, base.Span)
		}
		return nil
	})
	return h, err
}

// Completion is one candidate property.
type Completion struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	// Depth is the distance along the prototype chain of the object
	// declaring the property.
	Depth int `json:"depth"`
	// Guessed marks properties that only come from a made-up type or from
	// the way the value is used.
	Guessed bool `json:"guessed,omitempty"`
}

// Complete lists the properties of the value at path that start with
// prefix, nearest prototype first. When nothing is known about the value,
// its type is guessed from the properties read from it.
func (e *Engine) Complete(ctx context.Context, path, prefix string) ([]Completion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Completion
	err := e.run(ctx, func() error {
		v, err := e.lookup(path)
		if err != nil {
			return err
		}

		e.cx.CompletingProperty = prefix
		defer func() { e.cx.CompletingProperty = "" }()

		seen := map[string]bool{}
		guessing := false
		add := func(name string, obj *infer.Obj, depth int) {
			if seen[name] || !strings.HasPrefix(name, prefix) {
				return
			}
			seen[name] = true
			c := Completion{Name: name, Depth: depth, Guessed: guessing || obj == nil}
			if obj != nil {
				if av := obj.HasProp(name, false); av != nil {
					c.Type = infer.Describe(av, 0)
				}
			}
			out = append(out, c)
		}

		if av, ok := v.(*infer.AVal); ok && av.IsEmpty() {
			guessing = true
			av.GuessProperties(add)
		} else {
			v.GatherProperties(add, 0)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b Completion) int {
		return cmp.Or(cmp.Compare(a.Depth, b.Depth), cmp.Compare(a.Name, b.Name))
	})
	e.cx.Logger.Debug("completed", "path", path, "prefix", prefix, "candidates", len(out))
	return out, nil
}

// Define loads an environment document into the top scope and returns
// the origin it was loaded as.
func (e *Engine) Define(ctx context.Context, doc *def.Object) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	before := len(e.cx.Origins())
	err := e.run(ctx, func() error {
		return def.Load(e.cx, doc, nil)
	})
	if err != nil {
		return "", err
	}
	origins := e.cx.Origins()
	if name := doc.String("!name"); name != "" || len(origins) <= before {
		return name, nil
	}
	return origins[before], nil
}
