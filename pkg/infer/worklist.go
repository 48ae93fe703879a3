package infer

import (
	"time"

	"github.com/pkg/errors"
)

// ErrTimedOut is returned by Context.Run when propagation exceeds the
// deadline carried by its context.
var ErrTimedOut = errors.New("infer: timed out")

// timedOut is the panic payload used to unwind out of a deep propagation
// chain; Context.Run converts it back into ErrTimedOut.
type timedOut struct{}

type workItem struct {
	typ    Type
	target Sink
	weight int
	depth  int
}

// worklist is the single pending-propagation queue of a Context. Only the
// outermost propagation drains it; nested propagations append to it.
type worklist struct {
	items []workItem
	depth int
}

func (w *worklist) add(cx *Context, t Type, target Sink, weight int) {
	limit := cx.Policy.MaxWorkDepth - cx.Policy.WorkDepthDecay*float64(len(w.items))
	if float64(w.depth) < limit {
		w.items = append(w.items, workItem{t, target, weight, w.depth})
	}
}

// propagateAll delivers t to every target, through the worklist.
func (cx *Context) propagateAll(t Type, targets []Sink, weight int) {
	cx.withWorklist(func(w *worklist) {
		for _, target := range targets {
			w.add(cx, t, target, weight)
		}
	})
}

// propagateEach delivers every type to target, through the worklist.
func (cx *Context) propagateEach(types []Type, target Sink, weight int) {
	cx.withWorklist(func(w *worklist) {
		for _, t := range types {
			w.add(cx, t, target, weight)
		}
	})
}

func (cx *Context) withWorklist(f func(w *worklist)) {
	if cx.work != nil {
		f(cx.work)
		return
	}

	w := &worklist{}
	cx.work = w
	f(w)

	for i := 0; i < len(w.items); i++ {
		if !cx.deadline.IsZero() && !time.Now().Before(cx.deadline) {
			panic(timedOut{})
		}
		item := w.items[i]
		w.depth = item.depth + 1
		item.target.AddType(item.typ, item.weight)
	}

	cx.work = nil
}

// disabledFrame is one entry of the stack of functions whose computed
// return types are currently being evaluated.
type disabledFrame struct {
	fn   *Fn
	prev *disabledFrame
}

func (cx *Context) withDisabled(fn *Fn, body func() Value) Value {
	cx.disabled = &disabledFrame{fn: fn, prev: cx.disabled}
	defer func() { cx.disabled = cx.disabled.prev }()
	return body()
}
