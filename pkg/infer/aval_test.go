package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() *Context {
	return NewContext(DefaultPolicy())
}

func TestAValWeights(t *testing.T) {
	cx := newTestContext()

	t.Run("higher weight replaces", func(t *testing.T) {
		av := cx.NewAVal()
		av.AddType(cx.Num, WeightSpeculativeThis)
		av.AddType(cx.Bool, WeightSpeculativeThis)
		av.AddType(cx.Str, WeightDefault)
		assert.Equal(t, []Type{cx.Str}, av.Types())
		assert.Equal(t, WeightDefault, av.MaxWeight())
	})

	t.Run("lower weight is dropped", func(t *testing.T) {
		av := cx.NewAVal()
		av.AddType(cx.Str, 0)
		av.AddType(cx.Num, WeightMadeupProto)
		av.AddType(cx.Str, WeightMadeupProto)
		assert.Equal(t, []Type{cx.Str}, av.Types())
	})

	t.Run("equal weight accumulates", func(t *testing.T) {
		av := cx.NewAVal()
		av.AddType(cx.Str, 0)
		av.AddType(cx.Num, 0)
		assert.Equal(t, []Type{cx.Str, cx.Num}, av.Types())
	})

	t.Run("same type at higher weight keeps the set", func(t *testing.T) {
		av := cx.NewAVal()
		av.AddType(cx.Num, WeightPhantomObj)
		av.AddType(cx.Num, WeightDefault)
		assert.Equal(t, []Type{cx.Num}, av.Types())
		assert.Equal(t, WeightDefault, av.MaxWeight())
	})
}

func TestAValNoDuplicates(t *testing.T) {
	cx := newTestContext()
	av := cx.NewAVal()

	var seen []Type
	av.OnAddType(func(t Type) { seen = append(seen, t) })

	for i := 0; i < 10; i++ {
		av.AddType(cx.Num, 0)
	}
	assert.Equal(t, []Type{cx.Num}, av.Types())
	assert.Len(t, seen, 1)
}

func TestDecideMerge(t *testing.T) {
	cx := newTestContext()
	av := cx.NewAVal()

	assert.Equal(t, mergeReplace, av.decideMerge(cx.Num, WeightDefault))
	av.AddType(cx.Num, WeightNewInstance)

	assert.Equal(t, mergeDrop, av.decideMerge(cx.Str, WeightMadeupProto))
	assert.Equal(t, mergeDrop, av.decideMerge(cx.Num, WeightNewInstance))
	assert.Equal(t, mergeAppend, av.decideMerge(cx.Str, WeightNewInstance))
	assert.Equal(t, mergeRaise, av.decideMerge(cx.Num, WeightDefault))
	assert.Equal(t, mergeReplace, av.decideMerge(cx.Str, WeightDefault))
}

func TestPropagate(t *testing.T) {
	cx := newTestContext()

	t.Run("existing and later types flow", func(t *testing.T) {
		a, b := cx.NewAVal(), cx.NewAVal()
		a.AddType(cx.Num, 0)
		a.Propagate(b, 0)
		a.AddType(cx.Str, 0)
		assert.Equal(t, []Type{cx.Num, cx.Str}, b.Types())
	})

	t.Run("weighted edges are muffled", func(t *testing.T) {
		a, b := cx.NewAVal(), cx.NewAVal()
		b.AddType(cx.Bool, WeightMadeupProto)
		a.Propagate(b, WeightSpeculativeThis)
		a.AddType(cx.Num, 0)
		assert.Equal(t, []Type{cx.Bool}, b.Types())
		require.Len(t, a.Forward(), 1)
		assert.IsType(t, &Muffle{}, a.Forward()[0])
	})

	t.Run("no edges into NoType", func(t *testing.T) {
		a := cx.NewAVal()
		a.Propagate(NoType, 0)
		assert.Empty(t, a.Forward())
	})

	t.Run("type targets are capped", func(t *testing.T) {
		a := cx.NewAVal()
		for i := 0; i < 3; i++ {
			a.Propagate(cx.NewAVal(), 0)
		}
		a.Propagate(cx.Num, 0)
		assert.Len(t, a.Forward(), 3)
	})
}

func TestAValCycle(t *testing.T) {
	cx := newTestContext()
	a, b := cx.NewAVal(), cx.NewAVal()
	a.Propagate(b, 0)
	b.Propagate(a, 0)

	a.AddType(cx.Num, 0)
	assert.Equal(t, []Type{cx.Num}, a.Types())
	assert.Equal(t, []Type{cx.Num}, b.Types())

	// Draining again without new facts changes nothing.
	a.AddType(cx.Num, 0)
	b.AddType(cx.Num, 0)
	assert.Equal(t, []Type{cx.Num}, a.Types())
	assert.Equal(t, []Type{cx.Num}, b.Types())
}

func TestGetType(t *testing.T) {
	cx := newTestContext()

	av := cx.NewAVal()
	assert.Nil(t, av.GetType(false))

	av.AddType(cx.Num, 0)
	assert.Equal(t, Type(cx.Num), av.GetType(false))

	av.AddType(cx.Str, 0)
	assert.Nil(t, av.GetType(false), "mixed primitives have no canonical type")
}

func TestMakeupType(t *testing.T) {
	t.Run("from type hints", func(t *testing.T) {
		cx := newTestContext()
		av := cx.NewAVal()
		av.Propagate(cx.NewAdded(cx.Num, cx.NewAVal()), 0)

		assert.False(t, cx.Guessing())
		assert.Equal(t, Type(cx.Num), av.GetType(true))
		assert.True(t, cx.Guessing())
	})

	t.Run("from property names", func(t *testing.T) {
		cx := newTestContext()
		point := cx.NewObj(cx.ObjectProto, "Point")
		point.DefProp("x", nil).AddType(cx.Num, 0)
		point.DefProp("y", nil).AddType(cx.Num, 0)
		other := cx.NewObj(cx.ObjectProto, "")
		other.DefProp("x", nil)

		av := cx.NewAVal()
		av.GetProp("x")
		av.GetProp("y")

		assert.Equal(t, Type(point), av.GetType(true))
		assert.True(t, cx.Guessing())
	})

	t.Run("completing property is ignored", func(t *testing.T) {
		cx := newTestContext()
		cx.NewObj(cx.ObjectProto, "Point").DefProp("x", nil)

		av := cx.NewAVal()
		av.GetProp("x")
		cx.CompletingProperty = "x"
		assert.Nil(t, av.GetType(true))
	})

	t.Run("from the prototype sibling", func(t *testing.T) {
		cx := newTestContext()
		proto := cx.NewObj(cx.ObjectProto, "")
		proto.DefProp("name", nil).AddType(cx.Str, 0)
		obj := cx.NewObj(proto, "")
		own := obj.DefProp("name", nil)

		assert.Equal(t, Type(cx.Str), own.GetType(true))
	})

	t.Run("guessed properties", func(t *testing.T) {
		cx := newTestContext()
		av := cx.NewAVal()
		av.GetProp("frob")
		av.GetProp("twiddle")

		var names []string
		av.GuessProperties(func(name string, _ *Obj, _ int) {
			names = append(names, name)
		})
		assert.Equal(t, []string{"frob", "twiddle"}, names)
	})
}

func TestDescribe(t *testing.T) {
	cx := newTestContext()

	av := cx.NewAVal()
	assert.Equal(t, "?", Describe(av, 0))

	av.AddType(cx.Num, 0)
	av.AddType(cx.Str, 0)
	assert.Equal(t, "number|string", Describe(av, 0))

	av.AddType(cx.Bool, 0)
	assert.Equal(t, "?", Describe(av, 0))

	obj := cx.NewObj(cx.ObjectProto, "")
	obj.DefProp("b", nil).AddType(cx.Num, 0)
	obj.DefProp("a", nil).AddType(cx.Str, 0)
	assert.Equal(t, "{a, b}", Describe(obj, 0))
	assert.Equal(t, "{a: string, b: number}", Describe(obj, 1))

	named := cx.NewObj(cx.ObjectProto, "Thing")
	assert.Equal(t, "Thing", Describe(named, 0))

	arr := cx.NewArr(cx.Num)
	assert.Equal(t, "[number]", Describe(arr, 0))
}
