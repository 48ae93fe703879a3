package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalType(t *testing.T) {
	cx := newTestContext()

	for _, example := range []struct {
		name  string
		types func() []Type
		want  func([]Type) Type
	}{
		{
			name:  "mixed primitives",
			types: func() []Type { return []Type{cx.Num, cx.Str} },
			want:  func([]Type) Type { return nil },
		},
		{
			name:  "same primitive",
			types: func() []Type { return []Type{cx.Num, cx.Num} },
			want:  func([]Type) Type { return cx.Num },
		},
		{
			name: "primitive and object",
			types: func() []Type {
				return []Type{cx.Num, cx.NewObj(cx.ObjectProto, "")}
			},
			want: func([]Type) Type { return nil },
		},
		{
			name: "array and object",
			types: func() []Type {
				return []Type{cx.NewArr(nil), cx.NewObj(cx.ObjectProto, "")}
			},
			want: func([]Type) Type { return nil },
		},
		{
			name: "named object wins",
			types: func() []Type {
				return []Type{
					cx.NewObj(cx.ObjectProto, "Named"),
					cx.NewObj(cx.ObjectProto, ""),
				}
			},
			want: func(ts []Type) Type { return ts[0] },
		},
		{
			name: "later object breaks ties",
			types: func() []Type {
				return []Type{
					cx.NewObj(cx.ObjectProto, ""),
					cx.NewObj(cx.ObjectProto, ""),
				}
			},
			want: func(ts []Type) Type { return ts[1] },
		},
		{
			name: "function with more known parts",
			types: func() []Type {
				return []Type{
					cx.NewFn("", NoType, []Value{cx.Num}, []string{"a"}, cx.Str),
					cx.NewFn("", NoType, []Value{cx.NewAVal()}, []string{"a"}, NoType),
				}
			},
			want: func(ts []Type) Type { return ts[0] },
		},
		{
			name: "array with known elements",
			types: func() []Type {
				return []Type{cx.NewArr(cx.Num), cx.NewArr(nil)}
			},
			want: func(ts []Type) Type { return ts[0] },
		},
	} {
		t.Run(example.name, func(t *testing.T) {
			types := example.types()
			assert.Equal(t, example.want(types), canonicalType(types))
		})
	}
}

func TestSimilarType(t *testing.T) {
	cx := newTestContext()

	point := func(x, y Value) *Obj {
		o := cx.NewObj(cx.ObjectProto, "")
		x.Propagate(o.DefProp("x", nil), 0)
		y.Propagate(o.DefProp("y", nil), 0)
		return o
	}

	t.Run("objects sharing most properties", func(t *testing.T) {
		a, b := point(cx.Num, cx.Num), point(cx.Num, cx.Str)
		assert.NotNil(t, cx.similarType(a, b, 0))
	})

	t.Run("objects sharing too little", func(t *testing.T) {
		a := point(cx.Num, cx.Num)
		b := cx.NewObj(cx.ObjectProto, "")
		b.DefProp("x", nil).AddType(cx.Str, 0)
		b.DefProp("z", nil).AddType(cx.Str, 0)
		assert.Nil(t, cx.similarType(a, b, 0))
	})

	t.Run("different kinds", func(t *testing.T) {
		assert.Nil(t, cx.similarType(cx.NewArr(nil), cx.NewObj(cx.ObjectProto, ""), 0))
		assert.Nil(t, cx.similarType(cx.Num, cx.Str, 0))
	})

	t.Run("functions of different arity", func(t *testing.T) {
		a := cx.NewFn("", NoType, []Value{cx.Num}, []string{"a"}, NoType)
		b := cx.NewFn("", NoType, nil, nil, NoType)
		assert.Nil(t, cx.similarType(a, b, 0))
	})

	t.Run("arrays of similar elements", func(t *testing.T) {
		a, b := cx.NewArr(point(cx.Num, cx.Num)), cx.NewArr(point(cx.Num, cx.Num))
		assert.NotNil(t, cx.similarType(a, b, 0))
		assert.Nil(t, cx.similarType(cx.NewArr(cx.Num), cx.NewArr(cx.Str), 0))
	})

	t.Run("simplified for display", func(t *testing.T) {
		av := cx.NewAVal()
		av.AddType(point(cx.Num, cx.Num), 0)
		av.AddType(point(cx.Num, cx.Num), 0)
		av.AddType(cx.Str, 0)
		assert.Len(t, simplifyTypes(av.Types()), 2)
		assert.Equal(t, "{x, y}|string", Describe(av, 0))
	})
}
