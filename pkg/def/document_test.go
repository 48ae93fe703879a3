package def

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	doc, err := DecodeJSON(strings.NewReader(`{
		"zeta": "z",
		"alpha": {"b": 1, "a": [true, null, "x", 2.5]},
		"mid": false
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, doc.Keys())
	assert.Equal(t, "z", doc.String("zeta"))

	alpha := doc.Object("alpha")
	require.NotNil(t, alpha)
	assert.Equal(t, []string{"b", "a"}, alpha.Keys())
	b, _ := alpha.Get("b")
	assert.Equal(t, 1.0, b)
	a, _ := alpha.Get("a")
	assert.Equal(t, []any{true, nil, "x", 2.5}, a)
	assert.Equal(t, []string{"x"}, alpha.Strings("a"))

	mid, ok := doc.Get("mid")
	assert.True(t, ok)
	assert.Equal(t, false, mid)

	t.Run("top level must be an object", func(t *testing.T) {
		_, err := DecodeJSON(strings.NewReader(`["nope"]`))
		assert.ErrorContains(t, err, "must be an object")
	})

	t.Run("syntax errors", func(t *testing.T) {
		_, err := DecodeJSON(strings.NewReader(`{"a": }`))
		assert.Error(t, err)
	})
}

func TestDecodeYAML(t *testing.T) {
	doc, err := ReadFile("testdata/geom.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"!name", "Point", "fill", "limits"}, doc.Keys())
	assert.Equal(t, []string{"propagate !1 !0.<i>"}, doc.Object("fill").Strings("!effects"))

	limits := doc.Object("limits")
	require.NotNil(t, limits)
	assert.Equal(t, "number", limits.String("count"))
	ratio, _ := limits.Get("ratio")
	assert.Equal(t, 0.5, ratio)
	enabled, _ := limits.Get("enabled")
	assert.Equal(t, true, enabled)
	nothing, ok := limits.Get("nothing")
	assert.True(t, ok)
	assert.Nil(t, nothing)

	t.Run("top level must be a mapping", func(t *testing.T) {
		_, err := DecodeYAML(strings.NewReader("- a\n- b\n"))
		assert.ErrorContains(t, err, "must be a mapping")
	})

	t.Run("aliases", func(t *testing.T) {
		doc, err := DecodeYAML(strings.NewReader("size: &n number\nw: *n\nh: *n\n"))
		require.NoError(t, err)
		assert.Equal(t, "number", doc.String("w"))
		assert.Equal(t, "number", doc.String("h"))
	})

	t.Run("recursive alias", func(t *testing.T) {
		_, err := DecodeYAML(strings.NewReader("a: &x\n  b: *x\n"))
		assert.ErrorContains(t, err, `recursive alias "x"`)
	})

	t.Run("alias expansion is capped", func(t *testing.T) {
		var src strings.Builder
		src.WriteString("l0: &l0 x\n")
		for i := 1; i <= 9; i++ {
			fmt.Fprintf(&src, "l%d: &l%d [", i, i)
			for j := range 10 {
				if j > 0 {
					src.WriteString(", ")
				}
				fmt.Fprintf(&src, "*l%d", i-1)
			}
			src.WriteString("]\n")
		}
		_, err := DecodeYAML(strings.NewReader(src.String()))
		assert.ErrorContains(t, err, "too many alias expansions")
	})
}

func TestObjectEditing(t *testing.T) {
	obj := NewObject()
	obj.Set("b", "1")
	obj.Set("a", "2")
	obj.Set("b", "3")
	assert.Equal(t, []string{"b", "a"}, obj.Keys())
	assert.Equal(t, "3", obj.String("b"))

	inner := obj.Ensure("c")
	inner.Set("y", 1)
	inner.Set("x", 2)
	assert.Same(t, inner, obj.Ensure("c"))

	obj.Delete("a")
	obj.Delete("missing")
	assert.Equal(t, []string{"b", "c"}, obj.Keys())
	assert.False(t, obj.Has("a"))

	obj.Set("a", "4")
	obj.Sort()
	assert.Equal(t, []string{"a", "b", "c"}, obj.Keys())
	assert.Equal(t, []string{"y", "x"}, inner.Keys())
}

func TestEncodeKeepsOrder(t *testing.T) {
	doc := NewObject()
	doc.Set("!name", "out")
	fn := doc.Ensure("zed")
	fn.Set("!type", "fn(x: number) -> !0")
	fn.Set("!effects", []any{"custom Object_create"})
	doc.Set("alpha", "bool")
	doc.Set("count", 3)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeJSON(&buf, doc))

		back, err := DecodeJSON(&buf)
		require.NoError(t, err)
		assert.Equal(t, doc.Keys(), back.Keys())
		assert.Equal(t, "fn(x: number) -> !0", back.Object("zed").String("!type"))
		count, _ := back.Get("count")
		assert.Equal(t, 3.0, count)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeYAML(&buf, doc))

		back, err := DecodeYAML(&buf)
		require.NoError(t, err)
		assert.Equal(t, doc.Keys(), back.Keys())
		assert.Equal(t, []string{"custom Object_create"}, back.Object("zed").Strings("!effects"))
		assert.Equal(t, "bool", back.String("alpha"))
	})
}
