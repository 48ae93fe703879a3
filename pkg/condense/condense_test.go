package condense

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"

	"github.com/vito/tern/pkg/def"
	"github.com/vito/tern/pkg/infer"
)

func load(t *testing.T, cx *infer.Context, src string) {
	t.Helper()
	doc, err := def.DecodeJSON(strings.NewReader(src))
	require.NoError(t, err)
	require.NoError(t, def.Load(cx, doc, nil))
}

func loadFile(t *testing.T, cx *infer.Context, path string) {
	t.Helper()
	doc, err := def.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, def.Load(cx, doc, nil))
}

func TestCondense(t *testing.T) {
	cx := infer.NewContext(infer.DefaultPolicy())
	loadFile(t, cx, "testdata/geo.json")

	out := Condense(cx, []string{"geo"}, "", Options{})

	var buf bytes.Buffer
	require.NoError(t, def.EncodeJSON(&buf, out))
	golden.Assert(t, buf.String(), "geo.golden")
}

func TestCondenseSorted(t *testing.T) {
	cx := infer.NewContext(infer.DefaultPolicy())
	loadFile(t, cx, "testdata/geo.json")

	out := Condense(cx, []string{"geo"}, "sorted", Options{Sort: true})
	assert.Equal(t, []string{"!name", "Point", "config", "origin", "scale", "tags"}, out.Keys())
	assert.Equal(t, "sorted", out.String("!name"))

	point := out.Object("Point")
	require.NotNil(t, point)
	assert.Equal(t, []string{"!type", "prototype"}, point.Keys())
	assert.Equal(t, []string{"dist", "x"}, point.Object("prototype").Keys())
}

func TestCondenseRoundTrip(t *testing.T) {
	cx := infer.NewContext(infer.DefaultPolicy())
	loadFile(t, cx, "testdata/geo.json")
	out := Condense(cx, []string{"geo"}, "", Options{})

	fresh := infer.NewContext(infer.DefaultPolicy())
	require.NoError(t, def.Load(fresh, out, nil))

	point := fresh.TopScope.HasProp("Point", false)
	require.NotNil(t, point)
	assert.Equal(t, "fn(x: number, y: number)", infer.Describe(point.GetType(false), 1))

	origin := fresh.TopScope.HasProp("origin", false)
	require.NotNil(t, origin)
	inst, ok := origin.GetType(false).(*infer.Obj)
	require.True(t, ok)
	assert.Equal(t, "Point.prototype", inst.Proto.Name)

	scale := fresh.TopScope.HasProp("scale", false)
	assert.Equal(t, "Scale factor.", scale.Doc)
}

func TestCondenseDefinitions(t *testing.T) {
	cx := infer.NewContext(infer.DefaultPolicy())
	load(t, cx, `{
		"!name": "mk",
		"Point": {"!type": "fn()", "prototype": {"x": "number"}},
		"make": "fn() -> +Point"
	}`)

	out := Condense(cx, []string{"mk"}, "", Options{})

	defs := out.Object("!define")
	require.NotNil(t, defs)
	assert.Equal(t, "+Point", defs.String("make.!ret"))
	assert.Equal(t, "fn() -> +Point", out.String("make"))
}

func TestCondenseAliases(t *testing.T) {
	cx := infer.NewContext(infer.DefaultPolicy())
	load(t, cx, `{
		"!name": "alias",
		"!define": {"Shared": {"v": "number"}},
		"a": "Shared",
		"b": "Shared"
	}`)

	out := Condense(cx, []string{"alias"}, "", Options{})

	a := out.Object("a")
	require.NotNil(t, a)
	assert.Equal(t, "number", a.String("v"))
	assert.Equal(t, "a", out.String("b"))
	assert.False(t, out.Has("!define"))
}

func TestCondenseOrigins(t *testing.T) {
	cx := infer.NewContext(infer.DefaultPolicy())
	load(t, cx, `{
		"!name": "base",
		"Base": {"!type": "fn()", "prototype": {"id": "number"}}
	}`)
	load(t, cx, `{
		"!name": "ext",
		"Ext": {"!type": "fn()", "prototype": {"!proto": "Base.prototype", "extra": "string"}}
	}`)
	load(t, cx, `{"!name": "later", "Later": "number"}`)

	out := Condense(cx, []string{"ext"}, "", Options{})

	assert.False(t, out.Has("Base"), "older origins are referenced, not emitted")
	assert.False(t, out.Has("Later"), "newer origins are skipped")

	ext := out.Object("Ext")
	require.NotNil(t, ext)
	assert.Equal(t, "fn()", ext.String("!type"))
	proto := ext.Object("prototype")
	require.NotNil(t, proto)
	assert.Equal(t, "Base.prototype", proto.String("!proto"))
	assert.Equal(t, "string", proto.String("extra"))
}

func TestCondenseSpans(t *testing.T) {
	src := `{
		"!name": "spans",
		"thing": {"!span": "0[0:0]-5[0:5]", "n": "number"},
		"other": {"n": "number"}
	}`

	t.Run("explicit spans", func(t *testing.T) {
		cx := infer.NewContext(infer.DefaultPolicy())
		load(t, cx, src)
		out := Condense(cx, []string{"spans"}, "", Options{})
		assert.Equal(t, "0[0:0]-5[0:5]", out.Object("thing").String("!span"))
		assert.False(t, out.Object("other").Has("!span"))
	})

	t.Run("omitted", func(t *testing.T) {
		cx := infer.NewContext(infer.DefaultPolicy())
		load(t, cx, src)
		out := Condense(cx, []string{"spans"}, "", Options{OmitSpans: true})
		assert.False(t, out.Object("thing").Has("!span"))
	})

	t.Run("rendered from origin nodes", func(t *testing.T) {
		cx := infer.NewContext(infer.DefaultPolicy())
		load(t, cx, src)
		cx.TopScope.HasProp("other", false).OriginNode = "node"
		out := Condense(cx, []string{"spans"}, "", Options{
			Span: func(node any, origin string) string {
				return origin + ":" + node.(string)
			},
		})
		assert.Equal(t, "spans:node", out.Object("other").String("!span"))
	})
}

func TestPathLen(t *testing.T) {
	assert.Equal(t, 1, pathLen("a"))
	assert.Equal(t, 3, pathLen("a.b.c"))
	assert.Equal(t, 12, pathLen("a.prototype.!0"))
	assert.Less(t, pathLen("a.b.c.d.e"), pathLen("a.!ret"))
}
