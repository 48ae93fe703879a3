package infer

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	cx := newTestContext()

	for _, example := range []struct {
		spec string
		want string
	}{
		{"number", "number"},
		{"string", "string"},
		{"bool", "bool"},
		{"?", "?"},
		{"[number]", "[number]"},
		{"[number, string]", "[number, string]"},
		{"fn()", "fn()"},
		{"fn(a: number, b: string) -> bool", "fn(a: number, b: string) -> bool"},
		{"fn(number)", "fn(number)"},
		{"fn*() -> number", "fn*() -> number"},
		{"number|string", "number|string"},
		{"fn(cb: fn(err: string))", "fn(cb: fn(err: string))"},
	} {
		t.Run(example.spec, func(t *testing.T) {
			v, err := cx.ParseType(example.spec)
			require.NoError(t, err)
			assert.Equal(t, example.want, Describe(v, 2))
		})
	}
}

func TestParseTypeErrors(t *testing.T) {
	cx := newTestContext()

	for _, spec := range []string{
		"fn(",
		"fn(number",
		"[number",
		"number junk",
		"",
		"fn() -> ",
	} {
		t.Run(spec, func(t *testing.T) {
			_, err := cx.ParseType(spec)
			require.Error(t, err)
			var specErr *SpecError
			require.True(t, errors.As(err, &specErr))
			assert.Equal(t, spec, specErr.Spec)
		})
	}
}

func TestParseTypeFunction(t *testing.T) {
	cx := newTestContext()

	v, err := cx.ParseType("fn(a: number) -> number")
	require.NoError(t, err)
	fn, ok := v.(*Fn)
	require.True(t, ok)

	require.Len(t, fn.Args, 1)
	assert.Equal(t, Value(cx.Num), fn.Args[0])
	assert.Equal(t, []string{"a"}, fn.ArgNames)
	assert.True(t, fn.Retval.HasType(cx.Num))
	assert.Nil(t, fn.ComputeRet)
}

func TestParseTypePinnedUnion(t *testing.T) {
	cx := newTestContext()

	v, err := cx.ParseType("number|string")
	require.NoError(t, err)
	union := v.(*AVal)
	assert.Equal(t, WeightFixed, union.MaxWeight())

	union.AddType(cx.Bool, 0)
	assert.Equal(t, []Type{cx.Num, cx.Str}, union.Types())
}

func TestParseTypeComputedReturn(t *testing.T) {
	cx := newTestContext()

	v, err := cx.ParseType("fn(x: ?) -> !0")
	require.NoError(t, err)
	fn := v.(*Fn)
	require.NotNil(t, fn.ComputeRet)
	assert.Equal(t, "!0", fn.ComputeRetSource)
	assert.Equal(t, "fn(x: ?) -> !0", TypeName(fn))

	num, str := cx.NewAVal(), cx.NewAVal()
	fn.Propagate(cx.NewCallee(NoType, []Value{cx.Num}, nil, num), 0)
	fn.Propagate(cx.NewCallee(NoType, []Value{cx.Str}, nil, str), 0)
	assert.Equal(t, []Type{cx.Num}, num.Types())
	assert.Equal(t, []Type{cx.Str}, str.Types())

	t.Run("array of argument", func(t *testing.T) {
		v, err := cx.ParseType("fn(x: ?) -> [!0]")
		require.NoError(t, err)
		out := cx.NewAVal()
		v.Propagate(cx.NewCallee(NoType, []Value{cx.Num}, nil, out), 0)
		require.Len(t, out.Types(), 1)
		arr := out.Types()[0].(*Arr)
		assert.True(t, arr.Elem().HasType(cx.Num))
	})

	t.Run("receiver", func(t *testing.T) {
		v, err := cx.ParseType("fn() -> !this")
		require.NoError(t, err)
		recv := cx.NewObj(cx.ObjectProto, "")
		out := cx.NewAVal()
		v.Propagate(cx.NewCallee(recv, nil, nil, out), 0)
		assert.Equal(t, []Type{recv}, out.Types())
	})

	t.Run("property of argument", func(t *testing.T) {
		v, err := cx.ParseType("fn(x: ?) -> !0.name")
		require.NoError(t, err)
		arg := cx.NewObj(cx.ObjectProto, "")
		arg.DefProp("name", nil).AddType(cx.Str, 0)
		out := cx.NewAVal()
		v.Propagate(cx.NewCallee(NoType, []Value{arg}, nil, out), 0)
		assert.Equal(t, []Type{cx.Str}, out.Types())
	})

	t.Run("union with argument", func(t *testing.T) {
		v, err := cx.ParseType("fn(x: ?) -> !0|number")
		require.NoError(t, err)
		arg := cx.NewAVal()
		arg.AddType(cx.Str, 0)
		out := cx.NewAVal()
		v.Propagate(cx.NewCallee(NoType, []Value{arg}, nil, out), 0)
		assert.ElementsMatch(t, []Type{cx.Str, cx.Num}, out.Types())
	})
}

func TestParseTypeCallbackArgs(t *testing.T) {
	cx := newTestContext()

	v, err := cx.ParseType("fn(cb: fn(number))")
	require.NoError(t, err)

	param := cx.NewAVal()
	callback := cx.NewFn("cb", cx.NewAVal(), []Value{param}, []string{"n"}, NoType)
	v.Propagate(cx.NewCallee(NoType, []Value{callback}, nil, nil), 0)

	assert.Equal(t, []Type{cx.Num}, param.Types())
}

func TestParseTypePaths(t *testing.T) {
	cx := newTestContext()

	ctor := cx.NewFn("Foo", cx.NewAVal(), nil, nil, NoType)
	cx.TopScope.DefProp("Foo", nil).AddType(ctor, 0)
	proto := ctor.GetProp("prototype").(*AVal).Types()[0].(*Obj)
	proto.DefProp("bar", nil).AddType(cx.Num, 0)

	t.Run("instance", func(t *testing.T) {
		v, err := cx.ParseType("+Foo")
		require.NoError(t, err)
		inst := v.(*Obj)
		assert.Same(t, proto, inst.Proto)
		assert.Equal(t, "Foo", inst.Name)
		assert.Same(t, cx.Instance(proto, ctor), inst)
	})

	t.Run("path", func(t *testing.T) {
		v, err := cx.ParseType("Foo.prototype.bar")
		require.NoError(t, err)
		assert.Equal(t, Value(cx.Num), v)
	})

	t.Run("unresolved paths are retried", func(t *testing.T) {
		assert.Equal(t, NoType, cx.ParsePath("Later"))
		cx.TopScope.DefProp("Later", nil).AddType(cx.Str, 0)
		assert.Equal(t, Value(cx.Str), cx.ParsePath("Later"))
	})

	t.Run("special steps", func(t *testing.T) {
		fn, err := cx.ParseType("fn(a: string) -> number")
		require.NoError(t, err)
		cx.TopScope.DefProp("f", nil).AddType(fn.(*Fn), 0)
		assert.Equal(t, Value(cx.Num), cx.ParsePath("f.!ret"))
		assert.Equal(t, Value(cx.Str), cx.ParsePath("f.!0"))
		assert.Equal(t, NoType, cx.ParsePath("f.!3"))
		assert.Equal(t, Value(cx.FunctionProto), cx.ParsePath("f.!proto"))
	})

	t.Run("polymorphic instance", func(t *testing.T) {
		v, err := cx.ParseType("fn(x: ?) -> +Foo[bar=!0]")
		require.NoError(t, err)
		out := cx.NewAVal()
		v.Propagate(cx.NewCallee(NoType, []Value{cx.Str}, nil, out), 0)
		require.Len(t, out.Types(), 1)
		inst := out.Types()[0].(*Obj)
		assert.Same(t, proto, inst.Proto)
		assert.True(t, inst.HasProp("bar", false).HasType(cx.Str))
	})
}

func TestLocalDefinitions(t *testing.T) {
	cx := newTestContext()

	cx.BeginDefinitions("lib")
	point := cx.NewShell(ShellObj, "Point")
	cx.Define("Point", point)
	cx.Define("Point.Inner", cx.NewObj(cx.ObjectProto, "Inner"))

	v, err := cx.ParseType("Point")
	require.NoError(t, err)
	assert.Equal(t, Value(point), v)

	v, err = cx.ParseType("Point.Inner")
	require.NoError(t, err)
	assert.Equal(t, "Inner", v.(*Obj).Name)

	cx.EndDefinitions()

	assert.Equal(t, []string{"lib"}, cx.Origins())
	assert.Contains(t, cx.Definitions("lib"), "Point")
	_, ok := cx.LocalDefinition("Point")
	assert.False(t, ok)
}

func TestParseTypeSpecIntoShell(t *testing.T) {
	cx := newTestContext()

	t.Run("function", func(t *testing.T) {
		shell := cx.NewShell(ShellFn, "greet")
		v, err := cx.ParseTypeSpec("fn(name: string) -> string", "greet", shell, false)
		require.NoError(t, err)
		assert.Same(t, shell, v)
		assert.Equal(t, "fn(name: string) -> string", Describe(v, 1))
	})

	t.Run("array", func(t *testing.T) {
		shell := cx.NewShell(ShellArr, "list")
		v, err := cx.ParseTypeSpec("[number]", "", shell, false)
		require.NoError(t, err)
		assert.Same(t, shell, v)
		assert.True(t, shell.(*Arr).Elem().HasType(cx.Num))
	})

	t.Run("instance", func(t *testing.T) {
		ctor := cx.NewFn("Thing", cx.NewAVal(), nil, nil, NoType)
		cx.TopScope.DefProp("Thing", nil).AddType(ctor, 0)
		proto := ctor.GetProp("prototype").(*AVal).Types()[0].(*Obj)

		shell := cx.NewShell(ShellObj, "thing")
		assert.True(t, shell.Base().IsShell())
		v, err := cx.ParseTypeSpec("+Thing", "", shell, false)
		require.NoError(t, err)
		assert.Same(t, shell, v)
		assert.Same(t, proto, shell.Base().Proto)
		assert.Equal(t, "Thing", shell.Base().Name)
	})

	t.Run("forced fresh instance", func(t *testing.T) {
		proto := cx.NewObj(cx.ObjectProto, "")
		cx.TopScope.DefProp("Fresh", nil).AddType(proto, 0)

		a, err := cx.ParseTypeSpec("+Fresh", "", nil, true)
		require.NoError(t, err)
		b, err := cx.ParseTypeSpec("+Fresh", "", nil, true)
		require.NoError(t, err)
		assert.NotSame(t, a, b)
	})
}

func TestParseEffect(t *testing.T) {
	t.Run("propagate", func(t *testing.T) {
		cx := newTestContext()
		v, err := cx.ParseType("fn(arr: [?], x: ?)")
		require.NoError(t, err)
		fn := v.(*Fn)
		require.NoError(t, cx.ParseEffect("propagate !1 !0.<i>", fn))

		arr := cx.NewArr(nil)
		fn.Propagate(cx.NewCallee(NoType, []Value{arr, cx.Num}, nil, nil), 0)
		assert.True(t, arr.Elem().HasType(cx.Num))
	})

	t.Run("call", func(t *testing.T) {
		cx := newTestContext()
		v, err := cx.ParseType("fn(f: fn(), x: ?)")
		require.NoError(t, err)
		fn := v.(*Fn)
		require.NoError(t, cx.ParseEffect("call !0 this=!1 number", fn))

		self, param := cx.NewAVal(), cx.NewAVal()
		callback := cx.NewFn("", self, []Value{param}, []string{"n"}, cx.Str)
		recv := cx.NewObj(cx.ObjectProto, "")
		out := cx.NewAVal()
		fn.Propagate(cx.NewCallee(NoType, []Value{callback, recv}, nil, out), 0)

		assert.True(t, self.HasType(recv))
		assert.True(t, param.HasType(cx.Num))
		assert.True(t, out.IsEmpty())
	})

	t.Run("call and return", func(t *testing.T) {
		cx := newTestContext()
		v, err := cx.ParseType("fn(f: fn())")
		require.NoError(t, err)
		fn := v.(*Fn)
		require.NoError(t, cx.ParseEffect("call and return !0", fn))

		callback := cx.NewFn("", cx.NewAVal(), nil, nil, cx.Str)
		out := cx.NewAVal()
		fn.Propagate(cx.NewCallee(NoType, []Value{callback}, nil, out), 0)
		assert.True(t, out.HasType(cx.Str))
	})

	t.Run("copy", func(t *testing.T) {
		cx := newTestContext()
		v, err := cx.ParseType("fn(to: ?, from: ?)")
		require.NoError(t, err)
		fn := v.(*Fn)
		require.NoError(t, cx.ParseEffect("copy !1 !0", fn))

		from := cx.NewObj(cx.ObjectProto, "")
		from.DefProp("a", nil).AddType(cx.Num, 0)
		to := cx.NewObj(cx.ObjectProto, "")
		fn.Propagate(cx.NewCallee(NoType, []Value{to, from}, nil, nil), 0)
		require.NotNil(t, to.HasProp("a", false))
		assert.True(t, to.HasProp("a", false).HasType(cx.Num))
	})

	t.Run("custom", func(t *testing.T) {
		cx := newTestContext()
		var called bool
		cx.RegisterFunction("mark", func(Value, []Value, []any) Value {
			called = true
			return nil
		})
		fn := cx.NewFn("f", NoType, nil, nil, cx.Num)
		require.NoError(t, cx.ParseEffect("custom mark", fn))

		out := cx.NewAVal()
		fn.Propagate(cx.NewCallee(NoType, nil, nil, out), 0)
		assert.True(t, called)
		assert.True(t, out.HasType(cx.Num), "effects keep the declared return")
	})

	t.Run("unknown", func(t *testing.T) {
		cx := newTestContext()
		fn := cx.NewFn("f", NoType, nil, nil, NoType)
		err := cx.ParseEffect("explode !0", fn)
		var specErr *SpecError
		require.True(t, errors.As(err, &specErr))
		assert.Equal(t, "unknown effect type", specErr.Msg)
	})
}
