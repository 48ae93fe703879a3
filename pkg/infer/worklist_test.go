package infer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorklistDepth(t *testing.T) {
	cx := newTestContext()

	chain := make([]*AVal, 25)
	for i := range chain {
		chain[i] = cx.NewAVal()
		if i > 0 {
			chain[i-1].Propagate(chain[i], 0)
		}
	}

	chain[0].AddType(cx.Num, 0)

	limit := int(cx.Policy.MaxWorkDepth)
	for i := 0; i <= limit; i++ {
		assert.True(t, chain[i].HasType(cx.Num), "link %d", i)
	}
	for i := limit + 1; i < len(chain); i++ {
		assert.True(t, chain[i].IsEmpty(), "link %d", i)
	}
}

func TestWorklistOrder(t *testing.T) {
	cx := newTestContext()
	src := cx.NewAVal()

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		dst := cx.NewAVal()
		dst.OnAddType(func(Type) { order = append(order, name) })
		src.Propagate(dst, 0)
	}

	src.AddType(cx.Num, 0)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRunTimeout(t *testing.T) {
	cx := newTestContext()
	a, b := cx.NewAVal(), cx.NewAVal()
	a.Propagate(b, 0)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := cx.Run(ctx, func() {
		a.AddType(cx.Num, 0)
	})
	require.ErrorIs(t, err, ErrTimedOut)
	assert.True(t, b.IsEmpty())
	assert.Nil(t, cx.work)

	// The graph remains usable afterwards.
	err = cx.Run(context.Background(), func() {
		a.AddType(cx.Str, 0)
	})
	require.NoError(t, err)
	assert.True(t, b.HasType(cx.Str))
}

func TestRunPanicsPassThrough(t *testing.T) {
	cx := newTestContext()
	assert.PanicsWithValue(t, "boom", func() {
		_ = cx.Run(context.Background(), func() { panic("boom") })
	})
}

func TestRunKeepsEarlierDeadline(t *testing.T) {
	cx := newTestContext()
	early := time.Now().Add(-time.Second)
	cx.deadline = early

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	require.NoError(t, cx.Run(ctx, func() {
		assert.Equal(t, early, cx.deadline)
	}))
}
