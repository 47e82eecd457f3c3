package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hupe1980/agentlink/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// funcRunnable is a minimal runnable whose behavior is a plain function of
// its resolved inputs.
type funcRunnable struct {
	node *core.Node
	fn   func(inputs map[string]any) (any, error)
}

func newFuncRunnable(name string, fn func(inputs map[string]any) (any, error)) *funcRunnable {
	return &funcRunnable{node: core.NewNode(name), fn: fn}
}

func (r *funcRunnable) Node() *core.Node { return r.node }

func (r *funcRunnable) Perform(_ context.Context, inputs map[string]any) (core.Output, error) {
	v, err := r.fn(inputs)
	if err != nil {
		return nil, err
	}
	return core.Value{V: v}, nil
}

func TestSequential_ChainsSteps(t *testing.T) {
	greet := newFuncRunnable("greet", func(inputs map[string]any) (any, error) {
		return fmt.Sprintf("hello %v", inputs["name"]), nil
	})
	shout := newFuncRunnable("shout", func(inputs map[string]any) (any, error) {
		return strings.ToUpper(inputs["text"].(string)), nil
	})

	seq := NewSequential("pipeline")
	require.NoError(t, seq.AddStep(greet, core.KeyMap{"name": "name"}))
	require.NoError(t, seq.AddStep(shout, core.KeyMap{"text": core.DefaultOutputKey}))
	require.NoError(t, seq.Node().BindProvider(map[string]any{"name": "ada"}, nil))

	v, err := core.Call(context.Background(), seq)
	require.NoError(t, err)
	assert.Equal(t, "HELLO ADA", v)
	assert.Equal(t, "HELLO ADA", seq.Node().Exports()[core.DefaultOutputKey])
	assert.Len(t, seq.Steps(), 2)
}

func TestSequential_StopsOnError(t *testing.T) {
	boom := newFuncRunnable("boom", func(map[string]any) (any, error) {
		return nil, errors.New("step failed")
	})
	never := newFuncRunnable("never", func(map[string]any) (any, error) {
		t.Fatal("step after failure must not run")
		return nil, nil
	})

	seq := NewSequential("fragile")
	require.NoError(t, seq.AddStep(boom, nil))
	require.NoError(t, seq.AddStep(never, nil))

	_, err := core.Call(context.Background(), seq)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestParallel_FansOut(t *testing.T) {
	double := newFuncRunnable("double", func(inputs map[string]any) (any, error) {
		return inputs["n"].(int) * 2, nil
	})
	square := newFuncRunnable("square", func(inputs map[string]any) (any, error) {
		n := inputs["n"].(int)
		return n * n, nil
	})

	par := NewParallel("math")
	require.NoError(t, par.AddBranch(double, nil))
	require.NoError(t, par.AddBranch(square, nil))
	require.NoError(t, par.Node().BindProvider(map[string]any{"n": 7}, nil))

	v, err := core.Call(context.Background(), par)
	require.NoError(t, err)
	results := v.(map[string]any)
	assert.Equal(t, 14, results["double"])
	assert.Equal(t, 49, results["square"])
}

func TestParallel_FirstErrorAfterFanIn(t *testing.T) {
	ok := newFuncRunnable("ok", func(map[string]any) (any, error) { return "fine", nil })
	bad := newFuncRunnable("bad", func(map[string]any) (any, error) {
		return nil, errors.New("branch failed")
	})

	par := NewParallel("mixed")
	require.NoError(t, par.AddBranch(ok, nil))
	require.NoError(t, par.AddBranch(bad, nil))

	_, err := core.Call(context.Background(), par)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	// The successful branch still committed its own output
	assert.Equal(t, "fine", ok.Node().Exports()[core.DefaultOutputKey])
}

func TestLoop_FeedsOutputBack(t *testing.T) {
	increment := newFuncRunnable("increment", func(inputs map[string]any) (any, error) {
		return inputs["task"].(int) + 1, nil
	})

	loop, err := NewLoop("counter", increment, nil, func(o *LoopOptions) {
		o.MaxIterations = 4
	})
	require.NoError(t, err)
	require.NoError(t, loop.Node().BindProvider(map[string]any{"task": 0}, nil))

	v, err := core.Call(context.Background(), loop)
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	// Feedback binding is removed once the loop finishes
	assert.Nil(t, increment.Node().Dynamic())
}

func TestLoop_UntilStopsEarly(t *testing.T) {
	increment := newFuncRunnable("increment", func(inputs map[string]any) (any, error) {
		return inputs["task"].(int) + 1, nil
	})

	loop, err := NewLoop("bounded", increment, nil, func(o *LoopOptions) {
		o.MaxIterations = 100
		o.Until = func(v any) bool { return v.(int) >= 2 }
	})
	require.NoError(t, err)
	require.NoError(t, loop.Node().BindProvider(map[string]any{"task": 0}, nil))

	v, err := core.Call(context.Background(), loop)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestLoop_RejectsNonPositiveIterations(t *testing.T) {
	body := newFuncRunnable("body", func(map[string]any) (any, error) { return nil, nil })
	_, err := NewLoop("invalid", body, nil, func(o *LoopOptions) {
		o.MaxIterations = 0
	})
	assert.Error(t, err)
}

func TestSequential_StaleInputsDoNotLeakAcrossInvocations(t *testing.T) {
	var seen map[string]any
	recorder := newFuncRunnable("recorder", func(inputs map[string]any) (any, error) {
		seen = inputs
		return "ok", nil
	})

	seq := NewSequential("repeat")
	require.NoError(t, seq.AddStep(recorder, nil))
	require.NoError(t, seq.Node().BindProvider(map[string]any{"base": "b"}, nil))

	// First invocation carries an extra dynamic input.
	require.NoError(t, seq.Node().BindDynamic(map[string]any{"extra": "x"}, nil))
	_, err := core.Call(context.Background(), seq)
	require.NoError(t, err)
	assert.Equal(t, "x", seen["extra"])

	// Second invocation no longer provides it; the step must not see it.
	seq.Node().ClearDynamic()
	_, err = core.Call(context.Background(), seq)
	require.NoError(t, err)
	assert.Equal(t, "b", seen["base"])
	assert.NotContains(t, seen, "extra")
}

func TestParallel_StaleInputsDoNotLeakAcrossInvocations(t *testing.T) {
	var seen map[string]any
	recorder := newFuncRunnable("recorder", func(inputs map[string]any) (any, error) {
		seen = inputs
		return "ok", nil
	})

	par := NewParallel("repeat")
	require.NoError(t, par.AddBranch(recorder, nil))
	require.NoError(t, par.Node().BindProvider(map[string]any{"base": "b"}, nil))

	require.NoError(t, par.Node().BindDynamic(map[string]any{"extra": "x"}, nil))
	_, err := core.Call(context.Background(), par)
	require.NoError(t, err)
	assert.Equal(t, "x", seen["extra"])

	par.Node().ClearDynamic()
	_, err = core.Call(context.Background(), par)
	require.NoError(t, err)
	assert.NotContains(t, seen, "extra")
}

func TestLoop_StaleInputsDoNotLeakAcrossInvocations(t *testing.T) {
	var seen map[string]any
	recorder := newFuncRunnable("recorder", func(inputs map[string]any) (any, error) {
		seen = inputs
		return "ok", nil
	})

	loop, err := NewLoop("repeat", recorder, nil, func(o *LoopOptions) {
		o.MaxIterations = 1
	})
	require.NoError(t, err)
	require.NoError(t, loop.Node().BindProvider(map[string]any{"base": "b"}, nil))

	require.NoError(t, loop.Node().BindDynamic(map[string]any{"extra": "x"}, nil))
	_, err = core.Call(context.Background(), loop)
	require.NoError(t, err)
	assert.Equal(t, "x", seen["extra"])

	loop.Node().ClearDynamic()
	_, err = core.Call(context.Background(), loop)
	require.NoError(t, err)
	assert.NotContains(t, seen, "extra")
}

func TestFlowsNest(t *testing.T) {
	inner := newFuncRunnable("inner", func(inputs map[string]any) (any, error) {
		return fmt.Sprintf("[%v]", inputs["task"]), nil
	})
	innerSeq := NewSequential("inner_seq")
	require.NoError(t, innerSeq.AddStep(inner, core.KeyMap{"task": "task"}))

	outer := NewSequential("outer_seq")
	require.NoError(t, outer.AddStep(innerSeq, core.KeyMap{"task": "task"}))
	require.NoError(t, outer.Node().BindProvider(map[string]any{"task": "x"}, nil))

	v, err := core.Call(context.Background(), outer)
	require.NoError(t, err)
	assert.Equal(t, "[x]", v)
}
