package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamOf(chunks ...any) Stream {
	ch := make(chan any, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return Stream{Ch: ch}
}

func TestCallCommitsValueOutput(t *testing.T) {
	r := newMockRunnable("r")
	r.out = Value{V: "hi\n"}

	v, err := Call(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", v)
	assert.Equal(t, map[string]any{"last_output": "hi\n"}, r.node.Exports())
	assert.Equal(t, 1, r.performed)
}

func TestCallInjectsResolvedInputs(t *testing.T) {
	src := NewNode("src")
	src.Export("greeting", "hello")

	r := newMockRunnable("r")
	require.NoError(t, r.node.BindProvider(src, nil))
	r.out = Value{V: "ok"}

	_, err := Call(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"greeting": "hello"}, r.lastInputs)
}

func TestCallErrorLeavesStoreUntouched(t *testing.T) {
	r := newMockRunnable("r")
	r.node.commit("previous")
	r.err = errors.New("perform failed")

	_, err := Call(context.Background(), r)
	require.EqualError(t, err, "perform failed")
	assert.Equal(t, map[string]any{"last_output": "previous"}, r.node.Exports())
}

func TestCallResolutionErrorPropagates(t *testing.T) {
	r := newMockRunnable("r")
	require.NoError(t, r.node.BindProvider(map[string]any{"in": 1}, KeyMap{
		"x": func(map[string]any) (any, error) { return nil, errors.New("bad transform") },
	}))

	_, err := Call(context.Background(), r)
	var bre *BindingResolutionError
	require.ErrorAs(t, err, &bre)
	assert.Zero(t, r.performed, "perform must not run when resolution fails")
}

func TestCallConcatenatesStringStream(t *testing.T) {
	r := newMockRunnable("r")
	r.out = streamOf("hel", "lo", " world")

	v, err := Call(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)
	assert.Equal(t, map[string]any{"last_output": "hello world"}, r.node.Exports())
}

func TestCallMixedStreamCommitsChunkSlice(t *testing.T) {
	r := newMockRunnable("r")
	r.out = streamOf("a", 1)

	v, err := Call(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", 1}, v)
}

func TestCallSingleChunkStream(t *testing.T) {
	r := newMockRunnable("r")
	r.out = streamOf(42)

	v, err := Call(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCallNilValueDeletesLastOutput(t *testing.T) {
	r := newMockRunnable("r")
	r.node.commit("stale")
	r.out = Value{V: nil}

	v, err := Call(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Empty(t, r.node.Exports())
}

func TestCallAsyncDeliversResult(t *testing.T) {
	r := newMockRunnable("r")
	r.out = Value{V: "done"}

	res := <-CallAsync(context.Background(), r)
	require.NoError(t, res.Err)
	assert.Equal(t, "done", res.Value)
}

func TestInvokeStreamsChunks(t *testing.T) {
	r := newMockRunnable("r")
	r.out = streamOf("a", "b", "c")

	out, errCh := Invoke(context.Background(), r)
	var got []any
	for c := range out {
		got = append(got, c)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, []any{"a", "b", "c"}, got)
	assert.Equal(t, map[string]any{"last_output": "abc"}, r.node.Exports())
}

func TestInvokeAdaptsValueToSingleChunk(t *testing.T) {
	r := newMockRunnable("r")
	r.out = Value{V: "only"}

	out, errCh := Invoke(context.Background(), r)
	var got []any
	for c := range out {
		got = append(got, c)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, []any{"only"}, got)
}

func TestInvokeSurfacesPerformError(t *testing.T) {
	r := newMockRunnable("r")
	r.err = errors.New("nope")

	out, errCh := Invoke(context.Background(), r)
	for range out { //nolint:revive // drain
	}
	assert.EqualError(t, <-errCh, "nope")
}

func TestInvokeCancellationCommitsPartialOutput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan any)
	r := newMockRunnable("r")
	r.out = Stream{Ch: ch}

	out, errCh := Invoke(ctx, r)
	ch <- "partial"
	assert.Equal(t, "partial", <-out)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("invocation did not observe cancellation")
	}
	assert.Equal(t, map[string]any{"last_output": "partial"}, r.node.Exports())
}

func TestCallStreamProducerErrorDoesNotCommit(t *testing.T) {
	ch := make(chan any, 1)
	errCh := make(chan error, 1)
	ch <- "partial "
	close(ch)
	errCh <- errors.New("stream failed")
	close(errCh)

	r := newMockRunnable("r")
	r.out = Stream{Ch: ch, Err: errCh}

	v, err := Call(context.Background(), r)
	require.EqualError(t, err, "stream failed")
	assert.Nil(t, v)
	assert.Empty(t, r.node.Exports())
}

func TestInvokeStreamProducerErrorDoesNotCommit(t *testing.T) {
	ch := make(chan any, 2)
	errCh := make(chan error, 1)
	ch <- "a"
	ch <- "b"
	close(ch)
	errCh <- errors.New("stream failed")
	close(errCh)

	r := newMockRunnable("r")
	r.out = Stream{Ch: ch, Err: errCh}

	out, invokeErr := Invoke(context.Background(), r)
	var got []any
	for c := range out {
		got = append(got, c)
	}
	assert.Equal(t, []any{"a", "b"}, got, "chunks already emitted stay delivered")
	assert.EqualError(t, <-invokeErr, "stream failed")
	assert.Empty(t, r.node.Exports())
}

func TestCallStreamEmptyErrorChannelSucceeds(t *testing.T) {
	ch := make(chan any, 1)
	errCh := make(chan error, 1)
	ch <- "ok"
	close(ch)
	close(errCh)

	r := newMockRunnable("r")
	r.out = Stream{Ch: ch, Err: errCh}

	v, err := Call(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, map[string]any{"last_output": "ok"}, r.node.Exports())
}

func TestEachIteratesSynchronously(t *testing.T) {
	r := newMockRunnable("r")
	r.out = streamOf("x", "y")

	var got []any
	err := Each(context.Background(), r, func(chunk any) error {
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, got)
}

func TestEachStopsOnCallbackError(t *testing.T) {
	r := newMockRunnable("r")
	r.out = streamOf("x", "y", "z")

	stop := errors.New("stop")
	var seen int
	err := Each(context.Background(), r, func(any) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}
