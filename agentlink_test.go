package agentlink

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/agentlink/agent"
	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentLink_RegisterAndLookup(t *testing.T) {
	link := New()
	mock := model.NewMockModel("test-model", "mock")
	link.Register(agent.NewChatAgent("writer", mock))

	r, ok := link.Lookup("writer")
	require.True(t, ok)
	assert.Equal(t, "writer", r.Node().Name())

	_, ok = link.Lookup("missing")
	assert.False(t, ok)
}

func TestAgentLink_CallInjectsTask(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	mock.AddResponse("write a haiku", "haiku text")

	link := New()
	a := agent.NewChatAgent("writer", mock)
	link.Register(a)

	v, err := link.Call(context.Background(), "writer", "write a haiku")
	require.NoError(t, err)
	assert.Equal(t, "haiku text", v)

	// The injected task binding is removed after the call
	assert.Nil(t, a.Node().Dynamic())
}

func TestAgentLink_CallUnknownRunnable(t *testing.T) {
	link := New()
	_, err := link.Call(context.Background(), "ghost", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown runnable")
}

func TestAgentLink_InvokeStreams(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	mock.AddResponse("stream it", "abc")

	link := New()
	link.Register(agent.NewChatAgent("streamer", mock, func(o *agent.Options) {
		o.Stream = true
	}))

	chunks, errCh, err := link.Invoke(context.Background(), "streamer", "stream it")
	require.NoError(t, err)

	var got string
	for chunk := range chunks {
		got += chunk.(string)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "abc", got)
}

func TestAgentLink_InvokeAbandonedByCaller(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	mock.AddResponse("big", strings.Repeat("x", 200))

	link := New()
	a := agent.NewChatAgent("streamer", mock, func(o *agent.Options) {
		o.Stream = true
	})
	link.Register(a)

	ctx, cancel := context.WithCancel(context.Background())
	chunks, errCh, err := link.Invoke(ctx, "streamer", "big")
	require.NoError(t, err)

	// Read a single chunk, then walk away and cancel.
	<-chunks
	cancel()

	var last error
	for e := range errCh {
		last = e
	}
	assert.ErrorIs(t, last, context.Canceled)
	// The forwarding goroutine exited and its cleanup removed the injected
	// task binding.
	assert.Nil(t, a.Node().Dynamic())
}

func TestAgentLink_Trees(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	link := New()

	a := agent.NewChatAgent("writer", mock)
	b := agent.NewChatAgent("reviewer", mock)
	require.NoError(t, b.Node().BindProvider(a.Node(), core.KeyMap{"task": core.DefaultOutputKey}))
	link.Register(a)
	link.Register(b)

	consumers, err := link.ConsumerTree("writer")
	require.NoError(t, err)
	assert.Contains(t, consumers, "reviewer")

	providers, err := link.ProviderTree("reviewer")
	require.NoError(t, err)
	assert.Contains(t, providers, "writer")

	_, err = link.ConsumerTree("ghost")
	assert.Error(t, err)
}
