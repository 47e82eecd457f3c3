package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerTreeRegistrationOrder(t *testing.T) {
	producer := NewNode("producer")
	c1 := NewNode("c1")
	c2 := NewNode("c2")
	require.NoError(t, c1.BindProvider(producer, nil))
	require.NoError(t, c2.BindProvider(producer, KeyMap{"task": "last_output"}))

	tr := ConsumerTree(producer, 0)
	require.Len(t, tr.Children, 2)
	assert.Equal(t, "c1", tr.Children[0].Label)
	assert.Equal(t, "c2", tr.Children[1].Label)
	assert.Equal(t, "last_output", tr.Children[1].KeyMap["task"])
}

func TestProviderTreeIncludesLiterals(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	require.NoError(t, a.BindProvider(b, nil))
	require.NoError(t, a.BindProvider(map[string]any{"greeting": "hi", "count": 1}, nil))

	tr := ProviderTree(a, 0)
	require.Len(t, tr.Children, 2)
	assert.Equal(t, "b", tr.Children[0].Label)
	assert.Equal(t, "literal{count, greeting}", tr.Children[1].Label)
	assert.Nil(t, tr.Children[1].Node)
}

func TestTreeCycleTruncates(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	require.NoError(t, a.BindProvider(b, nil))
	require.NoError(t, b.BindProvider(a, nil))

	tr := ConsumerTree(a, 0)
	// a -> b (consumer) -> a (cycle marker, no recursion)
	require.Len(t, tr.Children, 1)
	assert.Equal(t, "b", tr.Children[0].Label)
	require.Len(t, tr.Children[0].Children, 1)
	marker := tr.Children[0].Children[0]
	assert.Equal(t, "a", marker.Label)
	assert.True(t, marker.Cycle)
	assert.Empty(t, marker.Children)
}

func TestTreeSelfLoopTruncates(t *testing.T) {
	a := NewNode("a")
	require.NoError(t, a.BindProvider(a, nil))

	tr := ProviderTree(a, 0)
	require.Len(t, tr.Children, 1)
	assert.True(t, tr.Children[0].Cycle)
}

func TestTreeDepthLimit(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	c := NewNode("c")
	require.NoError(t, b.BindProvider(a, nil))
	require.NoError(t, c.BindProvider(b, nil))

	tr := ConsumerTree(a, 2)
	require.Len(t, tr.Children, 1)
	assert.Empty(t, tr.Children[0].Children, "depth limit must stop descent")

	tr = ConsumerTree(a, 0)
	require.Len(t, tr.Children, 1)
	require.Len(t, tr.Children[0].Children, 1)
	assert.Equal(t, "c", tr.Children[0].Children[0].Label)
}

func TestTreeStringRendering(t *testing.T) {
	producer := NewNode("producer")
	c1 := NewNode("c1")
	c2 := NewNode("c2")
	require.NoError(t, c1.BindProvider(producer, nil))
	require.NoError(t, c2.BindProvider(producer, KeyMap{"task": "last_output", "x": nil}))

	out := ConsumerTree(producer, 0).String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "producer", lines[0])
	assert.Equal(t, "├─> c1", lines[1])
	assert.Equal(t, "└─> c2 {task<-last_output, x:suppressed}", lines[2])
}

func TestTreeDrawSmoke(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	require.NoError(t, b.BindProvider(a, nil))

	out := ConsumerTree(a, 0).Draw()
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")
}
