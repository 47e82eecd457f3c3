package tool

import (
	"context"

	"github.com/hupe1980/agentlink/core"
)

// Runner exposes a Tool as a core.Runnable so it can participate in the
// binding graph: resolved inputs become the tool's argument map and the tool
// result becomes the node's committed output.
type Runner struct {
	node *core.Node
	tool Tool
}

// RunnerOptions configure a tool Runner.
type RunnerOptions struct {
	// OutputKey overrides where the tool result is committed on the node store.
	OutputKey string
}

// NewRunner wraps a Tool in a graph node named after the tool.
func NewRunner(t Tool, optFns ...func(o *RunnerOptions)) *Runner {
	opts := RunnerOptions{OutputKey: core.DefaultOutputKey}
	for _, fn := range optFns {
		fn(&opts)
	}
	node := core.NewNode(t.Name(), func(o *core.NodeOptions) {
		o.OutputKey = opts.OutputKey
	})
	return &Runner{node: node, tool: t}
}

// Node returns the binding graph node backing this runner.
func (r *Runner) Node() *core.Node { return r.node }

// Tool returns the wrapped tool.
func (r *Runner) Tool() Tool { return r.tool }

// Perform executes the tool with the resolved inputs as arguments.
func (r *Runner) Perform(ctx context.Context, inputs map[string]any) (core.Output, error) {
	result, err := r.tool.Call(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return core.Value{V: result}, nil
}
