package flow

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

// Sequential executes its steps in order. Each added step is bound to its
// predecessor (the flow node itself for the first step), so upstream outputs
// flow to the next step through regular binding resolution. The last step's
// output becomes the flow's output.
//
// Execution stops at the first failing step.
type Sequential struct {
	node     *core.Node
	steps    []core.Runnable
	exported []string
	logger   logging.Logger
}

// SequentialOptions configure a Sequential flow.
type SequentialOptions struct {
	OutputKey string
	Logger    logging.Logger
}

// NewSequential creates an empty sequential flow. Add steps with AddStep.
func NewSequential(name string, optFns ...func(o *SequentialOptions)) *Sequential {
	opts := SequentialOptions{
		OutputKey: core.DefaultOutputKey,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	node := core.NewNode(name, func(o *core.NodeOptions) {
		o.OutputKey = opts.OutputKey
	})
	return &Sequential{node: node, logger: opts.Logger}
}

// AddStep appends a step and wires it to its predecessor. The keyMap applies
// to that edge; nil means identity passthrough of the predecessor's exports.
func (s *Sequential) AddStep(step core.Runnable, keyMap core.KeyMap) error {
	var prev any = s.node
	if len(s.steps) > 0 {
		prev = s.steps[len(s.steps)-1].Node()
	}
	if err := step.Node().BindProvider(prev, keyMap); err != nil {
		return fmt.Errorf("flow %s: bind step %s: %w", s.node.Name(), step.Node().Name(), err)
	}
	s.steps = append(s.steps, step)
	return nil
}

// Node returns the binding graph node backing this flow.
func (s *Sequential) Node() *core.Node { return s.node }

// Steps returns the registered steps in execution order.
func (s *Sequential) Steps() []core.Runnable {
	out := make([]core.Runnable, len(s.steps))
	copy(out, s.steps)
	return out
}

// Perform re-exports the flow's resolved inputs on its own store (making them
// visible to the first step's edge) and runs the steps in order. Inputs from
// an earlier invocation that are gone from this one are removed first.
func (s *Sequential) Perform(ctx context.Context, inputs map[string]any) (core.Output, error) {
	s.exported = syncExports(s.node, s.exported, inputs)

	var last any
	for _, step := range s.steps {
		v, err := core.Call(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("flow %s: step %s: %w", s.node.Name(), step.Node().Name(), err)
		}
		s.logger.Debug("flow.step.completed", "flow", s.node.Name(), "step", step.Node().Name())
		last = v
	}
	return core.Value{V: last}, nil
}
