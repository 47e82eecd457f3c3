package flow

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

// Loop repeatedly executes its body, feeding each iteration's output back
// into the body's input through a dynamic binding. Dynamic bindings have
// final precedence in resolution, so the feedback overrides whatever the
// body's permanent providers supply.
//
// The loop stops when Until returns true for an iteration's output or when
// MaxIterations is reached, whichever comes first. The last output becomes
// the flow's output.
type Loop struct {
	node        *core.Node
	body        core.Runnable
	feedbackKey string
	maxIter     int
	until       func(v any) bool
	exported    []string
	logger      logging.Logger
}

// LoopOptions configure a Loop flow.
type LoopOptions struct {
	// FeedbackKey is the body input that receives the previous iteration's output.
	FeedbackKey string
	// MaxIterations bounds the loop.
	MaxIterations int
	// Until stops the loop early when it returns true for an iteration's output.
	Until func(v any) bool

	OutputKey string
	Logger    logging.Logger
}

// NewLoop wires body to the loop node and returns the loop flow. The keyMap
// applies to the loop-to-body edge; nil means identity passthrough.
func NewLoop(name string, body core.Runnable, keyMap core.KeyMap, optFns ...func(o *LoopOptions)) (*Loop, error) {
	opts := LoopOptions{
		FeedbackKey:   "task",
		MaxIterations: 3,
		OutputKey:     core.DefaultOutputKey,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("flow %s: max iterations must be positive", name)
	}

	node := core.NewNode(name, func(o *core.NodeOptions) {
		o.OutputKey = opts.OutputKey
	})
	if err := body.Node().BindProvider(node, keyMap); err != nil {
		return nil, fmt.Errorf("flow %s: bind body %s: %w", name, body.Node().Name(), err)
	}

	return &Loop{
		node:        node,
		body:        body,
		feedbackKey: opts.FeedbackKey,
		maxIter:     opts.MaxIterations,
		until:       opts.Until,
		logger:      opts.Logger,
	}, nil
}

// Node returns the binding graph node backing this flow.
func (l *Loop) Node() *core.Node { return l.node }

// Body returns the loop body runnable.
func (l *Loop) Body() core.Runnable { return l.body }

// Perform runs the body up to MaxIterations times, threading each output
// back through the feedback key. The dynamic feedback binding is cleared when
// the loop finishes so the body's graph is left as it was wired.
func (l *Loop) Perform(ctx context.Context, inputs map[string]any) (core.Output, error) {
	l.exported = syncExports(l.node, l.exported, inputs)
	defer l.body.Node().ClearDynamic()

	var last any
	for i := 0; i < l.maxIter; i++ {
		v, err := core.Call(ctx, l.body)
		if err != nil {
			return nil, fmt.Errorf("flow %s: iteration %d: %w", l.node.Name(), i, err)
		}
		last = v
		l.logger.Debug("flow.loop.iteration", "flow", l.node.Name(), "iteration", i)

		if l.until != nil && l.until(v) {
			break
		}

		if err := l.body.Node().BindDynamic(map[string]any{l.feedbackKey: v}, nil); err != nil {
			return nil, fmt.Errorf("flow %s: feedback binding: %w", l.node.Name(), err)
		}
	}
	return core.Value{V: last}, nil
}
