package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

// Parallel executes its branches concurrently. Every branch is bound to the
// flow node, so all branches see the flow's resolved inputs. The flow's
// output is a map of branch node name to branch output.
//
// All branches run to completion even if siblings fail; the first error
// encountered is returned after the fan-in.
type Parallel struct {
	node     *core.Node
	branches []core.Runnable
	exported []string
	logger   logging.Logger
}

// ParallelOptions configure a Parallel flow.
type ParallelOptions struct {
	OutputKey string
	Logger    logging.Logger
}

// NewParallel creates an empty parallel flow. Add branches with AddBranch.
func NewParallel(name string, optFns ...func(o *ParallelOptions)) *Parallel {
	opts := ParallelOptions{
		OutputKey: core.DefaultOutputKey,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	node := core.NewNode(name, func(o *core.NodeOptions) {
		o.OutputKey = opts.OutputKey
	})
	return &Parallel{node: node, logger: opts.Logger}
}

// AddBranch wires a branch to the flow node. The keyMap applies to that edge;
// nil means identity passthrough of the flow's exports.
func (p *Parallel) AddBranch(branch core.Runnable, keyMap core.KeyMap) error {
	if err := branch.Node().BindProvider(p.node, keyMap); err != nil {
		return fmt.Errorf("flow %s: bind branch %s: %w", p.node.Name(), branch.Node().Name(), err)
	}
	p.branches = append(p.branches, branch)
	return nil
}

// Node returns the binding graph node backing this flow.
func (p *Parallel) Node() *core.Node { return p.node }

// Branches returns the registered branches in registration order.
func (p *Parallel) Branches() []core.Runnable {
	out := make([]core.Runnable, len(p.branches))
	copy(out, p.branches)
	return out
}

// Perform re-exports the resolved inputs on the flow store and launches all
// branches concurrently, collecting their outputs keyed by branch node name.
func (p *Parallel) Perform(ctx context.Context, inputs map[string]any) (core.Output, error) {
	p.exported = syncExports(p.node, p.exported, inputs)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]any, len(p.branches))
		errCh   = make(chan error, len(p.branches))
	)

	for _, branch := range p.branches {
		wg.Add(1)
		go func(b core.Runnable) {
			defer wg.Done()

			v, err := core.Call(ctx, b)
			if err != nil {
				errCh <- fmt.Errorf("flow %s: branch %s: %w", p.node.Name(), b.Node().Name(), err)
				return
			}
			p.logger.Debug("flow.branch.completed", "flow", p.node.Name(), "branch", b.Node().Name())

			mu.Lock()
			results[b.Node().Name()] = v
			mu.Unlock()
		}(branch)
	}

	wg.Wait()
	close(errCh)

	if len(errCh) > 0 {
		return nil, <-errCh
	}
	return core.Value{V: results}, nil
}
