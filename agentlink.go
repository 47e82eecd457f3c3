// Package agentlink provides a high-level façade over the binding graph
// runnables (agents, templates, tools, flows) enabling rapid construction of
// reactive LLM pipelines. Most applications interact with this package by:
//  1. Creating an AgentLink via New() (optionally supplying a logger)
//  2. Registering one or more runnables under stable names
//  3. Invoking them synchronously (Call) or as a chunk stream (Invoke)
//
// The façade adds name-based lookup, task injection and invocation telemetry
// on top of the core package; the binding semantics are unchanged. All
// defaults are safe for local development and testing.
package agentlink

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

// Options configures the AgentLink instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentLink is the high-level façade aggregating named runnables.
type AgentLink struct {
	opts      Options
	runnables map[string]core.Runnable
}

// New creates a new AgentLink instance with optional overrides.
func New(optFns ...func(o *Options)) *AgentLink {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &AgentLink{opts: opts, runnables: make(map[string]core.Runnable)}
}

// Register adds a runnable under its node name. Registering a second
// runnable with the same name replaces the first.
func (l *AgentLink) Register(r core.Runnable) {
	l.runnables[r.Node().Name()] = r
}

// Lookup returns a registered runnable by name.
func (l *AgentLink) Lookup(name string) (core.Runnable, bool) {
	r, ok := l.runnables[name]
	return r, ok
}

// Call synchronously invokes a registered runnable. When task is non-empty it
// is injected as a dynamic binding under the "task" key for this invocation
// and removed afterwards, so permanent wiring is untouched.
func (l *AgentLink) Call(ctx context.Context, name, task string) (any, error) {
	r, err := l.resolve(name)
	if err != nil {
		return nil, err
	}

	cleanup, err := l.injectTask(r, task)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	start := time.Now()
	v, callErr := core.Call(ctx, r)
	l.logInvocation(name, "call", time.Since(start), callErr)
	return v, callErr
}

// Invoke starts a streaming invocation of a registered runnable and returns
// the chunk and error channels. The task, when non-empty, is injected the
// same way as in Call; the dynamic binding is cleared once the stream ends.
func (l *AgentLink) Invoke(ctx context.Context, name, task string) (<-chan any, <-chan error, error) {
	r, err := l.resolve(name)
	if err != nil {
		return nil, nil, err
	}

	cleanup, err := l.injectTask(r, task)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	chunks, errCh := core.Invoke(ctx, r)

	out := make(chan any, 32)
	outErr := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(outErr)
		defer cleanup()

		// Abandonment escape: a caller that stops draining must not pin
		// this goroutine (and the deferred binding cleanup) forever.
		var abandoned error
	forward:
		for {
			select {
			case <-ctx.Done():
				abandoned = ctx.Err()
				break forward
			case chunk, ok := <-chunks:
				if !ok {
					break forward
				}
				select {
				case out <- chunk:
				case <-ctx.Done():
					abandoned = ctx.Err()
					break forward
				}
			}
		}
		// The producer observes the same context, so this receive ends.
		err := <-errCh
		if err == nil {
			err = abandoned
		}
		l.logInvocation(name, "stream", time.Since(start), err)
		if err != nil {
			outErr <- err
		}
	}()

	return out, outErr, nil
}

// ConsumerTree renders the consumer tree of a registered runnable for
// observability output.
func (l *AgentLink) ConsumerTree(name string) (string, error) {
	r, err := l.resolve(name)
	if err != nil {
		return "", err
	}
	return core.ConsumerTree(r.Node(), 0).String(), nil
}

// ProviderTree renders the provider tree of a registered runnable.
func (l *AgentLink) ProviderTree(name string) (string, error) {
	r, err := l.resolve(name)
	if err != nil {
		return "", err
	}
	return core.ProviderTree(r.Node(), 0).String(), nil
}

func (l *AgentLink) resolve(name string) (core.Runnable, error) {
	r, ok := l.runnables[name]
	if !ok {
		return nil, fmt.Errorf("agentlink: unknown runnable: %s", name)
	}
	return r, nil
}

// injectTask binds the task as a dynamic provider and returns the cleanup
// restoring the node's previous dynamic binding.
func (l *AgentLink) injectTask(r core.Runnable, task string) (func(), error) {
	if task == "" {
		return func() {}, nil
	}
	node := r.Node()
	prev := node.Dynamic()
	if err := node.BindDynamic(map[string]any{"task": task}, nil); err != nil {
		return nil, err
	}
	return func() {
		node.ClearDynamic()
		if prev != nil {
			_ = node.BindDynamic(prev.Source(), prev.KeyMap())
		}
	}, nil
}

func (l *AgentLink) logInvocation(name, mode string, dur time.Duration, err error) {
	if al, ok := l.opts.Logger.(*logging.AgentLinkLogger); ok {
		al.LogInvocation(name, mode, dur, err == nil, err)
		return
	}
	if err != nil {
		l.opts.Logger.Error("invocation failed", "runnable", name, "mode", mode, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	l.opts.Logger.Info("invocation completed", "runnable", name, "mode", mode, "duration_ms", dur.Milliseconds())
}
