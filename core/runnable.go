package core

import "context"

// Runnable is the uniform call contract every AgentLink component implements.
// Authors implement exactly one canonical Perform method; the invocation
// adapter (Call, CallAsync, Invoke, Each) layers the remaining sync/async and
// single/streaming variants on top without requiring duplicate author code.
//
// Perform receives the resolved binding mapping as inputs, computed by the
// adapter immediately before the call. Implementations may export additional
// keys through their own Node during execution; the adapter commits the final
// output under the node's output key on completion.
type Runnable interface {
	// Node returns the component's graph participation handle.
	Node() *Node

	// Perform executes the component's own logic against the resolved
	// inputs, returning either a Value or a Stream. Errors propagate to the
	// caller unwrapped and leave the value store unmodified.
	Perform(ctx context.Context, inputs map[string]any) (Output, error)
}

// Output is the tagged result variant of Perform: a single Value or an
// incrementally produced Stream.
type Output interface{ isOutput() }

// Value is a single-result output.
type Value struct{ V any }

func (Value) isOutput() {}

// Stream is a lazily produced sequence of chunks paired with the producer's
// terminal error, the same channel pair shape used for model generation. The
// producer must close Ch when done; a chunk of nil is ignored by the adapter.
// The adapter reads Err after Ch closes: a non-nil error means the invocation
// failed and nothing is committed. Err may be left nil by producers that
// cannot fail once the stream is returned.
type Stream struct {
	Ch  <-chan any
	Err <-chan error
}

func (Stream) isOutput() {}
