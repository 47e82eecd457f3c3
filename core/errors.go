package core

import "fmt"

// BindingTypeError reports a usage error at bind time: a value that is neither
// a Runnable, a *Node nor a literal map[string]any was passed where a provider
// or consumer is expected, or a key-mapping rule has an unsupported type. It
// is raised immediately by the Bind* methods, never deferred to resolution.
type BindingTypeError struct {
	Value  any    // the offending value
	Reason string // short description of what was expected
}

func (e *BindingTypeError) Error() string {
	return fmt.Sprintf("core: invalid binding: %s (got %T)", e.Reason, e.Value)
}

// BindingResolutionError wraps an error returned by a key-mapping transform
// function during resolution. Resolution fails fast: the first transform
// error aborts the whole Resolve call.
type BindingResolutionError struct {
	Node string // name of the node being resolved
	Key  string // target key whose transform failed
	Err  error  // the transform's original error
}

func (e *BindingResolutionError) Error() string {
	return fmt.Sprintf("core: resolving key %q for node %q: %v", e.Key, e.Node, e.Err)
}

// Unwrap exposes the transform's original error for errors.Is / errors.As.
func (e *BindingResolutionError) Unwrap() error { return e.Err }
