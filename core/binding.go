package core

import "reflect"

// Binding is one directed edge in the graph. On a node's provider list the
// source is the provider (a *Node or a literal map[string]any); on a node's
// consumer list the source is the consuming node. The key map travels with
// the edge and is shared by both sides.
type Binding struct {
	source any
	keyMap KeyMap
}

// Source returns the edge's counterpart: a *Node or a literal map[string]any.
func (b *Binding) Source() any { return b.source }

// KeyMap returns the edge's key mapping (nil means identity passthrough).
func (b *Binding) KeyMap() KeyMap { return b.keyMap }

// SourceNode returns the counterpart as a *Node when the edge connects two
// nodes (as opposed to a literal provider).
func (b *Binding) SourceNode() (*Node, bool) {
	n, ok := b.source.(*Node)
	return n, ok
}

// Literal returns the counterpart as a literal mapping, if it is one.
func (b *Binding) Literal() (map[string]any, bool) {
	m, ok := b.source.(map[string]any)
	return m, ok
}

// sourceExports materializes the provider side of the edge as a snapshot:
// a single-hop read of a node's own store, or the literal mapping as-is.
// This is deliberately not a recursive resolve of the provider, so cycles in
// the graph cannot cause unbounded recursion.
func (b *Binding) sourceExports() map[string]any {
	switch s := b.source.(type) {
	case *Node:
		return s.store.Exports()
	case map[string]any:
		return s
	}
	return nil
}

// normalizeSource coerces the supported provider/consumer source types into
// their internal representation (*Node or map[string]any) and rejects
// everything else with a BindingTypeError.
func normalizeSource(source any) (any, error) {
	switch s := source.(type) {
	case *Node:
		if s == nil {
			return nil, &BindingTypeError{Value: source, Reason: "nil node"}
		}
		return s, nil
	case Runnable:
		n := s.Node()
		if n == nil {
			return nil, &BindingTypeError{Value: source, Reason: "runnable returned a nil node"}
		}
		return n, nil
	case map[string]any:
		return s, nil
	case nil:
		return nil, &BindingTypeError{Value: source, Reason: "source must not be nil"}
	default:
		return nil, &BindingTypeError{
			Value:  source,
			Reason: "source must be a Runnable, *Node or map[string]any",
		}
	}
}

// sameSource reports whether two normalized sources identify the same edge
// counterpart: pointer identity for nodes, deep equality for literals.
func sameSource(a, b any) bool {
	an, aok := a.(*Node)
	bn, bok := b.(*Node)
	if aok || bok {
		return aok && bok && an == bn
	}
	return reflect.DeepEqual(a, b)
}
