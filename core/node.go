package core

import (
	"github.com/google/uuid"
)

// DefaultOutputKey is the store key under which the invocation adapter
// commits a runnable's last output unless overridden per node.
const DefaultOutputKey = "last_output"

// Node is the unit of composition in the binding graph. Every runnable owns
// exactly one Node carrying its identity, its private value store and its
// binding registry (ordered provider edges, consumer back-edges and the
// single call-scoped dynamic binding slot).
//
// Edge registration is expected to happen during a quiescent setup phase;
// Node is not safe for concurrent use.
type Node struct {
	id        string
	name      string
	outputKey string
	store     *Store
	providers []*Binding
	consumers []*Binding
	dynamic   *Binding
}

// NodeOptions configures Node construction.
type NodeOptions struct {
	// OutputKey overrides the store key the invocation adapter commits the
	// node's last output under. Defaults to DefaultOutputKey.
	OutputKey string
}

// ProviderSpec declares one provider edge for NewInstance.
type ProviderSpec struct {
	Source  any
	KeyMap  KeyMap
	Dynamic bool
}

// NewNode constructs a standalone node with an empty registry and store.
func NewNode(name string, optFns ...func(o *NodeOptions)) *Node {
	opts := NodeOptions{OutputKey: DefaultOutputKey}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Node{
		id:        uuid.NewString(),
		name:      name,
		outputKey: opts.OutputKey,
		store:     NewStore(),
	}
}

// NewInstance constructs a node and registers the given provider edges in
// order. It is the construction contract used by upper layers to wire
// themselves together in one call.
func NewInstance(name string, providers ...ProviderSpec) (*Node, error) {
	n := NewNode(name)
	for _, p := range providers {
		var err error
		if p.Dynamic {
			err = n.BindDynamic(p.Source, p.KeyMap)
		} else {
			err = n.BindProvider(p.Source, p.KeyMap)
		}
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

// ID returns the node's stable unique identifier.
func (n *Node) ID() string { return n.id }

// Name returns the human-readable node name used in trees and logs.
func (n *Node) Name() string { return n.name }

// Node returns the node itself so a bare *Node satisfies the graph half of
// the Runnable contract and can be passed wherever a source is expected.
func (n *Node) Node() *Node { return n }

// OutputKey returns the store key the last output is committed under.
func (n *Node) OutputKey() string { return n.outputKey }

// Exports returns a snapshot of the node's currently exported values.
func (n *Node) Exports() map[string]any { return n.store.Exports() }

// Export writes a key/value pair to the node's own store (nil deletes).
// It must only be called from the node's own Perform logic; consumers read
// exports through their bindings, never write them.
func (n *Node) Export(key string, value any) { n.store.Set(key, value) }

// commit is the single set-last-output path used by the invocation adapter.
func (n *Node) commit(value any) { n.store.Set(n.outputKey, value) }

// BindProvider declares that this node consumes from source, optionally
// through a key mapping. Binding the same source twice with an equivalent
// mapping is a no-op; with a different mapping the existing edge's mapping is
// updated in place, preserving registration order. Node sources receive the
// symmetric consumer back-edge; literal mappings do not, since they never
// consume. Self-binding is permitted and resolves as a single-hop read of the
// node's own store.
func (n *Node) BindProvider(source any, keyMap KeyMap) error {
	src, err := normalizeSource(source)
	if err != nil {
		return err
	}
	km, err := keyMap.normalize()
	if err != nil {
		return err
	}
	for _, b := range n.providers {
		if sameSource(b.source, src) {
			if equalKeyMap(b.keyMap, km) {
				return nil
			}
			b.keyMap = km
			if sn, ok := src.(*Node); ok {
				sn.updateConsumerEdge(n, km)
			}
			return nil
		}
	}
	n.providers = append(n.providers, &Binding{source: src, keyMap: km})
	if sn, ok := src.(*Node); ok {
		sn.consumers = append(sn.consumers, &Binding{source: n, keyMap: km})
	}
	return nil
}

// BindDynamic replaces (never merges) the node's call-scoped dynamic binding.
// The dynamic edge is applied last during resolution, overriding all
// permanent providers, and never appears in the permanent registry or in any
// consumer list.
func (n *Node) BindDynamic(source any, keyMap KeyMap) error {
	src, err := normalizeSource(source)
	if err != nil {
		return err
	}
	km, err := keyMap.normalize()
	if err != nil {
		return err
	}
	n.dynamic = &Binding{source: src, keyMap: km}
	return nil
}

// ClearDynamic drops the dynamic binding, if any.
func (n *Node) ClearDynamic() { n.dynamic = nil }

// Dynamic returns the current dynamic binding, or nil.
func (n *Node) Dynamic() *Binding { return n.dynamic }

// BindConsumer is the symmetric convenience: it registers this node as a
// provider of target. Literal mappings cannot consume.
func (n *Node) BindConsumer(target any, keyMap KeyMap) error {
	tgt, err := normalizeSource(target)
	if err != nil {
		return err
	}
	tn, ok := tgt.(*Node)
	if !ok {
		return &BindingTypeError{Value: target, Reason: "consumer must be a Runnable or *Node"}
	}
	return tn.BindProvider(n, keyMap)
}

// Providers returns the permanent provider edges in registration order.
// The slice is a copy; the edges are shared.
func (n *Node) Providers() []*Binding {
	out := make([]*Binding, len(n.providers))
	copy(out, n.providers)
	return out
}

// Consumers returns the consumer back-edges in registration order.
func (n *Node) Consumers() []*Binding {
	out := make([]*Binding, len(n.consumers))
	copy(out, n.consumers)
	return out
}

// updateConsumerEdge mirrors a keymap update onto the back-edge held by this
// provider for the given consumer.
func (n *Node) updateConsumerEdge(consumer *Node, km KeyMap) {
	for _, b := range n.consumers {
		if cn, ok := b.source.(*Node); ok && cn == consumer {
			b.keyMap = km
			return
		}
	}
}
