package core

// Resolve computes the node's effective consumed mapping: provider exports
// merged in registration order (last provider wins per key), followed by the
// dynamic binding, which always has final precedence.
//
// Each provider edge is a single-hop read of the provider's own store
// snapshot, never a recursive resolve of the provider's consumed mapping,
// so cyclic graphs terminate. Suppression (a nil key-mapping rule) is
// terminal for the remainder of the permanent pass regardless of edge order;
// the dynamic binding is applied afterwards with an independent suppression
// scope and may therefore restore a suppressed key.
//
// Resolution is pure and fails fast: the first transform error aborts the
// whole call with a *BindingResolutionError.
func (n *Node) Resolve() (map[string]any, error) {
	result := make(map[string]any)
	suppressed := make(map[string]struct{})
	for _, b := range n.providers {
		if err := n.mergeEdge(result, suppressed, b); err != nil {
			return nil, err
		}
	}
	if n.dynamic != nil {
		if err := n.mergeEdge(result, make(map[string]struct{}), n.dynamic); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// mergeEdge applies one edge's key mapping to the provider snapshot and
// merges the outcome into result. Suppression rules run before value rules so
// rule order inside a single key map does not matter.
func (n *Node) mergeEdge(result map[string]any, suppressed map[string]struct{}, b *Binding) error {
	exports := b.sourceExports()

	if len(b.keyMap) == 0 {
		for k, v := range exports {
			if v == nil {
				continue
			}
			if _, blocked := suppressed[k]; blocked {
				continue
			}
			result[k] = v
		}
		return nil
	}

	for target, rule := range b.keyMap {
		if rule == nil {
			delete(result, target)
			suppressed[target] = struct{}{}
		}
	}

	for target, rule := range b.keyMap {
		switch r := rule.(type) {
		case string:
			v, ok := exports[r]
			if !ok || v == nil {
				continue
			}
			if _, blocked := suppressed[target]; blocked {
				continue
			}
			result[target] = v
		case Transform:
			v, err := r(exports)
			if err != nil {
				return &BindingResolutionError{Node: n.name, Key: target, Err: err}
			}
			if batch, ok := v.(map[string]any); ok {
				// One-to-many derivation: flattened exactly one level.
				for k, bv := range batch {
					if bv == nil {
						continue
					}
					if _, blocked := suppressed[k]; blocked {
						continue
					}
					result[k] = bv
				}
				continue
			}
			if v == nil {
				continue
			}
			if _, blocked := suppressed[target]; blocked {
				continue
			}
			result[target] = v
		}
	}
	return nil
}
