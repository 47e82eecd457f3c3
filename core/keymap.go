package core

import "reflect"

// Transform derives a single value (or, when it returns a map[string]any, a
// one-level batch of values) from a provider's full export snapshot. The
// snapshot must be treated as read-only.
type Transform func(exports map[string]any) (any, error)

// KeyMap is the per-edge rule set translating a provider's exported keys into
// the consumer's expected input keys. Each entry maps a consumer-side target
// key to one of:
//
//   - a string: rename. The provider's value under that source key flows to
//     the target key (omitted when the source key is absent).
//   - a Transform (or any func(map[string]any) (any, error)): computed. The
//     function receives the whole provider snapshot; a map[string]any result
//     is flattened one level into the resolved mapping, anything else lands
//     under the target key.
//   - nil: suppression. The target key is blocked for this consumer for the
//     remainder of the resolution pass, regardless of edge order.
//
// A nil or empty KeyMap means identity passthrough of all provider keys.
type KeyMap map[string]any

// normalize validates every rule and converts raw funcs to Transform so later
// type switches only see the canonical forms. Returns a new map; the caller's
// map is never retained.
func (m KeyMap) normalize() (KeyMap, error) {
	if m == nil {
		return nil, nil
	}
	out := make(KeyMap, len(m))
	for target, rule := range m {
		switch r := rule.(type) {
		case nil:
			out[target] = nil
		case string:
			out[target] = r
		case Transform:
			out[target] = r
		case func(map[string]any) (any, error):
			out[target] = Transform(r)
		default:
			return nil, &BindingTypeError{
				Value:  rule,
				Reason: "key-mapping rule for " + target + " must be a source-key string, a Transform or nil",
			}
		}
	}
	return out, nil
}

// equalKeyMap reports whether two normalized key maps are equivalent.
// Transforms compare by function identity.
func equalKeyMap(a, b KeyMap) bool {
	if len(a) != len(b) {
		return false
	}
	for target, ra := range a {
		rb, ok := b[target]
		if !ok {
			return false
		}
		switch va := ra.(type) {
		case nil:
			if rb != nil {
				return false
			}
		case string:
			vb, ok := rb.(string)
			if !ok || va != vb {
				return false
			}
		case Transform:
			vb, ok := rb.(Transform)
			if !ok || reflect.ValueOf(va).Pointer() != reflect.ValueOf(vb).Pointer() {
				return false
			}
		}
	}
	return true
}
