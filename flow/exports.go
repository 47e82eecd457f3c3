package flow

import "github.com/hupe1980/agentlink/core"

// syncExports mirrors the resolved inputs onto a flow node's store so the
// first step (or the branches) can read them through their edges. Keys
// exported by a previous invocation but absent from the current inputs are
// deleted, so stale values never leak into a later run. Returns the key set
// to carry into the next invocation.
func syncExports(node *core.Node, prev []string, inputs map[string]any) []string {
	for _, k := range prev {
		if _, ok := inputs[k]; !ok {
			node.Export(k, nil)
		}
	}
	keys := make([]string, 0, len(inputs))
	for k, v := range inputs {
		node.Export(k, v)
		keys = append(keys, k)
	}
	return keys
}
