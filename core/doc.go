// Package core implements the reactive binding graph that underlies every
// runnable component in AgentLink (chat agents, templates, tools, flows).
//
// A component participates in the graph through a Node: a stable identity, a
// private value store of exported key/value pairs, and a registry of directed
// binding edges to the providers it consumes from and the consumers that
// consume from it. At call time the invocation adapter resolves the node's
// effective input mapping by merging provider exports in registration order
// (single-hop store reads, never recursive), applying per-edge key mappings
// (identity, rename, transform, suppress) and finally the call-scoped dynamic
// binding, which always wins.
//
// The package is a pure mechanism: it never logs, retries or swallows errors,
// and Resolve is a fast synchronous computation over already-materialized
// stores. Nodes are not safe for concurrent use; drive each node from one
// logical task at a time and perform edge registration during setup.
package core
