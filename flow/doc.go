// Package flow provides orchestration runnables that compose other runnables
// through the binding graph: Sequential chains steps edge by edge, Parallel
// fans branches out concurrently and Loop feeds a body's output back into its
// own input via a dynamic binding. Flows are themselves runnables, so they
// nest.
package flow
