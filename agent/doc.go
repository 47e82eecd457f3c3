// Package agent provides the chat agent runnable: an LLM-driven node in the
// binding graph. A ChatAgent reads its task from resolved provider inputs,
// renders its instruction template against them, executes requested tool
// calls in a bounded turn loop and commits the final assistant text as its
// node output, where downstream consumers pick it up through their bindings.
package agent
