// Package logging provides a minimal logging interface and adapters for AgentLink.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the upper layers (agents, flows, the facade) use for
// observability. The binding core itself never logs; it is a pure mechanism.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - AgentLinkLogger with contextual helpers for runnables and invocations
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	link := agentlink.New(func(o *agentlink.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available. Default
// loggers are injected at the composition root, never mutated globally.
package logging
