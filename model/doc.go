// Package model defines the normalized request/response contract between
// AgentLink runnables and LLM providers, plus a deterministic MockModel for
// tests and examples. Provider adapters (openai, anthropic) translate these
// structures into vendor SDK calls so downstream logic never branches per
// vendor.
package model
