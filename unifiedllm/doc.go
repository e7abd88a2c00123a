// Package unifiedllm defines the provider-agnostic wire contract the agent
// loop speaks to whatever LLM backend is plugged in: message and content-part
// types, the request/response and streaming shapes, and the ProviderAdapter
// interface an adapter implements against them.
//
// This is the contract surface only. A real provider backend (gollm-backed
// or otherwise) lives in its own adapter package and is handed to the loop
// through Deps.Adapter; unifiedllm itself carries no client, no retry logic,
// and no provider wiring.
//
// # Messages
//
//	msg := unifiedllm.UserMessage("hello")
//	req := unifiedllm.Request{
//	    Model:    "claude-opus-4-6",
//	    Messages: []unifiedllm.Message{msg},
//	}
//
// # Model Catalog
//
// A built-in catalog of known models helps validate model identifiers and
// look up their context window and capabilities:
//
//	info := unifiedllm.GetModelInfo("claude-opus-4-6")
package unifiedllm
