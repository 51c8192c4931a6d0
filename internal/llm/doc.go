// Package llm provides the AI fallback arbitrator that enhances
// low-confidence extractions. It supports multiple LLM providers
// including OpenAI, Anthropic, and local Ollama, with retry logic, rate
// limiting, and per-call timeouts.
package llm
