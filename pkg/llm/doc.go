// Package llm abstracts the chat model behind a single-method client and
// provides OpenAI-compatible, Anthropic and Ollama implementations plus a
// retry decorator.
package llm
