// Package chat defines the conversation data model shared by the agent loop
// and the model clients.
//
// Invariants:
// - A tool message carries the tool_call_id of the request it answers.
// - History preserves insertion order; Tail never reorders.
package chat
