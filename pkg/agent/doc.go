// Package agent implements the tool-calling conversation loop.
//
// A Service owns one persistent conversation. Each ProcessQuery call sends
// the system prompt plus a bounded tail of history to the model, dispatches
// any requested tool calls through the registry, feeds the results back and
// repeats until the model answers without tool requests.
//
// Invariants:
//   - Tool calls within a response are dispatched sequentially in the order
//     the model emitted them, and every dispatched call produces exactly one
//     tool message carrying its request id.
//   - A tool call without a request id is skipped with a warning, never
//     dispatched.
//   - The loop runs at most MaxIterations passes; hitting the cap returns
//     the last assistant content rather than an error.
//   - Transport and model failures surface as user-visible text; the only
//     error ProcessQuery returns is context cancellation.
//   - Review runs an isolated one-shot conversation and never mutates the
//     persistent history.
package agent
