// Package toolexec provides the tool registry the agent loop dispatches
// through: named capabilities with JSON-Schema-validated parameters.
//
// Invariants:
// - Execute never returns an error or panics; every failure is a Result.
// - Duplicate registration replaces the earlier tool (last wins).
// - Descriptors enumerate tools in first-registration order.
package toolexec
