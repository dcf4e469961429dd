// Package review implements the code review workflow: collect the pending
// changes of a git working tree, have the agent review them in an isolated
// conversation, and persist the report as a markdown file.
package review
