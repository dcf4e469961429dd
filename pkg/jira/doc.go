// Package jira provides a small Jira REST client and the agent tools built
// on top of it.
package jira
