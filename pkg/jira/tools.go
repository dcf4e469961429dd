package jira

import (
	"context"
	"fmt"
	"strings"

	"github.com/Towich/mail-ads-ai/pkg/toolexec"
)

// RegisterTools adds the Jira tool set backed by client to the registry.
func RegisterTools(registry *toolexec.Registry, client *Client) error {
	defs := []toolexec.Definition{
		{
			Name:        "jira_search",
			Description: "Search Jira issues with a JQL query",
			Parameters: []toolexec.Parameter{
				{Name: "jql", Type: "string", Description: "JQL query string", Required: true},
				{Name: "max_results", Type: "number", Description: "Maximum number of issues to return, default 10", Required: false, Default: 10},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				jql, _ := params["jql"].(string)
				maxResults := 10
				if v, ok := params["max_results"].(float64); ok && v > 0 {
					maxResults = int(v)
				}

				issues, err := client.Search(ctx, jql, maxResults)
				if err != nil {
					return nil, err
				}
				if len(issues) == 0 {
					return "no issues found", nil
				}

				var b strings.Builder
				for _, issue := range issues {
					fmt.Fprintf(&b, "%s [%s] %s\n", issue.Key, issue.Fields.Status.Name, issue.Fields.Summary)
				}
				return b.String(), nil
			},
		},
		{
			Name:        "jira_get_issue",
			Description: "Fetch a Jira issue by key with its full description",
			Parameters: []toolexec.Parameter{
				{Name: "key", Type: "string", Description: "Issue key, e.g. PROJ-123", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				key, _ := params["key"].(string)
				issue, err := client.GetIssue(ctx, key)
				if err != nil {
					return nil, err
				}
				return formatIssue(issue), nil
			},
		},
		{
			Name:        "jira_create_issue",
			Description: "Create a new Jira issue",
			Parameters: []toolexec.Parameter{
				{Name: "project", Type: "string", Description: "Project key", Required: true},
				{Name: "type", Type: "string", Description: "Issue type, e.g. Task or Bug", Required: true},
				{Name: "summary", Type: "string", Description: "Issue summary", Required: true},
				{Name: "description", Type: "string", Description: "Issue description", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				project, _ := params["project"].(string)
				issueType, _ := params["type"].(string)
				summary, _ := params["summary"].(string)
				description, _ := params["description"].(string)

				key, err := client.CreateIssue(ctx, project, issueType, summary, description)
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("created %s", key), nil
			},
		},
		{
			Name:        "jira_update_issue",
			Description: "Update the summary or description of a Jira issue",
			Parameters: []toolexec.Parameter{
				{Name: "key", Type: "string", Description: "Issue key", Required: true},
				{Name: "summary", Type: "string", Description: "New summary", Required: false},
				{Name: "description", Type: "string", Description: "New description", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				key, _ := params["key"].(string)

				fields := map[string]interface{}{}
				if summary, ok := params["summary"].(string); ok && summary != "" {
					fields["summary"] = summary
				}
				if description, ok := params["description"].(string); ok && description != "" {
					fields["description"] = description
				}
				if len(fields) == 0 {
					return nil, fmt.Errorf("nothing to update: provide summary or description")
				}

				if err := client.UpdateIssue(ctx, key, fields); err != nil {
					return nil, err
				}
				return fmt.Sprintf("updated %s", key), nil
			},
		},
		{
			Name:        "jira_transition_issue",
			Description: "Move a Jira issue through a workflow transition, e.g. to In Progress or Done",
			Parameters: []toolexec.Parameter{
				{Name: "key", Type: "string", Description: "Issue key", Required: true},
				{Name: "transition", Type: "string", Description: "Transition name as shown in the workflow", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				key, _ := params["key"].(string)
				transition, _ := params["transition"].(string)

				if err := client.TransitionIssue(ctx, key, transition); err != nil {
					return nil, err
				}
				return fmt.Sprintf("moved %s via %q", key, transition), nil
			},
		},
	}

	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return fmt.Errorf("failed to register %s: %w", def.Name, err)
		}
	}
	return nil
}

func formatIssue(issue *Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Key: %s\n", issue.Key)
	fmt.Fprintf(&b, "Summary: %s\n", issue.Fields.Summary)
	fmt.Fprintf(&b, "Type: %s\n", issue.Fields.IssueType.Name)
	fmt.Fprintf(&b, "Status: %s\n", issue.Fields.Status.Name)
	if issue.Fields.Priority.Name != "" {
		fmt.Fprintf(&b, "Priority: %s\n", issue.Fields.Priority.Name)
	}
	if issue.Fields.Assignee.DisplayName != "" {
		fmt.Fprintf(&b, "Assignee: %s\n", issue.Fields.Assignee.DisplayName)
	}
	if issue.Fields.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", issue.Fields.Description)
	}
	return b.String()
}
