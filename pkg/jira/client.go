package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client is a minimal Jira REST v2 client. It authenticates with a personal
// access token (Bearer) or with basic auth when a username is configured.
type Client struct {
	baseURL    string
	username   string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Config holds Jira connection settings.
type Config struct {
	BaseURL  string
	Username string
	Token    string
	Logger   zerolog.Logger
}

// NewClient creates a Jira client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jira base url is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("jira token is required")
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		token:    cfg.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: cfg.Logger,
	}, nil
}

// Issue is the subset of a Jira issue the tools expose.
type Issue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Assignee struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
	} `json:"fields"`
}

// Search runs a JQL query and returns matching issues.
func (c *Client) Search(ctx context.Context, jql string, maxResults int) ([]Issue, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	body := map[string]interface{}{
		"jql":        jql,
		"maxResults": maxResults,
		"fields":     []string{"summary", "description", "status", "issuetype", "assignee", "priority"},
	}

	var result struct {
		Issues []Issue `json:"issues"`
	}
	if err := c.do(ctx, http.MethodPost, "/rest/api/2/search", body, &result); err != nil {
		return nil, err
	}
	return result.Issues, nil
}

// GetIssue fetches one issue by key.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/issue/"+key, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CreateIssue creates an issue and returns its key.
func (c *Client) CreateIssue(ctx context.Context, project, issueType, summary, description string) (string, error) {
	body := map[string]interface{}{
		"fields": map[string]interface{}{
			"project":     map[string]string{"key": project},
			"issuetype":   map[string]string{"name": issueType},
			"summary":     summary,
			"description": description,
		},
	}

	var result struct {
		Key string `json:"key"`
	}
	if err := c.do(ctx, http.MethodPost, "/rest/api/2/issue", body, &result); err != nil {
		return "", err
	}
	return result.Key, nil
}

// UpdateIssue updates the given fields of an issue.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) error {
	body := map[string]interface{}{"fields": fields}
	return c.do(ctx, http.MethodPut, "/rest/api/2/issue/"+key, body, nil)
}

// Transition describes an available workflow transition.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Transitions lists the transitions currently available for an issue.
func (c *Client) Transitions(ctx context.Context, key string) ([]Transition, error) {
	var result struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/issue/"+key+"/transitions", nil, &result); err != nil {
		return nil, err
	}
	return result.Transitions, nil
}

// TransitionIssue moves an issue through the named workflow transition.
func (c *Client) TransitionIssue(ctx context.Context, key, transitionName string) error {
	transitions, err := c.Transitions(ctx, key)
	if err != nil {
		return err
	}

	for _, tr := range transitions {
		if tr.Name == transitionName {
			body := map[string]interface{}{
				"transition": map[string]string{"id": tr.ID},
			}
			return c.do(ctx, http.MethodPost, "/rest/api/2/issue/"+key+"/transitions", body, nil)
		}
	}
	return fmt.Errorf("transition %q not available for %s", transitionName, key)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("Jira request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("jira API error (status %d): %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode jira response: %w", err)
	}
	return nil
}
