// Package figma provides a read-only Figma API client and its agent tool.
package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Towich/mail-ads-ai/pkg/toolexec"
)

// fileKeyPattern extracts the file key from a Figma file or design URL.
var fileKeyPattern = regexp.MustCompile(`figma\.com/(?:file|design)/([a-zA-Z0-9]+)`)

// Client calls the Figma REST API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Figma client with the given personal access token.
func NewClient(token string, logger zerolog.Logger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("figma token is required")
	}
	return &Client{
		token:   token,
		baseURL: "https://api.figma.com",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

// File is the subset of a Figma file the tool exposes.
type File struct {
	Name         string `json:"name"`
	LastModified string `json:"lastModified"`
	Version      string `json:"version"`
	Document     struct {
		Children []Node `json:"children"`
	} `json:"document"`
}

// Node is a document node with its immediate children.
type Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Children []Node `json:"children,omitempty"`
}

// GetFile fetches a file's metadata and top-level structure. depth limits
// how deep the document tree is returned.
func (c *Client) GetFile(ctx context.Context, key string, depth int) (*File, error) {
	if depth <= 0 {
		depth = 2
	}

	url := fmt.Sprintf("%s/v1/files/%s?depth=%d", c.baseURL, key, depth)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Figma-Token", c.token)

	c.logger.Debug().Str("file_key", key).Msg("Fetching Figma file")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("figma request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("figma API error (status %d): %s", resp.StatusCode, string(body))
	}

	var file File
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode figma response: %w", err)
	}
	return &file, nil
}

// ParseFileKey accepts either a raw file key or a full Figma URL.
func ParseFileKey(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("file key or url is required")
	}
	if m := fileKeyPattern.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	if strings.Contains(input, "/") {
		return "", fmt.Errorf("could not extract a file key from %q", input)
	}
	return input, nil
}

// RegisterTools adds the Figma tool set backed by client to the registry.
func RegisterTools(registry *toolexec.Registry, client *Client) error {
	def := toolexec.Definition{
		Name:        "figma_get_file",
		Description: "Fetch the structure of a Figma design file by key or URL",
		Parameters: []toolexec.Parameter{
			{Name: "file", Type: "string", Description: "Figma file key or a figma.com file URL", Required: true},
			{Name: "depth", Type: "number", Description: "Document tree depth to return, default 2", Required: false, Default: 2},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			input, _ := params["file"].(string)
			key, err := ParseFileKey(input)
			if err != nil {
				return nil, err
			}

			depth := 2
			if v, ok := params["depth"].(float64); ok && v > 0 {
				depth = int(v)
			}

			file, err := client.GetFile(ctx, key, depth)
			if err != nil {
				return nil, err
			}
			return formatFile(file), nil
		},
	}

	if err := registry.Register(def); err != nil {
		return fmt.Errorf("failed to register %s: %w", def.Name, err)
	}
	return nil
}

func formatFile(file *File) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", file.Name)
	fmt.Fprintf(&b, "Version: %s\n", file.Version)
	fmt.Fprintf(&b, "Last modified: %s\n", file.LastModified)
	b.WriteString("Structure:\n")
	for _, node := range file.Document.Children {
		writeNode(&b, node, 1)
	}
	return b.String()
}

func writeNode(b *strings.Builder, node Node, indent int) {
	fmt.Fprintf(b, "%s- %s (%s)\n", strings.Repeat("  ", indent), node.Name, node.Type)
	for _, child := range node.Children {
		writeNode(b, child, indent+1)
	}
}
