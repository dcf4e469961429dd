package rag

import (
	"context"

	"github.com/Towich/mail-ads-ai/pkg/toolexec"
)

// searchToolResult is the JSON shape returned to the model by rag_search.
type searchToolResult struct {
	Success bool              `json:"success"`
	Query   string            `json:"query"`
	Results []searchToolChunk `json:"results"`
	Count   int               `json:"count"`
}

type searchToolChunk struct {
	Source    string  `json:"source"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

// RegisterSearchTool registers the rag_search tool backed by the service.
func RegisterSearchTool(registry *toolexec.Registry, svc *Service) error {
	return registry.Register(toolexec.Definition{
		Name: "rag_search",
		Description: "Semantic search over the project documentation. Use it to find " +
			"information in docs and README files, or when the user asks about the " +
			"project, its structure, architecture, or how something works.",
		Parameters: []toolexec.Parameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "Search query to run against the project documentation",
				Required:    true,
			},
			{
				Name:        "top_k",
				Type:        "integer",
				Description: "Number of results to return (default 5, maximum 10)",
				Default:     5,
			},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			query, _ := params["query"].(string)

			topK := 5
			if v, ok := params["top_k"].(float64); ok {
				topK = int(v)
			}
			if topK < 1 {
				topK = 1
			}
			if topK > 10 {
				topK = 10
			}

			chunks, err := svc.Search(ctx, query, topK)
			if err != nil {
				return nil, err
			}

			results := make([]searchToolChunk, 0, len(chunks))
			for _, chunk := range chunks {
				results = append(results, searchToolChunk{
					Source:    chunk.Source,
					Content:   chunk.Content,
					Relevance: chunk.Similarity,
				})
			}

			return searchToolResult{
				Success: true,
				Query:   query,
				Results: results,
				Count:   len(results),
			}, nil
		},
	})
}
