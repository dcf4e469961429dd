// Package config defines the application configuration and its loader.
package config

import (
	"fmt"
)

// Config is the full application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm" json:"llm"`
	RAG     RAGConfig     `mapstructure:"rag" json:"rag"`
	Agent   AgentConfig   `mapstructure:"agent" json:"agent"`
	Jira    JiraConfig    `mapstructure:"jira" json:"jira"`
	Figma   FigmaConfig   `mapstructure:"figma" json:"figma"`
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`

	// RepoPath is the repository the git tools and the review workflow
	// operate on. Defaults to the current working directory.
	RepoPath string `mapstructure:"repo_path" json:"repo_path"`

	// DataDir holds the vector database, metadata index and log file.
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
}

// LLMConfig selects and configures the chat model provider.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider" json:"provider"` // openai, anthropic, ollama
	APIKey      string  `mapstructure:"api_key" json:"api_key"`
	BaseURL     string  `mapstructure:"base_url" json:"base_url"`
	Model       string  `mapstructure:"model" json:"model"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	MaxRetries  int     `mapstructure:"max_retries" json:"max_retries"`
}

// RAGConfig configures document indexing and retrieval.
type RAGConfig struct {
	DocsPath          string `mapstructure:"docs_path" json:"docs_path"`
	ChunkSize         int    `mapstructure:"chunk_size" json:"chunk_size"`
	Overlap           int    `mapstructure:"overlap" json:"overlap"`
	TopK              int    `mapstructure:"top_k" json:"top_k"`
	EmbeddingProvider string `mapstructure:"embedding_provider" json:"embedding_provider"` // openai, ollama
	EmbeddingModel    string `mapstructure:"embedding_model" json:"embedding_model"`
	EmbeddingBaseURL  string `mapstructure:"embedding_base_url" json:"embedding_base_url"`
	EmbeddingAPIKey   string `mapstructure:"embedding_api_key" json:"embedding_api_key"`
	Watch             bool   `mapstructure:"watch" json:"watch"`
	ReindexSchedule   string `mapstructure:"reindex_schedule" json:"reindex_schedule"` // cron spec, empty disables
}

// AgentConfig tunes the conversation loop.
type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations" json:"max_iterations"`
	HistoryWindow int `mapstructure:"history_window" json:"history_window"`
}

// JiraConfig configures the optional Jira integration.
type JiraConfig struct {
	BaseURL  string `mapstructure:"base_url" json:"base_url"`
	Username string `mapstructure:"username" json:"username"`
	Token    string `mapstructure:"token" json:"token"`
}

// FigmaConfig configures the optional Figma integration.
type FigmaConfig struct {
	Token string `mapstructure:"token" json:"token"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level   string `mapstructure:"level" json:"level"`
	File    string `mapstructure:"file" json:"file"`
	Console bool   `mapstructure:"console" json:"console"`
	Pretty  bool   `mapstructure:"pretty" json:"pretty"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			Temperature: 0.7,
			MaxRetries:  3,
		},
		RAG: RAGConfig{
			DocsPath:          "docs",
			ChunkSize:         500,
			Overlap:           50,
			TopK:              5,
			EmbeddingProvider: "openai",
			EmbeddingModel:    "text-embedding-3-small",
		},
		Agent: AgentConfig{
			MaxIterations: 25,
			HistoryWindow: 5,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %s", c.LLM.Provider)
		}
	case "ollama":
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature must be between 0 and 1")
	}

	switch c.RAG.EmbeddingProvider {
	case "openai":
		if c.RAG.EmbeddingAPIKey == "" && c.LLM.APIKey == "" {
			return fmt.Errorf("rag.embedding_api_key is required for the openai embedding provider")
		}
	case "ollama":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.RAG.EmbeddingProvider)
	}

	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive")
	}
	if c.RAG.Overlap < 0 || c.RAG.Overlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.overlap must be non-negative and smaller than rag.chunk_size")
	}

	return nil
}

// EmbeddingKey returns the API key to use for embeddings, falling back to
// the chat provider's key.
func (c *Config) EmbeddingKey() string {
	if c.RAG.EmbeddingAPIKey != "" {
		return c.RAG.EmbeddingAPIKey
	}
	return c.LLM.APIKey
}
