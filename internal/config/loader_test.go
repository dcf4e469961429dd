package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should return defaults when the file is missing", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
		require.NoError(t, err)

		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, 500, cfg.RAG.ChunkSize)
		assert.Equal(t, 50, cfg.RAG.Overlap)
		assert.Equal(t, 25, cfg.Agent.MaxIterations)
		assert.Equal(t, 5, cfg.Agent.HistoryWindow)
		assert.NotEmpty(t, cfg.DataDir)
		assert.NotEmpty(t, cfg.RepoPath)
		assert.NotEmpty(t, cfg.Logging.File)
	})

	t.Run("should merge file values over the defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		content := `{
			"llm": {"provider": "ollama", "model": "llama3", "temperature": 0.2},
			"agent": {"max_iterations": 10},
			"data_dir": "/tmp/mail-ads-test"
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "ollama", cfg.LLM.Provider)
		assert.Equal(t, "llama3", cfg.LLM.Model)
		assert.Equal(t, 0.2, cfg.LLM.Temperature)
		assert.Equal(t, 10, cfg.Agent.MaxIterations)
		// untouched sections keep their defaults
		assert.Equal(t, 5, cfg.Agent.HistoryWindow)
		assert.Equal(t, 500, cfg.RAG.ChunkSize)
		assert.Equal(t, "/tmp/mail-ads-test", cfg.DataDir)
	})

	t.Run("should fail on a corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("should round-trip through save", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")

		cfg := DefaultConfig()
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.Model = "claude-sonnet"
		cfg.DataDir = "/tmp/data"
		cfg.RepoPath = "/tmp/repo"

		loader := NewLoader(path)
		require.NoError(t, loader.Save(cfg))

		reloaded, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, "anthropic", reloaded.LLM.Provider)
		assert.Equal(t, "claude-sonnet", reloaded.LLM.Model)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.LLM.APIKey = "sk-test"
		return cfg
	}

	t.Run("should accept a complete configuration", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("should require an api key for hosted providers", func(t *testing.T) {
		cfg := valid()
		cfg.LLM.APIKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("should not require an api key for ollama", func(t *testing.T) {
		cfg := valid()
		cfg.LLM.Provider = "ollama"
		cfg.LLM.APIKey = ""
		cfg.RAG.EmbeddingProvider = "ollama"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("should reject an unknown provider", func(t *testing.T) {
		cfg := valid()
		cfg.LLM.Provider = "mystery"
		assert.Error(t, cfg.Validate())
	})

	t.Run("should reject an out-of-range temperature", func(t *testing.T) {
		cfg := valid()
		cfg.LLM.Temperature = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("should reject overlap not smaller than chunk size", func(t *testing.T) {
		cfg := valid()
		cfg.RAG.Overlap = cfg.RAG.ChunkSize
		assert.Error(t, cfg.Validate())
	})

	t.Run("should fall back to the llm key for embeddings", func(t *testing.T) {
		cfg := valid()
		assert.Equal(t, "sk-test", cfg.EmbeddingKey())

		cfg.RAG.EmbeddingAPIKey = "sk-embed"
		assert.Equal(t, "sk-embed", cfg.EmbeddingKey())
	})
}
