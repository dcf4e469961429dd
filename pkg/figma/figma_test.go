package figma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Towich/mail-ads-ai/pkg/toolexec"
)

func TestParseFileKey(t *testing.T) {
	t.Run("should accept a raw key", func(t *testing.T) {
		key, err := ParseFileKey("aBc123XyZ")
		require.NoError(t, err)
		assert.Equal(t, "aBc123XyZ", key)
	})

	t.Run("should extract the key from a file url", func(t *testing.T) {
		key, err := ParseFileKey("https://www.figma.com/file/aBc123XyZ/My-Design?node-id=1")
		require.NoError(t, err)
		assert.Equal(t, "aBc123XyZ", key)
	})

	t.Run("should extract the key from a design url", func(t *testing.T) {
		key, err := ParseFileKey("https://www.figma.com/design/Qwe456/Another")
		require.NoError(t, err)
		assert.Equal(t, "Qwe456", key)
	})

	t.Run("should reject unrelated urls and empty input", func(t *testing.T) {
		_, err := ParseFileKey("https://example.com/file/abc")
		assert.Error(t, err)

		_, err = ParseFileKey("")
		assert.Error(t, err)
	})
}

func TestGetFile(t *testing.T) {
	t.Run("should fetch and decode a file", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/files/key123", r.URL.Path)
			assert.Equal(t, "secret", r.Header.Get("X-Figma-Token"))

			json.NewEncoder(w).Encode(map[string]interface{}{
				"name":         "Landing Page",
				"version":      "42",
				"lastModified": "2026-08-01T00:00:00Z",
				"document": map[string]interface{}{
					"children": []map[string]interface{}{
						{"id": "1:1", "name": "Page 1", "type": "CANVAS"},
					},
				},
			})
		}))
		defer server.Close()

		client, err := NewClient("secret", zerolog.Nop())
		require.NoError(t, err)
		client.baseURL = server.URL

		file, err := client.GetFile(context.Background(), "key123", 2)
		require.NoError(t, err)
		assert.Equal(t, "Landing Page", file.Name)
		require.Len(t, file.Document.Children, 1)
		assert.Equal(t, "Page 1", file.Document.Children[0].Name)
	})

	t.Run("should surface API errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"err":"not found"}`, http.StatusNotFound)
		}))
		defer server.Close()

		client, err := NewClient("secret", zerolog.Nop())
		require.NoError(t, err)
		client.baseURL = server.URL

		_, err = client.GetFile(context.Background(), "missing", 2)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

func TestRegisterTools(t *testing.T) {
	t.Run("should format the file structure for the model", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"name":    "Design",
				"version": "1",
				"document": map[string]interface{}{
					"children": []map[string]interface{}{
						{
							"id": "1:1", "name": "Page 1", "type": "CANVAS",
							"children": []map[string]interface{}{
								{"id": "1:2", "name": "Header", "type": "FRAME"},
							},
						},
					},
				},
			})
		}))
		defer server.Close()

		client, err := NewClient("secret", zerolog.Nop())
		require.NoError(t, err)
		client.baseURL = server.URL

		registry := toolexec.NewRegistry(zerolog.Nop())
		require.NoError(t, RegisterTools(registry, client))

		result := registry.Execute(context.Background(), "figma_get_file", map[string]interface{}{
			"file": "https://www.figma.com/file/abc123/Design",
		})
		require.True(t, result.Success, result.Error)

		output, ok := result.Output.(string)
		require.True(t, ok)
		assert.Contains(t, output, "Name: Design")
		assert.Contains(t, output, "Page 1 (CANVAS)")
		assert.Contains(t, output, "Header (FRAME)")
	})
}
