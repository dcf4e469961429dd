package jira

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

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL: server.URL,
		Token:   "pat-token",
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("should require base url and token", func(t *testing.T) {
		_, err := NewClient(Config{Token: "t"})
		assert.Error(t, err)

		_, err = NewClient(Config{BaseURL: "https://jira.example.com"})
		assert.Error(t, err)
	})
}

func TestSearch(t *testing.T) {
	t.Run("should send the jql and decode issues", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/api/2/search", r.URL.Path)
			assert.Equal(t, "Bearer pat-token", r.Header.Get("Authorization"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "project = ADS", body["jql"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"issues": []map[string]interface{}{
					{"key": "ADS-1", "fields": map[string]interface{}{
						"summary": "Fix banner rotation",
						"status":  map[string]string{"name": "Open"},
					}},
				},
			})
		})

		issues, err := client.Search(context.Background(), "project = ADS", 10)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, "ADS-1", issues[0].Key)
		assert.Equal(t, "Open", issues[0].Fields.Status.Name)
	})

	t.Run("should surface API errors", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad jql", http.StatusBadRequest)
		})

		_, err := client.Search(context.Background(), "nonsense", 10)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})
}

func TestTransitionIssue(t *testing.T) {
	t.Run("should resolve the transition by name and post its id", func(t *testing.T) {
		var posted map[string]interface{}

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				json.NewEncoder(w).Encode(map[string]interface{}{
					"transitions": []map[string]string{
						{"id": "21", "name": "In Progress"},
						{"id": "31", "name": "Done"},
					},
				})
			case http.MethodPost:
				require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
				w.WriteHeader(http.StatusNoContent)
			}
		})

		err := client.TransitionIssue(context.Background(), "ADS-1", "Done")
		require.NoError(t, err)

		transition, ok := posted["transition"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "31", transition["id"])
	})

	t.Run("should fail for an unavailable transition", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"transitions": []map[string]string{}})
		})

		err := client.TransitionIssue(context.Background(), "ADS-1", "Reopen")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not available")
	})
}

func TestJiraTools(t *testing.T) {
	t.Run("should register the full tool set", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

		registry := toolexec.NewRegistry(zerolog.Nop())
		require.NoError(t, RegisterTools(registry, client))
		assert.Equal(t, 5, registry.Len())
	})

	t.Run("should format search results as one line per issue", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"issues": []map[string]interface{}{
					{"key": "ADS-7", "fields": map[string]interface{}{
						"summary": "Broken layout",
						"status":  map[string]string{"name": "In Progress"},
					}},
				},
			})
		})

		registry := toolexec.NewRegistry(zerolog.Nop())
		require.NoError(t, RegisterTools(registry, client))

		result := registry.Execute(context.Background(), "jira_search", map[string]interface{}{"jql": "project = ADS"})
		require.True(t, result.Success, result.Error)
		assert.Contains(t, result.Output, "ADS-7 [In Progress] Broken layout")
	})
}
