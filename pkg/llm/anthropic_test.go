package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredNames(t *testing.T) {
	t.Run("should pass through a string slice", func(t *testing.T) {
		assert.Equal(t, []string{"query", "top_k"}, requiredNames([]string{"query", "top_k"}))
	})

	t.Run("should normalize a JSON-decoded interface slice", func(t *testing.T) {
		assert.Equal(t, []string{"query"}, requiredNames([]interface{}{"query"}))
	})

	t.Run("should drop non-string entries", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b"}, requiredNames([]interface{}{"a", 42, "b"}))
	})

	t.Run("should return nil for absent or unexpected values", func(t *testing.T) {
		assert.Nil(t, requiredNames(nil))
		assert.Nil(t, requiredNames("query"))
		assert.Nil(t, requiredNames(map[string]interface{}{}))
	})
}
