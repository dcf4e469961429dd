package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Towich/mail-ads-ai/internal/config"
)

func TestStartReindexers(t *testing.T) {
	t.Run("should start nothing when watch and schedule are off", func(t *testing.T) {
		stop, err := startReindexers(config.RAGConfig{}, t.TempDir(), zerolog.Nop(), func() {
			t.Fatal("reindex must not run")
		})
		require.NoError(t, err)
		stop()
	})

	t.Run("should trigger reindex when a watched document changes", func(t *testing.T) {
		dir := t.TempDir()
		fired := make(chan struct{}, 1)

		stop, err := startReindexers(config.RAGConfig{Watch: true}, dir, zerolog.Nop(), func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
		require.NoError(t, err)
		defer stop()

		require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.md"), []byte("# guide"), 0644))

		select {
		case <-fired:
		case <-time.After(3 * time.Second):
			t.Fatal("watcher did not trigger re-indexing")
		}
	})

	t.Run("should run the scheduled reindex job", func(t *testing.T) {
		fired := make(chan struct{}, 1)

		stop, err := startReindexers(config.RAGConfig{ReindexSchedule: "@every 1s"}, t.TempDir(), zerolog.Nop(), func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
		require.NoError(t, err)
		defer stop()

		select {
		case <-fired:
		case <-time.After(3 * time.Second):
			t.Fatal("scheduler did not trigger re-indexing")
		}
	})

	t.Run("should reject an invalid schedule", func(t *testing.T) {
		_, err := startReindexers(config.RAGConfig{ReindexSchedule: "not a schedule"}, t.TempDir(), zerolog.Nop(), func() {})
		assert.Error(t, err)
	})

	t.Run("should fail when the watched directory does not exist", func(t *testing.T) {
		_, err := startReindexers(config.RAGConfig{Watch: true}, filepath.Join(t.TempDir(), "missing"), zerolog.Nop(), func() {})
		assert.Error(t, err)
	})
}
