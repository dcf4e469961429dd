package rag

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LoadDocuments walks root and returns every markdown file as a Document,
// skipping dot-directories. Source identifiers are root-relative paths.
func LoadDocuments(root string, logger zerolog.Logger) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("Failed to read document")
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}

		docs = append(docs, Document{
			Content: string(content),
			Source:  relPath,
			Metadata: map[string]interface{}{
				"type": "markdown",
				"size": len(content),
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	logger.Info().Int("documents", len(docs)).Str("root", root).Msg("Documents discovered")
	return docs, nil
}
