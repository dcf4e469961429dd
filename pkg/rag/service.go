package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Document is a source text submitted for indexing.
type Document struct {
	Content  string
	Source   string
	Metadata map[string]interface{}
}

// Chunk is a retrieved span of an indexed document. Similarity is derived
// from cosine distance as 1 - distance, clamped to [0, 1].
type Chunk struct {
	Content    string
	Source     string
	Similarity float64
	Metadata   map[string]interface{}
}

// Config holds retrieval service configuration.
type Config struct {
	Store     VectorStore
	Embedder  Embedder
	Meta      *MetaIndex
	Logger    zerolog.Logger
	ChunkSize int // tokens, defaults to DefaultChunkSize
	Overlap   int // tokens, defaults to DefaultOverlap
	TopK      int // default search depth, defaults to 5
}

// Service chunks, embeds and indexes documents, and answers semantic search
// queries over the resulting vector store.
type Service struct {
	store     VectorStore
	embedder  Embedder
	meta      *MetaIndex
	logger    zerolog.Logger
	chunkSize int
	overlap   int
	topK      int
}

// NewService creates a retrieval service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("vector store is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.Meta == nil {
		return nil, errors.New("metadata index is required")
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	overlap := cfg.Overlap
	if overlap <= 0 {
		overlap = DefaultOverlap
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}

	return &Service{
		store:     cfg.Store,
		embedder:  cfg.Embedder,
		meta:      cfg.Meta,
		logger:    cfg.Logger,
		chunkSize: chunkSize,
		overlap:   overlap,
		topK:      topK,
	}, nil
}

// NeedsIndexing reports whether the metadata side index is empty, meaning
// the corpus has never been indexed on this store.
func (s *Service) NeedsIndexing() bool {
	return s.meta.NeedsIndexing()
}

// Index chunks each document, embeds the chunks and upserts them into the
// vector store, then persists the metadata side index. Chunk ids derive from
// the source identifier and chunk offset, so re-indexing a source overwrites
// its chunks in place; stale ids from shrunk sources are not removed.
func (s *Service) Index(ctx context.Context, docs []Document) error {
	var records []ChunkRecord
	var texts []string

	for i, doc := range docs {
		source := doc.Source
		if source == "" {
			source = fmt.Sprintf("doc_%d", i)
		}

		chunks := SplitText(doc.Content, s.chunkSize, s.overlap)
		for idx, content := range chunks {
			records = append(records, ChunkRecord{
				ChunkID:    fmt.Sprintf("%s#%d", source, idx),
				Source:     source,
				ChunkIndex: idx,
				Content:    content,
				Metadata:   doc.Metadata,
			})
			texts = append(texts, content)
		}
	}

	if len(records) > 0 {
		s.logger.Info().Int("documents", len(docs)).Int("chunks", len(records)).Msg("Generating embeddings")

		embeddings, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(embeddings) != len(records) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(records))
		}
		for i := range records {
			records[i].Embedding = embeddings[i]
		}

		if err := s.store.Upsert(ctx, records); err != nil {
			return fmt.Errorf("failed to upsert chunks: %w", err)
		}
	}

	for i, doc := range docs {
		source := doc.Source
		if source == "" {
			source = fmt.Sprintf("doc_%d", i)
		}
		s.meta.Put(source, doc.Metadata)
	}
	if err := s.meta.Save(); err != nil {
		return fmt.Errorf("failed to save metadata index: %w", err)
	}

	s.logger.Info().Int("documents", len(docs)).Int("chunks", len(records)).Msg("Indexing completed")
	return nil
}

// Search embeds the query and returns up to topK chunks ordered by
// descending similarity. An empty store yields an empty result, never an
// error. topK <= 0 uses the configured default.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Chunk, error) {
	if topK <= 0 {
		topK = s.topK
	}

	s.logger.Debug().Str("query", query).Int("top_k", topK).Msg("Semantic search")

	embeddings, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(embeddings))
	}

	matches, err := s.store.Query(ctx, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	chunks := make([]Chunk, 0, len(matches))
	for _, match := range matches {
		chunks = append(chunks, Chunk{
			Content:    match.Content,
			Source:     match.Source,
			Similarity: clampSimilarity(1 - match.Distance),
			Metadata:   match.Metadata,
		})
	}

	if len(chunks) == 0 {
		s.logger.Debug().Str("query", query).Msg("Search returned no results")
	}
	return chunks, nil
}

// ContextFor concatenates search results into a single context block, each
// prefixed by its source identifier. Returns empty text when nothing
// matches.
func (s *Service) ContextFor(ctx context.Context, query string, topK int) (string, error) {
	chunks, err := s.Search(ctx, query, topK)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("Source: %s\n%s\n", chunk.Source, chunk.Content))
	}
	return strings.Join(parts, "\n---\n"), nil
}

// clampSimilarity maps 1-distance into [0, 1]; sqlite-vec cosine distance
// ranges over [0, 2].
func clampSimilarity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
