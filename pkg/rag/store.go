package rag

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func init() {
	// Auto-register sqlite-vec extension
	sqlite_vec.Auto()
}

// ChunkRecord is one indexed chunk with its embedding vector.
type ChunkRecord struct {
	ChunkID    string
	Source     string
	ChunkIndex int
	Content    string
	Metadata   map[string]interface{}
	Embedding  []float32
}

// ChunkMatch is a nearest-neighbor query hit. Distance is the cosine
// distance reported by the store.
type ChunkMatch struct {
	ChunkID  string
	Source   string
	Content  string
	Metadata map[string]interface{}
	Distance float64
}

// VectorStore persists chunk vectors and answers nearest-neighbor queries.
// Implementations must tolerate concurrent readers; concurrent writers are
// not coordinated beyond "eventually visible".
type VectorStore interface {
	Upsert(ctx context.Context, records []ChunkRecord) error
	Query(ctx context.Context, embedding []float32, topK int) ([]ChunkMatch, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Store is a sqlite-vec backed VectorStore. Upserts are keyed by chunk id;
// chunk ids of sources that shrank or disappeared are never pruned, so the
// vector table can accumulate stale entries (known limitation).
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore opens (or creates) the vector database at path with the given
// embedding dimension.
func NewStore(path string, dimension int, logger zerolog.Logger) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL so searches stay safe alongside the occasional writer
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);

		CREATE VIRTUAL TABLE IF NOT EXISTS embeddings USING vec0(
			chunk_id TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		);
	`, dimension)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info().Str("path", path).Int("dimension", dimension).Msg("Vector store opened")

	return &Store{db: db, logger: logger}, nil
}

// Upsert writes records transactionally, replacing rows with the same chunk
// id.
func (s *Store) Upsert(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		metadataJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", rec.ChunkID, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO chunks (id, source, chunk_index, content, metadata) VALUES (?, ?, ?, ?, ?)",
			rec.ChunkID, rec.Source, rec.ChunkIndex, rec.Content, string(metadataJSON),
		); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", rec.ChunkID, err)
		}

		embeddingJSON, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding for %s: %w", rec.ChunkID, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO embeddings (chunk_id, embedding) VALUES (?, ?)",
			rec.ChunkID, string(embeddingJSON),
		); err != nil {
			return fmt.Errorf("failed to upsert embedding for %s: %w", rec.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Debug().Int("records", len(records)).Msg("Chunks upserted")
	return nil
}

// Query returns up to topK matches ordered by ascending cosine distance.
// An empty store yields an empty slice, not an error.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]ChunkMatch, error) {
	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, vec_distance_cosine(embedding, ?) AS distance
		FROM embeddings
		ORDER BY distance ASC
		LIMIT ?
	`, string(embeddingJSON), topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer rows.Close()

	type hit struct {
		chunkID  string
		distance float64
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.chunkID, &h.distance); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	matches := make([]ChunkMatch, 0, len(hits))
	for _, h := range hits {
		var source, content string
		var metadataJSON sql.NullString
		err := s.db.QueryRowContext(ctx,
			"SELECT source, content, metadata FROM chunks WHERE id = ?", h.chunkID,
		).Scan(&source, &content, &metadataJSON)
		if err != nil {
			s.logger.Warn().Err(err).Str("chunk_id", h.chunkID).Msg("Failed to fetch chunk details")
			continue
		}

		var metadata map[string]interface{}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &metadata); err != nil {
				s.logger.Warn().Err(err).Str("chunk_id", h.chunkID).Msg("Failed to decode chunk metadata")
			}
		}

		matches = append(matches, ChunkMatch{
			ChunkID:  h.chunkID,
			Source:   source,
			Content:  content,
			Metadata: metadata,
			Distance: h.distance,
		})
	}

	return matches, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
