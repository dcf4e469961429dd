package review

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// reportIDLength keeps report filenames short but collision-resistant
// within a second.
const reportIDLength = 8

// Sink persists a finished review report and returns where it was stored.
type Sink interface {
	Store(review, payload string) (string, error)
}

// FileSink writes review reports as markdown files under a reviews/
// directory inside the repository.
type FileSink struct {
	repoPath string
	logger   zerolog.Logger
	now      func() time.Time
}

// NewFileSink creates a file-based report sink for the given repository.
func NewFileSink(repoPath string, logger zerolog.Logger) *FileSink {
	return &FileSink{
		repoPath: repoPath,
		logger:   logger,
		now:      time.Now,
	}
}

// Store writes the review to reviews/review_<timestamp>_<id>.md with the
// reviewed payload appended for traceability.
func (s *FileSink) Store(review, payload string) (string, error) {
	dir := filepath.Join(s.repoPath, "reviews")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reviews directory: %w", err)
	}

	id, err := gonanoid.New(reportIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate report id: %w", err)
	}

	timestamp := s.now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("review_%s_%s.md", timestamp, id))

	content := fmt.Sprintf("# Code Review\n\nGenerated: %s\n\n%s\n\n---\n\n## Reviewed Changes\n\n```\n%s\n```\n",
		s.now().Format(time.RFC3339), review, payload)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write review report: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("Stored review report")
	return path, nil
}
