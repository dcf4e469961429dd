package review

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// maxUntrackedFileSize caps how much of an untracked file is inlined into
// the review payload.
const maxUntrackedFileSize = 64 * 1024

// Collector gathers the pending changes of a git working tree into a single
// text payload for review.
type Collector struct {
	repoPath string
	logger   zerolog.Logger
}

// NewCollector creates a collector for the repository at repoPath.
func NewCollector(repoPath string, logger zerolog.Logger) (*Collector, error) {
	if repoPath == "" {
		return nil, fmt.Errorf("repository path is required")
	}
	info, err := os.Stat(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access repository path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository path is not a directory: %s", repoPath)
	}

	return &Collector{repoPath: repoPath, logger: logger}, nil
}

// Collect assembles staged diffs, unstaged diffs and untracked file contents
// into one payload. An empty payload means there is nothing to review.
func (c *Collector) Collect(ctx context.Context) (string, error) {
	staged, err := c.git(ctx, "diff", "--cached")
	if err != nil {
		return "", fmt.Errorf("failed to collect staged changes: %w", err)
	}
	unstaged, err := c.git(ctx, "diff")
	if err != nil {
		return "", fmt.Errorf("failed to collect unstaged changes: %w", err)
	}
	untracked, err := c.untrackedSection(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if staged != "" {
		b.WriteString("=== STAGED CHANGES ===\n")
		b.WriteString(staged)
		b.WriteString("\n")
	}
	if unstaged != "" {
		b.WriteString("=== UNSTAGED CHANGES ===\n")
		b.WriteString(unstaged)
		b.WriteString("\n")
	}
	if untracked != "" {
		b.WriteString("=== UNTRACKED FILES ===\n")
		b.WriteString(untracked)
	}

	payload := strings.TrimRight(b.String(), "\n")
	c.logger.Debug().Int("payload_bytes", len(payload)).Msg("Collected pending changes")
	return payload, nil
}

// untrackedSection lists untracked files and inlines their contents.
func (c *Collector) untrackedSection(ctx context.Context) (string, error) {
	listing, err := c.git(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return "", fmt.Errorf("failed to list untracked files: %w", err)
	}
	if listing == "" {
		return "", nil
	}

	var b strings.Builder
	for _, rel := range strings.Split(listing, "\n") {
		rel = strings.TrimSpace(rel)
		if rel == "" {
			continue
		}

		fmt.Fprintf(&b, "--- %s ---\n", rel)

		path := filepath.Join(c.repoPath, rel)
		info, err := os.Stat(path)
		if err != nil {
			c.logger.Warn().Err(err).Str("file", rel).Msg("Skipping unreadable untracked file")
			fmt.Fprintf(&b, "[unreadable: %v]\n", err)
			continue
		}
		if info.Size() > maxUntrackedFileSize {
			fmt.Fprintf(&b, "[skipped: %d bytes exceeds inline limit]\n", info.Size())
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(&b, "[unreadable: %v]\n", err)
			continue
		}
		b.Write(content)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func (c *Collector) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.repoPath

	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}
