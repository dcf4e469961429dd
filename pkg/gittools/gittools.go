// Package gittools registers repository inspection tools backed by the git
// CLI and the filesystem. All tools are read-only.
package gittools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Towich/mail-ads-ai/pkg/toolexec"
)

// maxReadFileSize caps how large a file git_read_file will return.
const maxReadFileSize = 256 * 1024

// Options configures the git tool set.
type Options struct {
	RepoPath string
}

// Register adds the git tool set to the registry.
func Register(registry *toolexec.Registry, opts Options) error {
	if opts.RepoPath == "" {
		return fmt.Errorf("repository path is required")
	}

	t := &tools{repoPath: opts.RepoPath}

	defs := []toolexec.Definition{
		{
			Name:        "git_search_file",
			Description: "Search for files in the repository by name substring",
			Parameters: []toolexec.Parameter{
				{Name: "pattern", Type: "string", Description: "Substring to match against file names", Required: true},
			},
			Handler: t.searchFile,
		},
		{
			Name:        "git_list_files",
			Description: "List tracked files in the repository, optionally under a subdirectory",
			Parameters: []toolexec.Parameter{
				{Name: "path", Type: "string", Description: "Subdirectory to list, relative to the repository root", Required: false},
			},
			Handler: t.listFiles,
		},
		{
			Name:        "git_read_file",
			Description: "Read the contents of a file in the repository",
			Parameters: []toolexec.Parameter{
				{Name: "path", Type: "string", Description: "File path relative to the repository root", Required: true},
			},
			Handler: t.readFile,
		},
		{
			Name:        "git_current_branch",
			Description: "Show the currently checked out branch",
			Handler:     t.currentBranch,
		},
		{
			Name:        "git_current_changes",
			Description: "Show the working tree status including staged, unstaged and untracked files",
			Handler:     t.currentChanges,
		},
		{
			Name:        "git_diff",
			Description: "Show the diff of uncommitted changes, optionally for a single file",
			Parameters: []toolexec.Parameter{
				{Name: "path", Type: "string", Description: "Limit the diff to this file", Required: false},
				{Name: "staged", Type: "boolean", Description: "Show staged changes instead of unstaged", Required: false},
			},
			Handler: t.diff,
		},
		{
			Name:        "git_log",
			Description: "Show recent commits",
			Parameters: []toolexec.Parameter{
				{Name: "limit", Type: "number", Description: "Number of commits to show, default 10", Required: false, Default: 10},
			},
			Handler: t.log,
		},
		{
			Name:        "git_file_history",
			Description: "Show the commit history of a single file",
			Parameters: []toolexec.Parameter{
				{Name: "path", Type: "string", Description: "File path relative to the repository root", Required: true},
				{Name: "limit", Type: "number", Description: "Number of commits to show, default 10", Required: false, Default: 10},
			},
			Handler: t.fileHistory,
		},
	}

	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return fmt.Errorf("failed to register %s: %w", def.Name, err)
		}
	}
	return nil
}

type tools struct {
	repoPath string
}

func (t *tools) searchFile(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	pattern, err := stringParam(params, "pattern")
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(pattern)

	matches := []string{}
	err = filepath.WalkDir(t.repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != t.repoPath {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), needle) {
			rel, relErr := filepath.Rel(t.repoPath, path)
			if relErr == nil {
				matches = append(matches, rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if len(matches) == 0 {
		return fmt.Sprintf("no files matching %q", pattern), nil
	}
	return strings.Join(matches, "\n"), nil
}

func (t *tools) listFiles(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	args := []string{"ls-files"}
	if sub, _ := params["path"].(string); sub != "" {
		args = append(args, "--", sub)
	}
	return t.git(ctx, args...)
}

func (t *tools) readFile(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	rel, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}

	path, err := t.resolve(rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", rel)
	}
	if info.Size() > maxReadFileSize {
		return nil, fmt.Errorf("%s is too large to read (%d bytes)", rel, info.Size())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(content), nil
}

func (t *tools) currentBranch(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return t.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

func (t *tools) currentChanges(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	out, err := t.git(ctx, "status", "--short")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return "working tree clean", nil
	}
	return out, nil
}

func (t *tools) diff(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	args := []string{"diff"}
	if staged, _ := params["staged"].(bool); staged {
		args = append(args, "--cached")
	}
	if path, _ := params["path"].(string); path != "" {
		args = append(args, "--", path)
	}

	out, err := t.git(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return "no changes", nil
	}
	return out, nil
}

func (t *tools) log(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	limit := intParam(params, "limit", 10)
	return t.git(ctx, "log", fmt.Sprintf("-%d", limit), "--oneline", "--decorate")
}

func (t *tools) fileHistory(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	rel, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	limit := intParam(params, "limit", 10)

	out, err := t.git(ctx, "log", fmt.Sprintf("-%d", limit), "--oneline", "--follow", "--", rel)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return fmt.Sprintf("no history for %s", rel), nil
	}
	return out, nil
}

// resolve joins rel with the repository root and rejects escapes.
func (t *tools) resolve(rel string) (string, error) {
	path := filepath.Join(t.repoPath, rel)

	absRoot, err := filepath.Abs(t.repoPath)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the repository: %s", rel)
	}
	return absPath, nil
}

func (t *tools) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = t.repoPath

	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func stringParam(params map[string]interface{}, name string) (string, error) {
	value, ok := params[name].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s parameter is required", name)
	}
	return value, nil
}

// intParam reads a numeric parameter. JSON numbers arrive as float64.
func intParam(params map[string]interface{}, name string, fallback int) int {
	if value, ok := params[name].(float64); ok && value > 0 {
		return int(value)
	}
	return fallback
}
