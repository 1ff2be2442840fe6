package scan

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/codeatlas/codeatlas/internal/index"
)

// gitTimeout bounds each external git invocation.
const gitTimeout = 5 * time.Second

// FileGitMeta extracts commit count, last author, and last commit date for
// a file. Every failure mode (no repository, missing binary, timeout,
// non-zero exit) degrades to the zero value.
func FileGitMeta(root, relPath string) index.GitMeta {
	meta := index.GitMeta{}

	if out, ok := runGit(root, "rev-list", "--count", "HEAD", "--", relPath); ok {
		if n, err := strconv.Atoi(out); err == nil {
			meta.Commits = n
		}
	}
	if out, ok := runGit(root, "log", "-1", "--pretty=%an", "--", relPath); ok {
		meta.LastAuthor = out
	}
	if out, ok := runGit(root, "log", "-1", "--pretty=%ad", "--date=short", "--", relPath); ok {
		meta.LastCommit = out
	}

	return meta
}

func runGit(dir string, args ...string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}
