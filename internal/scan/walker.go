// Package scan implements the scanning and indexing pipeline: source
// walking, per-file extraction with incremental caching, dependency
// resolution, symbol indexing, and index assembly.
package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/codeatlas/codeatlas/internal/cache"
	"github.com/codeatlas/codeatlas/internal/extract"
)

// FileEntry represents a discovered file to be processed.
type FileEntry struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the scan root, forward-slash
	// normalized.
	RelPath string

	// Language is the detected programming language.
	Language string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string

	// Size is the file size in bytes.
	Size int64

	// MTimeUnix is the modification time in Unix seconds.
	MTimeUnix int64
}

// Fingerprint returns the change-detection identity of the entry.
func (e FileEntry) Fingerprint() cache.Fingerprint {
	return cache.Fingerprint{
		SHA256:    e.SHA256,
		Size:      e.Size,
		MTimeUnix: e.MTimeUnix,
	}
}

// Directory names never descended into, in addition to .gitignore patterns.
var ignoredDirs = map[string]bool{
	".git":          true,
	".hg":           true,
	".atlas":        true,
	"node_modules":  true,
	"__pycache__":   true,
	".venv":         true,
	"venv":          true,
	".tox":          true,
	".eggs":         true,
	".pytest_cache": true,
	".mypy_cache":   true,
}

// WalkRoot walks the tree under root and returns all supported files in
// lexical (deterministic) order.
func WalkRoot(root string, patterns []gitignore.Pattern) ([]FileEntry, error) {
	var entries []FileEntry

	matcher := gitignore.NewMatcher(patterns)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name(), path, root, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		language := extract.LanguageForPath(d.Name())
		if language == "" {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if matcher.Match(splitPath(relPath), false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		hash := sha256.Sum256(content)

		entries = append(entries, FileEntry{
			Path:      path,
			RelPath:   relPath,
			Language:  language,
			Content:   content,
			SHA256:    hex.EncodeToString(hash[:]),
			Size:      info.Size(),
			MTimeUnix: info.ModTime().Unix(),
		})

		return nil
	})

	return entries, err
}

// LoadGitignore loads .gitignore patterns from the root, if present.
func LoadGitignore(root string) []gitignore.Pattern {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns
}

// shouldSkipDir checks if a directory should be skipped.
func shouldSkipDir(name, path, root string, matcher gitignore.Matcher) bool {
	if ignoredDirs[name] {
		return true
	}

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return matcher.Match(splitPath(filepath.ToSlash(relPath)), true)
}

// splitPath splits a slash-normalized path into its components.
func splitPath(path string) []string {
	return strings.Split(path, "/")
}
