// Package extract provides per-language structural extractors.
//
// An extractor turns one file's source text into entities and complexity
// measurements, plus the auxiliary signals the scan pipeline needs: raw
// line metrics, import target strings, and an approximate call graph.
// Python is parsed with tree-sitter; Go with the standard go/ast toolchain.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/codeatlas/codeatlas/internal/index"
)

// Structure holds the parse-dependent part of a file record.
type Structure struct {
	Entities   []index.Entity
	Complexity []index.Complexity
}

// Extractor analyzes source files of one language.
type Extractor interface {
	// Language returns the language name (e.g. "python").
	Language() string

	// Extract parses the source and returns top-level entities and
	// per-function complexity. A malformed file returns an error; the
	// caller records it on the file and continues.
	Extract(src []byte) (*Structure, error)

	// Imports returns the raw import target strings found in the source.
	// Never fails; malformed input yields an empty list.
	Imports(src []byte) []string

	// CallGraph returns a per-function map of called names,
	// intraprocedural and name-based. Best effort, never fails.
	CallGraph(src []byte) map[string][]string

	// RawMetrics computes line-count metrics. Never fails; degraded
	// input yields the zero value.
	RawMetrics(src []byte) index.RawMetrics

	// HasTests reports whether a test file exists for relPath under root,
	// following the language's naming convention. Missing or unreadable
	// candidates mean false, never an error.
	HasTests(root, relPath string) bool
}

// Supported file extensions and their languages.
var supportedExtensions = map[string]string{
	".py": "python",
	".go": "go",
}

// languageExtensions maps a language back to its primary file extension,
// used by the dependency resolver's suffix heuristic.
var languageExtensions = map[string]string{
	"python": ".py",
	"go":     ".go",
}

// LanguageForPath returns the language for a file path, or "" if unsupported.
func LanguageForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return supportedExtensions[ext]
}

// ExtensionForLanguage returns the primary file extension for a language.
func ExtensionForLanguage(language string) string {
	return languageExtensions[language]
}

// ForLanguage returns the extractor for a language, or nil if unsupported.
func ForLanguage(language string) Extractor {
	switch language {
	case "python":
		return NewPythonExtractor()
	case "go":
		return NewGoExtractor()
	default:
		return nil
	}
}

// ForPath returns the extractor for a file path, or nil if unsupported.
func ForPath(path string) Extractor {
	return ForLanguage(LanguageForPath(path))
}
