package scan

import (
	"strings"

	"github.com/codeatlas/codeatlas/internal/extract"
	"github.com/codeatlas/codeatlas/internal/index"
)

// BuildDependencies resolves the import graph over the complete file set.
//
// Pass 1 parses the raw import targets of every file. Pass 2 matches each
// target t against every candidate path p: t resolves to p when t is a
// substring of p, or p ends with t's dots replaced by slashes plus the
// candidate's language extension. The matching is intentionally
// approximate; it does not model packages, relative imports, or namespace
// resolution, and both false positives and false negatives are accepted.
func BuildDependencies(entries []FileEntry) map[string]index.DependencyEdge {
	paths := make([]string, 0, len(entries))
	imports := make(map[string][]string, len(entries))

	for _, entry := range entries {
		paths = append(paths, entry.RelPath)
		ex := extract.ForLanguage(entry.Language)
		if ex == nil {
			imports[entry.RelPath] = []string{}
			continue
		}
		imports[entry.RelPath] = ex.Imports(entry.Content)
	}

	deps := make(map[string]index.DependencyEdge, len(paths))
	for _, path := range paths {
		deps[path] = index.DependencyEdge{
			Imports:    imports[path],
			ImportedBy: []string{},
		}
	}

	// Quadratic over the file set; acceptable for the tree sizes scanned.
	for _, importer := range paths {
		for _, target := range imports[importer] {
			for _, candidate := range paths {
				if resolvesTo(target, candidate) {
					edge := deps[candidate]
					edge.ImportedBy = append(edge.ImportedBy, importer)
					deps[candidate] = edge
				}
			}
		}
	}

	return deps
}

// resolvesTo reports whether import target t matches candidate path p.
func resolvesTo(t, p string) bool {
	if strings.Contains(p, t) {
		return true
	}
	ext := extract.ExtensionForLanguage(extract.LanguageForPath(p))
	if ext == "" {
		return false
	}
	return strings.HasSuffix(p, strings.ReplaceAll(t, ".", "/")+ext)
}
