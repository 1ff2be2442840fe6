// Package index defines the structural index document produced by a scan.
//
// The index is a versioned snapshot of a source tree: one record per file
// with extracted entities and metrics, a heuristic dependency graph, and a
// flat symbol lookup table. The JSON field names are a compatibility
// contract consumed by downstream rankers, agents, and CLIs.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SchemaVersion identifies the index document layout.
const SchemaVersion = "0.1.0"

// Entity kinds.
const (
	EntityClass         = "class"
	EntityFunction      = "function"
	EntityAsyncFunction = "async_function"
)

// Entity is a top-level class or function declaration extracted from a file.
// Nested functions and methods are not independently indexed; a class lists
// its direct method names only.
type Entity struct {
	// Type is one of class, function, async_function.
	Type string `json:"type"`

	// Name is the declared name.
	Name string `json:"name"`

	// Lineno is the 1-based starting line.
	Lineno int `json:"lineno"`

	// EndLineno is the 1-based ending line (>= Lineno).
	EndLineno int `json:"end_lineno"`

	// Docstring is the documentation string, null when absent.
	Docstring *string `json:"docstring"`

	// Methods lists direct method names (class entities only, one level).
	Methods []string `json:"methods,omitempty"`

	// Bases lists base expressions (class entities only).
	Bases []string `json:"bases,omitempty"`
}

// Complexity is the cyclomatic complexity of a single function.
type Complexity struct {
	Function   string `json:"function"`
	Complexity int    `json:"complexity"`
	Lineno     int    `json:"lineno"`
}

// RawMetrics holds line-count metrics for a file. All fields are zero when
// raw analysis fails.
type RawMetrics struct {
	// LOC is the total number of lines.
	LOC int `json:"loc"`

	// SLOC is the number of logical source lines.
	SLOC int `json:"sloc"`

	// Comments is the number of comment lines.
	Comments int `json:"comments"`

	// Multi is the number of lines inside multi-line strings.
	Multi int `json:"multi"`

	// Blank is the number of blank lines.
	Blank int `json:"blank"`
}

// GitMeta holds version-control metadata for a file. It degrades to the
// zero value when the external git call fails or times out.
type GitMeta struct {
	Commits    int    `json:"commits"`
	LastAuthor string `json:"last_author"`
	LastCommit string `json:"last_commit"`
}

// DeepAnalysis holds optional deep-analysis results for a file.
type DeepAnalysis struct {
	// TypeCoverage estimates how well-typed the file is, in [0,1].
	TypeCoverage float64 `json:"type_coverage"`

	// TypeErrors is the error count reported by the external type checker.
	TypeErrors int `json:"type_errors"`

	// CallGraph maps each function to the names it calls (intraprocedural,
	// name-based, first-seen order).
	CallGraph map[string][]string `json:"call_graph"`
}

// SourceFile is the per-file analysis record.
type SourceFile struct {
	// Path is relative to the scan root when possible, forward-slash
	// normalized, never empty.
	Path string `json:"path"`

	Entities     []Entity     `json:"entities"`
	Complexity   []Complexity `json:"complexity"`
	Raw          RawMetrics   `json:"raw"`
	CommentRatio float64      `json:"comment_ratio"`
	Git          GitMeta      `json:"git"`
	HasTests     bool         `json:"has_tests"`

	// Error describes a parse failure. The record's other fields are
	// empty/zero when set; the scan itself continues.
	Error string `json:"error,omitempty"`

	// Deep is present only when deep analysis was requested.
	Deep *DeepAnalysis `json:"deep,omitempty"`
}

// DependencyEdge records the import relationships of one file.
type DependencyEdge struct {
	// Imports holds the raw import target strings parsed from the file.
	Imports []string `json:"imports"`

	// ImportedBy lists the file paths resolved to import this file.
	ImportedBy []string `json:"imported_by"`
}

// Index is the complete structural snapshot produced by one scan.
type Index struct {
	ScannedRoot string `json:"scanned_root"`
	ScannedAt   string `json:"scanned_at"`
	Version     string `json:"version"`
	TotalFiles  int    `json:"total_files"`

	// Files holds one record per discovered file, in discovery order.
	Files []SourceFile `json:"files"`

	// Dependencies maps each file path to its import edges.
	Dependencies map[string]DependencyEdge `json:"dependencies"`

	// SymbolIndex maps entity names to "path:line" locations. On name
	// collision the most recently processed entity wins.
	SymbolIndex map[string]string `json:"symbol_index"`
}

// New creates an empty index for the given root, stamped with the current
// time and schema version.
func New(root string) *Index {
	return &Index{
		ScannedRoot:  root,
		ScannedAt:    time.Now().Format(time.RFC3339),
		Version:      SchemaVersion,
		Files:        []SourceFile{},
		Dependencies: map[string]DependencyEdge{},
		SymbolIndex:  map[string]string{},
	}
}

// FileByPath returns the record for the given relative path, or nil.
func (ix *Index) FileByPath(path string) *SourceFile {
	for i := range ix.Files {
		if ix.Files[i].Path == path {
			return &ix.Files[i]
		}
	}
	return nil
}

// Save writes the index as indented JSON.
func (ix *Index) Save(path string) error {
	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Load reads an index document from disk.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("parsing index: %w", err)
	}
	return &ix, nil
}
