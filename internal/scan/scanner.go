package scan

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/codeatlas/codeatlas/internal/cache"
	"github.com/codeatlas/codeatlas/internal/extract"
	"github.com/codeatlas/codeatlas/internal/index"
)

// ProgressFunc is called as files complete, with the file path and the
// number of completed files out of the total.
type ProgressFunc func(path string, current, total int)

// Options configures one scan run.
type Options struct {
	// Incremental reuses prior file records for unchanged files, keyed by
	// the persistent fingerprint cache.
	Incremental bool

	// Deep enables deep analysis (call graphs, type coverage).
	Deep bool

	// IndexPath locates the previously persisted index used for
	// incremental reuse. Ignored when Incremental is false.
	IndexPath string

	// Progress, when set, receives per-file completion updates. It may be
	// called from multiple goroutines, but calls are serialized.
	Progress ProgressFunc

	// Workers bounds the extraction pool. Zero means GOMAXPROCS.
	Workers int
}

// Result summarizes one scan run.
type Result struct {
	Index *index.Index

	// Scanned counts freshly extracted files; Skipped counts cache hits.
	Scanned int
	Skipped int

	Duration time.Duration
}

// Scanner runs the scanning and indexing pipeline for one root. The scan
// entry point is re-entrant: every call produces a complete,
// self-consistent index.
type Scanner struct {
	root string
}

// New creates a scanner for the given root directory.
func New(root string) *Scanner {
	return &Scanner{root: root}
}

// Root returns the scan root.
func (s *Scanner) Root() string {
	return s.root
}

// CacheDir returns the fingerprint cache location for a root.
func CacheDir(root string) string {
	return filepath.Join(root, ".atlas", "cache")
}

// ScanDirectory walks the root, extracts or reuses every file record, and
// assembles the index. Per-file failures degrade into the file's record;
// only a failure to walk the root itself is returned as an error.
func (s *Scanner) ScanDirectory(opts Options) (*Result, error) {
	start := time.Now()

	entries, err := WalkRoot(s.root, LoadGitignore(s.root))
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.root, err)
	}

	var fpCache *cache.Cache
	var prior *index.Index
	if opts.Incremental {
		fpCache, prior = s.openCache(opts.IndexPath)
		defer func() { _ = fpCache.Close() }()
	}

	files := make([]index.SourceFile, len(entries))
	reused := make([]bool, len(entries))
	skipped := 0

	// Reuse decisions are made by the single cache owner before any
	// worker starts. A fingerprint hit without a matching record in the
	// prior index falls through to re-extraction so no file is dropped.
	for i, entry := range entries {
		if fpCache == nil || prior == nil || !fpCache.IsUnchanged(entry.RelPath, entry.Fingerprint()) {
			continue
		}
		if prev := prior.FileByPath(entry.RelPath); prev != nil {
			files[i] = *prev
			reused[i] = true
			skipped++
		}
	}

	s.extractAll(entries, files, reused, opts)

	if fpCache != nil {
		valid := make(map[string]bool, len(entries))
		for _, entry := range entries {
			fpCache.Update(entry.RelPath, entry.Fingerprint())
			valid[entry.RelPath] = true
		}
		fpCache.Cleanup(valid)
		if err := fpCache.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: saving change cache: %v\n", err)
		}
	}

	// Global passes need the complete file set; nothing below starts
	// until every extraction has finished.
	ix := index.New(s.root)
	ix.Files = files
	ix.TotalFiles = len(files)
	ix.Dependencies = BuildDependencies(entries)
	ix.SymbolIndex = BuildSymbolIndex(files)

	return &Result{
		Index:    ix,
		Scanned:  len(entries) - skipped,
		Skipped:  skipped,
		Duration: time.Since(start),
	}, nil
}

// openCache opens the persistent fingerprint store and prior index.
// Any corruption degrades to a cold start, never an error.
func (s *Scanner) openCache(indexPath string) (*cache.Cache, *index.Index) {
	var store cache.Store
	store, err := cache.OpenBadger(CacheDir(s.root))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: opening change cache: %v (treating all files as changed)\n", err)
		store = cache.NewMemoryStore()
	}

	prior, err := index.Load(indexPath)
	if err != nil {
		prior = nil
	}

	return cache.New(store), prior
}

// extractAll runs per-file extraction over the non-reused entries with a
// bounded worker pool. Each worker writes only its own slot.
func (s *Scanner) extractAll(entries []FileEntry, files []index.SourceFile, reused []bool, opts Options) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var mu sync.Mutex
	done := 0
	report := func(path string) {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		done++
		opts.Progress(path, done, len(entries))
		mu.Unlock()
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				files[i] = s.ScanFile(entries[i], opts.Deep)
				report(entries[i].RelPath)
			}
		}()
	}

	for i := range entries {
		if reused[i] {
			report(entries[i].RelPath)
			continue
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// ScanFile extracts one file record. Malformed source yields a record with
// the error set and empty entities and metrics; it never fails the scan.
func (s *Scanner) ScanFile(entry FileEntry, deep bool) index.SourceFile {
	ex := extract.ForLanguage(entry.Language)
	if ex == nil {
		return errorRecord(entry.RelPath, fmt.Sprintf("unsupported language: %s", entry.Language))
	}

	st, err := ex.Extract(entry.Content)
	if err != nil {
		return errorRecord(entry.RelPath, err.Error())
	}

	raw := ex.RawMetrics(entry.Content)

	ratio := 0.0
	if raw.LOC > 0 {
		ratio = round3(float64(raw.Comments) / float64(raw.LOC))
	}

	file := index.SourceFile{
		Path:         entry.RelPath,
		Entities:     st.Entities,
		Complexity:   st.Complexity,
		Raw:          raw,
		CommentRatio: ratio,
		Git:          FileGitMeta(s.root, entry.RelPath),
		HasTests:     ex.HasTests(s.root, entry.RelPath),
	}

	if deep {
		file.Deep = DeepAnalyze(entry.Path, entry.Content, ex)
	}

	return file
}

func errorRecord(relPath, msg string) index.SourceFile {
	return index.SourceFile{
		Path:       relPath,
		Entities:   []index.Entity{},
		Complexity: []index.Complexity{},
		Error:      msg,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
