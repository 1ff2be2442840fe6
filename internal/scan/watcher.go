package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codeatlas/codeatlas/internal/extract"
)

// Watch monitors the root for source changes and invokes rescan after the
// debounce window closes. All change events funnel into this single loop;
// the pending-rescan state lives only here, so no flag is shared between
// goroutines. Blocks until the context is cancelled.
func Watch(ctx context.Context, root string, debounce time.Duration, rescan func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addDirs(watcher, root); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// New directories need watching; everything else only
			// matters for supported source files.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !shouldSkipWatchDir(filepath.Base(event.Name)) {
						_ = watcher.Add(event.Name)
					}
					continue
				}
			}

			if extract.LanguageForPath(event.Name) == "" {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-timer.C:
			if err := rescan(); err != nil {
				fmt.Fprintf(os.Stderr, "Rescan error: %v\n", err)
			}
		}
	}
}

// addDirs registers the root and every non-ignored subdirectory.
func addDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && shouldSkipWatchDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func shouldSkipWatchDir(name string) bool {
	return ignoredDirs[name]
}
