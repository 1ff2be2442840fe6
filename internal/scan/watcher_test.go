package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, t.TempDir(), 50*time.Millisecond, func() error { return nil })
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchDebouncedRescan(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	rescanned := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, root, 50*time.Millisecond, func() error {
			rescanned <- struct{}{}
			return nil
		})
	}()

	// Give the watcher a moment to register the root.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0o644))

	select {
	case <-rescanned:
	case <-time.After(5 * time.Second):
		t.Fatal("no rescan after source change")
	}

	// Unsupported files never schedule a rescan.
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi\n"), 0o644))
	select {
	case <-rescanned:
		t.Fatal("unexpected rescan for unsupported file")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	<-done
}
