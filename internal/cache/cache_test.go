package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(digest string) Fingerprint {
	return Fingerprint{SHA256: digest, Size: 10, MTimeUnix: 1700000000}
}

func TestCache(t *testing.T) {
	t.Parallel()

	t.Run("UnchangedByDigest", func(t *testing.T) {
		c := New(NewMemoryStore())

		c.Update("a.py", fp("aaa"))
		assert.True(t, c.IsUnchanged("a.py", fp("aaa")))
		assert.False(t, c.IsUnchanged("a.py", fp("bbb")))
		assert.False(t, c.IsUnchanged("missing.py", fp("aaa")))
	})

	t.Run("DigestDecidesNotMtime", func(t *testing.T) {
		c := New(NewMemoryStore())

		c.Update("a.py", Fingerprint{SHA256: "aaa", Size: 10, MTimeUnix: 1})
		// A touched file with identical content is still unchanged.
		assert.True(t, c.IsUnchanged("a.py", Fingerprint{SHA256: "aaa", Size: 10, MTimeUnix: 2}))
	})

	t.Run("CleanupDropsStalePaths", func(t *testing.T) {
		c := New(NewMemoryStore())

		c.Update("keep.py", fp("aaa"))
		c.Update("gone.py", fp("bbb"))
		c.Cleanup(map[string]bool{"keep.py": true})

		assert.Equal(t, 1, c.Len())
		assert.False(t, c.IsUnchanged("gone.py", fp("bbb")))
	})

	t.Run("SavePersistsThroughStore", func(t *testing.T) {
		store := NewMemoryStore()

		c := New(store)
		c.Update("a.py", fp("aaa"))
		require.NoError(t, c.Save())

		reloaded := New(store)
		assert.True(t, reloaded.IsUnchanged("a.py", fp("aaa")))
	})

	t.Run("SaveWithoutChangesIsNoop", func(t *testing.T) {
		c := New(NewMemoryStore())
		require.NoError(t, c.Save())
	})
}

func TestBadgerStore(t *testing.T) {
	t.Parallel()

	t.Run("RoundTrip", func(t *testing.T) {
		dir := t.TempDir()

		store, err := OpenBadger(dir)
		require.NoError(t, err)

		c := New(store)
		c.Update("src/app.py", fp("aaa"))
		c.Update("src/util.py", fp("bbb"))
		require.NoError(t, c.Save())
		require.NoError(t, c.Close())

		store, err = OpenBadger(dir)
		require.NoError(t, err)
		c = New(store)
		defer func() { _ = c.Close() }()

		assert.Equal(t, 2, c.Len())
		assert.True(t, c.IsUnchanged("src/app.py", fp("aaa")))
		assert.True(t, c.IsUnchanged("src/util.py", fp("bbb")))
	})

	t.Run("FlushAppliesDeletes", func(t *testing.T) {
		dir := t.TempDir()

		store, err := OpenBadger(dir)
		require.NoError(t, err)

		c := New(store)
		c.Update("a.py", fp("aaa"))
		c.Update("b.py", fp("bbb"))
		require.NoError(t, c.Save())

		c.Cleanup(map[string]bool{"a.py": true})
		require.NoError(t, c.Save())
		require.NoError(t, c.Close())

		store, err = OpenBadger(dir)
		require.NoError(t, err)
		c = New(store)
		defer func() { _ = c.Close() }()

		assert.Equal(t, 1, c.Len())
		assert.False(t, c.IsUnchanged("b.py", fp("bbb")))
	})

	t.Run("OpenFailsOnFilePath", func(t *testing.T) {
		// A regular file where the DB directory should be.
		path := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		_, err := OpenBadger(path)
		assert.Error(t, err)
	})
}
