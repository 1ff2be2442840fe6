// Package cache provides the persistent change cache used for incremental
// scans.
//
// The cache maps file paths to fingerprints. A file whose current
// fingerprint equals the stored one is "unchanged" and its prior record
// can be reused without re-parsing. The cache is owned by a single writer
// for the duration of one scan run and persisted once at the end.
package cache

// Fingerprint identifies one version of a file's content.
type Fingerprint struct {
	// SHA256 is the hex digest of the file content.
	SHA256 string `json:"sha256"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// MTimeUnix is the modification time in Unix seconds.
	MTimeUnix int64 `json:"mtime"`
}

// Store persists path-keyed fingerprints between runs. Reads and writes
// are idempotent; an absent or corrupt store loads as empty.
type Store interface {
	// Load reads all persisted fingerprints.
	Load() (map[string]Fingerprint, error)

	// Flush writes updated entries and removes deleted paths in one batch.
	Flush(updated map[string]Fingerprint, deleted []string) error

	// Close releases store resources.
	Close() error
}

// Cache tracks fingerprints for one scan run.
type Cache struct {
	store   Store
	entries map[string]Fingerprint
	updated map[string]Fingerprint
	deleted []string
}

// New loads a cache from the store. A store that fails to load is treated
// as empty (cold start), never an error.
func New(store Store) *Cache {
	entries, err := store.Load()
	if err != nil || entries == nil {
		entries = map[string]Fingerprint{}
	}
	return &Cache{
		store:   store,
		entries: entries,
		updated: map[string]Fingerprint{},
	}
}

// IsUnchanged reports whether the path's stored fingerprint matches fp.
func (c *Cache) IsUnchanged(path string, fp Fingerprint) bool {
	prev, ok := c.entries[path]
	return ok && prev.SHA256 == fp.SHA256
}

// Update records the current fingerprint for a path. The change becomes
// durable on Save.
func (c *Cache) Update(path string, fp Fingerprint) {
	c.entries[path] = fp
	c.updated[path] = fp
}

// Cleanup drops entries whose paths are no longer present under the root.
func (c *Cache) Cleanup(valid map[string]bool) {
	for path := range c.entries {
		if !valid[path] {
			delete(c.entries, path)
			delete(c.updated, path)
			c.deleted = append(c.deleted, path)
		}
	}
}

// Len returns the number of tracked paths.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Save persists accumulated updates and deletions in one batch.
func (c *Cache) Save() error {
	if len(c.updated) == 0 && len(c.deleted) == 0 {
		return nil
	}
	err := c.store.Flush(c.updated, c.deleted)
	if err == nil {
		c.updated = map[string]Fingerprint{}
		c.deleted = nil
	}
	return err
}
