package cache

// MemoryStore is an in-memory Store, used in tests and as the fallback
// when the persistent store cannot be opened.
type MemoryStore struct {
	entries map[string]Fingerprint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Fingerprint{}}
}

// Load returns a copy of the stored fingerprints.
func (s *MemoryStore) Load() (map[string]Fingerprint, error) {
	out := make(map[string]Fingerprint, len(s.entries))
	for path, fp := range s.entries {
		out[path] = fp
	}
	return out, nil
}

// Flush applies updates and deletions.
func (s *MemoryStore) Flush(updated map[string]Fingerprint, deleted []string) error {
	for path, fp := range updated {
		s.entries[path] = fp
	}
	for _, path := range deleted {
		delete(s.entries, path)
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
