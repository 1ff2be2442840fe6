package cache

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefix for fingerprint entries.
const prefixFingerprint = "fp:"

// BadgerStore persists fingerprints in a BadgerDB database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens or creates the fingerprint database at path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger DB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Load reads all persisted fingerprints. Entries that fail to decode are
// skipped, which makes them look changed on the next scan.
func (s *BadgerStore) Load() (map[string]Fingerprint, error) {
	entries := map[string]Fingerprint{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixFingerprint)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			path := string(item.Key()[len(prefixFingerprint):])
			var fp Fingerprint
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &fp)
			}); err != nil {
				continue
			}
			entries[path] = fp
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading fingerprints: %w", err)
	}

	return entries, nil
}

// Flush writes updated entries and removes deleted paths in one batch.
func (s *BadgerStore) Flush(updated map[string]Fingerprint, deleted []string) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for path, fp := range updated {
		data, err := json.Marshal(fp)
		if err != nil {
			return fmt.Errorf("marshaling fingerprint: %w", err)
		}
		if err := wb.Set([]byte(prefixFingerprint+path), data); err != nil {
			return fmt.Errorf("setting fingerprint: %w", err)
		}
	}

	for _, path := range deleted {
		if err := wb.Delete([]byte(prefixFingerprint + path)); err != nil {
			return fmt.Errorf("deleting fingerprint: %w", err)
		}
	}

	return wb.Flush()
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
