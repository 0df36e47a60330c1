package dbpebble

import (
	"os"

	"github.com/cockroachdb/pebble"
)

// OpenDB opens (or creates) the pebble directory at path.
func OpenDB(path string) (*pebble.DB, error) {
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, err
	}

	opts := (&pebble.Options{}).EnsureDefaults()
	cache := pebble.NewCache(64 << 20) // 64 MiB
	defer cache.Unref()
	opts.Cache = cache
	opts.BytesPerSync = 1 << 20 // smoother background flushes (1 MiB)

	return pebble.Open(path, opts)
}

// Open is OpenDB plus NewStore.
func Open(path string) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}
