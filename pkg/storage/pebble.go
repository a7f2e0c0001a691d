package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

type pebbleDB struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a durable pebble store in dir.
func OpenPebble(dir string) (Database, error) {
	return openPebble(dir, &pebble.Options{})
}

// OpenPebbleInMemory opens a pebble store on an in-memory file system,
// useful for tests that want pebble's batch semantics without touching
// the disk.
func OpenPebbleInMemory() (Database, error) {
	return openPebble("", &pebble.Options{FS: vfs.NewMem()})
}

func openPebble(dir string, opts *pebble.Options) (Database, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble store at %q: %w", dir, err)
	}

	return &pebbleDB{db: db}, nil
}

func (p *pebbleDB) Get(key []byte) ([]byte, error) {
	val, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	// val is only valid until closer is closed
	r := make([]byte, len(val))
	copy(r, val)
	return r, nil
}

func (p *pebbleDB) NewBatch() Batch {
	return &pebbleBatch{b: p.db.NewBatch()}
}

func (p *pebbleDB) Close() error {
	return p.db.Close()
}

type pebbleBatch struct {
	b *pebble.Batch
}

func (b *pebbleBatch) Put(key, value []byte) error {
	return b.b.Set(key, value, nil)
}

func (b *pebbleBatch) Write() error {
	return b.b.Commit(pebble.Sync)
}

func (b *pebbleBatch) Close() error {
	return b.b.Close()
}
