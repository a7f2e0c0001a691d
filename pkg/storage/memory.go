package storage

import (
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

type memDB struct {
	db *memorydb.Database
}

// NewMemDatabase returns a Database that lives in memory only.
func NewMemDatabase() Database {
	return &memDB{db: memorydb.New()}
}

func (m *memDB) Get(key []byte) ([]byte, error) {
	ok, err := m.db.Has(key)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrNotFound
	}

	return m.db.Get(key)
}

func (m *memDB) NewBatch() Batch {
	return &memBatch{b: m.db.NewBatch()}
}

func (m *memDB) Close() error {
	return m.db.Close()
}

// memBatch relies on memorydb applying a batch under a single write
// lock.
type memBatch struct {
	b ethdb.Batch
}

func (b *memBatch) Put(key, value []byte) error {
	return b.b.Put(key, value)
}

func (b *memBatch) Write() error {
	return b.b.Write()
}

func (b *memBatch) Close() error {
	b.b.Reset()
	return nil
}
