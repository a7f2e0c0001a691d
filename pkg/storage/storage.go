// Package storage provides the key value stores backing the exchange
// state. Every store supports atomic batches: either all the writes of
// a batch become visible or none of them do.
package storage

import "errors"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// Database is a key value store.
type Database interface {
	// Get returns a copy of the value of key, or ErrNotFound.
	Get(key []byte) ([]byte, error)
	NewBatch() Batch
	Close() error
}

// Batch buffers writes until Write is called. Write applies all the
// buffered writes atomically. Close releases the batch, a batch closed
// without Write is discarded. Every batch must be closed.
type Batch interface {
	Put(key, value []byte) error
	Write() error
	Close() error
}
