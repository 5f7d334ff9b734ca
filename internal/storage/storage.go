// Package storage provides table-namespaced key/value storage on BadgerDB
// and the HTTP response cache built on it.
package storage

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrTransactionRO = errors.New("transaction is read-only")
)

// Storage is the interface for the underlying key-value store
type Storage interface {
	// Begin starts a new transaction
	Begin(writable bool) (Transaction, error)

	Close() error
}

// Transaction is a snapshot of the store. Writes are visible after Commit.
type Transaction interface {
	Get(table Table, key []byte) ([]byte, error)
	Set(table Table, key, value []byte) error
	Delete(table Table, key []byte) error

	// Scan iterates over every key of a table in key order
	Scan(table Table) (Iterator, error)

	Commit() error

	// Rollback discards the transaction. It is safe to call after Commit.
	Rollback() error
}

// Iterator iterates over key-value pairs
type Iterator interface {
	Next() bool

	// Key returns the current key without its table prefix
	Key() []byte

	Value() ([]byte, error)
	Close() error
}

// Table is a logical keyspace in the storage
type Table byte

const (
	// Cached responses, keyed by the hash of the request URI
	TableURI Table = iota
	TableETag
	TableBody

	// Total number of tables
	TableCount
)

func (t Table) String() string {
	switch t {
	case TableURI:
		return "uri"
	case TableETag:
		return "etag"
	case TableBody:
		return "body"
	default:
		return "unknown"
	}
}

// TablePrefix returns the byte prefix namespacing a table's keys
func TablePrefix(table Table) []byte {
	return []byte{byte(table)}
}

// PrefixKey adds a table prefix to a key
func PrefixKey(table Table, key []byte) []byte {
	result := make([]byte, 1+len(key))
	result[0] = byte(table)
	copy(result[1:], key)
	return result
}
