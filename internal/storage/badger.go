package storage

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStorage implements Storage using BadgerDB
type BadgerStorage struct {
	db *badger.DB
}

// NewBadgerStorage opens a BadgerDB at path. An empty path keeps the
// database in memory.
func NewBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

func (s *BadgerStorage) Begin(writable bool) (Transaction, error) {
	return &BadgerTransaction{
		txn:      s.db.NewTransaction(writable),
		writable: writable,
	}, nil
}

func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// BadgerTransaction implements Transaction using BadgerDB
type BadgerTransaction struct {
	txn      *badger.Txn
	writable bool
}

func (t *BadgerTransaction) Get(table Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(PrefixKey(table, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *BadgerTransaction) Set(table Table, key, value []byte) error {
	if !t.writable {
		return ErrTransactionRO
	}
	return t.txn.Set(PrefixKey(table, key), value)
}

func (t *BadgerTransaction) Delete(table Table, key []byte) error {
	if !t.writable {
		return ErrTransactionRO
	}
	return t.txn.Delete(PrefixKey(table, key))
}

func (t *BadgerTransaction) Scan(table Table) (Iterator, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = TablePrefix(table)
	return &BadgerIterator{
		it:     t.txn.NewIterator(opts),
		prefix: opts.Prefix,
	}, nil
}

func (t *BadgerTransaction) Commit() error {
	return t.txn.Commit()
}

func (t *BadgerTransaction) Rollback() error {
	t.txn.Discard()
	return nil
}

// BadgerIterator implements Iterator using BadgerDB
type BadgerIterator struct {
	it       *badger.Iterator
	prefix   []byte
	started  bool
	hasValue bool
}

func (i *BadgerIterator) Next() bool {
	if !i.started {
		i.it.Rewind()
		i.started = true
	} else {
		i.it.Next()
	}
	i.hasValue = i.it.Valid()
	return i.hasValue
}

func (i *BadgerIterator) Key() []byte {
	if !i.hasValue {
		return nil
	}
	return i.it.Item().KeyCopy(nil)[len(i.prefix):]
}

func (i *BadgerIterator) Value() ([]byte, error) {
	if !i.hasValue {
		return nil, ErrNotFound
	}
	return i.it.Item().ValueCopy(nil)
}

func (i *BadgerIterator) Close() error {
	i.it.Close()
	return nil
}
