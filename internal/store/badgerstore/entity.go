package badgerstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/booklist-server/internal/store"
)

// maxConflictRetries bounds how often a write is retried after badger.ErrConflict.
const maxConflictRetries = 10

// Entity provides generic CRUD operations for a JSON-encoded record type.
//
// Keys are laid out as:
//
//	<prefix><id>                      -> JSON document
//	<prefix>idx:<index>:<value>       -> id
type Entity[T any] struct {
	db      *badger.DB
	prefix  string
	indexes []Index[T]
}

// Index defines a unique secondary index on an entity.
type Index[T any] struct {
	name   string
	keyGen func(*T) string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](db *badger.DB, prefix string) *Entity[T] {
	return &Entity[T]{db: db, prefix: prefix}
}

// WithIndex adds a unique secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

func (e *Entity[T]) indexPrefix() []byte {
	return []byte(e.prefix + "idx:")
}

// update runs fn in a read-write transaction, retrying when a concurrent
// transaction touched the same keys.
func (e *Entity[T]) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for range maxConflictRetries {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := e.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%s write: %w", e.prefix, badger.ErrConflict)
}

// Create inserts a new entity under id.
// Returns store.ErrAlreadyExists if the id or any unique index value is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return e.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(e.key(id)); err == nil {
			return fmt.Errorf("id %s: %w", id, store.ErrAlreadyExists)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		for _, idx := range e.indexes {
			value := idx.keyGen(entity)
			_, err := txn.Get(e.indexKey(idx.name, value))
			if err == nil {
				return fmt.Errorf("%s %q: %w", idx.name, value, store.ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}

		if err := txn.Set(e.key(id), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		for _, idx := range e.indexes {
			if err := txn.Set(e.indexKey(idx.name, idx.keyGen(entity)), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
		return nil
	})
}

// Get retrieves an entity by ID.
// Returns store.ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.get(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetByIndex retrieves an entity through a unique secondary index.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.db.View(func(txn *badger.Txn) error {
		id, err := e.lookup(txn, indexName, value)
		if err != nil {
			return err
		}
		entity, err = e.get(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// UpdateByIndex loads the entity found through a unique index, applies
// mutate, and stores the result in one transaction. Indexed fields must
// not be changed by mutate.
func (e *Entity[T]) UpdateByIndex(ctx context.Context, indexName, value string, mutate func(*T)) (*T, error) {
	var entity *T
	err := e.update(ctx, func(txn *badger.Txn) error {
		id, err := e.lookup(txn, indexName, value)
		if err != nil {
			return err
		}
		entity, err = e.get(txn, id)
		if err != nil {
			return err
		}

		mutate(entity)

		data, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("failed to marshal entity: %w", err)
		}
		return txn.Set(e.key(id), data)
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// Count returns the number of stored entities without decoding them.
func (e *Entity[T]) Count(ctx context.Context) (int, error) {
	n := 0
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(e.prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		idxPrefix := e.indexPrefix()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if bytes.HasPrefix(it.Item().Key(), idxPrefix) {
				continue
			}
			n++
		}
		return nil
	})
	return n, err
}

// All returns an iterator over every stored entity.
func (e *Entity[T]) All(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		err := e.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			idxPrefix := e.indexPrefix()
			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				item := it.Item()
				if bytes.HasPrefix(item.Key(), idxPrefix) {
					continue
				}

				var entity T
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				}); err != nil {
					return fmt.Errorf("failed to unmarshal entity: %w", err)
				}
				if !yield(&entity, nil) {
					return errStop
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			yield(nil, err)
		}
	}
}

// List collects All into a slice.
func (e *Entity[T]) List(ctx context.Context) ([]*T, error) {
	var out []*T
	for entity, err := range e.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func (e *Entity[T]) get(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(e.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s%s: %w", e.prefix, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &entity, nil
}

func (e *Entity[T]) lookup(txn *badger.Txn, indexName, value string) (string, error) {
	item, err := txn.Get(e.indexKey(indexName, value))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("%s %q: %w", indexName, value, store.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get index key: %w", err)
	}

	var id string
	err = item.Value(func(val []byte) error {
		id = string(val)
		return nil
	})
	return id, err
}

// errStop ends iteration when the consumer breaks out early.
var errStop = errors.New("iteration stopped")
