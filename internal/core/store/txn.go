package store

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/secemp9/jari/internal/core/model"
)

// Txn is a single multi-key transaction spanning all sub-stores, matching
// spec.md §4.A's begin/get/put/delete/range/commit/abort contract.
type Txn struct {
	txn      *badger.Txn
	writable bool
	store    *Store
	held     bool // true if this txn holds store.writerMu
}

// Begin opens a transaction. Write transactions block until any other
// write transaction on this Store commits or aborts (spec.md §5: "writers
// serialized at commit boundaries").
func (s *Store) Begin(writable bool) *Txn {
	if writable {
		s.writerMu.Lock()
	}
	return &Txn{txn: s.db.NewTransaction(writable), writable: writable, store: s, held: writable}
}

// View runs fn inside a read-only transaction and always discards it.
func (s *Store) View(fn func(tx *Txn) error) error {
	tx := s.Begin(false)
	defer tx.Discard()
	return fn(tx)
}

// Update runs fn inside a write transaction, committing on success and
// discarding (rolling back) on any error. If fn panics, the deferred
// Discard still runs as the panic unwinds; the panic is not recovered.
func (s *Store) Update(fn func(tx *Txn) error) error {
	tx := s.Begin(true)
	defer tx.Discard()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func key(sub, k string) []byte {
	return []byte(sub + "/" + k)
}

// Get returns the raw value at (sub, k), or model.ErrNotFound if absent.
func (t *Txn) Get(sub, k string) ([]byte, error) {
	item, err := t.txn.Get(key(sub, k))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", model.ErrNotFound, sub, k)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}

	var out []byte
	err = item.Value(func(val []byte) error {
		out = append([]byte(nil), val...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}
	return out, nil
}

// Has reports whether a value exists at (sub, k) without decoding it.
func (t *Txn) Has(sub, k string) (bool, error) {
	_, err := t.txn.Get(key(sub, k))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}
	return true, nil
}

// Put writes value at (sub, k), overwriting any existing value.
func (t *Txn) Put(sub, k string, value []byte) error {
	if !t.writable {
		return errors.New("store: Put called on a read-only transaction")
	}
	if err := t.txn.Set(key(sub, k), value); err != nil {
		if errors.Is(err, badger.ErrTxnTooBig) {
			return model.ErrStorageFull
		}
		return fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}
	return nil
}

// Delete removes the value at (sub, k). Deleting an absent key is a no-op,
// matching Graph.remove_edge's required idempotence.
func (t *Txn) Delete(sub, k string) error {
	if !t.writable {
		return errors.New("store: Delete called on a read-only transaction")
	}
	if err := t.txn.Delete(key(sub, k)); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}
	return nil
}

// Range lazily visits every (key, value) pair in sub whose key starts with
// prefix, in ascending lexicographic order, invoking fn with the key
// stripped of its "{sub}/" prefix. Iteration stops at the first error fn
// returns (also returned by Range) or the first non-matching key.
func (t *Txn) Range(sub, prefix string, fn func(key string, value []byte) error) error {
	fullPrefix := []byte(sub + "/" + prefix)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = fullPrefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	base := len(sub) + 1
	for it.Seek(fullPrefix); it.ValidForPrefix(fullPrefix); it.Next() {
		item := it.Item()
		k := string(item.KeyCopy(nil))[base:]

		var value []byte
		if err := item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
		}

		if err := fn(k, value); err != nil {
			return err
		}
	}
	return nil
}

// Commit finalizes a write transaction. It is a no-op error-wise (but
// still releases the writer lock) on a read-only transaction.
func (t *Txn) Commit() error {
	defer t.release()
	if !t.writable {
		return nil
	}
	if err := t.txn.Commit(); err != nil {
		if errors.Is(err, badger.ErrTxnTooBig) {
			return model.ErrStorageFull
		}
		return fmt.Errorf("%w: %v", model.ErrStorageCorrupt, err)
	}
	return nil
}

// Discard aborts the transaction, releasing any write lock held. Safe to
// call after Commit (Badger's Txn.Discard is itself idempotent in that
// case) and safe to call multiple times.
func (t *Txn) Discard() {
	t.txn.Discard()
	t.release()
}

func (t *Txn) release() {
	if t.held {
		t.held = false
		t.store.writerMu.Unlock()
	}
}
