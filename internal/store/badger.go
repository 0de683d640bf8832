package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	badger "github.com/dgraph-io/badger/v4"
)

// Badger key layout:
//
//	r/<coll>/<id>                        record
//	i/messages/<chatID>\x00<ts8><id>     chat index, value is the id
//	b/messages/<id>                      current index key for a message
//	k/<key>                              scalar value
//	m/schema_version                     layout version
var (
	schemaKey = []byte("m/schema_version")
)

func recordPrefix(coll CollectionName) []byte { return []byte("r/" + string(coll) + "/") }

func recordKey(coll CollectionName, id string) []byte {
	return append(recordPrefix(coll), id...)
}

func chatIndexPrefix(chatID string) []byte {
	return []byte("i/messages/" + chatID + "\x00")
}

// chatIndexKey orders by timestamp then id. Flipping the sign bit makes
// negative timestamps sort before positive ones.
func chatIndexKey(chatID string, ts int64, id string) []byte {
	k := chatIndexPrefix(chatID)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(ts)^(1<<63))
	k = append(k, buf[:]...)
	return append(k, id...)
}

func backPointerKey(id string) []byte { return []byte("b/messages/" + id) }

func valueKey(key string) []byte { return []byte("k/" + key) }

// badgerEngine implements engine on an embedded Badger LSM store.
type badgerEngine struct {
	db   *badger.DB
	path string
}

// OpenBadger opens or creates a Badger-backed store in dir.
func OpenBadger(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	return openBadger(opts, dir)
}

// OpenBadgerInMemory opens a Badger store that lives only in memory.
func OpenBadgerInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	return openBadger(opts, ":memory:")
}

func openBadger(opts badger.Options, path string) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	e := &badgerEngine{db: db, path: path}
	if err := e.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return newStore(e, path), nil
}

func (b *badgerEngine) migrate() error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(schemaKey, []byte(strconv.Itoa(SchemaVersion)))
	})
}

// write stores e inside txn, keeping the chat index in step for messages.
func (b *badgerEngine) write(txn *badger.Txn, coll CollectionName, e entry) error {
	if err := txn.Set(recordKey(coll, e.id), e.data); err != nil {
		return err
	}
	if coll != Messages {
		return nil
	}
	if err := b.dropIndex(txn, e.id); err != nil {
		return err
	}
	ik := chatIndexKey(e.chatID, e.timestamp, e.id)
	if err := txn.Set(ik, []byte(e.id)); err != nil {
		return err
	}
	return txn.Set(backPointerKey(e.id), ik)
}

func (b *badgerEngine) dropIndex(txn *badger.Txn, id string) error {
	item, err := txn.Get(backPointerKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	old, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	if err := txn.Delete(old); err != nil {
		return err
	}
	return txn.Delete(backPointerKey(id))
}

func (b *badgerEngine) add(_ context.Context, coll CollectionName, e entry) error {
	return b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(recordKey(coll, e.id))
		if err == nil {
			return ErrDuplicateKey
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return b.write(txn, coll, e)
	})
}

func (b *badgerEngine) put(_ context.Context, coll CollectionName, e entry) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return b.write(txn, coll, e)
	})
}

func (b *badgerEngine) get(_ context.Context, coll CollectionName, id string) ([]byte, bool, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(coll, id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *badgerEngine) getAll(_ context.Context, coll CollectionName) ([][]byte, error) {
	var out [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := recordPrefix(coll)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (b *badgerEngine) messagesByChat(_ context.Context, chatID string) ([][]byte, error) {
	var out [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := chatIndexPrefix(chatID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := txn.Get(recordKey(Messages, string(id)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			v, err := rec.ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (b *badgerEngine) delete(_ context.Context, coll CollectionName, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if coll == Messages {
			if err := b.dropIndex(txn, id); err != nil {
				return err
			}
		}
		return txn.Delete(recordKey(coll, id))
	})
}

func (b *badgerEngine) clear(_ context.Context, coll CollectionName) error {
	prefixes := [][]byte{recordPrefix(coll)}
	if coll == Messages {
		prefixes = append(prefixes, []byte("i/messages/"), []byte("b/messages/"))
	}
	return b.db.DropPrefix(prefixes...)
}

func (b *badgerEngine) count(_ context.Context, coll CollectionName) (int, error) {
	n := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := recordPrefix(coll)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (b *badgerEngine) getValue(_ context.Context, key string) (string, bool, error) {
	var v []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(valueKey(key))
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(v), true, nil
}

func (b *badgerEngine) setValue(_ context.Context, key, value string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(valueKey(key), []byte(value))
	})
}

func (b *badgerEngine) deleteValue(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(valueKey(key))
	})
}

func (b *badgerEngine) backend() string { return BackendBadger }

func (b *badgerEngine) schemaVersion(_ context.Context) (int, error) {
	var v []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(schemaKey)
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(bytes.TrimSpace(v)))
}

func (b *badgerEngine) sizeBytes() int64 {
	lsm, vlog := b.db.Size()
	return lsm + vlog
}

func (b *badgerEngine) close() error {
	return b.db.Close()
}
