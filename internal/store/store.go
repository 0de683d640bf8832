// Package store provides the keyed record store for chats, messages and
// system prompts, with SQLite and Badger engines.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rcliao/gchat/internal/model"
)

// CollectionName names one keyed collection.
type CollectionName string

const (
	Chats    CollectionName = "chats"
	Messages CollectionName = "messages"
	Prompts  CollectionName = "system_prompts"

	// kvCollection labels errors from the scalar key/value space.
	kvCollection CollectionName = "kv"
)

// SchemaVersion is the current store layout version.
const SchemaVersion = 2

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// ErrDuplicateKey is returned by Add when the id already exists.
var ErrDuplicateKey = errors.New("duplicate key")

// StorageError reports an engine failure for one collection operation.
type StorageError struct {
	Collection CollectionName
	Op         string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s.%s: %v", e.Collection, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func wrap(coll CollectionName, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Collection: coll, Op: op, Err: err}
}

// entry is one encoded record plus the fields the chat index needs.
type entry struct {
	id        string
	data      []byte
	chatID    string
	timestamp int64
}

// engine is the byte-level storage contract both backends implement.
// Engines return raw errors; the typed layer wraps them.
type engine interface {
	add(ctx context.Context, coll CollectionName, e entry) error
	put(ctx context.Context, coll CollectionName, e entry) error
	get(ctx context.Context, coll CollectionName, id string) ([]byte, bool, error)
	getAll(ctx context.Context, coll CollectionName) ([][]byte, error)
	delete(ctx context.Context, coll CollectionName, id string) error
	clear(ctx context.Context, coll CollectionName) error
	count(ctx context.Context, coll CollectionName) (int, error)
	messagesByChat(ctx context.Context, chatID string) ([][]byte, error)

	getValue(ctx context.Context, key string) (string, bool, error)
	setValue(ctx context.Context, key, value string) error
	deleteValue(ctx context.Context, key string) error

	backend() string
	schemaVersion(ctx context.Context) (int, error)
	sizeBytes() int64
	close() error
}

// Collection is a typed view over one engine collection.
type Collection[T any] struct {
	eng    engine
	name   CollectionName
	encode func(T) (entry, error)
	decode func([]byte) (T, error)
}

// Add inserts rec, failing with ErrDuplicateKey if its id exists.
func (c *Collection[T]) Add(ctx context.Context, rec T) error {
	e, err := c.encode(rec)
	if err != nil {
		return wrap(c.name, "add", err)
	}
	return wrap(c.name, "add", c.eng.add(ctx, c.name, e))
}

// Put inserts or replaces rec by id.
func (c *Collection[T]) Put(ctx context.Context, rec T) error {
	e, err := c.encode(rec)
	if err != nil {
		return wrap(c.name, "put", err)
	}
	return wrap(c.name, "put", c.eng.put(ctx, c.name, e))
}

// Get returns the record with the given id. found is false when absent.
func (c *Collection[T]) Get(ctx context.Context, id string) (rec T, found bool, err error) {
	data, ok, err := c.eng.get(ctx, c.name, id)
	if err != nil || !ok {
		return rec, false, wrap(c.name, "get", err)
	}
	rec, err = c.decode(data)
	if err != nil {
		return rec, false, wrap(c.name, "get", err)
	}
	return rec, true, nil
}

// GetAll returns every record in unspecified order.
func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	rows, err := c.eng.getAll(ctx, c.name)
	if err != nil {
		return nil, wrap(c.name, "getAll", err)
	}
	return c.decodeAll(rows, "getAll")
}

// Delete removes the record if present.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return wrap(c.name, "delete", c.eng.delete(ctx, c.name, id))
}

// Clear removes every record.
func (c *Collection[T]) Clear(ctx context.Context) error {
	return wrap(c.name, "clear", c.eng.clear(ctx, c.name))
}

// Count returns the number of records.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	n, err := c.eng.count(ctx, c.name)
	return n, wrap(c.name, "count", err)
}

func (c *Collection[T]) decodeAll(rows [][]byte, op string) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, data := range rows {
		rec, err := c.decode(data)
		if err != nil {
			return nil, wrap(c.name, op, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// MessageCollection adds the chat index lookup to the messages collection.
type MessageCollection struct {
	*Collection[model.Message]
}

// ForChat returns the chat's messages ordered by timestamp (ties by id),
// read through the chat index.
func (c *MessageCollection) ForChat(ctx context.Context, chatID string) ([]model.Message, error) {
	rows, err := c.eng.messagesByChat(ctx, chatID)
	if err != nil {
		return nil, wrap(c.name, "forChat", err)
	}
	return c.decodeAll(rows, "forChat")
}

// Store bundles the collections over one engine.
type Store struct {
	eng  engine
	path string

	Chats    *Collection[model.Chat]
	Messages *MessageCollection
	Prompts  *Collection[model.SystemPrompt]
}

// Open opens the store at path using the named backend.
func Open(backend, path string) (*Store, error) {
	switch backend {
	case "", BackendSQLite:
		return OpenSQLite(path)
	case BackendBadger:
		return OpenBadger(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func newStore(eng engine, path string) *Store {
	return &Store{
		eng:  eng,
		path: path,
		Chats: &Collection[model.Chat]{
			eng:    eng,
			name:   Chats,
			encode: jsonEntry(func(c model.Chat) string { return c.ID }),
			decode: jsonDecode[model.Chat],
		},
		Messages: &MessageCollection{&Collection[model.Message]{
			eng:    eng,
			name:   Messages,
			encode: messageEntry,
			decode: model.DecodeMessage,
		}},
		Prompts: &Collection[model.SystemPrompt]{
			eng:    eng,
			name:   Prompts,
			encode: jsonEntry(func(p model.SystemPrompt) string { return p.ID }),
			decode: jsonDecode[model.SystemPrompt],
		},
	}
}

func jsonEntry[T any](idOf func(T) string) func(T) (entry, error) {
	return func(rec T) (entry, error) {
		id := idOf(rec)
		if id == "" {
			return entry{}, errors.New("record has empty id")
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return entry{}, err
		}
		return entry{id: id, data: data}, nil
	}
}

func jsonDecode[T any](data []byte) (T, error) {
	var rec T
	err := json.Unmarshal(data, &rec)
	return rec, err
}

func messageEntry(m model.Message) (entry, error) {
	if m == nil {
		return entry{}, errors.New("nil message")
	}
	b := m.Base()
	if b.ID == "" {
		return entry{}, errors.New("record has empty id")
	}
	data, err := model.EncodeMessage(m)
	if err != nil {
		return entry{}, err
	}
	return entry{id: b.ID, data: data, chatID: b.ChatID, timestamp: b.Timestamp}, nil
}

// GetValue reads a durable scalar. found is false when unset.
func (s *Store) GetValue(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.eng.getValue(ctx, key)
	return v, ok, wrap(kvCollection, "get", err)
}

// SetValue writes a durable scalar.
func (s *Store) SetValue(ctx context.Context, key, value string) error {
	return wrap(kvCollection, "set", s.eng.setValue(ctx, key, value))
}

// DeleteValue removes a durable scalar if present.
func (s *Store) DeleteValue(ctx context.Context, key string) error {
	return wrap(kvCollection, "delete", s.eng.deleteValue(ctx, key))
}

// Backend returns the engine name.
func (s *Store) Backend() string { return s.eng.backend() }

// Close closes the underlying engine.
func (s *Store) Close() error {
	return s.eng.close()
}
