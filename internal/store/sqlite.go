package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// migrations run in order; each entry moves the schema up one version and
// must be safe to re-run against a store that already has it.
var migrations = []string{
	// 1: record collections and the chat index on messages
	`
	CREATE TABLE IF NOT EXISTS chats (
		id    TEXT PRIMARY KEY,
		data  TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id         TEXT PRIMARY KEY,
		chat_id    TEXT NOT NULL,
		timestamp  INTEGER NOT NULL,
		data       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, timestamp);
	CREATE TABLE IF NOT EXISTS system_prompts (
		id    TEXT PRIMARY KEY,
		data  TEXT NOT NULL
	);
	`,
	// 2: durable scalars (settings blob, last active chat)
	`
	CREATE TABLE IF NOT EXISTS kv (
		key    TEXT PRIMARY KEY,
		value  TEXT NOT NULL
	);
	`,
}

// sqliteEngine implements engine using SQLite.
type sqliteEngine struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates a SQLite-backed store at the given path.
func OpenSQLite(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	e := &sqliteEngine{db: db, path: dbPath}
	if err := e.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return newStore(e, dbPath), nil
}

func (s *sqliteEngine) migrate() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return err
	}
	for v := version; v < len(migrations); v++ {
		if _, err := s.db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("schema v%d: %w", v+1, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			return err
		}
	}
	return nil
}

func table(coll CollectionName) (string, error) {
	switch coll {
	case Chats, Messages, Prompts:
		return string(coll), nil
	}
	return "", fmt.Errorf("unknown collection %q", coll)
}

func (s *sqliteEngine) insert(ctx context.Context, q execer, verb string, coll CollectionName, e entry) error {
	t, err := table(coll)
	if err != nil {
		return err
	}
	if coll == Messages {
		_, err = q.ExecContext(ctx,
			verb+` INTO messages (id, chat_id, timestamp, data) VALUES (?, ?, ?, ?)`,
			e.id, e.chatID, e.timestamp, string(e.data))
		return err
	}
	_, err = q.ExecContext(ctx, verb+` INTO `+t+` (id, data) VALUES (?, ?)`, e.id, string(e.data))
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *sqliteEngine) add(ctx context.Context, coll CollectionName, e entry) error {
	t, err := table(coll)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM `+t+` WHERE id = ?`, e.id).Scan(&one)
	if err == nil {
		return ErrDuplicateKey
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if err := s.insert(ctx, tx, "INSERT", coll, e); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteEngine) put(ctx context.Context, coll CollectionName, e entry) error {
	return s.insert(ctx, s.db, "INSERT OR REPLACE", coll, e)
}

func (s *sqliteEngine) get(ctx context.Context, coll CollectionName, id string) ([]byte, bool, error) {
	t, err := table(coll)
	if err != nil {
		return nil, false, err
	}
	var data string
	err = s.db.QueryRowContext(ctx, `SELECT data FROM `+t+` WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(data), true, nil
}

func (s *sqliteEngine) getAll(ctx context.Context, coll CollectionName) ([][]byte, error) {
	t, err := table(coll)
	if err != nil {
		return nil, err
	}
	return s.queryData(ctx, `SELECT data FROM `+t)
}

func (s *sqliteEngine) messagesByChat(ctx context.Context, chatID string) ([][]byte, error) {
	return s.queryData(ctx,
		`SELECT data FROM messages INDEXED BY idx_messages_chat
		 WHERE chat_id = ? ORDER BY timestamp, id`, chatID)
}

func (s *sqliteEngine) queryData(ctx context.Context, query string, args ...any) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		out = append(out, []byte(data))
	}
	return out, rows.Err()
}

func (s *sqliteEngine) delete(ctx context.Context, coll CollectionName, id string) error {
	t, err := table(coll)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM `+t+` WHERE id = ?`, id)
	return err
}

func (s *sqliteEngine) clear(ctx context.Context, coll CollectionName) error {
	t, err := table(coll)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM `+t)
	return err
}

func (s *sqliteEngine) count(ctx context.Context, coll CollectionName) (int, error) {
	t, err := table(coll)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t).Scan(&n)
	return n, err
}

func (s *sqliteEngine) getValue(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *sqliteEngine) setValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`, key, value)
	return err
}

func (s *sqliteEngine) deleteValue(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *sqliteEngine) backend() string { return BackendSQLite }

func (s *sqliteEngine) schemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v)
	return v, err
}

func (s *sqliteEngine) sizeBytes() int64 {
	var total int64
	for _, p := range []string{s.path, s.path + "-wal"} {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	return total
}

func (s *sqliteEngine) close() error {
	return s.db.Close()
}
