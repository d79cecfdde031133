package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	KeyBlunts     = "blunt_messages_v1"
	KeyRateLimits = "blunt_rate_limits_v1"
	KeyUsers      = "blunt_users_v1"
	KeySessionKey = "blunt_session_key_v1"
)

// errUnchanged lets a mutation skip the write back.
var errUnchanged = errors.New("unchanged")

type Config interface {
	DataDirectory() string
}

// KV holds each collection as one JSON document under its own key. Writers
// replace the whole document; a mutex per key keeps read-modify-write cycles
// from overlapping.
type KV struct {
	db    *sqlx.DB
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func Open(config Config) (*KV, error) {
	dir := config.DataDirectory()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return connect("file:" + path.Join(dir, "blunt.db"))
}

// OpenMemory opens a private in-memory store, mostly for tests.
func OpenMemory(name string) (*KV, error) {
	return connect("file:" + name + "?mode=memory&cache=shared")
}

func connect(dsn string) (*KV, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	kv := &KV{db: db, locks: map[string]*sync.Mutex{}}
	if err := kv.init(); err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

func (s *KV) init() error {
	_, err := s.db.Exec(`create table if not exists kv (
		key        text not null primary key,
		value      text not null,
		updated_at DATETIME not null
	)`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}
	return nil
}

func (s *KV) Close() error {
	return s.db.Close()
}

func (s *KV) lock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Load decodes the document under key into v. It reports false when the key
// has never been written.
func (s *KV) Load(ctx context.Context, key string, v interface{}) (bool, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `select value from kv where key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *KV) Store(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	res, err := s.db.ExecContext(ctx, `insert into kv (key, value, updated_at) values (?, ?, ?)
		on conflict(key) do update set value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	} else if rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}
	return nil
}

// mutate loads the document under key, applies fn and writes the result back,
// all while holding the key's lock. fn returning errUnchanged skips the write.
func mutate[T any](ctx context.Context, kv *KV, key string, fn func(doc *T) error) error {
	l := kv.lock(key)
	l.Lock()
	defer l.Unlock()

	var doc T
	if _, err := kv.Load(ctx, key, &doc); err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	return kv.Store(ctx, key, &doc)
}

func read[T any](ctx context.Context, kv *KV, key string) (T, error) {
	l := kv.lock(key)
	l.Lock()
	defer l.Unlock()

	var doc T
	_, err := kv.Load(ctx, key, &doc)
	return doc, err
}
