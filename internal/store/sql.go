package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// SQLStore keeps JSON documents in SQLite or Turso (libsql)
type SQLStore struct {
	db       *sql.DB
	database string

	mu      sync.Mutex
	created map[string]bool
}

// OpenSQL opens a database/sql connection with the "sqlite" or "libsql" driver
func OpenSQL(ctx context.Context, driver, dsn, database string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	return &SQLStore{db: db, database: database, created: make(map[string]bool)}, nil
}

func (s *SQLStore) ensureTable(ctx context.Context, collection string) (string, error) {
	table := tableName(s.database, collection)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created[table] {
		return table, nil
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`, table))
	if err != nil {
		return "", fmt.Errorf("failed to create table %s: %w", table, err)
	}
	s.created[table] = true
	return table, nil
}

func (s *SQLStore) Upsert(ctx context.Context, collection, keyField string, doc Document) error {
	key, err := keyOf(doc, keyField)
	if err != nil {
		return err
	}
	table, err := s.ensureTable(ctx, collection)
	if err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, table), fmt.Sprint(key), string(body), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert %s=%v into %s: %w", keyField, key, table, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, collection, keyField string, key any) (Document, error) {
	table, err := s.ensureTable(ctx, collection)
	if err != nil {
		return nil, err
	}

	var body string
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE id = ?`, table), fmt.Sprint(key)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s=%v from %s: %w", keyField, key, table, err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func (s *SQLStore) Count(ctx context.Context, collection string) (int64, error) {
	table, err := s.ensureTable(ctx, collection)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (s *SQLStore) Close(ctx context.Context) error {
	return s.db.Close()
}
