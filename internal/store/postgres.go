package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps one JSONB document per row, keyed by the string form
// of the key field.
type PostgresStore struct {
	pool     *pgxpool.Pool
	database string

	mu      sync.Mutex
	created map[string]bool
}

// OpenPostgres creates a connection pool and tests it
func OpenPostgres(ctx context.Context, uri, database string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, database: database, created: make(map[string]bool)}, nil
}

// ensureTable creates the collection table on first use
func (s *PostgresStore) ensureTable(ctx context.Context, collection string) (string, error) {
	table := tableName(s.database, collection)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created[table] {
		return table, nil
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table))
	if err != nil {
		return "", fmt.Errorf("failed to create table %s: %w", table, err)
	}
	s.created[table] = true
	return table, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, collection, keyField string, doc Document) error {
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

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, doc, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, table), fmt.Sprint(key), string(body))
	if err != nil {
		return fmt.Errorf("failed to upsert %s=%v into %s: %w", keyField, key, table, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, keyField string, key any) (Document, error) {
	table, err := s.ensureTable(ctx, collection)
	if err != nil {
		return nil, err
	}

	var body []byte
	err = s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, table), fmt.Sprint(key)).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s=%v from %s: %w", keyField, key, table, err)
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) Count(ctx context.Context, collection string) (int64, error) {
	table, err := s.ensureTable(ctx, collection)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}
