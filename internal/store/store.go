// Package store persists documents with upsert-by-key semantics. MongoDB
// is the primary backend; Postgres, SQLite and Turso keep each document as
// JSON in a table per collection.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNotFound is returned by Get when no document has the key
	ErrNotFound = errors.New("store: document not found")

	// ErrMissingKey is returned by Upsert when the document lacks the key field
	ErrMissingKey = errors.New("store: document has no key")

	// ErrUnsupportedScheme is returned by Open for an unknown URI scheme
	ErrUnsupportedScheme = errors.New("store: unsupported URI scheme")
)

// Document is a single record as field name to typed value
type Document map[string]any

// Store is a keyed document store. Upserting a document whose key already
// exists replaces it, so repeated loads leave one document per key.
type Store interface {
	Upsert(ctx context.Context, collection, keyField string, doc Document) error
	Get(ctx context.Context, collection, keyField string, key any) (Document, error)
	Count(ctx context.Context, collection string) (int64, error)
	Close(ctx context.Context) error
}

// Open connects to the backend selected by the URI scheme:
//
//	mongodb://, mongodb+srv://   MongoDB
//	postgres://, postgresql://   Postgres (JSONB)
//	libsql://                    Turso
//	sqlite://<path>, file:<path> SQLite
func Open(ctx context.Context, uri, database string) (Store, error) {
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return OpenMongo(ctx, uri, database)
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return OpenPostgres(ctx, uri, database)
	case strings.HasPrefix(uri, "libsql://"):
		return OpenSQL(ctx, "libsql", uri, database)
	case strings.HasPrefix(uri, "sqlite://"):
		return OpenSQL(ctx, "sqlite", strings.TrimPrefix(uri, "sqlite://"), database)
	case strings.HasPrefix(uri, "file:"):
		return OpenSQL(ctx, "sqlite", uri, database)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, redactURI(uri))
}

// keyOf returns the document's key value
func keyOf(doc Document, keyField string) (any, error) {
	v, ok := doc[keyField]
	if !ok || v == nil || v == "" {
		return nil, fmt.Errorf("%w: field %q", ErrMissingKey, keyField)
	}
	return v, nil
}

var unsafeIdent = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// tableName maps database and collection to one SQL identifier
func tableName(database, collection string) string {
	name := collection
	if database != "" {
		name = database + "_" + collection
	}
	return strings.ToLower(unsafeIdent.ReplaceAllString(name, "_"))
}

// redactURI drops credentials and query parameters from a connection URI
func redactURI(uri string) string {
	if i := strings.Index(uri, "?"); i >= 0 {
		uri = uri[:i]
	}
	if at := strings.LastIndex(uri, "@"); at >= 0 {
		if scheme := strings.Index(uri, "://"); scheme >= 0 && scheme < at {
			return uri[:scheme+3] + "***" + uri[at:]
		}
	}
	return uri
}
