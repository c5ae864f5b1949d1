package etl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"legends/internal/store"
	"legends/internal/table"
)

// Opener connects to the document store for one load
type Opener func(ctx context.Context) (store.Store, error)

// LoadResult counts what one load wrote
type LoadResult struct {
	Collection string
	Written    int
	Skipped    int // rows without a key
	Errors     int // rows the store rejected
}

// Loader upserts table rows as documents, one connection per load
type Loader struct {
	Open   Opener
	Logger *slog.Logger
}

// Load upserts every row of tbl into collection keyed by keyField. A row
// failure is logged and counted without stopping the load; the load only
// fails when the store cannot be reached or no row could be written.
func (l *Loader) Load(ctx context.Context, collection string, tbl *table.Table, keyField string) (LoadResult, error) {
	res := LoadResult{Collection: collection}
	log := loggerOr(l.Logger).With("collection", collection)

	if tbl == nil {
		return res, fmt.Errorf("%s: %w", collection, ErrNoInput)
	}

	s, err := l.Open(ctx)
	if err != nil {
		log.Error("failed to connect to store", "error", err)
		return res, fmt.Errorf("failed to connect to store: %w", err)
	}
	defer func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to close store connection", "error", err)
		}
	}()

	var lastErr error
	for i, row := range tbl.Rows {
		if row[keyField] == "" {
			res.Skipped++
			log.Warn("row has no key, skipped", "row", i, "key_field", keyField)
			continue
		}
		if err := s.Upsert(ctx, collection, keyField, ToDocument(row)); err != nil {
			res.Errors++
			lastErr = err
			log.Error("failed to upsert row", "row", i, keyField, row[keyField], "error", err)
			continue
		}
		res.Written++
	}

	if res.Written == 0 && tbl.Len() > 0 {
		if lastErr != nil {
			return res, fmt.Errorf("%s: %w: %w", collection, ErrNothingWritten, lastErr)
		}
		return res, fmt.Errorf("%s: %w", collection, ErrNothingWritten)
	}

	log.Info("data loaded", "written", res.Written, "skipped", res.Skipped, "errors", res.Errors)
	return res, nil
}

// LoadFile reads a CSV checkpoint and loads it
func (l *Loader) LoadFile(ctx context.Context, collection, path, keyField string) (LoadResult, error) {
	tbl, err := table.ReadCSV(path)
	if errors.Is(err, fs.ErrNotExist) {
		return LoadResult{Collection: collection}, fmt.Errorf("%s: file not found: %s: %w", collection, path, ErrNoInput)
	}
	if err != nil {
		return LoadResult{Collection: collection}, err
	}
	return l.Load(ctx, collection, tbl, keyField)
}

// ToDocument types each non-empty cell of a row
func ToDocument(row table.Row) store.Document {
	doc := make(store.Document, len(row))
	for k, v := range row {
		if v == "" {
			continue
		}
		doc[k] = TypedValue(v)
	}
	return doc
}

// TypedValue converts cell text to int64, float64, bool, a JSON array,
// a calendar time or, failing all of those, the string itself.
func TypedValue(s string) any {
	switch s {
	case "true", "True":
		return true
	case "false", "False":
		return false
	}

	if looksNumeric(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return arr
		}
	}

	if len(s) == len(TimeLayout) {
		if t, err := time.Parse(TimeLayout, s); err == nil {
			return t
		}
	}

	return s
}

// looksNumeric rejects words ParseFloat would accept, such as "Inf" or "nan"
func looksNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '+', r == '.', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}
