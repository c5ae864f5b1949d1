package etl

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"legends/internal/table"
)

// TimeLayout is how calendar times are written to clean and final files
const TimeLayout = "2006-01-02 15:04:05"

// masteryCap is the point total at which a champion reaches level 5
const masteryCap = 21600

// Transformer projects, renames and derives columns of one dataset
type Transformer struct {
	Name      string
	Drop      []string
	Rename    map[string]string
	Derive    func(*table.Table) error
	RawPath   string // read when no in-memory input is given
	CleanPath string // clean checkpoint, empty to skip
	Logger    *slog.Logger
}

// Run transforms an in-memory table. A nil input falls back to the raw
// checkpoint. The input table is never modified. A nil result means the
// stage produced nothing; status says why.
func (t *Transformer) Run(in *table.Table) (*table.Table, string) {
	if in == nil {
		if t.RawPath == "" {
			return nil, fmt.Sprintf("%s: no input and no raw checkpoint", t.Name)
		}
		return t.RunFile(t.RawPath)
	}
	return t.apply(in.Clone())
}

// RunFile transforms the raw CSV at path
func (t *Transformer) RunFile(path string) (*table.Table, string) {
	log := loggerOr(t.Logger).With("dataset", t.Name)

	tbl, err := table.ReadCSV(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("raw file not found", "path", path)
		return nil, fmt.Sprintf("%s: file not found: %s", t.Name, path)
	}
	if err != nil {
		log.Error("failed to read raw file", "path", path, "error", err)
		return nil, fmt.Sprintf("%s: failed to read %s: %v", t.Name, path, err)
	}
	return t.apply(tbl)
}

func (t *Transformer) apply(tbl *table.Table) (*table.Table, string) {
	log := loggerOr(t.Logger).With("dataset", t.Name)

	tbl.Drop(t.Drop...)
	tbl.Rename(t.Rename)

	if t.Derive != nil {
		if err := t.Derive(tbl); err != nil {
			log.Error("failed to derive columns", "error", err)
			return nil, fmt.Sprintf("%s: derive failed: %v", t.Name, err)
		}
	}

	if t.CleanPath == "" {
		return tbl, fmt.Sprintf("%s: transformed %d rows", t.Name, tbl.Len())
	}
	if err := tbl.WriteCSV(t.CleanPath); err != nil {
		log.Error("failed to save clean data", "path", t.CleanPath, "error", err)
		return nil, fmt.Sprintf("%s: failed to save %s: %v", t.Name, t.CleanPath, err)
	}
	log.Info("clean data saved", "rows", tbl.Len(), "path", t.CleanPath)
	return tbl, fmt.Sprintf("%s: transformed %d rows, saved %s", t.Name, tbl.Len(), t.CleanPath)
}

// NewChampsTransformer drops identifiers and exposes the display name as champion
func NewChampsTransformer(rawPath, cleanPath string, logger *slog.Logger) *Transformer {
	return &Transformer{
		Name:      "champs",
		Drop:      []string{"champ_key", "id", "championPointsSinceLastLevel"},
		Rename:    map[string]string{"name": "champion"},
		RawPath:   rawPath,
		CleanPath: cleanPath,
		Logger:    logger,
	}
}

// NewItemsTransformer drops the long-form text and layout fields
func NewItemsTransformer(rawPath, cleanPath string, logger *slog.Logger) *Transformer {
	return &Transformer{
		Name:      "items",
		Drop:      []string{"colloq", "description", "image", "maps", "effect"},
		Rename:    map[string]string{"plaintext": "summary"},
		RawPath:   rawPath,
		CleanPath: cleanPath,
		Logger:    logger,
	}
}

// NewMasteryTransformer shortens the API names and ranks champions
func NewMasteryTransformer(rawPath, cleanPath string, logger *slog.Logger) *Transformer {
	return &Transformer{
		Name: "mastery",
		Drop: []string{"puuid", "summonerId"},
		Rename: map[string]string{
			"championId":                   "key",
			"championLevel":                "level",
			"championPoints":               "points",
			"lastPlayTime":                 "last",
			"championPointsSinceLastLevel": "since",
			"championPointsUntilNextLevel": "next",
			"chestGranted":                 "chest",
			"tokensEarned":                 "tokens",
		},
		Derive:    DeriveMastery,
		RawPath:   rawPath,
		CleanPath: cleanPath,
		Logger:    logger,
	}
}

// DeriveMastery converts last from epoch milliseconds to UTC calendar time,
// adds final (points still needed for level 5) and ranks rows by level then
// points, both descending. Equal rows keep their input order.
func DeriveMastery(tbl *table.Table) error {
	for _, col := range []string{"level", "points", "last"} {
		if !tbl.Has(col) {
			return fmt.Errorf("%w: %s", table.ErrMissingColumn, col)
		}
	}

	type ranked struct {
		row    table.Row
		level  int64
		points int64
	}
	rows := make([]ranked, 0, tbl.Len())

	for i, row := range tbl.Rows {
		level, err := strconv.ParseInt(row["level"], 10, 64)
		if err != nil {
			return fmt.Errorf("row %d: invalid level %q", i, row["level"])
		}
		points, err := strconv.ParseInt(row["points"], 10, 64)
		if err != nil {
			return fmt.Errorf("row %d: invalid points %q", i, row["points"])
		}
		last, err := FormatEpochMillis(row["last"])
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}

		final := int64(0)
		if level < 5 {
			final = masteryCap - points
		}

		tbl.Set(i, "last", last)
		tbl.Set(i, "final", strconv.FormatInt(final, 10))
		rows = append(rows, ranked{row: row, level: level, points: points})
	}

	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].level != rows[b].level {
			return rows[a].level > rows[b].level
		}
		return rows[a].points > rows[b].points
	})

	for i, r := range rows {
		tbl.Rows[i] = r.row
		tbl.Set(i, "rank", strconv.Itoa(i+1))
	}
	return nil
}

// FormatEpochMillis renders an epoch-millisecond string as UTC calendar time.
// Values already in calendar form are returned unchanged.
func FormatEpochMillis(s string) (string, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if _, terr := time.Parse(TimeLayout, s); terr == nil {
			return s, nil
		}
		return "", fmt.Errorf("invalid epoch milliseconds %q", s)
	}
	return time.UnixMilli(ms).UTC().Format(TimeLayout), nil
}
