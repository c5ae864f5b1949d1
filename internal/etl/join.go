package etl

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"legends/internal/table"
)

// FinalColumns is the leading column order of the joined mastery file
var FinalColumns = []string{
	"rank", "key", "champion", "title", "level", "tags",
	"points", "last", "next", "chest", "tokens", "final",
}

// JoinResult is the output of one join
type JoinResult struct {
	Table  *table.Table
	Stats  table.JoinStats
	Status string
}

// Joiner merges transformed mastery rows with champion metadata on key
type Joiner struct {
	Validate   table.Validate
	ChampsPath string // champion clean checkpoint, read when no table is given
	FinalPath  string // final checkpoint, empty to skip
	Logger     *slog.Logger
}

// Run joins mastery with champs, loading champs from the clean checkpoint
// when it is nil.
func (j *Joiner) Run(mastery, champs *table.Table) (JoinResult, error) {
	if mastery == nil {
		return JoinResult{Status: "join: no mastery input"}, fmt.Errorf("mastery: %w", ErrNoInput)
	}
	if champs == nil {
		if j.ChampsPath == "" {
			return JoinResult{Status: "join: no champion input"}, fmt.Errorf("champs: %w", ErrNoInput)
		}
		tbl, err := table.ReadCSV(j.ChampsPath)
		if errors.Is(err, fs.ErrNotExist) {
			return JoinResult{Status: fmt.Sprintf("join: file not found: %s", j.ChampsPath)}, fmt.Errorf("champs: %w", ErrNoInput)
		}
		if err != nil {
			return JoinResult{Status: fmt.Sprintf("join: failed to read %s", j.ChampsPath)}, err
		}
		champs = tbl
	}
	return j.Join(mastery, champs)
}

// Join performs the inner join, applies the final column order and writes
// the final checkpoint. Mastery row order is preserved.
func (j *Joiner) Join(mastery, champs *table.Table) (JoinResult, error) {
	log := loggerOr(j.Logger).With("dataset", "mastery")

	out, stats, err := table.InnerJoin(mastery, champs, "key", j.Validate)
	if err != nil {
		log.Error("failed to join mastery with champions", "error", err, "duplicate_keys", stats.DuplicateKeys)
		return JoinResult{Stats: stats, Status: fmt.Sprintf("join: %v", err)}, err
	}

	if stats.LeftUnmatched > 0 {
		log.Warn("mastery rows without champion metadata dropped", "rows", stats.LeftUnmatched)
	}
	log.Debug("champions without mastery", "rows", stats.RightUnmatched)

	out.Arrange(FinalColumns)

	res := JoinResult{Table: out, Stats: stats}
	if j.FinalPath == "" {
		res.Status = fmt.Sprintf("join: merged %d rows", out.Len())
		return res, nil
	}
	if err := out.WriteCSV(j.FinalPath); err != nil {
		log.Error("failed to save final data", "path", j.FinalPath, "error", err)
		res.Table = nil
		res.Status = fmt.Sprintf("join: failed to save %s: %v", j.FinalPath, err)
		return res, err
	}
	log.Info("final data saved", "rows", out.Len(), "path", j.FinalPath)
	res.Status = fmt.Sprintf("join: merged %d rows, saved %s", out.Len(), j.FinalPath)
	return res, nil
}
