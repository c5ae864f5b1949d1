package etl

import (
	"context"
	"fmt"
	"log/slog"

	"legends/internal/ddragon"
	"legends/internal/riot"
	"legends/internal/table"
)

// ChampionSource serves champion.json for the latest patch
type ChampionSource interface {
	LatestVersion(ctx context.Context) (string, error)
	Champions(ctx context.Context, version string) (map[string]ddragon.Champion, error)
}

// ItemSource serves item.json for the latest patch
type ItemSource interface {
	LatestVersion(ctx context.Context) (string, error)
	Items(ctx context.Context, version string) (map[string]ddragon.Item, error)
}

// MasterySource serves a player's champion masteries
type MasterySource interface {
	ChampionMasteries(ctx context.Context, puuid string) ([]riot.ChampionMastery, error)
}

// ChampsExtractor fetches champion metadata for the current patch
type ChampsExtractor struct {
	Source  ChampionSource
	RawPath string // raw checkpoint, empty to skip
	Logger  *slog.Logger
}

func (e *ChampsExtractor) Extract(ctx context.Context) (*table.Table, error) {
	log := loggerOr(e.Logger).With("dataset", "champs")

	version, err := e.Source.LatestVersion(ctx)
	if err != nil {
		log.Error("failed to resolve latest version", "error", err)
		return nil, err
	}

	champs, err := e.Source.Champions(ctx, version)
	if err != nil {
		log.Error("failed to get champion data", "version", version, "error", err)
		return nil, err
	}
	if len(champs) == 0 {
		log.Error("failed to get champion data", "version", version, "error", ErrEmptyPayload)
		return nil, fmt.Errorf("champions %s: %w", version, ErrEmptyPayload)
	}

	tbl := FlattenChampions(champs)
	if err := checkpoint(tbl, e.RawPath); err != nil {
		return nil, err
	}
	log.Info("champion data saved", "version", version, "rows", tbl.Len(), "path", e.RawPath)
	return tbl, nil
}

// ItemsExtractor fetches item metadata for the current patch
type ItemsExtractor struct {
	Source  ItemSource
	RawPath string
	Logger  *slog.Logger
}

func (e *ItemsExtractor) Extract(ctx context.Context) (*table.Table, error) {
	log := loggerOr(e.Logger).With("dataset", "items")

	version, err := e.Source.LatestVersion(ctx)
	if err != nil {
		log.Error("failed to resolve latest version", "error", err)
		return nil, err
	}

	items, err := e.Source.Items(ctx, version)
	if err != nil {
		log.Error("failed to get item data", "version", version, "error", err)
		return nil, err
	}
	if len(items) == 0 {
		log.Error("failed to get item data", "version", version, "error", ErrEmptyPayload)
		return nil, fmt.Errorf("items %s: %w", version, ErrEmptyPayload)
	}

	tbl := FlattenItems(items)
	if err := checkpoint(tbl, e.RawPath); err != nil {
		return nil, err
	}
	log.Info("item data saved", "version", version, "rows", tbl.Len(), "path", e.RawPath)
	return tbl, nil
}

// MasteryExtractor fetches the champion masteries of one player
type MasteryExtractor struct {
	Source  MasterySource
	PUUID   string
	RawPath string
	Logger  *slog.Logger
}

func (e *MasteryExtractor) Extract(ctx context.Context) (*table.Table, error) {
	log := loggerOr(e.Logger).With("dataset", "mastery")

	masteries, err := e.Source.ChampionMasteries(ctx, e.PUUID)
	if err != nil {
		log.Error("failed to get mastery data", "error", err)
		return nil, err
	}
	if len(masteries) == 0 {
		log.Error("failed to get mastery data", "error", ErrEmptyPayload)
		return nil, fmt.Errorf("masteries: %w", ErrEmptyPayload)
	}

	tbl := FlattenMasteries(masteries)
	if err := checkpoint(tbl, e.RawPath); err != nil {
		return nil, err
	}
	log.Info("mastery data saved", "rows", tbl.Len(), "path", e.RawPath)
	return tbl, nil
}

// checkpoint writes tbl to path unless checkpoints are disabled
func checkpoint(tbl *table.Table, path string) error {
	if path == "" {
		return nil
	}
	if err := tbl.WriteCSV(path); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
