package ddragon

import "github.com/goccy/go-json"

// ChampionInfo holds the 0-10 ratings shown on the champion page
type ChampionInfo struct {
	Attack     int `json:"attack"`
	Defense    int `json:"defense"`
	Magic      int `json:"magic"`
	Difficulty int `json:"difficulty"`
}

// Champion is one entry of champion.json
type Champion struct {
	ID      string             `json:"id"`
	Key     string             `json:"key"` // numeric champion ID, as a string
	Name    string             `json:"name"`
	Title   string             `json:"title"`
	Info    ChampionInfo       `json:"info"`
	Tags    []string           `json:"tags"`
	Partype string             `json:"partype"`
	Stats   map[string]float64 `json:"stats"`
}

// Item is one entry of item.json. Items carry a loose, patch-dependent set
// of fields so they are kept undecoded until flattened.
type Item map[string]json.RawMessage

type championFile struct {
	Version string              `json:"version"`
	Data    map[string]Champion `json:"data"`
}

type itemFile struct {
	Version string          `json:"version"`
	Data    map[string]Item `json:"data"`
}
