package etl

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"legends/internal/ddragon"
	"legends/internal/riot"
	"legends/internal/table"
)

// championColumns is the leading layout of a raw champion row; stat
// columns follow in name order.
var championColumns = []string{
	"champ_key", "id", "key", "name", "title",
	"attack", "defense", "magic", "difficulty",
	"tags", "partype",
}

var masteryColumns = []string{
	"puuid", "championId", "championLevel", "championPoints", "lastPlayTime",
	"championPointsSinceLastLevel", "championPointsUntilNextLevel",
	"chestGranted", "tokensEarned", "summonerId",
}

// itemSubObjects are flattened one level into <name>_<field> columns
var itemSubObjects = []string{"gold", "stats"}

// FlattenChampions turns champion.json data into one row per champion,
// ordered by champion ID.
func FlattenChampions(champs map[string]ddragon.Champion) *table.Table {
	names := sortedKeys(champs)

	statSet := make(map[string]bool)
	for _, c := range champs {
		for s := range c.Stats {
			statSet[s] = true
		}
	}
	stats := sortedKeys(statSet)

	tbl := table.New(append(append([]string{}, championColumns...), stats...)...)
	for _, name := range names {
		c := champs[name]
		row := table.Row{
			"champ_key":  name,
			"id":         c.ID,
			"key":        c.Key,
			"name":       c.Name,
			"title":      c.Title,
			"attack":     strconv.Itoa(c.Info.Attack),
			"defense":    strconv.Itoa(c.Info.Defense),
			"magic":      strconv.Itoa(c.Info.Magic),
			"difficulty": strconv.Itoa(c.Info.Difficulty),
			"tags":       jsonArray(c.Tags),
			"partype":    c.Partype,
		}
		for _, s := range stats {
			if v, ok := c.Stats[s]; ok {
				row[s] = strconv.FormatFloat(v, 'f', -1, 64)
			} else {
				row[s] = ""
			}
		}
		tbl.Append(row)
	}
	return tbl
}

// FlattenItems turns item.json data into one row per item, ordered by item
// ID. Scalars become columns, gold and stats are spread into prefixed
// columns, and any other nested value is kept as compact JSON.
func FlattenItems(items map[string]ddragon.Item) *table.Table {
	ids := sortedKeys(items)

	rows := make([]table.Row, 0, len(items))
	columns := make(map[string]bool)
	for _, id := range ids {
		row := table.Row{"id": id}
		for field, raw := range items[id] {
			if isSubObject(field) {
				var sub map[string]json.RawMessage
				if err := json.Unmarshal(raw, &sub); err == nil {
					for k, v := range sub {
						row[field+"_"+k] = renderJSON(v)
					}
					continue
				}
			}
			row[field] = renderJSON(raw)
		}
		for c := range row {
			columns[c] = true
		}
		rows = append(rows, row)
	}

	delete(columns, "id")
	tbl := table.New(append([]string{"id"}, sortedKeys(columns)...)...)
	for _, row := range rows {
		for c := range columns {
			if _, ok := row[c]; !ok {
				row[c] = ""
			}
		}
		tbl.Append(row)
	}
	return tbl
}

// FlattenMasteries turns the mastery list into one row per champion, in API order
func FlattenMasteries(masteries []riot.ChampionMastery) *table.Table {
	tbl := table.New(masteryColumns...)
	for _, m := range masteries {
		tbl.Append(table.Row{
			"puuid":                        m.PUUID,
			"championId":                   strconv.FormatInt(m.ChampionID, 10),
			"championLevel":                strconv.Itoa(m.ChampionLevel),
			"championPoints":               strconv.FormatInt(m.ChampionPoints, 10),
			"lastPlayTime":                 strconv.FormatInt(m.LastPlayTime, 10),
			"championPointsSinceLastLevel": strconv.FormatInt(m.ChampionPointsSinceLastLevel, 10),
			"championPointsUntilNextLevel": strconv.FormatInt(m.ChampionPointsUntilNextLevel, 10),
			"chestGranted":                 strconv.FormatBool(m.ChestGranted),
			"tokensEarned":                 strconv.Itoa(m.TokensEarned),
			"summonerId":                   m.SummonerID,
		})
	}
	return tbl
}

func isSubObject(field string) bool {
	for _, f := range itemSubObjects {
		if f == field {
			return true
		}
	}
	return false
}

// renderJSON converts a raw JSON value to its cell text
func renderJSON(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.String()
		}
	}
	return string(trimmed)
}

func jsonArray(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[" + strings.Join(values, ",") + "]"
	}
	return string(b)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
