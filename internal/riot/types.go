package riot

// ChampionMastery represents one element of
// /lol/champion-mastery/v4/champion-masteries/by-puuid/{puuid}
type ChampionMastery struct {
	PUUID                        string `json:"puuid"`
	ChampionID                   int64  `json:"championId"`
	ChampionLevel                int    `json:"championLevel"`
	ChampionPoints               int64  `json:"championPoints"`
	LastPlayTime                 int64  `json:"lastPlayTime"` // epoch milliseconds
	ChampionPointsSinceLastLevel int64  `json:"championPointsSinceLastLevel"`
	ChampionPointsUntilNextLevel int64  `json:"championPointsUntilNextLevel"`
	ChestGranted                 bool   `json:"chestGranted"`
	TokensEarned                 int    `json:"tokensEarned"`
	SummonerID                   string `json:"summonerId"`
}
