package models

import "time"

// SeriesGame — одна сыгранная игра внутри серии по данным расписания.
type SeriesGame struct {
	GameID string `json:"game_id"`
	Number int    `json:"number"`
	VODID  string `json:"vod_youtube_id,omitempty"`
}

// SeriesSummary — завершённая серия из источника расписания,
// нормализованная из ответа LoL Esports API.
type SeriesSummary struct {
	MatchID    string       `json:"match_id"`
	League     string       `json:"league"`
	Stage      string       `json:"stage"`
	StartTime  time.Time    `json:"start_time"`
	BestOf     int          `json:"best_of"`
	Team1      TeamSummary  `json:"team1"`
	Team2      TeamSummary  `json:"team2"`
	WinnerCode string       `json:"winner_code"`
	Games      []SeriesGame `json:"games"`
}
