package models

import (
	"fmt"
	"time"
)

// GameKey — составной ключ игры: серия + номер игры внутри серии.
// Стабилен между повторными синхронизациями.
type GameKey struct {
	MatchID    string `json:"match_id"`
	GameNumber int    `json:"game_number"`
}

func (k GameKey) String() string {
	return fmt.Sprintf("%s_%d", k.MatchID, k.GameNumber)
}

// TeamSummary — состояние команды на уровне серии (из LoL Esports API).
type TeamSummary struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Image    string `json:"image,omitempty"`
	GameWins int    `json:"game_wins"`
}

// RuneSelection — выбор рун игрока: keystone + основная ветка,
// вторичная ветка и осколки характеристик.
type RuneSelection struct {
	Keystone       string   `json:"keystone"`
	PrimaryRunes   []string `json:"primary_runes"`
	SecondaryRunes []string `json:"secondary_runes"`
	StatShards     []string `json:"stat_shards"`
}

// Participant — статистика одного игрока в одной игре (из Leaguepedia).
type Participant struct {
	SummonerName   string        `json:"summoner_name"`
	TeamName       string        `json:"team_name"`
	Champion       string        `json:"champion"`
	Role           string        `json:"role"`
	Kills          int           `json:"kills"`
	Deaths         int           `json:"deaths"`
	Assists        int           `json:"assists"`
	Gold           int           `json:"gold"`
	CS             int           `json:"cs"`
	Damage         int           `json:"damage"`
	DamageTaken    int           `json:"damage_taken"`
	VisionScore    int           `json:"vision_score"`
	WardsPlaced    int           `json:"wards_placed"`
	WardsKilled    int           `json:"wards_killed"`
	Win            bool          `json:"win"`
	Items          []string      `json:"items"`
	SummonerSpells []string      `json:"summoner_spells"`
	Runes          RuneSelection `json:"runes"`
}

// ParticipantsPerGame — в завершённой игре всегда десять участников.
const ParticipantsPerGame = 10

// GameRecord — одна игра внутри профессиональной серии.
//
// Создаётся sync-свипом со скелетными (описательными) полями и
// enriched=false; enrichment-свип заполняет поля статистики и
// выставляет enriched=true ровно один раз.
type GameRecord struct {
	MatchID    string `json:"match_id"`
	GameID     string `json:"game_id,omitempty"`
	GameNumber int    `json:"game_number"`

	League     string      `json:"league"`
	Stage      string      `json:"stage"`
	StartTime  time.Time   `json:"start_time"`
	BestOf     int         `json:"best_of"`
	Team1      TeamSummary `json:"team1"`
	Team2      TeamSummary `json:"team2"`
	WinnerCode string      `json:"winner_code,omitempty"`
	VODID      string      `json:"vod_youtube_id,omitempty"`

	Enriched              bool       `json:"enriched"`
	EnrichmentAttempts    int        `json:"enrichment_attempts"`
	LastEnrichmentAttempt *time.Time `json:"last_enrichment_attempt,omitempty"`

	// Поля обогащения — заполнены только при enriched=true.
	ScoreboardPage      string        `json:"scoreboard_page,omitempty"`
	Patch               string        `json:"patch,omitempty"`
	WinnerTeam          string        `json:"winner_team,omitempty"`
	GameDurationSeconds int           `json:"game_duration_seconds,omitempty"`
	Participants        []Participant `json:"participants,omitempty"`
	EnrichedAt          *time.Time    `json:"enriched_at,omitempty"`
	EnrichmentSource    string        `json:"enrichment_source,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key возвращает составной ключ записи.
func (g *GameRecord) Key() GameKey {
	return GameKey{MatchID: g.MatchID, GameNumber: g.GameNumber}
}

// Enrichment — полезная нагрузка успешного обогащения, применяемая
// частичным обновлением к существующей записи.
type Enrichment struct {
	ScoreboardPage      string        `json:"scoreboard_page"`
	Patch               string        `json:"patch"`
	WinnerTeam          string        `json:"winner_team"`
	GameDurationSeconds int           `json:"game_duration_seconds"`
	Participants        []Participant `json:"participants"`
	EnrichedAt          time.Time     `json:"enriched_at"`
	Source              string        `json:"enrichment_source"`
}

// StatusCounts — счётчики записей по состояниям жизненного цикла.
type StatusCounts struct {
	Pending     int `json:"pending"`
	Enriched    int `json:"enriched"`
	Quarantined int `json:"quarantined"`
	Total       int `json:"total"`
}
