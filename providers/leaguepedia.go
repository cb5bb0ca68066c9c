package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prostaff/match-ingest/models"
	"github.com/prostaff/match-ingest/ratelimit"
	"github.com/prostaff/match-ingest/utils"
)

// SourceLeaguepedia — ключ лимитера для Leaguepedia Cargo API.
// Контракт источника жёсткий: ~1 анонимный запрос в 10-12 секунд,
// нарушение ведёт к длительному кулдауну.
const SourceLeaguepedia = "leaguepedia"

const leaguepediaBaseURL = "https://lol.fandom.com/api.php"

const leaguepediaUserAgent = "ProStaff-Ingest/1.0 (competitive data research; non-commercial)"

// ScoreboardRef — разрешённый идентификатор игры в источнике
// статистики вместе с метаданными уровня игры.
type ScoreboardRef struct {
	Page            string `json:"page"`
	Team1           string `json:"team1"`
	Team2           string `json:"team2"`
	WinnerTeam      string `json:"winner_team"`
	Patch           string `json:"patch"`
	DurationSeconds int    `json:"duration_seconds"`
}

// StatsClient — источник детальной статистики: поиск скорборда игры
// и выборка составов.
type StatsClient interface {
	LookupScoreboard(ctx context.Context, team1, team2 string, date time.Time, gameNumber int) (*ScoreboardRef, error)
	FetchParticipants(ctx context.Context, ref *ScoreboardRef) ([]models.Participant, error)
}

type LeaguepediaClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    ratelimit.Limiter
	logger     *slog.Logger
}

type LeaguepediaClientConfig struct {
	BaseURL string // пустой — боевой эндпоинт
	Limiter ratelimit.Limiter
	Logger  *slog.Logger
}

func NewLeaguepediaClient(cfg LeaguepediaClientConfig) *LeaguepediaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = leaguepediaBaseURL
	}
	return &LeaguepediaClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    baseURL,
		limiter:    cfg.Limiter,
		logger:     cfg.Logger,
	}
}

type cargoResponse struct {
	CargoQuery []struct {
		Title map[string]string `json:"title"`
	} `json:"cargoquery"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// LookupScoreboard ищет запись игры в ScoreboardGames по дате и номеру
// игры. Имена команд сравниваются на клиенте по свёрнутому ключу
// (без регистра и диакритики), поэтому разные написания одной команды
// в двух источниках разрешаются в один скорборд.
func (c *LeaguepediaClient) LookupScoreboard(ctx context.Context, team1, team2 string, date time.Time, gameNumber int) (*ScoreboardRef, error) {
	day := date.UTC().Format("2006-01-02")
	where := fmt.Sprintf("DateTime_UTC LIKE '%s%%' AND N_GameInMatch=%d", day, gameNumber)

	// Максимальный limit cargoquery: выборка за день общая для всех
	// лиг, и в плотные игровые дни целевая пара не должна оказаться
	// за порогом усечения.
	response, err := callWithRetry(ctx, c.limiter, SourceLeaguepedia, func(ctx context.Context) (*cargoResponse, error) {
		return c.cargoQuery(ctx, url.Values{
			"tables":   {"ScoreboardGames"},
			"fields":   {"GameId,WinTeam,Team1,Team2,Patch,Gamelength,DateTime_UTC"},
			"where":    {where},
			"limit":    {"500"},
			"order_by": {"DateTime_UTC ASC"},
		})
	})
	if err != nil {
		return nil, err
	}

	want1, want2 := utils.FoldName(team1), utils.FoldName(team2)
	for _, entry := range response.CargoQuery {
		row := entry.Title
		got1, got2 := utils.FoldName(row["Team1"]), utils.FoldName(row["Team2"])
		if (got1 != want1 || got2 != want2) && (got1 != want2 || got2 != want1) {
			continue
		}
		if row["GameId"] == "" {
			continue
		}

		ref := &ScoreboardRef{
			Page:            row["GameId"],
			Team1:           row["Team1"],
			Team2:           row["Team2"],
			WinnerTeam:      row["WinTeam"],
			Patch:           row["Patch"],
			DurationSeconds: parseGamelength(row["Gamelength"]),
		}
		c.logger.Info("scoreboard resolved",
			slog.String("page", ref.Page),
			slog.String("winner", ref.WinnerTeam),
			slog.String("patch", ref.Patch))
		return ref, nil
	}

	return nil, fmt.Errorf("no scoreboard for %s vs %s G%d on %s: %w", team1, team2, gameNumber, day, ErrNotFound)
}

// FetchParticipants выбирает построчную статистику игроков из
// ScoreboardPlayers для разрешённого скорборда. Признак победы
// вычисляется сравнением команды игрока с WinTeam по свёрнутому ключу.
func (c *LeaguepediaClient) FetchParticipants(ctx context.Context, ref *ScoreboardRef) ([]models.Participant, error) {
	where := fmt.Sprintf("GameId='%s'", escapeCargo(ref.Page))

	response, err := callWithRetry(ctx, c.limiter, SourceLeaguepedia, func(ctx context.Context) (*cargoResponse, error) {
		return c.cargoQuery(ctx, url.Values{
			"tables": {"ScoreboardPlayers"},
			"fields": {"GameId,Name,Team,Champion,Role," +
				"Kills,Deaths,Assists,Gold,CS,DamageToChampions," +
				"DamageTaken,VisionScore,WardsPlaced,WardsKilled," +
				"Items,Runes,SummonerSpells"},
			"where": {where},
			"limit": {"10"},
		})
	})
	if err != nil {
		return nil, err
	}

	participants := make([]models.Participant, 0, len(response.CargoQuery))
	for _, entry := range response.CargoQuery {
		row := entry.Title
		participants = append(participants, models.Participant{
			SummonerName:   row["Name"],
			TeamName:       row["Team"],
			Champion:       row["Champion"],
			Role:           row["Role"],
			Kills:          atoiSafe(row["Kills"]),
			Deaths:         atoiSafe(row["Deaths"]),
			Assists:        atoiSafe(row["Assists"]),
			Gold:           atoiSafe(row["Gold"]),
			CS:             atoiSafe(row["CS"]),
			Damage:         atoiSafe(row["DamageToChampions"]),
			DamageTaken:    atoiSafe(row["DamageTaken"]),
			VisionScore:    atoiSafe(row["VisionScore"]),
			WardsPlaced:    atoiSafe(row["WardsPlaced"]),
			WardsKilled:    atoiSafe(row["WardsKilled"]),
			Win:            utils.SameTeam(row["Team"], ref.WinnerTeam),
			Items:          parseItems(row["Items"]),
			SummonerSpells: parseSummonerSpells(row["SummonerSpells"]),
			Runes:          parseRunes(row["Runes"]),
		})
	}

	c.logger.Info("participants fetched",
		slog.String("page", ref.Page),
		slog.Int("count", len(participants)))

	return participants, nil
}

func (c *LeaguepediaClient) cargoQuery(ctx context.Context, params url.Values) (*cargoResponse, error) {
	query := url.Values{
		"action": {"cargoquery"},
		"format": {"json"},
	}
	for key, values := range params {
		query[key] = values
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", leaguepediaUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leaguepedia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("leaguepedia", resp.StatusCode)
	}

	var response cargoResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode leaguepedia response: %w", err)
	}

	if response.Error != nil {
		if response.Error.Code == "ratelimited" {
			return nil, fmt.Errorf("leaguepedia: %s: %w", response.Error.Info, ErrRateLimited)
		}
		return nil, fmt.Errorf("leaguepedia api error %s: %s", response.Error.Code, response.Error.Info)
	}

	return &response, nil
}

func escapeCargo(value string) string {
	return strings.ReplaceAll(value, "'", "\\'")
}

// parseItems разбирает список предметов, разделённый точкой с запятой.
// Пустые слоты отбрасываются.
func parseItems(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(raw, ";") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func parseSummonerSpells(raw string) []string {
	if raw == "" {
		return nil
	}
	var spells []string
	for _, spell := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(spell); trimmed != "" {
			spells = append(spells, trimmed)
		}
	}
	return spells
}

// parseRunes разбирает строку рун Leaguepedia из девяти позиций:
// [keystone, ряды 2-4 основной ветки, 2 вторичные, 3 осколка].
func parseRunes(raw string) models.RuneSelection {
	if raw == "" {
		return models.RuneSelection{}
	}

	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	// Защита от усечённых данных старых турниров.
	for len(parts) < 9 {
		parts = append(parts, "")
	}

	return models.RuneSelection{
		Keystone:       parts[0],
		PrimaryRunes:   nonEmpty(parts[1:4]),
		SecondaryRunes: nonEmpty(parts[4:6]),
		StatShards:     nonEmpty(parts[6:9]),
	}
}

func nonEmpty(parts []string) []string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseGamelength переводит поле Gamelength ("MM:SS") в секунды.
func parseGamelength(raw string) int {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return minutes*60 + seconds
}

func atoiSafe(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value
}
