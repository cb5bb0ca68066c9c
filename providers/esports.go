package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prostaff/match-ingest/models"
	"github.com/prostaff/match-ingest/ratelimit"
)

// SourceEsports — ключ лимитера для LoL Esports API.
const SourceEsports = "lolesports"

const esportsBaseURL = "https://esports-api.lolesports.com/persisted/gw"

// ScheduleClient — источник расписания: завершённые серии лиги.
type ScheduleClient interface {
	ListCompletedSeries(ctx context.Context, league string, limit int) ([]models.SeriesSummary, error)
}

// LeagueRef — лига по данным источника расписания.
type LeagueRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type EsportsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    ratelimit.Limiter
	logger     *slog.Logger

	mu        sync.Mutex
	leagueIDs map[string]string // league name (lower) -> id
}

type EsportsClientConfig struct {
	APIKey  string
	BaseURL string // пустой — боевой эндпоинт
	Limiter ratelimit.Limiter
	Logger  *slog.Logger
}

func NewEsportsClient(cfg EsportsClientConfig) *EsportsClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = esportsBaseURL
	}
	return &EsportsClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		limiter:    cfg.Limiter,
		logger:     cfg.Logger,
		leagueIDs:  make(map[string]string),
	}
}

// Формат ответа persisted gateway.
type esportsEnvelope struct {
	Data struct {
		Leagues  []LeagueRef `json:"leagues"`
		Schedule struct {
			Events []esportsEvent `json:"events"`
		} `json:"schedule"`
	} `json:"data"`
}

type esportsEvent struct {
	StartTime string `json:"startTime"`
	BlockName string `json:"blockName"`
	League    struct {
		Name string `json:"name"`
	} `json:"league"`
	Match struct {
		ID    string `json:"id"`
		Teams []struct {
			Name   string `json:"name"`
			Code   string `json:"code"`
			Image  string `json:"image"`
			Result struct {
				GameWins int `json:"gameWins"`
			} `json:"result"`
		} `json:"teams"`
		Strategy struct {
			Count int `json:"count"`
		} `json:"strategy"`
	} `json:"match"`
	Games []struct {
		ID   string `json:"id"`
		VODs []struct {
			Parameter string `json:"parameter"`
		} `json:"vods"`
	} `json:"games"`
}

// ListLeagues возвращает лиги, известные источнику расписания.
func (c *EsportsClient) ListLeagues(ctx context.Context) ([]LeagueRef, error) {
	envelope, err := callWithRetry(ctx, c.limiter, SourceEsports, func(ctx context.Context) (*esportsEnvelope, error) {
		return c.get(ctx, "/getLeagues", nil)
	})
	if err != nil {
		return nil, err
	}
	return envelope.Data.Leagues, nil
}

// ListCompletedSeries возвращает до limit завершённых серий лиги,
// нормализованных в доменные объекты. Игры без VOD не были сыграны
// (серия закончилась раньше) и не включаются.
func (c *EsportsClient) ListCompletedSeries(ctx context.Context, league string, limit int) ([]models.SeriesSummary, error) {
	leagueID, err := c.findLeagueID(ctx, league)
	if err != nil {
		return nil, err
	}

	envelope, err := callWithRetry(ctx, c.limiter, SourceEsports, func(ctx context.Context) (*esportsEnvelope, error) {
		return c.get(ctx, "/getCompletedEvents", url.Values{"leagueId": {leagueID}})
	})
	if err != nil {
		return nil, err
	}

	// getCompletedEvents отдаёт события по всем лигам сразу —
	// фильтруем до целевой.
	var series []models.SeriesSummary
	for _, event := range envelope.Data.Schedule.Events {
		if !strings.EqualFold(event.League.Name, league) {
			continue
		}
		summary, ok := normalizeEvent(event, league)
		if !ok {
			continue
		}
		series = append(series, summary)
		if len(series) >= limit {
			break
		}
	}

	c.logger.Info("completed series fetched",
		slog.String("league", league),
		slog.Int("series", len(series)),
		slog.Int("events_in_response", len(envelope.Data.Schedule.Events)))

	return series, nil
}

func (c *EsportsClient) findLeagueID(ctx context.Context, league string) (string, error) {
	key := strings.ToLower(league)

	c.mu.Lock()
	id, ok := c.leagueIDs[key]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	leagues, err := c.ListLeagues(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve league id for %q: %w", league, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range leagues {
		c.leagueIDs[strings.ToLower(l.Name)] = l.ID
	}
	if id, ok := c.leagueIDs[key]; ok {
		return id, nil
	}
	return "", fmt.Errorf("league %q unknown to schedule source: %w", league, ErrNotFound)
}

func (c *EsportsClient) get(ctx context.Context, path string, query url.Values) (*esportsEnvelope, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lolesports request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("lolesports", resp.StatusCode)
	}

	var envelope esportsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode lolesports response: %w", err)
	}
	return &envelope, nil
}

func normalizeEvent(event esportsEvent, league string) (models.SeriesSummary, bool) {
	if event.Match.ID == "" || len(event.Match.Teams) != 2 {
		return models.SeriesSummary{}, false
	}

	t1 := event.Match.Teams[0]
	t2 := event.Match.Teams[1]

	winnerCode := t2.Code
	if t1.Result.GameWins > t2.Result.GameWins {
		winnerCode = t1.Code
	}

	stage := event.BlockName
	if stage == "" {
		stage = "Regular Season"
	}

	startTime, err := time.Parse(time.RFC3339, event.StartTime)
	if err != nil {
		return models.SeriesSummary{}, false
	}

	bestOf := event.Match.Strategy.Count
	if bestOf == 0 {
		bestOf = 3
	}

	summary := models.SeriesSummary{
		MatchID:    event.Match.ID,
		League:     league,
		Stage:      stage,
		StartTime:  startTime.UTC(),
		BestOf:     bestOf,
		Team1:      models.TeamSummary{Name: t1.Name, Code: t1.Code, Image: t1.Image, GameWins: t1.Result.GameWins},
		Team2:      models.TeamSummary{Name: t2.Name, Code: t2.Code, Image: t2.Image, GameWins: t2.Result.GameWins},
		WinnerCode: winnerCode,
	}

	for idx, game := range event.Games {
		if game.ID == "" || len(game.VODs) == 0 {
			continue
		}
		vods := make([]string, 0, len(game.VODs))
		for _, v := range game.VODs {
			vods = append(vods, v.Parameter)
		}
		summary.Games = append(summary.Games, models.SeriesGame{
			GameID: game.ID,
			Number: idx + 1,
			VODID:  pickYouTubeVOD(vods),
		})
	}

	if len(summary.Games) == 0 {
		return models.SeriesSummary{}, false
	}
	return summary, true
}

// pickYouTubeVOD выбирает YouTube-идентификатор из списка VOD.
// YouTube id — до 15 символов с буквами, Twitch id — чисто числовой.
func pickYouTubeVOD(params []string) string {
	for _, p := range params {
		if p != "" && !isDigits(p) && len(p) <= 15 {
			return p
		}
	}
	if len(params) > 0 {
		return params[0]
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
