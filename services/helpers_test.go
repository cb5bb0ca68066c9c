package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prostaff/match-ingest/models"
	"github.com/prostaff/match-ingest/providers"
	"github.com/prostaff/match-ingest/repositories"
	"github.com/prostaff/match-ingest/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryGameRepository повторяет контракт postgres-репозитория в памяти:
// upsert не трогает поля обогащения, счётчик попыток заморожен после
// обогащения.
type memoryGameRepository struct {
	mu         sync.Mutex
	games      map[models.GameKey]*models.GameRecord
	lastFilter repositories.ListGamesFilter
}

func newMemoryGameRepository() *memoryGameRepository {
	return &memoryGameRepository{games: make(map[models.GameKey]*models.GameRecord)}
}

func (r *memoryGameRepository) seed(game models.GameRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := game
	r.games[game.Key()] = &cp
}

func (r *memoryGameRepository) get(key models.GameKey) models.GameRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.games[key]
}

func (r *memoryGameRepository) UpsertSkeleton(_ context.Context, game *models.GameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.games[game.Key()]
	if !ok {
		cp := *game
		cp.CreatedAt = time.Now().UTC()
		cp.UpdatedAt = cp.CreatedAt
		r.games[game.Key()] = &cp
		return nil
	}

	existing.GameID = game.GameID
	existing.Stage = game.Stage
	existing.StartTime = game.StartTime
	existing.BestOf = game.BestOf
	existing.Team1 = game.Team1
	existing.Team2 = game.Team2
	existing.WinnerCode = game.WinnerCode
	existing.VODID = game.VODID
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryGameRepository) UpdateEnrichment(_ context.Context, key models.GameKey, enrichment models.Enrichment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	game, ok := r.games[key]
	if !ok {
		return repositories.ErrGameNotFound
	}
	game.Enriched = true
	game.ScoreboardPage = enrichment.ScoreboardPage
	game.Patch = enrichment.Patch
	game.WinnerTeam = enrichment.WinnerTeam
	game.GameDurationSeconds = enrichment.GameDurationSeconds
	game.Participants = enrichment.Participants
	game.EnrichedAt = &enrichment.EnrichedAt
	game.EnrichmentSource = enrichment.Source
	game.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryGameRepository) IncrementEnrichmentAttempts(_ context.Context, key models.GameKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	game, ok := r.games[key]
	if !ok || game.Enriched {
		return repositories.ErrGameNotFound
	}
	game.EnrichmentAttempts++
	now := time.Now().UTC()
	game.LastEnrichmentAttempt = &now
	game.UpdatedAt = now
	return nil
}

func (r *memoryGameRepository) ListUnenriched(_ context.Context, maxAttempts, limit int) ([]models.GameRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.GameRecord
	for _, game := range r.games {
		if !game.Enriched && game.EnrichmentAttempts < maxAttempts {
			out = append(out, *game)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryGameRepository) GetByKey(_ context.Context, key models.GameKey) (*models.GameRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	game, ok := r.games[key]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	cp := *game
	return &cp, nil
}

func (r *memoryGameRepository) List(_ context.Context, filter repositories.ListGamesFilter) ([]models.GameRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter

	var out []models.GameRecord
	for _, game := range r.games {
		if filter.League != nil && game.League != *filter.League {
			continue
		}
		if filter.Enriched != nil && game.Enriched != *filter.Enriched {
			continue
		}
		out = append(out, *game)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryGameRepository) StatusCounts(_ context.Context, maxAttempts int) (*models.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := &models.StatusCounts{}
	for _, game := range r.games {
		counts.Total++
		switch {
		case game.Enriched:
			counts.Enriched++
		case game.EnrichmentAttempts >= maxAttempts:
			counts.Quarantined++
		default:
			counts.Pending++
		}
	}
	return counts, nil
}

func (r *memoryGameRepository) ResetEnrichmentAttempts(_ context.Context, key models.GameKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	game, ok := r.games[key]
	if !ok || game.Enriched {
		return repositories.ErrGameNotFound
	}
	game.EnrichmentAttempts = 0
	game.LastEnrichmentAttempt = nil
	game.UpdatedAt = time.Now().UTC()
	return nil
}

type fakeScheduleClient struct {
	series map[string][]models.SeriesSummary
	errs   map[string]error
	calls  int
}

func (f *fakeScheduleClient) ListCompletedSeries(_ context.Context, league string, limit int) ([]models.SeriesSummary, error) {
	f.calls++
	if err := f.errs[league]; err != nil {
		return nil, err
	}
	series := f.series[league]
	if len(series) > limit {
		series = series[:limit]
	}
	return series, nil
}

type fakeStatsClient struct {
	lookup func(team1, team2 string, date time.Time, gameNumber int) (*providers.ScoreboardRef, error)
	fetch  func(ref *providers.ScoreboardRef) ([]models.Participant, error)
}

func (f *fakeStatsClient) LookupScoreboard(_ context.Context, team1, team2 string, date time.Time, gameNumber int) (*providers.ScoreboardRef, error) {
	return f.lookup(team1, team2, date, gameNumber)
}

func (f *fakeStatsClient) FetchParticipants(_ context.Context, ref *providers.ScoreboardRef) ([]models.Participant, error) {
	return f.fetch(ref)
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, reader io.Reader) (*storage.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return &storage.UploadResult{Key: key}, nil
}

func (f *fakeUploader) Delete(context.Context, string) error { return nil }

func (f *fakeUploader) GetPublicURL(key string) string { return "https://cdn.test/" + key }

func testSeries(matchID, league string, games int, start time.Time) models.SeriesSummary {
	summary := models.SeriesSummary{
		MatchID:    matchID,
		League:     league,
		Stage:      "Week 3",
		StartTime:  start,
		BestOf:     3,
		Team1:      models.TeamSummary{Name: "LOUD", Code: "LLL", GameWins: 2},
		Team2:      models.TeamSummary{Name: "paiN Gaming", Code: "PNG", GameWins: 1},
		WinnerCode: "LLL",
	}
	for i := 1; i <= games; i++ {
		summary.Games = append(summary.Games, models.SeriesGame{
			GameID: matchID + "-g" + string(rune('0'+i)),
			Number: i,
			VODID:  "vod" + string(rune('0'+i)),
		})
	}
	return summary
}

func tenParticipants(winner string) []models.Participant {
	participants := make([]models.Participant, 0, models.ParticipantsPerGame)
	roles := []string{"Top", "Jungle", "Mid", "Bot", "Support"}
	for _, team := range []string{winner, "paiN Gaming"} {
		for i, role := range roles {
			participants = append(participants, models.Participant{
				SummonerName: team + "-" + role,
				TeamName:     team,
				Champion:     "Champion" + string(rune('A'+i)),
				Role:         role,
				Win:          team == winner,
			})
		}
	}
	return participants
}
