package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prostaff/match-ingest/models"
	"github.com/prostaff/match-ingest/repositories"
)

func TestListGamesNormalizesFilter(t *testing.T) {
	repo := newMemoryGameRepository()
	svc := NewGameService(repo, testLogger(), 3)
	ctx := context.Background()

	_, err := svc.ListGames(ctx, repositories.ListGamesFilter{})
	require.NoError(t, err)
	assert.Equal(t, defaultListLimit, repo.lastFilter.Limit)

	_, err = svc.ListGames(ctx, repositories.ListGamesFilter{Limit: 10_000, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, maxListLimit, repo.lastFilter.Limit)
	assert.Equal(t, 0, repo.lastFilter.Offset)
}

func TestListGamesCanonicalizesLeague(t *testing.T) {
	repo := newMemoryGameRepository()
	repo.seed(models.GameRecord{MatchID: "m1", GameNumber: 1, League: "CBLOL"})

	svc := NewGameService(repo, testLogger(), 3)

	league := "cblol"
	games, err := svc.ListGames(context.Background(), repositories.ListGamesFilter{League: &league})
	require.NoError(t, err)
	assert.Len(t, games, 1, "код лиги приводится к каноническому написанию реестра")
}

func TestListGamesRejectsUnknownLeague(t *testing.T) {
	svc := NewGameService(newMemoryGameRepository(), testLogger(), 3)

	league := "NOT_A_LEAGUE"
	_, err := svc.ListGames(context.Background(), repositories.ListGamesFilter{League: &league})
	assert.ErrorIs(t, err, ErrUnknownLeague)
}

func TestGetGameNotFound(t *testing.T) {
	svc := NewGameService(newMemoryGameRepository(), testLogger(), 3)

	_, err := svc.GetGame(context.Background(), models.GameKey{MatchID: "missing", GameNumber: 1})
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestStatusCountsLifecycle(t *testing.T) {
	repo := newMemoryGameRepository()
	start := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)

	repo.seed(models.GameRecord{MatchID: "pending", GameNumber: 1, StartTime: start})
	repo.seed(models.GameRecord{MatchID: "done", GameNumber: 1, StartTime: start, Enriched: true})
	repo.seed(models.GameRecord{MatchID: "stuck", GameNumber: 1, StartTime: start, EnrichmentAttempts: 3})

	svc := NewGameService(repo, testLogger(), 3)
	counts, err := svc.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, counts.Pending)
	assert.Equal(t, 1, counts.Enriched)
	assert.Equal(t, 1, counts.Quarantined)
	assert.Equal(t, 3, counts.Total)
}

func TestResetEnrichmentReopensQuarantine(t *testing.T) {
	repo := newMemoryGameRepository()
	now := time.Now().UTC()
	repo.seed(models.GameRecord{
		MatchID:               "m1",
		GameNumber:            1,
		EnrichmentAttempts:    3,
		LastEnrichmentAttempt: &now,
	})

	svc := NewGameService(repo, testLogger(), 3)
	key := models.GameKey{MatchID: "m1", GameNumber: 1}

	require.NoError(t, svc.ResetEnrichment(context.Background(), key))

	game := repo.get(key)
	assert.Equal(t, 0, game.EnrichmentAttempts)
	assert.Nil(t, game.LastEnrichmentAttempt)
}

func TestResetEnrichmentRejectsEnrichedGame(t *testing.T) {
	repo := newMemoryGameRepository()
	repo.seed(models.GameRecord{MatchID: "m1", GameNumber: 1, Enriched: true})

	svc := NewGameService(repo, testLogger(), 3)
	err := svc.ResetEnrichment(context.Background(), models.GameKey{MatchID: "m1", GameNumber: 1})
	assert.ErrorIs(t, err, ErrGameAlreadyEnriched)
}

func TestResetEnrichmentMissingGame(t *testing.T) {
	svc := NewGameService(newMemoryGameRepository(), testLogger(), 3)

	err := svc.ResetEnrichment(context.Background(), models.GameKey{MatchID: "nope", GameNumber: 1})
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestLeaguesRegistry(t *testing.T) {
	svc := NewGameService(newMemoryGameRepository(), testLogger(), 3)

	leagues := svc.Leagues()
	assert.NotEmpty(t, leagues)

	_, ok := models.LeagueByCode("CBLOL")
	assert.True(t, ok)
}
