package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prostaff/match-ingest/models"
	"github.com/prostaff/match-ingest/providers"
)

func pendingGame(matchID string, gameNumber int, start time.Time) models.GameRecord {
	return models.GameRecord{
		MatchID:    matchID,
		GameNumber: gameNumber,
		League:     "CBLOL",
		Stage:      "Week 3",
		StartTime:  start,
		BestOf:     3,
		Team1:      models.TeamSummary{Name: "LOUD", Code: "LLL"},
		Team2:      models.TeamSummary{Name: "paiN Gaming", Code: "PNG"},
	}
}

func happyStatsClient() *fakeStatsClient {
	return &fakeStatsClient{
		lookup: func(team1, team2 string, _ time.Time, gameNumber int) (*providers.ScoreboardRef, error) {
			return &providers.ScoreboardRef{
				Page:            fmt.Sprintf("CBLOL/%s vs %s_%d", team1, team2, gameNumber),
				Team1:           team1,
				Team2:           team2,
				WinnerTeam:      "LOUD",
				Patch:           "13.11",
				DurationSeconds: 1965,
			}, nil
		},
		fetch: func(*providers.ScoreboardRef) ([]models.Participant, error) {
			return tenParticipants("LOUD"), nil
		},
	}
}

func TestRunEnrichmentSuccess(t *testing.T) {
	repo := newMemoryGameRepository()
	start := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)
	repo.seed(pendingGame("m1", 1, start))

	svc := NewEnrichmentService(happyStatsClient(), repo, nil, testLogger(), 3)

	result, err := svc.RunEnrichment(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Enriched)
	assert.Zero(t, result.Misses)

	game := repo.get(models.GameKey{MatchID: "m1", GameNumber: 1})
	assert.True(t, game.Enriched)
	assert.Equal(t, "13.11", game.Patch)
	assert.Equal(t, "LOUD", game.WinnerTeam)
	assert.Equal(t, 1965, game.GameDurationSeconds)
	assert.Len(t, game.Participants, models.ParticipantsPerGame)
	assert.Equal(t, "leaguepedia", game.EnrichmentSource)
	require.NotNil(t, game.EnrichedAt)
	assert.Equal(t, 0, game.EnrichmentAttempts, "успех не расходует попытку")
}

func TestRunEnrichmentMissIncrementsAttempts(t *testing.T) {
	repo := newMemoryGameRepository()
	start := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)
	repo.seed(pendingGame("m1", 1, start))

	stats := &fakeStatsClient{
		lookup: func(string, string, time.Time, int) (*providers.ScoreboardRef, error) {
			return nil, fmt.Errorf("no scoreboard: %w", providers.ErrNotFound)
		},
	}
	svc := NewEnrichmentService(stats, repo, nil, testLogger(), 3)

	result, err := svc.RunEnrichment(context.Background(), 50)
	require.NoError(t, err, "промах — ожидаемое состояние, не ошибка свипа")
	assert.Equal(t, 1, result.Misses)

	game := repo.get(models.GameKey{MatchID: "m1", GameNumber: 1})
	assert.False(t, game.Enriched)
	assert.Equal(t, 1, game.EnrichmentAttempts)
	assert.NotNil(t, game.LastEnrichmentAttempt)
}

func TestRunEnrichmentRejectsShortScoreboard(t *testing.T) {
	repo := newMemoryGameRepository()
	start := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)
	repo.seed(pendingGame("m1", 1, start))

	stats := happyStatsClient()
	stats.fetch = func(*providers.ScoreboardRef) ([]models.Participant, error) {
		return tenParticipants("LOUD")[:9], nil
	}
	svc := NewEnrichmentService(stats, repo, nil, testLogger(), 3)

	result, err := svc.RunEnrichment(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DataShape)

	game := repo.get(models.GameKey{MatchID: "m1", GameNumber: 1})
	assert.False(t, game.Enriched, "неполный скорборд не применяется")
	assert.Equal(t, 1, game.EnrichmentAttempts)
}

func TestRunEnrichmentTransientFailureCountsAttempt(t *testing.T) {
	repo := newMemoryGameRepository()
	start := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)
	repo.seed(pendingGame("m1", 1, start))

	stats := &fakeStatsClient{
		lookup: func(string, string, time.Time, int) (*providers.ScoreboardRef, error) {
			return nil, errors.New("connection reset by peer")
		},
	}
	svc := NewEnrichmentService(stats, repo, nil, testLogger(), 3)

	result, err := svc.RunEnrichment(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, repo.get(models.GameKey{MatchID: "m1", GameNumber: 1}).EnrichmentAttempts)
}

func TestRunEnrichmentFatalAbortsSweep(t *testing.T) {
	repo := newMemoryGameRepository()
	start := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)
	repo.seed(pendingGame("m1", 1, start))
	repo.seed(pendingGame("m2", 1, start.Add(time.Hour)))

	stats := &fakeStatsClient{
		lookup: func(string, string, time.Time, int) (*providers.ScoreboardRef, error) {
			return nil, fmt.Errorf("leaguepedia: status 403: %w", providers.ErrFatal)
		},
	}
	svc := NewEnrichmentService(stats, repo, nil, testLogger(), 3)

	result, err := svc.RunEnrichment(context.Background(), 50)
	require.ErrorIs(t, err, providers.ErrFatal)
	assert.Equal(t, 1, result.Processed, "свип прерван на первой записи")

	// Фатальная ошибка говорит о конфигурации, а не о записях:
	// счётчики не расходуются.
	assert.Equal(t, 0, repo.get(models.GameKey{MatchID: "m1", GameNumber: 1}).EnrichmentAttempts)
	assert.Equal(t, 0, repo.get(models.GameKey{MatchID: "m2", GameNumber: 1}).EnrichmentAttempts)
}

func TestRunEnrichmentSkipsQuarantinedRecords(t *testing.T) {
	repo := newMemoryGameRepository()
	start := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)

	quarantined := pendingGame("m1", 1, start)
	quarantined.EnrichmentAttempts = 3
	repo.seed(quarantined)

	svc := NewEnrichmentService(happyStatsClient(), repo, nil, testLogger(), 3)

	result, err := svc.RunEnrichment(context.Background(), 50)
	require.NoError(t, err)
	assert.Zero(t, result.Processed, "карантин не попадает в выборку")
	assert.False(t, repo.get(models.GameKey{MatchID: "m1", GameNumber: 1}).Enriched)
}

func TestRunEnrichmentSkipsEnrichedRecords(t *testing.T) {
	repo := newMemoryGameRepository()
	start := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)

	done := pendingGame("m1", 1, start)
	done.Enriched = true
	repo.seed(done)

	svc := NewEnrichmentService(happyStatsClient(), repo, nil, testLogger(), 3)

	result, err := svc.RunEnrichment(context.Background(), 50)
	require.NoError(t, err)
	assert.Zero(t, result.Processed)
}

func TestRunEnrichmentProcessesOldestFirst(t *testing.T) {
	repo := newMemoryGameRepository()
	base := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)
	repo.seed(pendingGame("newer", 1, base.Add(24*time.Hour)))
	repo.seed(pendingGame("older", 1, base))

	var order []string
	stats := happyStatsClient()
	baseLookup := stats.lookup
	stats.lookup = func(team1, team2 string, date time.Time, gameNumber int) (*providers.ScoreboardRef, error) {
		if date.Equal(base) {
			order = append(order, "older")
		} else {
			order = append(order, "newer")
		}
		return baseLookup(team1, team2, date, gameNumber)
	}

	svc := NewEnrichmentService(stats, repo, nil, testLogger(), 3)
	_, err := svc.RunEnrichment(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, []string{"older", "newer"}, order)
}

func TestRunEnrichmentRejectsRecordWithoutTeams(t *testing.T) {
	repo := newMemoryGameRepository()
	start := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)

	broken := pendingGame("m1", 1, start)
	broken.Team2 = models.TeamSummary{}
	repo.seed(broken)

	svc := NewEnrichmentService(happyStatsClient(), repo, nil, testLogger(), 3)

	result, err := svc.RunEnrichment(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DataShape)
	assert.Equal(t, 1, repo.get(models.GameKey{MatchID: "m1", GameNumber: 1}).EnrichmentAttempts)
}

func TestRunEnrichmentStopsOnContextCancellation(t *testing.T) {
	repo := newMemoryGameRepository()
	base := time.Date(2023, 6, 10, 20, 0, 0, 0, time.UTC)
	repo.seed(pendingGame("m1", 1, base))
	repo.seed(pendingGame("m2", 1, base.Add(time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())

	stats := happyStatsClient()
	baseLookup := stats.lookup
	stats.lookup = func(team1, team2 string, date time.Time, gameNumber int) (*providers.ScoreboardRef, error) {
		cancel() // отмена прилетает посреди свипа
		return baseLookup(team1, team2, date, gameNumber)
	}

	svc := NewEnrichmentService(stats, repo, nil, testLogger(), 3)
	result, err := svc.RunEnrichment(ctx, 50)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, result.Processed, "вторая запись не начата")
}

func TestRunEnrichmentRejectsInvalidBatchSize(t *testing.T) {
	svc := NewEnrichmentService(happyStatsClient(), newMemoryGameRepository(), nil, testLogger(), 3)

	_, err := svc.RunEnrichment(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
