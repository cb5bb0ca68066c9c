package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prostaff/match-ingest/live"
	"github.com/prostaff/match-ingest/models"
	"github.com/prostaff/match-ingest/providers"
	"github.com/prostaff/match-ingest/repositories"
)

// EnrichmentResult — итог одного enrichment-свипа.
type EnrichmentResult struct {
	Processed  int       `json:"processed"`
	Enriched   int       `json:"enriched"`
	Misses     int       `json:"misses"`
	DataShape  int       `json:"data_shape"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// EnrichmentService — фаза обогащения: для каждой необогащённой записи
// разрешает скорборд в источнике статистики, выгружает построчную
// статистику десяти участников и применяет её частичным обновлением.
//
// Записи обрабатываются строго последовательно: лимит источника общий
// на процесс, параллелизм его только нарушил бы.
type EnrichmentService struct {
	stats       providers.StatsClient
	games       repositories.GameRepository
	hub         *live.Hub
	logger      *slog.Logger
	maxAttempts int
}

func NewEnrichmentService(
	stats providers.StatsClient,
	games repositories.GameRepository,
	hub *live.Hub,
	logger *slog.Logger,
	maxAttempts int,
) *EnrichmentService {
	return &EnrichmentService{
		stats:       stats,
		games:       games,
		hub:         hub,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// RunEnrichment обрабатывает до batchSize необогащённых записей со
// счётчиком попыток ниже потолка, старые — первыми.
//
// Исход по каждой записи независим: «не найдено», испорченная форма
// данных и исчерпанные транзиентные сбои увеличивают счётчик попыток
// записи, и свип идёт дальше. Единственное исключение — фатальная
// ошибка источника (невалидный ключ, запрет доступа): она означает,
// что ни одна последующая запись не пройдёт, поэтому свип прерывается
// без изменения счётчиков оставшихся записей.
func (s *EnrichmentService) RunEnrichment(ctx context.Context, batchSize int) (*EnrichmentResult, error) {
	if batchSize <= 0 {
		return nil, ErrInvalidLimit
	}

	result := &EnrichmentResult{StartedAt: time.Now().UTC()}

	records, err := s.games.ListUnenriched(ctx, s.maxAttempts, batchSize)
	if err != nil {
		return nil, fmt.Errorf("list unenriched games: %w", err)
	}

	for i := range records {
		if err := ctx.Err(); err != nil {
			result.FinishedAt = time.Now().UTC()
			return result, err
		}

		record := &records[i]
		result.Processed++

		err := s.enrichGame(ctx, record)
		switch {
		case err == nil:
			result.Enriched++
			if s.hub != nil {
				s.hub.Publish(live.EventGameEnriched, record.League, record.Key())
			}
			continue

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			result.FinishedAt = time.Now().UTC()
			return result, err

		case errors.Is(err, providers.ErrFatal):
			s.logger.Error("enrichment sweep aborted",
				slog.String("game", record.Key().String()), slog.Any("error", err))
			result.FinishedAt = time.Now().UTC()
			return result, err

		case errors.Is(err, providers.ErrNotFound):
			result.Misses++
			s.logger.Warn("scoreboard not found",
				slog.String("game", record.Key().String()),
				slog.Int("attempts", record.EnrichmentAttempts+1))

		case errors.Is(err, providers.ErrDataShape):
			result.DataShape++
			s.logger.Warn("scoreboard data rejected",
				slog.String("game", record.Key().String()), slog.Any("error", err))

		default:
			result.Failed++
			s.logger.Error("enrichment attempt failed",
				slog.String("game", record.Key().String()), slog.Any("error", err))
		}

		if err := s.games.IncrementEnrichmentAttempts(ctx, record.Key()); err != nil {
			s.logger.Error("increment enrichment attempts failed",
				slog.String("game", record.Key().String()), slog.Any("error", err))
		}
	}

	result.FinishedAt = time.Now().UTC()

	s.logger.Info("enrichment sweep finished",
		slog.Int("processed", result.Processed),
		slog.Int("enriched", result.Enriched),
		slog.Int("misses", result.Misses),
		slog.Int("failed", result.DataShape+result.Failed))

	if s.hub != nil {
		s.hub.Publish(live.EventEnrichCompleted, "", result)
	}

	return result, nil
}

func (s *EnrichmentService) enrichGame(ctx context.Context, record *models.GameRecord) error {
	if record.Team1.Name == "" || record.Team2.Name == "" || record.StartTime.IsZero() {
		return fmt.Errorf("%w: record %s lacks teams or start time",
			providers.ErrDataShape, record.Key())
	}

	ref, err := s.stats.LookupScoreboard(ctx,
		record.Team1.Name, record.Team2.Name, record.StartTime, record.GameNumber)
	if err != nil {
		return err
	}

	participants, err := s.stats.FetchParticipants(ctx, ref)
	if err != nil {
		return err
	}
	if err := validateParticipants(participants); err != nil {
		return err
	}

	enrichment := models.Enrichment{
		ScoreboardPage:      ref.Page,
		Patch:               ref.Patch,
		WinnerTeam:          ref.WinnerTeam,
		GameDurationSeconds: ref.DurationSeconds,
		Participants:        participants,
		EnrichedAt:          time.Now().UTC(),
		Source:              providers.SourceLeaguepedia,
	}
	if err := s.games.UpdateEnrichment(ctx, record.Key(), enrichment); err != nil {
		return fmt.Errorf("apply enrichment: %w", err)
	}

	s.logger.Info("game enriched",
		slog.String("game", record.Key().String()),
		slog.String("scoreboard", ref.Page))
	return nil
}

// validateParticipants проверяет форму выгрузки: ровно десять строк,
// у каждой есть чемпион и роль. Неполный скорборд не применяется.
func validateParticipants(participants []models.Participant) error {
	if len(participants) != models.ParticipantsPerGame {
		return fmt.Errorf("%w: got %d participants, want %d",
			providers.ErrDataShape, len(participants), models.ParticipantsPerGame)
	}
	for _, p := range participants {
		if p.Champion == "" || p.Role == "" {
			return fmt.Errorf("%w: participant %q lacks champion or role",
				providers.ErrDataShape, p.SummonerName)
		}
	}
	return nil
}
