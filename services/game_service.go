package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prostaff/match-ingest/models"
	"github.com/prostaff/match-ingest/repositories"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// GameService — read-поверхность хранилища плюс административный сброс
// карантина.
type GameService struct {
	games       repositories.GameRepository
	logger      *slog.Logger
	maxAttempts int
}

func NewGameService(games repositories.GameRepository, logger *slog.Logger, maxAttempts int) *GameService {
	return &GameService{games: games, logger: logger, maxAttempts: maxAttempts}
}

// ListGames возвращает страницу записей по фильтру. Лимит нормализуется
// к безопасным границам, неизвестная лига отклоняется до запроса в БД.
func (s *GameService) ListGames(ctx context.Context, filter repositories.ListGamesFilter) ([]models.GameRecord, error) {
	if filter.League != nil {
		league, ok := models.LeagueByCode(*filter.League)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLeague, *filter.League)
		}
		filter.League = &league.Code
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return s.games.List(ctx, filter)
}

func (s *GameService) GetGame(ctx context.Context, key models.GameKey) (*models.GameRecord, error) {
	game, err := s.games.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return game, nil
}

// Status возвращает счётчики жизненного цикла: pending, enriched и
// карантин относительно настроенного потолка попыток.
func (s *GameService) Status(ctx context.Context) (*models.StatusCounts, error) {
	return s.games.StatusCounts(ctx, s.maxAttempts)
}

// Leagues возвращает закрытый реестр отслеживаемых лиг.
func (s *GameService) Leagues() []models.League {
	return models.Leagues
}

// ResetEnrichment обнуляет счётчик попыток записи, возвращая её из
// карантина в очередь обогащения. Обогащённые записи не трогаются.
func (s *GameService) ResetEnrichment(ctx context.Context, key models.GameKey) error {
	game, err := s.games.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return ErrGameNotFound
		}
		return err
	}
	if game.Enriched {
		return ErrGameAlreadyEnriched
	}

	if err := s.games.ResetEnrichmentAttempts(ctx, key); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return ErrGameNotFound
		}
		return err
	}

	s.logger.Info("enrichment attempts reset", slog.String("game", key.String()))
	return nil
}
