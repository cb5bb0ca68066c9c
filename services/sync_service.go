package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prostaff/match-ingest/live"
	"github.com/prostaff/match-ingest/models"
	"github.com/prostaff/match-ingest/providers"
	"github.com/prostaff/match-ingest/repositories"
	"github.com/prostaff/match-ingest/storage"
)

// SyncResult — итог одного sync-свипа по одной лиге.
type SyncResult struct {
	League        string    `json:"league"`
	Series        int       `json:"series"`
	GamesUpserted int       `json:"games_upserted"`
	SnapshotKey   string    `json:"snapshot_key,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// SyncService — фаза синхронизации: раскрывает завершённые серии
// источника расписания в скелетные записи игр и идемпотентно
// загружает их в хранилище.
type SyncService struct {
	schedule providers.ScheduleClient
	games    repositories.GameRepository
	uploader storage.FileUploader // nil — снапшоты выключены
	hub      *live.Hub
	logger   *slog.Logger
}

func NewSyncService(
	schedule providers.ScheduleClient,
	games repositories.GameRepository,
	uploader storage.FileUploader,
	hub *live.Hub,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		schedule: schedule,
		games:    games,
		uploader: uploader,
		hub:      hub,
		logger:   logger,
	}
}

// RunSync синхронизирует до limit завершённых серий лиги. Upsert
// каждой игры идемпотентен: повторный запуск не создаёт дубликатов и
// не откатывает поля обогащения. Сбой посреди серии оставляет уже
// загруженные игры — следующий свип продолжит с того же места.
func (s *SyncService) RunSync(ctx context.Context, league string, limit int) (*SyncResult, error) {
	if _, ok := models.LeagueByCode(league); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLeague, league)
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	result := &SyncResult{League: league, StartedAt: time.Now().UTC()}

	series, err := s.schedule.ListCompletedSeries(ctx, league, limit)
	if err != nil {
		return nil, fmt.Errorf("list completed series for %s: %w", league, err)
	}
	result.Series = len(series)

	var upserted []models.GameRecord
	for _, summary := range series {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		games := expandSeries(summary)
		for i := range games {
			if err := s.games.UpsertSkeleton(ctx, &games[i]); err != nil {
				return result, fmt.Errorf("upsert game %s: %w", games[i].Key(), err)
			}
			result.GamesUpserted++
		}
		upserted = append(upserted, games...)
	}

	result.FinishedAt = time.Now().UTC()

	if key, err := s.uploadSnapshot(ctx, league, upserted); err != nil {
		// Снапшот — резервная копия, его сбой не отменяет свип.
		s.logger.Error("sync snapshot upload failed",
			slog.String("league", league), slog.Any("error", err))
	} else {
		result.SnapshotKey = key
	}

	s.logger.Info("sync sweep finished",
		slog.String("league", league),
		slog.Int("series", result.Series),
		slog.Int("games", result.GamesUpserted))

	if s.hub != nil {
		s.hub.Publish(live.EventSyncCompleted, league, result)
	}

	return result, nil
}

// RunAll прогоняет sync-свип по всем настроенным лигам последовательно.
// Сбой одной лиги не прерывает остальные; накопленные ошибки
// возвращаются вместе с успешными результатами, чтобы сбой был виден
// в статусе свипа, а не только в логах.
func (s *SyncService) RunAll(ctx context.Context, leagues []string, limit int) ([]SyncResult, error) {
	results := make([]SyncResult, 0, len(leagues))
	var errs []error
	for _, league := range leagues {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := s.RunSync(ctx, league, limit)
		if err != nil {
			s.logger.Error("league sync failed",
				slog.String("league", league), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("league %s: %w", league, err))
			continue
		}
		results = append(results, *result)
	}
	return results, errors.Join(errs...)
}

// expandSeries раскрывает серию в одну скелетную запись на каждую
// сыгранную игру.
func expandSeries(summary models.SeriesSummary) []models.GameRecord {
	games := make([]models.GameRecord, 0, len(summary.Games))
	for _, game := range summary.Games {
		games = append(games, models.GameRecord{
			MatchID:    summary.MatchID,
			GameID:     game.GameID,
			GameNumber: game.Number,
			League:     summary.League,
			Stage:      summary.Stage,
			StartTime:  summary.StartTime,
			BestOf:     summary.BestOf,
			Team1:      summary.Team1,
			Team2:      summary.Team2,
			WinnerCode: summary.WinnerCode,
			VODID:      game.VODID,
		})
	}
	return games
}

func (s *SyncService) uploadSnapshot(ctx context.Context, league string, games []models.GameRecord) (string, error) {
	if s.uploader == nil || len(games) == 0 {
		return "", nil
	}

	payload, err := json.Marshal(games)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/%s/%s.json", league, time.Now().UTC().Format("20060102_150405"))
	if _, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return "", err
	}
	return key, nil
}
