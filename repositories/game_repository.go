package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prostaff/match-ingest/models"
)

var (
	ErrGameNotFound = errors.New("game not found")
)

// ListGamesFilter — фильтр поисковой выборки для query-поверхности.
type ListGamesFilter struct {
	League   *string
	Enriched *bool
	Limit    int
	Offset   int
}

// GameRepository — хранилище записей игр. Все мутации выражены как
// идемпотентный keyed upsert или частичное обновление по ключу, поэтому
// sync- и enrichment-свипы не нуждаются во внутрипроцессных блокировках.
type GameRepository interface {
	// UpsertSkeleton вставляет скелетную запись либо обновляет только
	// описательные поля существующей. Поля обогащения и счётчик попыток
	// не затрагиваются никогда.
	UpsertSkeleton(ctx context.Context, game *models.GameRecord) error

	// UpdateEnrichment применяет полезную нагрузку обогащения частичным
	// обновлением, не трогая описательные поля sync-фазы.
	UpdateEnrichment(ctx context.Context, key models.GameKey, enrichment models.Enrichment) error

	// IncrementEnrichmentAttempts фиксирует неудачную попытку обогащения.
	// Уже обогащённые записи не изменяются: счётчик заморожен.
	IncrementEnrichmentAttempts(ctx context.Context, key models.GameKey) error

	// ListUnenriched возвращает необогащённые записи со счётчиком ниже
	// потолка, старые даты старта — первыми.
	ListUnenriched(ctx context.Context, maxAttempts, limit int) ([]models.GameRecord, error)

	GetByKey(ctx context.Context, key models.GameKey) (*models.GameRecord, error)
	List(ctx context.Context, filter ListGamesFilter) ([]models.GameRecord, error)
	StatusCounts(ctx context.Context, maxAttempts int) (*models.StatusCounts, error)

	// ResetEnrichmentAttempts — внешняя административная операция,
	// заново открывающая карантинную запись.
	ResetEnrichmentAttempts(ctx context.Context, key models.GameKey) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

const gameColumns = `
	match_id, game_number, game_id, league, stage, start_time, best_of,
	team1, team2, winner_code, vod_youtube_id,
	enriched, enrichment_attempts, last_enrichment_attempt,
	scoreboard_page, patch, winner_team, game_duration_seconds,
	participants, enriched_at, enrichment_source,
	created_at, updated_at`

func (r *postgresGameRepository) UpsertSkeleton(ctx context.Context, game *models.GameRecord) error {
	team1, err := json.Marshal(game.Team1)
	if err != nil {
		return fmt.Errorf("marshal team1: %w", err)
	}
	team2, err := json.Marshal(game.Team2)
	if err != nil {
		return fmt.Errorf("marshal team2: %w", err)
	}

	query := `
		INSERT INTO games (
			match_id, game_number, game_id, league, stage, start_time, best_of,
			team1, team2, winner_code, vod_youtube_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (match_id, game_number) DO UPDATE SET
			game_id        = EXCLUDED.game_id,
			stage          = EXCLUDED.stage,
			start_time     = EXCLUDED.start_time,
			best_of        = EXCLUDED.best_of,
			team1          = EXCLUDED.team1,
			team2          = EXCLUDED.team2,
			winner_code    = EXCLUDED.winner_code,
			vod_youtube_id = EXCLUDED.vod_youtube_id,
			updated_at     = now()`

	_, err = r.db.ExecContext(ctx, query,
		game.MatchID, game.GameNumber, game.GameID, game.League, game.Stage,
		game.StartTime, game.BestOf, team1, team2, game.WinnerCode, game.VODID,
	)
	return err
}

func (r *postgresGameRepository) UpdateEnrichment(ctx context.Context, key models.GameKey, enrichment models.Enrichment) error {
	participants, err := json.Marshal(enrichment.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}

	query := `
		UPDATE games SET
			enriched              = TRUE,
			scoreboard_page       = $3,
			patch                 = $4,
			winner_team           = $5,
			game_duration_seconds = $6,
			participants          = $7,
			enriched_at           = $8,
			enrichment_source     = $9,
			updated_at            = now()
		WHERE match_id = $1 AND game_number = $2`

	result, err := r.db.ExecContext(ctx, query,
		key.MatchID, key.GameNumber,
		enrichment.ScoreboardPage, enrichment.Patch, enrichment.WinnerTeam,
		enrichment.GameDurationSeconds, participants, enrichment.EnrichedAt, enrichment.Source,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *postgresGameRepository) IncrementEnrichmentAttempts(ctx context.Context, key models.GameKey) error {
	query := `
		UPDATE games SET
			enrichment_attempts     = enrichment_attempts + 1,
			last_enrichment_attempt = now(),
			updated_at              = now()
		WHERE match_id = $1 AND game_number = $2 AND NOT enriched`

	result, err := r.db.ExecContext(ctx, query, key.MatchID, key.GameNumber)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *postgresGameRepository) ListUnenriched(ctx context.Context, maxAttempts, limit int) ([]models.GameRecord, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE NOT enriched AND enrichment_attempts < $1
		ORDER BY start_time ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanGames(rows)
}

func (r *postgresGameRepository) GetByKey(ctx context.Context, key models.GameKey) (*models.GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE match_id = $1 AND game_number = $2`

	row := r.db.QueryRowContext(ctx, query, key.MatchID, key.GameNumber)
	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return game, nil
}

func (r *postgresGameRepository) List(ctx context.Context, filter ListGamesFilter) ([]models.GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.League != nil {
		query += fmt.Sprintf(" AND league = $%d", argID)
		args = append(args, *filter.League)
		argID++
	}
	if filter.Enriched != nil {
		query += fmt.Sprintf(" AND enriched = $%d", argID)
		args = append(args, *filter.Enriched)
		argID++
	}

	query += " ORDER BY start_time DESC, match_id, game_number"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanGames(rows)
}

func (r *postgresGameRepository) StatusCounts(ctx context.Context, maxAttempts int) (*models.StatusCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE NOT enriched AND enrichment_attempts < $1),
			COUNT(*) FILTER (WHERE enriched),
			COUNT(*) FILTER (WHERE NOT enriched AND enrichment_attempts >= $1),
			COUNT(*)
		FROM games`

	counts := &models.StatusCounts{}
	err := r.db.QueryRowContext(ctx, query, maxAttempts).Scan(
		&counts.Pending, &counts.Enriched, &counts.Quarantined, &counts.Total,
	)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *postgresGameRepository) ResetEnrichmentAttempts(ctx context.Context, key models.GameKey) error {
	query := `
		UPDATE games SET
			enrichment_attempts     = 0,
			last_enrichment_attempt = NULL,
			updated_at              = now()
		WHERE match_id = $1 AND game_number = $2 AND NOT enriched`

	result, err := r.db.ExecContext(ctx, query, key.MatchID, key.GameNumber)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrGameNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGame(row rowScanner) (*models.GameRecord, error) {
	var (
		game         models.GameRecord
		team1, team2 []byte
		participants []byte
	)

	err := row.Scan(
		&game.MatchID, &game.GameNumber, &game.GameID, &game.League, &game.Stage,
		&game.StartTime, &game.BestOf, &team1, &team2, &game.WinnerCode, &game.VODID,
		&game.Enriched, &game.EnrichmentAttempts, &game.LastEnrichmentAttempt,
		&game.ScoreboardPage, &game.Patch, &game.WinnerTeam, &game.GameDurationSeconds,
		&participants, &game.EnrichedAt, &game.EnrichmentSource,
		&game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(team1, &game.Team1); err != nil {
		return nil, fmt.Errorf("unmarshal team1: %w", err)
	}
	if err := json.Unmarshal(team2, &game.Team2); err != nil {
		return nil, fmt.Errorf("unmarshal team2: %w", err)
	}
	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &game.Participants); err != nil {
			return nil, fmt.Errorf("unmarshal participants: %w", err)
		}
	}

	return &game, nil
}

func scanGames(rows *sql.Rows) ([]models.GameRecord, error) {
	var games []models.GameRecord
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *game)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return games, nil
}
