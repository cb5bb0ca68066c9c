package services

import "errors"

// Общие ошибки сервисного слоя, используемые в маппинге HTTP.
var (
	// Ресурс не найден
	ErrGameNotFound = errors.New("game not found")

	// Ошибки валидации и бизнес-правил
	ErrUnknownLeague       = errors.New("league is not in the configured registry")
	ErrInvalidLimit        = errors.New("limit must be positive")
	ErrGameAlreadyEnriched = errors.New("game is already enriched")

	// Ошибки аутентификации
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLoginNotConfigured = errors.New("operator login is not configured")
)
