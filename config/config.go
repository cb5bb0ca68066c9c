package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры сервиса.
type Config struct {
	DatabaseURL  string
	ServerPort   int
	JWTSecretKey string

	// Учётные данные оператора для /auth/login.
	AdminEmail        string
	AdminPasswordHash string

	// LoL Esports (schedule source).
	EsportsAPIKey    string
	EsportsRateLimit time.Duration

	// Leaguepedia (stats source).
	LeaguepediaRateLimit time.Duration

	// Sync sweep.
	SyncLeagues  []string
	SyncLimit    int
	SyncInterval time.Duration

	// Enrichment sweep.
	EnrichBatchSize   int
	EnrichInterval    time.Duration
	EnrichMaxAttempts int

	SchedulerEnabled bool

	// Cloudflare R2 — снапшоты sync-свипов. Необязательно: пустые
	// значения отключают загрузку.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	esportsRate, err := durationEnv("ESPORTS_RATE_LIMIT", 2*time.Second)
	if err != nil {
		return nil, err
	}

	// Анонимный лимит Leaguepedia на практике ~1 запрос в 10-12 секунд.
	leaguepediaRate, err := durationEnv("LEAGUEPEDIA_RATE_LIMIT", 12*time.Second)
	if err != nil {
		return nil, err
	}

	syncLimit, err := intEnv("SYNC_LIMIT", 50)
	if err != nil {
		return nil, err
	}
	if syncLimit <= 0 {
		return nil, fmt.Errorf("SYNC_LIMIT must be positive, got %d", syncLimit)
	}

	syncInterval, err := durationEnv("SYNC_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	enrichBatch, err := intEnv("ENRICH_BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	if enrichBatch <= 0 {
		return nil, fmt.Errorf("ENRICH_BATCH_SIZE must be positive, got %d", enrichBatch)
	}

	enrichInterval, err := durationEnv("ENRICH_INTERVAL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	maxAttempts, err := intEnv("ENRICH_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("ENRICH_MAX_ATTEMPTS must be positive, got %d", maxAttempts)
	}

	leagues := splitList(getEnvOrDefault("SYNC_LEAGUES", "CBLOL"))
	if len(leagues) == 0 {
		return nil, fmt.Errorf("SYNC_LEAGUES must name at least one league")
	}

	cfg := &Config{
		DatabaseURL:          dbURL,
		ServerPort:           port,
		JWTSecretKey:         jwtKey,
		AdminEmail:           os.Getenv("ADMIN_EMAIL"),
		AdminPasswordHash:    os.Getenv("ADMIN_PASSWORD_HASH"),
		EsportsAPIKey:        os.Getenv("ESPORTS_API_KEY"),
		EsportsRateLimit:     esportsRate,
		LeaguepediaRateLimit: leaguepediaRate,
		SyncLeagues:          leagues,
		SyncLimit:            syncLimit,
		SyncInterval:         syncInterval,
		EnrichBatchSize:      enrichBatch,
		EnrichInterval:       enrichInterval,
		EnrichMaxAttempts:    maxAttempts,
		SchedulerEnabled:     getEnvOrDefault("SCHEDULER_ENABLED", "true") != "false",
		R2AccountID:          os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:        os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:    os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:         os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:      os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

// SnapshotsEnabled сообщает, настроена ли загрузка снапшотов в R2.
func (c *Config) SnapshotsEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return value, nil
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %s", key, value)
	}
	return value, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
