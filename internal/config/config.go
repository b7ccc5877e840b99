// Пакет config — загрузка и валидация конфигурации Key Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Key Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Keycloak ---

	// URL Keycloak (например, https://keycloak.hostel.lan)
	KeycloakURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Client ID для доступа к Keycloak Admin API
	KeycloakClientID string
	// Client Secret для доступа к Keycloak Admin API
	KeycloakClientSecret string

	// --- JWT ---

	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Допустимое расхождение часов при валидации токена
	JWTLeeway time.Duration

	// --- Учётные записи ---

	// Домен email студентов (логин <id>@<домен>)
	StudentEmailDomain string
	// Домен email персонала (охрана, комендант)
	StaffEmailDomain string

	// --- Журнал и кеш ---

	// Максимум записей в ответе журнала передач ключей
	TransactionLogLimit int
	// Размер LRU-кеша карточек студентов
	StudentCacheSize int
	// TTL записей кеша карточек студентов
	StudentCacheTTL time.Duration

	// --- Мониторинг ---

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// KM_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("KM_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("KM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("KM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// KM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("KM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("KM_LOG_LEVEL: %w", err)
	}

	// KM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("KM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("KM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// KM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("KM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// KM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("KM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("KM_DB_PORT: %w", err)
	}

	// KM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("KM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// KM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("KM_DB_USER")
	if err != nil {
		return nil, err
	}

	// KM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("KM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// KM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("KM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("KM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Keycloak ---

	// KM_KEYCLOAK_URL — обязательный
	cfg.KeycloakURL, err = getEnvRequired("KM_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")

	// KM_KEYCLOAK_REALM — realm (по умолчанию hostel)
	cfg.KeycloakRealm = getEnvDefault("KM_KEYCLOAK_REALM", "hostel")

	// KM_KEYCLOAK_CLIENT_ID — обязательный
	cfg.KeycloakClientID, err = getEnvRequired("KM_KEYCLOAK_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	// KM_KEYCLOAK_CLIENT_SECRET — обязательный
	cfg.KeycloakClientSecret, err = getEnvRequired("KM_KEYCLOAK_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	// --- JWT ---

	// KM_JWT_ISSUER — авто-вычисляется из KeycloakURL, если не задан
	cfg.JWTIssuer = getEnvDefault("KM_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))

	// KM_JWT_JWKS_URL — авто-вычисляется из KeycloakURL, если не задан
	cfg.JWTJWKSURL = getEnvDefault("KM_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	// KM_JWT_LEEWAY — расхождение часов (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("KM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("KM_JWT_LEEWAY: %w", err)
	}

	// --- Учётные записи ---

	// KM_STUDENT_EMAIL_DOMAIN — домен студентов (по умолчанию hostel.local)
	cfg.StudentEmailDomain = getEnvDefault("KM_STUDENT_EMAIL_DOMAIN", "hostel.local")

	// KM_STAFF_EMAIL_DOMAIN — домен персонала (по умолчанию hostel.admin)
	cfg.StaffEmailDomain = getEnvDefault("KM_STAFF_EMAIL_DOMAIN", "hostel.admin")

	// --- Журнал и кеш ---

	// KM_TRANSACTION_LOG_LIMIT — максимум записей журнала (по умолчанию 50)
	cfg.TransactionLogLimit, err = getEnvInt("KM_TRANSACTION_LOG_LIMIT", 50)
	if err != nil {
		return nil, fmt.Errorf("KM_TRANSACTION_LOG_LIMIT: %w", err)
	}
	if cfg.TransactionLogLimit < 1 || cfg.TransactionLogLimit > 500 {
		return nil, fmt.Errorf("KM_TRANSACTION_LOG_LIMIT: значение %d вне допустимого диапазона 1-500", cfg.TransactionLogLimit)
	}

	// KM_STUDENT_CACHE_SIZE — размер LRU-кеша (по умолчанию 256)
	cfg.StudentCacheSize, err = getEnvInt("KM_STUDENT_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("KM_STUDENT_CACHE_SIZE: %w", err)
	}
	if cfg.StudentCacheSize < 1 {
		return nil, fmt.Errorf("KM_STUDENT_CACHE_SIZE: значение %d должно быть положительным", cfg.StudentCacheSize)
	}

	// KM_STUDENT_CACHE_TTL — TTL кеша (по умолчанию 5m)
	cfg.StudentCacheTTL, err = getEnvDuration("KM_STUDENT_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("KM_STUDENT_CACHE_TTL: %w", err)
	}

	// --- Мониторинг ---

	// KM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("KM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("KM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// KM_DEPHEALTH_GROUP — имя группы в метриках topologymetrics (по умолчанию hostel)
	cfg.DephealthGroup = getEnvDefault("KM_DEPHEALTH_GROUP", "hostel")

	// --- Graceful shutdown ---

	// KM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("KM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("KM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (для topologymetrics: хост и порт зависимости извлекаются из URL).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
