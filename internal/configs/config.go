package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/constants"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// HTTPConfig хранит конфигурацию REST-сервера
type HTTPConfig struct {
	Port      string `validate:"required,numeric"`
	PublicURL string `validate:"required,url"` // адрес веб-интерфейса фильтров для кнопки в чате
	// Источники, которым разрешены CORS-запросы
	AllowedOrigins []string
}

// StorageConfig выбирает реализацию хранилища
type StorageConfig struct {
	Driver string `validate:"oneof=postgres badger"`
}

// DBconfig хранит конфигурацию для БД
type DBconfig struct {
	URL         string
	AutoMigrate bool
}

type BadgerConfig struct {
	Path     string
	InMemory bool
}

// AvitoConfig хранит адреса индексных страниц
type AvitoConfig struct {
	Origin    string `validate:"required,url"`
	RentalURL string `validate:"required,url"`
	SaleURL   string `validate:"required,url"`
}

// FetcherConfig хранит настройки загрузчика страниц
type FetcherConfig struct {
	Mode         string `validate:"oneof=browser http"`
	Headless     bool
	UserAgent    string `validate:"required"`
	Lang         string
	WindowWidth  int `validate:"gt=0"`
	WindowHeight int `validate:"gt=0"`
	// только для режима http
	RequestTimeout time.Duration
	RandomDelay    time.Duration
}

// IngestConfig хранит настройки прохода загрузки
type IngestConfig struct {
	MaxPages             int `validate:"gte=1"`
	MaxFragments         int `validate:"gte=1"`
	RunTimeout           time.Duration
	PageInterval         time.Duration
	ConcurrentCategories bool
	Schedule             string // cron-выражение; пустое значение отключает расписание
	OnStart              bool
}

// ChallengeConfig хранит настройки ручного подтверждения капчи
type ChallengeConfig struct {
	Timeout        time.Duration // при 0 оператор ожидается без ограничения
	ConsoleEnabled bool
	SignalEnabled  bool
}

type TelegramConfig struct {
	Token       string `validate:"required_if=BotEnabled true"`
	APIURL      string `validate:"required,url"`
	BotEnabled  bool
	PollTimeout time.Duration
	// Ключ подписи ссылок на фильтры. Без ключа ссылки не подписываются
	LinkSigningKey string
	LinkTokenTTL   time.Duration
}

// RabbitMQConfig хранит конфигурацию для RabbitMQ
type RabbitMQConfig struct {
	Enabled bool
	URL     string `validate:"required_if=Enabled true"`
}

type StdoutLogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string `validate:"required"`
	HTTP         HTTPConfig
	Storage      StorageConfig
	Database     DBconfig
	Badger       BadgerConfig
	Avito        AvitoConfig
	Fetcher      FetcherConfig
	Ingest       IngestConfig
	Challenge    ChallengeConfig
	Telegram     TelegramConfig
	RabbitMQ     RabbitMQConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
}

// LoadConfig загружает конфигурацию из .env и переменных окружения.
// Отсутствие .env не считается ошибкой: значения могут прийти из окружения.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: Could not load .env file (path: %v): %v. Using process environment.\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "avito-parser-service")

	cfg.HTTP.Port = getEnvAsString("HTTP_PORT", "8000")
	cfg.HTTP.PublicURL = getEnvAsString("WEB_PUBLIC_URL", "http://127.0.0.1:8000")
	cfg.HTTP.AllowedOrigins = getEnvAsSlice("HTTP_ALLOWED_ORIGINS", []string{"*"})

	cfg.Storage.Driver = getEnvAsString("STORAGE_DRIVER", "postgres")
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	cfg.Database.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", true)
	cfg.Badger.Path = getEnvAsString("BADGER_PATH", "./data/badger")
	cfg.Badger.InMemory = getEnvAsBool("BADGER_IN_MEMORY", false)

	if cfg.Storage.Driver == "postgres" && cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required for postgres storage")
	}

	cfg.Avito.Origin = getEnvAsString("AVITO_ORIGIN", constants.AvitoOrigin)
	cfg.Avito.RentalURL = getEnvAsString("AVITO_RENTAL_URL", constants.AvitoRentalURL)
	cfg.Avito.SaleURL = getEnvAsString("AVITO_SALE_URL", constants.AvitoSaleURL)

	cfg.Fetcher.Mode = getEnvAsString("FETCHER_MODE", "browser")
	cfg.Fetcher.Headless = getEnvAsBool("BROWSER_HEADLESS", false)
	cfg.Fetcher.UserAgent = getEnvAsString("BROWSER_USER_AGENT", constants.DesktopUserAgent)
	cfg.Fetcher.Lang = getEnvAsString("BROWSER_LANG", "ru-RU")
	cfg.Fetcher.WindowWidth = getEnvAsInt("BROWSER_WINDOW_WIDTH", 1920)
	cfg.Fetcher.WindowHeight = getEnvAsInt("BROWSER_WINDOW_HEIGHT", 1080)
	cfg.Fetcher.RequestTimeout = getEnvAsDuration("HTTP_FETCH_TIMEOUT", 60*time.Second)
	cfg.Fetcher.RandomDelay = getEnvAsDuration("HTTP_FETCH_RANDOM_DELAY", 3*time.Second)

	cfg.Ingest.MaxPages = getEnvAsInt("INGEST_MAX_PAGES", 1)
	cfg.Ingest.MaxFragments = getEnvAsInt("INGEST_MAX_FRAGMENTS", constants.MaxFragmentsPerRun)
	cfg.Ingest.RunTimeout = getEnvAsDuration("INGEST_RUN_TIMEOUT", 30*time.Minute)
	cfg.Ingest.PageInterval = getEnvAsDuration("INGEST_PAGE_INTERVAL", 15*time.Second)
	cfg.Ingest.ConcurrentCategories = getEnvAsBool("INGEST_CONCURRENT_CATEGORIES", false)
	cfg.Ingest.Schedule = getEnvAsString("INGEST_SCHEDULE", "")
	cfg.Ingest.OnStart = getEnvAsBool("INGEST_ON_START", false)

	cfg.Challenge.Timeout = getEnvAsDuration("CHALLENGE_TIMEOUT", 0)
	cfg.Challenge.ConsoleEnabled = getEnvAsBool("CHALLENGE_CONSOLE_ENABLED", true)
	cfg.Challenge.SignalEnabled = getEnvAsBool("CHALLENGE_SIGNAL_ENABLED", true)

	cfg.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.APIURL = getEnvAsString("TELEGRAM_API_URL", "https://api.telegram.org")
	cfg.Telegram.BotEnabled = getEnvAsBool("TELEGRAM_BOT_ENABLED", false)
	cfg.Telegram.PollTimeout = getEnvAsDuration("TELEGRAM_POLL_TIMEOUT", 30*time.Second)
	cfg.Telegram.LinkSigningKey = os.Getenv("FILTERS_LINK_SIGNING_KEY")
	cfg.Telegram.LinkTokenTTL = getEnvAsDuration("FILTERS_LINK_TTL", 24*time.Hour)

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", false)
	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// getEnvAsSlice читает список значений, разделенных запятой
func getEnvAsSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAsString читает переменную окружения как строку или возвращает значение по умолчанию
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию
// Логирует ошибку, если переменная есть, но не может быть преобразована в int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

// getEnvAsBool читает переменную окружения как bool или возвращает значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

// getEnvAsDuration читает длительность в формате time.ParseDuration ("90s", "5m")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valDuration, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valDuration
}

// IngestURL возвращает адрес индексной страницы для категории
func (c *AppConfig) IngestURL(category domain.Category) (string, bool) {
	switch category {
	case domain.CategoryRental:
		return c.Avito.RentalURL, true
	case domain.CategorySale:
		return c.Avito.SaleURL, true
	}
	return "", false
}
