package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DBconfig хранит конфигурацию для БД
type DBconfig struct {
	URL string
}

// TelegramConfig хранит токен бота и чаты назначения.
// Продажные объявления идут в отдельный чат.
type TelegramConfig struct {
	BotToken   string
	ChatID     string
	SaleChatID string
}

// SheetsConfig хранит настройки зеркалирования в Google Sheets.
type SheetsConfig struct {
	Enabled         bool
	CredentialsPath string
	SpreadsheetID   string
}

// ScraperConfig - общие параметры всех воркеров.
type ScraperConfig struct {
	WaitTime   int    // секунды между циклами
	MaxPages   int    // страниц выдачи за цикл
	JournalDir string // каталог журналов обработанных ссылок
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	Database     DBconfig
	Telegram     TelegramConfig
	Sheets       SheetsConfig
	Scraper      ScraperConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Отсутствие .env файла не фатально - переменные могут прийти из окружения.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: Could not load .env file (path: %v): %v\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "nekretnine-watcher")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is required")
	}
	cfg.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")
	if cfg.Telegram.ChatID == "" {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID environment variable is required")
	}
	cfg.Telegram.SaleChatID = getEnvAsString("TELEGRAM_SALE_CHAT_ID", cfg.Telegram.ChatID)

	cfg.Sheets.SpreadsheetID = os.Getenv("GOOGLE_SHEETS_ID")
	cfg.Sheets.CredentialsPath = getEnvAsString("GOOGLE_SHEETS_CREDS", "/app/credentials/google-credentials.json")
	cfg.Sheets.Enabled = cfg.Sheets.SpreadsheetID != ""
	if !cfg.Sheets.Enabled {
		log.Println("WARNING: GOOGLE_SHEETS_ID is not set. Sheet mirroring disabled.")
	}

	cfg.Scraper.WaitTime = getEnvAsInt("WAIT_TIME", 300)
	cfg.Scraper.MaxPages = getEnvAsInt("MAX_PAGES", 2)
	cfg.Scraper.JournalDir = getEnvAsString("JOURNAL_DIR", "data/processed_links")

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

	return cfg, nil
}

// getEnvAsString читает переменную окружения как строку или возвращает значение по умолчанию
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию
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
