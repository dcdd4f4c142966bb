package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BaseURL       string
	Locale        string
	MaxPages      int
	MaxItems      int
	PageTimeout   time.Duration
	SearchTimeout time.Duration
	MinDelay      time.Duration
	MaxDelay      time.Duration
	Headless      bool
	Proxies       []string

	TelegramToken string
	OwnerID       int64

	OutputDir string
	LogLevel  string
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://www.ricardo.ch",
		Locale:        "de",
		MaxPages:      5,
		MaxItems:      30,
		PageTimeout:   45 * time.Second,
		SearchTimeout: 5 * time.Minute,
		MinDelay:      1 * time.Second,
		MaxDelay:      3 * time.Second,
		Headless:      true,
		OutputDir:     "results",
		LogLevel:      "info",
	}
}

// Load reads configuration from the environment on top of the defaults.
// A missing .env file is not an error; the process environment wins.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg := DefaultConfig()
	cfg.BaseURL = getEnvAsString("RICARDO_BASE_URL", cfg.BaseURL)
	cfg.Locale = getEnvAsString("RICARDO_LOCALE", cfg.Locale)
	cfg.MaxPages = getEnvAsInt("MAX_PAGES", cfg.MaxPages)
	cfg.MaxItems = getEnvAsInt("MAX_ITEMS", cfg.MaxItems)
	cfg.PageTimeout = getEnvAsDuration("PAGE_TIMEOUT", cfg.PageTimeout)
	cfg.SearchTimeout = getEnvAsDuration("SEARCH_TIMEOUT", cfg.SearchTimeout)
	cfg.MinDelay = getEnvAsDuration("MIN_DELAY", cfg.MinDelay)
	cfg.MaxDelay = getEnvAsDuration("MAX_DELAY", cfg.MaxDelay)
	cfg.Headless = getEnvAsBool("HEADLESS", cfg.Headless)
	cfg.OutputDir = getEnvAsString("OUTPUT_DIR", cfg.OutputDir)
	cfg.LogLevel = getEnvAsString("LOG_LEVEL", cfg.LogLevel)

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.OwnerID = getEnvAsInt64("OWNER_ID", 0)

	if raw := os.Getenv("PROXIES"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Proxies = append(cfg.Proxies, p)
			}
		}
	}

	return cfg
}

func getEnvAsString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("config: invalid int for %s: %q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		log.Printf("config: invalid int for %s: %q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("config: invalid bool for %s: %q, using default %v", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("config: invalid duration for %s: %q, using default %v", key, value, defaultValue)
	}
	return defaultValue
}
