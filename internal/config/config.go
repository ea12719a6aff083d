package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/newscurator/internal/filter"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Empty body policies
const (
	EmptyBodyDrop = "drop"
	EmptyBodyKeep = "keep"
)

// Feed is one RSS/Atom source. Resolve enables redirect resolution for
// aggregator feeds whose links wrap the publisher URL.
type Feed struct {
	URL     string `yaml:"url" json:"url" validate:"required,url"`
	Resolve bool   `yaml:"resolve" json:"resolve"`
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`
	ScheduleCron    string        `json:"schedule_cron"`

	// Store configuration
	StoreBackend    string `json:"store_backend" validate:"oneof=sheets sqlite memory"`
	SpreadsheetID   string `json:"spreadsheet_id" validate:"required_if=StoreBackend sheets"`
	GoogleCreds     string `json:"-" validate:"required_if=StoreBackend sheets"`
	CandidatesSheet string `json:"candidates_sheet" validate:"required"`
	ApprovedSheet   string `json:"approved_sheet" validate:"required"`
	SQLitePath      string `json:"sqlite_path" validate:"required_if=StoreBackend sqlite"`

	// Redis configuration, empty keeps the move-log in memory
	RedisURL    string `json:"redis_url"`
	RedisPrefix string `json:"redis_prefix"`

	// Pipeline
	FeedLimit           int           `json:"feed_limit" validate:"gt=0"`
	FetchTimeout        time.Duration `json:"fetch_timeout" validate:"gt=0"`
	UserAgent           string        `json:"user_agent"`
	EmptyBodyPolicy     string        `json:"empty_body_policy" validate:"oneof=drop keep"`
	ReadabilityFallback bool          `json:"readability_fallback"`
	IndirectionHosts    []string      `json:"indirection_hosts"`
	LockFile            string        `json:"lock_file"`

	// Sources, from CURATOR_CONFIG when set
	Feeds    []Feed          `json:"feeds" validate:"required,min=1,dive"`
	Keywords filter.Keywords `json:"keywords"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogFile   string `json:"log_file"`
	LogPretty bool   `json:"log_pretty"`

	// Security
	AdminAPIKey string `json:"-"`
}

// fileConfig is the layout of the optional YAML file
type fileConfig struct {
	Feeds    []Feed           `yaml:"feeds"`
	Keywords *filter.Keywords `yaml:"keywords"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		ScheduleCron:    getEnv("SCHEDULE_CRON", ""),

		// Store configuration
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", BackendSheets)),
		SpreadsheetID:   getEnv("SPREADSHEET_ID", ""),
		GoogleCreds:     getEnv("GOOGLE_CREDS", ""),
		CandidatesSheet: getEnv("CANDIDATES_SHEET", "news"),
		ApprovedSheet:   getEnv("APPROVED_SHEET", "posts"),
		SQLitePath:      getEnv("SQLITE_PATH", "./data/curator.db"),

		// Redis configuration
		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "curator:"),

		// Pipeline
		FeedLimit:           getEnvAsInt("FEED_LIMIT", 20),
		FetchTimeout:        getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
		UserAgent:           getEnv("USER_AGENT", ""),
		EmptyBodyPolicy:     strings.ToLower(getEnv("EMPTY_BODY_POLICY", EmptyBodyDrop)),
		ReadabilityFallback: getEnvAsBool("READABILITY_FALLBACK", false),
		IndirectionHosts:    getEnvAsList("INDIRECTION_HOSTS", []string{"news.google.com"}),
		LockFile:            getEnv("LOCK_FILE", ""),

		Feeds:    DefaultFeeds(),
		Keywords: DefaultKeywords(),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),

		// Security
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if path := getEnv("CURATOR_CONFIG", ""); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile merges feeds and keywords from a YAML file over the defaults.
// Sections missing from the file keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if len(fc.Feeds) > 0 {
		c.Feeds = fc.Feeds
	}
	if fc.Keywords != nil {
		c.Keywords = *fc.Keywords
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// DefaultFeeds are the built-in health and science sources
func DefaultFeeds() []Feed {
	urls := []string{
		"https://medvestnik.ru/rss",
		"https://nv.ua/rss/health.xml",
		"https://naked-science.ru/rss",
		"https://nauka.tass.ru/rss",
		"https://indicator.ru/rss",
		"https://pcr.news/rss/",
		"https://naukatv.ru/rss",
		"https://sciencenews.ru/rss",
	}
	feeds := make([]Feed, len(urls))
	for i, u := range urls {
		feeds[i] = Feed{URL: u}
	}
	return feeds
}

// DefaultKeywords are stems, so "диет" matches "диета" and "диетология"
func DefaultKeywords() filter.Keywords {
	return filter.Keywords{
		Allow: []string{
			"пребиот", "жкт", "интермитент", "интервальн", "клиническ",
			"кортизол", "кетоз", "голодан", "аутофаг", "микробиом",
			"метабол", "долголет", "диет", "инсулин", "fasting", "autophagy",
			"питани", "пищевар", "кишечник", "ожирен", "похуден",
			"витамин", "биохим", "гормон", "воспален", "антиоксид",
		},
		Block: []string{
			"ремонт", "увол", "назнач", "закуп", "финанс", "администрац",
			"главврач", "совещан", "заседан", "актрис", "роман", "скандал",
			"звезд", "знаменит", "светск", "полиц", "крим", "арест",
			"выбор", "депутат", "партия", "митинг",
		},
	}
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

// getEnvAsList splits a comma separated value; an explicitly empty variable
// yields an empty list
func getEnvAsList(name string, defaultVal []string) []string {
	valueStr, exists := os.LookupEnv(name)
	if !exists {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
