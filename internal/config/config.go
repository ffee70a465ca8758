package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Price store backends
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
}

// PricesConfig holds price index configuration
type PricesConfig struct {
	SourceURL    string
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	Store        string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URL string
}

// DatabaseConfig holds the Postgres connection parts
type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// CurrencyConfig holds exchange rate and display currency configuration
type CurrencyConfig struct {
	ExchangeRateURL string
	Default         string
}

// SitesConfig holds the base URLs of the bundled site adapters.
// An empty URL leaves that site unregistered.
type SitesConfig struct {
	SkinBoxURL  string
	CaseDropURL string
}

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Prices      PricesConfig
	Redis       RedisConfig
	Database    DatabaseConfig
	Currency    CurrencyConfig
	Sites       SitesConfig
	RecordViews bool
}

// Load reads a .env file if there is one, then the environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or cannot be loaded")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables alone
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Prices: PricesConfig{
			SourceURL:    getEnv("PRICE_SOURCE_URL", "https://prices.csgotrader.app/latest/prices_v6.json"),
			CacheTTL:     getMillis("PRICE_CACHE_TTL_MS", 6*time.Hour),
			FetchTimeout: getMillis("FETCH_TIMEOUT_MS", 10*time.Second),
			Store:        strings.ToLower(getEnv("PRICE_STORE", StoreMemory)),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Database: DatabaseConfig{
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			Name:     os.Getenv("DB_NAME"),
		},
		Currency: CurrencyConfig{
			ExchangeRateURL: getEnv("EXCHANGE_RATE_URL", "https://open.er-api.com/v6/latest/USD"),
			Default:         strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		},
		Sites: SitesConfig{
			SkinBoxURL:  os.Getenv("SKINBOX_URL"),
			CaseDropURL: os.Getenv("CASEDROP_URL"),
		},
		RecordViews: getBool("RECORD_VIEWS", false),
	}
}

// NeedsRedis reports whether any component is backed by Redis
func (c *Config) NeedsRedis() bool {
	return c.Prices.Store == StoreRedis || os.Getenv("REDIS_URL") != ""
}

// NeedsDatabase reports whether any component is backed by Postgres
func (c *Config) NeedsDatabase() bool {
	return c.Prices.Store == StorePostgres || c.RecordViews
}

// DatabaseURL returns the Postgres connection string
func (c *Config) DatabaseURL() string {
	d := c.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getMillis(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms <= 0 {
		log.Printf("Warning: invalid %s %q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid %s %q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}
