package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Blockchair caps xpub dashboards at 10000 transactions per call.
const maxTxLimit = 10000

type Config struct {
	// API
	APIPort         int
	APIKey          string
	CORSAllowOrigin string

	// Blockchair (transaction index)
	BlockchairBaseURL string
	BlockchairAPIKey  string
	BlockchairTxLimit int

	// CoinGecko (price history)
	CoinGeckoBaseURL       string
	CoinGeckoAPIKey        string
	MaxConcurrentPriceCall int

	// Logging
	LogLevel  string
	LogPretty bool

	// Quote cache (Postgres)
	QuoteCacheEnabled bool
	DBHost            string
	DBPort            int
	DBName            string
	DBUser            string
	DBPassword        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// API
		APIPort:         envInt("API_PORT", 3001),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		// Blockchair
		BlockchairBaseURL: envStr("BLOCKCHAIR_BASE_URL", "https://api.blockchair.com"),
		BlockchairAPIKey:  envStr("BLOCKCHAIR_API_KEY", ""),
		BlockchairTxLimit: envInt("BLOCKCHAIR_TX_LIMIT", 20),

		// CoinGecko
		CoinGeckoBaseURL:       envStr("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:        envStr("COINGECKO_API_KEY", ""),
		MaxConcurrentPriceCall: envInt("MAX_CONCURRENT_PRICE_CALLS", 0),

		// Logging
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogPretty: envBool("LOG_PRETTY", false),

		// Quote cache
		QuoteCacheEnabled: envBool("QUOTE_CACHE_ENABLED", false),
		DBHost:            envStr("DB_HOST", "localhost"),
		DBPort:            envInt("DB_PORT", 5432),
		DBName:            envStr("DB_NAME", "satsval"),
		DBUser:            envStr("DB_USER", ""),
		DBPassword:        envStr("DB_PASSWORD", ""),
	}

	return cfg, nil
}

func (c *Config) Validate(log zerolog.Logger) error {
	var errs []string

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Sprintf("API_PORT %d out of range", c.APIPort))
	}
	if c.BlockchairTxLimit <= 0 || c.BlockchairTxLimit > maxTxLimit {
		errs = append(errs, fmt.Sprintf("BLOCKCHAIR_TX_LIMIT must be between 1 and %d", maxTxLimit))
	}
	if !validURL(c.BlockchairBaseURL) {
		errs = append(errs, "BLOCKCHAIR_BASE_URL must be an absolute http(s) URL")
	}
	if !validURL(c.CoinGeckoBaseURL) {
		errs = append(errs, "COINGECKO_BASE_URL must be an absolute http(s) URL")
	}
	if c.MaxConcurrentPriceCall < 0 {
		errs = append(errs, "MAX_CONCURRENT_PRICE_CALLS must not be negative")
	}
	if c.QuoteCacheEnabled && c.DBUser == "" {
		errs = append(errs, "DB_USER is required when QUOTE_CACHE_ENABLED is set")
	}

	if c.APIKey == "" {
		log.Warn().Msg("API_KEY not set — REST API has no authentication")
	}
	if c.BlockchairAPIKey == "" {
		log.Warn().Msg("BLOCKCHAIR_API_KEY not set — using the free tier rate limits")
	}
	if c.CoinGeckoAPIKey == "" {
		log.Warn().Msg("COINGECKO_API_KEY not set — historical lookups may be rate limited")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print(log zerolog.Logger) {
	log.Info().
		Int("api_port", c.APIPort).
		Bool("auth", c.APIKey != "").
		Str("cors_origin", c.CORSAllowOrigin).
		Str("blockchair", c.BlockchairBaseURL).
		Int("tx_limit", c.BlockchairTxLimit).
		Str("coingecko", c.CoinGeckoBaseURL).
		Str("coingecko_key", boolLabel(c.CoinGeckoAPIKey != "", "configured", "not set")).
		Str("quote_cache", boolLabel(c.QuoteCacheEnabled, fmt.Sprintf("%s:%d/%s", c.DBHost, c.DBPort, c.DBName), "disabled")).
		Msg("configuration loaded")
}

func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
