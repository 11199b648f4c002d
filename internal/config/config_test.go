package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"API_PORT", "BLOCKCHAIR_TX_LIMIT", "BLOCKCHAIR_BASE_URL", "COINGECKO_BASE_URL", "QUOTE_CACHE_ENABLED", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.APIPort)
	assert.Equal(t, 20, cfg.BlockchairTxLimit)
	assert.Equal(t, "https://api.blockchair.com", cfg.BlockchairBaseURL)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.CoinGeckoBaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.QuoteCacheEnabled)
	assert.NoError(t, cfg.Validate(zerolog.Nop()))
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("API_PORT", "8080")
	t.Setenv("BLOCKCHAIR_TX_LIMIT", "100")
	t.Setenv("QUOTE_CACHE_ENABLED", "yes")
	t.Setenv("DB_USER", "satsval")
	t.Setenv("MAX_CONCURRENT_PRICE_CALLS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, 100, cfg.BlockchairTxLimit)
	assert.True(t, cfg.QuoteCacheEnabled)
	assert.Equal(t, 0, cfg.MaxConcurrentPriceCall)
	assert.NoError(t, cfg.Validate(zerolog.Nop()))
}

func TestValidate_Errors(t *testing.T) {
	cfg := &Config{
		APIPort:                70000,
		BlockchairTxLimit:      20000,
		BlockchairBaseURL:      "api.blockchair.com",
		CoinGeckoBaseURL:       "ftp://coingecko",
		MaxConcurrentPriceCall: -1,
		QuoteCacheEnabled:      true,
	}

	err := cfg.Validate(zerolog.Nop())
	require.Error(t, err)
	for _, want := range []string{"API_PORT", "BLOCKCHAIR_TX_LIMIT", "BLOCKCHAIR_BASE_URL", "COINGECKO_BASE_URL", "MAX_CONCURRENT_PRICE_CALLS", "DB_USER"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "app", DBPassword: "p@ss", DBHost: "db", DBPort: 5433, DBName: "satsval"}
	assert.Equal(t, "postgres://app:p%40ss@db:5433/satsval?sslmode=disable", cfg.DSN())
}
