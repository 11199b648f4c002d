package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjannette/satsval-backend/internal/httputil"
	"github.com/rs/zerolog"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// ErrNoQuote means CoinGecko answered but had no USD price for the date.
var ErrNoQuote = errors.New("no quote for date")

type CoinGeckoClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        zerolog.Logger
}

type CoinGeckoOptions struct {
	BaseURL string
	APIKey  string // demo key, sent as x-cg-demo-api-key
	Retry   *httputil.RetryConfig
}

func NewCoinGeckoClient(opts CoinGeckoOptions, log zerolog.Logger) *CoinGeckoClient {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	retry := httputil.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
	}
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	return &CoinGeckoClient{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      retry,
		log:        log.With().Str("component", "coingecko").Logger(),
	}
}

// HistoricalPrice returns the BTC/USD price CoinGecko reports for date,
// formatted DD-MM-YYYY.
func (c *CoinGeckoClient) HistoricalPrice(ctx context.Context, date string) (float64, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("localization", "false")
	endpoint := c.baseURL + "/coins/bitcoin/history?" + q.Encode()

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, c.log, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-cg-demo-api-key", c.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return 0, fmt.Errorf("coingecko fetch %s: %w", date, err)
	}
	if err := httputil.CheckStatus(resp); err != nil {
		return 0, fmt.Errorf("coingecko fetch %s: %w", date, err)
	}
	defer resp.Body.Close()

	var data struct {
		MarketData *struct {
			CurrentPrice struct {
				USD float64 `json:"usd"`
			} `json:"current_price"`
		} `json:"market_data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	if data.MarketData == nil || data.MarketData.CurrentPrice.USD <= 0 {
		return 0, fmt.Errorf("%w %s", ErrNoQuote, date)
	}

	return data.MarketData.CurrentPrice.USD, nil
}
