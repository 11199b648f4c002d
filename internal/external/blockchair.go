package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjannette/satsval-backend/internal/httputil"
	"github.com/kjannette/satsval-backend/internal/models"
	"github.com/rs/zerolog"
)

const (
	DefaultBlockchairURL = "https://api.blockchair.com"
	defaultTxLimit       = 20
)

// ErrNoData means the indexer answered but holds no record for the key.
var ErrNoData = errors.New("no data for this pubkey")

type BlockchairClient struct {
	baseURL    string
	apiKey     string
	limit      int
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        zerolog.Logger
}

type BlockchairOptions struct {
	BaseURL string
	APIKey  string
	Limit   int // transactions per dashboard
	Retry   *httputil.RetryConfig
}

func NewBlockchairClient(opts BlockchairOptions, log zerolog.Logger) *BlockchairClient {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBlockchairURL
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultTxLimit
	}
	retry := httputil.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    5 * time.Second,
	}
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	return &BlockchairClient{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		limit:      limit,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      retry,
		log:        log.With().Str("component", "blockchair").Logger(),
	}
}

type dashboardResponse struct {
	Data    json.RawMessage `json:"data"`
	Context struct {
		Code           int     `json:"code"`
		MarketPriceUSD float64 `json:"market_price_usd"`
	} `json:"context"`
}

type keyData struct {
	Transactions []models.Transaction `json:"transactions"`
}

// Dashboard fetches the xpub dashboard for key with transaction details.
// Non-2xx responses come back as *httputil.StatusError.
func (c *BlockchairClient) Dashboard(ctx context.Context, key string) (*models.Dashboard, error) {
	endpoint := c.dashboardURL(key)

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, c.log, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("blockchair fetch: %w", err)
	}
	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("blockchair fetch: %w", err)
	}
	defer resp.Body.Close()

	var body dashboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode dashboard: %w", err)
	}

	kd, err := lookupKey(body.Data, key)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Int("transactions", len(kd.Transactions)).
		Float64("market_price_usd", body.Context.MarketPriceUSD).
		Msg("dashboard fetched")

	return &models.Dashboard{
		Key:            key,
		Transactions:   kd.Transactions,
		MarketPriceUSD: body.Context.MarketPriceUSD,
	}, nil
}

func (c *BlockchairClient) dashboardURL(key string) string {
	q := url.Values{}
	q.Set("transaction_details", "true")
	q.Set("limit", strconv.Itoa(c.limit))
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	return fmt.Sprintf("%s/bitcoin/dashboards/xpub/%s?%s", c.baseURL, url.PathEscape(key), q.Encode())
}

// lookupKey pulls key's entry out of the "data" object. Blockchair sends an
// empty array instead of an object when it knows nothing about the key.
func lookupKey(raw json.RawMessage, key string) (*keyData, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNoData
	}

	var byKey map[string]*keyData
	if err := json.Unmarshal(trimmed, &byKey); err != nil {
		return nil, fmt.Errorf("decode dashboard data: %w", err)
	}
	kd, ok := byKey[key]
	if !ok || kd == nil {
		return nil, ErrNoData
	}
	return kd, nil
}
