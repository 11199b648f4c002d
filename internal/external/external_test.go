package external_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/kjannette/satsval-backend/internal/external"
	"github.com/kjannette/satsval-backend/internal/httputil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env")
}

var fastRetry = &httputil.RetryConfig{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond, MaxDelay: 20 * time.Millisecond}

const testKey = "xpub6CatWdiZiodmUeTDp8LT5or8nmbKNcuyvz7WyksVFkKB4RHwCD3XyuvPEbvqAQY3rAPshWcMLoP2fMFMKHPJ4ZeZXYVUhLv1VMrjPC7PW6V"

func newBlockchair(t *testing.T, h http.HandlerFunc) *external.BlockchairClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return external.NewBlockchairClient(external.BlockchairOptions{
		BaseURL: srv.URL,
		APIKey:  "bc-key",
		Limit:   50,
		Retry:   fastRetry,
	}, zerolog.Nop())
}

func TestBlockchairDashboard(t *testing.T) {
	client := newBlockchair(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bitcoin/dashboards/xpub/"+testKey, r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("transaction_details"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "bc-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": {"` + testKey + `": {
				"xpub": {"transaction_count": 2},
				"transactions": [
					{"block_id": 870000, "hash": "aa", "time": "2024-12-01 13:55:41", "balance_change": 150000000, "address": "bc1qa"},
					{"block_id": 870001, "hash": "bb", "time": "2024-12-02 08:00:00", "balance_change": -2500, "address": "bc1qb"}
				]
			}},
			"context": {"code": 200, "market_price_usd": 60000.5}
		}`))
	})

	d, err := client.Dashboard(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, testKey, d.Key)
	assert.Equal(t, 60000.5, d.MarketPriceUSD)
	require.Len(t, d.Transactions, 2)
	assert.Equal(t, "aa", d.Transactions[0].Hash)
	assert.Equal(t, int64(150000000), d.Transactions[0].BalanceChange)
	assert.Equal(t, int64(-2500), d.Transactions[1].BalanceChange)
	assert.Equal(t, "2024-12-02 08:00:00", d.Transactions[1].Time)
}

func TestBlockchairDashboard_NoData(t *testing.T) {
	bodies := []string{
		`{"data": [], "context": {"code": 200}}`,
		`{"data": null, "context": {"code": 200}}`,
		`{"context": {"code": 200}}`,
		`{"data": {"xpubSomethingElse": {"transactions": []}}, "context": {"code": 200}}`,
		`{"data": {"` + testKey + `": null}, "context": {"code": 200}}`,
	}
	for _, body := range bodies {
		client := newBlockchair(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		_, err := client.Dashboard(context.Background(), testKey)
		assert.ErrorIs(t, err, external.ErrNoData, "body %s", body)
	}
}

func TestBlockchairDashboard_UpstreamError(t *testing.T) {
	client := newBlockchair(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"context":{"error":"Invalid xpub"}}`))
	})

	_, err := client.Dashboard(context.Background(), testKey)
	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "Invalid xpub")
}

func TestBlockchairDashboard_ServerErrorAfterRetries(t *testing.T) {
	var calls atomic.Int32
	client := newBlockchair(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	})

	_, err := client.Dashboard(context.Background(), testKey)
	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBlockchairDashboard_MalformedBody(t *testing.T) {
	client := newBlockchair(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"` + testKey + `": {"transactions": "oops"}}}`))
	})

	_, err := client.Dashboard(context.Background(), testKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, external.ErrNoData)
}

func newCoinGecko(t *testing.T, h http.HandlerFunc) *external.CoinGeckoClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return external.NewCoinGeckoClient(external.CoinGeckoOptions{
		BaseURL: srv.URL,
		APIKey:  "cg-key",
		Retry:   fastRetry,
	}, zerolog.Nop())
}

func TestCoinGeckoHistoricalPrice(t *testing.T) {
	client := newCoinGecko(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/history", r.URL.Path)
		assert.Equal(t, "01-12-2024", r.URL.Query().Get("date"))
		assert.Equal(t, "cg-key", r.Header.Get("x-cg-demo-api-key"))
		w.Write([]byte(`{"id":"bitcoin","market_data":{"current_price":{"eur":38000,"usd":40000}}}`))
	})

	price, err := client.HistoricalPrice(context.Background(), "01-12-2024")
	require.NoError(t, err)
	assert.Equal(t, 40000.0, price)
}

func TestCoinGeckoHistoricalPrice_NoMarketData(t *testing.T) {
	client := newCoinGecko(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"bitcoin","name":"Bitcoin"}`))
	})

	_, err := client.HistoricalPrice(context.Background(), "03-01-2009")
	assert.ErrorIs(t, err, external.ErrNoQuote)
}

func TestCoinGeckoHistoricalPrice_RateLimited(t *testing.T) {
	client := newCoinGecko(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.HistoricalPrice(context.Background(), "01-12-2024")
	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestCoinGeckoHistoricalPrice_Live(t *testing.T) {
	if os.Getenv("LIVE_API_TESTS") == "" {
		t.Skip("LIVE_API_TESTS not set, skipping")
	}

	client := external.NewCoinGeckoClient(external.CoinGeckoOptions{
		APIKey: os.Getenv("COINGECKO_API_KEY"),
	}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	price, err := client.HistoricalPrice(ctx, "01-12-2024")
	if err != nil {
		t.Fatalf("HistoricalPrice: %v", err)
	}
	if price <= 0 {
		t.Fatalf("expected positive price, got %f", price)
	}
	t.Logf("BTC price on 01-12-2024: $%.2f", price)
}

type memStore struct {
	quotes  map[string]float64
	getErr  error
	saveErr error
	saves   int
	lastSrc string
}

func (m *memStore) Get(_ context.Context, day time.Time) (float64, bool, error) {
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	p, ok := m.quotes[day.Format("2006-01-02")]
	return p, ok, nil
}

func (m *memStore) Save(_ context.Context, day time.Time, price float64, source string) error {
	m.saves++
	m.lastSrc = source
	if m.saveErr != nil {
		return m.saveErr
	}
	m.quotes[day.Format("2006-01-02")] = price
	return nil
}

type countingSource struct {
	calls atomic.Int32
	price float64
	err   error
}

func (s *countingSource) HistoricalPrice(context.Context, string) (float64, error) {
	s.calls.Add(1)
	return s.price, s.err
}

func TestCachedPriceHistory_ReadThrough(t *testing.T) {
	src := &countingSource{price: 40000}
	store := &memStore{quotes: map[string]float64{}}
	cache := external.NewCachedPriceHistory(src, store, "coingecko", zerolog.Nop())

	price, err := cache.HistoricalPrice(context.Background(), "01-12-2024")
	require.NoError(t, err)
	assert.Equal(t, 40000.0, price)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "coingecko", store.lastSrc)

	price, err = cache.HistoricalPrice(context.Background(), "01-12-2024")
	require.NoError(t, err)
	assert.Equal(t, 40000.0, price)
	assert.Equal(t, int32(1), src.calls.Load(), "second lookup should hit the store")
}

func TestCachedPriceHistory_TodayNotCached(t *testing.T) {
	src := &countingSource{price: 61000}
	store := &memStore{quotes: map[string]float64{}}
	cache := external.NewCachedPriceHistory(src, store, "coingecko", zerolog.Nop())

	today := time.Now().UTC().Format("02-01-2006")
	_, err := cache.HistoricalPrice(context.Background(), today)
	require.NoError(t, err)
	_, err = cache.HistoricalPrice(context.Background(), today)
	require.NoError(t, err)

	assert.Equal(t, 0, store.saves)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCachedPriceHistory_StoreFailuresFallThrough(t *testing.T) {
	src := &countingSource{price: 40000}
	store := &memStore{
		quotes:  map[string]float64{},
		getErr:  errors.New("db down"),
		saveErr: errors.New("db down"),
	}
	cache := external.NewCachedPriceHistory(src, store, "coingecko", zerolog.Nop())

	price, err := cache.HistoricalPrice(context.Background(), "01-12-2024")
	require.NoError(t, err)
	assert.Equal(t, 40000.0, price)
}

func TestCachedPriceHistory_SourceErrorNotCached(t *testing.T) {
	src := &countingSource{err: external.ErrNoQuote}
	store := &memStore{quotes: map[string]float64{}}
	cache := external.NewCachedPriceHistory(src, store, "coingecko", zerolog.Nop())

	_, err := cache.HistoricalPrice(context.Background(), "01-12-2024")
	assert.ErrorIs(t, err, external.ErrNoQuote)
	assert.Equal(t, 0, store.saves)
}

func TestCachedPriceHistory_BadDate(t *testing.T) {
	cache := external.NewCachedPriceHistory(&countingSource{}, &memStore{}, "coingecko", zerolog.Nop())
	_, err := cache.HistoricalPrice(context.Background(), "2024-12-01")
	assert.Error(t, err)
}
