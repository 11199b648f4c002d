// Package valuation prices an extended public key's transactions at their
// historical date and at the current market price.
package valuation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kjannette/satsval-backend/internal/external"
	"github.com/kjannette/satsval-backend/internal/httputil"
	"github.com/kjannette/satsval-backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// satsExp scales satoshis to BTC.
const satsExp = -8

type TransactionIndex interface {
	Dashboard(ctx context.Context, key string) (*models.Dashboard, error)
}

type PriceHistory interface {
	HistoricalPrice(ctx context.Context, date string) (float64, error)
}

type Pipeline struct {
	index  TransactionIndex
	prices PriceHistory
	log    zerolog.Logger

	// maxLookups caps concurrent price lookups; 0 issues them all at once.
	maxLookups int
}

type Option func(*Pipeline)

func WithMaxConcurrentLookups(n int) Option {
	return func(p *Pipeline) { p.maxLookups = n }
}

func NewPipeline(index TransactionIndex, prices PriceHistory, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		index:  index,
		prices: prices,
		log:    log.With().Str("component", "valuation").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run values every transaction of key. key should already be normalized to
// the form the indexer accepts. Failures are returned as *Error.
func (p *Pipeline) Run(ctx context.Context, key string) ([]models.Valuation, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, &Error{Kind: KindMissingInput, Msg: "missing pubkey parameter"}
	}

	log := p.log.With().Str("key", keyPrefix(key)).Logger()

	dash, err := p.index.Dashboard(ctx, key)
	if err != nil {
		return nil, classifyIndexError(err, log)
	}

	txTimes := make([]time.Time, len(dash.Transactions))
	hasTime := make([]bool, len(dash.Transactions))
	var dates []string
	seen := make(map[string]struct{})
	for i, tx := range dash.Transactions {
		t, ok := parseTxTime(tx.Time)
		if !ok {
			if tx.Time != "" {
				log.Warn().Str("tx", tx.Hash).Str("time", tx.Time).Msg("unparseable transaction time")
			}
			continue
		}
		txTimes[i], hasTime[i] = t, true

		d := historyDate(t)
		if _, dup := seen[d]; !dup {
			seen[d] = struct{}{}
			dates = append(dates, d)
		}
	}

	quotes := p.fetchQuotes(ctx, dates, log)

	out := make([]models.Valuation, len(dash.Transactions))
	for i, tx := range dash.Transactions {
		var hist float64
		display := NoTime
		if hasTime[i] {
			hist = quotes[historyDate(txTimes[i])]
			display = displayTime(txTimes[i])
		}
		out[i] = value(tx, display, hist, dash.MarketPriceUSD)
	}

	log.Info().
		Int("transactions", len(out)).
		Int("dates", len(dates)).
		Float64("market_price_usd", dash.MarketPriceUSD).
		Msg("valuation complete")

	return out, nil
}

// fetchQuotes looks up every date concurrently and waits for all of them.
// A failed lookup leaves that date at zero.
func (p *Pipeline) fetchQuotes(ctx context.Context, dates []string, log zerolog.Logger) map[string]float64 {
	prices := make([]float64, len(dates))

	var g errgroup.Group
	if p.maxLookups > 0 {
		g.SetLimit(p.maxLookups)
	}
	for i, date := range dates {
		g.Go(func() error {
			price, err := p.prices.HistoricalPrice(ctx, date)
			if err != nil {
				log.Warn().Err(err).Str("date", date).Msg("historical price unavailable, using 0")
				return nil
			}
			prices[i] = price
			return nil
		})
	}
	_ = g.Wait()

	quotes := make(map[string]float64, len(dates))
	for i, date := range dates {
		quotes[date] = prices[i]
	}
	return quotes
}

func value(tx models.Transaction, display string, histPrice, currentPrice float64) models.Valuation {
	amount := decimal.New(tx.BalanceChange, satsExp).InexactFloat64()
	usd := amount * histPrice
	current := amount * currentPrice

	typ := models.TypeReceive
	if tx.BalanceChange < 0 {
		typ = models.TypeSend
	}

	return models.Valuation{
		TxID:       tx.Hash,
		Time:       display,
		Amount:     amount,
		USDAmount:  usd,
		CurrentUSD: current,
		DiffUSD:    current - usd,
		Type:       typ,
	}
}

func classifyIndexError(err error, log zerolog.Logger) *Error {
	var statusErr *httputil.StatusError
	switch {
	case errors.As(err, &statusErr):
		log.Error().Err(err).Int("status", statusErr.StatusCode).Msg("indexer request failed")
		return &Error{
			Kind:   KindRemoteFetch,
			Msg:    "error fetching data from blockchair",
			Status: statusErr.StatusCode,
			Detail: statusErr.Body,
			Err:    err,
		}
	case errors.Is(err, external.ErrNoData):
		log.Info().Msg("no indexed data for key")
		return &Error{Kind: KindNotFound, Msg: "no data for this pubkey", Err: err}
	default:
		log.Error().Err(err).Msg("indexer lookup failed")
		return &Error{Kind: KindInternal, Msg: "internal server error", Err: err}
	}
}

func keyPrefix(key string) string {
	if len(key) > 12 {
		return key[:12] + "..."
	}
	return key
}
