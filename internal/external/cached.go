package external

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const historyDateLayout = "02-01-2006"

// PriceSource returns a BTC/USD quote for a DD-MM-YYYY date.
type PriceSource interface {
	HistoricalPrice(ctx context.Context, date string) (float64, error)
}

// QuoteStore persists daily quotes.
type QuoteStore interface {
	Get(ctx context.Context, day time.Time) (float64, bool, error)
	Save(ctx context.Context, day time.Time, price float64, source string) error
}

// CachedPriceHistory serves quotes for closed days from a QuoteStore and
// falls back to source for everything else. Store failures never fail a
// lookup.
type CachedPriceHistory struct {
	source     PriceSource
	store      QuoteStore
	sourceName string
	now        func() time.Time
	log        zerolog.Logger
}

func NewCachedPriceHistory(source PriceSource, store QuoteStore, sourceName string, log zerolog.Logger) *CachedPriceHistory {
	return &CachedPriceHistory{
		source:     source,
		store:      store,
		sourceName: sourceName,
		now:        time.Now,
		log:        log.With().Str("component", "quote-cache").Logger(),
	}
}

func (c *CachedPriceHistory) HistoricalPrice(ctx context.Context, date string) (float64, error) {
	day, err := time.ParseInLocation(historyDateLayout, date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", date, err)
	}

	// Today's quote can still change; only closed days are cached.
	today := c.now().UTC().Truncate(24 * time.Hour)
	cacheable := day.Before(today)

	if cacheable {
		price, ok, err := c.store.Get(ctx, day)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Str("date", date).Msg("quote cache read failed")
		case ok:
			return price, nil
		}
	}

	price, err := c.source.HistoricalPrice(ctx, date)
	if err != nil {
		return 0, err
	}

	if cacheable {
		if err := c.store.Save(ctx, day, price, c.sourceName); err != nil {
			c.log.Warn().Err(err).Str("date", date).Msg("quote cache write failed")
		}
	}
	return price, nil
}
