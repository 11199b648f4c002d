package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/satsval-backend/internal/models"
)

const dayLayout = "2006-01-02"

// QuoteRepo stores one BTC/USD quote per UTC calendar day.
type QuoteRepo struct {
	pool *pgxpool.Pool
}

func NewQuoteRepo(pool *pgxpool.Pool) *QuoteRepo {
	return &QuoteRepo{pool: pool}
}

func (r *QuoteRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Get returns the cached quote for day; ok is false when none is stored.
func (r *QuoteRepo) Get(ctx context.Context, day time.Time) (float64, bool, error) {
	var price float64
	err := r.pool.QueryRow(ctx,
		`SELECT price FROM historical_quotes WHERE day = $1`,
		utcDay(day),
	).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

func (r *QuoteRepo) Save(ctx context.Context, day time.Time, price float64, source string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO historical_quotes (day, price, source)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (day) DO UPDATE SET price = EXCLUDED.price, source = EXCLUDED.source`,
		utcDay(day), price, source,
	)
	return err
}

// Recent returns the most recently cached days, newest first.
func (r *QuoteRepo) Recent(ctx context.Context, limit int) ([]models.Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, day, price, source, created_at FROM historical_quotes ORDER BY day DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuotes(rows)
}

// Count returns how many days are cached.
func (r *QuoteRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM historical_quotes`).Scan(&n)
	return n, err
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// --- scan helpers ---

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectQuotes(rows rowsIter) ([]models.Quote, error) {
	var out []models.Quote
	for rows.Next() {
		var q models.Quote
		var day time.Time
		if err := rows.Scan(&q.ID, &day, &q.Price, &q.Source, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.Day = day.Format(dayLayout)
		out = append(out, q)
	}
	return out, rows.Err()
}
