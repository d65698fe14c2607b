package price

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Quote is a manually maintained market price for one stock code.
type Quote struct {
	Code      string          `json:"code"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// QuoteRepository stores quotes.
type QuoteRepository interface {
	SaveQuote(ctx context.Context, code string, price decimal.Decimal) error
	GetAllQuotes(ctx context.Context) ([]Quote, error)
}

// PgQuoteRepository implements QuoteRepository with PostgreSQL.
type PgQuoteRepository struct {
	pool *pgxpool.Pool
}

// NewPgQuoteRepository creates a new PostgreSQL quote repository.
func NewPgQuoteRepository(pool *pgxpool.Pool) *PgQuoteRepository {
	return &PgQuoteRepository{pool: pool}
}

func (r *PgQuoteRepository) SaveQuote(ctx context.Context, code string, price decimal.Decimal) error {
	code = NormalizeCode(code)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stock_quotes (code, price, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (code) DO UPDATE SET price = $2, updated_at = NOW()`,
		code, price)
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", code, err)
	}
	return nil
}

func (r *PgQuoteRepository) GetAllQuotes(ctx context.Context) ([]Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT code, price, updated_at FROM stock_quotes ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("getting all quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.Code, &q.Price, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// NormalizeCode is the key form used for quote lookups.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
