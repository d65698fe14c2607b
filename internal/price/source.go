// Package price supplies market prices for valuing holdings. There is no live
// feed: prices come from a static table or from quotes entered by hand.
package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Table maps normalized stock codes to prices.
type Table map[string]decimal.Decimal

// Price looks up a code case-insensitively.
func (t Table) Price(code string) (decimal.Decimal, bool) {
	p, ok := t[NormalizeCode(code)]
	return p, ok
}

// Source loads the current price table.
type Source interface {
	Table(ctx context.Context) (Table, error)
}

// Static is a fixed price table. The zero value is empty, which values every holding at zero.
type Static Table

// NewStatic builds a static source, normalizing codes.
func NewStatic(prices map[string]decimal.Decimal) Static {
	s := make(Static, len(prices))
	for code, p := range prices {
		s[NormalizeCode(code)] = p
	}
	return s
}

func (s Static) Table(context.Context) (Table, error) {
	return Table(s), nil
}

// ErrInvalidQuote reports a quote rejected before it reached the repository.
var ErrInvalidQuote = errors.New("invalid quote")

// RepositorySource serves quotes from a repository, cached for a short TTL.
type RepositorySource struct {
	repo  QuoteRepository
	cache *tableCache
}

// NewRepositorySource creates a source backed by repo.
func NewRepositorySource(repo QuoteRepository) *RepositorySource {
	if repo == nil {
		panic("price.NewRepositorySource: repo must not be nil")
	}
	return &RepositorySource{repo: repo, cache: newTableCache(cacheTTL)}
}

func (s *RepositorySource) Table(ctx context.Context) (Table, error) {
	if t, ok := s.cache.get(); ok {
		return t, nil
	}

	quotes, err := s.repo.GetAllQuotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading quotes: %w", err)
	}
	t := Table(lo.SliceToMap(quotes, func(q Quote) (string, decimal.Decimal) {
		return NormalizeCode(q.Code), q.Price
	}))
	s.cache.set(t)
	slog.Debug("PriceSource: loaded quotes", "count", len(t))
	return t, nil
}

// SaveQuote stores a quote and drops the cached table.
func (s *RepositorySource) SaveQuote(ctx context.Context, code string, p decimal.Decimal) error {
	if NormalizeCode(code) == "" {
		return fmt.Errorf("stock code is required: %w", ErrInvalidQuote)
	}
	if p.IsNegative() {
		return fmt.Errorf("price %s for %s is negative: %w", p, code, ErrInvalidQuote)
	}
	if err := s.repo.SaveQuote(ctx, code, p); err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}
