// Package repository defines the durable rate store contract.
package repository

import (
	"context"
	"time"

	"github.com/ratelab/currex/pkg/domain"
)

// RateRepository persists (currency, base_currency, date, rate) rows with
// a uniqueness invariant on the triple; writes are insert-or-replace.
// Currency codes are uppercased before every read and write.
type RateRepository interface {
	// SaveRates upserts the given rows for the pair in one transaction.
	SaveRates(ctx context.Context, currency, base string, rows []domain.HistoricalRate) error

	// SaveSingleRate upserts one row for the pair.
	SaveSingleRate(ctx context.Context, currency, base string, row domain.HistoricalRate) error

	// GetRateByDate returns the row for an exact date, or (nil, nil)
	// when absent.
	GetRateByDate(ctx context.Context, currency, base string, date time.Time) (*domain.HistoricalRate, error)

	// GetRates returns the ascending rows of the trailing days-day
	// window ending today, but only when the stored count reaches days;
	// otherwise it reports domain.ErrInsufficientData so the caller
	// knows to backfill.
	GetRates(ctx context.Context, currency, base string, days int) ([]domain.HistoricalRate, error)

	// GetRatesInRange returns every stored row between from and to
	// inclusive, ascending by date. A partial window is not an error.
	GetRatesInRange(ctx context.Context, currency, base string, from, to time.Time) ([]domain.HistoricalRate, error)

	// GetLatestRate returns the most recent row for the pair, or
	// (nil, nil) when the pair has no rows.
	GetLatestRate(ctx context.Context, currency, base string) (*domain.HistoricalRate, error)

	// GetMissingDates returns the calendar days of the trailing
	// days-day window that have no stored row for the pair.
	GetMissingDates(ctx context.Context, currency, base string, days int) ([]time.Time, error)

	// GetMissingDatesForRange is GetMissingDates over an explicit
	// [from, to] range.
	GetMissingDatesForRange(ctx context.Context, currency, base string, from, to time.Time) ([]time.Time, error)
}
