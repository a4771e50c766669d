// Package domain holds the core records and error taxonomy of the rate service.
package domain

import "errors"

// DomesticCurrency is the currency the upstream feed quotes every rate
// against. It is fixed by the feed, not configurable.
const DomesticCurrency = "RUB"

var (
	// ErrCurrencyNotFound indicates the requested currency is absent
	// from the upstream listing.
	ErrCurrencyNotFound = errors.New("currency not found")

	// ErrBaseCurrencyNotFound indicates the requested base currency is
	// absent from the upstream listing, so no cross-rates can be derived.
	ErrBaseCurrencyNotFound = errors.New("base currency not found")

	// ErrFeedUnavailable indicates the upstream feed answered with a
	// non-2xx status or could not be reached.
	ErrFeedUnavailable = errors.New("exchange rate feed unavailable")

	// ErrInsufficientData signals that the store holds fewer rows than
	// the requested trailing window, so the caller should backfill.
	ErrInsufficientData = errors.New("insufficient historical data")
)

// ExchangeRates is a base-relative rate table built for a single request.
// Rates always contains Base itself at exactly 1.0.
type ExchangeRates struct {
	Base        string             `json:"base"`
	Rates       map[string]float64 `json:"rates"`
	LastUpdated string             `json:"last_updated"`
}

// HistoricalRate is the rate of one currency pair on one calendar day.
// Date uses the ISO 8601 form "2006-01-02".
type HistoricalRate struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"`
}
