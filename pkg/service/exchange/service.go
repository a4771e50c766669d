// Package exchange orchestrates the feed client, the rate store and the
// cache: base-relative rate tables, single-pair lookups, historical
// backfill and the daily refresh.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ratelab/currex/infra/feed"
	"github.com/ratelab/currex/pkg/cache"
	"github.com/ratelab/currex/pkg/domain"
	"github.com/ratelab/currex/pkg/repository"
)

const dateLayout = "2006-01-02"

// fallback returned by GetAllAvailableCurrencies when the feed cannot be
// reached; that call never fails.
var fallbackCurrencies = []string{
	"CHF", "CNY", "EUR", "GBP", "JPY", "KZT", "RUB", "TRY", "USD",
}

// FeedClient fetches the daily listing, optionally for a specific date.
type FeedClient interface {
	Fetch(ctx context.Context, date *time.Time) (*feed.ValCurs, error)
}

// Service is the exchange rate service.
type Service struct {
	feed     FeedClient
	repo     repository.RateRepository
	cache    cache.RateCache
	logger   *slog.Logger
	cacheTTL time.Duration
	preload  []string
}

// New creates the exchange service. preloadCurrencies is the set of
// currencies PreloadHistoricalData warms against RUB.
func New(
	feedClient FeedClient,
	repo repository.RateRepository,
	rateCache cache.RateCache,
	logger *slog.Logger,
	cacheTTL time.Duration,
	preloadCurrencies []string,
) *Service {
	return &Service{
		feed:     feedClient,
		repo:     repo,
		cache:    rateCache,
		logger:   logger,
		cacheTTL: cacheTTL,
		preload:  preloadCurrencies,
	}
}

// GetAllCurrencyExchangeRates returns the full rate table relative to
// baseCurrency for the given date (nil means the latest listing). The
// result always contains baseCurrency at exactly 1.0.
func (s *Service) GetAllCurrencyExchangeRates(ctx context.Context, baseCurrency string, date *time.Time) (*domain.ExchangeRates, error) {
	base := strings.ToUpper(baseCurrency)
	key := fmt.Sprintf("rates:%s:%s", base, dateKey(date))

	if payload, err := s.cache.Get(ctx, key); err == nil && payload != nil {
		var cached domain.ExchangeRates
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
		s.logger.Warn("Discarding undecodable cached rate table", "key", key)
	}

	vc, err := s.feed.Fetch(ctx, date)
	if err != nil {
		return nil, err
	}

	rates, err := composeRates(vc.RatesToRUB(), base, s.logger)
	if err != nil {
		return nil, err
	}

	result := &domain.ExchangeRates{
		Base:        base,
		Rates:       rates,
		LastUpdated: vc.Date,
	}

	if payload, err := json.Marshal(result); err == nil {
		// Best effort: a failed cache write just means a miss on
		// the next request.
		_ = s.cache.Set(ctx, key, payload, s.cacheTTL)
	}
	return result, nil
}

// composeRates turns a RUB-quoted map into a base-relative table. A RUB
// base inverts every rate; any other base pivots through RUB. Zero rates
// cannot be divided by and are skipped.
func composeRates(ratesToRUB map[string]float64, base string, logger *slog.Logger) (map[string]float64, error) {
	rates := make(map[string]float64, len(ratesToRUB))

	if base == domain.DomesticCurrency {
		for code, rate := range ratesToRUB {
			if rate == 0 {
				logger.Warn("Skipping zero rate from feed", "currency", code)
				continue
			}
			rates[code] = 1 / rate
		}
		return rates, nil
	}

	baseRate, ok := ratesToRUB[base]
	if !ok || baseRate == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrBaseCurrencyNotFound, base)
	}
	for code, rate := range ratesToRUB {
		if rate == 0 {
			logger.Warn("Skipping zero rate from feed", "currency", code)
			continue
		}
		rates[code] = baseRate / rate
	}
	return rates, nil
}

// GetCurrencyExchangeRate returns the RUB rate of a single currency for
// the given date (nil means latest).
func (s *Service) GetCurrencyExchangeRate(ctx context.Context, code string, date *time.Time) (float64, error) {
	currency := strings.ToUpper(code)
	key := fmt.Sprintf("rate:%s:%s", currency, dateKey(date))

	if payload, err := s.cache.Get(ctx, key); err == nil && payload != nil {
		if rate, err := strconv.ParseFloat(string(payload), 64); err == nil {
			return rate, nil
		}
		s.logger.Warn("Discarding undecodable cached rate", "key", key)
	}

	vc, err := s.feed.Fetch(ctx, date)
	if err != nil {
		return 0, err
	}
	rate, err := vc.Rate(currency)
	if err != nil {
		return 0, err
	}

	_ = s.cache.Set(ctx, key, []byte(strconv.FormatFloat(rate, 'f', -1, 64)), s.cacheTTL)
	return rate, nil
}

// GetHistoricalRates returns up to days daily rates for the pair, ending
// today. Resolution order: cache, then the store when it already covers
// the window, then a sequential per-date backfill from the feed. Dates
// whose upstream fetch fails are omitted; a partial window is returned
// rather than an error.
func (s *Service) GetHistoricalRates(ctx context.Context, currency, baseCurrency string, days int) ([]domain.HistoricalRate, error) {
	cur := strings.ToUpper(currency)
	base := strings.ToUpper(baseCurrency)
	key := fmt.Sprintf("historical:%s:%s:%d", cur, base, days)

	if payload, err := s.cache.Get(ctx, key); err == nil && payload != nil {
		var cached []domain.HistoricalRate
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn("Discarding undecodable cached history", "key", key)
	}

	rows, err := s.repo.GetRates(ctx, cur, base, days)
	if err == nil {
		s.cacheHistory(ctx, key, rows)
		return rows, nil
	}
	if !errors.Is(err, domain.ErrInsufficientData) {
		return nil, err
	}

	missing, err := s.repo.GetMissingDates(ctx, cur, base, days)
	if err != nil {
		return nil, err
	}

	fresh := make([]domain.HistoricalRate, 0, len(missing))
	for _, day := range missing {
		rate, ok := s.rateForDate(ctx, cur, base, day)
		if !ok {
			continue
		}
		fresh = append(fresh, domain.HistoricalRate{
			Date: day.Format(dateLayout),
			Rate: rate,
		})
	}
	if len(fresh) > 0 {
		if err := s.repo.SaveRates(ctx, cur, base, fresh); err != nil {
			return nil, err
		}
	}

	to := time.Now()
	from := to.AddDate(0, 0, -(days - 1))
	rows, err = s.repo.GetRatesInRange(ctx, cur, base, from, to)
	if err != nil {
		return nil, err
	}
	s.cacheHistory(ctx, key, rows)
	return rows, nil
}

// rateForDate derives the pair's rate on one day via the single-rate
// path: currency-to-RUB over base-to-RUB, or just currency-to-RUB when
// the base is RUB. A failed fetch skips the day instead of failing the
// whole backfill.
func (s *Service) rateForDate(ctx context.Context, currency, base string, day time.Time) (float64, bool) {
	curRate, err := s.GetCurrencyExchangeRate(ctx, currency, &day)
	if err != nil {
		s.logger.Warn("Skipping backfill date",
			"currency", currency, "date", day.Format(dateLayout), "error", err)
		return 0, false
	}
	if base == domain.DomesticCurrency {
		return curRate, true
	}

	baseRate, err := s.GetCurrencyExchangeRate(ctx, base, &day)
	if err != nil || baseRate == 0 {
		s.logger.Warn("Skipping backfill date",
			"currency", base, "date", day.Format(dateLayout), "error", err)
		return 0, false
	}
	return curRate / baseRate, true
}

func (s *Service) cacheHistory(ctx context.Context, key string, rows []domain.HistoricalRate) {
	if payload, err := json.Marshal(rows); err == nil {
		_ = s.cache.Set(ctx, key, payload, s.cacheTTL)
	}
}

// UpdateDailyRates fetches today's listing and upserts one RUB-quoted row
// per non-RUB currency for today's date. Best effort: failures are
// logged, never reported to the caller.
func (s *Service) UpdateDailyRates(ctx context.Context) {
	vc, err := s.feed.Fetch(ctx, nil)
	if err != nil {
		s.logger.Warn("Daily rate update skipped, feed unavailable", "error", err)
		return
	}

	today := time.Now().Format(dateLayout)
	updated := 0
	for code, rate := range vc.RatesToRUB() {
		if code == domain.DomesticCurrency {
			continue
		}
		row := domain.HistoricalRate{Date: today, Rate: rate}
		if err := s.repo.SaveSingleRate(ctx, code, domain.DomesticCurrency, row); err != nil {
			s.logger.Warn("Failed to store daily rate", "currency", code, "error", err)
			continue
		}
		updated++
	}
	s.logger.Info("Daily rates updated", "date", today, "currencies", updated)
}

// GetAllAvailableCurrencies lists every currency code the feed currently
// quotes, plus RUB, sorted. On any failure it returns a fixed fallback
// list; this call never fails.
func (s *Service) GetAllAvailableCurrencies(ctx context.Context) []string {
	vc, err := s.feed.Fetch(ctx, nil)
	if err != nil {
		s.logger.Warn("Falling back to static currency list", "error", err)
		return append([]string(nil), fallbackCurrencies...)
	}

	seen := map[string]struct{}{domain.DomesticCurrency: {}}
	for _, v := range vc.Valutes {
		if v.CharCode != "" {
			seen[strings.ToUpper(v.CharCode)] = struct{}{}
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// PreloadHistoricalData warms the store with days of history for each
// configured popular currency against RUB. Per-currency failures are
// logged and skipped.
func (s *Service) PreloadHistoricalData(ctx context.Context, days int) {
	for _, currency := range s.preload {
		if _, err := s.GetHistoricalRates(ctx, currency, domain.DomesticCurrency, days); err != nil {
			s.logger.Warn("Historical preload failed for currency",
				"currency", currency, "error", err)
		}
	}
	s.logger.Info("Historical preload finished", "days", days, "currencies", len(s.preload))
}

func dateKey(date *time.Time) string {
	if date == nil {
		return "latest"
	}
	return date.Format(dateLayout)
}
