package exchange_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	infra_cache "github.com/ratelab/currex/infra/cache"
	"github.com/ratelab/currex/infra/feed"
	rates_repo "github.com/ratelab/currex/infra/repository/rates"
	"github.com/ratelab/currex/pkg/domain"
	"github.com/ratelab/currex/pkg/repository"
	"github.com/ratelab/currex/pkg/service/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubFeed serves a fixed listing and counts upstream round-trips.
type stubFeed struct {
	listing *feed.ValCurs
	err     error
	calls   int
}

func (f *stubFeed) Fetch(_ context.Context, _ *time.Time) (*feed.ValCurs, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.listing, nil
}

// brokenCache fails every call, like an unreachable Redis.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("cache backend unreachable")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache backend unreachable")
}

func testListing() *feed.ValCurs {
	return &feed.ValCurs{
		Date: "02.03.2024",
		Valutes: []feed.Valute{
			{CharCode: "USD", Nominal: "1", Value: "75,5000"},
			{CharCode: "EUR", Nominal: "1", Value: "80,0000"},
			{CharCode: "JPY", Nominal: "100", Value: "62,4500"},
		},
	}
}

func testRepo(t *testing.T) repository.RateRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, rates_repo.Migrate(db))
	return rates_repo.New(db)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, feedClient exchange.FeedClient) *exchange.Service {
	t.Helper()
	return exchange.New(
		feedClient,
		testRepo(t),
		infra_cache.NewMemory(),
		discardLogger(),
		time.Hour,
		[]string{"USD"},
	)
}

func TestGetAllCurrencyExchangeRates_DomesticBaseInverts(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	svc := newService(t, f)

	rates, err := svc.GetAllCurrencyExchangeRates(context.Background(), "RUB", nil)
	require.NoError(t, err)

	assert.Equal(t, "RUB", rates.Base)
	assert.Equal(t, "02.03.2024", rates.LastUpdated)
	assert.InDelta(t, 1.0/75.5, rates.Rates["USD"], 1e-12)
	assert.InDelta(t, 1.0/80.0, rates.Rates["EUR"], 1e-12)
	// The feed never lists RUB, but the table still contains it.
	assert.InDelta(t, 1.0, rates.Rates["RUB"], 1e-12)
}

func TestGetAllCurrencyExchangeRates_CrossRatesPivotThroughRUB(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	svc := newService(t, f)

	rates, err := svc.GetAllCurrencyExchangeRates(context.Background(), "usd", nil)
	require.NoError(t, err)

	assert.Equal(t, "USD", rates.Base)
	// The base's own rate is exactly 1.0 after cross-rate composition.
	assert.Equal(t, 1.0, rates.Rates["USD"]) //nolint:testifylint
	assert.InDelta(t, 75.5/80.0, rates.Rates["EUR"], 1e-12)
	assert.InDelta(t, 75.5, rates.Rates["RUB"], 1e-12)
}

func TestGetAllCurrencyExchangeRates_UnknownBase(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	svc := newService(t, f)

	_, err := svc.GetAllCurrencyExchangeRates(context.Background(), "ZZZ", nil)
	assert.ErrorIs(t, err, domain.ErrBaseCurrencyNotFound)
}

func TestGetAllCurrencyExchangeRates_SecondCallServedFromCache(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	svc := newService(t, f)
	ctx := context.Background()

	first, err := svc.GetAllCurrencyExchangeRates(ctx, "USD", nil)
	require.NoError(t, err)
	second, err := svc.GetAllCurrencyExchangeRates(ctx, "USD", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, first.Rates, second.Rates)
}

func TestGetAllCurrencyExchangeRates_BrokenCacheFallsThrough(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	svc := exchange.New(f, testRepo(t), brokenCache{}, discardLogger(), time.Hour, nil)

	rates, err := svc.GetAllCurrencyExchangeRates(context.Background(), "USD", nil)
	require.NoError(t, err)
	assert.InDelta(t, 75.5, rates.Rates["RUB"], 1e-12)
}

func TestGetCurrencyExchangeRate(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	svc := newService(t, f)

	rate, err := svc.GetCurrencyExchangeRate(context.Background(), "USD", nil)
	require.NoError(t, err)
	assert.InDelta(t, 75.5, rate, 1e-9)

	_, err = svc.GetCurrencyExchangeRate(context.Background(), "ZZZ", nil)
	assert.ErrorIs(t, err, domain.ErrCurrencyNotFound)
}

func TestGetCurrencyExchangeRate_FeedDown(t *testing.T) {
	f := &stubFeed{err: domain.ErrFeedUnavailable}
	svc := newService(t, f)

	_, err := svc.GetCurrencyExchangeRate(context.Background(), "USD", nil)
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

func TestGetHistoricalRates_BackfillsEmptyStore(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	svc := newService(t, f)

	rows, err := svc.GetHistoricalRates(context.Background(), "USD", "RUB", 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// One single-rate fetch per missing date when the base is domestic.
	assert.Equal(t, 3, f.calls)

	for i := range rows {
		assert.InDelta(t, 75.5, rows[i].Rate, 1e-9)
		if i > 0 {
			assert.Less(t, rows[i-1].Date, rows[i].Date)
		}
	}
}

func TestGetHistoricalRates_CrossPairDoublesFetches(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	svc := newService(t, f)

	rows, err := svc.GetHistoricalRates(context.Background(), "USD", "EUR", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// currency-to-RUB plus base-to-RUB per missing date.
	assert.Equal(t, 4, f.calls)
	assert.InDelta(t, 75.5/80.0, rows[0].Rate, 1e-12)
}

func TestGetHistoricalRates_SecondCallHitsStore(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	repo := testRepo(t)
	svc := exchange.New(f, repo, brokenCache{}, discardLogger(), time.Hour, nil)
	ctx := context.Background()

	_, err := svc.GetHistoricalRates(ctx, "USD", "RUB", 2)
	require.NoError(t, err)
	fetched := f.calls

	// The cache is broken, so a second call must be satisfied by the
	// store alone.
	rows, err := svc.GetHistoricalRates(ctx, "USD", "RUB", 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, fetched, f.calls)
}

func TestGetHistoricalRates_FeedFailuresYieldPartialResult(t *testing.T) {
	f := &stubFeed{err: domain.ErrFeedUnavailable}
	svc := newService(t, f)

	rows, err := svc.GetHistoricalRates(context.Background(), "USD", "RUB", 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateDailyRates(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	repo := testRepo(t)
	svc := exchange.New(f, repo, infra_cache.NewMemory(), discardLogger(), time.Hour, nil)
	ctx := context.Background()

	svc.UpdateDailyRates(ctx)

	got, err := repo.GetRateByDate(ctx, "USD", "RUB", time.Now())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 75.5, got.Rate, 1e-9)

	// No row for the domestic currency itself.
	rub, err := repo.GetRateByDate(ctx, "RUB", "RUB", time.Now())
	require.NoError(t, err)
	assert.Nil(t, rub)
}

func TestUpdateDailyRates_FeedDownIsSwallowed(t *testing.T) {
	f := &stubFeed{err: domain.ErrFeedUnavailable}
	repo := testRepo(t)
	svc := exchange.New(f, repo, infra_cache.NewMemory(), discardLogger(), time.Hour, nil)

	// Must not panic or surface the failure.
	svc.UpdateDailyRates(context.Background())

	got, err := repo.GetLatestRate(context.Background(), "USD", "RUB")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAllAvailableCurrencies(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	svc := newService(t, f)

	codes := svc.GetAllAvailableCurrencies(context.Background())
	assert.Equal(t, []string{"EUR", "JPY", "RUB", "USD"}, codes)
}

func TestGetAllAvailableCurrencies_FallbackOnFeedFailure(t *testing.T) {
	f := &stubFeed{err: domain.ErrFeedUnavailable}
	svc := newService(t, f)

	codes := svc.GetAllAvailableCurrencies(context.Background())
	assert.Contains(t, codes, "USD")
	assert.Contains(t, codes, "RUB")
	assert.IsIncreasing(t, codes)
}

func TestPreloadHistoricalData(t *testing.T) {
	f := &stubFeed{listing: testListing()}
	repo := testRepo(t)
	svc := exchange.New(f, repo, infra_cache.NewMemory(), discardLogger(), time.Hour, []string{"USD", "EUR"})
	ctx := context.Background()

	svc.PreloadHistoricalData(ctx, 2)

	for _, currency := range []string{"USD", "EUR"} {
		rows, err := repo.GetRates(ctx, currency, "RUB", 2)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	}
}
