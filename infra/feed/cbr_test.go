package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ratelab/currex/pkg/config"
	"github.com/ratelab/currex/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyListing = `<?xml version="1.0" encoding="windows-1251"?>
<ValCurs Date="02.03.2024" name="Foreign Currency Market">
  <Valute ID="R01235">
    <NumCode>840</NumCode>
    <CharCode>USD</CharCode>
    <Nominal>1</Nominal>
    <Name>US Dollar</Name>
    <Value>75,5000</Value>
  </Valute>
  <Valute ID="R01239">
    <NumCode>978</NumCode>
    <CharCode>EUR</CharCode>
    <Nominal>1</Nominal>
    <Name>Euro</Name>
    <Value>80,0000</Value>
  </Valute>
  <Valute ID="R01820">
    <NumCode>392</NumCode>
    <CharCode>JPY</CharCode>
    <Nominal>100</Nominal>
    <Name>Japanese Yen</Name>
    <Value>62,4500</Value>
  </Valute>
  <Valute ID="R01999">
    <NumCode>000</NumCode>
    <CharCode>XXX</CharCode>
    <Nominal>1</Nominal>
    <Name>Broken entry</Name>
    <Value>not-a-number</Value>
  </Valute>
</ValCurs>`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		&config.Feed{URL: srv.URL, HTTPTimeout: 5 * time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestFetch_ParsesListing(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dailyListing))
	})

	vc, err := client.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "02.03.2024", vc.Date)
	assert.Len(t, vc.Valutes, 4)
}

func TestFetch_DateParameter(t *testing.T) {
	var gotDateReq string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotDateReq = r.URL.Query().Get("date_req")
		_, _ = w.Write([]byte(dailyListing))
	})

	date := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := client.Fetch(context.Background(), &date)
	require.NoError(t, err)
	assert.Equal(t, "02.03.2024", gotDateReq)
}

func TestFetch_NoDateOmitsParameter(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("date_req"))
		_, _ = w.Write([]byte(dailyListing))
	})

	_, err := client.Fetch(context.Background(), nil)
	require.NoError(t, err)
}

func TestFetch_Non2xxIsFeedUnavailable(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Fetch(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

func TestRatesToRUB(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dailyListing))
	})
	vc, err := client.Fetch(context.Background(), nil)
	require.NoError(t, err)

	rates := vc.RatesToRUB()

	assert.InDelta(t, 75.5, rates["USD"], 1e-9)
	assert.InDelta(t, 80.0, rates["EUR"], 1e-9)
	// Nominal 100: quoted per hundred units.
	assert.InDelta(t, 0.6245, rates["JPY"], 1e-9)
	// RUB itself is always present even though the feed never lists it.
	assert.InDelta(t, 1.0, rates["RUB"], 1e-9)
	// Unparsable entries are skipped, not an error.
	assert.NotContains(t, rates, "XXX")
}

func TestRate_SingleCurrency(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dailyListing))
	})
	vc, err := client.Fetch(context.Background(), nil)
	require.NoError(t, err)

	rate, err := vc.Rate("usd")
	require.NoError(t, err)
	assert.InDelta(t, 75.5, rate, 1e-9)

	_, err = vc.Rate("ZZZ")
	assert.ErrorIs(t, err, domain.ErrCurrencyNotFound)

	// Present but unparsable counts as not found.
	_, err = vc.Rate("XXX")
	assert.ErrorIs(t, err, domain.ErrCurrencyNotFound)
}
