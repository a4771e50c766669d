// Package feed implements the client for the Central Bank of Russia daily
// currency listing (XML_daily.asp).
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ratelab/currex/pkg/config"
	"github.com/ratelab/currex/pkg/domain"
	"golang.org/x/text/encoding/charmap"
)

// ValCurs is the root element of the daily listing. Date carries the
// quotation day in the feed's own dd.mm.yyyy form.
type ValCurs struct {
	Date    string   `xml:"Date,attr"`
	Valutes []Valute `xml:"Valute"`
}

// Valute is one quoted currency. Value uses a comma as the decimal
// separator and is quoted per Nominal units of the currency.
type Valute struct {
	NumCode  string `xml:"NumCode"`
	CharCode string `xml:"CharCode"`
	Nominal  string `xml:"Nominal"`
	Name     string `xml:"Name"`
	Value    string `xml:"Value"`
}

// Client fetches the daily listing over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feed client from config.
func NewClient(cfg *config.Feed, logger *slog.Logger) *Client {
	return &Client{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		logger: logger,
	}
}

// Fetch issues one GET to the feed, optionally for a specific date
// (date_req, formatted dd.mm.yyyy). A nil date requests the latest listing.
func (c *Client) Fetch(ctx context.Context, date *time.Time) (*ValCurs, error) {
	reqURL := c.baseURL
	if date != nil {
		params := url.Values{}
		params.Set("date_req", date.Format("02.01.2006"))
		reqURL = c.baseURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Feed returned non-2xx status", "status", resp.StatusCode, "url", c.baseURL)
		return nil, fmt.Errorf("%w: status %d", domain.ErrFeedUnavailable, resp.StatusCode)
	}

	var vc ValCurs
	decoder := xml.NewDecoder(resp.Body)
	decoder.CharsetReader = charsetReader
	if err := decoder.Decode(&vc); err != nil {
		return nil, fmt.Errorf("failed to decode feed payload: %w", err)
	}

	c.logger.Debug("Fetched daily listing", "date", vc.Date, "currencies", len(vc.Valutes))
	return &vc, nil
}

// charsetReader handles the windows-1251 encoding the feed declares.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "windows-1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "utf-8":
		return input, nil
	default:
		return nil, fmt.Errorf("unsupported charset: %q", charset)
	}
}

// RatesToRUB extracts a code → rate-in-RUB mapping, nominal-adjusted.
// Entries with an unparsable value or nominal are skipped; a partial
// result is acceptable. RUB itself is present at exactly 1.0.
func (vc *ValCurs) RatesToRUB() map[string]float64 {
	rates := make(map[string]float64, len(vc.Valutes)+1)
	for _, v := range vc.Valutes {
		rate, ok := v.rateToRUB()
		if !ok {
			continue
		}
		rates[v.CharCode] = rate
	}
	rates[domain.DomesticCurrency] = 1.0
	return rates
}

// Rate extracts the nominal-adjusted RUB rate of a single currency code.
func (vc *ValCurs) Rate(code string) (float64, error) {
	target := strings.ToUpper(code)
	for _, v := range vc.Valutes {
		if v.CharCode != target {
			continue
		}
		if rate, ok := v.rateToRUB(); ok {
			return rate, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", domain.ErrCurrencyNotFound, code)
}

func (v *Valute) rateToRUB() (float64, bool) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(v.Value, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	nominal, err := strconv.ParseFloat(v.Nominal, 64)
	if err != nil || nominal == 0 {
		return 0, false
	}
	return value / nominal, true
}
