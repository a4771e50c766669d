package webapi

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/ratelab/currex/pkg/service/exchange"
)

var validate = validator.New()

// RateRoutes mounts the currency rate endpoints.
func RateRoutes(app *fiber.App, svc *exchange.Service) {
	group := app.Group("/api/currency")

	group.Get("/rates/:base", GetRates(svc))
	group.Get("/historical/:currency/:base/:days", GetHistoricalRates(svc))
	group.Post("/update-rates", UpdateRates(svc))
	group.Post("/preload-data/:days", PreloadData(svc))
	group.Get("/currencies", GetAvailableCurrencies(svc))
}

// GetRates returns the full rate table relative to a base currency.
// @Summary Exchange rates for a base currency
// @Description Rate table relative to the given base, for today or an ISO date
// @Tags currency
// @Produce json
// @Param base path string true "Base currency code (e.g. USD)"
// @Param date query string false "ISO 8601 date (defaults to latest)"
// @Success 200 {object} domain.ExchangeRates
// @Failure 400 {object} ProblemDetails
// @Failure 500 {object} ProblemDetails
// @Router /api/currency/rates/{base} [get]
func GetRates(svc *exchange.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		base := c.Params("base", "USD")
		if err := validate.Var(base, "required,alpha,len=3"); err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest,
				"Invalid base currency", "currency codes are three letters")
		}

		date, err := parseDateQuery(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest,
				"Invalid date", "expected ISO 8601 date (2006-01-02)")
		}

		rates, err := svc.GetAllCurrencyExchangeRates(c.Context(), base, date)
		if err != nil {
			return rateError(c, err)
		}
		return c.JSON(rates)
	}
}

// GetHistoricalRates returns daily rates of a pair over a trailing window.
// @Summary Historical rates for a currency pair
// @Tags currency
// @Produce json
// @Param currency path string true "Currency code"
// @Param base path string true "Base currency code"
// @Param days path int true "Trailing window in days"
// @Success 200 {array} domain.HistoricalRate
// @Failure 400 {object} ProblemDetails
// @Failure 500 {object} ProblemDetails
// @Router /api/currency/historical/{currency}/{base}/{days} [get]
func GetHistoricalRates(svc *exchange.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		currency := c.Params("currency")
		base := c.Params("base")
		for _, code := range []string{currency, base} {
			if err := validate.Var(code, "required,alpha,len=3"); err != nil {
				return ErrorResponseJSON(c, fiber.StatusBadRequest,
					"Invalid currency code", "currency codes are three letters")
			}
		}
		days, err := c.ParamsInt("days")
		if err != nil || days < 1 {
			return ErrorResponseJSON(c, fiber.StatusBadRequest,
				"Invalid days", "days must be a positive integer")
		}

		rates, err := svc.GetHistoricalRates(c.Context(), currency, base, days)
		if err != nil {
			return rateError(c, err)
		}
		return c.JSON(rates)
	}
}

// UpdateRates refreshes today's stored rates from the feed.
// @Summary Update stored daily rates
// @Tags currency
// @Produce json
// @Success 200 {object} Response
// @Router /api/currency/update-rates [post]
func UpdateRates(svc *exchange.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		svc.UpdateDailyRates(c.Context())
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Rates updated successfully",
		})
	}
}

// PreloadData triggers a historical data preload.
// @Summary Preload historical data
// @Tags currency
// @Produce json
// @Param days path int true "How many trailing days to preload"
// @Success 200 {object} Response
// @Failure 400 {object} ProblemDetails
// @Router /api/currency/preload-data/{days} [post]
func PreloadData(svc *exchange.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days, err := c.ParamsInt("days")
		if err != nil || days < 1 {
			return ErrorResponseJSON(c, fiber.StatusBadRequest,
				"Invalid days", "days must be a positive integer")
		}

		svc.PreloadHistoricalData(c.Context(), days)
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": fmt.Sprintf("Preloaded %d days of historical data", days),
		})
	}
}

// GetAvailableCurrencies lists every currency the feed quotes.
// @Summary Available currencies
// @Tags currency
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/currency/currencies [get]
func GetAvailableCurrencies(svc *exchange.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"currencies": svc.GetAllAvailableCurrencies(c.Context()),
		})
	}
}

func parseDateQuery(c *fiber.Ctx) (*time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func rateError(c *fiber.Ctx, err error) error {
	status := ErrorToStatusCode(err)
	if status == fiber.StatusInternalServerError {
		return ErrorResponseJSON(c, status, "Internal Server Error", "")
	}
	return ErrorResponseJSON(c, status, "Invalid request", err.Error())
}
