// Package rates implements the durable rate store on a local sqlite file
// through gorm.
package rates

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ratelab/currex/pkg/domain"
	repo "github.com/ratelab/currex/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

type repository struct {
	db *gorm.DB
}

// New creates a rate repository using the provided *gorm.DB.
func New(db *gorm.DB) repo.RateRepository {
	return &repository{db: db}
}

// Migrate creates the historical_rates table and its composite unique
// index if they do not exist yet.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&HistoricalRate{})
}

// SaveRates implements repository.RateRepository.
func (r *repository) SaveRates(ctx context.Context, currency, base string, rows []domain.HistoricalRate) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]HistoricalRate, 0, len(rows))
	for _, row := range rows {
		models = append(models, HistoricalRate{
			Currency:     strings.ToUpper(currency),
			BaseCurrency: strings.ToUpper(base),
			Date:         row.Date,
			Rate:         row.Rate,
		})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "currency"}, {Name: "base_currency"}, {Name: "date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"rate"}),
	}).Create(&models).Error
}

// SaveSingleRate implements repository.RateRepository.
func (r *repository) SaveSingleRate(ctx context.Context, currency, base string, row domain.HistoricalRate) error {
	return r.SaveRates(ctx, currency, base, []domain.HistoricalRate{row})
}

// GetRateByDate implements repository.RateRepository.
func (r *repository) GetRateByDate(ctx context.Context, currency, base string, date time.Time) (*domain.HistoricalRate, error) {
	var row HistoricalRate
	err := r.db.WithContext(ctx).
		Where("currency = ? AND base_currency = ? AND date = ?",
			strings.ToUpper(currency), strings.ToUpper(base), date.Format(dateLayout)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.HistoricalRate{Date: row.Date, Rate: row.Rate}, nil
}

// GetRates implements repository.RateRepository. The window is the
// trailing days calendar days ending today; fewer stored rows than days
// reports domain.ErrInsufficientData.
func (r *repository) GetRates(ctx context.Context, currency, base string, days int) ([]domain.HistoricalRate, error) {
	start := time.Now().AddDate(0, 0, -(days - 1))
	rows, err := r.queryRange(ctx, currency, base, start.Format(dateLayout), time.Now().Format(dateLayout))
	if err != nil {
		return nil, err
	}
	if len(rows) < days {
		return nil, domain.ErrInsufficientData
	}
	return rows, nil
}

// GetRatesInRange implements repository.RateRepository.
func (r *repository) GetRatesInRange(ctx context.Context, currency, base string, from, to time.Time) ([]domain.HistoricalRate, error) {
	return r.queryRange(ctx, currency, base, from.Format(dateLayout), to.Format(dateLayout))
}

func (r *repository) queryRange(ctx context.Context, currency, base, from, to string) ([]domain.HistoricalRate, error) {
	var models []HistoricalRate
	err := r.db.WithContext(ctx).
		Where("currency = ? AND base_currency = ? AND date >= ? AND date <= ?",
			strings.ToUpper(currency), strings.ToUpper(base), from, to).
		Order("date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	rows := make([]domain.HistoricalRate, 0, len(models))
	for _, m := range models {
		rows = append(rows, domain.HistoricalRate{Date: m.Date, Rate: m.Rate})
	}
	return rows, nil
}

// GetLatestRate implements repository.RateRepository.
func (r *repository) GetLatestRate(ctx context.Context, currency, base string) (*domain.HistoricalRate, error) {
	var row HistoricalRate
	err := r.db.WithContext(ctx).
		Where("currency = ? AND base_currency = ?",
			strings.ToUpper(currency), strings.ToUpper(base)).
		Order("date DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.HistoricalRate{Date: row.Date, Rate: row.Rate}, nil
}

// GetMissingDates implements repository.RateRepository.
func (r *repository) GetMissingDates(ctx context.Context, currency, base string, days int) ([]time.Time, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -(days - 1))
	return r.GetMissingDatesForRange(ctx, currency, base, from, to)
}

// GetMissingDatesForRange implements repository.RateRepository. The set
// difference is computed in memory over the calendar window, which stays
// small for the windows this service handles.
func (r *repository) GetMissingDatesForRange(ctx context.Context, currency, base string, from, to time.Time) ([]time.Time, error) {
	var stored []string
	err := r.db.WithContext(ctx).
		Model(&HistoricalRate{}).
		Distinct("date").
		Where("currency = ? AND base_currency = ? AND date >= ? AND date <= ?",
			strings.ToUpper(currency), strings.ToUpper(base),
			from.Format(dateLayout), to.Format(dateLayout)).
		Pluck("date", &stored).Error
	if err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(stored))
	for _, d := range stored {
		existing[d] = struct{}{}
	}

	var missing []time.Time
	for day := truncateToDay(from); !day.After(truncateToDay(to)); day = day.AddDate(0, 0, 1) {
		if _, ok := existing[day.Format(dateLayout)]; !ok {
			missing = append(missing, day)
		}
	}
	return missing, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
