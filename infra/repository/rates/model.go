package rates

// HistoricalRate represents one stored rate row. The composite unique
// index makes writes insert-or-replace per (currency, base_currency, date).
type HistoricalRate struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	Currency     string  `gorm:"not null;uniqueIndex:idx_pair_date"`
	BaseCurrency string  `gorm:"not null;uniqueIndex:idx_pair_date"`
	Date         string  `gorm:"not null;uniqueIndex:idx_pair_date"`
	Rate         float64 `gorm:"not null"`
}

// TableName specifies the table name for the HistoricalRate model.
func (HistoricalRate) TableName() string {
	return "historical_rates"
}
