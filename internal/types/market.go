package types

import (
	"time"

	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// MarketSnapshot is a single market observation for one symbol.
type MarketSnapshot struct {
	Symbol    string          `yaml:"symbol" json:"symbol" validate:"required"`
	Price     decimal.Decimal `yaml:"price" json:"price" validate:"gt=0"`
	Volume24h decimal.Decimal `yaml:"volume_24h" json:"volume_24h" validate:"gte=0"`
	High24h   decimal.Decimal `yaml:"high_24h" json:"high_24h" validate:"gte=0"`
	Low24h    decimal.Decimal `yaml:"low_24h" json:"low_24h" validate:"gte=0"`
	Timestamp time.Time       `yaml:"timestamp" json:"timestamp" validate:"required"`
}

// Validate validates the MarketSnapshot struct.
func (m MarketSnapshot) Validate() error {
	if err := validate.Struct(m); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSnapshot, "invalid market snapshot", err)
	}

	return nil
}
