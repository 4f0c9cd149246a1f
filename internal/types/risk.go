package types

import (
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// RiskLimits bounds what the risk manager admits. A reload replaces the whole value.
type RiskLimits struct {
	// MaxDailyLoss is the cumulative daily loss that blocks all new signals
	MaxDailyLoss decimal.Decimal `yaml:"max_daily_loss" json:"max_daily_loss" jsonschema:"description=Daily loss that blocks new signals,default=1000" validate:"gt=0"`
	// MaxPositionSize is the maximum notional (quantity x price) per symbol
	MaxPositionSize decimal.Decimal `yaml:"max_position_size" json:"max_position_size" jsonschema:"description=Maximum position notional per symbol,default=10000" validate:"gt=0"`
	// MaxPositions is the maximum number of symbols with open exposure
	MaxPositions          int             `yaml:"max_positions" json:"max_positions" jsonschema:"description=Maximum number of open positions,default=10" validate:"gt=0"`
	StopLossPercentage    decimal.Decimal `yaml:"stop_loss_percentage" json:"stop_loss_percentage" jsonschema:"description=Unrealized loss percent that closes a position (0 disables),default=5" validate:"gte=0,lte=100"`
	TakeProfitPercentage  decimal.Decimal `yaml:"take_profit_percentage" json:"take_profit_percentage" jsonschema:"description=Unrealized profit percent that closes a position (0 disables),default=10" validate:"gte=0"`
	MaxDrawdownPercentage decimal.Decimal `yaml:"max_drawdown_percentage" json:"max_drawdown_percentage" jsonschema:"description=Equity drawdown percent that blocks new signals,default=20" validate:"gt=0,lte=100"`
}

// DefaultRiskLimits returns the limits used when the configuration omits them.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxDailyLoss:          decimal.NewFromInt(1000),
		MaxPositionSize:       decimal.NewFromInt(10000),
		MaxPositions:          10,
		StopLossPercentage:    decimal.NewFromInt(5),
		TakeProfitPercentage:  decimal.NewFromInt(10),
		MaxDrawdownPercentage: decimal.NewFromInt(20),
	}
}

// Validate validates the RiskLimits struct.
func (r RiskLimits) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRiskLimits, "invalid risk limits", err)
	}

	return nil
}
