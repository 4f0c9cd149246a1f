package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

type SignalAction string

const (
	SignalActionBuy   SignalAction = "BUY"
	SignalActionSell  SignalAction = "SELL"
	SignalActionClose SignalAction = "CLOSE"
)

const (
	SignalReasonStrategy   string = "strategy"
	SignalReasonStopLoss   string = "stop_loss"
	SignalReasonTakeProfit string = "take_profit"
)

// RiskManagerStrategyName is the originator of protective close signals.
const RiskManagerStrategyName = "risk-manager"

// StrategySignal is a candidate trade produced by one strategy evaluation.
// A zero Quantity on a CLOSE signal means the whole position.
type StrategySignal struct {
	ID             string                           `yaml:"id" json:"id" validate:"required"`
	StrategyName   string                           `yaml:"strategy_name" json:"strategy_name" validate:"required"`
	Symbol         string                           `yaml:"symbol" json:"symbol" validate:"required"`
	Action         SignalAction                     `yaml:"action" json:"action" validate:"required,oneof=BUY SELL CLOSE"`
	Quantity       decimal.Decimal                  `yaml:"quantity" json:"quantity" validate:"gte=0"`
	Price          optional.Option[decimal.Decimal] `yaml:"price" json:"price"`
	ReferencePrice decimal.Decimal                  `yaml:"reference_price" json:"reference_price" validate:"gt=0"`
	Confidence     float64                          `yaml:"confidence" json:"confidence" validate:"gte=0,lte=1"`
	Reason         string                           `yaml:"reason" json:"reason"`
	Metadata       map[string]any                   `yaml:"metadata" json:"metadata"`
	Timestamp      time.Time                        `yaml:"timestamp" json:"timestamp"`
	// Protective marks stop-loss and take-profit closes synthesized by the risk manager.
	Protective bool `yaml:"protective" json:"protective"`
}

// Validate validates the StrategySignal struct.
func (s StrategySignal) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid strategy signal", err)
	}

	if s.Action != SignalActionClose && !s.Quantity.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidSignal, "%s signal requires a positive quantity", s.Action)
	}

	if s.Price.IsSome() && !s.Price.Unwrap().IsPositive() {
		return errors.New(errors.ErrCodeInvalidSignal, "limit price must be positive")
	}

	return nil
}

// ExecutionPrice is the limit price when set, otherwise the reference price.
func (s StrategySignal) ExecutionPrice() decimal.Decimal {
	if s.Price.IsSome() {
		return s.Price.Unwrap()
	}

	return s.ReferencePrice
}
