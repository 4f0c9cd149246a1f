package types

import (
	"maps"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

type OrderSide string

type OrderType string

type OrderStatus string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	OrderStatusCreated         OrderStatus = "CREATED"
	OrderStatusSubmitted       OrderStatus = "SUBMITTED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// IsInFlight reports whether the order is still unresolved.
func (s OrderStatus) IsInFlight() bool {
	switch s {
	case OrderStatusCreated, OrderStatusSubmitted, OrderStatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// Sign returns +1 for buys and -1 for sells.
func (s OrderSide) Sign() decimal.Decimal {
	if s == OrderSideSell {
		return decimal.NewFromInt(-1)
	}

	return decimal.NewFromInt(1)
}

// Order is a tracked order created from an admitted signal.
type Order struct {
	ID             string                           `yaml:"id" json:"id" validate:"required,uuid"`
	VenueOrderID   string                           `yaml:"venue_order_id" json:"venue_order_id"`
	StrategyName   string                           `yaml:"strategy_name" json:"strategy_name" validate:"required"`
	SignalID       string                           `yaml:"signal_id" json:"signal_id"`
	Symbol         string                           `yaml:"symbol" json:"symbol" validate:"required"`
	Side           OrderSide                        `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Type           OrderType                        `yaml:"type" json:"type" validate:"required,oneof=MARKET LIMIT"`
	Quantity       decimal.Decimal                  `yaml:"quantity" json:"quantity" validate:"gt=0"`
	Price          optional.Option[decimal.Decimal] `yaml:"price" json:"price"`
	ReferencePrice decimal.Decimal                  `yaml:"reference_price" json:"reference_price" validate:"gt=0"`
	Status         OrderStatus                      `yaml:"status" json:"status" validate:"required"`
	FilledQuantity decimal.Decimal                  `yaml:"filled_quantity" json:"filled_quantity"`
	// AverageFillPrice is the volume weighted price of all fills
	AverageFillPrice decimal.Decimal `yaml:"average_fill_price" json:"average_fill_price"`
	Attempts         int             `yaml:"attempts" json:"attempts"`
	Reason           string          `yaml:"reason" json:"reason"`
	Protective       bool            `yaml:"protective" json:"protective"`
	Metadata         map[string]any  `yaml:"metadata" json:"metadata"`
	CreatedAt        time.Time       `yaml:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `yaml:"updated_at" json:"updated_at"`
}

// Validate validates the Order struct.
func (o Order) Validate() error {
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeOrderFailed, "invalid order", err)
	}

	if o.Type == OrderTypeLimit && o.Price.IsNone() {
		return errors.New(errors.ErrCodeOrderFailed, "limit order requires a price")
	}

	return nil
}

// RemainingQuantity is the unfilled part of the order.
func (o Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// ExecutionPrice is the limit price when set, otherwise the reference price.
func (o Order) ExecutionPrice() decimal.Decimal {
	if o.Price.IsSome() {
		return o.Price.Unwrap()
	}

	return o.ReferencePrice
}

// Clone returns a copy that shares no mutable state with o.
func (o Order) Clone() Order {
	clone := o
	if o.Metadata != nil {
		clone.Metadata = maps.Clone(o.Metadata)
	}

	return clone
}

// OrderRequest is what the dispatcher sends to the execution client.
type OrderRequest struct {
	ClientOrderID string                           `json:"client_order_id"`
	Symbol        string                           `json:"symbol"`
	Side          OrderSide                        `json:"side"`
	Type          OrderType                        `json:"type"`
	Quantity      decimal.Decimal                  `json:"quantity"`
	Price         optional.Option[decimal.Decimal] `json:"price"`
}

// ExecutionReport is a venue update for an order. CumulativeQuantity is the
// total executed so far, not the delta.
type ExecutionReport struct {
	OrderID            string          `json:"order_id"`
	VenueOrderID       string          `json:"venue_order_id"`
	Status             OrderStatus     `json:"status"`
	CumulativeQuantity decimal.Decimal `json:"cumulative_quantity"`
	AveragePrice       decimal.Decimal `json:"average_price"`
	Reason             string          `json:"reason"`
}
