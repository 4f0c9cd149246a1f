package types

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Position is the net holding of one symbol. Quantity is signed: positive is long.
type Position struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	// Quantity is the filled, signed position size
	Quantity decimal.Decimal `json:"quantity" yaml:"quantity"`
	// PendingQuantity is the signed unfilled quantity of unresolved orders
	PendingQuantity decimal.Decimal `json:"pending_quantity" yaml:"pending_quantity"`
	// AvgEntryPrice is the volume weighted entry price of the open quantity
	AvgEntryPrice decimal.Decimal `json:"avg_entry_price" yaml:"avg_entry_price"`
	// LastPrice is the latest observed market price
	LastPrice decimal.Decimal `json:"last_price" yaml:"last_price"`
	// RealizedPnL is the profit/loss realized on this symbol
	RealizedPnL decimal.Decimal `json:"realized_pnl" yaml:"realized_pnl"`
}

// IsOpen reports whether the position holds any filled quantity.
func (p Position) IsOpen() bool {
	return !p.Quantity.IsZero()
}

// MarkPrice is the last observed price, falling back to the entry price.
func (p Position) MarkPrice() decimal.Decimal {
	if p.LastPrice.IsPositive() {
		return p.LastPrice
	}

	return p.AvgEntryPrice
}

// UnrealizedPnL is the mark-to-market profit/loss of the open quantity.
func (p Position) UnrealizedPnL() decimal.Decimal {
	if !p.IsOpen() {
		return decimal.Zero
	}

	return p.MarkPrice().Sub(p.AvgEntryPrice).Mul(p.Quantity)
}

// UnrealizedPnLPercentage is the unrealized return relative to the entry price,
// positive when the position is in profit regardless of direction.
func (p Position) UnrealizedPnLPercentage() decimal.Decimal {
	if !p.IsOpen() || !p.AvgEntryPrice.IsPositive() {
		return decimal.Zero
	}

	change := p.MarkPrice().Sub(p.AvgEntryPrice).Div(p.AvgEntryPrice).Mul(hundred)
	if p.Quantity.IsNegative() {
		return change.Neg()
	}

	return change
}

// AccountState is the in-memory account the risk manager reads and the
// dispatcher mutates.
type AccountState struct {
	// Balance is the cash balance
	Balance decimal.Decimal `json:"balance" yaml:"balance"`
	// Reserved is the notional held by unresolved buy orders
	Reserved  decimal.Decimal     `json:"reserved" yaml:"reserved"`
	Positions map[string]Position `json:"positions" yaml:"positions"`
	// RealizedPnL is the total realized profit/loss of the run
	RealizedPnL decimal.Decimal `json:"realized_pnl" yaml:"realized_pnl"`
	// DailyRealizedPnL is the net realized profit/loss of the current trading day
	DailyRealizedPnL decimal.Decimal `json:"daily_realized_pnl" yaml:"daily_realized_pnl"`
	// DailyLoss is the cumulative loss of losing closes in the current trading day
	DailyLoss decimal.Decimal `json:"daily_loss" yaml:"daily_loss"`
	// TradingDay is the UTC date (YYYY-MM-DD) the daily counters belong to
	TradingDay string `json:"trading_day" yaml:"trading_day"`
	// PeakEquity is the highest equity observed, used for drawdown
	PeakEquity decimal.Decimal `json:"peak_equity" yaml:"peak_equity"`
	UpdatedAt  time.Time       `json:"updated_at" yaml:"updated_at"`
}

// NewAccountState creates an account holding only cash.
func NewAccountState(balance decimal.Decimal) AccountState {
	return AccountState{
		Balance:          balance,
		Reserved:         decimal.Zero,
		Positions:        map[string]Position{},
		RealizedPnL:      decimal.Zero,
		DailyRealizedPnL: decimal.Zero,
		DailyLoss:        decimal.Zero,
		TradingDay:       "",
		PeakEquity:       balance,
		UpdatedAt:        time.Time{},
	}
}

// Available is the balance not held by unresolved buy orders.
func (a AccountState) Available() decimal.Decimal {
	return a.Balance.Sub(a.Reserved)
}

// Position returns the position for symbol, or an empty one.
func (a AccountState) Position(symbol string) Position {
	if p, ok := a.Positions[symbol]; ok {
		return p
	}

	return Position{Symbol: symbol}
}

// OpenPositionCount counts symbols with filled or pending exposure.
func (a AccountState) OpenPositionCount() int {
	count := 0

	for _, p := range a.Positions {
		if !p.Quantity.IsZero() || !p.PendingQuantity.IsZero() {
			count++
		}
	}

	return count
}

// UnrealizedPnL sums the unrealized profit/loss over all positions.
func (a AccountState) UnrealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for _, p := range a.Positions {
		total = total.Add(p.UnrealizedPnL())
	}

	return total
}

// Equity is cash plus the marked value of all positions.
func (a AccountState) Equity() decimal.Decimal {
	equity := a.Balance
	for _, p := range a.Positions {
		equity = equity.Add(p.Quantity.Mul(p.MarkPrice()))
	}

	return equity
}

// DrawdownPercentage is the decline of equity from its peak, in percent.
func (a AccountState) DrawdownPercentage() decimal.Decimal {
	if !a.PeakEquity.IsPositive() {
		return decimal.Zero
	}

	drawdown := a.PeakEquity.Sub(a.Equity()).Div(a.PeakEquity).Mul(hundred)
	if drawdown.IsNegative() {
		return decimal.Zero
	}

	return drawdown
}

// Clone returns a deep copy safe to hand to other goroutines.
func (a AccountState) Clone() AccountState {
	clone := a

	clone.Positions = make(map[string]Position, len(a.Positions))
	for symbol, p := range a.Positions {
		clone.Positions[symbol] = p
	}

	return clone
}
